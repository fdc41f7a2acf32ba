// Package chat manages a conversation with an assistant: the session being
// displayed, the session history and streaming answers into the transcript.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-assistant-client/internal/pkg/logger"
	"ai-assistant-client/pkg/alert"
	"ai-assistant-client/pkg/api"
	"ai-assistant-client/pkg/events"
	"ai-assistant-client/pkg/state"

	"github.com/patrickmn/go-cache"
)

const (
	DefaultPageSize = 20
	moduleName      = "ChatManager"

	newSessionName = "New session"
	errorPreamble  = "We encountered an error processing your request."
)

// Session is the conversation on display. An empty ID marks a session the
// server has not assigned yet.
type Session struct {
	ID       string
	Name     string
	Messages []api.Message
}

func EmptySession() Session {
	return Session{Name: newSessionName, Messages: []api.Message{}}
}

// SessionFrom converts a session loaded from the server.
func SessionFrom(s api.Session) Session {
	messages := s.Messages
	if messages == nil {
		messages = []api.Message{}
	}
	return Session{ID: s.ID, Name: s.Name, Messages: messages}
}

// AssistantService is the part of the API client the manager needs.
type AssistantService interface {
	Ask(ctx context.Context, p api.AskParams) (*api.AssistantResponse, error)
	GetSession(ctx context.Context, assistantID, sessionID string) (*api.Session, error)
	DeleteSession(ctx context.Context, assistantID, sessionID string) error
	ListSessions(ctx context.Context, assistantID string, page api.Pagination) (*api.Paginated[api.SessionSparse], error)
}

type Publisher interface {
	Publish(e events.Event) error
}

type Params struct {
	Assistant  api.Assistant
	Assistants AssistantService
	// InitialSession is displayed on creation, nil starts an empty session.
	InitialSession *Session
	// History is the first page of the assistant's sessions, if already known.
	History  *api.Paginated[api.SessionSparse]
	PageSize int
	// Bus, if set, is told when the session list changed.
	Bus     Publisher
	Alerter alert.Alerter
	Logger  logger.ILogger
}

type Manager struct {
	assistants AssistantService
	pageSize   int
	bus        Publisher
	alerter    alert.Alerter
	logger     logger.ILogger
	sessions   *cache.Cache

	assistant      *state.Writable[api.Assistant]
	history        *state.Writable[[]api.SessionSparse]
	nextCursor     *state.Writable[*string]
	totalSessions  *state.Writable[int]
	currentSession *state.Writable[Session]
	isAsking       *state.Writable[bool]

	hasMoreSessions *state.Derived[bool]
	loadedSessions  *state.Derived[int]
}

func NewManager(p Params) *Manager {
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	m := &Manager{
		assistants:     p.Assistants,
		pageSize:       p.PageSize,
		bus:            p.Bus,
		alerter:        alert.OrDiscard(p.Alerter),
		logger:         logger.OrNop(p.Logger),
		sessions:       cache.New(5*time.Minute, 10*time.Minute),
		assistant:      state.NewWritable(p.Assistant),
		history:        state.NewWritable([]api.SessionSparse{}),
		nextCursor:     state.NewWritable[*string](nil),
		totalSessions:  state.NewWritable(0),
		currentSession: state.NewWritable(EmptySession()),
		isAsking:       state.NewWritable(false),
	}
	m.hasMoreSessions = state.Derive[*string](m.nextCursor, func(c *string) bool { return c != nil })
	m.loadedSessions = state.Derive[[]api.SessionSparse](m.history, func(h []api.SessionSparse) int { return len(h) })

	if p.History != nil {
		m.setHistory(p.History)
	}
	if p.InitialSession != nil {
		m.currentSession.Set(*p.InitialSession)
	}
	return m
}

func (m *Manager) CurrentSession() state.Readable[Session]      { return m.currentSession.ReadOnly() }
func (m *Manager) History() state.Readable[[]api.SessionSparse] { return m.history.ReadOnly() }
func (m *Manager) IsAskingQuestion() state.Readable[bool]       { return m.isAsking.ReadOnly() }
func (m *Manager) Assistant() state.Readable[api.Assistant]     { return m.assistant.ReadOnly() }
func (m *Manager) HasMoreSessions() state.Readable[bool]        { return m.hasMoreSessions }
func (m *Manager) LoadedSessions() state.Readable[int]          { return m.loadedSessions }
func (m *Manager) TotalSessions() state.Readable[int]           { return m.totalSessions.ReadOnly() }

// ReInit points the manager at new initial data without recreating it. A nil
// session starts an empty one, nil history clears the history.
func (m *Manager) ReInit(p Params) {
	m.assistant.Set(p.Assistant)

	if p.InitialSession != nil {
		m.currentSession.Set(*p.InitialSession)
	} else {
		m.currentSession.Set(EmptySession())
	}

	if p.History != nil {
		m.setHistory(p.History)
	} else {
		m.history.Set([]api.SessionSparse{})
		m.nextCursor.Set(nil)
		m.totalSessions.Set(0)
	}
}

func (m *Manager) StartNewSession() {
	m.currentSession.Set(EmptySession())
}

// LoadSession displays the session id. Recently loaded sessions are served
// from memory.
func (m *Manager) LoadSession(ctx context.Context, id string) (*Session, error) {
	key := m.cacheKey(id)
	if cached, ok := m.sessions.Get(key); ok {
		s := cached.(Session)
		s.Messages = append([]api.Message(nil), s.Messages...)
		m.currentSession.Set(s)
		return &s, nil
	}

	loaded, err := m.assistants.GetSession(ctx, m.assistant.Get().ID, id)
	if err != nil {
		m.alerter.Alert(fmt.Sprintf("Error while loading session %s", id))
		m.logger.Error(moduleName, "Could not load session", map[string]interface{}{"session_id": id, "error": err})
		return nil, err
	}

	s := SessionFrom(*loaded)
	m.sessions.SetDefault(key, s)
	m.currentSession.Set(s)
	return &s, nil
}

// DeleteSession removes the session from the server and the history. Deleting
// the displayed session starts a new one.
func (m *Manager) DeleteSession(ctx context.Context, id string) error {
	if err := m.assistants.DeleteSession(ctx, m.assistant.Get().ID, id); err != nil {
		m.alerter.Alert(fmt.Sprintf("Error while deleting session %s", id))
		m.logger.Error(moduleName, "Could not delete session", map[string]interface{}{"session_id": id, "error": err})
		return err
	}

	m.sessions.Delete(m.cacheKey(id))
	m.history.Update(func(h []api.SessionSparse) []api.SessionSparse {
		next := make([]api.SessionSparse, 0, len(h))
		for _, s := range h {
			if s.ID != id {
				next = append(next, s)
			}
		}
		return next
	})
	if m.currentSession.Get().ID == id {
		m.StartNewSession()
	}
	m.publishSessionsChanged()
	return nil
}

// RefreshHistory reloads the first page of sessions.
func (m *Manager) RefreshHistory(ctx context.Context) error {
	assistantID := m.assistant.Get().ID
	page, err := m.assistants.ListSessions(ctx, assistantID, api.Pagination{Limit: m.pageSize})
	if err != nil {
		m.alerter.Alert(fmt.Sprintf("Error when loading sessions for assistant %s", assistantID))
		m.logger.Error(moduleName, "Could not refresh history", map[string]interface{}{"assistant_id": assistantID, "error": err})
		return err
	}
	m.setHistory(page)
	return nil
}

// LoadMoreSessions appends the next page of sessions. limit <= 0 uses the
// page size.
func (m *Manager) LoadMoreSessions(ctx context.Context, limit int) (*api.Paginated[api.SessionSparse], error) {
	if limit <= 0 {
		limit = m.pageSize
	}
	page := api.Pagination{Limit: limit}
	if cursor := m.nextCursor.Get(); cursor != nil {
		page.Cursor = *cursor
	}

	res, err := m.assistants.ListSessions(ctx, m.assistant.Get().ID, page)
	if err != nil {
		m.logger.Error(moduleName, "Error loading pagination", map[string]interface{}{"error": err})
		return nil, err
	}
	m.history.Update(func(h []api.SessionSparse) []api.SessionSparse {
		return append(append([]api.SessionSparse(nil), h...), res.Items...)
	})
	m.nextCursor.Set(res.NextCursor)
	return res, nil
}

// ChangeAssistant switches the assistant. A different assistant gets its
// history loaded and a fresh session.
func (m *Manager) ChangeAssistant(ctx context.Context, next api.Assistant) {
	previous := m.assistant.Get()
	m.assistant.Set(next)

	if previous.ID != next.ID {
		_ = m.RefreshHistory(ctx)
		m.StartNewSession()
	}
}

// AskQuestion streams the answer to question into the displayed session.
// Cancelling ctx stops the stream and leaves the transcript as it is. Other
// failures are written into the transcript as the answer. onUpdate, if set,
// runs after every change to the in-flight message.
func (m *Manager) AskQuestion(ctx context.Context, question string, files []api.File, onUpdate func()) error {
	notify := func() {
		if onUpdate != nil {
			onUpdate()
		}
	}
	if files == nil {
		files = []api.File{}
	}

	var sessionID string
	m.isAsking.Set(true)
	m.currentSession.Update(func(s Session) Session {
		sessionID = s.ID
		s.Messages = append(append([]api.Message(nil), s.Messages...), api.Message{
			Question:   question,
			References: []api.Reference{},
			Files:      files,
		})
		return s
	})
	notify()

	refs := make([]api.Ref, 0, len(files))
	for _, f := range files {
		refs = append(refs, api.Ref{ID: f.ID})
	}

	var citations citationBuffer
	res, err := m.assistants.Ask(ctx, api.AskParams{
		AssistantID: m.assistant.Get().ID,
		SessionID:   sessionID,
		Question:    question,
		Files:       refs,
		OnAnswer: func(partial api.AssistantResponse, abort func()) {
			stale := false
			m.currentSession.Update(func(s Session) Session {
				if sessionID == "" && s.ID == "" {
					sessionID = partial.SessionID
					s.ID = partial.SessionID
					s.Name = question
				}
				// The user moved on to another session.
				if s.ID != partial.SessionID {
					stale = true
					return s
				}
				return withLastMessage(s, func(msg *api.Message) {
					msg.Answer += citations.push(partial.Answer)
					msg.References = partial.References
				})
			})
			if stale {
				abort()
				return
			}
			notify()
		},
	})

	if err != nil && api.IsCancelled(err) {
		m.logger.Debug(moduleName, "Answer stream cancelled", map[string]interface{}{"session_id": sessionID})
		m.isAsking.Set(false)
		notify()
		return err
	}

	if err != nil {
		answer := errorAnswer(err)
		m.updateSession(sessionID, func(msg *api.Message) { msg.Answer = answer })
		m.logger.Error(moduleName, "Could not answer question", map[string]interface{}{
			"assistant_id": m.assistant.Get().ID,
			"session_id":   sessionID,
			"error":        err,
		})
	} else {
		final := messageFrom(*res, files)
		m.updateSession(sessionID, func(msg *api.Message) { *msg = final })
	}

	m.isAsking.Set(false)
	notify()

	if sessionID != "" {
		m.sessions.Delete(m.cacheKey(sessionID))
	}
	refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if refreshErr := m.RefreshHistory(refreshCtx); refreshErr == nil {
		m.publishSessionsChanged()
	}
	return err
}

func (m *Manager) Close() {
	m.hasMoreSessions.Close()
	m.loadedSessions.Close()
}

// updateSession changes the in-flight message, unless another session is on
// display by now.
func (m *Manager) updateSession(sessionID string, fn func(*api.Message)) {
	m.currentSession.Update(func(s Session) Session {
		if s.ID != sessionID || len(s.Messages) == 0 {
			return s
		}
		return withLastMessage(s, fn)
	})
}

func (m *Manager) setHistory(page *api.Paginated[api.SessionSparse]) {
	items := page.Items
	if items == nil {
		items = []api.SessionSparse{}
	}
	m.history.Set(items)
	m.totalSessions.Set(page.TotalCount)
	m.nextCursor.Set(page.NextCursor)
}

func (m *Manager) publishSessionsChanged() {
	if m.bus == nil {
		return
	}
	e := events.New(events.TypeSessionsChanged, map[string]interface{}{"assistant_id": m.assistant.Get().ID})
	if err := m.bus.Publish(e); err != nil {
		m.logger.Warn(moduleName, "Could not publish session change", map[string]interface{}{"error": err.Error()})
	}
}

func (m *Manager) cacheKey(sessionID string) string {
	return m.assistant.Get().ID + "/" + sessionID
}

func withLastMessage(s Session, fn func(*api.Message)) Session {
	messages := append([]api.Message(nil), s.Messages...)
	fn(&messages[len(messages)-1])
	s.Messages = messages
	return s
}

func messageFrom(res api.AssistantResponse, files []api.File) api.Message {
	if res.Files != nil {
		files = res.Files
	}
	references := res.References
	if references == nil {
		references = []api.Reference{}
	}
	return api.Message{
		ID:         res.ID,
		Question:   res.Question,
		Answer:     res.Answer,
		References: references,
		Files:      files,
		CreatedAt:  res.CreatedAt,
	}
}

func errorAnswer(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%s\n```\n%d: %q\n```", errorPreamble, apiErr.Code, apiErr.ReadableMessage())
	}
	return fmt.Sprintf("%s\n```\n%q\n```", errorPreamble, err.Error())
}

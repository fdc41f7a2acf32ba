package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"ai-assistant-client/internal/dto"
	"ai-assistant-client/internal/pkg/serverutils"
	"ai-assistant-client/internal/repository/memory"
	"ai-assistant-client/pkg/api"
)

const (
	// chunkRunes is small enough that every citation tag is split across
	// several stream events.
	chunkRunes      = 6
	sessionNameMax  = 40
	defaultPageSize = 20
)

// Answer is a composed reply, ready to be streamed chunk by chunk.
type Answer struct {
	SessionID string
	Chunks    []string
	Message   api.Message
}

type IChatService interface {
	Ask(ctx context.Context, assistantID, sessionID string, req *dto.AskRequest) (*Answer, error)
	ListSessions(ctx context.Context, assistantID string, q dto.ListSessionsQuery) (*api.Paginated[api.SessionSparse], error)
	GetSession(ctx context.Context, assistantID, sessionID string) (*api.Session, error)
	DeleteSession(ctx context.Context, assistantID, sessionID string) error
}

type chatService struct {
	store     *memory.Store
	publisher IPublisherService
}

func NewChatService(store *memory.Store, publisher IPublisherService) IChatService {
	return &chatService{store: store, publisher: publisher}
}

// Ask answers a question in a new session, or in sessionID when set. The
// message is stored before it is returned.
func (s *chatService) Ask(ctx context.Context, assistantID, sessionID string, req *dto.AskRequest) (*Answer, error) {
	assistant, ok := s.store.Assistants.Get(assistantID)
	if !ok {
		return nil, notFound("Assistant", assistantID)
	}
	if sessionID != "" {
		if _, err := s.session(assistantID, sessionID); err != nil {
			return nil, err
		}
	}

	files := make([]api.File, 0, len(req.Files))
	for _, ref := range req.Files {
		f, ok := s.store.Files.Get(ref.ID)
		if !ok {
			return nil, serverutils.NewValidationError("files", fmt.Sprintf("File %s does not exist", ref.ID))
		}
		files = append(files, f)
	}

	references := s.references(assistant)
	created := now()
	msg := api.Message{
		ID:              newID(),
		Question:        req.Question,
		Answer:          composeAnswer(req.Question, references, files),
		References:      references,
		Files:           files,
		CreatedAt:       &created,
		CompletionModel: assistant.CompletionModel,
	}

	if sessionID == "" {
		sessionID = newID()
		s.store.Sessions.Save(sessionID, memory.SessionRecord{
			AssistantID: assistantID,
			Session: api.Session{
				SessionSparse: api.SessionSparse{ID: sessionID, Name: sessionName(req.Question), CreatedAt: &created, UpdatedAt: &created},
				Messages:      []api.Message{},
			},
		})
		s.publisher.PublishToChannel(ChannelSessions, map[string]string{
			"assistant_id": assistantID,
			"session_id":   sessionID,
			"action":       "created",
		})
	}
	s.store.Sessions.AppendMessage(sessionID, msg)

	return &Answer{SessionID: sessionID, Chunks: splitChunks(msg.Answer, chunkRunes), Message: msg}, nil
}

// ListSessions pages through an assistant's sessions. The cursor is the
// offset of the first item.
func (s *chatService) ListSessions(ctx context.Context, assistantID string, q dto.ListSessionsQuery) (*api.Paginated[api.SessionSparse], error) {
	if _, ok := s.store.Assistants.Get(assistantID); !ok {
		return nil, notFound("Assistant", assistantID)
	}
	sessions := s.store.Sessions.FindByAssistant(assistantID)

	offset := 0
	if q.Cursor != "" {
		n, err := strconv.Atoi(q.Cursor)
		if err != nil || n < 0 {
			return nil, serverutils.NewValidationError("cursor", "Invalid cursor")
		}
		offset = n
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	page := &api.Paginated[api.SessionSparse]{Items: []api.SessionSparse{}, TotalCount: len(sessions), Limit: &limit}
	if offset > len(sessions) {
		offset = len(sessions)
	}
	end := offset + limit
	if end > len(sessions) {
		end = len(sessions)
	}
	for _, rec := range sessions[offset:end] {
		page.Items = append(page.Items, rec.SessionSparse)
	}
	page.Count = len(page.Items)
	if end < len(sessions) {
		next := strconv.Itoa(end)
		page.NextCursor = &next
	}
	if offset > 0 {
		prev := strconv.Itoa(max(offset-limit, 0))
		page.PreviousCursor = &prev
	}
	return page, nil
}

func (s *chatService) GetSession(ctx context.Context, assistantID, sessionID string) (*api.Session, error) {
	rec, err := s.session(assistantID, sessionID)
	if err != nil {
		return nil, err
	}
	return &rec.Session, nil
}

func (s *chatService) DeleteSession(ctx context.Context, assistantID, sessionID string) error {
	if _, err := s.session(assistantID, sessionID); err != nil {
		return err
	}
	s.store.Sessions.Delete(sessionID)
	s.publisher.PublishToChannel(ChannelSessions, map[string]string{
		"assistant_id": assistantID,
		"session_id":   sessionID,
		"action":       "deleted",
	})
	return nil
}

func (s *chatService) session(assistantID, sessionID string) (memory.SessionRecord, error) {
	rec, ok := s.store.Sessions.Get(sessionID)
	if !ok || rec.AssistantID != assistantID {
		return memory.SessionRecord{}, notFound("Session", sessionID)
	}
	return rec, nil
}

// references cites one chunk of every collection the assistant searches.
func (s *chatService) references(a api.Assistant) []api.Reference {
	refs := []api.Reference{}
	for i, group := range a.Groups {
		title := group.ID
		if c, ok := s.store.Collections.Get(group.ID); ok {
			title = c.Name
		}
		groupID := group.ID
		refs = append(refs, api.Reference{
			ID:      fmt.Sprintf("%s-ref-%d", group.ID, i+1),
			Title:   title,
			GroupID: &groupID,
		})
	}
	return refs
}

func composeAnswer(question string, refs []api.Reference, files []api.File) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here is what I found about %q.", question)
	for _, r := range refs {
		fmt.Fprintf(&b, " %s covers this <inref id=\"%s\"/>.", r.Title, r.ID)
	}
	if len(files) > 0 {
		names := make([]string, len(files))
		for i, f := range files {
			names[i] = f.Name
		}
		fmt.Fprintf(&b, " I also read %s.", strings.Join(names, ", "))
	}
	if len(refs) == 0 && len(files) == 0 {
		b.WriteString(" I have no knowledge to cite for this.")
	}
	return b.String()
}

// splitChunks cuts s into pieces of at most n runes.
func splitChunks(s string, n int) []string {
	chunks := make([]string, 0, utf8.RuneCountInString(s)/n+1)
	for len(s) > 0 {
		end, count := 0, 0
		for end < len(s) && count < n {
			_, size := utf8.DecodeRuneInString(s[end:])
			end += size
			count++
		}
		chunks = append(chunks, s[:end])
		s = s[end:]
	}
	return chunks
}

func sessionName(question string) string {
	name := strings.TrimSpace(question)
	if utf8.RuneCountInString(name) <= sessionNameMax {
		return name
	}
	return string([]rune(name)[:sessionNameMax]) + "..."
}

package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"ai-assistant-client/pkg/alert"
	"ai-assistant-client/pkg/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssistants struct {
	mu sync.Mutex

	chunks    []api.AssistantResponse
	beforeEvt func(i int)
	askErr    error
	asked     []api.AskParams

	sessions  map[string]api.Session
	getCalls  int
	deleted   []string
	pages     []*api.Paginated[api.SessionSparse]
	listCalls []api.Pagination
	listErr   error
}

func (f *fakeAssistants) Ask(ctx context.Context, p api.AskParams) (*api.AssistantResponse, error) {
	f.mu.Lock()
	f.asked = append(f.asked, p)
	f.mu.Unlock()

	ctx, abort := context.WithCancel(ctx)
	defer abort()

	var answer strings.Builder
	var last api.AssistantResponse
	for i, chunk := range f.chunks {
		if f.beforeEvt != nil {
			f.beforeEvt(i)
		}
		if ctx.Err() != nil {
			return nil, &api.Error{Message: "Cancelled after receiving abort signal.", Stage: api.StageConnection, Err: ctx.Err()}
		}
		answer.WriteString(chunk.Answer)
		last = chunk
		p.OnAnswer(chunk, abort)
	}
	if ctx.Err() != nil {
		return nil, &api.Error{Message: "Cancelled after receiving abort signal.", Stage: api.StageConnection, Err: ctx.Err()}
	}
	if f.askErr != nil {
		return nil, f.askErr
	}
	last.ID = "msg-1"
	last.Question = p.Question
	last.Answer = answer.String()
	return &last, nil
}

func (f *fakeAssistants) GetSession(_ context.Context, _, sessionID string) (*api.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, &api.Error{Message: "not found", Stage: api.StageResponse, Status: 404}
	}
	return &s, nil
}

func (f *fakeAssistants) DeleteSession(_ context.Context, _, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, sessionID)
	return nil
}

func (f *fakeAssistants) ListSessions(_ context.Context, _ string, page api.Pagination) (*api.Paginated[api.SessionSparse], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, page)
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.pages) == 0 {
		return &api.Paginated[api.SessionSparse]{}, nil
	}
	next := f.pages[0]
	f.pages = f.pages[1:]
	return next, nil
}

func strPtr(s string) *string { return &s }

func chunk(sessionID, answer string) api.AssistantResponse {
	return api.AssistantResponse{SessionID: sessionID, Answer: answer, References: []api.Reference{{ID: "ref-" + answer}}}
}

func newManager(f *fakeAssistants, alerts alert.Alerter) *Manager {
	return NewManager(Params{
		Assistant:  api.Assistant{ID: "asst-1", Name: "Helper"},
		Assistants: f,
		Alerter:    alerts,
	})
}

func TestAskQuestion_NewSessionStreamsWithCitations(t *testing.T) {
	f := &fakeAssistants{
		chunks: []api.AssistantResponse{
			chunk("s-1", "Hello "),
			chunk("s-1", "<inr"),
			chunk("s-1", "ef id=\"x\">"),
			chunk("s-1", "</inref> world"),
		},
		pages: []*api.Paginated[api.SessionSparse]{{Items: []api.SessionSparse{{ID: "s-1", Name: "What?"}}, TotalCount: 1}},
	}
	m := newManager(f, nil)
	defer m.Close()

	var rendered []string
	var asking []bool
	unsubscribe := m.IsAskingQuestion().Subscribe(func(v bool) { asking = append(asking, v) })
	defer unsubscribe()

	err := m.AskQuestion(context.Background(), "What?", nil, func() {
		s := m.CurrentSession().Get()
		rendered = append(rendered, s.Messages[len(s.Messages)-1].Answer)
	})
	require.NoError(t, err)

	for _, r := range rendered {
		assert.False(t, strings.HasSuffix(r, "<inr"), "partial marker rendered: %q", r)
	}
	assert.Equal(t, []string{"", "Hello ", "Hello ", "Hello <inref id=\"x\">", "Hello <inref id=\"x\"></inref> world", "Hello <inref id=\"x\"></inref> world"}, rendered)

	s := m.CurrentSession().Get()
	assert.Equal(t, "s-1", s.ID)
	assert.Equal(t, "What?", s.Name)
	require.Len(t, s.Messages, 1)
	assert.Equal(t, "msg-1", s.Messages[0].ID)
	assert.Equal(t, "Hello <inref id=\"x\"></inref> world", s.Messages[0].Answer)
	assert.Equal(t, []api.Reference{{ID: "ref-</inref> world"}}, s.Messages[0].References)

	assert.Equal(t, []bool{false, true, false}, asking)
	assert.Equal(t, "", f.asked[0].SessionID)
	assert.Equal(t, []api.Ref{}, f.asked[0].Files)
	assert.Equal(t, 1, m.LoadedSessions().Get())
	assert.Equal(t, 1, m.TotalSessions().Get())
}

func TestAskQuestion_ContinuesSessionWithFiles(t *testing.T) {
	f := &fakeAssistants{chunks: []api.AssistantResponse{chunk("s-9", "Sure.")}}
	m := NewManager(Params{
		Assistant:      api.Assistant{ID: "asst-1"},
		Assistants:     f,
		InitialSession: &Session{ID: "s-9", Name: "Old", Messages: []api.Message{{ID: "m0", Question: "hi", Answer: "hello"}}},
	})
	defer m.Close()

	files := []api.File{{ID: "f1", Name: "a.pdf"}}
	require.NoError(t, m.AskQuestion(context.Background(), "Summarise", files, nil))

	assert.Equal(t, "s-9", f.asked[0].SessionID)
	assert.Equal(t, []api.Ref{{ID: "f1"}}, f.asked[0].Files)

	s := m.CurrentSession().Get()
	assert.Equal(t, "Old", s.Name)
	require.Len(t, s.Messages, 2)
	assert.Equal(t, "Sure.", s.Messages[1].Answer)
	assert.Equal(t, files, s.Messages[1].Files)
}

func TestAskQuestion_SessionAffinityAbortsStream(t *testing.T) {
	f := &fakeAssistants{
		chunks: []api.AssistantResponse{chunk("s-1", "first"), chunk("s-1", " second")},
	}
	m := NewManager(Params{
		Assistant:      api.Assistant{ID: "asst-1"},
		Assistants:     f,
		InitialSession: &Session{ID: "s-1", Name: "One", Messages: []api.Message{}},
	})
	defer m.Close()

	other := Session{ID: "s-2", Name: "Two", Messages: []api.Message{{ID: "x", Answer: "untouched"}}}
	f.beforeEvt = func(i int) {
		if i == 1 {
			m.ReInit(Params{Assistant: api.Assistant{ID: "asst-1"}, InitialSession: &other})
		}
	}

	err := m.AskQuestion(context.Background(), "q", nil, nil)
	require.Error(t, err)
	assert.True(t, api.IsCancelled(err))

	assert.Equal(t, other, m.CurrentSession().Get())
	assert.False(t, m.IsAskingQuestion().Get())
	assert.Empty(t, f.listCalls, "history is not refreshed after a cancelled stream")
}

func TestAskQuestion_ErrorIsWrittenIntoTranscript(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "api error",
			err:      &api.Error{Message: "Upstream server error", Stage: api.StageServer, Status: 500, Code: 9001},
			expected: "We encountered an error processing your request.\n```\n9001: \"Upstream server error\"\n```",
		},
		{
			name:     "other error",
			err:      errors.New("broken pipe"),
			expected: "We encountered an error processing your request.\n```\n\"broken pipe\"\n```",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeAssistants{askErr: tt.err}
			m := newManager(f, nil)
			defer m.Close()

			err := m.AskQuestion(context.Background(), "q", nil, nil)
			assert.ErrorIs(t, err, tt.err)

			s := m.CurrentSession().Get()
			require.Len(t, s.Messages, 1)
			assert.Equal(t, tt.expected, s.Messages[0].Answer)
			assert.False(t, m.IsAskingQuestion().Get())
			assert.Len(t, f.listCalls, 1)
		})
	}
}

func TestAskQuestion_CallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeAssistants{chunks: []api.AssistantResponse{chunk("s-1", "a"), chunk("s-1", "b")}}
	f.beforeEvt = func(i int) {
		if i == 1 {
			cancel()
		}
	}
	m := newManager(f, nil)
	defer m.Close()

	err := m.AskQuestion(ctx, "q", nil, nil)
	assert.True(t, api.IsCancelled(err))

	s := m.CurrentSession().Get()
	require.Len(t, s.Messages, 1)
	assert.Equal(t, "a", s.Messages[0].Answer)
	assert.Empty(t, f.listCalls)
}

func TestSessions(t *testing.T) {
	f := &fakeAssistants{
		sessions: map[string]api.Session{
			"s-1": {SessionSparse: api.SessionSparse{ID: "s-1", Name: "First"}, Messages: []api.Message{{ID: "m1"}}},
		},
		pages: []*api.Paginated[api.SessionSparse]{
			{Items: []api.SessionSparse{{ID: "s-2"}}, NextCursor: strPtr("c2"), TotalCount: 3},
			{Items: []api.SessionSparse{{ID: "s-3"}}, TotalCount: 3},
		},
	}
	alerts := &alert.Recorder{}
	m := NewManager(Params{
		Assistant:  api.Assistant{ID: "asst-1"},
		Assistants: f,
		History:    &api.Paginated[api.SessionSparse]{Items: []api.SessionSparse{{ID: "s-1"}}, NextCursor: strPtr("c1"), TotalCount: 3},
		PageSize:   1,
		Alerter:    alerts,
	})
	defer m.Close()

	assert.True(t, m.HasMoreSessions().Get())

	_, err := m.LoadMoreSessions(context.Background(), 0)
	require.NoError(t, err)
	_, err = m.LoadMoreSessions(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []api.Pagination{{Limit: 1, Cursor: "c1"}, {Limit: 5, Cursor: "c2"}}, f.listCalls)
	assert.Equal(t, 3, m.LoadedSessions().Get())
	assert.False(t, m.HasMoreSessions().Get())

	loaded, err := m.LoadSession(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, "First", loaded.Name)
	_, err = m.LoadSession(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.getCalls)

	_, err = m.LoadSession(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, []string{"Error while loading session missing"}, alerts.Messages())
	assert.Equal(t, "s-1", m.CurrentSession().Get().ID)

	require.NoError(t, m.DeleteSession(context.Background(), "s-1"))
	assert.Equal(t, []string{"s-1"}, f.deleted)
	assert.Equal(t, EmptySession(), m.CurrentSession().Get())
	assert.Equal(t, 2, m.LoadedSessions().Get())
}

func TestChangeAssistant(t *testing.T) {
	f := &fakeAssistants{}
	m := NewManager(Params{
		Assistant:      api.Assistant{ID: "asst-1"},
		Assistants:     f,
		InitialSession: &Session{ID: "s-1", Name: "Kept"},
	})
	defer m.Close()

	m.ChangeAssistant(context.Background(), api.Assistant{ID: "asst-1", Name: "Renamed"})
	assert.Empty(t, f.listCalls)
	assert.Equal(t, "s-1", m.CurrentSession().Get().ID)
	assert.Equal(t, "Renamed", m.Assistant().Get().Name)

	m.ChangeAssistant(context.Background(), api.Assistant{ID: "asst-2"})
	assert.Len(t, f.listCalls, 1)
	assert.Equal(t, EmptySession(), m.CurrentSession().Get())
}

func TestReInit(t *testing.T) {
	m := NewManager(Params{
		Assistant:      api.Assistant{ID: "asst-1"},
		Assistants:     &fakeAssistants{},
		History:        &api.Paginated[api.SessionSparse]{Items: []api.SessionSparse{{ID: "s-1"}}, TotalCount: 1, NextCursor: strPtr("c")},
		InitialSession: &Session{ID: "s-1"},
	})
	defer m.Close()

	m.ReInit(Params{Assistant: api.Assistant{ID: "asst-2"}})
	assert.Equal(t, "asst-2", m.Assistant().Get().ID)
	assert.Equal(t, EmptySession(), m.CurrentSession().Get())
	assert.Equal(t, 0, m.LoadedSessions().Get())
	assert.Equal(t, 0, m.TotalSessions().Get())
	assert.False(t, m.HasMoreSessions().Get())
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
)

type AssistantsService struct{ c *Client }

func (s *AssistantsService) List(ctx context.Context) ([]AssistantSparse, error) {
	var res Paginated[AssistantSparse]
	if err := s.c.Do(ctx, http.MethodGet, "/api/v1/assistants/", Params{}, nil, &res); err != nil {
		return nil, err
	}
	return res.Items, nil
}

func (s *AssistantsService) Get(ctx context.Context, id string) (*Assistant, error) {
	var res Assistant
	err := s.c.Do(ctx, http.MethodGet, "/api/v1/assistants/{id}/", Params{Path: map[string]string{"id": id}}, nil, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Update sends a partial update. The result is decoded into out, which
// lets callers keep the raw JSON shape.
func (s *AssistantsService) Update(ctx context.Context, id string, update any, out any) error {
	return s.c.Do(ctx, http.MethodPost, "/api/v1/assistants/{id}/", Params{Path: map[string]string{"id": id}}, update, out)
}

func (s *AssistantsService) Delete(ctx context.Context, id string) error {
	return s.c.Do(ctx, http.MethodDelete, "/api/v1/assistants/{id}/", Params{Path: map[string]string{"id": id}}, nil, nil)
}

func (s *AssistantsService) Publish(ctx context.Context, id string, published bool) (*Assistant, error) {
	var res Assistant
	err := s.c.Do(ctx, http.MethodPost, "/api/v1/assistants/{id}/publish/", Params{
		Path:  map[string]string{"id": id},
		Query: map[string]string{"published": strconv.FormatBool(published)},
	}, nil, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

type AskParams struct {
	AssistantID string
	// SessionID continues a session, empty starts a new one.
	SessionID string
	Question  string
	Files     []Ref
	// OnAnswer is called for every event carrying answer text. abort stops
	// the stream; Ask then returns a cancellation error.
	OnAnswer func(partial AssistantResponse, abort func())
}

type askBody struct {
	Question string `json:"question"`
	Files    []Ref  `json:"files"`
	Stream   bool   `json:"stream"`
}

// Ask streams an answer. The returned response is the last event received,
// with the question and the fully accumulated answer filled in.
func (s *AssistantsService) Ask(ctx context.Context, p AskParams) (*AssistantResponse, error) {
	ctx, abort := context.WithCancel(ctx)
	defer abort()

	endpoint := "/api/v1/assistants/{id}/sessions/"
	path := map[string]string{"id": p.AssistantID}
	if p.SessionID != "" {
		endpoint = "/api/v1/assistants/{id}/sessions/{session_id}/"
		path["session_id"] = p.SessionID
	}

	files := p.Files
	if files == nil {
		files = []Ref{}
	}

	var (
		answer   []byte
		response AssistantResponse
	)
	err := s.c.Stream(ctx, endpoint, Params{Path: path, Query: map[string]string{"version": "2"}},
		askBody{Question: p.Question, Files: files, Stream: true},
		func(ev Event) error {
			if ev.Data == "" {
				return nil
			}
			var data AssistantResponse
			if err := json.Unmarshal([]byte(ev.Data), &data); err != nil {
				return nil
			}
			response = data
			if data.Answer != "" {
				answer = append(answer, data.Answer...)
				if p.OnAnswer != nil {
					p.OnAnswer(data, abort)
				}
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	response.Question = p.Question
	response.Answer = string(answer)
	return &response, nil
}

func (s *AssistantsService) ListSessions(ctx context.Context, assistantID string, page Pagination) (*Paginated[SessionSparse], error) {
	var res Paginated[SessionSparse]
	err := s.c.Do(ctx, http.MethodGet, "/api/v1/assistants/{id}/sessions/", Params{
		Path:  map[string]string{"id": assistantID},
		Query: page.query(),
	}, nil, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *AssistantsService) GetSession(ctx context.Context, assistantID, sessionID string) (*Session, error) {
	var res Session
	err := s.c.Do(ctx, http.MethodGet, "/api/v1/assistants/{id}/sessions/{session_id}/", Params{
		Path: map[string]string{"id": assistantID, "session_id": sessionID},
	}, nil, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *AssistantsService) DeleteSession(ctx context.Context, assistantID, sessionID string) error {
	return s.c.Do(ctx, http.MethodDelete, "/api/v1/assistants/{id}/sessions/{session_id}/", Params{
		Path: map[string]string{"id": assistantID, "session_id": sessionID},
	}, nil, nil)
}

func (s *AssistantsService) ListPrompts(ctx context.Context, assistantID string) ([]PromptSparse, error) {
	var res Paginated[PromptSparse]
	err := s.c.Do(ctx, http.MethodGet, "/api/v1/assistants/{id}/prompts/", Params{
		Path: map[string]string{"id": assistantID},
	}, nil, &res)
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

func itoa(n int) string { return strconv.Itoa(n) }

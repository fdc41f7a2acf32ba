package api

import (
	"context"
	"net/http"
)

type PromptsService struct{ c *Client }

func (s *PromptsService) Get(ctx context.Context, id string) (*Prompt, error) {
	var res Prompt
	if err := s.c.Do(ctx, http.MethodGet, "/api/v1/prompts/{id}/", Params{Path: map[string]string{"id": id}}, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *PromptsService) UpdateDescription(ctx context.Context, id, description string) (*Prompt, error) {
	var res Prompt
	err := s.c.Do(ctx, http.MethodPatch, "/api/v1/prompts/{id}/", Params{Path: map[string]string{"id": id}},
		map[string]string{"description": description}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *PromptsService) Delete(ctx context.Context, id string) error {
	return s.c.Do(ctx, http.MethodDelete, "/api/v1/prompts/{id}/", Params{Path: map[string]string{"id": id}}, nil, nil)
}

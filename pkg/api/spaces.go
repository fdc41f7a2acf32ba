package api

import (
	"context"
	"net/http"
)

type SpacesService struct{ c *Client }

func spacePath(id string) Params { return Params{Path: map[string]string{"id": id}} }

func (s *SpacesService) List(ctx context.Context) ([]SpaceSparse, error) {
	var res Paginated[SpaceSparse]
	if err := s.c.Do(ctx, http.MethodGet, "/api/v1/spaces/", Params{}, nil, &res); err != nil {
		return nil, err
	}
	return res.Items, nil
}

func (s *SpacesService) Create(ctx context.Context, name string) (*Space, error) {
	var res Space
	if err := s.c.Do(ctx, http.MethodPost, "/api/v1/spaces/", Params{}, map[string]string{"name": name}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *SpacesService) Get(ctx context.Context, id string) (*Space, error) {
	var res Space
	if err := s.c.Do(ctx, http.MethodGet, "/api/v1/spaces/{id}/", spacePath(id), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *SpacesService) GetPersonal(ctx context.Context) (*Space, error) {
	var res Space
	if err := s.c.Do(ctx, http.MethodGet, "/api/v1/spaces/type/personal/", Params{}, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SpaceUpdate holds the fields of a partial space update; nil fields are left
// untouched.
type SpaceUpdate struct {
	Name             *string `json:"name,omitempty"`
	Description      *string `json:"description,omitempty"`
	CompletionModels []Ref   `json:"completion_models,omitempty"`
}

func (s *SpacesService) Update(ctx context.Context, id string, update SpaceUpdate) (*Space, error) {
	var res Space
	if err := s.c.Do(ctx, http.MethodPatch, "/api/v1/spaces/{id}/", spacePath(id), update, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *SpacesService) Delete(ctx context.Context, id string) error {
	return s.c.Do(ctx, http.MethodDelete, "/api/v1/spaces/{id}/", spacePath(id), nil, nil)
}

func (s *SpacesService) ListApplications(ctx context.Context, id string) (*Applications, error) {
	var res Applications
	if err := s.c.Do(ctx, http.MethodGet, "/api/v1/spaces/{id}/applications/", spacePath(id), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *SpacesService) ListKnowledge(ctx context.Context, id string) (*Knowledge, error) {
	var res Knowledge
	if err := s.c.Do(ctx, http.MethodGet, "/api/v1/spaces/{id}/knowledge/", spacePath(id), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

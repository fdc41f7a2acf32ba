package api

import (
	"context"
	"net/http"
)

type TemplateKind string

const (
	TemplateAssistants TemplateKind = "assistants"
	TemplateApps       TemplateKind = "apps"
)

type TemplatesService struct{ c *Client }

func (s *TemplatesService) List(ctx context.Context, kind TemplateKind) ([]Template, error) {
	var res Paginated[Template]
	if err := s.c.Do(ctx, http.MethodGet, "/api/v1/templates/"+string(kind)+"/", Params{}, nil, &res); err != nil {
		return nil, err
	}
	return res.Items, nil
}

// AdditionalField carries wizard selections when creating from a template.
type AdditionalField struct {
	Type  string `json:"type"`
	Value []Ref  `json:"value"`
}

type TemplateCreate struct {
	ID               string            `json:"id"`
	AdditionalFields []AdditionalField `json:"additional_fields,omitempty"`
}

type CreateAssistantRequest struct {
	Name         string          `json:"name"`
	FromTemplate *TemplateCreate `json:"from_template,omitempty"`
}

// CreateAssistant creates an assistant in a space, blank or from a template.
func (s *TemplatesService) CreateAssistant(ctx context.Context, spaceID string, req CreateAssistantRequest) (*Assistant, error) {
	var res Assistant
	err := s.c.Do(ctx, http.MethodPost, "/api/v1/spaces/{id}/applications/assistants/", spacePath(spaceID), req, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateApp creates an app in a space. The request shape is shared with
// assistants.
func (s *TemplatesService) CreateApp(ctx context.Context, spaceID string, req CreateAssistantRequest) (*Named, error) {
	var res Named
	err := s.c.Do(ctx, http.MethodPost, "/api/v1/spaces/{id}/applications/apps/", spacePath(spaceID), req, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

type LimitsService struct{ c *Client }

func (s *LimitsService) Get(ctx context.Context) (*Limits, error) {
	var res Limits
	if err := s.c.Do(ctx, http.MethodGet, "/api/v1/limits/", Params{}, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

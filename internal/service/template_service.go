package service

import (
	"context"

	"ai-assistant-client/internal/repository/memory"
	"ai-assistant-client/pkg/api"
)

type ITemplateService interface {
	List(ctx context.Context, kind api.TemplateKind) []api.Template
	Limits(ctx context.Context) api.Limits
}

type templateService struct {
	store *memory.Store
}

func NewTemplateService(store *memory.Store) ITemplateService {
	return &templateService{store: store}
}

func (s *templateService) List(ctx context.Context, kind api.TemplateKind) []api.Template {
	records := s.store.Templates.List(func(t memory.TemplateRecord) bool { return t.Kind == kind })
	out := make([]api.Template, len(records))
	for i, r := range records {
		out[i] = r.Template
	}
	return out
}

func (s *templateService) Limits(ctx context.Context) api.Limits {
	return s.store.Limits()
}

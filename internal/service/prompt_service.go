package service

import (
	"context"

	"ai-assistant-client/internal/repository/memory"
	"ai-assistant-client/pkg/api"
)

type IPromptService interface {
	Get(ctx context.Context, id string) (*api.Prompt, error)
	UpdateDescription(ctx context.Context, id, description string) (*api.Prompt, error)
	Delete(ctx context.Context, id string) error
}

type promptService struct {
	store *memory.Store
}

func NewPromptService(store *memory.Store) IPromptService {
	return &promptService{store: store}
}

func (s *promptService) Get(ctx context.Context, id string) (*api.Prompt, error) {
	rec, ok := s.store.Prompts.Get(id)
	if !ok {
		return nil, notFound("Prompt", id)
	}
	return &rec.Prompt, nil
}

func (s *promptService) UpdateDescription(ctx context.Context, id, description string) (*api.Prompt, error) {
	rec, ok := s.store.Prompts.Update(id, func(p memory.PromptRecord) memory.PromptRecord {
		p.Description = description
		return p
	})
	if !ok {
		return nil, notFound("Prompt", id)
	}
	return &rec.Prompt, nil
}

// Delete removes a prompt version. The selected version is in use and stays.
func (s *promptService) Delete(ctx context.Context, id string) error {
	rec, ok := s.store.Prompts.Get(id)
	if !ok {
		return notFound("Prompt", id)
	}
	if rec.IsSelected {
		return forbidden("The selected prompt cannot be deleted")
	}
	s.store.Prompts.Delete(id)
	return nil
}

package service

import (
	"context"
	"fmt"

	"ai-assistant-client/internal/dto"
	"ai-assistant-client/internal/pkg/serverutils"
	"ai-assistant-client/internal/repository/memory"
	"ai-assistant-client/pkg/api"
)

type IAssistantService interface {
	List(ctx context.Context) []api.AssistantSparse
	Get(ctx context.Context, id string) (*api.Assistant, error)
	Update(ctx context.Context, id string, req *dto.UpdateAssistantRequest) (*api.Assistant, error)
	Delete(ctx context.Context, id string) error
	Publish(ctx context.Context, id string, published bool) (*api.Assistant, error)
	ListPrompts(ctx context.Context, id string) ([]api.PromptSparse, error)
}

type assistantService struct {
	store *memory.Store
}

func NewAssistantService(store *memory.Store) IAssistantService {
	return &assistantService{store: store}
}

func (s *assistantService) List(ctx context.Context) []api.AssistantSparse {
	assistants := s.store.Assistants.List(nil)
	out := make([]api.AssistantSparse, 0, len(assistants))
	for _, a := range assistants {
		out = append(out, sparseAssistant(a))
	}
	return out
}

func (s *assistantService) Get(ctx context.Context, id string) (*api.Assistant, error) {
	a, ok := s.store.Assistants.Get(id)
	if !ok {
		return nil, notFound("Assistant", id)
	}
	return &a, nil
}

func (s *assistantService) Update(ctx context.Context, id string, req *dto.UpdateAssistantRequest) (*api.Assistant, error) {
	current, ok := s.store.Assistants.Get(id)
	if !ok {
		return nil, notFound("Assistant", id)
	}

	// Resolve references before touching the stored value so a bad update
	// changes nothing.
	var model *api.CompletionModel
	if req.CompletionModel != nil {
		m, err := s.completionModel(current.SpaceID, req.CompletionModel.ID)
		if err != nil {
			return nil, err
		}
		model = &m
	}
	var attachments []api.File
	if req.Attachments != nil {
		files, err := s.files(req.Attachments)
		if err != nil {
			return nil, err
		}
		attachments = files
	}

	updated, _ := s.store.Assistants.Update(id, func(a api.Assistant) api.Assistant {
		if req.Name != nil {
			a.Name = *req.Name
		}
		if req.Prompt != nil {
			prompt := *req.Prompt
			a.Prompt = &prompt
		}
		if model != nil {
			a.CompletionModel = model
		}
		if req.CompletionModelKwargs != nil {
			a.CompletionModelKwargs = req.CompletionModelKwargs
		}
		if req.Groups != nil {
			a.Groups = append([]api.Ref{}, req.Groups...)
		}
		if req.Websites != nil {
			a.Websites = append([]api.Ref{}, req.Websites...)
		}
		if attachments != nil {
			a.Attachments = attachments
		}
		return a
	})

	if req.Prompt != nil {
		s.recordPrompt(id, *req.Prompt)
	}
	return &updated, nil
}

func (s *assistantService) Delete(ctx context.Context, id string) error {
	if !s.store.Assistants.Delete(id) {
		return notFound("Assistant", id)
	}
	for _, session := range s.store.Sessions.FindByAssistant(id) {
		s.store.Sessions.Delete(session.ID)
	}
	return nil
}

func (s *assistantService) Publish(ctx context.Context, id string, published bool) (*api.Assistant, error) {
	updated, ok := s.store.Assistants.Update(id, func(a api.Assistant) api.Assistant {
		a.Published = published
		return a
	})
	if !ok {
		return nil, notFound("Assistant", id)
	}
	return &updated, nil
}

// ListPrompts returns the prompt history of an assistant, newest first.
func (s *assistantService) ListPrompts(ctx context.Context, id string) ([]api.PromptSparse, error) {
	if _, ok := s.store.Assistants.Get(id); !ok {
		return nil, notFound("Assistant", id)
	}
	records := s.store.Prompts.List(func(p memory.PromptRecord) bool { return p.AssistantID == id })
	out := make([]api.PromptSparse, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		out = append(out, records[i].PromptSparse)
	}
	return out, nil
}

func (s *assistantService) completionModel(spaceID, modelID string) (api.CompletionModel, error) {
	models := []api.CompletionModel{memory.VisionModel, memory.TextModel}
	if space, ok := s.store.Spaces.Get(spaceID); ok {
		models = space.CompletionModels
	}
	for _, m := range models {
		if m.ID == modelID {
			return m, nil
		}
	}
	return api.CompletionModel{}, serverutils.NewValidationError("completion_model", fmt.Sprintf("Completion model %s is not available in this space", modelID))
}

func (s *assistantService) files(refs []api.Ref) ([]api.File, error) {
	out := make([]api.File, 0, len(refs))
	for _, ref := range refs {
		f, ok := s.store.Files.Get(ref.ID)
		if !ok {
			return nil, serverutils.NewValidationError("attachments", fmt.Sprintf("File %s does not exist", ref.ID))
		}
		out = append(out, f)
	}
	return out, nil
}

// recordPrompt adds a prompt version when the text changed and selects it.
func (s *assistantService) recordPrompt(assistantID string, prompt api.PromptText) {
	records := s.store.Prompts.List(func(p memory.PromptRecord) bool { return p.AssistantID == assistantID })
	for _, r := range records {
		if r.IsSelected && r.Text == prompt.Text {
			return
		}
	}
	for _, r := range records {
		if r.IsSelected {
			s.store.Prompts.Update(r.ID, func(p memory.PromptRecord) memory.PromptRecord {
				p.IsSelected = false
				return p
			})
		}
	}
	id := newID()
	created := now()
	s.store.Prompts.Save(id, memory.PromptRecord{AssistantID: assistantID, Prompt: api.Prompt{
		PromptSparse: api.PromptSparse{ID: id, Description: prompt.Description, IsSelected: true, CreatedAt: &created},
		Text:         prompt.Text,
	}})
}

func sparseAssistant(a api.Assistant) api.AssistantSparse {
	return api.AssistantSparse{ID: a.ID, Name: a.Name, Published: a.Published, Permissions: a.Permissions}
}

package service

import (
	"context"
	"fmt"

	"ai-assistant-client/internal/dto"
	"ai-assistant-client/internal/pkg/serverutils"
	"ai-assistant-client/internal/repository/memory"
	"ai-assistant-client/pkg/api"
)

type ISpaceService interface {
	List(ctx context.Context) []api.SpaceSparse
	Create(ctx context.Context, req *dto.CreateSpaceRequest) (*api.Space, error)
	Get(ctx context.Context, id string) (*api.Space, error)
	GetPersonal(ctx context.Context) (*api.Space, error)
	Update(ctx context.Context, id string, req *dto.UpdateSpaceRequest) (*api.Space, error)
	Delete(ctx context.Context, id string) error
	Applications(ctx context.Context, id string) (*api.Applications, error)
	Knowledge(ctx context.Context, id string) (*api.Knowledge, error)
	CreateAssistant(ctx context.Context, spaceID string, req *dto.CreateFromTemplateRequest) (*api.Assistant, error)
	CreateApp(ctx context.Context, spaceID string, req *dto.CreateFromTemplateRequest) (*api.Named, error)
}

type spaceService struct {
	store *memory.Store
}

func NewSpaceService(store *memory.Store) ISpaceService {
	return &spaceService{store: store}
}

func (s *spaceService) List(ctx context.Context) []api.SpaceSparse {
	spaces := s.store.Spaces.List(nil)
	out := make([]api.SpaceSparse, len(spaces))
	for i, sp := range spaces {
		out[i] = sp.SpaceSparse
	}
	return out
}

func (s *spaceService) Create(ctx context.Context, req *dto.CreateSpaceRequest) (*api.Space, error) {
	for _, sp := range s.store.Spaces.List(nil) {
		if sp.Name == req.Name {
			return nil, serverutils.NewValidationError("name", fmt.Sprintf("A space named %s already exists", req.Name))
		}
	}
	personal, _ := s.store.Spaces.Get(memory.PersonalSpaceID)
	space := api.Space{
		SpaceSparse:      api.SpaceSparse{ID: newID(), Name: req.Name, Permissions: personal.Permissions},
		CompletionModels: []api.CompletionModel{memory.VisionModel, memory.TextModel},
		Members:          personal.Members,
	}
	s.store.Spaces.Save(space.ID, space)
	return s.Get(ctx, space.ID)
}

// Get returns the space with its applications and knowledge filled in.
func (s *spaceService) Get(ctx context.Context, id string) (*api.Space, error) {
	space, ok := s.store.Spaces.Get(id)
	if !ok {
		return nil, notFound("Space", id)
	}
	space.Applications = s.applications(space)
	space.Knowledge = s.knowledge(space)
	return &space, nil
}

func (s *spaceService) GetPersonal(ctx context.Context) (*api.Space, error) {
	return s.Get(ctx, memory.PersonalSpaceID)
}

func (s *spaceService) Update(ctx context.Context, id string, req *dto.UpdateSpaceRequest) (*api.Space, error) {
	var models []api.CompletionModel
	if req.CompletionModels != nil {
		models = make([]api.CompletionModel, 0, len(req.CompletionModels))
		for _, ref := range req.CompletionModels {
			m, err := lookupModel(ref.ID)
			if err != nil {
				return nil, err
			}
			models = append(models, m)
		}
	}

	_, ok := s.store.Spaces.Update(id, func(sp api.Space) api.Space {
		if req.Name != nil {
			sp.Name = *req.Name
		}
		if req.Description != nil {
			description := *req.Description
			sp.Description = &description
		}
		if models != nil {
			sp.CompletionModels = models
		}
		return sp
	})
	if !ok {
		return nil, notFound("Space", id)
	}
	return s.Get(ctx, id)
}

func (s *spaceService) Delete(ctx context.Context, id string) error {
	space, ok := s.store.Spaces.Get(id)
	if !ok {
		return notFound("Space", id)
	}
	if space.Personal {
		return forbidden("The personal space cannot be deleted")
	}
	s.store.Spaces.Delete(id)
	for _, a := range s.store.Assistants.List(func(a api.Assistant) bool { return a.SpaceID == id }) {
		s.store.Assistants.Delete(a.ID)
	}
	for _, items := range []*memory.Collection[memory.SpaceItem]{s.store.Apps, s.store.Services, s.store.Collections, s.store.Websites} {
		for _, item := range items.List(memory.InSpace(id)) {
			items.Delete(item.ID)
		}
	}
	return nil
}

func (s *spaceService) Applications(ctx context.Context, id string) (*api.Applications, error) {
	space, ok := s.store.Spaces.Get(id)
	if !ok {
		return nil, notFound("Space", id)
	}
	apps := s.applications(space)
	return &apps, nil
}

func (s *spaceService) Knowledge(ctx context.Context, id string) (*api.Knowledge, error) {
	space, ok := s.store.Spaces.Get(id)
	if !ok {
		return nil, notFound("Space", id)
	}
	knowledge := s.knowledge(space)
	return &knowledge, nil
}

func (s *spaceService) CreateAssistant(ctx context.Context, spaceID string, req *dto.CreateFromTemplateRequest) (*api.Assistant, error) {
	space, ok := s.store.Spaces.Get(spaceID)
	if !ok {
		return nil, notFound("Space", spaceID)
	}

	model := memory.VisionModel
	if len(space.CompletionModels) > 0 {
		model = space.CompletionModels[0]
	}
	assistant := api.Assistant{
		ID:                    newID(),
		Name:                  req.Name,
		SpaceID:               spaceID,
		Prompt:                &api.PromptText{},
		CompletionModel:       &model,
		CompletionModelKwargs: map[string]any{},
		Groups:                []api.Ref{},
		Websites:              []api.Ref{},
		Attachments:           []api.File{},
		Permissions:           space.Permissions,
	}

	if req.FromTemplate != nil {
		tpl, ok := s.store.Templates.Get(req.FromTemplate.ID)
		if !ok || tpl.Kind != api.TemplateAssistants {
			return nil, notFound("Template", req.FromTemplate.ID)
		}
		assistant.Prompt = &api.PromptText{Text: tpl.Description, Description: tpl.Name}
		for _, field := range req.FromTemplate.AdditionalFields {
			switch field.Type {
			case "collections":
				assistant.Groups = append(assistant.Groups, field.Value...)
			case "attachments":
				for _, ref := range field.Value {
					if f, ok := s.store.Files.Get(ref.ID); ok {
						assistant.Attachments = append(assistant.Attachments, f)
					}
				}
			}
		}
	}

	s.store.Assistants.Save(assistant.ID, assistant)
	return &assistant, nil
}

func (s *spaceService) CreateApp(ctx context.Context, spaceID string, req *dto.CreateFromTemplateRequest) (*api.Named, error) {
	if _, ok := s.store.Spaces.Get(spaceID); !ok {
		return nil, notFound("Space", spaceID)
	}
	if req.FromTemplate != nil {
		if tpl, ok := s.store.Templates.Get(req.FromTemplate.ID); !ok || tpl.Kind != api.TemplateApps {
			return nil, notFound("Template", req.FromTemplate.ID)
		}
	}
	app := api.Named{ID: newID(), Name: req.Name}
	s.store.Apps.Save(app.ID, memory.SpaceItem{SpaceID: spaceID, Named: app})
	return &app, nil
}

func (s *spaceService) applications(space api.Space) api.Applications {
	assistants := s.store.Assistants.List(func(a api.Assistant) bool { return a.SpaceID == space.ID })
	sparse := make([]api.AssistantSparse, len(assistants))
	for i, a := range assistants {
		sparse[i] = sparseAssistant(a)
	}
	return api.Applications{
		Assistants: api.PaginatedPermissions[api.AssistantSparse]{Items: sparse, Count: len(sparse), Permissions: space.Permissions},
		Services:   named(s.store.Services, space),
		Apps:       named(s.store.Apps, space),
	}
}

func (s *spaceService) knowledge(space api.Space) api.Knowledge {
	return api.Knowledge{
		Groups:   named(s.store.Collections, space),
		Websites: named(s.store.Websites, space),
	}
}

func named(items *memory.Collection[memory.SpaceItem], space api.Space) api.PaginatedPermissions[api.Named] {
	list := items.List(memory.InSpace(space.ID))
	out := make([]api.Named, len(list))
	for i, item := range list {
		out[i] = item.Named
	}
	return api.PaginatedPermissions[api.Named]{Items: out, Count: len(out), Permissions: space.Permissions}
}

func lookupModel(id string) (api.CompletionModel, error) {
	for _, m := range []api.CompletionModel{memory.VisionModel, memory.TextModel} {
		if m.ID == id {
			return m, nil
		}
	}
	return api.CompletionModel{}, serverutils.NewValidationError("completion_models", fmt.Sprintf("Unknown completion model %s", id))
}

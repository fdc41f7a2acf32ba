// Package spaces keeps track of the spaces the user can access and the one
// currently open.
package spaces

import (
	"context"
	"fmt"

	"ai-assistant-client/internal/pkg/logger"
	"ai-assistant-client/pkg/alert"
	"ai-assistant-client/pkg/api"
	"ai-assistant-client/pkg/events"
	"ai-assistant-client/pkg/state"
)

const moduleName = "SpacesManager"

// Part selects what RefreshCurrentSpace reloads.
type Part string

const (
	PartAll          Part = ""
	PartApplications Part = "applications"
	PartKnowledge    Part = "knowledge"
)

type SpaceService interface {
	List(ctx context.Context) ([]api.SpaceSparse, error)
	Create(ctx context.Context, name string) (*api.Space, error)
	Get(ctx context.Context, id string) (*api.Space, error)
	Update(ctx context.Context, id string, update api.SpaceUpdate) (*api.Space, error)
	Delete(ctx context.Context, id string) error
	ListApplications(ctx context.Context, id string) (*api.Applications, error)
	ListKnowledge(ctx context.Context, id string) (*api.Knowledge, error)
}

type AssistantUpdater interface {
	Update(ctx context.Context, id string, update any, out any) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, eventType string, handler func(events.Event)) error
}

type Params struct {
	Spaces       []api.SpaceSparse
	CurrentSpace api.Space
	SpaceService SpaceService
	Assistants   AssistantUpdater
	// OnDeletedCurrent runs after the open space was deleted.
	OnDeletedCurrent func()
	Alerter          alert.Alerter
	Logger           logger.ILogger
}

type Manager struct {
	spaces           SpaceService
	assistants       AssistantUpdater
	onDeletedCurrent func()
	alerter          alert.Alerter
	logger           logger.ILogger

	accessible *state.Writable[[]api.SpaceSparse]
	current    *state.Writable[api.Space]
	view       *state.Derived[View]
}

func NewManager(p Params) *Manager {
	current := state.NewWritable(p.CurrentSpace)
	return &Manager{
		spaces:           p.SpaceService,
		assistants:       p.Assistants,
		onDeletedCurrent: p.OnDeletedCurrent,
		alerter:          alert.OrDiscard(p.Alerter),
		logger:           logger.OrNop(p.Logger),
		accessible:       state.NewWritable(p.Spaces),
		current:          current,
		view:             state.Derive[api.Space](current, newView),
	}
}

func (m *Manager) AccessibleSpaces() state.Readable[[]api.SpaceSparse] {
	return m.accessible.ReadOnly()
}

func (m *Manager) CurrentSpace() state.Readable[View] { return m.view }

// Watch refreshes the knowledge of the current space whenever it is
// invalidated on the bus, until ctx is done.
func (m *Manager) Watch(ctx context.Context, bus Subscriber) error {
	return bus.Subscribe(ctx, events.TypeKnowledgeInvalidated, func(events.Event) {
		_ = m.RefreshCurrentSpace(ctx, PartKnowledge)
	})
}

// WatchPageData switches to space when it is not the current one already.
func (m *Manager) WatchPageData(space api.Space) {
	if space.ID != m.current.Get().ID {
		m.current.Set(space)
	}
}

func (m *Manager) RefreshSpaces(ctx context.Context) ([]api.SpaceSparse, error) {
	updated, err := m.spaces.List(ctx)
	if err != nil {
		m.logger.Error(moduleName, "Error updating spaces", map[string]interface{}{"error": err})
		return nil, err
	}
	m.accessible.Set(updated)
	return updated, nil
}

func (m *Manager) RefreshCurrentSpace(ctx context.Context, part Part) error {
	space := m.current.Get()

	var err error
	switch part {
	case PartApplications:
		var apps *api.Applications
		if apps, err = m.spaces.ListApplications(ctx, space.ID); err == nil {
			space.Applications = *apps
		}
	case PartKnowledge:
		var knowledge *api.Knowledge
		if knowledge, err = m.spaces.ListKnowledge(ctx, space.ID); err == nil {
			space.Knowledge = *knowledge
		}
	default:
		var loaded *api.Space
		if loaded, err = m.spaces.Get(ctx, space.ID); err == nil {
			space = *loaded
		}
	}
	if err != nil {
		m.logger.Error(moduleName, "Error updating current space", map[string]interface{}{
			"space_id": space.ID,
			"part":     string(part),
			"error":    err,
		})
		return err
	}

	m.current.Update(func(cur api.Space) api.Space {
		// Another space was opened meanwhile.
		if cur.ID != space.ID {
			return cur
		}
		return space
	})
	return nil
}

func (m *Manager) CreateSpace(ctx context.Context, name string) (*api.Space, error) {
	created, err := m.spaces.Create(ctx, name)
	if err != nil {
		m.alerter.Alert(fmt.Sprintf("Error creating new space %s", name))
		m.logger.Error(moduleName, "Could not create space", map[string]interface{}{"name": name, "error": err})
		return nil, err
	}
	_, _ = m.RefreshSpaces(ctx)
	return created, nil
}

// UpdateSpace updates spaceID, or the current space when spaceID is empty.
// Only the latter replaces the current space with the result.
func (m *Manager) UpdateSpace(ctx context.Context, update api.SpaceUpdate, spaceID string) (*api.Space, error) {
	id := spaceID
	if id == "" {
		id = m.current.Get().ID
	}

	updated, err := m.spaces.Update(ctx, id, update)
	if err != nil {
		m.alerter.Alert(fmt.Sprintf("Error updating space %s", id))
		m.logger.Error(moduleName, "Could not update space", map[string]interface{}{"space_id": id, "error": err})
		return nil, err
	}

	m.accessible.Update(func(list []api.SpaceSparse) []api.SpaceSparse {
		for i := range list {
			if list[i].ID == updated.ID {
				next := append([]api.SpaceSparse(nil), list...)
				next[i] = updated.SpaceSparse
				return next
			}
		}
		return list
	})
	if spaceID == "" {
		m.current.Set(*updated)
	}
	return updated, nil
}

func (m *Manager) DeleteSpace(ctx context.Context, id string) error {
	if err := m.spaces.Delete(ctx, id); err != nil {
		m.alerter.Alert(fmt.Sprintf("Error deleting space %s", id))
		m.logger.Error(moduleName, "Could not delete space", map[string]interface{}{"space_id": id, "error": err})
		return err
	}
	_, _ = m.RefreshSpaces(ctx)
	if id == m.current.Get().ID && m.onDeletedCurrent != nil {
		m.onDeletedCurrent()
	}
	return nil
}

// UpdateDefaultAssistant switches the completion model of the current space's
// default assistant.
func (m *Manager) UpdateDefaultAssistant(ctx context.Context, completionModelID string) error {
	id := m.current.Get().DefaultAssistant.ID

	var updated api.Assistant
	update := map[string]any{"completion_model": api.Ref{ID: completionModelID}}
	if err := m.assistants.Update(ctx, id, update, &updated); err != nil {
		m.alerter.Alert("Error updating default assistant.")
		m.logger.Error(moduleName, "Could not update default assistant", map[string]interface{}{"assistant_id": id, "error": err})
		return err
	}

	m.current.Update(func(s api.Space) api.Space {
		s.DefaultAssistant = updated
		return s
	})
	return nil
}

func (m *Manager) Close() {
	m.view.Close()
}

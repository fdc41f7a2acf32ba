// Package prompts manages the version history of a resource's prompt.
package prompts

import (
	"context"
	"fmt"

	"ai-assistant-client/internal/pkg/logger"
	"ai-assistant-client/pkg/alert"
	"ai-assistant-client/pkg/api"
	"ai-assistant-client/pkg/state"
)

const moduleName = "PromptManager"

type PromptService interface {
	Get(ctx context.Context, id string) (*api.Prompt, error)
	UpdateDescription(ctx context.Context, id, description string) (*api.Prompt, error)
	Delete(ctx context.Context, id string) error
}

type Params struct {
	Prompts PromptService
	// LoadHistory lists the prompt versions of the resource.
	LoadHistory func(ctx context.Context) ([]api.PromptSparse, error)
	// OnPromptSelected applies a chosen version to the resource.
	OnPromptSelected func(api.Prompt)
	Alerter          alert.Alerter
	Logger           logger.ILogger
}

type Manager struct {
	prompts          PromptService
	loadHistory      func(ctx context.Context) ([]api.PromptSparse, error)
	onPromptSelected func(api.Prompt)
	alerter          alert.Alerter
	logger           logger.ILogger

	all     *state.Writable[[]api.PromptSparse]
	preview *state.Writable[*api.Prompt]
}

func NewManager(p Params) *Manager {
	return &Manager{
		prompts:          p.Prompts,
		loadHistory:      p.LoadHistory,
		onPromptSelected: p.OnPromptSelected,
		alerter:          alert.OrDiscard(p.Alerter),
		logger:           logger.OrNop(p.Logger),
		all:              state.NewWritable([]api.PromptSparse{}),
		preview:          state.NewWritable[*api.Prompt](nil),
	}
}

func (m *Manager) AllPrompts() state.Readable[[]api.PromptSparse] { return m.all.ReadOnly() }

func (m *Manager) PreviewedPrompt() state.Readable[*api.Prompt] { return m.preview.ReadOnly() }

// Init loads the history and previews the selected version.
func (m *Manager) Init(ctx context.Context) error {
	history, err := m.RefreshPrompts(ctx)
	if err != nil {
		return err
	}
	for _, p := range history {
		if p.IsSelected {
			_, err := m.LoadPreview(ctx, p.ID)
			return err
		}
	}
	return nil
}

func (m *Manager) RefreshPrompts(ctx context.Context) ([]api.PromptSparse, error) {
	history, err := m.loadHistory(ctx)
	if err != nil {
		m.logger.Error(moduleName, "Error while loading prompt history", map[string]interface{}{"error": err})
		return nil, err
	}
	m.all.Set(history)
	return history, nil
}

func (m *Manager) DeletePrompt(ctx context.Context, id string) error {
	if err := m.prompts.Delete(ctx, id); err != nil {
		m.alerter.Alert(fmt.Sprintf("Error deleting prompt with id: %s", id))
		return err
	}
	m.all.Update(func(list []api.PromptSparse) []api.PromptSparse {
		next := make([]api.PromptSparse, 0, len(list))
		for _, p := range list {
			if p.ID != id {
				next = append(next, p)
			}
		}
		return next
	})
	m.preview.Update(func(p *api.Prompt) *api.Prompt {
		if p != nil && p.ID == id {
			return nil
		}
		return p
	})
	return nil
}

func (m *Manager) UpdatePromptDescription(ctx context.Context, id, description string) error {
	updated, err := m.prompts.UpdateDescription(ctx, id, description)
	if err != nil {
		m.logger.Error(moduleName, "Error while updating prompt", map[string]interface{}{"prompt_id": id, "error": err})
		return err
	}
	m.preview.Update(func(p *api.Prompt) *api.Prompt {
		if p != nil && p.ID == updated.ID {
			return updated
		}
		return p
	})
	m.all.Update(func(list []api.PromptSparse) []api.PromptSparse {
		next := append([]api.PromptSparse(nil), list...)
		for i := range next {
			if next[i].ID == updated.ID {
				next[i].Description = updated.Description
			}
		}
		return next
	})
	return nil
}

func (m *Manager) LoadPreview(ctx context.Context, id string) (*api.Prompt, error) {
	prompt, err := m.prompts.Get(ctx, id)
	if err != nil {
		m.logger.Error(moduleName, "Error while loading prompt preview", map[string]interface{}{"prompt_id": id, "error": err})
		return nil, err
	}
	m.preview.Set(prompt)
	return prompt, nil
}

// SelectPrompt hands prompt to the resource the history belongs to.
func (m *Manager) SelectPrompt(prompt api.Prompt) {
	if m.onPromptSelected != nil {
		m.onPromptSelected(prompt)
	}
}

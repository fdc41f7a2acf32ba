package dto

import "ai-assistant-client/pkg/api"

type AskRequest struct {
	Question string    `json:"question" validate:"required"`
	Files    []api.Ref `json:"files" validate:"dive"`
	Stream   bool      `json:"stream"`
}

type ListSessionsQuery struct {
	Limit  int    `query:"limit" validate:"gte=0,lte=100"`
	Cursor string `query:"cursor"`
}

// UpdateAssistantRequest is a partial update; absent fields are left alone.
type UpdateAssistantRequest struct {
	Name                  *string         `json:"name" validate:"omitempty,min=1"`
	Prompt                *api.PromptText `json:"prompt"`
	CompletionModel       *api.Ref        `json:"completion_model"`
	CompletionModelKwargs map[string]any  `json:"completion_model_kwargs"`
	Groups                []api.Ref       `json:"groups" validate:"dive"`
	Websites              []api.Ref       `json:"websites" validate:"dive"`
	Attachments           []api.Ref       `json:"attachments" validate:"dive"`
}

// CreateFromTemplateRequest creates an assistant or app, optionally from a
// template.
type CreateFromTemplateRequest struct {
	Name         string              `json:"name" validate:"required"`
	FromTemplate *api.TemplateCreate `json:"from_template"`
}

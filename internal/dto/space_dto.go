package dto

import "ai-assistant-client/pkg/api"

type CreateSpaceRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type UpdateSpaceRequest struct {
	Name             *string   `json:"name" validate:"omitempty,min=1,max=200"`
	Description      *string   `json:"description"`
	CompletionModels []api.Ref `json:"completion_models" validate:"dive"`
}

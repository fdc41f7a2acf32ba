package dto

type UpdatePromptRequest struct {
	Description string `json:"description" validate:"max=500"`
}

package memory

import (
	"time"

	"ai-assistant-client/pkg/api"
)

// Fixed ids of the seeded data, so a fresh dev backend is usable without
// looking anything up.
const (
	PersonalSpaceID    = "personal-space"
	TeamSpaceID        = "team-space"
	DefaultAssistantID = "default-assistant"
	HandbookGroupID    = "handbook-collection"
)

var (
	allPermissions = []api.Permission{
		api.PermissionRead, api.PermissionCreate, api.PermissionEdit,
		api.PermissionDelete, api.PermissionAdd, api.PermissionRemove, api.PermissionPublish,
	}

	VisionModel = api.CompletionModel{ID: "gpt-4o", Name: "gpt-4o", NickName: "GPT-4o", Family: "openai", Vision: true}
	TextModel   = api.CompletionModel{ID: "mixtral", Name: "mixtral-8x7b", NickName: "Mixtral", Family: "mistral"}
)

const megabyte = 1024 * 1024

// Seed fills an empty store with a personal space, a team space holding a
// default assistant, a document collection, prompt history and templates.
func Seed(s *Store) {
	now := time.Now().UTC()
	earlier := now.Add(-24 * time.Hour)

	for _, sp := range []api.SpaceSparse{
		{ID: PersonalSpaceID, Name: "Personal", Personal: true, Permissions: allPermissions},
		{ID: TeamSpaceID, Name: "Team", Permissions: allPermissions},
	} {
		s.Spaces.Save(sp.ID, api.Space{
			SpaceSparse:      sp,
			CompletionModels: []api.CompletionModel{VisionModel, TextModel},
			Members: api.PaginatedPermissions[api.SpaceMember]{
				Items:       []api.SpaceMember{{ID: "dev-user", Email: "dev@example.com", Role: "admin"}},
				Count:       1,
				Permissions: allPermissions,
			},
		})
	}

	model := VisionModel
	s.Assistants.Save(DefaultAssistantID, api.Assistant{
		ID:                    DefaultAssistantID,
		Name:                  "Handbook assistant",
		SpaceID:               TeamSpaceID,
		Prompt:                &api.PromptText{Text: "Answer using the staff handbook.", Description: "Handbook answers"},
		CompletionModel:       &model,
		CompletionModelKwargs: map[string]any{},
		Groups:                []api.Ref{{ID: HandbookGroupID}},
		Websites:              []api.Ref{},
		Attachments:           []api.File{},
		Permissions:           allPermissions,
	})
	s.Spaces.Update(TeamSpaceID, func(sp api.Space) api.Space {
		sp.DefaultAssistant = api.Assistant{ID: "team-default", Name: "Team default", CompletionModel: &model}
		return sp
	})

	s.Collections.Save(HandbookGroupID, SpaceItem{SpaceID: TeamSpaceID, Named: api.Named{ID: HandbookGroupID, Name: "Staff handbook"}})
	s.Websites.Save("intranet", SpaceItem{SpaceID: TeamSpaceID, Named: api.Named{ID: "intranet", Name: "Intranet"}})
	s.Services.Save("_intric-summary", SpaceItem{SpaceID: TeamSpaceID, Named: api.Named{ID: "_intric-summary", Name: "_intric summary"}})
	s.Services.Save("classifier", SpaceItem{SpaceID: TeamSpaceID, Named: api.Named{ID: "classifier", Name: "Ticket classifier"}})

	user := &api.PromptUser{ID: "dev-user", Email: "dev@example.com", Username: "dev"}
	s.Prompts.Save("prompt-v1", PromptRecord{AssistantID: DefaultAssistantID, Prompt: api.Prompt{
		PromptSparse: api.PromptSparse{ID: "prompt-v1", Description: "First draft", CreatedAt: &earlier, User: user},
		Text:         "Answer questions about the handbook.",
	}})
	s.Prompts.Save("prompt-v2", PromptRecord{AssistantID: DefaultAssistantID, Prompt: api.Prompt{
		PromptSparse: api.PromptSparse{ID: "prompt-v2", Description: "Handbook answers", IsSelected: true, CreatedAt: &now, User: user},
		Text:         "Answer using the staff handbook.",
	}})

	required := &api.WizardStep{Required: true, Title: "Knowledge", Description: "Pick the collections the assistant may search."}
	for _, t := range []TemplateRecord{
		{Kind: api.TemplateAssistants, Template: api.Template{ID: "tpl-email", Name: "Email polisher", Description: "Rewrites emails in a friendly tone.", Category: "communication"}},
		{Kind: api.TemplateAssistants, Template: api.Template{ID: "tpl-faq", Name: "FAQ helper", Description: "Answers common questions from your documents.", Category: "q&a", Wizard: api.TemplateWizard{Collections: required}}},
		{Kind: api.TemplateAssistants, Template: api.Template{ID: "tpl-coach", Name: "Career coach", Description: "Talks through decisions.", Category: "advice"}},
		{Kind: api.TemplateApps, Template: api.Template{ID: "tpl-minutes", Name: "Meeting minutes", Description: "Turns a recording into minutes.", Category: "transcription"}},
	} {
		s.Templates.Save(t.ID, t)
	}

	s.SetLimits(api.Limits{
		Attachments: api.FileLimits{
			Formats: []api.AcceptedFormat{
				{Mimetype: "text/plain", Size: 10 * megabyte},
				{Mimetype: "text/markdown", Size: 10 * megabyte},
				{Mimetype: "application/pdf", Size: 10 * megabyte},
				{Mimetype: "image/png", Size: 5 * megabyte, Vision: true},
				{Mimetype: "image/jpeg", Size: 5 * megabyte, Vision: true},
			},
			MaxInQuestion: 3,
			MaxTotalSize:  25 * megabyte,
		},
		InfoBlobs: api.FileLimits{
			Formats: []api.AcceptedFormat{
				{Mimetype: "text/plain", Size: 10 * megabyte},
				{Mimetype: "text/markdown", Size: 10 * megabyte},
				{Mimetype: "application/pdf", Size: 10 * megabyte},
			},
			MaxInQuestion: 25,
		},
	})
}

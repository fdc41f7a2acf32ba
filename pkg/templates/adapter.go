package templates

import (
	"context"

	"ai-assistant-client/pkg/api"
)

type ResourceName struct {
	Singular            string
	SingularCapitalised string
}

type Category struct {
	Key         string
	Title       string
	Description string
	Templates   []api.Template
}

// Adapter binds the controller to one kind of resource.
type Adapter interface {
	Kind() api.TemplateKind
	Templates(ctx context.Context) ([]api.Template, error)
	// CreateNew creates the resource and returns its id.
	CreateNew(ctx context.Context, req api.CreateAssistantRequest) (string, error)
	ResourceName() ResourceName
	Categorise(templates []api.Template) []Category
}

type Creator interface {
	List(ctx context.Context, kind api.TemplateKind) ([]api.Template, error)
	CreateAssistant(ctx context.Context, spaceID string, req api.CreateAssistantRequest) (*api.Assistant, error)
	CreateApp(ctx context.Context, spaceID string, req api.CreateAssistantRequest) (*api.Named, error)
}

type categoryInfo struct {
	key, title, description string
}

var assistantCategories = []categoryInfo{
	{"communication", "Communication", "Assistants that improve clarity and quality in your communication."},
	{"q&a", "Questions & Answers", "Assistants giving informative and clear answers to common questions."},
	{"advice", "Advice", "Assistants guiding through decision making and creative processes."},
	{"misc", "Miscellaneous", "Assorted assistants for various needs and tasks."},
}

var appCategories = []categoryInfo{
	{"transcription", "Transcription", "Apps that help transcribe and document speech and meetings."},
	{"misc", "Miscellaneous", "Assorted apps for various functions and needs."},
}

type adapter struct {
	kind       api.TemplateKind
	name       ResourceName
	categories []categoryInfo
	creator    Creator
	spaceID    string
}

func NewAssistantAdapter(creator Creator, spaceID string) Adapter {
	return &adapter{
		kind:       api.TemplateAssistants,
		name:       ResourceName{Singular: "assistant", SingularCapitalised: "Assistant"},
		categories: assistantCategories,
		creator:    creator,
		spaceID:    spaceID,
	}
}

func NewAppAdapter(creator Creator, spaceID string) Adapter {
	return &adapter{
		kind:       api.TemplateApps,
		name:       ResourceName{Singular: "app", SingularCapitalised: "App"},
		categories: appCategories,
		creator:    creator,
		spaceID:    spaceID,
	}
}

func (a *adapter) Kind() api.TemplateKind     { return a.kind }
func (a *adapter) ResourceName() ResourceName { return a.name }

func (a *adapter) Templates(ctx context.Context) ([]api.Template, error) {
	return a.creator.List(ctx, a.kind)
}

func (a *adapter) CreateNew(ctx context.Context, req api.CreateAssistantRequest) (string, error) {
	if a.kind == api.TemplateApps {
		app, err := a.creator.CreateApp(ctx, a.spaceID, req)
		if err != nil {
			return "", err
		}
		return app.ID, nil
	}
	assistant, err := a.creator.CreateAssistant(ctx, a.spaceID, req)
	if err != nil {
		return "", err
	}
	return assistant.ID, nil
}

func (a *adapter) Categorise(templates []api.Template) []Category {
	out := make([]Category, 0, len(a.categories))
	for _, info := range a.categories {
		c := Category{Key: info.key, Title: info.title, Description: info.description, Templates: []api.Template{}}
		for _, t := range templates {
			if t.Category == info.key {
				c.Templates = append(c.Templates, t)
			}
		}
		out = append(out, c)
	}
	return out
}

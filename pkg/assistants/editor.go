// Package assistants wires the resource editor up for assistants.
package assistants

import (
	"context"
	"fmt"

	"ai-assistant-client/internal/pkg/logger"
	"ai-assistant-client/pkg/alert"
	"ai-assistant-client/pkg/api"
	"ai-assistant-client/pkg/editing"
)

// AttachmentsField holds the files attached to an assistant.
const AttachmentsField = "attachments"

// EditableFields are the fields sent when saving an assistant.
var EditableFields = editing.CompareSpec{
	"name":                    editing.Whole(),
	"completion_model":        editing.Fields("id"),
	"completion_model_kwargs": editing.Whole(),
	"prompt":                  editing.Fields("description", "text"),
	"websites":                editing.Fields("id"),
	"groups":                  editing.Fields("id"),
	"attachments":             editing.Fields("id"),
}

func defaults() editing.Object {
	return editing.Object{"prompt": editing.Object{"description": "", "text": ""}}
}

type Updater interface {
	Update(ctx context.Context, id string, update any, out any) error
}

type EditorParams struct {
	Assistant  api.Assistant
	Assistants Updater
	Files      editing.FileDeleter
	// OnUpdateDone receives the assistant after every successful save.
	OnUpdateDone func(api.Assistant)
	Alerter      alert.Alerter
	Logger       logger.ILogger
}

func NewEditor(p EditorParams) (*editing.ResourceEditor, error) {
	return editing.NewResourceEditor(editing.EditorParams{
		Resource:       p.Assistant,
		Defaults:       defaults(),
		EditableFields: EditableFields,
		UpdateResource: func(ctx context.Context, resource, changes editing.Object) (editing.Object, error) {
			id := editing.IDOf(resource)
			if id == "" {
				return nil, fmt.Errorf("assistants: resource has no id")
			}
			var updated api.Assistant
			if err := p.Assistants.Update(ctx, id, changes, &updated); err != nil {
				return nil, err
			}
			if p.OnUpdateDone != nil {
				p.OnUpdateDone(updated)
			}
			return editing.ToObject(updated)
		},
		AttachmentsField: AttachmentsField,
		Files:            p.Files,
		Alerter:          p.Alerter,
		Logger:           p.Logger,
	})
}

// Decode converts an editor value back into an assistant.
func Decode(obj editing.Object) (api.Assistant, error) {
	var a api.Assistant
	err := editing.FromObject(obj, &a)
	return a, err
}

// ApplyPrompt puts a prompt version into the live assistant, e.g. when picked
// from the prompt history.
func ApplyPrompt(e *editing.ResourceEditor, prompt api.Prompt) {
	e.SetField("prompt", editing.Object{"text": prompt.Text, "description": prompt.Description})
}

// Patch sends what changed in e since its last commit and takes the saved
// assistant as the new reference. It returns the sent changes, nil when
// nothing changed.
func Patch(ctx context.Context, assistants Updater, e *editing.Editable) (editing.Object, error) {
	id := editing.IDOf(e.Original())
	if id == "" {
		return nil, fmt.Errorf("assistants: resource has no id")
	}
	edits := e.GetEdits()
	if len(edits) == 0 {
		return nil, nil
	}
	var updated api.Assistant
	if err := assistants.Update(ctx, id, edits, &updated); err != nil {
		return nil, err
	}
	if err := e.UpdateWithValue(updated); err != nil {
		return nil, err
	}
	return edits, nil
}

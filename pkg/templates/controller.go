// Package templates drives creating assistants and apps, either blank or from
// a template with an optional wizard step for knowledge and attachments.
package templates

import (
	"context"
	"fmt"

	"ai-assistant-client/internal/pkg/logger"
	"ai-assistant-client/pkg/alert"
	"ai-assistant-client/pkg/api"
	"ai-assistant-client/pkg/attachments"
	"ai-assistant-client/pkg/state"
)

const moduleName = "TemplateController"

type Mode string

const (
	ModeBlank    Mode = "blank"
	ModeTemplate Mode = "template"
)

type Step string

const (
	StepStart  Step = "start"
	StepWizard Step = "wizard"
)

const (
	msgCollectionsRequired = "This template can only create relevant responses if you supply the required knowledge. Please configure the knowledge below or choose a different template."
	msgUploadsRunning      = "Please wait until all uploads are finished or cancel running uploads berfore proceeding."
	msgAttachmentsRequired = "This template can only create relevant responses if you upload the required attachments. Please add relevant attachments or choose a different template."
)

// Form is everything the user entered so far.
type Form struct {
	Name        string
	Mode        Mode
	Template    *api.Template
	Step        Step
	Collections []api.Named
}

func (f Form) hasWizard() bool {
	return f.Mode == ModeTemplate && f.Template != nil &&
		(f.Template.Wizard.Attachments != nil || f.Template.Wizard.Collections != nil)
}

// AttachmentSource is where wizard attachments are uploaded.
type AttachmentSource interface {
	Attachments() state.Readable[[]attachments.Attachment]
	Remove(ctx context.Context, id string)
	ClearUploads()
}

type Params struct {
	Adapter   Adapter
	Templates []api.Template
	// Attachments, if set, provides the attachments selected in the wizard.
	Attachments AttachmentSource
	Alerter     alert.Alerter
	Logger      logger.ILogger
}

type Controller struct {
	adapter     Adapter
	templates   []api.Template
	attachments AttachmentSource
	alerter     alert.Alerter
	logger      logger.ILogger

	form        *state.Writable[Form]
	showGallery *state.Writable[bool]
	hasWizard   *state.Derived[bool]
	buttonLabel *state.Derived[string]
}

func NewController(p Params) *Controller {
	form := state.NewWritable(emptyForm())
	c := &Controller{
		adapter:     p.Adapter,
		templates:   p.Templates,
		attachments: p.Attachments,
		alerter:     alert.OrDiscard(p.Alerter),
		logger:      logger.OrNop(p.Logger),
		form:        form,
		showGallery: state.NewWritable(false),
		hasWizard:   state.Derive[Form](form, Form.hasWizard),
	}
	c.buttonLabel = state.Derive[Form](form, c.label)
	return c
}

func emptyForm() Form {
	return Form{Mode: ModeBlank, Step: StepStart, Collections: []api.Named{}}
}

func (c *Controller) Form() state.Readable[Form]                 { return c.form.ReadOnly() }
func (c *Controller) ShowTemplateGallery() *state.Writable[bool] { return c.showGallery }
func (c *Controller) HasWizard() state.Readable[bool]            { return c.hasWizard }
func (c *Controller) CreateButtonLabel() state.Readable[string]  { return c.buttonLabel }
func (c *Controller) ResourceName() ResourceName                 { return c.adapter.ResourceName() }
func (c *Controller) AllTemplates() []api.Template               { return c.templates }

func (c *Controller) CategorisedTemplates() []Category {
	return c.adapter.Categorise(c.templates)
}

func (c *Controller) SetName(name string) {
	c.form.Update(func(f Form) Form {
		f.Name = name
		return f
	})
}

// SetCreationMode switches between blank and template creation. Choosing
// templates without a selected one opens the gallery.
func (c *Controller) SetCreationMode(mode Mode) {
	if mode == ModeTemplate && c.form.Get().Template == nil {
		c.showGallery.Set(true)
	}
	c.form.Update(func(f Form) Form {
		f.Mode = mode
		return f
	})
}

func (c *Controller) SetCollections(collections []api.Named) {
	c.form.Update(func(f Form) Form {
		f.Collections = append([]api.Named(nil), collections...)
		return f
	})
}

// SelectTemplate selects t. The name follows the template unless the user
// typed their own.
func (c *Controller) SelectTemplate(t api.Template) {
	c.form.Update(func(f Form) Form {
		if f.Name == "" || (f.Template != nil && f.Name == f.Template.Name) {
			f.Name = t.Name
		}
		f.Template = &t
		return f
	})
	c.showGallery.Set(false)
}

// CreateOrContinue creates the resource, or moves on to the wizard first when
// the template has one. onCreated receives the id of the new resource.
func (c *Controller) CreateOrContinue(ctx context.Context, onCreated func(id string)) error {
	form := c.form.Get()
	if form.Name == "" {
		return nil
	}

	if form.Mode == ModeBlank {
		id, err := c.adapter.CreateNew(ctx, api.CreateAssistantRequest{Name: form.Name})
		if err != nil {
			c.alerter.Alert(fmt.Sprintf("Error: Couldn't create %s\n%s", form.Name, err))
			return err
		}
		c.created(id, onCreated)
		return nil
	}

	if form.Template == nil {
		return nil
	}
	if form.hasWizard() && form.Step == StepStart {
		c.form.Update(func(f Form) Form {
			f.Step = StepWizard
			return f
		})
		return nil
	}

	fields, ok := c.additionalFields(form)
	if !ok {
		return nil
	}

	id, err := c.adapter.CreateNew(ctx, api.CreateAssistantRequest{
		Name:         form.Name,
		FromTemplate: &api.TemplateCreate{ID: form.Template.ID, AdditionalFields: fields},
	})
	if err != nil {
		c.alerter.Alert(fmt.Sprintf("Error: Couldn't create %s from template %s\n%s", form.Name, form.Template.Name, err))
		return err
	}
	if c.attachments != nil {
		c.attachments.ClearUploads()
	}
	c.created(id, onCreated)
	return nil
}

// ResetForm clears the form and removes any attachments selected for it.
func (c *Controller) ResetForm(ctx context.Context) {
	c.form.Set(emptyForm())
	if c.attachments == nil {
		return
	}
	for _, a := range c.attachments.Attachments().Get() {
		c.attachments.Remove(ctx, a.ID)
	}
	c.attachments.ClearUploads()
}

func (c *Controller) Close() {
	c.hasWizard.Close()
	c.buttonLabel.Close()
}

func (c *Controller) additionalFields(form Form) ([]api.AdditionalField, bool) {
	fields := []api.AdditionalField{}

	if step := form.Template.Wizard.Collections; step != nil && step.Required {
		if len(form.Collections) == 0 {
			c.alerter.Alert(msgCollectionsRequired)
			return nil, false
		}
		refs := make([]api.Ref, 0, len(form.Collections))
		for _, g := range form.Collections {
			refs = append(refs, api.Ref{ID: g.ID})
		}
		fields = append(fields, api.AdditionalField{Type: "groups", Value: refs})
	}

	if step := form.Template.Wizard.Attachments; step != nil && step.Required {
		var selected []attachments.Attachment
		if c.attachments != nil {
			selected = c.attachments.Attachments().Get()
		}
		refs := make([]api.Ref, 0, len(selected))
		for _, a := range selected {
			if a.FileRef == nil {
				c.alerter.Alert(msgUploadsRunning)
				return nil, false
			}
			refs = append(refs, api.Ref{ID: a.FileRef.ID})
		}
		if len(refs) == 0 {
			c.alerter.Alert(msgAttachmentsRequired)
			return nil, false
		}
		fields = append(fields, api.AdditionalField{Type: "attachments", Value: refs})
	}
	return fields, true
}

func (c *Controller) created(id string, onCreated func(string)) {
	c.logger.Info(moduleName, "Resource created", map[string]interface{}{
		"kind": string(c.adapter.Kind()),
		"id":   id,
	})
	if onCreated != nil {
		onCreated(id)
	}
}

func (c *Controller) label(f Form) string {
	create := "Create " + c.adapter.ResourceName().Singular
	if f.Mode == ModeBlank || !f.hasWizard() {
		return create
	}
	if f.Step == StepStart {
		return "Next"
	}
	return create
}

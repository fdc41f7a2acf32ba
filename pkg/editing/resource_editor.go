package editing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ai-assistant-client/internal/pkg/logger"
	"ai-assistant-client/pkg/alert"
	"ai-assistant-client/pkg/state"
)

const (
	moduleName      = "ResourceEditor"
	saveFailedAlert = "Error while trying to update!"
	cleanupTimeout  = 30 * time.Second
)

// UpdateFunc persists changes for resource and returns the updated resource,
// usually a PATCH endpoint.
type UpdateFunc func(ctx context.Context, resource Object, changes Object) (Object, error)

// FileDeleter removes uploaded files that are no longer referenced.
type FileDeleter interface {
	DeleteFile(ctx context.Context, fileID string) error
}

type EditorParams struct {
	// Resource is any JSON-marshalable value carrying an id.
	Resource any
	// Defaults fill fields that are nil or missing, on load and after every save.
	Defaults       Object
	EditableFields CompareSpec
	UpdateResource UpdateFunc
	// AttachmentsField names an array of {id} records whose files are deleted
	// once they are no longer referenced. Empty disables attachment handling.
	AttachmentsField string
	Files            FileDeleter
	Alerter          alert.Alerter
	Logger           logger.ILogger
}

type Changes struct {
	Diff              Object
	HasUnsavedChanges bool
}

// ResourceEditor keeps the persisted value of a resource next to a live,
// bindable update and derives the pending changeset from both.
//
// Values held by the stores are never mutated in place; every change
// publishes a fresh copy, so the persisted value and the update never share
// memory.
type ResourceEditor struct {
	resource *state.Writable[Object]
	update   *state.Writable[Object]
	changes  *state.Derived[Changes]
	isSaving *state.Writable[bool]

	defaults         Object
	updateResource   UpdateFunc
	attachmentsField string
	files            FileDeleter
	alerter          alert.Alerter
	logger           logger.ILogger

	saveMu  sync.Mutex
	cleanup sync.WaitGroup
}

func NewResourceEditor(p EditorParams) (*ResourceEditor, error) {
	if p.UpdateResource == nil {
		return nil, errors.New("editing: UpdateResource is required")
	}
	obj, err := ToObject(p.Resource)
	if err != nil {
		return nil, err
	}
	ApplyDefaults(obj, p.Defaults)

	e := &ResourceEditor{
		resource:         state.NewWritable(CloneObject(obj)),
		update:           state.NewWritable(CloneObject(obj)),
		isSaving:         state.NewWritable(false),
		defaults:         p.Defaults,
		updateResource:   p.UpdateResource,
		attachmentsField: p.AttachmentsField,
		files:            p.Files,
		alerter:          alert.OrDiscard(p.Alerter),
		logger:           logger.OrNop(p.Logger),
	}

	spec := p.EditableFields
	e.changes = state.Derive2[Object, Object, Changes](e.resource, e.update, func(resource, update Object) Changes {
		diff := DiffFields(resource, update, spec)
		return Changes{Diff: diff, HasUnsavedChanges: len(diff) > 0}
	})

	return e, nil
}

// Resource is the last persisted value.
func (e *ResourceEditor) Resource() state.Readable[Object] { return e.resource.ReadOnly() }

// Update is the live value. Writers must publish a new Object rather than
// mutate the current one; SetField does that.
func (e *ResourceEditor) Update() *state.Writable[Object] { return e.update }

func (e *ResourceEditor) CurrentChanges() state.Readable[Changes] { return e.changes }

func (e *ResourceEditor) IsSaving() state.Readable[bool] { return e.isSaving.ReadOnly() }

func (e *ResourceEditor) SetField(key string, value any) {
	e.update.Update(func(current Object) Object {
		next := CloneObject(current)
		next[key] = Clone(value)
		return next
	})
}

// SaveChanges sends the full pending diff.
func (e *ResourceEditor) SaveChanges(ctx context.Context) error {
	return e.save(ctx, "")
}

// SaveField sends the current value of a single field, without diffing.
// Unsaved edits to other fields are kept.
func (e *ResourceEditor) SaveField(ctx context.Context, field string) error {
	return e.save(ctx, field)
}

func (e *ResourceEditor) save(ctx context.Context, field string) error {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	e.isSaving.Set(true)
	defer e.isSaving.Set(false)

	resource := e.resource.Get()
	update := e.update.Get()

	var changes Object
	if field != "" {
		changes = Object{field: Clone(update[field])}
	} else {
		changes = e.changes.Get().Diff
	}

	removed := e.attachmentDelta(resource, update, RemovedItems[any])

	updated, err := e.updateResource(ctx, CloneObject(resource), changes)
	if err != nil {
		e.alerter.Alert(saveFailedAlert)
		e.logger.Error(moduleName, "Failed to save resource", map[string]interface{}{
			"id":    IDOf(resource),
			"field": field,
			"error": readable(err),
		})
		return fmt.Errorf("save resource: %w", err)
	}
	updated = ApplyDefaults(CloneObject(updated), e.defaults)

	e.resource.Set(updated)
	e.update.Update(func(current Object) Object {
		return applyUpdates(current, updated, field)
	})

	if field == "" || field == e.attachmentsField {
		e.deleteFiles(removed, "Could not delete removed file")
	}
	return nil
}

// DiscardChanges reverts the whole update to the persisted value.
func (e *ResourceEditor) DiscardChanges() {
	e.discard("")
}

// DiscardField reverts a single field.
func (e *ResourceEditor) DiscardField(field string) {
	e.discard(field)
}

func (e *ResourceEditor) discard(field string) {
	var discarded []any
	e.update.Update(func(update Object) Object {
		resource := e.resource.Get()
		discarded = e.attachmentDelta(resource, update, AddedItems[any])

		if field == "" {
			return CloneObject(resource)
		}
		next := CloneObject(update)
		if value, ok := resource[field]; ok {
			next[field] = Clone(value)
		} else {
			delete(next, field)
		}
		return next
	})

	if field == "" || field == e.attachmentsField {
		e.deleteFiles(discarded, "Could not delete discarded upload")
	}
}

// Wait blocks until background file deletions have finished.
func (e *ResourceEditor) Wait() {
	e.cleanup.Wait()
}

// Close detaches derived state and waits for background work.
func (e *ResourceEditor) Close() {
	e.changes.Close()
	e.cleanup.Wait()
}

func (e *ResourceEditor) attachmentDelta(resource, update Object, delta func(a, b []any, id func(any) string) []any) []any {
	if e.attachmentsField == "" {
		return nil
	}
	before, okBefore := asArray(resource[e.attachmentsField])
	after, okAfter := asArray(update[e.attachmentsField])
	if !okBefore || !okAfter {
		return nil
	}
	return delta(before, after, IDOf)
}

func (e *ResourceEditor) deleteFiles(items []any, failure string) {
	if e.files == nil || len(items) == 0 {
		return
	}
	for _, item := range items {
		id := IDOf(item)
		if id == "" {
			continue
		}
		e.cleanup.Add(1)
		go func(id string) {
			defer e.cleanup.Done()
			ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
			defer cancel()
			if err := e.files.DeleteFile(ctx, id); err != nil {
				e.logger.Error(moduleName, failure, map[string]interface{}{"file_id": id, "error": readable(err)})
			}
		}(id)
	}
}

// applyUpdates overlays the saved state onto the live update. For a single
// field save only that field is taken over.
func applyUpdates(update, saved Object, field string) Object {
	if field == "" {
		return CloneObject(saved)
	}
	next := CloneObject(update)
	if value, ok := saved[field]; ok {
		next[field] = Clone(value)
	} else {
		delete(next, field)
	}
	return next
}

func readable(err error) string {
	var r interface{ ReadableMessage() string }
	if errors.As(err, &r) {
		return r.ReadableMessage()
	}
	return err.Error()
}

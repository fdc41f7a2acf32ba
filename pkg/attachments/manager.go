// Package attachments manages files attached to a question or resource,
// from local selection through upload to deletion on the server.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ai-assistant-client/internal/pkg/logger"
	"ai-assistant-client/pkg/alert"
	"ai-assistant-client/pkg/api"
	"ai-assistant-client/pkg/state"
	"ai-assistant-client/pkg/uploadqueue"

	"github.com/google/uuid"
)

const (
	moduleName     = "AttachmentManager"
	cleanupTimeout = 30 * time.Second
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusUploading Status = "uploading"
	StatusCompleted Status = "completed"
)

type Attachment struct {
	ID       string
	File     LocalFile
	Status   Status
	Progress int
	FileRef  *api.File
}

// FileService is the part of the API client the manager needs.
type FileService interface {
	Upload(ctx context.Context, file api.UploadFile, onProgress func(api.Progress)) (*api.File, error)
	Delete(ctx context.Context, fileID string) error
}

type Params struct {
	Files FileService
	// Rules are used by QueueValidUploads when no explicit rules are given.
	Rules state.Readable[Rules]
	// OnFileUploaded runs once per file that reached the server.
	OnFileUploaded func(api.File)
	MaxConcurrent  int
	Alerter        alert.Alerter
	Logger         logger.ILogger
}

type Manager struct {
	files          FileService
	rules          state.Readable[Rules]
	onFileUploaded func(api.File)
	alerter        alert.Alerter
	logger         logger.ILogger

	attachments *state.Writable[[]Attachment]
	isUploading *state.Derived[bool]
	queue       *uploadqueue.Queue
	cleanup     sync.WaitGroup
}

// upload links a queued task to its completion callback.
type upload struct {
	id   string
	file LocalFile
	ref  *api.File
}

func NewManager(p Params) *Manager {
	rules := p.Rules
	if rules == nil {
		rules = state.NewWritable(Rules{}).ReadOnly()
	}
	attachments := state.NewWritable[[]Attachment](nil)
	log := logger.OrNop(p.Logger)

	return &Manager{
		files:          p.Files,
		rules:          rules,
		onFileUploaded: p.OnFileUploaded,
		alerter:        alert.OrDiscard(p.Alerter),
		logger:         log,
		attachments:    attachments,
		isUploading: state.Derive[[]Attachment](attachments, func(list []Attachment) bool {
			for _, a := range list {
				if a.Status != StatusCompleted {
					return true
				}
			}
			return false
		}),
		queue: uploadqueue.New(p.MaxConcurrent, log),
	}
}

func (m *Manager) Attachments() state.Readable[[]Attachment] { return m.attachments.ReadOnly() }

// IsUploading is true while any attachment has not completed.
func (m *Manager) IsUploading() state.Readable[bool] { return m.isUploading }

func (m *Manager) Rules() state.Readable[Rules] { return m.rules }

// Uploaded returns the server files of all completed attachments.
func (m *Manager) Uploaded() []api.File {
	var files []api.File
	for _, a := range m.attachments.Get() {
		if a.Status == StatusCompleted && a.FileRef != nil {
			files = append(files, *a.FileRef)
		}
	}
	return files
}

// QueueUploads queues files without checking any rules and returns their ids.
func (m *Manager) QueueUploads(files []LocalFile) []string {
	ids := make([]string, 0, len(files))
	for _, file := range files {
		id := uuid.NewString()
		ids = append(ids, id)
		m.attachments.Update(func(list []Attachment) []Attachment {
			return append(clone(list), Attachment{ID: id, File: file, Status: StatusQueued})
		})
		u := &upload{id: id, file: file}
		m.queue.Enqueue(id, m.uploadTask(u), m.uploadDone(u))
	}
	return ids
}

// QueueValidUploads queues every file that passes rules, or the manager's
// rules when rules is nil. It returns the rejections, nil when there were none.
func (m *Manager) QueueValidUploads(files []LocalFile, rules *Rules) []string {
	selected := m.rules.Get()
	if rules != nil {
		selected = *rules
	}

	var rejections []string
	for _, file := range files {
		current := m.attachments.Get()
		var totalSize int64
		for _, a := range current {
			totalSize += a.File.Size
		}

		rejection, stop := selected.check(file, len(current), totalSize)
		if rejection != "" {
			rejections = append(rejections, rejection)
			if stop {
				break
			}
			continue
		}
		m.QueueUploads([]LocalFile{file})
	}
	return rejections
}

// Remove drops the attachment. A queued one leaves the queue, a running upload
// is aborted, and a completed file is deleted on the server. Deletion failures
// are logged; the attachment is removed from the list either way.
func (m *Manager) Remove(ctx context.Context, id string) {
	var target *Attachment
	for _, a := range m.attachments.Get() {
		if a.ID == id {
			a := a
			target = &a
			break
		}
	}
	if target == nil {
		return
	}

	switch target.Status {
	case StatusQueued:
		m.queue.Cancel(id)
		m.drop(id)
	case StatusUploading:
		// The upload callback removes it, and deletes the file if the
		// upload finished before the abort.
		m.queue.Cancel(id)
	case StatusCompleted:
		if err := m.files.Delete(ctx, target.FileRef.ID); err != nil {
			m.logger.Warn(moduleName, "Could not delete uploaded file", map[string]interface{}{
				"file_id": target.FileRef.ID,
				"error":   err.Error(),
			})
		}
		m.drop(id)
	}
}

// ClearUploads empties the list. Running uploads keep going but are no longer
// tracked once they finish.
func (m *Manager) ClearUploads() {
	m.attachments.Set(nil)
}

// Wait blocks until all started uploads returned and files of aborted
// uploads are deleted.
func (m *Manager) Wait() {
	m.queue.Wait()
	m.cleanup.Wait()
}

func (m *Manager) Close() {
	m.isUploading.Close()
}

func (m *Manager) uploadTask(u *upload) uploadqueue.Task {
	return func(ctx context.Context) error {
		m.update(u.id, func(a Attachment) Attachment {
			a.Status = StatusUploading
			return a
		})

		content, err := u.file.Open()
		if err != nil {
			return err
		}
		defer content.Close()

		start := time.Now()
		ref, err := m.files.Upload(ctx, api.UploadFile{Name: u.file.Name, Mimetype: u.file.Mimetype, Content: content},
			func(p api.Progress) {
				m.update(u.id, func(a Attachment) Attachment {
					a.Progress = p.Percent()
					return a
				})
			})
		if err != nil {
			return err
		}
		u.ref = ref

		m.logger.Info(moduleName, "File uploaded", map[string]interface{}{
			"file_id":     ref.ID,
			"name":        u.file.Name,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.update(u.id, func(a Attachment) Attachment {
			a.FileRef = ref
			a.Status = StatusCompleted
			a.Progress = 100
			return a
		})
		return nil
	}
}

func (m *Manager) uploadDone(u *upload) func(uploadqueue.Result) {
	return func(r uploadqueue.Result) {
		switch {
		case r.Cancelled || api.IsCancelled(r.Err):
			m.logger.Warn(moduleName, "Cancelled upload", map[string]interface{}{"name": u.file.Name})
			if u.ref != nil {
				m.deleteDetached(u.ref.ID)
			}
		case r.Err != nil:
			m.alerter.Alert(fmt.Sprintf("We encountered an error uploading the file %s\n%s", u.file.Name, readable(r.Err)))
		default:
			if m.onFileUploaded != nil {
				m.onFileUploaded(*u.ref)
			}
			return
		}
		m.drop(r.ID)
	}
}

// deleteDetached removes a file that reached the server after its upload was
// aborted. Failures are logged.
func (m *Manager) deleteDetached(fileID string) {
	m.cleanup.Add(1)
	go func() {
		defer m.cleanup.Done()
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		if err := m.files.Delete(ctx, fileID); err != nil {
			m.logger.Warn(moduleName, "Could not delete aborted upload", map[string]interface{}{
				"file_id": fileID,
				"error":   err.Error(),
			})
		}
	}()
}

func (m *Manager) update(id string, fn func(Attachment) Attachment) {
	m.attachments.Update(func(list []Attachment) []Attachment {
		for i := range list {
			if list[i].ID == id {
				next := clone(list)
				next[i] = fn(next[i])
				return next
			}
		}
		return list
	})
}

func (m *Manager) drop(id string) {
	m.attachments.Update(func(list []Attachment) []Attachment {
		next := make([]Attachment, 0, len(list))
		for _, a := range list {
			if a.ID != id {
				next = append(next, a)
			}
		}
		return next
	})
}

func clone(list []Attachment) []Attachment {
	return append([]Attachment(nil), list...)
}

func readable(err error) string {
	var r interface{ ReadableMessage() string }
	if errors.As(err, &r) {
		return r.ReadableMessage()
	}
	return err.Error()
}

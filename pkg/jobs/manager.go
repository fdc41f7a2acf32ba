// Package jobs tracks background jobs on the server and the info-blob
// uploads that create them.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ai-assistant-client/internal/pkg/logger"
	"ai-assistant-client/pkg/alert"
	"ai-assistant-client/pkg/api"
	"ai-assistant-client/pkg/attachments"
	"ai-assistant-client/pkg/events"
	"ai-assistant-client/pkg/state"
	"ai-assistant-client/pkg/uploadqueue"

	"github.com/google/uuid"
)

const (
	DefaultPollInterval = 30 * time.Second
	DefaultRetryDelay   = 20 * time.Second
	DefaultMaxFailures  = 5

	moduleName = "JobManager"
)

type JobLister interface {
	List(ctx context.Context, includeCompleted bool) ([]api.Job, error)
}

type BlobUploader interface {
	Upload(ctx context.Context, groupID string, file api.UploadFile, onProgress func(api.Progress)) (*api.Job, error)
}

type Publisher interface {
	Publish(e events.Event) error
}

// Upload is a file on its way into a collection.
type Upload struct {
	ID       string
	File     attachments.LocalFile
	GroupID  string
	Status   attachments.Status
	Progress int
}

type Params struct {
	Jobs      JobLister
	InfoBlobs BlobUploader
	// Bus receives a knowledge invalidation whenever tracked jobs finish.
	Bus           Publisher
	PollInterval  time.Duration
	RetryDelay    time.Duration
	MaxFailures   int
	MaxConcurrent int
	Alerter       alert.Alerter
	Logger        logger.ILogger
}

type Manager struct {
	jobs        JobLister
	infoBlobs   BlobUploader
	bus         Publisher
	interval    time.Duration
	retryDelay  time.Duration
	maxFailures int
	alerter     alert.Alerter
	logger      logger.ILogger

	current *state.Writable[[]api.Job]
	uploads *state.Writable[[]Upload]
	running *state.Derived[int]
	queue   *uploadqueue.Queue

	mu         sync.Mutex
	polling    bool
	closed     bool
	failures   int
	cancelPoll context.CancelFunc
	retry      *time.Timer
	wg         sync.WaitGroup
}

func NewManager(p Params) *Manager {
	if p.PollInterval <= 0 {
		p.PollInterval = DefaultPollInterval
	}
	if p.RetryDelay <= 0 {
		p.RetryDelay = DefaultRetryDelay
	}
	if p.MaxFailures <= 0 {
		p.MaxFailures = DefaultMaxFailures
	}
	log := logger.OrNop(p.Logger)

	current := state.NewWritable[[]api.Job](nil)
	uploads := state.NewWritable[[]Upload](nil)

	return &Manager{
		jobs:        p.Jobs,
		infoBlobs:   p.InfoBlobs,
		bus:         p.Bus,
		interval:    p.PollInterval,
		retryDelay:  p.RetryDelay,
		maxFailures: p.MaxFailures,
		alerter:     alert.OrDiscard(p.Alerter),
		logger:      log,
		current:     current,
		uploads:     uploads,
		running: state.Derive2[[]api.Job, []Upload](current, uploads, func(jobs []api.Job, ups []Upload) int {
			n := len(jobs)
			for _, u := range ups {
				if u.Status != attachments.StatusCompleted {
					n++
				}
			}
			return n
		}),
		queue: uploadqueue.New(p.MaxConcurrent, log),
	}
}

// Jobs are the jobs still queued or in progress.
func (m *Manager) Jobs() state.Readable[[]api.Job] { return m.current.ReadOnly() }

func (m *Manager) Uploads() state.Readable[[]Upload] { return m.uploads.ReadOnly() }

// CurrentlyRunning counts running jobs plus unfinished uploads.
func (m *Manager) CurrentlyRunning() state.Readable[int] { return m.running }

// Start begins polling; it stops by itself once no job is running.
func (m *Manager) Start() {
	m.startPolling()
}

// AddJob tracks job and makes sure polling runs.
func (m *Manager) AddJob(job api.Job) {
	m.current.Update(func(jobs []api.Job) []api.Job {
		next := make([]api.Job, 0, len(jobs)+1)
		replaced := false
		for _, j := range jobs {
			if j.ID == job.ID {
				j = job
				replaced = true
			}
			next = append(next, j)
		}
		if !replaced {
			next = append(next, job)
		}
		return next
	})
	m.startPolling()
}

// UpdateJobs fetches the running jobs from the server. Failed jobs are not
// tracked. When fewer jobs run than before, knowledge is invalidated.
func (m *Manager) UpdateJobs(ctx context.Context) ([]api.Job, error) {
	jobs, err := m.jobs.List(ctx, false)
	if err != nil {
		m.mu.Lock()
		m.failures++
		failures := m.failures
		m.mu.Unlock()
		m.logger.Error(moduleName, "Could not get jobs from server", map[string]interface{}{
			"error":    err,
			"failures": failures,
		})
		return nil, err
	}

	m.mu.Lock()
	m.failures = 0
	m.mu.Unlock()

	running := make([]api.Job, 0, len(jobs))
	for _, j := range jobs {
		if j.Running() {
			running = append(running, j)
		}
	}

	if finished := len(m.current.Get()) - len(running); finished > 0 && m.bus != nil {
		e := events.New(events.TypeKnowledgeInvalidated, map[string]interface{}{"jobs_finished": finished})
		if err := m.bus.Publish(e); err != nil {
			m.logger.Warn(moduleName, "Could not publish invalidation", map[string]interface{}{"error": err.Error()})
		}
	}
	m.current.Set(running)
	return running, nil
}

// QueueUploads uploads files into the collection groupID. Every finished
// upload registers the job the server started for it.
func (m *Manager) QueueUploads(groupID string, files []attachments.LocalFile) {
	for _, file := range files {
		upload := Upload{ID: uuid.NewString(), File: file, GroupID: groupID, Status: attachments.StatusQueued}
		m.uploads.Update(func(list []Upload) []Upload {
			return append(append([]Upload(nil), list...), upload)
		})
		m.queue.Enqueue(upload.ID, m.uploadTask(upload), m.uploadDone(upload))
	}
}

// ClearFinishedUploads drops completed uploads from the list.
func (m *Manager) ClearFinishedUploads() {
	m.uploads.Update(func(list []Upload) []Upload {
		next := make([]Upload, 0, len(list))
		for _, u := range list {
			if u.Status != attachments.StatusCompleted {
				next = append(next, u)
			}
		}
		return next
	})
}

// WaitUploads blocks until all queued uploads returned.
func (m *Manager) WaitUploads() {
	m.queue.Wait()
}

// Polling reports whether the poll loop is active.
func (m *Manager) Polling() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polling
}

func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	if m.cancelPoll != nil {
		m.cancelPoll()
	}
	if m.retry != nil {
		m.retry.Stop()
	}
	m.mu.Unlock()

	m.wg.Wait()
	m.queue.Wait()
	m.running.Close()
}

func (m *Manager) startPolling() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startLocked()
}

func (m *Manager) startLocked() {
	if m.polling || m.closed {
		return
	}
	m.polling = true
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelPoll = cancel
	m.wg.Add(1)
	go m.poll(ctx)
}

func (m *Manager) poll(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		running, err := m.UpdateJobs(ctx)
		if err != nil || len(running) == 0 {
			m.stopPolling(err != nil)
			return
		}
		select {
		case <-ctx.Done():
			m.stopPolling(false)
			return
		case <-ticker.C:
		}
	}
}

// stopPolling ends the loop. After a failure polling restarts once after the
// retry delay, unless the failure limit was reached.
func (m *Manager) stopPolling(failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.polling = false
	if m.cancelPoll != nil {
		m.cancelPoll()
		m.cancelPoll = nil
	}
	if m.closed {
		return
	}
	if !failed {
		// A job registered while the last poll was in flight.
		if len(m.current.Get()) > 0 {
			m.startLocked()
		}
		return
	}
	if m.failures >= m.maxFailures {
		m.logger.Warn(moduleName, "Giving up polling jobs", map[string]interface{}{"failures": m.failures})
		return
	}
	m.retry = time.AfterFunc(m.retryDelay, m.startPolling)
}

func (m *Manager) uploadTask(upload Upload) uploadqueue.Task {
	return func(ctx context.Context) error {
		m.setUpload(upload.ID, func(u Upload) Upload {
			u.Status = attachments.StatusUploading
			return u
		})

		content, err := upload.File.Open()
		if err != nil {
			return err
		}
		defer content.Close()

		job, err := m.infoBlobs.Upload(ctx, upload.GroupID,
			api.UploadFile{Name: upload.File.Name, Mimetype: upload.File.Mimetype, Content: content},
			func(p api.Progress) {
				m.setUpload(upload.ID, func(u Upload) Upload {
					u.Progress = p.Percent()
					return u
				})
			})
		if err != nil {
			return err
		}

		m.setUpload(upload.ID, func(u Upload) Upload {
			u.Status = attachments.StatusCompleted
			u.Progress = 100
			return u
		})
		m.AddJob(*job)
		return nil
	}
}

func (m *Manager) uploadDone(upload Upload) func(uploadqueue.Result) {
	return func(r uploadqueue.Result) {
		if r.Err == nil {
			return
		}
		m.logger.Error(moduleName, "Upload error", map[string]interface{}{
			"name":  upload.File.Name,
			"group": upload.GroupID,
			"error": r.Err,
		})
		m.alerter.Alert(fmt.Sprintf("We encountered an error uploading the file %s\n%s", upload.File.Name, r.Err.Error()))
		m.uploads.Update(func(list []Upload) []Upload {
			next := make([]Upload, 0, len(list))
			for _, u := range list {
				if u.ID != upload.ID {
					next = append(next, u)
				}
			}
			return next
		})
	}
}

func (m *Manager) setUpload(id string, fn func(Upload) Upload) {
	m.uploads.Update(func(list []Upload) []Upload {
		for i := range list {
			if list[i].ID == id {
				next := append([]Upload(nil), list...)
				next[i] = fn(next[i])
				return next
			}
		}
		return list
	})
}

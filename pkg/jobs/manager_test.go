package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-assistant-client/pkg/alert"
	"ai-assistant-client/pkg/api"
	"ai-assistant-client/pkg/attachments"
	"ai-assistant-client/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJobs struct {
	mu        sync.Mutex
	responses [][]api.Job
	errs      []error
	calls     int
}

func (f *fakeJobs) List(_ context.Context, _ bool) ([]api.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return nil, nil
}

func (f *fakeJobs) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(e events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func (b *recordingBus) published() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]events.Event(nil), b.events...)
}

type fakeBlobs struct {
	fail map[string]bool
}

func (f *fakeBlobs) Upload(_ context.Context, groupID string, file api.UploadFile, onProgress func(api.Progress)) (*api.Job, error) {
	onProgress(api.Progress{Loaded: 1, Total: 2})
	if f.fail[file.Name] {
		return nil, errors.New("storage full")
	}
	return &api.Job{ID: "job-" + file.Name, Status: api.JobQueued, Task: "upload_info_blob"}, nil
}

func job(id string, status api.JobStatus) api.Job {
	return api.Job{ID: id, Status: status}
}

func TestUpdateJobs_FiltersAndInvalidates(t *testing.T) {
	lister := &fakeJobs{responses: [][]api.Job{
		{job("1", api.JobInProgress), job("2", api.JobQueued), job("3", api.JobFailed)},
		{job("2", api.JobInProgress), job("1", api.JobComplete)},
	}}
	bus := &recordingBus{}
	m := NewManager(Params{Jobs: lister, Bus: bus})
	defer m.Close()

	running, err := m.UpdateJobs(context.Background())
	require.NoError(t, err)
	assert.Len(t, running, 2)
	assert.Empty(t, bus.published())

	running, err = m.UpdateJobs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []api.Job{job("2", api.JobInProgress)}, running)
	assert.Equal(t, running, m.Jobs().Get())

	published := bus.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.TypeKnowledgeInvalidated, published[0].EventType())
	assert.Equal(t, 1, published[0].Payload()["jobs_finished"])
}

func TestPolling_StopsWhenNothingRuns(t *testing.T) {
	lister := &fakeJobs{responses: [][]api.Job{
		{job("1", api.JobInProgress)},
		{job("1", api.JobInProgress)},
		{},
	}}
	m := NewManager(Params{Jobs: lister, PollInterval: 10 * time.Millisecond})
	defer m.Close()

	m.Start()
	assert.Eventually(t, func() bool { return lister.count() == 3 && !m.Polling() }, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 3, lister.count())
	assert.Empty(t, m.Jobs().Get())
}

func TestPolling_GivesUpAfterConsecutiveFailures(t *testing.T) {
	boom := errors.New("unreachable")
	lister := &fakeJobs{errs: []error{boom, boom, boom, boom, boom, boom, boom}}
	m := NewManager(Params{
		Jobs:         lister,
		PollInterval: 10 * time.Millisecond,
		RetryDelay:   5 * time.Millisecond,
	})
	defer m.Close()

	m.Start()
	assert.Eventually(t, func() bool { return lister.count() == DefaultMaxFailures }, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, DefaultMaxFailures, lister.count())
	assert.False(t, m.Polling())
}

func TestPolling_RecoversAfterFailure(t *testing.T) {
	lister := &fakeJobs{
		errs:      []error{errors.New("blip")},
		responses: [][]api.Job{nil, {job("1", api.JobInProgress)}, {}},
	}
	m := NewManager(Params{
		Jobs:         lister,
		PollInterval: 10 * time.Millisecond,
		RetryDelay:   5 * time.Millisecond,
	})
	defer m.Close()

	m.Start()
	assert.Eventually(t, func() bool { return lister.count() == 3 && !m.Polling() }, time.Second, 5*time.Millisecond)
}

func TestQueueUploads(t *testing.T) {
	lister := &fakeJobs{responses: [][]api.Job{{job("job-a.txt", api.JobInProgress)}}}
	alerts := &alert.Recorder{}
	m := NewManager(Params{
		Jobs:         lister,
		InfoBlobs:    &fakeBlobs{fail: map[string]bool{"b.txt": true}},
		PollInterval: time.Hour,
		Alerter:      alerts,
	})
	defer m.Close()

	m.QueueUploads("group-1", []attachments.LocalFile{
		attachments.FileFromBytes("a.txt", "text/plain", []byte("hello")),
		attachments.FileFromBytes("b.txt", "text/plain", []byte("world")),
	})
	m.WaitUploads()

	uploads := m.Uploads().Get()
	require.Len(t, uploads, 1)
	assert.Equal(t, "a.txt", uploads[0].File.Name)
	assert.Equal(t, "group-1", uploads[0].GroupID)
	assert.Equal(t, attachments.StatusCompleted, uploads[0].Status)
	assert.Equal(t, []string{"We encountered an error uploading the file b.txt\nstorage full"}, alerts.Messages())

	assert.Eventually(t, func() bool { return len(m.Jobs().Get()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, m.CurrentlyRunning().Get())

	m.ClearFinishedUploads()
	assert.Empty(t, m.Uploads().Get())
}

package service

import (
	"context"
	"time"

	"ai-assistant-client/internal/pkg/logger"
	"ai-assistant-client/internal/repository/memory"
	"ai-assistant-client/pkg/api"
)

const taskUploadInfoBlob = "UPLOAD_INFO_BLOB"

type IJobService interface {
	List(ctx context.Context, includeCompleted bool) []api.Job
	Get(ctx context.Context, id string) (*api.Job, error)
	// UploadInfoBlob queues processing of a file into a collection.
	UploadInfoBlob(ctx context.Context, groupID string, file UploadedFile) (*api.Job, error)
}

type jobService struct {
	store     *memory.Store
	publisher IPublisherService
	duration  time.Duration
	logger    logger.ILogger
}

// NewJobService simulates info-blob processing: a job starts halfway through
// duration and completes at the end of it.
func NewJobService(store *memory.Store, publisher IPublisherService, duration time.Duration, log logger.ILogger) IJobService {
	return &jobService{store: store, publisher: publisher, duration: duration, logger: logger.OrNop(log)}
}

func (s *jobService) List(ctx context.Context, includeCompleted bool) []api.Job {
	return s.store.Jobs.List(func(j api.Job) bool { return includeCompleted || j.Running() })
}

func (s *jobService) Get(ctx context.Context, id string) (*api.Job, error) {
	j, ok := s.store.Jobs.Get(id)
	if !ok {
		return nil, notFound("Job", id)
	}
	return &j, nil
}

func (s *jobService) UploadInfoBlob(ctx context.Context, groupID string, file UploadedFile) (*api.Job, error) {
	if _, ok := s.store.Collections.Get(groupID); !ok {
		return nil, notFound("Collection", groupID)
	}
	if err := checkFormat(s.store.Limits().InfoBlobs, file); err != nil {
		return nil, err
	}

	created := now()
	name := file.Name
	job := api.Job{ID: newID(), Name: &name, Status: api.JobQueued, Task: taskUploadInfoBlob, CreatedAt: &created}
	s.store.Jobs.Save(job.ID, job)
	s.publisher.PublishToChannel(ChannelJobs, job)

	time.AfterFunc(s.duration/2, func() { s.advance(job.ID, api.JobInProgress) })
	time.AfterFunc(s.duration, func() { s.advance(job.ID, api.JobComplete) })

	s.logger.Info("JobService", "Info blob job queued", map[string]interface{}{"job_id": job.ID, "group_id": groupID})
	return &job, nil
}

func (s *jobService) advance(id string, status api.JobStatus) {
	job, ok := s.store.Jobs.Update(id, func(j api.Job) api.Job {
		j.Status = status
		if status == api.JobComplete {
			finished := now()
			j.FinishedAt = &finished
		}
		return j
	})
	if !ok {
		return
	}
	s.publisher.PublishToChannel(ChannelJobs, job)
}

package api

import (
	"context"
	"net/http"
	"strconv"
)

type JobsService struct{ c *Client }

// List returns the user's jobs. Finished jobs are only included when
// includeCompleted is set.
func (s *JobsService) List(ctx context.Context, includeCompleted bool) ([]Job, error) {
	var res Paginated[Job]
	query := map[string]string{}
	if includeCompleted {
		query["include_completed"] = strconv.FormatBool(true)
	}
	if err := s.c.Do(ctx, http.MethodGet, "/api/v1/jobs/", Params{Query: query}, nil, &res); err != nil {
		return nil, err
	}
	return res.Items, nil
}

func (s *JobsService) Get(ctx context.Context, id string) (*Job, error) {
	var res Job
	if err := s.c.Do(ctx, http.MethodGet, "/api/v1/jobs/{id}/", Params{Path: map[string]string{"id": id}}, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

type InfoBlobsService struct{ c *Client }

// Upload adds a file to a collection. Processing happens server side and is
// tracked through the returned job.
func (s *InfoBlobsService) Upload(ctx context.Context, groupID string, file UploadFile, onProgress func(Progress)) (*Job, error) {
	var res Job
	err := s.c.Upload(ctx, "/api/v1/groups/{id}/info-blobs/upload/", Params{Path: map[string]string{"id": groupID}},
		"file", file, onProgress, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

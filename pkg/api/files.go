package api

import (
	"context"
	"net/http"
)

type FilesService struct{ c *Client }

// Upload stores a file for use as an attachment.
func (s *FilesService) Upload(ctx context.Context, file UploadFile, onProgress func(Progress)) (*File, error) {
	var res File
	if err := s.c.Upload(ctx, "/api/v1/files/", Params{}, "upload_file", file, onProgress, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *FilesService) Delete(ctx context.Context, fileID string) error {
	return s.c.Do(ctx, http.MethodDelete, "/api/v1/files/{id}/", Params{Path: map[string]string{"id": fileID}}, nil, nil)
}

// DeleteFile makes the service usable wherever only deletion is needed.
func (s *FilesService) DeleteFile(ctx context.Context, fileID string) error {
	return s.Delete(ctx, fileID)
}

package service

import (
	"context"
	"fmt"
	"strings"

	"ai-assistant-client/internal/pkg/serverutils"
	"ai-assistant-client/internal/repository/memory"
	"ai-assistant-client/pkg/api"
)

// UploadedFile describes a received multipart file. Contents are not kept.
type UploadedFile struct {
	Name     string
	Mimetype string
	Size     int64
	// Field is the multipart field the file arrived in, used as the error location.
	Field string
}

type IFileService interface {
	Upload(ctx context.Context, file UploadedFile) (*api.File, error)
	Delete(ctx context.Context, id string) error
}

type fileService struct {
	store *memory.Store
}

func NewFileService(store *memory.Store) IFileService {
	return &fileService{store: store}
}

func (s *fileService) Upload(ctx context.Context, file UploadedFile) (*api.File, error) {
	if err := checkFormat(s.store.Limits().Attachments, file); err != nil {
		return nil, err
	}
	created := now()
	f := api.File{ID: newID(), Name: file.Name, Mimetype: file.Mimetype, Size: file.Size, CreatedAt: &created}
	s.store.Files.Save(f.ID, f)
	return &f, nil
}

func (s *fileService) Delete(ctx context.Context, id string) error {
	if !s.store.Files.Delete(id) {
		return notFound("File", id)
	}
	return nil
}

// checkFormat enforces the accepted formats and their size limits.
func checkFormat(limits api.FileLimits, file UploadedFile) error {
	field := file.Field
	if field == "" {
		field = "upload_file"
	}
	mimetype, _, _ := strings.Cut(file.Mimetype, ";")
	for _, format := range limits.Formats {
		if format.Mimetype != strings.TrimSpace(mimetype) {
			continue
		}
		if format.Size > 0 && file.Size > format.Size {
			return serverutils.NewValidationError(field, fmt.Sprintf("File %s is larger than %d bytes", file.Name, format.Size))
		}
		return nil
	}
	return serverutils.NewValidationError(field, fmt.Sprintf("File type %s is not supported", file.Mimetype))
}

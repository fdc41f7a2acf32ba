package controller

import (
	"mime/multipart"
	"strings"

	"ai-assistant-client/internal/service"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
)

const (
	fileField     = "upload_file"
	infoBlobField = "file"
)

// uploadedFile reads the multipart file in field. A missing or generic content
// type is replaced by one detected from the file contents.
func uploadedFile(ctx *fiber.Ctx, field string) (service.UploadedFile, error) {
	header, err := ctx.FormFile(field)
	if err != nil {
		return service.UploadedFile{}, fiber.NewError(fiber.StatusBadRequest, field+" is required")
	}

	mtype := header.Header.Get(fiber.HeaderContentType)
	if mtype == "" || strings.HasPrefix(mtype, fiber.MIMEOctetStream) {
		detected, err := detect(header)
		if err != nil {
			return service.UploadedFile{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		mtype = detected
	}
	return service.UploadedFile{Name: header.Filename, Mimetype: mtype, Size: header.Size, Field: field}, nil
}

func detect(header *multipart.FileHeader) (string, error) {
	f, err := header.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	m, err := mimetype.DetectReader(f)
	if err != nil {
		return "", err
	}
	return m.String(), nil
}

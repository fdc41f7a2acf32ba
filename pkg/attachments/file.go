package attachments

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// LocalFile is a file selected for upload that has not reached the server yet.
type LocalFile struct {
	Name     string
	Mimetype string
	Size     int64
	open     func() (io.ReadCloser, error)
}

// Open returns a fresh reader over the file content.
func (f LocalFile) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, fmt.Errorf("attachments: %s has no content", f.Name)
	}
	return f.open()
}

// FileFromPath stats path and sniffs its MIME type from the content.
func FileFromPath(path string) (LocalFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return LocalFile{}, err
	}
	if info.IsDir() {
		return LocalFile{}, fmt.Errorf("attachments: %s is a directory", path)
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return LocalFile{}, fmt.Errorf("attachments: detect type of %s: %w", path, err)
	}
	return LocalFile{
		Name:     filepath.Base(path),
		Mimetype: mtype.String(),
		Size:     info.Size(),
		open:     func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// FileFromBytes wraps in-memory content, sniffing the type when mtype is empty.
func FileFromBytes(name, mtype string, data []byte) LocalFile {
	if mtype == "" {
		mtype = mimetype.Detect(data).String()
	}
	return LocalFile{
		Name:     name,
		Mimetype: mtype,
		Size:     int64(len(data)),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

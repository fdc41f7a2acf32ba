package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesUpload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/files/", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		f, header, err := r.FormFile("upload_file")
		require.NoError(t, err)
		defer f.Close()
		content, _ := io.ReadAll(f)

		assert.Equal(t, "notes.txt", header.Filename)
		assert.Equal(t, "text/plain", header.Header.Get("Content-Type"))
		fmt.Fprintf(w, `{"id":"f1","name":%q,"mimetype":"text/plain","size":%d}`, header.Filename, len(content))
	})

	var (
		mu     sync.Mutex
		events []Progress
	)
	file, err := c.Files.Upload(context.Background(), UploadFile{
		Name:     "notes.txt",
		Mimetype: "text/plain",
		Content:  strings.NewReader(strings.Repeat("x", 4096)),
	}, func(p Progress) {
		mu.Lock()
		events = append(events, p)
		mu.Unlock()
	})
	require.NoError(t, err)

	assert.Equal(t, "f1", file.ID)
	assert.EqualValues(t, 4096, file.Size)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, last.Total, last.Loaded)
	assert.Equal(t, 100, last.Percent())
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 0, Progress{Loaded: 5}.Percent())
	assert.Equal(t, 33, Progress{Loaded: 1, Total: 3}.Percent())
}

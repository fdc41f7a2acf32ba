package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"ai-assistant-client/internal/bootstrap"
	"ai-assistant-client/internal/config"
	"ai-assistant-client/internal/pkg/serverutils"
	"ai-assistant-client/internal/repository/memory"
	"ai-assistant-client/pkg/api"
	"ai-assistant-client/pkg/attachments"
	"ai-assistant-client/pkg/chat"
	"ai-assistant-client/pkg/jobs"
	"ai-assistant-client/pkg/socket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey = "test-key"
	testSecret = "test-secret"
)

func testConfig() *config.Config {
	return &config.Config{DevServer: config.DevServerConfig{
		Port:               "0",
		APIKey:             testAPIKey,
		JWTSecret:          testSecret,
		JobDuration:        60 * time.Millisecond,
		CorsAllowedOrigins: "*",
	}}
}

func newTestServer(t *testing.T) (*Server, *bootstrap.Container) {
	t.Helper()
	cfg := testConfig()
	container := bootstrap.NewContainer(cfg, nil)
	srv := New(cfg, container)
	t.Cleanup(func() { _ = container.Close() })
	return srv, container
}

// listen serves srv on a random local port and returns its base url.
func listen(t *testing.T, srv *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.GetApp().Listener(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })
	return "http://" + ln.Addr().String()
}

func newClient(t *testing.T, baseURL string) *api.Client {
	t.Helper()
	client, err := api.NewClient(api.Options{BaseURL: baseURL, APIKey: testAPIKey})
	require.NoError(t, err)
	return client
}

func TestAuth(t *testing.T) {
	srv, _ := newTestServer(t)
	app := srv.GetApp()

	valid, err := serverutils.IssueToken(testSecret, "alice", time.Hour)
	require.NoError(t, err)
	expired, err := serverutils.IssueToken(testSecret, "alice", -time.Hour)
	require.NoError(t, err)
	forged, err := serverutils.IssueToken("other-secret", "alice", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header map[string]string
		status int
	}{
		{"no credentials", nil, http.StatusUnauthorized},
		{"wrong api key", map[string]string{"api-key": "nope"}, http.StatusUnauthorized},
		{"api key", map[string]string{"api-key": testAPIKey}, http.StatusOK},
		{"bearer token", map[string]string{"Authorization": "Bearer " + valid}, http.StatusOK},
		{"expired token", map[string]string{"Authorization": "Bearer " + expired}, http.StatusUnauthorized},
		{"foreign signature", map[string]string{"Authorization": "Bearer " + forged}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/assistants/", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestErrorBodies(t *testing.T) {
	srv, _ := newTestServer(t)
	app := srv.GetApp()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/assistants/missing/", nil)
	req.Header.Set("api-key", testAPIKey)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body struct {
		Message string `json:"message"`
		Code    int    `json:"intric_error_code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Assistant missing not found", body.Message)
	assert.Equal(t, http.StatusNotFound, body.Code)
}

func TestAskStreamsCitationsAcrossChunks(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assistants/"+memory.DefaultAssistantID+"/sessions/",
		strings.NewReader(`{"question":"How many vacation days?","files":[],"stream":true}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", testAPIKey)
	resp, err := srv.GetApp().Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var events []api.AssistantResponse
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var ev api.AssistantResponse
		require.NoError(t, json.Unmarshal([]byte(data), &ev))
		events = append(events, ev)
	}
	require.Greater(t, len(events), 2)

	var answer strings.Builder
	for _, ev := range events[:len(events)-1] {
		assert.NotContains(t, ev.Answer, `<inref id="`)
		answer.WriteString(ev.Answer)
	}
	assert.Contains(t, answer.String(), `<inref id="handbook-collection-ref-1"/>`)

	last := events[len(events)-1]
	assert.Empty(t, last.Answer)
	assert.NotEmpty(t, last.ID)
	assert.Equal(t, events[0].SessionID, last.SessionID)
}

func TestValidationErrorsAreReadable(t *testing.T) {
	srv, _ := newTestServer(t)
	client := newClient(t, listen(t, srv))

	_, err := client.Spaces.Create(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrValidation))

	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, `Name failed on the "required" rule`, apiErr.ReadableMessage())
}

func TestChatManagerEndToEnd(t *testing.T) {
	srv, _ := newTestServer(t)
	client := newClient(t, listen(t, srv))
	ctx := context.Background()

	assistant, err := client.Assistants.Get(ctx, memory.DefaultAssistantID)
	require.NoError(t, err)

	m := chat.NewManager(chat.Params{Assistant: *assistant, Assistants: client.Assistants})
	defer m.Close()

	var updates int
	require.NoError(t, m.AskQuestion(ctx, "How many vacation days?", nil, func() { updates++ }))
	assert.Greater(t, updates, 3)

	session := m.CurrentSession().Get()
	require.NotEmpty(t, session.ID)
	require.Len(t, session.Messages, 1)
	msg := session.Messages[0]
	assert.Contains(t, msg.Answer, `<inref id="handbook-collection-ref-1"/>`)
	require.Len(t, msg.References, 1)
	assert.Equal(t, "Staff handbook", msg.References[0].Title)

	require.Len(t, m.History().Get(), 1)
	assert.Equal(t, session.ID, m.History().Get()[0].ID)

	require.NoError(t, m.AskQuestion(ctx, "And sick days?", nil, nil))
	loaded, err := client.Assistants.GetSession(ctx, memory.DefaultAssistantID, session.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Messages, 2)

	require.NoError(t, m.DeleteSession(ctx, session.ID))
	assert.Empty(t, m.History().Get())
}

func TestUploadsAndJobsEndToEnd(t *testing.T) {
	srv, container := newTestServer(t)
	client := newClient(t, listen(t, srv))
	ctx := context.Background()

	file, err := client.Files.Upload(ctx, api.UploadFile{Name: "notes.txt", Content: strings.NewReader("plain text notes")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", file.Mimetype, "detected from contents")
	require.NoError(t, client.Files.Delete(ctx, file.ID))

	m := jobs.NewManager(jobs.Params{
		Jobs:         client.Jobs,
		InfoBlobs:    client.InfoBlobs,
		PollInterval: 20 * time.Millisecond,
	})
	defer m.Close()

	m.QueueUploads(memory.HandbookGroupID, []attachments.LocalFile{
		attachments.FileFromBytes("handbook.md", "text/markdown", []byte("# Handbook")),
	})
	m.WaitUploads()

	uploads := m.Uploads().Get()
	require.Len(t, uploads, 1)
	assert.Equal(t, attachments.StatusCompleted, uploads[0].Status)

	assert.Eventually(t, func() bool {
		return m.CurrentlyRunning().Get() == 0 && !m.Polling()
	}, 2*time.Second, 10*time.Millisecond)

	all, err := client.Jobs.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, api.JobComplete, all[0].Status)
	assert.Len(t, container.Store.Jobs.List(nil), 1)
}

func TestSocketChannels(t *testing.T) {
	srv, container := newTestServer(t)
	baseURL := listen(t, srv)
	client := newClient(t, baseURL)

	s, err := socket.New(socket.Options{BaseURL: baseURL, Token: testAPIKey})
	require.NoError(t, err)
	require.NoError(t, s.Connect(context.Background()))
	defer s.Disconnect()

	var (
		mu       sync.Mutex
		statuses []api.JobStatus
		pongs    int
	)
	unsubscribe := s.Subscribe("jobs", func(data json.RawMessage) {
		var job api.Job
		if json.Unmarshal(data, &job) == nil {
			mu.Lock()
			statuses = append(statuses, job.Status)
			mu.Unlock()
		}
	})
	removePong := s.RegisterHandler(socket.TypePong, func(json.RawMessage) {
		mu.Lock()
		pongs++
		mu.Unlock()
	})
	defer removePong()

	require.Eventually(t, func() bool { return container.WebSocketHub.Subscribers("jobs") == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Send(socket.TypePing, nil))
	_, err = client.InfoBlobs.Upload(context.Background(), memory.HandbookGroupID,
		api.UploadFile{Name: "a.txt", Mimetype: "text/plain", Content: strings.NewReader("a")}, nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return pongs >= 1 && len(statuses) == 3
	}, 2*time.Second, 10*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []api.JobStatus{api.JobQueued, api.JobInProgress, api.JobComplete}, statuses)
	mu.Unlock()

	unsubscribe()
	assert.Eventually(t, func() bool { return container.WebSocketHub.Subscribers("jobs") == 0 }, time.Second, 5*time.Millisecond)
}

func TestSocketRejectsUnknownToken(t *testing.T) {
	srv, _ := newTestServer(t)
	baseURL := listen(t, srv)

	s, err := socket.New(socket.Options{BaseURL: baseURL, Token: "wrong"})
	require.NoError(t, err)
	assert.Error(t, s.Connect(context.Background()))
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := srv.GetApp().Test(httptest.NewRequest(http.MethodGet, "/api/v2/nothing", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "intric_error_code")
}

func TestInfoBlobUploadField(t *testing.T) {
	srv, _ := newTestServer(t)
	app := srv.GetApp()

	tests := []struct {
		name     string
		field    string
		mimetype string
		status   int
		loc      []string
	}{
		{"file field", "file", "text/plain", http.StatusAccepted, nil},
		{"file upload field is not accepted", "upload_file", "text/plain", http.StatusBadRequest, nil},
		{"unsupported type reports the file field", "file", "image/png", http.StatusUnprocessableEntity, []string{"body", "file"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body bytes.Buffer
			w := multipart.NewWriter(&body)
			header := textproto.MIMEHeader{}
			header.Set("Content-Disposition", `form-data; name="`+tt.field+`"; filename="a.txt"`)
			header.Set("Content-Type", tt.mimetype)
			part, err := w.CreatePart(header)
			require.NoError(t, err)
			_, err = part.Write([]byte("notes"))
			require.NoError(t, err)
			require.NoError(t, w.Close())

			req := httptest.NewRequest(http.MethodPost, "/api/v1/groups/"+memory.HandbookGroupID+"/info-blobs/upload/", &body)
			req.Header.Set("Content-Type", w.FormDataContentType())
			req.Header.Set("api-key", testAPIKey)
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			if tt.loc != nil {
				var validationErr serverutils.ValidationError
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&validationErr))
				require.Len(t, validationErr.Detail, 1)
				assert.Equal(t, tt.loc, validationErr.Detail[0].Loc)
			}
		})
	}
}

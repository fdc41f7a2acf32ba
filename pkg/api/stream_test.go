package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEvents(t *testing.T) {
	input := strings.Join([]string{
		": keep-alive",
		"id: 1",
		"event: token",
		"data: hello",
		"",
		"data: multi",
		"data: line",
		"",
		"retry: 1000",
		"data:no-space",
		"",
		"data: tail",
	}, "\n")

	var got []Event
	err := readEvents(context.Background(), strings.NewReader(input), func(ev Event) error {
		got = append(got, ev)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []Event{
		{ID: "1", Event: "token", Data: "hello"},
		{ID: "1", Data: "multi\nline"},
		{ID: "1", Data: "no-space"},
		{ID: "1", Data: "tail"},
	}, got)
}

func TestReadEventsStopsOnHandlerError(t *testing.T) {
	stop := fmt.Errorf("stop")
	calls := 0
	err := readEvents(context.Background(), strings.NewReader("data: a\n\ndata: b\n\n"), func(Event) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func sse(w http.ResponseWriter, payloads ...any) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, p := range payloads {
		raw, _ := json.Marshal(p)
		fmt.Fprintf(w, "data: %s\n\n", raw)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

func TestAsk(t *testing.T) {
	t.Run("new session accumulates the answer", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/assistants/a1/sessions/", r.URL.Path)
			assert.Equal(t, "2", r.URL.Query().Get("version"))
			assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Hi?", body["question"])
			assert.Equal(t, true, body["stream"])
			assert.Equal(t, []any{map[string]any{"id": "f1"}}, body["files"])

			sse(w,
				map[string]any{"session_id": "s1", "answer": "Hel", "references": []any{}},
				map[string]any{"session_id": "s1", "answer": "lo", "references": []any{map[string]any{"id": "r1"}}},
				map[string]any{"session_id": "s1", "id": "m1", "answer": "", "references": []any{map[string]any{"id": "r1"}}},
			)
		})

		var tokens []string
		res, err := c.Assistants.Ask(context.Background(), AskParams{
			AssistantID: "a1",
			Question:    "Hi?",
			Files:       []Ref{{ID: "f1"}},
			OnAnswer: func(partial AssistantResponse, _ func()) {
				tokens = append(tokens, partial.Answer)
			},
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"Hel", "lo"}, tokens)
		assert.Equal(t, "Hello", res.Answer)
		assert.Equal(t, "Hi?", res.Question)
		assert.Equal(t, "m1", res.ID)
		assert.Equal(t, "s1", res.SessionID)
		assert.Len(t, res.References, 1)
	})

	t.Run("existing session uses session endpoint", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/assistants/a1/sessions/s9/", r.URL.Path)
			sse(w, map[string]any{"session_id": "s9", "answer": "ok"})
		})
		res, err := c.Assistants.Ask(context.Background(), AskParams{AssistantID: "a1", SessionID: "s9", Question: "q"})
		require.NoError(t, err)
		assert.Equal(t, "ok", res.Answer)
	})

	t.Run("abort from callback cancels the stream", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			sse(w, map[string]any{"session_id": "s1", "answer": "a"}, map[string]any{"session_id": "s1", "answer": "b"})
			<-r.Context().Done()
		})

		calls := 0
		_, err := c.Assistants.Ask(context.Background(), AskParams{
			AssistantID: "a1",
			Question:    "q",
			OnAnswer: func(_ AssistantResponse, abort func()) {
				calls++
				abort()
			},
		})
		assert.True(t, IsCancelled(err))
		assert.Equal(t, 1, calls)
	})

	t.Run("error status before streaming", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"message":"Session not found","intric_error_code":9010}`)
		})
		_, err := c.Assistants.Ask(context.Background(), AskParams{AssistantID: "a1", SessionID: "gone", Question: "q"})

		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 9010, apiErr.Code)
		assert.True(t, strings.HasPrefix(apiErr.Endpoint, "STREAM@"))
	})
}

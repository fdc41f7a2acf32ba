package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Event is a single server-sent event.
type Event struct {
	ID    string
	Event string
	Data  string
}

// Stream POSTs body and calls onEvent for every event of the response.
// Returning an error from onEvent stops the stream with that error; cancelling
// ctx stops it with a cancellation error.
func (c *Client) Stream(ctx context.Context, endpoint string, p Params, body any, onEvent func(Event) error) error {
	target := c.url(endpoint, p)
	label := "STREAM@" + target

	ctx, span := c.tracer.Start(ctx, "STREAM "+endpoint, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	raw, err := json.Marshal(body)
	if err != nil {
		return c.fail(span, &Error{Stage: StageUnknown, Endpoint: label, Message: err.Error(), Err: err})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(raw))
	if err != nil {
		return c.fail(span, transportError(label, err))
	}
	c.decorate(req, true)
	req.Header.Set("Accept", "text/event-stream")

	res, err := c.long.Do(req)
	if err != nil {
		return c.fail(span, transportError(label, err))
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return c.fail(span, decodeResponse(res, label, nil))
	}

	if err := readEvents(ctx, res.Body, onEvent); err != nil {
		return c.fail(span, transportError(label, err))
	}
	return nil
}

// readEvents parses an event stream. Comment and retry lines are ignored,
// multi-line data is joined with newlines.
func readEvents(ctx context.Context, r io.Reader, onEvent func(Event) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		ev      Event
		data    []string
		pending bool
	)

	dispatch := func() error {
		if !pending {
			return nil
		}
		ev.Data = strings.Join(data, "\n")
		current := ev
		ev = Event{ID: ev.ID}
		data = data[:0]
		pending = false

		if err := onEvent(current); err != nil {
			return err
		}
		return ctx.Err()
	}

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			if err := dispatch(); err != nil {
				return err
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "data":
			data = append(data, value)
			pending = true
		case "event":
			ev.Event = value
			pending = true
		case "id":
			ev.ID = value
		}
	}

	if err := scanner.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return dispatch()
}

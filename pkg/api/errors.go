package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Stage tells where a request failed.
type Stage string

const (
	StageConnection Stage = "CONNECTION"
	StageServer     Stage = "SERVER"
	StageResponse   Stage = "RESPONSE"
	StageUnknown    Stage = "UNKNOWN"
)

// Sentinels for errors.Is. An *Error matches exactly one of them, except that
// a 422 response matches both ErrResponse and ErrValidation.
var (
	ErrConnection = errors.New("api: connection failed")
	ErrServer     = errors.New("api: server error")
	ErrResponse   = errors.New("api: unexpected response")
	ErrValidation = errors.New("api: validation failed")
	ErrCancelled  = errors.New("api: request cancelled")
)

const (
	msgUpstream      = "Upstream server error"
	msgSeeDetails    = "See details for more info."
	msgValidation    = "A validation error occured."
	msgCancelled     = "Cancelled after receiving abort signal."
	msgUnparsable    = "Could not parse server response (1).\n%s"
	msgNoBody        = "No body received"
	msgUnknownFailed = "UNKNOWN ERROR"
)

// Error is returned by every Client call that did not succeed.
type Error struct {
	Message string
	Stage   Stage
	// Status is the HTTP status, 0 when no response was received.
	Status int
	// Code is the server supplied error code, 0 when absent.
	Code int
	// Response holds the raw error body, if any.
	Response json.RawMessage
	// Endpoint is METHOD@url, or STREAM@url for event streams.
	Endpoint string
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s (%d): %s", e.Stage, e.Endpoint, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Stage, e.Endpoint, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrCancelled:
		return e.cancelled()
	case ErrConnection:
		return e.Stage == StageConnection && !e.cancelled()
	case ErrServer:
		return e.Stage == StageServer
	case ErrResponse:
		return e.Stage == StageResponse
	case ErrValidation:
		return e.Status == http.StatusUnprocessableEntity
	}
	return false
}

func (e *Error) cancelled() bool {
	return errors.Is(e.Err, context.Canceled)
}

type validationBody struct {
	Detail []struct {
		Msg string `json:"msg"`
		Ctx *struct {
			Reason *string `json:"reason"`
		} `json:"ctx"`
	} `json:"detail"`
}

// ReadableMessage is suitable for showing to the user. Validation failures
// report the first field reason.
func (e *Error) ReadableMessage() string {
	if e.Status != http.StatusUnprocessableEntity {
		return e.Message
	}
	var body validationBody
	if err := json.Unmarshal(e.Response, &body); err != nil || len(body.Detail) == 0 {
		return msgValidation
	}
	first := body.Detail[0]
	if first.Ctx != nil && first.Ctx.Reason != nil {
		return *first.Ctx.Reason
	}
	if first.Msg != "" {
		return first.Msg
	}
	return msgValidation
}

// IsCancelled reports whether err stems from an aborted request.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

type errorBody struct {
	Message *string `json:"message"`
	Code    int     `json:"intric_error_code"`
}

// responseError builds the error for a non-2xx response.
func responseError(status int, endpoint string, body []byte) *Error {
	e := &Error{
		Stage:    StageResponse,
		Status:   status,
		Endpoint: endpoint,
		Message:  msgSeeDetails,
	}
	if status >= http.StatusInternalServerError {
		e.Stage = StageServer
	}
	if len(body) > 0 && json.Valid(body) {
		e.Response = json.RawMessage(body)
		var parsed errorBody
		if err := json.Unmarshal(body, &parsed); err == nil {
			e.Code = parsed.Code
			if parsed.Message != nil {
				e.Message = *parsed.Message
			}
		}
	}
	if status == http.StatusInternalServerError {
		e.Message = msgUpstream
	}
	return e
}

func unparsableError(status int, endpoint string, body []byte) *Error {
	text := string(body)
	if text == "" {
		text = msgNoBody
	}
	return &Error{
		Stage:    StageResponse,
		Status:   status,
		Endpoint: endpoint,
		Message:  fmt.Sprintf(msgUnparsable, text),
	}
}

// transportError classifies a failure that happened before a response.
func transportError(endpoint string, err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	e := &Error{Stage: StageConnection, Endpoint: endpoint, Message: err.Error(), Err: err}
	if errors.Is(err, context.Canceled) {
		e.Message = msgCancelled
	}
	return e
}

// Package api is a typed client for the assistant platform REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"ai-assistant-client/internal/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	moduleName     = "APIClient"
	defaultTimeout = 60 * time.Second
)

type Options struct {
	BaseURL string
	// APIKey takes precedence over Token.
	APIKey string
	Token  string
	// HTTPClient is used for plain requests. Streams and uploads use a copy
	// without a timeout. Defaults to a client with a 60s timeout.
	HTTPClient *http.Client
	Logger     logger.ILogger
}

// Client talks to the platform. It is safe for concurrent use.
type Client struct {
	baseURL string
	auth    http.Header
	http    *http.Client
	long    *http.Client
	logger  logger.ILogger
	tracer  trace.Tracer

	Assistants *AssistantsService
	Files      *FilesService
	Jobs       *JobsService
	InfoBlobs  *InfoBlobsService
	Spaces     *SpacesService
	Prompts    *PromptsService
	Templates  *TemplatesService
	Limits     *LimitsService
}

func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("api: base url is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("api: invalid base url: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	long := *httpClient
	long.Timeout = 0

	auth := http.Header{}
	switch {
	case opts.APIKey != "":
		auth.Set("api-key", opts.APIKey)
	case opts.Token != "":
		auth.Set("Authorization", "Bearer "+opts.Token)
	}

	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		auth:    auth,
		http:    httpClient,
		long:    &long,
		logger:  logger.OrNop(opts.Logger),
		tracer:  otel.Tracer("ai-assistant-client/api"),
	}
	c.Assistants = &AssistantsService{c}
	c.Files = &FilesService{c}
	c.Jobs = &JobsService{c}
	c.InfoBlobs = &InfoBlobsService{c}
	c.Spaces = &SpacesService{c}
	c.Prompts = &PromptsService{c}
	c.Templates = &TemplatesService{c}
	c.Limits = &LimitsService{c}
	return c, nil
}

// BaseURL returns the configured base url without trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Params fill an endpoint template. Path values replace {name} placeholders,
// empty query values are dropped.
type Params struct {
	Path  map[string]string
	Query map[string]string
}

func (c *Client) url(endpoint string, p Params) string {
	for name, value := range p.Path {
		endpoint = strings.ReplaceAll(endpoint, "{"+name+"}", url.PathEscape(value))
	}

	q := url.Values{}
	keys := make([]string, 0, len(p.Query))
	for k := range p.Query {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := p.Query[k]; v != "" {
			q.Set(k, v)
		}
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	return c.baseURL + endpoint
}

// Do sends a JSON request and decodes the JSON response into out, which may
// be nil.
func (c *Client) Do(ctx context.Context, method, endpoint string, p Params, body, out any) error {
	target := c.url(endpoint, p)
	label := method + "@" + target

	ctx, span := c.tracer.Start(ctx, method+" "+endpoint, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return c.fail(span, &Error{Stage: StageUnknown, Endpoint: label, Message: err.Error(), Err: err})
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return c.fail(span, transportError(label, err))
	}
	c.decorate(req, body != nil)

	res, err := c.http.Do(req)
	if err != nil {
		return c.fail(span, transportError(label, err))
	}
	defer res.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))

	if err := decodeResponse(res, label, out); err != nil {
		return c.fail(span, err)
	}
	return nil
}

func (c *Client) decorate(req *http.Request, jsonBody bool) {
	for k, v := range c.auth {
		req.Header[k] = v
	}
	if jsonBody {
		req.Header.Set("Content-Type", "application/json")
	}
}

func (c *Client) fail(span trace.Span, err *Error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Message)
	if !IsCancelled(err) {
		c.logger.Debug(moduleName, "Request failed", map[string]interface{}{
			"endpoint": err.Endpoint,
			"stage":    string(err.Stage),
			"status":   err.Status,
			"code":     err.Code,
		})
	}
	return err
}

func decodeResponse(res *http.Response, label string, out any) *Error {
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return transportError(label, err)
	}

	ok := res.StatusCode >= 200 && res.StatusCode < 300
	if !ok {
		if len(body) > 0 && !json.Valid(body) {
			return unparsableError(res.StatusCode, label, body)
		}
		return responseError(res.StatusCode, label, body)
	}

	if len(body) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return unparsableError(res.StatusCode, label, body)
	}
	return nil
}

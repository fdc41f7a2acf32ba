package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Progress reports bytes sent so far for an upload.
type Progress struct {
	Loaded int64
	Total  int64
}

// Percent is floor(loaded/total*100), 0 when total is unknown.
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return int(p.Loaded * 100 / p.Total)
}

// UploadFile is a file to send as multipart form data.
type UploadFile struct {
	Name     string
	Mimetype string
	Content  io.Reader
}

// Upload sends file as the multipart field and decodes the JSON response into
// out. onProgress, if set, is called as the body is written to the wire.
func (c *Client) Upload(ctx context.Context, endpoint string, p Params, field string, file UploadFile, onProgress func(Progress), out any) error {
	target := c.url(endpoint, p)
	label := http.MethodPost + "@" + target

	ctx, span := c.tracer.Start(ctx, "UPLOAD "+endpoint, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, file.Name))
	if file.Mimetype != "" {
		header.Set("Content-Type", file.Mimetype)
	} else {
		header.Set("Content-Type", "application/octet-stream")
	}
	part, err := form.CreatePart(header)
	if err == nil {
		_, err = io.Copy(part, file.Content)
	}
	if err == nil {
		err = form.Close()
	}
	if err != nil {
		return c.fail(span, &Error{Stage: StageUnknown, Endpoint: label, Message: err.Error(), Err: err})
	}

	total := int64(buf.Len())
	span.SetAttributes(attribute.Int64("upload.bytes", total))
	body := &progressReader{r: &buf, total: total, report: onProgress}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return c.fail(span, transportError(label, err))
	}
	req.ContentLength = total
	c.decorate(req, false)
	req.Header.Set("Content-Type", form.FormDataContentType())

	res, err := c.long.Do(req)
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

type progressReader struct {
	mu     sync.Mutex
	r      io.Reader
	loaded int64
	total  int64
	report func(Progress)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.report != nil {
		p.mu.Lock()
		p.loaded += int64(n)
		progress := Progress{Loaded: p.loaded, Total: p.total}
		p.mu.Unlock()
		p.report(progress)
	}
	return n, err
}

package main

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"ai-assistant-client/pkg/api"

	"github.com/fatih/color"
)

var (
	citationPattern = regexp.MustCompile(`<inref id="([^"]*)"\s*/>`)

	questionColor  = color.New(color.FgCyan, color.Bold)
	citationColor  = color.New(color.FgYellow)
	referenceColor = color.New(color.FgHiBlack)
	okColor        = color.New(color.FgGreen)
	failColor      = color.New(color.FgRed)
)

// citations numbers the references of one answer in order of first use.
type citations struct {
	order []string
	index map[string]int
}

func newCitations() *citations {
	return &citations{index: make(map[string]int)}
}

func (c *citations) number(id string) int {
	if n, ok := c.index[id]; ok {
		return n
	}
	c.order = append(c.order, id)
	c.index[id] = len(c.order)
	return len(c.order)
}

// render replaces citation markup with [n] markers. Text arrives in pieces
// that never split a tag.
func (c *citations) render(text string) string {
	return citationPattern.ReplaceAllStringFunc(text, func(tag string) string {
		id := citationPattern.FindStringSubmatch(tag)[1]
		return citationColor.Sprintf("[%d]", c.number(id))
	})
}

// writeReferences lists the cited references, then any that were not cited.
func (c *citations) writeReferences(w io.Writer, refs []api.Reference) {
	if len(refs) == 0 {
		return
	}
	byID := make(map[string]api.Reference, len(refs))
	for _, r := range refs {
		byID[r.ID] = r
	}
	for _, r := range refs {
		c.number(r.ID)
	}
	fmt.Fprintln(w)
	for i, id := range c.order {
		r, ok := byID[id]
		title := id
		if ok && r.Title != "" {
			title = r.Title
		}
		referenceColor.Fprintf(w, "  [%d] %s\n", i+1, title)
	}
}

func writeMessage(w io.Writer, msg api.Message) {
	questionColor.Fprintf(w, "> %s\n", msg.Question)
	refs := newCitations()
	fmt.Fprintln(w, refs.render(msg.Answer))
	refs.writeReferences(w, msg.References)
	fmt.Fprintln(w)
}

func writeJob(w io.Writer, job api.Job) {
	name := job.ID
	if job.Name != nil {
		name = *job.Name
	}
	status := string(job.Status)
	switch job.Status {
	case api.JobComplete:
		status = okColor.Sprint(status)
	case api.JobFailed, api.JobNotFound:
		status = failColor.Sprint(status)
	}
	fmt.Fprintf(w, "%-36s  %-12s  %s\n", job.ID, status, name)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// readable picks the message a user should see for err.
func readable(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return strings.TrimSpace(fmt.Sprintf("%s (%s)", apiErr.ReadableMessage(), apiErr.Stage))
	}
	return err.Error()
}

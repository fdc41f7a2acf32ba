// Package alert is the sink for messages that must reach the user, as opposed
// to diagnostics which go to the logger.
package alert

import (
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

type Alerter interface {
	Alert(message string)
}

// Func adapts a plain function.
type Func func(message string)

func (f Func) Alert(message string) { f(message) }

// Console prints alerts in red to a writer, stderr by default.
type Console struct {
	mu  sync.Mutex
	out io.Writer
	c   *color.Color
}

func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stderr
	}
	return &Console{out: out, c: color.New(color.FgRed, color.Bold)}
}

func (a *Console) Alert(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.c.Fprintf(a.out, "! %s\n", message)
}

// Recorder keeps every alert in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *Recorder) Alert(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

// OrDiscard returns a, or an alerter that drops everything when a is nil.
func OrDiscard(a Alerter) Alerter {
	if a == nil {
		return Func(func(string) {})
	}
	return a
}

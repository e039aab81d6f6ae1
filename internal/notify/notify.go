// Package notify carries user-facing notifications (the toasts of the
// dashboard) from flows to whatever front end is attached.
package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
)

type Level string

const (
	Success Level = "success"
	Error   Level = "error"
	Info    Level = "info"
)

type Notification struct {
	Level   Level
	Title   string
	Message string
}

// Notifier must not block the caller for long; flows call it inline.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// LogNotifier writes notifications to the global zerolog logger.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) {
	evt := log.Info()
	if n.Level == Error {
		evt = log.Warn()
	}
	evt.Str("level_ui", string(n.Level)).Str("title", n.Title).Msg(n.Message)
}

// WriterNotifier prints one line per notification, for terminals.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier { return &WriterNotifier{w: w} }

func (n *WriterNotifier) Notify(_ context.Context, note Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	mark := "i"
	switch note.Level {
	case Success:
		mark = "✓"
	case Error:
		mark = "✗"
	}
	fmt.Fprintf(n.w, "%s %s: %s\n", mark, note.Title, note.Message)
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, x := range m {
		if x != nil {
			x.Notify(ctx, n)
		}
	}
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

package notification

import (
	"sync"

	"go.uber.org/zap"
)

// Severity classifies a user-facing notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Toast is a notification as rendered by the browser.
type Toast struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Sink receives notifications. Implementations must not block for long and must not panic.
type Sink interface {
	Notify(message string, severity Severity)
}

// Feed buffers toasts for one wizard session until the next response drains them.
type Feed struct {
	mu     sync.Mutex
	toasts []Toast
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{}
}

// Notify appends a toast.
func (f *Feed) Notify(message string, severity Severity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toasts = append(f.toasts, Toast{Message: message, Severity: severity})
}

// Drain returns every buffered toast and empties the feed.
func (f *Feed) Drain() []Toast {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.toasts
	f.toasts = nil
	if out == nil {
		out = []Toast{}
	}
	return out
}

// Peek returns a copy of the buffered toasts without draining them.
func (f *Feed) Peek() []Toast {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Toast{}, f.toasts...)
}

// LogSink writes toasts to a logger.
type LogSink struct {
	Log *zap.Logger
}

// Notify logs the toast; errors are logged at warn level so they surface in production logs.
func (s LogSink) Notify(message string, severity Severity) {
	if s.Log == nil {
		return
	}
	fields := []zap.Field{zap.String("severity", string(severity))}
	if severity == SeverityError {
		s.Log.Warn(message, fields...)
		return
	}
	s.Log.Debug(message, fields...)
}

// Fanout delivers each notification to every sink in order.
type Fanout []Sink

// Notify forwards to all sinks.
func (f Fanout) Notify(message string, severity Severity) {
	for _, s := range f {
		if s != nil {
			s.Notify(message, severity)
		}
	}
}

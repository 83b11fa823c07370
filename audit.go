package sessionguard

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Audit event types emitted by the guard.
const (
	AuditCheckGranted      = "guard.granted"
	AuditCheckDeniedLogin  = "guard.denied_login"
	AuditCheckDeniedRole   = "guard.denied_role"
	AuditAuthBounce        = "guard.auth_bounce"
	AuditRevalidateExpired = "guard.revalidate_expired"
	AuditLogout            = "guard.logout"
)

// AuditEvent is a structured record of one guard decision. ID and Timestamp
// are stamped by the dispatcher when left empty.
type AuditEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	UserID    string    `json:"user_id,omitempty"`
	Role      string    `json:"role,omitempty"`
	Path      string    `json:"path,omitempty"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Granted   bool      `json:"granted"`
	Error     string    `json:"error,omitempty"`
}

// AuditSink receives events from the guard's audit dispatcher. Emit must be
// safe for concurrent use and should return promptly; slow sinks cause
// drops (DropIfFull) or backpressure on access checks.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink silently discards all events.
type NoOpSink struct{}

// Emit implements [AuditSink].
func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink forwards events into a buffered channel, for integrators that
// want to consume the stream themselves.
type ChannelSink struct {
	events chan AuditEvent
}

// NewChannelSink creates a ChannelSink with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan AuditEvent, buffer)}
}

// Emit implements [AuditSink].
func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON-encoded event per line to an io.Writer.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink creates a JSONWriterSink that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

// Emit implements [AuditSink].
func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

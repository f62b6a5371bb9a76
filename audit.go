package authcore

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// AuditEventType names the security-relevant occurrences the engine reports.
// The set is closed: sinks can switch over it exhaustively.
type AuditEventType string

const (
	// AuditLoginSuccess is an exported constant or variable used by the authentication engine.
	AuditLoginSuccess AuditEventType = "login_success"
	// AuditLoginFailure is an exported constant or variable used by the authentication engine.
	AuditLoginFailure AuditEventType = "login_failure"
	// AuditLoginRateLimited is an exported constant or variable used by the authentication engine.
	AuditLoginRateLimited AuditEventType = "login_rate_limited"
	// AuditAccountLocked is an exported constant or variable used by the authentication engine.
	AuditAccountLocked AuditEventType = "account_locked"
	// AuditRefreshSuccess is an exported constant or variable used by the authentication engine.
	AuditRefreshSuccess AuditEventType = "refresh_success"
	// AuditRefreshInvalid is an exported constant or variable used by the authentication engine.
	AuditRefreshInvalid AuditEventType = "refresh_invalid"
	// AuditLogout is an exported constant or variable used by the authentication engine.
	AuditLogout AuditEventType = "logout"
	// AuditTokenRevoked is an exported constant or variable used by the authentication engine.
	AuditTokenRevoked AuditEventType = "token_revoked"
	// AuditCSRFRejected is an exported constant or variable used by the authentication engine.
	AuditCSRFRejected AuditEventType = "csrf_rejected"
)

// AuditActor identifies the account an event concerns. It stays zero for
// events recorded before any account resolved: unknown email, rate refusals,
// CSRF rejections.
type AuditActor struct {
	AccountID string `json:"account_id,omitempty"`
	Class     string `json:"class,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// AuditEvent is one recorded security event. Code is set on failures only;
// Detail carries small event-specific context (failure reason, counter
// values) and never secrets.
type AuditEvent struct {
	At      time.Time         `json:"at"`
	Type    AuditEventType    `json:"type"`
	Actor   AuditActor        `json:"actor"`
	IP      string            `json:"ip,omitempty"`
	Success bool              `json:"success"`
	Code    AuditErrorCode    `json:"code,omitempty"`
	Detail  map[string]string `json:"detail,omitempty"`
}

// AuditSink receives events from the engine's dispatcher, one call at a
// time. Implementations must not block indefinitely; a slow sink backs up
// the dispatcher queue and events start dropping.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards every event. It backs audit-enabled engines that were
// built without an explicit sink.
type NoOpSink struct{}

// Emit describes the emit operation and its observable behavior.
func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink forwards events to a buffered channel so callers can consume
// them on their own goroutine (tests, custom shippers).
type ChannelSink struct {
	events chan AuditEvent
}

// NewChannelSink describes the newchannelsink operation and its observable behavior.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuditEvent, buffer),
	}
}

// Emit describes the emit operation and its observable behavior.
//
// Emit does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events describes the events operation and its observable behavior.
func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line, suitable for piping into
// a log shipper or a file.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONWriterSink describes the newjsonwritersink operation and its observable behavior.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		return &JSONWriterSink{}
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

// Emit describes the emit operation and its observable behavior.
//
// Emit does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.enc == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.enc.Encode(event)
}

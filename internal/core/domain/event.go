package domain

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrorEvent is one captured failure: what went wrong, where, how bad,
// and a snapshot of application state at the moment of capture.
type ErrorEvent struct {
	ID          string         `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	Message     string         `json:"message"`
	StackTrace  string         `json:"stack_trace,omitempty"`
	Severity    Severity       `json:"severity"`
	ErrorType   ErrorType      `json:"error_type"`
	IsTransient bool           `json:"is_transient"`
	Operation   string         `json:"operation"`
	AppState    map[string]any `json:"app_state,omitempty"`
}

// lastEventMillis is the millisecond timestamp of the most recently
// issued event ID. IDs never use an earlier timestamp than a previous
// one, so lexicographic ID order tracks creation order even across
// clock adjustments.
var lastEventMillis atomic.Int64

// NewEventID issues a unique event identifier built from a
// non-decreasing millisecond timestamp and a random suffix.
func NewEventID() string {
	ms := time.Now().UnixMilli()
	for {
		last := lastEventMillis.Load()
		if ms < last {
			ms = last
		}
		if lastEventMillis.CompareAndSwap(last, ms) {
			break
		}
	}
	return fmt.Sprintf("evt_%d_%s", ms, uuid.NewString()[:8])
}

// NewErrorEvent builds an event with a fresh ID and timestamp.
// Unknown severities and types are normalized rather than rejected so
// that capture never fails on malformed input: severity falls back to
// error, type to logic.
func NewErrorEvent(message, operation string, severity Severity, errType ErrorType) *ErrorEvent {
	if message == "" {
		message = "unknown error"
	}
	if operation == "" {
		operation = "unknown"
	}
	if !severity.Valid() {
		severity = SeverityError
	}
	if !errType.Valid() {
		errType = ErrorTypeLogic
	}
	return &ErrorEvent{
		ID:          NewEventID(),
		Timestamp:   time.Now().UTC(),
		Message:     message,
		Severity:    severity,
		ErrorType:   errType,
		IsTransient: errType.Transient(),
		Operation:   operation,
	}
}

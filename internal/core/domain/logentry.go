package domain

import (
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
)

// DeviceInfo identifies the runtime an entry was recorded on.
type DeviceInfo struct {
	Platform string `json:"platform"`
	Version  string `json:"version"`
}

// LogEntry is the operational envelope around an ErrorEvent: which
// component and environment produced it and the identifiers needed to
// stitch it into a session or a cross-service trace.
type LogEntry struct {
	EntryID       string      `json:"entry_id"`
	ErrorEventID  string      `json:"error_event_id"`
	LogLevel      Severity    `json:"log_level"`
	Component     string      `json:"component"`
	Environment   string      `json:"environment"`
	Device        *DeviceInfo `json:"device_info,omitempty"`
	SessionID     string      `json:"session_id,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	RecordedAt    time.Time   `json:"recorded_at"`
}

// NewLogEntry builds an entry for an event. Component and environment
// are required; the correlation id and device info are filled in
// automatically when not supplied afterwards.
func NewLogEntry(errorEventID string, level Severity, component, environment string) (*LogEntry, error) {
	if errorEventID == "" {
		return nil, fmt.Errorf("log entry requires an event id")
	}
	if component == "" {
		return nil, fmt.Errorf("log entry requires a component")
	}
	if environment == "" {
		return nil, fmt.Errorf("log entry requires an environment")
	}
	if !level.Valid() {
		return nil, fmt.Errorf("unknown log level: %q", level)
	}
	return &LogEntry{
		EntryID:       "log_" + uuid.NewString(),
		ErrorEventID:  errorEventID,
		LogLevel:      level,
		Component:     component,
		Environment:   environment,
		CorrelationID: uuid.NewString(),
		Device: &DeviceInfo{
			Platform: runtime.GOOS,
			Version:  runtime.Version(),
		},
		RecordedAt: time.Now().UTC(),
	}, nil
}

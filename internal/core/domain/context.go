package domain

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// NetworkState describes connectivity at the moment an error occurred.
type NetworkState string

const (
	NetworkConnected    NetworkState = "connected"
	NetworkDisconnected NetworkState = "disconnected"
	NetworkLimited      NetworkState = "limited"
)

// NavigationState records where in the application the user was.
type NavigationState struct {
	CurrentRoute  string `json:"current_route"`
	PreviousRoute string `json:"previous_route,omitempty"`
}

// PerformanceMetrics carries optional resource readings captured with
// the error. Nil pointer means the reading was unavailable.
type PerformanceMetrics struct {
	MemoryUsage *float64 `json:"memory_usage,omitempty"` // bytes
	CPUUsage    *float64 `json:"cpu_usage,omitempty"`    // percent, 0-100
}

// ErrorContext is the situational snapshot attached to an ErrorEvent:
// what the user was doing, where they were, and what data was in play.
type ErrorContext struct {
	ContextID    string              `json:"context_id"`
	ErrorEventID string              `json:"error_event_id"`
	UserAction   string              `json:"user_action,omitempty"`
	Navigation   *NavigationState    `json:"navigation,omitempty"`
	DataState    map[string]any      `json:"data_state,omitempty"`
	Network      NetworkState        `json:"network_state,omitempty"`
	Performance  *PerformanceMetrics `json:"performance,omitempty"`
}

// RedactedValue replaces data-state values whose keys look sensitive.
const RedactedValue = "[REDACTED]"

// sensitiveKeyMarkers are substrings that mark a data-state key as
// likely to hold credentials or personal data.
var sensitiveKeyMarkers = []string{
	"password", "token", "secret", "key", "auth", "credential", "ssn", "credit",
}

// sensitiveScanDepth bounds how far SensitiveKeys descends into nested
// maps. Deeper structure is left unscanned.
const sensitiveScanDepth = 3

// NewErrorContext builds an empty context bound to an event.
func NewErrorContext(errorEventID string) (*ErrorContext, error) {
	if errorEventID == "" {
		return nil, fmt.Errorf("error context requires an event id")
	}
	return &ErrorContext{
		ContextID:    "ctx_" + uuid.NewString(),
		ErrorEventID: errorEventID,
	}, nil
}

// Validate checks the context invariants: the event binding must be
// present and any performance readings must be in range.
func (c *ErrorContext) Validate() error {
	if c.ErrorEventID == "" {
		return fmt.Errorf("error context %s has no event id", c.ContextID)
	}
	if p := c.Performance; p != nil {
		if p.MemoryUsage != nil && *p.MemoryUsage < 0 {
			return fmt.Errorf("memory usage must be non-negative, got %f", *p.MemoryUsage)
		}
		if p.CPUUsage != nil && (*p.CPUUsage < 0 || *p.CPUUsage > 100) {
			return fmt.Errorf("cpu usage must be within [0,100], got %f", *p.CPUUsage)
		}
	}
	return nil
}

// Merge copies the fields set on partial into c. The partial's
// identity fields are ignored; the binding established at construction
// wins. Returns the sensitive keys found in any merged data state.
func (c *ErrorContext) Merge(partial *ErrorContext) []string {
	if partial == nil {
		return nil
	}
	if partial.UserAction != "" {
		c.UserAction = partial.UserAction
	}
	if partial.Navigation != nil {
		nav := *partial.Navigation
		c.Navigation = &nav
	}
	if partial.Network != "" {
		c.Network = partial.Network
	}
	if partial.Performance != nil {
		perf := *partial.Performance
		c.Performance = &perf
	}
	if partial.DataState != nil {
		return c.SetDataState(partial.DataState)
	}
	return nil
}

// SetDataState replaces the data-state snapshot and scans it for keys
// that look sensitive. Matches are reported with a warning but the
// values are kept; call SanitizeDataState to redact them.
func (c *ErrorContext) SetDataState(data map[string]any) []string {
	c.DataState = data
	matches := SensitiveKeys(data)
	if len(matches) > 0 {
		slog.Warn("sensitive keys detected in error context data state",
			"context_id", c.ContextID,
			"keys", matches)
	}
	return matches
}

// SanitizeDataState replaces the values of sensitive keys with the
// redaction marker, in place, and returns how many were replaced.
func (c *ErrorContext) SanitizeDataState() int {
	return sanitizeMap(c.DataState, 0)
}

// SensitiveKeys walks data up to three levels deep and returns the
// keys whose lowercase form contains a sensitive marker.
func SensitiveKeys(data map[string]any) []string {
	var matches []string
	scanMap(data, 0, &matches)
	return matches
}

func scanMap(data map[string]any, depth int, matches *[]string) {
	if data == nil || depth >= sensitiveScanDepth {
		return
	}
	for k, v := range data {
		if keyLooksSensitive(k) {
			*matches = append(*matches, k)
		}
		if nested, ok := v.(map[string]any); ok {
			scanMap(nested, depth+1, matches)
		}
	}
}

func sanitizeMap(data map[string]any, depth int) int {
	if data == nil || depth >= sensitiveScanDepth {
		return 0
	}
	replaced := 0
	for k, v := range data {
		if keyLooksSensitive(k) {
			data[k] = RedactedValue
			replaced++
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			replaced += sanitizeMap(nested, depth+1)
		}
	}
	return replaced
}

func keyLooksSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range sensitiveKeyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

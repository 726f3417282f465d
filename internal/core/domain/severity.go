package domain

import (
	"fmt"
	"log/slog"
	"strings"
)

// Severity classifies how serious a recorded failure is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityError    Severity = "error"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
	SeverityDebug    Severity = "debug"
)

// severityRank orders severities from most to least serious.
var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityError:    1,
	SeverityWarning:  2,
	SeverityInfo:     3,
	SeverityDebug:    4,
}

// Valid reports whether s is one of the five known severities.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// Rank returns the ordering position of the severity (0 = most serious).
// Unknown severities rank last.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return len(severityRank)
}

// SlogLevel maps the severity onto the slog level used when mirroring
// events to the console sink. Critical maps to slog's error level; the
// severity itself is carried as an attribute.
func (s Severity) SlogLevel() slog.Level {
	switch s {
	case SeverityCritical, SeverityError:
		return slog.LevelError
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// ParseSeverity converts a string to a Severity.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(s))
	if !sev.Valid() {
		return "", fmt.Errorf("unknown severity: %q", s)
	}
	return sev, nil
}

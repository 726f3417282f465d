package domain

import (
	"fmt"
	"strings"
)

// ErrorType is the coarse failure category an event is filed under.
// Classification drives which recovery policy applies and which user
// surface notification is shown.
type ErrorType string

const (
	ErrorTypeNetwork        ErrorType = "network"
	ErrorTypeDatabase       ErrorType = "database"
	ErrorTypeLogic          ErrorType = "logic"
	ErrorTypeUI             ErrorType = "ui"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeStorage        ErrorType = "storage"
)

var knownErrorTypes = map[ErrorType]struct{}{
	ErrorTypeNetwork:        {},
	ErrorTypeDatabase:       {},
	ErrorTypeLogic:          {},
	ErrorTypeUI:             {},
	ErrorTypeAuthentication: {},
	ErrorTypeStorage:        {},
}

// Valid reports whether t is one of the known error types.
func (t ErrorType) Valid() bool {
	_, ok := knownErrorTypes[t]
	return ok
}

// Transient reports whether failures of this type tend to clear on
// their own. Transient events default to retry-based recovery.
func (t ErrorType) Transient() bool {
	switch t {
	case ErrorTypeNetwork, ErrorTypeDatabase, ErrorTypeStorage:
		return true
	default:
		return false
	}
}

// Recoverable reports whether automatic recovery is worth attempting
// for this type at all. UI and logic failures need a code fix, not a
// retry loop.
func (t ErrorType) Recoverable() bool {
	switch t {
	case ErrorTypeNetwork, ErrorTypeDatabase, ErrorTypeAuthentication:
		return true
	default:
		return false
	}
}

// ErrorTypes returns all known error types in a stable order.
func ErrorTypes() []ErrorType {
	return []ErrorType{
		ErrorTypeNetwork,
		ErrorTypeDatabase,
		ErrorTypeLogic,
		ErrorTypeUI,
		ErrorTypeAuthentication,
		ErrorTypeStorage,
	}
}

// ParseErrorType converts a string to an ErrorType.
func ParseErrorType(s string) (ErrorType, error) {
	t := ErrorType(strings.ToLower(s))
	if !t.Valid() {
		return "", fmt.Errorf("unknown error type: %q", s)
	}
	return t, nil
}

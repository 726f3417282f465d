package domain

import (
	"strings"
	"testing"
)

// ============================================================================
// Test Event IDs
// ============================================================================

func TestNewEventIDOrderingAndUniqueness(t *testing.T) {
	const n = 200
	ids := make([]string, 0, n)
	seen := make(map[string]struct{}, n)

	for i := 0; i < n; i++ {
		id := NewEventID()
		if !strings.HasPrefix(id, "evt_") {
			t.Fatalf("id %q missing evt_ prefix", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	// Issued-in-order ids carry non-decreasing timestamps.
	for i := 1; i < n; i++ {
		if eventIDMillis(t, ids[i]) < eventIDMillis(t, ids[i-1]) {
			t.Fatalf("id timestamps regressed: %q after %q", ids[i], ids[i-1])
		}
	}
}

func eventIDMillis(t *testing.T, id string) int64 {
	t.Helper()
	parts := strings.Split(id, "_")
	if len(parts) != 3 {
		t.Fatalf("malformed id %q", id)
	}
	var ms int64
	for _, c := range parts[1] {
		if c < '0' || c > '9' {
			t.Fatalf("non-numeric timestamp in %q", id)
		}
		ms = ms*10 + int64(c-'0')
	}
	return ms
}

// ============================================================================
// Test Event Construction
// ============================================================================

func TestNewErrorEvent(t *testing.T) {
	ev := NewErrorEvent("connection refused", "fetch_profile", SeverityError, ErrorTypeNetwork)

	if ev.ID == "" {
		t.Error("expected generated id")
	}
	if ev.Timestamp.IsZero() {
		t.Error("expected timestamp")
	}
	if !ev.IsTransient {
		t.Error("network errors are transient")
	}
	if ev.Operation != "fetch_profile" {
		t.Errorf("Operation = %q, want fetch_profile", ev.Operation)
	}
}

func TestNewErrorEventNormalizesBadInput(t *testing.T) {
	ev := NewErrorEvent("", "", "shouting", "mystery")

	if ev.Message != "unknown error" {
		t.Errorf("Message = %q, want fallback", ev.Message)
	}
	if ev.Operation != "unknown" {
		t.Errorf("Operation = %q, want fallback", ev.Operation)
	}
	if ev.Severity != SeverityError {
		t.Errorf("Severity = %q, want %q", ev.Severity, SeverityError)
	}
	if ev.ErrorType != ErrorTypeLogic {
		t.Errorf("ErrorType = %q, want %q", ev.ErrorType, ErrorTypeLogic)
	}
	if ev.IsTransient {
		t.Error("logic errors are not transient")
	}
}

// ============================================================================
// Test Classification Attributes
// ============================================================================

func TestErrorTypeTransience(t *testing.T) {
	tests := []struct {
		errType     ErrorType
		transient   bool
		recoverable bool
	}{
		{ErrorTypeNetwork, true, true},
		{ErrorTypeDatabase, true, true},
		{ErrorTypeStorage, true, false},
		{ErrorTypeAuthentication, false, true},
		{ErrorTypeUI, false, false},
		{ErrorTypeLogic, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			if got := tt.errType.Transient(); got != tt.transient {
				t.Errorf("Transient() = %v, want %v", got, tt.transient)
			}
			if got := tt.errType.Recoverable(); got != tt.recoverable {
				t.Errorf("Recoverable() = %v, want %v", got, tt.recoverable)
			}
		})
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in      string
		want    Severity
		wantErr bool
	}{
		{"critical", SeverityCritical, false},
		{"ERROR", SeverityError, false},
		{"Warning", SeverityWarning, false},
		{"info", SeverityInfo, false},
		{"debug", SeverityDebug, false},
		{"loud", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSeverity(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSeverity(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSeverity(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSeverityRankOrdering(t *testing.T) {
	ordered := []Severity{SeverityCritical, SeverityError, SeverityWarning, SeverityInfo, SeverityDebug}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Rank() >= ordered[i].Rank() {
			t.Errorf("%s should rank before %s", ordered[i-1], ordered[i])
		}
	}
	if Severity("bogus").Rank() <= SeverityDebug.Rank() {
		t.Error("unknown severities must rank last")
	}
}

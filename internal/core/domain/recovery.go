package domain

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ActionType names a recovery strategy.
type ActionType string

const (
	ActionRetry          ActionType = "retry"
	ActionFallback       ActionType = "fallback"
	ActionUserPrompt     ActionType = "user_prompt"
	ActionFailGracefully ActionType = "fail_gracefully"
)

var knownActionTypes = map[ActionType]struct{}{
	ActionRetry:          {},
	ActionFallback:       {},
	ActionUserPrompt:     {},
	ActionFailGracefully: {},
}

// Valid reports whether t is a known action type.
func (t ActionType) Valid() bool {
	_, ok := knownActionTypes[t]
	return ok
}

// RetryState is the lifecycle position of a retry-based action.
//
//	idle      -> retrying   (first IncrementRetry)
//	retrying  -> retrying   (IncrementRetry below the limit)
//	retrying  -> exhausted  (IncrementRetry reaches the limit)
//	any       -> idle       (ResetRetries)
type RetryState string

const (
	RetryStateIdle      RetryState = "idle"
	RetryStateRetrying  RetryState = "retrying"
	RetryStateExhausted RetryState = "exhausted"
)

// ExecutionRecord is one dispatched recovery attempt.
type ExecutionRecord struct {
	At      time.Time `json:"at"`
	Success bool      `json:"success"`
	Error   string    `json:"error,omitempty"`
}

// historyCap bounds the execution history kept per action.
const historyCap = 10

// Defaults applied to retry actions constructed without explicit
// pacing.
const (
	DefaultRetryDelay = time.Second
	DefaultMaxRetries = 3
)

// ActionSpec describes a recovery action to construct. Zero RetryDelay
// and MaxRetries take the defaults for retry actions.
type ActionSpec struct {
	ActionID         string        `json:"action_id,omitempty"`
	ErrorType        ErrorType     `json:"error_type"`
	ActionType       ActionType    `json:"action_type"`
	RetryCount       int           `json:"retry_count,omitempty"`
	RetryDelay       time.Duration `json:"-"`
	RetryDelayMS     int64         `json:"retry_delay_ms,omitempty"`
	MaxRetries       int           `json:"max_retries,omitempty"`
	FallbackBehavior string        `json:"fallback_behavior,omitempty"`
	UserMessage      string        `json:"user_message,omitempty"`
}

// RecoveryAction is the policy and live state for recovering from one
// error type. Configuration fields are fixed at construction; the
// retry counters and execution history mutate under the lock as
// attempts are dispatched.
type RecoveryAction struct {
	ActionID         string
	ErrorType        ErrorType
	ActionType       ActionType
	RetryDelay       time.Duration
	MaxRetries       int
	FallbackBehavior string
	UserMessage      string

	mu           sync.Mutex
	retries      int
	lastExecuted time.Time
	history      []ExecutionRecord
}

// NewRecoveryAction validates the spec and builds an action.
func NewRecoveryAction(spec ActionSpec) (*RecoveryAction, error) {
	if !spec.ErrorType.Valid() {
		return nil, fmt.Errorf("unknown error type: %q", spec.ErrorType)
	}
	if !spec.ActionType.Valid() {
		return nil, fmt.Errorf("unknown action type: %q", spec.ActionType)
	}
	if spec.RetryCount < 0 {
		return nil, fmt.Errorf("retry count must be non-negative, got %d", spec.RetryCount)
	}
	if spec.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries must be non-negative, got %d", spec.MaxRetries)
	}
	if spec.RetryDelay < 0 {
		return nil, fmt.Errorf("retry delay must be non-negative, got %s", spec.RetryDelay)
	}

	a := &RecoveryAction{
		ActionID:         spec.ActionID,
		ErrorType:        spec.ErrorType,
		ActionType:       spec.ActionType,
		RetryDelay:       spec.RetryDelay,
		MaxRetries:       spec.MaxRetries,
		FallbackBehavior: spec.FallbackBehavior,
		UserMessage:      spec.UserMessage,
		retries:          spec.RetryCount,
	}
	if a.ActionID == "" {
		a.ActionID = "act_" + uuid.NewString()
	}
	if a.ActionType == ActionRetry {
		if a.RetryDelay == 0 {
			a.RetryDelay = DefaultRetryDelay
		}
		if a.MaxRetries == 0 {
			a.MaxRetries = DefaultMaxRetries
		}
		if a.retries > a.MaxRetries {
			return nil, fmt.Errorf("retry count %d exceeds max retries %d", a.retries, a.MaxRetries)
		}
	}
	if a.ActionType == ActionUserPrompt || a.ActionType == ActionFailGracefully {
		if a.UserMessage == "" {
			a.UserMessage = fmt.Sprintf("The operation could not be completed (%s error).", a.ErrorType)
		}
	}
	return a, nil
}

// State derives the lifecycle position from the retry counters.
// Non-retry actions are always idle.
func (a *RecoveryAction) State() RetryState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stateLocked()
}

func (a *RecoveryAction) stateLocked() RetryState {
	if a.ActionType != ActionRetry {
		return RetryStateIdle
	}
	switch {
	case a.retries == 0:
		return RetryStateIdle
	case a.retries < a.MaxRetries:
		return RetryStateRetrying
	default:
		return RetryStateExhausted
	}
}

// CanRetry reports whether another retry may be dispatched. Only retry
// actions with budget left qualify.
func (a *RecoveryAction) CanRetry() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ActionType == ActionRetry && a.retries < a.MaxRetries
}

// IsExhausted reports whether a retry action has used its full budget.
func (a *RecoveryAction) IsExhausted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ActionType == ActionRetry && a.retries >= a.MaxRetries
}

// IncrementRetry consumes one unit of retry budget and stamps the
// execution time. Calling it on a non-retry action is a programming
// error and panics. The counter never passes MaxRetries.
func (a *RecoveryAction) IncrementRetry() {
	if a.ActionType != ActionRetry {
		panic(fmt.Sprintf("IncrementRetry on %s action %s", a.ActionType, a.ActionID))
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.retries < a.MaxRetries {
		a.retries++
	}
	a.lastExecuted = time.Now().UTC()
}

// ResetRetries returns a retry action to idle and clears its history.
// Calling it on a non-retry action panics.
func (a *RecoveryAction) ResetRetries() {
	if a.ActionType != ActionRetry {
		panic(fmt.Sprintf("ResetRetries on %s action %s", a.ActionType, a.ActionID))
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.retries = 0
	a.lastExecuted = time.Time{}
	a.history = nil
}

// CurrentRetries returns how much retry budget has been consumed.
func (a *RecoveryAction) CurrentRetries() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.retries
}

// LastExecutedAt returns when the action last dispatched, zero if
// never.
func (a *RecoveryAction) LastExecutedAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastExecuted
}

// TimeUntilNextRetry returns how long to wait before the next dispatch
// honors the configured delay. Zero when the delay has already passed
// or nothing has executed yet.
func (a *RecoveryAction) TimeUntilNextRetry() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastExecuted.IsZero() {
		return 0
	}
	remaining := a.RetryDelay - time.Since(a.lastExecuted)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RecordExecution appends an attempt outcome to the history, keeping
// only the most recent entries.
func (a *RecoveryAction) RecordExecution(success bool, err error) {
	rec := ExecutionRecord{At: time.Now().UTC(), Success: success}
	if err != nil {
		rec.Error = err.Error()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history, rec)
	if len(a.history) > historyCap {
		copy(a.history, a.history[1:])
		a.history = a.history[:historyCap]
	}
}

// History returns a copy of the recorded attempts, oldest first.
func (a *RecoveryAction) History() []ExecutionRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ExecutionRecord, len(a.history))
	copy(out, a.history)
	return out
}

// SuccessRate returns the fraction of recorded attempts that
// succeeded, zero when nothing has been recorded.
func (a *RecoveryAction) SuccessRate() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.history) == 0 {
		return 0
	}
	succeeded := 0
	for _, rec := range a.history {
		if rec.Success {
			succeeded++
		}
	}
	return float64(succeeded) / float64(len(a.history))
}

// ToJSON serializes the action's configuration and retry progress.
func (a *RecoveryAction) ToJSON() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return json.Marshal(ActionSpec{
		ActionID:         a.ActionID,
		ErrorType:        a.ErrorType,
		ActionType:       a.ActionType,
		RetryCount:       a.retries,
		RetryDelayMS:     a.RetryDelay.Milliseconds(),
		MaxRetries:       a.MaxRetries,
		FallbackBehavior: a.FallbackBehavior,
		UserMessage:      a.UserMessage,
	})
}

// RecoveryActionFromJSON rebuilds an action serialized by ToJSON,
// re-running construction validation. Round-tripping preserves the
// configuration and the consumed retry budget; execution history is
// not carried.
func RecoveryActionFromJSON(data []byte) (*RecoveryAction, error) {
	var spec ActionSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("decode recovery action: %w", err)
	}
	spec.RetryDelay = time.Duration(spec.RetryDelayMS) * time.Millisecond
	a, err := NewRecoveryAction(spec)
	if err != nil {
		return nil, fmt.Errorf("decode recovery action: %w", err)
	}
	return a, nil
}

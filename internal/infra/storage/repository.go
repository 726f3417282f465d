package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/faultline/internal/core/domain"
)

var (
	// ErrEventNotFound is returned when an error event doesn't exist
	ErrEventNotFound = errors.New("error event not found")
)

// Key prefixes for the records the pipeline persists. Every record is
// stored as JSON under <prefix><id>.
const (
	EventKeyPrefix   = "error_event:"
	ContextKeyPrefix = "error_context:"
	EntryKeyPrefix   = "log_entry:"
)

// EventKey returns the storage key for an error event.
func EventKey(eventID string) string { return EventKeyPrefix + eventID }

// ContextKey returns the storage key for an error context. Contexts
// are keyed by the event they belong to.
func ContextKey(eventID string) string { return ContextKeyPrefix + eventID }

// EntryKey returns the storage key for a log entry, keyed by event.
func EntryKey(eventID string) string { return EntryKeyPrefix + eventID }

// KVStore is the key-value surface the pipeline persists through.
// Implementations must treat a missing key as (nil, nil) on Get, not
// an error.
type KVStore interface {
	// Get retrieves the value for a key, nil when absent
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value under a key, overwriting any previous value
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes a key; removing an absent key is not an error
	Remove(ctx context.Context, key string) error

	// Keys lists all keys with the given prefix
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// ArchiveRecord is the flattened row kept in the long-term archive:
// the log entry envelope joined with the event it wraps.
type ArchiveRecord struct {
	EntryID     string
	EventID     string
	Severity    domain.Severity
	ErrorType   domain.ErrorType
	Component   string
	Environment string
	Operation   string
	Message     string
	RecordedAt  time.Time
}

// EntryArchive handles durable archival of log entries, independent of
// the bounded in-memory buffer and the key-value store.
type EntryArchive interface {
	// Archive stores an entry together with its event
	Archive(ctx context.Context, entry *domain.LogEntry, event *domain.ErrorEvent) error

	// Recent retrieves the most recently archived records, newest first
	Recent(ctx context.Context, limit int) ([]*ArchiveRecord, error)

	// Count returns the number of archived records
	Count(ctx context.Context) (int, error)

	// CountBySeverity breaks the archive down by severity
	CountBySeverity(ctx context.Context) (map[domain.Severity]int, error)

	// PurgeOlderThan deletes records recorded before the cutoff and
	// returns how many were removed
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

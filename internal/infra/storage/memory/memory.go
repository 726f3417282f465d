package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/faultline/internal/core/domain"
	"github.com/vietddude/faultline/internal/infra/storage"
)

// Store is an in-memory key-value store used for tests and runs
// without Redis.
type Store struct {
	records map[string][]byte
	mu      sync.RWMutex
}

func NewStore() *Store {
	return &Store{records: make(map[string][]byte)}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	s.records[key] = stored
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.records {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// -----------------------------------------------------------------------------
// Entry Archive
// -----------------------------------------------------------------------------

// Archive is an in-memory storage.EntryArchive used for tests and
// runs without PostgreSQL.
type Archive struct {
	records []*storage.ArchiveRecord
	mu      sync.RWMutex
}

func NewArchive() *Archive {
	return &Archive{}
}

func (a *Archive) Archive(ctx context.Context, entry *domain.LogEntry, event *domain.ErrorEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, &storage.ArchiveRecord{
		EntryID:     entry.EntryID,
		EventID:     event.ID,
		Severity:    entry.LogLevel,
		ErrorType:   event.ErrorType,
		Component:   entry.Component,
		Environment: entry.Environment,
		Operation:   event.Operation,
		Message:     event.Message,
		RecordedAt:  entry.RecordedAt,
	})
	return nil
}

func (a *Archive) Recent(ctx context.Context, limit int) ([]*storage.ArchiveRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*storage.ArchiveRecord, len(a.records))
	copy(out, a.records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (a *Archive) Count(ctx context.Context) (int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.records), nil
}

func (a *Archive) CountBySeverity(ctx context.Context) (map[domain.Severity]int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	counts := make(map[domain.Severity]int)
	for _, rec := range a.records {
		counts[rec.Severity]++
	}
	return counts, nil
}

func (a *Archive) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	kept := a.records[:0]
	var removed int64
	for _, rec := range a.records {
		if rec.RecordedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	a.records = kept
	return removed, nil
}

package eventlog

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vietddude/faultline/internal/core/domain"
	"github.com/vietddude/faultline/internal/infra/storage"
	"github.com/vietddude/faultline/internal/pipeline/metrics"
)

// GetRecentErrors returns buffered events sorted most-recent-first,
// truncated to limit (default 50). Severities, when given, restrict
// the result to those levels.
func (s *Service) GetRecentErrors(limit int, severities ...domain.Severity) []*domain.ErrorEvent {
	if limit <= 0 {
		limit = 50
	}

	var filter map[domain.Severity]struct{}
	if len(severities) > 0 {
		filter = make(map[domain.Severity]struct{}, len(severities))
		for _, sev := range severities {
			filter[sev] = struct{}{}
		}
	}

	s.mu.RLock()
	out := make([]*domain.ErrorEvent, 0, len(s.buffer))
	// Walk newest-insertion-first so equal timestamps keep insertion
	// order as the tie-break through the stable sort.
	for i := len(s.buffer) - 1; i >= 0; i-- {
		ev := s.buffer[i]
		if filter != nil {
			if _, ok := filter[ev.Severity]; !ok {
				continue
			}
		}
		out = append(out, ev)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ClearOldErrors removes buffered events older than the cutoff along
// with their context and log-entry siblings, best-effort purges the
// matching persisted records, and returns how many buffered events
// were removed.
func (s *Service) ClearOldErrors(ctx context.Context, olderThanDays int) int {
	if ctx == nil {
		ctx = context.Background()
	}
	if olderThanDays < 0 {
		olderThanDays = 0
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)

	s.mu.Lock()
	kept := s.buffer[:0]
	removed := 0
	for _, ev := range s.buffer {
		if ev.Timestamp.Before(cutoff) {
			delete(s.contexts, ev.ID)
			delete(s.entries, ev.ID)
			removed++
			continue
		}
		kept = append(kept, ev)
	}
	s.buffer = kept
	metrics.BufferSize.Set(float64(len(s.buffer)))
	s.mu.Unlock()

	if s.opts.EnablePersistence {
		if purged := s.purgePersisted(ctx, cutoff); purged > 0 {
			metrics.RetentionPurged.WithLabelValues("kv").Add(float64(purged))
		}
	}

	if removed > 0 {
		s.log.Info("cleared old errors", "removed", removed, "older_than_days", olderThanDays)
	}
	return removed
}

// PurgePersisted removes persisted records older than the cutoff without
// touching the in-memory buffer. It exists for offline maintenance
// against a shared store; returns the number of purged events.
func (s *Service) PurgePersisted(ctx context.Context, olderThanDays int) int {
	if ctx == nil {
		ctx = context.Background()
	}
	if olderThanDays < 0 {
		olderThanDays = 0
	}
	if s.store == nil {
		return 0
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	purged := s.purgePersisted(ctx, cutoff)
	if purged > 0 {
		metrics.RetentionPurged.WithLabelValues("kv").Add(float64(purged))
	}
	return purged
}

// purgePersisted removes persisted records whose event is older than
// the cutoff. Event ids embed their creation time, so most keys are
// judged without a read; ids that don't parse fall back to fetching
// the stored record.
func (s *Service) purgePersisted(ctx context.Context, cutoff time.Time) int {
	keys, err := s.store.Keys(ctx, storage.EventKeyPrefix)
	if err != nil {
		s.log.Warn("failed to list persisted events", "error", err)
		return 0
	}

	purged := 0
	for _, key := range keys {
		eventID := strings.TrimPrefix(key, storage.EventKeyPrefix)
		ts, ok := eventIDTime(eventID)
		if !ok {
			ts, ok = s.persistedEventTime(ctx, key)
		}
		if !ok || !ts.Before(cutoff) {
			continue
		}
		s.removeRecord(ctx, storage.EventKey(eventID))
		s.removeRecord(ctx, storage.ContextKey(eventID))
		s.removeRecord(ctx, storage.EntryKey(eventID))
		purged++
	}
	return purged
}

func (s *Service) removeRecord(ctx context.Context, key string) {
	if err := s.store.Remove(ctx, key); err != nil {
		s.log.Warn("failed to remove persisted record", "key", key, "error", err)
	}
}

// eventIDTime extracts the millisecond timestamp embedded in an event
// id of the form evt_<millis>_<suffix>.
func eventIDTime(id string) (time.Time, bool) {
	parts := strings.Split(id, "_")
	if len(parts) != 3 || parts[0] != "evt" {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func (s *Service) persistedEventTime(ctx context.Context, key string) (time.Time, bool) {
	data, err := s.store.Get(ctx, key)
	if err != nil || data == nil {
		return time.Time{}, false
	}
	var ev domain.ErrorEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return time.Time{}, false
	}
	return ev.Timestamp, true
}

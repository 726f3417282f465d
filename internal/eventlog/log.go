package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/vietddude/faultline/internal/core/domain"
	"github.com/vietddude/faultline/internal/infra/storage"
	"github.com/vietddude/faultline/internal/pipeline/metrics"
)

// LogError captures one failure as an event, context and log entry,
// buffers them, and best-effort persists and mirrors them. It returns
// the generated event id and never fails: any internal error degrades
// to a minimal fallback log. This method sits on every failure path in
// the process, so it must not amplify failures.
func (s *Service) LogError(
	ctx context.Context,
	err error,
	operation string,
	severity domain.Severity,
	errType domain.ErrorType,
	partial *domain.ErrorContext,
) (eventID string) {
	defer func() {
		if r := recover(); r != nil {
			eventID = fallbackEventID()
			s.log.Error("error capture failed",
				"panic", r,
				"operation", operation,
				"fallback_id", eventID)
		}
	}()
	if ctx == nil {
		ctx = context.Background()
	}

	message := "unknown error"
	if err != nil {
		message = err.Error()
	}
	return s.capture(ctx, message, operation, severity, errType, partial)
}

// LogInfo records an informational event.
func (s *Service) LogInfo(ctx context.Context, message, operation string, data map[string]any) string {
	return s.logAt(ctx, message, operation, domain.SeverityInfo, data)
}

// LogWarning records a warning event.
func (s *Service) LogWarning(ctx context.Context, message, operation string, data map[string]any) string {
	return s.logAt(ctx, message, operation, domain.SeverityWarning, data)
}

// LogDebug records a debug event. Outside development-like
// environments it is a no-op and returns DebugDisabledID.
func (s *Service) LogDebug(ctx context.Context, message, operation string, data map[string]any) string {
	if _, ok := debugEnvironments[s.opts.Environment]; !ok {
		return DebugDisabledID
	}
	return s.logAt(ctx, message, operation, domain.SeverityDebug, data)
}

func (s *Service) logAt(ctx context.Context, message, operation string, severity domain.Severity, data map[string]any) string {
	var partial *domain.ErrorContext
	if data != nil {
		partial = &domain.ErrorContext{DataState: data}
	}
	return s.LogError(ctx, errors.New(message), operation, severity, domain.ErrorTypeLogic, partial)
}

func (s *Service) capture(
	ctx context.Context,
	message, operation string,
	severity domain.Severity,
	errType domain.ErrorType,
	partial *domain.ErrorContext,
) string {
	event := domain.NewErrorEvent(message, operation, severity, errType)
	if event.Severity.Rank() <= domain.SeverityError.Rank() {
		event.StackTrace = captureStack(4)
	}

	ectx := s.buildContext(event, partial)
	if ectx.DataState != nil {
		event.AppState = ectx.DataState
	}
	entry := s.buildEntry(event)

	s.append(event, ectx, entry)

	if s.opts.EnableConsoleLogging {
		s.mirror(ctx, event)
	}
	if s.opts.EnablePersistence {
		s.persist(ctx, event, ectx, entry)
	}
	if s.archive != nil && entry != nil {
		s.archiveEntry(ctx, entry, event)
	}

	metrics.EventsLogged.WithLabelValues(string(event.Severity), string(event.ErrorType)).Inc()
	return event.ID
}

// buildContext merges any supplied partial context into a fresh one
// bound to the event, redacting sensitive data and auto-collecting
// whatever snapshot fields the caller omitted.
func (s *Service) buildContext(event *domain.ErrorEvent, partial *domain.ErrorContext) *domain.ErrorContext {
	ectx, err := domain.NewErrorContext(event.ID)
	if err != nil {
		ectx = &domain.ErrorContext{ErrorEventID: event.ID}
	}

	// The context takes ownership of the data state, so copy before
	// sanitizing in place.
	if partial != nil && partial.DataState != nil {
		p := *partial
		p.DataState = copyData(partial.DataState, 0)
		partial = &p
	}

	matches := ectx.Merge(partial)
	if len(matches) > 0 {
		metrics.SensitiveKeysDetected.Add(float64(len(matches)))
		ectx.SanitizeDataState()
	}

	s.autoCollect(ectx)

	if err := ectx.Validate(); err != nil {
		s.log.Warn("dropping invalid performance readings", "event_id", event.ID, "error", err)
		ectx.Performance = nil
	}
	return ectx
}

// autoCollect fills in the snapshot fields the caller left empty.
func (s *Service) autoCollect(ectx *domain.ErrorContext) {
	if ectx.Performance == nil {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		heap := float64(ms.HeapAlloc)
		ectx.Performance = &domain.PerformanceMetrics{MemoryUsage: &heap}
	}
	if ectx.Network == "" && s.opts.NetworkProbe != nil {
		ectx.Network = s.opts.NetworkProbe()
	}
	if ectx.Navigation == nil && s.opts.RouteProvider != nil {
		ectx.Navigation = s.opts.RouteProvider()
	}
}

func (s *Service) buildEntry(event *domain.ErrorEvent) *domain.LogEntry {
	entry, err := domain.NewLogEntry(event.ID, event.Severity, s.opts.Component, s.opts.Environment)
	if err != nil {
		s.log.Warn("failed to build log entry", "event_id", event.ID, "error", err)
		return nil
	}
	entry.SessionID = s.opts.SessionID
	return entry
}

// append adds the records to the buffer and maps, evicting the oldest
// events once the buffer exceeds its cap. Ties in timestamp are broken
// by insertion order.
func (s *Service) append(event *domain.ErrorEvent, ectx *domain.ErrorContext, entry *domain.LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer = append(s.buffer, event)
	s.contexts[event.ID] = ectx
	if entry != nil {
		s.entries[event.ID] = entry
	}
	s.eventsLogged++

	if excess := len(s.buffer) - s.opts.MaxBufferSize; excess > 0 {
		for _, old := range s.buffer[:excess] {
			delete(s.contexts, old.ID)
			delete(s.entries, old.ID)
		}
		copy(s.buffer, s.buffer[excess:])
		s.buffer = s.buffer[:s.opts.MaxBufferSize]
		s.evictions += uint64(excess)
		metrics.BufferEvictions.Add(float64(excess))
	}
	metrics.BufferSize.Set(float64(len(s.buffer)))
}

func (s *Service) mirror(ctx context.Context, event *domain.ErrorEvent) {
	s.log.Log(ctx, event.Severity.SlogLevel(), event.Message,
		"event_id", event.ID,
		"operation", event.Operation,
		"error_type", string(event.ErrorType),
		"severity", string(event.Severity),
	)
}

// persist mirrors the three records to the key-value store. Failures
// are counted and logged, never propagated.
func (s *Service) persist(ctx context.Context, event *domain.ErrorEvent, ectx *domain.ErrorContext, entry *domain.LogEntry) {
	pctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	s.write(pctx, storage.EventKey(event.ID), event)
	s.write(pctx, storage.ContextKey(event.ID), ectx)
	if entry != nil {
		s.write(pctx, storage.EntryKey(event.ID), entry)
	}
}

func (s *Service) write(ctx context.Context, key string, record any) {
	data, err := json.Marshal(record)
	if err != nil {
		s.persistFailures.Add(1)
		metrics.PersistenceFailures.WithLabelValues("kv").Inc()
		s.log.Warn("failed to encode record", "key", key, "error", err)
		return
	}
	if err := s.store.Set(ctx, key, data); err != nil {
		s.persistFailures.Add(1)
		metrics.PersistenceFailures.WithLabelValues("kv").Inc()
		s.log.Warn("failed to persist record", "key", key, "error", err)
	}
}

func (s *Service) archiveEntry(ctx context.Context, entry *domain.LogEntry, event *domain.ErrorEvent) {
	actx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	if err := s.archive.Archive(actx, entry, event); err != nil {
		s.persistFailures.Add(1)
		metrics.PersistenceFailures.WithLabelValues("archive").Inc()
		s.log.Warn("failed to archive log entry", "event_id", event.ID, "error", err)
	}
}

// captureStack renders the calling goroutine's stack, skipping the
// capture machinery itself.
func captureStack(skip int) string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return ""
	}

	frames := runtime.CallersFrames(pcs[:n])
	var b strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return b.String()
}

func fallbackEventID() string {
	return fmt.Sprintf("fallback_%d", time.Now().UnixMilli())
}

// copyData copies a data-state map down to the sanitization depth.
// Deeper structure is shared, which is safe because sanitization never
// descends past that depth either.
func copyData(data map[string]any, depth int) map[string]any {
	if data == nil || depth >= 3 {
		return data
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		if nested, ok := v.(map[string]any); ok {
			out[k] = copyData(nested, depth+1)
			continue
		}
		out[k] = v
	}
	return out
}

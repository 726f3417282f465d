package eventlog

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/faultline/internal/core/domain"
	"github.com/vietddude/faultline/internal/infra/storage"
)

// persistTimeout bounds how long a single best-effort persistence
// write may take before the capture path moves on.
const persistTimeout = 2 * time.Second

// DebugDisabledID is returned by LogDebug outside development-like
// environments, where debug capture is a no-op.
const DebugDisabledID = "debug-disabled"

// debugEnvironments are the environments where LogDebug captures.
var debugEnvironments = map[string]struct{}{
	"development": {},
	"test":        {},
}

// Options configures the logging service.
type Options struct {
	MaxBufferSize        int
	MaxRetentionDays     int
	EnablePersistence    bool
	EnableConsoleLogging bool
	Environment          string
	Component            string
	SessionID            string

	// NetworkProbe reports connectivity for auto-collected context.
	// Nil leaves the network state unset.
	NetworkProbe func() domain.NetworkState

	// RouteProvider reports the current navigation position for
	// auto-collected context. Nil leaves navigation unset.
	RouteProvider func() *domain.NavigationState
}

// DefaultOptions returns the production defaults. Console mirroring
// follows the environment: off in production, on in development-like
// environments (the config layer derives it the same way).
func DefaultOptions() Options {
	return Options{
		MaxBufferSize:        1000,
		MaxRetentionDays:     7,
		EnablePersistence:    true,
		EnableConsoleLogging: false,
		Environment:          "production",
		Component:            "app",
	}
}

// Service owns the bounded in-memory event buffer, the per-category
// recovery registry, and the persistence and retention logic. All
// mutations of shared state happen as single steps under the lock, so
// concurrent callers never observe partial writes.
type Service struct {
	opts    Options
	store   storage.KVStore
	archive storage.EntryArchive
	log     *slog.Logger

	mu           sync.RWMutex
	buffer       []*domain.ErrorEvent // insertion order, oldest first
	contexts     map[string]*domain.ErrorContext
	entries      map[string]*domain.LogEntry
	actions      map[domain.ErrorType]*domain.RecoveryAction
	executors    map[domain.ActionType]ExecutorFunc
	eventsLogged uint64
	evictions    uint64

	// persistFailures is incremented on the persistence paths, which
	// run outside the buffer lock.
	persistFailures atomic.Uint64
}

// NewService creates a logging service. store may be nil, which
// disables persistence regardless of options; archive may be nil,
// which disables long-term archival.
func NewService(opts Options, store storage.KVStore, archive storage.EntryArchive) *Service {
	if opts.MaxBufferSize <= 0 {
		opts.MaxBufferSize = 1000
	}
	if opts.MaxRetentionDays <= 0 {
		opts.MaxRetentionDays = 7
	}
	if opts.Environment == "" {
		opts.Environment = "production"
	}
	if opts.Component == "" {
		opts.Component = "app"
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	if store == nil && opts.EnablePersistence {
		slog.Warn("persistence enabled but no store configured, disabling")
		opts.EnablePersistence = false
	}

	s := &Service{
		opts:     opts,
		store:    store,
		archive:  archive,
		log:      slog.Default(),
		contexts: make(map[string]*domain.ErrorContext),
		entries:  make(map[string]*domain.LogEntry),
		actions:  defaultActions(),
	}
	s.executors = defaultExecutors(s.log)
	return s
}

// Stats is a point-in-time snapshot of the service's buffers.
type Stats struct {
	BufferSize          int
	MaxBufferSize       int
	Environment         string
	PersistenceEnabled  bool
	EventsLogged        uint64
	Evictions           uint64
	PersistenceFailures uint64
}

// Stats returns a snapshot of the service's state.
func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		BufferSize:          len(s.buffer),
		MaxBufferSize:       s.opts.MaxBufferSize,
		Environment:         s.opts.Environment,
		PersistenceEnabled:  s.opts.EnablePersistence,
		EventsLogged:        s.eventsLogged,
		Evictions:           s.evictions,
		PersistenceFailures: s.persistFailures.Load(),
	}
}

// RetentionDays returns the configured retention window.
func (s *Service) RetentionDays() int {
	return s.opts.MaxRetentionDays
}

// GetErrorEvent returns a buffered event by id.
func (s *Service) GetErrorEvent(id string) (*domain.ErrorEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ev := range s.buffer {
		if ev.ID == id {
			return ev, true
		}
	}
	return nil, false
}

// GetErrorContext returns the context captured with an event.
func (s *Service) GetErrorContext(eventID string) (*domain.ErrorContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ectx, ok := s.contexts[eventID]
	return ectx, ok
}

// GetLogEntry returns the log entry recorded with an event.
func (s *Service) GetLogEntry(eventID string) (*domain.LogEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[eventID]
	return entry, ok
}

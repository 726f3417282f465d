package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/faultline/internal/core/domain"
	"github.com/vietddude/faultline/internal/eventlog"
)

// Probe checks that an external dependency is reachable.
type Probe func(ctx context.Context) error

// Monitor aggregates health status from the event pipeline and its
// external collaborators.
type Monitor struct {
	svc        *eventlog.Service
	probes     map[string]Probe
	lastCheck  time.Time
	lastReport HealthReport
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor.
func NewMonitor(svc *eventlog.Service) *Monitor {
	return &Monitor{
		svc:    svc,
		probes: make(map[string]Probe),
	}
}

// AddProbe registers a named dependency probe. Probes run on every
// uncached health check.
func (m *Monitor) AddProbe(name string, probe Probe) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes[name] = probe
}

// CheckHealth performs a full health check.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rate limit checks (max once per 10s) to avoid hammering dependencies
	if time.Since(m.lastCheck) < 10*time.Second && m.lastReport.SystemStatus != "" {
		return m.lastReport
	}

	report := HealthReport{
		Pipeline:     m.checkPipeline(),
		Dependencies: make(map[string]DependencyHealth),
	}

	for name, probe := range m.probes {
		dep := DependencyHealth{Name: name, Status: StatusHealthy}
		if err := probe(ctx); err != nil {
			// An unreachable collaborator is degradation, not an outage:
			// persistence is best-effort by contract.
			dep.Status = StatusDegraded
			dep.Error = err.Error()
		}
		report.Dependencies[name] = dep
	}

	// Aggregate status (worst case wins)
	report.SystemStatus = report.Pipeline.Status
	for _, dep := range report.Dependencies {
		if worse(dep.Status, report.SystemStatus) {
			report.SystemStatus = dep.Status
		}
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}

func (m *Monitor) checkPipeline() PipelineHealth {
	stats := m.svc.Stats()

	health := PipelineHealth{
		Status:              StatusHealthy,
		BufferedEvents:      stats.BufferSize,
		EventsLogged:        stats.EventsLogged,
		Evictions:           stats.Evictions,
		PersistenceFailures: stats.PersistenceFailures,
	}
	if stats.MaxBufferSize > 0 {
		health.BufferUtilization = float64(stats.BufferSize) / float64(stats.MaxBufferSize)
	}
	health.RecentCritical = len(m.svc.GetRecentErrors(50, domain.SeverityCritical))

	for _, errType := range domain.ErrorTypes() {
		if action := m.svc.GetRecoveryAction(errType); action != nil && action.IsExhausted() {
			health.ExhaustedActions++
		}
	}

	// Evaluate Status
	if health.BufferUtilization >= 1 || health.RecentCritical > 25 {
		health.Status = StatusCritical
	} else if health.BufferUtilization >= 0.9 || health.RecentCritical > 0 || health.ExhaustedActions > 0 {
		health.Status = StatusDegraded
	}

	return health
}

var statusRank = map[SystemStatus]int{
	StatusHealthy:  0,
	StatusDegraded: 1,
	StatusCritical: 2,
}

func worse(a, b SystemStatus) bool {
	return statusRank[a] > statusRank[b]
}

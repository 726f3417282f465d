// Package health provides pipeline health monitoring and status reporting.
package health

// SystemStatus represents the overall health state of the pipeline or a
// component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// PipelineHealth contains health metrics for the event pipeline itself.
type PipelineHealth struct {
	Status              SystemStatus `json:"status"`
	BufferedEvents      int          `json:"buffered_events"`
	BufferUtilization   float64      `json:"buffer_utilization"`
	RecentCritical      int          `json:"recent_critical"`
	ExhaustedActions    int          `json:"exhausted_actions"`
	EventsLogged        uint64       `json:"events_logged"`
	Evictions           uint64       `json:"evictions"`
	PersistenceFailures uint64       `json:"persistence_failures"`
}

// DependencyHealth reports reachability of one external collaborator.
type DependencyHealth struct {
	Name   string       `json:"name"`
	Status SystemStatus `json:"status"`
	Error  string       `json:"error,omitempty"`
}

// HealthReport contains the full health report.
type HealthReport struct {
	SystemStatus SystemStatus                `json:"system_status"`
	Pipeline     PipelineHealth              `json:"pipeline"`
	Dependencies map[string]DependencyHealth `json:"dependencies,omitempty"`
}

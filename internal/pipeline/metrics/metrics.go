package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsLogged tracks captured error events per severity and type
	EventsLogged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultline_events_logged_total",
			Help: "Total number of error events logged",
		},
		[]string{"severity", "error_type"},
	)

	// CapturedErrors tracks errors arriving through global capture channels
	CapturedErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultline_captured_errors_total",
			Help: "Total number of errors captured per channel",
		},
		[]string{"channel"},
	)

	// RecoveryAttempts tracks recovery dispatches and their outcome
	RecoveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultline_recovery_attempts_total",
			Help: "Total number of recovery attempts",
		},
		[]string{"error_type", "outcome"},
	)

	// BufferEvictions tracks events evicted from the bounded buffer
	BufferEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "faultline_buffer_evictions_total",
			Help: "Total number of events evicted from the in-memory buffer",
		},
	)

	// BufferSize tracks the current in-memory buffer size
	BufferSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "faultline_buffer_size",
			Help: "Current number of events held in the in-memory buffer",
		},
	)

	// PersistenceFailures tracks failed writes per backend
	PersistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultline_persistence_failures_total",
			Help: "Total number of failed persistence writes",
		},
		[]string{"backend"},
	)

	// SensitiveKeysDetected tracks sensitive keys found in context data
	SensitiveKeysDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "faultline_sensitive_keys_total",
			Help: "Total number of sensitive keys detected in error context data",
		},
	)

	// UserNotifications tracks notifications surfaced to the user
	UserNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultline_user_notifications_total",
			Help: "Total number of user-facing error notifications",
		},
		[]string{"kind"},
	)

	// RetentionPurged tracks records removed by retention enforcement
	RetentionPurged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultline_retention_purged_total",
			Help: "Total number of records purged by retention enforcement",
		},
		[]string{"backend"},
	)

	// DBConnectionPoolUsage tracks database pool utilization percentage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "faultline_db_connection_pool_usage",
			Help: "Database connection pool usage percentage",
		},
	)
)

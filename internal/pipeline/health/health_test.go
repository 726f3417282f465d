package health

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vietddude/faultline/internal/core/domain"
	"github.com/vietddude/faultline/internal/eventlog"
)

// =============================================================================
// Helpers
// =============================================================================

func newQuietService(t *testing.T, maxBuffer int) *eventlog.Service {
	t.Helper()
	opts := eventlog.DefaultOptions()
	opts.MaxBufferSize = maxBuffer
	opts.EnableConsoleLogging = false
	opts.EnablePersistence = false
	return eventlog.NewService(opts, nil, nil)
}

func fillBuffer(svc *eventlog.Service, n int, severity domain.Severity) {
	for i := 0; i < n; i++ {
		svc.LogError(context.Background(), fmt.Errorf("failure %d", i), "bulk",
			severity, domain.ErrorTypeLogic, nil)
	}
}

// =============================================================================
// Tests
// =============================================================================

func TestMonitor_Healthy(t *testing.T) {
	svc := newQuietService(t, 100)
	monitor := NewMonitor(svc)
	monitor.AddProbe("store", func(ctx context.Context) error { return nil })

	report := monitor.CheckHealth(context.Background())

	if report.SystemStatus != StatusHealthy {
		t.Errorf("expected healthy, got %s", report.SystemStatus)
	}
	if report.Dependencies["store"].Status != StatusHealthy {
		t.Errorf("expected healthy store, got %s", report.Dependencies["store"].Status)
	}
}

func TestMonitor_DegradedOnBufferPressure(t *testing.T) {
	svc := newQuietService(t, 10)
	fillBuffer(svc, 9, domain.SeverityError)
	monitor := NewMonitor(svc)

	report := monitor.CheckHealth(context.Background())

	if report.SystemStatus != StatusDegraded {
		t.Errorf("expected degraded, got %s", report.SystemStatus)
	}
	if report.Pipeline.BufferUtilization < 0.9 {
		t.Errorf("utilization = %v, want >= 0.9", report.Pipeline.BufferUtilization)
	}
}

func TestMonitor_CriticalOnFullBuffer(t *testing.T) {
	svc := newQuietService(t, 10)
	fillBuffer(svc, 12, domain.SeverityError)
	monitor := NewMonitor(svc)

	report := monitor.CheckHealth(context.Background())

	if report.SystemStatus != StatusCritical {
		t.Errorf("expected critical, got %s", report.SystemStatus)
	}
}

func TestMonitor_DegradedOnCriticalEvents(t *testing.T) {
	svc := newQuietService(t, 100)
	fillBuffer(svc, 1, domain.SeverityCritical)
	monitor := NewMonitor(svc)

	report := monitor.CheckHealth(context.Background())

	if report.SystemStatus != StatusDegraded {
		t.Errorf("expected degraded, got %s", report.SystemStatus)
	}
	if report.Pipeline.RecentCritical != 1 {
		t.Errorf("recent critical = %d, want 1", report.Pipeline.RecentCritical)
	}
}

func TestMonitor_CriticalOnCriticalBurst(t *testing.T) {
	svc := newQuietService(t, 100)
	fillBuffer(svc, 30, domain.SeverityCritical)
	monitor := NewMonitor(svc)

	report := monitor.CheckHealth(context.Background())

	if report.SystemStatus != StatusCritical {
		t.Errorf("expected critical, got %s", report.SystemStatus)
	}
}

func TestMonitor_DegradedOnExhaustedAction(t *testing.T) {
	svc := newQuietService(t, 100)
	action, err := domain.NewRecoveryAction(domain.ActionSpec{
		ErrorType:  domain.ErrorTypeNetwork,
		ActionType: domain.ActionRetry,
		RetryDelay: time.Millisecond,
		MaxRetries: 1,
	})
	if err != nil {
		t.Fatalf("NewRecoveryAction: %v", err)
	}
	action.IncrementRetry()
	svc.ConfigureRecoveryAction(action)
	monitor := NewMonitor(svc)

	report := monitor.CheckHealth(context.Background())

	if report.SystemStatus != StatusDegraded {
		t.Errorf("expected degraded, got %s", report.SystemStatus)
	}
	if report.Pipeline.ExhaustedActions != 1 {
		t.Errorf("exhausted actions = %d, want 1", report.Pipeline.ExhaustedActions)
	}
}

func TestMonitor_DegradedDependency(t *testing.T) {
	svc := newQuietService(t, 100)
	monitor := NewMonitor(svc)
	monitor.AddProbe("store", func(ctx context.Context) error {
		return errors.New("connection refused")
	})

	report := monitor.CheckHealth(context.Background())

	if report.SystemStatus != StatusDegraded {
		t.Errorf("expected degraded, got %s", report.SystemStatus)
	}
	dep := report.Dependencies["store"]
	if dep.Status != StatusDegraded || dep.Error == "" {
		t.Errorf("dependency = %+v, want degraded with error text", dep)
	}
}

func TestMonitor_CachesReports(t *testing.T) {
	svc := newQuietService(t, 10)
	monitor := NewMonitor(svc)

	first := monitor.CheckHealth(context.Background())
	if first.SystemStatus != StatusHealthy {
		t.Fatalf("expected healthy, got %s", first.SystemStatus)
	}

	// New pressure inside the rate-limit window is not observed yet.
	fillBuffer(svc, 12, domain.SeverityError)
	second := monitor.CheckHealth(context.Background())

	if second.SystemStatus != StatusHealthy {
		t.Errorf("expected cached healthy report, got %s", second.SystemStatus)
	}
}

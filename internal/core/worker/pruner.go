package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/faultline/internal/eventlog"
	"github.com/vietddude/faultline/internal/infra/storage"
	"github.com/vietddude/faultline/internal/pipeline/metrics"
)

// Pruner deletes old events based on the retention policy.
type Pruner struct {
	svc     *eventlog.Service
	archive storage.EntryArchive
}

// NewPruner creates a new Pruner worker. archive may be nil.
func NewPruner(svc *eventlog.Service, archive storage.EntryArchive) *Pruner {
	return &Pruner{
		svc:     svc,
		archive: archive,
	}
}

// Start runs the pruner loop until ctx is canceled.
func (p *Pruner) Start(ctx context.Context) {
	days := p.svc.RetentionDays()
	if days <= 0 {
		return // Retention disabled
	}

	ticker := time.NewTicker(checkInterval(retentionPeriod(days)))
	defer ticker.Stop()

	// Initial sweep
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	days := p.svc.RetentionDays()

	removed := p.svc.ClearOldErrors(ctx, days)
	if removed > 0 {
		slog.Info("pruned buffered events", "removed", removed, "retention_days", days)
	}

	if p.archive == nil {
		return
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	purged, err := p.archive.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("archive purge failed", "error", err)
		return
	}
	if purged > 0 {
		metrics.RetentionPurged.WithLabelValues("archive").Add(float64(purged))
		slog.Info("pruned archived entries", "purged", purged, "retention_days", days)
	}
}

func retentionPeriod(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}

// checkInterval sizes the sweep cadence from the retention period
// (10% of the period, clamped between 1 minute and 1 hour).
func checkInterval(retention time.Duration) time.Duration {
	interval := min(retention/10, 1*time.Hour)
	return max(interval, 1*time.Minute)
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vietddude/faultline/internal/core/domain"
	"github.com/vietddude/faultline/internal/infra/storage"
)

// EntryRepo implements storage.EntryArchive using PostgreSQL.
type EntryRepo struct {
	db *DB
}

// NewEntryRepo creates a new PostgreSQL log entry archive.
func NewEntryRepo(db *DB) *EntryRepo {
	return &EntryRepo{db: db}
}

// Archive stores a log entry together with the full event payload.
func (r *EntryRepo) Archive(ctx context.Context, entry *domain.LogEntry, event *domain.ErrorEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	var devicePlatform, deviceVersion string
	if entry.Device != nil {
		devicePlatform = entry.Device.Platform
		deviceVersion = entry.Device.Version
	}

	query := `
		INSERT INTO log_entries (
			entry_id, event_id, severity, error_type, component, environment,
			operation, message, stack_trace, session_id, correlation_id,
			device_platform, device_version, event_payload, recorded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (entry_id) DO NOTHING
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		entry.EntryID,
		event.ID,
		string(entry.LogLevel),
		string(event.ErrorType),
		entry.Component,
		entry.Environment,
		event.Operation,
		event.Message,
		event.StackTrace,
		entry.SessionID,
		entry.CorrelationID,
		devicePlatform,
		deviceVersion,
		payload,
		entry.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to archive log entry: %w", err)
	}
	return nil
}

// Recent returns the most recently archived records, newest first.
func (r *EntryRepo) Recent(ctx context.Context, limit int) ([]*storage.ArchiveRecord, error) {
	query := `
		SELECT entry_id, event_id, severity, error_type, component, environment,
		       operation, message, recorded_at
		FROM log_entries
		ORDER BY recorded_at DESC
		LIMIT $1
	`

	var rows []struct {
		EntryID     string    `db:"entry_id"`
		EventID     string    `db:"event_id"`
		Severity    string    `db:"severity"`
		ErrorType   string    `db:"error_type"`
		Component   string    `db:"component"`
		Environment string    `db:"environment"`
		Operation   string    `db:"operation"`
		Message     string    `db:"message"`
		RecordedAt  time.Time `db:"recorded_at"`
	}

	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get recent log entries: %w", err)
	}

	records := make([]*storage.ArchiveRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, &storage.ArchiveRecord{
			EntryID:     row.EntryID,
			EventID:     row.EventID,
			Severity:    domain.Severity(row.Severity),
			ErrorType:   domain.ErrorType(row.ErrorType),
			Component:   row.Component,
			Environment: row.Environment,
			Operation:   row.Operation,
			Message:     row.Message,
			RecordedAt:  row.RecordedAt,
		})
	}
	return records, nil
}

// Count returns the number of archived records.
func (r *EntryRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM log_entries`); err != nil {
		return 0, fmt.Errorf("failed to count log entries: %w", err)
	}
	return count, nil
}

// CountBySeverity breaks the archive down by severity.
func (r *EntryRepo) CountBySeverity(ctx context.Context) (map[domain.Severity]int, error) {
	var rows []struct {
		Severity string `db:"severity"`
		Count    int    `db:"count"`
	}

	query := `SELECT severity, COUNT(*) AS count FROM log_entries GROUP BY severity`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to count log entries by severity: %w", err)
	}

	counts := make(map[domain.Severity]int, len(rows))
	for _, row := range rows {
		counts[domain.Severity(row.Severity)] = row.Count
	}
	return counts, nil
}

// PurgeOlderThan deletes records recorded before the cutoff.
func (r *EntryRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM log_entries WHERE recorded_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge log entries: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read purge result: %w", err)
	}
	return removed, nil
}

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/vietddude/faultline/internal/core/config"
	"github.com/vietddude/faultline/internal/core/domain"
	"github.com/vietddude/faultline/internal/infra/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a summary of archived error events",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	repo := postgres.NewEntryRepo(db)

	total, err := repo.Count(ctx)
	if err != nil {
		slog.Error("Failed to count archived entries", "error", err)
		os.Exit(1)
	}
	bySeverity, err := repo.CountBySeverity(ctx)
	if err != nil {
		slog.Error("Failed to count entries by severity", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "SEVERITY\tENTRIES")
	for _, severity := range []domain.Severity{
		domain.SeverityCritical,
		domain.SeverityError,
		domain.SeverityWarning,
		domain.SeverityInfo,
		domain.SeverityDebug,
	} {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", severity, bySeverity[severity])
	}
	_, _ = fmt.Fprintf(w, "TOTAL\t%d\n", total)
	_ = w.Flush()

	records, err := repo.Recent(ctx, 10)
	if err != nil || len(records) == 0 {
		return
	}

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "RECORDED\tSEVERITY\tTYPE\tOPERATION\tMESSAGE")
	for _, rec := range records {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			rec.RecordedAt.Format(time.RFC3339),
			rec.Severity,
			rec.ErrorType,
			rec.Operation,
			truncate(rec.Message, 60),
		)
	}
	_ = w.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

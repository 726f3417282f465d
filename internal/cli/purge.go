package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/vietddude/faultline/internal/core/config"
	"github.com/vietddude/faultline/internal/eventlog"
	redisclient "github.com/vietddude/faultline/internal/infra/redis"
	"github.com/vietddude/faultline/internal/infra/storage/postgres"
)

var purgeCmd = &cobra.Command{
	Use:   "purge [older_than_days]",
	Short: "Delete persisted and archived events older than the given age",
	Args:  cobra.ExactArgs(1),
	Run:   runPurge,
}

func init() {
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) {
	days, err := strconv.Atoi(args[0])
	if err != nil || days < 0 {
		fmt.Printf("Invalid age in days: %v\n", args[0])
		os.Exit(1)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Purge the key-value store
	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			_ = client.Close()
		}()

		svc := eventlog.NewService(eventlog.Options{
			EnableConsoleLogging: false,
			Environment:          cfg.Pipeline.Environment,
		}, client, nil)
		purged := svc.PurgePersisted(ctx, days)
		fmt.Printf("Purged %d persisted events older than %d days\n", purged, days)
	}

	// Purge the archive
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer func() {
			_ = db.Close()
		}()

		cutoff := time.Now().UTC().AddDate(0, 0, -days)
		purged, err := postgres.NewEntryRepo(db).PurgeOlderThan(ctx, cutoff)
		if err != nil {
			slog.Error("Failed to purge archive", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Purged %d archived entries older than %d days\n", purged, days)
	}

	if cfg.Redis.URL == "" && cfg.Database.URL == "" {
		fmt.Println("Nothing to purge: no redis or database configured")
	}
}

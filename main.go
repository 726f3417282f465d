package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/vietddude/faultline/internal/core/domain"
	"github.com/vietddude/faultline/internal/eventlog"
	"github.com/vietddude/faultline/internal/handler"
	"github.com/vietddude/faultline/internal/infra/storage/memory"
	"github.com/vietddude/faultline/internal/surface"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found")
	}

	ctx := context.Background()

	// 1. Create an in-memory pipeline
	store := memory.NewStore()
	svc := eventlog.NewService(eventlog.Options{
		MaxBufferSize:        100,
		MaxRetentionDays:     7,
		EnablePersistence:    true,
		EnableConsoleLogging: false,
		Environment:          "development",
		Component:            "demo",
	}, store, nil)

	// 2. Attach the global handler with a log-backed user surface
	notifier := surface.NewLogNotifier(slog.Default())
	h := handler.New(svc, notifier, handler.DefaultOptions())

	// 3. Configure a fast retry policy for network failures
	action, err := domain.NewRecoveryAction(domain.ActionSpec{
		ErrorType:  domain.ErrorTypeNetwork,
		ActionType: domain.ActionRetry,
		RetryDelay: 200 * time.Millisecond,
		MaxRetries: 3,
	})
	if err != nil {
		log.Fatalf("configure retry policy: %v", err)
	}
	svc.ConfigureRecoveryAction(action)

	// 4. Wrap a flaky operation so failures retry automatically
	attempts := 0
	fetchProfile := h.WrapWithRetry(func(ctx context.Context) (any, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("connection reset by peer")
		}
		return map[string]any{"user": "demo", "plan": "free"}, nil
	}, "fetch_profile", domain.ErrorTypeNetwork, true)

	fmt.Println("=== Wrapped call with recovery ===")
	result := fetchProfile(ctx)
	fmt.Printf("Result after %d attempts: %v\n\n", attempts, result)

	// 5. Wrapped operations swallow panics instead of crashing
	brokenRender := h.Wrap(func(ctx context.Context) (any, error) {
		panic("nil view model")
	}, "render_dashboard", domain.ErrorTypeUI)

	fmt.Println("=== Wrapped call that panics ===")
	if out := brokenRender(ctx); out == nil {
		fmt.Println("Panic captured, caller got nil instead of a crash")
	}
	fmt.Println()

	// 6. Log directly at different severities
	svc.LogInfo(ctx, "profile sync finished", "sync", map[string]any{"records": 42})
	svc.LogWarning(ctx, "cache miss rate above 20%", "cache_warmup", map[string]any{"rate": 0.27})
	authID := svc.LogError(ctx, errors.New("password rejected"), "login",
		domain.SeverityError, domain.ErrorTypeAuthentication, &domain.ErrorContext{
			UserAction: "submit login form",
			DataState:  map[string]any{"username": "demo", "password": "hunter2"},
		})

	// 7. Sensitive values are redacted before anything is stored
	fmt.Println("=== Captured context for the login failure ===")
	if ectx, ok := svc.GetErrorContext(authID); ok {
		fmt.Printf("username: %v\n", ectx.DataState["username"])
		fmt.Printf("password: %v\n\n", ectx.DataState["password"])
	}

	// 8. Inspect the buffer, newest first
	fmt.Println("=== Recent events ===")
	for _, ev := range svc.GetRecentErrors(10) {
		fmt.Printf("%-9s %-15s %-18s %s\n", ev.Severity, ev.ErrorType, ev.Operation, ev.Message)
	}
	fmt.Println()

	// 9. Show pipeline stats
	stats := svc.Stats()
	fmt.Printf("Buffered: %d/%d  Logged: %d  Evicted: %d\n",
		stats.BufferSize, stats.MaxBufferSize, stats.EventsLogged, stats.Evictions)
}

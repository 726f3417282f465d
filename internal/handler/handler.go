// Package handler registers process-wide failure capture and wraps
// arbitrary operations so that a failure is logged, optionally recovered,
// and never re-thrown to the caller.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vietddude/faultline/internal/core/domain"
	"github.com/vietddude/faultline/internal/eventlog"
	"github.com/vietddude/faultline/internal/pipeline/metrics"
	"github.com/vietddude/faultline/internal/surface"
)

// Options configures the handler.
type Options struct {
	// EnableRecovery is the process-wide kill switch for automatic
	// recovery. Individual wraps still opt in per call.
	EnableRecovery bool

	// EnableUserNotifications gates calls into the user error surface.
	EnableUserNotifications bool
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		EnableRecovery:          true,
		EnableUserNotifications: true,
	}
}

// Handler is the error orchestrator. It classifies failures, records them
// through the logging service, and drives bounded recovery. All methods
// are safe for concurrent use.
type Handler struct {
	svc      *eventlog.Service
	notifier surface.Notifier
	opts     Options
	log      *slog.Logger

	wg sync.WaitGroup
}

// New creates a handler on top of the logging service. notifier may be
// nil, which disables user notifications.
func New(svc *eventlog.Service, notifier surface.Notifier, opts Options) *Handler {
	if svc == nil {
		panic("handler: nil logging service")
	}
	return &Handler{
		svc:      svc,
		notifier: notifier,
		opts:     opts,
		log:      slog.Default(),
	}
}

// Start attaches the given capture channels. Each channel registers
// independently; one crashing or failing to attach does not stop the
// others. Channels drain until ctx is canceled.
func (h *Handler) Start(ctx context.Context, sources ...Source) {
	for _, src := range sources {
		if src == nil {
			continue
		}
		h.wg.Add(1)
		go func(src Source) {
			defer h.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					h.log.Error("capture channel crashed", "channel", src.Name(), "panic", r)
				}
			}()
			h.log.Info("capture channel attached", "channel", src.Name())
			src.Capture(ctx, h)
		}(src)
	}
}

// Stop waits for all capture channels to drain. Callers cancel the Start
// context first.
func (h *Handler) Stop() {
	h.wg.Wait()
}

// HandleUncaughtError records a failure that escaped all local handling.
// It logs at Critical severity and, for recoverable categories, fires a
// recovery attempt without blocking the caller.
func (h *Handler) HandleUncaughtError(err error, operation string) {
	if err == nil {
		return
	}
	if operation == "" {
		operation = "uncaught"
	}
	metrics.CapturedErrors.WithLabelValues("uncaught").Inc()
	h.capture(err, operation)
}

// HandleUnhandledRejection records a failure value surfaced from a
// goroutine or error channel. reason may be an error or any value.
func (h *Handler) HandleUnhandledRejection(reason any, operation string) {
	if reason == nil {
		return
	}
	if operation == "" {
		operation = "unhandled_rejection"
	}
	metrics.CapturedErrors.WithLabelValues("rejection").Inc()
	h.capture(reasonToError(reason), operation)
}

func (h *Handler) capture(err error, operation string) {
	kind := h.Classify(err)
	id := h.svc.LogError(context.Background(), err, operation, domain.SeverityCritical, kind, nil)

	if !h.opts.EnableRecovery || !kind.Recoverable() {
		return
	}
	event, ok := h.svc.GetErrorEvent(id)
	if !ok {
		return
	}
	// The global handler must not block on backoff waits.
	go h.svc.AttemptRecovery(context.Background(), event)
}

// Go runs fn on a new goroutine, routing a panic or returned error into
// the uncaught-error path.
func (h *Handler) Go(operation string, fn func() error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				h.HandleUncaughtError(panicToError(r), operation)
			}
		}()
		if err := fn(); err != nil {
			h.HandleUncaughtError(err, operation)
		}
	}()
}

func panicToError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}

func reasonToError(reason any) error {
	if err, ok := reason.(error); ok {
		return err
	}
	return fmt.Errorf("%v", reason)
}

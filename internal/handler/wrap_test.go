package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/vietddude/faultline/internal/core/domain"
)

// ============================================================================
// Test Sync Wrap
// ============================================================================

func TestWrapReturnsValueOnSuccess(t *testing.T) {
	h, svc, notifier := newTestHandler(t)

	wrapped := h.Wrap(func(ctx context.Context) (any, error) {
		return 42, nil
	}, "load", domain.ErrorTypeLogic)

	if got := wrapped(context.Background()); got != 42 {
		t.Errorf("result = %v, want 42", got)
	}
	if got := svc.Stats().EventsLogged; got != 0 {
		t.Errorf("events logged = %d, want 0", got)
	}
	if g, n, a, c := notifier.counts(); g+n+a+c != 0 {
		t.Error("success must not notify the surface")
	}
}

func TestWrapSwallowsErrors(t *testing.T) {
	h, svc, notifier := newTestHandler(t)

	wrapped := h.Wrap(func(ctx context.Context) (any, error) {
		return nil, errors.New("boom")
	}, "save", domain.ErrorTypeLogic)

	for i := 0; i < 3; i++ {
		if got := wrapped(context.Background()); got != nil {
			t.Errorf("result = %v, want nil on failure", got)
		}
	}

	// Exactly one event per call, no hidden retries.
	if got := svc.Stats().EventsLogged; got != 3 {
		t.Errorf("events logged = %d, want 3", got)
	}
	for _, ev := range svc.GetRecentErrors(10) {
		if ev.Severity != domain.SeverityError {
			t.Errorf("severity = %s, want error", ev.Severity)
		}
	}
	if g, _, _, _ := notifier.counts(); g != 3 {
		t.Errorf("generic notifications = %d, want 3", g)
	}
}

func TestWrapRecoversPanics(t *testing.T) {
	h, svc, _ := newTestHandler(t)

	wrapped := h.Wrap(func(ctx context.Context) (any, error) {
		panic("unexpected state")
	}, "render", domain.ErrorTypeUI)

	var result any
	func() {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("wrapped call re-panicked: %v", r)
			}
		}()
		result = wrapped(context.Background())
	}()

	if result != nil {
		t.Errorf("result = %v, want nil", result)
	}
	if got := svc.Stats().EventsLogged; got != 1 {
		t.Fatalf("events logged = %d, want 1", got)
	}
}

func TestWrapClassifiesWhenCategoryMissing(t *testing.T) {
	h, svc, notifier := newTestHandler(t)

	wrapped := h.Wrap(func(ctx context.Context) (any, error) {
		return nil, errors.New("connection refused by upstream")
	}, "fetch_feed", domain.ErrorType(""))

	wrapped(context.Background())

	recent := svc.GetRecentErrors(1)
	if len(recent) != 1 || recent[0].ErrorType != domain.ErrorTypeNetwork {
		t.Errorf("recorded type = %v, want network via classification", recent)
	}
	if _, n, _, _ := notifier.counts(); n != 1 {
		t.Error("network failures should route to the network notification")
	}
}

func TestWrapToleratesBrokenSurface(t *testing.T) {
	opts := DefaultOptions()
	_, svc, _ := newTestHandler(t)
	h := New(svc, panicNotifier{}, opts)

	wrapped := h.Wrap(func(ctx context.Context) (any, error) {
		return nil, errors.New("boom")
	}, "save", domain.ErrorTypeLogic)

	if got := wrapped(context.Background()); got != nil {
		t.Errorf("result = %v, want nil", got)
	}
	if got := svc.Stats().EventsLogged; got != 1 {
		t.Errorf("events logged = %d, want 1", got)
	}
}

// ============================================================================
// Test Retry Wrap
// ============================================================================

func TestWrapWithRetryEventualSuccess(t *testing.T) {
	h, svc, _ := newTestHandler(t)
	action := configureFastRetry(t, svc, domain.ErrorTypeNetwork, 3)

	calls := 0
	wrapped := h.WrapWithRetry(func(ctx context.Context) (any, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection reset")
		}
		return "payload", nil
	}, "fetch", domain.ErrorTypeNetwork, true)

	result := wrapped(context.Background())

	if result != "payload" {
		t.Errorf("result = %v, want the success value", result)
	}
	if calls != 3 {
		t.Errorf("fn invoked %d times, want exactly 3", calls)
	}
	if got := action.CurrentRetries(); got != 0 {
		t.Errorf("retries after success = %d, counters must reset", got)
	}
	// One event per failed attempt.
	if got := svc.Stats().EventsLogged; got != 2 {
		t.Errorf("events logged = %d, want 2", got)
	}
}

func TestWrapWithRetryExhaustsBudget(t *testing.T) {
	h, svc, notifier := newTestHandler(t)
	action := configureFastRetry(t, svc, domain.ErrorTypeNetwork, 2)

	calls := 0
	wrapped := h.WrapWithRetry(func(ctx context.Context) (any, error) {
		calls++
		return nil, errors.New("connection reset")
	}, "fetch", domain.ErrorTypeNetwork, true)

	result := wrapped(context.Background())

	if result != nil {
		t.Errorf("result = %v, want nil on give-up", result)
	}
	// Original attempt plus maxRetries recovered attempts.
	if calls != 3 {
		t.Errorf("fn invoked %d times, want 3", calls)
	}
	if !action.IsExhausted() {
		t.Error("action should be exhausted")
	}
	if _, n, _, _ := notifier.counts(); n != 1 {
		t.Errorf("network notifications = %d, want exactly one on give-up", n)
	}
}

func TestWrapWithRetryRecoveryDisabledPerCall(t *testing.T) {
	h, svc, _ := newTestHandler(t)
	configureFastRetry(t, svc, domain.ErrorTypeNetwork, 3)

	calls := 0
	wrapped := h.WrapWithRetry(func(ctx context.Context) (any, error) {
		calls++
		return nil, errors.New("connection reset")
	}, "fetch", domain.ErrorTypeNetwork, false)

	if got := wrapped(context.Background()); got != nil {
		t.Errorf("result = %v, want nil", got)
	}
	if calls != 1 {
		t.Errorf("fn invoked %d times, want 1 with recovery off", calls)
	}
}

func TestWrapWithRetryHandlerKillSwitch(t *testing.T) {
	_, svc, notifier := newTestHandler(t)
	opts := DefaultOptions()
	opts.EnableRecovery = false
	h := New(svc, notifier, opts)
	configureFastRetry(t, svc, domain.ErrorTypeNetwork, 3)

	calls := 0
	wrapped := h.WrapWithRetry(func(ctx context.Context) (any, error) {
		calls++
		return nil, errors.New("connection reset")
	}, "fetch", domain.ErrorTypeNetwork, true)

	wrapped(context.Background())

	if calls != 1 {
		t.Errorf("fn invoked %d times, want 1 with the kill switch on", calls)
	}
}

func TestWrapWithRetryNonRecoverableFailsOnce(t *testing.T) {
	h, _, notifier := newTestHandler(t)

	calls := 0
	wrapped := h.WrapWithRetry(func(ctx context.Context) (any, error) {
		calls++
		return nil, errors.New("nil pointer dereference")
	}, "compute", domain.ErrorTypeLogic, true)

	if got := wrapped(context.Background()); got != nil {
		t.Errorf("result = %v, want nil", got)
	}
	if calls != 1 {
		t.Errorf("fn invoked %d times, logic errors never retry", calls)
	}
	if g, _, _, _ := notifier.counts(); g != 1 {
		t.Errorf("generic notifications = %d, want 1", g)
	}
}

func TestWrapWithRetryUserPromptActionDoesNotLoop(t *testing.T) {
	h, _, notifier := newTestHandler(t)

	// Authentication is recoverable, but its default action is a user
	// prompt, which never grants a retry.
	calls := 0
	wrapped := h.WrapWithRetry(func(ctx context.Context) (any, error) {
		calls++
		return nil, errors.New("token expired")
	}, "refresh_session", domain.ErrorTypeAuthentication, true)

	if got := wrapped(context.Background()); got != nil {
		t.Errorf("result = %v, want nil", got)
	}
	if calls != 1 {
		t.Errorf("fn invoked %d times, want 1", calls)
	}
	if _, _, a, _ := notifier.counts(); a != 1 {
		t.Errorf("auth notifications = %d, want 1", a)
	}
}

func TestWrapWithRetryRecoversPanickingFn(t *testing.T) {
	h, svc, _ := newTestHandler(t)
	configureFastRetry(t, svc, domain.ErrorTypeNetwork, 2)

	calls := 0
	wrapped := h.WrapWithRetry(func(ctx context.Context) (any, error) {
		calls++
		if calls == 1 {
			panic("connection pool corrupted")
		}
		return "ok", nil
	}, "fetch", domain.ErrorTypeNetwork, true)

	if got := wrapped(context.Background()); got != "ok" {
		t.Errorf("result = %v, want ok", got)
	}
	if calls != 2 {
		t.Errorf("fn invoked %d times, want 2", calls)
	}
}

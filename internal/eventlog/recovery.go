package eventlog

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/faultline/internal/core/domain"
	"github.com/vietddude/faultline/internal/pipeline/metrics"
)

// ExecutorFunc runs one recovery dispatch for an event under a policy.
type ExecutorFunc func(ctx context.Context, event *domain.ErrorEvent, action *domain.RecoveryAction) error

// defaultActions returns the per-category recovery policies installed
// at construction.
func defaultActions() map[domain.ErrorType]*domain.RecoveryAction {
	specs := []domain.ActionSpec{
		{ErrorType: domain.ErrorTypeNetwork, ActionType: domain.ActionRetry},
		{ErrorType: domain.ErrorTypeDatabase, ActionType: domain.ActionRetry},
		{
			ErrorType:   domain.ErrorTypeAuthentication,
			ActionType:  domain.ActionUserPrompt,
			UserMessage: "Your session has expired. Please sign in again.",
		},
		{
			ErrorType:        domain.ErrorTypeStorage,
			ActionType:       domain.ActionFallback,
			FallbackBehavior: "clear cached data and rebuild on next load",
		},
		{ErrorType: domain.ErrorTypeUI, ActionType: domain.ActionFailGracefully},
		{ErrorType: domain.ErrorTypeLogic, ActionType: domain.ActionFailGracefully},
	}

	actions := make(map[domain.ErrorType]*domain.RecoveryAction, len(specs))
	for _, spec := range specs {
		action, err := domain.NewRecoveryAction(spec)
		if err != nil {
			continue
		}
		actions[action.ErrorType] = action
	}
	return actions
}

// defaultExecutors returns the dispatch table for recovery policies.
// Executors only log and pace: re-invoking the failed operation is the
// caller's job, and UI work belongs to the user surface.
func defaultExecutors(log *slog.Logger) map[domain.ActionType]ExecutorFunc {
	return map[domain.ActionType]ExecutorFunc{
		domain.ActionRetry: func(ctx context.Context, event *domain.ErrorEvent, action *domain.RecoveryAction) error {
			return nil
		},
		domain.ActionFallback: func(ctx context.Context, event *domain.ErrorEvent, action *domain.RecoveryAction) error {
			log.Info("executing fallback behavior",
				"event_id", event.ID,
				"error_type", string(action.ErrorType),
				"behavior", action.FallbackBehavior)
			return nil
		},
		domain.ActionUserPrompt: func(ctx context.Context, event *domain.ErrorEvent, action *domain.RecoveryAction) error {
			log.Info("user prompt requested",
				"event_id", event.ID,
				"error_type", string(action.ErrorType),
				"message", action.UserMessage)
			return nil
		},
		domain.ActionFailGracefully: func(ctx context.Context, event *domain.ErrorEvent, action *domain.RecoveryAction) error {
			log.Info("failing gracefully",
				"event_id", event.ID,
				"error_type", string(action.ErrorType),
				"message", action.UserMessage)
			return nil
		},
	}
}

// AttemptRecovery consults the recovery action registered for the
// event's category and executes its policy. For retry policies it
// paces the dispatch by the action's configured delay and consumes one
// unit of retry budget; actually re-invoking the failed operation is
// the caller's responsibility. Returns whether the caller should
// proceed with recovery.
func (s *Service) AttemptRecovery(ctx context.Context, event *domain.ErrorEvent) bool {
	if event == nil {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	action := s.GetRecoveryAction(event.ErrorType)
	if action == nil {
		return false
	}

	if action.ActionType == domain.ActionRetry {
		if !action.CanRetry() {
			metrics.RecoveryAttempts.WithLabelValues(string(event.ErrorType), "exhausted").Inc()
			return false
		}
		if !waitForRetry(ctx, action) {
			action.RecordExecution(false, ctx.Err())
			metrics.RecoveryAttempts.WithLabelValues(string(event.ErrorType), "canceled").Inc()
			return false
		}
		action.IncrementRetry()
	}

	exec := s.executor(action.ActionType)
	if exec == nil {
		return false
	}

	if err := exec(ctx, event, action); err != nil {
		action.RecordExecution(false, err)
		metrics.RecoveryAttempts.WithLabelValues(string(event.ErrorType), "failure").Inc()
		s.log.Warn("recovery dispatch failed",
			"event_id", event.ID,
			"action", string(action.ActionType),
			"error", err)
		return false
	}

	action.RecordExecution(true, nil)
	metrics.RecoveryAttempts.WithLabelValues(string(event.ErrorType), "success").Inc()
	return true
}

// waitForRetry blocks until the action's pacing delay since its last
// dispatch has elapsed. Returns false if the context is canceled
// first.
func waitForRetry(ctx context.Context, action *domain.RecoveryAction) bool {
	wait := action.TimeUntilNextRetry()
	if wait <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(wait):
		return true
	}
}

func (s *Service) executor(t domain.ActionType) ExecutorFunc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.executors[t]
}

// RegisterExecutor replaces the dispatch function for an action type.
func (s *Service) RegisterExecutor(t domain.ActionType, fn ExecutorFunc) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executors[t] = fn
}

// GetRecoveryAction returns the live action registered for a category,
// nil if none is configured.
func (s *Service) GetRecoveryAction(errType domain.ErrorType) *domain.RecoveryAction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actions[errType]
}

// ConfigureRecoveryAction replaces the action registered for its
// category. Last write wins; each category is independent.
func (s *Service) ConfigureRecoveryAction(action *domain.RecoveryAction) {
	if action == nil {
		s.log.Warn("ignoring nil recovery action")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[action.ErrorType] = action
}

package handler

import (
	"context"

	"github.com/vietddude/faultline/internal/core/domain"
)

// Operation is a wrappable unit of work. Wrapped forms return only a
// value: nil means the operation failed and the failure was swallowed.
type Operation func(ctx context.Context) (any, error)

// Wrap returns fn as a single-attempt operation that never panics. A
// returned error or a panic is logged once at Error severity, the user
// surface is notified, and the wrapped call returns nil.
func (h *Handler) Wrap(fn Operation, operation string, errType domain.ErrorType) func(ctx context.Context) any {
	return func(ctx context.Context) (result any) {
		defer func() {
			if r := recover(); r != nil {
				h.captureWrapped(ctx, panicToError(r), operation, errType)
				result = nil
			}
		}()

		out, err := fn(ctx)
		if err != nil {
			h.captureWrapped(ctx, err, operation, errType)
			return nil
		}
		return out
	}
}

// WrapWithRetry returns fn as an operation with automatic bounded retry.
// Each failure is logged; when enableRecovery is set and the category is
// recoverable, the registered RecoveryAction drives the retry loop, so the
// bound and the pacing live in one place. On final give-up the user
// surface is notified once and the wrapped call returns nil.
func (h *Handler) WrapWithRetry(fn Operation, operation string, errType domain.ErrorType, enableRecovery bool) func(ctx context.Context) any {
	return func(ctx context.Context) any {
		var (
			kind      domain.ErrorType
			action    *domain.RecoveryAction
			recovered bool
		)

		for {
			out, err := h.invoke(ctx, fn)
			if err == nil {
				if recovered && action != nil && action.ActionType == domain.ActionRetry {
					action.ResetRetries()
				}
				return out
			}

			kind = h.resolveType(err, errType)
			id := h.svc.LogError(ctx, err, operation, domain.SeverityError, kind, nil)

			if !enableRecovery || !h.opts.EnableRecovery || !kind.Recoverable() {
				break
			}
			action = h.svc.GetRecoveryAction(kind)
			if action == nil || !action.CanRetry() {
				break
			}
			event, ok := h.svc.GetErrorEvent(id)
			if !ok {
				break
			}
			if !h.svc.AttemptRecovery(ctx, event) {
				break
			}
			recovered = true
		}

		h.notify(kind, operation, false)
		return nil
	}
}

// invoke calls fn converting a panic into an error.
func (h *Handler) invoke(ctx context.Context, fn Operation) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, panicToError(r)
		}
	}()
	return fn(ctx)
}

// captureWrapped is the shared failure path of the sync wrap.
func (h *Handler) captureWrapped(ctx context.Context, err error, operation string, errType domain.ErrorType) {
	kind := h.resolveType(err, errType)
	h.svc.LogError(ctx, err, operation, domain.SeverityError, kind, nil)
	h.notify(kind, operation, kind.Recoverable())
}

// resolveType trusts the caller's category when it is valid and falls
// back to classification otherwise.
func (h *Handler) resolveType(err error, errType domain.ErrorType) domain.ErrorType {
	if errType.Valid() {
		return errType
	}
	return h.Classify(err)
}

// notify routes a failure to the user surface. Display failures are
// logged at Warning, never propagated.
func (h *Handler) notify(kind domain.ErrorType, operation string, canRetry bool) {
	if !h.opts.EnableUserNotifications || h.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			h.log.Warn("user surface failed", "operation", operation, "panic", r)
		}
	}()

	switch kind {
	case domain.ErrorTypeNetwork:
		h.notifier.ShowNetworkError(operation)
	case domain.ErrorTypeAuthentication:
		h.notifier.ShowAuthenticationError(operation)
	default:
		h.notifier.ShowGenericError(operation, canRetry)
	}
}

// Package surface abstracts the user-facing error display. The pipeline
// never renders UI itself; hosts plug in their own implementation and the
// handler invokes it after a wrapped operation finally fails.
package surface

import (
	"log/slog"

	"github.com/vietddude/faultline/internal/pipeline/metrics"
)

// Notifier is the user error surface consumed by the error handler.
// Implementations must be safe for concurrent use and should never block;
// a panicking implementation is tolerated by callers but logged.
type Notifier interface {
	// ShowGenericError tells the user an operation failed. canRetry hints
	// whether offering a retry affordance makes sense.
	ShowGenericError(operation string, canRetry bool)

	// ShowNetworkError tells the user a connection problem interrupted
	// the operation.
	ShowNetworkError(operation string)

	// ShowAuthenticationError tells the user their session is no longer
	// valid for the operation.
	ShowAuthenticationError(operation string)

	// ShowCustomError displays a fully custom message. title may be empty.
	ShowCustomError(message, title string)
}

// LogNotifier renders notifications as structured log lines. It is the
// default surface for headless runs and tests.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a notifier backed by the given logger.
// A nil logger falls back to slog.Default().
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) ShowGenericError(operation string, canRetry bool) {
	metrics.UserNotifications.WithLabelValues("generic").Inc()
	n.log.Info("user notification",
		"kind", "generic",
		"operation", operation,
		"can_retry", canRetry,
	)
}

func (n *LogNotifier) ShowNetworkError(operation string) {
	metrics.UserNotifications.WithLabelValues("network").Inc()
	n.log.Info("user notification",
		"kind", "network",
		"operation", operation,
	)
}

func (n *LogNotifier) ShowAuthenticationError(operation string) {
	metrics.UserNotifications.WithLabelValues("authentication").Inc()
	n.log.Info("user notification",
		"kind", "authentication",
		"operation", operation,
	)
}

func (n *LogNotifier) ShowCustomError(message, title string) {
	metrics.UserNotifications.WithLabelValues("custom").Inc()
	if title == "" {
		title = "Error"
	}
	n.log.Info("user notification",
		"kind", "custom",
		"title", title,
		"message", message,
	)
}

package handler

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/vietddude/faultline/internal/core/domain"
)

// classifierRules maps message keywords to a category. Rules are checked
// in order and the first match wins, so a message mentioning both "fetch"
// and "token" classifies as Network.
var classifierRules = []struct {
	errType  domain.ErrorType
	keywords []string
}{
	{domain.ErrorTypeNetwork, []string{"network", "fetch", "timeout", "connection", "dial", "refused", "unreachable"}},
	{domain.ErrorTypeAuthentication, []string{"unauthorized", "token", "login", "permission", "forbidden"}},
	{domain.ErrorTypeDatabase, []string{"database", "sql", "query", "transaction"}},
	{domain.ErrorTypeUI, []string{"render", "component", "props"}},
}

// Classify maps an error to a category. Typed network errors are
// recognized first; everything else falls back to a keyword scan over the
// error text. Best-effort heuristic, defaults to Logic.
func (h *Handler) Classify(err error) domain.ErrorType {
	if err == nil {
		return domain.ErrorTypeLogic
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.ErrorTypeNetwork
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrorTypeNetwork
	}

	return classifyText(err.Error())
}

func classifyText(text string) domain.ErrorType {
	lowered := strings.ToLower(text)
	for _, rule := range classifierRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lowered, kw) {
				return rule.errType
			}
		}
	}
	return domain.ErrorTypeLogic
}

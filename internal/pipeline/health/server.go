package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/faultline/internal/core/domain"
	"github.com/vietddude/faultline/internal/eventlog"
)

// Server provides HTTP endpoints for health monitoring and recent-error
// inspection.
type Server struct {
	monitor *Monitor
	events  *eventlog.Service
	server  *http.Server
}

// NewServer creates a new health server.
func NewServer(monitor *Monitor, events *eventlog.Service, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		monitor: monitor,
		events:  events,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.HandleFunc("/errors/recent", s.handleRecentErrors)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.monitor.CheckHealth(r.Context())

	response := map[string]string{"status": string(report.SystemStatus)}
	w.Header().Set("Content-Type", "application/json")

	if report.SystemStatus == StatusCritical {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	report := s.monitor.CheckHealth(r.Context())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// handleRecentErrors serves buffered events, newest first. Query params:
// limit (default 50) and severity (optional filter).
func (s *Server) handleRecentErrors(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	var severities []domain.Severity
	if raw := r.URL.Query().Get("severity"); raw != "" {
		severity, err := domain.ParseSeverity(raw)
		if err != nil {
			http.Error(w, "invalid severity", http.StatusBadRequest)
			return
		}
		severities = append(severities, severity)
	}

	events := s.events.GetRecentErrors(limit, severities...)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count":  len(events),
		"events": events,
	})
}

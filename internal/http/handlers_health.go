package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	OK(w, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks the store and reports middleware state.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.ping == nil {
		checks["store"] = "ok"
	} else if err := s.ping(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
		s.logger.WarnContext(r.Context(), "Readiness check failed", "error", err)
	} else {
		checks["store"] = "ok"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides request and security counters in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	tm := s.traceMiddleware.GetMetrics()
	sm := s.securityDetector.GetMetrics()

	fmt.Fprintf(w, "# HELP ahorro_http_requests_total Total HTTP requests\n")
	fmt.Fprintf(w, "# TYPE ahorro_http_requests_total counter\n")
	fmt.Fprintf(w, "ahorro_http_requests_total %d\n", tm.TotalRequests)
	fmt.Fprintf(w, "# HELP ahorro_http_server_errors_total Responses with a 5xx status\n")
	fmt.Fprintf(w, "# TYPE ahorro_http_server_errors_total counter\n")
	fmt.Fprintf(w, "ahorro_http_server_errors_total %d\n", tm.ServerErrors)
	fmt.Fprintf(w, "# HELP ahorro_suspicious_requests_total Requests flagged by probe detection\n")
	fmt.Fprintf(w, "# TYPE ahorro_suspicious_requests_total counter\n")
	fmt.Fprintf(w, "ahorro_suspicious_requests_total %d\n", sm.SuspiciousRequests)
	fmt.Fprintf(w, "ahorro_blocked_requests_total %d\n", sm.BlockedRequests)
	fmt.Fprintf(w, "# HELP ahorro_rate_limited_total Writes rejected by the rate limit\n")
	fmt.Fprintf(w, "# TYPE ahorro_rate_limited_total counter\n")
	fmt.Fprintf(w, "ahorro_rate_limited_total %d\n", s.rateLimiter.Hits())
	fmt.Fprintf(w, "ahorro_uptime_seconds %d\n", int64(time.Since(s.started).Seconds()))
}

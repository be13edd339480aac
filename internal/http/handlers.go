package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"fatture/internal/core"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(health)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.backend == nil {
		checks["backend"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else if s.auth == nil {
		// Demo mode: exercise the store with the demo principal.
		_, err := s.backend.Overview(ctx, core.Principal{UserID: s.demoUser}, core.DefaultFilters())
		if err != nil {
			checks["backend"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	} else {
		// Authenticated backends need a real principal, so readiness only
		// confirms the wiring exists.
		checks["backend"] = "ok"
	}

	checks["cache"] = map[string]interface{}{
		"partial_entries": s.partialCache.Size(),
		"status":          "ok",
	}

	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	response := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}

	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(response)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.tracer.GetMetrics()

	invoiceWrites := atomic.LoadInt64(&s.appMetrics.invoiceWrites)
	partialHits := atomic.LoadInt64(&s.appMetrics.partialHits)
	partialMisses := atomic.LoadInt64(&s.appMetrics.partialMisses)
	loginsStarted := atomic.LoadInt64(&s.appMetrics.loginsStarted)
	loginsVerified := atomic.LoadInt64(&s.appMetrics.loginsVerified)
	uptime := time.Since(s.appMetrics.uptime)

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP invoice_writes_total Total invoice create/update/delete operations\n")
	fmt.Fprintf(w, "# TYPE invoice_writes_total counter\n")
	fmt.Fprintf(w, "invoice_writes_total %d\n\n", invoiceWrites)

	fmt.Fprintf(w, "# HELP stats_partial_cache_hits_total Rendered partial cache hits\n")
	fmt.Fprintf(w, "# TYPE stats_partial_cache_hits_total counter\n")
	fmt.Fprintf(w, "stats_partial_cache_hits_total %d\n\n", partialHits)

	fmt.Fprintf(w, "# HELP stats_partial_cache_misses_total Rendered partial cache misses\n")
	fmt.Fprintf(w, "# TYPE stats_partial_cache_misses_total counter\n")
	fmt.Fprintf(w, "stats_partial_cache_misses_total %d\n\n", partialMisses)

	fmt.Fprintf(w, "# HELP stats_partial_cache_entries Current rendered partial cache entries\n")
	fmt.Fprintf(w, "# TYPE stats_partial_cache_entries gauge\n")
	fmt.Fprintf(w, "stats_partial_cache_entries %d\n\n", s.partialCache.Size())

	fmt.Fprintf(w, "# HELP logins_started_total Magic links requested\n")
	fmt.Fprintf(w, "# TYPE logins_started_total counter\n")
	fmt.Fprintf(w, "logins_started_total %d\n\n", loginsStarted)

	fmt.Fprintf(w, "# HELP logins_verified_total Magic links successfully verified\n")
	fmt.Fprintf(w, "# TYPE logins_verified_total counter\n")
	fmt.Fprintf(w, "logins_verified_total %d\n\n", loginsVerified)

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", s.rateLimiter.ActiveClients())

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n\n", uptime.Seconds())
}

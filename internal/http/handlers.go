package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"braces/internal/core"
	"braces/internal/log"
	"braces/internal/ui"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).Round(time.Second).String(),
	})
}

// handleReady checks templates and that the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if patients, err := s.store.ListPatients(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = map[string]any{"status": "ok", "patients": len(patients)}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.GetMetrics().ClientCount,
		"status":         "ok",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.tracer.GetMetrics()
	limitMetrics := s.limiter.GetMetrics()

	patients, err := s.store.ListPatients(r.Context())
	if err != nil {
		s.fail(w, r, err, log.OpList)
		return
	}
	sum := core.Summarize(patients)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_response_time_avg_microseconds", "gauge", "Mean response time", traceMetrics.AverageResponseTime)
	metric("rate_limit_rejections_total", "counter", "Requests refused by the rate limiter", limitMetrics.Rejected)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", limitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Requests blocked as probes", s.detector.SuspiciousRequests())
	metric("idempotency_replays_total", "counter", "API writes answered from the idempotency cache", s.idempotent.Stats().Hits)
	metric("patients", "gauge", "Patients in the ledger", sum.Patients)
	metric("patients_settled", "gauge", "Patients with a zero balance", sum.Settled)
	metric("fees_total_cents", "gauge", "Sum of agreed fees", sum.TotalFees.Cents)
	metric("paid_total_cents", "gauge", "Sum of recorded payments", sum.Paid.Cents)
	metric("outstanding_total_cents", "gauge", "Sum of positive balances", sum.Outstanding.Cents)
	if s.stats != nil {
		st := s.stats()
		metric("patients_created_total", "counter", "Patients created since start", st.PatientsCreated)
		metric("payments_recorded_total", "counter", "Payments recorded since start", st.PaymentsRecorded)
		metric("event_publish_failures_total", "counter", "Ledger events that could not be published", st.PublishFailures)
	}
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(s.now().Sub(s.started).Seconds()))
}

// handleIndex renders the whole page for the navigation state in the query.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, ui.FromQuery(r.URL.Query()), nil, "")
}

// handlePatientRows serves the dashboard table body for live search.
func (s *Server) handlePatientRows(w http.ResponseWriter, r *http.Request) {
	nav := ui.FromQuery(r.URL.Query()).CloseModals()
	patients, err := s.store.ListPatients(r.Context())
	if err != nil {
		s.fail(w, r, err, log.OpList)
		return
	}
	s.render(w, r, http.StatusOK, "patient_rows", s.rows(nav, core.FilterPatients(patients, nav.Search)))
}

// handlePatient shows one profile, or its JSON to API clients.
func (s *Server) handlePatient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.store.FindPatient(r.Context(), id)
	if err != nil && !errors.Is(err, core.ErrPatientNotFound) {
		s.fail(w, r, err, log.OpFind)
		return
	}
	found := err == nil

	if wantsJSON(r) {
		if !found {
			JSONError(http.StatusNotFound, "Patient not found").Write(w)
			return
		}
		NewHTMXResponse().BodyJSON(s.toPatientJSON(p)).Write(w)
		return
	}

	status := http.StatusOK
	if !found {
		status = http.StatusNotFound
	}
	nav := ui.FromQuery(r.URL.Query()).ViewPatient(id)
	s.renderPage(w, r, status, nav, nil, "")
}

// renderPage builds and renders index.html. pageErr is shown above the content.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, nav ui.Navigator, form *formState, pageErr string) {
	data, err := s.buildPage(r.Context(), nav, form)
	if err != nil {
		s.fail(w, r, err, log.OpList)
		return
	}
	data.Error = pageErr
	s.render(w, r, status, "index.html", data)
}

package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"braces/internal/log"
)

// handleCreatePatient registers a patient from the add-patient form or a
// JSON body. Browsers are sent back to the view they came from with the
// form closed; API clients get the created record.
func (s *Server) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.badBody(w, r, err)
		return
	}
	api := p.IsJSON() || wantsJSON(r)
	if api && s.replay(w, r) {
		return
	}
	back := p.ReturnState()

	in, err := p.ParseNewPatient()
	if err == nil {
		created, cerr := s.store.CreatePatient(r.Context(), in)
		if cerr == nil {
			if api {
				s.writeCreated(w, r, "/patients/"+url.PathEscape(created.ID), s.toPatientJSON(created))
				return
			}
			s.redirect(w, r, back.URL(), NewHTMXResponse().
				TriggerPatientCreated(created.ID).
				TriggerModalClose().
				TriggerSuccessNotification("Patient added"))
			return
		}
		err = cerr
	}

	status, msg := userError(err)
	s.logRejected(r, status, err, log.OpCreate, "")
	if api {
		JSONError(status, msg).Write(w)
		return
	}
	s.renderPage(w, r, status, back.OpenAddPatient(), &formState{Error: msg, Values: p.Values()}, "")
}

// handleAddPayment records a payment for the patient in the path. An unknown
// patient is a 404 and leaves the ledger untouched.
func (s *Server) handleAddPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.badBody(w, r, err)
		return
	}
	api := p.IsJSON() || wantsJSON(r)
	if api && s.replay(w, r) {
		return
	}
	back := p.ReturnState()

	in, err := p.ParseNewPayment()
	if err == nil {
		pay, aerr := s.store.AddPayment(r.Context(), id, in)
		if aerr == nil {
			patient, ferr := s.store.FindPatient(r.Context(), id)
			if ferr != nil {
				s.fail(w, r, ferr, log.OpFind)
				return
			}
			if api {
				s.writeCreated(w, r, "/patients/"+url.PathEscape(id), map[string]any{
					"payment": toPaymentJSON(pay),
					"patient": s.toPatientJSON(patient),
				})
				return
			}
			s.redirect(w, r, back.URL(), NewHTMXResponse().
				TriggerPaymentRecorded(id, pay.ID, s.money.Format(patient.Balance())).
				TriggerModalClose().
				TriggerSuccessNotification("Payment recorded"))
			return
		}
		err = aerr
	}

	status, msg := userError(err)
	s.logRejected(r, status, err, log.OpAddPayment, id)
	if api {
		JSONError(status, msg).Write(w)
		return
	}
	if status == http.StatusNotFound {
		s.renderPage(w, r, status, back, nil, msg)
		return
	}
	s.renderPage(w, r, status, back.OpenAddPayment(id), &formState{Error: msg, Values: p.Values()}, "")
}

// HeaderIdempotencyKey lets API clients retry a write without repeating it.
const HeaderIdempotencyKey = "Idempotency-Key"

// storedResponse is a 201 kept for replay.
type storedResponse struct {
	location string
	body     []byte
}

func idempotencyKey(r *http.Request) string {
	k := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	if k == "" {
		return ""
	}
	return r.Method + " " + r.URL.Path + " " + k
}

// replay answers a retried write with the response of the first attempt.
func (s *Server) replay(w http.ResponseWriter, r *http.Request) bool {
	key := idempotencyKey(r)
	if key == "" {
		return false
	}
	prev, ok := s.idempotent.Get(key)
	if !ok {
		return false
	}
	requestLogger(r).InfoContext(r.Context(), "Replaying idempotent write", log.FieldPath, r.URL.Path)
	respondCreated(prev).Header("Idempotent-Replayed", "true").Write(w)
	return true
}

// writeCreated sends v as a 201 and remembers it under the request's
// idempotency key, if any.
func (s *Server) writeCreated(w http.ResponseWriter, r *http.Request, location string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.fail(w, r, err, log.OpRender)
		return
	}
	resp := storedResponse{location: location, body: body}
	if key := idempotencyKey(r); key != "" {
		s.idempotent.Set(key, resp)
	}
	respondCreated(resp).Write(w)
}

func respondCreated(resp storedResponse) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(http.StatusCreated).
		Header("Content-Type", "application/json").
		Header("Location", resp.location).
		Body(resp.body)
}

// redirect finishes a successful form post: htmx gets HX-Redirect plus the
// triggers, plain browsers a 303.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, to string, b *HTMXResponseBuilder) {
	if isHTMX(r) {
		b.Redirect(to).Write(w)
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (s *Server) badBody(w http.ResponseWriter, r *http.Request, err error) {
	requestLogger(r).WarnContext(r.Context(), "Unreadable request body", log.FieldPath, r.URL.Path, log.FieldError, err)
	if wantsJSON(r) {
		JSONError(http.StatusBadRequest, "Invalid request body").Write(w)
		return
	}
	BadRequestError("Invalid request body").Write(w)
}

func (s *Server) logRejected(r *http.Request, status int, err error, op, patientID string) {
	args := []any{log.FieldOperation, op, log.FieldStatusCode, status, log.FieldError, err}
	if patientID != "" {
		args = append(args, log.FieldPatientID, patientID)
	}
	logger := requestLogger(r)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Ledger write failed", args...)
		return
	}
	logger.InfoContext(r.Context(), "Ledger write rejected", append(args, "error_type", log.ErrorTypeValidation)...)
}

// requestLogger is the trace middleware's per-request logger, tagged for http.
func requestLogger(r *http.Request) *log.Logger {
	return log.FromContext(r.Context()).WithComponent(log.ComponentHTTP)
}

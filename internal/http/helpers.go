package http

import (
	"errors"
	"net/http"
	"strings"

	"braces/internal/core"
)

// sanitizeInput removes control characters (except tab and newlines) and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// isHTMX reports whether the request was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON reports whether the client asked for a JSON response.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// userError maps a ledger error onto a status code and a message fit for the
// form. Unknown errors are internal.
func userError(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrPatientNotFound):
		return http.StatusNotFound, "Patient not found"
	case errors.Is(err, core.ErrInvalidAmount):
		var fe *FieldError
		if errors.As(err, &fe) && fe.Field == fieldTotalFee {
			return http.StatusUnprocessableEntity, "Enter a valid total fee"
		}
		return http.StatusUnprocessableEntity, "Enter an amount greater than zero"
	case errors.Is(err, core.ErrNegativeFee):
		return http.StatusUnprocessableEntity, "Total fee cannot be negative"
	case errors.Is(err, core.ErrEmptyName):
		return http.StatusUnprocessableEntity, "Full name is required"
	case errors.Is(err, core.ErrNameTooLong):
		return http.StatusUnprocessableEntity, "Full name is too long"
	case errors.Is(err, core.ErrEmptyContact):
		return http.StatusUnprocessableEntity, "Contact is required"
	case errors.Is(err, core.ErrInvalidMethod):
		return http.StatusUnprocessableEntity, "Choose Cash, Mobile Money or Card"
	case errors.Is(err, core.ErrInvalidDate):
		return http.StatusUnprocessableEntity, "Enter a date as YYYY-MM-DD"
	default:
		return http.StatusInternalServerError, "Could not save, please try again"
	}
}

// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Bodies arrive either form-encoded (the HTML forms, with or without htmx) or
// as JSON from API clients; both map onto the same core input types.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"braces/internal/core"
	"braces/internal/ui"
)

// maxBodyBytes caps request bodies; the forms are a handful of short fields.
const maxBodyBytes = 64 << 10

// Form field names shared by the templates and JSON clients.
const (
	fieldName      = "name"
	fieldContact   = "contact"
	fieldTotalFee  = "totalFee"
	fieldStartDate = "startDate"
	fieldNotes     = "notes"
	fieldAmount    = "amount"
	fieldDate      = "date"
	fieldMethod    = "method"
	fieldNote      = "note"
)

// FieldError ties a validation failure to the form field that caused it.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if p.err == nil && len(p.body) > maxBodyBytes {
			p.err = fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)
		}
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(p.contentType, "application/json") || p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// Values exposes form fields (or stringified JSON fields) as url.Values.
func (p *RequestBodyParser) Values() url.Values {
	if p.jsonData == nil {
		if p.formData == nil {
			return url.Values{}
		}
		return p.formData
	}
	out := url.Values{}
	for k, v := range p.jsonData {
		out.Set(k, stringValue(v))
	}
	return out
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseNewPatient reads the add-patient fields. Blank name or contact are left
// for core validation; only malformed numbers and dates fail here.
func (p *RequestBodyParser) ParseNewPatient() (core.NewPatient, error) {
	in := core.NewPatient{
		Name:    p.Get(fieldName),
		Contact: p.Get(fieldContact),
		Notes:   p.Get(fieldNotes),
	}

	fee, err := core.ParseMoney(p.Get(fieldTotalFee))
	if err != nil {
		return in, &FieldError{Field: fieldTotalFee, Err: err}
	}
	in.TotalFee = fee

	if s := p.Get(fieldStartDate); s != "" {
		d, err := core.ParseDate(s)
		if err != nil {
			return in, &FieldError{Field: fieldStartDate, Err: err}
		}
		in.StartDate = d
	}
	return in, nil
}

// ParseNewPayment reads the add-payment fields. Date and method may be blank
// and are defaulted by the store.
func (p *RequestBodyParser) ParseNewPayment() (core.NewPayment, error) {
	in := core.NewPayment{Note: p.Get(fieldNote)}

	amount, err := core.ParseMoney(p.Get(fieldAmount))
	if err != nil {
		return in, &FieldError{Field: fieldAmount, Err: err}
	}
	in.Amount = amount

	if s := p.Get(fieldDate); s != "" {
		d, err := core.ParseDate(s)
		if err != nil {
			return in, &FieldError{Field: fieldDate, Err: err}
		}
		in.Date = d
	}
	if s := p.Get(fieldMethod); s != "" {
		m, err := core.ParsePaymentMethod(s)
		if err != nil {
			return in, &FieldError{Field: fieldMethod, Err: err}
		}
		in.Method = m
	}
	return in, nil
}

// ReturnState is the navigation state the form was opened from, carried in
// hidden fields, with every modal closed.
func (p *RequestBodyParser) ReturnState() ui.Navigator {
	return ui.FromQuery(p.Values()).CloseModals()
}

package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"braces/internal/core"
	"braces/internal/ui"
)

func newParser(t *testing.T, contentType, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	p := NewRequestBodyParser(req)
	require.NoError(t, p.Parse())
	return p
}

func TestRequestBodyParser_JSON(t *testing.T) {
	p := newParser(t, "application/json", `{"name":" \u0007Ama ","totalFee":1200.5,"flag":true}`)

	assert.True(t, p.IsJSON())
	assert.Equal(t, "Ama", p.Get("name"))
	assert.Equal(t, "1200.5", p.Get("totalFee"))
	assert.Equal(t, "true", p.Get("flag"))
	assert.Equal(t, "", p.Get("missing"))
	assert.Equal(t, "1200.5", p.Values().Get("totalFee"))
}

func TestRequestBodyParser_JSONWithoutContentType(t *testing.T) {
	p := newParser(t, "", `{"name":"Kofi"}`)
	assert.True(t, p.IsJSON())
	assert.Equal(t, "Kofi", p.Get("name"))
}

func TestRequestBodyParser_FormData(t *testing.T) {
	p := newParser(t, "application/x-www-form-urlencoded", url.Values{"name": {" Jane "}, "q": {"do"}}.Encode())

	assert.False(t, p.IsJSON())
	assert.Equal(t, "Jane", p.Get("name"))
	assert.Equal(t, "do", p.Values().Get("q"))
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	p := newParser(t, "", "")
	assert.False(t, p.IsJSON())
	assert.Equal(t, "", p.Get("name"))
	assert.Empty(t, p.Values())
}

func TestRequestBodyParser_Errors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	req.Header.Set("Content-Type", "application/json")
	p := NewRequestBodyParser(req)
	assert.Error(t, p.Parse())
	assert.Error(t, p.Parse(), "error is sticky")

	big := strings.Repeat("a", maxBodyBytes+1)
	p = NewRequestBodyParser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("note="+big)))
	assert.ErrorContains(t, p.Parse(), "exceeds")
}

func TestParseNewPatient(t *testing.T) {
	p := newParser(t, "application/x-www-form-urlencoded", url.Values{
		"name": {"Ama Owusu"}, "contact": {"055"}, "totalFee": {"1,200.50"},
	}.Encode())
	_, err := p.ParseNewPatient()
	require.Error(t, err, "grouping separators are rejected")

	p = newParser(t, "application/x-www-form-urlencoded", url.Values{
		"name": {"Ama Owusu"}, "contact": {"055"}, "totalFee": {"1200.50"},
		"startDate": {"2025-03-04"}, "notes": {"lingual"},
	}.Encode())
	in, err := p.ParseNewPatient()
	require.NoError(t, err)
	assert.Equal(t, core.NewPatient{
		Name: "Ama Owusu", Contact: "055", TotalFee: core.Money{Cents: 120050},
		StartDate: core.NewDate(2025, 3, 4), Notes: "lingual",
	}, in)
}

func TestParseNewPatient_FieldErrors(t *testing.T) {
	tests := []struct {
		name  string
		form  url.Values
		field string
		want  error
	}{
		{"missing fee", url.Values{"name": {"A"}}, fieldTotalFee, core.ErrInvalidAmount},
		{"text fee", url.Values{"totalFee": {"abc"}}, fieldTotalFee, core.ErrInvalidAmount},
		{"bad date", url.Values{"totalFee": {"1"}, "startDate": {"2025-13-01"}}, fieldStartDate, core.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParser(t, "application/x-www-form-urlencoded", tt.form.Encode())
			_, err := p.ParseNewPatient()
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseNewPayment(t *testing.T) {
	p := newParser(t, "application/json", `{"amount":"250","method":"mobile money","date":"2025-10-01","note":"Oct"}`)
	in, err := p.ParseNewPayment()
	require.NoError(t, err)
	assert.Equal(t, core.NewPayment{
		Date: core.NewDate(2025, 10, 1), Amount: core.Units(250), Method: core.MobileMoney, Note: "Oct",
	}, in)

	p = newParser(t, "application/x-www-form-urlencoded", "amount=10")
	in, err = p.ParseNewPayment()
	require.NoError(t, err)
	assert.True(t, in.Date.IsZero(), "left for the store to default")
	assert.Equal(t, core.PaymentMethod(""), in.Method)
}

func TestParseNewPayment_FieldErrors(t *testing.T) {
	for body, want := range map[string]error{
		"amount=":                core.ErrInvalidAmount,
		"amount=1e3":             core.ErrInvalidAmount,
		"amount=5&date=tomorrow": core.ErrInvalidDate,
		"amount=5&method=Cheque": core.ErrInvalidMethod,
	} {
		p := newParser(t, "application/x-www-form-urlencoded", body)
		_, err := p.ParseNewPayment()
		assert.ErrorIs(t, err, want, body)
	}
}

func TestReturnState(t *testing.T) {
	p := newParser(t, "application/x-www-form-urlencoded", url.Values{
		"view": {"patient"}, "patient": {"p1"}, "q": {"ja"}, "modal": {"add-payment"}, "for": {"p1"},
		"amount": {"5"},
	}.Encode())

	nav := p.ReturnState()
	assert.Equal(t, ui.ViewPatient, nav.View)
	assert.Equal(t, "p1", nav.SelectedID)
	assert.Equal(t, "ja", nav.Search)
	assert.False(t, nav.ModalOpen())

	assert.Equal(t, ui.New(), newParser(t, "", "amount=5").ReturnState())
}

func TestUserError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{core.ErrPatientNotFound, http.StatusNotFound, "Patient not found"},
		{&FieldError{Field: fieldTotalFee, Err: core.ErrInvalidAmount}, http.StatusUnprocessableEntity, "Enter a valid total fee"},
		{&FieldError{Field: fieldAmount, Err: core.ErrInvalidAmount}, http.StatusUnprocessableEntity, "Enter an amount greater than zero"},
		{core.ErrInvalidAmount, http.StatusUnprocessableEntity, "Enter an amount greater than zero"},
		{core.ErrNameTooLong, http.StatusUnprocessableEntity, "Full name is too long"},
		{core.ErrInvalidMethod, http.StatusUnprocessableEntity, "Choose Cash, Mobile Money or Card"},
		{assert.AnError, http.StatusInternalServerError, "Could not save, please try again"},
	}
	for _, tt := range tests {
		status, msg := userError(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.msg, msg)
	}
}

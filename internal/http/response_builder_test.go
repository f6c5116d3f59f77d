package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triggers(t *testing.T, rr *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(rr.Header().Get("HX-Trigger")), &out))
	return out
}

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHTMXResponse().BodyHTML("<p>ok</p>").Write(rr)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "<p>ok</p>", rr.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Empty(t, rr.Header().Get("HX-Trigger"))
}

func TestHTMXResponseBuilder_LedgerTriggers(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHTMXResponse().
		TriggerPatientCreated("p2").
		TriggerPaymentRecorded("p1", "t3", "$4,500").
		TriggerModalClose().
		TriggerSuccessNotification("Saved").
		Redirect("/?view=patient").
		Write(rr)

	assert.Equal(t, "/?view=patient", rr.Header().Get("HX-Redirect"))
	got := triggers(t, rr)
	assert.JSONEq(t, `{"id":"p2"}`, string(got[EventPatientCreated]))
	assert.JSONEq(t, `{"patient":"p1","payment":"t3","balance":"$4,500"}`, string(got[EventPaymentRecorded]))
	assert.JSONEq(t, `{}`, string(got[EventModalClose]))
	assert.JSONEq(t, `{"type":"success","message":"Saved","duration":3000}`, string(got[EventNotification]))
}

func TestHTMXResponseBuilder_JSONBody(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHTMXResponse().Status(http.StatusCreated).Header("Location", "/patients/p2").BodyJSON(map[string]int{"n": 1}).Write(rr)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "/patients/p2", rr.Header().Get("Location"))
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, rr.Body.String())

	rr = httptest.NewRecorder()
	NewHTMXResponse().BodyJSON(make(chan int)).Write(rr)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name   string
		build  *HTMXResponseBuilder
		status int
	}{
		{"bad request", BadRequestError("nope"), http.StatusBadRequest},
		{"unprocessable", UnprocessableEntityError("nope"), http.StatusUnprocessableEntity},
		{"not found", NotFoundError("nope"), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tt.build.Write(rr)
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, `<div class="error" role="alert">nope</div>`, rr.Body.String())
		})
	}
}

func TestErrorResponse_EscapesHTML(t *testing.T) {
	rr := httptest.NewRecorder()
	ErrorResponse(http.StatusBadRequest, `<script>alert("x")</script>`).Write(rr)
	assert.NotContains(t, rr.Body.String(), "<script>")
	assert.Contains(t, rr.Body.String(), "&lt;script&gt;")
}

func TestJSONError(t *testing.T) {
	rr := httptest.NewRecorder()
	JSONError(http.StatusNotFound, "Patient not found").Write(rr)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"Patient not found"}`, rr.Body.String())
}

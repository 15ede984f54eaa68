package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRespond_WritesJSONAndStatus(t *testing.T) {
	w := httptest.NewRecorder()
	Respond(w, http.StatusCreated, map[string]string{"status": "ready"})

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q, want application/json", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["status"] != "ready" {
		t.Errorf("body status = %q, want %q", body["status"], "ready")
	}
}

func TestRespondError_WritesEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	RespondError(w, http.StatusServiceUnavailable, "unavailable", "database not ready")

	var body ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Error != "unavailable" || body.Message != "database not ready" {
		t.Errorf("body = %+v, unexpected", body)
	}
}

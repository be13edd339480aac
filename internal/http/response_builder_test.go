package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseTriggers(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHTMXResponse().
		TriggerStatsRefreshed(7).
		TriggerInvoiceCreated("inv-1").
		Write(rec)

	header := rec.Header().Get("HX-Trigger")
	if header == "" {
		t.Fatal("HX-Trigger header missing")
	}

	var triggers map[string]any
	if err := json.Unmarshal([]byte(header), &triggers); err != nil {
		t.Fatalf("HX-Trigger is not valid JSON: %v", err)
	}

	refreshed, ok := triggers["stats:refreshed"].(map[string]any)
	if !ok {
		t.Fatalf("stats:refreshed payload = %v", triggers["stats:refreshed"])
	}
	if refreshed["generation"] != float64(7) {
		t.Errorf("generation = %v, want 7", refreshed["generation"])
	}

	created, ok := triggers["invoice:created"].(map[string]any)
	if !ok || created["id"] != "inv-1" {
		t.Errorf("invoice:created payload = %v", triggers["invoice:created"])
	}
}

func TestHTMXResponseNoTriggersNoHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHTMXResponse().BodyString("ok").Write(rec)

	if rec.Header().Get("HX-Trigger") != "" {
		t.Error("HX-Trigger should be absent without triggers")
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestErrorResponseEscapesMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	BadRequestError(`<script>alert("x")</script>`).Write(rec)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<script>") {
		t.Error("message was not HTML-escaped")
	}
	if !strings.Contains(body, `class="error"`) {
		t.Errorf("body = %q", body)
	}
}

func TestMethodNotAllowedSetsAllowHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	MethodNotAllowedError("POST").Write(rec)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Allow"); got != "POST" {
		t.Errorf("Allow = %q, want POST", got)
	}
}

func TestRequirePOST(t *testing.T) {
	if resp := RequirePOST(httptest.NewRequest(http.MethodPost, "/", nil)); resp != nil {
		t.Error("POST should pass")
	}
	if resp := RequirePOST(httptest.NewRequest(http.MethodGet, "/", nil)); resp == nil {
		t.Error("GET should be rejected")
	}
}

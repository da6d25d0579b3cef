//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestLiveness(t *testing.T) {
	resp := doGet(t, "/livez", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	h := decodeJSON[healthResponse](t, resp)
	if h.Status != "ok" {
		t.Errorf("status: got %q, want %q", h.Status, "ok")
	}
}

func TestReadiness(t *testing.T) {
	resp := doGet(t, "/readyz", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	h := decodeJSON[healthResponse](t, resp)
	if h.Status != "ok" {
		t.Errorf("status: got %q, want %q", h.Status, "ok")
	}
	if errText := h.Checks["postgres"]; errText != "" {
		t.Errorf("postgres check failing: %s", errText)
	}
}

func TestRequestIDHeader(t *testing.T) {
	resp := doGet(t, "/livez", "")
	defer resp.Body.Close()

	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header on response")
	}
}

package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSPAHandlerServesIndex(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"/", "/debate/123"} {
		rec := httptest.NewRecorder()
		SPAHandler(false).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "<title>Debate</title>") {
			t.Fatalf("%s: expected index.html body", path)
		}
		if rec.Header().Get("Cache-Control") != "" {
			t.Fatalf("%s: production responses should not disable caching", path)
		}
	}
}

func TestSPAHandlerDevDisablesCache(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	SPAHandler(true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app.js", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Cache-Control"), "no-store") {
		t.Fatalf("expected no-store in dev, got %q", rec.Header().Get("Cache-Control"))
	}
}

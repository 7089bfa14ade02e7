package http_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"diarykeeper/internal/contextutil"
	internalhttp "diarykeeper/internal/http"
)

func TestLoggerMiddleware(t *testing.T) {
	var got *slog.Logger
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = contextutil.LoggerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/sections", nil)
	w := httptest.NewRecorder()
	internalhttp.LoggerMiddleware(inner).ServeHTTP(w, req)

	if got == nil {
		t.Fatal("no logger found in request context")
	}
	if got == slog.Default() {
		t.Error("logger in context is the bare default, want one with request attributes")
	}
}

func TestCORS(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("passes through with headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sections", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		internalhttp.CORS(inner).ServeHTTP(w, req)

		if w.Code != http.StatusTeapot {
			t.Errorf("status = %d, want handler's status", w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("Allow-Origin = %q, want echoed origin", got)
		}
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/sections", nil)
		w := httptest.NewRecorder()
		internalhttp.CORS(inner).ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("preflight status = %d, want 204", w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Methods"); got == "" {
			t.Error("preflight missing Allow-Methods header")
		}
	})
}

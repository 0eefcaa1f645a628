package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	t.Run("генерируется при отсутствии", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/courses", nil))
		if seen == "" || rec.Header().Get(HeaderRequestID) != seen {
			t.Errorf("id = %q, заголовок = %q", seen, rec.Header().Get(HeaderRequestID))
		}
	})

	t.Run("берётся из запроса", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/courses", nil)
		req.Header.Set(HeaderRequestID, "abc-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if seen != "abc-123" || rec.Header().Get(HeaderRequestID) != "abc-123" {
			t.Errorf("id = %q", seen)
		}
	})
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	handler := RequestLogger(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("tea"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot || rec.Body.String() != "tea" {
		t.Errorf("ответ изменён: %d %q", rec.Code, rec.Body.String())
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/courses", "/courses"},
		{"/courses/new", "/courses/new"},
		{"/courses/550e8400-e29b-41d4-a716-446655440000", "/courses/{id}"},
		{"/courses/550e8400-e29b-41d4-a716-446655440000/edit", "/courses/{id}/edit"},
		{"/lessons/550e8400-e29b-41d4-a716-446655440000", "/lessons/{id}"},
		{"/health/ready", "/health/ready"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := normalizePath(tt.input); got != tt.expected {
				t.Errorf("normalizePath(%q) = %q, ожидалось %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRoutePattern_FromChi(t *testing.T) {
	var pattern string
	router := chi.NewRouter()
	router.Get("/courses/{id}/edit", func(_ http.ResponseWriter, r *http.Request) {
		pattern = routePattern(r)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/courses/not-a-uuid/edit", nil))
	if pattern != "/courses/{id}/edit" {
		t.Errorf("pattern = %q", pattern)
	}
}

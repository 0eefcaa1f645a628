package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/studyon/study-on/internal/auth"
	"github.com/studyon/study-on/internal/billing"
	"github.com/studyon/study-on/internal/domain/rbac"
	"github.com/studyon/study-on/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestHandler() *APIHandler {
	logger := testLogger()
	return NewAPIHandler(NewHealthHandler(nil, nil), nil, nil, nil, nil,
		auth.NewSessionStore("test-secret", false, logger), logger)
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		code     string
		location string
	}{
		{
			name:   "ошибка валидации",
			err:    &service.ValidationError{Fields: map[string]string{"code": "bad"}},
			status: http.StatusUnprocessableEntity,
			code:   "VALIDATION_ERROR",
		},
		{
			name:     "не аутентифицирован",
			err:      fmt.Errorf("op: %w", rbac.ErrUnauthenticated),
			status:   http.StatusFound,
			location: "/login",
		},
		{
			name:     "токен отклонён billing",
			err:      fmt.Errorf("op: %w", billing.ErrAuthenticationFailed),
			status:   http.StatusFound,
			location: "/login",
		},
		{
			name:   "неверный CSRF-токен",
			err:    fmt.Errorf("op: %w", auth.ErrInvalidCSRFToken),
			status: http.StatusForbidden,
			code:   "INVALID_CSRF_TOKEN",
		},
		{
			name:   "доступ запрещён",
			err:    service.ErrAuthorizationDenied,
			status: http.StatusForbidden,
			code:   "FORBIDDEN",
		},
		{
			name:   "курс не оплачен",
			err:    fmt.Errorf("%w: python-junior", service.ErrNotEntitled),
			status: http.StatusForbidden,
			code:   "NOT_ENTITLED",
		},
		{
			name:   "не найден локально",
			err:    service.ErrNotFound,
			status: http.StatusNotFound,
			code:   "NOT_FOUND",
		},
		{
			name:   "не найден в billing",
			err:    billing.ErrNotFound,
			status: http.StatusNotFound,
			code:   "NOT_FOUND",
		},
		{
			name:   "отказ во входе",
			err:    &billing.CredentialsError{Message: "Invalid credentials."},
			status: http.StatusUnauthorized,
			code:   "UNAUTHORIZED",
		},
		{
			name:   "billing недоступен",
			err:    fmt.Errorf("op: %w", billing.ErrServiceUnavailable),
			status: http.StatusServiceUnavailable,
			code:   "BILLING_UNAVAILABLE",
		},
		{
			name:   "некорректный ответ billing",
			err:    billing.ErrMalformedResponse,
			status: http.StatusBadGateway,
			code:   "BAD_GATEWAY",
		},
		{
			name:   "прочая ошибка",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			code:   "INTERNAL_ERROR",
		},
	}

	h := newTestHandler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/courses", nil)
			w := httptest.NewRecorder()

			h.writeServiceError(w, req, tt.err)

			if w.Code != tt.status {
				t.Fatalf("статус = %d, ожидался %d", w.Code, tt.status)
			}
			if tt.location != "" {
				if got := w.Header().Get("Location"); got != tt.location {
					t.Errorf("Location = %q, ожидался %q", got, tt.location)
				}
				return
			}
			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Code != tt.code {
				t.Errorf("code = %q, ожидался %q", body.Error.Code, tt.code)
			}
		})
	}
}

func formRequest(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/courses/new", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestParseCourseForm(t *testing.T) {
	tests := []struct {
		name      string
		values    url.Values
		wantPrice float64
		wantErr   bool
	}{
		{name: "цена указана", values: url.Values{"code": {"c"}, "type": {"pay"}, "price": {"350.99"}}, wantPrice: 350.99},
		{name: "цена пустая", values: url.Values{"code": {"c"}, "type": {"free"}, "price": {""}}},
		{name: "цена не число", values: url.Values{"price": {"дорого"}}, wantErr: true},
		{name: "бесконечная цена", values: url.Values{"type": {"pay"}, "price": {"Inf"}}, wantErr: true},
		{name: "отрицательная бесконечность", values: url.Values{"type": {"rent"}, "price": {"-Infinity"}}, wantErr: true},
		{name: "цена NaN", values: url.Values{"type": {"pay"}, "price": {"NaN"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form, err := parseCourseForm(formRequest(tt.values))
			if tt.wantErr {
				var validationErr *service.ValidationError
				if !errors.As(err, &validationErr) || validationErr.Fields["price"] == "" {
					t.Fatalf("ожидалась ошибка поля price, получено %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseCourseForm: %v", err)
			}
			if form.Price != tt.wantPrice {
				t.Errorf("price = %v, ожидалось %v", form.Price, tt.wantPrice)
			}
		})
	}
}

func TestParseLessonForm_InvalidOrderNumber(t *testing.T) {
	_, err := parseLessonForm(formRequest(url.Values{"order_number": {"1.5"}}))

	var validationErr *service.ValidationError
	if !errors.As(err, &validationErr) || validationErr.Fields["order_number"] == "" {
		t.Fatalf("ожидалась ошибка поля order_number, получено %v", err)
	}
}

func TestParseForm_TooLarge(t *testing.T) {
	body := "title=" + strings.Repeat("a", maxFormSize+1)
	req := httptest.NewRequest(http.MethodPost, "/courses/new", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	if parseForm(w, req) {
		t.Fatal("parseForm принял слишком большое тело")
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("статус = %d, ожидался 400", w.Code)
	}
}

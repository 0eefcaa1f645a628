package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// mockChecker — ReadinessChecker с фиксированным ответом.
type mockChecker struct {
	status  string
	message string
}

func (m mockChecker) CheckReady() (string, string) {
	return m.status, m.message
}

func TestHealthLive(t *testing.T) {
	h := NewHealthHandler(nil, nil)
	w := httptest.NewRecorder()

	h.HealthLive(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидался 200", w.Code)
	}
	var resp healthLiveResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Service != "study-on" {
		t.Errorf("ответ = %+v", resp)
	}
}

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name       string
		pg         ReadinessChecker
		billing    ReadinessChecker
		wantStatus string
		wantCode   int
	}{
		{
			name:       "все зависимости доступны",
			pg:         mockChecker{status: "ok"},
			billing:    mockChecker{status: "ok"},
			wantStatus: "ok",
			wantCode:   http.StatusOK,
		},
		{
			name:       "billing деградирован",
			pg:         mockChecker{status: "ok"},
			billing:    mockChecker{status: "degraded", message: "медленно"},
			wantStatus: "degraded",
			wantCode:   http.StatusOK,
		},
		{
			name:       "billing недоступен",
			pg:         mockChecker{status: "ok"},
			billing:    mockChecker{status: "fail", message: "connection refused"},
			wantStatus: "fail",
			wantCode:   http.StatusServiceUnavailable,
		},
		{
			name:       "PostgreSQL не инициализирован",
			billing:    mockChecker{status: "ok"},
			wantStatus: "fail",
			wantCode:   http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.pg, tt.billing)
			w := httptest.NewRecorder()

			h.HealthReady(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if w.Code != tt.wantCode {
				t.Fatalf("статус = %d, ожидался %d", w.Code, tt.wantCode)
			}
			var resp healthReadyResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %q, ожидался %q", resp.Status, tt.wantStatus)
			}
		})
	}
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		statuses []string
		expected string
	}{
		{[]string{"ok", "ok"}, "ok"},
		{[]string{"ok", "degraded"}, "degraded"},
		{[]string{"degraded", "fail"}, "fail"},
		{nil, "ok"},
	}
	for _, tt := range tests {
		if got := overallStatus(tt.statuses...); got != tt.expected {
			t.Errorf("overallStatus(%v) = %q, ожидался %q", tt.statuses, got, tt.expected)
		}
	}
}

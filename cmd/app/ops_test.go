package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cmaxbonds/internal/metrics"
)

func TestOpsHealth(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]healthCheck
		wantCode   int
		wantStatus string
	}{
		{name: "no dependencies", checks: nil, wantCode: http.StatusOK, wantStatus: "healthy"},
		{
			name:       "all ok",
			checks:     map[string]healthCheck{"redis": func(context.Context) error { return nil }},
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
		},
		{
			name: "one failing",
			checks: map[string]healthCheck{
				"redis":    func(context.Context) error { return nil },
				"database": func(context.Context) error { return errors.New("connection refused") },
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			newOpsRouter(metrics.New(), tt.checks).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rr.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", rr.Code, tt.wantCode)
			}
			var body struct {
				Status       string            `json:"status"`
				Dependencies map[string]string `json:"dependencies"`
			}
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", body.Status, tt.wantStatus)
			}
			if len(body.Dependencies) != len(tt.checks) {
				t.Errorf("dependencies = %v", body.Dependencies)
			}
		})
	}
}

func TestOpsMetrics(t *testing.T) {
	rec := metrics.New()
	rec.Login(true)
	rec.Recommendation("CMAX-2022-001", "HOLD")

	rr := httptest.NewRecorder()
	newOpsRouter(rec, nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("code = %d", rr.Code)
	}
	for _, want := range []string{"cmax_logins_total", "cmax_recommendations_total"} {
		if !strings.Contains(rr.Body.String(), want) {
			t.Errorf("metrics output lacks %s", want)
		}
	}
}

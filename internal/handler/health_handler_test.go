package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthHandler(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     []HealthCheck
		wantStatus int
		wantBody   string
	}{
		{
			name:       "all healthy",
			checks:     []HealthCheck{{Name: "database", Check: ok}, {Name: "redis", Check: ok}},
			wantStatus: http.StatusOK,
			wantBody:   `"status":"healthy"`,
		},
		{
			name:       "redis down",
			checks:     []HealthCheck{{Name: "database", Check: ok}, {Name: "redis", Check: down}},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `"redis":"unhealthy"`,
		},
		{
			name:       "no dependencies",
			wantStatus: http.StatusOK,
			wantBody:   `"service":"class-election"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler("test", nopLogger(), tt.checks...)
			rec := httptest.NewRecorder()
			h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

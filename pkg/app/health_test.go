package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitscheduler/pkg/logger"
)

func TestHealthHandler_Ready(t *testing.T) {
	log := logger.New(logger.Config{Output: io.Discard})

	tests := []struct {
		name       string
		checks     map[string]Pinger
		wantStatus int
		wantDeps   map[string]string
	}{
		{
			name:       "all dependencies up",
			checks:     map[string]Pinger{"mongo": func(context.Context) error { return nil }},
			wantStatus: http.StatusOK,
			wantDeps:   map[string]string{"mongo": "ok"},
		},
		{
			name: "redis down",
			checks: map[string]Pinger{
				"mongo": func(context.Context) error { return nil },
				"redis": func(context.Context) error { return errors.New("connection refused") },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantDeps:   map[string]string{"mongo": "ok", "redis": "error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := httprouter.New()
			NewHealthHandler(tt.checks, log).RegisterRoutes(router)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantDeps, body.Dependencies)
		})
	}
}

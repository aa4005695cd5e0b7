package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type fixedState State

func (s fixedState) State() State { return State(s) }

func serve(t *testing.T, hs *HealthServer, path string) (int, HealthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	hs.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec.Code, resp
}

func TestHealth(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	code, resp := serve(t, NewHealthServer(0, ok, fixedState(StateIdle), zap.NewNop()), "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp.Status)

	code, resp = serve(t, NewHealthServer(0, down, fixedState(StateIdle), zap.NewNop()), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Contains(t, resp.Checks["queue"], "connection refused")
}

func TestReady(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })

	code, resp := serve(t, NewHealthServer(0, ok, fixedState(StateProcessing), zap.NewNop()), "/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StateProcessing, resp.State)

	code, resp = serve(t, NewHealthServer(0, ok, fixedState(StateTerminated), zap.NewNop()), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not ready", resp.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	hs := NewHealthServer(0, pingFunc(func(context.Context) error { return nil }), fixedState(StateIdle), zap.NewNop())

	rec := httptest.NewRecorder()
	hs.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "conformal_batches_received_total")
}

func TestHealthServer_DisabledOnPortZero(t *testing.T) {
	hs := NewHealthServer(0, pingFunc(func(context.Context) error { return nil }), fixedState(StateIdle), zap.NewNop())
	require.NoError(t, hs.Start())
	assert.NoError(t, hs.Stop())
}

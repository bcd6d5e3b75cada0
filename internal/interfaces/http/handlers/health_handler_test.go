package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bangunhq/estimator/pkg/errors"
)

func TestLivenessAlwaysOK(t *testing.T) {
	h := NewHealthHandler("1.2.3")
	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestReadinessAllHealthy(t *testing.T) {
	h := NewHealthHandler("dev",
		CheckerFunc{CheckerName: "postgres", Fn: func(context.Context) error { return nil }},
		CheckerFunc{CheckerName: "redis", Fn: func(context.Context) error { return nil }},
	)
	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Len(t, resp.Components, 2)
}

func TestReadinessDependencyDown(t *testing.T) {
	h := NewHealthHandler("dev",
		CheckerFunc{CheckerName: "postgres", Fn: func(context.Context) error { return nil }},
		CheckerFunc{CheckerName: "redis", Fn: func(context.Context) error {
			return errors.New(errors.ErrCodeCacheError, "connection refused")
		}},
	)
	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "unhealthy", resp.Components["redis"].Status)
	assert.Equal(t, "healthy", resp.Components["postgres"].Status)
}

func TestReadinessNoCheckers(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler("dev").Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

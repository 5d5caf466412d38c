package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/mstgnz/paygate/infra/conn"
	"github.com/mstgnz/paygate/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type toggle bool

func (t toggle) IsEnabled() bool { return bool(t) }

func healthFactory(online bool) *provider.Factory {
	return provider.NewFactoryWithProviders(
		&fakeProvider{gateway: provider.GatewayAirwallex, configured: online},
		&fakeProvider{gateway: provider.GatewayCOD, configured: true},
	)
}

func TestHealthHandler_CheckHealth(t *testing.T) {
	db, err := conn.Open(context.Background(), conn.DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	h := NewHealthHandler(db, healthFactory(true), toggle(true))
	rec, resp := doRequest(t, http.HandlerFunc(h.CheckHealth), http.MethodGet, "/health", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	var health HealthStatus
	decodeData(t, resp.Data, &health)
	assert.Equal(t, "healthy", health.Status)
	assert.True(t, health.Database.Connected)
	assert.True(t, health.Gateways[provider.GatewayAirwallex])
	assert.True(t, health.Services["audit_log"].Healthy)
}

func TestHealthHandler_Degraded(t *testing.T) {
	h := NewHealthHandler(nil, healthFactory(false), nil)
	rec, resp := doRequest(t, http.HandlerFunc(h.CheckHealth), http.MethodGet, "/health", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthStatus
	decodeData(t, resp.Data, &health)
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "not_configured", health.Database.Status)
	assert.False(t, health.Services["audit_log"].Healthy)
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	db, err := conn.Open(context.Background(), conn.DriverSQLite, ":memory:")
	require.NoError(t, err)
	db.Close()

	h := NewHealthHandler(db, healthFactory(true), nil)
	rec, resp := doRequest(t, http.HandlerFunc(h.CheckHealth), http.MethodGet, "/health", nil, nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, resp.Success)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2*1024*1024))
}

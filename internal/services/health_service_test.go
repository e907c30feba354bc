package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fuelpulse/internal/operator"
	"fuelpulse/internal/shared/testutil"
	"fuelpulse/pkg/contracts"
	"fuelpulse/pkg/contracts/domain"
)

func TestHealthService_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus string
		wantSource string
	}{
		{
			name:       "source reachable",
			wantStatus: "ready",
			wantSource: "ready",
		},
		{
			name:       "source down",
			pingErr:    errors.New("dial tcp: connection refused"),
			wantStatus: "not_ready",
			wantSource: "not_ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := new(MockPriceSource)
			src.On("Ping", mock.Anything).Return(tt.pingErr)
			clients := new(MockClientCounter)
			clients.On("ClientCount").Return(2)

			logger, handler := testutil.NewTestLogger(t)
			hs := NewHealthService(src, operator.NewMemoryStore(), clients, logger)

			status := hs.ReadinessCheck(t.Context())
			assert.Equal(t, tt.wantStatus, status.Status)
			require.Contains(t, status.Services, "source")
			assert.Equal(t, tt.wantSource, status.Services["source"].Status)
			assert.Equal(t, "ready", status.Services["websocket"].Status)
			assert.Contains(t, status.Services["websocket"].Message, "2 clients")

			if tt.pingErr != nil {
				assert.Contains(t, status.Services["source"].Message, "connection refused")
				assert.True(t, handler.ContainsMessage("dependency not ready"))
			}
			src.AssertExpectations(t)
		})
	}
}

func TestHealthService_WithoutHub(t *testing.T) {
	src := new(MockPriceSource)
	src.On("Ping", mock.Anything).Return(nil)

	hs := NewHealthService(src, nil, nil, nil)

	status := hs.ReadinessCheck(t.Context())
	assert.Equal(t, "ready", status.Status)
	assert.Equal(t, "WebSocket hub disabled", status.Services["websocket"].Message)

	stats := hs.SystemStats(t.Context())
	assert.Zero(t, stats.WebSocketClients)
	assert.Zero(t, stats.OperatorSheets)
	assert.Equal(t, "mock", stats.Source)
}

func TestHealthService_LivenessAndVersion(t *testing.T) {
	src := new(MockPriceSource)
	logger, _ := testutil.NewTestLogger(t)
	store := operator.NewMemoryStore()
	_, err := store.Save(domain.OperatorPriceSheet{StationID: "st-1", Prices: map[string]float64{"diesel": 5.7}})
	require.NoError(t, err)

	hs := NewHealthService(src, store, nil, logger)

	live := hs.LivenessCheck(t.Context())
	assert.Equal(t, "alive", live.Status)
	assert.Contains(t, live.Runtime, "goroutines")

	health := hs.HealthCheck(t.Context())
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, contracts.Version, health.Version)

	version := hs.Version()
	assert.Equal(t, contracts.Version, version.Version)
	assert.Equal(t, contracts.APIVersion, version.APIVersion)
	assert.GreaterOrEqual(t, version.UptimeSeconds, 0.0)

	assert.Equal(t, 1, hs.SystemStats(t.Context()).OperatorSheets)
}

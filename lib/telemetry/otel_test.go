package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Duc-Dopaminne-1/hummingbot/config"
)

func TestInitWithoutEndpointReturnsNoop(t *testing.T) {
	provider, shutdown, err := Init(context.Background(), config.TelemetryConfig{})
	require.NoError(t, err)
	require.NotNil(t, provider)
	require.NoError(t, shutdown(context.Background()))
}

func TestParseEndpoint(t *testing.T) {
	host, insecure, err := parseEndpoint("http://collector:4318")
	require.NoError(t, err)
	require.Equal(t, "collector:4318", host)
	require.True(t, insecure)

	host, insecure, err = parseEndpoint("https://collector.example.com")
	require.NoError(t, err)
	require.Equal(t, "collector.example.com", host)
	require.False(t, insecure)
}

func TestMetricsBridgeRecordsWithoutError(t *testing.T) {
	provider, shutdown, err := Init(context.Background(), config.TelemetryConfig{})
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	metrics := NewMetrics(provider)
	metrics.IncCounter("recon_order_updates_applied", 1, map[string]string{"venue": "bitget"})
	metrics.SetGauge("recon_in_flight_orders", 3, nil)
}

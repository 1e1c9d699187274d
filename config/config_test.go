package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultValidatesWithTradingDisabled(t *testing.T) {
	cfg := Default()
	cfg.Trading = false
	require.NoError(t, cfg.Validate())
}

func TestValidateRequiresCredentialsWhenTrading(t *testing.T) {
	cfg := Default()
	cfg.Trading = true
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "code=configuration")
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "connector.yaml")
	contents := `
credentials:
  apiKey: file-key
  apiSecret: file-secret
  passphrase: file-pass
tradingPairs: ["BTC-USDT"]
lightPollInterval: 5s
fullPollInterval: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	t.Setenv("BITGET_API_KEY", "env-key")
	t.Setenv("BITGET_TRADING_PAIRS", "eth-usdt, btc-usdt")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "env-key", cfg.Credentials.APIKey)
	require.Equal(t, "file-secret", cfg.Credentials.APISecret)
	require.Equal(t, []string{"ETH-USDT", "BTC-USDT"}, cfg.TradingPairs)
	require.Equal(t, 5*time.Second, cfg.LightPollInterval.Std())
	require.Equal(t, 30*time.Second, cfg.FullPollInterval.Std())
}

func TestLoadParsesDurationForms(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "connector.yaml")
	contents := `
httpTimeout: 1500ms
lightPollInterval: 2000000000
fullPollInterval: 1m
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	t.Setenv("BITGET_TRADING_ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1500*time.Millisecond, cfg.HTTPTimeout.Std())
	require.Equal(t, 2*time.Second, cfg.LightPollInterval.Std())
	require.Equal(t, time.Minute, cfg.FullPollInterval.Std())
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "connector.yaml")
	require.NoError(t, os.WriteFile(path, []byte("httpTimeout: soon\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid duration")
}

func TestLoadRejectsMalformedPair(t *testing.T) {
	t.Setenv("BITGET_TRADING_ENABLED", "false")
	t.Setenv("BITGET_TRADING_PAIRS", "BTCUSDT")
	_, err := Load("")
	require.Error(t, err)
}

func TestValidateRejectsInvertedPollIntervals(t *testing.T) {
	cfg := Default()
	cfg.Trading = false
	cfg.LightPollInterval = Duration(2 * time.Minute)
	err := cfg.Validate()
	require.Error(t, err)
}

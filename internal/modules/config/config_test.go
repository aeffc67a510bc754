package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"multisignal_bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "values.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"ADA/USD", "LTC/USD", "DOT/USD"}, cfg.Trading.Pairs)
	assert.Equal(t, "USD", cfg.Trading.BaseCurrency)
	assert.Equal(t, time.Second, cfg.Trading.APICallDelay)
	assert.Equal(t, 10*time.Second, cfg.Trading.CycleInterval)
	assert.Equal(t, 0.02, cfg.Risk.RiskPerTrade)
	assert.Equal(t, 0.05, cfg.Risk.StopLoss)
	assert.Equal(t, 0.10, cfg.Risk.TakeProfit)
	assert.Equal(t, 0.30, cfg.Risk.MaxExposure)
	assert.Equal(t, 5, cfg.Risk.MaxConcurrentPositions)
	assert.Equal(t, map[string]int{"ADA": 4, "LTC": 3}, cfg.Risk.Leverage)
	assert.Equal(t, 3, cfg.Execution.RetryAttempts)
	assert.Equal(t, 0.45, cfg.Sentiment.KindWeights["expert"])
	assert.True(t, cfg.Paper())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeFile(t, `
trading:
  pairs: ["btc/usd"]
  interval: 15m
risk:
  stop_loss: 0.04
  leverage:
    btc: 2
strategy:
  mode: binary
`)
	t.Setenv("BOT_RISK_RISK_PER_TRADE", "0.01")
	t.Setenv("TELEGRAM_TOKEN", "secret-token")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC/USD"}, cfg.Trading.Pairs)
	assert.Equal(t, "15m", cfg.Trading.Interval)
	assert.Equal(t, 0.04, cfg.Risk.StopLoss)
	assert.Equal(t, 0.01, cfg.Risk.RiskPerTrade)
	assert.Equal(t, 2, cfg.Risk.Leverage["BTC"])
	assert.Equal(t, "binary", cfg.Strategy.Mode)
	assert.Equal(t, "secret-token", cfg.Telegram.Token)
	assert.Equal(t, int64(42), cfg.Telegram.ChatID)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeFile(t, `
strategy:
  technical_weight: 0.9
  sentiment_weight: 0.4
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindValidation))

	path = writeFile(t, `
execution:
  retry_attempts: 0
`)
	_, err = Load(path)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindValidation))
}

func TestLoadRejectsUnknownPrimaryIndicator(t *testing.T) {
	path := writeFile(t, `
strategy:
  mode: binary
  primary_indicator: rsii
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindValidation))
	assert.Contains(t, err.Error(), "rsii")

	path = writeFile(t, `
strategy:
  primary_indicator: " MACD "
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "macd", cfg.Strategy.PrimaryIndicator)
}

func TestDumpMasksSecrets(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Telegram.Token = "very-secret"
	cfg.DB = "postgres://u:p@host/db"

	out := cfg.Dump()
	assert.NotContains(t, out, "very-secret")
	assert.NotContains(t, out, "postgres://")
	assert.Contains(t, out, "risk_per_trade: 0.02")
}

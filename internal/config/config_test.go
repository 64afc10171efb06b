package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kitanda.yml"), []byte(body), 0o600))
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("KITANDA_AUTH_JWT_SECRET", "s3cret")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 20*time.Millisecond, cfg.Numbers.RetryDelay)

	rules, err := cfg.Rules()
	require.NoError(t, err)
	assert.Len(t, rules.TaxTiers, 4)
	assert.True(t, rules.WithholdingRate.Equal(decimal.RequireFromString("0.065")))

	rates, err := cfg.ExchangeRates()
	require.NoError(t, err)
	assert.True(t, rates["USD"].Equal(decimal.NewFromInt(850)))
	assert.True(t, rates["AOA"].Equal(decimal.NewFromInt(1)))
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := writeConfig(t, `
http:
  port: 9090
storage:
  driver: postgres
  dsn: postgres://kitanda@localhost/kitanda
auth:
  jwt_secret: from-file
fiscal:
  tax_tiers: [0, 14]
  withholding_threshold: "25000"
currency:
  rates:
    usd: "900.5"
    aoa: "1"
`)
	t.Setenv("KITANDA_HTTP_PORT", "7070")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.HTTP.Port)
	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)

	rules, err := cfg.Rules()
	require.NoError(t, err)
	assert.Len(t, rules.TaxTiers, 2)
	assert.True(t, rules.WithholdingThreshold.Equal(decimal.NewFromInt(25000)))

	rates, err := cfg.ExchangeRates()
	require.NoError(t, err)
	assert.True(t, rates["USD"].Equal(decimal.RequireFromString("900.5")))
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown driver":     "storage: {driver: sqlite}\nauth: {jwt_secret: x}\n",
		"postgres needs dsn": "storage: {driver: postgres}\nauth: {jwt_secret: x}\n",
		"missing secret":     "storage: {driver: memory}\n",
		"bad tier":           "auth: {jwt_secret: x}\nfiscal: {tax_tiers: [\"abc\"]}\n",
		"negative rate":      "auth: {jwt_secret: x}\ncurrency: {rates: {usd: \"-1\"}}\n",
		"auth off with db":   "storage: {driver: postgres, dsn: x}\nauth: {disabled: true}\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 12*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 1500*time.Millisecond, cfg.Delays().AutoConnect)
	assert.Equal(t, 1000*time.Millisecond, cfg.Delays().Connect)
	assert.Equal(t, 2000*time.Millisecond, cfg.Delays().Purchase)
	assert.Equal(t, 1500*time.Millisecond, cfg.Delays().Verify)

	price, err := cfg.ETHPrice()
	require.NoError(t, err)
	assert.Equal(t, "3000", price.String())
	assert.Empty(t, cfg.Secret())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MEDMARKET_LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("MEDMARKET_PURCHASE_DELAY", "0s")
	t.Setenv("MEDMARKET_ETH_PRICE_USD", "2500.50")
	t.Setenv("MEDMARKET_JWT_SECRET", "inline")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.Zero(t, cfg.Delays().Purchase)
	price, _ := cfg.ETHPrice()
	assert.Equal(t, "2500.5", price.String())
	assert.Equal(t, []byte("inline"), cfg.Secret())
}

func TestLoadDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	secretPath := filepath.Join(dir, "jwt.secret")
	require.NoError(t, os.WriteFile(secretPath, []byte("from-file\n"), 0o600))
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte(
		"MEDMARKET_LOG_LEVEL=debug\nMEDMARKET_JWT_SECRET_FILE="+secretPath+"\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("MEDMARKET_LOG_LEVEL")
		os.Unsetenv("MEDMARKET_JWT_SECRET_FILE")
	})

	cfg, err := Load(envPath)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []byte("from-file"), cfg.Secret())
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"MEDMARKET_ETH_PRICE_USD": "free",
		"MEDMARKET_VERIFY_DELAY":  "-1s",
		"MEDMARKET_TOKEN_TTL":     "0s",
		"MEDMARKET_CONNECT_DELAY": "soon",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidateNeedsDBPath(t *testing.T) {
	cfg := Config{ETHPriceUSD: "3000", TokenTTL: time.Hour}
	assert.Error(t, cfg.Validate())
	cfg.InMemory = true
	assert.NoError(t, cfg.Validate())
}

// Package config loads the marketplace runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"medmarket/core/ledger"
	"medmarket/core/wallet"
)

// Config is the process configuration. Every field can be set through a
// MEDMARKET_* environment variable or a .env file.
type Config struct {
	DBPath     string `env:"MEDMARKET_DB_PATH"      envDefault:"data/medmarket"`
	InMemory   bool   `env:"MEDMARKET_DB_IN_MEMORY" envDefault:"false"`
	ListenAddr string `env:"MEDMARKET_LISTEN_ADDR"  envDefault:":8080"`
	LogLevel   string `env:"MEDMARKET_LOG_LEVEL"    envDefault:"info"`
	// DEK is an optional base64 AES-256 key for values at rest.
	DEK string `env:"MEDMARKET_DEK"`

	JWTSecret     string        `env:"MEDMARKET_JWT_SECRET"`
	JWTSecretFile string        `env:"MEDMARKET_JWT_SECRET_FILE,file"`
	TokenTTL      time.Duration `env:"MEDMARKET_TOKEN_TTL" envDefault:"12h"`

	ETHPriceUSD      string        `env:"MEDMARKET_ETH_PRICE_USD"    envDefault:"3000"`
	AutoConnectDelay time.Duration `env:"MEDMARKET_AUTOCONNECT_DELAY" envDefault:"1500ms"`
	ConnectDelay     time.Duration `env:"MEDMARKET_CONNECT_DELAY"     envDefault:"1000ms"`
	PurchaseDelay    time.Duration `env:"MEDMARKET_PURCHASE_DELAY"    envDefault:"2000ms"`
	VerifyDelay      time.Duration `env:"MEDMARKET_VERIFY_DELAY"      envDefault:"1500ms"`

	// RateLimitPerMin caps requests per client; 0 disables the limiter.
	RateLimitPerMin int `env:"MEDMARKET_RATE_LIMIT_PER_MIN" envDefault:"600"`

	// Seed pins the random source when non-zero.
	Seed int64 `env:"MEDMARKET_SEED"`
}

// Load reads the given .env files, skipping ones that do not exist, and then
// parses the environment. Variables already set take precedence over files.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env.Parse cannot.
func (c Config) Validate() error {
	if _, err := c.ETHPrice(); err != nil {
		return err
	}
	for name, d := range map[string]time.Duration{
		"MEDMARKET_AUTOCONNECT_DELAY": c.AutoConnectDelay,
		"MEDMARKET_CONNECT_DELAY":     c.ConnectDelay,
		"MEDMARKET_PURCHASE_DELAY":    c.PurchaseDelay,
		"MEDMARKET_VERIFY_DELAY":      c.VerifyDelay,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if c.TokenTTL <= 0 {
		return errors.New("MEDMARKET_TOKEN_TTL must be positive")
	}
	if !c.InMemory && c.DBPath == "" {
		return errors.New("MEDMARKET_DB_PATH is required unless MEDMARKET_DB_IN_MEMORY is set")
	}
	return nil
}

// ETHPrice returns the configured USD rate.
func (c Config) ETHPrice() (decimal.Decimal, error) {
	p, err := wallet.ParseAmount(c.ETHPriceUSD)
	if err != nil {
		return decimal.Zero, fmt.Errorf("MEDMARKET_ETH_PRICE_USD: %w", err)
	}
	if !p.IsPositive() {
		return decimal.Zero, errors.New("MEDMARKET_ETH_PRICE_USD must be positive")
	}
	return p, nil
}

// Delays returns the simulated ledger latencies.
func (c Config) Delays() ledger.Delays {
	return ledger.Delays{
		AutoConnect: c.AutoConnectDelay,
		Connect:     c.ConnectDelay,
		Purchase:    c.PurchaseDelay,
		Verify:      c.VerifyDelay,
	}
}

// Secret returns the token signing secret. The inline value wins over the
// file; an empty result means none was configured.
func (c Config) Secret() []byte {
	if c.JWTSecret != "" {
		return []byte(c.JWTSecret)
	}
	return []byte(strings.TrimSpace(c.JWTSecretFile))
}

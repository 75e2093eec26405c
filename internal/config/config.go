// Package config holds the process-wide runtime configuration.
//
// Config is read-mostly: concurrent readers take an RLock, the rare
// writer (startup load, or an admin override) takes the full Lock.
// Grounded on GoVault's internal/config.Config, which carries its own
// sync.RWMutex directly on the struct rather than wrapping it behind a
// separate guard type.
package config

import (
	"sync"

	"github.com/kelseyhightower/envconfig"
)

// Env is the environment-sourced shape read once at startup.
type Env struct {
	BindHost           string  `envconfig:"BIND_HOST" default:"0.0.0.0"`
	BindPort           string  `envconfig:"BIND_PORT" default:"8080"`
	DBPath             string  `envconfig:"DB_PATH" default:"flacstore.db"`
	DefaultFeeRate     float64 `envconfig:"DEFAULT_FEE_RATE" default:"0.5"`
	MainnetPrimaryURL  string  `envconfig:"MAINNET_PRIMARY_URL"`
	MainnetFallbackURL string  `envconfig:"MAINNET_FALLBACK_URL"`
	TestnetURL         string  `envconfig:"TESTNET_URL"`
	BackendAPIKey      string  `envconfig:"BACKEND_API_KEY"`
	AdminKey           string  `envconfig:"ADMIN_KEY"`
}

// Config is the shared, mutex-guarded runtime configuration value.
// Constructed once in main and passed by reference to every component
// that needs it — never held as a package-level global.
type Config struct {
	mu      sync.RWMutex
	env     Env
	feeRate float64
}

// Load reads Env from the process environment with the "FLACSTORE"
// prefix and returns a ready-to-share Config.
func Load() (*Config, error) {
	var e Env
	if err := envconfig.Process("flacstore", &e); err != nil {
		return nil, err
	}
	return &Config{env: e, feeRate: e.DefaultFeeRate}, nil
}

// BindAddr returns "host:port" for the HTTP listener.
func (c *Config) BindAddr() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.env.BindHost + ":" + c.env.BindPort
}

// DBPath returns the sqlite database path.
func (c *Config) DBPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.env.DBPath
}

// FeeRate returns the current fee rate in satoshis per byte: the
// loaded Env.DefaultFeeRate until SetFeeRate replaces it.
func (c *Config) FeeRate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.feeRate
}

// SetFeeRate overrides the fee rate returned by later FeeRate calls.
// Nothing in this module reads the admin_config table into it.
func (c *Config) SetFeeRate(rate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.feeRate = rate
}

// BackendURL returns the Chain Gateway backend URL(s) for a network.
// For mainnet it returns (primary, fallback); for testnet, fallback is empty.
func (c *Config) BackendURL(network string) (primary, fallback string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if network == "testnet" {
		return c.env.TestnetURL, ""
	}
	return c.env.MainnetPrimaryURL, c.env.MainnetFallbackURL
}

// BackendAPIKey returns the shared indexer API key, if configured.
func (c *Config) BackendAPIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.env.BackendAPIKey
}

// AdminKey returns the admin key used to authorize admin-paid uploads.
func (c *Config) AdminKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.env.AdminKey
}

package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("FLACSTORE_BIND_HOST")
	os.Unsetenv("FLACSTORE_BIND_PORT")
	os.Unsetenv("FLACSTORE_DEFAULT_FEE_RATE")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BindAddr() != "0.0.0.0:8080" {
		t.Fatalf("unexpected default bind addr: %q", cfg.BindAddr())
	}
	if cfg.FeeRate() != 0.5 {
		t.Fatalf("unexpected default fee rate: %v", cfg.FeeRate())
	}
}

func TestLoadReadsEnvOverrides(t *testing.T) {
	os.Setenv("FLACSTORE_BIND_PORT", "9090")
	defer os.Unsetenv("FLACSTORE_BIND_PORT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BindAddr() != "0.0.0.0:9090" {
		t.Fatalf("expected overridden port, got %q", cfg.BindAddr())
	}
}

func TestSetFeeRateIsVisibleToConcurrentReaders(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.SetFeeRate(1.25)
	if cfg.FeeRate() != 1.25 {
		t.Fatalf("expected updated fee rate, got %v", cfg.FeeRate())
	}
}

func TestBackendURLTestnetHasNoFallback(t *testing.T) {
	os.Setenv("FLACSTORE_MAINNET_PRIMARY_URL", "http://primary")
	os.Setenv("FLACSTORE_MAINNET_FALLBACK_URL", "http://fallback")
	os.Setenv("FLACSTORE_TESTNET_URL", "http://testnet")
	defer func() {
		os.Unsetenv("FLACSTORE_MAINNET_PRIMARY_URL")
		os.Unsetenv("FLACSTORE_MAINNET_FALLBACK_URL")
		os.Unsetenv("FLACSTORE_TESTNET_URL")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	primary, fallback := cfg.BackendURL("mainnet")
	if primary != "http://primary" || fallback != "http://fallback" {
		t.Fatalf("unexpected mainnet URLs: %q %q", primary, fallback)
	}
	tPrimary, tFallback := cfg.BackendURL("testnet")
	if tPrimary != "http://testnet" || tFallback != "" {
		t.Fatalf("unexpected testnet URLs: %q %q", tPrimary, tFallback)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"oracle-aggregator/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "STORE_BACKEND", "REDIS_URL", "STORE_TTL_SECS", "CACHE_WARM_SECS", "SSH_ALLOWED_FINGERPRINTS", "MCP_TRANSPORT"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected default http addr, got %s", cfg.HTTPAddr)
	}
	if cfg.StoreBackend != BackendMemory {
		t.Fatalf("expected memory backend, got %s", cfg.StoreBackend)
	}
	if cfg.RedisURL != "localhost:6379" {
		t.Fatalf("expected default redis url, got %s", cfg.RedisURL)
	}
	if cfg.StoreTTLSecs != 2678400 {
		t.Fatalf("expected 31 day ttl, got %d", cfg.StoreTTLSecs)
	}
	if cfg.CacheWarmSecs != 60 {
		t.Fatalf("expected default warm secs 60, got %d", cfg.CacheWarmSecs)
	}
	if len(cfg.SSHAllowedFingerprints) != 0 {
		t.Fatalf("expected no fingerprints, got %v", cfg.SSHAllowedFingerprints)
	}
	if cfg.MCPTransport != "stdio" {
		t.Fatalf("expected stdio transport, got %s", cfg.MCPTransport)
	}
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Pebble")
	t.Setenv("PEBBLE_PATH", "/var/lib/oracle")
	t.Setenv("STORE_TTL_SECS", "3600")
	t.Setenv("CACHE_WARM_SECS", "0")
	t.Setenv("SSH_ALLOWED_FINGERPRINTS", "SHA256:abc, SHA256:def,")
	t.Setenv("MCP_TRANSPORT", "HTTP")

	cfg := Load()
	if cfg.StoreBackend != BackendPebble || cfg.PebblePath != "/var/lib/oracle" {
		t.Fatalf("unexpected store config: %+v", cfg)
	}
	if cfg.StoreTTLSecs != 3600 {
		t.Fatalf("expected ttl 3600, got %d", cfg.StoreTTLSecs)
	}
	if cfg.CacheWarmSecs != 0 {
		t.Fatalf("zero warm secs should disable the warmer, got %d", cfg.CacheWarmSecs)
	}
	if len(cfg.SSHAllowedFingerprints) != 2 || cfg.SSHAllowedFingerprints[1] != "SHA256:def" {
		t.Fatalf("unexpected fingerprints: %v", cfg.SSHAllowedFingerprints)
	}
	if cfg.MCPTransport != "http" {
		t.Fatalf("expected http transport, got %s", cfg.MCPTransport)
	}

	t.Setenv("STORE_BACKEND", "cassandra")
	t.Setenv("STORE_TTL_SECS", "bad")
	cfg = Load()
	if cfg.StoreBackend != BackendMemory {
		t.Fatalf("unknown backend should fall back to memory, got %s", cfg.StoreBackend)
	}
	if cfg.StoreTTLSecs != 2678400 {
		t.Fatalf("invalid ttl should fall back to default, got %d", cfg.StoreTTLSecs)
	}
}

const sampleSettings = `
admin: GADMIN
base: other:USDC
assets:
  - asset: stellar:GBXLMASSET
    source: oracle-1
    decimals: 9
    resolution: 300
  - asset: USDC
    source: oracle-1
    decimals: 9
    resolution: 300
  - asset: other:wETH
    source: oracle-2
    decimals: 6
    resolution: 600
sources:
  - id: oracle-1
    type: http
    url: http://oracle-1.internal
    rate_limit: 5
  - id: oracle-2
    type: static
    decimals: 6
    prices:
      - asset: other:wETH
        price: "1010"
`

func TestParseSettingsDefaults(t *testing.T) {
	s, err := ParseSettings([]byte(sampleSettings))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := s.Config()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Decimals != 7 || !cfg.EnableCircuitBreaker || cfg.CircuitBreakerThreshold != 100000 || cfg.CircuitBreakerTimeout != 7200 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Base != domain.OtherAsset("USDC") {
		t.Fatalf("unexpected base: %v", cfg.Base)
	}
	if len(cfg.Assets) != 3 || cfg.Assets[0] != domain.StellarAsset("GBXLMASSET") || cfg.Assets[1] != domain.OtherAsset("USDC") {
		t.Fatalf("unexpected assets: %v", cfg.Assets)
	}
	if cfg.AssetConfigs[2] != (domain.OracleConfig{SourceID: "oracle-2", Decimals: 6, Resolution: 600}) {
		t.Fatalf("unexpected config: %+v", cfg.AssetConfigs[2])
	}
	if len(s.Sources) != 2 || s.Sources[0].RateLimit != 5 || s.Sources[1].Prices[0].Price != "1010" {
		t.Fatalf("unexpected sources: %+v", s.Sources)
	}
}

func TestParseSettingsOverrides(t *testing.T) {
	s, err := ParseSettings([]byte("base: USDC\ndecimals: 9\ncircuit_breaker:\n  enabled: false\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Decimals != 9 || s.CircuitBreaker.Enabled {
		t.Fatalf("overrides not applied: %+v", s)
	}
	if s.CircuitBreaker.Threshold != 100000 {
		t.Fatalf("unset fields should keep defaults, got %d", s.CircuitBreaker.Threshold)
	}
}

func TestLoadSettingsErrors(t *testing.T) {
	if _, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("assets: [\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSettings(path); err == nil {
		t.Fatal("expected parse error")
	}

	s, _ := ParseSettings([]byte("base: \"\"\n"))
	if _, err := s.Config(); err == nil {
		t.Fatal("expected error for empty base")
	}
}

package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendPebble   = "pebble"
)

type Config struct {
	HTTPAddr    string
	AdminAPIKey string

	StoreBackend string
	RedisURL     string
	DatabaseURL  string
	PebblePath   string
	StoreTTLSecs int

	SettingsPath  string
	CacheWarmSecs int

	LogLevel  string
	LogFormat string

	TelegramBotToken string

	SSHPort                int
	SSHHostKeyPath         string
	SSHAllowedFingerprints []string

	MCPTransport          string
	MCPHTTPBind           string
	MCPHTTPPort           int
	MCPAuthToken          string
	MCPRequestTimeoutSecs int
}

func Load() *Config {
	cfg := &Config{
		AdminAPIKey:      os.Getenv("ADMIN_API_KEY"),
		RedisURL:         os.Getenv("REDIS_URL"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		MCPAuthToken:     os.Getenv("MCP_AUTH_TOKEN"),
	}

	cfg.HTTPAddr = strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	if cfg.AdminAPIKey == "" {
		log.Warn().Msg("ADMIN_API_KEY not set, admin endpoints accept requests without an API key")
	}

	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(os.Getenv("STORE_BACKEND")))
	switch cfg.StoreBackend {
	case BackendMemory, BackendRedis, BackendPostgres, BackendPebble:
	case "":
		cfg.StoreBackend = BackendMemory
	default:
		log.Warn().Str("backend", cfg.StoreBackend).Msg("unsupported STORE_BACKEND, defaulting to memory")
		cfg.StoreBackend = BackendMemory
	}

	if cfg.RedisURL == "" {
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.StoreBackend == BackendPostgres && cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set")
	}

	cfg.PebblePath = strings.TrimSpace(os.Getenv("PEBBLE_PATH"))
	if cfg.PebblePath == "" {
		cfg.PebblePath = "data/state"
	}

	// 31 days, the persistent entry bump.
	cfg.StoreTTLSecs = 31 * 24 * 60 * 60
	if v := strings.TrimSpace(os.Getenv("STORE_TTL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.StoreTTLSecs = n
		}
	}

	cfg.SettingsPath = strings.TrimSpace(os.Getenv("SETTINGS_PATH"))
	if cfg.SettingsPath == "" {
		cfg.SettingsPath = "settings.yaml"
	}

	cfg.CacheWarmSecs = 60
	if v := strings.TrimSpace(os.Getenv("CACHE_WARM_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.CacheWarmSecs = n
		}
	}

	cfg.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.LogFormat = strings.TrimSpace(os.Getenv("LOG_FORMAT"))
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}

	cfg.SSHPort = 2222
	if v := strings.TrimSpace(os.Getenv("SSH_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SSHPort = n
		}
	}
	cfg.SSHHostKeyPath = strings.TrimSpace(os.Getenv("SSH_HOST_KEY_PATH"))
	if cfg.SSHHostKeyPath == "" {
		cfg.SSHHostKeyPath = ".ssh/oracle_host_ed25519"
	}
	for _, fp := range strings.Split(os.Getenv("SSH_ALLOWED_FINGERPRINTS"), ",") {
		if fp = strings.TrimSpace(fp); fp != "" {
			cfg.SSHAllowedFingerprints = append(cfg.SSHAllowedFingerprints, fp)
		}
	}

	cfg.MCPTransport = strings.ToLower(strings.TrimSpace(os.Getenv("MCP_TRANSPORT")))
	if cfg.MCPTransport == "" {
		cfg.MCPTransport = "stdio"
	}
	if cfg.MCPTransport != "stdio" && cfg.MCPTransport != "http" {
		log.Warn().Str("transport", cfg.MCPTransport).Msg("unsupported MCP_TRANSPORT, defaulting to stdio")
		cfg.MCPTransport = "stdio"
	}

	cfg.MCPHTTPBind = strings.TrimSpace(os.Getenv("MCP_HTTP_BIND"))
	if cfg.MCPHTTPBind == "" {
		cfg.MCPHTTPBind = "127.0.0.1"
	}

	cfg.MCPHTTPPort = 8090
	if v := strings.TrimSpace(os.Getenv("MCP_HTTP_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MCPHTTPPort = n
		}
	}

	cfg.MCPRequestTimeoutSecs = 5
	if v := strings.TrimSpace(os.Getenv("MCP_REQUEST_TIMEOUT_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MCPRequestTimeoutSecs = n
		}
	}

	return cfg
}

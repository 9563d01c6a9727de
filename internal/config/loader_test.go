package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Cache.TTLDynamic != time.Minute {
		t.Errorf("expected dynamic TTL 1m, got %v", cfg.Cache.TTLDynamic)
	}
	if cfg.Cache.TTLStandard != 5*time.Minute {
		t.Errorf("expected standard TTL 5m, got %v", cfg.Cache.TTLStandard)
	}
	if cfg.Cache.TTLStable != 30*time.Minute {
		t.Errorf("expected stable TTL 30m, got %v", cfg.Cache.TTLStable)
	}
	if cfg.Engine.ToolTimeout != 20*time.Second {
		t.Errorf("expected tool timeout 20s, got %v", cfg.Engine.ToolTimeout)
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("expected breaker timeout 30s, got %v", cfg.Breaker.Timeout)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
  cors_origin: "http://example.com"
graph:
  url: "http://graph:8000/mcp"
  transport: "sse"
cache:
  ttl_stable: 1h
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.CORSOrigin != "http://example.com" {
		t.Errorf("expected cors http://example.com, got %s", cfg.Server.CORSOrigin)
	}
	if cfg.Graph.URL != "http://graph:8000/mcp" {
		t.Errorf("expected graph url override, got %s", cfg.Graph.URL)
	}
	if cfg.Graph.Transport != "sse" {
		t.Errorf("expected sse transport, got %s", cfg.Graph.Transport)
	}
	if cfg.Cache.TTLStable != time.Hour {
		t.Errorf("expected stable TTL 1h, got %v", cfg.Cache.TTLStable)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	// Unchanged fields keep defaults
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected default NATS URL, got %s", cfg.NATS.URL)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	err := loadYAML(&cfg, "/nonexistent/path.yaml")
	if err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("CONNECT_PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://test:test@db:5432/test")
	t.Setenv("CONNECT_GRAPH_URL", "http://graph:9000/mcp")
	t.Setenv("CONNECT_CACHE_TTL_DYNAMIC", "90s")
	t.Setenv("CONNECT_LOG_LEVEL", "warn")
	t.Setenv("CONNECT_ENGINE_PROFILE_LIMIT", "10")

	loadEnv(&cfg)

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.DSN != "postgres://test:test@db:5432/test" {
		t.Errorf("expected test DSN, got %s", cfg.Postgres.DSN)
	}
	if cfg.Graph.URL != "http://graph:9000/mcp" {
		t.Errorf("expected graph url override, got %s", cfg.Graph.URL)
	}
	if cfg.Cache.TTLDynamic != 90*time.Second {
		t.Errorf("expected dynamic TTL 90s, got %v", cfg.Cache.TTLDynamic)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
	if cfg.Engine.ProfileLimit != 10 {
		t.Errorf("expected profile limit 10, got %d", cfg.Engine.ProfileLimit)
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "empty port",
			modify: func(c *Config) { c.Server.Port = "" },
			errMsg: "server.port is required",
		},
		{
			name:   "empty DSN",
			modify: func(c *Config) { c.Postgres.DSN = "" },
			errMsg: "postgres.dsn is required",
		},
		{
			name:   "empty NATS URL",
			modify: func(c *Config) { c.NATS.URL = "" },
			errMsg: "nats.url is required",
		},
		{
			name:   "empty graph URL",
			modify: func(c *Config) { c.Graph.URL = "" },
			errMsg: "graph.url is required",
		},
		{
			name:   "zero max_conns",
			modify: func(c *Config) { c.Postgres.MaxConns = 0 },
			errMsg: "postgres.max_conns must be >= 1",
		},
		{
			name:   "zero breaker failures",
			modify: func(c *Config) { c.Breaker.MaxFailures = 0 },
			errMsg: "breaker.max_failures must be >= 1",
		},
		{
			name:   "zero tier TTL",
			modify: func(c *Config) { c.Cache.TTLStandard = 0 },
			errMsg: "cache tier TTLs must be positive",
		},
		{
			name:   "zero tool timeout",
			modify: func(c *Config) { c.Engine.ToolTimeout = 0 },
			errMsg: "engine.tool_timeout must be positive",
		},
		{
			name:   "zero profile limit",
			modify: func(c *Config) { c.Engine.ProfileLimit = 0 },
			errMsg: "engine.profile_limit must be >= 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.errMsg)
			}
			if err.Error() != tt.errMsg {
				t.Errorf("expected %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	if err := validate(&cfg); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

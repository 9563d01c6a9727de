package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "connect.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "CONNECT_PORT")
	setString(&cfg.Server.CORSOrigin, "CONNECT_CORS_ORIGIN")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "CONNECT_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "CONNECT_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "CONNECT_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "CONNECT_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "CONNECT_PG_HEALTH_CHECK")

	setString(&cfg.NATS.URL, "NATS_URL")

	setString(&cfg.Graph.URL, "CONNECT_GRAPH_URL")
	setString(&cfg.Graph.Transport, "CONNECT_GRAPH_TRANSPORT")
	setDuration(&cfg.Graph.Timeout, "CONNECT_GRAPH_TIMEOUT")

	setString(&cfg.LiteLLM.URL, "LITELLM_URL")
	setString(&cfg.LiteLLM.MasterKey, "LITELLM_MASTER_KEY")
	setString(&cfg.LiteLLM.PlannerModel, "CONNECT_PLANNER_MODEL")
	setString(&cfg.LiteLLM.SynthesisModel, "CONNECT_SYNTHESIS_MODEL")

	setString(&cfg.Logging.Level, "CONNECT_LOG_LEVEL")
	setString(&cfg.Logging.Service, "CONNECT_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "CONNECT_LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, "CONNECT_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "CONNECT_BREAKER_TIMEOUT")

	setInt64(&cfg.Cache.L1MaxSizeMB, "CONNECT_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "CONNECT_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L1Backfill, "CONNECT_CACHE_L1_BACKFILL")
	setDuration(&cfg.Cache.TTLDynamic, "CONNECT_CACHE_TTL_DYNAMIC")
	setDuration(&cfg.Cache.TTLStandard, "CONNECT_CACHE_TTL_STANDARD")
	setDuration(&cfg.Cache.TTLStable, "CONNECT_CACHE_TTL_STABLE")

	setDuration(&cfg.Engine.ToolTimeout, "CONNECT_ENGINE_TOOL_TIMEOUT")
	setDuration(&cfg.Engine.PlanTimeout, "CONNECT_ENGINE_PLAN_TIMEOUT")
	setInt(&cfg.Engine.ProfileLimit, "CONNECT_ENGINE_PROFILE_LIMIT")
	setInt(&cfg.Engine.MaxProfileFan, "CONNECT_ENGINE_MAX_PROFILE_FAN")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Graph.URL == "" {
		return errors.New("graph.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Cache.TTLDynamic <= 0 || cfg.Cache.TTLStandard <= 0 || cfg.Cache.TTLStable <= 0 {
		return errors.New("cache tier TTLs must be positive")
	}
	if cfg.Engine.ToolTimeout <= 0 {
		return errors.New("engine.tool_timeout must be positive")
	}
	if cfg.Engine.ProfileLimit < 1 {
		return errors.New("engine.profile_limit must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

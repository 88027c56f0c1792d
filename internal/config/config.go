package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		ListenAddr  string `yaml:"listen_addr"`
		MetricsAddr string `yaml:"metrics_addr"`
	} `yaml:"server"`
	Storage struct {
		// Backend selects the audit store: memory, postgres or clickhouse.
		Backend       string `yaml:"backend"`
		PostgresDSN   string `yaml:"postgres_dsn"`
		ClickhouseDSN string `yaml:"clickhouse_dsn"`
	} `yaml:"storage"`
	Dex struct {
		FeeBps uint64 `yaml:"fee_bps"`
	} `yaml:"dex"`
	Feed struct {
		Enabled    bool `yaml:"enabled"`
		SendBuffer int  `yaml:"send_buffer"`
	} `yaml:"feed"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("FLASHLOAN_LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("FLASHLOAN_METRICS_ADDR"); v != "" {
		cfg.Server.MetricsAddr = v
	}
	if v := os.Getenv("FLASHLOAN_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		cfg.Storage.ClickhouseDSN = v
	}
	if v := os.Getenv("FLASHLOAN_DEX_FEE_BPS"); v != "" {
		if bps, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Dex.FeeBps = bps
		}
	}

	// Defaults
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.MetricsAddr == "" {
		cfg.Server.MetricsAddr = ":9091"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}
	if cfg.Feed.SendBuffer == 0 {
		cfg.Feed.SendBuffer = 256
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for postgres backend")
		}
	case "clickhouse":
		if c.Storage.ClickhouseDSN == "" {
			return fmt.Errorf("storage.clickhouse_dsn is required for clickhouse backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Dex.FeeBps > 10000 {
		return fmt.Errorf("dex.fee_bps must not exceed 10000")
	}
	return nil
}

// Package config loads the server configuration from an optional YAML
// file overlaid with environment variables. Environment always wins.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "1h30m" parse.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	v, err := time.ParseDuration(strings.TrimSpace(value.Value))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(v)
	return nil
}

type AppConfig struct {
	ListenAddr string `yaml:"listen_addr"`

	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`

	MatchTTL       Duration `yaml:"match_ttl"`
	RenderSquarePx int      `yaml:"render_square_px"`

	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
	LogToConsole bool   `yaml:"log_to_console"`
	LogToFile    bool   `yaml:"log_to_file"`
	LogFile      string `yaml:"log_file"`
}

// Load reads the file named by KOH_CONFIG (when set), then applies
// environment overrides and validates the result.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:     ":8080",
		MatchTTL:       Duration(24 * time.Hour),
		RenderSquarePx: 72,
		LogLevel:       "info",
		LogFormat:      "console",
		LogToConsole:   true,
	}

	if path := strings.TrimSpace(os.Getenv("KOH_CONFIG")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("KOH_LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("KOH_MATCH_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil && d > 0 {
			cfg.MatchTTL = Duration(d)
		}
	}
	if v := strings.TrimSpace(os.Getenv("KOH_RENDER_SQUARE_PX")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RenderSquarePx = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FORMAT")); v != "" {
		cfg.LogFormat = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_TO_CONSOLE")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LogToConsole = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("LOG_TO_FILE")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LogToFile = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FILE")); v != "" {
		cfg.LogFile = v
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.MatchTTL <= 0 {
		return nil, errors.New("match_ttl must be positive")
	}
	return cfg, nil
}

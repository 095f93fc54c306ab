// Package config loads server settings from defaults, an optional YAML or JSON file,
// AGENTBUILDER_* environment variables and command line overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "AGENTBUILDER_"
	// EnvSeparator separates sections in variable names: AGENTBUILDER_SERVER__ADDR is server.addr.
	EnvSeparator = "__"

	delimiter = "."
)

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Database  DatabaseConfig  `koanf:"database"`
	Generator GeneratorConfig `koanf:"generator"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json text"`
}

// DatabaseConfig selects PostgreSQL for workflows when URL is set; everything else is
// kept in memory.
type DatabaseConfig struct {
	URL             string        `koanf:"url" validate:"omitempty,url"`
	MaxConns        int32         `koanf:"max_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"gte=0"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout" validate:"gte=0"`
}

// GeneratorConfig describes the OpenAI-compatible completion endpoint. Without an
// API key or with Enabled false only the template generator is used.
type GeneratorConfig struct {
	Enabled       bool          `koanf:"enabled"`
	BaseURL       string        `koanf:"base_url" validate:"omitempty,url"`
	APIKey        string        `koanf:"api_key"`
	Model         string        `koanf:"model"`
	Timeout       time.Duration `koanf:"timeout" validate:"gt=0"`
	RatePerMinute float64       `koanf:"rate_per_minute" validate:"gte=0"`
	Burst         int           `koanf:"burst" validate:"gte=0"`
}

// Configured reports whether the AI generator should be called at all.
func (g GeneratorConfig) Configured() bool {
	return g.Enabled && g.BaseURL != "" && g.APIKey != ""
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path" validate:"omitempty,startswith=/"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() map[string]any {
	return map[string]any{
		"server.addr":                ":8080",
		"server.shutdown_timeout":    "5s",
		"server.cors_origins":        []string{"http://localhost:3000"},
		"log.level":                  "info",
		"log.format":                 "json",
		"database.url":               "",
		"database.max_conns":         10,
		"database.conn_max_lifetime": "30m",
		"database.connect_timeout":   "10s",
		"generator.enabled":          true,
		"generator.base_url":         "https://api.openai.com/v1",
		"generator.api_key":          "",
		"generator.model":            "gpt-4o-mini",
		"generator.timeout":          "30s",
		"generator.rate_per_minute":  30.0,
		"generator.burst":            5,
		"metrics.enabled":            true,
		"metrics.path":               "/metrics",
	}
}

// Load reads configuration with the following priority:
// 1. overrides (highest)
// 2. environment variables
// 3. the file at path, when path is not empty
// 4. defaults (lowest)
func Load(path string, overrides map[string]any) (*Config, error) {
	k := koanf.New(delimiter)

	if err := k.Load(confmap.Provider(Defaults(), delimiter), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := loadFile(k, path); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, delimiter, envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, delimiter), nil); err != nil {
			return nil, fmt.Errorf("failed to apply overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(k *koanf.Koanf, path string) error {
	var parser koanf.Parser
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config file not found: %s", path)
	}
	return k.Load(file.Provider(path), parser)
}

// envValue maps AGENTBUILDER_GENERATOR__API_KEY to generator.api_key. List values
// are comma separated.
func envValue(name, value string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	key = strings.ReplaceAll(key, EnvSeparator, delimiter)
	if key == "server.cors_origins" {
		return key, splitList(value)
	}
	return key, value
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg and lists every offending field.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// Package config loads the driver configuration from a file and the environment.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/firestream/pkg/domain"
)

// EnvPrefix prefixes every environment override, e.g. FIRESTREAM_DATABASE_URL.
const EnvPrefix = "FIRESTREAM_"

// Default returns the configuration used when no file is present.
func Default() domain.Config {
	return domain.Config{
		DatabaseURL: "http://localhost:9000",
		Backend:     domain.BackendMemory,
		RedisPrefix: "firestream:",
		HTTPAddr:    ":8080",
		LogLevel:    "info",
	}
}

// Load reads the configuration at path (YAML, or JSON by extension) on top
// of Default, then applies environment overrides. A missing file is not an
// error; an empty path skips the file.
func Load(path string) (domain.Config, error) {
	cfg := Default()
	if path != "" {
		if err := readFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := applyEnv(&cfg, os.Environ()); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func readFile(path string, cfg *domain.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// applyEnv decodes FIRESTREAM_<FIELD> variables onto cfg, using the
// mapstructure tag of each field in upper case as <FIELD>.
func applyEnv(cfg *domain.Config, environ []string) error {
	known := make(map[string]bool)
	t := reflect.TypeOf(*cfg)
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("mapstructure"); tag != "" {
			known[tag] = true
		}
	}

	overrides := make(map[string]any)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
		if known[key] {
			overrides[key] = value
		}
	}
	if len(overrides) == 0 {
		return nil
	}
	if err := mapstructure.Decode(overrides, cfg); err != nil {
		return fmt.Errorf("invalid environment override: %w", err)
	}
	return nil
}

// Validate checks the fields the driver cannot run without.
func Validate(cfg domain.Config) error {
	u, err := url.Parse(cfg.DatabaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("database_url %q is not an absolute url", cfg.DatabaseURL)
	}
	switch cfg.Backend {
	case domain.BackendMemory:
	case domain.BackendRedis:
		if cfg.RedisURL == "" {
			return fmt.Errorf("redis_url is required with the redis backend")
		}
	default:
		return fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	return nil
}

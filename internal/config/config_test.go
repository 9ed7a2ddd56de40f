package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/firestream/internal/config"
	"github.com/aretw0/firestream/pkg/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.NoError(t, config.Validate(cfg))
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "firestream.yaml", `
api_key: abc
project_id: demo
database_url: https://demo.example.com
backend: redis
redis_url: redis://localhost:6379/0
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.APIKey)
	assert.Equal(t, "demo", cfg.ProjectID)
	assert.Equal(t, "https://demo.example.com", cfg.DatabaseURL)
	assert.Equal(t, domain.BackendRedis, cfg.Backend)
	assert.Equal(t, ":8080", cfg.HTTPAddr, "unset fields keep their default")
	assert.NoError(t, config.Validate(cfg))
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "firestream.json", `{"database_url": "https://json.example.com", "log_level": "debug"}`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://json.example.com", cfg.DatabaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := writeFile(t, "broken.yaml", "database_url: [unclosed")
	_, err := config.Load(path)
	assert.ErrorContains(t, err, "broken.yaml")
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "firestream.yaml", "database_url: https://file.example.com\n")
	t.Setenv("FIRESTREAM_DATABASE_URL", "https://env.example.com")
	t.Setenv("FIRESTREAM_HTTP_ADDR", ":9999")
	t.Setenv("FIRESTREAM_NOT_A_FIELD", "ignored")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.DatabaseURL)
	assert.Equal(t, ":9999", cfg.HTTPAddr)
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	cfg.DatabaseURL = "relative/path"
	assert.Error(t, config.Validate(cfg))

	cfg = config.Default()
	cfg.Backend = domain.BackendRedis
	assert.ErrorContains(t, config.Validate(cfg), "redis_url")

	cfg = config.Default()
	cfg.Backend = "tape"
	assert.ErrorContains(t, config.Validate(cfg), "unknown backend")
}

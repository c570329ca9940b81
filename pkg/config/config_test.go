package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnv = []string{
	"APP_ENV", "PORT", "DATABASE_PATH", "IMAGE_STORE_URL", "PUBLIC_BASE_URL", "ALLOWED_ORIGIN",
	"OPENROUTER_API_KEY", "OPENROUTER_BASE_URL", "OPENROUTER_MODEL", "STYLIST_MAX_ROUNDS", "TRANSCRIPT_DIR",
}

// clearEnv hides any variables of the developer's shell from the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range configEnv {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, 4, cfg.Stylist.MaxRounds)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.OpenRouter.BaseURL)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	file := filepath.Join(t.TempDir(), "closet.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
env: production
port: 8080
database_path: /var/lib/closet/closet.db
openrouter:
  model: anthropic/claude-sonnet-4
stylist:
  max_rounds: 6
  transcript_dir: /var/log/closet
`), 0600))

	t.Setenv("PORT", "9090")
	t.Setenv("OPENROUTER_API_KEY", "sk-test")

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, EnvProduction, cfg.Env)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/var/lib/closet/closet.db", cfg.DatabasePath)
	assert.Equal(t, "anthropic/claude-sonnet-4", cfg.OpenRouter.Model)
	assert.Equal(t, "sk-test", cfg.OpenRouter.APIKey)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.OpenRouter.BaseURL)
	assert.Equal(t, 6, cfg.Stylist.MaxRounds)
	assert.Equal(t, "/var/log/closet", cfg.Stylist.TranscriptDir)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	t.Setenv("STYLIST_MAX_ROUNDS", "many")
	_, err = Load("")
	assert.ErrorContains(t, err, "STYLIST_MAX_ROUNDS")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate(false))

	err := cfg.Validate(true)
	assert.ErrorContains(t, err, "openrouter.api_key")

	cfg.OpenRouter.APIKey = "sk-test"
	assert.NoError(t, cfg.Validate(true))

	cfg.Env = "staging"
	cfg.Port = 0
	cfg.Stylist.MaxRounds = 0
	err = cfg.Validate(true)
	require.Error(t, err)
	assert.ErrorContains(t, err, "env:")
	assert.ErrorContains(t, err, "port:")
	assert.ErrorContains(t, err, "stylist.max_rounds:")
}

func TestGetEnv(t *testing.T) {
	t.Setenv("CLOSET_TEST_VALUE", "")
	assert.Equal(t, "", GetEnv("CLOSET_TEST_VALUE", "fallback"))
	os.Unsetenv("CLOSET_TEST_VALUE")
	assert.Equal(t, "fallback", GetEnv("CLOSET_TEST_VALUE", "fallback"))
}

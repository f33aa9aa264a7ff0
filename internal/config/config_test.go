package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("PORT", "")
	t.Setenv("MONGO_URI", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("SETTINGS_BACKEND", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "rentals", cfg.Mongo.Database)
	assert.Equal(t, 30, cfg.Session.DefaultTimeoutMinutes)
	assert.False(t, cfg.Session.DefaultTimeoutEnabled)
	assert.Equal(t, time.Second, cfg.Session.ActivityDebounce)
	assert.Equal(t, "memory", cfg.Settings.Backend)
	assert.Equal(t, "http://localhost:8080/auth/callback", cfg.Auth.OAuth.RedirectURL)
	assert.True(t, cfg.UsesDefaultSecret())
	assert.False(t, cfg.Auth.OAuth.Enabled())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: "9000"
  public_url: https://rentals.example.com
mongo:
  database: rentals_test
auth:
  jwt_secret: a-very-long-test-secret
  access_token_ttl: 15m
session:
  default_timeout_minutes: 5
  default_timeout_enabled: true
  activity_debounce: 250ms
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("PORT", "9100")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("SETTINGS_BACKEND", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "rentals_test", cfg.Mongo.Database)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 5, cfg.Session.DefaultTimeoutMinutes)
	assert.True(t, cfg.Session.DefaultTimeoutEnabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Session.ActivityDebounce)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "redis", cfg.Settings.Backend)
	assert.Equal(t, "https://rentals.example.com/auth/callback", cfg.Auth.OAuth.RedirectURL)
	assert.False(t, cfg.UsesDefaultSecret())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [oops"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())

	bad := Default()
	bad.Auth.JWTSecret = "short"
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.Settings.Backend = "redis"
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.Settings.Backend = "etcd"
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.Session.DefaultTimeoutMinutes = 0
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.Mongo.URI = ""
	assert.Error(t, bad.Validate())
}

func TestResetRedirectOrigins(t *testing.T) {
	cfg := Default()
	assert.Equal(t, []string{"http://localhost:8080"}, cfg.ResetRedirectOrigins())

	t.Setenv("CONFIG_PATH", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("SETTINGS_BACKEND", "")
	t.Setenv("AUTH_REDIRECT_ORIGINS", "https://app.example.com, ,https://admin.example.com")
	t.Setenv("PUBLIC_URL", "https://api.example.com")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://api.example.com", "https://app.example.com", "https://admin.example.com"}, cfg.ResetRedirectOrigins())
}

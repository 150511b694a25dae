package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable LoadFromEnv reads so tests are hermetic.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LISTEN_ADDR", "LOG_LEVEL", "ENVIRONMENT", "CORS_DOMAINS",
		"CACHE_EXPIRY", "DOMAIN", "GLOBAL_SHARED_SECRET", "PROFILE_URL",
		"GCP_USERINFO_CREDENTIALS", "GCP_USERINFO_CREDENTIALS_FILE",
		"ALLOW_ANONYMOUS", "CACHE_DB_PATH", "BACKENDS_FILE",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("CORS_DOMAINS", `https://app\.example\.com, https://.*\.example\.org`)
	t.Setenv("CACHE_EXPIRY", "600")
	t.Setenv("DOMAIN", "example.com")
	t.Setenv("GLOBAL_SHARED_SECRET", "supersecret")
	t.Setenv("GCP_USERINFO_CREDENTIALS", `{"type":"service_account"}`)
	t.Setenv("LISTEN_ADDR", ":9090")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, []string{`https://app\.example\.com`, `https://.*\.example\.org`}, cfg.CORSDomains)
	assert.Equal(t, 600*time.Second, cfg.CacheExpiry)
	assert.Equal(t, "example.com", cfg.Domain)
	assert.Equal(t, "supersecret", cfg.SharedSecret)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultProfileURL, cfg.ProfileURL)
	assert.Equal(t, DefaultCacheExpiry, cfg.CacheExpiry)
	assert.Equal(t, "authgate_cache.sqlite", cfg.CacheDBPath)
	assert.Equal(t, "backends.yaml", cfg.BackendsFile)
	assert.Equal(t, 100.0, cfg.RateLimitRPS)
	assert.Equal(t, 200, cfg.RateLimitBurst)
	assert.False(t, cfg.AllowAnonymous)
	// Missing CORS domains, shared secret, and credentials are warnings in dev.
	assert.Len(t, cfg.Warnings, 3)
}

func TestLoadFromEnv_InvalidCORSPattern(t *testing.T) {
	clearEnv(t)
	t.Setenv("CORS_DOMAINS", `https://valid\.example\.com,[invalid`)

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CORS_DOMAINS pattern")
}

func TestLoadFromEnv_InvalidCacheExpiry(t *testing.T) {
	clearEnv(t)

	for _, v := range []string{"abc", "-5", "0"} {
		t.Setenv("CACHE_EXPIRY", v)
		_, err := LoadFromEnv()
		require.Error(t, err, "CACHE_EXPIRY=%s should fail", v)
	}
}

func TestLoadFromEnv_CredentialsFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600))
	t.Setenv("GCP_USERINFO_CREDENTIALS_FILE", path)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"service_account"}`, string(cfg.DirectoryCredentials))
}

func TestLoadFromEnv_InlineCredentialsWinOverFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("GCP_USERINFO_CREDENTIALS", `{"inline":true}`)
	t.Setenv("GCP_USERINFO_CREDENTIALS_FILE", "/nonexistent/key.json")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.JSONEq(t, `{"inline":true}`, string(cfg.DirectoryCredentials))
}

func TestLoadFromEnv_ProductionRequiresSharedSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("CORS_DOMAINS", `https://app\.example\.com`)
	t.Setenv("DOMAIN", "example.com")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GLOBAL_SHARED_SECRET")
}

func TestLoadFromEnv_ProductionRejectsWildcardCORS(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("GLOBAL_SHARED_SECRET", "secret")
	t.Setenv("DOMAIN", "example.com")
	t.Setenv("CORS_DOMAINS", ".*")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wildcard")
}

func TestLoadFromEnv_ProductionRequiresDomain(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("GLOBAL_SHARED_SECRET", "secret")
	t.Setenv("CORS_DOMAINS", `https://app\.example\.com`)

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DOMAIN")
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.level}
		assert.Equal(t, tt.want, cfg.SlogLevel(), "level %q", tt.level)
	}
}

func TestIsProduction(t *testing.T) {
	assert.True(t, (&Config{Env: "production"}).IsProduction())
	assert.True(t, (&Config{Env: "PRODUCTION"}).IsProduction())
	assert.False(t, (&Config{Env: "development"}).IsProduction())
	assert.False(t, (&Config{}).IsProduction())
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nDOMAIN=example.com\nGLOBAL_SHARED_SECRET=\"quoted\"\n\nBADLINE\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "example.com", os.Getenv("DOMAIN"))
	assert.Equal(t, "quoted", os.Getenv("GLOBAL_SHARED_SECRET"))
}

func TestLoadDotEnv_EnvVarsTakePrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOMAIN", "fromenv.com")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DOMAIN=fromfile.com\n"), 0o600))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "fromenv.com", os.Getenv("DOMAIN"))
}

func TestLoadDotEnv_Missing(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")))
}

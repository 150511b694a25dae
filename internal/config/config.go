// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultCacheExpiry is the group membership cache TTL used when
// CACHE_EXPIRY is not set.
const DefaultCacheExpiry = 300 * time.Second

// DefaultProfileURL is the identity provider profile endpoint used to
// exchange a bearer token for account info.
const DefaultProfileURL = "https://www.googleapis.com/oauth2/v1/userinfo"

// Config holds the configuration for the gateway process.
type Config struct {
	ListenAddr string // HTTP listen address (default ":8080")
	LogLevel   string // log level: debug, info, warn, error (default "info")
	Env        string // environment: "development" (default) or "production"

	// CORSDomains are the origin patterns (regular expressions) allowed to
	// make cross-origin calls. Loaded from CORS_DOMAINS (comma-separated).
	CORSDomains []string

	// CacheExpiry bounds how long a group membership snapshot is served
	// before a re-resolve is forced.
	CacheExpiry time.Duration

	// Domain is the organizational domain used for directory group lookups.
	Domain string

	// SharedSecret is forwarded to backends as X-Shared-Secret so they can
	// verify the request came through the gateway.
	SharedSecret string

	// ProfileURL is the identity provider profile endpoint.
	ProfileURL string

	// DirectoryCredentials is the service-account key JSON used for
	// directory calls. Loaded inline from GCP_USERINFO_CREDENTIALS or from
	// the file named by GCP_USERINFO_CREDENTIALS_FILE.
	DirectoryCredentials []byte

	// AllowAnonymous lets requests without an Authorization header through
	// with no identity headers attached. Default false: missing credentials
	// are rejected.
	AllowAnonymous bool

	CacheDBPath  string // path to the SQLite cache file (default "authgate_cache.sqlite")
	BackendsFile string // YAML backend registry path (default "backends.yaml")

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the gateway is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		ListenAddr:   os.Getenv("LISTEN_ADDR"),
		LogLevel:     os.Getenv("LOG_LEVEL"),
		Env:          os.Getenv("ENVIRONMENT"),
		Domain:       os.Getenv("DOMAIN"),
		SharedSecret: os.Getenv("GLOBAL_SHARED_SECRET"),
		ProfileURL:   os.Getenv("PROFILE_URL"),
		CacheDBPath:  os.Getenv("CACHE_DB_PATH"),
		BackendsFile: os.Getenv("BACKENDS_FILE"),
	}

	if v := os.Getenv("CORS_DOMAINS"); v != "" {
		domains := strings.Split(v, ",")
		for i := range domains {
			domains[i] = strings.TrimSpace(domains[i])
		}
		cfg.CORSDomains = compactNonEmpty(domains)
	}
	for _, pattern := range cfg.CORSDomains {
		if _, err := regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("CORS_DOMAINS pattern %q: %w", pattern, err)
		}
	}

	// Cache TTL is given in seconds, lazily defaulted.
	if v := os.Getenv("CACHE_EXPIRY"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("CACHE_EXPIRY must be a positive number of seconds, got %q", v)
		}
		cfg.CacheExpiry = time.Duration(secs) * time.Second
	}

	if strings.EqualFold(os.Getenv("ALLOW_ANONYMOUS"), "true") {
		cfg.AllowAnonymous = true
	}

	// Rate limiting
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}

	// Directory service credentials: inline JSON wins over a key file.
	if v := os.Getenv("GCP_USERINFO_CREDENTIALS"); v != "" {
		cfg.DirectoryCredentials = []byte(v)
	} else if path := os.Getenv("GCP_USERINFO_CREDENTIALS_FILE"); path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path is operator-controlled
		if err != nil {
			return nil, fmt.Errorf("read GCP_USERINFO_CREDENTIALS_FILE: %w", err)
		}
		cfg.DirectoryCredentials = data
	}

	// Defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.ProfileURL == "" {
		cfg.ProfileURL = DefaultProfileURL
	}
	if cfg.CacheExpiry == 0 {
		cfg.CacheExpiry = DefaultCacheExpiry
	}
	if cfg.CacheDBPath == "" {
		cfg.CacheDBPath = "authgate_cache.sqlite"
	}
	if cfg.BackendsFile == "" {
		cfg.BackendsFile = "backends.yaml"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSDomains) == 0 {
		cfg.Warnings = append(cfg.Warnings, "CORS_DOMAINS not set — all cross-origin preflights will be rejected")
	}
	if cfg.SharedSecret == "" {
		cfg.Warnings = append(cfg.Warnings, "GLOBAL_SHARED_SECRET not set — backends cannot verify gateway origin. Set GLOBAL_SHARED_SECRET in production!")
	}
	if len(cfg.DirectoryCredentials) == 0 {
		cfg.Warnings = append(cfg.Warnings, "directory credentials not set — group membership headers will be omitted")
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if cfg.SharedSecret == "" {
			return nil, fmt.Errorf("GLOBAL_SHARED_SECRET must be set in production (ENVIRONMENT=production)")
		}
		for _, pattern := range cfg.CORSDomains {
			if pattern == ".*" {
				return nil, fmt.Errorf("CORS_DOMAINS wildcard (.*) is not allowed in production (ENVIRONMENT=production)")
			}
		}
		if cfg.Domain == "" {
			return nil, fmt.Errorf("DOMAIN must be set in production (ENVIRONMENT=production)")
		}
	}

	return cfg, nil
}

func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Env vars take precedence over the .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

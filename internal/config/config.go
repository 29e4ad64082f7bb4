// Package config loads the runtime configuration shared by the server and
// the operator CLI.
//
// LAYERING (later wins):
//
//	defaults → TOML file (optional) → environment variables
//
// The environment names are the ones the deployment already sets
// (PORT, DB_PATH, JWT_SECRET, GITHUB_*, LOG_LEVEL), so a config file is
// never required.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type ServerConfig struct {
	Port            int           `toml:"port"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	// SecureCookies marks the token cookie Secure (HTTPS only).
	SecureCookies bool `toml:"secure_cookies"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type AuthConfig struct {
	JWTSecret string        `toml:"jwt_secret"`
	TokenTTL  time.Duration `toml:"token_ttl"`
}

type GitHubConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	CallbackURL  string `toml:"callback_url"`
}

// Enabled reports whether GitHub login should be offered.
func (g GitHubConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type ArchiveConfig struct {
	// RestorePolicy is "duplicate" or "skip_existing".
	RestorePolicy     string `toml:"restore_policy"`
	ExactEmailMatch   bool   `toml:"exact_email_match"`
	Transactional     bool   `toml:"transactional"`
	TemporaryPassword string `toml:"temporary_password"`
}

// RateLimitConfig bounds the public restore endpoint per client IP.
type RateLimitConfig struct {
	Requests int           `toml:"requests"`
	Window   time.Duration `toml:"window"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Auth      AuthConfig      `toml:"auth"`
	GitHub    GitHubConfig    `toml:"github"`
	Archive   ArchiveConfig   `toml:"archive"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Log       LogConfig       `toml:"log"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{Path: "data/notekeeper.db"},
		Auth:     AuthConfig{TokenTTL: 30 * 24 * time.Hour},
		Archive: ArchiveConfig{
			RestorePolicy:     "duplicate",
			TemporaryPassword: "password123",
		},
		RateLimit: RateLimitConfig{Requests: 5, Window: time.Minute},
		Log:       LogConfig{Level: "info"},
	}
}

// Load builds the configuration from path (may be empty) and the process
// environment, and validates the result.
func Load(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Server.Port)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}

	strs := map[string]*string{
		"DB_PATH":              &c.Database.Path,
		"JWT_SECRET":           &c.Auth.JWTSecret,
		"GITHUB_CLIENT_ID":     &c.GitHub.ClientID,
		"GITHUB_CLIENT_SECRET": &c.GitHub.ClientSecret,
		"GITHUB_CALLBACK_URL":  &c.GitHub.CallbackURL,
		"LOG_LEVEL":            &c.Log.Level,
		"RESTORE_POLICY":       &c.Archive.RestorePolicy,
	}
	for name, dst := range strs {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}
	return nil
}

// Validate checks the values the rest of the program relies on. It does not
// require a JWT secret; only the HTTP server does (see RequireSecret).
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path must not be empty"))
	}
	switch c.Archive.RestorePolicy {
	case "duplicate", "skip_existing":
	default:
		errs = append(errs, fmt.Errorf("archive.restore_policy %q must be duplicate or skip_existing", c.Archive.RestorePolicy))
	}
	if c.Archive.TemporaryPassword == "" {
		errs = append(errs, errors.New("archive.temporary_password must not be empty"))
	}
	if c.RateLimit.Requests < 1 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate_limit.requests and rate_limit.window must be positive"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// RequireSecret fails unless a usable JWT secret is configured.
func (c *Config) RequireSecret() error {
	if len(c.Auth.JWTSecret) < 16 {
		return errors.New("config: JWT_SECRET must be set to at least 16 characters")
	}
	return nil
}

// ParseLevel maps a level name onto slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level %q is not one of debug, info, warn, error", name)
}

// NewLogger returns the text logger every entry point uses.
func (c *Config) NewLogger() *slog.Logger {
	level, _ := ParseLevel(c.Log.Level)
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Environment variables that override values from config.toml.
const (
	EnvAPIURL      = "SCHOOLCHAT_API_URL"
	EnvRealtimeURL = "SCHOOLCHAT_REALTIME_URL"
	EnvTeacherID   = "SCHOOLCHAT_TEACHER_ID"
	EnvToken       = "SCHOOLCHAT_TOKEN"
	EnvLogLevel    = "SCHOOLCHAT_LOG_LEVEL"
	EnvTimeout     = "SCHOOLCHAT_TIMEOUT_SECONDS"
)

// Config represents the global ~/.schoolchat/config.toml.
type Config struct {
	DefaultProfile string     `toml:"default_profile" validate:"omitempty,profile_name"`
	API            APIConfig  `toml:"api"`
	Auth           AuthConfig `toml:"auth"`
	Log            LogConfig  `toml:"log"`
}

// APIConfig points the client at the school REST API.
type APIConfig struct {
	BaseURL     string `toml:"base_url" validate:"required,url"`
	RealtimeURL string `toml:"realtime_url" validate:"omitempty,url"`
	// TeacherID scopes the linked-parents listing; empty means the signed-in teacher.
	TeacherID      string `toml:"teacher_id"`
	TimeoutSeconds int    `toml:"timeout_seconds" validate:"gte=0,lte=300"`
}

// AuthConfig holds the bearer token, inline or in a file.
type AuthConfig struct {
	Token     string `toml:"token"`
	TokenFile string `toml:"token_file"`
}

// LogConfig controls the zap level.
type LogConfig struct {
	Level string `toml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "http://localhost:8080",
			TimeoutSeconds: 15,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, falling back to Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// ApplyEnv loads the given dotenv files (missing ones are skipped) and then
// overlays SCHOOLCHAT_* variables on cfg. Variables already set in the
// process environment win over dotenv values.
func ApplyEnv(cfg *Config, dotenvFiles ...string) error {
	for _, p := range dotenvFiles {
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("stat %s: %w", p, err)
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}

	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv(EnvRealtimeURL); v != "" {
		cfg.API.RealtimeURL = v
	}
	if v := os.Getenv(EnvTeacherID); v != "" {
		cfg.API.TeacherID = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		cfg.Auth.Token = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		cfg.API.TimeoutSeconds = n
	}
	return nil
}

// Timeout returns the per-request timeout, defaulting to 15s.
func (c *Config) Timeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// Token returns the inline token or the trimmed content of the token file.
func (c *Config) Token() (string, error) {
	if c.Auth.Token != "" {
		return c.Auth.Token, nil
	}
	if c.Auth.TokenFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.Auth.TokenFile)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	return trimToken(string(data)), nil
}

// RealtimeEndpoint returns the websocket URL, derived from the API base URL
// (http becomes ws, https becomes wss) when not configured.
func (c *Config) RealtimeEndpoint() (string, error) {
	if c.API.RealtimeURL != "" {
		return c.API.RealtimeURL, nil
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/chat/ws"
	u.RawQuery = ""
	return u.String(), nil
}

func trimToken(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r' || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}
	return s
}

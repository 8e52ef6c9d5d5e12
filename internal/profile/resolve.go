package profile

import (
	"fmt"
	"regexp"

	"github.com/matheus3301/schoolchat/internal/config"
)

const DefaultName = "main"

var nameRegexp = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidateName checks that name conforms to profile naming rules.
func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("invalid profile name %q: must match ^[a-z0-9_-]{1,64}$", name)
	}
	return nil
}

// Resolve determines the active profile name using precedence:
// 1. flagOverride (--profile flag)
// 2. config.toml default_profile
// 3. "main"
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	cfg, err := config.Load(ConfigPath())
	if err == nil && cfg.DefaultProfile != "" {
		return cfg.DefaultProfile
	}
	return DefaultName
}

// LoadConfig reads the global config, layers the profile's .env and the
// process environment on top, fills the token file default and validates.
func LoadConfig(name string) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(ConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.ApplyEnv(cfg, DotEnvPath(name), ".env"); err != nil {
		return nil, err
	}
	if cfg.Auth.TokenFile == "" {
		cfg.Auth.TokenFile = TokenPath(name)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

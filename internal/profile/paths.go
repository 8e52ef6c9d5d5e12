package profile

import (
	"os"
	"path/filepath"
)

// EnvHome overrides the base directory (used by tests and packaged installs).
const EnvHome = "SCHOOLCHAT_HOME"

// BaseDir returns ~/.schoolchat, or $SCHOOLCHAT_HOME when set.
func BaseDir() string {
	if v := os.Getenv(EnvHome); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".schoolchat")
}

// Dir returns the profile-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "profiles", name)
}

// TokenPath returns the bearer token file for a profile.
func TokenPath(name string) string {
	return filepath.Join(Dir(name), "token")
}

// DotEnvPath returns the per-profile .env file.
func DotEnvPath(name string) string {
	return filepath.Join(Dir(name), ".env")
}

// LogDir returns the log directory for a profile.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the client log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "schoolchat.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the profile directory tree with proper permissions.
func EnsureDir(name string) error {
	for _, d := range []string{Dir(name), LogDir(name)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}

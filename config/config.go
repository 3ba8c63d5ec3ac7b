// Package config loads the engine configuration from a file and the
// environment with sensible defaults for embedded use.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// DatabaseConfig covers the storage and listener settings.
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	StoragePath    string `mapstructure:"storage_path"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// TransactionConfig covers transaction defaults.
type TransactionConfig struct {
	DefaultTimeoutSecs int `mapstructure:"default_timeout"`
}

// LogConfig covers logging output.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Dir         string `mapstructure:"dir"`
	File        string `mapstructure:"file"`
	MaxFileSize int    `mapstructure:"max_file_size"`
	MaxFiles    int    `mapstructure:"max_files"`
}

// AuthConfig covers authentication and authorization.
type AuthConfig struct {
	EnableAuthorize            bool   `mapstructure:"enable_authorize"`
	FailedLoginAttempts        int    `mapstructure:"failed_login_attempts"`
	SessionIdleTimeoutSecs     int    `mapstructure:"session_idle_timeout_secs"`
	DefaultUsername            string `mapstructure:"default_username"`
	DefaultPassword            string `mapstructure:"default_password"`
	ForceChangeDefaultPassword bool   `mapstructure:"force_change_default_password"`
}

// BootstrapConfig covers first-start behaviour.
type BootstrapConfig struct {
	AutoCreateDefaultSpace bool   `mapstructure:"auto_create_default_space"`
	DefaultSpaceName       string `mapstructure:"default_space_name"`
	SingleUserMode         bool   `mapstructure:"single_user_mode"`
}

// Config is the full engine configuration.
type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	Transaction TransactionConfig `mapstructure:"transaction"`
	Log         LogConfig         `mapstructure:"log"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Bootstrap   BootstrapConfig   `mapstructure:"bootstrap"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Host:           "127.0.0.1",
			Port:           9669,
			StoragePath:    "graph.db",
			MaxConnections: 256,
		},
		Transaction: TransactionConfig{DefaultTimeoutSecs: 60},
		Log: LogConfig{
			Level:       "info",
			MaxFileSize: 64,
			MaxFiles:    8,
		},
		Auth: AuthConfig{
			FailedLoginAttempts: 5,
			DefaultUsername:     "root",
			DefaultPassword:     "root",
		},
		Bootstrap: BootstrapConfig{
			AutoCreateDefaultSpace: true,
			DefaultSpaceName:       "default",
		},
	}
}

// DefaultTimeout returns the transaction timeout as a duration.
func (c Config) DefaultTimeout() time.Duration {
	return time.Duration(c.Transaction.DefaultTimeoutSecs) * time.Second
}

// SessionIdleTimeout derives the session idle timeout: the configured
// value, or ten times the transaction timeout.
func (c Config) SessionIdleTimeout() time.Duration {
	if c.Auth.SessionIdleTimeoutSecs > 0 {
		return time.Duration(c.Auth.SessionIdleTimeoutSecs) * time.Second
	}
	return 10 * c.DefaultTimeout()
}

// Load reads configuration from an optional file path, overriding
// defaults; environment variables with the GRAPHDB_ prefix override the
// file (GRAPHDB_DATABASE_PORT and so on).
func Load(path string) (Config, error) {
	v := viper.New()
	cfg := Default()

	v.SetEnvPrefix("graphdb")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to expand config path: %w", err)
		}
		v.SetConfigFile(expanded)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", expanded, err)
		}
	} else {
		v.SetConfigName("graphdb")
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".graphdb"))
		}
		// a missing default config file is not an error
		_ = v.ReadInConfig()
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

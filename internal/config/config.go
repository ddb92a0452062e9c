// Package config loads server configuration from a YAML file with
// LEGACY_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Autoplay AutoplayConfig `mapstructure:"autoplay"`
	Replay   ReplayConfig   `mapstructure:"replay"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

type ServerConfig struct {
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	MaxGames  int             `mapstructure:"max_games"`
}

type GRPCConfig struct {
	Address              string `mapstructure:"address"`
	MaxConcurrentStreams int    `mapstructure:"max_concurrent_streams"`
}

type WebSocketConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig selects the zap preset. Format "json" builds the production
// config, anything else the development console config.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig configures the save-game store. Driver is "postgres",
// "sqlite" or "none".
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type AutoplayConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type ReplayConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// AuthConfig holds the bcrypt hash guarding admin RPCs. An empty hash
// disables them.
type AuthConfig struct {
	AdminPasswordHash string `mapstructure:"admin_password_hash"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverNone     = "none"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.grpc.address", ":17171")
	v.SetDefault("server.grpc.max_concurrent_streams", 100)
	v.SetDefault("server.websocket.enabled", true)
	v.SetDefault("server.websocket.address", ":17172")
	v.SetDefault("server.websocket.path", "/ws")
	v.SetDefault("server.max_games", 256)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.url", "legacy.db")
	v.SetDefault("database.max_conns", 8)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("autoplay.enabled", false)
	v.SetDefault("autoplay.interval", 90*time.Millisecond)

	v.SetDefault("replay.enabled", false)
	v.SetDefault("replay.dir", "replays")

	v.SetDefault("auth.admin_password_hash", "")
}

// Load reads path, applies defaults and environment overrides such as
// LEGACY_SERVER_GRPC_ADDRESS. A missing file is not an error; an empty
// path uses defaults and the environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LEGACY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite, DriverNone:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Database.Driver != DriverNone && c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Autoplay.Interval <= 0 {
		return errors.New("autoplay.interval must be positive")
	}
	if c.Server.GRPC.Address == "" {
		return errors.New("server.grpc.address is required")
	}
	if c.Replay.Enabled && c.Replay.Dir == "" {
		return errors.New("replay.dir is required when replays are enabled")
	}
	return nil
}

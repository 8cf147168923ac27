// Package config handles resolving configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment variable overrides, e.g.
// TODOTODAY_SESSION_BACKEND=redis.
const EnvPrefix = "TODOTODAY"

// Session backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config is the application configuration.
type Config struct {
	LogLevel       string         `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	WebAddress     string         `mapstructure:"web_address" validate:"required,hostname_port"`
	MetricsAddress string         `mapstructure:"metrics_address" validate:"omitempty,hostname_port"`
	DBFilepath     string         `mapstructure:"db_filepath" validate:"required"`
	DevMode        bool           `mapstructure:"dev_mode"`
	Password       PasswordConfig `mapstructure:"password"`
	Session        SessionConfig  `mapstructure:"session"`
	Access         AccessConfig   `mapstructure:"access"`
}

// PasswordConfig configures password hashing.
type PasswordConfig struct {
	// BcryptCost is the bcrypt work factor. Raising it slows brute force
	// attempts and every login alike.
	BcryptCost int `mapstructure:"bcrypt_cost" validate:"min=4,max=31"`
}

// SessionConfig configures server-side sessions and their cookie.
type SessionConfig struct {
	Backend      string        `mapstructure:"backend" validate:"oneof=sqlite redis"`
	CookieName   string        `mapstructure:"cookie_name" validate:"required,alphanum"`
	SecureCookie bool          `mapstructure:"secure_cookie"`
	TTL          time.Duration `mapstructure:"ttl" validate:"min=1m"`
	Redis        RedisConfig   `mapstructure:"redis"`
}

// RedisConfig locates the Redis server used when Session.Backend is redis.
type RedisConfig struct {
	Addr      string `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db" validate:"min=0"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// AccessConfig configures which requests bypass authentication and which role
// authenticated requests must hold.
type AccessConfig struct {
	AllowList    []string `mapstructure:"allow_list" validate:"dive,startswith=/"`
	RequiredRole string   `mapstructure:"required_role" validate:"required"`
}

// Default returns a version of the config with all default values populated.
func Default() Config {
	return Config{
		LogLevel:       "info",
		WebAddress:     "localhost:8080",
		MetricsAddress: "localhost:9090",
		DBFilepath:     filepath.Join(xdg.DataHome, "todotoday", "db.sqlite"),
		DevMode:        false,
		Password: PasswordConfig{
			BcryptCost: 10,
		},
		Session: SessionConfig{
			Backend:      BackendSQLite,
			CookieName:   "SESSION",
			SecureCookie: false,
			TTL:          24 * time.Hour,
			Redis: RedisConfig{
				KeyPrefix: "todotoday",
			},
		},
		Access: AccessConfig{
			AllowList:    []string{"/test", "/healthz"},
			RequiredRole: "USER",
		},
	}
}

// Load loads a YAML configuration file from a path, merges it with defaults
// and environment overrides, and validates it for completeness. A .env file
// in the working directory, if present, is loaded into the environment first.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := newViper(Default())
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var parseErr viper.ConfigParseError
		if errors.As(err, &parseErr) {
			return Config{}, fmt.Errorf("failed to unmarshal config file at %s: %w", path, err)
		}
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config file at %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cfg for completeness.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if cfg.Session.Backend == BackendRedis && cfg.Session.Redis.Addr == "" {
		return errors.New("config validation failed: session.redis.addr is required for the redis backend")
	}
	return nil
}

// Write stores cfg as YAML at path, readable only by the owner.
func Write(path string, cfg Config) error {
	v := newViper(cfg)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file to %s: %w", path, err)
	}
	return os.Chmod(path, 0o600) //nolint:mnd // owner rw access
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func newViper(base Config) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log_level", base.LogLevel)
	v.SetDefault("web_address", base.WebAddress)
	v.SetDefault("metrics_address", base.MetricsAddress)
	v.SetDefault("db_filepath", base.DBFilepath)
	v.SetDefault("dev_mode", base.DevMode)
	v.SetDefault("password.bcrypt_cost", base.Password.BcryptCost)
	v.SetDefault("session.backend", base.Session.Backend)
	v.SetDefault("session.cookie_name", base.Session.CookieName)
	v.SetDefault("session.secure_cookie", base.Session.SecureCookie)
	v.SetDefault("session.ttl", base.Session.TTL.String())
	v.SetDefault("session.redis.addr", base.Session.Redis.Addr)
	v.SetDefault("session.redis.password", base.Session.Redis.Password)
	v.SetDefault("session.redis.db", base.Session.Redis.DB)
	v.SetDefault("session.redis.key_prefix", base.Session.Redis.KeyPrefix)
	v.SetDefault("access.allow_list", base.Access.AllowList)
	v.SetDefault("access.required_role", base.Access.RequiredRole)
	return v
}

// Package config loads console settings from console.yaml and CONSOLE_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every console setting.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	List     ListConfig     `mapstructure:"list"`
	Options  OptionsConfig  `mapstructure:"options"`
	Session  SessionConfig  `mapstructure:"session"`
	I18n     I18nConfig     `mapstructure:"i18n"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// AllowedOrigins are the origin patterns allowed to open the console
	// WebSocket. Empty means same-origin only.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	// DSN is a modernc sqlite DSN; "memory" selects the in-memory store.
	DSN string `mapstructure:"dsn"`
	// Seed fills empty kinds with demo records at startup.
	Seed bool `mapstructure:"seed"`
}

type RemoteConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ListConfig struct {
	PageSize int `mapstructure:"page_size"`
}

type OptionsConfig struct {
	Debounce  time.Duration `mapstructure:"debounce"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	CacheSize int           `mapstructure:"cache_size"`
}

type SessionConfig struct {
	MaxAge      time.Duration `mapstructure:"max_age"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

type I18nConfig struct {
	Locale string `mapstructure:"locale"`
}

type CatalogConfig struct {
	Overlays []string `mapstructure:"overlays"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Server:   ServerConfig{Port: 8080, ShutdownTimeout: 10 * time.Second},
		Database: DatabaseConfig{DSN: "file:console.db?_pragma=foreign_keys(1)"},
		Remote:   RemoteConfig{BaseURL: "http://localhost:8080/api", Timeout: 30 * time.Second},
		List:     ListConfig{PageSize: 10},
		Options:  OptionsConfig{CacheTTL: 30 * time.Second, CacheSize: 256},
		Session:  SessionConfig{MaxAge: 24 * time.Hour, IdleTimeout: 30 * time.Minute},
		I18n:     I18nConfig{Locale: "en"},
		Log:      LogConfig{Level: "info"},
	}
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.seed", d.Database.Seed)
	v.SetDefault("remote.base_url", d.Remote.BaseURL)
	v.SetDefault("remote.timeout", d.Remote.Timeout)
	v.SetDefault("list.page_size", d.List.PageSize)
	v.SetDefault("options.debounce", d.Options.Debounce)
	v.SetDefault("options.cache_ttl", d.Options.CacheTTL)
	v.SetDefault("options.cache_size", d.Options.CacheSize)
	v.SetDefault("session.max_age", d.Session.MaxAge)
	v.SetDefault("session.idle_timeout", d.Session.IdleTimeout)
	v.SetDefault("i18n.locale", d.I18n.Locale)
	v.SetDefault("log.level", d.Log.Level)
}

// Load reads console.yaml from configPath when present, then applies
// environment overrides such as CONSOLE_SERVER_PORT.
func Load(configPath string) (Config, error) {
	v := viper.New()
	v.SetConfigName("console")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.SetEnvPrefix("CONSOLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read: %w", err)
		}
		slog.Debug("config: no console.yaml found, using defaults and env vars")
	} else {
		slog.Debug("config: loaded", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the console cannot run with.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("config: server.shutdown_timeout must not be negative")
	}
	if c.List.PageSize <= 0 {
		return fmt.Errorf("config: list.page_size must be positive")
	}
	if c.Options.Debounce < 0 || c.Options.CacheTTL < 0 || c.Options.CacheSize < 0 {
		return fmt.Errorf("config: options values must not be negative")
	}
	return nil
}

// LogLevel parses Log.Level, defaulting to info.
func (c Config) LogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

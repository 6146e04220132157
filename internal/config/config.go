// Package config provides Viper-based configuration loading for the circle server.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds network listener settings.
type ServerConfig struct {
	// Host is the bind address for the TCP listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port the server listens on.
	Port int `mapstructure:"port"`
	// MaxSessions caps concurrent connected sessions. Connections beyond
	// the cap are refused with a message and closed.
	MaxSessions int `mapstructure:"max_sessions"`
	// IdleTimeout is the duration of input inactivity after which a
	// session is disconnected.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// WriteTimeout is the per-write deadline for client connections.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DataConfig holds the durable storage layout settings.
type DataConfig struct {
	// Dir is the root data directory, resolved relative to the working
	// directory at launch. Static world files live under Dir/world and
	// mutable player records under Dir/players.
	Dir string `mapstructure:"dir"`
}

// WorldDir returns the directory containing static world definition files.
func (d DataConfig) WorldDir() string {
	return filepath.Join(d.Dir, "world")
}

// PlayerDir returns the directory containing mutable player records.
func (d DataConfig) PlayerDir() string {
	return filepath.Join(d.Dir, "players")
}

// GameConfig holds simulation and persistence cadence settings.
type GameConfig struct {
	// TickInterval is the fixed simulation tick cadence.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// AutosaveInterval is the cadence of the periodic full save sweep.
	AutosaveInterval time.Duration `mapstructure:"autosave_interval"`
	// QuickBoot skips the startup rent settlement pass over all saved
	// player records. Settlement still happens lazily on each load.
	QuickBoot bool `mapstructure:"quick_boot"`
	// AllowNewCharacters permits character creation at the login prompt.
	AllowNewCharacters bool `mapstructure:"allow_new_characters"`
	// RentPerDay is the gold charged per real-world day of offline rent.
	RentPerDay int `mapstructure:"rent_per_day"`
	// ScriptDir is the root directory for zone Lua scripts. Empty
	// disables scripting.
	ScriptDir string `mapstructure:"script_dir"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Data    DataConfig    `mapstructure:"data"`
	Game    GameConfig    `mapstructure:"game"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateData(c.Data); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGame(c.Game); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", s.Port))
	}
	if s.MaxSessions < 1 {
		errs = append(errs, fmt.Sprintf("server.max_sessions must be >= 1, got %d", s.MaxSessions))
	}
	if s.IdleTimeout < 0 {
		errs = append(errs, "server.idle_timeout must not be negative")
	}
	if s.WriteTimeout < 0 {
		errs = append(errs, "server.write_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateData(d DataConfig) error {
	if d.Dir == "" {
		return fmt.Errorf("data.dir must not be empty")
	}
	return nil
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.TickInterval <= 0 {
		errs = append(errs, fmt.Sprintf("game.tick_interval must be > 0, got %s", g.TickInterval))
	}
	if g.AutosaveInterval <= 0 {
		errs = append(errs, fmt.Sprintf("game.autosave_interval must be > 0, got %s", g.AutosaveInterval))
	}
	if g.RentPerDay < 0 {
		errs = append(errs, fmt.Sprintf("game.rent_per_day must be >= 0, got %d", g.RentPerDay))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with CIRCLE_ prefix
	v.SetEnvPrefix("CIRCLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Default returns the built-in default configuration without reading a file.
//
// Postcondition: Returns a Config that passes Validate.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("unmarshalling default config: %v", err))
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.max_sessions", 300)
	v.SetDefault("server.idle_timeout", "15m")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("data.dir", "lib")

	v.SetDefault("game.tick_interval", "100ms")
	v.SetDefault("game.autosave_interval", "5m")
	v.SetDefault("game.quick_boot", false)
	v.SetDefault("game.allow_new_characters", true)
	v.SetDefault("game.rent_per_day", 100)
	v.SetDefault("game.script_dir", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

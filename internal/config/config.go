// Package config provides Viper-based configuration loading for the arena server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// DatabaseConfig selects the player record store and holds its connection settings.
type DatabaseConfig struct {
	// Driver is one of "postgres", "sqlite" or "memory".
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// SQLitePath is the database file for the sqlite driver.
	SQLitePath string `mapstructure:"sqlite_path"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// File, when set, also writes JSON logs to a rotating file.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// GameServerConfig holds the gRPC listener and session lifetime settings.
type GameServerConfig struct {
	// GRPCHost is the bind/connect address for the game server gRPC service.
	GRPCHost string `mapstructure:"grpc_host"`
	// GRPCPort is the TCP port for the game server gRPC service.
	GRPCPort int `mapstructure:"grpc_port"`
	// IdleTimeout abandons a combat session with no action for this long; 0 disables it.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// PersistTimeout bounds the synchronous save at the end of an encounter.
	PersistTimeout time.Duration `mapstructure:"persist_timeout"`
	// Seed makes all randomness reproducible when non-zero.
	Seed uint64 `mapstructure:"seed"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (g GameServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.GRPCHost, g.GRPCPort)
}

// ContentConfig locates the balance tables and enemy scripts.
type ContentConfig struct {
	// Dir holds YAML content files overriding the embedded defaults; empty uses the defaults.
	Dir string `mapstructure:"dir"`
	// ScriptsDir is the root of the per-location Lua telegraph scripts; empty disables scripting.
	ScriptsDir string `mapstructure:"scripts_dir"`
	// InstructionLimit caps each Lua hook call.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// CheckpointConfig tunes the asynchronous record writer.
type CheckpointConfig struct {
	Workers         int           `mapstructure:"workers"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	// MaxElapsed gives up on one attempt cycle after this long; the patch stays queued.
	MaxElapsed time.Duration `mapstructure:"max_elapsed"`
}

// Config is the top-level application configuration.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	GameServer GameServerConfig `mapstructure:"gameserver"`
	Content    ContentConfig    `mapstructure:"content"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateDatabase(c.Database); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGameServer(c.GameServer); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateCheckpoint(c.Checkpoint); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	switch d.Driver {
	case DriverMemory:
		return nil
	case DriverSQLite:
		if d.SQLitePath == "" {
			return fmt.Errorf("database.sqlite_path must not be empty for the sqlite driver")
		}
		return nil
	case DriverPostgres:
	default:
		return fmt.Errorf("database.driver must be one of [postgres, sqlite, memory], got %q", d.Driver)
	}
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGameServer(g GameServerConfig) error {
	var errs []string
	if g.GRPCHost == "" {
		errs = append(errs, "gameserver.grpc_host must not be empty")
	}
	if g.GRPCPort < 1 || g.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("gameserver.grpc_port must be 1-65535, got %d", g.GRPCPort))
	}
	if g.IdleTimeout < 0 {
		errs = append(errs, fmt.Sprintf("gameserver.idle_timeout must be >= 0 (got %s)", g.IdleTimeout))
	}
	if g.PersistTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("gameserver.persist_timeout must be > 0 (got %s)", g.PersistTimeout))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	if c.InstructionLimit < 0 {
		return fmt.Errorf("content.instruction_limit must be >= 0, got %d", c.InstructionLimit)
	}
	return nil
}

func validateCheckpoint(c CheckpointConfig) error {
	var errs []string
	if c.Workers < 1 {
		errs = append(errs, fmt.Sprintf("checkpoint.workers must be >= 1, got %d", c.Workers))
	}
	if c.InitialInterval <= 0 {
		errs = append(errs, "checkpoint.initial_interval must be > 0")
	}
	if c.MaxInterval < c.InitialInterval {
		errs = append(errs, "checkpoint.max_interval must not be less than checkpoint.initial_interval")
	}
	if c.MaxElapsed < 0 {
		errs = append(errs, "checkpoint.max_elapsed must not be negative")
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
	if l.File != "" && l.MaxSizeMB < 1 {
		return fmt.Errorf("logging.max_size_mb must be >= 1 when logging.file is set, got %d", l.MaxSizeMB)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and the environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with SAMSARA_ prefix
	v.SetEnvPrefix("SAMSARA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance carrying only the default settings.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "samsara")
	v.SetDefault("database.password", "samsara")
	v.SetDefault("database.name", "samsara")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.sqlite_path", "samsara.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)

	v.SetDefault("gameserver.grpc_host", "127.0.0.1")
	v.SetDefault("gameserver.grpc_port", 50051)
	v.SetDefault("gameserver.idle_timeout", "5m")
	v.SetDefault("gameserver.persist_timeout", "5s")
	v.SetDefault("gameserver.seed", 0)

	v.SetDefault("content.dir", "")
	v.SetDefault("content.scripts_dir", "content/scripts")
	v.SetDefault("content.instruction_limit", 100000)

	v.SetDefault("checkpoint.workers", 4)
	v.SetDefault("checkpoint.initial_interval", "200ms")
	v.SetDefault("checkpoint.max_interval", "10s")
	v.SetDefault("checkpoint.max_elapsed", "1m")
}

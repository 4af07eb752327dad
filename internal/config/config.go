// Package config provides Viper-based configuration loading for the damage meter.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// MeterConfig holds the core meter settings.
type MeterConfig struct {
	// MaxSlots bounds the number of party members that can be attributed.
	MaxSlots int `mapstructure:"max_slots"`
	// RecentWindow is the idle time after which recent damage decays.
	RecentWindow time.Duration `mapstructure:"recent_window"`
	// SendInterval is the minimum gap between two outbound report lines.
	SendInterval time.Duration `mapstructure:"send_interval"`
	// HealthCeiling marks live max health values at or above it as unreliable.
	HealthCeiling int `mapstructure:"health_ceiling"`
	// PlaceholderName labels allies without a login-derived name.
	PlaceholderName string `mapstructure:"placeholder_name"`
	// Visible is the initial overlay visibility.
	Visible bool `mapstructure:"visible"`
}

// Health log backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// HealthLogConfig selects where remembered max health values are persisted.
type HealthLogConfig struct {
	// Backend is one of "file", "sqlite", "postgres".
	Backend string `mapstructure:"backend"`
	// Path is the YAML file or sqlite database path. Unused for postgres.
	Path string `mapstructure:"path"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
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
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables the endpoint.
	Addr string `mapstructure:"addr"`
}

// ScriptingConfig holds the Lua report hook settings.
type ScriptingConfig struct {
	// ReportScript is the path of a Lua file defining format_line. Empty disables it.
	ReportScript string `mapstructure:"report_script"`
	// InstructionLimit caps the instructions of one format_line call.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Meter     MeterConfig     `mapstructure:"meter"`
	HealthLog HealthLogConfig `mapstructure:"healthlog"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Scripting ScriptingConfig `mapstructure:"scripting"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateMeter(c.Meter); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateHealthLog(c.HealthLog); err != nil {
		errs = append(errs, err.Error())
	}
	if c.HealthLog.Backend == BackendPostgres {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Scripting.InstructionLimit < 1 {
		errs = append(errs, fmt.Sprintf("scripting.instruction_limit must be >= 1, got %d", c.Scripting.InstructionLimit))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateMeter(m MeterConfig) error {
	var errs []string
	if m.MaxSlots < 1 {
		errs = append(errs, fmt.Sprintf("meter.max_slots must be >= 1, got %d", m.MaxSlots))
	}
	if m.RecentWindow <= 0 {
		errs = append(errs, "meter.recent_window must be positive")
	}
	if m.SendInterval <= 0 {
		errs = append(errs, "meter.send_interval must be positive")
	}
	if m.HealthCeiling < 1 {
		errs = append(errs, fmt.Sprintf("meter.health_ceiling must be >= 1, got %d", m.HealthCeiling))
	}
	if m.PlaceholderName == "" {
		errs = append(errs, "meter.placeholder_name must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateHealthLog(h HealthLogConfig) error {
	switch h.Backend {
	case BackendFile, BackendSQLite:
		if h.Path == "" {
			return fmt.Errorf("healthlog.path must not be empty for backend %q", h.Backend)
		}
		return nil
	case BackendPostgres:
		return nil
	default:
		return fmt.Errorf("healthlog.backend must be one of [file, sqlite, postgres], got %q", h.Backend)
	}
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
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
		return errors.New(strings.Join(errs, "; "))
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
// overrides, and validates the result. An empty path skips the file.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// Default returns the defaulted configuration, environment overrides included.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Default() (Config, error) {
	return LoadFromViper(NewViper())
}

// NewViper returns a Viper instance with defaults and DMGMETER_ environment overrides.
// Callers may bind command-line flags onto it before LoadFromViper.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("DMGMETER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
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

func setDefaults(v *viper.Viper) {
	v.SetDefault("meter.max_slots", 12)
	v.SetDefault("meter.recent_window", "7s")
	v.SetDefault("meter.send_interval", "600ms")
	v.SetDefault("meter.health_ceiling", 100000)
	v.SetDefault("meter.placeholder_name", "<A Hero>")
	v.SetDefault("meter.visible", true)

	v.SetDefault("healthlog.backend", BackendFile)
	v.SetDefault("healthlog.path", "healthlog.yaml")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "dmgmeter")
	v.SetDefault("database.password", "dmgmeter")
	v.SetDefault("database.name", "dmgmeter")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("metrics.addr", "")

	v.SetDefault("scripting.report_script", "")
	v.SetDefault("scripting.instruction_limit", 10000)
}

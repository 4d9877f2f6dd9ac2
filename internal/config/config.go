package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the alarmd daemon.
type Config struct {
	// ListenAddress is the address the HTTP control API binds to.
	ListenAddress string `yaml:"listen_addr"`
	// DatabasePath is the path to the SQLite file storing alarm definitions.
	DatabasePath string `yaml:"database_path"`
	// SnapshotPath is the path to the JSON file storing the active-session snapshot.
	SnapshotPath string `yaml:"snapshot_path"`
	// HorizonDays is the rolling window, in days, over which occurrences are scheduled.
	HorizonDays int `yaml:"horizon_days"`
	// SnoozeInterval is how far ahead a snoozed alarm is rescheduled.
	SnoozeInterval time.Duration `yaml:"snooze_interval"`
	// CooldownWindow is the per-alarm suppression period for duplicate deliveries.
	CooldownWindow time.Duration `yaml:"cooldown_window"`
	// FallbackDelay is how long a session may stay pending before the fallback alert fires.
	FallbackDelay time.Duration `yaml:"fallback_delay"`
	// RecoveryGrace is the margin past an alarm's end time after which
	// startup recovery treats the session as silently expired.
	RecoveryGrace time.Duration `yaml:"recovery_grace"`
	// SoundEnabled toggles real audio output. Disabled runs are silent but
	// exercise the full playback lifecycle.
	SoundEnabled bool `yaml:"sound_enabled"`
	// LogLevel is the minimum level for log output (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for daemon settings.
	DefaultConfigFilename = "alarm-clock-settings.yaml"

	// DefaultListenAddress is the default bind address for the control API.
	DefaultListenAddress = "127.0.0.1:8425"

	// DefaultDatabaseFilename is the default filename for the alarm database.
	DefaultDatabaseFilename = "alarm-clock.db"

	// DefaultSnapshotFilename is the default filename for the active-session snapshot.
	DefaultSnapshotFilename = "alarm-clock-session.json"

	// DefaultHorizonDays is the default scheduling horizon.
	DefaultHorizonDays = 7

	// DefaultSnoozeInterval is the default snooze duration.
	DefaultSnoozeInterval = 5 * time.Minute

	// DefaultCooldownWindow is the default duplicate-delivery suppression window.
	DefaultCooldownWindow = 30 * time.Second

	// DefaultFallbackDelay is the default delay before the fallback alert.
	DefaultFallbackDelay = 10 * time.Second

	// DefaultRecoveryGrace is the default margin for skipping stale recovery.
	DefaultRecoveryGrace = 2 * time.Minute

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errHorizonNotPositive is returned when the scheduling horizon is zero or negative.
	errHorizonNotPositive = errors.New("horizon_days must be positive")
)

// Default returns a configuration populated with reference values.
func Default() *Config {
	return &Config{
		ListenAddress:  DefaultListenAddress,
		DatabasePath:   DefaultDatabaseFilename,
		SnapshotPath:   DefaultSnapshotFilename,
		HorizonDays:    DefaultHorizonDays,
		SnoozeInterval: DefaultSnoozeInterval,
		CooldownWindow: DefaultCooldownWindow,
		FallbackDelay:  DefaultFallbackDelay,
		RecoveryGrace:  DefaultRecoveryGrace,
		SoundEnabled:   true,
		LogLevel:       "info",
	}
}

// Load reads configuration from the provided path and validates essential fields.
// A missing file is not an error: defaults are returned so the daemon can run
// without any prior setup.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills zero values with defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = DefaultDatabaseFilename
	}

	if cfg.SnapshotPath == "" {
		cfg.SnapshotPath = DefaultSnapshotFilename
	}

	if cfg.HorizonDays < 0 {
		return errHorizonNotPositive
	}

	if cfg.HorizonDays == 0 {
		cfg.HorizonDays = DefaultHorizonDays
	}

	if cfg.SnoozeInterval <= 0 {
		cfg.SnoozeInterval = DefaultSnoozeInterval
	}

	if cfg.CooldownWindow <= 0 {
		cfg.CooldownWindow = DefaultCooldownWindow
	}

	if cfg.FallbackDelay <= 0 {
		cfg.FallbackDelay = DefaultFallbackDelay
	}

	if cfg.RecoveryGrace <= 0 {
		cfg.RecoveryGrace = DefaultRecoveryGrace
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return nil
}

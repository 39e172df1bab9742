// Package config loads calculator settings from defaults, a YAML file, a .env file
// and BMI_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/steveyegge/bmi/internal/calculator"
	"github.com/steveyegge/bmi/internal/display"
	"github.com/steveyegge/bmi/internal/history"
	"github.com/steveyegge/bmi/internal/reveal"
	"github.com/steveyegge/bmi/internal/storage"
	"github.com/steveyegge/bmi/internal/validation"
)

// DefaultEnvFile is read from the working directory when present
const DefaultEnvFile = ".env"

// Config holds every tunable setting
type Config struct {
	Storage  StorageConfig `yaml:"storage"`
	History  HistoryConfig `yaml:"history"`
	Reveal   RevealConfig  `yaml:"reveal"`
	Form     FormConfig    `yaml:"form"`
	Display  DisplayConfig `yaml:"display"`
	LogLevel string        `yaml:"log_level"`
}

// StorageConfig selects where history is kept
type StorageConfig struct {
	// Backend is one of sqlite, file or memory
	Backend storage.Backend `yaml:"backend"`
	// Path overrides discovery. Empty means discover.
	Path string `yaml:"path,omitempty"`
	// Key is the slot that holds the history
	Key string `yaml:"key"`
}

type HistoryConfig struct {
	// PollInterval is how often followers check for changes by other processes
	// Range: 100ms-1h
	PollInterval time.Duration `yaml:"poll_interval"`
}

type RevealConfig struct {
	// Delay before the meter starts filling. Range: 0-10s
	Delay time.Duration `yaml:"delay"`
	// Duration of the meter fill. Range: 0-10s
	Duration time.Duration `yaml:"duration"`
	// FrameRate is meter redraws per second. Range: 1-120
	FrameRate int `yaml:"frame_rate"`
}

type FormConfig struct {
	// Debounce before an edited field's error is cleared. Range: 0-5s
	Debounce time.Duration `yaml:"debounce"`
}

type DisplayConfig struct {
	// DateLayout is a Go time layout for the calculation date
	DateLayout string `yaml:"date_layout"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: storage.BackendSQLite,
			Key:     history.DefaultKey,
		},
		History: HistoryConfig{
			PollInterval: history.DefaultPollInterval,
		},
		Reveal: RevealConfig{
			Delay:     reveal.DefaultDelay,
			Duration:  reveal.DefaultDuration,
			FrameRate: display.DefaultFrameRate,
		},
		Form: FormConfig{
			Debounce: validation.DefaultDebounce,
		},
		Display: DisplayConfig{
			DateLayout: calculator.DefaultDateLayout,
		},
		LogLevel: "warn",
	}
}

// Validate checks if the configuration has valid values
func (c *Config) Validate() error {
	if !c.Storage.Backend.IsValid() {
		return fmt.Errorf("storage.backend must be sqlite, file or memory (got %q)", c.Storage.Backend)
	}
	if c.Storage.Key == "" {
		return fmt.Errorf("storage.key cannot be empty")
	}

	if c.History.PollInterval < 100*time.Millisecond || c.History.PollInterval > time.Hour {
		return fmt.Errorf("history.poll_interval must be between 100ms and 1h (got %s)", c.History.PollInterval)
	}

	if c.Reveal.Delay < 0 || c.Reveal.Delay > 10*time.Second {
		return fmt.Errorf("reveal.delay must be between 0 and 10s (got %s)", c.Reveal.Delay)
	}
	if c.Reveal.Duration < 0 || c.Reveal.Duration > 10*time.Second {
		return fmt.Errorf("reveal.duration must be between 0 and 10s (got %s)", c.Reveal.Duration)
	}
	if c.Reveal.FrameRate < 1 || c.Reveal.FrameRate > 120 {
		return fmt.Errorf("reveal.frame_rate must be between 1 and 120 (got %d)", c.Reveal.FrameRate)
	}

	if c.Form.Debounce < 0 || c.Form.Debounce > 5*time.Second {
		return fmt.Errorf("form.debounce must be between 0 and 5s (got %s)", c.Form.Debounce)
	}

	if c.Display.DateLayout == "" {
		return fmt.Errorf("display.date_layout cannot be empty")
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	return nil
}

// String returns a human-readable representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Backend: %s, Path: %q, Key: %s, PollInterval: %s, Delay: %s, Duration: %s, "+
			"FrameRate: %d, Debounce: %s, DateLayout: %q, LogLevel: %s}",
		c.Storage.Backend, c.Storage.Path, c.Storage.Key, c.History.PollInterval,
		c.Reveal.Delay, c.Reveal.Duration, c.Reveal.FrameRate, c.Form.Debounce,
		c.Display.DateLayout, c.LogLevel,
	)
}

// StorageSettings converts to the storage package's configuration
func (c *Config) StorageSettings() *storage.Config {
	return &storage.Config{
		Backend: c.Storage.Backend,
		Path:    c.Storage.Path,
	}
}

// RevealSettings converts to the presenter's configuration
func (c *Config) RevealSettings() reveal.Config {
	return reveal.Config{
		Delay:    c.Reveal.Delay,
		Duration: c.Reveal.Duration,
	}
}

// Level returns the parsed log level. Validate must have succeeded.
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.WarnLevel
	}
	return level
}

// LoadFile reads a YAML file on top of the defaults. Keys missing from the file keep
// their default values.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv exports the variables in path that are not already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("checking %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load builds the effective configuration: defaults, then the YAML file at path
// (skipped when empty), then .env, then environment variables.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := LoadDotEnv(DefaultEnvFile); err != nil {
		return nil, err
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides cfg with any BMI_* environment variables that are set
//
// Environment variables:
//   - BMI_STORAGE_BACKEND: sqlite, file or memory (default: sqlite)
//   - BMI_DB_PATH: storage location, skips discovery
//   - BMI_STORAGE_KEY: history slot name (default: bmiHistory)
//   - BMI_POLL_INTERVAL: follow poll interval, e.g. 2s
//   - BMI_REVEAL_DELAY: delay before the meter fills, e.g. 1s
//   - BMI_REVEAL_DURATION: meter fill duration, e.g. 2s
//   - BMI_FRAME_RATE: meter redraws per second
//   - BMI_DEBOUNCE: field error debounce, e.g. 300ms
//   - BMI_DATE_LAYOUT: Go time layout for the calculation date
//   - BMI_LOG_LEVEL: logrus level name
func ApplyEnv(cfg *Config) error {
	var backend string
	if err := parseEnvString("BMI_STORAGE_BACKEND", &backend); err != nil {
		return err
	}
	if backend != "" {
		cfg.Storage.Backend = storage.Backend(backend)
	}
	if err := parseEnvString("BMI_DB_PATH", &cfg.Storage.Path); err != nil {
		return err
	}
	if err := parseEnvString("BMI_STORAGE_KEY", &cfg.Storage.Key); err != nil {
		return err
	}
	if err := parseEnvDuration("BMI_POLL_INTERVAL", &cfg.History.PollInterval); err != nil {
		return err
	}
	if err := parseEnvDuration("BMI_REVEAL_DELAY", &cfg.Reveal.Delay); err != nil {
		return err
	}
	if err := parseEnvDuration("BMI_REVEAL_DURATION", &cfg.Reveal.Duration); err != nil {
		return err
	}
	if err := parseEnvInt("BMI_FRAME_RATE", &cfg.Reveal.FrameRate); err != nil {
		return err
	}
	if err := parseEnvDuration("BMI_DEBOUNCE", &cfg.Form.Debounce); err != nil {
		return err
	}
	if err := parseEnvString("BMI_DATE_LAYOUT", &cfg.Display.DateLayout); err != nil {
		return err
	}
	if err := parseEnvString("BMI_LOG_LEVEL", &cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvDuration parses a Go duration string from an environment variable
func parseEnvDuration(key string, dest *time.Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvString parses a string from an environment variable
func parseEnvString(key string, dest *string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	*dest = value
	return nil
}

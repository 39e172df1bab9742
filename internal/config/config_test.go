package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/steveyegge/bmi/internal/storage"
)

var envKeys = []string{
	"BMI_STORAGE_BACKEND",
	"BMI_DB_PATH",
	"BMI_STORAGE_KEY",
	"BMI_POLL_INTERVAL",
	"BMI_REVEAL_DELAY",
	"BMI_REVEAL_DURATION",
	"BMI_FRAME_RATE",
	"BMI_DEBOUNCE",
	"BMI_DATE_LAYOUT",
	"BMI_LOG_LEVEL",
}

// clearEnv blanks every BMI_* variable for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.Storage.Backend != storage.BackendSQLite {
		t.Errorf("Backend = %v, want sqlite", cfg.Storage.Backend)
	}
	if cfg.Storage.Key != "bmiHistory" {
		t.Errorf("Key = %v, want bmiHistory", cfg.Storage.Key)
	}
	if cfg.Reveal.Delay != time.Second || cfg.Reveal.Duration != 2*time.Second {
		t.Errorf("reveal timings = %v/%v, want 1s/2s", cfg.Reveal.Delay, cfg.Reveal.Duration)
	}
	if cfg.Form.Debounce != 300*time.Millisecond {
		t.Errorf("Debounce = %v, want 300ms", cfg.Form.Debounce)
	}
	if cfg.Level() != logrus.WarnLevel {
		t.Errorf("Level = %v, want warn", cfg.Level())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Storage.Backend = "redis" },
			wantErr: "storage.backend",
		},
		{
			name:    "empty key",
			mutate:  func(c *Config) { c.Storage.Key = "" },
			wantErr: "storage.key",
		},
		{
			name:    "poll interval too short",
			mutate:  func(c *Config) { c.History.PollInterval = 10 * time.Millisecond },
			wantErr: "history.poll_interval",
		},
		{
			name:    "negative delay",
			mutate:  func(c *Config) { c.Reveal.Delay = -time.Second },
			wantErr: "reveal.delay",
		},
		{
			name:    "duration too long",
			mutate:  func(c *Config) { c.Reveal.Duration = time.Minute },
			wantErr: "reveal.duration",
		},
		{
			name:   "zero timings allowed",
			mutate: func(c *Config) { c.Reveal.Delay, c.Reveal.Duration, c.Form.Debounce = 0, 0, 0 },
		},
		{
			name:    "frame rate zero",
			mutate:  func(c *Config) { c.Reveal.FrameRate = 0 },
			wantErr: "reveal.frame_rate",
		},
		{
			name:    "debounce too long",
			mutate:  func(c *Config) { c.Form.Debounce = 10 * time.Second },
			wantErr: "form.debounce",
		},
		{
			name:    "empty date layout",
			mutate:  func(c *Config) { c.Display.DateLayout = "" },
			wantErr: "display.date_layout",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "chatty" },
			wantErr: "log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bmi.yaml")
	content := `storage:
  backend: file
  path: /tmp/bmi-slots
reveal:
  delay: 250ms
  frame_rate: 60
display:
  date_layout: "2006-01-02"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Storage.Backend != storage.BackendFile {
		t.Errorf("Backend = %v, want file", cfg.Storage.Backend)
	}
	if cfg.Storage.Path != "/tmp/bmi-slots" {
		t.Errorf("Path = %v, want /tmp/bmi-slots", cfg.Storage.Path)
	}
	if cfg.Reveal.Delay != 250*time.Millisecond {
		t.Errorf("Delay = %v, want 250ms", cfg.Reveal.Delay)
	}
	if cfg.Reveal.FrameRate != 60 {
		t.Errorf("FrameRate = %v, want 60", cfg.Reveal.FrameRate)
	}
	if cfg.Display.DateLayout != "2006-01-02" {
		t.Errorf("DateLayout = %v, want 2006-01-02", cfg.Display.DateLayout)
	}

	// Keys absent from the file keep their defaults
	if cfg.Reveal.Duration != 2*time.Second {
		t.Errorf("Duration = %v, want default 2s", cfg.Reveal.Duration)
	}
	if cfg.Storage.Key != "bmiHistory" {
		t.Errorf("Key = %v, want default bmiHistory", cfg.Storage.Key)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("storage: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil || !strings.Contains(err.Error(), "parsing YAML") {
		t.Errorf("expected YAML parse error, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:    "no environment variables keeps defaults",
			envVars: map[string]string{},
			check: func(t *testing.T, cfg *Config) {
				if *cfg != *DefaultConfig() {
					t.Errorf("config = %v, want defaults", cfg)
				}
			},
		},
		{
			name: "every override",
			envVars: map[string]string{
				"BMI_STORAGE_BACKEND": "memory",
				"BMI_DB_PATH":         "/tmp/x.db",
				"BMI_STORAGE_KEY":     "otherHistory",
				"BMI_POLL_INTERVAL":   "500ms",
				"BMI_REVEAL_DELAY":    "0s",
				"BMI_REVEAL_DURATION": "1500ms",
				"BMI_FRAME_RATE":      "10",
				"BMI_DEBOUNCE":        "1s",
				"BMI_DATE_LAYOUT":     "02.01.2006",
				"BMI_LOG_LEVEL":       "debug",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Storage.Backend != storage.BackendMemory {
					t.Errorf("Backend = %v, want memory", cfg.Storage.Backend)
				}
				if cfg.Storage.Path != "/tmp/x.db" {
					t.Errorf("Path = %v", cfg.Storage.Path)
				}
				if cfg.Storage.Key != "otherHistory" {
					t.Errorf("Key = %v", cfg.Storage.Key)
				}
				if cfg.History.PollInterval != 500*time.Millisecond {
					t.Errorf("PollInterval = %v", cfg.History.PollInterval)
				}
				if cfg.Reveal.Delay != 0 {
					t.Errorf("Delay = %v", cfg.Reveal.Delay)
				}
				if cfg.Reveal.Duration != 1500*time.Millisecond {
					t.Errorf("Duration = %v", cfg.Reveal.Duration)
				}
				if cfg.Reveal.FrameRate != 10 {
					t.Errorf("FrameRate = %v", cfg.Reveal.FrameRate)
				}
				if cfg.Form.Debounce != time.Second {
					t.Errorf("Debounce = %v", cfg.Form.Debounce)
				}
				if cfg.Display.DateLayout != "02.01.2006" {
					t.Errorf("DateLayout = %v", cfg.Display.DateLayout)
				}
				if cfg.Level() != logrus.DebugLevel {
					t.Errorf("Level = %v", cfg.Level())
				}
			},
		},
		{
			name:    "bad frame rate",
			envVars: map[string]string{"BMI_FRAME_RATE": "fast"},
			wantErr: true,
		},
		{
			name:    "bad duration",
			envVars: map[string]string{"BMI_REVEAL_DELAY": "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := DefaultConfig()
			err := ApplyEnv(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyEnv() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdirForTest(t, dir)

	path := filepath.Join(dir, "bmi.yaml")
	content := "storage:\n  backend: file\nlog_level: info\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BMI_LOG_LEVEL", "error")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.Backend != storage.BackendFile {
		t.Errorf("Backend = %v, want file from YAML", cfg.Storage.Backend)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %v, want error from env", cfg.LogLevel)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	// Truly unset so godotenv is allowed to populate it; t.Setenv restores it afterwards
	os.Unsetenv("BMI_DATE_LAYOUT")

	dir := t.TempDir()
	chdirForTest(t, dir)
	if err := os.WriteFile(filepath.Join(dir, DefaultEnvFile), []byte("BMI_DATE_LAYOUT=2006/01/02\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Display.DateLayout != "2006/01/02" {
		t.Errorf("DateLayout = %v, want value from .env", cfg.Display.DateLayout)
	}
}

func TestLoad_InvalidFromEnv(t *testing.T) {
	clearEnv(t)
	chdirForTest(t, t.TempDir())
	t.Setenv("BMI_STORAGE_BACKEND", "cassette")

	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("expected invalid configuration error, got %v", err)
	}
}

func TestLoadDotEnv_Missing(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Errorf("missing .env should not be an error: %v", err)
	}
}

func TestConfigYAMLDurations(t *testing.T) {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "delay: 1s") {
		t.Errorf("durations should marshal as strings, got:\n%s", data)
	}
}

func TestSettingsConversions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Path = "/data/h.db"

	sc := cfg.StorageSettings()
	if sc.Backend != storage.BackendSQLite || sc.Path != "/data/h.db" {
		t.Errorf("StorageSettings = %+v", sc)
	}
	rc := cfg.RevealSettings()
	if rc.Delay != time.Second || rc.Duration != 2*time.Second {
		t.Errorf("RevealSettings = %+v", rc)
	}
	if !strings.HasPrefix(cfg.String(), "Config{Backend: sqlite") {
		t.Errorf("String() = %s", cfg.String())
	}
}

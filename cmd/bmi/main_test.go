package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"gopkg.in/yaml.v3"

	"github.com/steveyegge/bmi/internal/config"
	"github.com/steveyegge/bmi/internal/history"
	"github.com/steveyegge/bmi/internal/storage"
	"github.com/steveyegge/bmi/internal/storage/memory"
	"github.com/steveyegge/bmi/internal/types"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// useTestStore swaps the globals for an in-memory store with fast reveal timings
func useTestStore(t *testing.T) *memory.Storage {
	t.Helper()
	nullLogger, _ := logtest.NewNullLogger()

	testCfg := config.DefaultConfig()
	testCfg.Reveal.Delay = 5 * time.Millisecond
	testCfg.Reveal.Duration = 20 * time.Millisecond
	testCfg.Reveal.FrameRate = 100
	testCfg.History.PollInterval = 10 * time.Millisecond
	testCfg.Storage.Backend = storage.BackendMemory

	testSlot := memory.New()

	originalCfg, originalSlot, originalStore := cfg, slot, store
	cfg = testCfg
	slot = testSlot
	store = history.New(testSlot, history.WithLogger(nullLogger))
	t.Cleanup(func() {
		cfg, slot, store = originalCfg, originalSlot, originalStore
	})

	return testSlot
}

func validInput(name string) types.FormInput {
	return types.FormInput{
		Name:        name,
		DateOfBirth: "1990-01-01",
		Gender:      "male",
		Height:      "180",
		Weight:      "75",
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunCalc_Instant(t *testing.T) {
	useTestStore(t)
	ctx := context.Background()

	var out bytes.Buffer
	if err := runCalc(ctx, &out, validInput("Alan"), true); err != nil {
		t.Fatalf("runCalc failed: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "23.1") || !strings.Contains(text, "Normal Weight") {
		t.Errorf("result missing from output:\n%s", text)
	}
	if strings.Contains(text, "Calculating...") {
		t.Error("instant mode should skip the reveal")
	}

	records := store.Load(ctx)
	if len(records) != 1 {
		t.Fatalf("expected 1 saved record, got %d", len(records))
	}
	if !strings.Contains(text, "Saved as "+records[0].ID) {
		t.Errorf("expected saved id in output:\n%s", text)
	}
}

// unreadableSlot fails every read and write
type unreadableSlot struct{}

func (unreadableSlot) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk unreadable")
}

func (unreadableSlot) Set(context.Context, string, string) error {
	return errors.New("disk unreadable")
}

func TestRunCalc_ReportsFailedSave(t *testing.T) {
	useTestStore(t)
	nullLogger, hook := logtest.NewNullLogger()
	originalLogger := logger
	logger = nullLogger
	store = history.New(unreadableSlot{}, history.WithLogger(nullLogger))
	t.Cleanup(func() { logger = originalLogger })

	var out bytes.Buffer
	if err := runCalc(context.Background(), &out, validInput("Alan"), true); err != nil {
		t.Fatalf("a failed save should not fail the calculation: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "Normal Weight") {
		t.Errorf("result missing from output:\n%s", text)
	}
	if strings.Contains(text, "Saved as") {
		t.Errorf("must not claim a save that did not happen:\n%s", text)
	}
	if !strings.Contains(text, "Note: not saved to history") {
		t.Errorf("expected not-saved note:\n%s", text)
	}

	var logged bool
	for _, e := range hook.AllEntries() {
		if e.Message == "failed to save to history" {
			logged = true
		}
	}
	if !logged {
		t.Error("expected the save failure to be logged")
	}
}

func TestRunCalc_Animated(t *testing.T) {
	useTestStore(t)

	var out syncBuffer
	if err := runCalc(context.Background(), &out, validInput("Grace"), false); err != nil {
		t.Fatalf("runCalc failed: %v", err)
	}

	text := out.String()
	calcAt := strings.Index(text, "Calculating...")
	resultAt := strings.Index(text, "Your BMI Result")
	savedAt := strings.Index(text, "Saved as")
	if calcAt < 0 || resultAt < 0 || savedAt < 0 {
		t.Fatalf("missing reveal stages in output:\n%s", text)
	}
	if !(calcAt < resultAt && resultAt < savedAt) {
		t.Errorf("stages out of order:\n%s", text)
	}
}

func TestRunCalc_InvalidInput(t *testing.T) {
	useTestStore(t)
	ctx := context.Background()

	in := validInput("")
	in.Weight = "0"

	var out bytes.Buffer
	err := runCalc(ctx, &out, in, true)
	if err != errInvalidInput {
		t.Fatalf("expected errInvalidInput, got %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "Name is required") || !strings.Contains(text, "valid weight") {
		t.Errorf("expected field errors, got:\n%s", text)
	}
	if n := len(store.Load(ctx)); n != 0 {
		t.Errorf("invalid input must not be saved, got %d records", n)
	}
}

func TestRunRemoveAndClear(t *testing.T) {
	useTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"One", "Two"} {
		if err := runCalc(ctx, &bytes.Buffer{}, validInput(name), true); err != nil {
			t.Fatal(err)
		}
	}
	records := store.Load(ctx)
	if len(records) != 2 || records[0].Name != "Two" {
		t.Fatalf("expected newest first, got %+v", records)
	}

	var out bytes.Buffer
	if err := runRemove(ctx, &out, records[0].ID); err != nil {
		t.Fatalf("runRemove failed: %v", err)
	}
	if !strings.Contains(out.String(), "Removed "+records[0].ID) {
		t.Errorf("unexpected output: %s", out.String())
	}
	if n := len(store.Load(ctx)); n != 1 {
		t.Errorf("expected 1 record after remove, got %d", n)
	}

	out.Reset()
	if err := runRemove(ctx, &out, "unknown"); err != nil {
		t.Fatalf("removing an unknown id should not fail: %v", err)
	}
	if !strings.Contains(out.String(), "No saved calculation") {
		t.Errorf("unexpected output: %s", out.String())
	}

	out.Reset()
	if err := runClear(ctx, &out); err != nil {
		t.Fatalf("runClear failed: %v", err)
	}
	if n := len(store.Load(ctx)); n != 0 {
		t.Errorf("expected empty history, got %d", n)
	}

	out.Reset()
	runHistoryOnce(ctx, &out)
	if !strings.Contains(out.String(), "No BMI calculations yet") {
		t.Errorf("expected empty-state message, got:\n%s", out.String())
	}
}

func TestRunHistoryFollow(t *testing.T) {
	testSlot := useTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- runHistoryFollow(ctx, &out)
	}()

	// Another process writing to the same slot
	other := history.New(testSlot)
	rec := types.MeasurementRecord{
		ID: "ext", Name: "Elsewhere", DateOfBirth: "2000-01-01", Gender: types.GenderFemale,
		HeightCm: 160, WeightKg: 45, BMI: 17.6, Category: types.CategoryUnderweight, Date: "1/1/2026",
	}
	if err := other.Add(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(time.Second)
	for !strings.Contains(out.String(), "Elsewhere") {
		if time.Now().After(deadline) {
			t.Fatalf("follow did not redraw:\n%s", out.String())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runHistoryFollow returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("runHistoryFollow did not stop after cancel")
	}
}

func TestPrintConfig(t *testing.T) {
	c := config.DefaultConfig()
	c.Storage.Backend = storage.BackendMemory

	var out bytes.Buffer
	if err := printConfig(&out, c); err != nil {
		t.Fatalf("printConfig failed: %v", err)
	}

	var back config.Config
	if err := yaml.Unmarshal(out.Bytes(), &back); err != nil {
		t.Fatalf("output is not valid YAML: %v\n%s", err, out.String())
	}
	if back.Storage.Backend != storage.BackendMemory || back.Storage.Key != "bmiHistory" {
		t.Errorf("unexpected config: %+v", back)
	}
	if c.Storage.Path != "" {
		t.Error("printConfig must not modify its argument")
	}
}

func TestSetup_OpensConfiguredStorage(t *testing.T) {
	for _, key := range []string{"BMI_STORAGE_BACKEND", "BMI_STORAGE_KEY", "BMI_LOG_LEVEL", "BMI_POLL_INTERVAL",
		"BMI_REVEAL_DELAY", "BMI_REVEAL_DURATION", "BMI_FRAME_RATE", "BMI_DEBOUNCE", "BMI_DATE_LAYOUT"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	chdirForTest(t, dir)
	t.Setenv("BMI_DB_PATH", filepath.Join(dir, "history.db"))

	originalCfg, originalSlot, originalStore := cfg, slot, store
	originalFlags := []string{configPath, dbPath, backend, logLevel}
	t.Cleanup(func() {
		teardown()
		cfg, slot, store = originalCfg, originalSlot, originalStore
		configPath, dbPath, backend, logLevel = originalFlags[0], originalFlags[1], originalFlags[2], originalFlags[3]
	})
	configPath, dbPath, backend, logLevel = "", "", "", "debug"

	if err := setup(context.Background(), false); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if cfg.Storage.Backend != storage.BackendSQLite {
		t.Errorf("Backend = %v, want sqlite", cfg.Storage.Backend)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("--log-level should win, got %v", cfg.LogLevel)
	}
	if store == nil || slot == nil {
		t.Fatal("storage was not opened")
	}

	ctx := context.Background()
	if err := runCalc(ctx, &bytes.Buffer{}, validInput("Persisted"), true); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "history.db")); err != nil {
		t.Errorf("expected sqlite file to exist: %v", err)
	}
	if records := store.Load(ctx); len(records) != 1 || records[0].Name != "Persisted" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestSetup_RejectsBadBackendFlag(t *testing.T) {
	t.Setenv("BMI_STORAGE_BACKEND", "")
	t.Setenv("BMI_LOG_LEVEL", "")
	chdirForTest(t, t.TempDir())

	originalBackend := backend
	t.Cleanup(func() { backend = originalBackend })
	backend = "floppy"

	err := setup(context.Background(), true)
	if err == nil || !strings.Contains(err.Error(), "storage.backend") {
		t.Errorf("expected backend validation error, got %v", err)
	}
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/steveyegge/bmi/internal/config"
	"github.com/steveyegge/bmi/internal/history"
	"github.com/steveyegge/bmi/internal/storage"
	"github.com/steveyegge/bmi/internal/types"
)

var (
	// Global flags
	configPath string
	dbPath     string
	backend    string
	logLevel   string

	// Set up by PersistentPreRun
	cfg    *config.Config
	slot   storage.Slot
	store  *history.Store
	logger = logrus.New()
)

// skipStorage marks commands that do not open the history slot
const skipStorage = "skip-storage"

var rootCmd = &cobra.Command{
	Use:   "bmi",
	Short: "BMI calculator with saved history",
	Long: `Calculate your Body Mass Index, see your weight category with a health
recommendation, and keep the ten most recent calculations.

History is stored in .bmi/ in the current directory when it exists,
otherwise in your user config directory. Use --db or BMI_DB_PATH to override.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := setup(cmd.Context(), cmd.Annotations[skipStorage] != ""); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Storage path (SQLite file or slot directory)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Storage backend: sqlite, file or memory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// setup loads the effective configuration, configures logging and opens storage
func setup(ctx context.Context, configOnly bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Flags win over file and environment
	if dbPath != "" {
		loaded.Storage.Path = dbPath
	}
	if backend != "" {
		loaded.Storage.Backend = storage.Backend(backend)
	}
	if logLevel != "" {
		loaded.LogLevel = logLevel
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = loaded

	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(cfg.Level())

	if configOnly {
		return nil
	}

	opened, err := storage.NewStorage(ctx, cfg.StorageSettings())
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	slot = opened
	store = history.New(slot, history.WithKey(cfg.Storage.Key), history.WithLogger(logger))

	logger.WithFields(logrus.Fields{
		"backend": cfg.Storage.Backend,
		"key":     cfg.Storage.Key,
	}).Debug("storage opened")

	return nil
}

func teardown() {
	if slot == nil {
		return
	}
	if err := slot.Close(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
	}
	slot = nil
	store = nil
}

// findRecord returns the saved record with the given ID
func findRecord(records []types.MeasurementRecord, id string) (types.MeasurementRecord, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return types.MeasurementRecord{}, false
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

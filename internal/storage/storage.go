package storage

import (
	"context"
	"fmt"

	"github.com/steveyegge/bmi/internal/storage/filestore"
	"github.com/steveyegge/bmi/internal/storage/memory"
	"github.com/steveyegge/bmi/internal/storage/sqlite"
)

// Slot is a set of named storage slots, each holding one serialized value.
// It mirrors browser local storage: a value is always read and replaced as a whole.
type Slot interface {
	// Get returns the value stored under key. ok is false if the key has never been set
	// or has been deleted.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set replaces the value stored under key
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Lifecycle
	Close() error
}

// Backend selects the slot implementation
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendFile   Backend = "file"
	BackendMemory Backend = "memory"
)

// IsValid checks if the backend value is valid
func (b Backend) IsValid() bool {
	switch b {
	case BackendSQLite, BackendFile, BackendMemory:
		return true
	}
	return false
}

// Config holds storage configuration
type Config struct {
	// Backend is the slot implementation to use
	// Default: "sqlite"
	Backend Backend

	// Path is the SQLite database file (sqlite backend) or the directory holding
	// one JSON file per slot (file backend). Ignored by the memory backend.
	// Empty means DiscoverPath decides.
	// Special value ":memory:" opens an in-memory SQLite database (useful for tests)
	Path string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendSQLite,
	}
}

// NewStorage opens the configured slot backend
func NewStorage(ctx context.Context, cfg *Config) (Slot, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendSQLite
	}

	if cfg.Backend != BackendMemory && cfg.Path == "" {
		path, err := DiscoverPath(cfg.Backend)
		if err != nil {
			return nil, err
		}
		cfg.Path = path
	}

	switch cfg.Backend {
	case BackendSQLite:
		return sqlite.New(ctx, cfg.Path)
	case BackendFile:
		return filestore.New(cfg.Path)
	case BackendMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Backend)
	}
}

// Package history persists the most recent BMI calculations in a single storage slot.
//
// The slot holds the whole history as one JSON array, newest first, capped at
// MaxEntries. Every mutation reads the array, changes it and writes it back whole.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/steveyegge/bmi/internal/types"
)

const (
	// MaxEntries is the history cap; adding past it evicts the oldest entry
	MaxEntries = 10
	// DefaultKey is the slot the history is stored under
	DefaultKey = "bmiHistory"
)

// Slot is the subset of storage.Slot the history needs
type Slot interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Store reads and writes the history slot.
// Mutations within one process are serialized; across processes the last writer wins.
type Store struct {
	mu   sync.Mutex
	slot Slot
	key  string
	log  logrus.FieldLogger
}

// Option configures a Store
type Option func(*Store)

// WithKey stores the history under a different slot key
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithLogger sets the logger used for storage problems
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a Store over slot
func New(slot Slot, opts ...Option) *Store {
	s := &Store{
		slot: slot,
		key:  DefaultKey,
		log:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("key", s.key)
	return s
}

// Key returns the slot key the history is stored under
func (s *Store) Key() string {
	return s.key
}

// Load returns the stored history, newest first.
// A missing, unreadable or corrupt slot yields an empty history; problems are logged.
func (s *Store) Load(ctx context.Context) []types.MeasurementRecord {
	records, err := s.read(ctx)
	if err != nil {
		s.log.WithError(err).Warn("failed to load history")
		return []types.MeasurementRecord{}
	}
	return records
}

// Add puts record at the front of the history and drops entries past MaxEntries.
// An existing entry with the same ID is replaced.
func (s *Store) Add(ctx context.Context, record types.MeasurementRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read(ctx)
	if err != nil {
		// Do not overwrite history we could not read
		return err
	}

	updated := make([]types.MeasurementRecord, 0, MaxEntries)
	updated = append(updated, record)
	for _, r := range existing {
		if len(updated) == MaxEntries {
			break
		}
		if r.ID == record.ID {
			continue
		}
		updated = append(updated, r)
	}

	return s.write(ctx, updated)
}

// Remove deletes the entry with the given ID. An unknown ID is a no-op.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read(ctx)
	if err != nil {
		return err
	}

	updated := make([]types.MeasurementRecord, 0, len(existing))
	for _, r := range existing {
		if r.ID != id {
			updated = append(updated, r)
		}
	}
	if len(updated) == len(existing) {
		return nil
	}

	return s.write(ctx, updated)
}

// Clear replaces the history with an empty one
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, []types.MeasurementRecord{})
}

// read returns an error only when the slot itself could not be read.
// Corrupt payloads and malformed entries are logged and dropped.
func (s *Store) read(ctx context.Context) ([]types.MeasurementRecord, error) {
	raw, ok, err := s.slot.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	if !ok || raw == "" {
		return []types.MeasurementRecord{}, nil
	}
	return s.decode(raw), nil
}

func (s *Store) decode(raw string) []types.MeasurementRecord {
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		s.log.WithError(err).Warn("history payload is corrupt, treating as empty")
		return []types.MeasurementRecord{}
	}

	records := make([]types.MeasurementRecord, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, entry := range entries {
		var r types.MeasurementRecord
		if err := json.Unmarshal(entry, &r); err != nil {
			s.log.WithError(err).WithField("index", i).Warn("skipping malformed history entry")
			continue
		}
		if err := r.Validate(); err != nil {
			s.log.WithError(err).WithField("index", i).Warn("skipping invalid history entry")
			continue
		}
		if seen[r.ID] {
			s.log.WithField("id", r.ID).Warn("skipping duplicate history entry")
			continue
		}
		seen[r.ID] = true
		records = append(records, r)
	}
	return records
}

func (s *Store) write(ctx context.Context, records []types.MeasurementRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := s.slot.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

// Package memory is a process-local slot store. Nothing survives Close.
package memory

import (
	"context"
	"sync"
)

// Storage keeps slots in a map
type Storage struct {
	mu    sync.RWMutex
	slots map[string]string
}

// New returns an empty store
func New() *Storage {
	return &Storage{slots: make(map[string]string)}
}

// Get returns the value stored under key
func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.slots[key]
	return v, ok, nil
}

// Set replaces the value stored under key
func (s *Storage) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = value
	return nil
}

// Delete removes key
func (s *Storage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, key)
	return nil
}

// Close drops all slots
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = make(map[string]string)
	return nil
}

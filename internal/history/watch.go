package history

import (
	"context"
	"slices"
	"time"

	"github.com/steveyegge/bmi/internal/types"
)

// DefaultPollInterval bounds how stale a watched history can get
const DefaultPollInterval = 2 * time.Second

// Watch reloads the history every interval and calls fn whenever it differs from the
// previous snapshot. The first snapshot is always delivered. Watch returns when ctx is done.
//
// This is how a view notices writes made by another process sharing the same slot.
func (s *Store) Watch(ctx context.Context, interval time.Duration, fn func([]types.MeasurementRecord)) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	last := s.Load(ctx)
	fn(last)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current := s.Load(ctx)
			if ctx.Err() != nil {
				return
			}
			if slices.Equal(current, last) {
				continue
			}
			last = current
			fn(current)
		}
	}
}

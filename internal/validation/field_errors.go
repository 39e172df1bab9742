package validation

import (
	"sync"
	"time"

	"github.com/steveyegge/bmi/internal/types"
)

// DefaultDebounce is how long after an edit the edited field's error is cleared
const DefaultDebounce = 300 * time.Millisecond

// FieldErrors holds the error messages currently shown on an interactive form.
//
// Editing a field restarts a single debounce timer. When it fires, the message of the
// most recently edited field is cleared. Full re-validation happens only on submit.
type FieldErrors struct {
	mu       sync.Mutex
	delay    time.Duration
	errs     Errors
	timer    *time.Timer
	gen      uint64
	onChange func(Errors)
}

// NewFieldErrors creates an empty error set with the given debounce delay
func NewFieldErrors(delay time.Duration) *FieldErrors {
	if delay < 0 {
		delay = 0
	}
	return &FieldErrors{
		delay: delay,
		errs:  Errors{},
	}
}

// OnChange registers a callback invoked after a debounced clear removes a message
func (f *FieldErrors) OnChange(fn func(Errors)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onChange = fn
}

// Replace installs a new validation result and cancels any pending clear
func (f *FieldErrors) Replace(errs Errors) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopLocked()
	f.errs = errs.Clone()
}

// Touched records an edit of field and schedules its message to be cleared
func (f *FieldErrors) Touched(field types.Field) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopLocked()
	gen := f.gen
	f.timer = time.AfterFunc(f.delay, func() {
		f.clear(gen, field)
	})
}

// Current returns a copy of the visible messages
func (f *FieldErrors) Current() Errors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs.Clone()
}

// Get returns the visible message for a field, or ""
func (f *FieldErrors) Get(field types.Field) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[field]
}

// Stop cancels the pending clear, if any
func (f *FieldErrors) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopLocked()
}

// stopLocked cancels the timer and invalidates callbacks already in flight.
// Caller must hold f.mu.
func (f *FieldErrors) stopLocked() {
	f.gen++
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

func (f *FieldErrors) clear(gen uint64, field types.Field) {
	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		return
	}
	f.timer = nil
	_, had := f.errs[field]
	delete(f.errs, field)
	fn := f.onChange
	snapshot := f.errs.Clone()
	f.mu.Unlock()

	if had && fn != nil {
		fn(snapshot)
	}
}

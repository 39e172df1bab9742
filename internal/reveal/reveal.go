// Package reveal drives the staged disclosure of a BMI result.
//
// State flow for each record passed to Show:
//
//	Idle -> Delaying -> Animating -> Revealed
//
// Delaying lasts Config.Delay. Animating lasts Config.Duration while the meter fills
// toward the record's MeterFill. Entering Revealed fires the reveal callbacks exactly
// once for that record. Calling Show again at any point restarts the flow for the new
// record and makes all timers of the previous one inert.
package reveal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/steveyegge/bmi/internal/bmi"
	"github.com/steveyegge/bmi/internal/types"
)

// ErrClosed is returned by Show after Close
var ErrClosed = errors.New("presenter closed")

// State is the presenter's position in the reveal sequence
type State int

const (
	StateIdle State = iota
	StateDelaying
	StateAnimating
	StateRevealed
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDelaying:
		return "delaying"
	case StateAnimating:
		return "animating"
	case StateRevealed:
		return "revealed"
	}
	return "unknown"
}

// Default timings
const (
	DefaultDelay    = 1000 * time.Millisecond
	DefaultDuration = 2000 * time.Millisecond
)

// Config holds reveal timings
type Config struct {
	// Delay before the meter starts filling
	Delay time.Duration
	// Duration of the meter fill; the result is revealed when it ends
	Duration time.Duration
}

// DefaultConfig returns the standard timings
func DefaultConfig() Config {
	return Config{
		Delay:    DefaultDelay,
		Duration: DefaultDuration,
	}
}

// StateFunc observes state transitions
type StateFunc func(state State, record *types.MeasurementRecord)

// RevealFunc observes completed reveals
type RevealFunc func(record *types.MeasurementRecord)

// Presenter is the reveal state machine. It is safe for concurrent use.
// Callbacks run without the lock held, on timer goroutines or on the goroutine
// calling Show or Reset. They are delivered one at a time in transition order,
// so observers always see Delaying before Animating before Revealed.
type Presenter struct {
	mu sync.Mutex

	cfg    Config
	state  State
	record *types.MeasurementRecord
	gen    uint64
	timer  *time.Timer
	closed bool

	animStart time.Time
	// wake is closed when the current record is revealed or replaced
	wake       chan struct{}
	wakeClosed bool

	onState  []StateFunc
	onReveal []RevealFunc

	// queue holds pending notifications; one goroutine drains it at a time
	qmu      sync.Mutex
	queue    []func()
	draining bool
}

// New creates an idle presenter
func New(cfg Config) *Presenter {
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.Duration < 0 {
		cfg.Duration = 0
	}
	return &Presenter{
		cfg:  cfg,
		wake: make(chan struct{}),
	}
}

// OnStateChange registers fn to be called on every transition
func (p *Presenter) OnStateChange(fn StateFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onState = append(p.onState, fn)
}

// OnReveal registers fn to be called once per record when it is revealed
func (p *Presenter) OnReveal(fn RevealFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onReveal = append(p.onReveal, fn)
}

// Show starts the reveal sequence for record, cancelling any sequence in progress
func (p *Presenter) Show(record types.MeasurementRecord) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.cancelLocked()
	p.record = &record
	p.wakeLocked()
	p.wake = make(chan struct{})
	p.wakeClosed = false
	gen := p.gen
	p.state = StateDelaying
	p.timer = time.AfterFunc(p.cfg.Delay, func() { p.startAnimating(gen) })
	p.transitionLocked()
	p.mu.Unlock()

	p.drain()
	return nil
}

// Reset cancels any sequence in progress and clears the current record
func (p *Presenter) Reset() {
	p.mu.Lock()
	if p.state == StateIdle && p.record == nil {
		p.mu.Unlock()
		return
	}
	p.cancelLocked()
	p.wakeLocked()
	p.record = nil
	p.state = StateIdle
	p.transitionLocked()
	p.mu.Unlock()

	p.drain()
}

// Close cancels all pending timers. Show fails afterwards.
func (p *Presenter) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelLocked()
	p.wakeLocked()
	p.closed = true
}

// State returns the current state and record
func (p *Presenter) State() (State, *types.MeasurementRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, p.record
}

// Progress returns how much of the meter is currently filled, in [0, 1]
func (p *Presenter) Progress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.record == nil {
		return 0
	}
	target := bmi.MeterFill(p.record.BMI)

	switch p.state {
	case StateAnimating:
		if p.cfg.Duration <= 0 {
			return target
		}
		frac := float64(time.Since(p.animStart)) / float64(p.cfg.Duration)
		if frac > 1 {
			frac = 1
		}
		return target * frac
	case StateRevealed:
		return target
	default:
		return 0
	}
}

// Wait blocks until the current record is revealed or ctx is done.
// If the record is replaced by another Show, Wait follows the new record.
func (p *Presenter) Wait(ctx context.Context) (*types.MeasurementRecord, error) {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, ErrClosed
		}
		if p.record == nil {
			p.mu.Unlock()
			return nil, errors.New("nothing to reveal")
		}
		if p.state == StateRevealed {
			rec := p.record
			p.mu.Unlock()
			return rec, nil
		}
		ch := p.wake
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ch:
			// Revealed, replaced, reset or closed: re-examine the state
		}
	}
}

func (p *Presenter) startAnimating(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || p.state != StateDelaying {
		p.mu.Unlock()
		return
	}
	p.state = StateAnimating
	p.animStart = time.Now()
	p.timer = time.AfterFunc(p.cfg.Duration, func() { p.reveal(gen) })
	p.transitionLocked()
	p.mu.Unlock()

	p.drain()
}

func (p *Presenter) reveal(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || p.state != StateAnimating {
		p.mu.Unlock()
		return
	}
	p.state = StateRevealed
	p.timer = nil
	rec := p.record
	p.wakeLocked()
	p.transitionLocked()
	callbacks := append([]RevealFunc(nil), p.onReveal...)
	p.enqueueLocked(func() {
		for _, fn := range callbacks {
			fn(rec)
		}
	})
	p.mu.Unlock()

	p.drain()
}

// cancelLocked stops the pending timer and invalidates any callback already running.
// Caller must hold p.mu.
func (p *Presenter) cancelLocked() {
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// wakeLocked releases goroutines blocked in Wait. Caller must hold p.mu.
func (p *Presenter) wakeLocked() {
	if !p.wakeClosed {
		close(p.wake)
		p.wakeClosed = true
	}
}

// transitionLocked queues a notification of the current state for the observers
// registered now. Caller must hold p.mu.
func (p *Presenter) transitionLocked() {
	state := p.state
	rec := p.record
	callbacks := append([]StateFunc(nil), p.onState...)
	p.enqueueLocked(func() {
		for _, fn := range callbacks {
			fn(state, rec)
		}
	})
}

// enqueueLocked appends fn to the notification queue. Holding p.mu keeps the queue
// in transition order. Caller must hold p.mu.
func (p *Presenter) enqueueLocked(fn func()) {
	p.qmu.Lock()
	p.queue = append(p.queue, fn)
	p.qmu.Unlock()
}

// drain runs queued notifications in order. If another goroutine is already
// draining, it delivers ours as well and drain returns at once.
func (p *Presenter) drain() {
	p.qmu.Lock()
	if p.draining {
		p.qmu.Unlock()
		return
	}
	p.draining = true
	for len(p.queue) > 0 {
		fn := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.qmu.Unlock()
		fn()
		p.qmu.Lock()
	}
	p.draining = false
	p.qmu.Unlock()
}

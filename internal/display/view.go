package display

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/time/rate"

	"github.com/steveyegge/bmi/internal/reveal"
	"github.com/steveyegge/bmi/internal/types"
)

// DefaultFrameRate is how many times per second the meter is redrawn
const DefaultFrameRate = 30

// DefaultMeterWidth is the meter width in cells
const DefaultMeterWidth = 40

// View renders a Presenter's reveal sequence to a terminal: a status line while
// delaying, an animated meter while animating and the result card once revealed.
type View struct {
	w          io.Writer
	p          *reveal.Presenter
	frameRate  int
	meterWidth int

	mu     sync.Mutex // serializes writes to w
	cancel context.CancelFunc
	done   chan struct{}

	// shown receives once per result card written
	shown chan struct{}
}

// Attach subscribes a new View to p's state changes
func Attach(p *reveal.Presenter, w io.Writer, frameRate int) *View {
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	v := &View{
		w:          w,
		p:          p,
		frameRate:  frameRate,
		meterWidth: DefaultMeterWidth,
		shown:      make(chan struct{}, 1),
	}
	p.OnStateChange(v.handle)
	return v
}

// WaitShown blocks until a result card has been written since the last call
func (v *View) WaitShown(ctx context.Context) error {
	select {
	case <-v.shown:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop halts any running animation
func (v *View) Stop() {
	v.stopAnimation(false)
}

func (v *View) handle(state reveal.State, rec *types.MeasurementRecord) {
	switch state {
	case reveal.StateDelaying:
		v.stopAnimation(false)
		v.mu.Lock()
		fmt.Fprintf(v.w, "%s\n", color.New(color.FgCyan).Sprint("Calculating..."))
		v.mu.Unlock()
	case reveal.StateAnimating:
		v.startAnimation(rec)
	case reveal.StateRevealed:
		v.stopAnimation(true)
		v.mu.Lock()
		Result(v.w, rec, v.meterWidth)
		v.mu.Unlock()
		select {
		case v.shown <- struct{}{}:
		default:
		}
	case reveal.StateIdle:
		v.stopAnimation(false)
	}
}

func (v *View) startAnimation(rec *types.MeasurementRecord) {
	v.stopAnimation(false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	v.mu.Lock()
	v.cancel = cancel
	v.done = done
	v.mu.Unlock()

	barColor := CategoryColor(rec.Category)
	limiter := rate.NewLimiter(rate.Limit(v.frameRate), 1)

	go func() {
		defer close(done)
		for {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			// The presenter may have moved on before this frame
			if state, _ := v.p.State(); state != reveal.StateAnimating {
				return
			}
			v.drawFrame(barColor, v.p.Progress())
		}
	}()
}

// stopAnimation cancels the frame loop and waits for it to exit.
// With final set, the meter is drawn once more at the presenter's final fill.
func (v *View) stopAnimation(final bool) {
	v.mu.Lock()
	cancel, done := v.cancel, v.done
	v.cancel, v.done = nil, nil
	v.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	if final {
		_, rec := v.p.State()
		if rec != nil {
			v.drawFrame(CategoryColor(rec.Category), v.p.Progress())
		}
	}
	v.mu.Lock()
	fmt.Fprintln(v.w)
	v.mu.Unlock()
}

func (v *View) drawFrame(c *color.Color, fill float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.w, "\r  %s %3.0f%%", c.Sprint(Meter(fill, v.meterWidth)), fill*100)
}

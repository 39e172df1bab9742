// Package calculator wires the BMI form together: validation, computation,
// the staged reveal and the saved history.
package calculator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/steveyegge/bmi/internal/bmi"
	"github.com/steveyegge/bmi/internal/history"
	"github.com/steveyegge/bmi/internal/reveal"
	"github.com/steveyegge/bmi/internal/types"
	"github.com/steveyegge/bmi/internal/validation"
)

// DefaultDateLayout formats the calculation date as month/day/year
const DefaultDateLayout = "1/2/2006"

// Options configures a Calculator. Zero values select defaults, except Debounce.
type Options struct {
	// Debounce before an edited field's error is cleared. Zero clears on the next
	// tick; a negative value selects validation.DefaultDebounce.
	Debounce time.Duration
	// DateLayout is the time layout for MeasurementRecord.Date
	DateLayout string
	Logger     logrus.FieldLogger

	// Now and NewID are overridable for tests
	Now   func() time.Time
	NewID func() string
}

// Calculator holds the state of one BMI form
type Calculator struct {
	mu    sync.Mutex
	input types.FormInput

	errors    *validation.FieldErrors
	presenter *reveal.Presenter
	store     *history.Store

	log        logrus.FieldLogger
	dateLayout string
	now        func() time.Time
	newID      func() string
}

// New creates a Calculator. presenter may be nil when no reveal is wanted.
func New(store *history.Store, presenter *reveal.Presenter, opts Options) *Calculator {
	if opts.Debounce < 0 {
		opts.Debounce = validation.DefaultDebounce
	}
	if opts.DateLayout == "" {
		opts.DateLayout = DefaultDateLayout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = NewRecordID
	}

	return &Calculator{
		errors:     validation.NewFieldErrors(opts.Debounce),
		presenter:  presenter,
		store:      store,
		log:        opts.Logger,
		dateLayout: opts.DateLayout,
		now:        opts.Now,
		newID:      opts.NewID,
	}
}

// NewRecordID returns a time-ordered unique ID (UUIDv7)
func NewRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Set updates one form field. The field's visible error is cleared after the debounce.
func (c *Calculator) Set(field types.Field, value string) error {
	c.mu.Lock()
	updated, err := c.input.With(field, value)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.input = updated
	c.mu.Unlock()

	c.errors.Touched(field)
	return nil
}

// Fill replaces every form field at once
func (c *Calculator) Fill(in types.FormInput) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = in
}

// Input returns the current form values
func (c *Calculator) Input() types.FormInput {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// Errors returns the currently visible field errors
func (c *Calculator) Errors() validation.Errors {
	return c.errors.Current()
}

// OnErrorsChange registers a callback for debounced error clears
func (c *Calculator) OnErrorsChange(fn func(validation.Errors)) {
	c.errors.OnChange(fn)
}

// Submission is the outcome of a valid Submit
type Submission struct {
	Record types.MeasurementRecord
	// SaveErr is set when the record could not be written to history
	SaveErr error
}

// Saved reports whether the record reached history
func (s *Submission) Saved() bool {
	return s.SaveErr == nil
}

// Submit validates the form. On failure the field errors are returned and nothing is
// computed or saved. On success the record is computed, handed to the presenter,
// saved to history and the form is cleared. A failed save is logged and reported in
// the Submission; the result is still shown.
func (c *Calculator) Submit(ctx context.Context) (*Submission, validation.Errors) {
	c.mu.Lock()
	in := c.input
	c.mu.Unlock()

	errs := validation.Validate(in)
	if !errs.Empty() {
		c.errors.Replace(errs)
		return nil, errs
	}

	rec := c.buildRecord(in)

	if c.presenter != nil {
		if err := c.presenter.Show(rec); err != nil {
			c.log.WithError(err).Warn("failed to display result")
		}
	}

	sub := &Submission{Record: rec}
	if err := c.store.Add(ctx, rec); err != nil {
		c.log.WithError(err).WithField("id", rec.ID).Error("failed to save to history")
		sub.SaveErr = err
	}

	c.mu.Lock()
	c.input = types.FormInput{}
	c.mu.Unlock()
	c.errors.Replace(validation.Errors{})

	return sub, validation.Errors{}
}

// buildRecord assumes in has passed validation
func (c *Calculator) buildRecord(in types.FormInput) types.MeasurementRecord {
	height, _ := validation.ParseMeasure(in.Height, types.MaxHeightCm)
	weight, _ := validation.ParseMeasure(in.Weight, types.MaxWeightKg)
	result := bmi.Compute(height, weight)

	return types.MeasurementRecord{
		ID:          c.newID(),
		Name:        in.Name,
		DateOfBirth: in.DateOfBirth,
		Gender:      types.Gender(in.Gender),
		HeightCm:    height,
		WeightKg:    weight,
		BMI:         result.BMI,
		Category:    result.Category,
		Date:        c.now().Format(c.dateLayout),
	}
}

// Reset clears the form, its errors and the displayed result
func (c *Calculator) Reset() {
	c.mu.Lock()
	c.input = types.FormInput{}
	c.mu.Unlock()

	c.errors.Replace(validation.Errors{})
	if c.presenter != nil {
		c.presenter.Reset()
	}
}

// History returns the saved calculations, newest first
func (c *Calculator) History(ctx context.Context) []types.MeasurementRecord {
	return c.store.Load(ctx)
}

// Remove deletes one saved calculation. Failures are logged.
func (c *Calculator) Remove(ctx context.Context, id string) {
	if err := c.store.Remove(ctx, id); err != nil {
		c.log.WithError(err).WithField("id", id).Error("failed to remove entry")
	}
}

// ClearHistory deletes every saved calculation. Failures are logged.
func (c *Calculator) ClearHistory(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		c.log.WithError(err).Error("failed to clear history")
	}
}

// Close stops all timers owned by the form
func (c *Calculator) Close() {
	c.errors.Stop()
	if c.presenter != nil {
		c.presenter.Close()
	}
}

// String summarizes the form for debugging
func (c *Calculator) String() string {
	in := c.Input()
	return fmt.Sprintf("Calculator{name=%q dob=%q gender=%q height=%q weight=%q}",
		in.Name, in.DateOfBirth, in.Gender, in.Height, in.Weight)
}

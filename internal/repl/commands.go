package repl

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/steveyegge/bmi/internal/calculator"
	"github.com/steveyegge/bmi/internal/display"
	"github.com/steveyegge/bmi/internal/types"
)

// fieldSetter returns a handler that stores its arguments, joined by spaces, in field
func (r *REPL) fieldSetter(field types.Field) CommandHandler {
	return func(args []string) error {
		value := strings.Join(args, " ")
		if field == types.FieldGender {
			value = strings.ToLower(value)
		}
		if err := r.calc.Set(field, value); err != nil {
			return err
		}
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Fprintf(r.output(), "  %s = %s\n", gray(display.FieldLabel(field)), value)
		return nil
	}
}

func (r *REPL) cmdForm(args []string) error {
	fmt.Fprintln(r.output())
	display.Form(r.output(), r.calc.Input(), r.calc.Errors())
	fmt.Fprintln(r.output())
	return nil
}

// cmdCalc submits the form. It blocks until the result is revealed.
func (r *REPL) cmdCalc(args []string) error {
	var sub *calculator.Submission
	r.mutate(func() {
		submitted, errs := r.calc.Submit(r.ctx)
		if !errs.Empty() {
			red := color.New(color.FgRed, color.Bold).SprintFunc()
			fmt.Fprintf(r.output(), "%s\n", red("Please fix the following:"))
			display.FieldErrors(r.output(), errs)
			return
		}
		sub = submitted
	})
	if sub == nil {
		return nil
	}

	switch {
	case r.presenter == nil:
		display.Result(r.output(), &sub.Record, display.DefaultMeterWidth)
	case r.view != nil:
		if err := r.view.WaitShown(r.ctx); err != nil {
			return fmt.Errorf("waiting for result: %w", err)
		}
	default:
		revealed, err := r.presenter.Wait(r.ctx)
		if err != nil {
			return fmt.Errorf("waiting for result: %w", err)
		}
		display.Result(r.output(), revealed, display.DefaultMeterWidth)
	}

	display.SaveStatus(r.output(), sub.Record.ID, sub.SaveErr)
	return nil
}

func (r *REPL) cmdReset(args []string) error {
	r.calc.Reset()
	fmt.Fprintln(r.output(), "Form cleared")
	return nil
}

func (r *REPL) cmdHistory(args []string) error {
	display.HistoryTable(r.output(), r.calc.History(r.ctx))
	return nil
}

func (r *REPL) cmdRemove(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: rm <id>")
	}
	id := args[0]

	var found bool
	r.mutate(func() {
		for _, rec := range r.calc.History(r.ctx) {
			if rec.ID == id {
				found = true
				break
			}
		}
		r.calc.Remove(r.ctx, id)
	})

	if !found {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Fprintf(r.output(), "%s no saved calculation with id %s\n", yellow("Note:"), id)
		return nil
	}
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.output(), "%s Removed %s\n", green("✓"), id)
	return nil
}

func (r *REPL) cmdClear(args []string) error {
	r.mutate(func() {
		r.calc.ClearHistory(r.ctx)
	})
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.output(), "%s History cleared\n", green("✓"))
	return nil
}

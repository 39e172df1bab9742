package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/bmi/internal/calculator"
	"github.com/steveyegge/bmi/internal/display"
	"github.com/steveyegge/bmi/internal/reveal"
	"github.com/steveyegge/bmi/internal/types"
)

// errInvalidInput means the form had field errors, which have already been printed
var errInvalidInput = errors.New("invalid input")

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Calculate BMI and save it to history",
	Long: `Validate the measurements, show the result with a short reveal animation,
and save the calculation to history.

Examples:
  bmi calc --name "Ada Lovelace" --dob 1815-12-10 --gender female --height 165 --weight 55
  bmi calc --name Alan --dob 1912-06-23 --gender male --height 180 --weight 75 --instant`,
	Run: func(cmd *cobra.Command, args []string) {
		in := types.FormInput{}
		in.Name, _ = cmd.Flags().GetString("name")
		in.DateOfBirth, _ = cmd.Flags().GetString("dob")
		in.Gender, _ = cmd.Flags().GetString("gender")
		in.Height, _ = cmd.Flags().GetString("height")
		in.Weight, _ = cmd.Flags().GetString("weight")
		instant, _ := cmd.Flags().GetBool("instant")

		if err := runCalc(cmd.Context(), os.Stdout, in, instant); err != nil {
			if !errors.Is(err, errInvalidInput) {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			teardown()
			os.Exit(1)
		}
	},
}

func init() {
	calcCmd.Flags().String("name", "", "Full name")
	calcCmd.Flags().String("dob", "", "Date of birth")
	calcCmd.Flags().String("gender", "", "Gender: male or female")
	calcCmd.Flags().String("height", "", "Height in cm (1-300)")
	calcCmd.Flags().String("weight", "", "Weight in kg (1-500)")
	calcCmd.Flags().Bool("instant", false, "Skip the reveal animation")
	rootCmd.AddCommand(calcCmd)
}

// runCalc submits one form. With instant set the result is printed immediately,
// otherwise the staged reveal is rendered to w.
func runCalc(ctx context.Context, w io.Writer, in types.FormInput, instant bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var presenter *reveal.Presenter
	if !instant {
		presenter = reveal.New(cfg.RevealSettings())
	}

	calc := calculator.New(store, presenter, calculator.Options{
		Debounce:   cfg.Form.Debounce,
		DateLayout: cfg.Display.DateLayout,
		Logger:     logger,
	})
	defer calc.Close()

	var view *display.View
	if presenter != nil {
		view = display.Attach(presenter, w, cfg.Reveal.FrameRate)
		defer view.Stop()
	}

	calc.Fill(in)
	sub, errs := calc.Submit(ctx)
	if !errs.Empty() {
		red := color.New(color.FgRed, color.Bold).SprintFunc()
		fmt.Fprintf(w, "%s\n", red("Please fix the following:"))
		display.FieldErrors(w, errs)
		return errInvalidInput
	}

	if view == nil {
		display.Result(w, &sub.Record, display.DefaultMeterWidth)
	} else if err := view.WaitShown(ctx); err != nil {
		return fmt.Errorf("waiting for result: %w", err)
	}

	display.SaveStatus(w, sub.Record.ID, sub.SaveErr)
	return nil
}

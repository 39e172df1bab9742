package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/bmi/internal/calculator"
	"github.com/steveyegge/bmi/internal/repl"
	"github.com/steveyegge/bmi/internal/reveal"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start the interactive BMI form",
	Long: `Start an interactive shell to fill in the BMI form field by field.

Field errors clear shortly after you edit the field. Changes made to the
history by other sessions are reported while the shell is open.

Type 'help' in the REPL for available commands.`,
	Run: func(cmd *cobra.Command, args []string) {
		presenter := reveal.New(cfg.RevealSettings())
		calc := calculator.New(store, presenter, calculator.Options{
			Debounce:   cfg.Form.Debounce,
			DateLayout: cfg.Display.DateLayout,
			Logger:     logger,
		})
		defer calc.Close()

		r, err := repl.New(&repl.Config{
			Calculator:   calc,
			Store:        store,
			Presenter:    presenter,
			PollInterval: cfg.History.PollInterval,
			FrameRate:    cfg.Reveal.FrameRate,
			Logger:       logger,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create REPL: %v\n", err)
			os.Exit(1)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := r.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			calc.Close()
			teardown()
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}

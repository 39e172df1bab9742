package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/bmi/internal/display"
	"github.com/steveyegge/bmi/internal/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show saved calculations",
	Long: `Show the ten most recent BMI calculations, newest first.

With --follow the table is redrawn whenever another session changes the
history, until Ctrl+C.`,
	Run: func(cmd *cobra.Command, args []string) {
		follow, _ := cmd.Flags().GetBool("follow")

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if !follow {
			runHistoryOnce(ctx, os.Stdout)
			return
		}

		// Set up signal handling for graceful shutdown
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		go func() {
			select {
			case <-sigChan:
				fmt.Println("\n\nStopped following")
				cancel()
			case <-ctx.Done():
			}
		}()

		if err := runHistoryFollow(ctx, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			teardown()
			os.Exit(1)
		}
	},
}

func init() {
	historyCmd.Flags().BoolP("follow", "f", false, "Follow mode - redraw on changes (Ctrl+C to stop)")
	rootCmd.AddCommand(historyCmd)
}

// runHistoryOnce prints the saved calculations
func runHistoryOnce(ctx context.Context, w io.Writer) {
	display.HistoryTable(w, store.Load(ctx))
}

// runHistoryFollow redraws the table on every change until ctx is cancelled
func runHistoryFollow(ctx context.Context, w io.Writer) error {
	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Fprintf(w, "\n%s Following history (Ctrl+C to stop)...\n", cyan("👁️"))

	updates := make(chan []types.MeasurementRecord)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(updates)
		store.Watch(gctx, cfg.History.PollInterval, func(records []types.MeasurementRecord) {
			select {
			case updates <- records:
			case <-gctx.Done():
			}
		})
		return nil
	})
	g.Go(func() error {
		for records := range updates {
			display.HistoryTable(w, records)
		}
		return nil
	})

	return g.Wait()
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/bmi/internal/display"
)

var removeCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Delete one saved calculation",
	Long: `Delete a saved calculation by its ID, as shown by 'bmi history'.
Removing an ID that is not in the history changes nothing.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := runRemove(ctx, os.Stdout, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			teardown()
			os.Exit(1)
		}
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all saved calculations",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := runClear(ctx, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			teardown()
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(clearCmd)
}

func runRemove(ctx context.Context, w io.Writer, id string) error {
	rec, found := findRecord(store.Load(ctx), id)
	if !found {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Fprintf(w, "%s No saved calculation with id %s\n", yellow("Note:"), id)
		return nil
	}

	if err := store.Remove(ctx, id); err != nil {
		return fmt.Errorf("failed to remove %s: %w", id, err)
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(w, "%s Removed %s (%s, BMI %.1f, %s)\n", green("✓"), id, rec.Name, rec.BMI, rec.Date)
	return nil
}

func runClear(ctx context.Context, w io.Writer) error {
	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(w, "%s History cleared\n", green("✓"))
	display.HistoryTable(w, nil)
	return nil
}

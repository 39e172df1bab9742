package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/bmi/internal/calculator"
	"github.com/steveyegge/bmi/internal/display"
	"github.com/steveyegge/bmi/internal/history"
	"github.com/steveyegge/bmi/internal/reveal"
	"github.com/steveyegge/bmi/internal/types"
)

// errExit is returned by the exit command to stop the loop
var errExit = errors.New("exit")

// REPL represents the interactive form shell
type REPL struct {
	calc      *calculator.Calculator
	store     *history.Store
	presenter *reveal.Presenter
	interval  time.Duration
	frameRate int
	log       logrus.FieldLogger

	out  io.Writer
	rl   *readline.Instance
	view *display.View
	ctx  context.Context

	commands map[string]CommandHandler

	// mu serializes history mutations with the watcher's comparison so
	// our own writes are never reported as external changes
	mu    sync.Mutex
	known []string
}

// CommandHandler handles a specific command
type CommandHandler func(args []string) error

// Config holds REPL configuration
type Config struct {
	Calculator *calculator.Calculator
	Store      *history.Store
	// Presenter drives the staged reveal after calc. Optional.
	Presenter *reveal.Presenter
	// PollInterval for detecting history changes made by other processes
	PollInterval time.Duration
	FrameRate    int
	// Out defaults to the readline terminal
	Out    io.Writer
	Logger logrus.FieldLogger
}

// New creates a new REPL instance
func New(cfg *Config) (*REPL, error) {
	if cfg.Calculator == nil {
		return nil, fmt.Errorf("calculator is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("history store is required")
	}

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = history.DefaultPollInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	r := &REPL{
		calc:      cfg.Calculator,
		store:     cfg.Store,
		presenter: cfg.Presenter,
		interval:  interval,
		frameRate: cfg.FrameRate,
		log:       logger,
		out:       cfg.Out,
		ctx:       context.Background(),
		commands:  make(map[string]CommandHandler),
	}

	r.registerCommands()

	return r, nil
}

// Run starts the REPL loop and the history watcher. It returns when the user exits,
// input ends, or ctx is cancelled.
func (r *REPL) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.ctx = ctx

	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("bmi> "),
		AutoComplete:      r.completer(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	r.rl = rl
	if r.out == nil {
		r.out = rl.Stdout()
	}
	if r.presenter != nil {
		r.view = display.Attach(r.presenter, r.out, r.frameRate)
		defer r.view.Stop()
	}

	r.printWelcome()
	r.syncKnown(r.calc.History(ctx))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.store.Watch(gctx, r.interval, r.onHistoryChange)
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return r.loop(gctx)
	})
	g.Go(func() error {
		// Unblock Readline when the context ends
		<-gctx.Done()
		rl.Close()
		return nil
	})

	return g.Wait()
}

func (r *REPL) loop(ctx context.Context) error {
	for {
		line, err := r.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				// Ctrl+C - just show prompt again
				continue
			} else if err == io.EOF {
				fmt.Fprintln(r.output(), "\nGoodbye!")
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := r.processInput(line); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			red := color.New(color.FgRed).SprintFunc()
			fmt.Fprintf(r.output(), "%s %v\n", red("Error:"), err)
		}
	}
}

// processInput processes a single line of input
func (r *REPL) processInput(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	command := strings.ToLower(parts[0])
	args := parts[1:]

	if handler, ok := r.commands[command]; ok {
		return handler(args)
	}

	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintf(r.output(), "%s Unknown command %q. Use 'help' for available commands.\n", yellow("Note:"), parts[0])
	return nil
}

// registerCommands registers all built-in commands
func (r *REPL) registerCommands() {
	r.commands["name"] = r.fieldSetter(types.FieldName)
	r.commands["dob"] = r.fieldSetter(types.FieldDateOfBirth)
	r.commands["gender"] = r.fieldSetter(types.FieldGender)
	r.commands["height"] = r.fieldSetter(types.FieldHeight)
	r.commands["weight"] = r.fieldSetter(types.FieldWeight)
	r.commands["form"] = r.cmdForm
	r.commands["calc"] = r.cmdCalc
	r.commands["reset"] = r.cmdReset
	r.commands["history"] = r.cmdHistory
	r.commands["rm"] = r.cmdRemove
	r.commands["clear"] = r.cmdClear
	r.commands["help"] = r.cmdHelp
	r.commands["?"] = r.cmdHelp
	r.commands["exit"] = r.cmdExit
	r.commands["quit"] = r.cmdExit
}

func (r *REPL) completer() *readline.PrefixCompleter {
	ids := func(string) []string {
		return recordIDs(r.calc.History(r.ctx))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("name"),
		readline.PcItem("dob"),
		readline.PcItem("gender",
			readline.PcItem(string(types.GenderMale)),
			readline.PcItem(string(types.GenderFemale)),
		),
		readline.PcItem("height"),
		readline.PcItem("weight"),
		readline.PcItem("form"),
		readline.PcItem("calc"),
		readline.PcItem("reset"),
		readline.PcItem("history"),
		readline.PcItem("rm", readline.PcItemDynamic(ids)),
		readline.PcItem("clear"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}

// onHistoryChange reports history that differs from what this session last saw.
// The watcher's snapshot may predate one of our own writes, so it only triggers
// a fresh read under r.mu.
func (r *REPL) onHistoryChange([]types.MeasurementRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := r.calc.History(r.ctx)
	ids := recordIDs(records)
	if r.known == nil || slices.Equal(ids, r.known) {
		r.known = ids
		return
	}
	r.known = ids
	r.log.WithField("entries", len(records)).Debug("history changed externally")

	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintf(r.output(), "\n%s history was changed by another session (%d entries). Type 'history' to view.\n",
		yellow("Note:"), len(records))
}

// mutate runs fn and records the resulting history as seen by this session
func (r *REPL) mutate(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
	r.known = recordIDs(r.calc.History(r.ctx))
}

func (r *REPL) syncKnown(records []types.MeasurementRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.known = recordIDs(records)
}

func (r *REPL) output() io.Writer {
	if r.out == nil {
		return os.Stdout
	}
	return r.out
}

func recordIDs(records []types.MeasurementRecord) []string {
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	return ids
}

// printWelcome prints the welcome message
func (r *REPL) printWelcome() {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	w := r.output()
	fmt.Fprintf(w, "\n%s\n", cyan("BMI Calculator"))
	fmt.Fprintln(w, "Fill in the form, then type 'calc'")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Type 'help' for available commands, 'exit' to quit")
	fmt.Fprintln(w)
}

// cmdHelp shows help information
func (r *REPL) cmdHelp(args []string) error {
	w := r.output()
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(w, "\n%s\n\n", cyan("Available Commands:"))

	commands := []struct {
		name string
		desc string
	}{
		{"name <full name>", "Set your name"},
		{"dob <date>", "Set your date of birth"},
		{"gender male|female", "Set your gender"},
		{"height <cm>", "Set your height (1-300 cm)"},
		{"weight <kg>", "Set your weight (1-500 kg)"},
		{"form", "Show the form and any errors"},
		{"calc", "Calculate and save your BMI"},
		{"reset", "Clear the form and the result"},
		{"history", "Show saved calculations"},
		{"rm <id>", "Delete one saved calculation"},
		{"clear", "Delete all saved calculations"},
		{"help, ?", "Show this help message"},
		{"exit, quit", "Exit the REPL"},
	}

	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-20s %s\n", green(cmd.name), cmd.desc)
	}
	fmt.Fprintln(w)

	return nil
}

// cmdExit exits the REPL
func (r *REPL) cmdExit(args []string) error {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.output(), "\n%s Goodbye!\n", green("✓"))
	return errExit
}

// Package monitor implements the sdb command loop: printing expressions
// and managing watchpoints.
package monitor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lemonberrylabs/sdb/pkg/expr"
	"github.com/lemonberrylabs/sdb/pkg/store"
	"github.com/lemonberrylabs/sdb/pkg/types"
)

// Prompt is written before each command when the monitor is interactive.
const Prompt = "(sdb) "

// Monitor executes sdb commands against an evaluator and a store.
type Monitor struct {
	eval   *expr.Evaluator
	store  *store.Store
	out    io.Writer
	logger zerolog.Logger

	// Interactive makes Run print a prompt before reading each line.
	Interactive bool
}

type command struct {
	name        string
	description string
	handler     func(m *Monitor, args string) (quit bool)
}

var commands []command

func init() {
	commands = []command{
		{"help", "Display information about all supported commands", (*Monitor).cmdHelp},
		{"q", "Exit the monitor", (*Monitor).cmdQuit},
		{"p", "Evaluate an expression: p EXPR", (*Monitor).cmdPrint},
		{"w", "Set a watchpoint on an expression: w EXPR", (*Monitor).cmdWatch},
		{"d", "Delete a watchpoint: d N", (*Monitor).cmdDelete},
		{"info", "Show program state: info w", (*Monitor).cmdInfo},
	}
}

// New creates a monitor writing its output to out.
func New(ev *expr.Evaluator, s *store.Store, out io.Writer, logger zerolog.Logger) *Monitor {
	return &Monitor{eval: ev, store: s, out: out, logger: logger}
}

// Evaluator returns the evaluator used by the monitor.
func (m *Monitor) Evaluator() *expr.Evaluator {
	return m.eval
}

// Store returns the store used by the monitor.
func (m *Monitor) Store() *store.Store {
	return m.store
}

// Print evaluates text and records the value in the history.
func (m *Monitor) Print(text string) (store.HistoryEntry, error) {
	v, err := m.eval.Evaluate(text)
	if err != nil {
		return store.HistoryEntry{}, err
	}
	return m.store.Record(text, v), nil
}

// Watch evaluates text and sets a watchpoint holding its current value.
func (m *Monitor) Watch(text string) (store.Watchpoint, error) {
	v, err := m.eval.Evaluate(text)
	if err != nil {
		return store.Watchpoint{}, err
	}
	wp := m.store.CreateWatchpoint(text, v)
	m.logger.Info().Int("watchpoint", wp.ID).Str("expr", text).Msg("watchpoint set")
	return wp, nil
}

// Exec runs a single command line and reports whether the monitor should
// stop.
func (m *Monitor) Exec(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	name, args, _ := strings.Cut(line, " ")
	args = strings.TrimSpace(args)

	for _, c := range commands {
		if c.name == name {
			return c.handler(m, args)
		}
	}
	fmt.Fprintf(m.out, "Unknown command '%s'\n", name)
	return false
}

// Run reads commands from r until EOF, a quit command or cancellation of
// ctx.
func (m *Monitor) Run(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if m.Interactive {
			fmt.Fprint(m.out, Prompt)
		}
		if !sc.Scan() {
			return sc.Err()
		}
		if m.Exec(sc.Text()) {
			return nil
		}
	}
}

func (m *Monitor) cmdHelp(args string) bool {
	for _, c := range commands {
		if args == "" || args == c.name {
			fmt.Fprintf(m.out, "%s - %s\n", c.name, c.description)
			if args != "" {
				return false
			}
		}
	}
	if args != "" {
		fmt.Fprintf(m.out, "Unknown command '%s'\n", args)
	}
	return false
}

func (m *Monitor) cmdQuit(string) bool {
	return true
}

func (m *Monitor) cmdPrint(args string) bool {
	if args == "" {
		fmt.Fprintln(m.out, "Usage: p EXPR")
		return false
	}
	e, err := m.Print(args)
	if err != nil {
		m.reportError(args, err)
		return false
	}
	fmt.Fprintf(m.out, "$%d = %s (%s)\n", e.N, e.Value, e.Value.Hex())
	return false
}

func (m *Monitor) cmdWatch(args string) bool {
	if args == "" {
		fmt.Fprintln(m.out, "Usage: w EXPR")
		return false
	}
	wp, err := m.Watch(args)
	if err != nil {
		m.reportError(args, err)
		return false
	}
	fmt.Fprintf(m.out, "Watchpoint %d: %s\n", wp.ID, wp.Expr)
	return false
}

func (m *Monitor) cmdDelete(args string) bool {
	id, err := strconv.Atoi(args)
	if err != nil {
		fmt.Fprintln(m.out, "Usage: d N")
		return false
	}
	if err := m.store.DeleteWatchpoint(id); err != nil {
		fmt.Fprintf(m.out, "No watchpoint number %d\n", id)
		return false
	}
	fmt.Fprintf(m.out, "Deleted watchpoint %d\n", id)
	return false
}

func (m *Monitor) cmdInfo(args string) bool {
	if args != "w" {
		fmt.Fprintln(m.out, "Usage: info w")
		return false
	}
	wps := m.store.ListWatchpoints()
	if len(wps) == 0 {
		fmt.Fprintln(m.out, "No watchpoints")
		return false
	}
	fmt.Fprintf(m.out, "%-4s %-12s %s\n", "Num", "Value", "What")
	for _, wp := range wps {
		fmt.Fprintf(m.out, "%-4d %-12s %s\n", wp.ID, wp.Value, wp.Expr)
	}
	return false
}

func (m *Monitor) reportError(input string, err error) {
	m.logger.Debug().Str("expr", input).Err(err).Msg("command failed")
	if ee, ok := types.AsExprError(err); ok {
		if caret := ee.Caret(input); caret != "" {
			fmt.Fprintln(m.out, caret)
		}
	}
	fmt.Fprintf(m.out, "Error: %v\n", err)
}

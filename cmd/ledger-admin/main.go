// ABOUTME: Admin CLI for inspecting and editing the state ledger directly
// ABOUTME: Uses the same config and store as the bot, without Matrix

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/2389/state-ledger/internal/config"
	"github.com/2389/state-ledger/internal/ledger"
)

const banner = `
  _          _                                _           _
 | | ___  __| | __ _  ___ _ __      __ _  __| |_ __ ___ (_)_ __
 | |/ _ \/ _' |/ _' |/ _ \ '__|____/ _' |/ _' | '_ ' _ \| | '_ \
 | |  __/ (_| | (_| |  __/ | |_____| (_| | (_| | | | | | | | | | |
 |_|\___|\__,_|\__, |\___|_|       \__,_|\__,_|_| |_| |_|_|_| |_|
               |___/
`

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage(os.Stdout)
		return
	}

	if err := run(cmd, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd string, args []string) error {
	slog.SetDefault(newCLILogger(os.Stderr))

	configPath := config.DefaultConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config from %s: %w", configPath, err)
	}

	store, err := ledger.Open(cfg.Ledger.Backend, cfg.Ledger.Path)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return dispatch(ctx, store, os.Stdout, cmd, args)
}

// newCLILogger only lets warnings through, so store lifecycle logs do not
// interleave with command output.
func newCLILogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func dispatch(ctx context.Context, store ledger.Store, out io.Writer, cmd string, args []string) error {
	switch cmd {
	case "states":
		return cmdStates(ctx, store, out)
	case "counts":
		return cmdCounts(ctx, store, out)
	case "add":
		return cmdAdd(ctx, store, out, args)
	case "pop":
		return cmdPop(ctx, store, out, args)
	case "list", "ls":
		return cmdList(ctx, store, out, args)
	case "import":
		return cmdImport(ctx, store, out, args)
	default:
		printUsage(out)
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func printUsage(out io.Writer) {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Fprint(out, banner)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage: ledger-admin <command> [args]")
	fmt.Fprintln(out)
	yellow.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  states                  List every known state")
	fmt.Fprintln(out, "  counts                  Show waiting emails per state")
	fmt.Fprintln(out, "  add <email> <STATE>     Append an email to a state")
	fmt.Fprintln(out, "  pop <STATE>             Withdraw the oldest email of a state")
	fmt.Fprintln(out, "  list <STATE>            Show a state's queue, oldest first")
	fmt.Fprintln(out, "  import <dir>            Copy an emails_by_state directory into the ledger")
	fmt.Fprintln(out)
	yellow.Fprintln(out, "Environment:")
	fmt.Fprintf(out, "  %-23s Config file path\n", config.EnvConfigPath)
}

func cmdStates(ctx context.Context, store ledger.Store, out io.Writer) error {
	states, err := store.ListStates(ctx)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		fmt.Fprintln(out, "No states.")
		return nil
	}
	for _, s := range states {
		fmt.Fprintln(out, s)
	}
	return nil
}

func cmdCounts(ctx context.Context, store ledger.Store, out io.Writer) error {
	counts, err := store.Counts(ctx)
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		fmt.Fprintln(out, "No states.")
		return nil
	}

	states := make([]ledger.StateCode, 0, len(counts))
	total := 0
	for s, n := range counts {
		states = append(states, s)
		total += n
	}
	ledger.SortStates(states)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  STATE\tCOUNT")
	fmt.Fprintln(w, "  -----\t-----")
	for _, s := range states {
		fmt.Fprintf(w, "  %s\t%d\n", s, counts[s])
	}
	fmt.Fprintf(w, "  TOTAL\t%d\n", total)
	return w.Flush()
}

func cmdAdd(ctx context.Context, store ledger.Store, out io.Writer, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: ledger-admin add <email> <STATE>")
	}
	if err := ledger.ValidateEmail(args[0]); err != nil {
		return err
	}
	state, err := ledger.ParseStateCode(args[1])
	if err != nil {
		return err
	}
	if err := store.Append(ctx, state, args[0]); err != nil {
		return err
	}

	color.New(color.FgGreen).Fprintf(out, "✓ Added %s to %s\n", args[0], state)
	return nil
}

func cmdPop(ctx context.Context, store ledger.Store, out io.Writer, args []string) error {
	state, err := stateArg("pop", args)
	if err != nil {
		return err
	}
	email, ok, err := store.PopFront(ctx, state)
	if err != nil {
		return err
	}
	if !ok {
		color.New(color.FgYellow).Fprintf(out, "No emails for %s.\n", state)
		return nil
	}
	fmt.Fprintln(out, email)
	return nil
}

func cmdList(ctx context.Context, store ledger.Store, out io.Writer, args []string) error {
	state, err := stateArg("list", args)
	if err != nil {
		return err
	}
	entries, err := store.Entries(ctx, state)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		color.New(color.FgYellow).Fprintf(out, "No emails for %s.\n", state)
		return nil
	}
	for i, e := range entries {
		fmt.Fprintf(out, "%4d  %s\n", i+1, e)
	}
	return nil
}

func cmdImport(ctx context.Context, store ledger.Store, out io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: ledger-admin import <dir>")
	}
	if info, err := os.Stat(args[0]); err != nil {
		return err
	} else if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", args[0])
	}

	src, err := ledger.NewFileStore(args[0])
	if err != nil {
		return err
	}
	defer src.Close()

	report, err := ledger.Copy(ctx, store, src)
	printImportReport(out, args[0], report)
	if err != nil {
		return fmt.Errorf("importing %s (stopped after %d email(s), listed above): %w", args[0], report.Total(), err)
	}
	return nil
}

// printImportReport shows what reached the ledger, including after a failed import.
func printImportReport(out io.Writer, dir string, report ledger.CopyReport) {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Fprintf(out, "✓ Imported %d email(s) from %s\n", report.Total(), dir)

	states := make([]ledger.StateCode, 0, len(report.Copied))
	for s := range report.Copied {
		states = append(states, s)
	}
	ledger.SortStates(states)
	for _, s := range states {
		fmt.Fprintf(out, "  %s  %d\n", s, report.Copied[s])
	}

	for _, s := range report.Skipped {
		yellow.Fprintf(out, "  skipped empty ledger %s\n", s)
	}
	for _, r := range report.Rejected {
		yellow.Fprintf(out, "  rejected %s line %d: invalid email %q\n", r.State, r.Position, r.Email)
	}
}

func stateArg(cmd string, args []string) (ledger.StateCode, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("usage: ledger-admin %s <STATE>", cmd)
	}
	return ledger.ParseStateCode(args[0])
}

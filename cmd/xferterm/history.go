package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kandev/xferterm/internal/history"
)

func runHistory(args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet("history", stderr)
	limit := fs.Int("n", 20, "number of transfers to show (0 for all)")

	cfg, err := loadConfig(fs, configPath, args, nil)
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return errors.New("transfer history is disabled")
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.List(context.Background(), *limit)
	if err != nil {
		return err
	}
	printHistory(stdout, entries)
	return nil
}

func printHistory(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No transfers recorded.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tDIRECTION\tRESULT\tDURATION\tFROM PEER\tTO PEER\tCOMMAND")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s %s\n",
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			e.Direction,
			result(e),
			e.Duration().Round(time.Millisecond),
			e.BytesFromPeer,
			e.BytesToPeer,
			e.Program, e.Args)
	}
	_ = tw.Flush()
}

func result(e history.Entry) string {
	if e.EndReason == "exited" {
		return fmt.Sprintf("exit %d", e.ExitCode)
	}
	return e.EndReason
}

func runConfig(args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet("config", stderr)
	cfg, err := loadConfig(fs, configPath, args, nil)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	_, err = stdout.Write(out)
	return err
}

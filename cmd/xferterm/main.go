// Package main is the entry point for xferterm, a terminal that runs
// external X/Y/ZMODEM helpers over its connection.
//
// Usage:
//
//	xferterm [connect] [flags]   open a connection (default)
//	xferterm history [-n N]      list recent transfers
//	xferterm config              print the effective configuration
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := "connect"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "connect":
		err = runConnect(args, stderr)
	case "history":
		err = runHistory(args, stdout, stderr)
	case "config":
		err = runConfig(args, stdout, stderr)
	case "help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		usage(stderr)
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "xferterm: %v\n", err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprint(w, `usage:
  xferterm [connect] [flags]   open a connection (default)
  xferterm history [-n N]      list recent transfers
  xferterm config              print the effective configuration

Run "xferterm <command> -h" for the flags of a command.
`)
}

// SPDX-License-Identifier: GPL-3.0-or-later

// Command sctpscan scans hosts for open SCTP (or TCP) ports.
//
// Usage:
//
//	sctpscan -i 10.0.0.0/24 -p 2905-2910 [flags]
//	sctpscan probe 10.0.0.1 2905
//
// Run `sctpscan --help` for the full list of flags. Every flag can also
// be set using a SCTPSCAN_ environment variable (e.g., SCTPSCAN_PORTS)
// or a YAML configuration file passed using --config.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the command line and returns the process exit code.
func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(os.Stdout, os.Stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "sctpscan: %s\n", err)
		return 1
	}
	return 0
}

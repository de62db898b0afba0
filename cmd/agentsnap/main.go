// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// agentsnap stores and inspects content-addressed snapshots of agent
// state.
package main

import (
	"fmt"
	"os"

	"github.com/bureau-foundation/agentstate/cmd/agentsnap/commands"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own output (like last on an empty
		// store) return an ExitError with the desired code.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return commands.Root().Execute(os.Args[1:])
}

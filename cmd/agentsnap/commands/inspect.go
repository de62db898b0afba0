// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"

	"github.com/bureau-foundation/agentstate/cmd/agentsnap/cli"
	"github.com/bureau-foundation/agentstate/lib/codec"
	"github.com/bureau-foundation/agentstate/lib/snapshot"
)

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:    "inspect",
		Summary: "Print an export bundle in CBOR diagnostic notation",
		Description: `Print an export bundle in CBOR diagnostic notation (RFC 8949 §8)
after checking it decodes as a bundle. No store is opened.`,
		Usage: "agentsnap inspect FILE",
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "agentsnap inspect FILE"); err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fileError(err)
			}
			if _, err := snapshot.DecodeBundle(data); err != nil {
				return cli.Validation("%s: %w", args[0], err)
			}

			notation, err := codec.Diagnose(data)
			if err != nil {
				return cli.Validation("%s: %w", args[0], err)
			}
			fmt.Fprintln(os.Stdout, notation)
			return nil
		},
	}
}

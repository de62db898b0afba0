// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/agentstate/cmd/agentsnap/cli"
	"github.com/bureau-foundation/agentstate/lib/agentstate"
)

type putParams struct {
	StoreParams
	Parent string `flag:"parent" desc:"ID of the snapshot this state derives from"`
	Ledger string `flag:"ledger" desc:"JSON file of tool calls to record with the snapshot"`
}

func putCommand() *cli.Command {
	var params putParams
	return &cli.Command{
		Name:    "put",
		Summary: "Store a state file as a new snapshot",
		Description: `Store a JSON or JSONC state file as a new snapshot and print its ID.

The state is canonicalized before hashing, so files that differ only
in key order, whitespace, or comments share one blob. Use "-" to read
the state from stdin.

The parent is recorded as given; it is not required to exist.`,
		Usage: "agentsnap put [flags] STATE.json",
		Examples: []cli.Example{
			{
				Description: "Store a root snapshot",
				Command:     "agentsnap put state.json",
			},
			{
				Description: "Store a child of the latest snapshot with its tool calls",
				Command:     "agentsnap put --parent $(agentsnap last) --ledger calls.json state.json",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("put", &params)
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "agentsnap put [flags] STATE.json"); err != nil {
				return err
			}

			document, err := readState(args[0])
			if err != nil {
				return err
			}
			if params.Ledger != "" {
				entries, err := agentstate.ReadLedgerFile(params.Ledger)
				if err != nil {
					return fileError(err)
				}
				for _, entry := range entries {
					document.Record(entry)
				}
			}

			ctx := context.Background()
			store, err := params.open(ctx, "put")
			if err != nil {
				return err
			}
			defer store.Close()

			id, err := store.service.Snapshot(ctx, document, params.Parent)
			if err != nil {
				return storeError(err, "storing %s", args[0])
			}
			fmt.Fprintln(os.Stdout, id)
			return nil
		},
	}
}

// readState parses a state file, or stdin for "-".
func readState(path string) (*agentstate.Document, error) {
	if path != "-" {
		document, err := agentstate.ReadFile(path)
		if err != nil {
			return nil, fileError(err)
		}
		return document, nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, cli.Internal("reading stdin: %w", err)
	}
	document, err := agentstate.Parse(data)
	if err != nil {
		return nil, cli.Validation("stdin: %w", err)
	}
	return document, nil
}

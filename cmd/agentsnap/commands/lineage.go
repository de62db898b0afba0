// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/agentstate/cmd/agentsnap/cli"
)

type lineageParams struct {
	StoreParams
	cli.JSONOutput
	Limit int `flag:"limit" desc:"maximum number of snapshots to print (0 for no limit)"`
}

func lineageCommand() *cli.Command {
	var params lineageParams
	return &cli.Command{
		Name:    "lineage",
		Summary: "Walk a snapshot's parent chain",
		Description: `Print a snapshot and its ancestors, newest first.

The walk stops at a root, at a parent ID that is not in the store, or
when a parent link leads back to a snapshot already printed.`,
		Usage: "agentsnap lineage [flags] ID",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("lineage", &params)
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "agentsnap lineage [flags] ID"); err != nil {
				return err
			}
			if params.Limit < 0 {
				return cli.Validation("--limit must not be negative")
			}
			id := args[0]

			ctx := context.Background()
			store, err := params.open(ctx, "lineage")
			if err != nil {
				return err
			}
			defer store.Close()

			lineage, err := store.service.Lineage(ctx, id, params.Limit)
			if err != nil {
				return storeError(err, "walking lineage of %s", id)
			}

			if done, err := params.EmitJSON(newLineageJSON(lineage)); done {
				return err
			}

			writer := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, record := range lineage.Chain {
				fmt.Fprintf(writer, "%s\t%s\n", record.ID, formatTime(record.CreatedAt))
			}
			if err := writer.Flush(); err != nil {
				return err
			}

			switch {
			case lineage.Dangling != "":
				fmt.Fprintf(os.Stderr, "parent %s is not in the store\n", lineage.Dangling)
			case lineage.Cycle:
				fmt.Fprintln(os.Stderr, "parent links form a cycle")
			case lineage.Truncated:
				fmt.Fprintf(os.Stderr, "stopped after %d snapshots\n", len(lineage.Chain))
			}
			return nil
		},
	}
}

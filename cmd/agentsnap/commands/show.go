// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/agentstate/cmd/agentsnap/cli"
)

type showParams struct {
	StoreParams
	cli.JSONOutput
}

func showCommand() *cli.Command {
	var params showParams
	return &cli.Command{
		Name:    "show",
		Summary: "Show a snapshot's metadata, ledger, and children",
		Usage:   "agentsnap show [flags] ID",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("show", &params)
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "agentsnap show [flags] ID"); err != nil {
				return err
			}
			id := args[0]

			ctx := context.Background()
			store, err := params.open(ctx, "show")
			if err != nil {
				return err
			}
			defer store.Close()

			detail, err := store.service.Show(ctx, id)
			if err != nil {
				return storeError(err, "showing snapshot %s", id)
			}

			if params.OutputJSON {
				result, err := newDetailJSON(detail)
				if err != nil {
					return cli.Internal("encoding snapshot %s: %w", id, err)
				}
				_, err = params.EmitJSON(result)
				return err
			}

			writer := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(writer, "id:\t%s\n", detail.Record.ID)
			fmt.Fprintf(writer, "parent:\t%s\n", orDash(detail.Record.ParentID))
			fmt.Fprintf(writer, "state hash:\t%s\n", detail.Record.StateHash)
			fmt.Fprintf(writer, "blob hash:\t%s\n", detail.Record.BlobHash)
			fmt.Fprintf(writer, "created:\t%s\n", formatTime(detail.Record.CreatedAt))
			fmt.Fprintf(writer, "children:\t%s\n", orDash(strings.Join(detail.Children, ", ")))
			fmt.Fprintf(writer, "tool calls:\t%d\n", len(detail.Ledger))
			if err := writer.Flush(); err != nil {
				return err
			}

			if len(detail.Ledger) > 0 {
				fmt.Fprintln(os.Stdout)
				return writeLedgerTable(detail.Ledger)
			}
			return nil
		},
	}
}

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
	"github.com/bureau-foundation/agentstate/lib/agentstate"
	"github.com/bureau-foundation/agentstate/lib/snapindex"
)

type ledgerParams struct {
	StoreParams
	cli.JSONOutput
}

func ledgerCommand() *cli.Command {
	var params ledgerParams
	return &cli.Command{
		Name:    "ledger",
		Summary: "Print the tool calls recorded with a snapshot",
		Description: `Print the tool calls recorded with a snapshot, in call order.

The --json form is the same format "agentsnap put --ledger" reads, so a
ledger can be carried from one snapshot to another.`,
		Usage: "agentsnap ledger [flags] ID",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("ledger", &params)
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "agentsnap ledger [flags] ID"); err != nil {
				return err
			}
			id := args[0]

			ctx := context.Background()
			store, err := params.open(ctx, "ledger")
			if err != nil {
				return err
			}
			defer store.Close()

			detail, err := store.service.Show(ctx, id)
			if err != nil {
				return storeError(err, "reading ledger of %s", id)
			}

			if params.OutputJSON {
				data, err := agentstate.MarshalLedger(detail.Ledger)
				if err != nil {
					return cli.Internal("%w", err)
				}
				_, err = os.Stdout.Write(append(data, '\n'))
				return err
			}
			if len(detail.Ledger) == 0 {
				fmt.Fprintln(os.Stderr, "no tool calls recorded")
				return nil
			}
			return writeLedgerTable(detail.Ledger)
		},
	}
}

func writeLedgerTable(entries []snapindex.LedgerEntry) error {
	writer := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(writer, "SEQ\tNAME\tSTATUS\tLATENCY\tIN\tOUT\tURL\tAT")
	for _, entry := range entries {
		fmt.Fprintf(writer, "%d\t%s\t%s\t%dms\t%s\t%s\t%s\t%s\n",
			entry.Seq,
			entry.Name,
			orDash(entry.Status),
			entry.LatencyMS,
			shortHash(entry.InHash),
			shortHash(entry.OutHash),
			orDash(entry.URL),
			formatTime(entry.CreatedAt),
		)
	}
	return writer.Flush()
}

// shortHash abbreviates a digest for tables.
func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return orDash(hash)
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/agentstate/cmd/agentsnap/cli"
	"github.com/bureau-foundation/agentstate/lib/snapindex"
)

type listParams struct {
	StoreParams
	cli.JSONOutput
	Limit  int    `flag:"limit" desc:"maximum number of snapshots (0 for all)" default:"20"`
	Before string `flag:"before" desc:"only snapshots created before this RFC 3339 time"`
}

func listCommand() *cli.Command {
	var params listParams
	return &cli.Command{
		Name:    "list",
		Summary: "List snapshots, newest first",
		Usage:   "agentsnap list [flags]",
		Examples: []cli.Example{
			{
				Description: "Snapshots taken before midnight UTC",
				Command:     "agentsnap list --before 2026-10-16T00:00:00Z",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 0, "agentsnap list [flags]"); err != nil {
				return err
			}
			if params.Limit < 0 {
				return cli.Validation("--limit must not be negative")
			}

			filter := snapindex.Filter{Limit: params.Limit}
			if params.Before != "" {
				before, err := time.Parse(time.RFC3339Nano, params.Before)
				if err != nil {
					return cli.Validation("--before: %w", err)
				}
				filter.Before = before
			}

			ctx := context.Background()
			store, err := params.open(ctx, "list")
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.service.List(ctx, filter)
			if err != nil {
				return storeError(err, "listing snapshots")
			}

			if done, err := params.EmitJSON(newRecordsJSON(records)); done {
				return err
			}

			if len(records) == 0 {
				fmt.Fprintln(os.Stderr, "no snapshots")
				return nil
			}
			writer := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(writer, "ID\tPARENT\tSTATE\tCREATED")
			for _, record := range records {
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
					record.ID, orDash(record.ParentID), shortHash(record.StateHash), formatTime(record.CreatedAt))
			}
			return writer.Flush()
		},
	}
}

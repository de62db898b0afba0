// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/agentstate/cmd/agentsnap/cli"
)

type lastParams struct {
	StoreParams
}

func lastCommand() *cli.Command {
	var params lastParams
	return &cli.Command{
		Name:    "last",
		Summary: "Print the ID of the most recent snapshot",
		Description: `Print the ID of the most recently created snapshot.

Exits with status 1 and prints nothing when the store is empty.`,
		Usage: "agentsnap last [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("last", &params)
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 0, "agentsnap last [flags]"); err != nil {
				return err
			}

			ctx := context.Background()
			store, err := params.open(ctx, "last")
			if err != nil {
				return err
			}
			defer store.Close()

			id, found, err := store.service.LastSnapshotID(ctx)
			if err != nil {
				return storeError(err, "finding latest snapshot")
			}
			if !found {
				return &cli.ExitError{Code: 1}
			}
			fmt.Fprintln(os.Stdout, id)
			return nil
		},
	}
}

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

type importParams struct {
	StoreParams
}

func importCommand() *cli.Command {
	var params importParams
	return &cli.Command{
		Name:    "import",
		Summary: "Load a snapshot from an export bundle",
		Description: `Load a snapshot written by "agentsnap export" and print its ID.

The snapshot keeps its ID, parent, timestamps, and ledger. Importing an
ID that is already in the store fails. The bundle's digest algorithm
must match the store's.`,
		Usage: "agentsnap import [flags] FILE",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("import", &params)
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "agentsnap import [flags] FILE"); err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fileError(err)
			}

			ctx := context.Background()
			store, err := params.open(ctx, "import")
			if err != nil {
				return err
			}
			defer store.Close()

			id, err := store.service.Import(ctx, data)
			if err != nil {
				return storeError(err, "importing %s", args[0])
			}
			fmt.Fprintln(os.Stdout, id)
			return nil
		},
	}
}

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

type orphansParams struct {
	StoreParams
	cli.JSONOutput
}

func orphansCommand() *cli.Command {
	var params orphansParams
	return &cli.Command{
		Name:    "orphans",
		Summary: "List blobs no snapshot references",
		Description: `List the digests of blobs that no snapshot row references.

A blob is left behind when a write stores the blob but the index insert
fails. Orphans are harmless and are reused if the same state is stored
again.`,
		Usage: "agentsnap orphans [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("orphans", &params)
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 0, "agentsnap orphans [flags]"); err != nil {
				return err
			}

			ctx := context.Background()
			store, err := params.open(ctx, "orphans")
			if err != nil {
				return err
			}
			defer store.Close()

			orphans, err := store.service.Orphans(ctx)
			if err != nil {
				return storeError(err, "scanning for orphans")
			}

			if done, err := params.EmitJSON(orphans); done {
				return err
			}
			for _, sum := range orphans {
				fmt.Fprintln(os.Stdout, sum)
			}
			return nil
		},
	}
}

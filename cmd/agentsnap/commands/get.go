// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/agentstate/cmd/agentsnap/cli"
)

type getParams struct {
	StoreParams
	Raw bool `flag:"raw" desc:"print the stored bytes exactly, without decoding"`
}

func getCommand() *cli.Command {
	var params getParams
	return &cli.Command{
		Name:    "get",
		Summary: "Print a snapshot's state",
		Description: `Print the state stored for a snapshot as indented JSON.

With --raw, the stored bytes are written unchanged: the canonical
serialization whose digest names the blob.`,
		Usage: "agentsnap get [flags] ID",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("get", &params)
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "agentsnap get [flags] ID"); err != nil {
				return err
			}
			id := args[0]

			ctx := context.Background()
			store, err := params.open(ctx, "get")
			if err != nil {
				return err
			}
			defer store.Close()

			if params.Raw {
				data, err := store.service.GetRaw(ctx, id)
				if err != nil {
					return storeError(err, "reading snapshot %s", id)
				}
				_, err = os.Stdout.Write(append(data, '\n'))
				return err
			}

			state, err := store.service.Get(ctx, id)
			if err != nil {
				return storeError(err, "reading snapshot %s", id)
			}
			return cli.WriteJSON(state)
		},
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/agentstate/cmd/agentsnap/cli"
)

type exportParams struct {
	StoreParams
	Output string `flag:"output,o" desc:"bundle file to write (default: <exports dir>/<ID>.cbor)"`
}

func exportCommand() *cli.Command {
	var params exportParams
	return &cli.Command{
		Name:    "export",
		Summary: "Write a snapshot to a portable CBOR bundle",
		Description: `Write one snapshot (its row, tool ledger, and state) to a CBOR bundle
that "agentsnap import" can load into another store.

Without --output the bundle goes to paths.exports from the config file,
which defaults to <root>/exports. The written path is printed.`,
		Usage: "agentsnap export [flags] ID",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("export", &params)
		},
		Run: func(args []string) error {
			if err := requireArgs(args, 1, "agentsnap export [flags] ID"); err != nil {
				return err
			}
			id := args[0]

			ctx := context.Background()
			store, err := params.open(ctx, "export")
			if err != nil {
				return err
			}
			defer store.Close()

			data, err := store.service.Export(ctx, id)
			if err != nil {
				return storeError(err, "exporting snapshot %s", id)
			}

			output := params.Output
			if output == "" {
				if err := store.config.EnsurePaths(); err != nil {
					return cli.Internal("%w", err)
				}
				output = filepath.Join(store.config.ExportsDir(), id+".cbor")
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return cli.Internal("writing bundle: %w", err)
			}

			store.logger.Info("snapshot exported", "snapshot_id", id, "path", output, "bytes", len(data))
			fmt.Fprintln(os.Stdout, output)
			return nil
		},
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the agentsnap command tree. Every store
// command accepts --root and --config; see [StoreParams].
package commands

import "github.com/bureau-foundation/agentstate/cmd/agentsnap/cli"

// Root builds and returns the complete agentsnap command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "agentsnap",
		Description: `agentsnap: content-addressed snapshots of agent state.

Each snapshot stores a JSON state once per distinct content, records the
snapshot it was derived from, and keeps the ordered tool calls made
since. Snapshots live under a store root: an SQLite index plus a
directory of gzip blobs named by digest.`,
		Subcommands: []*cli.Command{
			putCommand(),
			getCommand(),
			lastCommand(),
			showCommand(),
			ledgerCommand(),
			lineageCommand(),
			listCommand(),
			exportCommand(),
			importCommand(),
			inspectCommand(),
			orphansCommand(),
			versionCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Store a state file and print its snapshot ID",
				Command:     "agentsnap put --root ./snapshots state.json",
			},
			{
				Description: "Print the state of the latest snapshot",
				Command:     "agentsnap get $(agentsnap last)",
			},
			{
				Description: "Walk back through the last ten snapshots",
				Command:     "agentsnap lineage --limit 10 $(agentsnap last)",
			},
		},
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package snapindex is the SQLite metadata index for agent state
// snapshots.
//
// Two tables live in <root>/index.sqlite:
//
//   - snapshots: one row per snapshot with its optional parent, the
//     digest of the serialized state, the digest naming its blob, and
//     the creation time in Unix nanoseconds.
//   - tool_ledger: the tool invocations recorded with each snapshot,
//     keyed by (snapshot_id, seq) so the original order is preserved.
//
// A snapshot row and its ledger rows are written in one IMMEDIATE
// transaction and are never updated or deleted afterwards. Parent
// links are stored verbatim and are not foreign keys: a parent may
// name a snapshot that was never indexed here.
//
// All access goes through a long-lived [sqlitepool.Pool]. Writers
// queue on the pool's writer gate; readers run concurrently under WAL.
package snapindex

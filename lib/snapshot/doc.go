// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package snapshot persists point-in-time snapshots of agent state so
// a run can be replayed, audited, or rolled back.
//
// A [Service] owns one store root. Each call to [Service.Snapshot]
// serializes a [State], writes the bytes to the content-addressed blob
// store (lib/blobstore), and records a row plus the state's tool
// ledger in the metadata index (lib/snapindex). Snapshots are
// immutable; every snapshot gets a fresh UUIDv7 ID and may name the
// snapshot it was derived from as its parent.
//
// # Consistency
//
// The blob write and the index insert are separate durable steps. The
// blob always lands first, so a committed row never names a missing
// blob. A failure between the two leaves an unreferenced blob, which is
// harmless (content-addressed, never read through a row) and is listed
// by [Service.Orphans].
//
// Parent links are stored as given. [Service.Lineage] tolerates
// parents that were never indexed and reports where the chain breaks.
//
// # Portability
//
// [Service.Export] packs one snapshot (row, ledger, state bytes) into
// a deterministic CBOR bundle; [Service.Import] restores it into
// another store under the same ID.
package snapshot

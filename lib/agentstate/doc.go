// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package agentstate provides a JSON document form of agent state
// that can be handed to the snapshot service.
//
// A [Document] carries an arbitrary JSON value and the ordered tool
// ledger accumulated alongside it. Its serialization is canonical
// (sorted object keys, compact, numbers kept as written), so
// consecutive steps that leave the state unchanged produce identical
// bytes and deduplicate in the blob store.
//
// State and ledger files may be plain JSON or JSONC.
package agentstate

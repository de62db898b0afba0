// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the module's standard CBOR encoding
// configuration.
//
// The snapshot store uses two serialization formats with a clear
// boundary:
//
//   - JSON for agent state. Blobs hold the state's canonical JSON text
//     and CLI --json output is JSON.
//   - CBOR for snapshot export bundles: a self-contained binary record
//     of one snapshot (index row, ledger, raw state bytes) handed to
//     auditors or replayed into another store.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. The
// same bundle always produces identical bytes, so exports can
// themselves be hashed and compared.
//
//	data, err := codec.Marshal(bundle)
//	err = codec.Unmarshal(data, &bundle)
//
// Struct types use `cbor` tags when they are only ever CBOR, and
// `json` tags when they are shared with JSON output (fxamacker/cbor
// falls back to json tags).
package codec

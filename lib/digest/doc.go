// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest provides the content digest functions used to address
// snapshot blobs.
//
// A digest is always rendered as a lowercase hex string. That string is
// the blob's identity: it names the file on disk and is stored verbatim
// in the snapshot index. The algorithm is fixed per store root; mixing
// algorithms in one root would produce two addresses for the same
// content and defeat deduplication.
//
// Two algorithms are available:
//
//   - [SHA256] -- the default. 64 hex characters. Compatible with
//     stores written by earlier tooling that hashed with SHA-256.
//   - [BLAKE3] -- 32-byte BLAKE3 (zeebo/blake3), also 64 hex characters.
//     Faster on large states.
//
// Digests are computed over the exact bytes given. There is no text
// decoding or normalization step: two byte sequences that differ in
// any way produce different digests.
//
// This package has no dependencies on other packages in this module.
package digest

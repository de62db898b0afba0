// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package blobstore implements content-addressed, gzip-compressed
// storage for serialized agent state.
//
// A blob is addressed by the digest of its uncompressed bytes
// (lib/digest). Each unique digest is stored exactly once:
//
//	<root>/blobs/<digest>.json.gz
//
// Writing content whose digest already exists is a cheap no-op (one
// stat). Consecutive agent snapshots frequently serialize identically
// (only the tool ledger moved), and those collapse onto one file with
// no reference counting.
//
// New blobs are compressed into <root>/blobs/tmp, fsynced, and renamed
// into place. Readers therefore never see a partially written blob, and
// two writers racing on the same content both publish an identical file
// under the same name.
//
// Blobs are immutable and never deleted by this package. Read does not
// re-hash the decompressed bytes; integrity verification is the
// caller's concern.
package blobstore

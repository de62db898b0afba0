// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches (via errors.Is) every error reporting an
	// unknown snapshot ID or a missing blob.
	ErrNotFound = errors.New("snapshot: not found")

	// ErrSerialization is returned (wrapped) when a state cannot be
	// serialized, or when stored bytes do not decode as JSON.
	ErrSerialization = errors.New("snapshot: serialization failed")

	// ErrInvalidBundle is returned (wrapped) by Import for data that is
	// not a usable export bundle.
	ErrInvalidBundle = errors.New("snapshot: invalid bundle")

	// ErrAlgorithmMismatch is returned (wrapped) when a store root is
	// opened with a digest algorithm other than the one it was created
	// with.
	ErrAlgorithmMismatch = errors.New("snapshot: digest algorithm mismatch")
)

// NotFoundError reports a snapshot that could not be resolved. It
// matches ErrNotFound and unwraps to the underlying index or blob
// store error.
type NotFoundError struct {
	// ID is the snapshot that was requested.
	ID string

	// BlobHash is set when the snapshot row exists but its blob does
	// not.
	BlobHash string

	Err error
}

func (e *NotFoundError) Error() string {
	if e.BlobHash != "" {
		return fmt.Sprintf("snapshot: %s: blob %s not found", e.ID, e.BlobHash)
	}
	return fmt.Sprintf("snapshot: %s not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func (e *NotFoundError) Unwrap() error { return e.Err }

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for the snapshot
// store packages.
//
// [BlobFiles] and [RemoveBlob] inspect and damage a store root's blob
// directory directly, for tests that assert on deduplication or on
// behavior when a blob has gone missing.
//
// [RequireClosed] and [RequireWait] encapsulate the timeout safety
// valve pattern (select with time.After fallback) so that concurrency
// tests fail instead of hanging when a writer deadlocks. These are the
// only place in the test suite where real wall-clock timeouts are
// used.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no dependencies on the rest of the module.
package testutil

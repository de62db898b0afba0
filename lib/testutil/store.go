// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// BlobFiles returns the names of the blob files under root/blobs,
// sorted. Staging files and directories are excluded.
func BlobFiles(t *testing.T, root string) []string {
	t.Helper()

	entries, err := os.ReadDir(filepath.Join(root, "blobs"))
	if err != nil {
		t.Fatalf("reading blob directory: %v", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json.gz") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names
}

// RemoveBlob deletes the blob file for sum under root, failing the
// test if it does not exist.
func RemoveBlob(t *testing.T, root, sum string) {
	t.Helper()

	if err := os.Remove(filepath.Join(root, "blobs", sum+".json.gz")); err != nil {
		t.Fatalf("removing blob %s: %v", sum, err)
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/bureau-foundation/agentstate/lib/digest"
)

// Directory names within the store root.
const (
	blobDir = "blobs"
	tmpDir  = "tmp"
)

// blobExtension is the filename suffix of every stored blob. The
// payload is JSON text, gzip-compressed.
const blobExtension = ".json.gz"

// ErrNotFound is returned (wrapped) by Read when no blob exists for
// the requested digest.
var ErrNotFound = errors.New("blobstore: blob not found")

// Config holds the parameters for opening a Store.
type Config struct {
	// Root is the snapshot store root. Blobs live under Root/blobs.
	// Created if it does not exist.
	Root string

	// Algorithm is the digest function addressing blobs. Zero value
	// selects digest.Default.
	Algorithm digest.Algorithm

	// Level is the gzip compression level, from gzip.StatelessCompression
	// (-3) to gzip.BestCompression (9). Zero selects
	// gzip.DefaultCompression.
	Level int

	// NoCompression writes level-0 (stored) gzip frames, overriding
	// Level.
	NoCompression bool

	// Logger receives blob write events. If nil, a no-op logger is used.
	Logger *slog.Logger
}

// Store manages the blob directory.
//
// Store is safe for concurrent use. Concurrent writes of the same
// content publish the same bytes under the same name.
type Store struct {
	directory string
	staging   string
	algorithm digest.Algorithm
	level     int
	logger    *slog.Logger
}

// New creates a Store rooted at cfg.Root, creating the blob and
// staging directories if needed.
func New(cfg Config) (*Store, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("blobstore: Root is required")
	}

	algorithm := cfg.Algorithm
	if algorithm.IsZero() {
		algorithm = digest.Default
	}

	level := cfg.Level
	switch {
	case cfg.NoCompression:
		level = gzip.NoCompression
	case level == 0:
		level = gzip.DefaultCompression
	case level < gzip.StatelessCompression || level > gzip.BestCompression:
		return nil, fmt.Errorf("blobstore: gzip level %d out of range [%d, %d]",
			level, gzip.StatelessCompression, gzip.BestCompression)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	directory := filepath.Join(cfg.Root, blobDir)
	staging := filepath.Join(directory, tmpDir)
	for _, dir := range []string{cfg.Root, directory, staging} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("blobstore: creating directory %s: %w", dir, err)
		}
	}

	return &Store{
		directory: directory,
		staging:   staging,
		algorithm: algorithm,
		level:     level,
		logger:    logger,
	}, nil
}

// Algorithm returns the digest function addressing this store.
func (s *Store) Algorithm() digest.Algorithm { return s.algorithm }

// Directory returns the directory holding blob files.
func (s *Store) Directory() string { return s.directory }

// Path returns the file path for digest. The digest is not validated;
// use Read or Exists for untrusted input.
func (s *Store) Path(sum string) string {
	return filepath.Join(s.directory, sum+blobExtension)
}

// Write stores payload if its digest is not already present and
// returns the digest. The digest is computed over payload exactly as
// given. At most one new file is created.
func (s *Store) Write(payload []byte) (string, error) {
	sum := s.algorithm.Sum(payload)
	finalPath := s.Path(sum)

	_, err := os.Stat(finalPath)
	if err == nil {
		return sum, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("blobstore: checking %s: %w", sum, err)
	}

	tmpFile, err := os.CreateTemp(s.staging, "blob-*"+blobExtension)
	if err != nil {
		return "", fmt.Errorf("blobstore: creating temp blob: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	writer, err := gzip.NewWriterLevel(tmpFile, s.level)
	if err != nil {
		return "", fmt.Errorf("blobstore: gzip writer: %w", err)
	}
	if _, err := writer.Write(payload); err != nil {
		return "", fmt.Errorf("blobstore: compressing %s: %w", sum, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("blobstore: finishing gzip stream for %s: %w", sum, err)
	}
	if err := tmpFile.Sync(); err != nil {
		return "", fmt.Errorf("blobstore: syncing %s: %w", sum, err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("blobstore: closing temp blob: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("blobstore: publishing %s: %w", sum, err)
	}
	success = true

	s.logger.Debug("blob written",
		"blob_hash", sum,
		"size", len(payload),
	)
	return sum, nil
}

// Read returns the uncompressed payload stored under sum. Returns an
// error wrapping ErrNotFound if no such blob exists.
func (s *Store) Read(sum string) ([]byte, error) {
	if err := s.algorithm.Validate(sum); err != nil {
		return nil, fmt.Errorf("blobstore: read: %w", err)
	}

	file, err := os.Open(s.Path(sum))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, sum)
		}
		return nil, fmt.Errorf("blobstore: opening %s: %w", sum, err)
	}
	defer file.Close()

	reader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("blobstore: reading gzip header of %s: %w", sum, err)
	}
	defer reader.Close()

	payload, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("blobstore: decompressing %s: %w", sum, err)
	}
	return payload, nil
}

// Exists reports whether a blob is stored under sum.
func (s *Store) Exists(sum string) (bool, error) {
	if err := s.algorithm.Validate(sum); err != nil {
		return false, fmt.Errorf("blobstore: exists: %w", err)
	}

	_, err := os.Stat(s.Path(sum))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("blobstore: checking %s: %w", sum, err)
}

// List returns the digests of every stored blob in lexical order.
// Files in the blob directory that are not well-formed blob names
// (staging leftovers, editor backups) are skipped.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return nil, fmt.Errorf("blobstore: listing %s: %w", s.directory, err)
	}

	var sums []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		sum, ok := strings.CutSuffix(entry.Name(), blobExtension)
		if !ok || s.algorithm.Validate(sum) != nil {
			continue
		}
		sums = append(sums, sum)
	}
	sort.Strings(sums)
	return sums, nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/bureau-foundation/agentstate/lib/codec"
	"github.com/bureau-foundation/agentstate/lib/digest"
	"github.com/bureau-foundation/agentstate/lib/snapindex"
)

// bundleFormat is the Bundle.Format written by Export.
const bundleFormat = 1

// Bundle is the portable form of one snapshot: its metadata, its tool
// ledger, and the serialized state. Export encodes it as deterministic
// CBOR.
type Bundle struct {
	Format    int                 `cbor:"format"`
	Algorithm string              `cbor:"algorithm"`
	Snapshot  BundleRecord        `cbor:"snapshot"`
	Ledger    []BundleLedgerEntry `cbor:"ledger"`
	State     []byte              `cbor:"state"`
}

// BundleRecord mirrors snapindex.Record.
type BundleRecord struct {
	ID        string    `cbor:"id"`
	ParentID  string    `cbor:"parent_id,omitempty"`
	StateHash string    `cbor:"state_hash"`
	BlobHash  string    `cbor:"blob_hash"`
	CreatedAt time.Time `cbor:"created_at"`
}

// BundleLedgerEntry mirrors snapindex.LedgerEntry.
type BundleLedgerEntry struct {
	Name      string    `cbor:"name"`
	InHash    string    `cbor:"in_hash"`
	OutHash   string    `cbor:"out_hash"`
	Status    string    `cbor:"status"`
	LatencyMS int64     `cbor:"latency_ms"`
	URL       string    `cbor:"url,omitempty"`
	CreatedAt time.Time `cbor:"created_at"`
}

// Export returns the CBOR bundle for snapshot id. Exporting the same
// snapshot twice yields identical bytes.
func (s *Service) Export(ctx context.Context, id string) ([]byte, error) {
	record, err := s.index.Record(ctx, id)
	if err != nil {
		return nil, notFound(id, "", err)
	}
	ledger, err := s.index.Ledger(ctx, id)
	if err != nil {
		return nil, notFound(id, "", err)
	}
	state, err := s.blobs.Read(record.BlobHash)
	if err != nil {
		return nil, notFound(id, record.BlobHash, err)
	}

	bundle := Bundle{
		Format:    bundleFormat,
		Algorithm: s.blobs.Algorithm().Name(),
		Snapshot: BundleRecord{
			ID:        record.ID,
			ParentID:  record.ParentID,
			StateHash: record.StateHash,
			BlobHash:  record.BlobHash,
			CreatedAt: record.CreatedAt,
		},
		Ledger: make([]BundleLedgerEntry, len(ledger)),
		State:  state,
	}
	for i, entry := range ledger {
		bundle.Ledger[i] = BundleLedgerEntry{
			Name:      entry.Name,
			InHash:    entry.InHash,
			OutHash:   entry.OutHash,
			Status:    entry.Status,
			LatencyMS: entry.LatencyMS,
			URL:       entry.URL,
			CreatedAt: entry.CreatedAt,
		}
	}

	data, err := codec.Marshal(bundle)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encoding bundle for %s: %w", id, err)
	}
	return data, nil
}

// DecodeBundle parses and checks an export bundle without importing
// it. The state bytes must hash to the recorded state hash.
func DecodeBundle(data []byte) (*Bundle, error) {
	var bundle Bundle
	if err := codec.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBundle, err)
	}
	if bundle.Format != bundleFormat {
		return nil, fmt.Errorf("%w: unsupported format %d", ErrInvalidBundle, bundle.Format)
	}
	if bundle.Snapshot.ID == "" {
		return nil, fmt.Errorf("%w: snapshot ID is empty", ErrInvalidBundle)
	}

	algorithm, err := digest.Parse(bundle.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBundle, err)
	}
	if sum := algorithm.Sum(bundle.State); sum != bundle.Snapshot.StateHash {
		return nil, fmt.Errorf("%w: state of %s hashes to %s, bundle records %s",
			ErrInvalidBundle, bundle.Snapshot.ID, sum, bundle.Snapshot.StateHash)
	}
	if err := snapindex.ValidateTimes(bundle.indexRows(bundle.Snapshot.BlobHash)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBundle, err)
	}
	return &bundle, nil
}

// indexRows converts the bundle's metadata into the rows Import
// inserts, with the blob stored under blobHash.
func (b *Bundle) indexRows(blobHash string) (snapindex.Record, []snapindex.LedgerEntry) {
	record := snapindex.Record{
		ID:        b.Snapshot.ID,
		ParentID:  b.Snapshot.ParentID,
		StateHash: b.Snapshot.StateHash,
		BlobHash:  blobHash,
		CreatedAt: b.Snapshot.CreatedAt,
	}
	entries := make([]snapindex.LedgerEntry, len(b.Ledger))
	for i, entry := range b.Ledger {
		entries[i] = snapindex.LedgerEntry{
			Name:      entry.Name,
			InHash:    entry.InHash,
			OutHash:   entry.OutHash,
			Status:    entry.Status,
			LatencyMS: entry.LatencyMS,
			URL:       entry.URL,
			CreatedAt: entry.CreatedAt,
		}
	}
	return record, entries
}

// Import stores the snapshot carried by an export bundle under its
// original ID, parent, timestamp, and ledger. The bundle's digest
// algorithm must match this store's. Importing an ID that already
// exists fails with snapindex.ErrDuplicate. A bundle rejected by
// DecodeBundle leaves nothing behind in the blob store.
func (s *Service) Import(ctx context.Context, data []byte) (string, error) {
	bundle, err := DecodeBundle(data)
	if err != nil {
		return "", err
	}
	if bundle.Algorithm != s.blobs.Algorithm().Name() {
		return "", fmt.Errorf("%w: bundle uses %s, store uses %s",
			ErrInvalidBundle, bundle.Algorithm, s.blobs.Algorithm().Name())
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	blobHash, err := s.blobs.Write(bundle.State)
	if err != nil {
		return "", fmt.Errorf("snapshot: storing imported state: %w", err)
	}

	record, entries := bundle.indexRows(blobHash)
	if err := s.index.Insert(ctx, record, entries); err != nil {
		return "", fmt.Errorf("snapshot: importing %s: %w", record.ID, err)
	}

	s.logger.Info("snapshot imported",
		"snapshot_id", record.ID,
		"parent_snapshot_id", record.ParentID,
		"blob_hash", blobHash,
		"ledger_entries", len(entries),
	)
	return record.ID, nil
}

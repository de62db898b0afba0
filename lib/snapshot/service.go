// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/bureau-foundation/agentstate/lib/blobstore"
	"github.com/bureau-foundation/agentstate/lib/clock"
	"github.com/bureau-foundation/agentstate/lib/digest"
	"github.com/bureau-foundation/agentstate/lib/snapindex"
)

// IndexFile is the name of the metadata database within a store root.
const IndexFile = "index.sqlite"

// State is an agent state that can be snapshotted.
type State interface {
	// Serialize returns the canonical serialized form of the state.
	// Equal states must produce equal bytes for deduplication to
	// apply. The bytes must be JSON for Get to decode them.
	Serialize() ([]byte, error)

	// ToolLedger returns the tool invocations to record with the
	// snapshot, in order.
	ToolLedger() []snapindex.LedgerEntry
}

// Config holds the parameters for opening a store root with Open.
type Config struct {
	// Root is the store directory. Created if it does not exist.
	Root string

	// Algorithm addresses blobs. Zero selects digest.Default. The
	// first Open of a root records the algorithm in the index; later
	// opens with a different one fail with ErrAlgorithmMismatch.
	Algorithm digest.Algorithm

	// CompressionLevel and NoCompression configure blob gzip. See
	// blobstore.Config.
	CompressionLevel int
	NoCompression    bool

	// PoolSize is the index connection pool size.
	PoolSize int

	// Clock stamps created_at. If nil, the real clock is used.
	Clock clock.Clock

	// Logger receives operational messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// Options assembles a Service from already-open components. The
// Service takes ownership of Index and closes it on Close.
type Options struct {
	Blobs *blobstore.Store
	Index *snapindex.Index

	// Clock stamps created_at. If nil, the real clock is used.
	Clock clock.Clock

	// Logger receives operational messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// Service is the snapshot store. Writes (Snapshot, Import) are
// serialized within the Service; reads run concurrently.
type Service struct {
	blobs  *blobstore.Store
	index  *snapindex.Index
	clock  clock.Clock
	logger *slog.Logger

	// writeMu covers the blob write and the index insert of one
	// snapshot, and Orphans' view of both stores.
	writeMu sync.Mutex
}

// Open opens the store rooted at cfg.Root:
//
//	<root>/index.sqlite
//	<root>/blobs/<digest>.json.gz
func Open(ctx context.Context, cfg Config) (*Service, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("snapshot: Root is required")
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: creating root %s: %w", cfg.Root, err)
	}

	blobs, err := blobstore.New(blobstore.Config{
		Root:          cfg.Root,
		Algorithm:     cfg.Algorithm,
		Level:         cfg.CompressionLevel,
		NoCompression: cfg.NoCompression,
		Logger:        cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	index, err := snapindex.Open(ctx, snapindex.Config{
		Path:     filepath.Join(cfg.Root, IndexFile),
		PoolSize: cfg.PoolSize,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	service, err := New(ctx, Options{
		Blobs:  blobs,
		Index:  index,
		Clock:  cfg.Clock,
		Logger: cfg.Logger,
	})
	if err != nil {
		index.Close()
		return nil, err
	}
	return service, nil
}

// algorithmMetaKey names the index metadata row pinning the blob
// digest algorithm.
const algorithmMetaKey = "digest_algorithm"

// New assembles a Service from opts. The blob store's algorithm is
// pinned in the index on first use and must match on every later
// call.
func New(ctx context.Context, opts Options) (*Service, error) {
	if opts.Blobs == nil {
		return nil, fmt.Errorf("snapshot: Blobs is required")
	}
	if opts.Index == nil {
		return nil, fmt.Errorf("snapshot: Index is required")
	}

	serviceClock := opts.Clock
	if serviceClock == nil {
		serviceClock = clock.Real()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	algorithm := opts.Blobs.Algorithm().Name()
	pinned, err := opts.Index.EnsureMeta(ctx, algorithmMetaKey, algorithm)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	if pinned != algorithm {
		return nil, fmt.Errorf("%w: store uses %s, opened with %s", ErrAlgorithmMismatch, pinned, algorithm)
	}

	return &Service{
		blobs:  opts.Blobs,
		index:  opts.Index,
		clock:  serviceClock,
		logger: logger,
	}, nil
}

// Close releases the index. Blobs hold no open resources.
func (s *Service) Close() error {
	return s.index.Close()
}

// Algorithm returns the digest function addressing this store's
// blobs.
func (s *Service) Algorithm() digest.Algorithm {
	return s.blobs.Algorithm()
}

// Snapshot persists state and returns the new snapshot's ID. parentID
// may be empty; it is recorded verbatim and not checked.
//
// The blob is written before the index row. If the insert fails the
// blob stays behind unreferenced (see Orphans) and no snapshot is
// visible.
func (s *Service) Snapshot(ctx context.Context, state State, parentID string) (string, error) {
	if state == nil {
		return "", fmt.Errorf("snapshot: state is nil")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	serialized, err := state.Serialize()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	entries := state.ToolLedger()

	record := snapindex.Record{
		ID:        newID(),
		ParentID:  parentID,
		StateHash: s.blobs.Algorithm().Sum(serialized),
		CreatedAt: s.clock.Now(),
	}
	if err := snapindex.ValidateTimes(record, entries); err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}

	blobHash, err := s.blobs.Write(serialized)
	if err != nil {
		return "", fmt.Errorf("snapshot: storing state: %w", err)
	}
	record.BlobHash = blobHash

	if err := s.index.Insert(ctx, record, entries); err != nil {
		s.logger.Warn("snapshot index insert failed; blob left unreferenced",
			"snapshot_id", record.ID,
			"blob_hash", blobHash,
			"error", err,
		)
		return "", fmt.Errorf("snapshot: %w", err)
	}

	s.logger.Info("snapshot stored",
		"snapshot_id", record.ID,
		"parent_snapshot_id", parentID,
		"blob_hash", blobHash,
		"size", len(serialized),
		"ledger_entries", len(entries),
	)
	return record.ID, nil
}

// Get returns the decoded state of snapshot id in the generic JSON
// representation: map[string]any, []any, string, json.Number, bool,
// or nil.
func (s *Service) Get(ctx context.Context, id string) (any, error) {
	raw, err := s.GetRaw(ctx, id)
	if err != nil {
		return nil, err
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("%w: decoding state of %s: %w", ErrSerialization, id, err)
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: decoding state of %s: trailing data after JSON value", ErrSerialization, id)
	}
	return value, nil
}

// GetRaw returns the serialized state of snapshot id exactly as it
// was stored.
func (s *Service) GetRaw(ctx context.Context, id string) ([]byte, error) {
	blobHash, err := s.index.BlobHash(ctx, id)
	if err != nil {
		return nil, notFound(id, "", err)
	}

	raw, err := s.blobs.Read(blobHash)
	if err != nil {
		return nil, notFound(id, blobHash, err)
	}
	return raw, nil
}

// LastSnapshotID returns the most recently created snapshot. Reports
// false when the store is empty.
func (s *Service) LastSnapshotID(ctx context.Context) (string, bool, error) {
	id, found, err := s.index.LatestID(ctx)
	if err != nil {
		return "", false, fmt.Errorf("snapshot: %w", err)
	}
	return id, found, nil
}

// Detail is a snapshot's metadata together with its tool ledger and
// the IDs of snapshots derived from it.
type Detail struct {
	Record   snapindex.Record
	Ledger   []snapindex.LedgerEntry
	Children []string
}

// Show returns the metadata, ledger, and children of snapshot id.
func (s *Service) Show(ctx context.Context, id string) (*Detail, error) {
	record, err := s.index.Record(ctx, id)
	if err != nil {
		return nil, notFound(id, "", err)
	}
	ledger, err := s.index.Ledger(ctx, id)
	if err != nil {
		return nil, notFound(id, "", err)
	}
	children, err := s.index.Children(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	detail := &Detail{Record: record, Ledger: ledger}
	for _, child := range children {
		detail.Children = append(detail.Children, child.ID)
	}
	return detail, nil
}

// List returns snapshot records newest first.
func (s *Service) List(ctx context.Context, filter snapindex.Filter) ([]snapindex.Record, error) {
	records, err := s.index.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return records, nil
}

// Orphans returns the digests of stored blobs that no snapshot
// references, in lexical order. These are left behind when an index
// insert fails after its blob was written.
func (s *Service) Orphans(ctx context.Context) ([]string, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	stored, err := s.blobs.List()
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	referenced, err := s.index.ReferencedBlobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	var orphans []string
	for _, sum := range stored {
		if _, ok := referenced[sum]; !ok {
			orphans = append(orphans, sum)
		}
	}
	return orphans, nil
}

// notFound converts a lookup failure into a NotFoundError when the
// cause is a missing row or blob, and wraps it otherwise.
func notFound(id, blobHash string, err error) error {
	if errors.Is(err, snapindex.ErrNotFound) || errors.Is(err, blobstore.ErrNotFound) {
		return &NotFoundError{ID: id, BlobHash: blobHash, Err: err}
	}
	return fmt.Errorf("snapshot: %s: %w", id, err)
}

// newID returns a fresh time-ordered snapshot ID.
func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

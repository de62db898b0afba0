// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/agentstate/lib/sqlitepool"
)

var (
	// ErrNotFound is returned (wrapped) when a snapshot ID has no row.
	ErrNotFound = errors.New("snapindex: snapshot not found")

	// ErrDuplicate is returned (wrapped) by Insert when the snapshot
	// ID is already indexed.
	ErrDuplicate = errors.New("snapindex: snapshot already exists")

	// ErrTimeRange is returned (wrapped) when a timestamp cannot be
	// stored without losing precision or wrapping.
	ErrTimeRange = errors.New("snapindex: timestamp out of range")
)

// Snapshot times are stored as integer nanoseconds so that ordering
// happens in SQL. Ledger times are stored as RFC 3339 text and accept
// any four-digit year, including the zero time.
var (
	minSnapshotTime = time.Unix(0, math.MinInt64).UTC()
	maxSnapshotTime = time.Unix(0, math.MaxInt64).UTC()
)

// Record is one row of the snapshots table.
type Record struct {
	ID string

	// ParentID is the snapshot this one was derived from. Empty for a
	// root. Never validated against existing rows.
	ParentID string

	// StateHash is the digest of the serialized state.
	StateHash string

	// BlobHash names the blob holding the serialized state. Equal to
	// StateHash for stores that address blobs by the same digest.
	BlobHash string

	CreatedAt time.Time
}

// LedgerEntry is one tool invocation recorded with a snapshot.
type LedgerEntry struct {
	// Seq is the entry's position in the snapshot's ledger, starting
	// at zero. Assigned by Insert; ignored on input.
	Seq int

	Name      string
	InHash    string
	OutHash   string
	Status    string
	LatencyMS int64

	// URL is optional. Empty is stored as NULL.
	URL string

	// CreatedAt may be the zero time when the caller did not record
	// one. Years outside 0 through 9999 are rejected.
	CreatedAt time.Time
}

// Filter narrows List results.
type Filter struct {
	// Limit caps the number of records returned. Zero or negative
	// means no limit.
	Limit int

	// Before, if non-zero, excludes snapshots created at or after
	// this instant.
	Before time.Time
}

// Config holds the parameters for opening an Index.
type Config struct {
	// Path is the SQLite database file. The parent directory must
	// exist.
	Path string

	// PoolSize is the number of pooled connections. Defaults to 4 if
	// zero or negative.
	PoolSize int

	// Logger receives operational messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// Index is the snapshot metadata index. Safe for concurrent use.
type Index struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

const schema = `
	CREATE TABLE IF NOT EXISTS snapshots (
		snapshot_id        TEXT PRIMARY KEY,
		parent_snapshot_id TEXT,
		state_hash         TEXT NOT NULL,
		state_blob_hash    TEXT NOT NULL,
		created_at         INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at);
	CREATE INDEX IF NOT EXISTS idx_snapshots_parent ON snapshots(parent_snapshot_id);

	CREATE TABLE IF NOT EXISTS tool_ledger (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		snapshot_id TEXT NOT NULL,
		seq         INTEGER NOT NULL,
		name        TEXT NOT NULL,
		in_hash     TEXT NOT NULL,
		out_hash    TEXT NOT NULL,
		status      TEXT NOT NULL,
		latency_ms  INTEGER NOT NULL,
		url         TEXT,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tool_ledger_snapshot ON tool_ledger(snapshot_id, seq);

	CREATE TABLE IF NOT EXISTS store_meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
`

// Open opens (creating if necessary) the index database and ensures
// the schema exists. The caller must call Close.
func Open(ctx context.Context, cfg Config) (*Index, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: poolSize,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("snapindex: %w", err)
	}

	index := &Index{pool: pool, logger: logger}
	if err := index.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return index, nil
}

// Close closes the connection pool.
func (x *Index) Close() error {
	return x.pool.Close()
}

// InitSchema creates the tables and indexes if they do not exist.
// Idempotent.
func (x *Index) InitSchema(ctx context.Context) error {
	conn, release, err := x.pool.TakeWriter(ctx)
	if err != nil {
		return fmt.Errorf("snapindex: init schema: %w", err)
	}
	defer release()

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("snapindex: creating schema: %w", err)
	}
	return nil
}

// EnsureMeta records value under key if the key is unset and returns
// the value stored for key afterwards. A caller pinning a setting for
// the life of the store compares the result against its own value.
func (x *Index) EnsureMeta(ctx context.Context, key, value string) (stored string, err error) {
	conn, release, err := x.pool.TakeWriter(ctx)
	if err != nil {
		return "", fmt.Errorf("snapindex: meta %s: %w", key, err)
	}
	defer release()

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return "", fmt.Errorf("snapindex: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn, `INSERT OR IGNORE INTO store_meta (key, value) VALUES (?, ?)`,
		&sqlitex.ExecOptions{Args: []any{key, value}})
	if err != nil {
		return "", fmt.Errorf("snapindex: writing meta %s: %w", key, err)
	}
	err = sqlitex.Execute(conn, `SELECT value FROM store_meta WHERE key = ?`,
		&sqlitex.ExecOptions{
			Args: []any{key},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				stored = stmt.ColumnText(0)
				return nil
			},
		})
	if err != nil {
		return "", fmt.Errorf("snapindex: reading meta %s: %w", key, err)
	}
	return stored, nil
}

// ValidateTimes reports ErrTimeRange if any timestamp in record or
// entries cannot be stored. A snapshot's CreatedAt must be non-zero
// and representable as int64 nanoseconds since the Unix epoch (years
// 1678 through 2262). Ledger entries accept the zero time and any year
// from 0 through 9999.
func ValidateTimes(record Record, entries []LedgerEntry) error {
	if record.CreatedAt.IsZero() {
		return fmt.Errorf("%w: snapshot %s has no creation time", ErrTimeRange, record.ID)
	}
	if record.CreatedAt.Before(minSnapshotTime) || record.CreatedAt.After(maxSnapshotTime) {
		return fmt.Errorf("%w: snapshot %s created at %s", ErrTimeRange,
			record.ID, record.CreatedAt.UTC().Format(time.RFC3339Nano))
	}
	for seq, entry := range entries {
		if year := entry.CreatedAt.UTC().Year(); year < 0 || year > 9999 {
			return fmt.Errorf("%w: ledger entry %d of %s is in year %d", ErrTimeRange,
				seq, record.ID, year)
		}
	}
	return nil
}

// Insert writes record and its ledger entries in a single IMMEDIATE
// transaction. Either every row commits or none do. Entries are
// numbered by their position in the slice.
func (x *Index) Insert(ctx context.Context, record Record, entries []LedgerEntry) (err error) {
	if record.ID == "" {
		return fmt.Errorf("snapindex: insert: snapshot ID is required")
	}
	if record.StateHash == "" || record.BlobHash == "" {
		return fmt.Errorf("snapindex: insert %s: state and blob hashes are required", record.ID)
	}
	if err := ValidateTimes(record, entries); err != nil {
		return err
	}

	conn, release, err := x.pool.TakeWriter(ctx)
	if err != nil {
		return fmt.Errorf("snapindex: insert: %w", err)
	}
	defer release()

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("snapindex: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn, `INSERT INTO snapshots
		(snapshot_id, parent_snapshot_id, state_hash, state_blob_hash, created_at)
		VALUES (?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			record.ID,
			nullable(record.ParentID),
			record.StateHash,
			record.BlobHash,
			record.CreatedAt.UnixNano(),
		},
	})
	if err != nil {
		if sqlite.ErrCode(err).ToPrimary() == sqlite.ResultConstraint {
			return fmt.Errorf("%w: %s", ErrDuplicate, record.ID)
		}
		return fmt.Errorf("snapindex: inserting snapshot %s: %w", record.ID, err)
	}

	for seq, entry := range entries {
		err = sqlitex.Execute(conn, `INSERT INTO tool_ledger
			(snapshot_id, seq, name, in_hash, out_hash, status, latency_ms, url, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
			Args: []any{
				record.ID,
				seq,
				entry.Name,
				entry.InHash,
				entry.OutHash,
				entry.Status,
				entry.LatencyMS,
				nullable(entry.URL),
				formatLedgerTime(entry.CreatedAt),
			},
		})
		if err != nil {
			return fmt.Errorf("snapindex: inserting ledger entry %d of %s: %w", seq, record.ID, err)
		}
	}

	x.logger.Debug("snapshot indexed",
		"snapshot_id", record.ID,
		"parent_snapshot_id", record.ParentID,
		"blob_hash", record.BlobHash,
		"ledger_entries", len(entries),
	)
	return nil
}

// BlobHash returns the blob digest recorded for id.
func (x *Index) BlobHash(ctx context.Context, id string) (string, error) {
	conn, err := x.pool.Take(ctx)
	if err != nil {
		return "", fmt.Errorf("snapindex: blob hash: %w", err)
	}
	defer x.pool.Put(conn)

	var (
		blobHash string
		found    bool
	)
	err = sqlitex.Execute(conn, `SELECT state_blob_hash FROM snapshots WHERE snapshot_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				blobHash = stmt.ColumnText(0)
				found = true
				return nil
			},
		})
	if err != nil {
		return "", fmt.Errorf("snapindex: looking up %s: %w", id, err)
	}
	if !found {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return blobHash, nil
}

// LatestID returns the most recently created snapshot. Snapshots
// sharing a created_at are ordered by insertion, so the result is
// deterministic. Reports false for an empty index.
func (x *Index) LatestID(ctx context.Context) (string, bool, error) {
	conn, err := x.pool.Take(ctx)
	if err != nil {
		return "", false, fmt.Errorf("snapindex: latest: %w", err)
	}
	defer x.pool.Put(conn)

	var (
		id    string
		found bool
	)
	err = sqlitex.Execute(conn,
		`SELECT snapshot_id FROM snapshots ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				id = stmt.ColumnText(0)
				found = true
				return nil
			},
		})
	if err != nil {
		return "", false, fmt.Errorf("snapindex: querying latest snapshot: %w", err)
	}
	return id, found, nil
}

const recordColumns = `snapshot_id, parent_snapshot_id, state_hash, state_blob_hash, created_at`

// Record returns the full row for id.
func (x *Index) Record(ctx context.Context, id string) (Record, error) {
	conn, err := x.pool.Take(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("snapindex: record: %w", err)
	}
	defer x.pool.Put(conn)

	record, found, err := readRecord(conn, id)
	if err != nil {
		return Record{}, err
	}
	if !found {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return record, nil
}

// Ledger returns the tool ledger of id in insertion order. A snapshot
// with no tool calls yields an empty slice; an unknown id yields
// ErrNotFound.
func (x *Index) Ledger(ctx context.Context, id string) ([]LedgerEntry, error) {
	conn, err := x.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapindex: ledger: %w", err)
	}
	defer x.pool.Put(conn)

	_, found, err := readRecord(conn, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	entries := []LedgerEntry{}
	err = sqlitex.Execute(conn, `SELECT seq, name, in_hash, out_hash, status, latency_ms, url, created_at
		FROM tool_ledger WHERE snapshot_id = ? ORDER BY seq`,
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				createdAt, err := parseLedgerTime(stmt.ColumnText(7))
				if err != nil {
					return fmt.Errorf("entry %d: %w", stmt.ColumnInt(0), err)
				}
				entry := LedgerEntry{
					Seq:       stmt.ColumnInt(0),
					Name:      stmt.ColumnText(1),
					InHash:    stmt.ColumnText(2),
					OutHash:   stmt.ColumnText(3),
					Status:    stmt.ColumnText(4),
					LatencyMS: stmt.ColumnInt64(5),
					CreatedAt: createdAt,
				}
				if !stmt.ColumnIsNull(6) {
					entry.URL = stmt.ColumnText(6)
				}
				entries = append(entries, entry)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("snapindex: reading ledger of %s: %w", id, err)
	}
	return entries, nil
}

// Children returns the snapshots naming id as their parent, oldest
// first. id itself need not exist.
func (x *Index) Children(ctx context.Context, id string) ([]Record, error) {
	conn, err := x.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapindex: children: %w", err)
	}
	defer x.pool.Put(conn)

	records, err := queryRecords(conn,
		`SELECT `+recordColumns+` FROM snapshots
		WHERE parent_snapshot_id = ? ORDER BY created_at, rowid`,
		id)
	if err != nil {
		return nil, fmt.Errorf("snapindex: children of %s: %w", id, err)
	}
	return records, nil
}

// List returns snapshots newest first.
func (x *Index) List(ctx context.Context, filter Filter) ([]Record, error) {
	conn, err := x.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapindex: list: %w", err)
	}
	defer x.pool.Put(conn)

	// SQLite treats a negative LIMIT as unbounded.
	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}

	var records []Record
	switch {
	case !filter.Before.IsZero() && !filter.Before.After(minSnapshotTime):
		// Nothing stored can precede the earliest storable instant.
		return nil, nil
	case filter.Before.IsZero() || filter.Before.After(maxSnapshotTime):
		records, err = queryRecords(conn,
			`SELECT `+recordColumns+` FROM snapshots
			ORDER BY created_at DESC, rowid DESC LIMIT ?`,
			limit)
	default:
		records, err = queryRecords(conn,
			`SELECT `+recordColumns+` FROM snapshots WHERE created_at < ?
			ORDER BY created_at DESC, rowid DESC LIMIT ?`,
			filter.Before.UnixNano(), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("snapindex: list: %w", err)
	}
	return records, nil
}

// ReferencedBlobs returns the set of blob digests named by at least
// one snapshot.
func (x *Index) ReferencedBlobs(ctx context.Context) (map[string]struct{}, error) {
	conn, err := x.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapindex: referenced blobs: %w", err)
	}
	defer x.pool.Put(conn)

	referenced := make(map[string]struct{})
	err = sqlitex.Execute(conn, `SELECT DISTINCT state_blob_hash FROM snapshots`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				referenced[stmt.ColumnText(0)] = struct{}{}
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("snapindex: referenced blobs: %w", err)
	}
	return referenced, nil
}

// Count returns the number of indexed snapshots.
func (x *Index) Count(ctx context.Context) (int, error) {
	conn, err := x.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("snapindex: count: %w", err)
	}
	defer x.pool.Put(conn)

	var count int
	err = sqlitex.Execute(conn, `SELECT COUNT(*) FROM snapshots`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			count = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("snapindex: count: %w", err)
	}
	return count, nil
}

func readRecord(conn *sqlite.Conn, id string) (Record, bool, error) {
	records, err := queryRecords(conn,
		`SELECT `+recordColumns+` FROM snapshots WHERE snapshot_id = ?`, id)
	if err != nil {
		return Record{}, false, fmt.Errorf("snapindex: reading %s: %w", id, err)
	}
	if len(records) == 0 {
		return Record{}, false, nil
	}
	return records[0], true, nil
}

// queryRecords runs a SELECT whose columns are recordColumns.
func queryRecords(conn *sqlite.Conn, query string, args ...any) ([]Record, error) {
	var records []Record
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			// Columns: snapshot_id(0), parent_snapshot_id(1),
			// state_hash(2), state_blob_hash(3), created_at(4).
			record := Record{
				ID:        stmt.ColumnText(0),
				StateHash: stmt.ColumnText(2),
				BlobHash:  stmt.ColumnText(3),
				CreatedAt: fromUnixNanos(stmt.ColumnInt64(4)),
			}
			if !stmt.ColumnIsNull(1) {
				record.ParentID = stmt.ColumnText(1)
			}
			records = append(records, record)
			return nil
		},
	})
	return records, err
}

// nullable maps the empty string to SQL NULL.
func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func fromUnixNanos(nanos int64) time.Time {
	return time.Unix(0, nanos).UTC()
}

func formatLedgerTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseLedgerTime(text string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, text)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing created_at %q: %w", text, err)
	}
	return t.UTC(), nil
}

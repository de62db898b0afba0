// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Config holds the parameters for opening a SQLite connection pool.
// Path is required; all other fields have defaults.
type Config struct {
	// Path is the filesystem path to the SQLite database file. The
	// parent directory must exist. The file is created if it does not
	// exist.
	Path string

	// PoolSize is the number of connections in the pool. If zero or
	// negative, defaults to max(runtime.NumCPU(), 4). Only one
	// connection at a time can hold the writer gate, so extra
	// connections only help concurrent readers.
	PoolSize int

	// Logger receives operational messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// Pool is a fixed-size pool of SQLite connections with standard
// pragmas and a single-writer gate.
//
// Pool is safe for concurrent use. Individual connections are not:
// each goroutine must Take its own connection and Put it back.
type Pool struct {
	inner  *sqlitex.Pool
	logger *slog.Logger
	path   string

	// writer is a one-slot semaphore. A goroutine holding the slot is
	// the only one in this process allowed to open a write
	// transaction, so writers queue here (honoring ctx) instead of
	// spinning on SQLITE_BUSY inside busy_timeout.
	writer chan struct{}
}

// Open creates a new connection pool. The database file is created if
// it does not exist. Connections are initialized lazily on first Take.
// The caller must call Close when the pool is no longer needed.
func Open(cfg Config) (*Pool, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlitepool: Path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = max(runtime.NumCPU(), 4)
	}

	inner, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: opening %s: %w", cfg.Path, err)
	}

	logger.Info("sqlite pool opened",
		"path", cfg.Path,
		"pool_size", poolSize,
	)

	return &Pool{
		inner:  inner,
		logger: logger,
		path:   cfg.Path,
		writer: make(chan struct{}, 1),
	}, nil
}

// Path returns the database file path.
func (p *Pool) Path() string { return p.path }

// Take borrows a connection for reading. Blocks until a connection is
// available or ctx is cancelled. The caller MUST call Put when done:
//
//	conn, err := pool.Take(ctx)
//	if err != nil {
//	    return err
//	}
//	defer pool.Put(conn)
func (p *Pool) Take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := p.inner.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: take: %w", err)
	}
	return conn, nil
}

// Put returns a connection to the pool. Safe to call with nil.
func (p *Pool) Put(conn *sqlite.Conn) {
	p.inner.Put(conn)
}

// TakeWriter acquires the writer gate and then borrows a connection.
// The returned release function puts the connection back and releases
// the gate; it must be called exactly once:
//
//	conn, release, err := pool.TakeWriter(ctx)
//	if err != nil {
//	    return err
//	}
//	defer release()
func (p *Pool) TakeWriter(ctx context.Context) (*sqlite.Conn, func(), error) {
	select {
	case p.writer <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("sqlitepool: waiting for writer: %w", ctx.Err())
	}

	conn, err := p.inner.Take(ctx)
	if err != nil {
		<-p.writer
		return nil, nil, fmt.Errorf("sqlitepool: take writer: %w", err)
	}

	return conn, func() {
		p.inner.Put(conn)
		<-p.writer
	}, nil
}

// Close closes all connections in the pool. Blocks until all borrowed
// connections are returned. After Close, Take returns an error.
func (p *Pool) Close() error {
	if err := p.inner.Close(); err != nil {
		p.logger.Error("sqlite pool close error",
			"path", p.path,
			"error", err,
		)
		return fmt.Errorf("sqlitepool: closing %s: %w", p.path, err)
	}
	p.logger.Info("sqlite pool closed", "path", p.path)
	return nil
}

// prepareConnection applies the standard pragmas. Runs once per
// connection, on first use. Schema belongs to the pool's owner, which
// creates it once through TakeWriter.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		// A committed snapshot row must survive power loss.
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=OFF",
		"PRAGMA cache_size=-8192",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlitepool: %s: %w", pragma, err)
		}
	}

	return nil
}

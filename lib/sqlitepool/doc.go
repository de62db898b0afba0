// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the long-lived SQLite connection pool
// behind the snapshot index.
//
// It wraps zombiezen.com/go/sqlite with the defaults the index needs:
// WAL journal mode so readers never block the writer, FULL synchronous
// so a committed snapshot survives power loss, and a busy timeout for
// the rare cross-process writer.
//
// # Pragmas
//
// Every connection in the pool is initialized with:
//
//   - journal_mode=WAL
//   - synchronous=FULL
//   - busy_timeout=5000
//   - foreign_keys=OFF: parent links between snapshots are advisory
//     and are deliberately not declared as foreign keys.
//   - cache_size=-8192: 8 MB page cache per connection.
//   - temp_store=MEMORY
//
// # Writer gate
//
// SQLite serializes writers at the file level, but a process that lets
// several goroutines race into BEGIN IMMEDIATE turns that into
// busy-timeout polling. [Pool.TakeWriter] hands out at most one writing
// connection at a time per Pool and queues the rest on a channel that
// honors context cancellation. Readers use [Pool.Take] and never wait
// on the gate.
//
// # Usage
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:     filepath.Join(root, "index.sqlite"),
//	    PoolSize: 4,
//	    Logger:   logger,
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	conn, release, err := pool.TakeWriter(ctx)
//	if err != nil {
//	    return err
//	}
//	defer release()
//	endTransaction, err := sqlitex.ImmediateTransaction(conn)
//	...
//
// The package exposes zombiezen types directly. Callers write SQL, use
// sqlitex.Execute for cached statements, and manage transactions with
// sqlitex.ImmediateTransaction.
package sqlitepool

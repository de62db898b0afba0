// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/bureau-foundation/agentstate/lib/snapindex"
)

// Lineage is the parent chain of a snapshot.
type Lineage struct {
	// Chain starts at the requested snapshot and follows parent links
	// backwards. Chain[len(Chain)-1] is the oldest ancestor reached.
	Chain []snapindex.Record

	// Dangling is set when the last record in Chain names a parent
	// that is not in the index.
	Dangling string

	// Cycle is set when a parent link leads back to a snapshot already
	// in Chain.
	Cycle bool

	// Truncated is set when the walk stopped at the limit with more
	// ancestors remaining.
	Truncated bool
}

// Root reports whether the walk ended at a snapshot with no parent.
func (l *Lineage) Root() bool {
	return l.Dangling == "" && !l.Cycle && !l.Truncated
}

// Lineage walks parent links from id. A limit of zero or less walks
// until a root, a dangling parent, or a cycle.
func (s *Service) Lineage(ctx context.Context, id string, limit int) (*Lineage, error) {
	record, err := s.index.Record(ctx, id)
	if err != nil {
		return nil, notFound(id, "", err)
	}

	lineage := &Lineage{Chain: []snapindex.Record{record}}
	visited := map[string]bool{record.ID: true}

	for record.ParentID != "" {
		if limit > 0 && len(lineage.Chain) >= limit {
			lineage.Truncated = true
			break
		}
		if visited[record.ParentID] {
			lineage.Cycle = true
			break
		}

		parent, err := s.index.Record(ctx, record.ParentID)
		if errors.Is(err, snapindex.ErrNotFound) {
			lineage.Dangling = record.ParentID
			break
		}
		if err != nil {
			return nil, fmt.Errorf("snapshot: lineage of %s: %w", id, err)
		}

		lineage.Chain = append(lineage.Chain, parent)
		visited[parent.ID] = true
		record = parent
	}
	return lineage, nil
}

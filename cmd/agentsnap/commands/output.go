// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"encoding/json"
	"time"

	"github.com/bureau-foundation/agentstate/lib/agentstate"
	"github.com/bureau-foundation/agentstate/lib/snapindex"
	"github.com/bureau-foundation/agentstate/lib/snapshot"
)

// recordJSON is the --json form of a snapshot row.
type recordJSON struct {
	ID        string    `json:"id"`
	ParentID  string    `json:"parent_id,omitempty"`
	StateHash string    `json:"state_hash"`
	BlobHash  string    `json:"blob_hash"`
	CreatedAt time.Time `json:"created_at"`
}

func newRecordJSON(record snapindex.Record) recordJSON {
	return recordJSON{
		ID:        record.ID,
		ParentID:  record.ParentID,
		StateHash: record.StateHash,
		BlobHash:  record.BlobHash,
		CreatedAt: record.CreatedAt,
	}
}

func newRecordsJSON(records []snapindex.Record) []recordJSON {
	out := make([]recordJSON, len(records))
	for i, record := range records {
		out[i] = newRecordJSON(record)
	}
	return out
}

// detailJSON is the --json form of "agentsnap show".
type detailJSON struct {
	Snapshot recordJSON      `json:"snapshot"`
	Ledger   json.RawMessage `json:"ledger"`
	Children []string        `json:"children"`
}

func newDetailJSON(detail *snapshot.Detail) (detailJSON, error) {
	ledger, err := agentstate.MarshalLedger(detail.Ledger)
	if err != nil {
		return detailJSON{}, err
	}
	children := detail.Children
	if children == nil {
		children = []string{}
	}
	return detailJSON{
		Snapshot: newRecordJSON(detail.Record),
		Ledger:   ledger,
		Children: children,
	}, nil
}

// lineageJSON is the --json form of "agentsnap lineage".
type lineageJSON struct {
	Chain     []recordJSON `json:"chain"`
	Root      bool         `json:"root"`
	Dangling  string       `json:"dangling_parent,omitempty"`
	Cycle     bool         `json:"cycle,omitempty"`
	Truncated bool         `json:"truncated,omitempty"`
}

func newLineageJSON(lineage *snapshot.Lineage) lineageJSON {
	return lineageJSON{
		Chain:     newRecordsJSON(lineage.Chain),
		Root:      lineage.Root(),
		Dangling:  lineage.Dangling,
		Cycle:     lineage.Cycle,
		Truncated: lineage.Truncated,
	}
}

// formatTime renders timestamps in text output.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// orDash renders empty optional fields in text tables.
func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentstate

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/agentstate/lib/snapindex"
)

// ledgerEntryJSON is the file and --json form of a ledger entry.
type ledgerEntryJSON struct {
	Seq       int       `json:"seq"`
	Name      string    `json:"name"`
	InHash    string    `json:"in_hash"`
	OutHash   string    `json:"out_hash"`
	Status    string    `json:"status"`
	LatencyMS int64     `json:"latency_ms"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ParseLedger decodes a JSON or JSONC array of ledger entries:
//
//	[
//	  {"name": "search", "in_hash": "…", "out_hash": "…",
//	   "status": "ok", "latency_ms": 120,
//	   "url": "https://…", "created_at": "2026-03-14T09:26:53Z"},
//	]
//
// The seq field is ignored on input; order in the array is the order
// recorded. created_at is optional: an entry without one carries the
// zero time, which is stored and read back as the zero time.
func ParseLedger(data []byte) ([]snapindex.LedgerEntry, error) {
	var wire []ledgerEntryJSON
	if err := json.Unmarshal(jsonc.ToJSON(data), &wire); err != nil {
		return nil, fmt.Errorf("agentstate: parsing ledger: %w", err)
	}

	entries := make([]snapindex.LedgerEntry, len(wire))
	for i, entry := range wire {
		if entry.Name == "" {
			return nil, fmt.Errorf("agentstate: ledger entry %d: name is required", i)
		}
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
	return entries, nil
}

// ReadLedgerFile reads and parses a ledger file.
func ReadLedgerFile(path string) ([]snapindex.LedgerEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("agentstate: reading %s: %w", path, err)
	}
	entries, err := ParseLedger(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// MarshalLedger encodes entries in the form ParseLedger accepts, with
// seq populated.
func MarshalLedger(entries []snapindex.LedgerEntry) ([]byte, error) {
	wire := make([]ledgerEntryJSON, len(entries))
	for i, entry := range entries {
		wire[i] = ledgerEntryJSON{
			Seq:       entry.Seq,
			Name:      entry.Name,
			InHash:    entry.InHash,
			OutHash:   entry.OutHash,
			Status:    entry.Status,
			LatencyMS: entry.LatencyMS,
			URL:       entry.URL,
			CreatedAt: entry.CreatedAt,
		}
	}
	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("agentstate: encoding ledger: %w", err)
	}
	return data, nil
}

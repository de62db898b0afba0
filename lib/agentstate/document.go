// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agentstate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/agentstate/lib/digest"
	"github.com/bureau-foundation/agentstate/lib/snapindex"
)

// Document is an agent state held as a generic JSON value together
// with the tool calls made so far.
//
// Document satisfies the snapshot service's State contract. Serialize
// is canonical, so two documents holding equal values produce equal
// bytes and share one blob.
type Document struct {
	// Value is the state itself: map[string]any, []any, string,
	// json.Number, bool, nil, or any value encoding/json can marshal.
	Value any

	ledger []snapindex.LedgerEntry
}

// New returns a document holding value with an empty tool ledger.
func New(value any) *Document {
	return &Document{Value: value}
}

// Parse decodes JSON or JSONC (// and /* */ comments, trailing
// commas) into a document. Numbers are kept as json.Number so their
// text survives a round trip unchanged.
func Parse(data []byte) (*Document, error) {
	value, err := decode(jsonc.ToJSON(data))
	if err != nil {
		return nil, fmt.Errorf("agentstate: parsing state: %w", err)
	}
	return &Document{Value: value}, nil
}

// ReadFile reads and parses a JSON or JSONC state file.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("agentstate: reading %s: %w", path, err)
	}
	document, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return document, nil
}

// Serialize returns the canonical JSON encoding of Value: object keys
// sorted, no insignificant whitespace, no HTML escaping.
func (d *Document) Serialize() ([]byte, error) {
	return Canonical(d.Value)
}

// ToolLedger returns a copy of the recorded tool calls in the order
// they were recorded.
func (d *Document) ToolLedger() []snapindex.LedgerEntry {
	return slices.Clone(d.ledger)
}

// Record appends entry to the tool ledger.
func (d *Document) Record(entry snapindex.LedgerEntry) {
	d.ledger = append(d.ledger, entry)
}

// ToolCall describes a completed tool invocation in terms of its raw
// input and output. RecordCall hashes both.
type ToolCall struct {
	Name    string
	Input   []byte
	Output  []byte
	Status  string
	Latency time.Duration
	URL     string
	At      time.Time
}

// RecordCall appends a ledger entry for call, addressing its input and
// output by their digests under algorithm.
func (d *Document) RecordCall(algorithm digest.Algorithm, call ToolCall) {
	if algorithm.IsZero() {
		algorithm = digest.Default
	}
	d.Record(snapindex.LedgerEntry{
		Name:      call.Name,
		InHash:    algorithm.Sum(call.Input),
		OutHash:   algorithm.Sum(call.Output),
		Status:    call.Status,
		LatencyMS: call.Latency.Milliseconds(),
		URL:       call.URL,
		CreatedAt: call.At,
	})
}

// Canonical encodes value as canonical JSON. Values that are not
// already in the generic representation (structs, typed maps) are
// first normalized through a JSON round trip so their object keys are
// sorted too.
func Canonical(value any) ([]byte, error) {
	raw, err := encode(value)
	if err != nil {
		return nil, fmt.Errorf("agentstate: encoding state: %w", err)
	}
	generic, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("agentstate: normalizing state: %w", err)
	}
	canonical, err := encode(generic)
	if err != nil {
		return nil, fmt.Errorf("agentstate: encoding state: %w", err)
	}
	return canonical, nil
}

// encode marshals without HTML escaping and without the trailing
// newline json.Encoder appends.
func encode(value any) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buffer.Bytes(), []byte("\n")), nil
}

// decode parses exactly one JSON value with UseNumber.
func decode(data []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return value, nil
}

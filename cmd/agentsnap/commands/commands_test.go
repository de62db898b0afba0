// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bureau-foundation/agentstate/cmd/agentsnap/cli"
	"github.com/bureau-foundation/agentstate/lib/config"
	"github.com/bureau-foundation/agentstate/lib/digest"
	"github.com/bureau-foundation/agentstate/lib/testutil"
)

// captureStdout captures stdout output during fn execution.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	original := os.Stdout
	reader, writer, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = writer

	fn()

	writer.Close()
	os.Stdout = original

	var buffer bytes.Buffer
	io.Copy(&buffer, reader)
	reader.Close()

	return buffer.String()
}

// execute runs the command tree with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var err error
	output := captureStdout(t, func() {
		err = Root().Execute(args)
	})
	return output, err
}

// mustExecute runs the command tree and fails the test on error.
func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	output, err := execute(t, args...)
	if err != nil {
		t.Fatalf("agentsnap %s: %v", strings.Join(args, " "), err)
	}
	return output
}

// isolate clears AGENTSNAP_CONFIG so commands use --root and defaults.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv(config.EnvironmentVariable, "")
	return t.TempDir()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func putState(t *testing.T, root, content string, extra ...string) string {
	t.Helper()
	args := append([]string{"put", "--root", root}, extra...)
	args = append(args, writeFile(t, "state.json", content))
	return strings.TrimSpace(mustExecute(t, args...))
}

func requireCategory(t *testing.T, err error, want cli.ErrorCategory) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := cli.CategoryOf(err); got != want {
		t.Fatalf("error %q has category %q, want %q", err, got, want)
	}
}

func TestPutGetLast(t *testing.T) {
	root := isolate(t)

	id := putState(t, root, `{
		// comments and trailing commas are accepted
		"b": [true, null, 1.50],
		"a": "x",
	}`)
	if id == "" {
		t.Fatal("put printed no ID")
	}

	if last := strings.TrimSpace(mustExecute(t, "last", "--root", root)); last != id {
		t.Errorf("last = %q, want %q", last, id)
	}

	raw := mustExecute(t, "get", "--root", root, "--raw", id)
	if raw != `{"a":"x","b":[true,null,1.50]}`+"\n" {
		t.Errorf("get --raw = %q", raw)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(mustExecute(t, "get", "--root", root, id)), &decoded); err != nil {
		t.Fatalf("get output is not JSON: %v", err)
	}
	if decoded["a"] != "x" {
		t.Errorf("get decoded = %v", decoded)
	}
}

func TestPutFromStdin(t *testing.T) {
	root := isolate(t)

	original := os.Stdin
	reader, writer, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdin = reader
	t.Cleanup(func() { os.Stdin = original })

	if _, err := writer.WriteString(`{"from":"stdin"}`); err != nil {
		t.Fatalf("write: %v", err)
	}
	writer.Close()

	id := strings.TrimSpace(mustExecute(t, "put", "--root", root, "-"))
	if raw := mustExecute(t, "get", "--root", root, "--raw", id); raw != `{"from":"stdin"}`+"\n" {
		t.Errorf("get --raw = %q", raw)
	}
}

func TestLastEmptyStore(t *testing.T) {
	root := isolate(t)

	output, err := execute(t, "last", "--root", root)
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		t.Fatalf("last on empty store error = %v, want exit code 1", err)
	}
	if output != "" {
		t.Errorf("last on empty store printed %q", output)
	}
}

func TestErrorCategories(t *testing.T) {
	root := isolate(t)
	invalid := writeFile(t, "bad.json", `{"unterminated":`)

	tests := []struct {
		name string
		args []string
		want cli.ErrorCategory
	}{
		{"get unknown", []string{"get", "--root", root, "no-such-id"}, cli.CategoryNotFound},
		{"show unknown", []string{"show", "--root", root, "no-such-id"}, cli.CategoryNotFound},
		{"ledger unknown", []string{"ledger", "--root", root, "no-such-id"}, cli.CategoryNotFound},
		{"lineage unknown", []string{"lineage", "--root", root, "no-such-id"}, cli.CategoryNotFound},
		{"export unknown", []string{"export", "--root", root, "no-such-id"}, cli.CategoryNotFound},
		{"put missing file", []string{"put", "--root", root, filepath.Join(root, "absent.json")}, cli.CategoryNotFound},
		{"put invalid JSON", []string{"put", "--root", root, invalid}, cli.CategoryValidation},
		{"put no args", []string{"put", "--root", root}, cli.CategoryValidation},
		{"get two args", []string{"get", "--root", root, "a", "b"}, cli.CategoryValidation},
		{"lineage negative limit", []string{"lineage", "--root", root, "--limit", "-1", "x"}, cli.CategoryValidation},
		{"list bad time", []string{"list", "--root", root, "--before", "yesterday"}, cli.CategoryValidation},
		{"unknown flag", []string{"get", "--rwa", "x"}, cli.CategoryValidation},
		{"import garbage", []string{"import", "--root", root, invalid}, cli.CategoryValidation},
		{"inspect garbage", []string{"inspect", invalid}, cli.CategoryValidation},
		{"missing config file", []string{"last", "--config", filepath.Join(root, "absent.yaml")}, cli.CategoryValidation},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := execute(t, test.args...)
			requireCategory(t, err, test.want)
		})
	}
}

func TestNotFoundHint(t *testing.T) {
	root := isolate(t)

	_, err := execute(t, "get", "--root", root, "no-such-id")
	if err == nil || !strings.Contains(err.Error(), "agentsnap list") {
		t.Errorf("error = %v, want hint pointing at 'agentsnap list'", err)
	}
}

func TestShowAndLedger(t *testing.T) {
	root := isolate(t)

	parent := putState(t, root, `{"step":1}`)
	ledger := writeFile(t, "ledger.json", `[
		{"name": "search", "in_hash": "aa", "out_hash": "bb", "status": "ok",
		 "latency_ms": 120, "url": "https://example.com/q",
		 "created_at": "2026-03-14T09:26:53.5Z"},
		{"name": "fetch", "in_hash": "cc", "out_hash": "dd", "status": "error",
		 "created_at": "2026-03-14T09:26:54Z"},
	]`)
	child := putState(t, root, `{"step":2}`, "--parent", parent, "--ledger", ledger)

	var detail struct {
		Snapshot struct {
			ID        string `json:"id"`
			ParentID  string `json:"parent_id"`
			StateHash string `json:"state_hash"`
			BlobHash  string `json:"blob_hash"`
		} `json:"snapshot"`
		Ledger []struct {
			Seq  int    `json:"seq"`
			Name string `json:"name"`
		} `json:"ledger"`
		Children []string `json:"children"`
	}
	if err := json.Unmarshal([]byte(mustExecute(t, "show", "--root", root, "--json", child)), &detail); err != nil {
		t.Fatalf("show --json output: %v", err)
	}
	if detail.Snapshot.ID != child || detail.Snapshot.ParentID != parent {
		t.Errorf("show snapshot = %+v", detail.Snapshot)
	}
	if want := digest.SHA256.Sum([]byte(`{"step":2}`)); detail.Snapshot.StateHash != want || detail.Snapshot.BlobHash != want {
		t.Errorf("hashes = %s/%s, want %s", detail.Snapshot.StateHash, detail.Snapshot.BlobHash, want)
	}
	if len(detail.Ledger) != 2 || detail.Ledger[0].Name != "search" || detail.Ledger[1].Seq != 1 {
		t.Errorf("show ledger = %+v", detail.Ledger)
	}
	if len(detail.Children) != 0 {
		t.Errorf("child has children %v", detail.Children)
	}

	var parentDetail struct {
		Children []string `json:"children"`
	}
	if err := json.Unmarshal([]byte(mustExecute(t, "show", "--root", root, "--json", parent)), &parentDetail); err != nil {
		t.Fatalf("show --json output: %v", err)
	}
	if diff := cmp.Diff([]string{child}, parentDetail.Children); diff != "" {
		t.Errorf("parent children mismatch (-want +got):\n%s", diff)
	}

	text := mustExecute(t, "show", "--root", root, child)
	for _, want := range []string{child, parent, "search", "fetch", "120ms", "https://example.com/q"} {
		if !strings.Contains(text, want) {
			t.Errorf("show output missing %q:\n%s", want, text)
		}
	}

	// The --json ledger reads back through put --ledger unchanged.
	exported := writeFile(t, "exported.json", mustExecute(t, "ledger", "--root", root, "--json", child))
	copied := putState(t, root, `{"step":3}`, "--ledger", exported)
	if diff := cmp.Diff(
		mustExecute(t, "ledger", "--root", root, "--json", child),
		mustExecute(t, "ledger", "--root", root, "--json", copied),
	); diff != "" {
		t.Errorf("ledger changed on round trip (-original +copy):\n%s", diff)
	}

	if output := mustExecute(t, "ledger", "--root", root, "--json", parent); strings.TrimSpace(output) != "[]" {
		t.Errorf("empty ledger --json = %q, want []", output)
	}
}

func TestLineageAndList(t *testing.T) {
	root := isolate(t)

	first := putState(t, root, `{"step":1}`)
	second := putState(t, root, `{"step":2}`, "--parent", first)
	third := putState(t, root, `{"step":3}`, "--parent", second)

	var lineage struct {
		Chain []struct {
			ID string `json:"id"`
		} `json:"chain"`
		Root      bool `json:"root"`
		Truncated bool `json:"truncated"`
	}
	if err := json.Unmarshal([]byte(mustExecute(t, "lineage", "--root", root, "--json", third)), &lineage); err != nil {
		t.Fatalf("lineage --json output: %v", err)
	}
	var chain []string
	for _, record := range lineage.Chain {
		chain = append(chain, record.ID)
	}
	if diff := cmp.Diff([]string{third, second, first}, chain); diff != "" {
		t.Errorf("lineage mismatch (-want +got):\n%s", diff)
	}
	if !lineage.Root || lineage.Truncated {
		t.Errorf("lineage root=%v truncated=%v", lineage.Root, lineage.Truncated)
	}

	limited := mustExecute(t, "lineage", "--root", root, "--limit", "2", third)
	if lines := strings.Split(strings.TrimSpace(limited), "\n"); len(lines) != 2 || !strings.HasPrefix(lines[0], third) {
		t.Errorf("lineage --limit 2 = %q", limited)
	}

	var records []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(mustExecute(t, "list", "--root", root, "--json")), &records); err != nil {
		t.Fatalf("list --json output: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("list returned %d records, want 3", len(records))
	}
	if records[0].ID != third {
		t.Errorf("list newest = %s, want %s", records[0].ID, third)
	}

	if err := json.Unmarshal([]byte(mustExecute(t, "list", "--root", root, "--json", "--limit", "1")), &records); err != nil {
		t.Fatalf("list --json output: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("list --limit 1 returned %d records", len(records))
	}
}

func TestDanglingParent(t *testing.T) {
	root := isolate(t)

	id := putState(t, root, `{"orphaned":true}`, "--parent", "never-stored")

	var lineage struct {
		Dangling string `json:"dangling_parent"`
		Root     bool   `json:"root"`
	}
	if err := json.Unmarshal([]byte(mustExecute(t, "lineage", "--root", root, "--json", id)), &lineage); err != nil {
		t.Fatalf("lineage --json output: %v", err)
	}
	if lineage.Dangling != "never-stored" || lineage.Root {
		t.Errorf("lineage = %+v, want dangling parent never-stored", lineage)
	}
}

func TestExportImportInspect(t *testing.T) {
	source := isolate(t)
	target := t.TempDir()

	id := putState(t, source, `{"portable":[1,2,3]}`)
	bundle := filepath.Join(t.TempDir(), "bundle.cbor")

	if output := strings.TrimSpace(mustExecute(t, "export", "--root", source, "-o", bundle, id)); output != bundle {
		t.Errorf("export printed %q, want %q", output, bundle)
	}

	if imported := strings.TrimSpace(mustExecute(t, "import", "--root", target, bundle)); imported != id {
		t.Errorf("import printed %q, want %q", imported, id)
	}
	if raw := mustExecute(t, "get", "--root", target, "--raw", id); raw != `{"portable":[1,2,3]}`+"\n" {
		t.Errorf("imported state = %q", raw)
	}

	_, err := execute(t, "import", "--root", target, bundle)
	requireCategory(t, err, cli.CategoryConflict)

	notation := mustExecute(t, "inspect", bundle)
	for _, want := range []string{id, digest.SHA256.Name()} {
		if !strings.Contains(notation, want) {
			t.Errorf("inspect output missing %q:\n%s", want, notation)
		}
	}
}

func TestExportDefaultsToExportsDir(t *testing.T) {
	root := isolate(t)
	id := putState(t, root, `{"x":1}`)

	output := strings.TrimSpace(mustExecute(t, "export", "--root", root, id))
	want := filepath.Join(root, "exports", id+".cbor")
	if output != want {
		t.Errorf("export path = %q, want %q", output, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("bundle not written: %v", err)
	}
}

func TestOrphans(t *testing.T) {
	root := isolate(t)
	putState(t, root, `{"kept":1}`)

	if output := mustExecute(t, "orphans", "--root", root); output != "" {
		t.Errorf("orphans on consistent store = %q", output)
	}

	// A blob with no row, as left behind when an index insert fails.
	// Copy one in from a second store.
	other := isolate(t)
	putState(t, other, `{"only-in-other":1}`)
	orphanSum := digest.SHA256.Sum([]byte(`{"only-in-other":1}`))
	data, err := os.ReadFile(filepath.Join(other, "blobs", orphanSum+".json.gz"))
	if err != nil {
		t.Fatalf("reading blob: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "blobs", orphanSum+".json.gz"), data, 0o644); err != nil {
		t.Fatalf("planting blob: %v", err)
	}
	if got := len(testutil.BlobFiles(t, root)); got != 2 {
		t.Fatalf("root has %d blobs, want 2", got)
	}

	if output := mustExecute(t, "orphans", "--root", root); strings.TrimSpace(output) != orphanSum {
		t.Errorf("orphans = %q, want %s", output, orphanSum)
	}

	var sums []string
	if err := json.Unmarshal([]byte(mustExecute(t, "orphans", "--root", root, "--json")), &sums); err != nil {
		t.Fatalf("orphans --json output: %v", err)
	}
	if diff := cmp.Diff([]string{orphanSum}, sums); diff != "" {
		t.Errorf("orphans mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigFile(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	root := filepath.Join(t.TempDir(), "store")
	configPath := writeFile(t, "agentsnap.yaml", `
paths:
  root: `+root+`
store:
  digest: blake3
log:
  level: error
`)

	id := strings.TrimSpace(mustExecute(t, "put", "--config", configPath, writeFile(t, "state.json", `{"z":1,"a":2}`)))

	var detail struct {
		Snapshot struct {
			StateHash string `json:"state_hash"`
		} `json:"snapshot"`
	}
	if err := json.Unmarshal([]byte(mustExecute(t, "show", "--config", configPath, "--json", id)), &detail); err != nil {
		t.Fatalf("show --json output: %v", err)
	}
	if want := digest.BLAKE3.Sum([]byte(`{"a":2,"z":1}`)); detail.Snapshot.StateHash != want {
		t.Errorf("state hash = %s, want BLAKE3 %s", detail.Snapshot.StateHash, want)
	}

	// The same file through the environment variable, with --root
	// taking precedence over paths.root.
	t.Setenv(config.EnvironmentVariable, configPath)
	if last := strings.TrimSpace(mustExecute(t, "last")); last != id {
		t.Errorf("last via %s = %q, want %q", config.EnvironmentVariable, last, id)
	}
	_, err := execute(t, "last", "--root", t.TempDir())
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		t.Errorf("last with --root override error = %v, want empty-store exit", err)
	}
}

func TestInvalidConfig(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	configPath := writeFile(t, "agentsnap.yaml", "store:\n  digest: md5\n")

	_, err := execute(t, "last", "--config", configPath, "--root", t.TempDir())
	requireCategory(t, err, cli.CategoryValidation)
}

func TestAlgorithmChangeRejected(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	root := t.TempDir()
	putState(t, root, `{"step":1}`)

	configPath := writeFile(t, "agentsnap.yaml", "store:\n  digest: blake3\n")
	_, err := execute(t, "last", "--config", configPath, "--root", root)
	requireCategory(t, err, cli.CategoryValidation)
	if !strings.Contains(err.Error(), "store.digest") {
		t.Errorf("error = %v, want hint naming store.digest", err)
	}
}

func TestVersion(t *testing.T) {
	if output := mustExecute(t, "version"); !strings.HasPrefix(output, "agentsnap ") {
		t.Errorf("version = %q", output)
	}

	var details struct {
		Version   string `json:"version"`
		GoVersion string `json:"go_version"`
	}
	if err := json.Unmarshal([]byte(mustExecute(t, "version", "--json")), &details); err != nil {
		t.Fatalf("version --json output: %v", err)
	}
	if details.Version == "" || details.GoVersion == "" {
		t.Errorf("version --json = %+v", details)
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/agentstate/lib/digest"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agentsnap.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Store.Digest != "sha256" {
		t.Errorf("expected digest=sha256, got %s", cfg.Store.Digest)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "auto" {
		t.Errorf("expected log info/auto, got %s/%s", cfg.Log.Level, cfg.Log.Format)
	}
	if !strings.HasSuffix(cfg.Paths.Root, filepath.Join(".cache", "agentsnap")) {
		t.Errorf("unexpected default root %s", cfg.Paths.Root)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() does not validate: %v", err)
	}
}

func TestLoad_RequiresConfigVariable(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when AGENTSNAP_CONFIG not set, got nil")
	}

	expectedMsg := "AGENTSNAP_CONFIG environment variable not set"
	if !strings.HasPrefix(err.Error(), expectedMsg) {
		t.Errorf("expected error message to start with %q, got %q", expectedMsg, err.Error())
	}
}

func TestLoad_WithConfigVariable(t *testing.T) {
	path := writeConfig(t, `
environment: staging
paths:
  root: /test/root
`)
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Environment != Staging {
		t.Errorf("expected environment=staging, got %s", cfg.Environment)
	}
	if cfg.Paths.Root != "/test/root" {
		t.Errorf("expected root=/test/root, got %s", cfg.Paths.Root)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
environment: production

paths:
  root: /srv/snapshots
  exports: /srv/audit

store:
  digest: blake3
  compression_level: 9
  pool_size: 8

log:
  level: debug
  format: json
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Paths.Root != "/srv/snapshots" || cfg.ExportsDir() != "/srv/audit" {
		t.Errorf("paths = %+v", cfg.Paths)
	}
	if cfg.Store.CompressionLevel != 9 || cfg.Store.PoolSize != 8 {
		t.Errorf("store = %+v", cfg.Store)
	}
	algorithm, err := cfg.Algorithm()
	if err != nil {
		t.Fatalf("Algorithm: %v", err)
	}
	if algorithm.Name() != digest.BLAKE3.Name() {
		t.Errorf("algorithm = %s, want blake3", algorithm)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel = %v, want debug", cfg.SlogLevel())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	path := writeConfig(t, "paths: [unterminated\n")
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
environment: production
paths:
  root: /base
store:
  no_compression: true
log:
  level: debug
production:
  paths:
    root: /prod
  store:
    digest: blake3
  log:
    level: warn
development:
  paths:
    root: /dev
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Paths.Root != "/prod" {
		t.Errorf("root = %s, want /prod", cfg.Paths.Root)
	}
	if cfg.Store.Digest != "blake3" {
		t.Errorf("digest = %s, want blake3", cfg.Store.Digest)
	}
	if cfg.Store.NoCompression {
		t.Error("no_compression should take the production section's value (false)")
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %s, want warn", cfg.Log.Level)
	}
}

func TestExpandVariables(t *testing.T) {
	t.Setenv("AGENTSNAP_TEST_DIR", "/from/env")

	tests := []struct {
		name        string
		content     string
		wantRoot    string
		wantExports string
	}{
		{
			name:        "root from environment",
			content:     "paths:\n  root: ${AGENTSNAP_TEST_DIR}/store\n",
			wantRoot:    "/from/env/store",
			wantExports: "/from/env/store/exports",
		},
		{
			name:        "exports relative to root",
			content:     "paths:\n  root: /r\n  exports: ${AGENTSNAP_ROOT}/out\n",
			wantRoot:    "/r",
			wantExports: "/r/out",
		},
		{
			name:        "default when unset",
			content:     "paths:\n  root: ${AGENTSNAP_TEST_UNSET:-/fallback}\n",
			wantRoot:    "/fallback",
			wantExports: "/fallback/exports",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg, err := LoadFile(writeConfig(t, test.content))
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			if cfg.Paths.Root != test.wantRoot {
				t.Errorf("root = %s, want %s", cfg.Paths.Root, test.wantRoot)
			}
			if cfg.ExportsDir() != test.wantExports {
				t.Errorf("exports = %s, want %s", cfg.ExportsDir(), test.wantExports)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad environment", func(c *Config) { c.Environment = "moon" }, "invalid environment"},
		{"no root", func(c *Config) { c.Paths.Root = "" }, "paths.root is required"},
		{"unknown digest", func(c *Config) { c.Store.Digest = "md5" }, "store.digest"},
		{"level too high", func(c *Config) { c.Store.CompressionLevel = 10 }, "store.compression_level"},
		{"level too low", func(c *Config) { c.Store.CompressionLevel = -4 }, "store.compression_level"},
		{"negative pool", func(c *Config) { c.Store.PoolSize = -1 }, "store.pool_size"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.modify(cfg)
			err := cfg.Validate()
			if test.wantErr == "" {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("Validate error = %v, want containing %q", err, test.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Paths.Root = ""
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, want := range []string{"paths.root", "log.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestEnsurePaths(t *testing.T) {
	cfg := Default()
	cfg.Paths.Root = filepath.Join(t.TempDir(), "root")

	if err := cfg.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths: %v", err)
	}
	for _, path := range []string{cfg.Paths.Root, cfg.ExportsDir()} {
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", path, err)
		}
	}
}

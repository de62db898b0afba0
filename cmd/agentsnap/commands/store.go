// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/agentstate/cmd/agentsnap/cli"
	"github.com/bureau-foundation/agentstate/lib/config"
	"github.com/bureau-foundation/agentstate/lib/snapindex"
	"github.com/bureau-foundation/agentstate/lib/snapshot"
)

// StoreParams selects the store a command operates on. It binds its
// own flags so every store command shares the same --root and
// --config handling.
type StoreParams struct {
	// Root overrides paths.root from the config file.
	Root string

	// Config names the YAML config file. Empty falls back to
	// AGENTSNAP_CONFIG, then to built-in defaults.
	Config string
}

// AddFlags binds --root and --config.
func (p *StoreParams) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&p.Root, "root", "", "snapshot store directory (default: paths.root from config)")
	flagSet.StringVar(&p.Config, "config", "", "config file (default: $"+config.EnvironmentVariable+")")
}

// loadConfig resolves the configuration: --config, then
// AGENTSNAP_CONFIG, then defaults. --root is applied last.
func (p *StoreParams) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case p.Config != "":
		cfg, err = config.LoadFile(p.Config)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, cli.Validation("%w", err)
	}

	if p.Root != "" {
		cfg.Paths.Root = p.Root
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Validation("invalid configuration: %w", err)
	}
	return cfg, nil
}

// session is an open store together with the configuration and
// logger it was opened with.
type session struct {
	service *snapshot.Service
	config  *config.Config
	logger  *slog.Logger
}

// open loads configuration and opens the snapshot store. The caller
// must Close the returned session.
func (p *StoreParams) open(ctx context.Context, command string) (*session, error) {
	cfg, err := p.loadConfig()
	if err != nil {
		return nil, err
	}

	algorithm, err := cfg.Algorithm()
	if err != nil {
		return nil, cli.Validation("%w", err)
	}

	logger := cli.NewCommandLogger(cfg.SlogLevel(), cfg.Log.Format).With(
		"command", command,
		"root", cfg.Paths.Root,
	)

	service, err := snapshot.Open(ctx, snapshot.Config{
		Root:             cfg.Paths.Root,
		Algorithm:        algorithm,
		CompressionLevel: cfg.Store.CompressionLevel,
		NoCompression:    cfg.Store.NoCompression,
		PoolSize:         cfg.Store.PoolSize,
		Logger:           logger,
	})
	if errors.Is(err, snapshot.ErrAlgorithmMismatch) {
		return nil, cli.Validation("opening store %s: %w", cfg.Paths.Root, err).
			WithHint("Set store.digest to the algorithm the store was created with.")
	}
	if err != nil {
		return nil, cli.Internal("opening store %s: %w", cfg.Paths.Root, err)
	}

	return &session{service: service, config: cfg, logger: logger}, nil
}

func (s *session) Close() {
	if err := s.service.Close(); err != nil {
		s.logger.Warn("closing store", "error", err)
	}
}

// storeError categorizes an error returned by the snapshot service.
func storeError(err error, format string, args ...any) error {
	message := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, snapshot.ErrNotFound):
		return cli.NotFound("%s: %w", message, err).
			WithHint("Run 'agentsnap list' to see stored snapshots.")
	case errors.Is(err, snapindex.ErrDuplicate):
		return cli.Conflict("%s: %w", message, err)
	case errors.Is(err, snapshot.ErrInvalidBundle):
		return cli.Validation("%s: %w", message, err)
	default:
		return cli.Internal("%s: %w", message, err)
	}
}

// fileError categorizes a failure to read an input file.
func fileError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return cli.NotFound("%w", err)
	}
	return cli.Validation("%w", err)
}

// requireArgs checks the positional argument count.
func requireArgs(args []string, count int, usage string) error {
	if len(args) != count {
		return cli.Validation("usage: %s", usage)
	}
	return nil
}

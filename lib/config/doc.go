// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the snapshot store
// and the agentsnap CLI.
//
// Configuration is loaded from a single YAML file specified by:
//   - the AGENTSNAP_CONFIG environment variable, or
//   - the --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
//
// A minimal file:
//
//	environment: production
//	paths:
//	  root: /var/lib/agentsnap
//	  exports: ${AGENTSNAP_ROOT}/exports
//	store:
//	  digest: blake3
//	  compression_level: 6
//	log:
//	  level: warn
//
// The file may contain environment-specific sections (development,
// staging, production) that override base values when the environment
// matches. Path values support ${VAR} and ${VAR:-default} expansion,
// where AGENTSNAP_ROOT refers to the resolved paths.root.
package config

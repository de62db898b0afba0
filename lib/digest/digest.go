// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Algorithm is a named digest function over raw bytes.
type Algorithm struct {
	name string
	size int
	sum  func(data []byte) []byte
}

var (
	// SHA256 hashes with SHA-256.
	SHA256 = Algorithm{
		name: "sha256",
		size: sha256.Size,
		sum: func(data []byte) []byte {
			sum := sha256.Sum256(data)
			return sum[:]
		},
	}

	// BLAKE3 hashes with unkeyed 32-byte BLAKE3.
	BLAKE3 = Algorithm{
		name: "blake3",
		size: 32,
		sum: func(data []byte) []byte {
			sum := blake3.Sum256(data)
			return sum[:]
		},
	}
)

// Default is the algorithm used when none is configured.
var Default = SHA256

// Name returns the algorithm's configuration name ("sha256", "blake3").
func (a Algorithm) Name() string { return a.name }

// HexLength returns the length of a formatted digest.
func (a Algorithm) HexLength() int { return a.size * 2 }

// IsZero reports whether a is the zero Algorithm (no function set).
func (a Algorithm) IsZero() bool { return a.sum == nil }

// Sum returns the hex-encoded digest of data.
func (a Algorithm) Sum(data []byte) string {
	return hex.EncodeToString(a.sum(data))
}

// Validate checks that s is a well-formed digest for this algorithm:
// exactly HexLength lowercase hex characters. Blob paths are derived
// from digests, so this also guarantees a digest can never name a
// path outside the blob directory.
func (a Algorithm) Validate(s string) error {
	if len(s) != a.HexLength() {
		return fmt.Errorf("digest: %s digest is %d characters, want %d", a.name, len(s), a.HexLength())
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("digest: invalid character %q at offset %d", c, i)
		}
	}
	return nil
}

// Parse returns the algorithm with the given configuration name. The
// empty string selects [Default].
func Parse(name string) (Algorithm, error) {
	switch name {
	case "":
		return Default, nil
	case SHA256.name:
		return SHA256, nil
	case BLAKE3.name:
		return BLAKE3, nil
	default:
		return Algorithm{}, fmt.Errorf("digest: unknown algorithm %q (want %q or %q)", name, SHA256.name, BLAKE3.name)
	}
}

// String returns the algorithm name.
func (a Algorithm) String() string { return a.name }

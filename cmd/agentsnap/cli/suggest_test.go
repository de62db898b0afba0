// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1}, // substitution
		{"abc", "ab", 1},  // deletion
		{"ab", "abc", 1},  // insertion
		{"abc", "bac", 2}, // transposition (counted as 2 edits)
		{"kitten", "sitting", 3},
		{"lineage", "lineag", 1},
		{"orphans", "orhpans", 2},
	}

	for _, test := range tests {
		t.Run(test.a+"->"+test.b, func(t *testing.T) {
			got := levenshtein(test.a, test.b)
			if got != test.want {
				t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
			}
		})
	}
}

func TestSuggestCommand(t *testing.T) {
	commands := []*Command{
		{Name: "put"},
		{Name: "get"},
		{Name: "lineage"},
		{Name: "orphans"},
	}

	tests := []struct {
		input string
		want  string
	}{
		{"lineag", "lineage"},
		{"orhpans", "orphans"},
		{"pt", "put"},
		{"completely-different", ""},
	}
	for _, test := range tests {
		if got := suggestCommand(test.input, commands); got != test.want {
			t.Errorf("suggestCommand(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestSuggestFlag(t *testing.T) {
	newFlagSet := func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flagSet.String("parent", "", "")
		flagSet.String("ledger", "", "")
		flagSet.BoolP("verbose", "v", false, "")
		return flagSet
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"typo", []string{"--parnet", "x"}, "--parent"},
		{"typo with value", []string{"--ledgr=file"}, "--ledger"},
		{"known flags skipped", []string{"--parent", "x", "--ledgre"}, "--ledger"},
		{"known shorthand skipped", []string{"-v", "--parnt"}, "--parent"},
		{"nothing close", []string{"--zzzzzzzz"}, ""},
		{"after terminator", []string{"--", "--parnet"}, ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := suggestFlag(test.args, newFlagSet()); got != test.want {
				t.Errorf("suggestFlag(%v) = %q, want %q", test.args, got, test.want)
			}
		})
	}
}

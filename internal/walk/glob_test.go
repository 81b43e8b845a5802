// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package walk

import "testing"

func TestMatchesGlob(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		pattern string
		want    bool
	}{
		{"star ext", "pkg/mod.py", "*.py", true},
		{"star ext miss", "pkg/mod.go", "*.py", false},
		{"double star dir", "vendor/foo/bar.py", "vendor/**", true},
		{"double star prefix name", "a/b/__pycache__/x.pyc", "**/__pycache__", true},
		{"question mark", "a/b1.py", "a/b?.py", true},
		{"char class", "a/b1.py", "a/b[0-9].py", true},
		{"char class negated no match", "a/bx.py", "a/b[!0-9].py", true},
		{"literal component", "src/tests/x.py", "tests", true},
		{"literal no match", "src/test/x.py", "tests", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesGlob(tt.path, tt.pattern); got != tt.want {
				t.Errorf("MatchesGlob(%q, %q) = %v, want %v", tt.path, tt.pattern, got, tt.want)
			}
		})
	}
}

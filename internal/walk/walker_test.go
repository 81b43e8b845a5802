// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package walk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestWalk_SortedOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.py"), "pass\n")
	writeFile(t, filepath.Join(root, "a.py"), "pass\n")
	writeFile(t, filepath.Join(root, "sub", "c.py"), "pass\n")
	writeFile(t, filepath.Join(root, "notes.txt"), "ignore me")

	result, err := Walk(root, nil)
	require.NoError(t, err)
	require.Len(t, result.Files, 3)
	assert.Equal(t, "a.py", result.Files[0].Path)
	assert.Equal(t, "b.py", result.Files[1].Path)
	assert.Equal(t, "sub/c.py", result.Files[2].Path)
}

func TestWalk_ExcludeGlobs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.py"), "pass\n")
	writeFile(t, filepath.Join(root, "vendor", "drop.py"), "pass\n")

	result, err := Walk(root, []string{"vendor/**"})
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.Equal(t, "keep.py", result.Files[0].Path)
}

func TestWalk_DoesNotFollowSymlinkEscapingRoot(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "secret.py"), "pass\n")

	linkPath := filepath.Join(root, "escape")
	if err := os.Symlink(outside, linkPath); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	result, err := Walk(root, nil)
	require.NoError(t, err)
	for _, f := range result.Files {
		assert.NotContains(t, f.AbsPath, "secret.py")
	}
}

func TestReadSource_UTF8(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.py")
	writeFile(t, path, "x = 1\n")

	contents, err := ReadSource(path)
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", contents)
}

func TestReadSource_UTF8BOM(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.py")
	bom := []byte{0xEF, 0xBB, 0xBF}
	require.NoError(t, os.WriteFile(path, append(bom, []byte("x = 1\n")...), 0o644))

	contents, err := ReadSource(path)
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", contents)
}

func TestReadSource_Latin1Fallback(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.py")
	// 0xE9 alone is invalid UTF-8 but is "é" in Latin-1/CP1252.
	require.NoError(t, os.WriteFile(path, []byte("name = \"caf\xe9\"\n"), 0o644))

	contents, err := ReadSource(path)
	require.NoError(t, err)
	assert.Contains(t, contents, "caf")
}

func TestReadSource_MissingFile(t *testing.T) {
	_, err := ReadSource(filepath.Join(t.TempDir(), "missing.py"))
	require.Error(t, err)
}

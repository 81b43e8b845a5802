// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package walk implements the File Walker: a sorted, symlink-safe recursive
// enumeration of source files under a root directory, plus the
// UTF-8 → UTF-8-BOM → Latin-1 → CP1252 decode fallback chain used to read
// them.
package walk

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/kraklabs/smellbench/internal/smellerr"
)

// SourceExtension is the only file extension the walker yields for parsing.
const SourceExtension = ".py"

// File describes one discovered source file.
type File struct {
	// Path is the path relative to the walked root, slash-separated.
	Path string
	// AbsPath is the absolute path on disk.
	AbsPath string
	Size    int64
}

// Result is the outcome of one walk: the sorted file list plus failures
// recorded while reading/decoding individual files (never fatal).
type Result struct {
	Files    []File
	Failures []*smellerr.AnalysisError
}

// Walk recursively enumerates source files under root in stable (sorted)
// order. It never follows a symlink that would escape root. excludeGlobs
// are matched against the root-relative, slash-separated path of every
// file and directory (directories matching a pattern are pruned entirely).
func Walk(root string, excludeGlobs []string) (*Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	resolvedRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	var files []File
	var failures []*smellerr.AnalysisError

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			failures = append(failures, smellerr.NewFileReadError(path, err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		relPath, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.Type()&os.ModeSymlink != 0 {
			target, evalErr := filepath.EvalSymlinks(path)
			if evalErr != nil || !withinRoot(resolvedRoot, target) {
				return nil // refuse to follow symlinks that escape the root
			}
		}

		if relPath != "." && matchesAnyGlob(relPath, excludeGlobs) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if strings.ToLower(filepath.Ext(path)) != SourceExtension {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			failures = append(failures, smellerr.NewFileReadError(relPath, infoErr))
			return nil
		}

		files = append(files, File{Path: relPath, AbsPath: path, Size: info.Size()})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	return &Result{Files: files, Failures: failures}, nil
}

func matchesAnyGlob(path string, patterns []string) bool {
	for _, p := range patterns {
		if MatchesGlob(path, p) {
			return true
		}
	}
	return false
}

func withinRoot(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}

// ReadSource reads a file's contents, decoding it with the fallback chain
// UTF-8 → UTF-8-with-BOM → Latin-1 → CP1252. Returns a FileRead
// *smellerr.AnalysisError if every decoding attempt fails.
func ReadSource(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", smellerr.NewFileReadError(path, err)
	}

	if trimmed, ok := stripUTF8BOM(raw); ok {
		if utf8.Valid(trimmed) {
			return string(trimmed), nil
		}
	} else if utf8.Valid(raw) {
		return string(raw), nil
	}

	if s, ok := decodeWith(charmap.ISO8859_1, raw); ok {
		return s, nil
	}
	if s, ok := decodeWith(charmap.Windows1252, raw); ok {
		return s, nil
	}

	return "", smellerr.NewFileReadError(path, errUnsupportedEncoding)
}

var errUnsupportedEncoding = &encodingError{}

type encodingError struct{}

func (*encodingError) Error() string {
	return "could not decode file as UTF-8, UTF-8 with BOM, Latin-1, or CP1252"
}

func stripUTF8BOM(b []byte) ([]byte, bool) {
	bom := []byte{0xEF, 0xBB, 0xBF}
	if bytes.HasPrefix(b, bom) {
		return b[len(bom):], true
	}
	return b, false
}

func decodeWith(cm *charmap.Charmap, raw []byte) (string, bool) {
	decoded, _, err := transform.Bytes(cm.NewDecoder(), raw)
	if err != nil {
		return "", false
	}
	return string(decoded), true
}

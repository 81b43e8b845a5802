// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"github.com/kraklabs/smellbench/internal/parse"
)

// LOCBreakdown is the line-classification tally for one module.
type LOCBreakdown struct {
	Code   int
	Doc    int
	Import int
	Blank  int
}

// ModuleInfo is the shared per-module record.
type ModuleInfo struct {
	ID       string // relative path, separators replaced by ".", extension and a trailing "__init__" stripped (see ModuleID)
	FilePath string
	Source   []byte

	LineCount int
	LOC       LOCBreakdown
	Lines     []parse.LineKind

	TopLevelFunctions []*MethodInfo
	Classes           []*ClassInfo

	// APICalls is the multiset of attribute-access names used as x.call()
	// anywhere in the module (top-level functions and methods alike).
	APICalls map[string]int

	Imports []parse.ImportRef

	// filled in by the builder once external classification runs
	StdlibImports     []string
	ThirdPartyImports []string
	IntraProjectEdges []string // resolved target module IDs
}

// NewModuleInfo builds a ModuleInfo from one parsed file's extracted
// module-level data. The dependency-classification fields are left empty
// for the builder to fill in once all modules are known.
func NewModuleInfo(id, filePath string, source []byte, mod *parse.Module) *ModuleInfo {
	lines := parse.ClassifyLines(string(source))
	m := &ModuleInfo{
		ID:        id,
		FilePath:  filePath,
		Source:    source,
		LineCount: len(lines),
		Lines:     lines,
		LOC: LOCBreakdown{
			Code:   parse.CountKind(lines, parse.LineCode),
			Doc:    parse.CountKind(lines, parse.LineDocstring),
			Import: parse.CountKind(lines, parse.LineImport),
			Blank:  parse.CountKind(lines, parse.LineBlank),
		},
		APICalls: make(map[string]int),
		Imports:  mod.Imports,
	}

	for _, fn := range mod.TopFunctions {
		mi := NewMethodInfo(fn)
		m.TopLevelFunctions = append(m.TopLevelFunctions, mi)
		for _, call := range extractCallRefs(fn.Body, fn.Source) {
			m.APICalls[call.Member]++
		}
	}
	for _, cls := range mod.Classes {
		ci := NewClassInfo(id, cls)
		m.Classes = append(m.Classes, ci)
		for _, calls := range ci.MethodCalls {
			for _, call := range calls {
				m.APICalls[call.Member]++
			}
		}
	}

	return m
}

// IsTestModule reports whether this module's identifier looks like a test
// module (used by several structural/architectural rules that exclude
// tests from their population).
func (m *ModuleInfo) IsTestModule() bool {
	return containsFold(m.ID, "test")
}

func containsFold(haystack, needle string) bool {
	h := []byte(haystack)
	n := []byte(needle)
	for i := 0; i+len(n) <= len(h); i++ {
		match := true
		for j := range n {
			a, b := h[i+j], n[j]
			if 'A' <= a && a <= 'Z' {
				a += 'a' - 'A'
			}
			if 'A' <= b && b <= 'Z' {
				b += 'a' - 'A'
			}
			if a != b {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

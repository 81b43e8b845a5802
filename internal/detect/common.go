// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package detect implements the three detector families: code-smell,
// structural-smell, and architectural-smell. Each detector reads only the
// shared model and its own threshold bundle; none mutates the model.
package detect

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/smellbench/internal/model"
)

// severityFor applies the common "High if > 1.5x threshold, else Medium"
// policy. Intrinsically-advisory rules call lowSeverity instead.
func severityFor(metric, threshold float64) model.Severity {
	if threshold <= 0 {
		return model.Medium
	}
	if metric > 1.5*threshold {
		return model.High
	}
	return model.Medium
}

const lowSeverity = model.Low

func newFinding(kind model.FindingKind, name, description, filePath, moduleOrClass string, line int, sev model.Severity) model.Finding {
	return model.Finding{
		Kind:          kind,
		Name:          name,
		Description:   description,
		FilePath:      filePath,
		ModuleOrClass: moduleOrClass,
		LineNumber:    line,
		Severity:      sev,
	}
}

func codeFinding(name, description, filePath, moduleOrClass string, line int, sev model.Severity) model.Finding {
	return newFinding(model.Code, name, description, filePath, moduleOrClass, line, sev)
}

func hasSuffixAny(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

func isPrivateName(name string) bool {
	return strings.HasPrefix(name, "_") && !isMagic(name)
}

func isMagic(name string) bool {
	return len(name) > 4 && strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}

// nonReceiverParams drops the first parameter (the receiver) when present.
func nonReceiverParams(m *model.MethodInfo) []string {
	names := m.ParamNames()
	if len(names) == 0 {
		return nil
	}
	if names[0] == "self" || names[0] == "cls" {
		return names[1:]
	}
	return names
}

// collectIdentifiers returns every identifier token's text referenced
// anywhere within n (used for unused-parameter analysis and similar
// reference checks).
func collectIdentifiers(n *sitter.Node, source []byte) map[string]bool {
	refs := make(map[string]bool)
	if n == nil {
		return refs
	}
	var walk func(*sitter.Node)
	walk = func(cur *sitter.Node) {
		if cur.Type() == "identifier" {
			refs[cur.Content(source)] = true
		}
		count := int(cur.NamedChildCount())
		for i := 0; i < count; i++ {
			walk(cur.NamedChild(i))
		}
	}
	walk(n)
	return refs
}

// bodyIsNoOp reports whether a method's first (and effectively only)
// statement is `pass`, `...`, or a bare docstring.
func bodyIsNoOp(body *sitter.Node) bool {
	if body == nil {
		return true
	}
	count := int(body.NamedChildCount())
	for i := 0; i < count; i++ {
		stmt := body.NamedChild(i)
		switch stmt.Type() {
		case "pass_statement":
			return true
		case "expression_statement":
			if stmt.NamedChildCount() == 0 {
				continue
			}
			inner := stmt.NamedChild(0)
			if inner.Type() == "string" || inner.Type() == "ellipsis" {
				continue
			}
			return false
		default:
			return false
		}
	}
	return true
}

func fmtFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

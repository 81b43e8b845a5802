// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/smellbench/internal/parse"
)

// CallRef is one syntactic member-access call found in a method body:
// `receiver.member(...)`. Receiver is the textual expression the access
// was made on (often "self", sometimes another identifier or chain).
type CallRef struct {
	Receiver string
	Member   string
	Line     int
}

// ClassInfo is the shared per-class record: methods, fields, resolved
// bases, and per-method call edges. Built once and shared read-only.
type ClassInfo struct {
	ID     string // "module.ClassName"
	Module string
	Name   string

	BaseClasses []string // resolved to module.Class when possible, else verbatim
	Decorators  []string
	Methods     []*MethodInfo
	Fields      []string // deduplicated instance field names assigned anywhere via self.x = ...
	MethodCalls map[string][]CallRef

	StartLine int
	EndLine   int
	Kind      ClassKind
}

// NewClassInfo builds a ClassInfo from a parsed class node. BaseClasses
// are left as the verbatim source text; the Project Model Builder resolves
// them to module.Class identifiers afterward.
func NewClassInfo(moduleID string, cls *parse.ClassNode) *ClassInfo {
	c := &ClassInfo{
		ID:          moduleID + "." + cls.Name,
		Module:      moduleID,
		Name:        cls.Name,
		BaseClasses: append([]string(nil), cls.Bases...),
		Decorators:  cls.Decorators,
		StartLine:   cls.StartLine,
		EndLine:     cls.EndLine,
		MethodCalls: make(map[string][]CallRef),
	}

	fieldSet := make(map[string]bool)
	for _, fn := range cls.Methods {
		m := NewMethodInfo(fn)
		c.Methods = append(c.Methods, m)

		receiver := receiverName(fn)
		if m.Body != nil {
			for _, name := range selfAssignedFields(m.Body, m.Source, receiver) {
				fieldSet[name] = true
			}
			c.MethodCalls[m.Name] = extractCallRefs(m.Body, m.Source)
		}
	}
	for name := range fieldSet {
		c.Fields = append(c.Fields, name)
	}

	c.Kind = classifyClass(c)
	return c
}

func receiverName(fn *parse.FunctionNode) string {
	if len(fn.Params) == 0 {
		return "self"
	}
	first := fn.Params[0]
	if first.IsVarArgs || first.IsKwargs {
		return "self"
	}
	return first.Name
}

// selfAssignedFields returns the "receiver.name" targets assigned anywhere
// in body, reduced to the bare field name, one entry per assignment
// (duplicates included).
func selfAssignedFields(body *sitter.Node, source []byte, receiver string) []string {
	var out []string
	walkBody(body, func(n *sitter.Node) {
		if n.Type() != "assignment" {
			return
		}
		left := n.ChildByFieldName("left")
		if left == nil || left.Type() != "attribute" {
			return
		}
		obj := left.ChildByFieldName("object")
		attr := left.ChildByFieldName("attribute")
		if obj == nil || attr == nil {
			return
		}
		if obj.Content(source) != receiver {
			return
		}
		out = append(out, attr.Content(source))
	})
	return out
}

// extractCallRefs returns every `receiver.member(...)` call found in body.
func extractCallRefs(body *sitter.Node, source []byte) []CallRef {
	var out []CallRef
	walkBody(body, func(n *sitter.Node) {
		if n.Type() != "call" {
			return
		}
		fn := n.ChildByFieldName("function")
		if fn == nil || fn.Type() != "attribute" {
			return
		}
		obj := fn.ChildByFieldName("object")
		attr := fn.ChildByFieldName("attribute")
		if obj == nil || attr == nil {
			return
		}
		out = append(out, CallRef{
			Receiver: obj.Content(source),
			Member:   attr.Content(source),
			Line:     int(n.StartPoint().Row) + 1,
		})
	})
	return out
}

func classifyClass(c *ClassInfo) ClassKind {
	for _, d := range c.Decorators {
		if baseName(d) == "dataclass" {
			return DataClass
		}
	}
	for _, b := range c.BaseClasses {
		if strings.HasSuffix(baseName(b), "Exception") || strings.HasSuffix(baseName(b), "Error") {
			return ExceptionClass
		}
	}
	if strings.HasSuffix(c.Name, "Mixin") {
		return MixinClass
	}
	if looksAbstract(c) {
		return AbstractClass
	}
	if strings.HasSuffix(c.Name, "Utils") || strings.HasSuffix(c.Name, "Helper") {
		return UtilityClass
	}
	if isTestClassName(c.Name) || hasTestCaseBase(c.BaseClasses) {
		return TestClass
	}
	return RegularClass
}

func looksAbstract(c *ClassInfo) bool {
	for _, suffix := range []string{"ABC", "Interface", "Base", "Abstract"} {
		if strings.Contains(c.Name, suffix) {
			return true
		}
	}
	for _, b := range c.BaseClasses {
		base := baseName(b)
		if base == "ABC" || strings.Contains(base, "Abstract") {
			return true
		}
	}
	return false
}

func isTestClassName(name string) bool {
	return strings.HasPrefix(name, "Test") || strings.HasSuffix(name, "Test") || strings.HasSuffix(name, "Tests")
}

func hasTestCaseBase(bases []string) bool {
	for _, b := range bases {
		if strings.Contains(b, "TestCase") {
			return true
		}
	}
	return false
}

func baseName(dotted string) string {
	if idx := strings.LastIndex(dotted, "."); idx >= 0 {
		return dotted[idx+1:]
	}
	return dotted
}

// NonMagicMethods returns methods excluding dunder methods.
func (c *ClassInfo) NonMagicMethods() []*MethodInfo {
	var out []*MethodInfo
	for _, m := range c.Methods {
		if m.Kind != MagicMethod {
			out = append(out, m)
		}
	}
	return out
}

// MethodByName finds a method by name, or nil.
func (c *ClassInfo) MethodByName(name string) *MethodInfo {
	for _, m := range c.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

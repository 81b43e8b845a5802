// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/smellbench/internal/parse"
)

// MethodInfo is a function or method definition plus metrics derived on
// demand from its body AST.
type MethodInfo struct {
	Name       string
	StartLine  int
	EndLine    int
	Params     []parse.Param
	HasVarArgs bool
	HasKwargs  bool
	Decorators []string
	Body       *sitter.Node
	Source     []byte

	Kind MethodKind
}

// NewMethodInfo builds a MethodInfo from a parsed function node and
// classifies its MethodKind.
func NewMethodInfo(fn *parse.FunctionNode) *MethodInfo {
	m := &MethodInfo{
		Name:       fn.Name,
		StartLine:  fn.StartLine,
		EndLine:    fn.EndLine,
		Params:     fn.Params,
		HasVarArgs: fn.HasVarArgs(),
		HasKwargs:  fn.HasKwargs(),
		Decorators: fn.Decorators,
		Body:       fn.Body,
		Source:     fn.Source,
	}
	m.Kind = classifyMethod(m)
	return m
}

func classifyMethod(m *MethodInfo) MethodKind {
	if isMagicName(m.Name) {
		return MagicMethod
	}
	if hasDecoratorNamed(m.Decorators, "property") {
		return PropertyMethod
	}
	if isAccessorBody(m.Body, m.Source) {
		return AccessorMethod
	}
	return RegularMethod
}

func isMagicName(name string) bool {
	return len(name) > 4 && name[:2] == "__" && name[len(name)-2:] == "__"
}

func hasDecoratorNamed(decorators []string, name string) bool {
	for _, d := range decorators {
		base := d
		for i := len(base) - 1; i >= 0; i-- {
			if base[i] == '.' {
				base = base[i+1:]
				break
			}
		}
		if base == name {
			return true
		}
	}
	return false
}

// isAccessorBody reports whether a method body is a single statement that
// is either a bare return or a bare assignment (Glossary: Accessor).
func isAccessorBody(body *sitter.Node, source []byte) bool {
	if body == nil {
		return false
	}
	stmts := namedStatements(body)
	if len(stmts) != 1 {
		return false
	}
	switch stmts[0].Type() {
	case "return_statement", "expression_statement":
		if stmts[0].Type() == "expression_statement" && stmts[0].NamedChildCount() > 0 {
			return stmts[0].NamedChild(0).Type() == "assignment"
		}
		return stmts[0].Type() == "return_statement"
	default:
		return false
	}
}

// namedStatements returns the direct named children of a block node,
// skipping a leading docstring expression statement.
func namedStatements(block *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	count := int(block.NamedChildCount())
	for i := 0; i < count; i++ {
		child := block.NamedChild(i)
		if i == 0 && isDocstringExprStatement(child) {
			continue
		}
		out = append(out, child)
	}
	return out
}

func isDocstringExprStatement(n *sitter.Node) bool {
	if n.Type() != "expression_statement" || n.NamedChildCount() == 0 {
		return false
	}
	return n.NamedChild(0).Type() == "string"
}

// ParamCount is the declared parameter count including the receiver.
func (m *MethodInfo) ParamCount() int {
	return len(m.Params)
}

// ParamNames returns declared parameter names in order.
func (m *MethodInfo) ParamNames() []string {
	names := make([]string, 0, len(m.Params))
	for _, p := range m.Params {
		names = append(names, p.Name)
	}
	return names
}

// CyclomaticComplexity counts 1 + one per decision point in the method
// body: if, elif (each elif_clause of a chain), for, while, except, and one
// per boolean-operator node (chained and/or).
func (m *MethodInfo) CyclomaticComplexity() int {
	if m.Body == nil {
		return 1
	}
	complexity := 1
	walkBody(m.Body, func(n *sitter.Node) {
		switch n.Type() {
		case "if_statement", "elif_clause", "for_statement", "while_statement", "except_clause":
			complexity++
		case "boolean_operator":
			complexity++
		}
	})
	return complexity
}

// NumReturns counts return statements in the method body.
func (m *MethodInfo) NumReturns() int {
	if m.Body == nil {
		return 0
	}
	n := 0
	walkBody(m.Body, func(node *sitter.Node) {
		if node.Type() == "return_statement" {
			n++
		}
	})
	return n
}

// MaxNestingDepth returns the deepest lexical nesting of block-opening
// constructs (if/for/while/try) within the method body.
func (m *MethodInfo) MaxNestingDepth() int {
	if m.Body == nil {
		return 0
	}
	return nestingDepth(m.Body, 0)
}

var blockOpeners = map[string]bool{
	"if_statement":    true,
	"for_statement":   true,
	"while_statement": true,
	"try_statement":   true,
}

func nestingDepth(n *sitter.Node, depth int) int {
	max := depth
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		if child.Type() == "function_definition" || child.Type() == "class_definition" {
			continue
		}
		childDepth := depth
		if blockOpeners[child.Type()] {
			childDepth++
		}
		if d := nestingDepth(child, childDepth); d > max {
			max = d
		}
	}
	return max
}

// walkBody visits every descendant of n (depth-first), not crossing into
// nested function or class definitions.
func walkBody(n *sitter.Node, visit func(*sitter.Node)) {
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		visit(child)
		if child.Type() == "function_definition" || child.Type() == "class_definition" {
			continue
		}
		walkBody(child, visit)
	}
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package parse

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Param is one declared parameter of a function or method.
type Param struct {
	Name         string
	Annotation   string // best-effort text of a type annotation, "" if none
	IsVarArgs    bool   // *args
	IsKwargs     bool   // **kwargs
	HasDefault   bool
}

// FunctionNode is a function or method definition recovered from the tree.
type FunctionNode struct {
	Name       string
	Params     []Param
	Decorators []string
	StartLine  int
	EndLine    int
	Node       *sitter.Node // function_definition
	Body       *sitter.Node // the function's suite/block
	Source     []byte
}

// HasVarArgs reports whether *args is declared.
func (f *FunctionNode) HasVarArgs() bool {
	for _, p := range f.Params {
		if p.IsVarArgs {
			return true
		}
	}
	return false
}

// HasKwargs reports whether **kwargs is declared.
func (f *FunctionNode) HasKwargs() bool {
	for _, p := range f.Params {
		if p.IsKwargs {
			return true
		}
	}
	return false
}

// ParamNames returns declared parameter names in order, including the
// receiver if present.
func (f *FunctionNode) ParamNames() []string {
	names := make([]string, 0, len(f.Params))
	for _, p := range f.Params {
		names = append(names, p.Name)
	}
	return names
}

// HasDecorator reports whether any decorator's base name matches name
// (e.g. "property", "dataclass", "staticmethod").
func (f *FunctionNode) HasDecorator(name string) bool {
	return hasDecorator(f.Decorators, name)
}

// ClassNode is a class definition recovered from the tree.
type ClassNode struct {
	Name       string
	Bases      []string // verbatim base-class expressions, e.g. "Exception", "pkg.Base"
	Decorators []string
	StartLine  int
	EndLine    int
	Node       *sitter.Node
	Body       *sitter.Node
	Methods    []*FunctionNode
}

// HasDecorator reports whether any decorator's base name matches name.
func (c *ClassNode) HasDecorator(name string) bool {
	return hasDecorator(c.Decorators, name)
}

func hasDecorator(decorators []string, name string) bool {
	for _, d := range decorators {
		base := d
		if idx := strings.LastIndex(base, "."); idx >= 0 {
			base = base[idx+1:]
		}
		if base == name {
			return true
		}
	}
	return false
}

// ImportRef is one module-level import.
type ImportRef struct {
	// Name is the dotted module path imported, e.g. "os.path" or "pkg.sub".
	Name string
	// Alias is the "as" binding, if any.
	Alias string
	Line  int
}

// Module is everything extracted from one file's module-level scope.
type Module struct {
	Imports       []ImportRef
	TopFunctions  []*FunctionNode
	Classes       []*ClassNode
}

// ExtractModule walks the direct children of root (a "module" node) and
// recovers imports, top-level functions, and classes (with their methods).
func ExtractModule(root *sitter.Node, source []byte) *Module {
	mod := &Module{}
	count := int(root.NamedChildCount())
	for i := 0; i < count; i++ {
		child := root.NamedChild(i)
		extractModuleLevelStatement(child, source, mod)
	}
	return mod
}

func extractModuleLevelStatement(node *sitter.Node, source []byte, mod *Module) {
	switch node.Type() {
	case "import_statement":
		mod.Imports = append(mod.Imports, extractImportStatement(node, source)...)
	case "import_from_statement":
		mod.Imports = append(mod.Imports, extractImportFromStatement(node, source)...)
	case "decorated_definition":
		decorators := extractDecorators(node, source)
		def := node.ChildByFieldName("definition")
		if def == nil {
			// fall back: last named child is the definition
			if n := int(node.NamedChildCount()); n > 0 {
				def = node.NamedChild(n - 1)
			}
		}
		if def == nil {
			return
		}
		switch def.Type() {
		case "function_definition":
			if fn := extractFunction(def, source, decorators); fn != nil {
				mod.TopFunctions = append(mod.TopFunctions, fn)
			}
		case "class_definition":
			if cls := extractClass(def, source, decorators); cls != nil {
				mod.Classes = append(mod.Classes, cls)
			}
		}
	case "function_definition":
		if fn := extractFunction(node, source, nil); fn != nil {
			mod.TopFunctions = append(mod.TopFunctions, fn)
		}
	case "class_definition":
		if cls := extractClass(node, source, nil); cls != nil {
			mod.Classes = append(mod.Classes, cls)
		}
	}
}

func extractDecorators(decorated *sitter.Node, source []byte) []string {
	var out []string
	count := int(decorated.NamedChildCount())
	for i := 0; i < count; i++ {
		child := decorated.NamedChild(i)
		if child.Type() != "decorator" {
			continue
		}
		if child.NamedChildCount() == 0 {
			continue
		}
		expr := child.NamedChild(0)
		out = append(out, decoratorExprName(expr, source))
	}
	return out
}

// decoratorExprName reduces a decorator expression (identifier, attribute,
// or call) to its dotted name, dropping any call arguments.
func decoratorExprName(expr *sitter.Node, source []byte) string {
	if expr == nil {
		return ""
	}
	switch expr.Type() {
	case "call":
		fn := expr.ChildByFieldName("function")
		return decoratorExprName(fn, source)
	default:
		return text(expr, source)
	}
}

func extractFunction(node *sitter.Node, source []byte, decorators []string) *FunctionNode {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	params := node.ChildByFieldName("parameters")
	body := node.ChildByFieldName("body")

	return &FunctionNode{
		Name:       text(nameNode, source),
		Params:     extractParams(params, source),
		Decorators: decorators,
		StartLine:  line1(node),
		EndLine:    endLine1(node),
		Node:       node,
		Body:       body,
		Source:     source,
	}
}

func extractParams(params *sitter.Node, source []byte) []Param {
	if params == nil {
		return nil
	}
	var out []Param
	count := int(params.NamedChildCount())
	for i := 0; i < count; i++ {
		child := params.NamedChild(i)
		raw := text(child, source)
		switch child.Type() {
		case "identifier":
			out = append(out, Param{Name: raw})
		case "list_splat_pattern":
			out = append(out, Param{Name: strings.TrimPrefix(raw, "*"), IsVarArgs: true})
		case "dictionary_splat_pattern":
			out = append(out, Param{Name: strings.TrimPrefix(raw, "**"), IsKwargs: true})
		case "default_parameter", "typed_default_parameter", "typed_parameter":
			out = append(out, splitParamText(raw, child.Type() != "default_parameter", child.Type() != "typed_parameter"))
		default:
			// keyword_separator "*", positional_separator "/", or unknown: ignore
		}
	}
	return out
}

// splitParamText best-effort splits "name: Annotation = default" text into
// its parts. Grounded the same way the engine's duplicate-detection
// fallback is: Tree-sitter gives us the node, but pulling the annotation
// and default apart by field name varies across grammar versions, so raw
// text splitting is used instead.
func splitParamText(raw string, _ bool, hasDefault bool) Param {
	name := raw
	ann := ""
	if idx := strings.Index(raw, ":"); idx >= 0 {
		name = strings.TrimSpace(raw[:idx])
		rest := raw[idx+1:]
		if eq := strings.Index(rest, "="); eq >= 0 {
			ann = strings.TrimSpace(rest[:eq])
		} else {
			ann = strings.TrimSpace(rest)
		}
	} else if eq := strings.Index(raw, "="); eq >= 0 {
		name = strings.TrimSpace(raw[:eq])
	}
	return Param{Name: name, Annotation: ann, HasDefault: hasDefault}
}

func extractClass(node *sitter.Node, source []byte, decorators []string) *ClassNode {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	body := node.ChildByFieldName("body")
	cls := &ClassNode{
		Name:       text(nameNode, source),
		Bases:      extractBases(node, source),
		Decorators: decorators,
		StartLine:  line1(node),
		EndLine:    endLine1(node),
		Node:       node,
		Body:       body,
	}

	if body != nil {
		count := int(body.NamedChildCount())
		for i := 0; i < count; i++ {
			child := body.NamedChild(i)
			switch child.Type() {
			case "function_definition":
				if fn := extractFunction(child, source, nil); fn != nil {
					cls.Methods = append(cls.Methods, fn)
				}
			case "decorated_definition":
				decs := extractDecorators(child, source)
				def := child.ChildByFieldName("definition")
				if def == nil {
					if n := int(child.NamedChildCount()); n > 0 {
						def = child.NamedChild(n - 1)
					}
				}
				if def != nil && def.Type() == "function_definition" {
					if fn := extractFunction(def, source, decs); fn != nil {
						cls.Methods = append(cls.Methods, fn)
					}
				}
			}
		}
	}

	return cls
}

func extractBases(classNode *sitter.Node, source []byte) []string {
	superclasses := classNode.ChildByFieldName("superclasses")
	if superclasses == nil {
		return nil
	}
	var out []string
	count := int(superclasses.NamedChildCount())
	for i := 0; i < count; i++ {
		child := superclasses.NamedChild(i)
		if child.Type() == "keyword_argument" {
			continue // metaclass=... and similar
		}
		out = append(out, text(child, source))
	}
	return out
}

func extractImportStatement(node *sitter.Node, source []byte) []ImportRef {
	var out []ImportRef
	ln := line1(node)
	count := int(node.NamedChildCount())
	for i := 0; i < count; i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			out = append(out, ImportRef{Name: text(child, source), Line: ln})
		case "aliased_import":
			name := child.ChildByFieldName("name")
			alias := child.ChildByFieldName("alias")
			out = append(out, ImportRef{Name: text(name, source), Alias: text(alias, source), Line: ln})
		}
	}
	return out
}

func extractImportFromStatement(node *sitter.Node, source []byte) []ImportRef {
	moduleNode := node.ChildByFieldName("module_name")
	moduleName := text(moduleNode, source)
	ln := line1(node)

	// Relative imports ("from . import x", "from .. pkg import y") have no
	// resolvable absolute target without knowing the importing module's own
	// package path; the caller (model builder) resolves these against the
	// importing module's identifier.
	if moduleNode != nil && moduleNode.Type() == "relative_import" {
		return []ImportRef{{Name: "." + moduleName, Line: ln}}
	}

	if moduleName == "" {
		return nil
	}
	ref := ImportRef{Name: moduleName, Line: ln}
	count := int(node.NamedChildCount())
	for i := 0; i < count; i++ {
		if child := node.NamedChild(i); child.Type() == "aliased_import" {
			ref.Alias = text(child.ChildByFieldName("alias"), source)
			break
		}
	}
	return []ImportRef{ref}
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package parse implements the Parser + AST component: a Tree-sitter based
// parser for the target source language, plus the line-classification
// state machine shared by the "excessive comments", "LOC", and
// "file length" rules.
package parse

import (
	"context"
	"fmt"
	"log/slog"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/kraklabs/smellbench/internal/smellerr"
)

// File is a parsed source file: the syntax tree plus the raw bytes the tree
// was built from (needed to slice out identifier/docstring text via
// node.Content). The tree is kept open for the file's lifetime so detector
// rules can walk it directly; Close releases it, after which no node of the
// tree may be used.
type File struct {
	Path   string // module-relative path, e.g. "pkg/sub.py"
	Source []byte
	Tree   *sitter.Tree
	Root   *sitter.Node
}

// Close releases the underlying Tree-sitter tree.
func (f *File) Close() {
	if f.Tree != nil {
		f.Tree.Close()
	}
}

// Parser wraps a single Tree-sitter grammar instance. It is not safe for
// concurrent use by multiple goroutines on the same *Parser; callers that
// parallelize file parsing should use one Parser per worker.
type Parser struct {
	ts     *sitter.Parser
	logger *slog.Logger
}

// NewParser constructs a Parser bound to the Python grammar.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	ts := sitter.NewParser()
	ts.SetLanguage(python.GetLanguage())
	return &Parser{ts: ts, logger: logger}
}

// ParseFile parses source into a syntax tree. Parse refusals never abort
// the batch: a *smellerr.AnalysisError of kind Parse is returned and the
// caller is expected to skip the file.
func (p *Parser) ParseFile(path string, source []byte) (*File, error) {
	tree, err := p.ts.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, smellerr.NewParseError(path, 0, err)
	}

	root := tree.RootNode()
	if root == nil {
		tree.Close()
		return nil, smellerr.NewParseError(path, 0, fmt.Errorf("empty parse tree"))
	}
	if root.HasError() {
		p.logger.Debug("parser.syntax_errors", "path", path)
	}

	return &File{Path: path, Source: source, Tree: tree, Root: root}, nil
}

// text returns a node's source text.
func text(n *sitter.Node, source []byte) string {
	if n == nil {
		return ""
	}
	return n.Content(source)
}

func line1(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	return int(n.StartPoint().Row) + 1
}

func endLine1(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	return int(n.EndPoint().Row) + 1
}

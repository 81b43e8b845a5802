// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/smellbench/internal/parse"
	"github.com/kraklabs/smellbench/internal/walk"
)

func TestModuleID(t *testing.T) {
	assert.Equal(t, "pkg.sub", ModuleID("pkg/sub.py"))
	assert.Equal(t, "pkg", ModuleID("pkg/__init__.py"))
	assert.Equal(t, "top", ModuleID("top.py"))
}

func writePy(t *testing.T, root, relPath, contents string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(contents), 0o644))
}

func buildProject(t *testing.T, root string) *Project {
	t.Helper()
	result, err := walk.Walk(root, nil)
	require.NoError(t, err)
	proj, failures := Build(result.Files, parse.NewParser(nil), nil)
	assert.Empty(t, failures)
	return proj
}

func TestBuild_ClassifiesImports(t *testing.T) {
	root := t.TempDir()
	writePy(t, root, "a.py", "import os\nimport pkg.b\n")
	writePy(t, root, "pkg/b.py", "x = 1\n")

	proj := buildProject(t, root)
	a := proj.Modules["a"]
	require.NotNil(t, a)
	assert.Contains(t, a.StdlibImports, "os")
	assert.Contains(t, a.IntraProjectEdges, "pkg.b")
	assert.True(t, proj.Graph.HasEdge("a", "pkg.b"))
}

func TestBuild_ThirdPartyImport(t *testing.T) {
	root := t.TempDir()
	writePy(t, root, "a.py", "import requests\n")

	proj := buildProject(t, root)
	a := proj.Modules["a"]
	require.NotNil(t, a)
	assert.Contains(t, a.ThirdPartyImports, "requests")
}

func TestBuild_ClassesAndFields(t *testing.T) {
	root := t.TempDir()
	writePy(t, root, "m.py", `
class Animal:
    def __init__(self, name):
        self.name = name

    def speak(self):
        return self.name
`)
	proj := buildProject(t, root)
	ci := proj.Classes["m.Animal"]
	require.NotNil(t, ci)
	assert.Contains(t, ci.Fields, "name")
	assert.Equal(t, RegularClass, ci.Kind)
}

func TestDependencyGraph_SimpleCycle(t *testing.T) {
	g := NewDependencyGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "a")
	cycles := g.SimpleCycles()
	require.Len(t, cycles, 1)
	assert.ElementsMatch(t, []string{"a", "b"}, cycles[0])
}

func TestDependencyGraph_NoCycle(t *testing.T) {
	g := NewDependencyGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	assert.Empty(t, g.SimpleCycles())
}

func TestInheritanceGraph_DIT(t *testing.T) {
	g := NewInheritanceGraph()
	g.AddEdge("Animal", "Dog")
	g.AddEdge("Dog", "Puppy")
	g.AddClass("Standalone")
	g.Finalize()

	assert.Equal(t, 0, g.ShortestPathFromObject(ObjectRoot))
	assert.Equal(t, 1, g.ShortestPathFromObject("Animal"))
	assert.Equal(t, 2, g.ShortestPathFromObject("Dog"))
	assert.Equal(t, 3, g.ShortestPathFromObject("Puppy"))
	assert.Equal(t, 1, g.ShortestPathFromObject("Standalone"))
}

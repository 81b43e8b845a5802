// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSource = `import os
from collections import OrderedDict as OD


class Animal:
    """A base animal."""

    def __init__(self, name):
        self.name = name

    @property
    def label(self):
        return self.name


class Dog(Animal, metaclass=type):
    @staticmethod
    def bark():
        return "woof"

    def greet(self, *args, loud: bool = False, **kwargs):
        return self.name


def top_level(a, b=1, *rest, **opts):
    return a + b
`

func parseSample(t *testing.T) *Module {
	t.Helper()
	p := NewParser(nil)
	f, err := p.ParseFile("sample.py", []byte(sampleSource))
	require.NoError(t, err)
	t.Cleanup(f.Close)
	require.False(t, f.Root.HasError())
	return ExtractModule(f.Root, f.Source)
}

func TestExtractModule_Imports(t *testing.T) {
	mod := parseSample(t)
	require.Len(t, mod.Imports, 2)
	assert.Equal(t, "os", mod.Imports[0].Name)
	assert.Equal(t, "collections", mod.Imports[1].Name)
	assert.Equal(t, "OD", mod.Imports[1].Alias)
}

func TestExtractModule_TopLevelFunction(t *testing.T) {
	mod := parseSample(t)
	require.Len(t, mod.TopFunctions, 1)
	fn := mod.TopFunctions[0]
	assert.Equal(t, "top_level", fn.Name)
	require.Len(t, fn.Params, 4)
	assert.Equal(t, "a", fn.Params[0].Name)
	assert.Equal(t, "b", fn.Params[1].Name)
	assert.True(t, fn.Params[1].HasDefault)
	assert.True(t, fn.Params[2].IsVarArgs)
	assert.True(t, fn.Params[3].IsKwargs)
}

func TestExtractModule_Classes(t *testing.T) {
	mod := parseSample(t)
	require.Len(t, mod.Classes, 2)

	animal := mod.Classes[0]
	assert.Equal(t, "Animal", animal.Name)
	assert.Empty(t, animal.Bases)
	require.Len(t, animal.Methods, 2)
	assert.Equal(t, "__init__", animal.Methods[0].Name)
	assert.Equal(t, "label", animal.Methods[1].Name)
	assert.True(t, animal.Methods[1].HasDecorator("property"))

	dog := mod.Classes[1]
	assert.Equal(t, "Dog", dog.Name)
	assert.Contains(t, dog.Bases, "Animal")
	require.Len(t, dog.Methods, 2)
	assert.True(t, dog.Methods[0].HasDecorator("staticmethod"))

	greet := dog.Methods[1]
	assert.Equal(t, "greet", greet.Name)
	require.Len(t, greet.Params, 4)
	assert.Equal(t, "self", greet.Params[0].Name)
	assert.True(t, greet.Params[1].IsVarArgs)
	assert.Equal(t, "loud", greet.Params[2].Name)
	assert.Equal(t, "bool", greet.Params[2].Annotation)
	assert.True(t, greet.Params[3].IsKwargs)
}

func TestClassifyLines(t *testing.T) {
	src := "import os\n\n# a comment\n\"\"\"\nmulti\nline\n\"\"\"\nx = 1\n"
	kinds := ClassifyLines(src)
	require.Len(t, kinds, 9)
	assert.Equal(t, LineImport, kinds[0])
	assert.Equal(t, LineBlank, kinds[1])
	assert.Equal(t, LineComment, kinds[2])
	assert.Equal(t, LineDocstring, kinds[3])
	assert.Equal(t, LineDocstring, kinds[4])
	assert.Equal(t, LineDocstring, kinds[5])
	assert.Equal(t, LineDocstring, kinds[6])
	assert.Equal(t, LineCode, kinds[7])
}

func TestParseFile_SyntaxErrorTolerated(t *testing.T) {
	p := NewParser(nil)
	f, err := p.ParseFile("broken.py", []byte("def f(:\n"))
	require.NoError(t, err)
	defer f.Close()
	assert.True(t, f.Root.HasError())
}

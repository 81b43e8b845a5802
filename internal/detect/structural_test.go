// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package detect

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/smellbench/internal/config"
	"github.com/kraklabs/smellbench/internal/model"
	"github.com/kraklabs/smellbench/internal/parse"
	"github.com/kraklabs/smellbench/internal/walk"
)

func writePy(t *testing.T, root, relPath, contents string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(contents), 0o644))
}

func buildProject(t *testing.T, root string) *model.Project {
	t.Helper()
	result, err := walk.Walk(root, nil)
	require.NoError(t, err)
	proj, failures := model.Build(result.Files, parse.NewParser(nil), nil)
	assert.Empty(t, failures)
	return proj
}

func findStructural(findings []model.Finding, name string) []model.Finding {
	var out []model.Finding
	for _, f := range findings {
		if f.Name == name {
			out = append(out, f)
		}
	}
	return out
}

func TestRuleNOM_FlagsManyMethods(t *testing.T) {
	root := t.TempDir()
	var b strings.Builder
	b.WriteString("class Wide:\n")
	for i := 0; i < 25; i++ {
		b.WriteString("    def m")
		b.WriteString(itoa(i))
		b.WriteString("(self):\n        return 1\n")
	}
	writePy(t, root, "m.py", b.String())

	proj := buildProject(t, root)
	bundle := config.Bundle{"NOM_THRESHOLD": 20}
	findings := findStructural(RunStructuralSmellDetector(proj, bundle), "High Number of Methods (NOM)")
	require.Len(t, findings, 1)
	assert.Equal(t, "Wide", findings[0].ModuleOrClass)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := ""
	for i > 0 {
		digits = string(rune('0'+i%10)) + digits
		i /= 10
	}
	return digits
}

func TestRuleDIT_FlagsDeepChain(t *testing.T) {
	root := t.TempDir()
	writePy(t, root, "m.py", `
class A:
    pass

class B(A):
    pass

class C(B):
    pass

class D(C):
    pass

class E(D):
    pass

class F(E):
    pass
`)
	proj := buildProject(t, root)
	bundle := config.Bundle{"DIT_THRESHOLD": 3}
	findings := findStructural(RunStructuralSmellDetector(proj, bundle), "DIT")
	found := false
	for _, f := range findings {
		if f.ModuleOrClass == "F" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRuleFileLength_FlagsLongModule(t *testing.T) {
	root := t.TempDir()
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("x = 1\n")
	}
	writePy(t, root, "big.py", b.String())

	proj := buildProject(t, root)
	bundle := config.Bundle{"MAX_FILE_LENGTH": 30}
	findings := findStructural(RunStructuralSmellDetector(proj, bundle), "File Length")
	require.Len(t, findings, 1)
}

func TestRuleFanInOut_Thresholds(t *testing.T) {
	root := t.TempDir()
	writePy(t, root, "hub.py", "import a\nimport b\nimport c\n")
	writePy(t, root, "a.py", "x = 1\n")
	writePy(t, root, "b.py", "x = 1\n")
	writePy(t, root, "c.py", "x = 1\n")

	proj := buildProject(t, root)
	bundle := config.Bundle{"FAN_OUT_THRESHOLD": 2}
	findings := findStructural(RunStructuralSmellDetector(proj, bundle), "Fan-out")
	require.Len(t, findings, 1)
	assert.Equal(t, proj.Modules["hub"].FilePath, findings[0].FilePath)
}

func TestRuleCyclomaticComplexity_FlagsBranchyFunction(t *testing.T) {
	root := t.TempDir()
	writePy(t, root, "m.py", `
def branchy(x):
    if x == 1:
        return 1
    elif x == 2:
        return 2
    elif x == 3:
        return 3
    elif x == 4:
        return 4
    elif x == 5:
        return 5
    elif x == 6:
        return 6
    elif x == 7:
        return 7
    elif x == 8:
        return 8
    elif x == 9:
        return 9
    return 0
`)
	proj := buildProject(t, root)
	bundle := config.Bundle{"CYCLOMATIC_COMPLEXITY_THRESHOLD": 5}
	findings := findStructural(RunStructuralSmellDetector(proj, bundle), "Cyclomatic Complexity")
	require.Len(t, findings, 1)
	assert.Equal(t, "branchy", findings[0].ModuleOrClass)
}

func TestRuleNOCC_FlagsManyClassesInModule(t *testing.T) {
	root := t.TempDir()
	var b strings.Builder
	for i := 0; i < 5; i++ {
		b.WriteString("class K")
		b.WriteString(itoa(i))
		b.WriteString(":\n    def m(self):\n        return 1\n\n")
	}
	writePy(t, root, "many.py", b.String())

	proj := buildProject(t, root)
	bundle := config.Bundle{"NOCC_THRESHOLD": 2}
	findings := findStructural(RunStructuralSmellDetector(proj, bundle), "NOCC")
	require.Len(t, findings, 1)
}

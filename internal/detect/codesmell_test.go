// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package detect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/smellbench/internal/config"
	"github.com/kraklabs/smellbench/internal/model"
)

func TestRuleLongMethod_FlagsOverThreshold(t *testing.T) {
	root := t.TempDir()
	var b strings.Builder
	b.WriteString("def long_fn():\n")
	for i := 0; i < 40; i++ {
		b.WriteString("    x = 1\n")
	}
	b.WriteString("    return x\n")
	writePy(t, root, "m.py", b.String())

	proj := buildProject(t, root)
	bundle := config.Bundle{"LONG_METHOD_LINES": 30}
	findings := findCode(RunCodeSmellDetector(proj, bundle), "Long Method")
	require.Len(t, findings, 1)
	assert.Equal(t, "long_fn", findings[0].ModuleOrClass)
}

func TestRuleLargeClass_FlagsManyMethods(t *testing.T) {
	root := t.TempDir()
	var b strings.Builder
	b.WriteString("class Big:\n")
	for i := 0; i < 25; i++ {
		b.WriteString("    def m")
		b.WriteString(itoa(i))
		b.WriteString("(self):\n        x = 1\n        return x\n")
	}
	writePy(t, root, "m.py", b.String())

	proj := buildProject(t, root)
	bundle := config.Bundle{"LARGE_CLASS_METHODS": 20}
	findings := findCode(RunCodeSmellDetector(proj, bundle), "Large Class")
	require.Len(t, findings, 1)
	assert.Equal(t, "Big", findings[0].ModuleOrClass)
}

func TestRuleLongParameterList_Flags(t *testing.T) {
	root := t.TempDir()
	writePy(t, root, "m.py", "def many(a, b, c, d, e, f):\n    return a\n")

	proj := buildProject(t, root)
	bundle := config.Bundle{"LONG_PARAMETER_LIST": 4}
	findings := findCode(RunCodeSmellDetector(proj, bundle), "Long Parameter List")
	require.Len(t, findings, 1)
}

func TestRuleDeadCode_FlagsUnreachableAfterReturn(t *testing.T) {
	root := t.TempDir()
	writePy(t, root, "m.py", `
def f():
    return 1
    x = 2
    return x
`)
	proj := buildProject(t, root)
	findings := findCode(RunCodeSmellDetector(proj, config.Bundle{}), "Dead Code")
	require.Len(t, findings, 1)
	assert.Equal(t, model.Low, findings[0].Severity)
}

func TestRuleLazyClass_FlagsTrivialClass(t *testing.T) {
	root := t.TempDir()
	writePy(t, root, "m.py", `
class Empty:
    def noop(self):
        pass
`)
	proj := buildProject(t, root)
	findings := findCode(RunCodeSmellDetector(proj, config.Bundle{}), "Lazy Class")
	require.Len(t, findings, 1)
	assert.Equal(t, model.Low, findings[0].Severity)
}

func findCode(findings []model.Finding, name string) []model.Finding {
	var out []model.Finding
	for _, f := range findings {
		if f.Name == name {
			out = append(out, f)
		}
	}
	return out
}

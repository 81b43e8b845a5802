// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/smellbench/internal/config"
	"github.com/kraklabs/smellbench/internal/model"
)

func findArchitectural(findings []model.Finding, name string) []model.Finding {
	var out []model.Finding
	for _, f := range findings {
		if f.Name == name {
			out = append(out, f)
		}
	}
	return out
}

func TestRuleOrphanModule_FlagsIsolatedModule(t *testing.T) {
	root := t.TempDir()
	writePy(t, root, "a.py", "import b\n")
	writePy(t, root, "b.py", "x = 1\n")
	writePy(t, root, "lonely.py", "y = 2\n")

	proj := buildProject(t, root)
	findings := findArchitectural(RunArchitecturalSmellDetector(proj, config.Bundle{"MIN_PROJECT_SIZE": 2}), "Orphan Module")
	require.Len(t, findings, 1)
	assert.Equal(t, "lonely", findings[0].ModuleOrClass)
}

func TestRuleCyclicDependency_FlagsCycle(t *testing.T) {
	root := t.TempDir()
	writePy(t, root, "a.py", "import b\n")
	writePy(t, root, "b.py", "import a\n")

	proj := buildProject(t, root)
	findings := findArchitectural(RunArchitecturalSmellDetector(proj, config.Bundle{"MIN_CYCLE_SIZE": 2, "MAX_CYCLE_SIZE": 5}), "Cyclic Dependency")
	require.Len(t, findings, 1)
}

func TestRuleGodObject_FlagsManyPublicFunctions(t *testing.T) {
	root := t.TempDir()
	src := ""
	for i := 0; i < 12; i++ {
		src += "def func" + itoa(i) + "():\n    return 1\n\n"
	}
	writePy(t, root, "big.py", src)

	proj := buildProject(t, root)
	findings := findArchitectural(RunArchitecturalSmellDetector(proj, config.Bundle{"MIN_GOD_OBJECT_FUNCTIONS": 5, "GOD_OBJECT_FUNCTIONS": 10}), "God Object")
	require.Len(t, findings, 1)
	assert.Equal(t, "big", findings[0].ModuleOrClass)
}

func TestRuleUnstableDependency_FlagsHighOutDegree(t *testing.T) {
	root := t.TempDir()
	writePy(t, root, "unstable.py", "import a\nimport b\nimport c\nimport d\nimport e\nimport f\n")
	writePy(t, root, "a.py", "x = 1\n")
	writePy(t, root, "b.py", "x = 1\n")
	writePy(t, root, "c.py", "x = 1\n")
	writePy(t, root, "d.py", "x = 1\n")
	writePy(t, root, "e.py", "x = 1\n")
	writePy(t, root, "f.py", "x = 1\n")

	proj := buildProject(t, root)
	findings := findArchitectural(RunArchitecturalSmellDetector(proj, config.Bundle{"MIN_DEPENDENCIES": 5, "UNSTABLE_DEPENDENCY_THRESHOLD": 0.8}), "Unstable Dependency")
	require.Len(t, findings, 1)
	assert.Equal(t, "unstable", findings[0].ModuleOrClass)
}

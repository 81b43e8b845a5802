// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_ValidDocument(t *testing.T) {
	path := writeConfig(t, `
code_smells:
  LONG_METHOD_LINES:
    value: 30
structural_smells:
  NOM_THRESHOLD: {value: 15}
  WMPC1_THRESHOLD: {value: 40}
  WMPC2_THRESHOLD: {value: 40}
  SIZE2_THRESHOLD: {value: 25}
  WAC_THRESHOLD: {value: 8}
  LCOM_THRESHOLD: {value: 4}
  RFC_THRESHOLD: {value: 45}
  NOCC_THRESHOLD: {value: 9}
  DIT_THRESHOLD: {value: 4}
  LOC_THRESHOLD: {value: 900}
  CBO_THRESHOLD: {value: 12}
architectural_smells:
  MIN_HUB_CONNECTIONS:
    value: 5
`)
	th, err := Load(path, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, 30.0, th.CodeSmells["LONG_METHOD_LINES"])
	assert.Equal(t, 15.0, th.StructuralSmells["NOM_THRESHOLD"])
	assert.Equal(t, 5.0, th.ArchitecturalSmells["MIN_HUB_CONNECTIONS"])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), slog.Default())
	require.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "code_smells: [this is not a mapping")
	_, err := Load(path, slog.Default())
	require.Error(t, err)
}

func TestLoad_MissingStructuralThresholdsDefaulted(t *testing.T) {
	path := writeConfig(t, `
code_smells: {}
structural_smells: {}
architectural_smells: {}
`)
	th, err := Load(path, slog.Default())
	require.NoError(t, err)
	for _, name := range requiredStructuralThresholds {
		assert.Greater(t, th.StructuralSmells[name], 0.0, "expected default for %s", name)
	}
}

func TestLoad_NonPositiveThresholdDefaulted(t *testing.T) {
	path := writeConfig(t, `
structural_smells:
  NOM_THRESHOLD:
    value: -5
`)
	th, err := Load(path, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, defaultStructuralThresholds["NOM_THRESHOLD"], th.StructuralSmells["NOM_THRESHOLD"])
}

func TestBundleGet_Default(t *testing.T) {
	b := Bundle{"A": 3}
	assert.Equal(t, 3.0, b.Get("A", 99))
	assert.Equal(t, 99.0, b.Get("B", 99))
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/smellbench/internal/model"
)

func sampleFindings() []model.Finding {
	return []model.Finding{
		{Kind: model.Code, Name: "Long Method", Description: "does too much", FilePath: "b.py", ModuleOrClass: "b.foo", LineNumber: 10, Severity: model.Medium},
		{Kind: model.Structural, Name: "DIT", Description: "too deep", FilePath: "a.py", ModuleOrClass: "a.Dog", LineNumber: 3, Severity: model.High},
		{Kind: model.Architectural, Name: "Orphan Module, with comma", Description: "isolated, \"quoted\"\nmultiline", FilePath: "", ModuleOrClass: "c", LineNumber: 0, Severity: model.Low},
	}
}

func TestWriteText_SectionsAndSummary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.txt")
	require.NoError(t, WriteText(path, sampleFindings()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.True(t, strings.Index(text, "Structural Smells") < strings.Index(text, "Code Smells"))
	assert.True(t, strings.Index(text, "Code Smells") < strings.Index(text, "Architectural Smells"))
	assert.Contains(t, text, "- DIT: too deep")
	assert.Contains(t, text, "Line: 3")
	assert.Contains(t, text, "Severity: High")
	assert.Contains(t, text, "Structural smells:    1")
	assert.Contains(t, text, "Total:                3")
}

func TestWriteText_EmptySection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.txt")
	findings := []model.Finding{{Kind: model.Code, Name: "x", Description: "y", Severity: model.Medium}}
	require.NoError(t, WriteText(path, findings))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "No structural smells detected.")
	assert.Contains(t, string(data), "No architectural smells detected.")
}

func TestWriteCSV_HeaderAndQuoting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.csv")
	require.NoError(t, WriteCSV(path, sampleFindings()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.True(t, strings.HasPrefix(text, "Type,Name,Description,File,Module/Class,Line Number,Severity\n"))
	assert.Contains(t, text, `"Orphan Module, with comma"`)
	assert.Contains(t, text, `"isolated, ""quoted""`)
	assert.False(t, strings.HasPrefix(text, "﻿"))
}

func TestSort_DeterministicOrder(t *testing.T) {
	findings := sampleFindings()
	sorted := Sort(findings)
	assert.Equal(t, model.Structural, sorted[0].Kind)
	assert.Equal(t, model.Code, sorted[1].Kind)
	assert.Equal(t, model.Architectural, sorted[2].Kind)
}

func TestBasePath_DefaultsAndOverride(t *testing.T) {
	textPath, csvPath := BasePath("")
	assert.Equal(t, "code_quality_report.txt", textPath)
	assert.Equal(t, "code_quality_report.csv", csvPath)

	textPath, csvPath = BasePath("out/my-report")
	assert.Equal(t, "out/my-report.txt", textPath)
	assert.Equal(t, "out/my-report.csv", csvPath)
}

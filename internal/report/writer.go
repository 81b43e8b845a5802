// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package report renders the three detector finding lists to the text and
// CSV report artifacts. Writing is atomic per file: a temp file is
// written and renamed into place, so a failure writing one artifact never
// corrupts the other or leaves a partial file behind.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kraklabs/smellbench/internal/model"
)

const defaultBaseName = "code_quality_report"

// BasePath resolves the caller-supplied output base path, or the default,
// to the pair of concrete artifact paths.
func BasePath(output string) (textPath, csvPath string) {
	base := output
	if base == "" {
		base = defaultBaseName
	}
	return base + ".txt", base + ".csv"
}

// Sort orders findings deterministically: by kind, then file, then line,
// then name.
func Sort(findings []model.Finding) []model.Finding {
	out := append([]model.Finding(nil), findings...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		if a.LineNumber != b.LineNumber {
			return a.LineNumber < b.LineNumber
		}
		return a.Name < b.Name
	})
	return out
}

// WriteText renders the text report: three sections in order
// Structural -> Code -> Architectural, each "- {name}: {description}",
// optional Line/File/Severity sub-lines, empty-section placeholder text,
// and a summary footer with per-family totals.
func WriteText(path string, findings []model.Finding) error {
	sorted := Sort(findings)

	var b strings.Builder
	writeSection(&b, "Structural Smells", model.Structural, sorted)
	writeSection(&b, "Code Smells", model.Code, sorted)
	writeSection(&b, "Architectural Smells", model.Architectural, sorted)

	fmt.Fprintln(&b, "Summary")
	fmt.Fprintln(&b, "-------")
	fmt.Fprintf(&b, "Structural smells:    %d\n", countKind(sorted, model.Structural))
	fmt.Fprintf(&b, "Code smells:          %d\n", countKind(sorted, model.Code))
	fmt.Fprintf(&b, "Architectural smells: %d\n", countKind(sorted, model.Architectural))
	fmt.Fprintf(&b, "Total:                %d\n", len(sorted))

	return atomicWrite(path, []byte(b.String()))
}

func writeSection(b *strings.Builder, title string, kind model.FindingKind, sorted []model.Finding) {
	fmt.Fprintln(b, title)
	fmt.Fprintln(b, strings.Repeat("=", len(title)))

	var section []model.Finding
	for _, f := range sorted {
		if f.Kind == kind {
			section = append(section, f)
		}
	}

	if len(section) == 0 {
		fmt.Fprintf(b, "No %s detected.\n\n", strings.ToLower(title))
		return
	}

	for _, f := range section {
		fmt.Fprintf(b, "- %s: %s\n", f.Name, f.Description)
		if f.LineNumber > 0 {
			fmt.Fprintf(b, "  Line: %d\n", f.LineNumber)
		}
		if f.FilePath != "" {
			fmt.Fprintf(b, "  File: %s\n", f.FilePath)
		}
		fmt.Fprintf(b, "  Severity: %s\n", f.Severity)
	}
	fmt.Fprintln(b)
}

func countKind(findings []model.Finding, kind model.FindingKind) int {
	n := 0
	for _, f := range findings {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

var csvHeader = []string{"Type", "Name", "Description", "File", "Module/Class", "Line Number", "Severity"}

// WriteCSV renders the CSV report with the fixed header and column order.
func WriteCSV(path string, findings []model.Finding) error {
	sorted := Sort(findings)

	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, f := range sorted {
		line := ""
		if f.LineNumber > 0 {
			line = strconv.Itoa(f.LineNumber)
		}
		row := []string{
			f.Kind.String(),
			f.Name,
			f.Description,
			f.FilePath,
			f.ModuleOrClass,
			line,
			f.Severity.String(),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	return atomicWrite(path, []byte(b.String()))
}

// Write renders both artifacts. The text file is written first; if it
// fails the CSV is never attempted. Each file's write is independently
// atomic, so a failure on either never corrupts a file already on disk.
func Write(output string, findings []model.Finding) error {
	textPath, csvPath := BasePath(output)
	if err := WriteText(textPath, findings); err != nil {
		return fmt.Errorf("writing text report: %w", err)
	}
	if err := WriteCSV(csvPath, findings); err != nil {
		return fmt.Errorf("writing csv report: %w", err)
	}
	return nil
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".report-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui provides the smellbench CLI's colored status output, respecting
// --no-color and the NO_COLOR environment variable.
package ui

import (
	"os"

	"github.com/fatih/color"
)

// Pre-configured color instances for the CLI's status lines.
var (
	// Yellow is used for warnings, e.g. skipped-file summaries.
	Yellow = color.New(color.FgYellow)

	// Green is used for the run's success banner.
	Green = color.New(color.FgGreen)

	// Cyan is used for informational lines, e.g. report paths.
	Cyan = color.New(color.FgCyan)
)

// InitColors configures global color output from the --no-color flag and the
// NO_COLOR environment variable. Called once from runAnalyze after flag
// parsing; it replaces fatih/color's own terminal detection, so colors are
// on unless one of those two switches turns them off.
func InitColors(noColor bool) {
	color.NoColor = noColor || os.Getenv("NO_COLOR") != ""
}

// Successf prints a formatted green success message with a checkmark prefix.
func Successf(format string, args ...any) {
	_, _ = Green.Printf("✓ "+format+"\n", args...)
}

// Warningf prints a formatted yellow warning message with a warning symbol prefix.
func Warningf(format string, args ...any) {
	_, _ = Yellow.Printf("⚠ "+format+"\n", args...)
}

// Infof prints a formatted cyan informational message with an info symbol prefix.
func Infof(format string, args ...any) {
	_, _ = Cyan.Printf("ℹ "+format+"\n", args...)
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package smellerr provides the structured error taxonomy used across the
// smell-detection pipeline, plus the CLI's fatal-error presentation.
//
// AnalysisError carries one of four kinds (FileRead, Parse, RuleInternal,
// ConfigInvalid) with enough context (file, line, function) to log and
// report without ever aborting a batch for anything but a configuration
// failure. See Kind for the propagation policy of each.
package smellerr

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Kind classifies an AnalysisError.
type Kind int

const (
	// FileRead is an encoding/I/O failure opening or reading a source file.
	// Reduces to a per-file skip; never fatal.
	FileRead Kind = iota
	// Parse is a parser refusal on a file. Reduces to a per-file skip; never fatal.
	Parse
	// RuleInternal is an unexpected failure inside a single detector rule.
	// Reduces to a missing finding, logged; never fatal.
	RuleInternal
	// ConfigInvalid is a malformed or missing configuration document. Fatal.
	ConfigInvalid
)

func (k Kind) String() string {
	switch k {
	case FileRead:
		return "FileRead"
	case Parse:
		return "Parse"
	case RuleInternal:
		return "RuleInternal"
	case ConfigInvalid:
		return "ConfigInvalid"
	default:
		return "Unknown"
	}
}

// Exit codes. Spec only requires "0 success, non-zero on configuration or
// I/O failure"; these are kept as distinct constants for CLI scriptability.
const (
	ExitSuccess      = 0
	ExitConfig       = 1
	ExitIO           = 2
	ExitInvalidInput = 3
	ExitInternal     = 10
)

// AnalysisError is the one error kind the engine signals, per the failure
// taxonomy: {message, file_path?, line_number?, function_name?}.
type AnalysisError struct {
	Kind         Kind
	Message      string
	FilePath     string
	LineNumber   int // 0 means absent
	FunctionName string
	Err          error
	ExitCode     int
}

func (e *AnalysisError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.FilePath != "" {
		fmt.Fprintf(&b, " (file=%s", e.FilePath)
		if e.LineNumber > 0 {
			fmt.Fprintf(&b, ":%d", e.LineNumber)
		}
		if e.FunctionName != "" {
			fmt.Fprintf(&b, " func=%s", e.FunctionName)
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// NewFileReadError wraps an encoding/I/O failure for a single source file.
func NewFileReadError(filePath string, err error) *AnalysisError {
	return &AnalysisError{Kind: FileRead, Message: "failed to read source file", FilePath: filePath, Err: err, ExitCode: ExitIO}
}

// NewParseError wraps a parser refusal for a single source file.
func NewParseError(filePath string, line int, err error) *AnalysisError {
	return &AnalysisError{Kind: Parse, Message: "failed to parse source file", FilePath: filePath, LineNumber: line, Err: err, ExitCode: ExitIO}
}

// NewRuleInternalError wraps an unexpected failure inside one detector rule.
func NewRuleInternalError(filePath, functionName string, err error) *AnalysisError {
	return &AnalysisError{Kind: RuleInternal, Message: "detector rule failed", FilePath: filePath, FunctionName: functionName, Err: err, ExitCode: ExitInternal}
}

// NewConfigInvalidError wraps a missing or malformed configuration document. Fatal.
func NewConfigInvalidError(message string, err error) *AnalysisError {
	return &AnalysisError{Kind: ConfigInvalid, Message: message, Err: err, ExitCode: ExitConfig}
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
)

// Format renders the error for terminal display, respecting NO_COLOR.
func (e *AnalysisError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()
	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")
	if e.FilePath != "" {
		out.WriteString(colorCause.Sprint("File:  "))
		out.WriteString(e.FilePath)
		out.WriteString("\n")
	}
	if e.Err != nil {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Err.Error())
		out.WriteString("\n")
	}
	return out.String()
}

// Fatal prints err and exits with the mapped code. Never returns.
//
// A nil err is a no-op so callers can write `smellerr.Fatal(run(), noColor)`.
func Fatal(err error, noColor bool) {
	if err == nil {
		return
	}
	if ae, ok := err.(*AnalysisError); ok {
		fmt.Fprint(os.Stderr, ae.Format(noColor))
		os.Exit(ae.ExitCode)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitInternal)
}

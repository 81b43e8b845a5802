// Copyright 2026 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package main implements the smellbench CLI: a static code-, structural-,
// and architectural-smell analyzer for Python projects.
//
// Usage:
//
//	smellbench analyze <directory> [--config <path>] [--output <path>] [--type code|architectural|structural] [--debug]
//	smellbench code <directory> [options]
//	smellbench structural <directory> [options]
//	smellbench architectural <directory> [options]
package main

import (
	"fmt"
	"log/slog"
	"os"

	flag "github.com/spf13/pflag"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags are the options every subcommand accepts.
type GlobalFlags struct {
	ConfigPath string
	Output     string
	Debug      bool
	NoColor    bool
	Quiet      bool
	MetricsAddr string
}

func main() {
	showVersion := flag.BoolP("version", "v", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `smellbench - Python code-smell analyzer

Usage:
  smellbench <command> [directory] [options]

Commands:
  analyze        Run all three detector families
  code            Run only the code-smell detector
  structural      Run only the structural-smell detector
  architectural   Run only the architectural-smell detector

Options:
  --config <path>       Threshold configuration document
  --output <path>       Base path for the .txt/.csv report pair
  --type <family>        Restrict 'analyze' to one family
  --debug               Enable debug-level logging
  --no-color            Disable colored terminal output
  --quiet               Suppress progress output
  --metrics-addr <addr>  Serve Prometheus metrics on addr (e.g. :9090)
  --version             Show version and exit

Examples:
  smellbench analyze ./myproject
  smellbench analyze ./myproject --type code --output reports/code
  smellbench structural ./myproject --config thresholds.yaml
`)
	}

	flag.CommandLine.SetInterspersed(false)
	flag.Parse()

	if *showVersion {
		fmt.Printf("smellbench version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "analyze":
		runAnalyze(cmdArgs, "")
	case "code":
		runAnalyze(cmdArgs, "code")
	case "structural":
		runAnalyze(cmdArgs, "structural")
	case "architectural":
		runAnalyze(cmdArgs, "architectural")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

// newLogger builds the process-wide structured logger, level-controlled by
// --debug.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

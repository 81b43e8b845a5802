// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/smellbench/internal/config"
	"github.com/kraklabs/smellbench/internal/detect"
	"github.com/kraklabs/smellbench/internal/model"
	"github.com/kraklabs/smellbench/internal/parse"
	"github.com/kraklabs/smellbench/internal/report"
	"github.com/kraklabs/smellbench/internal/smellerr"
	"github.com/kraklabs/smellbench/internal/ui"
	"github.com/kraklabs/smellbench/internal/walk"
)

// runAnalyze implements `analyze <directory>` and its three single-family
// variants. forcedType, when non-empty, pins --type and hides the flag.
func runAnalyze(args []string, forcedType string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "Path to the threshold configuration document")
	output := fs.String("output", "", "Base path for the .txt/.csv report pair")
	smellType := fs.String("type", forcedType, "Restrict analysis to one family: code, structural, architectural")
	debug := fs.Bool("debug", false, "Enable debug-level logging")
	noColor := fs.Bool("no-color", false, "Disable colored terminal output")
	quiet := fs.Bool("quiet", false, "Suppress progress output")
	metricsAddr := fs.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	if forcedType != "" {
		_ = fs.MarkHidden("type")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}
	if forcedType != "" {
		*smellType = forcedType
	}

	positional := fs.Args()
	if len(positional) != 1 {
		fmt.Fprintln(os.Stderr, "expected exactly one <directory> argument")
		os.Exit(2)
	}
	directory := positional[0]

	ui.InitColors(*noColor)
	logger := newLogger(*debug)

	globals := GlobalFlags{
		ConfigPath:  *configPath,
		Output:      *output,
		Debug:       *debug,
		NoColor:     *noColor,
		Quiet:       *quiet,
		MetricsAddr: *metricsAddr,
	}

	if globals.MetricsAddr != "" {
		stop := serveMetrics(globals.MetricsAddr, logger)
		defer stop()
	}

	thresholds, err := config.Load(globals.ConfigPath, logger)
	if err != nil {
		smellerr.Fatal(err, globals.NoColor)
	}

	walkResult, err := walk.Walk(directory, nil)
	if err != nil {
		smellerr.Fatal(smellerr.NewFileReadError(directory, err), globals.NoColor)
	}
	for _, failure := range walkResult.Failures {
		logger.Warn("walk.file_skipped", "error", failure.Error())
	}

	progressCfg := NewProgressConfig(globals)
	bar := NewProgressBar(progressCfg, int64(len(walkResult.Files)), "parsing")

	proj, buildFailures := model.Build(walkResult.Files, parse.NewParser(nil), logger)
	if bar != nil {
		_ = bar.Set(len(walkResult.Files))
		_ = bar.Finish()
	}
	for _, failure := range buildFailures {
		logger.Warn("model.build_failure", "error", failure.Error())
	}

	attempted := len(walkResult.Files)
	skipped := len(walkResult.Failures) + len(buildFailures)
	reportProgress(progressCfg, attempted, skipped)

	if globals.MetricsAddr != "" {
		initMetrics()
		filesAnalyzed.Add(float64(attempted - skipped))
	}

	var findings []model.Finding
	switch *smellType {
	case "code":
		findings = safeRun(logger, "code", func() []model.Finding {
			return detect.RunCodeSmellDetector(proj, thresholds.CodeSmells)
		})
	case "structural":
		findings = safeRun(logger, "structural", func() []model.Finding {
			return detect.RunStructuralSmellDetector(proj, thresholds.StructuralSmells)
		})
	case "architectural":
		findings = safeRun(logger, "architectural", func() []model.Finding {
			return detect.RunArchitecturalSmellDetector(proj, thresholds.ArchitecturalSmells)
		})
	case "":
		findings = append(findings, safeRun(logger, "code", func() []model.Finding {
			return detect.RunCodeSmellDetector(proj, thresholds.CodeSmells)
		})...)
		findings = append(findings, safeRun(logger, "structural", func() []model.Finding {
			return detect.RunStructuralSmellDetector(proj, thresholds.StructuralSmells)
		})...)
		findings = append(findings, safeRun(logger, "architectural", func() []model.Finding {
			return detect.RunArchitecturalSmellDetector(proj, thresholds.ArchitecturalSmells)
		})...)
	default:
		fmt.Fprintf(os.Stderr, "unknown --type %q: expected code, structural, or architectural\n", *smellType)
		os.Exit(2)
	}

	recordFindingMetrics(findings)

	if err := report.Write(globals.Output, findings); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(smellerr.ExitIO)
	}

	if !globals.Quiet {
		textPath, csvPath := report.BasePath(globals.Output)
		ui.Successf("analysis complete: %d findings (%d files attempted, %d skipped)", len(findings), attempted, skipped)
		ui.Infof("text report: %s", textPath)
		ui.Infof("csv report:  %s", csvPath)
	}
}

// safeRun isolates a single detector family: an unexpected panic inside a
// family's rule bank is caught, logged, and reduces to an empty result for
// that family rather than aborting the run.
func safeRun(logger interface {
	Error(msg string, args ...any)
}, family string, run func() []model.Finding) (findings []model.Finding) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("detect.family_panic", "family", family, "recovered", r)
			findings = nil
		}
	}()
	return run()
}

func reportProgress(cfg ProgressConfig, attempted, skipped int) {
	if cfg.Enabled || skipped == 0 {
		return
	}
	rate := 1.0
	if attempted > 0 {
		rate = float64(attempted-skipped) / float64(attempted)
	}
	ui.Warningf("%d of %d files skipped (success rate %.0f%%)", skipped, attempted, rate*100)
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "code_quality_config.yaml"
	}
	return home + "/.code_quality_config.yaml"
}

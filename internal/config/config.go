// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package config loads the three threshold bundles (code smells, structural
// smells, architectural smells) that parameterize the detector bank.
//
// The document format, validation policy (warn-and-default for missing or
// invalid individual thresholds, fatal for a missing/malformed file) follow
// the original Python ConfigHandler this engine's rule set was distilled
// from: unknown keys are ignored, only the numeric "value" field of each
// threshold entry is consumed.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kraklabs/smellbench/internal/smellerr"
	"gopkg.in/yaml.v3"
)

// Bundle is one family's threshold set: name -> positive numeric value.
type Bundle map[string]float64

// Thresholds holds the three bundles loaded from a configuration document.
type Thresholds struct {
	CodeSmells          Bundle
	StructuralSmells    Bundle
	ArchitecturalSmells Bundle
}

// requiredStructuralThresholds must be present in the structural_smells
// bundle; missing or invalid entries log a warning and fall back to
// defaultStructuralThresholds rather than aborting the run.
var requiredStructuralThresholds = []string{
	"NOM_THRESHOLD", "WMPC1_THRESHOLD", "WMPC2_THRESHOLD", "SIZE2_THRESHOLD",
	"WAC_THRESHOLD", "LCOM_THRESHOLD", "RFC_THRESHOLD", "NOCC_THRESHOLD",
	"DIT_THRESHOLD", "LOC_THRESHOLD", "CBO_THRESHOLD",
}

// defaultStructuralThresholds mirrors the conservative literals used by the
// detectors themselves when a required threshold is missing or invalid.
var defaultStructuralThresholds = Bundle{
	"NOM_THRESHOLD":    20,
	"WMPC1_THRESHOLD":  50,
	"WMPC2_THRESHOLD":  50,
	"SIZE2_THRESHOLD":  30,
	"WAC_THRESHOLD":    10,
	"LCOM_THRESHOLD":   5,
	"RFC_THRESHOLD":    50,
	"NOCC_THRESHOLD":   10,
	"DIT_THRESHOLD":    5,
	"LOC_THRESHOLD":    1000,
	"CBO_THRESHOLD":    14,
}

// rawDocument is the on-disk YAML shape: three sub-mappings, each entry a
// mapping with at least a numeric "value"; unknown keys in either layer are
// silently ignored.
type rawDocument struct {
	CodeSmells          map[string]rawEntry `yaml:"code_smells"`
	StructuralSmells    map[string]rawEntry `yaml:"structural_smells"`
	ArchitecturalSmells map[string]rawEntry `yaml:"architectural_smells"`
}

type rawEntry struct {
	Value any `yaml:"value"`
}

// Load reads and validates the configuration document at path. A missing
// file or a YAML syntax error is fatal (ConfigInvalid); a missing or
// non-positive required structural threshold is logged and defaulted.
func Load(path string, logger *slog.Logger) (*Thresholds, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, smellerr.NewConfigInvalidError(fmt.Sprintf("cannot read configuration file %q", path), err)
	}

	var doc rawDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, smellerr.NewConfigInvalidError(fmt.Sprintf("malformed configuration file %q", path), err)
	}

	t := &Thresholds{
		CodeSmells:          toBundle(doc.CodeSmells, logger, "code_smells"),
		StructuralSmells:    toBundle(doc.StructuralSmells, logger, "structural_smells"),
		ArchitecturalSmells: toBundle(doc.ArchitecturalSmells, logger, "architectural_smells"),
	}

	validateStructural(t.StructuralSmells, logger)
	return t, nil
}

// toBundle extracts the numeric "value" of each entry. Non-numeric values
// are dropped with a warning; the default (if any, applied later for
// structural thresholds) takes over.
func toBundle(raw map[string]rawEntry, logger *slog.Logger, section string) Bundle {
	b := make(Bundle, len(raw))
	for name, entry := range raw {
		v, ok := numeric(entry.Value)
		if !ok {
			logger.Warn("config.threshold.invalid", "section", section, "name", name, "reason", "not a number")
			continue
		}
		if v <= 0 {
			logger.Warn("config.threshold.invalid", "section", section, "name", name, "reason", "not strictly positive", "value", v)
			continue
		}
		b[name] = v
	}
	return b
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

// validateStructural fills in defaults (with a warning) for any missing or
// invalid required structural threshold.
func validateStructural(b Bundle, logger *slog.Logger) {
	for _, name := range requiredStructuralThresholds {
		if _, ok := b[name]; ok {
			continue
		}
		logger.Warn("config.threshold.missing", "section", "structural_smells", "name", name, "fallback", defaultStructuralThresholds[name])
		b[name] = defaultStructuralThresholds[name]
	}
}

// Get returns the bundle's threshold value or def if absent.
func (b Bundle) Get(name string, def float64) float64 {
	if v, ok := b[name]; ok {
		return v
	}
	return def
}

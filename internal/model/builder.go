// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/kraklabs/smellbench/internal/parse"
	"github.com/kraklabs/smellbench/internal/smellerr"
	"github.com/kraklabs/smellbench/internal/walk"
)

// Project is the complete shared intermediate model: module table, class
// table, and module-dependency graph. Built once by Build, then shared
// read-only with the detector bank.
type Project struct {
	Modules     map[string]*ModuleInfo
	ModuleOrder []string
	Classes     map[string]*ClassInfo
	ClassOrder  []string
	Graph       *DependencyGraph
}

// ModuleID derives the module identifier for a root-relative, slash
// separated file path: separators become dots, the extension is
// stripped, and a trailing "__init__" segment collapses into its parent
// package (pkg/__init__.py -> "pkg").
func ModuleID(relPath string) string {
	trimmed := strings.TrimSuffix(relPath, walk.SourceExtension)
	segments := strings.Split(trimmed, "/")
	if len(segments) > 1 && segments[len(segments)-1] == "__init__" {
		segments = segments[:len(segments)-1]
	}
	return strings.Join(segments, ".")
}

// Build parses every walked file and assembles the Project model. Per-file
// read/parse failures are recorded in failures and excluded from the
// model; they never abort the batch.
func Build(files []walk.File, parser *parse.Parser, logger *slog.Logger) (*Project, []*smellerr.AnalysisError) {
	if logger == nil {
		logger = slog.Default()
	}

	proj := &Project{
		Modules: make(map[string]*ModuleInfo),
		Classes: make(map[string]*ClassInfo),
		Graph:   NewDependencyGraph(),
	}

	var failures []*smellerr.AnalysisError
	seenID := make(map[string]string) // module id -> first file path that claimed it

	for _, f := range files {
		id := ModuleID(f.Path)
		if existing, dup := seenID[id]; dup {
			logger.Warn("model.duplicate_module_id", "id", id, "kept", existing, "dropped", f.Path)
			continue
		}
		seenID[id] = f.Path

		source, err := walk.ReadSource(f.AbsPath)
		if err != nil {
			if ae, ok := err.(*smellerr.AnalysisError); ok {
				failures = append(failures, ae)
			}
			continue
		}

		parsed, err := parser.ParseFile(f.Path, []byte(source))
		if err != nil {
			if ae, ok := err.(*smellerr.AnalysisError); ok {
				failures = append(failures, ae)
			}
			continue
		}

		extracted := parse.ExtractModule(parsed.Root, parsed.Source)
		mi := NewModuleInfo(id, f.Path, parsed.Source, extracted)

		proj.Modules[id] = mi
		proj.ModuleOrder = append(proj.ModuleOrder, id)
		for _, ci := range mi.Classes {
			proj.Classes[ci.ID] = ci
			proj.ClassOrder = append(proj.ClassOrder, ci.ID)
		}
	}

	resolveDependencies(proj)
	resolveBaseClasses(proj)

	return proj, failures
}

// resolveDependencies classifies every module's imports as intra-project,
// stdlib, or third-party, and populates the dependency graph with
// intra-project edges only.
func resolveDependencies(proj *Project) {
	for _, id := range proj.ModuleOrder {
		proj.Graph.AddNode(id)
	}

	for _, id := range proj.ModuleOrder {
		mi := proj.Modules[id]
		for _, imp := range mi.Imports {
			name := imp.Name
			if strings.HasPrefix(name, ".") {
				target := resolveRelativeImport(id, name)
				if target != "" {
					if _, ok := proj.Modules[target]; ok {
						mi.IntraProjectEdges = append(mi.IntraProjectEdges, target)
						proj.Graph.AddEdge(id, target)
						continue
					}
				}
				// unresolvable relative import: treat as intra-project but
				// unknown target, skip silently.
				continue
			}

			if target, ok := resolveProjectModule(proj, name); ok {
				mi.IntraProjectEdges = append(mi.IntraProjectEdges, target)
				proj.Graph.AddEdge(id, target)
				continue
			}

			root := name
			if idx := strings.Index(root, "."); idx >= 0 {
				root = root[:idx]
			}
			if IsStdlibRoot(root) {
				mi.StdlibImports = append(mi.StdlibImports, name)
			} else {
				mi.ThirdPartyImports = append(mi.ThirdPartyImports, name)
			}
		}
	}
}

// resolveProjectModule finds the longest dotted-prefix of name that
// matches a discovered project module identifier.
func resolveProjectModule(proj *Project, name string) (string, bool) {
	segments := strings.Split(name, ".")
	for n := len(segments); n >= 1; n-- {
		candidate := strings.Join(segments[:n], ".")
		if _, ok := proj.Modules[candidate]; ok {
			return candidate, true
		}
	}
	return "", false
}

func resolveRelativeImport(importerID, name string) string {
	rest := strings.TrimPrefix(name, ".")
	parts := strings.Split(importerID, ".")
	if len(parts) == 0 {
		return rest
	}
	pkg := strings.Join(parts[:len(parts)-1], ".")
	if rest == "" {
		return pkg
	}
	if pkg == "" {
		return rest
	}
	return pkg + "." + rest
}

// resolveBaseClasses rewrites each class's verbatim BaseClasses entries to
// module.Class identifiers when a matching project class can be found:
// first within the same module, then among the module's resolved
// intra-project imports. Unresolved names (builtins, external bases) are
// left as-is.
func resolveBaseClasses(proj *Project) {
	for _, classID := range proj.ClassOrder {
		ci := proj.Classes[classID]
		for i, base := range ci.BaseClasses {
			if _, ok := proj.Classes[base]; ok {
				continue // already a resolved module.Class identifier
			}
			bareName := base
			if idx := strings.LastIndex(base, "."); idx >= 0 {
				bareName = base[idx+1:]
			}

			if sameModuleID := ci.Module + "." + bareName; sameModuleID != classID {
				if _, ok := proj.Classes[sameModuleID]; ok {
					ci.BaseClasses[i] = sameModuleID
					continue
				}
			}

			mi := proj.Modules[ci.Module]
			if mi == nil {
				continue
			}
			for _, imported := range mi.IntraProjectEdges {
				candidate := imported + "." + bareName
				if _, ok := proj.Classes[candidate]; ok {
					ci.BaseClasses[i] = candidate
					break
				}
			}
		}
	}
}

// SortedModuleIDs returns module identifiers in lexicographic order,
// independent of discovery order, for deterministic project-global rules.
func (p *Project) SortedModuleIDs() []string {
	out := append([]string(nil), p.ModuleOrder...)
	sort.Strings(out)
	return out
}

// SortedClassIDs returns class identifiers in lexicographic order.
func (p *Project) SortedClassIDs() []string {
	out := append([]string(nil), p.ClassOrder...)
	sort.Strings(out)
	return out
}

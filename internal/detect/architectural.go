// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package detect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kraklabs/smellbench/internal/config"
	"github.com/kraklabs/smellbench/internal/model"
)

func architecturalFinding(name, description, filePath, moduleOrClass string, sev model.Severity) model.Finding {
	return newFinding(model.Architectural, name, description, filePath, moduleOrClass, 0, sev)
}

// RunArchitecturalSmellDetector runs every architectural-smell rule and
// returns the combined finding list.
func RunArchitecturalSmellDetector(proj *model.Project, bundle config.Bundle) []model.Finding {
	var findings []model.Finding
	findings = append(findings, ruleHubLikeDependency(proj, bundle)...)
	findings = append(findings, ruleScatteredFunctionality(proj, bundle)...)
	findings = append(findings, ruleRedundantAbstractions(proj, bundle)...)
	findings = append(findings, ruleGodObject(proj, bundle)...)
	findings = append(findings, ruleImproperAPIUsage(proj, bundle)...)
	findings = append(findings, ruleOrphanModule(proj, bundle)...)
	findings = append(findings, ruleCyclicDependency(proj, bundle)...)
	findings = append(findings, ruleUnstableDependency(proj, bundle)...)
	return findings
}

var hubExcludedPatterns = []string{"util", "common", "base", "core"}

func containsAny(lower string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// ---- Hub-like Dependency ----

func ruleHubLikeDependency(proj *model.Project, bundle config.Bundle) []model.Finding {
	total := len(proj.Graph.Nodes())
	if total < 3 {
		return nil
	}
	threshold := bundle.Get("HUB_LIKE_DEPENDENCY_THRESHOLD", 0.5)
	minConnections := bundle.Get("MIN_HUB_CONNECTIONS", 5)

	var out []model.Finding
	for _, id := range proj.SortedModuleIDs() {
		mi := proj.Modules[id]
		inDeg := proj.Graph.InDegree(id)
		outDeg := proj.Graph.OutDegree(id)
		external := len(mi.StdlibImports) + len(mi.ThirdPartyImports)
		totalConn := inDeg + outDeg + external

		fanIn := float64(inDeg) / float64(total)
		fanOut := float64(outDeg+external) / float64(total)

		isHub := float64(totalConn) >= minConnections && float64(totalConn)/float64(total) > threshold
		if !isHub {
			continue
		}
		if containsAny(strings.ToLower(id), hubExcludedPatterns) {
			continue
		}
		balanced := fanIn/(fanOut+0.0001) >= 0.2 && fanIn/(fanOut+0.0001) <= 5
		if balanced {
			continue
		}
		sev := model.Medium
		if float64(totalConn) > minConnections*2 {
			sev = model.High
		}
		out = append(out, architecturalFinding(
			"Hub-like Dependency",
			fmt.Sprintf("module '%s' is a potential hub with %d connections (in: %d, out: %d, external: %d)", id, totalConn, inDeg, outDeg, external),
			mi.FilePath, id, sev,
		))
	}
	return out
}

// ---- Scattered Functionality ----

var scatteredExcludedNames = map[string]bool{"main": true, "init": true, "setup": true, "test": true}

func ruleScatteredFunctionality(proj *model.Project, bundle config.Bundle) []model.Finding {
	minOccurrences := bundle.Get("MIN_SCATTERED_OCCURRENCES", 3)

	funcModules := make(map[string][]string)
	for _, id := range proj.SortedModuleIDs() {
		mi := proj.Modules[id]
		for _, fn := range allFunctionNamesInModule(mi) {
			if len(fn) < 3 || scatteredExcludedNames[strings.ToLower(fn)] || strings.HasPrefix(fn, "_") {
				continue
			}
			funcModules[fn] = append(funcModules[fn], id)
		}
	}

	var names []string
	for fn := range funcModules {
		names = append(names, fn)
	}
	sort.Strings(names)

	var out []model.Finding
	for _, fn := range names {
		modules := funcModules[fn]
		if float64(len(modules)) >= minOccurrences {
			first := proj.Modules[modules[0]]
			out = append(out, architecturalFinding(
				"Scattered Functionality",
				fmt.Sprintf("function '%s' appears in %d modules: %s", fn, len(modules), strings.Join(modules, ", ")),
				first.FilePath, modules[0], model.Medium,
			))
		}
	}
	return out
}

func allFunctionNamesInModule(mi *model.ModuleInfo) []string {
	var out []string
	for _, fn := range mi.TopLevelFunctions {
		out = append(out, fn.Name)
	}
	for _, ci := range mi.Classes {
		for _, m := range ci.Methods {
			out = append(out, m.Name)
		}
	}
	return out
}

// ---- Redundant Abstractions ----

func ruleRedundantAbstractions(proj *model.Project, bundle config.Bundle) []model.Finding {
	const minFunctions = 3
	similarityThreshold := bundle.Get("REDUNDANT_SIMILARITY_THRESHOLD", 0.8)

	publicFuncs := make(map[string]map[string]bool)
	for _, id := range proj.SortedModuleIDs() {
		mi := proj.Modules[id]
		all := allFunctionNamesInModule(mi)
		if len(all) < minFunctions {
			continue
		}
		set := make(map[string]bool)
		for _, fn := range all {
			if !strings.HasPrefix(fn, "_") && len(fn) > 3 && !scatteredExcludedNames[strings.ToLower(fn)] {
				set[fn] = true
			}
		}
		if len(set) >= minFunctions {
			publicFuncs[id] = set
		}
	}

	var out []model.Finding
	ids := proj.SortedModuleIDs()
	var eligible []string
	for _, id := range ids {
		if publicFuncs[id] != nil {
			eligible = append(eligible, id)
		}
	}
	for i := 0; i < len(eligible); i++ {
		for j := i + 1; j < len(eligible); j++ {
			a, b := eligible[i], eligible[j]
			setA, setB := publicFuncs[a], publicFuncs[b]
			union := unionCount(setA, setB)
			if union == 0 {
				continue
			}
			inter := intersectCount(setA, setB)
			similarity := float64(inter) / float64(union)
			if similarity >= similarityThreshold {
				out = append(out, architecturalFinding(
					"Potential Redundant Abstractions",
					fmt.Sprintf("modules %s and %s have %.1f%% similar functionalities", a, b, similarity*100),
					proj.Modules[a].FilePath, a, model.Medium,
				))
			}
		}
	}
	return out
}

func unionCount(a, b map[string]bool) int {
	seen := make(map[string]bool)
	for k := range a {
		seen[k] = true
	}
	for k := range b {
		seen[k] = true
	}
	return len(seen)
}

func intersectCount(a, b map[string]bool) int {
	n := 0
	for k := range a {
		if b[k] {
			n++
		}
	}
	return n
}

// ---- God Object ----

var godObjectExcludedPrefixes = []string{"test_", "setup_", "config_"}

func ruleGodObject(proj *model.Project, bundle config.Bundle) []model.Finding {
	minFunctions := bundle.Get("MIN_GOD_OBJECT_FUNCTIONS", 5)
	threshold := bundle.Get("GOD_OBJECT_FUNCTIONS", 10)

	var out []model.Finding
	for _, id := range proj.SortedModuleIDs() {
		mi := proj.Modules[id]
		public := 0
		for _, fn := range allFunctionNamesInModule(mi) {
			if strings.HasPrefix(fn, "_") {
				continue
			}
			excluded := false
			for _, p := range godObjectExcludedPrefixes {
				if strings.HasPrefix(fn, p) {
					excluded = true
					break
				}
			}
			if !excluded {
				public++
			}
		}
		if float64(public) >= minFunctions && float64(public) > threshold {
			out = append(out, architecturalFinding(
				"God Object",
				fmt.Sprintf("module '%s' has too many public functions (%d)", id, public),
				mi.FilePath, id, severityFor(float64(public), threshold),
			))
		}
	}
	return out
}

// ---- Potential Improper API Usage ----

func ruleImproperAPIUsage(proj *model.Project, bundle config.Bundle) []model.Finding {
	minCalls := bundle.Get("MIN_API_CALLS", 10)
	repetitionThreshold := bundle.Get("API_REPETITION_THRESHOLD", 0.4)

	var out []model.Finding
	for _, id := range proj.SortedModuleIDs() {
		mi := proj.Modules[id]
		total := 0
		for _, count := range mi.APICalls {
			total += count
		}
		if float64(total) < minCalls {
			continue
		}
		var names []string
		for call := range mi.APICalls {
			names = append(names, call)
		}
		sort.Strings(names)

		repetitiveSum := 0
		var parts []string
		for _, call := range names {
			count := mi.APICalls[call]
			if count >= 3 {
				repetitiveSum += count
				parts = append(parts, fmt.Sprintf("%s(%dx)", call, count))
			}
		}
		if len(parts) == 0 {
			continue
		}
		if float64(repetitiveSum)/float64(total) > repetitionThreshold {
			out = append(out, architecturalFinding(
				"Potential Improper API Usage",
				fmt.Sprintf("module '%s' has repetitive API calls: %s", id, strings.Join(parts, ", ")),
				mi.FilePath, id, model.Medium,
			))
		}
	}
	return out
}

// ---- Orphan Module ----

var orphanExcludedNames = map[string]bool{"__init__": true, "setup": true, "tests": true, "utils": true}

func ruleOrphanModule(proj *model.Project, bundle config.Bundle) []model.Finding {
	minProjectSize := bundle.Get("MIN_PROJECT_SIZE", 3)
	if float64(len(proj.Graph.Nodes())) < minProjectSize {
		return nil
	}

	var out []model.Finding
	for _, id := range proj.SortedModuleIDs() {
		mi := proj.Modules[id]
		segments := strings.Split(id, ".")
		last := segments[len(segments)-1]
		if orphanExcludedNames[last] {
			continue
		}
		if containsAny(strings.ToLower(id), []string{"__init__", "setup", "tests", "utils"}) {
			continue
		}
		if proj.Graph.InDegree(id)+proj.Graph.OutDegree(id) == 0 {
			out = append(out, architecturalFinding(
				"Orphan Module",
				fmt.Sprintf("'%s' is isolated from other modules", id),
				mi.FilePath, id, model.Medium,
			))
		}
	}
	return out
}

// ---- Cyclic Dependency ----

func ruleCyclicDependency(proj *model.Project, bundle config.Bundle) []model.Finding {
	minCycleSize := int(bundle.Get("MIN_CYCLE_SIZE", 2))
	maxCycleSize := int(bundle.Get("MAX_CYCLE_SIZE", 5))
	excluded := []string{"__init__", "utils", "common", "base", "core"}

	cycles := proj.Graph.SimpleCycles()

	type cycleInfo struct {
		cycle    []string
		strength int
	}
	groups := make(map[string][]cycleInfo)
	var groupOrder []string

	for _, cycle := range cycles {
		if len(cycle) < minCycleSize || len(cycle) > maxCycleSize {
			continue
		}
		skip := false
		for _, node := range cycle {
			if containsAny(strings.ToLower(node), excluded) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}

		strength := 0
		for i := range cycle {
			a := cycle[i]
			b := cycle[(i+1)%len(cycle)]
			strength += proj.Graph.CountSimplePaths(a, b)
		}

		key := cycleKey(cycle)
		if _, ok := groups[key]; !ok {
			groupOrder = append(groupOrder, key)
		}
		groups[key] = append(groups[key], cycleInfo{cycle: cycle, strength: strength})
	}

	var out []model.Finding
	for _, key := range groupOrder {
		group := groups[key]
		strongest := group[0]
		for _, ci := range group[1:] {
			if ci.strength > strongest.strength {
				strongest = ci
			}
		}
		cycle, strength := strongest.cycle, strongest.strength
		sev := model.Medium
		if len(cycle) >= 3 && strength >= 3 {
			sev = model.High
		}
		path := append(append([]string(nil), cycle...), cycle[0])
		mi := proj.Modules[cycle[0]]
		out = append(out, architecturalFinding(
			"Cyclic Dependency",
			fmt.Sprintf("strong cyclic dependency detected: %s (cycle strength: %d mutual dependencies)", strings.Join(path, " -> "), strength),
			mi.FilePath, cycle[0], sev,
		))
	}
	return out
}

func cycleKey(cycle []string) string {
	sorted := append([]string(nil), cycle...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// ---- Unstable Dependency ----

var unstableExcludedPatterns = []string{"test_", "setup_", "__init__"}

func ruleUnstableDependency(proj *model.Project, bundle config.Bundle) []model.Finding {
	minDependencies := bundle.Get("MIN_DEPENDENCIES", 5)
	threshold := bundle.Get("UNSTABLE_DEPENDENCY_THRESHOLD", 0.8)

	var out []model.Finding
	for _, id := range proj.SortedModuleIDs() {
		excluded := false
		for _, p := range unstableExcludedPatterns {
			if strings.Contains(id, p) {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}

		inDeg := proj.Graph.InDegree(id)
		outDeg := proj.Graph.OutDegree(id)
		total := inDeg + outDeg
		if float64(total) < minDependencies {
			continue
		}
		instability := float64(outDeg) / float64(total)
		if instability > threshold {
			mi := proj.Modules[id]
			out = append(out, architecturalFinding(
				"Unstable Dependency",
				fmt.Sprintf("module '%s' has high instability (%.2f) with %d outgoing and %d incoming dependencies", id, instability, outDeg, inDeg),
				mi.FilePath, id, severityFor(instability, threshold),
			))
		}
	}
	return out
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package detect

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/smellbench/internal/config"
	"github.com/kraklabs/smellbench/internal/model"
	"github.com/kraklabs/smellbench/internal/parse"
)

func structuralFinding(name, description, filePath, moduleOrClass string, line int, sev model.Severity) model.Finding {
	return newFinding(model.Structural, name, description, filePath, moduleOrClass, line, sev)
}

// RunStructuralSmellDetector runs every structural-smell rule and returns
// the combined finding list.
func RunStructuralSmellDetector(proj *model.Project, bundle config.Bundle) []model.Finding {
	var findings []model.Finding
	findings = append(findings, ruleNOM(proj, bundle)...)
	findings = append(findings, ruleWMPC(proj, bundle)...)
	findings = append(findings, ruleSIZE2(proj, bundle)...)
	findings = append(findings, ruleWAC(proj, bundle)...)
	findings = append(findings, ruleLCOM(proj, bundle)...)
	findings = append(findings, ruleRFC(proj, bundle)...)
	findings = append(findings, ruleNOCC(proj, bundle)...)
	findings = append(findings, ruleDIT(proj, bundle)...)
	findings = append(findings, ruleLOC(proj, bundle)...)
	findings = append(findings, ruleMPC(proj, bundle)...)
	findings = append(findings, ruleCBO(proj, bundle)...)
	findings = append(findings, ruleNOC(proj, bundle)...)
	findings = append(findings, ruleCyclomaticComplexity(proj, bundle)...)
	findings = append(findings, ruleFanInOut(proj, bundle)...)
	findings = append(findings, ruleFileLength(proj, bundle)...)
	findings = append(findings, ruleBranches(proj, bundle)...)
	return findings
}

func nonMagicNonPropertyMethods(ci *model.ClassInfo) []*model.MethodInfo {
	var out []*model.MethodInfo
	for _, m := range ci.Methods {
		if m.Kind == model.MagicMethod || m.Kind == model.PropertyMethod {
			continue
		}
		out = append(out, m)
	}
	return out
}

// ---- NOM ----

func ruleNOM(proj *model.Project, bundle config.Bundle) []model.Finding {
	threshold := bundle.Get("NOM_THRESHOLD", 20)
	var out []model.Finding
	for _, id := range proj.SortedClassIDs() {
		ci := proj.Classes[id]
		count := len(nonMagicNonPropertyMethods(ci))
		if float64(count) > threshold {
			out = append(out, structuralFinding(
				"High Number of Methods (NOM)",
				fmt.Sprintf("%s has %d methods (threshold %.0f)", ci.Name, count, threshold),
				proj.Modules[ci.Module].FilePath, ci.Name, ci.StartLine,
				severityFor(float64(count), threshold),
			))
		}
	}
	return out
}

// ---- WMPC ----

func ruleWMPC(proj *model.Project, bundle config.Bundle) []model.Finding {
	t1 := bundle.Get("WMPC1_THRESHOLD", 50)
	t2 := bundle.Get("WMPC2_THRESHOLD", 50)
	var out []model.Finding
	for _, id := range proj.SortedClassIDs() {
		ci := proj.Classes[id]
		methods := nonMagicNonPropertyMethods(ci)
		wmpc1, wmpc2 := 0, 0
		for _, m := range methods {
			if m.Kind == model.AccessorMethod {
				continue
			}
			wmpc1 += m.CyclomaticComplexity()
			if n := m.ParamCount() - 1; n > 0 {
				wmpc2 += n
			}
		}
		if float64(wmpc1) > t1 {
			out = append(out, structuralFinding("WMPC1",
				fmt.Sprintf("%s has summed cyclomatic complexity %d (threshold %.0f)", ci.Name, wmpc1, t1),
				proj.Modules[ci.Module].FilePath, ci.Name, ci.StartLine, severityFor(float64(wmpc1), t1)))
		}
		if float64(wmpc2) > t2 {
			out = append(out, structuralFinding("WMPC2",
				fmt.Sprintf("%s has summed argument weight %d (threshold %.0f)", ci.Name, wmpc2, t2),
				proj.Modules[ci.Module].FilePath, ci.Name, ci.StartLine, severityFor(float64(wmpc2), t2)))
		}
	}
	return out
}

// ---- SIZE2 ----

func ruleSIZE2(proj *model.Project, bundle config.Bundle) []model.Finding {
	threshold := bundle.Get("SIZE2_THRESHOLD", 30)
	var out []model.Finding
	for _, id := range proj.SortedClassIDs() {
		ci := proj.Classes[id]
		usedElsewhere := fieldsUsedInMethods(ci)
		calledMethods := calledMethodNames(ci)

		count := 0
		for _, m := range ci.Methods {
			if isPrivateName(m.Name) {
				if calledMethods[m.Name] {
					count++
				}
			} else {
				count++
			}
		}
		for _, f := range ci.Fields {
			if isPrivateName(f) {
				if usedElsewhere[f] {
					count++
				}
			} else {
				count++
			}
		}
		if float64(count) > threshold {
			out = append(out, structuralFinding("SIZE2",
				fmt.Sprintf("%s has %d significant members (threshold %.0f)", ci.Name, count, threshold),
				proj.Modules[ci.Module].FilePath, ci.Name, ci.StartLine, severityFor(float64(count), threshold)))
		}
	}
	return out
}

func fieldsUsedInMethods(ci *model.ClassInfo) map[string]bool {
	used := make(map[string]bool)
	for _, m := range ci.Methods {
		if m.Body == nil {
			continue
		}
		for _, f := range selfReadInBody(m.Body, m.Source, receiverOf(m)) {
			used[f] = true
		}
	}
	return used
}

func calledMethodNames(ci *model.ClassInfo) map[string]bool {
	names := make(map[string]bool)
	for _, calls := range ci.MethodCalls {
		for _, c := range calls {
			names[c.Member] = true
		}
	}
	return names
}

// ---- WAC ----

func ruleWAC(proj *model.Project, bundle config.Bundle) []model.Finding {
	threshold := bundle.Get("WAC_THRESHOLD", 10)
	var out []model.Finding
	for _, id := range proj.SortedClassIDs() {
		ci := proj.Classes[id]
		used := fieldsUsedInMethods(ci)
		count := 0
		for _, f := range ci.Fields {
			if isAllUpper(f) {
				continue
			}
			if isPrivateName(f) {
				uses := 0
				for _, calls := range ci.MethodCalls {
					for _, c := range calls {
						if c.Member == f {
							uses++
						}
					}
				}
				if uses <= 1 && !used[f] {
					continue
				}
			}
			count++
		}
		if float64(count) > threshold {
			out = append(out, structuralFinding("WAC",
				fmt.Sprintf("%s has %d weighted attribute count (threshold %.0f)", ci.Name, count, threshold),
				proj.Modules[ci.Module].FilePath, ci.Name, ci.StartLine, severityFor(float64(count), threshold)))
		}
	}
	return out
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasLetter = true
		}
	}
	return hasLetter
}

// ---- LCOM ----

func ruleLCOM(proj *model.Project, bundle config.Bundle) []model.Finding {
	threshold := bundle.Get("LCOM_THRESHOLD", 5)
	var out []model.Finding
	for _, id := range proj.SortedClassIDs() {
		ci := proj.Classes[id]
		methods := qualifyingLCOMMethods(ci)
		if len(methods) < 2 {
			continue
		}
		fieldUse := methodFieldUseFixpoint(ci, methods)

		nc, cc := 0, 0
		for i := 0; i < len(methods); i++ {
			for j := i + 1; j < len(methods); j++ {
				a, b := methods[i].Name, methods[j].Name
				if isPrivateName(a) && isPrivateName(b) {
					continue
				}
				if intersects(fieldUse[a], fieldUse[b]) {
					cc++
				} else {
					nc++
				}
			}
		}
		lcom := nc - cc
		if lcom < 0 {
			lcom = 0
		}
		if float64(lcom) > threshold {
			out = append(out, structuralFinding("LCOM",
				fmt.Sprintf("%s has LCOM %d (threshold %.0f)", ci.Name, lcom, threshold),
				proj.Modules[ci.Module].FilePath, ci.Name, ci.StartLine, severityFor(float64(lcom), threshold)))
		}
	}
	return out
}

func qualifyingLCOMMethods(ci *model.ClassInfo) []*model.MethodInfo {
	var out []*model.MethodInfo
	for _, m := range ci.Methods {
		if m.Kind == model.MagicMethod || m.Kind == model.PropertyMethod {
			continue
		}
		out = append(out, m)
	}
	return out
}

// methodFieldUseFixpoint computes, per method, the set of class fields it
// touches directly plus (propagated to fixpoint) fields touched by
// same-class methods it calls.
func methodFieldUseFixpoint(ci *model.ClassInfo, methods []*model.MethodInfo) map[string]map[string]bool {
	direct := make(map[string]map[string]bool)
	calls := make(map[string]map[string]bool)
	methodNames := make(map[string]bool)
	for _, m := range methods {
		methodNames[m.Name] = true
	}

	for _, m := range methods {
		receiver := receiverOf(m)
		fieldSet := make(map[string]bool)
		if m.Body != nil {
			for _, f := range selfReadInBody(m.Body, m.Source, receiver) {
				fieldSet[f] = true
			}
			for _, f := range selfAssignedInBody(m.Body, m.Source, receiver) {
				fieldSet[f] = true
			}
		}
		direct[m.Name] = fieldSet

		calledSet := make(map[string]bool)
		for _, c := range ci.MethodCalls[m.Name] {
			if methodNames[c.Member] {
				calledSet[c.Member] = true
			}
		}
		calls[m.Name] = calledSet
	}

	result := make(map[string]map[string]bool)
	for name := range direct {
		result[name] = cloneSet(direct[name])
	}

	changed := true
	for changed {
		changed = false
		for name, callSet := range calls {
			for callee := range callSet {
				for f := range result[callee] {
					if !result[name][f] {
						result[name][f] = true
						changed = true
					}
				}
			}
		}
	}
	return result
}

func cloneSet(s map[string]bool) map[string]bool {
	out := make(map[string]bool, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func intersects(a, b map[string]bool) bool {
	for k := range a {
		if b[k] {
			return true
		}
	}
	return false
}

// ---- RFC ----

func ruleRFC(proj *model.Project, bundle config.Bundle) []model.Finding {
	threshold := bundle.Get("RFC_THRESHOLD", 50)
	var out []model.Finding
	for _, id := range proj.SortedClassIDs() {
		ci := proj.Classes[id]
		significant := 0
		for _, m := range ci.Methods {
			if m.Kind == model.MagicMethod {
				continue
			}
			if m.Kind != model.AccessorMethod || !isPrivateName(m.Name) {
				significant++
			}
		}
		externalCalls := make(map[string]bool)
		ownMethods := make(map[string]bool)
		for _, m := range ci.Methods {
			ownMethods[m.Name] = true
		}
		for _, calls := range ci.MethodCalls {
			for _, c := range calls {
				if ownMethods[c.Member] {
					continue
				}
				if model.IsStdlibRoot(c.Receiver) {
					continue
				}
				externalCalls[c.Member] = true
			}
		}
		total := significant + len(externalCalls)
		if float64(total) > threshold {
			out = append(out, structuralFinding("RFC",
				fmt.Sprintf("%s has response-for-class %d (threshold %.0f)", ci.Name, total, threshold),
				proj.Modules[ci.Module].FilePath, ci.Name, ci.StartLine, severityFor(float64(total), threshold)))
		}
	}
	return out
}

// ---- NOCC ----

func ruleNOCC(proj *model.Project, bundle config.Bundle) []model.Finding {
	base := bundle.Get("NOCC_THRESHOLD", 10)

	byModule := make(map[string][]*model.ClassInfo)
	for _, id := range proj.SortedClassIDs() {
		ci := proj.Classes[id]
		byModule[ci.Module] = append(byModule[ci.Module], ci)
	}

	var out []model.Finding
	for _, modID := range proj.SortedModuleIDs() {
		classes := byModule[modID]
		var weights []float64
		var eligible []*model.ClassInfo
		for _, ci := range classes {
			if ci.Kind == model.TestClass || ci.Kind == model.ExceptionClass {
				continue
			}
			complexity := 0
			for _, m := range ci.Methods {
				complexity += m.CyclomaticComplexity()
			}
			w := float64(len(ci.Methods)+len(ci.Fields)+complexity) / 3.0
			weights = append(weights, w)
			eligible = append(eligible, ci)
		}
		if len(eligible) == 0 {
			continue
		}
		avg := sum(weights) / float64(len(weights))
		threshold := base
		if avg < 5 {
			threshold *= 1.5
		} else if avg > 15 {
			threshold *= 0.7
		}
		if float64(len(eligible)) > threshold {
			mi := proj.Modules[modID]
			out = append(out, structuralFinding("NOCC",
				fmt.Sprintf("module %s defines %d classes (adjusted threshold %.1f)", modID, len(eligible), threshold),
				mi.FilePath, "", 0, severityFor(float64(len(eligible)), threshold)))
		}
	}
	return out
}

func sum(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}

// ---- DIT ----

var builtinBases = map[string]bool{"object": true, "Exception": true, "BaseException": true, "dict": true, "list": true, "tuple": true, "set": true, "type": true}

func ruleDIT(proj *model.Project, bundle config.Bundle) []model.Finding {
	threshold := bundle.Get("DIT_THRESHOLD", 5)

	graph := model.NewInheritanceGraph()
	for _, id := range proj.SortedClassIDs() {
		ci := proj.Classes[id]
		if hasSuffixAny(ci.Name, "Mixin", "Interface", "Abstract") || strings.HasSuffix(ci.Name, "ABC") {
			graph.AddClass(ci.ID)
			continue
		}
		graph.AddClass(ci.ID)
		for _, base := range ci.BaseClasses {
			if builtinBases[base] {
				continue
			}
			if baseCi, ok := proj.Classes[base]; ok {
				graph.AddEdge(baseCi.ID, ci.ID)
			}
		}
	}
	graph.Finalize()

	var out []model.Finding
	for _, id := range proj.SortedClassIDs() {
		ci := proj.Classes[id]
		depth := graph.ShortestPathFromObject(ci.ID)
		if depth > int(threshold) {
			out = append(out, structuralFinding("DIT",
				fmt.Sprintf("%s is %d levels deep (threshold %.0f)", ci.Name, depth, threshold),
				proj.Modules[ci.Module].FilePath, ci.Name, ci.StartLine, severityFor(float64(depth), threshold)))
		}
		if depth == 1 && !hasProjectBase(ci, proj) && !isFrameworkPrefixed(ci.Name) {
			out = append(out, structuralFinding("Isolated Class",
				fmt.Sprintf("%s has no resolvable path to object beyond the synthetic root", ci.Name),
				proj.Modules[ci.Module].FilePath, ci.Name, ci.StartLine, lowSeverity))
		}
	}
	return out
}

func hasProjectBase(ci *model.ClassInfo, proj *model.Project) bool {
	for _, b := range ci.BaseClasses {
		if _, ok := proj.Classes[b]; ok {
			return true
		}
	}
	return false
}

func isFrameworkPrefixed(name string) bool {
	return strings.HasPrefix(name, "Django") || strings.HasPrefix(name, "Flask") || strings.HasPrefix(name, "Base")
}

// ---- LOC ----

func ruleLOC(proj *model.Project, bundle config.Bundle) []model.Finding {
	base := bundle.Get("LOC_THRESHOLD", 1000)
	var out []model.Finding
	for _, id := range proj.SortedModuleIDs() {
		mi := proj.Modules[id]
		threshold := base
		if mi.IsTestModule() {
			threshold *= 1.5
		}
		total := mi.LineCount - mi.LOC.Blank
		if total > 0 && float64(mi.LOC.Code)/float64(total) < 0.5 {
			threshold *= 1.3
		}
		if float64(mi.LOC.Code) > threshold {
			out = append(out, structuralFinding("LOC",
				fmt.Sprintf("%s has %d effective code lines (adjusted threshold %.1f)", mi.ID, mi.LOC.Code, threshold),
				mi.FilePath, "", 0, severityFor(float64(mi.LOC.Code), threshold)))
		}
	}
	return out
}

// ---- MPC ----

func ruleMPC(proj *model.Project, bundle config.Bundle) []model.Finding {
	threshold := bundle.Get("MPC_THRESHOLD", 20)
	var out []model.Finding
	for _, id := range proj.SortedClassIDs() {
		ci := proj.Classes[id]
		ownMethods := make(map[string]bool)
		for _, m := range ci.Methods {
			ownMethods[m.Name] = true
		}
		internal, external := 0, 0
		for _, calls := range ci.MethodCalls {
			for _, c := range calls {
				if isGetterSetter(c.Member) || model.IsStdlibRoot(c.Receiver) || isMagic(c.Member) {
					continue
				}
				if ownMethods[c.Member] {
					internal++
				} else {
					external++
				}
			}
		}
		weighted := float64(external)*1.5 + float64(internal)
		if weighted > threshold {
			out = append(out, structuralFinding("MPC",
				fmt.Sprintf("%s has weighted message-passing coupling %s (threshold %.0f)", ci.Name, fmtFloat(weighted), threshold),
				proj.Modules[ci.Module].FilePath, ci.Name, ci.StartLine, severityFor(weighted, threshold)))
		}
	}
	return out
}

func isGetterSetter(name string) bool {
	return strings.HasPrefix(name, "get_") || strings.HasPrefix(name, "set_") || strings.HasPrefix(name, "get") || strings.HasPrefix(name, "set")
}

// ---- CBO ----

func ruleCBO(proj *model.Project, bundle config.Bundle) []model.Finding {
	threshold := bundle.Get("CBO_THRESHOLD", 14)
	var out []model.Finding
	for _, id := range proj.SortedClassIDs() {
		ci := proj.Classes[id]
		direct := make(map[string]bool)
		for _, b := range ci.BaseClasses {
			if !builtinBases[b] && !droppedCouplingName(b) {
				direct[b] = true
			}
		}
		indirect := make(map[string]bool)
		for _, calls := range ci.MethodCalls {
			for _, c := range calls {
				if model.IsStdlibRoot(c.Receiver) || droppedCouplingName(c.Receiver) {
					continue
				}
				direct[c.Receiver] = true
			}
		}
		weighted := float64(len(direct))*1.5 + float64(len(indirect))*0.5
		sev := lowSeverity
		if weighted > 2*threshold {
			sev = model.High
		} else if weighted > 1.5*threshold {
			sev = model.Medium
		} else if weighted <= threshold {
			continue
		} else {
			sev = lowSeverity
		}
		if weighted > threshold {
			out = append(out, structuralFinding("CBO",
				fmt.Sprintf("%s has weighted coupling %s (threshold %.0f)", ci.Name, fmtFloat(weighted), threshold),
				proj.Modules[ci.Module].FilePath, ci.Name, ci.StartLine, sev))
		}
	}
	return out
}

func droppedCouplingName(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "util") || strings.Contains(lower, "helper") || strings.HasPrefix(name, "test")
}

// ---- NOC ----

func ruleNOC(proj *model.Project, bundle config.Bundle) []model.Finding {
	base := bundle.Get("NOC_THRESHOLD", 50)

	regular, abstract, utility := 0, 0, 0
	totalLOC := 0
	for _, id := range proj.SortedClassIDs() {
		ci := proj.Classes[id]
		switch ci.Kind {
		case model.TestClass:
			// excluded from the weighted count entirely
		case model.AbstractClass:
			abstract++
		case model.UtilityClass, model.MixinClass:
			utility++
		default:
			regular++
		}
	}
	for _, id := range proj.ModuleOrder {
		totalLOC += proj.Modules[id].LOC.Code
	}

	weighted := float64(regular) + 0.5*float64(abstract) + 0.3*float64(utility)
	threshold := base
	if totalLOC > 10000 {
		threshold *= 1.5
	} else if totalLOC > 5000 {
		threshold *= 1.2
	}

	if weighted > threshold {
		return []model.Finding{structuralFinding("NOC",
			fmt.Sprintf("project defines a weighted %s classes (adjusted threshold %.1f)", fmtFloat(weighted), threshold),
			"", "", 0, severityFor(weighted, threshold))}
	}
	return nil
}

// ---- Cyclomatic Complexity ----

func ruleCyclomaticComplexity(proj *model.Project, bundle config.Bundle) []model.Finding {
	threshold := bundle.Get("CYCLOMATIC_COMPLEXITY_THRESHOLD", 10)
	var out []model.Finding
	for _, fc := range allFunctions(proj) {
		if fc.fn.Kind == model.MagicMethod {
			continue
		}
		complexity := fc.fn.CyclomaticComplexity()
		if float64(complexity) > threshold {
			out = append(out, structuralFinding("Cyclomatic Complexity",
				fmt.Sprintf("%s has cyclomatic complexity %d (threshold %.0f)", contextName(fc), complexity, threshold),
				fc.module.FilePath, contextName(fc), fc.fn.StartLine, severityFor(float64(complexity), threshold)))
		}
	}
	return out
}

// ---- Fan-out / Fan-in ----

func ruleFanInOut(proj *model.Project, bundle config.Bundle) []model.Finding {
	fanOutThreshold := bundle.Get("FAN_OUT_THRESHOLD", 10)
	fanInThreshold := bundle.Get("FAN_IN_THRESHOLD", 10)

	var out []model.Finding
	for _, id := range proj.SortedModuleIDs() {
		mi := proj.Modules[id]
		if mi.IsTestModule() {
			continue
		}
		fanOut := proj.Graph.OutDegree(id)
		if float64(fanOut) > fanOutThreshold {
			out = append(out, structuralFinding("Fan-out",
				fmt.Sprintf("%s imports %d project modules (threshold %.0f)", id, fanOut, fanOutThreshold),
				mi.FilePath, "", 0, severityFor(float64(fanOut), fanOutThreshold)))
		}
		if droppedCouplingName(id) {
			continue
		}
		fanIn := proj.Graph.InDegree(id)
		if float64(fanIn) > fanInThreshold {
			out = append(out, structuralFinding("Fan-in",
				fmt.Sprintf("%s is imported by %d project modules (threshold %.0f)", id, fanIn, fanInThreshold),
				mi.FilePath, "", 0, severityFor(float64(fanIn), fanInThreshold)))
		}
	}
	return out
}

// ---- File Length ----

func ruleFileLength(proj *model.Project, bundle config.Bundle) []model.Finding {
	threshold := bundle.Get("MAX_FILE_LENGTH", 500)
	var out []model.Finding
	for _, id := range proj.SortedModuleIDs() {
		mi := proj.Modules[id]
		meaningful := 0
		for _, k := range mi.Lines {
			if k != parse.LineBlank && k != parse.LineComment && k != parse.LineDocstring {
				meaningful++
			}
		}
		if float64(meaningful) > threshold {
			out = append(out, structuralFinding("File Length",
				fmt.Sprintf("%s has %d meaningful lines (threshold %.0f)", mi.ID, meaningful, threshold),
				mi.FilePath, "", 0, severityFor(float64(meaningful), threshold)))
		}
	}
	return out
}

// ---- Branches ----

func ruleBranches(proj *model.Project, bundle config.Bundle) []model.Finding {
	threshold := bundle.Get("MAX_BRANCHES", 10)
	var out []model.Finding
	for _, fc := range allFunctions(proj) {
		if fc.fn.Kind == model.PropertyMethod {
			continue
		}
		if strings.HasPrefix(fc.fn.Name, "get_") || strings.HasPrefix(fc.fn.Name, "set_") || strings.HasPrefix(fc.fn.Name, "is_") {
			continue
		}
		if fc.fn.Body == nil {
			continue
		}
		branches := countBranches(fc.fn.Body)
		nesting := fc.fn.MaxNestingDepth()
		if float64(branches) > threshold || nesting > 3 {
			out = append(out, structuralFinding("Branches",
				fmt.Sprintf("%s has %d branches and max nesting %d", contextName(fc), branches, nesting),
				fc.module.FilePath, contextName(fc), fc.fn.StartLine, severityFor(float64(branches), threshold)))
		}
	}
	return out
}

func countBranches(body *sitter.Node) int {
	n := 0
	walkTree(body, func(node *sitter.Node) {
		switch node.Type() {
		case "if_statement", "elif_clause", "for_statement", "while_statement", "try_statement", "except_clause":
			n++
		}
	})
	return n
}

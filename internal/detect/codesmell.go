// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package detect

import (
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/smellbench/internal/config"
	"github.com/kraklabs/smellbench/internal/model"
	"github.com/kraklabs/smellbench/internal/parse"
)

// funcCtx pairs a method/function with enough owning context (module,
// optional class) for rules that need to report a file/line or walk the
// owning module's line classification.
type funcCtx struct {
	fn       *model.MethodInfo
	module   *model.ModuleInfo
	class    *model.ClassInfo // nil for top-level functions
}

func allFunctions(proj *model.Project) []funcCtx {
	var out []funcCtx
	for _, id := range proj.SortedModuleIDs() {
		mi := proj.Modules[id]
		for _, fn := range mi.TopLevelFunctions {
			out = append(out, funcCtx{fn: fn, module: mi})
		}
		for _, ci := range mi.Classes {
			for _, m := range ci.Methods {
				out = append(out, funcCtx{fn: m, module: mi, class: ci})
			}
		}
	}
	return out
}

// RunCodeSmellDetector runs every code-smell rule over the project model
// and returns the combined finding list.
func RunCodeSmellDetector(proj *model.Project, bundle config.Bundle) []model.Finding {
	var findings []model.Finding
	funcs := allFunctions(proj)

	findings = append(findings, ruleLongMethod(proj, funcs, bundle)...)
	findings = append(findings, ruleLargeClass(proj, bundle)...)
	findings = append(findings, rulePrimitiveObsession(funcs, bundle)...)
	findings = append(findings, ruleLongParameterList(funcs, bundle)...)
	findings = append(findings, ruleDataClumps(funcs, bundle)...)
	findings = append(findings, ruleSwitchStatements(funcs, bundle)...)
	findings = append(findings, ruleTemporaryField(proj, bundle)...)
	findings = append(findings, ruleAlternativeClasses(proj, bundle)...)
	findings = append(findings, ruleDivergentChange(proj, bundle)...)
	findings = append(findings, ruleParallelInheritance(proj, bundle)...)
	findings = append(findings, ruleShotgunSurgery(proj, funcs, bundle)...)
	findings = append(findings, ruleExcessiveComments(proj, bundle)...)
	findings = append(findings, ruleDuplicateCode(funcs, bundle)...)
	findings = append(findings, ruleSpeculativeGenerality(proj, bundle)...)
	findings = append(findings, ruleFeatureEnvy(funcs, bundle)...)
	findings = append(findings, ruleInappropriateIntimacy(proj, bundle)...)
	findings = append(findings, ruleMessageChains(funcs, bundle)...)
	findings = append(findings, ruleMiddleMan(proj, bundle)...)
	findings = append(findings, ruleDeadCode(funcs)...)
	findings = append(findings, ruleLazyClass(proj, bundle)...)

	return findings
}

func contextName(fc funcCtx) string {
	if fc.class != nil {
		return fc.class.Name + "." + fc.fn.Name
	}
	return fc.fn.Name
}

// ---- Long Method ----

func ruleLongMethod(proj *model.Project, funcs []funcCtx, bundle config.Bundle) []model.Finding {
	threshold := bundle.Get("LONG_METHOD_LINES", 30)
	var out []model.Finding
	for _, fc := range funcs {
		if fc.fn.Kind == model.PropertyMethod {
			continue
		}
		lines := fc.module.Lines
		start, end := fc.fn.StartLine-1, fc.fn.EndLine-1
		if start < 0 || end >= len(lines) || start > end {
			continue
		}
		count := 0
		for _, k := range lines[start : end+1] {
			if k != parse.LineBlank && k != parse.LineComment {
				count++
			}
		}
		if float64(count) > threshold {
			out = append(out, codeFinding(
				"Long Method",
				fmt.Sprintf("%s spans %d non-comment lines (threshold %.0f)", contextName(fc), count, threshold),
				fc.module.FilePath, contextName(fc), fc.fn.StartLine,
				severityFor(float64(count), threshold),
			))
		}
	}
	return out
}

// ---- Large Class ----

func ruleLargeClass(proj *model.Project, bundle config.Bundle) []model.Finding {
	threshold := bundle.Get("LARGE_CLASS_METHODS", 20)
	var out []model.Finding
	for _, id := range proj.SortedClassIDs() {
		ci := proj.Classes[id]
		if ci.Kind == model.DataClass || ci.Kind == model.ExceptionClass {
			continue
		}
		count := 0
		for _, m := range ci.Methods {
			if m.Kind == model.MagicMethod || m.Kind == model.AccessorMethod {
				continue
			}
			count++
		}
		if float64(count) > threshold {
			out = append(out, codeFinding(
				"Large Class",
				fmt.Sprintf("%s has %d non-trivial methods (threshold %.0f)", ci.Name, count, threshold),
				proj.Modules[ci.Module].FilePath, ci.Name, ci.StartLine,
				severityFor(float64(count), threshold),
			))
		}
	}
	return out
}

// ---- Primitive Obsession ----

var primitiveAnnotations = map[string]bool{"int": true, "str": true, "float": true, "bool": true}

func rulePrimitiveObsession(funcs []funcCtx, bundle config.Bundle) []model.Finding {
	countThreshold := bundle.Get("PRIMITIVE_OBSESSION_COUNT", 3)
	var out []model.Finding
	for _, fc := range funcs {
		nonReceiver := nonReceiverParams(fc.fn)
		if len(nonReceiver) <= 3 {
			continue
		}
		primitives := 0
		for _, p := range fc.fn.Params {
			if p.Name == "self" || p.Name == "cls" {
				continue
			}
			if primitiveAnnotations[p.Annotation] {
				primitives++
			}
		}
		ratio := float64(primitives) / float64(len(nonReceiver))
		if float64(primitives) > countThreshold && ratio > 0.7 {
			out = append(out, codeFinding(
				"Primitive Obsession",
				fmt.Sprintf("%s has %d primitive-typed parameters (ratio %s)", contextName(fc), primitives, fmtFloat(ratio)),
				fc.module.FilePath, contextName(fc), fc.fn.StartLine,
				severityFor(float64(primitives), countThreshold),
			))
		}
	}
	return out
}

// ---- Long Parameter List ----

func ruleLongParameterList(funcs []funcCtx, bundle config.Bundle) []model.Finding {
	base := bundle.Get("LONG_PARAMETER_LIST", 4)
	var out []model.Finding
	for _, fc := range funcs {
		if fc.fn.Name == "__init__" {
			continue
		}
		params := nonReceiverParams(fc.fn)
		threshold := base
		if fc.fn.HasVarArgs || fc.fn.HasKwargs {
			threshold += 2
		}
		if float64(len(params)) > threshold {
			out = append(out, codeFinding(
				"Long Parameter List",
				fmt.Sprintf("%s declares %d parameters (adjusted threshold %.0f)", contextName(fc), len(params), threshold),
				fc.module.FilePath, contextName(fc), fc.fn.StartLine,
				severityFor(float64(len(params)), threshold),
			))
		}
	}
	return out
}

// ---- Data Clumps ----

func combinations(items []string, size int) [][]string {
	var out [][]string
	var pick func(start int, cur []string)
	pick = func(start int, cur []string) {
		if len(cur) == size {
			out = append(out, append([]string(nil), cur...))
			return
		}
		for i := start; i < len(items); i++ {
			pick(i+1, append(cur, items[i]))
		}
	}
	pick(0, nil)
	return out
}

func ruleDataClumps(funcs []funcCtx, bundle config.Bundle) []model.Finding {
	threshold := bundle.Get("DATA_CLUMPS_THRESHOLD", 3)
	clumpOwners := make(map[string][]funcCtx)

	for _, fc := range funcs {
		if fc.fn.Name == "__init__" || fc.fn.Kind == model.PropertyMethod {
			continue
		}
		params := nonReceiverParams(fc.fn)
		if float64(len(params)) < threshold {
			continue
		}
		sorted := append([]string(nil), params...)
		sort.Strings(sorted)
		for size := 3; size <= len(sorted); size++ {
			for _, combo := range combinations(sorted, size) {
				key := strings.Join(combo, ",")
				clumpOwners[key] = append(clumpOwners[key], fc)
			}
		}
	}

	var keys []string
	for k, owners := range clumpOwners {
		if len(owners) >= 2 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var out []model.Finding
	for _, key := range keys {
		owners := clumpOwners[key]
		first := owners[0]
		names := make([]string, len(owners))
		for i, o := range owners {
			names[i] = contextName(o)
		}
		out = append(out, codeFinding(
			"Data Clumps",
			fmt.Sprintf("Parameters (%s) repeat across %s", key, strings.Join(names, ", ")),
			first.module.FilePath, "", first.fn.StartLine,
			model.Medium,
		))
	}
	return out
}

// ---- Switch Statements (complex conditional chains) ----

func ruleSwitchStatements(funcs []funcCtx, bundle config.Bundle) []model.Finding {
	threshold := bundle.Get("COMPLEX_CONDITIONAL", 3)
	var out []model.Finding
	for _, fc := range funcs {
		if fc.fn.Body == nil {
			continue
		}
		walkConditionals(fc.fn.Body, fc.fn.Source, func(ifNode *sitter.Node) {
			if isInsideExceptClause(ifNode) {
				return
			}
			elseClause := ifNode.ChildByFieldName("alternative")
			if elseClause == nil {
				return
			}
			elifCount := countElifSiblings(ifNode)
			branchCount := 1 + elifCount
			cond := ifNode.ChildByFieldName("condition")
			condText := ""
			if cond != nil {
				condText = cond.Content(fc.fn.Source)
			}
			if strings.Contains(condText, "isinstance(") {
				return
			}
			consequence := ifNode.ChildByFieldName("consequence")
			if consequence != nil && int(consequence.NamedChildCount()) <= 2 && isCompareExpr(cond) {
				return // guard clause
			}
			if float64(branchCount) > threshold {
				out = append(out, codeFinding(
					"Switch Statements",
					fmt.Sprintf("%s has a conditional chain with %d branches (threshold %.0f)", contextName(fc), branchCount, threshold),
					fc.module.FilePath, contextName(fc), int(ifNode.StartPoint().Row)+1,
					severityFor(float64(branchCount), threshold),
				))
			}
		})
	}
	return out
}

func walkConditionals(n *sitter.Node, source []byte, visit func(*sitter.Node)) {
	if n.Type() == "if_statement" {
		visit(n)
	}
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		if child.Type() == "function_definition" || child.Type() == "class_definition" {
			continue
		}
		walkConditionals(child, source, visit)
	}
}

func countElifSiblings(ifNode *sitter.Node) int {
	n := 0
	count := int(ifNode.NamedChildCount())
	for i := 0; i < count; i++ {
		if ifNode.NamedChild(i).Type() == "elif_clause" {
			n++
		}
	}
	return n
}

func isInsideExceptClause(n *sitter.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "except_clause" {
			return true
		}
		if p.Type() == "function_definition" {
			return false
		}
	}
	return false
}

func isCompareExpr(n *sitter.Node) bool {
	return n != nil && n.Type() == "comparison_operator"
}

// ---- Temporary Field ----

var temporaryFieldExclusions = map[string]bool{"logger": true, "config": true, "cache": true, "_cache": true}

func ruleTemporaryField(proj *model.Project, bundle config.Bundle) []model.Finding {
	threshold := bundle.Get("TEMPORARY_FIELD_THRESHOLD", 2)
	var out []model.Finding
	for _, id := range proj.SortedClassIDs() {
		ci := proj.Classes[id]
		if ci.Kind == model.DataClass || ci.Kind == model.ExceptionClass {
			continue
		}
		init := ci.MethodByName("__init__")
		if init == nil {
			continue
		}
		assignedInInit := make(map[string]bool)
		if init.Body != nil {
			for _, f := range selfAssignedInBody(init.Body, init.Source, receiverOf(init)) {
				assignedInInit[f] = true
			}
		}
		usedElsewhere := make(map[string]bool)
		for _, m := range ci.Methods {
			if m.Name == "__init__" || m.Body == nil {
				continue
			}
			for _, f := range selfReadInBody(m.Body, m.Source, receiverOf(m)) {
				usedElsewhere[f] = true
			}
		}
		var temp []string
		for f := range assignedInInit {
			if usedElsewhere[f] {
				continue
			}
			if temporaryFieldExclusions[f] || strings.Contains(strings.ToLower(f), "cache") {
				continue
			}
			temp = append(temp, f)
		}
		if float64(len(temp)) >= threshold {
			sort.Strings(temp)
			out = append(out, codeFinding(
				"Temporary Field",
				fmt.Sprintf("%s has fields set in __init__ but never read elsewhere: %s", ci.Name, strings.Join(temp, ", ")),
				proj.Modules[ci.Module].FilePath, ci.Name, ci.StartLine,
				lowSeverity,
			))
		}
	}
	return out
}

func receiverOf(m *model.MethodInfo) string {
	if len(m.Params) == 0 {
		return "self"
	}
	return m.Params[0].Name
}

func selfAssignedInBody(body *sitter.Node, source []byte, receiver string) []string {
	var out []string
	walkTree(body, func(n *sitter.Node) {
		if n.Type() != "assignment" {
			return
		}
		left := n.ChildByFieldName("left")
		if left == nil || left.Type() != "attribute" {
			return
		}
		obj := left.ChildByFieldName("object")
		attr := left.ChildByFieldName("attribute")
		if obj == nil || attr == nil || obj.Content(source) != receiver {
			return
		}
		out = append(out, attr.Content(source))
	})
	return out
}

func selfReadInBody(body *sitter.Node, source []byte, receiver string) []string {
	var out []string
	walkTree(body, func(n *sitter.Node) {
		if n.Type() != "attribute" {
			return
		}
		if n.Parent() != nil && n.Parent().Type() == "assignment" {
			if left := n.Parent().ChildByFieldName("left"); left == n {
				return
			}
		}
		obj := n.ChildByFieldName("object")
		attr := n.ChildByFieldName("attribute")
		if obj == nil || attr == nil || obj.Content(source) != receiver {
			return
		}
		out = append(out, attr.Content(source))
	})
	return out
}

func walkTree(n *sitter.Node, visit func(*sitter.Node)) {
	if n == nil {
		return
	}
	visit(n)
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		if child.Type() == "function_definition" || child.Type() == "class_definition" {
			continue
		}
		walkTree(child, visit)
	}
}

// ---- Alternative Classes with Different Interfaces ----

var standardMethodNames = map[string]bool{"__init__": true, "__str__": true, "__repr__": true, "__eq__": true, "__hash__": true}

func publicInterfaceSignature(ci *model.ClassInfo) (string, int) {
	var names []string
	for _, m := range ci.Methods {
		if isPrivateName(m.Name) || standardMethodNames[m.Name] {
			continue
		}
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return strings.Join(names, ","), len(names)
}

func ruleAlternativeClasses(proj *model.Project, bundle config.Bundle) []model.Finding {
	threshold := bundle.Get("ALTERNATIVE_CLASSES_THRESHOLD", 2)
	partitions := make(map[string][]*model.ClassInfo)

	for _, id := range proj.SortedClassIDs() {
		ci := proj.Classes[id]
		if ci.Kind == model.DataClass || ci.Kind == model.AbstractClass || ci.Kind == model.ExceptionClass {
			continue
		}
		sig, n := publicInterfaceSignature(ci)
		if n < 2 {
			continue
		}
		partitions[sig] = append(partitions[sig], ci)
	}

	var sigs []string
	for sig := range partitions {
		sigs = append(sigs, sig)
	}
	sort.Strings(sigs)

	var out []model.Finding
	for _, sig := range sigs {
		group := partitions[sig]
		if float64(len(group)) < threshold {
			continue
		}
		if shareCommonBase(group) {
			continue
		}
		names := make([]string, len(group))
		for i, c := range group {
			names[i] = c.Name
		}
		out = append(out, codeFinding(
			"Alternative Classes with Different Interfaces",
			fmt.Sprintf("Classes %s share method set {%s} but no common base", strings.Join(names, ", "), sig),
			proj.Modules[group[0].Module].FilePath, "", group[0].StartLine,
			model.Medium,
		))
	}
	return out
}

func shareCommonBase(classes []*model.ClassInfo) bool {
	if len(classes) < 2 {
		return false
	}
	first := make(map[string]bool)
	for _, b := range classes[0].BaseClasses {
		first[b] = true
	}
	for _, c := range classes[1:] {
		shared := false
		for _, b := range c.BaseClasses {
			if first[b] {
				shared = true
				break
			}
		}
		if !shared {
			return false
		}
	}
	return true
}

// ---- Divergent Change ----

var divergentChangeCommonPrefixes = map[string]bool{
	"get": true, "set": true, "is": true, "has": true,
	"validate": true, "create": true, "update": true, "delete": true,
}

func ruleDivergentChange(proj *model.Project, bundle config.Bundle) []model.Finding {
	prefixThreshold := bundle.Get("DIVERGENT_CHANGE_PREFIXES", 3)
	methodThreshold := bundle.Get("DIVERGENT_CHANGE_METHODS", 5)

	var out []model.Finding
	for _, id := range proj.SortedClassIDs() {
		ci := proj.Classes[id]
		if ci.Kind == model.DataClass || ci.Kind == model.ExceptionClass || ci.Kind == model.UtilityClass || ci.Kind == model.MixinClass {
			continue
		}
		prefixes := make(map[string]bool)
		retained := 0
		for _, m := range ci.Methods {
			if m.Kind == model.MagicMethod || m.Kind == model.PropertyMethod || isPrivateName(m.Name) {
				continue
			}
			prefix := m.Name
			if idx := strings.Index(m.Name, "_"); idx >= 0 {
				prefix = m.Name[:idx]
			}
			if divergentChangeCommonPrefixes[prefix] {
				continue
			}
			prefixes[prefix] = true
			retained++
		}
		if float64(len(prefixes)) > prefixThreshold && float64(retained) > methodThreshold {
			out = append(out, codeFinding(
				"Divergent Change",
				fmt.Sprintf("%s mixes %d unrelated method-name prefixes across %d methods", ci.Name, len(prefixes), retained),
				proj.Modules[ci.Module].FilePath, ci.Name, ci.StartLine,
				model.Medium,
			))
		}
	}
	return out
}

// ---- Parallel Inheritance Hierarchies ----

func ruleParallelInheritance(proj *model.Project, bundle config.Bundle) []model.Finding {
	groups := make(map[string][]*model.ClassInfo)
	for _, id := range proj.SortedClassIDs() {
		ci := proj.Classes[id]
		for _, base := range ci.BaseClasses {
			if _, ok := proj.Classes[base]; ok {
				groups[base] = append(groups[base], ci)
			}
		}
	}

	var bases []string
	for b, subs := range groups {
		if len(subs) >= 2 {
			bases = append(bases, b)
		}
	}
	sort.Strings(bases)

	var out []model.Finding
	seen := make(map[string]bool)
	for i := 0; i < len(bases); i++ {
		for j := i + 1; j < len(bases); j++ {
			a, b := bases[i], bases[j]
			pairKey := a + "|" + b
			if seen[pairKey] {
				continue
			}
			if !namingParallel(groups[a], groups[b], a, b) {
				continue
			}
			sim := jaccardMethodSets(proj.Classes[a], proj.Classes[b])
			if sim > 0.3 {
				seen[pairKey] = true
				out = append(out, codeFinding(
					"Parallel Inheritance Hierarchies",
					fmt.Sprintf("Hierarchies rooted at %s and %s evolve in lockstep (method overlap %s)", a, b, fmtFloat(sim)),
					proj.Modules[proj.Classes[a].Module].FilePath, "", proj.Classes[a].StartLine,
					model.Medium,
				))
			}
		}
	}
	return out
}

func namingParallel(subsA, subsB []*model.ClassInfo, baseA, baseB string) bool {
	baseNameA := baseShortName(baseA)
	baseNameB := baseShortName(baseB)
	for _, a := range subsA {
		suffixA := strings.TrimPrefix(a.Name, baseNameA)
		for _, b := range subsB {
			suffixB := strings.TrimPrefix(b.Name, baseNameB)
			if suffixA == suffixB {
				return true
			}
		}
	}
	return false
}

func baseShortName(id string) string {
	if idx := strings.LastIndex(id, "."); idx >= 0 {
		return id[idx+1:]
	}
	return id
}

func jaccardMethodSets(a, b *model.ClassInfo) float64 {
	setA := make(map[string]bool)
	for _, m := range a.Methods {
		if !isPrivateName(m.Name) {
			setA[m.Name] = true
		}
	}
	setB := make(map[string]bool)
	for _, m := range b.Methods {
		if !isPrivateName(m.Name) {
			setB[m.Name] = true
		}
	}
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}
	inter, union := 0, 0
	for n := range setA {
		union++
		if setB[n] {
			inter++
		}
	}
	for n := range setB {
		if !setA[n] {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// ---- Potential Shotgun Surgery ----

var shotgunExcludedCalls = map[string]bool{"log": true, "print": true, "str": true, "len": true, "isinstance": true, "super": true}

func ruleShotgunSurgery(proj *model.Project, funcs []funcCtx, bundle config.Bundle) []model.Finding {
	callsThreshold := bundle.Get("SHOTGUN_SURGERY_CALLS", 5)
	contextsThreshold := bundle.Get("SHOTGUN_SURGERY_CONTEXTS", 3)

	type stats struct {
		calls    int
		contexts map[string]bool
	}
	perName := make(map[string]*stats)

	for _, fc := range funcs {
		ctx := contextName(fc)
		if fc.fn.Body == nil {
			continue
		}
		walkTree(fc.fn.Body, func(n *sitter.Node) {
			if n.Type() != "call" {
				return
			}
			fn := n.ChildByFieldName("function")
			if fn == nil {
				return
			}
			var name string
			switch fn.Type() {
			case "identifier":
				name = fn.Content(fc.fn.Source)
			case "attribute":
				if attr := fn.ChildByFieldName("attribute"); attr != nil {
					name = attr.Content(fc.fn.Source)
				}
			}
			if name == "" || shotgunExcludedCalls[name] {
				return
			}
			s, ok := perName[name]
			if !ok {
				s = &stats{contexts: make(map[string]bool)}
				perName[name] = s
			}
			s.calls++
			s.contexts[ctx] = true
		})
	}

	var names []string
	for n := range perName {
		names = append(names, n)
	}
	sort.Strings(names)

	var out []model.Finding
	for _, name := range names {
		s := perName[name]
		if float64(s.calls) > callsThreshold && float64(len(s.contexts)) > contextsThreshold {
			out = append(out, codeFinding(
				"Potential Shotgun Surgery",
				fmt.Sprintf("%q is called %d times across %d distinct contexts", name, s.calls, len(s.contexts)),
				"", "", 0,
				model.Medium,
			))
		}
	}
	return out
}

// ---- Excessive Comments ----

func ruleExcessiveComments(proj *model.Project, bundle config.Bundle) []model.Finding {
	ratioThreshold := bundle.Get("EXCESSIVE_COMMENTS_RATIO", 0.3)
	blocksThreshold := bundle.Get("LARGE_COMMENT_BLOCKS", 1)

	var out []model.Finding
	for _, id := range proj.SortedModuleIDs() {
		mi := proj.Modules[id]
		lines := dropLeadingCommentBlock(mi.Lines)

		codeLines, commentLines, largeBlocks := 0, 0, 0
		run := 0
		for _, k := range lines {
			switch k {
			case parse.LineComment:
				commentLines++
				run++
			default:
				if run > 5 {
					largeBlocks++
				}
				run = 0
				if k != parse.LineBlank && k != parse.LineDocstring {
					codeLines++
				}
			}
		}
		if run > 5 {
			largeBlocks++
		}

		denom := codeLines
		if denom == 0 {
			denom = 1
		}
		ratio := float64(commentLines) / float64(denom)
		if ratio > ratioThreshold && float64(largeBlocks) > blocksThreshold {
			out = append(out, codeFinding(
				"Excessive Comments",
				fmt.Sprintf("%s is %s comments relative to code across %d large blocks", mi.ID, fmtFloat(ratio), largeBlocks),
				mi.FilePath, "", 0,
				lowSeverity,
			))
		}
	}
	return out
}

// dropLeadingCommentBlock removes the initial contiguous run of comment
// (and blank) lines unconditionally, including license-style headers, so
// they never count toward a module's comment ratio.
func dropLeadingCommentBlock(lines []parse.LineKind) []parse.LineKind {
	i := 0
	for i < len(lines) && (lines[i] == parse.LineComment || lines[i] == parse.LineBlank) {
		i++
	}
	return lines[i:]
}

// ---- Duplicate Code ----

func normalizeFunctionBody(body *sitter.Node, source []byte) string {
	var sb strings.Builder
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n.ChildCount() == 0 {
			if n.Type() == "identifier" {
				sb.WriteString("ID ")
			} else if n.Type() == "comment" {
				// comments are stripped from the normalized form
			} else {
				sb.WriteString(n.Content(source))
				sb.WriteString(" ")
			}
			return
		}
		count := int(n.ChildCount())
		for i := 0; i < count; i++ {
			walk(n.Child(i))
		}
	}
	walk(body)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func ruleDuplicateCode(funcs []funcCtx, bundle config.Bundle) []model.Finding {
	groupThreshold := bundle.Get("DUPLICATE_CODE_THRESHOLD", 2)
	minLines := bundle.Get("DUPLICATE_CODE_MIN_LINES", 4)

	groups := make(map[string][]funcCtx)
	for _, fc := range funcs {
		if fc.fn.Body == nil || strings.HasPrefix(fc.fn.Name, "test_") {
			continue
		}
		lineSpan := fc.fn.EndLine - fc.fn.StartLine + 1
		if float64(lineSpan) < minLines {
			continue
		}
		norm := normalizeFunctionBody(fc.fn.Body, fc.fn.Source)
		groups[norm] = append(groups[norm], fc)
	}

	var keys []string
	for k, g := range groups {
		if float64(len(g)) >= groupThreshold {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var out []model.Finding
	for _, key := range keys {
		g := groups[key]
		names := make([]string, len(g))
		for i, fc := range g {
			names[i] = contextName(fc)
		}
		out = append(out, codeFinding(
			"Duplicate Code",
			fmt.Sprintf("%d functions share a normalized body: %s", len(g), strings.Join(names, ", ")),
			g[0].module.FilePath, "", g[0].fn.StartLine,
			model.Medium,
		))
	}
	return out
}

// ---- Speculative Generality ----

func ruleSpeculativeGenerality(proj *model.Project, bundle config.Bundle) []model.Finding {
	noOpThreshold := bundle.Get("SPECULATIVE_GENERALITY_THRESHOLD", 2)
	unusedThreshold := bundle.Get("UNUSED_PARAMETERS_THRESHOLD", 3)

	var out []model.Finding
	for _, id := range proj.SortedClassIDs() {
		ci := proj.Classes[id]
		if ci.Kind == model.AbstractClass {
			continue
		}
		if inheritsAbstract(proj, ci) {
			continue
		}

		noOps := 0
		unused := 0
		for _, m := range ci.Methods {
			if bodyIsNoOp(m.Body) {
				noOps++
			}
			unused += countUnusedParams(m)
		}

		if float64(noOps) >= noOpThreshold || float64(unused) >= unusedThreshold {
			out = append(out, codeFinding(
				"Speculative Generality",
				fmt.Sprintf("%s has %d no-op methods and %d unused parameters", ci.Name, noOps, unused),
				proj.Modules[ci.Module].FilePath, ci.Name, ci.StartLine,
				model.Medium,
			))
		}
	}
	return out
}

func inheritsAbstract(proj *model.Project, ci *model.ClassInfo) bool {
	for _, b := range ci.BaseClasses {
		if base, ok := proj.Classes[b]; ok && base.Kind == model.AbstractClass {
			return true
		}
	}
	return false
}

func countUnusedParams(m *model.MethodInfo) int {
	if m.Body == nil {
		return 0
	}
	refs := collectIdentifiers(m.Body, m.Source)
	unused := 0
	for _, p := range nonReceiverParams(m) {
		if !refs[p] {
			unused++
		}
	}
	return unused
}

// ---- Feature Envy ----

var featureEnvyIgnoredReceivers = map[string]bool{"logger": true, "config": true, "utils": true, "helper": true}

func ruleFeatureEnvy(funcs []funcCtx, bundle config.Bundle) []model.Finding {
	threshold := bundle.Get("FEATURE_ENVY_CALLS", 3)
	var out []model.Finding
	for _, fc := range funcs {
		if fc.class == nil || fc.fn.Kind == model.PropertyMethod || fc.fn.Body == nil {
			continue
		}
		if fc.fn.EndLine-fc.fn.StartLine <= 1 {
			continue
		}
		receiver := receiverOf(fc.fn)
		counts := make(map[string]int)
		walkTree(fc.fn.Body, func(n *sitter.Node) {
			if n.Type() != "attribute" {
				return
			}
			obj := n.ChildByFieldName("object")
			if obj == nil || obj.Type() != "identifier" {
				return
			}
			name := obj.Content(fc.fn.Source)
			if featureEnvyIgnoredReceivers[strings.ToLower(name)] {
				return
			}
			counts[name]++
		})

		loc := counts[receiver]
		extMax, extName := 0, ""
		for name, c := range counts {
			if name == receiver {
				continue
			}
			if c > extMax {
				extMax, extName = c, name
			}
		}
		if float64(extMax) > threshold && extMax > 2*loc {
			out = append(out, codeFinding(
				"Feature Envy",
				fmt.Sprintf("%s accesses %q %d times vs. %d self-accesses", contextName(fc), extName, extMax, loc),
				fc.module.FilePath, contextName(fc), fc.fn.StartLine,
				model.Medium,
			))
		}
	}
	return out
}

// ---- Inappropriate Intimacy ----

func ruleInappropriateIntimacy(proj *model.Project, bundle config.Bundle) []model.Finding {
	threshold := bundle.Get("INAPPROPRIATE_INTIMACY_SHARED", 2)

	ids := proj.SortedClassIDs()
	var eligible []*model.ClassInfo
	for _, id := range ids {
		ci := proj.Classes[id]
		if ci.Kind == model.DataClass || hasSuffixAny(ci.Name, "Utils", "Helper", "Factory") {
			continue
		}
		eligible = append(eligible, ci)
	}

	var out []model.Finding
	for i := 0; i < len(eligible); i++ {
		for j := i + 1; j < len(eligible); j++ {
			a, b := eligible[i], eligible[j]
			if relatedClasses(a, b) {
				continue
			}
			shared := sharedMethodsFields(a, b)
			if len(a.Methods) == 0 {
				continue
			}
			ratio := float64(shared) / float64(len(a.Methods))
			if float64(shared) > threshold && ratio > 0.3 {
				out = append(out, codeFinding(
					"Inappropriate Intimacy",
					fmt.Sprintf("%s and %s share %d method/field accesses", a.Name, b.Name, shared),
					proj.Modules[a.Module].FilePath, "", a.StartLine,
					model.Medium,
				))
			}
		}
	}
	return out
}

func relatedClasses(a, b *model.ClassInfo) bool {
	for _, base := range a.BaseClasses {
		if base == b.ID {
			return true
		}
	}
	for _, base := range b.BaseClasses {
		if base == a.ID {
			return true
		}
	}
	return false
}

func sharedMethodsFields(a, b *model.ClassInfo) int {
	methodsA := make(map[string]bool)
	for _, m := range a.Methods {
		if !isPrivateName(m.Name) {
			methodsA[m.Name] = true
		}
	}
	shared := 0
	for _, f := range b.Fields {
		if isPrivateName(f) {
			continue
		}
		if methodsA[f] {
			shared++
		}
	}
	return shared
}

// ---- Message Chains ----

var messageChainCommonPrefixes = []string{"set_", "with_", "add_"}

func ruleMessageChains(funcs []funcCtx, bundle config.Bundle) []model.Finding {
	threshold := bundle.Get("MESSAGE_CHAIN_LENGTH", 3)
	var out []model.Finding
	for _, fc := range funcs {
		if fc.fn.Body == nil {
			continue
		}
		walkTree(fc.fn.Body, func(n *sitter.Node) {
			if n.Type() != "attribute" {
				return
			}
			if n.Parent() != nil && n.Parent().Type() == "attribute" {
				return // only evaluate the outermost attribute of a chain
			}
			chain := attributeChainNames(n, fc.fn.Source)
			if float64(len(chain)) <= threshold {
				return
			}
			if isBuilderChain(chain) || isCommonChainFamily(chain) {
				return
			}
			out = append(out, codeFinding(
				"Message Chains",
				fmt.Sprintf("%s contains a %d-deep attribute chain: %s", contextName(fc), len(chain), strings.Join(chain, ".")),
				fc.module.FilePath, contextName(fc), int(n.StartPoint().Row)+1,
				model.Medium,
			))
		})
	}
	return out
}

func attributeChainNames(n *sitter.Node, source []byte) []string {
	var names []string
	cur := n
	for cur != nil && cur.Type() == "attribute" {
		attr := cur.ChildByFieldName("attribute")
		if attr != nil {
			names = append([]string{attr.Content(source)}, names...)
		}
		obj := cur.ChildByFieldName("object")
		if obj != nil && obj.Type() == "attribute" {
			cur = obj
			continue
		}
		if obj != nil {
			names = append([]string{obj.Content(source)}, names...)
		}
		break
	}
	return names
}

func isBuilderChain(names []string) bool {
	for _, n := range names {
		matched := false
		for _, p := range messageChainCommonPrefixes {
			if strings.HasPrefix(n, p) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func isCommonChainFamily(names []string) bool {
	if len(names) == 0 {
		return false
	}
	head := strings.ToLower(names[0])
	switch head {
	case "logger", "logging", "os", "path", "self", "query", "objects", "filter":
		return true
	}
	for _, n := range names {
		if n == "assertEqual" || n == "assertTrue" || n == "assertFalse" {
			return true
		}
	}
	return false
}

// ---- Middle Man ----

func ruleMiddleMan(proj *model.Project, bundle config.Bundle) []model.Finding {
	ratioThreshold := bundle.Get("MIDDLE_MAN_RATIO", 0.5)

	var out []model.Finding
	for _, id := range proj.SortedClassIDs() {
		ci := proj.Classes[id]
		if hasSuffixAny(ci.Name, "Proxy", "Delegate", "Adapter", "Facade") {
			continue
		}
		if len(ci.Methods)+len(ci.Fields) <= 3 {
			continue
		}
		delegating := 0
		receivers := make(map[string]bool)
		for _, m := range ci.Methods {
			recv, ok := isDelegatingMethod(m)
			if !ok {
				continue
			}
			delegating++
			receivers[recv] = true
		}
		if len(ci.Methods) == 0 {
			continue
		}
		ratio := float64(delegating) / float64(len(ci.Methods))
		if ratio > ratioThreshold && len(receivers) <= 2 {
			out = append(out, codeFinding(
				"Middle Man",
				fmt.Sprintf("%s delegates %s of its methods to %d receiver(s)", ci.Name, fmtFloat(ratio), len(receivers)),
				proj.Modules[ci.Module].FilePath, ci.Name, ci.StartLine,
				model.Medium,
			))
		}
	}
	return out
}

func isDelegatingMethod(m *model.MethodInfo) (string, bool) {
	if m.Body == nil {
		return "", false
	}
	stmts := namedTopStatements(m.Body)
	if len(stmts) != 1 || stmts[0].Type() != "return_statement" {
		return "", false
	}
	if stmts[0].NamedChildCount() == 0 {
		return "", false
	}
	expr := stmts[0].NamedChild(0)
	if expr.Type() != "call" {
		return "", false
	}
	fn := expr.ChildByFieldName("function")
	if fn == nil || fn.Type() != "attribute" {
		return "", false
	}
	obj := fn.ChildByFieldName("object")
	if obj == nil {
		return "", false
	}
	return obj.Content(m.Source), true
}

func namedTopStatements(block *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	count := int(block.NamedChildCount())
	for i := 0; i < count; i++ {
		child := block.NamedChild(i)
		if i == 0 && isDocstringExprStatement(child) {
			continue
		}
		out = append(out, child)
	}
	return out
}

func isDocstringExprStatement(n *sitter.Node) bool {
	if n.Type() != "expression_statement" || n.NamedChildCount() == 0 {
		return false
	}
	return n.NamedChild(0).Type() == "string"
}

// ---- Dead Code (supplemented; always Low severity) ----

func ruleDeadCode(funcs []funcCtx) []model.Finding {
	var out []model.Finding
	for _, fc := range funcs {
		if fc.fn.Body == nil {
			continue
		}
		if bareNoOpBody(fc.fn) {
			out = append(out, codeFinding(
				"Dead Code",
				fmt.Sprintf("%s has an empty (pass or ... only) body with no decorator or docstring", contextName(fc)),
				fc.module.FilePath, contextName(fc), fc.fn.StartLine,
				lowSeverity,
			))
			continue
		}
		if hasUnreachableAfterTerminal(fc.fn.Body) {
			out = append(out, codeFinding(
				"Dead Code",
				fmt.Sprintf("%s has statements unreachable after an unconditional return/raise", contextName(fc)),
				fc.module.FilePath, contextName(fc), fc.fn.StartLine,
				lowSeverity,
			))
		}
	}
	return out
}

func bareNoOpBody(fn *model.MethodInfo) bool {
	if len(fn.Decorators) > 0 || fn.Body.NamedChildCount() != 1 {
		return false
	}
	stmt := fn.Body.NamedChild(0)
	if stmt.Type() == "pass_statement" {
		return true
	}
	return stmt.Type() == "expression_statement" && stmt.NamedChildCount() == 1 && stmt.NamedChild(0).Type() == "ellipsis"
}

func hasUnreachableAfterTerminal(body *sitter.Node) bool {
	stmts := namedTopStatements(body)
	for i, s := range stmts {
		if (s.Type() == "return_statement" || s.Type() == "raise_statement") && i < len(stmts)-1 {
			return true
		}
	}
	return false
}

// ---- Lazy Class (supplemented; always Low severity) ----

func ruleLazyClass(proj *model.Project, bundle config.Bundle) []model.Finding {
	methodThreshold := bundle.Get("LAZY_CLASS_METHODS", 2)
	fieldThreshold := bundle.Get("LAZY_CLASS_FIELDS", 2)

	var out []model.Finding
	for _, id := range proj.SortedClassIDs() {
		ci := proj.Classes[id]
		if ci.Kind == model.DataClass || ci.Kind == model.ExceptionClass {
			continue
		}
		nonMagic := 0
		for _, m := range ci.Methods {
			if m.Kind != model.MagicMethod {
				nonMagic++
			}
		}
		if float64(nonMagic) < methodThreshold && float64(len(ci.Fields)) < fieldThreshold {
			out = append(out, codeFinding(
				"Lazy Class",
				fmt.Sprintf("%s has only %d non-magic methods and %d fields", ci.Name, nonMagic, len(ci.Fields)),
				proj.Modules[ci.Module].FilePath, ci.Name, ci.StartLine,
				lowSeverity,
			))
		}
	}
	return out
}

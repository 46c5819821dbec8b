package compiler

import (
	"sort"

	"github.com/scriptlang/scriptlang/internal/scriptlangerr"
	"github.com/scriptlang/scriptlang/ir"
	"github.com/scriptlang/scriptlang/xmlsrc"
)

// CompileProjectBundle is the single entry point of the compiler package: it
// classifies every source, validates the include graph, expands <loop>
// macros, resolves types/functions/def-globals per script's visibility, and
// lowers each <script> into a flat ir.ScriptIr, matching
// pipeline.rs's compile_project_bundle_from_xml_map.
func CompileProjectBundle(xmlByPath map[string]string) (ir.Bundle, error) {
	sources, err := parseSources(xmlByPath)
	if err != nil {
		return ir.Bundle{}, err
	}
	if err := validateIncludeGraph(sources); err != nil {
		return ir.Bundle{}, err
	}

	defsByPath := map[string]defsDeclarations{}
	for _, p := range sourcePaths(sources) {
		sf := sources[p]
		if sf.kind != kindDefsXML {
			continue
		}
		decls, err := parseDefsFile(sf.xmlRoot)
		if err != nil {
			return ir.Bundle{}, err
		}
		defsByPath[p] = decls
	}

	globalJSON, err := collectGlobalJSON(sources)
	if err != nil {
		return ir.Bundle{}, err
	}

	bundleResolver := newTypeResolver(allTypeDecls(defsByPath), allTypeAliases(defsByPath))
	defsGlobalDeclarations, defsGlobalInitOrder, err := defsGlobalsForBundle(defsByPath, bundleResolver.resolveExpr)
	if err != nil {
		return ir.Bundle{}, err
	}

	scripts := map[string]ir.ScriptIr{}
	reachableCache := map[string]map[string]bool{}

	for _, filePath := range sourcePaths(sources) {
		sf := sources[filePath]
		if sf.kind != kindScriptXML {
			continue
		}
		scriptRoot := sf.xmlRoot
		if scriptRoot.Name != "script" {
			return ir.Bundle{}, scriptlangerr.WithSpanf("XML_ROOT_INVALID", scriptRoot.Span,
				"Expected <script> root in file %q, got <%s>.", filePath, scriptRoot.Name)
		}

		reachable, ok := reachableCache[filePath]
		if !ok {
			reachable = collectReachableFiles(filePath, sources)
			reachableCache[filePath] = reachable
		}

		visible, err := resolveVisibleDefs(reachable, defsByPath)
		if err != nil {
			return ir.Bundle{}, err
		}
		visibleJSON := visibleJSONSymbols(reachable, sources)

		scriptIr, err := compileScript(filePath, scriptRoot, visible, visibleJSON)
		if err != nil {
			return ir.Bundle{}, err
		}

		if _, dup := scripts[scriptIr.ScriptName]; dup {
			return ir.Bundle{}, scriptlangerr.WithSpanf("SCRIPT_NAME_DUPLICATE", scriptRoot.Span, "Duplicate script name %q.", scriptIr.ScriptName)
		}
		scripts[scriptIr.ScriptName] = scriptIr
	}

	return ir.Bundle{
		Scripts:                scripts,
		GlobalJSON:             globalJSON,
		DefsGlobalDeclarations: defsGlobalDeclarations,
		DefsGlobalInitOrder:    defsGlobalInitOrder,
	}, nil
}

func allTypeDecls(defsByPath map[string]defsDeclarations) map[string]parsedTypeDecl {
	out := map[string]parsedTypeDecl{}
	for _, p := range sortedDefsPaths(defsByPath) {
		for _, td := range defsByPath[p].typeDecls {
			out[td.qualifiedName] = td
		}
	}
	return out
}

func allTypeAliases(defsByPath map[string]defsDeclarations) map[string]string {
	candidates := map[string][]string{}
	for _, p := range sortedDefsPaths(defsByPath) {
		for _, td := range defsByPath[p].typeDecls {
			candidates[td.name] = append(candidates[td.name], td.qualifiedName)
		}
	}
	return shortAliasMap(candidates)
}

func sortedDefsPaths(defsByPath map[string]defsDeclarations) []string {
	paths := make([]string, 0, len(defsByPath))
	for p := range defsByPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func visibleJSONSymbols(reachable map[string]bool, sources map[string]*sourceFile) []string {
	var symbols []string
	for _, p := range sourcePaths(sources) {
		if !reachable[p] {
			continue
		}
		if sources[p].kind != kindJSON {
			continue
		}
		symbols = append(symbols, jsonSymbolName(p))
	}
	return symbols
}

// compileScript expands macros, lowers the <script> body into groups, parses
// its declared entry params, and resolves every NodeVar's pending type
// against the defs types visible to the script.
func compileScript(filePath string, scriptRoot *xmlsrc.Element, visible *visibleDefs, visibleJSON []string) (ir.ScriptIr, error) {
	scriptName, err := xmlsrc.RequiredNonEmptyAttr(scriptRoot, "name")
	if err != nil {
		return ir.ScriptIr{}, err
	}

	params, paramNames, err := parseScriptParams(scriptRoot, visible.resolvedTypes)
	if err != nil {
		return ir.ScriptIr{}, err
	}

	expanded, err := expandScriptMacros(scriptRoot, paramNames)
	if err != nil {
		return ir.ScriptIr{}, err
	}

	builder := newGroupBuilder(filePath)
	rootGroupID, err := builder.lowerGroup(expanded.Children, "", false, continueOwnerNone)
	if err != nil {
		return ir.ScriptIr{}, err
	}

	if err := resolvePendingVarTypes(builder.groups, builder.pendingVarTypes, visible.resolvedTypes); err != nil {
		return ir.ScriptIr{}, err
	}

	return ir.ScriptIr{
		ScriptPath:         filePath,
		ScriptName:         scriptName,
		Params:             params,
		RootGroupID:        rootGroupID,
		Groups:             builder.groups,
		VisibleJSONGlobals: visibleJSON,
		VisibleFunctions:   visible.functions,
		VisibleDefsGlobals: visible.globals,
	}, nil
}

// parseScriptParams reads <script name="..." args="int:x, ref:string:y">,
// matching the args="int:x" fixture in
// control_flow.rs's runtime_errors_cover_break_continue_and_return_args test.
func parseScriptParams(scriptRoot *xmlsrc.Element, resolver *typeResolver) ([]ir.ScriptParam, []string, error) {
	raw, present := xmlsrc.OptionalAttr(scriptRoot, "args")
	specs, err := parseTypedArgList(raw, present, scriptRoot.Span)
	if err != nil {
		return nil, nil, err
	}

	var params []ir.ScriptParam
	var names []string
	for _, spec := range specs {
		if err := xmlsrc.AssertNameNotReserved(spec.name, "script param", spec.span); err != nil {
			return nil, nil, err
		}
		resolvedType, err := resolver.resolveExpr(spec.typeExpr, spec.span)
		if err != nil {
			return nil, nil, err
		}
		params = append(params, ir.ScriptParam{Name: spec.name, Type: resolvedType, IsRef: spec.isRef, Span: spec.span})
		names = append(names, spec.name)
	}
	return params, names, nil
}

package compiler

import (
	"sort"
	"strings"

	"github.com/scriptlang/scriptlang/internal/scriptlangerr"
	"github.com/scriptlang/scriptlang/ir"
	"github.com/scriptlang/scriptlang/value"
	"github.com/scriptlang/scriptlang/xmlsrc"
)

// defsDeclarations is everything one <defs> file declares, before namespace
// qualification and visibility resolution are applied.
type defsDeclarations struct {
	namespace     string
	typeDecls     []parsedTypeDecl
	functionDecls []parsedFunctionDecl
	varDecls      []parsedVarDecl
}

type parsedFunctionParamDecl struct {
	name     string
	typeExpr parsedTypeExpr
	span     scriptlangerr.Span
}

type parsedFunctionDecl struct {
	name          string
	qualifiedName string
	params        []parsedFunctionParamDecl
	returnBinding parsedFunctionParamDecl
	code          string
	span          scriptlangerr.Span
}

type parsedVarDecl struct {
	name          string
	qualifiedName string
	typeExpr      parsedTypeExpr
	initialExpr   string
	hasInitial    bool
	span          scriptlangerr.Span
}

// parseDefsFile parses one <defs name="..."> root's <type>, <function>, and
// <var> children into their namespace-qualified declarations.
func parseDefsFile(root *xmlsrc.Element) (defsDeclarations, error) {
	if root.Name != "defs" {
		return defsDeclarations{}, scriptlangerr.WithSpanf("XML_ROOT_INVALID", root.Span, "Expected <defs> root, got <%s>.", root.Name)
	}
	namespace, err := xmlsrc.RequiredNonEmptyAttr(root, "name")
	if err != nil {
		return defsDeclarations{}, err
	}
	if err := xmlsrc.AssertNameNotReserved(namespace, "defs", root.Span); err != nil {
		return defsDeclarations{}, err
	}

	decls := defsDeclarations{namespace: namespace}
	for _, child := range xmlsrc.Elements(root) {
		switch child.Name {
		case "type":
			decl, err := parseTypeDeclarationNode(child, namespace)
			if err != nil {
				return defsDeclarations{}, err
			}
			decls.typeDecls = append(decls.typeDecls, decl)
		case "function":
			decl, err := parseFunctionDeclarationNode(child, namespace)
			if err != nil {
				return defsDeclarations{}, err
			}
			decls.functionDecls = append(decls.functionDecls, decl)
		case "var":
			decl, err := parseDefsVarDeclarationNode(child, namespace)
			if err != nil {
				return defsDeclarations{}, err
			}
			decls.varDecls = append(decls.varDecls, decl)
		default:
			return defsDeclarations{}, scriptlangerr.WithSpanf("XML_DEFS_CHILD_INVALID", child.Span, "Unsupported child <%s> under <defs>.", child.Name)
		}
	}
	return decls, nil
}

func parseFunctionDeclarationNode(el *xmlsrc.Element, namespace string) (parsedFunctionDecl, error) {
	name, err := xmlsrc.RequiredNonEmptyAttr(el, "name")
	if err != nil {
		return parsedFunctionDecl{}, err
	}
	if err := xmlsrc.AssertNameNotReserved(name, "function", el.Span); err != nil {
		return parsedFunctionDecl{}, err
	}

	argsRaw, argsPresent := xmlsrc.OptionalAttr(el, "args")
	argSpecs, err := parseTypedArgList(argsRaw, argsPresent, el.Span)
	if err != nil {
		return parsedFunctionDecl{}, err
	}
	params := make([]parsedFunctionParamDecl, 0, len(argSpecs))
	for _, spec := range argSpecs {
		params = append(params, parsedFunctionParamDecl{name: spec.name, typeExpr: spec.typeExpr, span: spec.span})
	}

	returnRaw, returnPresent := xmlsrc.OptionalAttr(el, "return")
	returnSpec, err := parseReturnTypeSpec(returnRaw, returnPresent, el.Span)
	if err != nil {
		return parsedFunctionDecl{}, err
	}
	returnBinding := parsedFunctionParamDecl{name: returnSpec.name, typeExpr: returnSpec.typeExpr, span: returnSpec.span}

	if xmlsrc.HasElementChildren(el) {
		for _, child := range xmlsrc.Elements(el) {
			return parsedFunctionDecl{}, scriptlangerr.WithSpanf("XML_FUNCTION_CHILD_NODE_INVALID", child.Span, "<%s> cannot contain child elements. Only inline code text is allowed.", el.Name)
		}
	}
	code := strings.TrimSpace(xmlsrc.InlineTextContent(el))
	if code == "" {
		return parsedFunctionDecl{}, scriptlangerr.WithSpanf("XML_EMPTY_NODE_CONTENT", el.Span, "<%s> requires non-empty inline content.", el.Name)
	}

	return parsedFunctionDecl{
		name:          name,
		qualifiedName: namespace + "." + name,
		params:        params,
		returnBinding: returnBinding,
		code:          code,
		span:          el.Span,
	}, nil
}

func parseDefsVarDeclarationNode(el *xmlsrc.Element, namespace string) (parsedVarDecl, error) {
	name, err := xmlsrc.RequiredNonEmptyAttr(el, "name")
	if err != nil {
		return parsedVarDecl{}, err
	}
	if err := xmlsrc.AssertNameNotReserved(name, "var", el.Span); err != nil {
		return parsedVarDecl{}, err
	}
	typeRaw, err := xmlsrc.RequiredNonEmptyAttr(el, "type")
	if err != nil {
		return parsedVarDecl{}, err
	}
	typeExpr, err := parseTypeExpr(typeRaw, el.Span)
	if err != nil {
		return parsedVarDecl{}, err
	}
	content := strings.TrimSpace(xmlsrc.InlineTextContent(el))
	return parsedVarDecl{
		name:          name,
		qualifiedName: namespace + "." + name,
		typeExpr:      typeExpr,
		initialExpr:   content,
		hasInitial:    content != "",
		span:          el.Span,
	}, nil
}

// visibleDefs is the per-script view into every defs file reachable from it:
// both the fully-qualified "ns.name" symbol and, when unambiguous across the
// reachable set, a bare short-name alias, matching pipeline.rs's
// compile_bundle_exposes_defs_globals_with_short_alias_rules behavior.
type visibleDefs struct {
	types          map[string]value.ScriptType
	functions      map[string]ir.FunctionDecl
	globals        map[string]ir.VarDeclaration
	resolvedTypes  *typeResolver
}

func resolveVisibleDefs(reachable map[string]bool, defsByPath map[string]defsDeclarations) (*visibleDefs, error) {
	allDecls := map[string]parsedTypeDecl{}
	aliasCandidates := map[string][]string{}
	var paths []string
	for p := range defsByPath {
		if reachable[p] {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	for _, p := range paths {
		for _, td := range defsByPath[p].typeDecls {
			allDecls[td.qualifiedName] = td
			aliasCandidates[td.name] = append(aliasCandidates[td.name], td.qualifiedName)
		}
	}

	resolver := newTypeResolver(allDecls, shortAliasMap(aliasCandidates))
	types := map[string]value.ScriptType{}
	for qualified := range allDecls {
		resolved, err := resolver.resolveNamed(qualified)
		if err != nil {
			return nil, err
		}
		types[qualified] = resolved
		short := allDecls[qualified].name
		if len(aliasCandidates[short]) == 1 {
			types[short] = resolved
		}
	}

	functions := map[string]ir.FunctionDecl{}
	functionAliasCandidates := map[string][]string{}
	for _, p := range paths {
		for _, fd := range defsByPath[p].functionDecls {
			decl, err := lowerFunctionDecl(fd, resolver)
			if err != nil {
				return nil, err
			}
			functions[fd.qualifiedName] = decl
			functionAliasCandidates[fd.name] = append(functionAliasCandidates[fd.name], fd.qualifiedName)
		}
	}
	for short, qualifiedNames := range functionAliasCandidates {
		if len(qualifiedNames) == 1 {
			functions[short] = functions[qualifiedNames[0]]
		}
	}

	globals := map[string]ir.VarDeclaration{}
	globalAliasCandidates := map[string][]string{}
	for _, p := range paths {
		for _, vd := range defsByPath[p].varDecls {
			resolvedType, err := resolver.resolveExpr(vd.typeExpr, vd.span)
			if err != nil {
				return nil, err
			}
			globals[vd.qualifiedName] = ir.VarDeclaration{
				Name:            vd.qualifiedName,
				Type:            resolvedType,
				InitialValueExpr: vd.initialExpr,
				HasInitialValue: vd.hasInitial,
				Span:            vd.span,
			}
			globalAliasCandidates[vd.name] = append(globalAliasCandidates[vd.name], vd.qualifiedName)
		}
	}
	for short, qualifiedNames := range globalAliasCandidates {
		if len(qualifiedNames) == 1 {
			globals[short] = globals[qualifiedNames[0]]
		}
	}

	return &visibleDefs{types: types, functions: functions, globals: globals, resolvedTypes: resolver}, nil
}

// shortAliasMap builds the bare-name -> qualified-name alias table used by
// type resolution, keeping only names that resolve unambiguously (exactly
// one declaring namespace) so a conflicting short name simply isn't usable.
func shortAliasMap(candidates map[string][]string) map[string]string {
	out := map[string]string{}
	for short, qualifiedNames := range candidates {
		if len(qualifiedNames) == 1 {
			out[short] = qualifiedNames[0]
		}
	}
	return out
}

func lowerFunctionDecl(fd parsedFunctionDecl, resolver *typeResolver) (ir.FunctionDecl, error) {
	params := make([]ir.FunctionParam, 0, len(fd.params))
	for _, p := range fd.params {
		t, err := resolver.resolveExpr(p.typeExpr, p.span)
		if err != nil {
			return ir.FunctionDecl{}, err
		}
		params = append(params, ir.FunctionParam{Name: p.name, Type: t, Span: p.span})
	}
	returnType, err := resolver.resolveExpr(fd.returnBinding.typeExpr, fd.returnBinding.span)
	if err != nil {
		return ir.FunctionDecl{}, err
	}
	return ir.FunctionDecl{
		Name:          fd.name,
		QualifiedName: fd.qualifiedName,
		Params:        params,
		Return:        ir.FunctionReturn{Name: fd.returnBinding.name, Type: returnType},
		Code:          fd.code,
		Span:          fd.span,
	}, nil
}

// defsGlobalsForBundle folds every defs file's <var> declarations (regardless
// of reachability) into the bundle-wide initialization set, in file-path
// order, matching collect_defs_globals_for_bundle.
func defsGlobalsForBundle(defsByPath map[string]defsDeclarations, resolver func(parsedTypeExpr, scriptlangerr.Span) (value.ScriptType, error)) (map[string]ir.VarDeclaration, []string, error) {
	declarations := map[string]ir.VarDeclaration{}
	var initOrder []string

	var paths []string
	for p := range defsByPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		for _, vd := range defsByPath[p].varDecls {
			t, err := resolver(vd.typeExpr, vd.span)
			if err != nil {
				return nil, nil, err
			}
			declarations[vd.qualifiedName] = ir.VarDeclaration{
				Name:            vd.qualifiedName,
				Type:            t,
				InitialValueExpr: vd.initialExpr,
				HasInitialValue: vd.hasInitial,
				Span:            vd.span,
			}
			initOrder = append(initOrder, vd.qualifiedName)
		}
	}
	return declarations, initOrder, nil
}

package compiler

import (
	"strings"

	"github.com/scriptlang/scriptlang/internal/scriptlangerr"
	"github.com/scriptlang/scriptlang/ir"
	"github.com/scriptlang/scriptlang/xmlsrc"
)

// parseCallArgs splits a raw call-argument-list attribute on top-level commas
// and recognizes the "ref:PATH" prefix marking a by-reference argument,
// matching xml_utils.rs's parse_args.
func parseCallArgs(raw string, present bool) ([]ir.CallArgument, error) {
	if !present || strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var args []ir.CallArgument
	for _, part := range xmlsrc.SplitByTopLevelComma(raw) {
		isRef := strings.HasPrefix(part, "ref:")
		normalized := part
		if isRef {
			normalized = strings.TrimSpace(strings.TrimPrefix(part, "ref:"))
		}
		if normalized == "" {
			return nil, scriptlangerr.Newf("CALL_ARGS_PARSE_ERROR", "Invalid call arg segment: %q.", part)
		}
		args = append(args, ir.CallArgument{ValueExpr: normalized, IsRef: isRef})
	}
	return args, nil
}

// parsedArgSpec is one "[ref:]TYPE:NAME" entry out of an args="..." attribute
// declaring a <script> or <function>'s typed parameter list.
type parsedArgSpec struct {
	name     string
	typeExpr parsedTypeExpr
	isRef    bool
	span     scriptlangerr.Span
}

// parseTypedArgList parses the args="int:x, ref:string:y" declaration syntax
// exercised by control_flow.rs's <script name="next" args="int:x"> fixture:
// a top-level-comma-separated list of "[ref:]TYPE:NAME" entries. Type
// expressions never contain a colon, so the first colon in each entry always
// separates the type from the parameter name.
func parseTypedArgList(raw string, present bool, span scriptlangerr.Span) ([]parsedArgSpec, error) {
	if !present || strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var specs []parsedArgSpec
	for _, part := range xmlsrc.SplitByTopLevelComma(raw) {
		part = strings.TrimSpace(part)
		isRef := strings.HasPrefix(part, "ref:")
		if isRef {
			part = strings.TrimSpace(strings.TrimPrefix(part, "ref:"))
		}
		sep := strings.IndexByte(part, ':')
		if sep <= 0 || sep == len(part)-1 {
			return nil, scriptlangerr.WithSpanf("ARG_DECL_PARSE_ERROR", span, "Invalid arg declaration segment: %q.", part)
		}
		typeRaw := strings.TrimSpace(part[:sep])
		name := strings.TrimSpace(part[sep+1:])
		typeExpr, err := parseTypeExpr(typeRaw, span)
		if err != nil {
			return nil, err
		}
		specs = append(specs, parsedArgSpec{name: name, typeExpr: typeExpr, isRef: isRef, span: span})
	}
	return specs, nil
}

// parseReturnTypeSpec parses a <function>'s return="TYPE" or
// return="TYPE:name" attribute. Absent entirely, a function returns a
// nameless string, matching sl-compiler/src/defaults.rs's string default.
func parseReturnTypeSpec(raw string, present bool, span scriptlangerr.Span) (parsedArgSpec, error) {
	if !present || strings.TrimSpace(raw) == "" {
		return parsedArgSpec{typeExpr: parsedTypeExpr{kind: parsedTypePrimitive, primitiveName: "string"}, span: span}, nil
	}
	trimmed := strings.TrimSpace(raw)
	sep := strings.IndexByte(trimmed, ':')
	if sep < 0 {
		typeExpr, err := parseTypeExpr(trimmed, span)
		if err != nil {
			return parsedArgSpec{}, err
		}
		return parsedArgSpec{typeExpr: typeExpr, span: span}, nil
	}
	typeRaw := strings.TrimSpace(trimmed[:sep])
	name := strings.TrimSpace(trimmed[sep+1:])
	typeExpr, err := parseTypeExpr(typeRaw, span)
	if err != nil {
		return parsedArgSpec{}, err
	}
	return parsedArgSpec{name: name, typeExpr: typeExpr, span: span}, nil
}

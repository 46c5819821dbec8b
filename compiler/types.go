package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/scriptlang/scriptlang/internal/scriptlangerr"
	"github.com/scriptlang/scriptlang/value"
	"github.com/scriptlang/scriptlang/xmlsrc"
)

// parsedTypeExprKind discriminates the shapes parseTypeExpr recognizes:
// int/float/string/boolean, "T[]", "#{T}", and a dotted custom-type name.
type parsedTypeExprKind int

const (
	parsedTypePrimitive parsedTypeExprKind = iota
	parsedTypeArray
	parsedTypeMap
	parsedTypeCustom
)

type parsedTypeExpr struct {
	kind          parsedTypeExprKind
	primitiveName string
	element       *parsedTypeExpr
	mapValue      *parsedTypeExpr
	customName    string
}

var customTypeNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// parseTypeExpr recognizes "int"/"float"/"string"/"boolean", "T[]" arrays,
// "#{T}" string-keyed maps, and dotted custom-type names, matching
// xml_utils.rs's parse_type_expr grammar exactly.
func parseTypeExpr(raw string, span scriptlangerr.Span) (parsedTypeExpr, error) {
	source := strings.TrimSpace(raw)
	switch source {
	case "int", "float", "string", "boolean":
		return parsedTypeExpr{kind: parsedTypePrimitive, primitiveName: source}, nil
	}

	if strings.HasSuffix(source, "[]") {
		elem, err := parseTypeExpr(strings.TrimSuffix(source, "[]"), span)
		if err != nil {
			return parsedTypeExpr{}, err
		}
		return parsedTypeExpr{kind: parsedTypeArray, element: &elem}, nil
	}

	if strings.HasPrefix(source, "#{") && strings.HasSuffix(source, "}") {
		inner := strings.TrimSpace(source[2 : len(source)-1])
		if inner == "" {
			return parsedTypeExpr{}, scriptlangerr.WithSpanf("TYPE_PARSE_ERROR", span, "Unsupported type syntax: %q.", raw)
		}
		val, err := parseTypeExpr(inner, span)
		if err != nil {
			return parsedTypeExpr{}, err
		}
		return parsedTypeExpr{kind: parsedTypeMap, mapValue: &val}, nil
	}

	if customTypeNameRe.MatchString(source) {
		return parsedTypeExpr{kind: parsedTypeCustom, customName: source}, nil
	}

	return parsedTypeExpr{}, scriptlangerr.WithSpanf("TYPE_PARSE_ERROR", span, "Unsupported type syntax: %q.", raw)
}

type parsedTypeField struct {
	name     string
	typeExpr parsedTypeExpr
	span     scriptlangerr.Span
}

type parsedTypeDecl struct {
	name          string
	qualifiedName string
	fields        []parsedTypeField
	span          scriptlangerr.Span
}

// parseTypeDeclarationNode parses a <type name="..."><field name="..." type="..."/>...</type>
// element into a parsedTypeDecl, qualifying its name with namespace.
func parseTypeDeclarationNode(el *xmlsrc.Element, namespace string) (parsedTypeDecl, error) {
	name, err := xmlsrc.RequiredNonEmptyAttr(el, "name")
	if err != nil {
		return parsedTypeDecl{}, err
	}
	if err := xmlsrc.AssertNameNotReserved(name, "type", el.Span); err != nil {
		return parsedTypeDecl{}, err
	}

	var fields []parsedTypeField
	seen := map[string]bool{}
	for _, child := range xmlsrc.Elements(el) {
		if child.Name != "field" {
			return parsedTypeDecl{}, scriptlangerr.WithSpanf("XML_TYPE_CHILD_INVALID", child.Span, "Unsupported child <%s> under <type>.", child.Name)
		}
		fieldName, err := xmlsrc.RequiredNonEmptyAttr(child, "name")
		if err != nil {
			return parsedTypeDecl{}, err
		}
		if err := xmlsrc.AssertNameNotReserved(fieldName, "type field", child.Span); err != nil {
			return parsedTypeDecl{}, err
		}
		if seen[fieldName] {
			return parsedTypeDecl{}, scriptlangerr.WithSpanf("TYPE_FIELD_DUPLICATE", child.Span, "Duplicate field %q in type %q.", fieldName, name)
		}
		seen[fieldName] = true

		fieldTypeRaw, err := xmlsrc.RequiredNonEmptyAttr(child, "type")
		if err != nil {
			return parsedTypeDecl{}, err
		}
		fieldType, err := parseTypeExpr(fieldTypeRaw, child.Span)
		if err != nil {
			return parsedTypeDecl{}, err
		}
		fields = append(fields, parsedTypeField{name: fieldName, typeExpr: fieldType, span: child.Span})
	}

	return parsedTypeDecl{
		name:          name,
		qualifiedName: fmt.Sprintf("%s.%s", namespace, name),
		fields:        fields,
		span:          el.Span,
	}, nil
}

// typeResolver resolves parsedTypeExpr/named custom types into value.ScriptType,
// memoizing object resolutions and detecting recursive declarations, matching
// type_expr.rs's resolve_named_type_with_aliases.
type typeResolver struct {
	declsByQualifiedName map[string]parsedTypeDecl
	aliasToQualifiedName map[string]string
	resolved             map[string]value.ScriptType
	visiting             map[string]bool
}

func newTypeResolver(decls map[string]parsedTypeDecl, aliases map[string]string) *typeResolver {
	return &typeResolver{
		declsByQualifiedName: decls,
		aliasToQualifiedName: aliases,
		resolved:             map[string]value.ScriptType{},
		visiting:             map[string]bool{},
	}
}

func (r *typeResolver) resolveNamed(name string) (value.ScriptType, error) {
	lookupName := name
	if _, ok := r.declsByQualifiedName[name]; !ok {
		qualified, ok := r.aliasToQualifiedName[name]
		if !ok {
			return value.ScriptType{}, scriptlangerr.Newf("TYPE_UNKNOWN", "Unknown type %q.", name)
		}
		lookupName = qualified
	}

	if found, ok := r.resolved[lookupName]; ok {
		return found, nil
	}
	if r.visiting[lookupName] {
		return value.ScriptType{}, scriptlangerr.Newf("TYPE_DECL_RECURSIVE", "Recursive type declaration detected for %q.", name)
	}
	decl, ok := r.declsByQualifiedName[lookupName]
	if !ok {
		return value.ScriptType{}, scriptlangerr.Newf("TYPE_UNKNOWN", "Unknown type %q.", name)
	}
	r.visiting[lookupName] = true

	seen := map[string]bool{}
	var fields []value.ObjectField
	for _, field := range decl.fields {
		if seen[field.name] {
			delete(r.visiting, lookupName)
			return value.ScriptType{}, scriptlangerr.WithSpanf("TYPE_FIELD_DUPLICATE", field.span, "Duplicate field %q in type %q.", field.name, name)
		}
		seen[field.name] = true
		fieldType, err := r.resolveExpr(field.typeExpr, field.span)
		if err != nil {
			delete(r.visiting, lookupName)
			return value.ScriptType{}, err
		}
		fields = append(fields, value.ObjectField{Name: field.name, Type: fieldType})
	}
	delete(r.visiting, lookupName)

	resolvedType := value.Object(lookupName, fields)
	r.resolved[lookupName] = resolvedType
	return resolvedType, nil
}

func (r *typeResolver) resolveExpr(expr parsedTypeExpr, span scriptlangerr.Span) (value.ScriptType, error) {
	switch expr.kind {
	case parsedTypePrimitive:
		return value.Primitive(expr.primitiveName), nil
	case parsedTypeArray:
		elem, err := r.resolveExpr(*expr.element, span)
		if err != nil {
			return value.ScriptType{}, err
		}
		return value.Array(elem), nil
	case parsedTypeMap:
		val, err := r.resolveExpr(*expr.mapValue, span)
		if err != nil {
			return value.ScriptType{}, err
		}
		return value.Map(val), nil
	case parsedTypeCustom:
		resolved, err := r.resolveNamed(expr.customName)
		if err != nil {
			if slErr, ok := err.(*scriptlangerr.Error); ok && slErr.Code != "TYPE_UNKNOWN" {
				return value.ScriptType{}, err
			}
			return value.ScriptType{}, scriptlangerr.WithSpanf("TYPE_UNKNOWN", span, "Unknown custom type %q.", expr.customName)
		}
		return resolved, nil
	default:
		return value.ScriptType{}, scriptlangerr.WithSpanf("TYPE_PARSE_ERROR", span, "unrecognized type expression")
	}
}

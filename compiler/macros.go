package compiler

import (
	"fmt"
	"strings"

	"github.com/scriptlang/scriptlang/internal/scriptlangerr"
	"github.com/scriptlang/scriptlang/xmlsrc"
)

// loopTempVarPrefix names macro-synthesized loop counters; it shares the
// "__" internal-reserved namespace so user code can never collide with one
// by accident even without the explicit uniqueness search below.
const loopTempVarPrefix = "__sl_loop_"

type macroExpansionContext struct {
	usedVarNames map[string]bool
	loopCounter  int
}

// expandScriptMacros rewrites every <loop times="EXPR">BODY</loop> into
// <var name="..." type="int">EXPR</var> followed by
// <while when="... > 0"><code>... = ... - 1;</code>BODY</while>, per
// spec §4.2.2.
func expandScriptMacros(root *xmlsrc.Element, reservedVarNames []string) (*xmlsrc.Element, error) {
	used := map[string]bool{}
	for _, name := range reservedVarNames {
		used[name] = true
	}
	collectDeclaredVarNames(root, used)
	if err := validateReservedPrefixInUserVarDeclarations(root); err != nil {
		return nil, err
	}

	ctx := &macroExpansionContext{usedVarNames: used}
	children, err := expandChildren(root.Children, ctx)
	if err != nil {
		return nil, err
	}
	return &xmlsrc.Element{
		Name:       root.Name,
		Attributes: root.Attributes,
		Children:   children,
		Span:       root.Span,
	}, nil
}

func collectDeclaredVarNames(el *xmlsrc.Element, names map[string]bool) {
	if el.Name == "var" {
		if name, ok := el.Attributes["name"]; ok && name != "" {
			names[name] = true
		}
	}
	for _, child := range xmlsrc.Elements(el) {
		collectDeclaredVarNames(child, names)
	}
}

func validateReservedPrefixInUserVarDeclarations(el *xmlsrc.Element) error {
	if el.Name == "var" {
		if name, ok := el.Attributes["name"]; ok && name != "" {
			if err := xmlsrc.AssertNameNotReserved(name, "var", el.Span); err != nil {
				return err
			}
		}
	}
	for _, child := range xmlsrc.Elements(el) {
		if err := validateReservedPrefixInUserVarDeclarations(child); err != nil {
			return err
		}
	}
	return nil
}

func expandChildren(children []xmlsrc.Node, ctx *macroExpansionContext) ([]xmlsrc.Node, error) {
	var out []xmlsrc.Node
	for _, child := range children {
		switch c := child.(type) {
		case *xmlsrc.Text:
			out = append(out, c)
		case *xmlsrc.Element:
			expanded, err := expandElementWithMacros(c, ctx)
			if err != nil {
				return nil, err
			}
			for _, e := range expanded {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func expandElementWithMacros(el *xmlsrc.Element, ctx *macroExpansionContext) ([]*xmlsrc.Element, error) {
	if el.Name != "loop" {
		children, err := expandChildren(el.Children, ctx)
		if err != nil {
			return nil, err
		}
		return []*xmlsrc.Element{{
			Name:       el.Name,
			Attributes: el.Attributes,
			Children:   children,
			Span:       el.Span,
		}}, nil
	}

	timesExpr, err := parseLoopTimesExpr(el)
	if err != nil {
		return nil, err
	}
	tempVarName := nextLoopTempVarName(ctx)
	bodyChildren, err := expandChildren(el.Children, ctx)
	if err != nil {
		return nil, err
	}

	decrementCode := &xmlsrc.Element{
		Name:       "code",
		Attributes: map[string]string{},
		Children:   []xmlsrc.Node{&xmlsrc.Text{Value: fmt.Sprintf("%s = %s - 1;", tempVarName, tempVarName), Span: el.Span}},
		Span:       el.Span,
	}

	loopVar := &xmlsrc.Element{
		Name:       "var",
		Attributes: map[string]string{"name": tempVarName, "type": "int"},
		Children:   []xmlsrc.Node{&xmlsrc.Text{Value: timesExpr, Span: el.Span}},
		Span:       el.Span,
	}

	whileChildren := append([]xmlsrc.Node{decrementCode}, bodyChildren...)
	loopWhile := &xmlsrc.Element{
		Name:       "while",
		Attributes: map[string]string{"when": fmt.Sprintf("%s > 0", tempVarName)},
		Children:   whileChildren,
		Span:       el.Span,
	}

	return []*xmlsrc.Element{loopVar, loopWhile}, nil
}

func parseLoopTimesExpr(el *xmlsrc.Element) (string, error) {
	raw, err := xmlsrc.RequiredNonEmptyAttr(el, "times")
	if err != nil {
		return "", err
	}
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "${") && strings.HasSuffix(trimmed, "}") {
		return "", scriptlangerr.WithSpan("XML_LOOP_TIMES_TEMPLATE_UNSUPPORTED",
			`Attribute "times" on <loop> must not use ${...} wrapper.`, el.Span)
	}
	return raw, nil
}

func nextLoopTempVarName(ctx *macroExpansionContext) string {
	for {
		candidate := fmt.Sprintf("%s%d_remaining", loopTempVarPrefix, ctx.loopCounter)
		ctx.loopCounter++
		if !ctx.usedVarNames[candidate] {
			ctx.usedVarNames[candidate] = true
			return candidate
		}
	}
}

package compiler

import (
	"regexp"
	"strings"

	"github.com/scriptlang/scriptlang/internal/scriptlangerr"
	"github.com/scriptlang/scriptlang/ir"
	"github.com/scriptlang/scriptlang/xmlsrc"
)

var stableBaseRe = regexp.MustCompile(`[^A-Za-z0-9_./-]`)

// stableBase sanitizes a script path into the fixed prefix every id derived
// from it shares, matching macro_expand.rs's stable_base exactly.
func stableBase(scriptPath string) string {
	return stableBaseRe.ReplaceAllString(scriptPath, "_")
}

// groupBuilder assigns deterministic group/node/choice ids while lowering one
// script's element tree into flat ir.ImplicitGroup sequences, matching
// context.rs's GroupBuilder.
type groupBuilder struct {
	base          string
	groupCounter  int
	nodeCounter   int
	choiceCounter int
	groups        map[string]ir.ImplicitGroup
	// pendingVarTypes holds each NodeVar's unresolved type expression by node
	// id; the pipeline resolves these against the script's visible custom
	// types in a second pass once include-graph visibility is known.
	pendingVarTypes map[string]parsedTypeExpr
}

func newGroupBuilder(scriptPath string) *groupBuilder {
	return &groupBuilder{
		base:            stableBase(scriptPath),
		groups:          map[string]ir.ImplicitGroup{},
		pendingVarTypes: map[string]parsedTypeExpr{},
	}
}

func (b *groupBuilder) nextGroupID() string {
	id := b.base + "::g" + itoa(b.groupCounter)
	b.groupCounter++
	return id
}

func (b *groupBuilder) nextNodeID(kind string) string {
	id := b.base + "::n" + itoa(b.nodeCounter) + ":" + kind
	b.nodeCounter++
	return id
}

func (b *groupBuilder) nextChoiceID() string {
	id := b.base + "::c" + itoa(b.choiceCounter)
	b.choiceCounter++
	return id
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// continueOwner tracks what a <continue> inside the group currently being
// lowered would target: the nearest enclosing <while> or <option>.
type continueOwner int

const (
	continueOwnerNone continueOwner = iota
	continueOwnerWhile
	continueOwnerChoice
)

// lowerGroup allocates a fresh group id, lowers children into it, and
// registers it on the builder, returning the new group's id.
func (b *groupBuilder) lowerGroup(children []xmlsrc.Node, parentGroupID string, hasParent bool, owner continueOwner) (string, error) {
	groupID := b.nextGroupID()
	nodes, err := b.lowerNodes(children, owner)
	if err != nil {
		return "", err
	}
	b.groups[groupID] = ir.ImplicitGroup{
		GroupID:       groupID,
		ParentGroupID: parentGroupID,
		HasParent:     hasParent,
		Nodes:         nodes,
	}
	return groupID, nil
}

func (b *groupBuilder) lowerNodes(children []xmlsrc.Node, owner continueOwner) ([]ir.ScriptNode, error) {
	var nodes []ir.ScriptNode
	for _, child := range children {
		el, ok := child.(*xmlsrc.Element)
		if !ok {
			continue
		}
		node, err := b.lowerElement(el, owner)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (b *groupBuilder) lowerElement(el *xmlsrc.Element, owner continueOwner) (ir.ScriptNode, error) {
	switch el.Name {
	case "text":
		return b.lowerText(el)
	case "code":
		return b.lowerCode(el)
	case "var":
		return b.lowerVar(el)
	case "if":
		return b.lowerIf(el, owner)
	case "while":
		return b.lowerWhile(el)
	case "choice":
		return b.lowerChoice(el)
	case "input":
		return b.lowerInput(el)
	case "break":
		return ir.ScriptNode{ID: b.nextNodeID("break"), Kind: ir.NodeBreak, Span: el.Span}, nil
	case "continue":
		return b.lowerContinue(el, owner)
	case "call":
		return b.lowerCall(el)
	case "return":
		return b.lowerReturn(el)
	default:
		return ir.ScriptNode{}, scriptlangerr.WithSpanf("XML_TYPE_CHILD_INVALID", el.Span, "Unsupported script node <%s>.", el.Name)
	}
}

func (b *groupBuilder) lowerText(el *xmlsrc.Element) (ir.ScriptNode, error) {
	once, err := xmlsrc.ParseBoolAttr(el, "once", false)
	if err != nil {
		return ir.ScriptNode{}, err
	}
	value := xmlsrc.InlineTextContent(el)
	return ir.ScriptNode{ID: b.nextNodeID("text"), Kind: ir.NodeText, Span: el.Span, TextValue: value, Once: once}, nil
}

func (b *groupBuilder) lowerCode(el *xmlsrc.Element) (ir.ScriptNode, error) {
	if xmlsrc.HasElementChildren(el) {
		for _, child := range xmlsrc.Elements(el) {
			return ir.ScriptNode{}, scriptlangerr.WithSpanf("XML_FUNCTION_CHILD_NODE_INVALID", child.Span, "<code> cannot contain child elements. Only inline code text is allowed.")
		}
	}
	code := xmlsrc.InlineTextContent(el)
	return ir.ScriptNode{ID: b.nextNodeID("code"), Kind: ir.NodeCode, Span: el.Span, Code: code}, nil
}

func (b *groupBuilder) lowerVar(el *xmlsrc.Element) (ir.ScriptNode, error) {
	name, err := xmlsrc.RequiredNonEmptyAttr(el, "name")
	if err != nil {
		return ir.ScriptNode{}, err
	}
	// The <loop> macro's own temp var carries the reserved prefix; user vars
	// were already checked by expandScriptMacros before expansion.
	if !strings.HasPrefix(name, loopTempVarPrefix) {
		if err := xmlsrc.AssertNameNotReserved(name, "var", el.Span); err != nil {
			return ir.ScriptNode{}, err
		}
	}
	typeRaw, err := xmlsrc.RequiredNonEmptyAttr(el, "type")
	if err != nil {
		return ir.ScriptNode{}, err
	}
	typeExpr, err := parseTypeExpr(typeRaw, el.Span)
	if err != nil {
		return ir.ScriptNode{}, err
	}
	content := strings.TrimSpace(xmlsrc.InlineTextContent(el))
	nodeID := b.nextNodeID("var")
	b.pendingVarTypes[nodeID] = typeExpr
	decl := ir.VarDeclaration{Name: name, InitialValueExpr: content, HasInitialValue: content != "", Span: el.Span}
	return ir.ScriptNode{ID: nodeID, Kind: ir.NodeVar, Span: el.Span, VarDecl: decl}, nil
}

func (b *groupBuilder) lowerIf(el *xmlsrc.Element, owner continueOwner) (ir.ScriptNode, error) {
	when, err := xmlsrc.RequiredNonEmptyAttr(el, "when")
	if err != nil {
		return ir.ScriptNode{}, err
	}

	var thenChildren []xmlsrc.Node
	var elseChildren []xmlsrc.Node
	for _, child := range el.Children {
		if elseEl, ok := child.(*xmlsrc.Element); ok && elseEl.Name == "else" {
			elseChildren = elseEl.Children
			continue
		}
		thenChildren = append(thenChildren, child)
	}

	id := b.nextNodeID("if")
	thenGroup, err := b.lowerGroup(thenChildren, "", false, owner)
	if err != nil {
		return ir.ScriptNode{}, err
	}
	elseGroup, err := b.lowerGroup(elseChildren, "", false, owner)
	if err != nil {
		return ir.ScriptNode{}, err
	}
	return ir.ScriptNode{ID: id, Kind: ir.NodeIf, Span: el.Span, IfWhenExpr: when, ThenGroup: thenGroup, ElseGroup: elseGroup}, nil
}

func (b *groupBuilder) lowerWhile(el *xmlsrc.Element) (ir.ScriptNode, error) {
	when, err := xmlsrc.RequiredNonEmptyAttr(el, "when")
	if err != nil {
		return ir.ScriptNode{}, err
	}
	id := b.nextNodeID("while")
	bodyGroup, err := b.lowerGroup(el.Children, "", false, continueOwnerWhile)
	if err != nil {
		return ir.ScriptNode{}, err
	}
	return ir.ScriptNode{ID: id, Kind: ir.NodeWhile, Span: el.Span, WhileWhenExpr: when, BodyGroup: bodyGroup}, nil
}

func (b *groupBuilder) lowerChoice(el *xmlsrc.Element) (ir.ScriptNode, error) {
	promptText, hasPrompt := xmlsrc.OptionalAttr(el, "text")
	id := b.nextNodeID("choice")

	var options []ir.ChoiceOption
	for _, child := range xmlsrc.Elements(el) {
		if child.Name != "option" {
			return ir.ScriptNode{}, scriptlangerr.WithSpanf("XML_TYPE_CHILD_INVALID", child.Span, "Unsupported child <%s> under <choice>.", child.Name)
		}
		option, err := b.lowerOption(child)
		if err != nil {
			return ir.ScriptNode{}, err
		}
		options = append(options, option)
	}

	return ir.ScriptNode{ID: id, Kind: ir.NodeChoice, Span: el.Span, ChoiceOptions: options, ChoicePromptExpr: promptText, HasChoicePrompt: hasPrompt}, nil
}

func (b *groupBuilder) lowerOption(el *xmlsrc.Element) (ir.ChoiceOption, error) {
	text, err := xmlsrc.RequiredNonEmptyAttr(el, "text")
	if err != nil {
		return ir.ChoiceOption{}, err
	}
	whenExpr, hasWhen := xmlsrc.OptionalAttr(el, "when")
	once, err := xmlsrc.ParseBoolAttr(el, "once", false)
	if err != nil {
		return ir.ChoiceOption{}, err
	}
	fallOver, err := xmlsrc.ParseBoolAttr(el, "fall_over", false)
	if err != nil {
		return ir.ChoiceOption{}, err
	}

	optionID := b.nextChoiceID()
	groupID, err := b.lowerGroup(el.Children, "", false, continueOwnerChoice)
	if err != nil {
		return ir.ChoiceOption{}, err
	}
	return ir.ChoiceOption{
		ID:       optionID,
		Text:     text,
		WhenExpr: whenExpr,
		HasWhen:  hasWhen,
		Once:     once,
		FallOver: fallOver,
		GroupID:  groupID,
		Span:     el.Span,
	}, nil
}

func (b *groupBuilder) lowerInput(el *xmlsrc.Element) (ir.ScriptNode, error) {
	targetVar, err := xmlsrc.RequiredNonEmptyAttr(el, "var")
	if err != nil {
		return ir.ScriptNode{}, err
	}
	promptText, err := xmlsrc.RequiredNonEmptyAttr(el, "text")
	if err != nil {
		return ir.ScriptNode{}, err
	}
	return ir.ScriptNode{ID: b.nextNodeID("input"), Kind: ir.NodeInput, Span: el.Span, InputTargetPath: targetVar, InputPromptExpr: promptText}, nil
}

func (b *groupBuilder) lowerContinue(el *xmlsrc.Element, owner continueOwner) (ir.ScriptNode, error) {
	var target ir.ContinueTarget
	switch owner {
	case continueOwnerWhile:
		target = ir.ContinueWhile
	case continueOwnerChoice:
		target = ir.ContinueChoice
	default:
		return ir.ScriptNode{}, scriptlangerr.WithSpan("CONTINUE_OUTSIDE_LOOP", "<continue> must be lexically inside a <while> or <option>.", el.Span)
	}
	return ir.ScriptNode{ID: b.nextNodeID("continue"), Kind: ir.NodeContinue, Span: el.Span, ContinueTarget: target}, nil
}

// lowerCall reads <call script="target" args="a, ref:b"/>. The target script
// name lives in the "script" attribute, matching the <return script="..."/>
// fixture in control_flow.rs's runtime_errors_cover_break_continue_and_return_args.
func (b *groupBuilder) lowerCall(el *xmlsrc.Element) (ir.ScriptNode, error) {
	target, err := xmlsrc.RequiredNonEmptyAttr(el, "script")
	if err != nil {
		return ir.ScriptNode{}, err
	}
	rawArgs, present := xmlsrc.OptionalAttr(el, "args")
	args, err := parseCallArgs(rawArgs, present)
	if err != nil {
		return ir.ScriptNode{}, err
	}
	return ir.ScriptNode{ID: b.nextNodeID("call"), Kind: ir.NodeCall, Span: el.Span, CallTarget: target, CallArgs: args}, nil
}

func (b *groupBuilder) lowerReturn(el *xmlsrc.Element) (ir.ScriptNode, error) {
	target, hasTarget := xmlsrc.OptionalAttr(el, "script")
	rawArgs, present := xmlsrc.OptionalAttr(el, "args")
	args, err := parseCallArgs(rawArgs, present)
	if err != nil {
		return ir.ScriptNode{}, err
	}
	return ir.ScriptNode{ID: b.nextNodeID("return"), Kind: ir.NodeReturn, Span: el.Span, ReturnTarget: target, HasReturnTarget: hasTarget, ReturnArgs: args}, nil
}

// resolvePendingVarTypes patches every NodeVar's VarDecl.Type in place, once
// the script's visible custom types are known, by re-resolving each node's
// recorded parsedTypeExpr against resolver.
func resolvePendingVarTypes(groups map[string]ir.ImplicitGroup, pending map[string]parsedTypeExpr, resolver *typeResolver) error {
	for groupID, group := range groups {
		for i := range group.Nodes {
			node := &group.Nodes[i]
			if node.Kind != ir.NodeVar {
				continue
			}
			expr, ok := pending[node.ID]
			if !ok {
				continue
			}
			resolved, err := resolver.resolveExpr(expr, node.Span)
			if err != nil {
				return err
			}
			node.VarDecl.Type = resolved
		}
		groups[groupID] = group
	}
	return nil
}

// Package ir defines the intermediate representation the compiler produces
// and the engine consumes: ScriptNode (the sum type of executable node
// kinds), ImplicitGroup (a flat node sequence), and ScriptIr (one compiled
// script). Every entity carries a Span for diagnostics, per spec §3.
package ir

import (
	"github.com/scriptlang/scriptlang/internal/scriptlangerr"
	"github.com/scriptlang/scriptlang/value"
)

type Span = scriptlangerr.Span

// VarDeclaration is a `<var name type>expr</var>` declaration: name, declared
// type, an optional initializer expression (evaluated, or defaulted from
// Type when absent), and its source span.
type VarDeclaration struct {
	Name            string
	Type            value.ScriptType
	InitialValueExpr string // empty means "use Type's default"
	HasInitialValue bool
	Span            Span
}

// ScriptParam is one declared parameter of a script's <script> root: used to
// validate/coerce entry_args on start() and Call arguments at runtime.
type ScriptParam struct {
	Name  string
	Type  value.ScriptType
	IsRef bool
	Span  Span
}

// FunctionParam is one parameter of a defs-declared function.
type FunctionParam struct {
	Name string
	Type value.ScriptType
	Span Span
}

// FunctionReturn is a function's single typed return binding.
type FunctionReturn struct {
	Name string
	Type value.ScriptType
}

// FunctionDecl is a defs-declared function: typed parameters, one typed
// return binding, and an inline code body (no XML children allowed).
type FunctionDecl struct {
	Name          string // bare name
	QualifiedName string // "namespace.name"
	Params        []FunctionParam
	Return        FunctionReturn
	Code          string
	Span          Span
}

// CallArgument is one argument to a Call node: either a value expression or,
// when IsRef is set, a scope path to bind by reference (the `ref:PATH` form).
type CallArgument struct {
	ValueExpr string
	IsRef     bool
}

// ChoiceOption is one `<option>` of a `<choice>`: its own child group,
// optional visibility guard, and the once/fall_over modifiers.
type ChoiceOption struct {
	ID       string
	Text     string
	WhenExpr string // empty means "always visible"
	HasWhen  bool
	Once     bool
	FallOver bool
	GroupID  string
	Span     Span
}

// ContinueTarget selects what a <continue> node restarts.
type ContinueTarget int

const (
	ContinueWhile ContinueTarget = iota
	ContinueChoice
)

func (t ContinueTarget) String() string {
	if t == ContinueChoice {
		return "choice"
	}
	return "while"
}

// NodeKind tags the ScriptNode sum type's variant.
type NodeKind int

const (
	NodeText NodeKind = iota
	NodeCode
	NodeVar
	NodeIf
	NodeWhile
	NodeChoice
	NodeInput
	NodeBreak
	NodeContinue
	NodeCall
	NodeReturn
)

// ScriptNode is the sum type of executable nodes inside an ImplicitGroup.
// Every node carries a stable ID unique within its script, per spec §3.
// Concrete field access: consult the Kind field then access the ScriptNode struct's
// matching field group; unused fields for a given Kind are zero.
type ScriptNode struct {
	ID   string
	Kind NodeKind
	Span Span

	// NodeText
	TextValue string
	Once      bool

	// NodeCode
	Code string

	// NodeVar
	VarDecl VarDeclaration

	// NodeIf
	IfWhenExpr string
	ThenGroup  string
	ElseGroup  string

	// NodeWhile
	WhileWhenExpr string
	BodyGroup     string

	// NodeChoice
	ChoiceOptions   []ChoiceOption
	ChoicePromptExpr string
	HasChoicePrompt bool

	// NodeInput
	InputTargetPath string
	InputPromptExpr string

	// NodeContinue
	ContinueTarget ContinueTarget

	// NodeCall
	CallTarget string
	CallArgs   []CallArgument

	// NodeReturn
	ReturnTarget   string
	HasReturnTarget bool
	ReturnArgs     []CallArgument
}

// ImplicitGroup is a flat sequence of nodes representing one lexical scope
// body: an If's then/else bodies, a While's body, or a Choice option's body.
type ImplicitGroup struct {
	GroupID       string
	ParentGroupID string
	HasParent     bool
	Nodes         []ScriptNode
}

// ScriptIr is one compiled script, produced once and immutable thereafter.
type ScriptIr struct {
	ScriptPath  string
	ScriptName  string
	Params      []ScriptParam
	RootGroupID string
	Groups      map[string]ImplicitGroup

	VisibleJSONGlobals  []string
	VisibleFunctions    map[string]FunctionDecl
	VisibleDefsGlobals  map[string]VarDeclaration
}

// Bundle is the top-level compiler output for a project.
type Bundle struct {
	Scripts                map[string]ScriptIr
	GlobalJSON             map[string]value.SlValue
	DefsGlobalDeclarations map[string]VarDeclaration
	DefsGlobalInitOrder    []string
}

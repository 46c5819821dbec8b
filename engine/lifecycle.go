package engine

import (
	"github.com/scriptlang/scriptlang/evalscript"
	"github.com/scriptlang/scriptlang/internal/scriptlangerr"
	"github.com/scriptlang/scriptlang/ir"
	"github.com/scriptlang/scriptlang/value"
)

// New builds an Engine over a compiled bundle. No lifecycle.rs survived in
// the retrieved pack; the constructor shape (scripts, global_json,
// defs_global_declarations, defs_global_init_order, host_functions,
// random_seed, compiler_version) is grounded on engine.rs's
// runtime_test_support::engine_from_sources helper, the only surviving use
// of ScriptLangEngineOptions.
func New(opts Options) (*Engine, error) {
	hostFunctions := opts.HostFunctions
	if hostFunctions == nil {
		hostFunctions = EmptyHostFunctionRegistry{}
	}
	compilerVersion := opts.CompilerVersion
	if compilerVersion == "" {
		compilerVersion = DefaultCompilerVersion
	}
	var seed uint32 = 1
	if opts.RandomSeed != nil {
		seed = *opts.RandomSeed
	}

	groupLookup := map[string]groupLookupEntry{}
	for scriptName, script := range opts.Scripts {
		for groupID := range script.Groups {
			groupLookup[groupID] = groupLookupEntry{scriptName: scriptName, groupID: groupID}
		}
	}

	e := &Engine{
		scripts:                opts.Scripts,
		globalJSON:             opts.GlobalJSON,
		defsGlobalDeclarations: opts.DefsGlobalDeclarations,
		defsGlobalInitOrder:    opts.DefsGlobalInitOrder,
		defsGlobalValues:       map[string]value.SlValue{},
		hostFunctions:          hostFunctions,
		groupLookup:            groupLookup,
		compilerVersion:        compilerVersion,
		initialRandomSeed:      seed,
		onceStateByScript:      map[string]map[string]bool{},
	}
	e.reset()
	if err := e.initDefsGlobals(); err != nil {
		return nil, err
	}
	return e, nil
}

// initDefsGlobals evaluates every defs-global's initializer in
// defsGlobalInitOrder, matching pipeline.rs's defs_global_init_order
// contract. An initializer cannot read another defs-global (see
// defsInitHost).
func (e *Engine) initDefsGlobals() error {
	for _, qualifiedName := range e.defsGlobalInitOrder {
		decl, ok := e.defsGlobalDeclarations[qualifiedName]
		if !ok {
			continue
		}
		if !decl.HasInitialValue {
			e.defsGlobalValues[qualifiedName] = value.DefaultValue(decl.Type)
			continue
		}
		v, err := e.evalDefsGlobalInitializer(decl)
		if err != nil {
			return err
		}
		coerced, err := value.Coerce(decl.Type, v, qualifiedName)
		if err != nil {
			return err
		}
		e.defsGlobalValues[qualifiedName] = coerced
	}
	return nil
}

// evalDefsGlobalInitializer parses and evaluates a defs-global's initializer
// expression with no script-root frame to anchor GetVariable against. The
// source is parsed as written, with no symbol rewriting.
func (e *Engine) evalDefsGlobalInitializer(decl ir.VarDeclaration) (value.SlValue, error) {
	parser, err := evalscript.NewParser(decl.InitialValueExpr)
	if err != nil {
		return value.SlValue{}, err
	}
	expr, err := parser.ParseExpr()
	if err != nil {
		return value.SlValue{}, err
	}
	return evalscript.Eval(expr, &defsInitHost{engine: e})
}

// defsInitHost is the Host used only while evaluating defs-global
// initializers, before any script-root frame exists: reads resolve against
// bundle-wide JSON globals, and writes/calls are rejected since initializer
// expressions are value-only per spec §6. Its defs-global lookup is keyed by
// the qualified "ns.name", which no parsed identifier equals (the parser reads
// `ns.name` as field access on `ns`), so other defs-globals are not readable.
type defsInitHost struct {
	engine *Engine
}

func (h *defsInitHost) GetVariable(name string) (value.SlValue, error) {
	if decl, ok := h.engine.defsGlobalDeclarations[name]; ok {
		if v, ok := h.engine.defsGlobalValues[decl.Name]; ok {
			return v, nil
		}
	}
	if v, ok := h.engine.globalJSON[name]; ok {
		return v, nil
	}
	return value.SlValue{}, scriptlangerr.Newf("ENGINE_VARIABLE_NOT_FOUND", "Variable %q is not declared.", name)
}

func (h *defsInitHost) SetVariable(name string, v value.SlValue) error {
	return scriptlangerr.New("ENGINE_VALUE_UNSUPPORTED", "defs-global initializers cannot assign variables.")
}

func (h *defsInitHost) CallFunction(name string, args []value.SlValue) (value.SlValue, error) {
	return value.SlValue{}, scriptlangerr.Newf("ENGINE_FUNCTION_NOT_FOUND", "Function %q is not declared.", name)
}

// Start resets the engine and begins executing scriptName at its root
// group, coercing entryArgs against the script's declared params by name.
// No lifecycle.rs survived; grounded on runtime_test_support's
// `engine.start(script_name, args)` usage and frame_stack.rs's
// push_root_frame.
func (e *Engine) Start(scriptName string, entryArgs map[string]value.SlValue) error {
	script, ok := e.scripts[scriptName]
	if !ok {
		return scriptlangerr.Newf("ENGINE_SCRIPT_NOT_FOUND", "Script %q not found.", scriptName)
	}

	e.reset()
	if err := e.initDefsGlobals(); err != nil {
		return err
	}

	scope := map[string]value.SlValue{}
	varTypes := map[string]value.ScriptType{}
	for _, p := range script.Params {
		varTypes[p.Name] = p.Type
		v, supplied := entryArgs[p.Name]
		if !supplied {
			scope[p.Name] = value.DefaultValue(p.Type)
			continue
		}
		coerced, err := value.Coerce(p.Type, v, p.Name)
		if err != nil {
			return err
		}
		scope[p.Name] = coerced
	}

	e.pushRootFrame(scriptName, script.RootGroupID, scope, nil, varTypes)
	e.started = true
	return nil
}

// Choose resumes execution at a pending choice boundary by selecting one of
// its visible options, marking that option's once-state when the chosen
// option is a once option, and pushing its body group.
// No boundary.rs survived; this is an original design grounded on
// once_state.rs's is_choice_option_visible contract and frame_stack.rs's
// push_group_frame.
func (e *Engine) Choose(index int) error {
	boundary := e.pendingBoundary
	if boundary == nil || !boundary.IsChoice {
		return scriptlangerr.New("ENGINE_NO_PENDING_CHOICE", "No pending choice to resume.")
	}
	if index < 0 || index >= len(boundary.Options) {
		return scriptlangerr.Newf("ENGINE_CHOICE_INDEX", "Choice index %d is out of range.", index)
	}

	frameIndex, ok := e.findFrameIndex(boundary.FrameID)
	if !ok {
		return scriptlangerr.New("ENGINE_CHOICE_FRAME_MISSING", "Choice frame is no longer on the stack.")
	}
	_, group, err := e.lookupGroup(e.frames[frameIndex].GroupID)
	if err != nil {
		return err
	}
	var node *ir.ScriptNode
	for i := range group.Nodes {
		if group.Nodes[i].ID == boundary.NodeID {
			node = &group.Nodes[i]
			break
		}
	}
	if node == nil {
		return scriptlangerr.Newf("ENGINE_NODE_NOT_FOUND", "Choice node %q not found.", boundary.NodeID)
	}

	chosenID := boundary.Options[index].ID
	var chosen *ir.ChoiceOption
	for i := range node.ChoiceOptions {
		if node.ChoiceOptions[i].ID == chosenID {
			chosen = &node.ChoiceOptions[i]
			break
		}
	}
	if chosen == nil {
		return scriptlangerr.Newf("ENGINE_NODE_NOT_FOUND", "Choice option %q not found.", chosenID)
	}

	if chosen.Once {
		e.markOnceState(boundary.ScriptName, "option:"+chosen.ID)
	}

	e.pendingBoundary = nil
	e.waitingChoice = false
	if err := e.bumpTopNodeIndex(1); err != nil {
		return err
	}
	return e.pushGroupFrame(chosen.GroupID, CompletionResumeAfterChild)
}

// SubmitInput resumes execution at a pending input boundary, writing text
// (or, if empty, the boundary's recorded default) into the input's target
// path. No boundary.rs survived; grounded on runtime_test_support's
// `engine.submit_input(text)` usage.
func (e *Engine) SubmitInput(text string) error {
	boundary := e.pendingBoundary
	if boundary == nil || boundary.IsChoice {
		return scriptlangerr.New("ENGINE_NO_PENDING_INPUT", "No pending input to resume.")
	}
	if _, ok := e.findFrameIndex(boundary.FrameID); !ok {
		return scriptlangerr.New("ENGINE_INPUT_FRAME_MISSING", "Input frame is no longer on the stack.")
	}

	resolved := text
	if resolved == "" {
		resolved = boundary.DefaultText
	}
	if err := e.writePath(boundary.TargetVar, value.NewString(resolved)); err != nil {
		return err
	}

	e.pendingBoundary = nil
	return e.bumpTopNodeIndex(1)
}

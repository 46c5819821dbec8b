package engine

import (
	"strings"

	"github.com/scriptlang/scriptlang/evalscript"
	"github.com/scriptlang/scriptlang/internal/scriptlangerr"
	"github.com/scriptlang/scriptlang/ir"
	"github.com/scriptlang/scriptlang/value"
)

// Engine implements evalscript.Host over its current frame chain: reads and
// writes resolve against the nearest enclosing script-root frame's scope,
// falling back to that script's visible defs-globals; reads then fall back
// to bundle-wide JSON globals, which writes never reach. No scope.rs/eval.rs survived in the retrieved pack; this
// bridge is built directly on the already-grounded evalscript package's
// public Host contract.
var _ evalscript.Host = (*Engine)(nil)

func (e *Engine) nearestRootFrame() (*RuntimeFrame, error) {
	index, err := e.findCurrentRootFrameIndex()
	if err != nil {
		return nil, err
	}
	return e.frames[index], nil
}

func (e *Engine) GetVariable(name string) (value.SlValue, error) {
	root, err := e.nearestRootFrame()
	if err != nil {
		return value.SlValue{}, err
	}
	if v, ok := root.Scope[name]; ok {
		return v, nil
	}

	resolvedName := e.resolveSymbolName(root.ScriptName, name)

	script, ok := e.scripts[root.ScriptName]
	if ok {
		if decl, ok := script.VisibleDefsGlobals[resolvedName]; ok {
			if v, ok := e.defsGlobalValues[decl.Name]; ok {
				return v, nil
			}
		}
	}

	if v, ok := e.globalJSON[resolvedName]; ok {
		return v, nil
	}

	return value.SlValue{}, scriptlangerr.Newf("ENGINE_VARIABLE_NOT_FOUND", "Variable %q is not declared.", name)
}

func (e *Engine) SetVariable(name string, v value.SlValue) error {
	root, err := e.nearestRootFrame()
	if err != nil {
		return err
	}
	if _, ok := root.Scope[name]; ok {
		if t, ok := root.VarTypes[name]; ok {
			coerced, err := value.Coerce(t, v, name)
			if err != nil {
				return err
			}
			v = coerced
		}
		root.Scope[name] = v
		return nil
	}

	resolvedName := e.resolveSymbolName(root.ScriptName, name)

	script, ok := e.scripts[root.ScriptName]
	if ok {
		if decl, ok := script.VisibleDefsGlobals[resolvedName]; ok {
			coerced, err := value.Coerce(decl.Type, v, name)
			if err != nil {
				return err
			}
			e.defsGlobalValues[decl.Name] = coerced
			return nil
		}
	}

	return scriptlangerr.Newf("ENGINE_VARIABLE_NOT_FOUND", "Variable %q is not declared.", name)
}

func (e *Engine) CallFunction(name string, args []value.SlValue) (value.SlValue, error) {
	root, err := e.nearestRootFrame()
	if err != nil {
		return value.SlValue{}, err
	}
	resolvedName := e.resolveSymbolName(root.ScriptName, name)
	script, ok := e.scripts[root.ScriptName]
	if ok {
		if decl, ok := script.VisibleFunctions[resolvedName]; ok {
			return e.callDefsFunction(root.ScriptName, decl, args)
		}
	}
	if e.hostFunctions != nil {
		for _, n := range e.hostFunctions.Names() {
			if n == name {
				return e.hostFunctions.Call(name, args)
			}
		}
	}
	return value.SlValue{}, scriptlangerr.Newf("ENGINE_FUNCTION_NOT_FOUND", "Function %q is not declared.", name)
}

// callDefsFunction executes a defs-declared function's inline code body in
// an isolated scope seeded with its bound parameters, then reads its
// declared return binding out of that scope. callerScriptName provides the
// symbol table its code body is rewritten against, since a function has no
// script frame of its own to resolve dotted names from.
func (e *Engine) callDefsFunction(callerScriptName string, decl ir.FunctionDecl, args []value.SlValue) (value.SlValue, error) {
	if len(args) != len(decl.Params) {
		return value.SlValue{}, scriptlangerr.Newf("ENGINE_CALL_ARITY_MISMATCH", "Function %q expects %d arguments, got %d.", decl.Name, len(decl.Params), len(args))
	}
	scope := map[string]value.SlValue{}
	for i, p := range decl.Params {
		coerced, err := value.Coerce(p.Type, args[i], p.Name)
		if err != nil {
			return value.SlValue{}, err
		}
		scope[p.Name] = coerced
	}
	if decl.Return.Name != "" {
		scope[decl.Return.Name] = value.DefaultValue(decl.Return.Type)
	}

	sub := &functionScope{engine: e, vars: scope}
	prog, err := compileProgram(e.rewriteForScript(callerScriptName, decl.Code))
	if err != nil {
		return value.SlValue{}, err
	}
	if err := evalscript.ExecProgram(prog, sub); err != nil {
		return value.SlValue{}, err
	}
	if decl.Return.Name == "" {
		return value.DefaultValue(decl.Return.Type), nil
	}
	return sub.vars[decl.Return.Name], nil
}

// functionScope is a throwaway evalscript.Host for one function-call body:
// its own variables resolve first, otherwise delegating to the calling
// engine so the function body can still read scope/defs/JSON globals and
// call further functions.
type functionScope struct {
	engine *Engine
	vars   map[string]value.SlValue
}

func (s *functionScope) GetVariable(name string) (value.SlValue, error) {
	if v, ok := s.vars[name]; ok {
		return v, nil
	}
	return s.engine.GetVariable(name)
}

func (s *functionScope) SetVariable(name string, v value.SlValue) error {
	if _, ok := s.vars[name]; ok {
		s.vars[name] = v
		return nil
	}
	return s.engine.SetVariable(name, v)
}

func (s *functionScope) CallFunction(name string, args []value.SlValue) (value.SlValue, error) {
	return s.engine.CallFunction(name, args)
}

// readPath/writePath implement dotted-path scope access for <input var="a.b">
// targets and `ref:` call/return bindings, grounded on
// helpers/value_path.rs's parse_ref_path/assign_nested_path.
func parseRefPath(path string) []string {
	var segments []string
	for _, seg := range strings.Split(path, ".") {
		seg = strings.TrimSpace(seg)
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

func (e *Engine) readPath(path string) (value.SlValue, error) {
	segments := parseRefPath(path)
	if len(segments) == 0 {
		return value.SlValue{}, scriptlangerr.Newf("ENGINE_PATH_INVALID", "Invalid path %q.", path)
	}
	current, err := e.GetVariable(segments[0])
	if err != nil {
		return value.SlValue{}, err
	}
	for _, seg := range segments[1:] {
		if !current.IsMap() {
			return value.SlValue{}, scriptlangerr.Newf("ENGINE_PATH_INVALID", "Path %q does not resolve to an object.", path)
		}
		next, ok := current.AsMap()[seg]
		if !ok {
			return value.SlValue{}, scriptlangerr.Newf("ENGINE_PATH_INVALID", "Missing key %q in path %q.", seg, path)
		}
		current = next
	}
	return current, nil
}

func (e *Engine) writePath(path string, v value.SlValue) error {
	segments := parseRefPath(path)
	if len(segments) == 0 {
		return scriptlangerr.Newf("ENGINE_PATH_INVALID", "Invalid path %q.", path)
	}
	if len(segments) == 1 {
		return e.SetVariable(segments[0], v)
	}

	root, err := e.GetVariable(segments[0])
	if err != nil {
		return err
	}
	if !root.IsMap() {
		return scriptlangerr.Newf("ENGINE_PATH_INVALID", "Path %q does not resolve to an object.", path)
	}
	entries := root.AsMap()
	if err := assignNestedPath(entries, segments[1:], v); err != nil {
		return err
	}
	return e.SetVariable(segments[0], value.NewMap(entries))
}

func assignNestedPath(entries map[string]value.SlValue, path []string, v value.SlValue) error {
	head := path[0]
	if len(path) == 1 {
		entries[head] = v
		return nil
	}
	next, ok := entries[head]
	if !ok || !next.IsMap() {
		return scriptlangerr.Newf("ENGINE_PATH_INVALID", "Missing key %q.", head)
	}
	return assignNestedPath(next.AsMap(), path[1:], v)
}

// renderText interpolates ${...} expressions inline, grounded on spec §4.3.
// Only the extracted expression bodies are rewritten for dotted
// defs-qualified names, never the surrounding narrative text.
func (e *Engine) renderText(text string) (string, error) {
	root, err := e.nearestRootFrame()
	if err != nil {
		return "", err
	}
	return evalscript.InterpolateWithRewrite(text, e, func(expr string) string {
		return e.rewriteForScript(root.ScriptName, expr)
	})
}

// evalBoolean evaluates an expression string and reports its truthiness.
func (e *Engine) evalBoolean(expr string) (bool, error) {
	v, err := e.evalExpr(expr)
	if err != nil {
		return false, err
	}
	return v.IsTruthy(), nil
}

func (e *Engine) evalExpr(expr string) (value.SlValue, error) {
	root, err := e.nearestRootFrame()
	if err != nil {
		return value.SlValue{}, err
	}
	parser, err := evalscript.NewParser(e.rewriteForScript(root.ScriptName, expr))
	if err != nil {
		return value.SlValue{}, err
	}
	ast, err := parser.ParseExpr()
	if err != nil {
		return value.SlValue{}, err
	}
	return evalscript.Eval(ast, e)
}

// runCode executes a <code> block's statements against the current scope.
func (e *Engine) runCode(code string) error {
	root, err := e.nearestRootFrame()
	if err != nil {
		return err
	}
	prog, err := compileProgram(e.rewriteForScript(root.ScriptName, code))
	if err != nil {
		return err
	}
	return evalscript.ExecProgram(prog, e)
}

func compileProgram(code string) (*evalscript.Program, error) {
	parser, err := evalscript.NewParser(code)
	if err != nil {
		return nil, err
	}
	return parser.ParseProgram()
}

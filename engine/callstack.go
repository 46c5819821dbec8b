package engine

import (
	"github.com/scriptlang/scriptlang/internal/scriptlangerr"
	"github.com/scriptlang/scriptlang/ir"
	"github.com/scriptlang/scriptlang/value"
)

// executeCall pushes a new script-root frame for <call script="target"
// args="..."/>, coercing each positional argument against target's declared
// params and recording `ref:` arguments as ref_bindings so the callee's
// final values write back into the caller's scope when it eventually
// returns. No callstack.rs survived; grounded on the ContinuationFrame shape
// in sl-core/src/types.rs and finish_frame's write-back contract in
// frame_stack.rs.
func (e *Engine) executeCall(node ir.ScriptNode) error {
	target, ok := e.scripts[node.CallTarget]
	if !ok {
		return scriptlangerr.Newf("ENGINE_SCRIPT_NOT_FOUND", "Script %q not found.", node.CallTarget)
	}

	resumeFrameID, err := e.topFrameID()
	if err != nil {
		return err
	}
	if err := e.bumpTopNodeIndex(1); err != nil {
		return err
	}
	resumeNodeIndex := e.frames[len(e.frames)-1].NodeIndex

	scope, varTypes, refBindings, err := e.bindCallArgs(node.CallArgs, target.Params)
	if err != nil {
		return err
	}

	continuation := &ContinuationFrame{
		ResumeFrameID: resumeFrameID,
		NextNodeIndex: resumeNodeIndex,
		RefBindings:   refBindings,
	}
	e.pushRootFrame(target.ScriptName, target.RootGroupID, scope, continuation, varTypes)
	return nil
}

// executeReturn finishes the current script. With no `script=` target it is
// a plain return: finishFrame alone resolves any ref_bindings the caller
// registered at the matching <call> site. With a `script=` target it is a
// tail-chain: after that plain-return bookkeeping, a fresh root frame is
// pushed for the target script, with `args` bound positionally to its
// declared params exactly as a <call> would, surfacing
// ENGINE_RETURN_ARG_UNKNOWN for any argument beyond the target's param
// count — the one fixture this is grounded on, in control_flow.rs's
// runtime_errors_cover_break_continue_and_return_args test.
func (e *Engine) executeReturn(node ir.ScriptNode) error {
	rootIndex, err := e.findCurrentRootFrameIndex()
	if err != nil {
		return err
	}
	root := e.frames[rootIndex]

	var values []value.SlValue
	if node.HasReturnTarget {
		values, err = e.evalReturnArgValues(node.ReturnArgs, root)
		if err != nil {
			return err
		}
	}

	e.frames = e.frames[:rootIndex+1]
	if err := e.finishFrame(root.FrameID); err != nil {
		return err
	}

	if !node.HasReturnTarget {
		return nil
	}

	target, ok := e.scripts[node.ReturnTarget]
	if !ok {
		return scriptlangerr.Newf("ENGINE_SCRIPT_NOT_FOUND", "Script %q not found.", node.ReturnTarget)
	}
	if len(values) > len(target.Params) {
		extra := values[len(target.Params)]
		return scriptlangerr.Newf("ENGINE_RETURN_ARG_UNKNOWN", "Return to %q supplies %d argument(s) but it declares only %d; unexpected value %s.", node.ReturnTarget, len(values), len(target.Params), extra.DisplayString())
	}

	scope := map[string]value.SlValue{}
	varTypes := map[string]value.ScriptType{}
	for i, p := range target.Params {
		var v value.SlValue
		if i < len(values) {
			coerced, err := value.Coerce(p.Type, values[i], p.Name)
			if err != nil {
				return err
			}
			v = coerced
		} else {
			v = value.DefaultValue(p.Type)
		}
		scope[p.Name] = v
		varTypes[p.Name] = p.Type
	}

	e.ended = false
	e.pushRootFrame(target.ScriptName, target.RootGroupID, scope, nil, varTypes)
	return nil
}

// bindCallArgs evaluates <call> arguments against the current scope,
// coercing positional args to the callee's declared param types and
// recording `ref:` args (whose ValueExpr is a caller-side scope path, not an
// expression) as ref_bindings keyed by the callee's param name.
func (e *Engine) bindCallArgs(args []ir.CallArgument, params []ir.ScriptParam) (map[string]value.SlValue, map[string]value.ScriptType, map[string]string, error) {
	if len(args) > len(params) {
		extra := args[len(params)]
		return nil, nil, nil, scriptlangerr.Newf("ENGINE_CALL_ARG_UNKNOWN", "Call supplies %d argument(s) but the target declares only %d; unexpected value %q.", len(args), len(params), extra.ValueExpr)
	}

	scope := map[string]value.SlValue{}
	varTypes := map[string]value.ScriptType{}
	refBindings := map[string]string{}

	for i, p := range params {
		varTypes[p.Name] = p.Type
		if i >= len(args) {
			scope[p.Name] = value.DefaultValue(p.Type)
			continue
		}
		arg := args[i]
		if arg.IsRef != p.IsRef {
			return nil, nil, nil, scriptlangerr.Newf("ENGINE_CALL_ARG_REF_MISMATCH", "Parameter %q expects ref=%v, call argument %q does not match.", p.Name, p.IsRef, arg.ValueExpr)
		}
		if arg.IsRef {
			v, err := e.readPath(arg.ValueExpr)
			if err != nil {
				return nil, nil, nil, err
			}
			coerced, err := value.Coerce(p.Type, v, p.Name)
			if err != nil {
				return nil, nil, nil, err
			}
			scope[p.Name] = coerced
			refBindings[p.Name] = arg.ValueExpr
			continue
		}
		v, err := e.evalExpr(arg.ValueExpr)
		if err != nil {
			return nil, nil, nil, err
		}
		coerced, err := value.Coerce(p.Type, v, p.Name)
		if err != nil {
			return nil, nil, nil, err
		}
		scope[p.Name] = coerced
	}

	return scope, varTypes, refBindings, nil
}

// evalReturnArgValues evaluates a <return script="..." args="..."/>'s
// positional arguments against the finishing frame's own scope, before it
// is popped. `ref:` entries read the named path the same way a <call>'s
// `ref:` argument does.
func (e *Engine) evalReturnArgValues(args []ir.CallArgument, _ *RuntimeFrame) ([]value.SlValue, error) {
	values := make([]value.SlValue, len(args))
	for i, arg := range args {
		if arg.IsRef {
			v, err := e.readPath(arg.ValueExpr)
			if err != nil {
				return nil, err
			}
			values[i] = v
			continue
		}
		v, err := e.evalExpr(arg.ValueExpr)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

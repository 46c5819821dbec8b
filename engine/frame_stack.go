package engine

import (
	"github.com/scriptlang/scriptlang/internal/scriptlangerr"
	"github.com/scriptlang/scriptlang/ir"
	"github.com/scriptlang/scriptlang/value"
)

// reset clears all runtime state back to a fresh, unstarted engine, ported
// from frame_stack.rs's reset.
func (e *Engine) reset() {
	e.frames = nil
	e.pendingBoundary = nil
	e.waitingChoice = false
	e.ended = false
	e.frameCounter = 1
	e.rngState = e.initialRandomSeed
	e.onceStateByScript = map[string]map[string]bool{}
}

// boundaryOutput converts the current pending boundary to an EngineOutput,
// ported from frame_stack.rs's boundary_output.
func (e *Engine) boundaryOutput(boundary *PendingBoundary) EngineOutput {
	if boundary.IsChoice {
		return EngineOutput{Kind: OutputChoices, Choices: boundary.Options, PromptText: boundary.PromptText, HasPrompt: boundary.HasPrompt}
	}
	return EngineOutput{Kind: OutputInput, InputPrompt: boundary.InputPrompt, DefaultText: boundary.DefaultText}
}

func (e *Engine) topFrameID() (uint64, error) {
	if len(e.frames) == 0 {
		return 0, scriptlangerr.New("ENGINE_NO_FRAME", "No runtime frame available.")
	}
	return e.frames[len(e.frames)-1].FrameID, nil
}

func (e *Engine) bumpTopNodeIndex(amount int) error {
	if len(e.frames) == 0 {
		return scriptlangerr.New("ENGINE_NO_FRAME", "No runtime frame available.")
	}
	e.frames[len(e.frames)-1].NodeIndex += amount
	return nil
}

func (e *Engine) findFrameIndex(frameID uint64) (int, bool) {
	for i, f := range e.frames {
		if f.FrameID == frameID {
			return i, true
		}
	}
	return 0, false
}

// findCurrentRootFrameIndex finds the nearest script-root frame from the top
// of the stack down, matching the ENGINE_ROOT_FRAME error path exercised by
// frame_stack.rs's internal_state_error_paths_are_covered test.
func (e *Engine) findCurrentRootFrameIndex() (int, error) {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if e.frames[i].ScriptRoot {
			return i, nil
		}
	}
	return 0, scriptlangerr.New("ENGINE_ROOT_FRAME", "No root frame on the stack.")
}

// lookupGroup resolves a group id to its owning script name and ImplicitGroup,
// ported from frame_stack.rs's lookup_group.
func (e *Engine) lookupGroup(groupID string) (string, ir.ImplicitGroup, error) {
	lookup, ok := e.groupLookup[groupID]
	if !ok {
		return "", ir.ImplicitGroup{}, scriptlangerr.Newf("ENGINE_GROUP_NOT_FOUND", "Group %q not found.", groupID)
	}
	script, ok := e.scripts[lookup.scriptName]
	if !ok {
		return "", ir.ImplicitGroup{}, scriptlangerr.Newf("ENGINE_SCRIPT_NOT_FOUND", "Script %q not found.", lookup.scriptName)
	}
	group, ok := script.Groups[lookup.groupID]
	if !ok {
		return "", ir.ImplicitGroup{}, scriptlangerr.Newf("ENGINE_GROUP_NOT_FOUND", "Group %q missing.", groupID)
	}
	return lookup.scriptName, group, nil
}

func (e *Engine) pushRootFrame(scriptName, groupID string, scope map[string]value.SlValue, returnContinuation *ContinuationFrame, varTypes map[string]value.ScriptType) {
	e.frames = append(e.frames, &RuntimeFrame{
		FrameID:            e.frameCounter,
		GroupID:            groupID,
		NodeIndex:          0,
		Scope:              scope,
		VarTypes:           varTypes,
		Completion:         CompletionNone,
		ScriptRoot:         true,
		ReturnContinuation: returnContinuation,
		ScriptName:         scriptName,
	})
	e.frameCounter++
}

func (e *Engine) pushGroupFrame(groupID string, completion CompletionKind) error {
	lookup, ok := e.groupLookup[groupID]
	if !ok {
		return scriptlangerr.Newf("ENGINE_GROUP_NOT_FOUND", "Group %q not found.", groupID)
	}
	e.frames = append(e.frames, &RuntimeFrame{
		FrameID:    e.frameCounter,
		GroupID:    groupID,
		NodeIndex:  0,
		Scope:      map[string]value.SlValue{},
		VarTypes:   map[string]value.ScriptType{},
		Completion: completion,
		ScriptRoot: false,
		ScriptName: lookup.scriptName,
	})
	e.frameCounter++
	return nil
}

// finishFrame removes a frame by id; if it was a script-root frame with a
// pending return_continuation, it resolves ref_bindings by write-back into
// the resume frame's scope and advances that frame past the call/return
// site, matching frame_stack.rs's finish_frame exactly.
func (e *Engine) finishFrame(frameID uint64) error {
	index, ok := e.findFrameIndex(frameID)
	if !ok {
		return nil
	}
	frame := e.frames[index]
	e.frames = append(e.frames[:index], e.frames[index+1:]...)
	if !frame.ScriptRoot {
		return nil
	}

	continuation := frame.ReturnContinuation
	if continuation == nil {
		e.endExecution()
		return nil
	}

	resumeIndex, ok := e.findFrameIndex(continuation.ResumeFrameID)
	if !ok {
		e.endExecution()
		return nil
	}

	for _, calleeVar := range sortedStringKeys(continuation.RefBindings) {
		callerPath := continuation.RefBindings[calleeVar]
		v, ok := frame.Scope[calleeVar]
		if !ok {
			return scriptlangerr.Newf("ENGINE_REF_VALUE_MISSING", "Missing ref value %q in callee scope.", calleeVar)
		}
		if err := e.writePath(callerPath, v); err != nil {
			return err
		}
	}

	e.frames[resumeIndex].NodeIndex = continuation.NextNodeIndex
	return nil
}

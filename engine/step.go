package engine

import (
	"github.com/scriptlang/scriptlang/internal/scriptlangerr"
	"github.com/scriptlang/scriptlang/ir"
	"github.com/scriptlang/scriptlang/value"
)

// maxStepGuard bounds the number of nodes NextOutput will execute before
// yielding an EngineOutput, matching step.rs's 10_000-iteration guard
// against runaway scripts with no text/choice/input node in their path.
const maxStepGuard = 10_000

// NextOutput drives execution forward until it produces an observable
// EngineOutput (Text, Choices, Input, or End), ported node-for-node from
// step.rs's next_output.
func (e *Engine) NextOutput() (EngineOutput, error) {
	if e.pendingBoundary != nil {
		return e.boundaryOutput(e.pendingBoundary), nil
	}
	if e.ended {
		return EngineOutput{Kind: OutputEnd}, nil
	}

	for guard := 0; guard < maxStepGuard; guard++ {
		if len(e.frames) == 0 {
			e.ended = true
			return EngineOutput{Kind: OutputEnd}, nil
		}

		topFrame := e.frames[len(e.frames)-1]
		scriptName, group, err := e.lookupGroup(topFrame.GroupID)
		if err != nil {
			return EngineOutput{}, err
		}

		if topFrame.NodeIndex >= len(group.Nodes) {
			if err := e.finishFrame(topFrame.FrameID); err != nil {
				return EngineOutput{}, err
			}
			continue
		}

		node := group.Nodes[topFrame.NodeIndex]
		output, halt, err := e.stepNode(scriptName, topFrame, node)
		if err != nil {
			return EngineOutput{}, err
		}
		if halt {
			return output, nil
		}
	}

	return EngineOutput{}, scriptlangerr.New("ENGINE_GUARD_EXCEEDED", "Execution guard exceeded 10000 iterations.")
}

// stepNode executes one ScriptNode. halt reports whether output is a value
// NextOutput should return immediately (a node produced Text/Choices/Input);
// the end of execution is reported by NextOutput itself once no frame is
// left.
func (e *Engine) stepNode(scriptName string, topFrame *RuntimeFrame, node ir.ScriptNode) (EngineOutput, bool, error) {
	switch node.Kind {
	case ir.NodeText:
		onceKey := "text:" + node.ID
		if node.Once && e.hasOnceState(scriptName, onceKey) {
			return EngineOutput{}, false, e.bumpTopNodeIndex(1)
		}
		rendered, err := e.renderText(node.TextValue)
		if err != nil {
			return EngineOutput{}, false, err
		}
		if err := e.bumpTopNodeIndex(1); err != nil {
			return EngineOutput{}, false, err
		}
		if node.Once {
			e.markOnceState(scriptName, onceKey)
		}
		return EngineOutput{Kind: OutputText, Text: rendered}, true, nil

	case ir.NodeCode:
		if err := e.runCode(node.Code); err != nil {
			return EngineOutput{}, false, err
		}
		return EngineOutput{}, false, e.bumpTopNodeIndex(1)

	case ir.NodeVar:
		if err := e.executeVarDeclaration(node.VarDecl); err != nil {
			return EngineOutput{}, false, err
		}
		return EngineOutput{}, false, e.bumpTopNodeIndex(1)

	case ir.NodeIf:
		condition, err := e.evalBoolean(node.IfWhenExpr)
		if err != nil {
			return EngineOutput{}, false, err
		}
		if err := e.bumpTopNodeIndex(1); err != nil {
			return EngineOutput{}, false, err
		}
		branchGroup := node.ElseGroup
		if condition {
			branchGroup = node.ThenGroup
		}
		return EngineOutput{}, false, e.pushGroupFrame(branchGroup, CompletionResumeAfterChild)

	case ir.NodeWhile:
		condition, err := e.evalBoolean(node.WhileWhenExpr)
		if err != nil {
			return EngineOutput{}, false, err
		}
		if condition {
			return EngineOutput{}, false, e.pushGroupFrame(node.BodyGroup, CompletionWhileBody)
		}
		return EngineOutput{}, false, e.bumpTopNodeIndex(1)

	case ir.NodeChoice:
		return e.stepChoice(scriptName, node)

	case ir.NodeInput:
		return e.stepInput(node)

	case ir.NodeCall:
		return EngineOutput{}, false, e.executeCall(node)

	case ir.NodeReturn:
		return EngineOutput{}, false, e.executeReturn(node)

	case ir.NodeBreak:
		return EngineOutput{}, false, e.executeBreak()

	case ir.NodeContinue:
		if node.ContinueTarget == ir.ContinueChoice {
			return EngineOutput{}, false, e.executeContinueChoice()
		}
		return EngineOutput{}, false, e.executeContinueWhile()

	default:
		return EngineOutput{}, false, scriptlangerr.Newf("ENGINE_NODE_KIND_UNSUPPORTED", "Unsupported node kind for id %q.", node.ID)
	}
}

// stepChoice filters a <choice>'s options to those currently visible,
// falling back to a single fall_over option when no regular option is
// visible, and sets the pending boundary the caller resumes from Choose,
// matching step.rs's ScriptNode::Choice arm exactly.
func (e *Engine) stepChoice(scriptName string, node ir.ScriptNode) (EngineOutput, bool, error) {
	var regular []ir.ChoiceOption
	for _, opt := range node.ChoiceOptions {
		if opt.FallOver {
			continue
		}
		visible, err := e.isChoiceOptionVisible(scriptName, opt)
		if err != nil {
			return EngineOutput{}, false, err
		}
		if visible {
			regular = append(regular, opt)
		}
	}

	visibleOptions := regular
	if len(visibleOptions) == 0 {
		for _, opt := range node.ChoiceOptions {
			if !opt.FallOver {
				continue
			}
			visible, err := e.isChoiceOptionVisible(scriptName, opt)
			if err != nil {
				return EngineOutput{}, false, err
			}
			if visible {
				visibleOptions = []ir.ChoiceOption{opt}
			}
			break
		}
	}

	if len(visibleOptions) == 0 {
		return EngineOutput{}, false, e.bumpTopNodeIndex(1)
	}

	items := make([]ChoiceItem, len(visibleOptions))
	for i, opt := range visibleOptions {
		rendered, err := e.renderText(opt.Text)
		if err != nil {
			return EngineOutput{}, false, err
		}
		items[i] = ChoiceItem{Index: i, ID: opt.ID, Text: rendered}
	}

	promptText, err := e.renderText(node.ChoicePromptExpr)
	if err != nil {
		return EngineOutput{}, false, err
	}

	frameID, err := e.topFrameID()
	if err != nil {
		return EngineOutput{}, false, err
	}
	e.pendingBoundary = &PendingBoundary{
		IsChoice:   true,
		FrameID:    frameID,
		NodeID:     node.ID,
		ScriptName: scriptName,
		Options:    items,
		PromptText: promptText,
		HasPrompt:  true,
	}
	e.waitingChoice = true
	return EngineOutput{Kind: OutputChoices, Choices: items, PromptText: promptText, HasPrompt: true}, true, nil
}

// stepInput sets the pending boundary for an <input> node: the target var
// must already hold a string (its current value is the default text the
// caller resumes with if SubmitInput is called with an empty string),
// matching step.rs's ScriptNode::Input arm.
func (e *Engine) stepInput(node ir.ScriptNode) (EngineOutput, bool, error) {
	current, err := e.readPath(node.InputTargetPath)
	if err != nil {
		return EngineOutput{}, false, err
	}
	if !current.IsString() {
		return EngineOutput{}, false, scriptlangerr.Newf("ENGINE_INPUT_VAR_TYPE", "Input target var %q must be string.", node.InputTargetPath)
	}
	defaultText := current.AsString()

	promptText, err := e.renderText(node.InputPromptExpr)
	if err != nil {
		return EngineOutput{}, false, err
	}

	frameID, err := e.topFrameID()
	if err != nil {
		return EngineOutput{}, false, err
	}
	e.pendingBoundary = &PendingBoundary{
		IsChoice:    false,
		FrameID:     frameID,
		NodeID:      node.ID,
		TargetVar:   node.InputTargetPath,
		InputPrompt: promptText,
		DefaultText: defaultText,
	}
	e.waitingChoice = false
	return EngineOutput{Kind: OutputInput, InputPrompt: promptText, DefaultText: defaultText}, true, nil
}

func (e *Engine) executeVarDeclaration(decl ir.VarDeclaration) error {
	root, err := e.nearestRootFrame()
	if err != nil {
		return err
	}
	var v value.SlValue
	if decl.HasInitialValue {
		evaluated, err := e.evalExpr(decl.InitialValueExpr)
		if err != nil {
			return err
		}
		coerced, err := value.Coerce(decl.Type, evaluated, decl.Name)
		if err != nil {
			return err
		}
		v = coerced
	} else {
		v = value.DefaultValue(decl.Type)
	}
	root.Scope[decl.Name] = v
	root.VarTypes[decl.Name] = decl.Type
	return nil
}

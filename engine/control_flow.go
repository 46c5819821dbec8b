package engine

import (
	"sort"

	"github.com/scriptlang/scriptlang/internal/scriptlangerr"
	"github.com/scriptlang/scriptlang/ir"
)

// executeBreak pops every frame down to and including the nearest enclosing
// <while> body frame and advances the owning while node past itself, ported
// from control_flow.rs's execute_break.
func (e *Engine) executeBreak() error {
	whileBodyIndex, ok := e.findNearestWhileBodyFrameIndex()
	if !ok {
		return scriptlangerr.New("ENGINE_WHILE_CONTROL_TARGET_MISSING", "No target <while> frame found for <break>.")
	}
	if whileBodyIndex == 0 {
		return scriptlangerr.New("ENGINE_WHILE_CONTROL_TARGET_MISSING", "No owning while frame found.")
	}

	whileOwnerIndex := whileBodyIndex - 1
	whileOwner := e.frames[whileOwnerIndex]
	_, group, err := e.lookupGroup(whileOwner.GroupID)
	if err != nil {
		return err
	}
	if whileOwner.NodeIndex >= len(group.Nodes) || group.Nodes[whileOwner.NodeIndex].Kind != ir.NodeWhile {
		return scriptlangerr.New("ENGINE_WHILE_CONTROL_TARGET_MISSING", "Owning while node is missing.")
	}

	e.frames = e.frames[:whileBodyIndex]
	e.frames[whileOwnerIndex].NodeIndex++
	return nil
}

func (e *Engine) executeContinueWhile() error {
	whileBodyIndex, ok := e.findNearestWhileBodyFrameIndex()
	if !ok {
		return scriptlangerr.New("ENGINE_WHILE_CONTROL_TARGET_MISSING", "No target <while> frame found for <continue>.")
	}
	if whileBodyIndex == 0 {
		return scriptlangerr.New("ENGINE_WHILE_CONTROL_TARGET_MISSING", "No owning while frame found.")
	}
	e.frames = e.frames[:whileBodyIndex]
	return nil
}

func (e *Engine) executeContinueChoice() error {
	choiceFrameIndex, choiceNodeIndex, ok, err := e.findChoiceContinueContext()
	if err != nil {
		return err
	}
	if !ok {
		return scriptlangerr.New("ENGINE_CHOICE_CONTINUE_TARGET_MISSING", "No target <choice> node found for option <continue>.")
	}
	e.frames = e.frames[:choiceFrameIndex+1]
	e.frames[choiceFrameIndex].NodeIndex = choiceNodeIndex
	return nil
}

func (e *Engine) findChoiceContinueContext() (int, int, bool, error) {
	for frameIndex := len(e.frames) - 1; frameIndex >= 0; frameIndex-- {
		frame := e.frames[frameIndex]
		if frame.NodeIndex == 0 {
			continue
		}
		_, group, err := e.lookupGroup(frame.GroupID)
		if err != nil {
			return 0, 0, false, err
		}
		choiceNodeIndex := frame.NodeIndex - 1
		if choiceNodeIndex >= len(group.Nodes) || group.Nodes[choiceNodeIndex].Kind != ir.NodeChoice {
			continue
		}

		optionGroupIDs := map[string]bool{}
		for _, opt := range group.Nodes[choiceNodeIndex].ChoiceOptions {
			optionGroupIDs[opt.GroupID] = true
		}

		hasDeepOptionFrame := false
		for deepIndex := frameIndex + 1; deepIndex < len(e.frames); deepIndex++ {
			if optionGroupIDs[e.frames[deepIndex].GroupID] {
				hasDeepOptionFrame = true
				break
			}
		}
		if hasDeepOptionFrame {
			return frameIndex, choiceNodeIndex, true, nil
		}
	}
	return 0, 0, false, nil
}

func (e *Engine) findNearestWhileBodyFrameIndex() (int, bool) {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if e.frames[i].Completion == CompletionWhileBody {
			return i, true
		}
	}
	return 0, false
}

func (e *Engine) endExecution() {
	e.ended = true
	e.frames = nil
}

// sortedKeys returns m's keys in lexicographic order, for deterministic map
// iteration.
func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortedStringKeys is sortedKeys for a map[string]string, used to walk
// ref_bindings in the same order the original's BTreeMap would.
func sortedStringKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

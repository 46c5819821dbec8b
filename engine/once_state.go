package engine

import "github.com/scriptlang/scriptlang/ir"

// isChoiceOptionVisible evaluates an option's guard and once-filter, ported
// from once_state.rs's is_choice_option_visible.
func (e *Engine) isChoiceOptionVisible(scriptName string, option ir.ChoiceOption) (bool, error) {
	if option.HasWhen {
		ok, err := e.evalBoolean(option.WhenExpr)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	if !option.Once {
		return true, nil
	}
	return !e.hasOnceState(scriptName, "option:"+option.ID), nil
}

func (e *Engine) hasOnceState(scriptName, key string) bool {
	set, ok := e.onceStateByScript[scriptName]
	if !ok {
		return false
	}
	return set[key]
}

func (e *Engine) markOnceState(scriptName, key string) {
	set, ok := e.onceStateByScript[scriptName]
	if !ok {
		set = map[string]bool{}
		e.onceStateByScript[scriptName] = set
	}
	set[key] = true
}

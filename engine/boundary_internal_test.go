package engine

import (
	"testing"

	"github.com/scriptlang/scriptlang/compiler"
	"github.com/scriptlang/scriptlang/internal/scriptlangerr"
)

// buildTestEngine mirrors engine_test.go's newEngine helper, kept separate
// since white-box tests here live in package engine (not engine_test) so
// they can reach into pendingBoundary directly.
func buildTestEngine(t *testing.T, files map[string]string) *Engine {
	t.Helper()
	bundle, err := compiler.CompileProjectBundle(files)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	eng, err := New(Options{
		Scripts:                bundle.Scripts,
		GlobalJSON:             bundle.GlobalJSON,
		DefsGlobalDeclarations: bundle.DefsGlobalDeclarations,
		DefsGlobalInitOrder:    bundle.DefsGlobalInitOrder,
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return eng
}

func assertInternalErrCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %q, got nil", code)
	}
	slErr, ok := err.(*scriptlangerr.Error)
	if !ok {
		t.Fatalf("error type = %T, want *scriptlangerr.Error", err)
	}
	if slErr.Code != code {
		t.Fatalf("error code = %q, want %q", slErr.Code, code)
	}
}

// TestChooseRejectsStaleFrameID mirrors frame_stack.rs's
// internal_state_error_paths_are_covered fixture: a choice boundary whose
// frame id no longer resolves on the stack (the frame it belonged to
// finished and popped out from under it) must fail Choose with
// ENGINE_CHOICE_FRAME_MISSING rather than act against whatever frame is
// currently on top.
func TestChooseRejectsStaleFrameID(t *testing.T) {
	t.Parallel()
	eng := buildTestEngine(t, map[string]string{
		"main.script.xml": `
<script name="main">
  <choice text="Pick">
    <option text="Only"><text>Got it.</text></option>
  </choice>
</script>
`,
	})
	if err := eng.Start("main", nil); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if _, err := eng.NextOutput(); err != nil {
		t.Fatalf("NextOutput error: %v", err)
	}

	eng.pendingBoundary.FrameID = 999_999

	assertInternalErrCode(t, eng.Choose(0), "ENGINE_CHOICE_FRAME_MISSING")
}

// TestSubmitInputRejectsStaleFrameID is SubmitInput's counterpart to
// TestChooseRejectsStaleFrameID, matching frame_stack.rs's equivalent
// engine.submit_input(...) case against a stale frame_id: 999_999
// boundary. Before this guard existed, SubmitInput wrote into whatever
// frame happened to be on top instead of erroring.
func TestSubmitInputRejectsStaleFrameID(t *testing.T) {
	t.Parallel()
	eng := buildTestEngine(t, map[string]string{
		"main.script.xml": `
<script name="main">
  <var name="name" type="string">"Alex"</var>
  <input var="name" text="What should we call you?"/>
  <text>Hi, ${name}.</text>
</script>
`,
	})
	if err := eng.Start("main", nil); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if _, err := eng.NextOutput(); err != nil {
		t.Fatalf("NextOutput error: %v", err)
	}

	eng.pendingBoundary.FrameID = 999_999

	assertInternalErrCode(t, eng.SubmitInput("Sam"), "ENGINE_INPUT_FRAME_MISSING")
}

package engine_test

import (
	"testing"

	"github.com/scriptlang/scriptlang/compiler"
	"github.com/scriptlang/scriptlang/engine"
	"github.com/scriptlang/scriptlang/internal/scriptlangerr"
)

func newEngine(t *testing.T, files map[string]string) *engine.Engine {
	t.Helper()
	bundle, err := compiler.CompileProjectBundle(files)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	eng, err := engine.New(engine.Options{
		Scripts:                bundle.Scripts,
		GlobalJSON:             bundle.GlobalJSON,
		DefsGlobalDeclarations: bundle.DefsGlobalDeclarations,
		DefsGlobalInitOrder:    bundle.DefsGlobalInitOrder,
	})
	if err != nil {
		t.Fatalf("engine.New error: %v", err)
	}
	return eng
}

func assertErrCode(t *testing.T, err error, code string) {
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

func TestHelloTextThenEnd(t *testing.T) {
	t.Parallel()
	eng := newEngine(t, map[string]string{
		"main.script.xml": `<script name="main"><text>Hello, world.</text></script>`,
	})
	if err := eng.Start("main", nil); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	out, err := eng.NextOutput()
	if err != nil {
		t.Fatalf("NextOutput error: %v", err)
	}
	if out.Kind != engine.OutputText || out.Text != "Hello, world." {
		t.Fatalf("unexpected output: %+v", out)
	}

	out, err = eng.NextOutput()
	if err != nil {
		t.Fatalf("NextOutput error: %v", err)
	}
	if out.Kind != engine.OutputEnd {
		t.Fatalf("expected End, got %+v", out)
	}
}

func TestLinearChoiceAdvancesThroughChosenOption(t *testing.T) {
	t.Parallel()
	eng := newEngine(t, map[string]string{
		"main.script.xml": `
<script name="main">
  <choice text="Pick a path">
    <option text="Left"><text>You went left.</text></option>
    <option text="Right"><text>You went right.</text></option>
  </choice>
  <text>The end.</text>
</script>
`,
	})
	if err := eng.Start("main", nil); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	out, err := eng.NextOutput()
	if err != nil {
		t.Fatalf("NextOutput error: %v", err)
	}
	if out.Kind != engine.OutputChoices || len(out.Choices) != 2 {
		t.Fatalf("expected 2 choices, got %+v", out)
	}
	if out.Choices[1].Text != "Right" {
		t.Fatalf("unexpected second option text: %q", out.Choices[1].Text)
	}

	if err := eng.Choose(1); err != nil {
		t.Fatalf("Choose error: %v", err)
	}

	out, err = eng.NextOutput()
	if err != nil {
		t.Fatalf("NextOutput error: %v", err)
	}
	if out.Kind != engine.OutputText || out.Text != "You went right." {
		t.Fatalf("unexpected output: %+v", out)
	}

	out, err = eng.NextOutput()
	if err != nil {
		t.Fatalf("NextOutput error: %v", err)
	}
	if out.Kind != engine.OutputText || out.Text != "The end." {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestInputSubmitEmptyFallsBackToDefault(t *testing.T) {
	t.Parallel()
	eng := newEngine(t, map[string]string{
		"main.script.xml": `
<script name="main">
  <var name="name" type="string">"Alex"</var>
  <input var="name" text="What should we call you?"/>
  <text>Hello, ${name}.</text>
</script>
`,
	})
	if err := eng.Start("main", nil); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	out, err := eng.NextOutput()
	if err != nil {
		t.Fatalf("NextOutput error: %v", err)
	}
	if out.Kind != engine.OutputInput || out.DefaultText != "Alex" {
		t.Fatalf("unexpected input boundary: %+v", out)
	}

	if err := eng.SubmitInput(""); err != nil {
		t.Fatalf("SubmitInput error: %v", err)
	}

	out, err = eng.NextOutput()
	if err != nil {
		t.Fatalf("NextOutput error: %v", err)
	}
	if out.Kind != engine.OutputText || out.Text != "Hello, Alex." {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestSnapshotMidChoiceRoundTripsThroughResume(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"main.script.xml": `
<script name="main">
  <choice text="Pick">
    <option text="A"><text>Got A.</text></option>
  </choice>
</script>
`,
	}
	eng := newEngine(t, files)
	if err := eng.Start("main", nil); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if _, err := eng.NextOutput(); err != nil {
		t.Fatalf("NextOutput error: %v", err)
	}

	snap, err := eng.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}

	resumed := newEngine(t, files)
	if err := resumed.Resume(snap); err != nil {
		t.Fatalf("Resume error: %v", err)
	}
	if err := resumed.Choose(0); err != nil {
		t.Fatalf("Choose error: %v", err)
	}
	out, err := resumed.NextOutput()
	if err != nil {
		t.Fatalf("NextOutput error: %v", err)
	}
	if out.Kind != engine.OutputText || out.Text != "Got A." {
		t.Fatalf("unexpected output after resume: %+v", out)
	}
}

func TestResumeRejectsSnapshotReferencingMissingGroup(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"main.script.xml": `
<script name="main">
  <choice text="Pick">
    <option text="A"><text>Got A.</text></option>
  </choice>
</script>
`,
	}
	eng := newEngine(t, files)
	if err := eng.Start("main", nil); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if _, err := eng.NextOutput(); err != nil {
		t.Fatalf("NextOutput error: %v", err)
	}
	snap, err := eng.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	snap.RuntimeFrames[len(snap.RuntimeFrames)-1].GroupID = "missing-group"

	resumed := newEngine(t, files)
	err = resumed.Resume(snap)
	assertErrCode(t, err, "ENGINE_GROUP_NOT_FOUND")
}

func TestOnceOptionIsHiddenAfterBeingChosen(t *testing.T) {
	t.Parallel()
	eng := newEngine(t, map[string]string{
		"main.script.xml": `
<script name="main">
  <var name="loop" type="int">0</var>
  <while when="loop &lt; 2">
    <choice text="Pick">
      <option text="Once only" once="true"><text>Seen once.</text></option>
      <option text="Always"><text>Seen always.</text></option>
    </choice>
    <code>loop = loop + 1;</code>
  </while>
</script>
`,
	})
	if err := eng.Start("main", nil); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	out, err := eng.NextOutput()
	if err != nil {
		t.Fatalf("NextOutput error: %v", err)
	}
	if len(out.Choices) != 2 {
		t.Fatalf("expected 2 options on first pass, got %+v", out.Choices)
	}
	if err := eng.Choose(0); err != nil {
		t.Fatalf("Choose error: %v", err)
	}
	if _, err := eng.NextOutput(); err != nil {
		t.Fatalf("NextOutput error: %v", err)
	}

	out, err = eng.NextOutput()
	if err != nil {
		t.Fatalf("NextOutput error: %v", err)
	}
	if len(out.Choices) != 1 || out.Choices[0].Text != "Always" {
		t.Fatalf("expected only the non-once option on second pass, got %+v", out.Choices)
	}
}

func TestFallOverOptionIsOfferedWhenNoRegularOptionIsVisible(t *testing.T) {
	t.Parallel()
	eng := newEngine(t, map[string]string{
		"main.script.xml": `
<script name="main">
  <var name="flag" type="boolean">false</var>
  <choice text="Pick">
    <option text="Conditional" when="flag"><text>Conditional taken.</text></option>
    <option text="Nothing else" fall_over="true"><text>Fell over.</text></option>
  </choice>
</script>
`,
	})
	if err := eng.Start("main", nil); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	out, err := eng.NextOutput()
	if err != nil {
		t.Fatalf("NextOutput error: %v", err)
	}
	if len(out.Choices) != 1 || out.Choices[0].Text != "Nothing else" {
		t.Fatalf("expected fall_over option alone, got %+v", out.Choices)
	}
	if err := eng.Choose(0); err != nil {
		t.Fatalf("Choose error: %v", err)
	}
	out, err = eng.NextOutput()
	if err != nil {
		t.Fatalf("NextOutput error: %v", err)
	}
	if out.Text != "Fell over." {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestCallWritesBackRefArgumentOnReturn(t *testing.T) {
	t.Parallel()
	eng := newEngine(t, map[string]string{
		"main.script.xml": `
<script name="main">
  <var name="hp" type="int">1</var>
  <call script="heal" args="5, ref:hp"/>
  <text>HP is ${hp}.</text>
</script>
`,
		"heal.script.xml": `
<script name="heal" args="int:amount, ref:int:out">
  <code>out = out + amount;</code>
  <return/>
</script>
`,
	})
	if err := eng.Start("main", nil); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	out, err := eng.NextOutput()
	if err != nil {
		t.Fatalf("NextOutput error: %v", err)
	}
	if out.Kind != engine.OutputText || out.Text != "HP is 6." {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestReturnToUnknownArgIsRejected(t *testing.T) {
	t.Parallel()
	eng := newEngine(t, map[string]string{
		"main.script.xml": `<script name="main"><return script="next" args="1, 2"/></script>`,
		"next.script.xml": `<script name="next" args="int:x"><text>${x}</text></script>`,
	})
	if err := eng.Start("main", nil); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	_, err := eng.NextOutput()
	assertErrCode(t, err, "ENGINE_RETURN_ARG_UNKNOWN")
}

func TestCallThenReturnResumesCallerAtCorrectNode(t *testing.T) {
	t.Parallel()
	eng := newEngine(t, map[string]string{
		"main.script.xml": `
<script name="main">
  <call script="helper"/>
  <text>First.</text>
  <call script="helper"/>
  <text>Second.</text>
</script>
`,
		"helper.script.xml": `<script name="helper"><return/></script>`,
	})
	if err := eng.Start("main", nil); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	out, err := eng.NextOutput()
	if err != nil {
		t.Fatalf("NextOutput error: %v", err)
	}
	if out.Text != "First." {
		t.Fatalf("unexpected output after first call/return: %+v", out)
	}

	out, err = eng.NextOutput()
	if err != nil {
		t.Fatalf("NextOutput error: %v", err)
	}
	if out.Text != "Second." {
		t.Fatalf("unexpected output after second call/return: %+v", out)
	}

	out, err = eng.NextOutput()
	if err != nil {
		t.Fatalf("NextOutput error: %v", err)
	}
	if out.Kind != engine.OutputEnd {
		t.Fatalf("expected End, got %+v", out)
	}
}

func TestChooseRejectsOutOfRangeIndex(t *testing.T) {
	t.Parallel()
	eng := newEngine(t, map[string]string{
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

	err := eng.Choose(1)
	assertErrCode(t, err, "ENGINE_CHOICE_INDEX")
}

func TestSnapshotAfterEndRoundTrips(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"main.script.xml": `<script name="main"><text>Done.</text></script>`,
	}
	eng := newEngine(t, files)
	if err := eng.Start("main", nil); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if _, err := eng.NextOutput(); err != nil {
		t.Fatalf("NextOutput error: %v", err)
	}
	out, err := eng.NextOutput()
	if err != nil {
		t.Fatalf("NextOutput error: %v", err)
	}
	if out.Kind != engine.OutputEnd {
		t.Fatalf("expected End, got %+v", out)
	}

	snap, err := eng.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	if !snap.Ended {
		t.Fatalf("expected an Ended snapshot, got %+v", snap)
	}

	resumed := newEngine(t, files)
	if err := resumed.Resume(snap); err != nil {
		t.Fatalf("Resume error: %v", err)
	}
	out, err = resumed.NextOutput()
	if err != nil {
		t.Fatalf("NextOutput error: %v", err)
	}
	if out.Kind != engine.OutputEnd {
		t.Fatalf("expected End after resume, got %+v", out)
	}
}

func TestNamespacedDefsGlobalIsReadableByQualifiedAndShortName(t *testing.T) {
	t.Parallel()
	eng := newEngine(t, map[string]string{
		"shared.defs.xml": `<defs name="shared"><var name="hp" type="int">9</var></defs>`,
		"main.script.xml": `
<!-- include: shared.defs.xml -->
<script name="main"><text>${hp} / ${shared.hp}</text></script>
`,
	})
	if err := eng.Start("main", nil); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	out, err := eng.NextOutput()
	if err != nil {
		t.Fatalf("NextOutput error: %v", err)
	}
	if out.Text != "9 / 9" {
		t.Fatalf("unexpected output: %q", out.Text)
	}
}

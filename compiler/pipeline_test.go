package compiler

import (
	"testing"

	"github.com/scriptlang/scriptlang/internal/scriptlangerr"
)

func TestCompileBasicScriptProject(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"main.script.xml": `
<script name="main">
  <text>Hello</text>
  <choice text="Pick">
    <option text="A"><text>A1</text></option>
  </choice>
</script>
`,
	}
	bundle, err := CompileProjectBundle(files)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	main, ok := bundle.Scripts["main"]
	if !ok {
		t.Fatal("expected script \"main\"")
	}
	if len(main.Groups) == 0 {
		t.Fatal("expected at least one group")
	}
}

func TestCompileBundleRejectsUnsupportedSourceExtension(t *testing.T) {
	t.Parallel()
	_, err := CompileProjectBundle(map[string]string{"x.txt": "bad"})
	assertErrCode(t, err, "SOURCE_KIND_UNSUPPORTED")
}

func TestCompileBundleRejectsMissingIncludeAndCycle(t *testing.T) {
	t.Parallel()
	missing := map[string]string{
		"main.script.xml": `
<!-- include: missing.script.xml -->
<script name="main"></script>
`,
	}
	_, err := CompileProjectBundle(missing)
	assertErrCode(t, err, "INCLUDE_NOT_FOUND")

	cycle := map[string]string{
		"a.script.xml": `
<!-- include: b.script.xml -->
<script name="a"></script>
`,
		"b.script.xml": `
<!-- include: a.script.xml -->
<script name="b"></script>
`,
	}
	_, err = CompileProjectBundle(cycle)
	assertErrCode(t, err, "INCLUDE_CYCLE")
}

func TestCompileBundleRejectsInvalidRootAndDuplicateScriptNames(t *testing.T) {
	t.Parallel()
	invalidRoot := map[string]string{"main.script.xml": `<defs name="x"></defs>`}
	_, err := CompileProjectBundle(invalidRoot)
	assertErrCode(t, err, "XML_ROOT_INVALID")

	duplicate := map[string]string{
		"a.script.xml": `<script name="main"></script>`,
		"b.script.xml": `<script name="main"></script>`,
	}
	_, err = CompileProjectBundle(duplicate)
	assertErrCode(t, err, "SCRIPT_NAME_DUPLICATE")
}

func TestCompileBundleExposesDefsGlobalsWithShortAliasRules(t *testing.T) {
	t.Parallel()
	unique := map[string]string{
		"shared.defs.xml": `<defs name="shared"><var name="hp" type="int">1</var></defs>`,
		"main.script.xml": `
<!-- include: shared.defs.xml -->
<script name="main"><text>${hp + shared.hp}</text></script>
`,
	}
	bundle, err := CompileProjectBundle(unique)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	main := bundle.Scripts["main"]
	if _, ok := main.VisibleDefsGlobals["shared.hp"]; !ok {
		t.Fatal("expected qualified alias \"shared.hp\" to be visible")
	}
	if _, ok := main.VisibleDefsGlobals["hp"]; !ok {
		t.Fatal("expected unambiguous short alias \"hp\" to be visible")
	}

	conflict := map[string]string{
		"a.defs.xml": `<defs name="a"><var name="hp" type="int">1</var></defs>`,
		"b.defs.xml": `<defs name="b"><var name="hp" type="int">2</var></defs>`,
		"main.script.xml": `
<!-- include: a.defs.xml -->
<!-- include: b.defs.xml -->
<script name="main"><text>${a.hp + b.hp}</text></script>
`,
	}
	conflictBundle, err := CompileProjectBundle(conflict)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	conflictMain := conflictBundle.Scripts["main"]
	if _, ok := conflictMain.VisibleDefsGlobals["a.hp"]; !ok {
		t.Fatal("expected \"a.hp\" to be visible")
	}
	if _, ok := conflictMain.VisibleDefsGlobals["b.hp"]; !ok {
		t.Fatal("expected \"b.hp\" to be visible")
	}
	if _, ok := conflictMain.VisibleDefsGlobals["hp"]; ok {
		t.Fatal("ambiguous short alias \"hp\" must not be exposed")
	}
}

func TestExpandLoopMacro(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"main.script.xml": `
<script name="main">
  <loop times="3"><text>Tick</text></loop>
</script>
`,
	}
	bundle, err := CompileProjectBundle(files)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	main := bundle.Scripts["main"]
	root := main.Groups[main.RootGroupID]
	if len(root.Nodes) != 2 {
		t.Fatalf("expected 2 nodes (synthesized var + while), got %d", len(root.Nodes))
	}
}

func TestCompileScriptArgsAndCallReturnAttributes(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"main.script.xml": `<script name="main"><call script="next" args="1, ref:hp"/></script>`,
		"next.script.xml": `<script name="next" args="int:x, ref:int:out"><return script="main" args="x"/></script>`,
	}
	bundle, err := CompileProjectBundle(files)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	next := bundle.Scripts["next"]
	if len(next.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(next.Params))
	}
	if next.Params[0].Name != "x" || next.Params[0].IsRef {
		t.Fatalf("unexpected first param: %+v", next.Params[0])
	}
	if next.Params[1].Name != "out" || !next.Params[1].IsRef {
		t.Fatalf("unexpected second param: %+v", next.Params[1])
	}

	main := bundle.Scripts["main"]
	root := main.Groups[main.RootGroupID]
	if len(root.Nodes) != 1 || root.Nodes[0].CallTarget != "next" {
		t.Fatalf("expected a single call node targeting %q, got %+v", "next", root.Nodes)
	}
	if len(root.Nodes[0].CallArgs) != 2 || !root.Nodes[0].CallArgs[1].IsRef {
		t.Fatalf("expected second call arg to be ref, got %+v", root.Nodes[0].CallArgs)
	}
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

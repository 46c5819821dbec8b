package evalscript

import (
	"testing"

	"github.com/scriptlang/scriptlang/value"
)

// fakeHost is a minimal in-memory Host for testing expression evaluation in
// isolation from the engine's frame stack.
type fakeHost struct {
	vars  map[string]value.SlValue
	funcs map[string]func([]value.SlValue) (value.SlValue, error)
}

func newFakeHost() *fakeHost {
	return &fakeHost{vars: map[string]value.SlValue{}, funcs: map[string]func([]value.SlValue) (value.SlValue, error){}}
}

func (h *fakeHost) GetVariable(name string) (value.SlValue, error) {
	v, ok := h.vars[name]
	if !ok {
		return value.SlValue{}, newNotFound(name)
	}
	return v, nil
}

func (h *fakeHost) SetVariable(name string, v value.SlValue) error {
	h.vars[name] = v
	return nil
}

func (h *fakeHost) CallFunction(name string, args []value.SlValue) (value.SlValue, error) {
	fn, ok := h.funcs[name]
	if !ok {
		return value.SlValue{}, newNotFound(name)
	}
	return fn(args)
}

func newNotFound(name string) error {
	return &notFoundErr{name: name}
}

type notFoundErr struct{ name string }

func (e *notFoundErr) Error() string { return "not found: " + e.name }

func evalString(t *testing.T, src string, host Host) value.SlValue {
	t.Helper()
	parser, err := NewParser(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	expr, err := parser.ParseExpr()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	v, err := Eval(expr, host)
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	return v
}

func TestArithmeticAndStringConcat(t *testing.T) {
	t.Parallel()
	host := newFakeHost()
	tests := []struct {
		name string
		src  string
		want value.SlValue
	}{
		{"addition", "1 + 2", value.NewNumber(3)},
		{"precedence", "1 + 2 * 3", value.NewNumber(7)},
		{"parens", "(1 + 2) * 3", value.NewNumber(9)},
		{"string concat", `"a" + "b"`, value.NewString("ab")},
		{"string plus number", `"hp: " + 5`, value.NewString("hp: 5")},
		{"modulo", "7 % 3", value.NewNumber(1)},
		{"unary minus", "-(3 + 2)", value.NewNumber(-5)},
		{"not", "!false", value.NewBool(true)},
		{"and short circuit", "false && (1/0 == 0)", value.NewBool(false)},
		{"or short circuit", "true || (1/0 == 0)", value.NewBool(true)},
		{"comparison", "3 < 5", value.NewBool(true)},
		{"equality", "3 == 3", value.NewBool(true)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := evalString(t, tc.src, host)
			if !value.Equal(got, tc.want) {
				t.Fatalf("eval(%q) = %#v, want %#v", tc.src, got, tc.want)
			}
		})
	}
}

func TestIndexAndFieldAccess(t *testing.T) {
	t.Parallel()
	host := newFakeHost()
	host.vars["items"] = value.NewArray([]value.SlValue{value.NewString("a"), value.NewString("b")})
	host.vars["hero"] = value.NewMap(map[string]value.SlValue{"hp": value.NewNumber(10)})

	if got := evalString(t, "items[1]", host); got.AsString() != "b" {
		t.Fatalf("items[1] = %v, want b", got)
	}
	if got := evalString(t, "hero.hp", host); got.AsNumber() != 10 {
		t.Fatalf("hero.hp = %v, want 10", got)
	}
}

func TestAssignmentMutatesScope(t *testing.T) {
	t.Parallel()
	host := newFakeHost()
	host.vars["hp"] = value.NewNumber(10)

	parser, err := NewParser("hp = hp - 1")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	prog, err := parser.ParseProgram()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if err := ExecProgram(prog, host); err != nil {
		t.Fatalf("exec error: %v", err)
	}
	if host.vars["hp"].AsNumber() != 9 {
		t.Fatalf("hp = %v, want 9", host.vars["hp"])
	}
}

func TestAssignmentMutatesNestedArrayInPlace(t *testing.T) {
	t.Parallel()
	host := newFakeHost()
	host.vars["items"] = value.NewArray([]value.SlValue{value.NewNumber(1), value.NewNumber(2)})

	parser, err := NewParser("items[0] = 99")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	prog, err := parser.ParseProgram()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if err := ExecProgram(prog, host); err != nil {
		t.Fatalf("exec error: %v", err)
	}
	if host.vars["items"].AsArray()[0].AsNumber() != 99 {
		t.Fatalf("items[0] = %v, want 99", host.vars["items"].AsArray()[0])
	}
}

func TestFunctionCallDispatchesToHost(t *testing.T) {
	t.Parallel()
	host := newFakeHost()
	host.funcs["double"] = func(args []value.SlValue) (value.SlValue, error) {
		return value.NewNumber(args[0].AsNumber() * 2), nil
	}
	got := evalString(t, "double(21)", host)
	if got.AsNumber() != 42 {
		t.Fatalf("double(21) = %v, want 42", got)
	}
}

func TestInterpolate(t *testing.T) {
	t.Parallel()
	host := newFakeHost()
	host.vars["name"] = value.NewString("Guild")
	host.vars["hp"] = value.NewNumber(10)

	got, err := Interpolate("Hello ${name}, hp=${hp - 1}", host)
	if err != nil {
		t.Fatalf("interpolate error: %v", err)
	}
	want := "Hello Guild, hp=9"
	if got != want {
		t.Fatalf("Interpolate() = %q, want %q", got, want)
	}
}

func TestRewriteSymbolsAppliesBoundaryChecks(t *testing.T) {
	t.Parallel()
	mapping := map[string]string{
		"shared.hp": "__sl_defs_ns_shared__hp",
	}
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"direct reference rewritten", "shared.hp + 1", "__sl_defs_ns_shared__hp + 1"},
		{"field access on unrelated object left alone", "x.shared.hp", "x.shared.hp"},
		{"substring identifier left alone", "other_shared.hp_value", "other_shared.hp_value"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := RewriteSymbols(tc.src, mapping); got != tc.want {
				t.Fatalf("RewriteSymbols(%q) = %q, want %q", tc.src, got, tc.want)
			}
		})
	}
}

package value

import (
	"testing"

	"github.com/scriptlang/scriptlang/internal/scriptlangerr"
)

func TestDefaultValueFromType(t *testing.T) {
	t.Parallel()
	hp := Primitive("int")
	name := Primitive("string")
	flag := Primitive("boolean")
	tags := Array(Primitive("string"))
	scores := Map(Primitive("float"))
	stats := Object("Stats", []ObjectField{{Name: "hp", Type: hp}, {Name: "name", Type: name}})

	tests := []struct {
		name string
		typ  ScriptType
		want SlValue
	}{
		{"int default", hp, NewNumber(0)},
		{"string default", name, NewString("")},
		{"boolean default", flag, NewBool(false)},
		{"array default", tags, NewArray(nil)},
		{"map default", scores, NewMap(nil)},
		{"object default", stats, NewMap(map[string]SlValue{"hp": NewNumber(0), "name": NewString("")})},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DefaultValue(tc.typ); !Equal(got, tc.want) {
				t.Fatalf("DefaultValue() = %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestIsCompatible(t *testing.T) {
	t.Parallel()
	stats := Object("Stats", []ObjectField{
		{Name: "hp", Type: Primitive("int")},
		{Name: "name", Type: Primitive("string")},
	})

	tests := []struct {
		name string
		typ  ScriptType
		v    SlValue
		want bool
	}{
		{"number for int", Primitive("int"), NewNumber(5), true},
		{"number for float", Primitive("float"), NewNumber(5.5), true},
		{"string for int fails", Primitive("int"), NewString("5"), false},
		{"array of compatible elements", Array(Primitive("string")), NewArray([]SlValue{NewString("a")}), true},
		{"array with incompatible element", Array(Primitive("string")), NewArray([]SlValue{NewNumber(1)}), false},
		{
			"object exact field match",
			stats,
			NewMap(map[string]SlValue{"hp": NewNumber(1), "name": NewString("x")}),
			true,
		},
		{
			"object rejects extra field",
			stats,
			NewMap(map[string]SlValue{"hp": NewNumber(1), "name": NewString("x"), "extra": NewBool(true)}),
			false,
		},
		{
			"object rejects missing field",
			stats,
			NewMap(map[string]SlValue{"hp": NewNumber(1)}),
			false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsCompatible(tc.typ, tc.v); got != tc.want {
				t.Fatalf("IsCompatible() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCoerceReturnsEngineTypeMismatch(t *testing.T) {
	t.Parallel()
	_, err := Coerce(Primitive("int"), NewString("x"), "variable \"hp\"")
	if err == nil {
		t.Fatal("expected an error")
	}
	slErr, ok := err.(*scriptlangerr.Error)
	if !ok {
		t.Fatalf("error type = %T, want *scriptlangerr.Error", err)
	}
	if slErr.Code != "ENGINE_TYPE_MISMATCH" {
		t.Fatalf("error code = %q, want ENGINE_TYPE_MISMATCH", slErr.Code)
	}
}

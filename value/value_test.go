package value

import "testing"

func TestConstructorsAndAccessors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		value   SlValue
		isKind  func(SlValue) bool
		truthy  bool
	}{
		{"bool true", NewBool(true), SlValue.IsBool, true},
		{"bool false", NewBool(false), SlValue.IsBool, false},
		{"number nonzero", NewNumber(3), SlValue.IsNumber, true},
		{"number zero", NewNumber(0), SlValue.IsNumber, false},
		{"string nonempty", NewString("hi"), SlValue.IsString, true},
		{"string empty", NewString(""), SlValue.IsString, false},
		{"array nonempty", NewArray([]SlValue{NewNumber(1)}), SlValue.IsArray, true},
		{"array empty", NewArray(nil), SlValue.IsArray, false},
		{"map nonempty", NewMap(map[string]SlValue{"a": NewBool(true)}), SlValue.IsMap, true},
		{"map empty", NewMap(nil), SlValue.IsMap, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if !tc.isKind(tc.value) {
				t.Fatalf("expected kind check to pass for %v", tc.value)
			}
			if got := tc.value.IsTruthy(); got != tc.truthy {
				t.Fatalf("IsTruthy() = %v, want %v", got, tc.truthy)
			}
		})
	}
}

func TestDisplayString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		value SlValue
		want  string
	}{
		{"bool true", NewBool(true), "true"},
		{"bool false", NewBool(false), "false"},
		{"integral number", NewNumber(4), "4"},
		{"fractional number", NewNumber(4.25), "4.25"},
		{"string", NewString("hello"), "hello"},
		{"array", NewArray([]SlValue{NewNumber(1), NewString("x")}), "[1, x]"},
		{"map sorted by key", NewMap(map[string]SlValue{"b": NewNumber(2), "a": NewNumber(1)}), "{a: 1, b: 2}"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.value.DisplayString(); got != tc.want {
				t.Fatalf("DisplayString() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDeepCopyIsIndependent(t *testing.T) {
	t.Parallel()
	original := NewArray([]SlValue{NewMap(map[string]SlValue{"hp": NewNumber(10)})})
	copied := DeepCopy(original)

	copiedInner := copied.AsArray()[0].AsMap()
	copiedInner["hp"] = NewNumber(999)

	originalInner := original.AsArray()[0].AsMap()
	if originalInner["hp"].AsNumber() != 10 {
		t.Fatalf("mutating the copy leaked into the original: got %v", originalInner["hp"].AsNumber())
	}
}

func TestEqual(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		a, b SlValue
		want bool
	}{
		{"equal numbers", NewNumber(1), NewNumber(1), true},
		{"different numbers", NewNumber(1), NewNumber(2), false},
		{"number vs string never equal", NewNumber(1), NewString("1"), false},
		{"equal arrays", NewArray([]SlValue{NewNumber(1)}), NewArray([]SlValue{NewNumber(1)}), true},
		{"different length arrays", NewArray([]SlValue{NewNumber(1)}), NewArray(nil), false},
		{"equal maps", NewMap(map[string]SlValue{"a": NewBool(true)}), NewMap(map[string]SlValue{"a": NewBool(true)}), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Equal(tc.a, tc.b); got != tc.want {
				t.Fatalf("Equal() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFromJSONNullCoercesToStringNull(t *testing.T) {
	t.Parallel()
	got := FromJSON(nil)
	if !got.IsString() || got.AsString() != "null" {
		t.Fatalf("FromJSON(nil) = %#v, want string \"null\"", got)
	}

	nested := FromJSON(map[string]any{"x": nil, "y": []any{nil, 1.0}})
	m := nested.AsMap()
	if m["x"].AsString() != "null" {
		t.Fatalf("nested null did not coerce: %#v", m["x"])
	}
	if m["y"].AsArray()[0].AsString() != "null" {
		t.Fatalf("array null did not coerce: %#v", m["y"])
	}
}

func TestToJSONRoundTripsNonNullValues(t *testing.T) {
	t.Parallel()
	original := NewMap(map[string]SlValue{
		"name": NewString("Traveler"),
		"hp":   NewNumber(10),
		"tags": NewArray([]SlValue{NewString("a"), NewString("b")}),
	})
	back := FromJSON(ToJSON(original))
	if !Equal(original, back) {
		t.Fatalf("round trip mismatch: %#v vs %#v", original, back)
	}
}

package value

import (
	"encoding/json"
	"sort"

	"github.com/scriptlang/scriptlang/internal/scriptlangerr"
)

// TypeKind tags the variant held by a ScriptType.
type TypeKind int

const (
	TypeKindPrimitive TypeKind = iota
	TypeKindArray
	TypeKindMap
	TypeKindObject
)

// ObjectField is one entry of an Object type's ordered field list. Field
// order is preserved (not just membership) because default-value synthesis
// and wire encoding both want a stable, author-declared order.
type ObjectField struct {
	Name string
	Type ScriptType
}

// ScriptType is the declared-shape sum type: Primitive{name}, Array{element},
// Map{value} (keys are always string), Object{type_name, fields}.
type ScriptType struct {
	kind          TypeKind
	primitiveName string // "int" | "float" | "number" | "string" | "boolean"
	element       *ScriptType
	mapValue      *ScriptType
	objectName    string
	fields        []ObjectField
}

func Primitive(name string) ScriptType {
	return ScriptType{kind: TypeKindPrimitive, primitiveName: name}
}

func Array(element ScriptType) ScriptType {
	return ScriptType{kind: TypeKindArray, element: &element}
}

func Map(valueType ScriptType) ScriptType {
	return ScriptType{kind: TypeKindMap, mapValue: &valueType}
}

func Object(typeName string, fields []ObjectField) ScriptType {
	return ScriptType{kind: TypeKindObject, objectName: typeName, fields: fields}
}

func (t ScriptType) Kind() TypeKind { return t.kind }

func (t ScriptType) PrimitiveName() string { return t.primitiveName }

func (t ScriptType) ElementType() ScriptType {
	if t.element == nil {
		return ScriptType{}
	}
	return *t.element
}

func (t ScriptType) MapValueType() ScriptType {
	if t.mapValue == nil {
		return ScriptType{}
	}
	return *t.mapValue
}

func (t ScriptType) ObjectName() string { return t.objectName }

func (t ScriptType) Fields() []ObjectField { return t.fields }

// scriptTypeWire is ScriptType's JSON shape, letting a snapshot persist and
// restore a frame's declared var types (including nested array/map/object
// shapes) without needing a separate type-name grammar.
type scriptTypeWire struct {
	Kind          string           `json:"kind"`
	PrimitiveName string           `json:"primitiveName,omitempty"`
	Element       *scriptTypeWire  `json:"element,omitempty"`
	MapValue      *scriptTypeWire  `json:"mapValue,omitempty"`
	ObjectName    string           `json:"objectName,omitempty"`
	Fields        []objectFieldWire `json:"fields,omitempty"`
}

type objectFieldWire struct {
	Name string         `json:"name"`
	Type scriptTypeWire `json:"type"`
}

func toScriptTypeWire(t ScriptType) scriptTypeWire {
	switch t.kind {
	case TypeKindArray:
		element := toScriptTypeWire(t.ElementType())
		return scriptTypeWire{Kind: "array", Element: &element}
	case TypeKindMap:
		mapValue := toScriptTypeWire(t.MapValueType())
		return scriptTypeWire{Kind: "map", MapValue: &mapValue}
	case TypeKindObject:
		fields := make([]objectFieldWire, len(t.fields))
		for i, f := range t.fields {
			fields[i] = objectFieldWire{Name: f.Name, Type: toScriptTypeWire(f.Type)}
		}
		return scriptTypeWire{Kind: "object", ObjectName: t.objectName, Fields: fields}
	default:
		return scriptTypeWire{Kind: "primitive", PrimitiveName: t.primitiveName}
	}
}

func fromScriptTypeWire(w scriptTypeWire) ScriptType {
	switch w.Kind {
	case "array":
		if w.Element == nil {
			return Array(ScriptType{})
		}
		element := fromScriptTypeWire(*w.Element)
		return Array(element)
	case "map":
		if w.MapValue == nil {
			return Map(ScriptType{})
		}
		return Map(fromScriptTypeWire(*w.MapValue))
	case "object":
		fields := make([]ObjectField, len(w.Fields))
		for i, f := range w.Fields {
			fields[i] = ObjectField{Name: f.Name, Type: fromScriptTypeWire(f.Type)}
		}
		return Object(w.ObjectName, fields)
	default:
		return Primitive(w.PrimitiveName)
	}
}

func (t ScriptType) MarshalJSON() ([]byte, error) {
	return json.Marshal(toScriptTypeWire(t))
}

func (t *ScriptType) UnmarshalJSON(data []byte) error {
	var w scriptTypeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*t = fromScriptTypeWire(w)
	return nil
}

// isNumberPrimitive reports whether a primitive name is number-compatible at
// runtime: int and float are both backed by SlValue's single Number kind.
func isNumberPrimitive(name string) bool {
	return name == "int" || name == "float" || name == "number"
}

// DefaultValue synthesizes the zero value for a declared type: number -> 0,
// string -> "", boolean -> false, array/map -> empty, object -> recursively
// defaulted map of its fields, per spec §3.
func DefaultValue(t ScriptType) SlValue {
	switch t.kind {
	case TypeKindPrimitive:
		switch {
		case isNumberPrimitive(t.primitiveName):
			return NewNumber(0)
		case t.primitiveName == "string":
			return NewString("")
		case t.primitiveName == "boolean":
			return NewBool(false)
		default:
			return NewString("")
		}
	case TypeKindArray:
		return NewArray(nil)
	case TypeKindMap:
		return NewMap(nil)
	case TypeKindObject:
		out := make(map[string]SlValue, len(t.fields))
		for _, f := range t.fields {
			out[f.Name] = DefaultValue(f.Type)
		}
		return NewMap(out)
	default:
		return NewString("")
	}
}

// IsCompatible checks whether v may be assigned to a variable/parameter/field
// declared with type t. Object compatibility is strict: the value's map must
// have exactly the declared field set (extra fields fail too, not only
// missing ones), matching sl-core's value.rs semantics.
func IsCompatible(t ScriptType, v SlValue) bool {
	switch t.kind {
	case TypeKindPrimitive:
		switch {
		case isNumberPrimitive(t.primitiveName):
			return v.IsNumber()
		case t.primitiveName == "string":
			return v.IsString()
		case t.primitiveName == "boolean":
			return v.IsBool()
		default:
			return false
		}
	case TypeKindArray:
		if !v.IsArray() {
			return false
		}
		elemType := t.ElementType()
		for _, elem := range v.AsArray() {
			if !IsCompatible(elemType, elem) {
				return false
			}
		}
		return true
	case TypeKindMap:
		if !v.IsMap() {
			return false
		}
		valueType := t.MapValueType()
		for _, elem := range v.AsMap() {
			if !IsCompatible(valueType, elem) {
				return false
			}
		}
		return true
	case TypeKindObject:
		if !v.IsMap() {
			return false
		}
		m := v.AsMap()
		if len(m) != len(t.fields) {
			return false
		}
		for _, f := range t.fields {
			fv, ok := m[f.Name]
			if !ok || !IsCompatible(f.Type, fv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// FieldNamesSorted returns an Object type's field names sorted
// lexicographically, not in declared order (Fields keeps declared order).
func (t ScriptType) FieldNamesSorted() []string {
	names := make([]string, len(t.fields))
	for i, f := range t.fields {
		names[i] = f.Name
	}
	sort.Strings(names)
	return names
}

// Coerce validates v against t and returns it unchanged on success, or an
// ENGINE_TYPE_MISMATCH error — the single checkpoint every assignment
// (var initializer, call argument, return binding) funnels through per
// spec §4.3 ("A declared variable's type pins the post-evaluation coercion").
func Coerce(t ScriptType, v SlValue, what string) (SlValue, error) {
	if !IsCompatible(t, v) {
		return SlValue{}, scriptlangerr.Newf("ENGINE_TYPE_MISMATCH",
			"%s expected type compatible with a %s value but got a %s value", what, describeType(t), v.Kind())
	}
	return v, nil
}

func describeType(t ScriptType) string {
	switch t.kind {
	case TypeKindPrimitive:
		return t.primitiveName
	case TypeKindArray:
		return describeType(t.ElementType()) + "[]"
	case TypeKindMap:
		return "#{" + describeType(t.MapValueType()) + "}"
	case TypeKindObject:
		return t.objectName
	default:
		return "unknown"
	}
}

package evalscript

import (
	"math"
	"strings"

	"github.com/scriptlang/scriptlang/internal/scriptlangerr"
	"github.com/scriptlang/scriptlang/value"
)

// Host is the bridge the evaluator calls back into for scope reads/writes
// and function dispatch. The engine implements Host over its current frame
// chain (walking up to the nearest script_root frame), defs-globals, and
// JSON-globals, per spec §4.3's bridging contract.
type Host interface {
	GetVariable(name string) (value.SlValue, error)
	SetVariable(name string, v value.SlValue) error
	CallFunction(name string, args []value.SlValue) (value.SlValue, error)
}

// Eval evaluates a single expression against host.
func Eval(e Expr, host Host) (value.SlValue, error) {
	switch n := e.(type) {
	case *NumberLiteral:
		return validateNumber(n.Value)
	case *StringLiteral:
		return value.NewString(n.Value), nil
	case *BoolLiteral:
		return value.NewBool(n.Value), nil
	case *Identifier:
		return host.GetVariable(n.Name)
	case *ArrayLiteral:
		elems := make([]value.SlValue, len(n.Elements))
		for i, el := range n.Elements {
			v, err := Eval(el, host)
			if err != nil {
				return value.SlValue{}, err
			}
			elems[i] = v
		}
		return value.NewArray(elems), nil
	case *MapLiteral:
		entries := make(map[string]value.SlValue, len(n.Entries))
		for _, entry := range n.Entries {
			v, err := Eval(entry.Value, host)
			if err != nil {
				return value.SlValue{}, err
			}
			entries[entry.Key] = v
		}
		return value.NewMap(entries), nil
	case *UnaryExpr:
		return evalUnary(n, host)
	case *BinaryExpr:
		return evalBinary(n, host)
	case *IndexExpr:
		return evalIndex(n, host)
	case *FieldAccess:
		return evalFieldAccess(n, host)
	case *CallExpr:
		return evalCall(n, host)
	case *AssignExpr:
		return evalAssign(n, host)
	default:
		return value.SlValue{}, scriptlangerr.New("ENGINE_VALUE_UNSUPPORTED", "unsupported expression node")
	}
}

// ExecProgram runs a <code> block's statements in order, discarding each
// statement's result (assignments and bare calls are the only statement
// forms the sublanguage needs).
func ExecProgram(prog *Program, host Host) error {
	for _, stmt := range prog.Statements {
		if _, err := Eval(stmt, host); err != nil {
			return err
		}
	}
	return nil
}

// validateNumber rejects NaN/Inf, which cross the JSON/wire boundary as
// ENGINE_VALUE_UNSUPPORTED since they have no JSON representation (spec §7
// lists the code without specifying its trigger; this is the original's
// documented cause, carried over as a supplemented behavior).
func validateNumber(n float64) (value.SlValue, error) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return value.SlValue{}, scriptlangerr.New("ENGINE_VALUE_UNSUPPORTED", "NaN and infinite numbers have no wire representation")
	}
	return value.NewNumber(n), nil
}

func evalUnary(n *UnaryExpr, host Host) (value.SlValue, error) {
	operand, err := Eval(n.Operand, host)
	if err != nil {
		return value.SlValue{}, err
	}
	switch n.Op {
	case TokNot:
		return value.NewBool(!operand.IsTruthy()), nil
	case TokMinus:
		if !operand.IsNumber() {
			return value.SlValue{}, scriptlangerr.New("ENGINE_VALUE_UNSUPPORTED", "unary - requires a number operand")
		}
		return validateNumber(-operand.AsNumber())
	default:
		return value.SlValue{}, scriptlangerr.New("ENGINE_VALUE_UNSUPPORTED", "unsupported unary operator")
	}
}

func evalBinary(n *BinaryExpr, host Host) (value.SlValue, error) {
	// && and || short-circuit, so the right operand is only evaluated when
	// it can affect the result.
	if n.Op == TokAnd {
		left, err := Eval(n.Left, host)
		if err != nil {
			return value.SlValue{}, err
		}
		if !left.IsTruthy() {
			return value.NewBool(false), nil
		}
		right, err := Eval(n.Right, host)
		if err != nil {
			return value.SlValue{}, err
		}
		return value.NewBool(right.IsTruthy()), nil
	}
	if n.Op == TokOr {
		left, err := Eval(n.Left, host)
		if err != nil {
			return value.SlValue{}, err
		}
		if left.IsTruthy() {
			return value.NewBool(true), nil
		}
		right, err := Eval(n.Right, host)
		if err != nil {
			return value.SlValue{}, err
		}
		return value.NewBool(right.IsTruthy()), nil
	}

	left, err := Eval(n.Left, host)
	if err != nil {
		return value.SlValue{}, err
	}
	right, err := Eval(n.Right, host)
	if err != nil {
		return value.SlValue{}, err
	}

	switch n.Op {
	case TokPlus:
		if left.IsString() || right.IsString() {
			return value.NewString(left.DisplayString() + right.DisplayString()), nil
		}
		if left.IsNumber() && right.IsNumber() {
			return validateNumber(left.AsNumber() + right.AsNumber())
		}
		return value.SlValue{}, scriptlangerr.New("ENGINE_VALUE_UNSUPPORTED", "+ requires two numbers or at least one string operand")
	case TokMinus, TokStar, TokSlash, TokPercent:
		if !left.IsNumber() || !right.IsNumber() {
			return value.SlValue{}, scriptlangerr.New("ENGINE_VALUE_UNSUPPORTED", "arithmetic operators require number operands")
		}
		l, r := left.AsNumber(), right.AsNumber()
		switch n.Op {
		case TokMinus:
			return validateNumber(l - r)
		case TokStar:
			return validateNumber(l * r)
		case TokSlash:
			if r == 0 {
				return value.SlValue{}, scriptlangerr.New("ENGINE_VALUE_UNSUPPORTED", "division by zero")
			}
			return validateNumber(l / r)
		case TokPercent:
			if r == 0 {
				return value.SlValue{}, scriptlangerr.New("ENGINE_VALUE_UNSUPPORTED", "modulo by zero")
			}
			return validateNumber(math.Mod(l, r))
		}
	case TokEqual:
		return value.NewBool(value.Equal(left, right)), nil
	case TokNotEqual:
		return value.NewBool(!value.Equal(left, right)), nil
	case TokLT, TokGT, TokLTE, TokGTE:
		return compareOrdered(n.Op, left, right)
	}
	return value.SlValue{}, scriptlangerr.New("ENGINE_VALUE_UNSUPPORTED", "unsupported binary operator")
}

func compareOrdered(op TokenType, left, right value.SlValue) (value.SlValue, error) {
	var cmp int
	switch {
	case left.IsNumber() && right.IsNumber():
		l, r := left.AsNumber(), right.AsNumber()
		switch {
		case l < r:
			cmp = -1
		case l > r:
			cmp = 1
		default:
			cmp = 0
		}
	case left.IsString() && right.IsString():
		cmp = strings.Compare(left.AsString(), right.AsString())
	default:
		return value.SlValue{}, scriptlangerr.New("ENGINE_VALUE_UNSUPPORTED", "comparison operators require two numbers or two strings")
	}
	switch op {
	case TokLT:
		return value.NewBool(cmp < 0), nil
	case TokGT:
		return value.NewBool(cmp > 0), nil
	case TokLTE:
		return value.NewBool(cmp <= 0), nil
	case TokGTE:
		return value.NewBool(cmp >= 0), nil
	}
	return value.SlValue{}, scriptlangerr.New("ENGINE_VALUE_UNSUPPORTED", "unsupported comparison operator")
}

func evalIndex(n *IndexExpr, host Host) (value.SlValue, error) {
	obj, err := Eval(n.Object, host)
	if err != nil {
		return value.SlValue{}, err
	}
	idx, err := Eval(n.Index, host)
	if err != nil {
		return value.SlValue{}, err
	}
	switch {
	case obj.IsArray():
		if !idx.IsNumber() {
			return value.SlValue{}, scriptlangerr.New("ENGINE_VALUE_UNSUPPORTED", "array index must be a number")
		}
		arr := obj.AsArray()
		i := int(idx.AsNumber())
		if i < 0 || i >= len(arr) {
			return value.SlValue{}, scriptlangerr.Newf("ENGINE_VALUE_UNSUPPORTED", "array index %d out of range (len %d)", i, len(arr))
		}
		return arr[i], nil
	case obj.IsMap():
		if !idx.IsString() {
			return value.SlValue{}, scriptlangerr.New("ENGINE_VALUE_UNSUPPORTED", "map index must be a string")
		}
		v, ok := obj.AsMap()[idx.AsString()]
		if !ok {
			return value.SlValue{}, scriptlangerr.Newf("ENGINE_VALUE_UNSUPPORTED", "map has no key %q", idx.AsString())
		}
		return v, nil
	default:
		return value.SlValue{}, scriptlangerr.New("ENGINE_VALUE_UNSUPPORTED", "indexing requires an array or map")
	}
}

func evalFieldAccess(n *FieldAccess, host Host) (value.SlValue, error) {
	obj, err := Eval(n.Object, host)
	if err != nil {
		return value.SlValue{}, err
	}
	if !obj.IsMap() {
		return value.SlValue{}, scriptlangerr.Newf("ENGINE_VALUE_UNSUPPORTED", "field access %q requires a map/object value", n.Field)
	}
	v, ok := obj.AsMap()[n.Field]
	if !ok {
		return value.SlValue{}, scriptlangerr.Newf("ENGINE_VALUE_UNSUPPORTED", "object has no field %q", n.Field)
	}
	return v, nil
}

func evalCall(n *CallExpr, host Host) (value.SlValue, error) {
	ident, ok := n.Callee.(*Identifier)
	if !ok {
		return value.SlValue{}, scriptlangerr.New("ENGINE_VALUE_UNSUPPORTED", "call target must be a function name")
	}
	args := make([]value.SlValue, len(n.Args))
	for i, a := range n.Args {
		v, err := Eval(a, host)
		if err != nil {
			return value.SlValue{}, err
		}
		args[i] = v
	}
	return host.CallFunction(ident.Name, args)
}

func evalAssign(n *AssignExpr, host Host) (value.SlValue, error) {
	v, err := Eval(n.Value, host)
	if err != nil {
		return value.SlValue{}, err
	}
	switch target := n.Target.(type) {
	case *Identifier:
		if err := host.SetVariable(target.Name, v); err != nil {
			return value.SlValue{}, err
		}
		return v, nil
	case *IndexExpr:
		obj, err := Eval(target.Object, host)
		if err != nil {
			return value.SlValue{}, err
		}
		idx, err := Eval(target.Index, host)
		if err != nil {
			return value.SlValue{}, err
		}
		switch {
		case obj.IsArray():
			if !idx.IsNumber() {
				return value.SlValue{}, scriptlangerr.New("ENGINE_VALUE_UNSUPPORTED", "array index must be a number")
			}
			arr := obj.AsArray()
			i := int(idx.AsNumber())
			if i < 0 || i >= len(arr) {
				return value.SlValue{}, scriptlangerr.Newf("ENGINE_VALUE_UNSUPPORTED", "array index %d out of range (len %d)", i, len(arr))
			}
			arr[i] = v
			return v, nil
		case obj.IsMap():
			if !idx.IsString() {
				return value.SlValue{}, scriptlangerr.New("ENGINE_VALUE_UNSUPPORTED", "map index must be a string")
			}
			obj.AsMap()[idx.AsString()] = v
			return v, nil
		default:
			return value.SlValue{}, scriptlangerr.New("ENGINE_VALUE_UNSUPPORTED", "indexed assignment requires an array or map")
		}
	case *FieldAccess:
		obj, err := Eval(target.Object, host)
		if err != nil {
			return value.SlValue{}, err
		}
		if !obj.IsMap() {
			return value.SlValue{}, scriptlangerr.Newf("ENGINE_VALUE_UNSUPPORTED", "field assignment %q requires a map/object value", target.Field)
		}
		obj.AsMap()[target.Field] = v
		return v, nil
	default:
		return value.SlValue{}, scriptlangerr.New("ENGINE_VALUE_UNSUPPORTED", "unsupported assignment target")
	}
}

// Interpolate splits a template string on ${expr} segments, evaluates each
// expression against host, and joins the result with DisplayString
// conversions for non-placeholder runs taken verbatim, per spec §4.4.6.
func Interpolate(text string, host Host) (string, error) {
	return InterpolateWithRewrite(text, host, nil)
}

// InterpolateWithRewrite behaves like Interpolate, but passes each extracted
// ${...} expression body through rewrite before parsing it. A caller whose
// host resolves namespace-qualified names (host.shared.hp) uses this to run
// RewriteSymbols over just the expression text, never the surrounding
// narrative prose, so a literal dotted name in plain text is never touched.
func InterpolateWithRewrite(text string, host Host, rewrite func(string) string) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(text) {
		start := strings.Index(text[i:], "${")
		if start < 0 {
			b.WriteString(text[i:])
			break
		}
		start += i
		b.WriteString(text[i:start])

		depth := 1
		j := start + 2
		for j < len(text) && depth > 0 {
			switch text[j] {
			case '{':
				depth++
			case '}':
				depth--
			}
			if depth == 0 {
				break
			}
			j++
		}
		if depth != 0 {
			return "", scriptlangerr.New("ENGINE_VALUE_UNSUPPORTED", "unterminated ${...} interpolation placeholder")
		}

		exprSrc := text[start+2 : j]
		if rewrite != nil {
			exprSrc = rewrite(exprSrc)
		}
		parser, err := NewParser(exprSrc)
		if err != nil {
			return "", err
		}
		expr, err := parser.ParseExpr()
		if err != nil {
			return "", err
		}
		v, err := Eval(expr, host)
		if err != nil {
			return "", err
		}
		b.WriteString(v.DisplayString())
		i = j + 1
	}
	return b.String(), nil
}

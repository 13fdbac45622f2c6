package vm

import (
	"cmp"
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Primitive operations
// ---------------------------------------------------------------------------

var errDivideByZero = errors.New("division by zero")

func typeError(op string, a, b Value) error {
	return fmt.Errorf("operator %s not defined on %s and %s", op, a.Kind, b.Kind)
}

// binary applies a listing operator. Integer operands stay integers; a real
// on either side promotes the operation to reals.
func binary(op string, a, b Value) (Value, error) {
	switch op {
	case "&&":
		return Bool(a.Truthy() && b.Truthy()), nil
	case "||":
		return Bool(a.Truthy() || b.Truthy()), nil
	case "==", "!=", "<", "<=", ">", ">=":
		return compare(op, a, b)
	}

	if op == "+" && a.Kind == KindString && b.Kind == KindString {
		return Str(a.Str + b.Str), nil
	}
	if !a.IsNumber() || !b.IsNumber() {
		return Value{}, typeError(op, a, b)
	}

	if a.Kind == KindInt && b.Kind == KindInt {
		x, y := a.Int, b.Int
		switch op {
		case "+":
			return Int(x + y), nil
		case "-":
			return Int(x - y), nil
		case "*":
			return Int(x * y), nil
		case "/":
			if y == 0 {
				return Value{}, errDivideByZero
			}
			return Int(x / y), nil
		case "%":
			if y == 0 {
				return Value{}, errDivideByZero
			}
			return Int(x % y), nil
		}
		return Value{}, typeError(op, a, b)
	}

	x, y := a.Float(), b.Float()
	switch op {
	case "+":
		return Real(x + y), nil
	case "-":
		return Real(x - y), nil
	case "*":
		return Real(x * y), nil
	case "/":
		if y == 0 {
			return Value{}, errDivideByZero
		}
		return Real(x / y), nil
	}
	return Value{}, typeError(op, a, b)
}

func compare(op string, a, b Value) (Value, error) {
	var c int
	switch {
	case a.Kind == KindInt && b.Kind == KindInt:
		c = cmp.Compare(a.Int, b.Int)
	case a.IsNumber() && b.IsNumber():
		c = cmp.Compare(a.Float(), b.Float())
	case a.Kind == KindString && b.Kind == KindString:
		c = cmp.Compare(a.Str, b.Str)
	default:
		switch op {
		case "==":
			return Bool(false), nil
		case "!=":
			return Bool(true), nil
		}
		return Value{}, typeError(op, a, b)
	}

	switch op {
	case "==":
		return Bool(c == 0), nil
	case "!=":
		return Bool(c != 0), nil
	case "<":
		return Bool(c < 0), nil
	case "<=":
		return Bool(c <= 0), nil
	case ">":
		return Bool(c > 0), nil
	}
	return Bool(c >= 0), nil
}

func negate(v Value) (Value, error) {
	switch v.Kind {
	case KindInt:
		return Int(-v.Int), nil
	case KindReal:
		return Real(-v.Real), nil
	}
	return Value{}, fmt.Errorf("cannot negate %s", v.Kind)
}

package vm

import (
	"strconv"

	"github.com/chazu/pasc/compiler"
)

// ---------------------------------------------------------------------------
// Value: Dynamically typed runtime value
// ---------------------------------------------------------------------------

// Kind identifies the representation held by a Value.
type Kind uint8

const (
	KindInt Kind = iota
	KindReal
	KindString
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "integer"
	case KindReal:
		return "real"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	}
	return "unknown"
}

// Value is a runtime value. Booleans are integers (1 and 0), as in the
// listing. The zero Value is the integer 0, which is also what an unassigned
// variable reads as.
type Value struct {
	Kind Kind
	Int  int64
	Real float64
	Str  string
	Arr  map[int64]Value
}

// Int returns an integer value.
func Int(v int64) Value { return Value{Kind: KindInt, Int: v} }

// Real returns a real value.
func Real(v float64) Value { return Value{Kind: KindReal, Real: v} }

// Str returns a string value.
func Str(v string) Value { return Value{Kind: KindString, Str: v} }

// Bool returns 1 for true and 0 for false.
func Bool(b bool) Value {
	if b {
		return Int(1)
	}
	return Int(0)
}

func newArray() Value { return Value{Kind: KindArray, Arr: make(map[int64]Value)} }

// clone returns v with its own copy of any array storage. Arrays are
// values, so assignment must not alias them.
func (v Value) clone() Value {
	if v.Kind != KindArray {
		return v
	}
	arr := make(map[int64]Value, len(v.Arr))
	for i, e := range v.Arr {
		arr[i] = e.clone()
	}
	v.Arr = arr
	return v
}

// IsNumber reports whether v is an integer or a real.
func (v Value) IsNumber() bool { return v.Kind == KindInt || v.Kind == KindReal }

// Float returns v as a float64. Only meaningful for numbers.
func (v Value) Float() float64 {
	if v.Kind == KindReal {
		return v.Real
	}
	return float64(v.Int)
}

// Truthy reports whether v counts as true in a conditional jump.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindInt:
		return v.Int != 0
	case KindReal:
		return v.Real != 0
	case KindString:
		return v.Str != ""
	}
	return len(v.Arr) > 0
}

// String renders v the way write prints it.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindReal:
		return compiler.FormatReal(v.Real)
	case KindString:
		return v.Str
	}
	return "<array>"
}

// parseInput converts one token of input to the most specific value it
// spells: an integer, then a real, otherwise the raw text.
func parseInput(tok string) Value {
	if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return Int(n)
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return Real(f)
	}
	return Str(tok)
}

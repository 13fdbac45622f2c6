package compiler

import "strings"

// SymbolKind classifies a declared name.
type SymbolKind int

const (
	SymVariable SymbolKind = iota
	SymConstant
	SymProcedure
	SymFunction
	SymParameter
	SymType
)

var symbolKindNames = [...]string{
	SymVariable:  "variable",
	SymConstant:  "constant",
	SymProcedure: "procedure",
	SymFunction:  "function",
	SymParameter: "parameter",
	SymType:      "type",
}

func (k SymbolKind) String() string {
	if int(k) < len(symbolKindNames) {
		return symbolKindNames[k]
	}
	return "unknown"
}

// Symbol is the compile-time record of a declared name. Type is the
// resolved type name, or "" when it could not be resolved.
type Symbol struct {
	Name       string
	Kind       SymbolKind
	Type       string
	Params     []*Param
	ReturnType string
	Pos        Position

	// result marks the implicit variable a function assigns its return
	// value through. Calls look past it to reach the function itself.
	result bool
}

// Scope maps lowercase names to symbols and links to its enclosing scope.
// A scope lives only as long as the analysis call that created it.
type Scope struct {
	Name    string
	symbols map[string]*Symbol
	outer   *Scope
}

// NewScope creates a scope nested in outer (nil for the global scope).
func NewScope(name string, outer *Scope) *Scope {
	return &Scope{
		Name:    name,
		symbols: make(map[string]*Symbol),
		outer:   outer,
	}
}

// newGlobalScope returns the root scope seeded with the built-in types and
// I/O procedures.
func newGlobalScope() *Scope {
	s := NewScope("global", nil)
	for _, t := range []string{TypeInteger, TypeReal, TypeBoolean, TypeChar, TypeString} {
		s.set(&Symbol{Name: t, Kind: SymType, Type: t})
	}
	for _, p := range []string{"writeln", "write", "readln", "read"} {
		s.set(&Symbol{Name: p, Kind: SymProcedure})
	}
	return s
}

// Define adds sym to this scope. It reports false, leaving the scope
// unchanged, if the name is already declared here. Outer declarations may
// be shadowed.
func (s *Scope) Define(sym *Symbol) bool {
	key := strings.ToLower(sym.Name)
	if _, exists := s.symbols[key]; exists {
		return false
	}
	s.symbols[key] = sym
	return true
}

// set binds sym unconditionally, replacing any same-scope binding.
func (s *Scope) set(sym *Symbol) {
	s.symbols[strings.ToLower(sym.Name)] = sym
}

// Lookup searches this scope and then each enclosing scope.
func (s *Scope) Lookup(name string) (*Symbol, bool) {
	key := strings.ToLower(name)
	for sc := s; sc != nil; sc = sc.outer {
		if sym, ok := sc.symbols[key]; ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupLocal searches this scope only.
func (s *Scope) LookupLocal(name string) (*Symbol, bool) {
	sym, ok := s.symbols[strings.ToLower(name)]
	return sym, ok
}

// lookupCallable is Lookup but skips function result variables, so a
// function body can call itself recursively.
func (s *Scope) lookupCallable(name string) (*Symbol, bool) {
	key := strings.ToLower(name)
	for sc := s; sc != nil; sc = sc.outer {
		if sym, ok := sc.symbols[key]; ok && !sym.result {
			return sym, true
		}
	}
	return nil, false
}

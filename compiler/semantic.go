package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Semantic Analyzer: scope resolution and type checking
// ---------------------------------------------------------------------------

// Built-in type names.
const (
	TypeInteger = "integer"
	TypeReal    = "real"
	TypeBoolean = "boolean"
	TypeChar    = "char"
	TypeString  = "string"
	TypeRecord  = "record"

	arrayPrefix = "array of "
)

// Diagnostic is one semantic problem found during analysis.
type Diagnostic struct {
	Pos Position
	Msg string
}

func (d Diagnostic) String() string {
	return d.Msg
}

// SemanticError carries every diagnostic collected over a whole program,
// in discovery order.
type SemanticError struct {
	Diagnostics []Diagnostic
}

func (e *SemanticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = d.Msg
	}
	return strings.Join(msgs, "\n")
}

// SymbolInfo describes a user declaration for editor tooling.
type SymbolInfo struct {
	Name  string
	Kind  SymbolKind
	Type  string
	Scope string
	Pos   Position
}

// Analyzer validates a Program. It keeps going after a problem and reports
// everything at the end; an expression whose type cannot be determined has
// type "" and does not produce follow-on diagnostics.
type Analyzer struct {
	scope       *Scope
	diagnostics []Diagnostic
	declared    []SymbolInfo
}

// NewAnalyzer creates an analyzer with a fresh global scope.
func NewAnalyzer() *Analyzer {
	return &Analyzer{scope: newGlobalScope()}
}

// Diagnostics returns the diagnostics recorded so far.
func (s *Analyzer) Diagnostics() []Diagnostic {
	return s.diagnostics
}

// Declared returns every user declaration seen so far, in analysis order.
func (s *Analyzer) Declared() []SymbolInfo {
	return s.declared
}

func (s *Analyzer) errorAt(node Node, format string, args ...interface{}) {
	s.diagnostics = append(s.diagnostics, Diagnostic{Pos: node.Pos(), Msg: fmt.Sprintf(format, args...)})
}

// define adds sym to the current scope, recording it for tooling.
func (s *Analyzer) define(sym *Symbol) bool {
	if !s.scope.Define(sym) {
		return false
	}
	s.record(sym)
	return true
}

func (s *Analyzer) record(sym *Symbol) {
	s.declared = append(s.declared, SymbolInfo{
		Name:  sym.Name,
		Kind:  sym.Kind,
		Type:  sym.Type,
		Scope: s.scope.Name,
		Pos:   sym.Pos,
	})
}

// Analyze checks prog in two passes: first every top-level declaration is
// registered (so procedures and functions may reference each other by
// name), then each procedure and function body is checked in its own
// scope, and finally the main block. It returns a *SemanticError when any
// diagnostic was recorded.
func (s *Analyzer) Analyze(prog *Program) error {
	for _, d := range prog.Decls {
		s.declare(d)
	}
	for _, d := range prog.Decls {
		switch d := d.(type) {
		case *ProcDecl:
			s.analyzeProcBody(d.Name, d.Params, nil, d.Decls, d.Block)
		case *FuncDecl:
			s.analyzeProcBody(d.Name, d.Params, d, d.Decls, d.Block)
		}
	}
	s.analyzeBlock(prog.Block)

	if len(s.diagnostics) > 0 {
		return &SemanticError{Diagnostics: s.diagnostics}
	}
	return nil
}

// Analyze runs semantic analysis on prog with a fresh analyzer.
func Analyze(prog *Program) error {
	return NewAnalyzer().Analyze(prog)
}

// Symbols returns the declaration index of prog, collected by the same
// walk that type-checks it. Semantic errors do not stop the index from
// being built.
func Symbols(prog *Program) []SymbolInfo {
	a := NewAnalyzer()
	_ = a.Analyze(prog)
	return a.Declared()
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// declare registers a declaration in the current scope. For procedures and
// functions only the signature is registered; bodies are checked later.
func (s *Analyzer) declare(d Decl) {
	switch d := d.(type) {
	case *VarDecl:
		s.declareVars(d)

	case *ConstDecl:
		typ := s.analyzeExpr(d.Value)
		if !s.define(&Symbol{Name: d.Name, Kind: SymConstant, Type: typ, Pos: d.PosVal}) {
			s.errorAt(d, "Constant '%s' already declared in this scope", d.Name)
		}

	case *ProcDecl:
		s.checkRoutineName(d, d.Name)
		sym := &Symbol{Name: d.Name, Kind: SymProcedure, Params: d.Params, Pos: d.PosVal}
		if !s.define(sym) {
			s.errorAt(d, "Procedure '%s' already declared in this scope", d.Name)
		}

	case *FuncDecl:
		s.checkRoutineName(d, d.Name)
		ret := typeName(d.ReturnType)
		sym := &Symbol{Name: d.Name, Kind: SymFunction, Type: ret, Params: d.Params, ReturnType: ret, Pos: d.PosVal}
		if !s.define(sym) {
			s.errorAt(d, "Function '%s' already declared in this scope", d.Name)
		}

	case *Param:
		// Parameters overwrite rather than redeclare, so a parameter may
		// share its function's name.
		sym := &Symbol{Name: d.Name, Kind: SymParameter, Type: typeName(d.Type), Pos: d.PosVal}
		s.scope.set(sym)
		s.record(sym)

	default:
		panic(fmt.Sprintf("compiler: unhandled declaration %T", d))
	}
}

// checkRoutineName rejects procedure and function names that would clash
// with the program entry label.
func (s *Analyzer) checkRoutineName(d Decl, name string) {
	if strings.EqualFold(name, entryLabel) {
		s.errorAt(d, "'%s' is reserved for the main program", name)
	}
}

func (s *Analyzer) declareVars(d *VarDecl) {
	typ := typeName(d.Type)
	if missing, ok := s.resolveType(d.Type); !ok {
		s.errorAt(d.Type, "Undefined type: %s", missing)
		// Keep the names so later uses do not cascade into undefined-variable errors.
		typ = ""
	}

	for _, name := range d.Names {
		if !s.define(&Symbol{Name: name, Kind: SymVariable, Type: typ, Pos: d.PosVal}) {
			s.errorAt(d, "Variable '%s' already declared in this scope", name)
		}
	}
}

// analyzeProcBody checks a procedure or function body in a fresh scope
// chained to the current one. fn is nil for procedures. The scope is
// discarded when the body has been checked.
func (s *Analyzer) analyzeProcBody(name string, params []*Param, fn *FuncDecl, decls []Decl, block *Block) {
	outer := s.scope
	s.scope = NewScope(name, outer)
	defer func() { s.scope = outer }()

	if fn != nil {
		ret := typeName(fn.ReturnType)
		s.scope.set(&Symbol{Name: fn.Name, Kind: SymVariable, Type: ret, Pos: fn.PosVal, result: true})
	}
	for _, p := range params {
		s.declare(p)
	}
	for _, d := range decls {
		s.declare(d)
	}
	s.analyzeBlock(block)
}

// typeName resolves a type specification to its type name.
func typeName(t TypeSpec) string {
	switch t := t.(type) {
	case *SimpleType:
		return strings.ToLower(t.Name)
	case *ArrayType:
		return arrayPrefix + typeName(t.Elem)
	case *RecordType:
		return TypeRecord
	case nil:
		return ""
	default:
		panic(fmt.Sprintf("compiler: unhandled type spec %T", t))
	}
}

// resolveType reports whether t names a known type. Arrays are checked by
// their element type and records are always accepted. When t is unknown
// the offending type name is returned.
func (s *Analyzer) resolveType(t TypeSpec) (string, bool) {
	switch t := t.(type) {
	case *SimpleType:
		sym, ok := s.scope.Lookup(t.Name)
		return t.Name, ok && sym.Kind == SymType
	case *ArrayType:
		return s.resolveType(t.Elem)
	case *RecordType:
		return "", true
	default:
		panic(fmt.Sprintf("compiler: unhandled type spec %T", t))
	}
}

// elementType returns the element type of an array type name, or typ
// itself for a non-array type.
func elementType(typ string) string {
	return strings.TrimPrefix(typ, arrayPrefix)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (s *Analyzer) analyzeBlock(b *Block) {
	s.analyzeStatements(b.Stmts)
}

func (s *Analyzer) analyzeStatements(stmts []Stmt) {
	for _, st := range stmts {
		s.analyzeStmt(st)
	}
}

func (s *Analyzer) analyzeStmt(stmt Stmt) {
	switch st := stmt.(type) {
	case *Assignment:
		target := s.analyzeExpr(st.Target)
		value := s.analyzeExpr(st.Value)
		if target != "" && value != "" && !TypesCompatible(target, value) {
			s.errorAt(st, "Type mismatch in assignment: cannot assign %s to %s", value, target)
		}

	case *IfStmt:
		s.checkCondition(st.Cond)
		s.analyzeStmt(st.Then)
		if st.Else != nil {
			s.analyzeStmt(st.Else)
		}

	case *WhileStmt:
		s.checkCondition(st.Cond)
		s.analyzeStmt(st.Body)

	case *ForStmt:
		s.analyzeFor(st)

	case *RepeatStmt:
		s.analyzeStatements(st.Stmts)
		s.checkCondition(st.Cond)

	case *CompoundStmt:
		s.analyzeStatements(st.Stmts)

	case *ProcCall:
		sym, ok := s.scope.lookupCallable(st.Name)
		switch {
		case !ok:
			s.errorAt(st, "Undefined procedure: %s", st.Name)
		case sym.Kind != SymProcedure:
			s.errorAt(st, "'%s' is not a procedure", st.Name)
		}
		s.analyzeArgs(st.Args)

	case *WritelnStmt:
		s.analyzeArgs(st.Args)

	case *WriteStmt:
		s.analyzeArgs(st.Args)

	case *ReadlnStmt:
		for _, v := range st.Vars {
			s.analyzeExpr(v)
		}

	default:
		panic(fmt.Sprintf("compiler: unhandled statement %T", stmt))
	}
}

// checkCondition requires cond to be boolean.
func (s *Analyzer) checkCondition(cond Expr) {
	typ := s.analyzeExpr(cond)
	if typ != "" && typ != TypeBoolean {
		s.errorAt(cond, "Condition must be boolean, got %s", typ)
	}
}

func (s *Analyzer) analyzeFor(st *ForStmt) {
	sym, ok := s.scope.Lookup(st.Var)
	switch {
	case !ok:
		s.errorAt(st, "Undefined variable: %s", st.Var)
	case sym.Type != "" && sym.Type != TypeInteger:
		s.errorAt(st, "For loop variable must be integer, got %s", sym.Type)
	}

	if typ := s.analyzeExpr(st.Start); typ != "" && typ != TypeInteger {
		s.errorAt(st.Start, "For loop start value must be integer, got %s", typ)
	}
	if typ := s.analyzeExpr(st.End); typ != "" && typ != TypeInteger {
		s.errorAt(st.End, "For loop end value must be integer, got %s", typ)
	}

	s.analyzeStmt(st.Body)
}

// analyzeArgs checks call arguments for their own diagnostics. Arity and
// parameter types are not matched against the callee.
func (s *Analyzer) analyzeArgs(args []Expr) {
	for _, a := range args {
		s.analyzeExpr(a)
	}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// analyzeExpr returns the type of expr, or "" if it cannot be determined.
func (s *Analyzer) analyzeExpr(expr Expr) string {
	switch e := expr.(type) {
	case *IntegerLiteral:
		return TypeInteger
	case *RealLiteral:
		return TypeReal
	case *StringLiteral:
		return TypeString
	case *BooleanLiteral:
		return TypeBoolean

	case *Variable:
		return s.analyzeVariable(e)

	case *BinaryOp:
		left := s.analyzeExpr(e.Left)
		right := s.analyzeExpr(e.Right)
		return s.checkBinaryOp(e, left, right)

	case *UnaryOp:
		operand := s.analyzeExpr(e.Operand)
		switch e.Op {
		case "+", "-":
			if operand != "" && !isNumeric(operand) {
				s.errorAt(e, "Unary %s requires numeric operand", e.Op)
			}
			return operand
		case "not":
			if operand != "" && operand != TypeBoolean {
				s.errorAt(e, "NOT requires boolean operand")
			}
			return TypeBoolean
		}
		return ""

	case *FunctionCall:
		sym, ok := s.scope.lookupCallable(e.Name)
		switch {
		case !ok:
			s.errorAt(e, "Undefined function: %s", e.Name)
			s.analyzeArgs(e.Args)
			return ""
		case sym.Kind != SymFunction:
			s.errorAt(e, "'%s' is not a function", e.Name)
			s.analyzeArgs(e.Args)
			return ""
		}
		s.analyzeArgs(e.Args)
		return sym.ReturnType

	default:
		panic(fmt.Sprintf("compiler: unhandled expression %T", expr))
	}
}

func (s *Analyzer) analyzeVariable(v *Variable) string {
	sym, ok := s.scope.Lookup(v.Name)
	if !ok {
		s.errorAt(v, "Undefined variable: %s", v.Name)
		if v.Index != nil {
			s.analyzeExpr(v.Index)
		}
		return ""
	}

	switch {
	case v.Index != nil:
		if typ := s.analyzeExpr(v.Index); typ != "" && typ != TypeInteger {
			s.errorAt(v.Index, "Array index must be integer, got %s", typ)
		}
		return elementType(sym.Type)
	case v.Field != "":
		if sym.Type != "" && sym.Type != TypeRecord {
			s.errorAt(v, "'%s' is not a record", v.Name)
		}
		// Field names and types are not checked.
		return ""
	}
	return sym.Type
}

func (s *Analyzer) checkBinaryOp(e *BinaryOp, left, right string) string {
	if left == "" || right == "" {
		return ""
	}

	switch e.Op {
	case "+", "-", "*", "/":
		if isNumeric(left) && isNumeric(right) {
			if left == TypeReal || right == TypeReal {
				return TypeReal
			}
			return TypeInteger
		}
		s.errorAt(e, "Operator %s requires numeric operands", e.Op)
		return ""

	case "div", "mod":
		if left == TypeInteger && right == TypeInteger {
			return TypeInteger
		}
		s.errorAt(e, "Operator %s requires integer operands", e.Op)
		return ""

	case "=", "<>", "<", "<=", ">", ">=":
		if !TypesCompatible(left, right) {
			s.errorAt(e, "Cannot compare %s with %s", left, right)
		}
		return TypeBoolean

	case "and", "or":
		if left != TypeBoolean || right != TypeBoolean {
			s.errorAt(e, "Logical operator %s requires boolean operands", e.Op)
		}
		return TypeBoolean
	}

	return ""
}

func isNumeric(typ string) bool {
	return typ == TypeInteger || typ == TypeReal
}

// TypesCompatible reports whether a value of one type may be assigned to
// or compared with the other. Identical types are compatible, and integer
// and real convert freely in both directions.
func TypesCompatible(a, b string) bool {
	if a == b {
		return true
	}
	return isNumeric(a) && isNumeric(b)
}

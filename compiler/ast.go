package compiler

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for the Pascal subset
// ---------------------------------------------------------------------------
//
// Each node family (Decl, TypeSpec, Stmt, Expr) is closed: membership is
// granted by an unexported marker method, so only this package can add
// variants. Nodes are built once by the parser and never mutated afterwards.

// Node is the interface implemented by all AST nodes.
type Node interface {
	Pos() Position
	node() // marker method
}

// ---------------------------------------------------------------------------
// Program structure
// ---------------------------------------------------------------------------

// Program is the root of the tree.
type Program struct {
	PosVal Position
	Name   string
	Decls  []Decl
	Block  *Block
}

func (n *Program) Pos() Position { return n.PosVal }
func (n *Program) node()         {}

// Block is a begin...end statement sequence belonging to a program,
// procedure or function.
type Block struct {
	PosVal Position
	Stmts  []Stmt
}

func (n *Block) Pos() Position { return n.PosVal }
func (n *Block) node()         {}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// Decl is the interface for declaration nodes.
type Decl interface {
	Node
	decl() // marker method
}

// VarDecl declares one or more variables sharing a type: a, b: integer.
type VarDecl struct {
	PosVal Position
	Names  []string
	Type   TypeSpec
}

func (n *VarDecl) Pos() Position { return n.PosVal }
func (n *VarDecl) node()         {}
func (n *VarDecl) decl()         {}

// ConstDecl declares a named constant: max = 10.
type ConstDecl struct {
	PosVal Position
	Name   string
	Value  Expr
}

func (n *ConstDecl) Pos() Position { return n.PosVal }
func (n *ConstDecl) node()         {}
func (n *ConstDecl) decl()         {}

// ProcDecl declares a procedure.
type ProcDecl struct {
	PosVal Position
	Name   string
	Params []*Param
	Decls  []Decl // nested var/const declarations
	Block  *Block
}

func (n *ProcDecl) Pos() Position { return n.PosVal }
func (n *ProcDecl) node()         {}
func (n *ProcDecl) decl()         {}

// FuncDecl declares a function.
type FuncDecl struct {
	PosVal     Position
	Name       string
	Params     []*Param
	ReturnType TypeSpec
	Decls      []Decl
	Block      *Block
}

func (n *FuncDecl) Pos() Position { return n.PosVal }
func (n *FuncDecl) node()         {}
func (n *FuncDecl) decl()         {}

// Param is a single formal parameter. Grouped parameters (a, b: integer)
// are expanded to one Param each.
type Param struct {
	PosVal Position
	Name   string
	Type   TypeSpec
	IsVar  bool // passed by reference
}

func (n *Param) Pos() Position { return n.PosVal }
func (n *Param) node()         {}
func (n *Param) decl()         {}

// ---------------------------------------------------------------------------
// Type specifications
// ---------------------------------------------------------------------------

// TypeSpec is the interface for type specification nodes.
type TypeSpec interface {
	Node
	typeSpec() // marker method
}

// SimpleType names a built-in or user type.
type SimpleType struct {
	PosVal Position
	Name   string
}

func (n *SimpleType) Pos() Position { return n.PosVal }
func (n *SimpleType) node()         {}
func (n *SimpleType) typeSpec()     {}

// ArrayType is array[Index] of Elem. The index type is recorded but not
// used for bounds checking.
type ArrayType struct {
	PosVal Position
	Index  TypeSpec
	Elem   TypeSpec
}

func (n *ArrayType) Pos() Position { return n.PosVal }
func (n *ArrayType) node()         {}
func (n *ArrayType) typeSpec()     {}

// RecordType is record ... end. Fields are kept for tooling only.
type RecordType struct {
	PosVal Position
	Fields []*VarDecl
}

func (n *RecordType) Pos() Position { return n.PosVal }
func (n *RecordType) node()         {}
func (n *RecordType) typeSpec()     {}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// Assignment is target := value.
type Assignment struct {
	PosVal Position
	Target *Variable
	Value  Expr
}

func (n *Assignment) Pos() Position { return n.PosVal }
func (n *Assignment) node()         {}
func (n *Assignment) stmt()         {}

// IfStmt is if Cond then Then [else Else]. Else is nil when absent.
type IfStmt struct {
	PosVal Position
	Cond   Expr
	Then   Stmt
	Else   Stmt
}

func (n *IfStmt) Pos() Position { return n.PosVal }
func (n *IfStmt) node()         {}
func (n *IfStmt) stmt()         {}

// WhileStmt is while Cond do Body.
type WhileStmt struct {
	PosVal Position
	Cond   Expr
	Body   Stmt
}

func (n *WhileStmt) Pos() Position { return n.PosVal }
func (n *WhileStmt) node()         {}
func (n *WhileStmt) stmt()         {}

// ForStmt is for Var := Start to|downto End do Body.
type ForStmt struct {
	PosVal Position
	Var    string
	Start  Expr
	End    Expr
	Downto bool
	Body   Stmt
}

func (n *ForStmt) Pos() Position { return n.PosVal }
func (n *ForStmt) node()         {}
func (n *ForStmt) stmt()         {}

// RepeatStmt is repeat Stmts until Cond.
type RepeatStmt struct {
	PosVal Position
	Stmts  []Stmt
	Cond   Expr
}

func (n *RepeatStmt) Pos() Position { return n.PosVal }
func (n *RepeatStmt) node()         {}
func (n *RepeatStmt) stmt()         {}

// CompoundStmt is a nested begin...end. An empty CompoundStmt also stands
// for the empty statement.
type CompoundStmt struct {
	PosVal Position
	Stmts  []Stmt
}

func (n *CompoundStmt) Pos() Position { return n.PosVal }
func (n *CompoundStmt) node()         {}
func (n *CompoundStmt) stmt()         {}

// ProcCall is a procedure call used as a statement.
type ProcCall struct {
	PosVal Position
	Name   string
	Args   []Expr
}

func (n *ProcCall) Pos() Position { return n.PosVal }
func (n *ProcCall) node()         {}
func (n *ProcCall) stmt()         {}

// WritelnStmt is the built-in writeln(args).
type WritelnStmt struct {
	PosVal Position
	Args   []Expr
}

func (n *WritelnStmt) Pos() Position { return n.PosVal }
func (n *WritelnStmt) node()         {}
func (n *WritelnStmt) stmt()         {}

// WriteStmt is the built-in write(args).
type WriteStmt struct {
	PosVal Position
	Args   []Expr
}

func (n *WriteStmt) Pos() Position { return n.PosVal }
func (n *WriteStmt) node()         {}
func (n *WriteStmt) stmt()         {}

// ReadlnStmt is the built-in readln(vars).
type ReadlnStmt struct {
	PosVal Position
	Vars   []*Variable
}

func (n *ReadlnStmt) Pos() Position { return n.PosVal }
func (n *ReadlnStmt) node()         {}
func (n *ReadlnStmt) stmt()         {}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// BinaryOp applies Op to Left and Right. Op is the operator's source
// spelling, with keyword operators (div, mod, and, or) in lowercase.
type BinaryOp struct {
	PosVal Position
	Op     string
	Left   Expr
	Right  Expr
}

func (n *BinaryOp) Pos() Position { return n.PosVal }
func (n *BinaryOp) node()         {}
func (n *BinaryOp) expr()         {}

// UnaryOp applies +, - or not to Operand.
type UnaryOp struct {
	PosVal  Position
	Op      string
	Operand Expr
}

func (n *UnaryOp) Pos() Position { return n.PosVal }
func (n *UnaryOp) node()         {}
func (n *UnaryOp) expr()         {}

// IntegerLiteral represents an integer literal.
type IntegerLiteral struct {
	PosVal Position
	Value  int64
}

func (n *IntegerLiteral) Pos() Position { return n.PosVal }
func (n *IntegerLiteral) node()         {}
func (n *IntegerLiteral) expr()         {}

// RealLiteral represents a real literal.
type RealLiteral struct {
	PosVal Position
	Value  float64
}

func (n *RealLiteral) Pos() Position { return n.PosVal }
func (n *RealLiteral) node()         {}
func (n *RealLiteral) expr()         {}

// StringLiteral represents a string literal with escapes already applied.
type StringLiteral struct {
	PosVal Position
	Value  string
}

func (n *StringLiteral) Pos() Position { return n.PosVal }
func (n *StringLiteral) node()         {}
func (n *StringLiteral) expr()         {}

// BooleanLiteral represents true or false.
type BooleanLiteral struct {
	PosVal Position
	Value  bool
}

func (n *BooleanLiteral) Pos() Position { return n.PosVal }
func (n *BooleanLiteral) node()         {}
func (n *BooleanLiteral) expr()         {}

// Variable references a name, optionally indexed (a[i]) or selecting a
// record field (r.f). Index and Field are never both set.
type Variable struct {
	PosVal Position
	Name   string
	Index  Expr
	Field  string
}

func (n *Variable) Pos() Position { return n.PosVal }
func (n *Variable) node()         {}
func (n *Variable) expr()         {}

// FunctionCall is a call used as an expression.
type FunctionCall struct {
	PosVal Position
	Name   string
	Args   []Expr
}

func (n *FunctionCall) Pos() Position { return n.PosVal }
func (n *FunctionCall) node()         {}
func (n *FunctionCall) expr()         {}

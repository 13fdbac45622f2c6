package compiler

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Codegen: Lower the AST to three-address code
// ---------------------------------------------------------------------------

// StringData is one entry of the string table: a generated label and the
// literal text it stands for.
type StringData struct {
	Label string
	Value string
}

// Output is the result of code generation.
type Output struct {
	Instructions []string
	Strings      []StringData // in allocation order
}

// Lines returns the complete listing: the instructions followed by the
// string literal data section, if any.
func (o *Output) Lines() []string {
	lines := make([]string, 0, len(o.Instructions)+len(o.Strings)+1)
	lines = append(lines, o.Instructions...)
	if len(o.Strings) > 0 {
		lines = append(lines, "# String literal data")
		for _, s := range o.Strings {
			lines = append(lines, fmt.Sprintf("%s: .string \"%s\"", s.Label, escapeString(s.Value)))
		}
	}
	return lines
}

func (o *Output) String() string {
	return strings.Join(o.Lines(), "\n")
}

var stringEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\t", `\t`,
	"\r", `\r`,
)

// escapeString keeps each data line on one line and re-applies the escapes
// the lexer understands.
func escapeString(s string) string {
	return stringEscaper.Replace(s)
}

// entryLabel marks the start of the main program.
const entryLabel = "main"

// CodeGenerator lowers a Program to three-address instructions. All naming
// counters live here, so independent generators never interfere. The
// generator does not validate its input; run the Analyzer first.
type CodeGenerator struct {
	code     []string
	strings  []StringData
	temps    int
	labels   int
	nstrings int

	// procedure labels defined so far
	defined map[string]bool
}

// NewCodeGenerator creates a code generator with fresh counters.
func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{defined: make(map[string]bool)}
}

// Generate lowers prog. Counters are not reset between calls, so one
// generator must not be reused for a second program.
func (g *CodeGenerator) Generate(prog *Program) *Output {
	g.emit("# Program: %s", prog.Name)
	g.emit("# String literals")

	for _, d := range prog.Decls {
		g.genDecl(d)
	}

	g.emitRaw("")
	g.emitRaw("# Main program")
	g.defineLabel(entryLabel)
	g.emit("%s:", entryLabel)
	g.genStatements(prog.Block.Stmts)
	g.emitRaw("halt")
	g.emitRaw("")

	return &Output{Instructions: g.code, Strings: g.strings}
}

// Generate lowers prog with a fresh CodeGenerator.
func Generate(prog *Program) *Output {
	return NewCodeGenerator().Generate(prog)
}

func (g *CodeGenerator) emit(format string, args ...interface{}) {
	g.code = append(g.code, fmt.Sprintf(format, args...))
}

func (g *CodeGenerator) emitRaw(line string) {
	g.code = append(g.code, line)
}

func (g *CodeGenerator) newTemp() string {
	t := "t" + strconv.Itoa(g.temps)
	g.temps++
	return t
}

func (g *CodeGenerator) newLabel() string {
	l := "L" + strconv.Itoa(g.labels)
	g.labels++
	return l
}

// defineLabel claims a procedure-level label. Procedure names share one
// label namespace with each other and with main; the analyzer rejects
// duplicate declarations, so a clash here is a programming error.
func (g *CodeGenerator) defineLabel(name string) {
	key := strings.ToLower(name)
	if g.defined[key] {
		panic(fmt.Sprintf("compiler: label %q defined twice", name))
	}
	g.defined[key] = true
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

func (g *CodeGenerator) genDecl(d Decl) {
	switch d := d.(type) {
	case *VarDecl:
		for _, name := range d.Names {
			g.emit("# Variable: %s", name)
		}

	case *ConstDecl:
		v := g.genExpr(d.Value)
		g.emit("# Constant: %s = %s", d.Name, v)

	case *ProcDecl:
		g.genRoutine("Procedure", d.Name, d.Params, d.Decls, d.Block)

	case *FuncDecl:
		g.genRoutine("Function", d.Name, d.Params, d.Decls, d.Block)

	case *Param:
		g.emit("# Parameter %s", d.Name)

	default:
		panic(fmt.Sprintf("compiler: unhandled declaration %T", d))
	}
}

// genRoutine emits a procedure or function as a labeled block. Parameters
// are documented only; no calling convention is generated.
func (g *CodeGenerator) genRoutine(kind, name string, params []*Param, decls []Decl, block *Block) {
	g.defineLabel(name)

	g.emitRaw("")
	g.emit("# %s: %s", kind, name)
	g.emit("%s:", name)
	for _, p := range params {
		g.genDecl(p)
	}
	for _, d := range decls {
		g.genDecl(d)
	}
	g.genStatements(block.Stmts)
	g.emitRaw("return")
	g.emitRaw("")
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (g *CodeGenerator) genStatements(stmts []Stmt) {
	for _, st := range stmts {
		g.genStmt(st)
	}
}

func (g *CodeGenerator) genStmt(stmt Stmt) {
	switch st := stmt.(type) {
	case *Assignment:
		v := g.genExpr(st.Value)
		if st.Target.Index != nil {
			idx := g.genExpr(st.Target.Index)
			g.emit("%s[%s] = %s", st.Target.Name, idx, v)
		} else {
			g.emit("%s = %s", varName(st.Target), v)
		}

	case *IfStmt:
		cond := g.genExpr(st.Cond)
		elseLabel := g.newLabel()
		endLabel := g.newLabel()

		g.emit("if_false %s goto %s", cond, elseLabel)
		g.genStmt(st.Then)
		if st.Else != nil {
			g.emit("goto %s", endLabel)
			g.emit("%s:", elseLabel)
			g.genStmt(st.Else)
			g.emit("%s:", endLabel)
		} else {
			g.emit("%s:", elseLabel)
		}

	case *WhileStmt:
		start := g.newLabel()
		end := g.newLabel()

		g.emit("%s:", start)
		cond := g.genExpr(st.Cond)
		g.emit("if_false %s goto %s", cond, end)
		g.genStmt(st.Body)
		g.emit("goto %s", start)
		g.emit("%s:", end)

	case *ForStmt:
		g.genFor(st)

	case *RepeatStmt:
		start := g.newLabel()
		g.emit("%s:", start)
		g.genStatements(st.Stmts)
		cond := g.genExpr(st.Cond)
		g.emit("if_false %s goto %s", cond, start)

	case *CompoundStmt:
		g.genStatements(st.Stmts)

	case *ProcCall:
		args := g.genArgs(st.Args)
		if len(args) > 0 {
			g.emit("call %s, %s", st.Name, strings.Join(args, ", "))
		} else {
			g.emit("call %s", st.Name)
		}

	case *WritelnStmt:
		g.genWrites(st.Args)
		g.emitRaw("writeln")

	case *WriteStmt:
		g.genWrites(st.Args)

	case *ReadlnStmt:
		for _, v := range st.Vars {
			g.emit("read %s", varName(v))
		}
		g.emitRaw("readln")

	default:
		panic(fmt.Sprintf("compiler: unhandled statement %T", stmt))
	}
}

// genFor lowers a counted loop. The exit test runs before each iteration
// and fires once the variable has passed the end value.
func (g *CodeGenerator) genFor(st *ForStmt) {
	start := g.genExpr(st.Start)
	end := g.genExpr(st.End)
	g.emit("%s = %s", st.Var, start)

	startLabel := g.newLabel()
	endLabel := g.newLabel()
	g.emit("%s:", startLabel)

	exit, step := ">", "+"
	if st.Downto {
		exit, step = "<", "-"
	}

	t := g.newTemp()
	g.emit("%s = %s %s %s", t, st.Var, exit, end)
	g.emit("if_true %s goto %s", t, endLabel)

	g.genStmt(st.Body)

	g.emit("%s = %s %s 1", st.Var, st.Var, step)
	g.emit("goto %s", startLabel)
	g.emit("%s:", endLabel)
}

func (g *CodeGenerator) genWrites(args []Expr) {
	for _, a := range args {
		g.emit("write %s", g.genExpr(a))
	}
}

func (g *CodeGenerator) genArgs(args []Expr) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = g.genExpr(a)
	}
	return out
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

var opSymbols = map[string]string{
	"div": "/",
	"mod": "%",
	"=":   "==",
	"<>":  "!=",
	"and": "&&",
	"or":  "||",
}

// genExpr lowers expr and returns the operand that holds its value: a
// literal, a variable name, a string label or a fresh temporary.
func (g *CodeGenerator) genExpr(expr Expr) string {
	switch e := expr.(type) {
	case *IntegerLiteral:
		return strconv.FormatInt(e.Value, 10)

	case *RealLiteral:
		return FormatReal(e.Value)

	case *StringLiteral:
		label := "str" + strconv.Itoa(g.nstrings)
		g.nstrings++
		g.strings = append(g.strings, StringData{Label: label, Value: e.Value})
		return label

	case *BooleanLiteral:
		if e.Value {
			return "1"
		}
		return "0"

	case *Variable:
		if e.Index != nil {
			idx := g.genExpr(e.Index)
			t := g.newTemp()
			g.emit("%s = %s[%s]", t, e.Name, idx)
			return t
		}
		return varName(e)

	case *BinaryOp:
		left := g.genExpr(e.Left)
		right := g.genExpr(e.Right)
		op := e.Op
		if sym, ok := opSymbols[op]; ok {
			op = sym
		}
		t := g.newTemp()
		g.emit("%s = %s %s %s", t, left, op, right)
		return t

	case *UnaryOp:
		operand := g.genExpr(e.Operand)
		t := g.newTemp()
		switch e.Op {
		case "-":
			g.emit("%s = -%s", t, operand)
		case "not":
			g.emit("%s = !%s", t, operand)
		default:
			g.emit("%s = %s", t, operand)
		}
		return t

	case *FunctionCall:
		args := g.genArgs(e.Args)
		t := g.newTemp()
		if len(args) > 0 {
			g.emit("%s = call %s, %s", t, e.Name, strings.Join(args, ", "))
		} else {
			g.emit("%s = call %s", t, e.Name)
		}
		return t

	default:
		panic(fmt.Sprintf("compiler: unhandled expression %T", expr))
	}
}

// varName renders a non-indexed variable reference.
func varName(v *Variable) string {
	if v.Field != "" {
		return v.Name + "." + v.Field
	}
	return v.Name
}

// FormatReal renders a real in its shortest round-trip form, switching to
// exponent notation only for very large or very small magnitudes. Values
// that would print without a fraction get a trailing ".0" so they never
// read as integers.
func FormatReal(v float64) string {
	format := byte('f')
	if a := math.Abs(v); a >= 1e16 || (a != 0 && a < 1e-4) {
		format = 'g'
	}
	s := strconv.FormatFloat(v, format, -1, 64)
	if !strings.ContainsAny(s, ".eIN") {
		s += ".0"
	}
	return s
}

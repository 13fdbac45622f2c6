package vm

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Instructions
// ---------------------------------------------------------------------------

// Opcode identifies a decoded instruction.
type Opcode uint8

const (
	OpEnter      Opcode = iota // routine entry; skipped when reached by fallthrough
	OpReturn                   // return
	OpHalt                     // halt
	OpConst                    // # Constant: dst = a
	OpMove                     // dst = a
	OpNeg                      // dst = -a
	OpNot                      // dst = !a
	OpBinary                   // dst = a op b
	OpLoadIndex                // dst = name[a]
	OpStoreIndex               // name[a] = b
	OpJump                     // goto target
	OpJumpFalse                // if_false a goto target
	OpJumpTrue                 // if_true a goto target
	OpCall                     // [dst =] call target, args
	OpWrite                    // write a
	OpWriteln                  // writeln
	OpRead                     // read dst
	OpReadln                   // readln
)

var opcodeNames = [...]string{
	OpEnter:      "enter",
	OpReturn:     "return",
	OpHalt:       "halt",
	OpConst:      "const",
	OpMove:       "move",
	OpNeg:        "neg",
	OpNot:        "not",
	OpBinary:     "binary",
	OpLoadIndex:  "load_index",
	OpStoreIndex: "store_index",
	OpJump:       "goto",
	OpJumpFalse:  "if_false",
	OpJumpTrue:   "if_true",
	OpCall:       "call",
	OpWrite:      "write",
	OpWriteln:    "writeln",
	OpRead:       "read",
	OpReadln:     "readln",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return fmt.Sprintf("op(%d)", op)
}

type operandKind uint8

const (
	operandConst operandKind = iota
	operandName
)

// Operand is an instruction input: a constant or a variable reference.
// Names are stored lower-cased.
type Operand struct {
	kind  operandKind
	value Value
	name  string
}

func (o Operand) String() string {
	if o.kind == operandName {
		return o.name
	}
	return o.value.String()
}

// Instruction is one executable line of a listing.
type Instruction struct {
	Op      Opcode
	Dst     string // assigned variable, array name or read target
	A, B    Operand
	Oper    string // binary operator
	Target  string // jump label or called routine
	Args    []Operand
	Routine *Routine // OpEnter only

	Line int    // 1-based line in the listing
	Text string // original text, for error messages
}

// Routine describes a procedure or function recovered from the listing.
type Routine struct {
	Name     string
	Function bool
	Params   []string
	Entry    int // index of the OpEnter instruction
	End      int // index just past the routine's return

	names map[string]bool
}

func (r *Routine) declares(name string) bool { return r.names[name] }

func (r *Routine) declare(name string) { r.names[name] = true }

// Program is a decoded listing ready to execute.
type Program struct {
	Name     string
	Code     []Instruction
	Labels   map[string]int // label -> index of the next instruction
	Routines map[string]*Routine
	Strings  map[string]string

	globals map[string]bool
}

// DecodeError reports a listing line the decoder could not understand.
type DecodeError struct {
	Line int
	Text string
	Msg  string
}

func (e *DecodeError) Error() string {
	if e.Line == 0 {
		return "vm: " + e.Msg
	}
	return fmt.Sprintf("vm: line %d: %s: %q", e.Line, e.Msg, e.Text)
}

// ---------------------------------------------------------------------------
// Decoder
// ---------------------------------------------------------------------------

const dataHeader = "# String literal data"

var binaryOps = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true,
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
	"&&": true, "||": true,
}

var stringUnescaper = strings.NewReplacer(
	`\\`, `\`,
	`\"`, `"`,
	`\n`, "\n",
	`\t`, "\t",
	`\r`, "\r",
)

type decoder struct {
	prog    *Program
	pending *Routine   // announced by a comment, waiting for its label
	open    []*Routine // routines whose return has not been seen
	inData  bool

	lineNo int
	text   string
}

// DecodeText decodes a listing held in one string.
func DecodeText(listing string) (*Program, error) {
	return Decode(strings.Split(listing, "\n"))
}

// Decode turns listing lines into a Program. Every jump and call target must
// be defined somewhere in the listing.
func Decode(lines []string) (*Program, error) {
	d := &decoder{prog: &Program{
		Labels:   make(map[string]int),
		Routines: make(map[string]*Routine),
		Strings:  make(map[string]string),
		globals:  make(map[string]bool),
	}}

	for i, raw := range lines {
		d.lineNo, d.text = i+1, raw
		if err := d.line(strings.TrimSpace(raw)); err != nil {
			return nil, err
		}
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return d.prog, nil
}

func (d *decoder) errorf(format string, args ...interface{}) error {
	return &DecodeError{Line: d.lineNo, Text: d.text, Msg: fmt.Sprintf(format, args...)}
}

func (d *decoder) emit(ins Instruction) {
	ins.Line, ins.Text = d.lineNo, strings.TrimSpace(d.text)
	d.prog.Code = append(d.prog.Code, ins)
}

func (d *decoder) current() *Routine {
	if len(d.open) == 0 {
		return nil
	}
	return d.open[len(d.open)-1]
}

// declare records a variable in the innermost open routine, or globally.
func (d *decoder) declare(name string) {
	if r := d.current(); r != nil {
		r.declare(name)
		return
	}
	d.prog.globals[name] = true
}

func (d *decoder) line(line string) error {
	switch {
	case line == "":
		return nil
	case d.inData:
		return d.data(line)
	case line == dataHeader:
		d.inData = true
		return nil
	case strings.HasPrefix(line, "#"):
		return d.directive(line)
	case strings.HasSuffix(line, ":") && !strings.ContainsAny(line, " \t"):
		return d.label(strings.TrimSuffix(line, ":"))
	}

	switch line {
	case "halt":
		d.emit(Instruction{Op: OpHalt})
		return nil
	case "writeln":
		d.emit(Instruction{Op: OpWriteln})
		return nil
	case "readln":
		d.emit(Instruction{Op: OpReadln})
		return nil
	case "return":
		return d.ret()
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "goto":
		if len(fields) != 2 {
			return d.errorf("malformed goto")
		}
		d.emit(Instruction{Op: OpJump, Target: strings.ToLower(fields[1])})
		return nil

	case "if_false", "if_true":
		if len(fields) != 4 || fields[2] != "goto" {
			return d.errorf("malformed conditional jump")
		}
		op := OpJumpFalse
		if fields[0] == "if_true" {
			op = OpJumpTrue
		}
		cond, err := d.operand(fields[1])
		if err != nil {
			return err
		}
		d.emit(Instruction{Op: op, A: cond, Target: strings.ToLower(fields[3])})
		return nil

	case "call":
		return d.call("", strings.TrimPrefix(line, "call "))

	case "write":
		if len(fields) != 2 {
			return d.errorf("malformed write")
		}
		v, err := d.operand(fields[1])
		if err != nil {
			return err
		}
		d.emit(Instruction{Op: OpWrite, A: v})
		return nil

	case "read":
		if len(fields) != 2 {
			return d.errorf("malformed read")
		}
		d.emit(Instruction{Op: OpRead, Dst: strings.ToLower(fields[1])})
		return nil
	}

	if i := strings.Index(line, " = "); i > 0 {
		return d.assignment(strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+3:]))
	}
	return d.errorf("unrecognized instruction")
}

// directive interprets the declaration comments; other comments are dropped.
func (d *decoder) directive(line string) error {
	body := strings.TrimSpace(strings.TrimPrefix(line, "#"))
	switch {
	case strings.HasPrefix(body, "Program: "):
		d.prog.Name = strings.TrimPrefix(body, "Program: ")

	case strings.HasPrefix(body, "Procedure: "), strings.HasPrefix(body, "Function: "):
		kind, name, _ := strings.Cut(body, ": ")
		if d.pending != nil {
			return d.errorf("routine %s has no entry label", d.pending.Name)
		}
		d.pending = &Routine{
			Name:     strings.ToLower(name),
			Function: kind == "Function",
			names:    make(map[string]bool),
		}
		if d.pending.Function {
			d.pending.declare(d.pending.Name)
		}

	case strings.HasPrefix(body, "Parameter "):
		r := d.current()
		if r == nil {
			return d.errorf("parameter outside a routine")
		}
		name := strings.ToLower(strings.TrimPrefix(body, "Parameter "))
		r.Params = append(r.Params, name)
		r.declare(name)

	case strings.HasPrefix(body, "Variable: "):
		d.declare(strings.ToLower(strings.TrimPrefix(body, "Variable: ")))

	case strings.HasPrefix(body, "Constant: "):
		name, value, ok := strings.Cut(strings.TrimPrefix(body, "Constant: "), " = ")
		if !ok {
			return d.errorf("malformed constant")
		}
		v, err := d.operand(value)
		if err != nil {
			return err
		}
		name = strings.ToLower(name)
		d.declare(name)
		d.emit(Instruction{Op: OpConst, Dst: name, A: v})
	}
	return nil
}

func (d *decoder) label(name string) error {
	key := strings.ToLower(name)
	if r := d.pending; r != nil && r.Name == key {
		d.pending = nil
		if _, dup := d.prog.Routines[key]; dup {
			return d.errorf("routine %s defined twice", name)
		}
		r.Entry = len(d.prog.Code)
		d.prog.Routines[key] = r
		d.open = append(d.open, r)
		d.emit(Instruction{Op: OpEnter, Routine: r, Target: key})
		return nil
	}
	if _, dup := d.prog.Labels[key]; dup {
		return d.errorf("label %s defined twice", name)
	}
	d.prog.Labels[key] = len(d.prog.Code)
	return nil
}

func (d *decoder) ret() error {
	r := d.current()
	if r == nil {
		return d.errorf("return outside a routine")
	}
	d.emit(Instruction{Op: OpReturn})
	d.open = d.open[:len(d.open)-1]
	r.End = len(d.prog.Code)
	return nil
}

func (d *decoder) call(dst, rest string) error {
	parts := strings.Split(rest, ",")
	target := strings.ToLower(strings.TrimSpace(parts[0]))
	if target == "" {
		return d.errorf("call without a target")
	}
	ins := Instruction{Op: OpCall, Dst: dst, Target: target}
	for _, p := range parts[1:] {
		arg, err := d.operand(strings.TrimSpace(p))
		if err != nil {
			return err
		}
		ins.Args = append(ins.Args, arg)
	}
	d.emit(ins)
	return nil
}

func (d *decoder) assignment(lhs, rhs string) error {
	if name, idx, ok := splitIndex(lhs); ok {
		i, err := d.operand(idx)
		if err != nil {
			return err
		}
		v, err := d.operand(rhs)
		if err != nil {
			return err
		}
		d.emit(Instruction{Op: OpStoreIndex, Dst: name, A: i, B: v})
		return nil
	}

	dst := strings.ToLower(lhs)
	if strings.HasPrefix(rhs, "call ") {
		return d.call(dst, strings.TrimPrefix(rhs, "call "))
	}

	fields := strings.Fields(rhs)
	switch len(fields) {
	case 1:
		src := fields[0]
		if name, idx, ok := splitIndex(src); ok {
			i, err := d.operand(idx)
			if err != nil {
				return err
			}
			d.emit(Instruction{Op: OpLoadIndex, Dst: dst, A: i, Target: name})
			return nil
		}
		op := OpMove
		switch {
		case strings.HasPrefix(src, "-") && len(src) > 1:
			op, src = OpNeg, src[1:]
		case strings.HasPrefix(src, "!") && len(src) > 1:
			op, src = OpNot, src[1:]
		}
		v, err := d.operand(src)
		if err != nil {
			return err
		}
		d.emit(Instruction{Op: op, Dst: dst, A: v})
		return nil

	case 3:
		if !binaryOps[fields[1]] {
			return d.errorf("unknown operator %s", fields[1])
		}
		a, err := d.operand(fields[0])
		if err != nil {
			return err
		}
		b, err := d.operand(fields[2])
		if err != nil {
			return err
		}
		d.emit(Instruction{Op: OpBinary, Dst: dst, A: a, B: b, Oper: fields[1]})
		return nil
	}
	return d.errorf("malformed assignment")
}

// splitIndex splits "a[i]" into "a" and "i".
func splitIndex(s string) (name, index string, ok bool) {
	open := strings.IndexByte(s, '[')
	if open <= 0 || !strings.HasSuffix(s, "]") {
		return "", "", false
	}
	return strings.ToLower(s[:open]), s[open+1 : len(s)-1], true
}

// operand classifies a token as a numeric literal or a name. String labels
// are resolved once the data section has been read.
func (d *decoder) operand(tok string) (Operand, error) {
	if tok == "" {
		return Operand{}, d.errorf("missing operand")
	}
	c := tok[0]
	if c >= '0' && c <= '9' {
		if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
			return Operand{kind: operandConst, value: Int(n)}, nil
		}
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			return Operand{kind: operandConst, value: Real(f)}, nil
		}
		return Operand{}, d.errorf("bad number %s", tok)
	}
	if !isNameStart(c) {
		return Operand{}, d.errorf("bad operand %s", tok)
	}
	return Operand{kind: operandName, name: strings.ToLower(tok)}, nil
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func (d *decoder) data(line string) error {
	label, rest, ok := strings.Cut(line, ": .string ")
	if !ok || len(rest) < 2 || rest[0] != '"' || rest[len(rest)-1] != '"' {
		return d.errorf("malformed string literal")
	}
	d.prog.Strings[strings.ToLower(label)] = stringUnescaper.Replace(rest[1 : len(rest)-1])
	return nil
}

// finish checks that the listing is closed and resolves string labels.
func (d *decoder) finish() error {
	d.lineNo, d.text = 0, ""
	if d.pending != nil {
		return d.errorf("routine %s has no entry label", d.pending.Name)
	}
	if r := d.current(); r != nil {
		return d.errorf("routine %s has no return", r.Name)
	}

	p := d.prog
	for i := range p.Code {
		ins := &p.Code[i]
		ins.A = p.resolveString(ins.A)
		ins.B = p.resolveString(ins.B)
		for j := range ins.Args {
			ins.Args[j] = p.resolveString(ins.Args[j])
		}

		switch ins.Op {
		case OpJump, OpJumpFalse, OpJumpTrue:
			if _, ok := p.Labels[ins.Target]; !ok {
				return &DecodeError{Line: ins.Line, Text: ins.Text, Msg: "jump to undefined label " + ins.Target}
			}
		case OpCall:
			if _, ok := p.Routines[ins.Target]; !ok {
				return &DecodeError{Line: ins.Line, Text: ins.Text, Msg: "call to undefined routine " + ins.Target}
			}
		}
	}
	return nil
}

// resolveString turns a reference to a data label into a string constant,
// unless a variable of the same name is declared.
func (p *Program) resolveString(o Operand) Operand {
	if o.kind != operandName || p.declared(o.name) {
		return o
	}
	if s, ok := p.Strings[o.name]; ok {
		return Operand{kind: operandConst, value: Str(s)}
	}
	return o
}

func (p *Program) declared(name string) bool {
	if p.globals[name] {
		return true
	}
	for _, r := range p.Routines {
		if r.declares(name) {
			return true
		}
	}
	return false
}

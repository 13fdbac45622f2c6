package vm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/tliron/commonlog"
)

const (
	DefaultMaxSteps = 10_000_000
	DefaultMaxDepth = 10_000

	// how often Run polls its context
	cancelCheckInterval = 4096
)

// ErrStepLimit is wrapped by the RuntimeError returned when a program runs
// more instructions than the machine allows.
var ErrStepLimit = errors.New("step limit exceeded")

// RuntimeError reports a failure while executing an instruction.
type RuntimeError struct {
	PC   int
	Line int
	Text string
	Err  error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("vm: runtime error at line %d (%s): %v", e.Line, e.Text, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// ---------------------------------------------------------------------------
// Frames
// ---------------------------------------------------------------------------

// frame is the activation of one routine call.
type frame struct {
	routine *Routine
	vars    map[string]Value
	ret     int    // instruction to resume in the caller
	dst     string // caller variable receiving a function result
}

var tempName = regexp.MustCompile(`^t[0-9]+$`)

// ---------------------------------------------------------------------------
// Machine
// ---------------------------------------------------------------------------

// Machine executes a decoded Program. A Machine runs one program once.
type Machine struct {
	prog    *Program
	globals map[string]Value
	frames  []*frame

	in       *bufio.Reader
	out      *bufio.Writer
	fields   []string // unread input on the current line
	lineOpen bool

	maxSteps int64
	maxDepth int
	steps    int64
	log      commonlog.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithInput sets where read and readln take their input.
func WithInput(r io.Reader) Option {
	return func(m *Machine) { m.in = bufio.NewReader(r) }
}

// WithOutput sets where write and writeln print.
func WithOutput(w io.Writer) Option {
	return func(m *Machine) { m.out = bufio.NewWriter(w) }
}

// WithMaxSteps bounds the number of instructions executed.
func WithMaxSteps(n int64) Option {
	return func(m *Machine) { m.maxSteps = n }
}

// WithMaxDepth bounds the call depth.
func WithMaxDepth(n int) Option {
	return func(m *Machine) { m.maxDepth = n }
}

// WithLogger sets the machine's logger.
func WithLogger(log commonlog.Logger) Option {
	return func(m *Machine) { m.log = log }
}

// New creates a machine for prog. Without options it reads nothing and
// discards its output.
func New(prog *Program, opts ...Option) *Machine {
	m := &Machine{
		prog:     prog,
		globals:  make(map[string]Value),
		in:       bufio.NewReader(strings.NewReader("")),
		out:      bufio.NewWriter(io.Discard),
		maxSteps: DefaultMaxSteps,
		maxDepth: DefaultMaxDepth,
		log:      commonlog.GetLogger("pasc.vm"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Steps returns the number of instructions executed so far.
func (m *Machine) Steps() int64 { return m.steps }

// Global returns the value of a program-level variable.
func (m *Machine) Global(name string) (Value, bool) {
	v, ok := m.globals[strings.ToLower(name)]
	return v, ok
}

// Run executes the program from its first instruction until halt, the end of
// the code, an error or cancellation of ctx.
func (m *Machine) Run(ctx context.Context) (err error) {
	m.log.Debugf("executing %s (%d instructions)", m.prog.Name, len(m.prog.Code))
	defer func() {
		if ferr := m.out.Flush(); err == nil && ferr != nil {
			err = fmt.Errorf("vm: flush output: %w", ferr)
		}
	}()

	code := m.prog.Code
	pc := 0
	for pc < len(code) {
		m.steps++
		if m.steps > m.maxSteps {
			return m.fault(pc, fmt.Errorf("%w (%d)", ErrStepLimit, m.maxSteps))
		}
		if m.steps%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		next, halted, err := m.step(pc)
		if err != nil {
			return m.fault(pc, err)
		}
		if halted {
			m.log.Debugf("halted after %d steps", m.steps)
			return nil
		}
		pc = next
	}
	m.log.Debugf("ran off the end after %d steps", m.steps)
	return nil
}

func (m *Machine) fault(pc int, err error) error {
	ins := m.prog.Code[pc]
	return &RuntimeError{PC: pc, Line: ins.Line, Text: ins.Text, Err: err}
}

// step executes the instruction at pc and returns the next pc.
func (m *Machine) step(pc int) (next int, halted bool, err error) {
	ins := &m.prog.Code[pc]
	next = pc + 1

	switch ins.Op {
	case OpEnter:
		// Routine bodies only run when called.
		return ins.Routine.End, false, nil

	case OpReturn:
		return m.ret()

	case OpHalt:
		return pc, true, nil

	case OpConst, OpMove:
		m.store(ins.Dst, m.load(ins.A).clone())

	case OpNeg:
		v, err := negate(m.load(ins.A))
		if err != nil {
			return 0, false, err
		}
		m.store(ins.Dst, v)

	case OpNot:
		m.store(ins.Dst, Bool(!m.load(ins.A).Truthy()))

	case OpBinary:
		v, err := binary(ins.Oper, m.load(ins.A), m.load(ins.B))
		if err != nil {
			return 0, false, err
		}
		m.store(ins.Dst, v)

	case OpLoadIndex:
		v, err := m.loadIndex(ins.Target, m.load(ins.A))
		if err != nil {
			return 0, false, err
		}
		m.store(ins.Dst, v)

	case OpStoreIndex:
		if err := m.storeIndex(ins.Dst, m.load(ins.A), m.load(ins.B)); err != nil {
			return 0, false, err
		}

	case OpJump:
		next = m.prog.Labels[ins.Target]

	case OpJumpFalse:
		if !m.load(ins.A).Truthy() {
			next = m.prog.Labels[ins.Target]
		}

	case OpJumpTrue:
		if m.load(ins.A).Truthy() {
			next = m.prog.Labels[ins.Target]
		}

	case OpCall:
		return m.call(ins, next)

	case OpWrite:
		if _, err := m.out.WriteString(m.load(ins.A).String()); err != nil {
			return 0, false, err
		}

	case OpWriteln:
		if err := m.out.WriteByte('\n'); err != nil {
			return 0, false, err
		}

	case OpRead:
		tok, err := m.nextField()
		if err != nil {
			return 0, false, err
		}
		m.store(ins.Dst, parseInput(tok))

	case OpReadln:
		if err := m.skipLine(); err != nil {
			return 0, false, err
		}

	default:
		return 0, false, fmt.Errorf("unknown opcode %s", ins.Op)
	}
	return next, false, nil
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

func (m *Machine) call(ins *Instruction, ret int) (int, bool, error) {
	r := m.prog.Routines[ins.Target]
	if len(ins.Args) != len(r.Params) {
		return 0, false, fmt.Errorf("%s expects %d arguments, got %d", r.Name, len(r.Params), len(ins.Args))
	}
	if len(m.frames) >= m.maxDepth {
		return 0, false, fmt.Errorf("call depth exceeds %d", m.maxDepth)
	}

	f := &frame{routine: r, vars: make(map[string]Value), ret: ret, dst: ins.Dst}
	for i, p := range r.Params {
		f.vars[p] = m.load(ins.Args[i]).clone()
	}
	m.frames = append(m.frames, f)
	return r.Entry + 1, false, nil
}

func (m *Machine) ret() (int, bool, error) {
	if len(m.frames) == 0 {
		return 0, false, errors.New("return outside a call")
	}
	f := m.frames[len(m.frames)-1]
	m.frames = m.frames[:len(m.frames)-1]

	if f.dst != "" {
		if !f.routine.Function {
			return 0, false, fmt.Errorf("procedure %s has no result", f.routine.Name)
		}
		m.store(f.dst, f.vars[f.routine.Name])
	}
	return f.ret, false, nil
}

// ---------------------------------------------------------------------------
// Variables
// ---------------------------------------------------------------------------

// scope finds the variable map holding name. Routine frames are searched
// innermost first, then the program globals. Temporaries belong to the
// current frame so recursive calls cannot clobber them.
func (m *Machine) scope(name string) map[string]Value {
	base, _, _ := strings.Cut(name, ".")
	for i := len(m.frames) - 1; i >= 0; i-- {
		if m.frames[i].routine.declares(base) {
			return m.frames[i].vars
		}
	}
	if m.prog.globals[base] || len(m.frames) == 0 {
		return m.globals
	}
	if tempName.MatchString(base) {
		return m.frames[len(m.frames)-1].vars
	}
	return m.globals
}

func (m *Machine) load(o Operand) Value {
	if o.kind == operandConst {
		return o.value
	}
	return m.scope(o.name)[o.name]
}

func (m *Machine) store(name string, v Value) {
	m.scope(name)[name] = v
}

func (m *Machine) loadIndex(name string, idx Value) (Value, error) {
	if idx.Kind != KindInt {
		return Value{}, fmt.Errorf("array index must be an integer, got %s", idx.Kind)
	}
	arr, ok := m.scope(name)[name]
	if !ok {
		return Value{}, nil
	}
	if arr.Kind != KindArray {
		return Value{}, fmt.Errorf("%s is not an array", name)
	}
	return arr.Arr[idx.Int], nil
}

func (m *Machine) storeIndex(name string, idx, v Value) error {
	if idx.Kind != KindInt {
		return fmt.Errorf("array index must be an integer, got %s", idx.Kind)
	}
	sc := m.scope(name)
	arr, ok := sc[name]
	if !ok {
		arr = newArray()
		sc[name] = arr
	}
	if arr.Kind != KindArray {
		return fmt.Errorf("%s is not an array", name)
	}
	arr.Arr[idx.Int] = v
	return nil
}

// ---------------------------------------------------------------------------
// Input
// ---------------------------------------------------------------------------

// nextField returns the next whitespace-separated input token, reading new
// lines as needed.
func (m *Machine) nextField() (string, error) {
	for len(m.fields) == 0 {
		line, err := m.in.ReadString('\n')
		if line == "" && err != nil {
			if err == io.EOF {
				return "", errors.New("unexpected end of input")
			}
			return "", err
		}
		m.fields = strings.Fields(line)
		m.lineOpen = true
	}
	tok := m.fields[0]
	m.fields = m.fields[1:]
	return tok, nil
}

// skipLine discards the rest of the current input line. With no line in
// progress it consumes one whole line. End of input is not an error.
func (m *Machine) skipLine() error {
	if m.lineOpen {
		m.fields, m.lineOpen = nil, false
		return nil
	}
	if _, err := m.in.ReadString('\n'); err != nil && err != io.EOF {
		return err
	}
	return nil
}

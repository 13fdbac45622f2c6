package compiler

import (
	"strings"
	"testing"
)

// generate parses, checks and lowers src.
func generate(t *testing.T, src string) *Output {
	t.Helper()
	prog := mustParse(t, src)
	if err := Analyze(prog); err != nil {
		t.Fatalf("semantic error: %v", err)
	}
	return Generate(prog)
}

// mainBody returns the instructions between "main:" and "halt".
func mainBody(t *testing.T, out *Output) []string {
	t.Helper()
	start, end := -1, -1
	for i, line := range out.Instructions {
		switch line {
		case "main:":
			start = i + 1
		case "halt":
			end = i
		}
	}
	if start < 0 || end < start {
		t.Fatalf("no main section in:\n%s", out)
	}
	return out.Instructions[start:end]
}

func assertLines(t *testing.T, got []string, want ...string) {
	t.Helper()
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("got:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestGenerateDemoProgram(t *testing.T) {
	out := generate(t, "program Demo; var x: integer; begin x := 1 + 2; writeln(x) end.")

	assertLines(t, out.Instructions,
		"# Program: Demo",
		"# String literals",
		"# Variable: x",
		"",
		"# Main program",
		"main:",
		"t0 = 1 + 2",
		"x = t0",
		"write x",
		"writeln",
		"halt",
		"",
	)
	if len(out.Strings) != 0 {
		t.Errorf("unexpected strings: %v", out.Strings)
	}
}

func TestGenerateForLoop(t *testing.T) {
	out := generate(t, "program p; var i: integer; begin for i := 1 to 3 do writeln(i) end.")

	assertLines(t, mainBody(t, out),
		"i = 1",
		"L0:",
		"t0 = i > 3",
		"if_true t0 goto L1",
		"write i",
		"writeln",
		"i = i + 1",
		"goto L0",
		"L1:",
	)
}

func TestGenerateForDownto(t *testing.T) {
	out := generate(t, "program p; var i, n: integer; begin for i := n downto 1 do write(i) end.")

	assertLines(t, mainBody(t, out),
		"i = n",
		"L0:",
		"t0 = i < 1",
		"if_true t0 goto L1",
		"write i",
		"i = i - 1",
		"goto L0",
		"L1:",
	)
}

func TestGenerateForBoundsLoweredBeforeAssignment(t *testing.T) {
	out := generate(t, "program p; var i, a, b: integer; begin for i := a + 1 to b * 2 do end.")

	assertLines(t, mainBody(t, out),
		"t0 = a + 1",
		"t1 = b * 2",
		"i = t0",
		"L0:",
		"t2 = i > t1",
		"if_true t2 goto L1",
		"i = i + 1",
		"goto L0",
		"L1:",
	)
}

func TestGenerateIfElse(t *testing.T) {
	out := generate(t, "program p; var b: boolean; x: integer; begin if b then x := 1 else x := 2 end.")

	body := mainBody(t, out)
	assertLines(t, body,
		"if_false b goto L0",
		"x = 1",
		"goto L1",
		"L0:",
		"x = 2",
		"L1:",
	)

	// Both labels are defined once and targeted by exactly one jump.
	for _, label := range []string{"L0", "L1"} {
		defs, jumps := 0, 0
		for _, line := range body {
			if line == label+":" {
				defs++
			}
			if strings.HasSuffix(line, "goto "+label) {
				jumps++
			}
		}
		if defs != 1 || jumps != 1 {
			t.Errorf("%s: %d definitions, %d jumps; want 1 and 1", label, defs, jumps)
		}
	}
}

func TestGenerateIfWithoutElse(t *testing.T) {
	out := generate(t, `program p; var b: boolean; x: integer;
begin if b then x := 1; if not b then x := 2 end.`)

	// The end label is allocated even without an else branch.
	assertLines(t, mainBody(t, out),
		"if_false b goto L0",
		"x = 1",
		"L0:",
		"t0 = !b",
		"if_false t0 goto L2",
		"x = 2",
		"L2:",
	)
}

func TestGenerateWhile(t *testing.T) {
	out := generate(t, "program p; var i: integer; begin while i < 3 do i := i + 1 end.")

	assertLines(t, mainBody(t, out),
		"L0:",
		"t0 = i < 3",
		"if_false t0 goto L1",
		"t1 = i + 1",
		"i = t1",
		"goto L0",
		"L1:",
	)
}

func TestGenerateRepeat(t *testing.T) {
	out := generate(t, "program p; var i: integer; begin repeat i := i + 1; write(i) until i >= 3 end.")

	assertLines(t, mainBody(t, out),
		"L0:",
		"t0 = i + 1",
		"i = t0",
		"write i",
		"t1 = i >= 3",
		"if_false t1 goto L0",
	)
}

func TestGenerateExpressions(t *testing.T) {
	out := generate(t, `program p;
var x, a, b: integer;
function f(m, n: integer): integer; begin f := m end;
begin x := a * (b + 1) - f(a, 2) end.`)

	assertLines(t, mainBody(t, out),
		"t0 = b + 1",
		"t1 = a * t0",
		"t2 = call f, a, 2",
		"t3 = t1 - t2",
		"x = t3",
	)
}

func TestGenerateOperatorMapping(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"a div b", "t0 = a / b"},
		{"a mod b", "t0 = a % b"},
		{"a / b", "t0 = a / b"},
		{"a = b", "t0 = a == b"},
		{"a <> b", "t0 = a != b"},
		{"a <= b", "t0 = a <= b"},
		{"a >= b", "t0 = a >= b"},
		{"p and q", "t0 = p && q"},
		{"p or q", "t0 = p || q"},
	}

	for _, tc := range tests {
		src := "program x; var a, b: integer; p, q: boolean; begin writeln(" + tc.expr + ") end."
		body := mainBody(t, generate(t, src))
		if len(body) == 0 || body[0] != tc.want {
			t.Errorf("%s: got %q, want %q", tc.expr, body, tc.want)
		}
	}
}

func TestGenerateUnary(t *testing.T) {
	out := generate(t, "program p; var x, y: integer; b: boolean; begin y := -x; y := +x; b := not b end.")

	assertLines(t, mainBody(t, out),
		"t0 = -x",
		"y = t0",
		"t1 = x",
		"y = t1",
		"t2 = !b",
		"b = t2",
	)
}

func TestGenerateLiterals(t *testing.T) {
	out := generate(t, "program p; var r: real; b: boolean; begin r := 3.0; r := 2.5; b := true; b := false end.")

	assertLines(t, mainBody(t, out),
		"r = 3.0",
		"r = 2.5",
		"b = 1",
		"b = 0",
	)
}

func TestGenerateArrays(t *testing.T) {
	out := generate(t, "program p; var a: array[integer] of integer; i: integer; begin a[i + 1] := a[i] * 2 end.")

	// The value is lowered before the index.
	assertLines(t, mainBody(t, out),
		"t0 = a[i]",
		"t1 = t0 * 2",
		"t2 = i + 1",
		"a[t2] = t1",
	)
}

func TestGenerateReadln(t *testing.T) {
	out := generate(t, "program p; var a, b: integer; begin readln(a, b); readln end.")

	assertLines(t, mainBody(t, out),
		"read a",
		"read b",
		"readln",
		"readln",
	)
}

func TestGenerateProcedureCalls(t *testing.T) {
	out := generate(t, `program p;
procedure beep; begin end;
procedure show(n: integer); begin writeln(n) end;
begin beep; show(2 + 3) end.`)

	assertLines(t, mainBody(t, out),
		"call beep",
		"t0 = 2 + 3",
		"call show, t0",
	)
}

func TestGenerateProcedureLayout(t *testing.T) {
	out := generate(t, `program p;
var g: integer;
procedure show(n: integer);
var k: integer;
begin k := n; writeln(k) end;
function one: integer;
begin one := 1 end;
begin show(5) end.`)

	assertLines(t, out.Instructions,
		"# Program: p",
		"# String literals",
		"# Variable: g",
		"",
		"# Procedure: show",
		"show:",
		"# Parameter n",
		"# Variable: k",
		"k = n",
		"write k",
		"writeln",
		"return",
		"",
		"",
		"# Function: one",
		"one:",
		"one = 1",
		"return",
		"",
		"",
		"# Main program",
		"main:",
		"call show, 5",
		"halt",
		"",
	)
}

func TestGenerateCountersSpanProcedures(t *testing.T) {
	out := generate(t, `program p;
var b: boolean;
procedure one; begin if b then b := false end;
procedure two; begin if b then b := true end;
begin if b then b := b end.`)

	var labels []string
	for _, line := range out.Instructions {
		if strings.HasPrefix(line, "L") && strings.HasSuffix(line, ":") {
			labels = append(labels, line)
		}
	}
	assertLines(t, labels, "L0:", "L2:", "L4:")
}

func TestGenerateConstants(t *testing.T) {
	out := generate(t, "program p; const n = 10; pi = 3.0; s = 'x'; b = true; m = n * 2; begin end.")

	assertLines(t, out.Instructions[2:8],
		"# Constant: n = 10",
		"# Constant: pi = 3.0",
		"# Constant: s = str0",
		"# Constant: b = 1",
		"t0 = n * 2",
		"# Constant: m = t0",
	)
}

func TestGenerateStringTable(t *testing.T) {
	out := generate(t, `program p; begin writeln('hello', 'say "hi"'); write('a\nb') end.`)

	if len(out.Strings) != 3 {
		t.Fatalf("got %d strings, want 3", len(out.Strings))
	}
	if out.Strings[0].Label != "str0" || out.Strings[0].Value != "hello" {
		t.Errorf("Strings[0] = %+v", out.Strings[0])
	}

	lines := out.Lines()
	tail := lines[len(lines)-4:]
	assertLines(t, tail,
		"# String literal data",
		`str0: .string "hello"`,
		`str1: .string "say \"hi\""`,
		`str2: .string "a\nb"`,
	)

	if !strings.HasSuffix(out.String(), `str2: .string "a\nb"`) {
		t.Errorf("String() should end with the data section")
	}
}

func TestGenerateNoDataSectionWithoutStrings(t *testing.T) {
	out := generate(t, "program p; begin end.")
	for _, line := range out.Lines() {
		if line == "# String literal data" {
			t.Error("unexpected data section")
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	src := `program p; var i: integer; begin for i := 1 to 2 do if i = 1 then writeln('one') else writeln('two') end.`
	a := generate(t, src).String()
	b := generate(t, src).String()
	if a != b {
		t.Errorf("outputs differ:\n%s\n---\n%s", a, b)
	}
}

func TestGenerateLabelCollisionPanics(t *testing.T) {
	block := &Block{}
	tests := []struct {
		desc  string
		decls []Decl
	}{
		{"duplicate procedure", []Decl{
			&ProcDecl{Name: "dup", Block: block},
			&ProcDecl{Name: "DUP", Block: block},
		}},
		{"procedure named main", []Decl{
			&FuncDecl{Name: "main", ReturnType: &SimpleType{Name: "integer"}, Block: block},
		}},
	}

	for _, tc := range tests {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%s: expected panic", tc.desc)
				}
			}()
			Generate(&Program{Name: "p", Decls: tc.decls, Block: block})
		}()
	}
}

func TestFormatReal(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{3, "3.0"},
		{3.14, "3.14"},
		{0.1, "0.1"},
		{-2.5, "-2.5"},
		{0, "0.0"},
		{1000000, "1000000.0"},
		{1e20, "1e+20"},
		{1e-5, "1e-05"},
	}
	for _, tc := range tests {
		if got := FormatReal(tc.v); got != tc.want {
			t.Errorf("FormatReal(%v) = %q, want %q", tc.v, got, tc.want)
		}
	}
}

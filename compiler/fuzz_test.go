package compiler

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// FuzzLexer: ensure the lexer never panics on arbitrary input.
// ---------------------------------------------------------------------------

func FuzzLexer(f *testing.F) {
	seeds := []string{
		// Delimiters and operators
		`( ) [ ] . .. ; := : , + - * / = <> < <= > >=`,
		// Numbers
		`42`, `0`, `3.14`, `1..10`, `1..`, `1.2.3`, `2.`, `99999999999999999999`,
		// Strings
		`'hello'`, `"hello"`, `''`, `'a\nb'`, `'\`, `'unterminated`,
		// Identifiers and keywords
		`foo`, `FooBar`, `_tmp`, `x1`, `PROGRAM`, `Begin`, `div`, `MOD`,
		// Comments
		`{ brace }`, `(* paren *)`, "// line\nx", `{ unterminated`, `(* unterminated`,
		// A full program
		"program Demo; var x: integer; begin x := 1 + 2; writeln(x) end.",
		// Unicode
		`'こんにちは'`, `café`, `naïve`,
		// Empty and whitespace
		``, `   `, "\t\n\r",
		// Junk
		`?!@#$%^&`,
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data string) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("lexer panicked on input %q: %v", data, r)
			}
		}()

		tokens, err := Tokenize(data)
		if err != nil {
			return
		}
		if len(tokens) == 0 || tokens[len(tokens)-1].Type != TokenEOF {
			t.Fatalf("Tokenize(%q) does not end with EOF", data)
		}
		for _, tok := range tokens[:len(tokens)-1] {
			if tok.Type == TokenEOF {
				t.Fatalf("Tokenize(%q) has an EOF before the end", data)
			}
		}
	})
}

// ---------------------------------------------------------------------------
// FuzzParser: ensure the parser never panics on arbitrary input.
// Syntax errors are acceptable; panics are not.
// ---------------------------------------------------------------------------

func FuzzParser(f *testing.F) {
	seeds := []string{
		"program p; begin end.",
		"program p; var x: integer; begin x := 1 end.",
		"program p; const c = 1; begin writeln(c) end.",
		"program p; var a: array[integer] of real; begin a[1] := 2.0 end.",
		"program p; var r: record x: integer end; begin r.x := 1 end.",
		"program p; procedure q(var a, b: integer; c: real); begin end; begin q(1, 2, 3) end.",
		"program p; function f: integer; begin f := 1 end; begin writeln(f()) end.",
		"program p; begin if a then b else c end.",
		"program p; begin while a do begin end end.",
		"program p; begin for i := 1 to 10 do ; end.",
		"program p; begin repeat until true end.",
		"program p; begin readln(a, 1, b[2]) end.",
		// Truncated and malformed
		"program", "program p", "program p;", "program p; begin", "program p; begin x :=",
		"program p; begin (((( end.", "program p; var x: ; begin end.",
		"program p; begin for i := 1 until 2 do end.",
		``, `.`, `;`, `end.`,
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data string) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("parser panicked on input %q: %v", data, r)
			}
		}()

		prog, err := Parse(data)
		if err == nil && prog == nil {
			t.Fatalf("Parse(%q) returned neither program nor error", data)
		}
	})
}

// ---------------------------------------------------------------------------
// FuzzCompile: feed arbitrary statement lists through the full pipeline.
// Errors are fine; panics are not, and accepted programs must produce a
// listing whose jumps all land on defined labels.
// ---------------------------------------------------------------------------

func FuzzCompile(f *testing.F) {
	seeds := []string{
		`x := 1`,
		`x := x + 1; writeln(x)`,
		`if b then x := 1 else x := 2`,
		`while x < 10 do x := x + 1`,
		`for x := 1 to 10 do writeln(x)`,
		`for x := 10 downto 1 do write(x, ' ')`,
		`repeat x := x - 1 until x = 0`,
		`a[x] := a[x + 1] * 2`,
		`b := not b and (x <> 3)`,
		`r := r / 2.5`,
		`x := sq(x)`,
		`show(x)`,
		`readln(x)`,
		`begin begin end end`,
		``,
		`x := 'oops'`,
		`y := 1`,
	}

	for _, s := range seeds {
		f.Add(s)
	}

	const prelude = `program fuzz;
var x: integer; r: real; b: boolean; a: array[integer] of integer;
function sq(n: integer): integer; begin sq := n * n end;
procedure show(n: integer); begin writeln(n) end;
begin `

	f.Fuzz(func(t *testing.T, data string) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("Compile panicked on input %q: %v", data, r)
			}
		}()

		res, err := Compile(prelude + data + " end.")
		if err != nil {
			return
		}

		defined := make(map[string]bool)
		var targets []string
		for _, line := range res.Output.Instructions {
			if strings.HasSuffix(line, ":") && !strings.HasPrefix(line, "#") {
				defined[strings.TrimSuffix(line, ":")] = true
			}
			if i := strings.Index(line, "goto "); i >= 0 {
				targets = append(targets, line[i+len("goto "):])
			}
		}
		for _, target := range targets {
			if !defined[target] {
				t.Fatalf("input %q: jump to undefined label %s", data, target)
			}
		}
	})
}

// ---------------------------------------------------------------------------
// FuzzSemantic: ensure the analyzer never panics on parseable input.
// ---------------------------------------------------------------------------

func FuzzSemantic(f *testing.F) {
	seeds := []string{
		"program p; var x: widget; begin x := 1 end.",
		"program p; var x: integer; x: real; begin end.",
		"program p; procedure q(n: integer); var n: integer; begin end; begin end.",
		"program p; function f(f: integer): integer; begin f := f end; begin end.",
		"program p; begin undefined(alsoUndefined[1]) end.",
		"program p; var a: array[widget] of array[integer] of widget; begin a[a[1]] := a end.",
		"program p; var v: integer; begin v; v(); v := v() end.",
		"program p; procedure main; begin end; begin end.",
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data string) {
		prog, err := Parse(data)
		if err != nil {
			return
		}

		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("analyzer panicked on input %q: %v", data, r)
			}
		}()

		a := NewAnalyzer()
		err = a.Analyze(prog)
		if (err == nil) != (len(a.Diagnostics()) == 0) {
			t.Fatalf("input %q: error %v but %d diagnostics", data, err, len(a.Diagnostics()))
		}
	})
}

package compiler

import (
	"errors"

	"github.com/tliron/commonlog"
)

// Result is a successful compilation.
type Result struct {
	Program *Program
	Output  *Output
}

// Compile runs the whole pipeline on src. Lexical and syntax errors are
// returned as soon as they are found; semantic errors are returned together
// as a *SemanticError after the whole program has been checked.
func Compile(src string) (*Result, error) {
	return CompileWithLogger(src, commonlog.MOCK_LOGGER)
}

// CompileWithLogger is Compile with phase boundaries logged at debug level.
func CompileWithLogger(src string, log commonlog.Logger) (*Result, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	log.Debugf("lexed %d tokens", len(tokens))

	prog, err := NewParser(tokens).ParseProgram()
	if err != nil {
		return nil, err
	}
	log.Debugf("parsed program %s: %d declarations, %d statements", prog.Name, len(prog.Decls), len(prog.Block.Stmts))

	if err := NewAnalyzer().Analyze(prog); err != nil {
		return nil, err
	}
	log.Debug("semantic analysis passed", "program", prog.Name)

	out := NewCodeGenerator().Generate(prog)
	log.Debugf("generated %d instructions, %d string literals", len(out.Instructions), len(out.Strings))

	return &Result{Program: prog, Output: out}, nil
}

// Check runs the front end only and reports every problem as a Diagnostic.
// A lexical or syntax error yields exactly one diagnostic. The returned
// error is the underlying compile error, or nil for a clean program.
func Check(src string) ([]Diagnostic, error) {
	prog, err := Parse(src)
	if err != nil {
		return []Diagnostic{errorDiagnostic(err)}, err
	}

	a := NewAnalyzer()
	err = a.Analyze(prog)
	return a.Diagnostics(), err
}

// errorDiagnostic converts a lexical or syntax error to a Diagnostic.
func errorDiagnostic(err error) Diagnostic {
	var lexErr *LexError
	if errors.As(err, &lexErr) {
		return Diagnostic{Pos: lexErr.Pos, Msg: lexErr.Msg}
	}
	var synErr *SyntaxError
	if errors.As(err, &synErr) {
		return Diagnostic{Pos: synErr.Pos, Msg: synErr.Msg}
	}
	return Diagnostic{Msg: err.Error()}
}

// Error kinds reported by ErrorKind.
const (
	KindLexical  = "lexical"
	KindSyntax   = "syntax"
	KindSemantic = "semantic"
)

// ErrorKind names the phase that produced err, or "" for an error that
// did not come from the compiler.
func ErrorKind(err error) string {
	var lexErr *LexError
	var synErr *SyntaxError
	var semErr *SemanticError
	switch {
	case errors.As(err, &lexErr):
		return KindLexical
	case errors.As(err, &synErr):
		return KindSyntax
	case errors.As(err, &semErr):
		return KindSemantic
	}
	return ""
}

// Diagnostics flattens a compile error into positioned diagnostics.
func Diagnostics(err error) []Diagnostic {
	if err == nil {
		return nil
	}
	var semErr *SemanticError
	if errors.As(err, &semErr) {
		return semErr.Diagnostics
	}
	return []Diagnostic{errorDiagnostic(err)}
}

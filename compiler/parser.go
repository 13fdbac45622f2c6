package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for the Pascal subset
// ---------------------------------------------------------------------------

// SyntaxError reports the first grammar violation found by the parser.
// Expected is TokenEOF when the failure is not a single-token mismatch.
type SyntaxError struct {
	Pos      Position
	Expected TokenType
	Found    TokenType
	Msg      string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at %d:%d", e.Msg, e.Pos.Line, e.Pos.Column)
}

// Parser turns a token sequence into a Program. It looks at the current
// token plus a bounded peek and never backtracks. Parsing stops at the
// first syntax error.
type Parser struct {
	tokens []Token
	pos    int
}

// NewParser creates a parser over tokens, which must end with an EOF token
// as produced by Tokenize.
func NewParser(tokens []Token) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != TokenEOF {
		var end Position
		if len(tokens) > 0 {
			end = tokens[len(tokens)-1].Pos
		}
		tokens = append(tokens, Token{Type: TokenEOF, Pos: end})
	}
	return &Parser{tokens: tokens}
}

// Parse tokenizes and parses src.
func Parse(src string) (*Program, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	return NewParser(tokens).ParseProgram()
}

// cur returns the current token; past the end it keeps returning EOF.
func (p *Parser) cur() Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

// peek returns the token offset positions ahead of the current one.
func (p *Parser) peek(offset int) Token {
	i := p.pos + offset
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

// nextToken advances and returns the token that was current.
func (p *Parser) nextToken() Token {
	tok := p.cur()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) curTokenIs(t TokenType) bool {
	return p.cur().Type == t
}

func (p *Parser) curTokenIn(types ...TokenType) bool {
	c := p.cur().Type
	for _, t := range types {
		if c == t {
			return true
		}
	}
	return false
}

// expect consumes the current token if it has type t.
func (p *Parser) expect(t TokenType) (Token, error) {
	tok := p.cur()
	if tok.Type != t {
		return tok, &SyntaxError{
			Pos:      tok.Pos,
			Expected: t,
			Found:    tok.Type,
			Msg:      fmt.Sprintf("Expected %s, got %s", t, tok.Type),
		}
	}
	return p.nextToken(), nil
}

// errorf builds a SyntaxError at the current token.
func (p *Parser) errorf(format string, args ...interface{}) error {
	tok := p.cur()
	return &SyntaxError{Pos: tok.Pos, Found: tok.Type, Msg: fmt.Sprintf(format, args...)}
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseProgram parses 'program' ident ';' {Declaration} Block '.'.
func (p *Parser) ParseProgram() (*Program, error) {
	start, err := p.expect(TokenProgram)
	if err != nil {
		return nil, err
	}
	name, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}

	var decls []Decl
	for p.curTokenIn(TokenVar, TokenConst, TokenProcedure, TokenFunction) {
		d, err := p.parseDeclarations()
		if err != nil {
			return nil, err
		}
		decls = append(decls, d...)
	}

	block, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenDot); err != nil {
		return nil, err
	}

	return &Program{PosVal: start.Pos, Name: name.Literal, Decls: decls, Block: block}, nil
}

// parseDeclarations parses one declaration section starting at the current
// keyword. A var or const section may yield several declarations.
func (p *Parser) parseDeclarations() ([]Decl, error) {
	switch p.cur().Type {
	case TokenVar:
		return p.parseVarDecls()
	case TokenConst:
		return p.parseConstDecls()
	case TokenProcedure:
		d, err := p.parseProcDecl()
		if err != nil {
			return nil, err
		}
		return []Decl{d}, nil
	case TokenFunction:
		d, err := p.parseFuncDecl()
		if err != nil {
			return nil, err
		}
		return []Decl{d}, nil
	}
	return nil, nil
}

// parseVarDecls parses 'var' (ident {',' ident} ':' Type ';')+.
func (p *Parser) parseVarDecls() ([]Decl, error) {
	if _, err := p.expect(TokenVar); err != nil {
		return nil, err
	}

	var decls []Decl
	for p.curTokenIs(TokenIdentifier) {
		d, err := p.parseNameGroup()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenSemicolon); err != nil {
			return nil, err
		}
		decls = append(decls, d)
	}
	return decls, nil
}

// parseNameGroup parses ident {',' ident} ':' Type.
func (p *Parser) parseNameGroup() (*VarDecl, error) {
	first, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	names := []string{first.Literal}
	for p.curTokenIs(TokenComma) {
		p.nextToken()
		tok, err := p.expect(TokenIdentifier)
		if err != nil {
			return nil, err
		}
		names = append(names, tok.Literal)
	}
	if _, err := p.expect(TokenColon); err != nil {
		return nil, err
	}
	typ, err := p.parseTypeSpec()
	if err != nil {
		return nil, err
	}
	return &VarDecl{PosVal: first.Pos, Names: names, Type: typ}, nil
}

// parseConstDecls parses 'const' (ident '=' Expr ';')+.
func (p *Parser) parseConstDecls() ([]Decl, error) {
	if _, err := p.expect(TokenConst); err != nil {
		return nil, err
	}

	var decls []Decl
	for p.curTokenIs(TokenIdentifier) {
		name := p.nextToken()
		if _, err := p.expect(TokenEqual); err != nil {
			return nil, err
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenSemicolon); err != nil {
			return nil, err
		}
		decls = append(decls, &ConstDecl{PosVal: name.Pos, Name: name.Literal, Value: value})
	}
	return decls, nil
}

// parseLocalDecls parses the var/const sections allowed before a
// procedure or function body.
func (p *Parser) parseLocalDecls() ([]Decl, error) {
	var decls []Decl
	for p.curTokenIn(TokenVar, TokenConst) {
		d, err := p.parseDeclarations()
		if err != nil {
			return nil, err
		}
		decls = append(decls, d...)
	}
	return decls, nil
}

// parseProcDecl parses 'procedure' ident [Params] ';' {LocalDecl} Block ';'.
func (p *Parser) parseProcDecl() (*ProcDecl, error) {
	start, err := p.expect(TokenProcedure)
	if err != nil {
		return nil, err
	}
	name, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}

	var params []*Param
	if p.curTokenIs(TokenLParen) {
		if params, err = p.parseParams(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}

	decls, err := p.parseLocalDecls()
	if err != nil {
		return nil, err
	}
	block, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}

	return &ProcDecl{PosVal: start.Pos, Name: name.Literal, Params: params, Decls: decls, Block: block}, nil
}

// parseFuncDecl parses 'function' ident [Params] ':' Type ';' {LocalDecl} Block ';'.
func (p *Parser) parseFuncDecl() (*FuncDecl, error) {
	start, err := p.expect(TokenFunction)
	if err != nil {
		return nil, err
	}
	name, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}

	var params []*Param
	if p.curTokenIs(TokenLParen) {
		if params, err = p.parseParams(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokenColon); err != nil {
		return nil, err
	}
	ret, err := p.parseTypeSpec()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}

	decls, err := p.parseLocalDecls()
	if err != nil {
		return nil, err
	}
	block, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}

	return &FuncDecl{
		PosVal:     start.Pos,
		Name:       name.Literal,
		Params:     params,
		ReturnType: ret,
		Decls:      decls,
		Block:      block,
	}, nil
}

// parseParams parses '(' [['var'] ident {',' ident} ':' Type {';' ...}] ')'.
func (p *Parser) parseParams() ([]*Param, error) {
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}

	var params []*Param
	if !p.curTokenIs(TokenRParen) {
		for {
			isVar := false
			if p.curTokenIs(TokenVar) {
				isVar = true
				p.nextToken()
			}

			group, err := p.parseNameGroup()
			if err != nil {
				return nil, err
			}
			for _, name := range group.Names {
				params = append(params, &Param{PosVal: group.PosVal, Name: name, Type: group.Type, IsVar: isVar})
			}

			if !p.curTokenIs(TokenSemicolon) {
				break
			}
			p.nextToken()
		}
	}

	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return params, nil
}

// parseTypeSpec parses 'array' '[' Type ']' 'of' Type | record | type name.
func (p *Parser) parseTypeSpec() (TypeSpec, error) {
	tok := p.cur()

	switch tok.Type {
	case TokenArray:
		return p.parseArrayType()
	case TokenRecord:
		return p.parseRecordType()
	case TokenInteger, TokenReal, TokenBoolean, TokenChar, TokenString, TokenIdentifier:
		p.nextToken()
		return &SimpleType{PosVal: tok.Pos, Name: tok.Literal}, nil
	}

	return nil, p.errorf("Expected type specification, got %s", tok.Type)
}

func (p *Parser) parseArrayType() (*ArrayType, error) {
	start, err := p.expect(TokenArray)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLBracket); err != nil {
		return nil, err
	}
	index, err := p.parseTypeSpec()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenRBracket); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenOf); err != nil {
		return nil, err
	}
	elem, err := p.parseTypeSpec()
	if err != nil {
		return nil, err
	}
	return &ArrayType{PosVal: start.Pos, Index: index, Elem: elem}, nil
}

// parseRecordType parses 'record' {ident {',' ident} ':' Type [';']} 'end'.
func (p *Parser) parseRecordType() (*RecordType, error) {
	start, err := p.expect(TokenRecord)
	if err != nil {
		return nil, err
	}

	var fields []*VarDecl
	for p.curTokenIs(TokenIdentifier) {
		f, err := p.parseNameGroup()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
		if !p.curTokenIs(TokenSemicolon) {
			break
		}
		p.nextToken()
	}

	if _, err := p.expect(TokenEnd); err != nil {
		return nil, err
	}
	return &RecordType{PosVal: start.Pos, Fields: fields}, nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// parseBlock parses 'begin' StatementList 'end'.
func (p *Parser) parseBlock() (*Block, error) {
	start, err := p.expect(TokenBegin)
	if err != nil {
		return nil, err
	}
	stmts, err := p.parseStatementList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenEnd); err != nil {
		return nil, err
	}
	return &Block{PosVal: start.Pos, Stmts: stmts}, nil
}

// parseStatementList parses semicolon-separated statements. The list may
// be empty, and a trailing semicolon before 'end' or 'until' is accepted.
func (p *Parser) parseStatementList() ([]Stmt, error) {
	if p.curTokenIn(TokenEnd, TokenUntil) {
		return nil, nil
	}

	first, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	stmts := []Stmt{first}

	for p.curTokenIs(TokenSemicolon) {
		p.nextToken()
		if p.curTokenIn(TokenEnd, TokenUntil) {
			break
		}
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

// parseStatement parses one statement. A token that cannot start a
// statement yields the empty statement without being consumed.
func (p *Parser) parseStatement() (Stmt, error) {
	switch p.cur().Type {
	case TokenBegin:
		return p.parseCompound()
	case TokenIf:
		return p.parseIf()
	case TokenWhile:
		return p.parseWhile()
	case TokenFor:
		return p.parseFor()
	case TokenRepeat:
		return p.parseRepeat()
	case TokenIdentifier:
		return p.parseAssignmentOrCall()
	}
	return &CompoundStmt{PosVal: p.cur().Pos}, nil
}

func (p *Parser) parseCompound() (*CompoundStmt, error) {
	start, err := p.expect(TokenBegin)
	if err != nil {
		return nil, err
	}
	stmts, err := p.parseStatementList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenEnd); err != nil {
		return nil, err
	}
	return &CompoundStmt{PosVal: start.Pos, Stmts: stmts}, nil
}

func (p *Parser) parseIf() (*IfStmt, error) {
	start, err := p.expect(TokenIf)
	if err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenThen); err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	var els Stmt
	if p.curTokenIs(TokenElse) {
		p.nextToken()
		if els, err = p.parseStatement(); err != nil {
			return nil, err
		}
	}

	return &IfStmt{PosVal: start.Pos, Cond: cond, Then: then, Else: els}, nil
}

func (p *Parser) parseWhile() (*WhileStmt, error) {
	start, err := p.expect(TokenWhile)
	if err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenDo); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{PosVal: start.Pos, Cond: cond, Body: body}, nil
}

func (p *Parser) parseFor() (*ForStmt, error) {
	start, err := p.expect(TokenFor)
	if err != nil {
		return nil, err
	}
	v, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenAssign); err != nil {
		return nil, err
	}
	from, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	downto := false
	switch p.cur().Type {
	case TokenTo:
		p.nextToken()
	case TokenDownto:
		p.nextToken()
		downto = true
	default:
		return nil, p.errorf("Expected TO or DOWNTO, got %s", p.cur().Type)
	}

	to, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenDo); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	return &ForStmt{PosVal: start.Pos, Var: v.Literal, Start: from, End: to, Downto: downto, Body: body}, nil
}

func (p *Parser) parseRepeat() (*RepeatStmt, error) {
	start, err := p.expect(TokenRepeat)
	if err != nil {
		return nil, err
	}
	stmts, err := p.parseStatementList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenUntil); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &RepeatStmt{PosVal: start.Pos, Stmts: stmts, Cond: cond}, nil
}

// parseAssignmentOrCall handles statements starting with an identifier:
// assignments (optionally to a[i] or r.f), the built-in I/O procedures,
// and ordinary procedure calls with or without an argument list.
func (p *Parser) parseAssignmentOrCall() (Stmt, error) {
	name := p.nextToken()
	target := &Variable{PosVal: name.Pos, Name: name.Literal}

	switch {
	case p.curTokenIs(TokenLBracket):
		p.nextToken()
		index, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRBracket); err != nil {
			return nil, err
		}
		target.Index = index
		return p.parseAssignmentValue(target)

	case p.curTokenIs(TokenDot) && p.peek(1).Type == TokenIdentifier:
		p.nextToken()
		target.Field = p.nextToken().Literal
		return p.parseAssignmentValue(target)

	case p.curTokenIs(TokenAssign):
		return p.parseAssignmentValue(target)

	case p.curTokenIs(TokenLParen):
		args, err := p.parseArguments()
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(name.Literal) {
		case "writeln":
			return &WritelnStmt{PosVal: name.Pos, Args: args}, nil
		case "write":
			return &WriteStmt{PosVal: name.Pos, Args: args}, nil
		case "readln":
			var vars []*Variable
			for _, a := range args {
				if v, ok := a.(*Variable); ok {
					vars = append(vars, v)
				}
			}
			return &ReadlnStmt{PosVal: name.Pos, Vars: vars}, nil
		}
		return &ProcCall{PosVal: name.Pos, Name: name.Literal, Args: args}, nil
	}

	// A bare writeln or readln still only ends the line.
	switch strings.ToLower(name.Literal) {
	case "writeln":
		return &WritelnStmt{PosVal: name.Pos}, nil
	case "readln":
		return &ReadlnStmt{PosVal: name.Pos}, nil
	}
	return &ProcCall{PosVal: name.Pos, Name: name.Literal}, nil
}

// parseAssignmentValue parses ':=' Expr for an already-parsed target.
func (p *Parser) parseAssignmentValue(target *Variable) (*Assignment, error) {
	if _, err := p.expect(TokenAssign); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &Assignment{PosVal: target.PosVal, Target: target, Value: value}, nil
}

// parseArguments parses '(' [Expr {',' Expr}] ')'.
func (p *Parser) parseArguments() ([]Expr, error) {
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}

	var args []Expr
	if !p.curTokenIs(TokenRParen) {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		for p.curTokenIs(TokenComma) {
			p.nextToken()
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
	}

	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return args, nil
}

// ---------------------------------------------------------------------------
// Expressions (operator precedence)
// ---------------------------------------------------------------------------

// Relational and additive operators share the lowest, left-associative tier.
var simpleOps = []TokenType{
	TokenEqual, TokenNotEqual, TokenLess, TokenLessEqual, TokenGreater, TokenGreaterEqual,
	TokenPlus, TokenMinus, TokenOr,
}

var termOps = []TokenType{TokenStar, TokenSlash, TokenDiv, TokenMod, TokenAnd}

func (p *Parser) parseExpression() (Expr, error) {
	return p.parseSimpleExpression()
}

func (p *Parser) parseSimpleExpression() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.curTokenIn(simpleOps...) {
		op := p.nextToken()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{PosVal: left.Pos(), Op: op.Literal, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseTerm() (Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.curTokenIn(termOps...) {
		op := p.nextToken()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{PosVal: left.Pos(), Op: op.Literal, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseFactor() (Expr, error) {
	tok := p.cur()

	switch tok.Type {
	case TokenIntegerLit:
		p.nextToken()
		return &IntegerLiteral{PosVal: tok.Pos, Value: tok.IntVal}, nil

	case TokenRealLit:
		p.nextToken()
		return &RealLiteral{PosVal: tok.Pos, Value: tok.RealVal}, nil

	case TokenStringLit:
		p.nextToken()
		return &StringLiteral{PosVal: tok.Pos, Value: tok.Literal}, nil

	case TokenTrue, TokenFalse:
		p.nextToken()
		return &BooleanLiteral{PosVal: tok.Pos, Value: tok.Type == TokenTrue}, nil

	case TokenIdentifier:
		p.nextToken()
		switch {
		case p.curTokenIs(TokenLParen):
			args, err := p.parseArguments()
			if err != nil {
				return nil, err
			}
			return &FunctionCall{PosVal: tok.Pos, Name: tok.Literal, Args: args}, nil

		case p.curTokenIs(TokenLBracket):
			p.nextToken()
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenRBracket); err != nil {
				return nil, err
			}
			return &Variable{PosVal: tok.Pos, Name: tok.Literal, Index: index}, nil

		case p.curTokenIs(TokenDot) && p.peek(1).Type == TokenIdentifier:
			p.nextToken()
			field := p.nextToken()
			return &Variable{PosVal: tok.Pos, Name: tok.Literal, Field: field.Literal}, nil
		}
		return &Variable{PosVal: tok.Pos, Name: tok.Literal}, nil

	case TokenLParen:
		p.nextToken()
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return e, nil

	case TokenPlus, TokenMinus, TokenNot:
		p.nextToken()
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{PosVal: tok.Pos, Op: tok.Literal, Operand: operand}, nil
	}

	return nil, p.errorf("Unexpected token %s", tok.Type)
}

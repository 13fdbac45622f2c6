package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Token types for the Pascal lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota

	// Keywords
	TokenProgram
	TokenVar
	TokenBegin
	TokenEnd
	TokenIf
	TokenThen
	TokenElse
	TokenWhile
	TokenDo
	TokenFor
	TokenTo
	TokenDownto
	TokenRepeat
	TokenUntil
	TokenProcedure
	TokenFunction
	TokenInteger
	TokenReal
	TokenBoolean
	TokenChar
	TokenString
	TokenArray
	TokenOf
	TokenConst
	TokenTypeKw
	TokenRecord
	TokenCase
	TokenDiv
	TokenMod
	TokenAnd
	TokenOr
	TokenNot
	TokenTrue
	TokenFalse

	// Identifiers and literals
	TokenIdentifier
	TokenIntegerLit // 42
	TokenRealLit    // 3.14
	TokenStringLit  // 'hello', "hello"

	// Operators
	TokenPlus         // +
	TokenMinus        // -
	TokenStar         // *
	TokenSlash        // /
	TokenAssign       // :=
	TokenEqual        // =
	TokenNotEqual     // <>
	TokenLess         // <
	TokenLessEqual    // <=
	TokenGreater      // >
	TokenGreaterEqual // >=

	// Delimiters
	TokenSemicolon // ;
	TokenColon     // :
	TokenComma     // ,
	TokenDot       // .
	TokenDotDot    // ..
	TokenLParen    // (
	TokenRParen    // )
	TokenLBracket  // [
	TokenRBracket  // ]
)

var tokenNames = map[TokenType]string{
	TokenEOF:          "EOF",
	TokenProgram:      "PROGRAM",
	TokenVar:          "VAR",
	TokenBegin:        "BEGIN",
	TokenEnd:          "END",
	TokenIf:           "IF",
	TokenThen:         "THEN",
	TokenElse:         "ELSE",
	TokenWhile:        "WHILE",
	TokenDo:           "DO",
	TokenFor:          "FOR",
	TokenTo:           "TO",
	TokenDownto:       "DOWNTO",
	TokenRepeat:       "REPEAT",
	TokenUntil:        "UNTIL",
	TokenProcedure:    "PROCEDURE",
	TokenFunction:     "FUNCTION",
	TokenInteger:      "INTEGER",
	TokenReal:         "REAL",
	TokenBoolean:      "BOOLEAN",
	TokenChar:         "CHAR",
	TokenString:       "STRING",
	TokenArray:        "ARRAY",
	TokenOf:           "OF",
	TokenConst:        "CONST",
	TokenTypeKw:       "TYPE",
	TokenRecord:       "RECORD",
	TokenCase:         "CASE",
	TokenDiv:          "DIV",
	TokenMod:          "MOD",
	TokenAnd:          "AND",
	TokenOr:           "OR",
	TokenNot:          "NOT",
	TokenTrue:         "TRUE",
	TokenFalse:        "FALSE",
	TokenIdentifier:   "IDENTIFIER",
	TokenIntegerLit:   "INTEGER_LITERAL",
	TokenRealLit:      "REAL_LITERAL",
	TokenStringLit:    "STRING_LITERAL",
	TokenPlus:         "PLUS",
	TokenMinus:        "MINUS",
	TokenStar:         "MULTIPLY",
	TokenSlash:        "DIVIDE",
	TokenAssign:       "ASSIGN",
	TokenEqual:        "EQUAL",
	TokenNotEqual:     "NOT_EQUAL",
	TokenLess:         "LESS_THAN",
	TokenLessEqual:    "LESS_EQUAL",
	TokenGreater:      "GREATER_THAN",
	TokenGreaterEqual: "GREATER_EQUAL",
	TokenSemicolon:    "SEMICOLON",
	TokenColon:        "COLON",
	TokenComma:        "COMMA",
	TokenDot:          "DOT",
	TokenDotDot:       "DOTDOT",
	TokenLParen:       "LPAREN",
	TokenRParen:       "RPAREN",
	TokenLBracket:     "LBRACKET",
	TokenRBracket:     "RBRACKET",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// IsKeyword reports whether t is a reserved word.
func (t TokenType) IsKeyword() bool {
	return t >= TokenProgram && t <= TokenFalse
}

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token represents a lexical token.
//
// Literal holds the source text for operators, delimiters and identifiers,
// the lowercase spelling for keywords, and the unescaped contents for
// string literals. Numeric literals also carry their parsed value.
type Token struct {
	Type    TokenType
	Literal string
	IntVal  int64
	RealVal float64
	Pos     Position
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return fmt.Sprintf("Token(EOF, %s)", t.Pos)
	}
	lit := t.Literal
	if len(lit) > 20 {
		lit = lit[:20] + "..."
	}
	return fmt.Sprintf("Token(%s, %q, %s)", t.Type, lit, t.Pos)
}

// Reserved words mapped to their token types. Lookup is by lowercase name.
var keywords = map[string]TokenType{
	"program":   TokenProgram,
	"var":       TokenVar,
	"begin":     TokenBegin,
	"end":       TokenEnd,
	"if":        TokenIf,
	"then":      TokenThen,
	"else":      TokenElse,
	"while":     TokenWhile,
	"do":        TokenDo,
	"for":       TokenFor,
	"to":        TokenTo,
	"downto":    TokenDownto,
	"repeat":    TokenRepeat,
	"until":     TokenUntil,
	"procedure": TokenProcedure,
	"function":  TokenFunction,
	"integer":   TokenInteger,
	"real":      TokenReal,
	"boolean":   TokenBoolean,
	"char":      TokenChar,
	"string":    TokenString,
	"array":     TokenArray,
	"of":        TokenOf,
	"const":     TokenConst,
	"type":      TokenTypeKw,
	"record":    TokenRecord,
	"case":      TokenCase,
	"div":       TokenDiv,
	"mod":       TokenMod,
	"and":       TokenAnd,
	"or":        TokenOr,
	"not":       TokenNot,
	"true":      TokenTrue,
	"false":     TokenFalse,
}

// LookupKeyword returns the keyword token type for name, matched
// case-insensitively, or TokenIdentifier.
func LookupKeyword(name string) TokenType {
	if t, ok := keywords[strings.ToLower(name)]; ok {
		return t
	}
	return TokenIdentifier
}

// Keywords returns the reserved words in no particular order.
func Keywords() []string {
	out := make([]string, 0, len(keywords))
	for k := range keywords {
		out = append(out, k)
	}
	return out
}

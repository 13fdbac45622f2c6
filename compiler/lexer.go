package compiler

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for Pascal source
// ---------------------------------------------------------------------------

// eof is the sentinel value of ch once the input is exhausted.
const eof rune = -1

// LexError reports malformed input found while tokenizing.
type LexError struct {
	Pos Position
	Msg string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%s at %d:%d", e.Msg, e.Pos.Line, e.Pos.Column)
}

// Lexer tokenizes Pascal source code.
type Lexer struct {
	input   string
	pos     int  // offset of ch
	readPos int  // offset after ch
	ch      rune // current character, eof at end of input
	line    int  // line of ch (1-based)
	col     int  // column of ch (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   1,
	}
	l.load()
	return l
}

// load decodes the character at readPos into ch without touching line/col.
func (l *Lexer) load() {
	l.pos = l.readPos
	if l.readPos >= len(l.input) {
		l.ch = eof
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.readPos += size
}

// readChar consumes ch and moves to the next character.
func (l *Lexer) readChar() {
	if l.ch == eof {
		return
	}
	if l.ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.load()
}

// peekChar returns the character after ch without consuming anything.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// position returns the position of ch.
func (l *Lexer) position() Position {
	return Position{Offset: l.pos, Line: l.line, Column: l.col}
}

func (l *Lexer) errorf(pos Position, format string, args ...interface{}) error {
	return &LexError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// NextToken returns the next token. Once the input is exhausted it keeps
// returning an EOF token positioned at the end of the input.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespaceAndComments()

	pos := l.position()

	switch {
	case l.ch == eof:
		return Token{Type: TokenEOF, Pos: pos}, nil

	case isDigit(l.ch):
		return l.readNumber(pos)

	case isLetter(l.ch) || l.ch == '_':
		return l.readIdentifier(pos), nil

	case l.ch == '\'' || l.ch == '"':
		return l.readString(pos)
	}

	// Two-character operators take precedence over their one-character prefixes.
	if t, ok := twoCharOps[[2]rune{l.ch, l.peekChar()}]; ok {
		lit := l.input[l.pos : l.pos+2]
		l.readChar()
		l.readChar()
		return Token{Type: t, Literal: lit, Pos: pos}, nil
	}

	if t, ok := singleCharOps[l.ch]; ok {
		lit := string(l.ch)
		l.readChar()
		return Token{Type: t, Literal: lit, Pos: pos}, nil
	}

	return Token{}, l.errorf(pos, "Unexpected character '%c'", l.ch)
}

var twoCharOps = map[[2]rune]TokenType{
	{':', '='}: TokenAssign,
	{'<', '='}: TokenLessEqual,
	{'>', '='}: TokenGreaterEqual,
	{'<', '>'}: TokenNotEqual,
	{'.', '.'}: TokenDotDot,
}

var singleCharOps = map[rune]TokenType{
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenStar,
	'/': TokenSlash,
	'=': TokenEqual,
	'<': TokenLess,
	'>': TokenGreater,
	';': TokenSemicolon,
	':': TokenColon,
	',': TokenComma,
	'.': TokenDot,
	'(': TokenLParen,
	')': TokenRParen,
	'[': TokenLBracket,
	']': TokenRBracket,
}

// skipWhitespaceAndComments skips whitespace and the three comment forms:
// { ... }, (* ... *) and // to end of line. An unterminated block comment
// runs to the end of the input.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		switch {
		case l.ch == '{':
			for l.ch != '}' && l.ch != eof {
				l.readChar()
			}
			l.readChar()
			continue

		case l.ch == '(' && l.peekChar() == '*':
			l.readChar()
			l.readChar()
			for l.ch != eof {
				if l.ch == '*' && l.peekChar() == ')' {
					l.readChar()
					l.readChar()
					break
				}
				l.readChar()
			}
			continue

		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != eof {
				l.readChar()
			}
			continue
		}

		return
	}
}

// readNumber reads an integer or real literal. A '.' followed by another
// '.' ends the number so that "1..10" lexes as 1, .., 10.
func (l *Lexer) readNumber(pos Position) (Token, error) {
	start := l.pos
	isReal := false

	for isDigit(l.ch) || l.ch == '.' {
		if l.ch == '.' {
			if l.peekChar() == '.' {
				break
			}
			if isReal {
				return Token{}, l.errorf(l.position(), "Invalid number")
			}
			isReal = true
		}
		l.readChar()
	}

	text := l.input[start:l.pos]
	if isReal {
		v, err := strconv.ParseFloat(strings.TrimSuffix(text, "."), 64)
		if err != nil {
			return Token{}, l.errorf(pos, "Invalid number %q", text)
		}
		return Token{Type: TokenRealLit, Literal: text, RealVal: v, Pos: pos}, nil
	}

	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Token{}, l.errorf(pos, "Integer literal out of range %q", text)
	}
	return Token{Type: TokenIntegerLit, Literal: text, IntVal: v, Pos: pos}, nil
}

// readIdentifier reads an identifier or keyword. Keywords are normalized
// to lowercase; identifiers keep their original spelling.
func (l *Lexer) readIdentifier(pos Position) Token {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}

	literal := l.input[start:l.pos]
	typ := LookupKeyword(literal)
	if typ != TokenIdentifier {
		literal = strings.ToLower(literal)
	}
	return Token{Type: typ, Literal: literal, Pos: pos}
}

// readString reads a single- or double-quoted string. Backslash escapes
// \n, \t and \r are translated; any other escaped character stands for itself.
func (l *Lexer) readString(pos Position) (Token, error) {
	quote := l.ch
	l.readChar() // consume opening quote

	var sb strings.Builder
	for l.ch != quote && l.ch != eof {
		if l.ch == '\\' {
			l.readChar()
			if l.ch == eof {
				break
			}
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			default:
				sb.WriteRune(l.ch)
			}
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}

	if l.ch != quote {
		return Token{}, l.errorf(pos, "Unterminated string")
	}
	l.readChar() // consume closing quote

	return Token{Type: TokenStringLit, Literal: sb.String(), Pos: pos}, nil
}

// Helper functions

func isLetter(r rune) bool {
	return r != eof && unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Tokenize returns all tokens from the input, ending with exactly one EOF
// token, or the first lexical error.
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

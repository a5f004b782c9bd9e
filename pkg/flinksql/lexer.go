package flinksql

import (
	"strings"
	"unicode"
)

// Lexer tokenizes Flink SQL input.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)
	errors  []error
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// Errors returns the lexical errors seen so far.
func (l *Lexer) Errors() []error {
	return l.errors
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.col++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) currentPos() Position {
	return Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

func (l *Lexer) addError(pos Position, msg string) {
	l.errors = append(l.errors, &ParseError{Pos: pos, Message: msg})
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()
	if l.atEOF() {
		return Token{Type: TOKEN_EOF, Pos: pos}
	}

	var tok Token
	switch l.ch {
	case '.':
		tok = Token{Type: TOKEN_DOT, Literal: "."}
	case ',':
		tok = Token{Type: TOKEN_COMMA, Literal: ","}
	case ';':
		tok = Token{Type: TOKEN_SEMICOLON, Literal: ";"}
	case '(':
		tok = Token{Type: TOKEN_LPAREN, Literal: "("}
	case ')':
		tok = Token{Type: TOKEN_RPAREN, Literal: ")"}
	case '[':
		tok = Token{Type: TOKEN_LBRACKET, Literal: "["}
	case ']':
		tok = Token{Type: TOKEN_RBRACKET, Literal: "]"}
	case '\'':
		tok = Token{Type: TOKEN_STRING, Literal: l.readQuoted('\'', pos, "unterminated string literal"), Pos: pos}
		return tok
	case '`':
		tok = Token{Type: TOKEN_IDENT, Literal: l.readQuoted('`', pos, "unterminated quoted identifier"), Quoted: true, Pos: pos}
		return tok
	case '"':
		tok = Token{Type: TOKEN_IDENT, Literal: l.readQuoted('"', pos, "unterminated quoted identifier"), Quoted: true, Pos: pos}
		return tok
	case '+', '-', '*', '/', '%', '=', '<', '>', '!', '|', '^', '&', '~', ':', '?', '@', '$', '#', '{', '}':
		tok = Token{Type: TOKEN_OP, Literal: l.readOperator(), Pos: pos}
		return tok
	default:
		if isLetter(l.ch) || l.ch == '_' {
			lit := l.readIdentifier()
			return Token{Type: LookupIdent(strings.ToLower(lit)), Literal: lit, Pos: pos}
		}
		if isDigit(l.ch) {
			return Token{Type: TOKEN_NUMBER, Literal: l.readNumber(), Pos: pos}
		}
		tok = Token{Type: TOKEN_ILLEGAL, Literal: string(l.ch)}
	}

	tok.Pos = pos
	l.readChar()
	return tok
}

// skipWhitespaceAndComments skips whitespace and comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' {
			l.readChar()
		}

		if l.ch == '-' && l.peekChar() == '-' {
			l.skipLineComment()
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			l.skipBlockComment()
			continue
		}

		break
	}
}

func (l *Lexer) skipLineComment() {
	for l.ch != '\n' && !l.atEOF() {
		l.readChar()
	}
}

func (l *Lexer) skipBlockComment() {
	start := l.currentPos()
	l.readChar() // skip '/'
	l.readChar() // skip '*'

	for {
		if l.atEOF() {
			l.addError(start, "unterminated block comment")
			return
		}
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			return
		}
		l.readChar()
	}
}

// readQuoted reads a literal delimited by quote. A doubled quote is an escape:
// 'it''s' -> it's, `a``b` -> a`b.
func (l *Lexer) readQuoted(quote byte, start Position, unterminated string) string {
	l.readChar() // skip opening quote

	var result strings.Builder
	for {
		if l.atEOF() {
			l.addError(start, unterminated)
			break
		}
		if l.ch == quote {
			if l.peekChar() == quote {
				result.WriteByte(quote)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			break
		}
		// Backslash escapes inside string literals ('\'' is common in Flink DDL).
		if quote == '\'' && l.ch == '\\' && l.peekChar() == '\'' {
			result.WriteByte('\'')
			l.readChar()
			l.readChar()
			continue
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
	return result.String()
}

func (l *Lexer) readOperator() string {
	start := l.pos
	l.readChar()
	// Two-character operators: <= >= <> != || :: =>
	switch l.input[start] {
	case '=':
		if l.ch == '>' {
			l.readChar()
		}
	case '<':
		if l.ch == '=' || l.ch == '>' {
			l.readChar()
		}
	case '>', '!':
		if l.ch == '=' {
			l.readChar()
		}
	case '|':
		if l.ch == '|' {
			l.readChar()
		}
	case ':':
		if l.ch == ':' {
			l.readChar()
		}
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '$' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readNumber() string {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if l.ch == 'e' || l.ch == 'E' {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[start:l.pos]
}

func isLetter(ch byte) bool {
	return ch >= 0x80 || unicode.IsLetter(rune(ch))
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Tokenize returns all tokens from the input, excluding the trailing EOF,
// and the first lexical error if any.
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		if tok.Type == TOKEN_EOF {
			break
		}
		tokens = append(tokens, tok)
	}
	if errs := l.Errors(); len(errs) > 0 {
		return tokens, errs[0]
	}
	return tokens, nil
}

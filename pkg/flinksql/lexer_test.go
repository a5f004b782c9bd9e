package flinksql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	toks, err := Tokenize("SELECT `my table`.x, 'it''s' -- trailing\nFROM \"db\".t /* block */;")
	require.NoError(t, err)

	want := []struct {
		typ    TokenType
		lit    string
		quoted bool
	}{
		{TOKEN_SELECT, "SELECT", false},
		{TOKEN_IDENT, "my table", true},
		{TOKEN_DOT, ".", false},
		{TOKEN_IDENT, "x", false},
		{TOKEN_COMMA, ",", false},
		{TOKEN_STRING, "it's", false},
		{TOKEN_FROM, "FROM", false},
		{TOKEN_IDENT, "db", true},
		{TOKEN_DOT, ".", false},
		{TOKEN_IDENT, "t", false},
		{TOKEN_SEMICOLON, ";", false},
	}
	require.Len(t, toks, len(want))
	for i, w := range want {
		assert.Equal(t, w.typ, toks[i].Type, "token %d type", i)
		assert.Equal(t, w.lit, toks[i].Literal, "token %d literal", i)
		assert.Equal(t, w.quoted, toks[i].Quoted, "token %d quoted", i)
	}
}

func TestTokenize_Positions(t *testing.T) {
	toks, err := Tokenize("SELECT a\n  FROM b")
	require.NoError(t, err)
	require.Len(t, toks, 4)

	assert.Equal(t, Position{Line: 1, Column: 1, Offset: 0}, toks[0].Pos)
	assert.Equal(t, Position{Line: 1, Column: 8, Offset: 7}, toks[1].Pos)
	assert.Equal(t, Position{Line: 2, Column: 3, Offset: 11}, toks[2].Pos)
	assert.Equal(t, "2:8", toks[3].Pos.String())
}

func TestTokenize_Operators(t *testing.T) {
	toks, err := Tokenize("a <= b <> c || d => e")
	require.NoError(t, err)

	var ops []string
	for _, tok := range toks {
		if tok.Type == TOKEN_OP {
			ops = append(ops, tok.Literal)
		}
	}
	assert.Equal(t, []string{"<=", "<>", "||", "=>"}, ops)
}

func TestTokenize_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		msg   string
	}{
		{"unterminated string", "SELECT 'abc", "unterminated string literal"},
		{"unterminated backtick", "SELECT `abc", "unterminated quoted identifier"},
		{"unterminated block comment", "SELECT 1 /* never closed", "unterminated block comment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.input)
			require.Error(t, err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "expected *ParseError, got %T", err)
			assert.Equal(t, tt.msg, perr.Message)
		})
	}
}

func TestToken_Is(t *testing.T) {
	toks, err := Tokenize("distributed `with` WITH")
	require.NoError(t, err)
	require.Len(t, toks, 3)

	assert.True(t, toks[0].Is("DISTRIBUTED"), "plain identifiers match by text")
	assert.False(t, toks[1].Is("with"), "quoted identifiers never match words")
	assert.True(t, toks[2].Is("with"))
	assert.True(t, toks[2].IsKeyword())
	assert.False(t, toks[2].IsName())
}

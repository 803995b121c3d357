package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/ctaint/internal/token"
)

func types(toks []token.Token) []token.TokenType {
	out := make([]token.TokenType, 0, len(toks))
	for _, t := range toks {
		out = append(out, t.Type)
	}
	return out
}

func TestOperators(t *testing.T) {
	toks, err := Tokenize("a <<= b >> 2 && c->d ... x++ != --y ? 1 : 0;")
	require.NoError(t, err)
	assert.Equal(t, []token.TokenType{
		token.IDENT, token.SHL_ASSIGN, token.IDENT, token.SHR, token.INT, token.LOGICAL_AND,
		token.IDENT, token.ARROW, token.IDENT, token.ELLIPSIS, token.IDENT, token.INCREMENT,
		token.NOT_EQ, token.DECREMENT, token.IDENT, token.QUESTION, token.INT, token.COLON,
		token.INT, token.SEMICOLON, token.EOF,
	}, types(toks))
}

func TestNumberLiterals(t *testing.T) {
	tests := []struct {
		input   string
		typ     token.TokenType
		literal interface{}
	}{
		{"42", token.INT, uint64(42)},
		{"2147483648", token.LONG, uint64(2147483648)},
		{"0xffffffff", token.UINT, uint64(0xffffffff)},
		{"017", token.INT, uint64(15)},
		{"10u", token.UINT, uint64(10)},
		{"10L", token.LONG, uint64(10)},
		{"10UL", token.ULONG, uint64(10)},
		{"10ll", token.LONGLONG, uint64(10)},
		{"10ULL", token.ULONGLONG, uint64(10)},
		{"1.5", token.DOUBLE, 1.5},
		{"1.5f", token.FLOAT, 1.5},
		{"1e3", token.DOUBLE, 1000.0},
		{".25", token.DOUBLE, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			toks, err := Tokenize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, toks[0].Type)
			assert.Equal(t, tt.literal, toks[0].Literal)
		})
	}
}

func TestCharAndStringLiterals(t *testing.T) {
	toks, err := Tokenize(`'a' '\n' '\x41' '\101' "hi\tthere" "a" "b"`)
	require.NoError(t, err)
	require.Len(t, toks, 7)
	assert.Equal(t, int64('a'), toks[0].Literal)
	assert.Equal(t, int64('\n'), toks[1].Literal)
	assert.Equal(t, int64('A'), toks[2].Literal)
	assert.Equal(t, int64('A'), toks[3].Literal)
	assert.Equal(t, "hi\tthere", toks[4].Literal)
	assert.Equal(t, token.TokenType(token.STRING), toks[5].Type)
	assert.Equal(t, "ab", toks[5].Literal)
}

func TestComments(t *testing.T) {
	toks, err := Tokenize("a /* b \n c */ + // d\n e")
	require.NoError(t, err)
	assert.Equal(t, []token.TokenType{token.IDENT, token.PLUS, token.IDENT, token.EOF}, types(toks))
	assert.Equal(t, 3, toks[2].Line)
}

func TestDirectives(t *testing.T) {
	src := "#include <stdio.h>\n#define MAX(a, b) ((a) > (b) ? \\\n (a) : (b))\nint x;\n#define N 3"
	toks, err := Tokenize(src)
	require.NoError(t, err)
	assert.Equal(t, token.TokenType(token.HASH_DEFINE), toks[0].Type)
	assert.Equal(t, "MAX", toks[1].Lexeme)

	eol := -1
	for i, tok := range toks {
		if tok.Type == token.EOL {
			eol = i
			break
		}
	}
	require.NotEqual(t, -1, eol)
	assert.Equal(t, token.TokenType(token.INT_KW), toks[eol+1].Type)

	last := toks[len(toks)-2]
	assert.Equal(t, token.TokenType(token.EOL), last.Type, "define at end of input is still terminated")
}

func TestIllegal(t *testing.T) {
	_, err := Tokenize(`"unterminated`)
	assert.Error(t, err)
	_, err = Tokenize("a @ b")
	assert.Error(t, err)
}

func TestStream(t *testing.T) {
	toks, err := Tokenize("a + b")
	require.NoError(t, err)
	s := NewStream("t.c", toks)
	assert.Equal(t, token.TokenType(token.PLUS), s.PeekN(1).Type)
	start := s.Pos()
	assert.Equal(t, "a", s.Next().Lexeme)
	assert.Equal(t, "a", s.Prev().Lexeme)
	s.Next()
	s.Next()
	assert.Equal(t, token.TokenType(token.EOF), s.Next().Type)
	assert.Equal(t, token.TokenType(token.EOF), s.Next().Type, "EOF is sticky")
	s.Seek(start)
	assert.Equal(t, "a", s.Peek().Lexeme)
}

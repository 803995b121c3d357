package lexer

import (
	"github.com/funvibe/ctaint/internal/diagnostics"
	"github.com/funvibe/ctaint/internal/token"
)

// Tokenize lexes the whole input. Adjacent string literals are joined the
// way the C translation phases join them. The returned slice always ends
// with EOF.
func Tokenize(input string) ([]token.Token, error) {
	l := New(input)
	var toks []token.Token
	for {
		tok := l.NextToken()
		if tok.Type == token.ILLEGAL {
			msg, _ := tok.Literal.(string)
			return nil, diagnostics.NewError(diagnostics.ErrP007, tok, msg)
		}
		if tok.Type == token.STRING && len(toks) > 0 && toks[len(toks)-1].Type == token.STRING {
			prev := &toks[len(toks)-1]
			prev.Literal = prev.Literal.(string) + tok.Literal.(string)
			prev.Lexeme = prev.Lexeme + " " + tok.Lexeme
			continue
		}
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks, nil
		}
	}
}

// Stream is a cursor over a token slice. Positions are plain indices so the
// parser can rewind to re-run loop bodies and function bodies.
type Stream struct {
	File string
	toks []token.Token
	pos  int
}

func NewStream(file string, toks []token.Token) *Stream {
	if len(toks) == 0 || toks[len(toks)-1].Type != token.EOF {
		toks = append(toks, token.Token{Type: token.EOF})
	}
	return &Stream{File: file, toks: toks}
}

// Peek returns the current token without consuming it.
func (s *Stream) Peek() token.Token {
	return s.toks[s.pos]
}

// PeekN looks n tokens ahead; PeekN(0) == Peek().
func (s *Stream) PeekN(n int) token.Token {
	if s.pos+n >= len(s.toks) {
		return s.toks[len(s.toks)-1]
	}
	return s.toks[s.pos+n]
}

func (s *Stream) Next() token.Token {
	tok := s.toks[s.pos]
	if s.pos < len(s.toks)-1 {
		s.pos++
	}
	return tok
}

// Prev returns the most recently consumed token.
func (s *Stream) Prev() token.Token {
	if s.pos == 0 {
		return s.toks[0]
	}
	return s.toks[s.pos-1]
}

func (s *Stream) Pos() int { return s.pos }

func (s *Stream) Seek(pos int) { s.pos = pos }

// Slice returns the tokens in [from, to).
func (s *Stream) Slice(from, to int) []token.Token {
	return s.toks[from:to]
}

// Len is the number of tokens including the trailing EOF.
func (s *Stream) Len() int { return len(s.toks) }

// Fork returns an independent cursor over the same tokens, positioned at
// pos. Function and macro calls run on a fork so the caller's position is
// untouched.
func (s *Stream) Fork(pos int) *Stream {
	return &Stream{File: s.File, toks: s.toks, pos: pos}
}

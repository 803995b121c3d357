package evaluator

import (
	"github.com/funvibe/ctaint/internal/diagnostics"
	"github.com/funvibe/ctaint/internal/lexer"
	"github.com/funvibe/ctaint/internal/symbols"
	"github.com/funvibe/ctaint/internal/token"
)

// runMode says what the statement parser does with the code it reads.
// Everything except modeRun parses without side effects.
type runMode int

const (
	modeRun runMode = iota
	modeSkip
	modeReturn
	modeCaseSearch
	modeBreak
	modeContinue
	modeGoto
	modeDefaultSearch
)

func (m runMode) String() string {
	switch m {
	case modeRun:
		return "run"
	case modeSkip:
		return "skip"
	case modeReturn:
		return "return"
	case modeCaseSearch:
		return "case-search"
	case modeBreak:
		return "break"
	case modeContinue:
		return "continue"
	case modeGoto:
		return "goto"
	case modeDefaultSearch:
		return "default-search"
	}
	return "unknown"
}

// frame is the execution state of one function activation, or of the top
// level of a file.
type frame struct {
	in    *Interpreter
	s     *lexer.Stream
	env   *Environment
	types *symbols.TypeTable
	mode  runMode
	fn    *FuncDef
	ret   *Value // return slot, nil for void functions

	searchLabel string // goto target while mode == modeGoto
	freshGoto   bool   // a goto ran since the body was last rescanned
	caseValue   int64  // switch value while mode == modeCaseSearch

	locals  []local          // automatic variables of the open scopes
	carried map[string]carry // locals left by a goto, by declaration site
}

// local is an automatic variable and the site that declared it.
type local struct {
	site string
	b    *Value
}

// carry is the state of a local saved when a goto left its scope. A
// backward jump that declares the variable again gets it back.
type carry struct {
	data   []byte
	nonDet bool
	elem   []bool
}

func (in *Interpreter) newFrame(s *lexer.Stream, env *Environment, fn *FuncDef) *frame {
	return &frame{in: in, s: s, env: env, types: in.typeDefs, fn: fn}
}

func (f *frame) next() token.Token {
	t := f.s.Next()
	if t.Line > 0 {
		f.in.lastTok = t
		f.in.lastFile = f.s.File
	}
	return t
}

func (f *frame) peek() token.Token { return f.s.Peek() }

func (f *frame) peekType() token.TokenType { return f.s.Peek().Type }

// accept consumes the next token if it has type tt.
func (f *frame) accept(tt token.TokenType) bool {
	if f.s.Peek().Type == tt {
		f.next()
		return true
	}
	return false
}

func (f *frame) expect(tt token.TokenType) token.Token {
	t := f.next()
	if t.Type != tt {
		raise(diagnostics.ErrP005, t, string(tt), describe(t))
	}
	return t
}

func (f *frame) running() bool { return f.mode == modeRun }

// scope opens a block scope for variables, types and stack storage. The
// returned function closes it.
func (f *frame) scope() func() {
	env, types := f.env, f.types
	mark := f.in.Mem.Mark()
	n := len(f.locals)
	f.env = NewEnclosedEnvironment(env)
	f.types = types.Push(symbols.ScopeBlock)
	return func() {
		if f.mode == modeGoto {
			f.save(f.locals[n:])
		}
		f.locals = f.locals[:n]
		f.env, f.types = env, types
		f.in.Mem.Release(mark)
	}
}

func (f *frame) save(locals []local) {
	if f.carried == nil && len(locals) > 0 {
		f.carried = make(map[string]carry)
	}
	for _, l := range locals {
		data, err := f.in.Mem.Bytes(l.b.Addr, l.b.Typ.Size)
		if err != nil {
			continue
		}
		f.carried[l.site] = carry{
			data:   append([]byte(nil), data...),
			nonDet: l.b.NonDet,
			elem:   append([]bool(nil), l.b.ElemNonDet...),
		}
	}
}

// restore gives b the state carried for site while a goto searches for
// its label. It reports whether there was one.
func (f *frame) restore(site string, b *Value) bool {
	c, ok := f.carried[site]
	if !ok || f.mode != modeGoto {
		return false
	}
	data, err := f.in.Mem.Bytes(b.Addr, len(c.data))
	if err != nil {
		return false
	}
	copy(data, c.data)
	b.NonDet = c.nonDet
	if len(c.elem) > 0 {
		b.ElemNonDet = c.elem
	}
	return true
}

// temps runs fn with a checkpoint around the temporaries it allocates.
func (f *frame) temps(fn func()) {
	mark := f.in.Mem.Mark()
	defer f.in.Mem.Release(mark)
	fn()
}

// describe names a token for error messages.
func describe(t token.Token) string {
	switch t.Type {
	case token.EOF:
		return "end of file"
	case token.EOL:
		return "end of line"
	}
	if t.Lexeme != "" {
		return "'" + t.Lexeme + "'"
	}
	return string(t.Type)
}

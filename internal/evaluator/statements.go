package evaluator

import (
	"github.com/funvibe/ctaint/internal/ctype"
	"github.com/funvibe/ctaint/internal/diagnostics"
	"github.com/funvibe/ctaint/internal/token"
)

// runTopLevel executes a file: declarations, function definitions and
// macros are registered in order.
func (f *frame) runTopLevel() {
	for f.peekType() != token.EOF {
		f.parseStatement()
	}
	if f.mode == modeGoto {
		raise(diagnostics.ErrR010, f.s.Prev(), f.searchLabel)
	}
}

// parseStatement executes or skips one statement, depending on the mode.
// Control transfers (break, continue, return, goto) switch the mode and
// the enclosing statements react to it.
func (f *frame) parseStatement() {
	in := f.in
	tok := f.peek()
	if f.running() {
		in.Steps++
		in.checkpoint(f, tok, BranchNone)
	}

	switch tok.Type {
	case token.SEMICOLON:
		f.next()
	case token.EOF:
		raise(diagnostics.ErrP006, tok, "statement expected, got end of file")
	case token.LBRACE:
		f.next()
		f.block()
	case token.IF:
		f.ifStatement()
	case token.WHILE:
		f.whileStatement()
	case token.DO:
		f.doStatement()
	case token.FOR:
		f.forStatement()
	case token.SWITCH:
		f.switchStatement()
	case token.CASE:
		f.caseLabel()
	case token.DEFAULT:
		f.next()
		f.expect(token.COLON)
		if f.mode == modeDefaultSearch {
			f.mode = modeRun
		}
	case token.BREAK:
		f.next()
		f.expect(token.SEMICOLON)
		if f.running() {
			f.mode = modeBreak
		}
	case token.CONTINUE:
		f.next()
		f.expect(token.SEMICOLON)
		if f.running() {
			f.mode = modeContinue
		}
	case token.RETURN:
		f.returnStatement()
	case token.GOTO:
		f.next()
		label := f.expect(token.IDENT)
		f.expect(token.SEMICOLON)
		if f.running() {
			f.mode = modeGoto
			f.searchLabel = label.Lexeme
			f.freshGoto = true
			in.tracef("goto: %s", label.Lexeme)
		}
	case token.HASH_DEFINE:
		f.macroDefinition()
	case token.IDENT:
		if f.s.PeekN(1).Type == token.COLON {
			f.next()
			f.next()
			if f.mode == modeGoto && tok.Lexeme == f.searchLabel {
				f.mode = modeRun
			}
			return
		}
		if f.startsType(tok) {
			f.declaration()
			return
		}
		f.expressionStatement()
	default:
		if isTypeKeyword(tok.Type) {
			f.declaration()
			return
		}
		f.expressionStatement()
	}
}

// block runs statements up to "}" in a scope of their own; the cursor is
// after "{".
func (f *frame) block() {
	done := f.scope()
	defer done()
	for !f.accept(token.RBRACE) {
		if f.peekType() == token.EOF {
			raise(diagnostics.ErrP005, f.peek(), "}", "end of file")
		}
		f.parseStatement()
	}
}

// expressionStatement evaluates a comma separated expression list for
// its effects.
func (f *frame) expressionStatement() {
	f.temps(func() { f.exprList() })
	end := f.expect(token.SEMICOLON)
	f.in.checkpoint(f, end, BranchNone)
}

// exprList evaluates "a, b, c" left to right and returns the last value.
func (f *frame) exprList() *Value {
	for {
		v := f.mustExpression()
		if !f.accept(token.COMMA) {
			return v
		}
	}
}

func (f *frame) returnStatement() {
	tok := f.next()
	if !f.running() {
		if f.peekType() != token.SEMICOLON {
			f.temps(func() { f.exprList() })
		}
		f.expect(token.SEMICOLON)
		return
	}
	if f.peekType() != token.SEMICOLON {
		f.temps(func() {
			v := f.exprList()
			switch {
			case f.ret != nil:
				f.in.assign(tok, f.ret, v, false)
			case v.kind() != ctype.Void:
				raise(diagnostics.ErrT001, tok, v.Typ, f.in.Types.Base(ctype.Void))
			}
		})
	}
	f.expect(token.SEMICOLON)
	if f.fn != nil {
		f.in.returnFn = f.fn.Name
		f.in.checkpoint(f, tok, BranchNone)
		f.in.returnFn = ""
	}
	f.mode = modeReturn
}

// macroDefinition records "#define NAME body" or "#define NAME(a, b)
// body". A parameter list must follow the name without a space.
func (f *frame) macroDefinition() {
	f.next()
	name := f.expect(token.IDENT)
	m := &MacroDef{Name: name.Lexeme, Stream: f.s}
	if open := f.peek(); open.Type == token.LPAREN && open.Line == name.Line &&
		open.Column == name.Column+len(name.Lexeme) {
		f.next()
		m.HasParams = true
		if !f.accept(token.RPAREN) {
			for {
				m.Params = append(m.Params, f.expect(token.IDENT).Lexeme)
				if f.accept(token.RPAREN) {
					break
				}
				f.expect(token.COMMA)
			}
		}
	}
	m.Start = f.s.Pos()
	for t := f.next(); t.Type != token.EOL && t.Type != token.EOF; t = f.next() {
	}
	if !f.declaring() {
		return
	}
	f.env.Set(name.Lexeme, &Value{
		Typ:        f.in.Types.Base(ctype.Macro),
		Macro:      m,
		Ident:      name.Lexeme,
		ArrayIndex: -1,
		mem:        f.in.Mem,
	})
}

package evaluator

import (
	"github.com/funvibe/ctaint/internal/diagnostics"
	"github.com/funvibe/ctaint/internal/token"
)

// condition evaluates "(expr)" and reports the outcome to the statement
// hook. Outside run mode the expression is only parsed and the result is
// false.
func (f *frame) condition() bool {
	f.expect(token.LPAREN)
	truth := f.test()
	end := f.expect(token.RPAREN)
	f.report(end, truth)
	return truth
}

// test evaluates the controlling expression at the cursor.
func (f *frame) test() bool {
	var truth bool
	f.temps(func() {
		v := f.exprList()
		if f.running() {
			truth = v.Truth()
			if v.NonDet {
				f.in.tracef("nondet: branch on %s", v.Ident)
			}
		}
	})
	return truth
}

func (f *frame) report(tok token.Token, truth bool) {
	if !f.running() {
		return
	}
	branch := BranchFalse
	if truth {
		branch = BranchTrue
	}
	f.in.checkpoint(f, tok, branch)
}

// conditional runs the next statement when run holds and the frame is
// running. A running frame skips it otherwise; any other mode parses it
// in that mode so goto and case searches can descend into it.
func (f *frame) conditional(run bool) {
	if f.mode != modeRun || run {
		f.parseStatement()
		return
	}
	f.skipStatement()
}

// skipStatement parses one statement without effects.
func (f *frame) skipStatement() {
	saved := f.mode
	f.mode = modeSkip
	f.parseStatement()
	f.mode = saved
}

func (f *frame) ifStatement() {
	f.next()
	wasRunning := f.running()
	cond := f.condition()
	f.conditional(cond)
	if f.accept(token.ELSE) {
		f.conditional(wasRunning && !cond)
	}
}

// endLoop folds the mode after one loop body: continue resumes, break
// leaves the loop. It reports whether the loop may go on.
func (f *frame) endLoop() bool {
	switch f.mode {
	case modeContinue:
		f.mode = modeRun
	case modeBreak:
		f.mode = modeRun
		return false
	}
	return f.mode == modeRun
}

func (f *frame) whileStatement() {
	f.next()
	start := f.s.Pos()
	for {
		f.s.Seek(start)
		entered := f.running()
		cond := f.condition()
		f.conditional(cond)
		if !f.endLoop() || (entered && !cond) {
			return
		}
	}
}

func (f *frame) doStatement() {
	f.next()
	start := f.s.Pos()
	for {
		f.s.Seek(start)
		f.parseStatement()
		more := f.endLoop()
		f.expect(token.WHILE)
		if !more {
			f.skipped(func() { f.condition() })
			f.expect(token.SEMICOLON)
			return
		}
		cond := f.condition()
		f.expect(token.SEMICOLON)
		if !cond {
			return
		}
	}
}

// skipped runs fn in skip mode.
func (f *frame) skipped(fn func()) {
	saved := f.mode
	f.mode = modeSkip
	defer func() { f.mode = saved }()
	fn()
}

func (f *frame) forStatement() {
	f.next()
	f.expect(token.LPAREN)
	done := f.scope()
	defer done()

	if !f.accept(token.SEMICOLON) {
		if f.startsType(f.peek()) {
			f.declaration()
		} else {
			f.temps(func() { f.exprList() })
			f.expect(token.SEMICOLON)
		}
	}

	condPos := f.s.Pos()
	f.skipped(func() { f.forTest() })
	updatePos := f.s.Pos()
	f.skipped(func() { f.forUpdate() })
	bodyPos := f.s.Pos()
	f.skipStatement()
	endPos := f.s.Pos()
	defer f.s.Seek(endPos)

	cond := false
	if f.running() {
		f.s.Seek(condPos)
		cond = f.forTest()
	}
	for {
		f.s.Seek(bodyPos)
		entered := f.running()
		f.conditional(cond)
		if !f.endLoop() || (entered && !cond) {
			return
		}
		f.s.Seek(updatePos)
		f.forUpdate()
		f.s.Seek(condPos)
		cond = f.forTest()
		if !cond {
			return
		}
	}
}

// forTest evaluates the condition of a for loop up to ";". An empty
// condition holds.
func (f *frame) forTest() bool {
	if tok := f.peek(); f.accept(token.SEMICOLON) {
		f.report(tok, true)
		return true
	}
	truth := f.test()
	end := f.expect(token.SEMICOLON)
	f.report(end, truth)
	return truth
}

func (f *frame) forUpdate() {
	if f.accept(token.RPAREN) {
		return
	}
	f.temps(func() { f.exprList() })
	f.expect(token.RPAREN)
}

// switchStatement runs the body in case-search mode until a matching case
// label switches it to run. Without a match the body is searched again
// for the default label.
func (f *frame) switchStatement() {
	f.next()
	f.expect(token.LPAREN)
	var value int64
	f.temps(func() {
		v := f.exprList()
		if f.running() {
			if !v.kind().IsInteger() {
				raise(diagnostics.ErrT002, f.s.Prev(), "switch", v.Typ, v.Typ)
			}
			value = CoerceT[int64](v)
		}
	})
	f.expect(token.RPAREN)

	saved, savedValue := f.mode, f.caseValue
	defer func() { f.caseValue = savedValue }()
	switch saved {
	case modeRun:
	case modeGoto:
		f.parseStatement()
		if f.mode == modeBreak {
			f.mode = modeRun
		}
		return
	default:
		f.skipStatement()
		return
	}

	start := f.s.Pos()
	f.mode, f.caseValue = modeCaseSearch, value
	f.parseStatement()
	if f.mode == modeCaseSearch {
		end := f.s.Pos()
		f.s.Seek(start)
		f.mode = modeDefaultSearch
		f.parseStatement()
		f.s.Seek(end)
	}
	switch f.mode {
	case modeBreak, modeCaseSearch, modeDefaultSearch:
		f.mode = modeRun
	}
}

// caseLabel handles "case expr:". The label expression is a constant, so
// it is evaluated even while searching.
func (f *frame) caseLabel() {
	f.next()
	search := f.mode == modeCaseSearch
	var v int64
	if search {
		f.mode = modeRun
		v = f.constInt()
		f.mode = modeCaseSearch
	} else {
		f.constInt()
	}
	f.expect(token.COLON)
	if search && v == f.caseValue {
		f.mode = modeRun
	}
}

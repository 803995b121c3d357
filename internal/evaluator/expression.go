package evaluator

import (
	"github.com/funvibe/ctaint/internal/ctype"
	"github.com/funvibe/ctaint/internal/diagnostics"
	"github.com/funvibe/ctaint/internal/token"
)

// exprParser is the state of one expression evaluation: an operator
// precedence parser that executes operators as it reduces them.
type exprParser struct {
	f            *frame
	in           *Interpreter
	stack        evalStack
	prefixState  bool
	bracketPrec  int
	brackets     []token.TokenType
	ignorePrec   int // operators above this precedence are parsed but not run
	ternaryDepth int // open "?" whose ":" is still ahead
}

// parseExpression evaluates the expression at the cursor and stops in
// front of the first token that can't continue it. ok is false when there
// is no expression at all. The result is a temporary owned by the
// caller's checkpoint.
func (f *frame) parseExpression() (*Value, bool) {
	e := &exprParser{f: f, in: f.in, prefixState: true, ignorePrec: DeepPrecedence}
	first := f.peek()
	for e.step() {
	}
	e.collapse(0)
	if len(e.brackets) > 0 {
		raise(diagnostics.ErrP002, f.peek())
	}
	if e.stack.len() == 0 {
		return nil, false
	}
	v, ok := e.stack.popValue()
	if !ok || e.stack.len() > 0 {
		raise(diagnostics.ErrP001, f.peek(), describe(f.peek()))
	}
	if f.running() && e.in.cfg.Trace != nil {
		e.in.tracef("expr: line %d: %s = %s nondet=%t", first.Line, v.Typ, e.in.format(v), v.NonDet)
	}
	return v, true
}

// mustExpression is parseExpression for places where C requires one.
func (f *frame) mustExpression() *Value {
	v, ok := f.parseExpression()
	if !ok {
		raise(diagnostics.ErrP001, f.peek(), describe(f.peek()))
	}
	return v
}

// live reports whether leaves are evaluated: the frame runs and no
// short-circuit or ternary branch is being skipped.
func (e *exprParser) live() bool {
	return e.f.mode == modeRun && e.ignorePrec == DeepPrecedence
}

func (e *exprParser) push(v *Value) {
	e.stack.pushValue(v)
}

func (e *exprParser) pushPlaceholder() {
	e.stack.pushValue(e.in.placeholder())
}

// step consumes one token, or returns false in front of a token that
// ends the expression.
func (e *exprParser) step() bool {
	f := e.f
	tok := f.peek()
	switch {
	case tok.Type == token.COLON && e.ternaryDepth == 0:
		return false
	case isOperator(tok.Type):
		return e.operator(tok)
	case e.prefixState && f.startsType(tok):
		typ := f.parseTypeName()
		e.push(e.in.typeValue(typ))
		e.prefixState = false
		return true
	case tok.Type == token.IDENT:
		if !e.prefixState {
			raise(diagnostics.ErrP006, tok, "identifier not expected here")
		}
		f.next()
		e.identifier(tok)
		return true
	case token.IsLiteral(tok.Type):
		if !e.prefixState {
			raise(diagnostics.ErrP006, tok, "value not expected here")
		}
		f.next()
		e.prefixState = false
		if e.live() {
			e.push(e.in.constant(tok))
		} else {
			e.pushPlaceholder()
		}
		return true
	}
	return false
}

func (e *exprParser) operator(tok token.Token) bool {
	f := e.f
	p := precedences[tok.Type]
	if e.prefixState {
		switch {
		case tok.Type == token.LPAREN:
			f.next()
			if f.startsType(f.peek()) && !e.topIsSizeof() {
				e.cast(tok)
			} else {
				e.open(tok)
			}
		case tok.Type == token.RPAREN || tok.Type == token.RBRACKET:
			if e.stack.len() == 0 && len(e.brackets) == 0 {
				return false
			}
			raise(diagnostics.ErrP001, tok, describe(tok))
		case p.prefix != 0:
			f.next()
			e.stack.pushOp(tok, orderPrefix, e.bracketPrec+p.prefix)
		default:
			raise(diagnostics.ErrP003, tok, tok.Lexeme)
		}
		return true
	}

	switch {
	case p.postfix != 0:
		switch tok.Type {
		case token.RPAREN, token.RBRACKET:
			if len(e.brackets) == 0 {
				return false
			}
			f.next()
			e.close(tok)
		case token.QUESTION:
			f.next()
			e.question(tok)
		default:
			f.next()
			prec := e.bracketPrec + p.postfix
			e.collapse(prec)
			e.stack.pushOp(tok, orderPostfix, prec)
		}
	case p.infix != 0:
		f.next()
		prec := e.bracketPrec + p.infix
		if leftToRight(p.infix) {
			e.collapse(prec)
		} else {
			e.collapse(prec + 1)
		}
		switch tok.Type {
		case token.DOT, token.ARROW:
			e.member(tok)
		case token.LPAREN:
			e.callValue(tok)
		case token.LBRACKET:
			e.stack.pushOp(tok, orderInfix, prec)
			e.bracketPrec += BracketPrecedence
			e.brackets = append(e.brackets, token.LBRACKET)
			e.prefixState = true
		case token.COLON:
			e.colon(tok, prec)
		case token.LOGICAL_AND, token.LOGICAL_OR:
			e.shortCircuit(tok, prec)
		default:
			e.stack.pushOp(tok, orderInfix, prec)
			e.prefixState = true
		}
	default:
		raise(diagnostics.ErrP003, tok, tok.Lexeme)
	}
	return true
}

func (e *exprParser) topIsSizeof() bool {
	top := e.stack.top()
	return top != nil && top.order == orderPrefix && top.op == token.SIZEOF
}

func (e *exprParser) open(tok token.Token) {
	e.bracketPrec += BracketPrecedence
	e.brackets = append(e.brackets, token.LPAREN)
}

func (e *exprParser) close(tok token.Token) {
	want := token.TokenType(token.LPAREN)
	if tok.Type == token.RBRACKET {
		want = token.LBRACKET
	}
	n := len(e.brackets)
	if e.brackets[n-1] != want {
		raise(diagnostics.ErrP002, tok)
	}
	e.collapse(e.bracketPrec)
	e.brackets = e.brackets[:n-1]
	e.bracketPrec -= BracketPrecedence
}

// cast handles "(type)". The type becomes a value operand of an infix
// cast operator, so "(int)x" reduces like "T cast x".
func (e *exprParser) cast(open token.Token) {
	typ := e.f.parseTypeName()
	e.f.expect(token.RPAREN)
	prec := e.bracketPrec + castPrecedence
	e.collapse(prec + 1)
	e.push(e.in.typeValue(typ))
	e.stack.pushOp(token.Token{Type: token.CAST, Lexeme: "(" + typ.String() + ")", Line: open.Line, Column: open.Column},
		orderInfix, prec)
}

// question handles "?". Only a live true condition lets the then-branch
// run; otherwise the tokens up to the matching ":" are skipped and the
// else-branch is parsed in its place.
func (e *exprParser) question(tok token.Token) {
	prec := e.bracketPrec + precedences[token.QUESTION].postfix
	e.collapse(prec + 1)
	cond, ok := e.stack.popValue()
	if !ok {
		raise(diagnostics.ErrP001, tok, describe(tok))
	}
	if e.live() && cond.Truth() {
		e.ternaryDepth++
	} else {
		e.skipToColon()
	}
	e.prefixState = true
}

// colon ends a then-branch that ran: the else-branch is parsed with the
// watermark set so it has no effect.
func (e *exprParser) colon(tok token.Token, prec int) {
	e.stack.pushOp(tok, orderInfix, prec)
	if e.ignorePrec > prec {
		e.ignorePrec = prec
	}
	e.ternaryDepth--
	e.prefixState = true
}

func (e *exprParser) skipToColon() {
	depth, nest := 0, 0
	for {
		t := e.f.next()
		switch t.Type {
		case token.QUESTION:
			depth++
		case token.COLON:
			if depth > 0 {
				depth--
			} else if nest == 0 {
				return
			}
		case token.LPAREN, token.LBRACKET, token.LBRACE:
			nest++
		case token.RPAREN, token.RBRACKET, token.RBRACE:
			nest--
			if nest < 0 {
				raise(diagnostics.ErrP005, t, ":", describe(t))
			}
		case token.SEMICOLON, token.EOF, token.EOL:
			raise(diagnostics.ErrP005, t, ":", describe(t))
		}
	}
}

// shortCircuit pushes "&&" or "||" and, when the left operand already
// decides the result, raises the watermark so the right operand is parsed
// without effects.
func (e *exprParser) shortCircuit(tok token.Token, prec int) {
	if e.live() {
		if lhs := e.stack.top(); lhs != nil && lhs.order == orderNone {
			t := lhs.val.Truth()
			if (tok.Type == token.LOGICAL_AND && !t) || (tok.Type == token.LOGICAL_OR && t) {
				e.ignorePrec = prec
			}
		}
	}
	e.stack.pushOp(tok, orderInfix, prec)
	e.prefixState = true
}

func (e *exprParser) identifier(tok token.Token) {
	f := e.f
	e.prefixState = false
	if f.peekType() == token.LPAREN {
		f.next()
		e.callNamed(tok)
		return
	}
	if !e.live() {
		e.pushPlaceholder()
		return
	}
	b, ok := f.env.Get(tok.Lexeme)
	if !ok {
		raise(diagnostics.ErrR001, tok, tok.Lexeme)
	}
	if b.kind() == ctype.Macro {
		e.push(e.in.expandMacro(f, tok, b.Macro, nil))
		return
	}
	e.push(e.in.view(b))
}

func (e *exprParser) member(op token.Token) {
	name := e.f.next()
	if name.Type != token.IDENT {
		raise(diagnostics.ErrP004, name, describe(name))
	}
	agg, ok := e.stack.popValue()
	if !ok {
		raise(diagnostics.ErrP001, op, describe(op))
	}
	if !e.live() {
		e.pushPlaceholder()
		return
	}
	e.push(e.in.memberAccess(op, agg, name))
}

// callNamed parses "name(args)"; the cursor is after "(".
func (e *exprParser) callNamed(name token.Token) {
	run := e.live()
	var callee *Value
	if run {
		b, ok := e.f.env.Get(name.Lexeme)
		if !ok {
			raise(diagnostics.ErrR001, name, name.Lexeme)
		}
		callee = b
	}
	e.push(e.f.parseCall(name, callee, run))
}

// callValue parses "expr(args)", a call through a computed function
// value; the cursor is after "(".
func (e *exprParser) callValue(open token.Token) {
	callee, ok := e.stack.popValue()
	if !ok {
		raise(diagnostics.ErrP001, open, describe(open))
	}
	run := e.live()
	name := open
	name.Lexeme = callee.Ident
	if !run {
		callee = nil
	}
	e.push(e.f.parseCall(name, callee, run))
}

// collapse reduces every pending operator whose precedence is at least
// prec. Operators above the watermark consume their operands and leave
// the int 0 placeholder.
func (e *exprParser) collapse(prec int) {
	for {
		top := e.stack.top()
		if top == nil {
			return
		}
		opNode := top
		if top.order == orderNone {
			opNode = e.stack.below(1)
		} else if top.order != orderPostfix {
			return // prefix or infix operator still waiting for its operand
		}
		if opNode == nil || opNode.order == orderNone || opNode.prec < prec {
			return
		}
		found := opNode.prec
		run := e.f.mode == modeRun
		switch opNode.order {
		case orderPrefix:
			v, _ := e.stack.popValue()
			op := e.stack.pop()
			if run && found < e.ignorePrec {
				e.push(e.in.prefix(e.f, op.tok, v))
			} else {
				e.pushPlaceholder()
			}
		case orderPostfix:
			op := e.stack.pop()
			v, ok := e.stack.popValue()
			if !ok {
				raise(diagnostics.ErrP001, op.tok, describe(op.tok))
			}
			if run && found < e.ignorePrec {
				e.push(e.in.postfix(e.f, op.tok, v))
			} else {
				e.pushPlaceholder()
			}
		case orderInfix:
			t, _ := e.stack.popValue()
			op := e.stack.pop()
			b, ok := e.stack.popValue()
			if !ok {
				raise(diagnostics.ErrP001, op.tok, describe(op.tok))
			}
			if run && found <= e.ignorePrec {
				e.push(e.in.infix(e.f, op.tok, b, t))
			} else {
				e.pushPlaceholder()
			}
		}
		if found <= e.ignorePrec {
			e.ignorePrec = DeepPrecedence
		}
	}
}

// typeValue wraps a type as an operand of sizeof or a cast.
func (in *Interpreter) typeValue(t *ctype.Type) *Value {
	return &Value{Typ: in.Types.Base(ctype.TypeOfType), TypeVal: t, ArrayIndex: -1, mem: in.Mem}
}

// view is the value an identifier evaluates to: the binding's storage as
// an lvalue that remembers where it came from.
func (in *Interpreter) view(b *Value) *Value {
	v := *b
	v.LValueFrom = b
	v.ElemNonDet = nil
	v.ArrayRoot, v.ArrayIndex = nil, -1
	if b.Typ.Kind == ctype.Array {
		// the decayed address is deterministic; element reads consult
		// the binding's bitmap
		v.NonDet = false
	}
	return &v
}

// constant materializes a literal token.
func (in *Interpreter) constant(tok token.Token) *Value {
	switch tok.Type {
	case token.INT:
		return newScalar(in, ctype.Int, int32(tok.Literal.(uint64)))
	case token.UINT:
		return newScalar(in, ctype.UnsignedInt, uint32(tok.Literal.(uint64)))
	case token.LONG:
		return newScalar(in, ctype.Long, int64(tok.Literal.(uint64)))
	case token.ULONG:
		return newScalar(in, ctype.UnsignedLong, tok.Literal.(uint64))
	case token.LONGLONG:
		return newScalar(in, ctype.LongLong, int64(tok.Literal.(uint64)))
	case token.ULONGLONG:
		return newScalar(in, ctype.UnsignedLongLong, tok.Literal.(uint64))
	case token.FLOAT:
		return newScalar(in, ctype.Float, float32(tok.Literal.(float64)))
	case token.DOUBLE:
		return newScalar(in, ctype.Double, tok.Literal.(float64))
	case token.CHAR:
		return newScalar(in, ctype.Int, int32(tok.Literal.(int64)))
	case token.STRING:
		v := in.temp(in.Types.PointerTo(in.Types.Base(ctype.Char)))
		storeScalar(v, uint64(in.stringLiteral(tok.Literal.(string))))
		return v
	}
	raise(diagnostics.ErrP007, tok, tok.Lexeme)
	return nil
}

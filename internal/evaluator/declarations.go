package evaluator

import (
	"fmt"

	"github.com/funvibe/ctaint/internal/ctype"
	"github.com/funvibe/ctaint/internal/diagnostics"
	"github.com/funvibe/ctaint/internal/memory"
	"github.com/funvibe/ctaint/internal/symbols"
	"github.com/funvibe/ctaint/internal/token"
)

// declaring reports whether declarations create bindings in the current
// mode. Goto and case searches must see the variables of the code they
// jump into.
func (f *frame) declaring() bool {
	switch f.mode {
	case modeRun, modeGoto, modeCaseSearch, modeDefaultSearch:
		return true
	}
	return false
}

// define binds name in the innermost scope.
func (f *frame) define(name token.Token, v *Value) {
	if _, ok := f.env.GetLocal(name.Lexeme); ok {
		raise(diagnostics.ErrR002, name, name.Lexeme)
	}
	f.env.Set(name.Lexeme, v)
}

func (f *frame) global() bool {
	return f.fn == nil && f.env == f.in.globals
}

// declaration parses a declaration or a function definition; the cursor
// is at the first specifier.
func (f *frame) declaration() {
	ds, ok := f.parseSpecifiers()
	if !ok {
		raise(diagnostics.ErrP006, f.peek(), "declaration expected")
	}
	if f.accept(token.SEMICOLON) {
		return
	}
	for {
		d := f.parseDeclarator(ds.typ)
		if d.name.Type != token.IDENT {
			raise(diagnostics.ErrP004, f.peek(), describe(f.peek()))
		}
		switch {
		case ds.isTypedef:
			f.typedef(d)
		case d.fn != nil:
			if f.function(d) {
				return
			}
		default:
			f.variable(ds, d)
		}
		if !f.accept(token.COMMA) {
			break
		}
	}
	f.expect(token.SEMICOLON)
}

// typedef names a type in the current type scope. Typedefs are recorded
// in every mode so skipped code still parses.
func (f *frame) typedef(d declarator) {
	typ := d.typ
	if d.fn != nil {
		typ = f.in.Types.Base(ctype.FunctionPtr)
	}
	err := f.types.DefineTypedef(symbols.Symbol{
		Name: d.name.Lexeme,
		Type: typ,
		Kind: symbols.TypedefSymbol,
		File: f.s.File,
		Line: d.name.Line,
	})
	if err != nil {
		raise(diagnostics.ErrR002, d.name, d.name.Lexeme)
	}
}

// function registers a prototype or a definition. It reports whether a
// body followed, which ends the declaration.
func (f *frame) function(d declarator) bool {
	fn := &FuncDef{
		Name:       d.name.Lexeme,
		ReturnType: d.typ,
		Params:     d.fn.params,
		ParamNames: d.fn.names,
		VarArgs:    d.fn.varArgs,
	}
	body := f.peekType() == token.LBRACE
	if body {
		if f.fn != nil {
			raise(diagnostics.ErrP006, d.name, "nested function definition")
		}
		fn.Stream = f.s
		fn.Body = f.s.Pos()
		saved := f.mode
		f.mode = modeSkip
		f.parseStatement()
		f.mode = saved
	}
	if f.running() {
		f.in.defineFunc(d.name, fn)
	}
	return body
}

// defineFunc merges fn into the global function binding of its name. A
// definition fills in an earlier prototype in place so function pointers
// taken before stay valid, and it replaces a library intrinsic of the
// same name.
func (in *Interpreter) defineFunc(name token.Token, fn *FuncDef) {
	if b, ok := in.globals.GetLocal(fn.Name); ok {
		if b.kind() != ctype.Function {
			raise(diagnostics.ErrR002, name, fn.Name)
		}
		old := b.Func
		if fn.Stream == nil {
			return
		}
		if old.Stream != nil {
			raise(diagnostics.ErrR002, name, fn.Name)
		}
		id := old.ID
		*old = *fn
		old.ID = id
		delete(in.intrinsics, fn.Name)
		return
	}
	if fn.Stream == nil && in.cfg.NonDetSources != nil && in.cfg.NonDetSources.Match(fn.Name) {
		fn.Intrinsic = nondetSource
		in.tracef("nondet: %s() is a non-deterministic source", fn.Name)
	}
	in.registerFunc(fn)
	in.globals.Set(fn.Name, in.funcValue(fn))
}

func (in *Interpreter) funcValue(fn *FuncDef) *Value {
	return &Value{Typ: in.Types.Base(ctype.Function), Func: fn, Ident: fn.Name, ArrayIndex: -1, mem: in.Mem}
}

// variable declares one variable and runs its initializer. Variables
// declared without one are non-deterministic.
func (f *frame) variable(ds declSpec, d declarator) {
	in := f.in
	name := d.name
	typ := d.typ
	if typ.Kind == ctype.Void {
		raise(diagnostics.ErrT006, name, "can't define a void variable")
	}
	isConst := d.isConst || (ds.isConst && typ.Kind != ctype.Pointer)

	if !f.declaring() {
		if f.accept(token.ASSIGN) {
			f.skipInitializer()
		}
		return
	}

	global := f.global()
	if ds.isExtern {
		if _, ok := f.env.Get(name.Lexeme); ok {
			if f.accept(token.ASSIGN) {
				f.skipInitializer()
			}
			return
		}
	}

	var b *Value
	fresh := true
	switch {
	case ds.isStatic && !global:
		owner := ""
		if f.fn != nil {
			owner = f.fn.Name
		}
		key := fmt.Sprintf("%s:%d:%d:%s", owner, name.Line, name.Column, name.Lexeme)
		if s, ok := in.statics[key]; ok {
			b, fresh = s, false
		} else {
			b = in.newBinding(name.Lexeme, typ, memory.Static)
			in.statics[key] = b
		}
	case global:
		if g, ok := f.env.GetLocal(name.Lexeme); ok && g.kind() != ctype.Function && g.Typ == typ {
			// a tentative definition completed by a later one
			b, fresh = g, false
			f.env.Delete(name.Lexeme)
		} else {
			b = in.newBinding(name.Lexeme, typ, memory.Static)
		}
	default:
		b = in.newBinding(name.Lexeme, typ, memory.Stack)
		if f.fn != nil {
			site := fmt.Sprintf("%d:%d", name.Line, name.Column)
			fresh = !f.restore(site, b)
			f.locals = append(f.locals, local{site: site, b: b})
		}
	}
	f.define(name, b)

	if f.accept(token.ASSIGN) {
		if f.running() && (fresh || global) {
			f.temps(func() { f.initialize(name, b) })
		} else {
			f.skipInitializer()
		}
	} else if fresh {
		if f.running() && typ.Kind == ctype.Array && typ.ArraySize == 0 {
			raise(diagnostics.ErrT006, name, "array size missing in "+name.Lexeme)
		}
		if in.cfg.StrictNonDet || (!global && !ds.isStatic) {
			b.NonDet = true
		}
	}
	b.Const = isConst
}

// skipInitializer parses an initializer without effects.
func (f *frame) skipInitializer() {
	saved := f.mode
	f.mode = modeSkip
	defer func() { f.mode = saved }()
	if f.peekType() == token.LBRACE {
		f.skipBraces()
		return
	}
	f.mustExpression()
}

// initialize runs the initializer of b. The binding ends up with the
// initializer's taint: per element for arrays, as a whole otherwise.
func (f *frame) initialize(tok token.Token, b *Value) {
	if !f.accept(token.LBRACE) {
		v := f.mustExpression()
		f.in.assign(tok, b, v, false)
		return
	}
	nd := f.initList(tok, b)
	if b.kind() != ctype.Array {
		f.in.setTaint(b, nd)
	}
}

// initElement initializes one element or member and returns its taint.
func (f *frame) initElement(tok token.Token, el *Value) bool {
	if f.accept(token.LBRACE) {
		return f.initList(tok, el)
	}
	var nd bool
	f.temps(func() {
		v := f.mustExpression()
		f.in.assignValue(tok, el, v, true, false)
		nd = v.NonDet
	})
	return nd
}

// initList fills dst from a brace list; the cursor is after "{". An
// unsized array takes its size from the number of elements. It returns
// whether any element is non-deterministic.
func (f *frame) initList(tok token.Token, dst *Value) bool {
	in := f.in
	tainted := false
	switch dst.kind() {
	case ctype.Array:
		elem := dst.Typ.From
		if dst.Typ.ArraySize == 0 {
			in.resizeArray(dst, in.Types.ArrayOf(elem, f.countInitializers()))
		}
		for i := 0; !f.accept(token.RBRACE); i++ {
			if i >= dst.Typ.ArraySize {
				raise(diagnostics.ErrR004, f.peek(), i)
			}
			el := in.lvalueAt(dst.Addr.Add(int64(i*elem.Size)), elem, false)
			el.Ident = fmt.Sprintf("%s[%d]", dst.Ident, i)
			nd := f.initElement(tok, el)
			if el.ArrayRoot != nil && elem.Kind != ctype.Array {
				in.setTaint(el, nd)
			}
			tainted = tainted || nd
			if !f.accept(token.COMMA) {
				f.expect(token.RBRACE)
				break
			}
		}
	case ctype.Struct, ctype.Union:
		members := dst.Typ.Members
		for i := 0; !f.accept(token.RBRACE); i++ {
			if f.accept(token.DOT) {
				name := f.expect(token.IDENT)
				f.expect(token.ASSIGN)
				i = memberIndex(dst.Typ, name)
			}
			if i >= len(members) {
				raise(diagnostics.ErrT006, f.peek(), "too many initializers for "+dst.Typ.String())
			}
			m := members[i]
			el := in.lvalueAt(dst.Addr.Add(int64(m.Offset)), m.Type, false)
			el.BitField = m.BitField
			el.Ident = dst.Ident + "." + m.Name
			tainted = f.initElement(tok, el) || tainted
			if !f.accept(token.COMMA) {
				f.expect(token.RBRACE)
				break
			}
		}
	default:
		tainted = f.initElement(tok, dst)
		f.accept(token.COMMA)
		f.expect(token.RBRACE)
	}
	return tainted
}

func memberIndex(t *ctype.Type, name token.Token) int {
	for i, m := range t.Members {
		if m.Name == name.Lexeme {
			return i
		}
	}
	raise(diagnostics.ErrT004, name, t, name.Lexeme)
	return 0
}

// countInitializers counts the elements of the brace list at the cursor
// without consuming it.
func (f *frame) countInitializers() int {
	n, depth := 0, 0
	empty := true
	for i := 0; ; i++ {
		t := f.s.PeekN(i)
		switch t.Type {
		case token.EOF:
			raise(diagnostics.ErrP005, t, "}", describe(t))
		case token.LBRACE, token.LPAREN, token.LBRACKET:
			depth++
		case token.RPAREN, token.RBRACKET:
			depth--
		case token.RBRACE:
			if depth == 0 {
				if !empty {
					n++
				}
				return n
			}
			depth--
		case token.COMMA:
			if depth == 0 {
				n++
				empty = true
				continue
			}
		}
		empty = false
	}
}

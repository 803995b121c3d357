package evaluator

import (
	"github.com/funvibe/ctaint/internal/ctype"
	"github.com/funvibe/ctaint/internal/diagnostics"
	"github.com/funvibe/ctaint/internal/memory"
	"github.com/funvibe/ctaint/internal/token"
)

// declSpec is the specifier part of a declaration.
type declSpec struct {
	typ       *ctype.Type
	isStatic  bool
	isExtern  bool
	isTypedef bool
	isConst   bool
}

// funcSig is a parameter list.
type funcSig struct {
	params  []*ctype.Type
	names   []string
	varArgs bool
}

// declarator is one declared name with its full type.
type declarator struct {
	name    token.Token // zero for abstract declarators
	typ     *ctype.Type
	isConst bool
	fn      *funcSig // set for "name(params)"; typ is then the return type
}

func isTypeKeyword(t token.TokenType) bool {
	switch t {
	case token.VOID, token.CHAR_KW, token.SHORT, token.INT_KW, token.LONG_KW, token.FLOAT_KW,
		token.DOUBLE_KW, token.SIGNED, token.UNSIGNED, token.BOOL_KW, token.STRUCT, token.UNION,
		token.ENUM, token.CONST, token.VOLATILE, token.STATIC, token.EXTERN, token.TYPEDEF,
		token.REGISTER, token.AUTO, token.INLINE:
		return true
	}
	return false
}

// startsType reports whether tok begins a type: a type keyword or a
// typedef name.
func (f *frame) startsType(tok token.Token) bool {
	if isTypeKeyword(tok.Type) {
		return true
	}
	if tok.Type == token.IDENT {
		_, ok := f.types.Typedef(tok.Lexeme)
		return ok
	}
	return false
}

// parseSpecifiers reads declaration specifiers. ok is false when the
// cursor isn't at a type.
func (f *frame) parseSpecifiers() (ds declSpec, ok bool) {
	var (
		base             ctype.Kind = -1
		signed, unsigned bool
		short, long      int
		hasBase          bool
	)
	types := f.in.Types
loop:
	for {
		t := f.peek()
		switch t.Type {
		case token.CONST:
			ds.isConst = true
		case token.VOLATILE, token.REGISTER, token.AUTO, token.INLINE, token.RESTRICT:
		case token.STATIC:
			ds.isStatic = true
		case token.EXTERN:
			ds.isExtern = true
		case token.TYPEDEF:
			ds.isTypedef = true
		case token.SIGNED:
			signed, hasBase = true, true
		case token.UNSIGNED:
			unsigned, hasBase = true, true
		case token.SHORT:
			short++
			hasBase = true
		case token.LONG_KW:
			long++
			hasBase = true
		case token.INT_KW:
			base, hasBase = ctype.Int, true
		case token.CHAR_KW:
			base, hasBase = ctype.Char, true
		case token.FLOAT_KW:
			base, hasBase = ctype.Float, true
		case token.DOUBLE_KW:
			base, hasBase = ctype.Double, true
		case token.VOID:
			base, hasBase = ctype.Void, true
		case token.BOOL_KW:
			base, hasBase = ctype.UnsignedChar, true
		case token.STRUCT, token.UNION:
			f.next()
			kind := ctype.Struct
			if t.Type == token.UNION {
				kind = ctype.Union
			}
			ds.typ = f.parseAggregate(kind)
			hasBase = true
			continue
		case token.ENUM:
			f.next()
			ds.typ = f.parseEnum()
			hasBase = true
			continue
		case token.IDENT:
			if hasBase {
				break loop
			}
			td, isTypedef := f.types.Typedef(t.Lexeme)
			if !isTypedef {
				break loop
			}
			ds.typ = td
			hasBase = true
		default:
			break loop
		}
		f.next()
	}
	if !hasBase && !ds.isConst && !ds.isStatic && !ds.isExtern && !ds.isTypedef {
		return ds, false
	}
	if ds.typ != nil {
		return ds, true
	}
	var k ctype.Kind
	switch base {
	case ctype.Char:
		k = ctype.Char
		if unsigned {
			k = ctype.UnsignedChar
		}
	case ctype.Float, ctype.Void, ctype.UnsignedChar:
		k = base
	case ctype.Double:
		k = ctype.Double
	default:
		switch {
		case short > 0:
			k = ctype.Short
		case long >= 2:
			k = ctype.LongLong
		case long == 1:
			k = ctype.Long
		default:
			k = ctype.Int
		}
		if unsigned {
			k = k.Unsigned()
		}
	}
	_ = signed
	ds.typ = types.Base(k)
	return ds, true
}

// parseTypeName reads a type as it appears in casts and sizeof.
func (f *frame) parseTypeName() *ctype.Type {
	ds, ok := f.parseSpecifiers()
	if !ok {
		raise(diagnostics.ErrT006, f.peek(), "type expected, got "+describe(f.peek()))
	}
	d := f.parseDeclarator(ds.typ)
	if d.fn != nil {
		return f.in.Types.Base(ctype.FunctionPtr)
	}
	return d.typ
}

// parseDeclarator reads pointers, the declared name, array dimensions,
// a parameter list or a function pointer "(*name)(params)".
func (f *frame) parseDeclarator(base *ctype.Type) declarator {
	var d declarator
	types := f.in.Types
	typ := base
	for f.accept(token.ASTERISK) {
		typ = types.PointerTo(typ)
		for {
			if f.accept(token.CONST) {
				d.isConst = true
				continue
			}
			if f.accept(token.VOLATILE) || f.accept(token.RESTRICT) {
				continue
			}
			break
		}
	}

	if f.peekType() == token.LPAREN && f.s.PeekN(1).Type == token.ASTERISK {
		f.next()
		f.next()
		for f.accept(token.CONST) || f.accept(token.VOLATILE) {
		}
		if f.peekType() == token.IDENT {
			d.name = f.next()
		}
		dims := f.parseArrayDims()
		f.expect(token.RPAREN)
		if f.accept(token.LPAREN) {
			f.parseParams()
		}
		d.typ = applyDims(types, types.Base(ctype.FunctionPtr), dims)
		return d
	}

	if f.peekType() == token.IDENT {
		d.name = f.next()
	}
	if d.name.Type == token.IDENT && f.peekType() == token.LPAREN {
		f.next()
		sig := f.parseParams()
		d.fn = &sig
		d.typ = typ
		return d
	}
	d.typ = applyDims(types, typ, f.parseArrayDims())
	return d
}

func (f *frame) parseArrayDims() []int {
	var dims []int
	for f.accept(token.LBRACKET) {
		if f.accept(token.RBRACKET) {
			dims = append(dims, 0)
			continue
		}
		n := f.constInt()
		if n < 0 {
			raise(diagnostics.ErrT006, f.s.Prev(), "negative array size")
		}
		f.expect(token.RBRACKET)
		dims = append(dims, int(n))
	}
	return dims
}

// applyDims builds int a[2][3] as array 2 of array 3 of int.
func applyDims(types *ctype.Table, typ *ctype.Type, dims []int) *ctype.Type {
	for i := len(dims) - 1; i >= 0; i-- {
		typ = types.ArrayOf(typ, dims[i])
	}
	return typ
}

// parseParams reads a parameter list; the cursor is after "(". Array
// parameters decay to pointers.
func (f *frame) parseParams() funcSig {
	var sig funcSig
	if f.accept(token.RPAREN) {
		return sig
	}
	if f.peekType() == token.VOID && f.s.PeekN(1).Type == token.RPAREN {
		f.next()
		f.next()
		return sig
	}
	for {
		if f.accept(token.ELLIPSIS) {
			sig.varArgs = true
			f.expect(token.RPAREN)
			return sig
		}
		ds, ok := f.parseSpecifiers()
		if !ok {
			raise(diagnostics.ErrT006, f.peek(), "parameter type expected, got "+describe(f.peek()))
		}
		d := f.parseDeclarator(ds.typ)
		pt := d.typ
		switch {
		case d.fn != nil:
			pt = f.in.Types.Base(ctype.FunctionPtr)
		case pt.Kind == ctype.Array:
			pt = f.in.Types.PointerTo(pt.From)
		}
		sig.params = append(sig.params, pt)
		sig.names = append(sig.names, d.name.Lexeme)
		if f.accept(token.RPAREN) {
			return sig
		}
		f.expect(token.COMMA)
	}
}

// constInt evaluates an integer constant expression. Outside run mode it
// is parsed and yields 0.
func (f *frame) constInt() int64 {
	var n int64
	f.temps(func() {
		v := f.mustExpression()
		if f.running() {
			if !v.kind().IsInteger() {
				raise(diagnostics.ErrT006, f.s.Prev(), "integer constant expected")
			}
			n = CoerceT[int64](v)
		}
	})
	return n
}

// parseAggregate reads a struct or union specifier; the cursor is after
// the keyword.
func (f *frame) parseAggregate(kind ctype.Kind) *ctype.Type {
	types := f.in.Types
	tag := ""
	if f.peekType() == token.IDENT {
		tag = f.next().Lexeme
	}
	if f.peekType() != token.LBRACE {
		if tag == "" {
			raise(diagnostics.ErrP004, f.peek(), describe(f.peek()))
		}
		if t, ok := f.types.Tag(tag); ok {
			return t
		}
		t, err := f.types.DefineTag(kind, tag, types.NewAggregate(kind, tag))
		if err != nil {
			raise(diagnostics.ErrT006, f.s.Prev(), err.Error())
		}
		return t
	}

	var typ *ctype.Type
	if tag == "" {
		typ = types.NewAggregate(kind, "")
	} else {
		existing, ok := f.types.LocalTag(tag)
		if ok && existing.Complete {
			f.skipBraces()
			return existing
		}
		t, err := f.types.DefineTag(kind, tag, types.NewAggregate(kind, tag))
		if err != nil {
			raise(diagnostics.ErrT006, f.s.Prev(), err.Error())
		}
		typ = t
	}

	f.expect(token.LBRACE)
	for !f.accept(token.RBRACE) {
		ds, ok := f.parseSpecifiers()
		if !ok {
			raise(diagnostics.ErrT006, f.peek(), "member type expected, got "+describe(f.peek()))
		}
		for {
			d := f.parseDeclarator(ds.typ)
			mt := d.typ
			if d.fn != nil {
				mt = types.Base(ctype.FunctionPtr)
			}
			bits := 0
			if f.accept(token.COLON) {
				bits = int(f.constInt())
			}
			if _, err := typ.AddMember(d.name.Lexeme, mt, bits, ds.isConst || d.isConst); err != nil {
				raise(diagnostics.ErrT006, d.name, err.Error())
			}
			if !f.accept(token.COMMA) {
				break
			}
		}
		f.expect(token.SEMICOLON)
	}
	typ.Finish()
	return typ
}

// parseEnum reads an enum specifier; the cursor is after "enum". The
// enumerators become int constants in the current scope.
func (f *frame) parseEnum() *ctype.Type {
	types := f.in.Types
	tag := ""
	if f.peekType() == token.IDENT {
		tag = f.next().Lexeme
	}
	if f.peekType() != token.LBRACE {
		if t, ok := f.types.Tag(tag); ok && tag != "" {
			return t
		}
		return types.NewAggregate(ctype.Enum, tag)
	}
	typ := types.NewAggregate(ctype.Enum, tag)
	if tag != "" {
		if _, err := f.types.DefineTag(ctype.Enum, tag, typ); err != nil {
			raise(diagnostics.ErrT006, f.s.Prev(), err.Error())
		}
	}
	f.expect(token.LBRACE)
	next := int64(0)
	for !f.accept(token.RBRACE) {
		name := f.expect(token.IDENT)
		if f.accept(token.ASSIGN) {
			next = f.constInt()
		}
		if f.running() || f.mode == modeGoto {
			c := f.in.newBinding(name.Lexeme, types.Base(ctype.Int), memory.Static)
			storeScalar(c, int32(next))
			c.IsLValue, c.Const = false, true
			f.define(name, c)
		}
		next++
		if !f.accept(token.COMMA) {
			f.expect(token.RBRACE)
			break
		}
	}
	return typ
}

// skipBraces skips a balanced { ... } block starting at the cursor.
func (f *frame) skipBraces() {
	f.expect(token.LBRACE)
	depth := 1
	for depth > 0 {
		switch f.next().Type {
		case token.LBRACE:
			depth++
		case token.RBRACE:
			depth--
		case token.EOF:
			raise(diagnostics.ErrP005, f.peek(), "}", "end of file")
		}
	}
}

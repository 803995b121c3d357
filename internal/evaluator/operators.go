package evaluator

import (
	"github.com/funvibe/ctaint/internal/ctype"
	"github.com/funvibe/ctaint/internal/diagnostics"
	"github.com/funvibe/ctaint/internal/memory"
	"github.com/funvibe/ctaint/internal/token"
)

// infix executes a binary operator. bottom is the left operand.
func (in *Interpreter) infix(f *frame, tok token.Token, b, t *Value) *Value {
	switch tok.Type {
	case token.COLON:
		return b
	case token.LBRACKET:
		return in.index(tok, b, t)
	case token.CAST:
		return in.cast(tok, b.TypeVal, t)
	}

	if in.cfg.AssumptionMode {
		if tok.Type == token.ASSIGN && in.assuming {
			tok.Type = token.EQ
		}
		if tok.Type != token.ASSIGN {
			if r := in.resolveAssumption(tok, b, t); r != nil {
				return r
			}
		}
	}

	var res *Value
	bk, tk := b.kind(), t.kind()
	switch {
	case tok.Type == token.ASSIGN:
		in.assignValue(tok, b, t, false, false)
		res = in.copyValue(b)
	case classify(tok.Type) == classLogical:
		res = in.logical(tok, b, t)
	case b.isNumeric() && t.isNumeric():
		res = in.numericInfix(tok, b, t)
	case isPointerLike(bk) || isPointerLike(tk):
		res = in.pointerInfix(tok, b, t)
	case isFunctionLike(bk) || isFunctionLike(tk):
		res = in.functionInfix(tok, b, t)
	default:
		raise(diagnostics.ErrT002, tok, tok.Lexeme, b.Typ, t.Typ)
	}
	res.NonDet = in.propagate(tok, b, t)
	return res
}

func isPointerLike(k ctype.Kind) bool {
	return k == ctype.Pointer || k == ctype.Array
}

func isFunctionLike(k ctype.Kind) bool {
	return k == ctype.FunctionPtr || k == ctype.Function
}

// logical evaluates && and ||. Both sides are already evaluated; a right
// side skipped by the watermark arrives as the int 0 placeholder.
func (in *Interpreter) logical(tok token.Token, b, t *Value) *Value {
	for _, v := range []*Value{b, t} {
		if !v.isNumericOrPointer(true) && v.kind() != ctype.Array && v.kind() != ctype.Function {
			raise(diagnostics.ErrT002, tok, tok.Lexeme, b.Typ, t.Typ)
		}
	}
	if tok.Type == token.LOGICAL_AND {
		return newScalar(in, ctype.Int, boolInt(b.Truth() && t.Truth()))
	}
	return newScalar(in, ctype.Int, boolInt(b.Truth() || t.Truth()))
}

// checkArith rejects operators C doesn't define on floating operands.
func checkArith(tok token.Token, op token.TokenType, k ctype.Kind, b, t *Value) {
	if !k.IsFloat() {
		return
	}
	switch op {
	case token.PERCENT, token.AMPERSAND, token.BIT_OR, token.BIT_XOR, token.SHL, token.SHR:
		raise(diagnostics.ErrT002, tok, tok.Lexeme, b.Typ, t.Typ)
	}
}

func (in *Interpreter) numericInfix(tok token.Token, b, t *Value) *Value {
	op := tok.Type
	switch classify(op) {
	case classAssignment:
		a := arithOp(op)
		var tmp *Value
		if a == token.SHL || a == token.SHR {
			checkArith(tok, a, resultKind(b.kind(), t.kind()), b, t)
			tmp = in.shiftNumeric(shiftKind(b.kind()), a, b, t)
		} else {
			k := resultKind(b.kind(), t.kind())
			checkArith(tok, a, k, b, t)
			tmp = in.binaryNumeric(k, a, b, t)
		}
		assignFrom(b, tmp)
		return in.copyValue(b)
	case classComparison:
		k := resultKind(b.kind(), t.kind())
		return newScalar(in, ctype.Int, boolInt(in.compareNumeric(k, op, b, t)))
	case classShift:
		checkArith(tok, op, resultKind(b.kind(), t.kind()), b, t)
		return in.shiftNumeric(shiftKind(b.kind()), op, b, t)
	}
	k := resultKind(b.kind(), t.kind())
	checkArith(tok, op, k, b, t)
	return in.binaryNumeric(k, op, b, t)
}

// pointerAddr is the address a pointer-like operand designates.
func pointerAddr(v *Value) memory.Addr {
	if v.kind() == ctype.Array {
		return v.Addr
	}
	return v.Pointer()
}

// decayed is the pointer type a pointer-like operand has in arithmetic.
func (in *Interpreter) decayed(v *Value) *ctype.Type {
	if v.kind() == ctype.Array {
		return in.Types.PointerTo(v.Typ.From)
	}
	return v.Typ
}

// offsetPointer moves p by n elements. Arithmetic on NULL is a fault.
func (in *Interpreter) offsetPointer(tok token.Token, p *Value, n int64) *Value {
	addr := pointerAddr(p)
	if addr == memory.Null {
		raise(diagnostics.ErrR003, tok)
	}
	typ := in.decayed(p)
	r := in.temp(typ)
	storeScalar(r, uint64(addr.Add(n*int64(typ.ElemSize()))))
	return r
}

func (in *Interpreter) pointerInfix(tok token.Token, b, t *Value) *Value {
	op := tok.Type
	bp, tp := isPointerLike(b.kind()), isPointerLike(t.kind())
	bInt, tInt := b.kind().IsInteger(), t.kind().IsInteger()

	switch {
	case bp && tInt && (op == token.PLUS || op == token.MINUS):
		n := CoerceT[int64](t)
		if op == token.MINUS {
			n = -n
		}
		return in.offsetPointer(tok, b, n)
	case bInt && tp && op == token.PLUS:
		return in.offsetPointer(tok, t, CoerceT[int64](b))
	case bp && tp && op == token.MINUS:
		size := int64(in.decayed(b).ElemSize())
		diff := int64(pointerAddr(b)) - int64(pointerAddr(t))
		return newScalar(in, ctype.Long, diff/size)
	case b.kind() == ctype.Pointer && tInt && (op == token.ADD_ASSIGN || op == token.SUB_ASSIGN):
		n := CoerceT[int64](t)
		if op == token.SUB_ASSIGN {
			n = -n
		}
		moved := in.offsetPointer(tok, b, n)
		AssignT(b, CoerceT[uint64](moved), false)
		return in.copyValue(b)
	case classify(op) == classComparison && (bp || bInt) && (tp || tInt):
		x, y := uint64(pointerAddr(b)), uint64(pointerAddr(t))
		if bInt {
			x = CoerceT[uint64](b)
		}
		if tInt {
			y = CoerceT[uint64](t)
		}
		return newScalar(in, ctype.Int, boolInt(compareOp(op, x, y, false)))
	}
	raise(diagnostics.ErrT002, tok, tok.Lexeme, b.Typ, t.Typ)
	return nil
}

// funcID is the payload of a function or function pointer operand.
func funcID(v *Value) uint64 {
	if v.kind() == ctype.Function {
		if v.Func == nil {
			return 0
		}
		return v.Func.ID
	}
	if v.kind() == ctype.FunctionPtr || v.kind() == ctype.Pointer {
		return v.load(8)
	}
	return CoerceT[uint64](v)
}

func (in *Interpreter) functionInfix(tok token.Token, b, t *Value) *Value {
	if tok.Type != token.EQ && tok.Type != token.NOT_EQ {
		raise(diagnostics.ErrT002, tok, tok.Lexeme, b.Typ, t.Typ)
	}
	for _, v := range []*Value{b, t} {
		if !isFunctionLike(v.kind()) && !v.kind().IsInteger() && v.kind() != ctype.Pointer {
			raise(diagnostics.ErrT002, tok, tok.Lexeme, b.Typ, t.Typ)
		}
	}
	return newScalar(in, ctype.Int, boolInt(compareOp(tok.Type, funcID(b), funcID(t), false)))
}

// lvalueAt materializes the object of type typ stored at addr. The
// storage owner, when it is a binding, becomes LValueFrom; inside an
// array binding the element index is derived from the offset.
func (in *Interpreter) lvalueAt(addr memory.Addr, typ *ctype.Type, isConst bool) *Value {
	obj, err := in.Mem.Object(addr)
	if err != nil {
		memFault(err)
	}
	v := &Value{Typ: typ, Addr: addr, IsLValue: true, Const: isConst, ArrayIndex: -1, mem: in.Mem}
	owner, _ := obj.Owner.(*Value)
	if owner == nil {
		return v
	}
	v.LValueFrom = owner
	v.Ident = owner.Ident
	if unit := elemUnit(owner.Typ); owner.Typ.Kind == ctype.Array && unit > 0 {
		idx := (addr.Offset() - owner.Addr.Offset()) / unit
		v.ArrayRoot, v.ArrayIndex = owner, idx
		v.NonDet = owner.elemTaint(idx)
		if typ.Kind == ctype.Array {
			v.NonDet = owner.rangeTaint(idx, max(typ.Size/unit, 1))
		}
	} else {
		v.NonDet = owner.NonDet
	}
	return v
}

// index evaluates b[t] on arrays and pointers.
func (in *Interpreter) index(tok token.Token, b, t *Value) *Value {
	if !t.kind().IsInteger() {
		raise(diagnostics.ErrT002, tok, "[]", b.Typ, t.Typ)
	}
	i := CoerceT[int64](t)
	var base memory.Addr
	switch b.kind() {
	case ctype.Array:
		if b.Typ.ArraySize > 0 && (i < 0 || i >= int64(b.Typ.ArraySize)) {
			raise(diagnostics.ErrR004, tok, i)
		}
		base = b.Addr
	case ctype.Pointer:
		base = b.Pointer()
		if base == memory.Null {
			raise(diagnostics.ErrR003, tok)
		}
	default:
		raise(diagnostics.ErrT003, tok, "[]", b.Typ)
	}
	elem := b.Typ.From
	if elem == nil || elem.Kind == ctype.Void || elem.Size == 0 {
		raise(diagnostics.ErrT002, tok, "[]", b.Typ, t.Typ)
	}
	v := in.lvalueAt(base.Add(i*int64(elem.Size)), elem, b.Const && b.kind() == ctype.Array)
	if v.Ident == "" {
		v.Ident = b.Ident
	}
	v.NonDet = v.NonDet || t.NonDet || (b.kind() == ctype.Pointer && b.NonDet)
	return v
}

// memberAccess evaluates agg.name and agg->name.
func (in *Interpreter) memberAccess(op token.Token, agg *Value, name token.Token) *Value {
	var (
		base memory.Addr
		st   *ctype.Type
	)
	if op.Type == token.ARROW {
		if agg.kind() != ctype.Pointer || agg.Typ.From == nil ||
			(agg.Typ.From.Kind != ctype.Struct && agg.Typ.From.Kind != ctype.Union) {
			raise(diagnostics.ErrT003, op, "->", agg.Typ)
		}
		base = agg.Pointer()
		if base == memory.Null {
			raise(diagnostics.ErrR003, op)
		}
		st = agg.Typ.From
	} else {
		if agg.kind() != ctype.Struct && agg.kind() != ctype.Union {
			raise(diagnostics.ErrT003, op, ".", agg.Typ)
		}
		base = agg.Addr
		st = agg.Typ
	}
	m, ok := st.Member(name.Lexeme)
	if !ok {
		raise(diagnostics.ErrT004, name, st, name.Lexeme)
	}
	v := in.lvalueAt(base.Add(int64(m.Offset)), m.Type, m.Const || (op.Type == token.DOT && agg.Const))
	v.BitField = m.BitField
	v.Ident = agg.Ident + op.Lexeme + m.Name
	if op.Type == token.DOT {
		v.IsLValue = agg.IsLValue
		if v.LValueFrom == nil {
			v.NonDet = agg.NonDet
		}
	} else {
		v.NonDet = v.NonDet || agg.NonDet
	}
	return v
}

// cast converts v to typ by forced assignment with pointer coercion.
func (in *Interpreter) cast(tok token.Token, typ *ctype.Type, v *Value) *Value {
	if typ.Kind == ctype.Void {
		return in.temp(typ)
	}
	r := in.temp(typ)
	in.assignValue(tok, r, v, true, true)
	r.NonDet = v.NonDet
	return r
}

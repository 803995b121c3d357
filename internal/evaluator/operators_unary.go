package evaluator

import (
	"github.com/funvibe/ctaint/internal/ctype"
	"github.com/funvibe/ctaint/internal/diagnostics"
	"github.com/funvibe/ctaint/internal/memory"
	"github.com/funvibe/ctaint/internal/token"
)

// convert returns v converted to kind k, keeping its taint.
func (in *Interpreter) convert(v *Value, k ctype.Kind) *Value {
	r := in.temp(in.Types.Base(k))
	storeFrom(r, v)
	r.NonDet = v.NonDet
	return r
}

func (in *Interpreter) prefix(f *frame, tok token.Token, v *Value) *Value {
	switch tok.Type {
	case token.AMPERSAND:
		return in.addressOf(tok, v)
	case token.ASTERISK:
		return in.deref(tok, v)
	case token.SIZEOF:
		size := v.Typ.Size
		if v.kind() == ctype.TypeOfType {
			size = v.TypeVal.Size
		}
		return newScalar(in, ctype.UnsignedLong, uint64(size))
	case token.INCREMENT, token.DECREMENT:
		return in.step(tok, v, false)
	case token.BANG:
		if !v.isNumericOrPointer(true) && v.kind() != ctype.Array {
			raise(diagnostics.ErrT002, tok, tok.Lexeme, v.Typ, v.Typ)
		}
		r := newScalar(in, ctype.Int, boolInt(!v.Truth()))
		r.NonDet = v.NonDet
		return r
	}

	if !v.isNumeric() {
		raise(diagnostics.ErrT002, tok, tok.Lexeme, v.Typ, v.Typ)
	}
	k := promote(v.kind())
	var r *Value
	switch tok.Type {
	case token.PLUS:
		r = in.convert(v, k)
	case token.MINUS:
		if k.IsFloat() {
			r = newScalar(in, k, -v.Float64())
			break
		}
		zero := newScalar(in, ctype.Int, int32(0))
		r = in.binaryNumeric(k, token.MINUS, zero, v)
	case token.TILDE:
		if !k.IsInteger() {
			raise(diagnostics.ErrT002, tok, tok.Lexeme, v.Typ, v.Typ)
		}
		ones := newScalar(in, ctype.Int, int32(-1))
		r = in.binaryNumeric(k, token.BIT_XOR, v, ones)
	default:
		raise(diagnostics.ErrP003, tok, tok.Lexeme)
	}
	r.NonDet = v.NonDet
	return r
}

func (in *Interpreter) postfix(f *frame, tok token.Token, v *Value) *Value {
	switch tok.Type {
	case token.INCREMENT, token.DECREMENT:
		return in.step(tok, v, true)
	}
	raise(diagnostics.ErrP003, tok, tok.Lexeme)
	return nil
}

// step implements ++ and --. The arithmetic happens in the operand's own
// kind; pointers move by their element size. post selects the value
// before the update as the result.
func (in *Interpreter) step(tok token.Token, v *Value, post bool) *Value {
	delta := int64(1)
	if tok.Type == token.DECREMENT {
		delta = -1
	}
	var r *Value
	switch k := v.kind(); {
	case k == ctype.Pointer:
		if v.Pointer() == memory.Null {
			raise(diagnostics.ErrR003, tok)
		}
		old := in.copyValue(v)
		moved := in.offsetPointer(tok, v, delta)
		AssignT(v, CoerceT[uint64](moved), false)
		r = in.copyValue(v)
		if post {
			r = old
		}
	case k.IsInteger():
		r = in.temp(v.Typ)
		switch k {
		case ctype.Int:
			storeScalar(r, AssignT(v, CoerceT[int32](v)+int32(delta), post))
		case ctype.Short:
			storeScalar(r, AssignT(v, CoerceT[int16](v)+int16(delta), post))
		case ctype.Char:
			storeScalar(r, AssignT(v, CoerceT[int8](v)+int8(delta), post))
		case ctype.Long, ctype.LongLong:
			storeScalar(r, AssignT(v, CoerceT[int64](v)+delta, post))
		case ctype.UnsignedInt:
			storeScalar(r, AssignT(v, CoerceT[uint32](v)+uint32(delta), post))
		case ctype.UnsignedShort:
			storeScalar(r, AssignT(v, CoerceT[uint16](v)+uint16(delta), post))
		case ctype.UnsignedChar:
			storeScalar(r, AssignT(v, CoerceT[uint8](v)+uint8(delta), post))
		default:
			storeScalar(r, AssignT(v, CoerceT[uint64](v)+uint64(delta), post))
		}
	case k == ctype.Float:
		r = in.temp(v.Typ)
		storeScalar(r, AssignT(v, CoerceT[float32](v)+float32(delta), post))
	case k == ctype.Double:
		r = in.temp(v.Typ)
		storeScalar(r, AssignT(v, CoerceT[float64](v)+float64(delta), post))
	default:
		raise(diagnostics.ErrT002, tok, tok.Lexeme, v.Typ, v.Typ)
	}
	r.NonDet = v.NonDet
	r.Ident = v.Ident
	return r
}

// addressOf evaluates &v.
func (in *Interpreter) addressOf(tok token.Token, v *Value) *Value {
	switch v.kind() {
	case ctype.Function:
		r := in.temp(in.Types.Base(ctype.FunctionPtr))
		storeScalar(r, v.Func.ID)
		return r
	case ctype.TypeOfType, ctype.Macro, ctype.GotoLabel:
		raise(diagnostics.ErrT002, tok, tok.Lexeme, v.Typ, v.Typ)
	}
	if !v.IsLValue {
		raise(diagnostics.ErrL001, tok)
	}
	if v.BitField > 0 {
		raise(diagnostics.ErrT006, tok, "can't take the address of a bit-field")
	}
	r := in.temp(in.Types.PointerTo(v.Typ))
	storeScalar(r, uint64(v.Addr))
	r.Ident = v.Ident
	return r
}

// deref evaluates *v.
func (in *Interpreter) deref(tok token.Token, v *Value) *Value {
	switch v.kind() {
	case ctype.Function:
		return v
	case ctype.FunctionPtr:
		fn := in.funcByID(v.load(8), tok)
		r := &Value{Typ: in.Types.Base(ctype.Function), Func: fn, Ident: fn.Name, ArrayIndex: -1, mem: in.Mem}
		return r
	case ctype.Array:
		return in.index(tok, v, newScalar(in, ctype.Int, int32(0)))
	case ctype.Pointer:
	default:
		raise(diagnostics.ErrT002, tok, tok.Lexeme, v.Typ, v.Typ)
	}
	addr := v.Pointer()
	if addr == memory.Null {
		raise(diagnostics.ErrR003, tok)
	}
	elem := v.Typ.From
	if elem == nil || elem.Kind == ctype.Void {
		raise(diagnostics.ErrT002, tok, tok.Lexeme, v.Typ, v.Typ)
	}
	r := in.lvalueAt(addr, elem, false)
	if r.Ident == "" {
		r.Ident = "*" + v.Ident
	}
	r.NonDet = r.NonDet || v.NonDet
	return r
}

package evaluator

import (
	"github.com/funvibe/ctaint/internal/ctype"
	"github.com/funvibe/ctaint/internal/diagnostics"
	"github.com/funvibe/ctaint/internal/memory"
	"github.com/funvibe/ctaint/internal/token"
)

// assignValue stores src into dst converted to dst's type. force skips
// the lvalue and const checks, for storage the interpreter initializes
// itself. allowCoerce lets pointers, integers and function pointers
// convert into each other as casts do. Taint is left to the caller.
func (in *Interpreter) assignValue(tok token.Token, dst, src *Value, force, allowCoerce bool) {
	if !force {
		if !dst.IsLValue {
			raise(diagnostics.ErrL001, tok)
		}
		if dst.Const {
			raise(diagnostics.ErrL002, tok, dst.Ident)
		}
	}
	switch k := dst.kind(); {
	case k.IsNumeric():
		if !src.isNumericOrPointer(allowCoerce) {
			raise(diagnostics.ErrT001, tok, src.Typ, dst.Typ)
		}
		storeFrom(dst, src)
	case k == ctype.Pointer:
		in.assignPointer(tok, dst, src, allowCoerce)
	case k == ctype.FunctionPtr:
		sk := src.kind()
		switch {
		case isFunctionLike(sk):
			storeScalar(dst, funcID(src))
		case sk.IsInteger() && (allowCoerce || CoerceT[int64](src) == 0):
			storeScalar(dst, CoerceT[uint64](src))
		case sk == ctype.Pointer && src.Pointer() == memory.Null:
			storeScalar(dst, uint64(0))
		default:
			raise(diagnostics.ErrT001, tok, src.Typ, dst.Typ)
		}
	case k == ctype.Struct || k == ctype.Union:
		if src.Typ != dst.Typ {
			raise(diagnostics.ErrT001, tok, src.Typ, dst.Typ)
		}
		if err := in.Mem.Copy(dst.Addr, src.Addr, dst.Typ.Size); err != nil {
			memFault(err)
		}
	case k == ctype.Array:
		in.assignArray(tok, dst, src)
	default:
		raise(diagnostics.ErrT001, tok, src.Typ, dst.Typ)
	}
}

// assign is the forced assignment of declarations, parameters, return
// values and casts: the destination inherits the source's taint.
func (in *Interpreter) assign(tok token.Token, dst, src *Value, allowCoerce bool) {
	in.assignValue(tok, dst, src, true, allowCoerce)
	if !in.assuming {
		in.setTaint(dst, src.NonDet)
	}
}

// assignPointer ignores pointee types: any object pointer converts,
// arrays decay and 0 is the null pointer. Other integers need coercion.
func (in *Interpreter) assignPointer(tok token.Token, dst, src *Value, allowCoerce bool) {
	switch sk := src.kind(); {
	case sk == ctype.Pointer:
		storeScalar(dst, uint64(src.Pointer()))
	case sk == ctype.Array:
		storeScalar(dst, uint64(src.Addr))
	case sk.IsInteger():
		x := CoerceT[uint64](src)
		if x != 0 && !allowCoerce {
			raise(diagnostics.ErrT001, tok, src.Typ, dst.Typ)
		}
		storeScalar(dst, x)
	case isFunctionLike(sk) && allowCoerce:
		storeScalar(dst, funcID(src))
	default:
		raise(diagnostics.ErrT001, tok, src.Typ, dst.Typ)
	}
}

// assignArray initializes an array from an array of the same element
// type or a char array from a string. An unsized destination takes the
// source's size.
func (in *Interpreter) assignArray(tok token.Token, dst, src *Value) {
	elem := dst.Typ.From
	switch {
	case src.kind() == ctype.Array && src.Typ.From == elem:
		if dst.Typ.ArraySize == 0 {
			in.resizeArray(dst, src.Typ)
		}
		n := src.Typ.Size
		if n > dst.Typ.Size {
			n = dst.Typ.Size
		}
		if err := in.Mem.Copy(dst.Addr, src.Addr, n); err != nil {
			memFault(err)
		}
	case (elem.Kind == ctype.Char || elem.Kind == ctype.UnsignedChar) &&
		src.kind() == ctype.Pointer && src.Typ.From != nil && src.Typ.From.Size == 1:
		s, err := in.Mem.CString(src.Pointer())
		if err != nil {
			memFault(err)
		}
		if dst.Typ.ArraySize == 0 {
			in.resizeArray(dst, in.Types.ArrayOf(elem, len(s)+1))
		}
		data := append([]byte(s), 0)
		if len(data) > dst.Typ.Size {
			data = data[:dst.Typ.Size]
		}
		b, err := in.Mem.Bytes(dst.Addr, len(data))
		if err != nil {
			memFault(err)
		}
		copy(b, data)
	default:
		raise(diagnostics.ErrT001, tok, src.Typ, dst.Typ)
	}
}

// resizeArray gives an unsized array binding its final type and storage.
func (in *Interpreter) resizeArray(dst *Value, t *ctype.Type) {
	if err := in.Mem.Resize(dst.Addr, t.Size); err != nil {
		memFault(err)
	}
	dst.Typ = t
	if dst.LValueFrom != nil {
		dst.LValueFrom.Typ = t
	}
}

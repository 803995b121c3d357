package evaluator

import (
	"math"

	"github.com/funvibe/ctaint/internal/ctype"
	"github.com/funvibe/ctaint/internal/diagnostics"
	"github.com/funvibe/ctaint/internal/token"
)

// Scalar is the closed set of Go types a C scalar payload can be read as.
type Scalar interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

// CoerceT reads the payload of v as T. The value's kind selects the
// storage width and signedness; the conversion to T follows Go's numeric
// conversion rules, which match C's for the LP64 kinds. Pointers and
// function pointers read as their address or function id, arrays as the
// address of their first element, everything else as 0.
func CoerceT[T Scalar](v *Value) T {
	switch v.kind() {
	case ctype.Int:
		return T(int32(v.load(4)))
	case ctype.Short:
		return T(int16(v.load(2)))
	case ctype.Char:
		return T(int8(v.load(1)))
	case ctype.Long, ctype.LongLong:
		return T(int64(v.load(8)))
	case ctype.UnsignedInt:
		return T(uint32(v.load(4)))
	case ctype.UnsignedShort:
		return T(uint16(v.load(2)))
	case ctype.UnsignedChar:
		return T(uint8(v.load(1)))
	case ctype.UnsignedLong, ctype.UnsignedLongLong:
		return T(v.load(8))
	case ctype.Float:
		return T(math.Float32frombits(uint32(v.load(4))))
	case ctype.Double:
		return T(math.Float64frombits(v.load(8)))
	case ctype.Pointer, ctype.FunctionPtr:
		return T(v.load(8))
	case ctype.Array:
		return T(uint64(v.Addr))
	}
	return 0
}

// storeScalar writes x into v's payload converted to v's kind. It does no
// lvalue or const checking.
func storeScalar[T Scalar](v *Value, x T) {
	switch v.kind() {
	case ctype.Int:
		v.store(4, uint64(uint32(int32(x))))
	case ctype.Short:
		v.store(2, uint64(uint16(int16(x))))
	case ctype.Char:
		v.store(1, uint64(uint8(int8(x))))
	case ctype.Long, ctype.LongLong:
		v.store(8, uint64(int64(x)))
	case ctype.UnsignedInt:
		v.store(4, uint64(uint32(x)))
	case ctype.UnsignedShort:
		v.store(2, uint64(uint16(x)))
	case ctype.UnsignedChar:
		v.store(1, uint64(uint8(x)))
	case ctype.UnsignedLong, ctype.UnsignedLongLong, ctype.Pointer, ctype.FunctionPtr:
		v.store(8, uint64(x))
	case ctype.Float:
		v.store(4, uint64(math.Float32bits(float32(x))))
	case ctype.Double:
		v.store(8, math.Float64bits(float64(x)))
	}
}

// AssignT writes x into the lvalue v. With post set it returns the value
// held before the write (x++ semantics), otherwise the value now stored,
// which differs from x when the destination narrows or is a bit-field.
func AssignT[T Scalar](v *Value, x T, post bool) T {
	if !v.IsLValue {
		panic(diagnostics.NewError(diagnostics.ErrL001, token.Token{}))
	}
	if v.Const {
		panic(diagnostics.NewError(diagnostics.ErrL002, token.Token{}, v.Ident))
	}
	var old T
	if post {
		old = CoerceT[T](v)
	}
	storeScalar(v, x)
	adjustBitField(v)
	if post {
		return old
	}
	return CoerceT[T](v)
}

// adjustBitField masks a bit-field member to its declared width,
// sign-extending signed fields.
func adjustBitField(v *Value) {
	if v.BitField <= 0 || !v.kind().IsInteger() {
		return
	}
	size := v.Typ.Size
	width := uint(v.BitField)
	if width >= uint(size*8) {
		return
	}
	raw := v.load(size)
	mask := uint64(1)<<width - 1
	raw &= mask
	if !v.kind().IsUnsigned() && raw&(uint64(1)<<(width-1)) != 0 {
		raw |= ^mask
	}
	v.store(size, raw)
}

// assignFrom stores src into dst converted to dst's kind, going through
// AssignT so lvalue, const and bit-field rules apply.
func assignFrom(dst, src *Value) {
	switch dst.kind() {
	case ctype.Int:
		AssignT(dst, CoerceT[int32](src), false)
	case ctype.Short:
		AssignT(dst, CoerceT[int16](src), false)
	case ctype.Char:
		AssignT(dst, CoerceT[int8](src), false)
	case ctype.Long, ctype.LongLong:
		AssignT(dst, CoerceT[int64](src), false)
	case ctype.UnsignedInt:
		AssignT(dst, CoerceT[uint32](src), false)
	case ctype.UnsignedShort:
		AssignT(dst, CoerceT[uint16](src), false)
	case ctype.UnsignedChar:
		AssignT(dst, CoerceT[uint8](src), false)
	case ctype.UnsignedLong, ctype.UnsignedLongLong, ctype.Pointer, ctype.FunctionPtr:
		AssignT(dst, CoerceT[uint64](src), false)
	case ctype.Float:
		AssignT(dst, CoerceT[float32](src), false)
	case ctype.Double:
		AssignT(dst, CoerceT[float64](src), false)
	}
}

// storeFrom is assignFrom without the lvalue and const checks, for
// storage the interpreter itself initializes: parameters, casts, return
// slots and declarations.
func storeFrom(dst, src *Value) {
	switch dst.kind() {
	case ctype.Int:
		storeScalar(dst, CoerceT[int32](src))
	case ctype.Short:
		storeScalar(dst, CoerceT[int16](src))
	case ctype.Char:
		storeScalar(dst, CoerceT[int8](src))
	case ctype.Long, ctype.LongLong:
		storeScalar(dst, CoerceT[int64](src))
	case ctype.UnsignedInt:
		storeScalar(dst, CoerceT[uint32](src))
	case ctype.UnsignedShort:
		storeScalar(dst, CoerceT[uint16](src))
	case ctype.UnsignedChar:
		storeScalar(dst, CoerceT[uint8](src))
	case ctype.UnsignedLong, ctype.UnsignedLongLong, ctype.Pointer, ctype.FunctionPtr:
		storeScalar(dst, CoerceT[uint64](src))
	case ctype.Float:
		storeScalar(dst, CoerceT[float32](src))
	case ctype.Double:
		storeScalar(dst, CoerceT[float64](src))
	}
	adjustBitField(dst)
}

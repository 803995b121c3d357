package evaluator

import (
	"errors"
	"fmt"

	"github.com/funvibe/ctaint/internal/ctype"
	"github.com/funvibe/ctaint/internal/diagnostics"
	"github.com/funvibe/ctaint/internal/memory"
	"github.com/funvibe/ctaint/internal/token"
)

// Value is a runtime instance: a type plus the address of its payload in
// the arena. Bindings (variables registered in a scope) are Values too;
// they carry the taint state of their storage.
type Value struct {
	Typ  *ctype.Type
	Addr memory.Addr // payload storage; for arrays and structs, the aggregate itself

	TypeVal *ctype.Type // payload of TypeOfType values
	Func    *FuncDef    // payload of Function values
	Macro   *MacroDef   // payload of Macro values

	IsLValue   bool
	LValueFrom *Value // binding this value was materialized from
	Const      bool
	BitField   int // width when the value is a bit-field member
	Ident      string

	// NonDet marks the value as environment-controlled. On bindings it is
	// the taint of the whole storage; ElemNonDet refines it per element
	// for arrays once an element has been written.
	NonDet     bool
	ElemNonDet []bool

	// Array element back-references: ArrayRoot is the array binding,
	// ArrayIndex the element index (-1 when not an element).
	ArrayRoot  *Value
	ArrayIndex int

	mem *memory.Memory
}

// kind resolves enums to int, the only kind remapping coercion needs.
func (v *Value) kind() ctype.Kind {
	if v.Typ.Kind == ctype.Enum {
		return ctype.Int
	}
	return v.Typ.Kind
}

// Kind is the resolved base kind of the value.
func (v *Value) Kind() ctype.Kind { return v.kind() }

func (v *Value) String() string {
	name := v.Ident
	if name == "" {
		name = "<temp>"
	}
	return fmt.Sprintf("%s %s", v.Typ, name)
}

// elemTaint reads the taint of element i of an array binding.
func (v *Value) elemTaint(i int) bool {
	if v.ElemNonDet != nil && i >= 0 && i < len(v.ElemNonDet) {
		return v.ElemNonDet[i]
	}
	return v.NonDet
}

// setElemTaint writes the taint bit of element i. The bitmap is created on
// the first write, seeded from the whole-array flag.
func (v *Value) setElemTaint(i int, nd bool) {
	n := v.arrayLen()
	if i < 0 || i >= n {
		return
	}
	if v.ElemNonDet == nil {
		if v.NonDet == nd {
			return
		}
		v.ElemNonDet = make([]bool, n)
		for j := range v.ElemNonDet {
			v.ElemNonDet[j] = v.NonDet
		}
	}
	v.ElemNonDet[i] = nd
	v.NonDet = anyTrue(v.ElemNonDet)
}

// arrayLen is the number of taint bits of an array binding: one per
// innermost element, measured from its storage so unsized arrays and heap
// blocks work too.
func (v *Value) arrayLen() int {
	unit := elemUnit(v.Typ)
	if v.Typ.Kind != ctype.Array || unit == 0 {
		return 0
	}
	if v.Typ.ArraySize > 0 && v.Typ.Size > 0 {
		return v.Typ.Size / unit
	}
	obj, err := v.mem.Object(v.Addr)
	if err != nil {
		return 0
	}
	return (len(obj.Data) - v.Addr.Offset()) / unit
}

// elemUnit is the size of the innermost element of an array type, so
// every scalar of a multi-dimensional array has its own taint bit.
func elemUnit(t *ctype.Type) int {
	for t.Kind == ctype.Array && t.From != nil {
		t = t.From
	}
	return t.Size
}

// rangeTaint reports whether any taint bit in [first, first+n) is set.
func (v *Value) rangeTaint(first, n int) bool {
	if v.ElemNonDet == nil {
		return v.NonDet
	}
	for i := first; i < first+n; i++ {
		if v.elemTaint(i) {
			return true
		}
	}
	return false
}

func anyTrue(bs []bool) bool {
	for _, b := range bs {
		if b {
			return true
		}
	}
	return false
}

// memFault converts an arena error into a diagnostic and raises it.
func memFault(err error) {
	switch {
	case errors.Is(err, memory.ErrNull):
		panic(diagnostics.NewError(diagnostics.ErrR003, token.Token{}))
	case errors.Is(err, memory.ErrOutOfMemory):
		panic(diagnostics.NewError(diagnostics.ErrR006, token.Token{}))
	}
	panic(diagnostics.NewError(diagnostics.ErrR009, token.Token{}, err))
}

func (v *Value) load(size int) uint64 {
	x, err := v.mem.ReadUint(v.Addr, size)
	if err != nil {
		memFault(err)
	}
	return x
}

func (v *Value) store(size int, x uint64) {
	if err := v.mem.WriteUint(v.Addr, size, x); err != nil {
		memFault(err)
	}
}

// Pointer returns the address held by a pointer or decayed array value.
func (v *Value) Pointer() memory.Addr {
	switch v.kind() {
	case ctype.Array, ctype.Struct, ctype.Union:
		return v.Addr
	case ctype.Function:
		return memory.Null
	}
	return memory.Addr(v.load(8))
}

// Bytes is the raw storage of the value.
func (v *Value) Bytes() []byte {
	b, err := v.mem.Bytes(v.Addr, v.Typ.Size)
	if err != nil {
		memFault(err)
	}
	return b
}

// Truth is the C truth value of a scalar.
func (v *Value) Truth() bool {
	switch k := v.kind(); {
	case k == ctype.Float || k == ctype.Double:
		return CoerceT[float64](v) != 0
	case k.IsInteger():
		return CoerceT[uint64](v) != 0
	case k == ctype.Pointer || k == ctype.FunctionPtr:
		return v.load(8) != 0
	case k == ctype.Array || k == ctype.Function:
		return true
	}
	return false
}

// Int64 is a convenience accessor used by intrinsics and tests.
func (v *Value) Int64() int64 { return CoerceT[int64](v) }

// Float64 is a convenience accessor used by intrinsics and tests.
func (v *Value) Float64() float64 { return CoerceT[float64](v) }

// isNumeric reports whether the value participates in arithmetic.
func (v *Value) isNumeric() bool {
	return v.Typ.Kind.IsNumeric()
}

// isNumericOrPointer widens isNumeric with pointers when coercion allows.
func (v *Value) isNumericOrPointer(allowPointer bool) bool {
	if v.isNumeric() {
		return true
	}
	return allowPointer && (v.kind() == ctype.Pointer || v.kind() == ctype.FunctionPtr)
}

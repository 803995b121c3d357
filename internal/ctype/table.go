package ctype

// Table interns types. Scalar kinds have exactly one *Type each and derived
// pointer/array types are cached on their element, so structurally equal
// types share one descriptor.
type Table struct {
	base [TypeOfType + 1]*Type
}

func NewTable() *Table {
	t := &Table{}
	for k := Void; k <= TypeOfType; k++ {
		size := k.Size()
		switch k {
		case Function, Macro, GotoLabel, TypeOfType, Struct, Union, Array:
			size = 0
		}
		t.base[k] = &Type{Kind: k, Size: size, Align: size, Complete: true}
	}
	t.base[Void].Align = 1
	return t
}

// Base returns the canonical type of a scalar or marker kind.
func (t *Table) Base(k Kind) *Type {
	return t.base[k]
}

func (t *Table) derive(from *Type, key derivedKey, build func() *Type) *Type {
	if from.derived == nil {
		from.derived = make(map[derivedKey]*Type)
	}
	if d, ok := from.derived[key]; ok {
		return d
	}
	d := build()
	from.derived[key] = d
	return d
}

// PointerTo returns the pointer type to elem. A nil elem means void.
func (t *Table) PointerTo(elem *Type) *Type {
	if elem == nil {
		elem = t.base[Void]
	}
	return t.derive(elem, derivedKey{kind: Pointer}, func() *Type {
		return &Type{Kind: Pointer, From: elem, Size: 8, Align: 8, Complete: true}
	})
}

// ArrayOf returns the array type of n elements; n == 0 is an unsized array.
func (t *Table) ArrayOf(elem *Type, n int) *Type {
	return t.derive(elem, derivedKey{kind: Array, size: n}, func() *Type {
		align := elem.Align
		if align == 0 {
			align = 1
		}
		return &Type{Kind: Array, From: elem, ArraySize: n, Size: elem.Size * n, Align: align, Complete: n > 0}
	})
}

// NewAggregate creates a fresh struct, union or enum type. Aggregates are
// nominal: every call returns a distinct type even for equal tags; the
// symbol table is responsible for tag lookup.
func (t *Table) NewAggregate(kind Kind, tag string) *Type {
	typ := &Type{Kind: kind, Tag: tag}
	if kind == Enum {
		typ.Size, typ.Align, typ.Complete = 4, 4, true
	}
	return typ
}

// Compatible reports whether a value of type src may be stored into dst
// without a cast: identical types, or pointers where either side is void*.
func Compatible(dst, src *Type) bool {
	if dst == src {
		return true
	}
	if dst.Kind == Pointer && src.Kind == Pointer {
		return dst.From.Kind == Void || src.From.Kind == Void
	}
	return false
}

package ctype

import (
	"fmt"
	"strconv"
)

// Kind is the base tag of a C type.
type Kind int

const (
	Void Kind = iota
	Int
	Short
	Char
	Long
	LongLong
	UnsignedInt
	UnsignedShort
	UnsignedChar
	UnsignedLong
	UnsignedLongLong
	Float
	Double
	Function
	FunctionPtr
	Macro
	Pointer
	Array
	Struct
	Union
	Enum
	GotoLabel
	TypeOfType
)

var kindNames = [...]string{
	Void:             "void",
	Int:              "int",
	Short:            "short",
	Char:             "char",
	Long:             "long",
	LongLong:         "long long",
	UnsignedInt:      "unsigned int",
	UnsignedShort:    "unsigned short",
	UnsignedChar:     "unsigned char",
	UnsignedLong:     "unsigned long",
	UnsignedLongLong: "unsigned long long",
	Float:            "float",
	Double:           "double",
	Function:         "function",
	FunctionPtr:      "function pointer",
	Macro:            "macro",
	Pointer:          "pointer",
	Array:            "array",
	Struct:           "struct",
	Union:            "union",
	Enum:             "enum",
	GotoLabel:        "label",
	TypeOfType:       "type",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// IsInteger reports whether k is one of the ten integer kinds. Enum is not
// included; callers resolve it to Int first.
func (k Kind) IsInteger() bool {
	return k >= Int && k <= UnsignedLongLong
}

func (k Kind) IsFloat() bool {
	return k == Float || k == Double
}

// IsNumeric covers integers, floating kinds and enums.
func (k Kind) IsNumeric() bool {
	return k.IsInteger() || k.IsFloat() || k == Enum
}

func (k Kind) IsUnsigned() bool {
	switch k {
	case UnsignedInt, UnsignedShort, UnsignedChar, UnsignedLong, UnsignedLongLong:
		return true
	}
	return false
}

// Rank is the integer conversion rank: char < short < int < long < long long.
func (k Kind) Rank() int {
	switch k {
	case Char, UnsignedChar:
		return 1
	case Short, UnsignedShort:
		return 2
	case Int, UnsignedInt, Enum:
		return 3
	case Long, UnsignedLong:
		return 4
	case LongLong, UnsignedLongLong:
		return 5
	}
	return 0
}

// Unsigned returns the unsigned counterpart of an integer kind.
func (k Kind) Unsigned() Kind {
	switch k {
	case Int:
		return UnsignedInt
	case Short:
		return UnsignedShort
	case Char:
		return UnsignedChar
	case Long:
		return UnsignedLong
	case LongLong:
		return UnsignedLongLong
	}
	return k
}

// Size is the LP64 storage size of a scalar kind in bytes.
func (k Kind) Size() int {
	switch k {
	case Char, UnsignedChar:
		return 1
	case Short, UnsignedShort:
		return 2
	case Int, UnsignedInt, Float, Enum:
		return 4
	case Long, UnsignedLong, LongLong, UnsignedLongLong, Double, Pointer, FunctionPtr:
		return 8
	case Void:
		return 1
	}
	return 0
}

// Member is a field of a struct or union.
type Member struct {
	Name     string
	Type     *Type
	Offset   int
	BitField int // declared width, 0 when not a bit-field
	Const    bool
}

type derivedKey struct {
	kind Kind
	size int
}

// Type describes a C type. Types are created by a Table and compared by
// identity: two *Type values are the same type iff the pointers are equal.
type Type struct {
	Kind      Kind
	From      *Type // pointee for Pointer, element for Array
	ArraySize int   // 0 for unsized arrays
	Size      int
	Align     int
	Tag       string // struct/union/enum tag

	Members     []*Member
	memberIndex map[string]*Member
	Complete    bool // struct/union body seen

	derived map[derivedKey]*Type
}

func (t *Type) String() string {
	switch t.Kind {
	case Pointer:
		if t.From == nil {
			return "void*"
		}
		return t.From.String() + "*"
	case Array:
		if t.ArraySize == 0 {
			return t.From.String() + "[]"
		}
		return fmt.Sprintf("%s[%d]", t.From, t.ArraySize)
	case Struct, Union, Enum:
		if t.Tag == "" {
			return t.Kind.String() + " <anonymous>"
		}
		return t.Kind.String() + " " + t.Tag
	}
	return t.Kind.String()
}

// Member looks up a struct or union member by name.
func (t *Type) Member(name string) (*Member, bool) {
	m, ok := t.memberIndex[name]
	return m, ok
}

// ElemSize is the size of the pointee or element type, used to scale
// pointer arithmetic. void* scales by one byte.
func (t *Type) ElemSize() int {
	if t.From == nil || t.From.Kind == Void {
		return 1
	}
	return t.From.Size
}

// IsAggregate reports whether values of t live out of line.
func (t *Type) IsAggregate() bool {
	return t.Kind == Array || t.Kind == Struct || t.Kind == Union
}

// AddMember appends a member and lays it out. Bit-fields occupy a full slot
// of their declared type; the width only masks stored values.
func (t *Type) AddMember(name string, typ *Type, bitField int, isConst bool) (*Member, error) {
	if t.Kind != Struct && t.Kind != Union {
		return nil, fmt.Errorf("%s can't have members", t)
	}
	if _, dup := t.memberIndex[name]; dup && name != "" {
		return nil, fmt.Errorf("member %s already defined in %s", name, t)
	}
	if bitField < 0 || bitField > typ.Size*8 {
		return nil, fmt.Errorf("invalid bit-field width %d for %s", bitField, name)
	}
	if typ.Size == 0 && !(typ.Kind == Array && typ.ArraySize == 0) {
		return nil, fmt.Errorf("member %s has incomplete type %s", name, typ)
	}
	align := typ.Align
	if align == 0 {
		align = 1
	}
	m := &Member{Name: name, Type: typ, BitField: bitField, Const: isConst}
	if t.Kind == Struct {
		m.Offset = alignUp(t.Size, align)
		t.Size = m.Offset + typ.Size
	} else if typ.Size > t.Size {
		t.Size = typ.Size
	}
	if align > t.Align {
		t.Align = align
	}
	t.Members = append(t.Members, m)
	if t.memberIndex == nil {
		t.memberIndex = make(map[string]*Member)
	}
	if name != "" {
		t.memberIndex[name] = m
	}
	return m, nil
}

// Finish pads the aggregate to its alignment and marks it complete.
func (t *Type) Finish() {
	if t.Align == 0 {
		t.Align = 1
	}
	t.Size = alignUp(t.Size, t.Align)
	t.Complete = true
}

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}

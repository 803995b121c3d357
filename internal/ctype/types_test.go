package ctype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerivedTypesAreInterned(t *testing.T) {
	tab := NewTable()
	intT := tab.Base(Int)

	assert.Same(t, tab.PointerTo(intT), tab.PointerTo(intT))
	assert.Same(t, tab.ArrayOf(intT, 3), tab.ArrayOf(intT, 3))
	assert.NotSame(t, tab.ArrayOf(intT, 3), tab.ArrayOf(intT, 4))
	assert.Same(t, tab.PointerTo(nil), tab.PointerTo(tab.Base(Void)))

	assert.Equal(t, "int*", tab.PointerTo(intT).String())
	assert.Equal(t, "int[3]", tab.ArrayOf(intT, 3).String())
	assert.Equal(t, 12, tab.ArrayOf(intT, 3).Size)
	assert.Equal(t, 4, tab.ArrayOf(intT, 3).ElemSize())
	assert.Equal(t, 1, tab.PointerTo(nil).ElemSize())
}

func TestStructLayout(t *testing.T) {
	tab := NewTable()
	s := tab.NewAggregate(Struct, "s")
	c, err := s.AddMember("c", tab.Base(Char), 0, false)
	require.NoError(t, err)
	d, err := s.AddMember("d", tab.Base(Double), 0, false)
	require.NoError(t, err)
	b, err := s.AddMember("b", tab.Base(Int), 3, true)
	require.NoError(t, err)
	s.Finish()

	assert.Equal(t, 0, c.Offset)
	assert.Equal(t, 8, d.Offset)
	assert.Equal(t, 16, b.Offset)
	assert.Equal(t, 3, b.BitField)
	assert.True(t, b.Const)
	assert.Equal(t, 24, s.Size)
	assert.Equal(t, 8, s.Align)

	m, ok := s.Member("d")
	require.True(t, ok)
	assert.Same(t, d, m)

	_, err = s.AddMember("c", tab.Base(Int), 0, false)
	assert.Error(t, err)
	_, err = s.AddMember("wide", tab.Base(Char), 9, false)
	assert.Error(t, err)
}

func TestUnionLayout(t *testing.T) {
	tab := NewTable()
	u := tab.NewAggregate(Union, "u")
	_, err := u.AddMember("i", tab.Base(Int), 0, false)
	require.NoError(t, err)
	_, err = u.AddMember("l", tab.Base(Long), 0, false)
	require.NoError(t, err)
	u.Finish()
	assert.Equal(t, 8, u.Size)
	for _, m := range u.Members {
		assert.Equal(t, 0, m.Offset)
	}
}

func TestKindClassification(t *testing.T) {
	assert.True(t, UnsignedChar.IsUnsigned())
	assert.False(t, Char.IsUnsigned())
	assert.True(t, Double.IsFloat())
	assert.True(t, Enum.IsNumeric())
	assert.False(t, Pointer.IsNumeric())
	assert.Equal(t, UnsignedLongLong, LongLong.Unsigned())
	assert.Less(t, Short.Rank(), Int.Rank())
	assert.Less(t, Long.Rank(), LongLong.Rank())
	assert.Equal(t, "unsigned long", UnsignedLong.String())
}

func TestCompatible(t *testing.T) {
	tab := NewTable()
	ip := tab.PointerTo(tab.Base(Int))
	cp := tab.PointerTo(tab.Base(Char))
	vp := tab.PointerTo(nil)
	assert.True(t, Compatible(ip, ip))
	assert.True(t, Compatible(ip, vp))
	assert.True(t, Compatible(vp, cp))
	assert.False(t, Compatible(ip, cp))
}

package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddr(t *testing.T) {
	a := MakeAddr(7, 12)
	assert.Equal(t, uint32(7), a.ObjectID())
	assert.Equal(t, 12, a.Offset())
	assert.Equal(t, 4, a.Add(-8).Offset())
	assert.Equal(t, -4, a.Add(-16).Offset())
	assert.Equal(t, uint32(7), a.Add(-16).ObjectID())
	assert.Equal(t, "NULL", Null.String())
}

func TestScalarReadWrite(t *testing.T) {
	m := New(0)
	obj, err := m.Alloc(16, "x")
	require.NoError(t, err)
	base := MakeAddr(obj.ID, 0)

	tests := []struct {
		name string
		off  int64
		size int
		val  uint64
	}{
		{"byte", 0, 1, 0xab},
		{"short", 2, 2, 0xbeef},
		{"int", 4, 4, 0xdeadbeef},
		{"long", 8, 8, 0x0123456789abcdef},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, m.WriteUint(base.Add(tt.off), tt.size, tt.val))
			got, err := m.ReadUint(base.Add(tt.off), tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.val, got)
		})
	}

	_, err = m.ReadUint(base.Add(12), 8)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = m.ReadUint(Null, 4)
	assert.ErrorIs(t, err, ErrNull)
}

func TestCheckpoints(t *testing.T) {
	m := New(0)
	outer, err := m.Alloc(4, "outer")
	require.NoError(t, err)

	mark := m.Mark()
	inner, err := m.Alloc(4, "inner")
	require.NoError(t, err)
	heap, err := m.AllocHeap(8, "heap")
	require.NoError(t, err)
	m.Release(mark)

	_, err = m.Object(MakeAddr(inner.ID, 0))
	assert.ErrorIs(t, err, ErrDangling, "objects above the mark are gone")
	_, err = m.Object(MakeAddr(outer.ID, 0))
	assert.NoError(t, err)
	_, err = m.Object(MakeAddr(heap.ID, 0))
	assert.NoError(t, err, "heap objects survive stack release")
	assert.Equal(t, 4, m.InUse(Stack))

	require.NoError(t, m.Free(MakeAddr(heap.ID, 0)))
	assert.ErrorIs(t, m.Free(MakeAddr(heap.ID, 0)), ErrDangling)
	assert.ErrorIs(t, m.Free(MakeAddr(outer.ID, 0)), ErrBadFree)
	assert.NoError(t, m.Free(Null))
}

func TestLimit(t *testing.T) {
	m := New(10)
	_, err := m.Alloc(8, "a")
	require.NoError(t, err)
	_, err = m.AllocHeap(4, "b")
	assert.ErrorIs(t, err, ErrOutOfMemory)
}

func TestResizeAndStrings(t *testing.T) {
	m := New(0)
	obj, err := m.AllocStatic(2, "s")
	require.NoError(t, err)
	a := MakeAddr(obj.ID, 0)
	require.NoError(t, m.WriteUint(a, 1, 'h'))
	require.NoError(t, m.Resize(a, 4))
	require.NoError(t, m.WriteUint(a.Add(1), 1, 'i'))

	s, err := m.CString(a)
	require.NoError(t, err)
	assert.Equal(t, "hi", s)

	require.NoError(t, m.Copy(a.Add(2), a, 2))
	b, err := m.Bytes(a, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("hihi"), b)
	_, err = m.CString(a)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestStats(t *testing.T) {
	m := New(0)
	mark := m.Mark()
	_, _ = m.Alloc(2048, "big")
	m.Release(mark)
	_, _ = m.Alloc(16, "small")
	st := m.Stats()
	assert.Equal(t, 2048, st.PeakStack)
	assert.Equal(t, uint64(2), st.Allocations)
	assert.Contains(t, st.String(), "2.0 KiB")
}

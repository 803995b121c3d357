package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/ctaint/internal/ctype"
)

func TestTypedefScopes(t *testing.T) {
	types := ctype.NewTable()
	global := NewTypeTable()
	require.NoError(t, global.DefineTypedef(Symbol{Name: "u32", Type: types.Base(ctype.UnsignedInt)}))

	inner := global.Push(ScopeBlock)
	require.NoError(t, inner.DefineTypedef(Symbol{Name: "u32", Type: types.Base(ctype.UnsignedLong)}))

	got, ok := inner.Typedef("u32")
	require.True(t, ok)
	assert.Equal(t, ctype.UnsignedLong, got.Kind)

	back := inner.Pop()
	got, ok = back.Typedef("u32")
	require.True(t, ok)
	assert.Equal(t, ctype.UnsignedInt, got.Kind)
	assert.Same(t, global, global.Pop())

	_, ok = global.Typedef("missing")
	assert.False(t, ok)
}

func TestTypedefRedefinition(t *testing.T) {
	types := ctype.NewTable()
	tt := NewTypeTable()
	require.NoError(t, tt.DefineTypedef(Symbol{Name: "T", Type: types.Base(ctype.Int)}))
	assert.NoError(t, tt.DefineTypedef(Symbol{Name: "T", Type: types.Base(ctype.Int)}))
	assert.Error(t, tt.DefineTypedef(Symbol{Name: "T", Type: types.Base(ctype.Char)}))
}

func TestTags(t *testing.T) {
	types := ctype.NewTable()
	tt := NewTypeTable()
	first := types.NewAggregate(ctype.Struct, "node")
	got, err := tt.DefineTag(ctype.Struct, "node", first)
	require.NoError(t, err)
	assert.Same(t, first, got)

	again, err := tt.DefineTag(ctype.Struct, "node", types.NewAggregate(ctype.Struct, "node"))
	require.NoError(t, err)
	assert.Same(t, first, again, "a second declaration reuses the first descriptor")

	_, err = tt.DefineTag(ctype.Union, "node", types.NewAggregate(ctype.Union, "node"))
	assert.Error(t, err)

	inner := tt.Push(ScopeFunction)
	_, ok := inner.LocalTag("node")
	assert.False(t, ok)
	found, ok := inner.Tag("node")
	require.True(t, ok)
	assert.Same(t, first, found)
}

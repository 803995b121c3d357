package evaluator

import (
	"math"
	"testing"

	"github.com/funvibe/ctaint/internal/ctype"
	"github.com/funvibe/ctaint/internal/memory"
	"github.com/stretchr/testify/assert"
)

func TestResultKind(t *testing.T) {
	tests := []struct {
		b, t ctype.Kind
		want ctype.Kind
	}{
		{ctype.Int, ctype.UnsignedInt, ctype.UnsignedInt},
		{ctype.Short, ctype.Short, ctype.Int},
		{ctype.Char, ctype.UnsignedChar, ctype.Int},
		{ctype.UnsignedShort, ctype.Int, ctype.Int},
		{ctype.Float, ctype.Int, ctype.Float},
		{ctype.Float, ctype.Double, ctype.Double},
		{ctype.LongLong, ctype.Double, ctype.Double},
		{ctype.Int, ctype.Long, ctype.Long},
		{ctype.UnsignedInt, ctype.Long, ctype.Long},
		{ctype.Long, ctype.UnsignedLong, ctype.UnsignedLong},
		{ctype.LongLong, ctype.UnsignedLong, ctype.UnsignedLong},
		{ctype.UnsignedInt, ctype.LongLong, ctype.LongLong},
		{ctype.Long, ctype.LongLong, ctype.Long},
		{ctype.Enum, ctype.Char, ctype.Int},
	}
	for _, tt := range tests {
		t.Run(tt.b.String()+"+"+tt.t.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, resultKind(tt.b, tt.t))
			assert.Equal(t, tt.want, resultKind(tt.t, tt.b), "conversions are symmetric")
		})
	}
}

func TestShiftKindIgnoresRightOperand(t *testing.T) {
	for _, k := range []ctype.Kind{ctype.Char, ctype.Short, ctype.Int, ctype.UnsignedInt, ctype.Long, ctype.UnsignedLongLong} {
		assert.Equal(t, promote(k), shiftKind(k), k.String())
	}
	in, _ := newTestInterpreter()
	v, err := in.EvalExpression("1L << (int)2")
	if assert.NoError(t, err) {
		assert.Equal(t, ctype.Long, v.Kind())
	}
	v, err = in.EvalExpression("(short)1 << 40L")
	if assert.NoError(t, err) {
		assert.Equal(t, ctype.Int, v.Kind())
	}
}

func TestAssignCoerceRoundTrip(t *testing.T) {
	in, _ := newTestInterpreter()
	binding := func(k ctype.Kind) *Value {
		return in.newBinding(k.String(), in.Types.Base(k), memory.Static)
	}

	assert.Equal(t, int8(-5), roundTrip(binding(ctype.Char), int8(-5)))
	assert.Equal(t, uint8(200), roundTrip(binding(ctype.UnsignedChar), uint8(200)))
	assert.Equal(t, int16(-30000), roundTrip(binding(ctype.Short), int16(-30000)))
	assert.Equal(t, uint16(60000), roundTrip(binding(ctype.UnsignedShort), uint16(60000)))
	assert.Equal(t, int32(math.MinInt32), roundTrip(binding(ctype.Int), int32(math.MinInt32)))
	assert.Equal(t, uint32(math.MaxUint32), roundTrip(binding(ctype.UnsignedInt), uint32(math.MaxUint32)))
	assert.Equal(t, int64(math.MinInt64), roundTrip(binding(ctype.Long), int64(math.MinInt64)))
	assert.Equal(t, uint64(math.MaxUint64), roundTrip(binding(ctype.UnsignedLongLong), uint64(math.MaxUint64)))
	assert.Equal(t, float32(1.25), roundTrip(binding(ctype.Float), float32(1.25)))
	assert.Equal(t, 3.5e300, roundTrip(binding(ctype.Double), 3.5e300))
}

func roundTrip[T Scalar](v *Value, x T) T {
	AssignT(v, x, false)
	return CoerceT[T](v)
}

func TestAssignTPostReturnsOldValue(t *testing.T) {
	in, _ := newTestInterpreter()
	v := in.newBinding("x", in.Types.Base(ctype.Int), memory.Static)
	AssignT(v, int32(41), false)
	assert.Equal(t, int32(41), AssignT(v, int32(42), true))
	assert.Equal(t, int32(42), CoerceT[int32](v))
}

func TestAssignTNarrows(t *testing.T) {
	in, _ := newTestInterpreter()
	v := in.newBinding("c", in.Types.Base(ctype.UnsignedChar), memory.Static)
	assert.Equal(t, int32(44), AssignT(v, int32(300), false))
}

func TestAssignTChecksLValue(t *testing.T) {
	in, _ := newTestInterpreter()
	tmp := newScalar(in, ctype.Int, int32(1))
	assert.Panics(t, func() { AssignT(tmp, int32(2), false) })

	c := in.newBinding("k", in.Types.Base(ctype.Int), memory.Static)
	c.Const = true
	assert.Panics(t, func() { AssignT(c, int32(2), false) })
}

func TestBitFieldMasking(t *testing.T) {
	out, _, err := runProgram(`struct flags { unsigned a : 3; int b : 4; unsigned c; };
int main() {
	struct flags f;
	f.a = 9;
	f.b = 7;
	f.b++;
	f.c = 9;
	printf("%u %d %u", f.a, f.b, f.c);
	return 0;
}`)
	assert.NoError(t, err)
	assert.Equal(t, "1 -8 9", out)
}

func TestFloatComparisonNaN(t *testing.T) {
	in := loadGlobals(t, `double z = 0.0; double n;`, "n = z / z")
	v, err := in.EvalExpression("n == n")
	if assert.NoError(t, err) {
		assert.EqualValues(t, 0, v.Int64())
	}
	in.cfg.AssumptionMode = true
	v, err = in.EvalExpression("n == n")
	in.cfg.AssumptionMode = false
	if assert.NoError(t, err) {
		assert.EqualValues(t, 1, v.Int64())
	}
}

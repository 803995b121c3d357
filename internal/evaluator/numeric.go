package evaluator

import (
	"github.com/funvibe/ctaint/internal/ctype"
	"github.com/funvibe/ctaint/internal/diagnostics"
	"github.com/funvibe/ctaint/internal/token"
)

// promote applies the integer promotions: every kind narrower than int
// becomes int. Enum is int already.
func promote(k ctype.Kind) ctype.Kind {
	switch k {
	case ctype.Char, ctype.UnsignedChar, ctype.Short, ctype.UnsignedShort, ctype.Enum:
		return ctype.Int
	}
	return k
}

// resultKind implements the usual arithmetic conversions for LP64.
func resultKind(b, t ctype.Kind) ctype.Kind {
	if b == ctype.Double || t == ctype.Double {
		return ctype.Double
	}
	if b == ctype.Float || t == ctype.Float {
		return ctype.Float
	}
	b, t = promote(b), promote(t)
	if b == t {
		return b
	}
	if b.IsUnsigned() == t.IsUnsigned() {
		if b.Rank() >= t.Rank() {
			return b
		}
		return t
	}
	u, s := b, t
	if !u.IsUnsigned() {
		u, s = t, b
	}
	if u.Rank() >= s.Rank() {
		return u
	}
	if s.Size() > u.Size() {
		return s
	}
	return s.Unsigned()
}

// shiftKind is the result kind of a shift: the left operand promoted.
func shiftKind(b ctype.Kind) ctype.Kind {
	return promote(b)
}

type opClass int

const (
	classStandard opClass = iota
	classAssignment
	classComparison
	classShift
	classLogical
)

func classify(op token.TokenType) opClass {
	switch op {
	case token.ASSIGN, token.ADD_ASSIGN, token.SUB_ASSIGN, token.MUL_ASSIGN, token.DIV_ASSIGN,
		token.MOD_ASSIGN, token.SHL_ASSIGN, token.SHR_ASSIGN, token.AND_ASSIGN, token.OR_ASSIGN,
		token.XOR_ASSIGN:
		return classAssignment
	case token.EQ, token.NOT_EQ, token.LT, token.GT, token.LE, token.GE:
		return classComparison
	case token.SHL, token.SHR:
		return classShift
	case token.LOGICAL_AND, token.LOGICAL_OR:
		return classLogical
	}
	return classStandard
}

// arithOp maps a compound assignment to the operator it applies.
func arithOp(op token.TokenType) token.TokenType {
	switch op {
	case token.ADD_ASSIGN:
		return token.PLUS
	case token.SUB_ASSIGN:
		return token.MINUS
	case token.MUL_ASSIGN:
		return token.ASTERISK
	case token.DIV_ASSIGN:
		return token.SLASH
	case token.MOD_ASSIGN:
		return token.PERCENT
	case token.SHL_ASSIGN:
		return token.SHL
	case token.SHR_ASSIGN:
		return token.SHR
	case token.AND_ASSIGN:
		return token.AMPERSAND
	case token.OR_ASSIGN:
		return token.BIT_OR
	case token.XOR_ASSIGN:
		return token.BIT_XOR
	}
	return op
}

type integer interface {
	~int32 | ~uint32 | ~int64 | ~uint64
}

type floating interface {
	~float32 | ~float64
}

func integerOp[T integer](op token.TokenType, a, b T) T {
	switch op {
	case token.PLUS:
		return a + b
	case token.MINUS:
		return a - b
	case token.ASTERISK:
		return a * b
	case token.SLASH:
		if b == 0 {
			panic(diagnostics.NewError(diagnostics.ErrR005, token.Token{}))
		}
		return a / b
	case token.PERCENT:
		if b == 0 {
			panic(diagnostics.NewError(diagnostics.ErrR005, token.Token{}))
		}
		return a % b
	case token.AMPERSAND:
		return a & b
	case token.BIT_OR:
		return a | b
	case token.BIT_XOR:
		return a ^ b
	}
	panic(diagnostics.NewError(diagnostics.ErrP003, token.Token{}, op))
}

func floatOp[T floating](op token.TokenType, a, b T) T {
	switch op {
	case token.PLUS:
		return a + b
	case token.MINUS:
		return a - b
	case token.ASTERISK:
		return a * b
	case token.SLASH:
		return a / b
	}
	panic(diagnostics.NewError(diagnostics.ErrP003, token.Token{}, op))
}

func shiftOp[T integer](op token.TokenType, a T, n uint64) T {
	if op == token.SHL {
		return a << n
	}
	return a >> n
}

// compareOp evaluates a relational operator. NaN compares equal to NaN
// only when nanEqual is set (assumption mode).
func compareOp[T Scalar](op token.TokenType, a, b T, nanEqual bool) bool {
	if nanEqual && a != a && b != b {
		return op == token.EQ || op == token.LE || op == token.GE
	}
	switch op {
	case token.EQ:
		return a == b
	case token.NOT_EQ:
		return a != b
	case token.LT:
		return a < b
	case token.GT:
		return a > b
	case token.LE:
		return a <= b
	case token.GE:
		return a >= b
	}
	panic(diagnostics.NewError(diagnostics.ErrP003, token.Token{}, op))
}

// binaryNumeric computes a standard arithmetic or bitwise operator on two
// numeric values in kind k and returns a temporary of that kind.
func (in *Interpreter) binaryNumeric(k ctype.Kind, op token.TokenType, a, b *Value) *Value {
	switch k {
	case ctype.Int:
		return newScalar(in, k, integerOp(op, CoerceT[int32](a), CoerceT[int32](b)))
	case ctype.UnsignedInt:
		return newScalar(in, k, integerOp(op, CoerceT[uint32](a), CoerceT[uint32](b)))
	case ctype.Long, ctype.LongLong:
		return newScalar(in, k, integerOp(op, CoerceT[int64](a), CoerceT[int64](b)))
	case ctype.UnsignedLong, ctype.UnsignedLongLong:
		return newScalar(in, k, integerOp(op, CoerceT[uint64](a), CoerceT[uint64](b)))
	case ctype.Float:
		return newScalar(in, k, floatOp(op, CoerceT[float32](a), CoerceT[float32](b)))
	case ctype.Double:
		return newScalar(in, k, floatOp(op, CoerceT[float64](a), CoerceT[float64](b)))
	}
	panic(diagnostics.NewError(diagnostics.ErrT002, token.Token{}, op, a.Typ, b.Typ))
}

// shiftNumeric shifts a (already promoted to kind k) by the amount in b.
func (in *Interpreter) shiftNumeric(k ctype.Kind, op token.TokenType, a, b *Value) *Value {
	n := CoerceT[uint64](b)
	switch k {
	case ctype.Int:
		return newScalar(in, k, shiftOp(op, CoerceT[int32](a), n))
	case ctype.UnsignedInt:
		return newScalar(in, k, shiftOp(op, CoerceT[uint32](a), n))
	case ctype.Long, ctype.LongLong:
		return newScalar(in, k, shiftOp(op, CoerceT[int64](a), n))
	case ctype.UnsignedLong, ctype.UnsignedLongLong:
		return newScalar(in, k, shiftOp(op, CoerceT[uint64](a), n))
	}
	panic(diagnostics.NewError(diagnostics.ErrT002, token.Token{}, op, a.Typ, b.Typ))
}

// compareNumeric compares a and b after converting both to kind k.
func (in *Interpreter) compareNumeric(k ctype.Kind, op token.TokenType, a, b *Value) bool {
	nan := in.cfg.AssumptionMode
	switch k {
	case ctype.Int:
		return compareOp(op, CoerceT[int32](a), CoerceT[int32](b), false)
	case ctype.UnsignedInt:
		return compareOp(op, CoerceT[uint32](a), CoerceT[uint32](b), false)
	case ctype.Long, ctype.LongLong:
		return compareOp(op, CoerceT[int64](a), CoerceT[int64](b), false)
	case ctype.UnsignedLong, ctype.UnsignedLongLong:
		return compareOp(op, CoerceT[uint64](a), CoerceT[uint64](b), false)
	case ctype.Float:
		return compareOp(op, CoerceT[float32](a), CoerceT[float32](b), nan)
	case ctype.Double:
		return compareOp(op, CoerceT[float64](a), CoerceT[float64](b), nan)
	}
	panic(diagnostics.NewError(diagnostics.ErrT002, token.Token{}, op, a.Typ, b.Typ))
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

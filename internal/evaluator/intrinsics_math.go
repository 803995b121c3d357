package evaluator

import "math"

var mathFunctions = []libraryFunction{
	{"double sqrt(double x);", unaryMath(math.Sqrt)},
	{"double fabs(double x);", unaryMath(math.Abs)},
	{"double floor(double x);", unaryMath(math.Floor)},
	{"double ceil(double x);", unaryMath(math.Ceil)},
	{"double pow(double x, double y);", powIntrinsic},
}

func unaryMath(fn func(float64) float64) Intrinsic {
	return func(_ *CallContext, ret *Value, args []*Value) {
		setReturn(ret, fn(CoerceT[float64](args[0])), args[0].NonDet)
	}
}

func powIntrinsic(_ *CallContext, ret *Value, args []*Value) {
	x, y := CoerceT[float64](args[0]), CoerceT[float64](args[1])
	setReturn(ret, math.Pow(x, y), args[0].NonDet || args[1].NonDet)
}

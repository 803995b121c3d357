package evaluator

import (
	"github.com/funvibe/ctaint/internal/diagnostics"
	"github.com/funvibe/ctaint/internal/memory"
)

var verifierFunctions = []libraryFunction{
	{"void __assert_fail(const char *assertion, const char *file, unsigned int line, const char *function);", assertFailIntrinsic},
	{"void assert(int expression);", assertIntrinsic},
	{"void __VERIFIER_error(void);", verifierErrorIntrinsic},
	{"void reach_error(void);", verifierErrorIntrinsic},
	{"void __VERIFIER_assume(int expression);", assumeIntrinsic},
	{"int __VERIFIER_nondet_int(void);", nondetSource},
	{"unsigned int __VERIFIER_nondet_uint(void);", nondetSource},
	{"unsigned short __VERIFIER_nondet_ushort(void);", nondetSource},
	{"short __VERIFIER_nondet_short(void);", nondetSource},
	{"long __VERIFIER_nondet_long(void);", nondetSource},
	{"unsigned long __VERIFIER_nondet_ulong(void);", nondetSource},
	{"char __VERIFIER_nondet_char(void);", nondetSource},
	{"unsigned char __VERIFIER_nondet_uchar(void);", nondetSource},
	{"double __VERIFIER_nondet_double(void);", nondetSource},
	{"float __VERIFIER_nondet_float(void);", nondetSource},
	{"_Bool __VERIFIER_nondet_bool(void);", nondetSource},
	{"void *__VERIFIER_nondet_pointer(void);", nondetSource},
}

func assertFailIntrinsic(c *CallContext, _ *Value, args []*Value) {
	msg := "assertion failed"
	if s, err := c.In.Mem.CString(args[0].Pointer()); err == nil {
		msg += ": " + s
	}
	c.Fail(diagnostics.ErrR011, msg)
}

func assertIntrinsic(c *CallContext, _ *Value, args []*Value) {
	if !args[0].Truth() {
		c.Fail(diagnostics.ErrR011, "assertion failed")
	}
}

func verifierErrorIntrinsic(c *CallContext, _ *Value, _ []*Value) {
	c.In.ErrorFunctionCalled = true
	c.In.tracef("error function %s() reached", c.Fn.Name)
}

func assumeIntrinsic(c *CallContext, _ *Value, args []*Value) {
	if !args[0].Truth() {
		c.Fail(diagnostics.ErrR011, "assumption does not hold")
	}
}

// nondetSource returns the configured non-deterministic value, tainted.
// Pointer results are null.
func nondetSource(c *CallContext, ret *Value, _ []*Value) {
	if ret == nil {
		return
	}
	if ret.kind().IsNumeric() {
		storeScalar(ret, c.In.cfg.NonDetValue)
	} else {
		storeScalar(ret, uint64(memory.Null))
	}
	ret.NonDet = true
	c.In.tracef("nondet: %s() returns %s", c.Fn.Name, c.In.format(ret))
}

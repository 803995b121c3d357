package evaluator

import (
	"bytes"
	"math"

	"github.com/funvibe/ctaint/internal/ctype"
	"github.com/funvibe/ctaint/internal/diagnostics"
	"github.com/funvibe/ctaint/internal/memory"
)

var stdlibFunctions = []libraryFunction{
	{"void *malloc(unsigned long size);", mallocIntrinsic},
	{"void *calloc(unsigned long count, unsigned long size);", callocIntrinsic},
	{"void free(void *ptr);", freeIntrinsic},
	{"void exit(int status);", exitIntrinsic},
	{"void abort(void);", abortIntrinsic},
	{"int abs(int x);", absIntrinsic},
	{"long labs(long x);", labsIntrinsic},
}

var stringFunctions = []libraryFunction{
	{"void *memset(void *s, int c, unsigned long n);", memsetIntrinsic},
	{"void *memcpy(void *dst, void *src, unsigned long n);", memcpyIntrinsic},
	{"unsigned long strlen(char *s);", strlenIntrinsic},
	{"int strcmp(char *a, char *b);", strcmpIntrinsic},
	{"char *strcpy(char *dst, char *src);", strcpyIntrinsic},
}

// heapBlock allocates n bytes of heap as an unsigned char array so taint
// is tracked per byte.
func (c *CallContext) heapBlock(n uint64, nd bool) *Value {
	if n > math.MaxInt32 {
		c.Fail(diagnostics.ErrR006)
	}
	in := c.In
	b := in.newBinding(c.Fn.Name, in.Types.ArrayOf(in.Types.Base(ctype.UnsignedChar), int(n)), memory.Heap)
	b.NonDet = nd
	return b
}

// mallocIntrinsic hands out uninitialized memory, which reads as
// non-deterministic until written.
func mallocIntrinsic(c *CallContext, ret *Value, args []*Value) {
	n := CoerceT[uint64](args[0])
	if n == 0 {
		setReturn(ret, uint64(memory.Null), false)
		return
	}
	b := c.heapBlock(n, true)
	setReturn(ret, uint64(b.Addr), false)
}

func callocIntrinsic(c *CallContext, ret *Value, args []*Value) {
	count, size := CoerceT[uint64](args[0]), CoerceT[uint64](args[1])
	if count == 0 || size == 0 {
		setReturn(ret, uint64(memory.Null), false)
		return
	}
	if count > math.MaxInt32/size {
		c.Fail(diagnostics.ErrR006)
	}
	b := c.heapBlock(count*size, false)
	setReturn(ret, uint64(b.Addr), false)
}

func freeIntrinsic(c *CallContext, _ *Value, args []*Value) {
	if err := c.In.Mem.Free(args[0].Pointer()); err != nil {
		memFault(err)
	}
}

func exitIntrinsic(_ *CallContext, _ *Value, args []*Value) {
	panic(&ExitError{Code: int(CoerceT[int32](args[0]))})
}

func abortIntrinsic(_ *CallContext, _ *Value, _ []*Value) {
	panic(&ExitError{Code: 134})
}

func absIntrinsic(_ *CallContext, ret *Value, args []*Value) {
	x := CoerceT[int32](args[0])
	if x < 0 {
		x = -x
	}
	setReturn(ret, x, args[0].NonDet)
}

func labsIntrinsic(_ *CallContext, ret *Value, args []*Value) {
	x := CoerceT[int64](args[0])
	if x < 0 {
		x = -x
	}
	setReturn(ret, x, args[0].NonDet)
}

// bytesAt returns n bytes of storage at p or raises a memory fault.
func (c *CallContext) bytesAt(p memory.Addr, n uint64) []byte {
	if n > math.MaxInt32 {
		c.Fail(diagnostics.ErrR009, "size too large")
	}
	b, err := c.In.Mem.Bytes(p, int(n))
	if err != nil {
		memFault(err)
	}
	return b
}

func memsetIntrinsic(c *CallContext, ret *Value, args []*Value) {
	p, n := args[0].Pointer(), CoerceT[uint64](args[2])
	if n > 0 {
		b := c.bytesAt(p, n)
		ch := byte(CoerceT[int32](args[1]))
		for i := range b {
			b[i] = ch
		}
		c.In.taintRange(p, int(n), args[1].NonDet)
	}
	setReturn(ret, uint64(p), args[0].NonDet)
}

func memcpyIntrinsic(c *CallContext, ret *Value, args []*Value) {
	dst, src, n := args[0].Pointer(), args[1].Pointer(), CoerceT[uint64](args[2])
	if n > 0 {
		c.bytesAt(dst, n)
		if err := c.In.Mem.Copy(dst, src, int(n)); err != nil {
			memFault(err)
		}
		c.In.copyTaint(dst, src, int(n))
	}
	setReturn(ret, uint64(dst), args[0].NonDet)
}

func strlenIntrinsic(c *CallContext, ret *Value, args []*Value) {
	p := args[0].Pointer()
	s := c.cstring(p)
	setReturn(ret, uint64(len(s)), c.In.rangeTaint(p, len(s)+1))
}

func strcmpIntrinsic(c *CallContext, ret *Value, args []*Value) {
	a, b := args[0].Pointer(), args[1].Pointer()
	sa, sb := c.cstring(a), c.cstring(b)
	nd := c.In.rangeTaint(a, len(sa)+1) || c.In.rangeTaint(b, len(sb)+1)
	setReturn(ret, int32(bytes.Compare([]byte(sa), []byte(sb))), nd)
}

func strcpyIntrinsic(c *CallContext, ret *Value, args []*Value) {
	dst, src := args[0].Pointer(), args[1].Pointer()
	s := c.cstring(src)
	n := len(s) + 1
	copy(c.bytesAt(dst, uint64(n)), append([]byte(s), 0))
	c.In.copyTaint(dst, src, n)
	setReturn(ret, uint64(dst), args[0].NonDet)
}

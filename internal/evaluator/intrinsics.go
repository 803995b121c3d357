package evaluator

import (
	"fmt"
	"sort"

	"github.com/funvibe/ctaint/internal/ctype"
	"github.com/funvibe/ctaint/internal/lexer"
	"github.com/funvibe/ctaint/internal/memory"
)

// libraryFunction binds a C prototype to its native implementation.
type libraryFunction struct {
	proto string
	fn    Intrinsic
}

// libraryHeader is loaded before any program, like the system headers a
// verification task expects.
const libraryHeader = `typedef unsigned long size_t;
typedef void* __gnuc_va_list;
#define NULL ((void*)0)
#define EXIT_SUCCESS 0
#define EXIT_FAILURE 1
#define true 1
#define false 0
`

func libraries() [][]libraryFunction {
	return [][]libraryFunction{stdioFunctions, stdlibFunctions, stringFunctions, mathFunctions, verifierFunctions}
}

// registerLibrary declares every intrinsic not excluded by the
// configuration, then loads the library header.
func (in *Interpreter) registerLibrary() {
	for _, lib := range libraries() {
		for _, l := range lib {
			in.declareIntrinsic(l.proto, l.fn)
		}
	}
	hook := in.cfg.StatementHook
	in.cfg.StatementHook = nil
	defer func() {
		in.cfg.StatementHook = hook
		in.Steps = 0
	}()
	if err := in.Load("<library>", libraryHeader); err != nil {
		panic(fmt.Sprintf("library header: %v", err))
	}
}

// declareIntrinsic parses proto and binds the function it declares.
func (in *Interpreter) declareIntrinsic(proto string, fn Intrinsic) {
	toks, err := lexer.Tokenize(proto)
	if err != nil {
		panic(fmt.Sprintf("library prototype %q: %v", proto, err))
	}
	f := in.newFrame(lexer.NewStream("<library>", toks), in.globals, nil)
	ds, _ := f.parseSpecifiers()
	d := f.parseDeclarator(ds.typ)
	if d.fn == nil {
		panic(fmt.Sprintf("library prototype %q declares no function", proto))
	}
	name := d.name.Lexeme
	if in.cfg.SkipIntrinsics != nil && in.cfg.SkipIntrinsics.Match(name) {
		return
	}
	def := &FuncDef{
		Name:       name,
		ReturnType: d.typ,
		Params:     d.fn.params,
		ParamNames: d.fn.names,
		VarArgs:    d.fn.varArgs,
		Intrinsic:  fn,
	}
	in.registerFunc(def)
	in.globals.Set(name, in.funcValue(def))
	in.intrinsics[name] = fn
}

// Intrinsics lists the names of the registered library functions.
func (in *Interpreter) Intrinsics() []string {
	names := make([]string, 0, len(in.intrinsics))
	for name := range in.intrinsics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// setReturn stores x in the return slot with the given taint.
func setReturn[T Scalar](ret *Value, x T, nd bool) {
	if ret == nil {
		return
	}
	storeScalar(ret, x)
	ret.NonDet = nd
}

// cstring reads the NUL-terminated string at p.
func (c *CallContext) cstring(p memory.Addr) string {
	s, err := c.In.Mem.CString(p)
	if err != nil {
		memFault(err)
	}
	return s
}

// owner returns the binding whose storage contains addr, or nil.
func (in *Interpreter) owner(addr memory.Addr) *Value {
	obj, err := in.Mem.Object(addr)
	if err != nil {
		memFault(err)
	}
	b, _ := obj.Owner.(*Value)
	return b
}

// rangeTaint reports whether any of the n bytes at addr hold
// non-deterministic data.
func (in *Interpreter) rangeTaint(addr memory.Addr, n int) bool {
	b := in.owner(addr)
	if b == nil {
		return false
	}
	size := elemUnit(b.Typ)
	if b.Typ.Kind != ctype.Array || b.ElemNonDet == nil || size == 0 {
		return b.NonDet
	}
	first := (addr.Offset() - b.Addr.Offset()) / size
	last := (addr.Offset() - b.Addr.Offset() + n - 1) / size
	return b.rangeTaint(first, last-first+1)
}

// taintRange gives the n bytes at addr the taint nd.
func (in *Interpreter) taintRange(addr memory.Addr, n int, nd bool) {
	b := in.owner(addr)
	if b == nil || n <= 0 {
		return
	}
	size := elemUnit(b.Typ)
	if b.Typ.Kind != ctype.Array || size == 0 {
		b.NonDet = nd
		return
	}
	first := (addr.Offset() - b.Addr.Offset()) / size
	last := (addr.Offset() - b.Addr.Offset() + n - 1) / size
	for i := first; i <= last; i++ {
		b.setElemTaint(i, nd)
	}
}

// copyTaint gives the n bytes at dst the taint of the n bytes at src,
// element by element when dst lies in an array.
func (in *Interpreter) copyTaint(dst, src memory.Addr, n int) {
	b := in.owner(dst)
	if b == nil || n <= 0 {
		return
	}
	size := elemUnit(b.Typ)
	if b.Typ.Kind != ctype.Array || size == 0 {
		b.NonDet = in.rangeTaint(src, n)
		return
	}
	for off := 0; off < n; off += size {
		w := min(size, n-off)
		in.taintRange(dst.Add(int64(off)), w, in.rangeTaint(src.Add(int64(off)), w))
	}
}

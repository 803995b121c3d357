package evaluator

import (
	"github.com/funvibe/ctaint/internal/ctype"
	"github.com/funvibe/ctaint/internal/diagnostics"
	"github.com/funvibe/ctaint/internal/memory"
	"github.com/funvibe/ctaint/internal/token"
)

// Intrinsic implements a library function natively. ret is the return
// slot, nil for void functions. args are already converted to the
// declared parameter types; variadic extras are passed as evaluated.
type Intrinsic func(c *CallContext, ret *Value, args []*Value)

// CallContext is what an intrinsic sees of its call site.
type CallContext struct {
	In  *Interpreter
	Tok token.Token
	Fn  *FuncDef
}

// Fail raises a runtime diagnostic at the call site.
func (c *CallContext) Fail(code diagnostics.ErrorCode, args ...interface{}) {
	raise(code, c.Tok, args...)
}

// parseCall parses the argument list of a call and runs it. The cursor
// is after "(". When run is false the arguments are parsed without
// effects and the int 0 placeholder is returned.
func (f *frame) parseCall(name token.Token, callee *Value, run bool) *Value {
	in := f.in
	if run && callee.kind() == ctype.Macro {
		m := callee.Macro
		if m.HasParams {
			return in.expandMacro(f, name, m, f.parseArgs(true))
		}
		callee = in.expandMacro(f, name, m, nil)
	}

	args := f.parseArgs(run)
	if !run {
		return in.placeholder()
	}

	var fn *FuncDef
	switch callee.kind() {
	case ctype.Function:
		fn = callee.Func
	case ctype.FunctionPtr:
		fn = in.funcByID(callee.load(8), name)
	default:
		raise(diagnostics.ErrT005, name, callee.Ident)
	}
	if name.Lexeme == "" {
		name.Lexeme = fn.Name
	}
	if fn.Name == in.cfg.ErrorFunction {
		in.ErrorFunctionCalled = true
	}

	in.enterFn = fn.Name
	in.checkpoint(f, name, BranchNone)
	in.enterFn = ""

	ret := in.call(f, name, fn, args)

	in.returnFn = fn.Name
	in.checkpoint(f, name, BranchNone)
	in.returnFn = ""

	if ret == nil {
		return in.temp(in.Types.Base(ctype.Void))
	}
	return ret
}

// parseArgs reads comma separated arguments up to ")". Outside run they
// are parsed in skip mode and nothing is returned.
func (f *frame) parseArgs(run bool) []*Value {
	saved := f.mode
	if !run && f.mode == modeRun {
		f.mode = modeSkip
	}
	defer func() { f.mode = saved }()

	var args []*Value
	if f.accept(token.RPAREN) {
		return nil
	}
	for {
		v := f.mustExpression()
		if run {
			args = append(args, v)
		}
		if f.accept(token.RPAREN) {
			return args
		}
		f.expect(token.COMMA)
	}
}

// call runs fn with evaluated arguments and returns its return slot, or
// nil for void functions. The slot lives in the caller's temporaries;
// everything the callee allocates is released when it returns.
func (in *Interpreter) call(caller *frame, tok token.Token, fn *FuncDef, args []*Value) *Value {
	if !fn.defined() {
		raise(diagnostics.ErrR013, tok, fn.Name)
	}
	if len(args) < len(fn.Params) {
		raise(diagnostics.ErrR008, tok, fn.Name)
	}
	if len(args) > len(fn.Params) && !fn.VarArgs {
		raise(diagnostics.ErrR007, tok, fn.Name)
	}
	if in.callDepth >= in.cfg.MaxCallDepth {
		raise(diagnostics.ErrR012, tok, fn.Name)
	}

	var ret *Value
	if fn.ReturnType.Kind != ctype.Void {
		ret = in.temp(fn.ReturnType)
		ret.Ident = fn.Name + "()"
	}

	mark := in.Mem.Mark()
	defer in.Mem.Release(mark)
	in.callDepth++
	defer func() { in.callDepth-- }()
	in.tracef("call: %s depth %d", fn.Name, in.callDepth)

	if fn.Intrinsic != nil {
		params := make([]*Value, len(args))
		for i, a := range args {
			if i < len(fn.Params) {
				p := in.temp(fn.Params[i])
				p.Ident = fn.ParamNames[i]
				in.assign(tok, p, a, false)
				params[i] = p
			} else {
				params[i] = in.copyValue(a)
			}
		}
		fn.Intrinsic(&CallContext{In: in, Tok: tok, Fn: fn}, ret, params)
		return ret
	}

	env := NewEnclosedEnvironment(in.globals)
	for i, pt := range fn.Params {
		name := fn.ParamNames[i]
		p := in.newBinding(name, pt, memory.Stack)
		in.assign(tok, p, args[i], false)
		if name != "" {
			env.Set(name, p)
		}
	}

	f := in.newFrame(fn.Stream.Fork(fn.Body), env, fn)
	f.ret = ret
	outer := in.top
	in.top = f
	defer func() { in.top = outer }()

	f.runBody()
	if f.mode == modeRun && ret != nil && fn.Name != "main" {
		in.warnf(tok, "%s", diagnostics.NewError(diagnostics.WarnW001, tok, fn.Name).Msg)
	}
	return ret
}

// runBody executes a function body. A goto whose label lies behind the
// jump restarts the body in search mode until the label is found.
func (f *frame) runBody() {
	start := f.s.Pos()
	f.parseStatement()
	for f.mode == modeGoto {
		f.freshGoto = false
		f.s.Seek(start)
		f.parseStatement()
		if f.mode == modeGoto && !f.freshGoto {
			raise(diagnostics.ErrR010, f.s.Prev(), f.searchLabel)
		}
	}
}

// expandMacro evaluates a macro body as a small subroutine: parameters
// are bound to the evaluated arguments in a scope of their own.
func (in *Interpreter) expandMacro(f *frame, tok token.Token, m *MacroDef, args []*Value) *Value {
	if m.HasParams {
		if len(args) > len(m.Params) {
			raise(diagnostics.ErrR007, tok, m.Name)
		}
		if len(args) < len(m.Params) {
			raise(diagnostics.ErrR008, tok, m.Name)
		}
	}
	env := NewEnclosedEnvironment(f.env)
	for i, name := range m.Params {
		p := in.copyValue(args[i])
		p.IsLValue = true
		p.Ident = name
		env.Set(name, p)
	}
	mf := in.newFrame(m.Stream.Fork(m.Start), env, f.fn)
	mf.types = f.types
	v := mf.mustExpression()
	if t := mf.next(); t.Type != token.EOL && t.Type != token.EOF {
		raise(diagnostics.ErrP006, t, "macro "+m.Name+" is not a single expression")
	}
	return v
}

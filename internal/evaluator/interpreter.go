package evaluator

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/funvibe/ctaint/internal/ctype"
	"github.com/funvibe/ctaint/internal/diagnostics"
	"github.com/funvibe/ctaint/internal/lexer"
	"github.com/funvibe/ctaint/internal/memory"
	"github.com/funvibe/ctaint/internal/symbols"
	"github.com/funvibe/ctaint/internal/token"
)

// Matcher selects function names. config.NameMatcher implements it.
type Matcher interface {
	Match(name string) bool
}

// EvalConfig controls one Interpreter.
type EvalConfig struct {
	// Out receives the program's stdout. Nil means os.Stdout.
	Out io.Writer
	// Trace, when set, receives expression and taint events.
	Trace *log.Logger
	// Warn receives warnings such as a missing return value. Nil means
	// stderr.
	Warn *log.Logger

	// AssumptionMode evaluates whole programs with the assumption
	// policy: an operator other than assignment that mixes a
	// non-deterministic and a deterministic operand resolves the
	// variable through "==" or is a misuse. Assignments still store.
	// EvalAssumption turns it on for its own duration and also reads
	// "=" as "==".
	AssumptionMode bool
	// ErrorFunction is the name whose call marks a reached violation.
	ErrorFunction string
	// NonDetSources makes bodyless prototypes with matching names return
	// non-deterministic values.
	NonDetSources Matcher
	// SkipIntrinsics keeps matching library functions unregistered.
	SkipIntrinsics Matcher
	// NonDetValue is the concrete value a non-deterministic source yields.
	NonDetValue int64
	// StrictNonDet makes every variable declared without an initializer
	// non-deterministic. Otherwise globals and static locals start as
	// deterministic zeros and only automatic variables are tainted.
	StrictNonDet bool

	MemoryLimit  int
	MaxCallDepth int

	// StatementHook is called with the program state before statements,
	// after branch conditions and around calls. A non-nil error stops the
	// run and is returned from Run; ErrStop stops it cleanly.
	StatementHook func(ProgramState) error
}

const (
	DefaultErrorFunction = "reach_error"
	DefaultMaxCallDepth  = 4096
	DefaultNonDetValue   = 1
)

func DefaultConfig() EvalConfig {
	return EvalConfig{
		ErrorFunction: DefaultErrorFunction,
		NonDetValue:   DefaultNonDetValue,
		StrictNonDet:  true,
		MaxCallDepth:  DefaultMaxCallDepth,
	}
}

// Branch is the outcome of the last evaluated condition.
type Branch int

const (
	BranchNone Branch = iota
	BranchTrue
	BranchFalse
)

func (b Branch) String() string {
	switch b {
	case BranchTrue:
		return "condition-true"
	case BranchFalse:
		return "condition-false"
	}
	return ""
}

// ProgramState is what the statement hook sees.
type ProgramState struct {
	File               string
	Line               int
	Column             int
	EnterFunction      string
	ReturnFromFunction string
	Control            Branch
}

// ErrStop is returned by a statement hook to end the run without error.
var ErrStop = fmt.Errorf("run stopped by hook")

// ExitError is the result of exit(), abort() or a stopped run.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("program exited with status %d", e.Code)
}

// hookAbort carries a statement hook error up to the API boundary.
type hookAbort struct {
	err error
}

// FuncDef is a function known to the program: user code with a body,
// an intrinsic, or a prototype waiting for its definition.
type FuncDef struct {
	ID         uint64
	Name       string
	ReturnType *ctype.Type
	Params     []*ctype.Type
	ParamNames []string
	VarArgs    bool

	Stream *lexer.Stream // nil for intrinsics and prototypes
	Body   int           // token index of the body's "{"

	Intrinsic Intrinsic
}

func (f *FuncDef) defined() bool {
	return f.Stream != nil || f.Intrinsic != nil
}

// MacroDef is a #define. Object-like macros have HasParams false.
type MacroDef struct {
	Name      string
	Params    []string
	HasParams bool
	Stream    *lexer.Stream
	Start     int // token index of the body
}

// Interpreter runs one C program. It is not safe for concurrent use.
type Interpreter struct {
	cfg   EvalConfig
	out   io.Writer
	warn  *log.Logger
	Types *ctype.Table
	Mem   *memory.Memory

	globals  *Environment
	typeDefs *symbols.TypeTable
	funcs    []*FuncDef
	strings  map[string]memory.Addr
	statics  map[string]*Value

	intrinsics map[string]Intrinsic

	// ErrorFunctionCalled is set once the configured error function (or
	// a verifier error intrinsic) has been entered.
	ErrorFunctionCalled bool
	// Steps counts executed statements.
	Steps int
	// Resolved lists the variables pinned by assumptions, in order.
	Resolved []string

	callDepth int
	assuming  bool   // inside EvalAssumption
	top       *frame // innermost executing frame
	lastTok   token.Token
	lastFile  string
	enterFn   string
	returnFn  string
}

func New(cfg EvalConfig) *Interpreter {
	if cfg.MaxCallDepth <= 0 {
		cfg.MaxCallDepth = DefaultMaxCallDepth
	}
	in := &Interpreter{
		cfg:        cfg,
		out:        cfg.Out,
		warn:       cfg.Warn,
		Types:      ctype.NewTable(),
		Mem:        memory.New(cfg.MemoryLimit),
		globals:    NewEnvironment(),
		typeDefs:   symbols.NewTypeTable(),
		funcs:      []*FuncDef{nil},
		strings:    make(map[string]memory.Addr),
		statics:    make(map[string]*Value),
		intrinsics: make(map[string]Intrinsic),
	}
	if in.out == nil {
		in.out = os.Stdout
	}
	if in.warn == nil {
		in.warn = log.New(os.Stderr, "warning: ", 0)
	}
	in.registerLibrary()
	return in
}

// Config returns the configuration the interpreter was built with.
func (in *Interpreter) Config() EvalConfig { return in.cfg }

func (in *Interpreter) tracef(format string, args ...interface{}) {
	if in.cfg.Trace != nil {
		in.cfg.Trace.Printf(format, args...)
	}
}

func (in *Interpreter) warnf(tok token.Token, format string, args ...interface{}) {
	pos := ""
	if tok.Line > 0 {
		pos = fmt.Sprintf("%s:%d:%d: ", in.lastFile, tok.Line, tok.Column)
	}
	in.warn.Printf(pos+format, args...)
}

// Load lexes src and executes its top level: globals are defined and
// initialized, functions and macros registered.
func (in *Interpreter) Load(file, src string) (err error) {
	toks, lerr := lexer.Tokenize(src)
	if lerr != nil {
		if d, ok := lerr.(*diagnostics.DiagnosticError); ok {
			d.File = file
		}
		return lerr
	}
	f := in.newFrame(lexer.NewStream(file, toks), in.globals, nil)
	defer in.guard(&err, f)()
	f.runTopLevel()
	return nil
}

// CallMain calls main with argv and returns the program's exit status.
func (in *Interpreter) CallMain(args []string) (status int, err error) {
	mainVal, ok := in.globals.Get("main")
	if !ok || mainVal.kind() != ctype.Function {
		in.warnf(token.Token{}, "%s", diagnostics.NewError(diagnostics.WarnW002, token.Token{}).Msg)
		return 0, nil
	}
	fn := mainVal.Func
	f := in.newFrame(nil, in.globals, nil)
	defer in.guard(&err, f)()

	var argv []*Value
	if len(fn.Params) >= 2 {
		argv = append(argv,
			newScalar(in, ctype.Int, int32(len(args))),
			in.argvArray(args))
	}
	ret := in.call(f, token.Token{Type: token.IDENT, Lexeme: "main"}, fn, argv)
	if ret != nil && ret.isNumeric() {
		status = int(CoerceT[int32](ret))
	}
	return status, nil
}

// Run loads the program and calls main.
func (in *Interpreter) Run(file, src string, args []string) (int, error) {
	if err := in.Load(file, src); err != nil {
		return 0, err
	}
	return in.CallMain(args)
}

// EvalExpression evaluates one expression in the innermost scope of the
// running program (or the global scope when nothing runs). The result is
// copied to static storage so it survives the call.
func (in *Interpreter) EvalExpression(src string) (v *Value, err error) {
	f, err := in.snippetFrame(src)
	if err != nil {
		return nil, err
	}
	mark := in.Mem.Mark()
	defer in.Mem.Release(mark)
	defer in.guard(&err, f)()

	res, ok := f.parseExpression()
	if !ok {
		panic(diagnostics.NewError(diagnostics.ErrP001, f.s.Peek(), f.s.Peek().Lexeme))
	}
	f.expect(token.EOF)
	return in.persist(res), nil
}

// EvalAssumption checks a witness assumption: expressions separated by
// semicolons, evaluated with the assumption policy. A comparison between
// a non-deterministic variable and a deterministic value pins the
// variable and holds. It reports whether every expression held.
func (in *Interpreter) EvalAssumption(src string) (holds bool, err error) {
	saved, savedAssuming := in.cfg.AssumptionMode, in.assuming
	in.cfg.AssumptionMode, in.assuming = true, true
	defer func() { in.cfg.AssumptionMode, in.assuming = saved, savedAssuming }()

	holds = true
	for _, part := range splitAssumption(src) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		v, err := in.EvalExpression(part)
		if err != nil {
			return false, err
		}
		if !v.Truth() {
			holds = false
		}
	}
	return holds, nil
}

// splitAssumption cuts src at semicolons outside character and string
// literals.
func splitAssumption(src string) []string {
	var parts []string
	start := 0
	var quote byte
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case quote != 0 && c == '\\':
			i++
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ';':
			parts = append(parts, src[start:i])
			start = i + 1
		}
	}
	return append(parts, src[start:])
}

// snippetFrame builds a frame over a stand-alone expression sharing the
// innermost scope.
func (in *Interpreter) snippetFrame(src string) (*frame, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	env := in.globals
	if in.top != nil {
		env = in.top.env
	}
	return in.newFrame(lexer.NewStream("<expression>", toks), env, nil), nil
}

// guard installs the panic boundary of an exported entry point. It
// returns the deferred function so the frame bookkeeping is restored even
// on success.
func (in *Interpreter) guard(err *error, f *frame) func() {
	outer := in.top
	in.top = f
	depth := in.callDepth
	return func() {
		in.top = outer
		in.callDepth = depth
		r := recover()
		if r == nil {
			return
		}
		switch e := r.(type) {
		case *diagnostics.DiagnosticError:
			if e.Token.Line == 0 {
				e.Token = in.lastTok
			}
			if e.File == "" {
				e.File = in.lastFile
			}
			*err = e
		case *ExitError:
			*err = e
		case hookAbort:
			*err = e.err
		default:
			panic(r)
		}
	}
}

// raise reports a diagnostic at tok.
func raise(code diagnostics.ErrorCode, tok token.Token, args ...interface{}) {
	panic(diagnostics.NewError(code, tok, args...))
}

// checkpoint reports the program state to the statement hook.
func (in *Interpreter) checkpoint(f *frame, tok token.Token, control Branch) {
	if in.cfg.StatementHook == nil || f.mode != modeRun {
		return
	}
	st := ProgramState{
		File:               filepath.Base(f.s.File),
		Line:               tok.Line,
		Column:             tok.Column,
		EnterFunction:      in.enterFn,
		ReturnFromFunction: in.returnFn,
		Control:            control,
	}
	if err := in.cfg.StatementHook(st); err != nil {
		if err == ErrStop {
			panic(&ExitError{Code: 0})
		}
		panic(hookAbort{err: err})
	}
}

// temp allocates a stack temporary of type t.
func (in *Interpreter) temp(t *ctype.Type) *Value {
	v := &Value{Typ: t, ArrayIndex: -1, mem: in.Mem}
	if t.Size > 0 {
		obj, err := in.Mem.Alloc(t.Size, "")
		if err != nil {
			memFault(err)
		}
		v.Addr = memory.MakeAddr(obj.ID, 0)
	}
	return v
}

func newScalar[T Scalar](in *Interpreter, k ctype.Kind, x T) *Value {
	v := in.temp(in.Types.Base(k))
	storeScalar(v, x)
	return v
}

// placeholder is the int 0 a suppressed operation leaves behind.
func (in *Interpreter) placeholder() *Value {
	return newScalar(in, ctype.Int, int32(0))
}

// copyValue makes a detached temporary with v's type, payload and taint.
func (in *Interpreter) copyValue(v *Value) *Value {
	c := in.temp(v.Typ)
	if v.Typ.Size > 0 {
		if err := in.Mem.Copy(c.Addr, v.Addr, v.Typ.Size); err != nil {
			memFault(err)
		}
	}
	c.TypeVal, c.Func, c.Macro = v.TypeVal, v.Func, v.Macro
	c.NonDet = v.NonDet
	c.Ident = v.Ident
	return c
}

// persist copies v into static storage.
func (in *Interpreter) persist(v *Value) *Value {
	c := &Value{Typ: v.Typ, ArrayIndex: -1, mem: in.Mem, NonDet: v.NonDet, Ident: v.Ident,
		TypeVal: v.TypeVal, Func: v.Func, Macro: v.Macro}
	if v.Typ.Size > 0 {
		obj, err := in.Mem.AllocStatic(v.Typ.Size, "result")
		if err != nil {
			memFault(err)
		}
		c.Addr = memory.MakeAddr(obj.ID, 0)
		if err := in.Mem.Copy(c.Addr, v.Addr, v.Typ.Size); err != nil {
			memFault(err)
		}
	}
	return c
}

// newBinding allocates storage for a variable. The storage object points
// back at the binding so dereferenced pointers can find it.
func (in *Interpreter) newBinding(name string, t *ctype.Type, region memory.Region) *Value {
	v := &Value{Typ: t, IsLValue: true, Ident: name, ArrayIndex: -1, mem: in.Mem}
	size := t.Size
	var (
		obj *memory.Object
		err error
	)
	switch region {
	case memory.Static:
		obj, err = in.Mem.AllocStatic(size, name)
	case memory.Heap:
		obj, err = in.Mem.AllocHeap(size, name)
	default:
		obj, err = in.Mem.Alloc(size, name)
	}
	if err != nil {
		memFault(err)
	}
	obj.Owner = v
	v.Addr = memory.MakeAddr(obj.ID, 0)
	return v
}

// registerFunc gives fn an id so function pointers can refer to it.
func (in *Interpreter) registerFunc(fn *FuncDef) {
	fn.ID = uint64(len(in.funcs))
	in.funcs = append(in.funcs, fn)
}

// funcByID resolves a function pointer payload.
func (in *Interpreter) funcByID(id uint64, tok token.Token) *FuncDef {
	if id == 0 {
		raise(diagnostics.ErrR003, tok)
	}
	if id >= uint64(len(in.funcs)) {
		raise(diagnostics.ErrT005, tok, fmt.Sprintf("0x%x", id))
	}
	return in.funcs[id]
}

// stringLiteral interns s as a static char array and returns its address.
func (in *Interpreter) stringLiteral(s string) memory.Addr {
	if a, ok := in.strings[s]; ok {
		return a
	}
	obj, err := in.Mem.AllocStatic(len(s)+1, "string")
	if err != nil {
		memFault(err)
	}
	copy(obj.Data, s)
	a := memory.MakeAddr(obj.ID, 0)
	in.strings[s] = a
	return a
}

// argvArray builds main's argv: a stack array of char* plus a terminating
// null pointer.
func (in *Interpreter) argvArray(args []string) *Value {
	charPtr := in.Types.PointerTo(in.Types.Base(ctype.Char))
	arr := in.newBinding("argv", in.Types.ArrayOf(charPtr, len(args)+1), memory.Stack)
	for i, a := range args {
		if err := in.Mem.WriteUint(arr.Addr.Add(int64(i*8)), 8, uint64(in.stringLiteral(a))); err != nil {
			memFault(err)
		}
	}
	return arr
}

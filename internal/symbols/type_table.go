package symbols

import (
	"fmt"

	"github.com/funvibe/ctaint/internal/ctype"
)

type SymbolKind int

type ScopeType int

const (
	ScopeGlobal ScopeType = iota // Translation unit top-level and library headers
	ScopeFunction
	ScopeBlock
)

const (
	TypedefSymbol SymbolKind = iota // typedef name
	TagSymbol                       // struct/union/enum tag
)

type Symbol struct {
	Name string
	Type *ctype.Type
	Kind SymbolKind
	File string // file the symbol was declared in
	Line int
}

// TypeTable is the type namespace of a C program: typedef names and
// struct/union/enum tags, scoped like variables. Variables themselves live
// in the evaluator's environment.
type TypeTable struct {
	typedefs map[string]Symbol
	tags     map[string]Symbol
	kind     ScopeType
	outer    *TypeTable
}

func NewTypeTable() *TypeTable {
	return &TypeTable{
		typedefs: make(map[string]Symbol),
		tags:     make(map[string]Symbol),
		kind:     ScopeGlobal,
	}
}

// Push opens a nested scope and returns it.
func (t *TypeTable) Push(kind ScopeType) *TypeTable {
	inner := NewTypeTable()
	inner.kind = kind
	inner.outer = t
	return inner
}

// Pop returns the enclosing scope; the global scope pops to itself.
func (t *TypeTable) Pop() *TypeTable {
	if t.outer == nil {
		return t
	}
	return t.outer
}

func (t *TypeTable) Kind() ScopeType { return t.kind }

// DefineTypedef binds a typedef name. Redefining a name to the same type is
// allowed, as C11 permits.
func (t *TypeTable) DefineTypedef(sym Symbol) error {
	sym.Kind = TypedefSymbol
	if old, ok := t.typedefs[sym.Name]; ok && old.Type != sym.Type {
		return fmt.Errorf("typedef %s redefined as %s (was %s at line %d)", sym.Name, sym.Type, old.Type, old.Line)
	}
	t.typedefs[sym.Name] = sym
	return nil
}

// Typedef resolves a typedef name through the enclosing scopes.
func (t *TypeTable) Typedef(name string) (*ctype.Type, bool) {
	for s := t; s != nil; s = s.outer {
		if sym, ok := s.typedefs[name]; ok {
			return sym.Type, true
		}
	}
	return nil, false
}

// DefineTag registers a tag in this scope. Struct, union and enum share one
// tag namespace. A second definition with the same kind returns the
// existing type so forward declarations and bodies meet on one descriptor.
func (t *TypeTable) DefineTag(kind ctype.Kind, name string, typ *ctype.Type) (*ctype.Type, error) {
	if old, ok := t.tags[name]; ok {
		if old.Type.Kind != kind {
			return nil, fmt.Errorf("'%s' defined as wrong kind of tag", name)
		}
		return old.Type, nil
	}
	t.tags[name] = Symbol{Name: name, Type: typ, Kind: TagSymbol}
	return typ, nil
}

// Tag resolves a tag through the enclosing scopes.
func (t *TypeTable) Tag(name string) (*ctype.Type, bool) {
	for s := t; s != nil; s = s.outer {
		if sym, ok := s.tags[name]; ok {
			return sym.Type, true
		}
	}
	return nil, false
}

// LocalTag looks only at this scope, which decides whether "struct s {...}"
// completes an outer declaration or shadows it.
func (t *TypeTable) LocalTag(name string) (*ctype.Type, bool) {
	sym, ok := t.tags[name]
	return sym.Type, ok
}

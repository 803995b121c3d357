package evaluator

func NewEnvironment() *Environment {
	return &Environment{store: make(map[string]*Value)}
}

func NewEnclosedEnvironment(outer *Environment) *Environment {
	env := NewEnvironment()
	env.outer = outer
	return env
}

// Environment is one lexical scope of variable, function and macro
// bindings. Interpreters are single-threaded, so there is no locking.
type Environment struct {
	store map[string]*Value
	outer *Environment
}

func (e *Environment) Get(name string) (*Value, bool) {
	for s := e; s != nil; s = s.outer {
		if v, ok := s.store[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// GetLocal looks only at this scope.
func (e *Environment) GetLocal(name string) (*Value, bool) {
	v, ok := e.store[name]
	return v, ok
}

func (e *Environment) Set(name string, val *Value) *Value {
	e.store[name] = val
	return val
}

func (e *Environment) Delete(name string) {
	delete(e.store, name)
}

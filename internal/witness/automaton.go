package witness

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/funvibe/ctaint/internal/diagnostics"
	"github.com/funvibe/ctaint/internal/evaluator"
)

// ErrNoEntry is returned for a witness without an entry node.
var ErrNoEntry = errors.New("witness has no entry node")

// Assumer checks an assumption against the running program and pins the
// non-deterministic variables it constrains. *evaluator.Interpreter
// implements it.
type Assumer interface {
	EvalAssumption(src string) (bool, error)
}

// Automaton replays a witness. It starts in the entry node and moves
// along the first edge matching each program state it consumes.
type Automaton struct {
	nodes   map[string]*Node
	succ    map[string][]*Edge
	current *Node

	illegal     bool
	errorCalled bool

	// Trace, when set, receives the transitions taken.
	Trace *log.Logger
	// Warn receives problems found while building the automaton.
	Warn *log.Logger
}

// NewAutomaton builds the automaton of w. Edges naming unknown nodes are
// dropped with a warning.
func NewAutomaton(w *Witness, warn *log.Logger) (*Automaton, error) {
	a := &Automaton{
		nodes: w.Nodes,
		succ:  make(map[string][]*Edge, len(w.Nodes)),
		Warn:  warn,
	}
	for id, n := range w.Nodes {
		a.succ[id] = nil
		if n.Entry {
			a.current = n
		}
	}
	if a.current == nil {
		return nil, ErrNoEntry
	}
	for _, e := range w.Edges {
		if _, ok := w.Nodes[e.Source]; !ok {
			a.warnf("did not find source node %q, skipping edge", e.Source)
			continue
		}
		if _, ok := w.Nodes[e.Target]; !ok {
			a.warnf("did not find target node %q, skipping edge", e.Target)
			continue
		}
		a.succ[e.Source] = append(a.succ[e.Source], e)
	}
	return a, nil
}

func (a *Automaton) warnf(format string, args ...interface{}) {
	if a.Warn != nil {
		a.Warn.Printf(format, args...)
	}
}

func (a *Automaton) tracef(format string, args ...interface{}) {
	if a.Trace != nil {
		a.Trace.Printf(format, args...)
	}
}

// Current is the node the automaton is in.
func (a *Automaton) Current() *Node { return a.current }

func (a *Automaton) Illegal() bool     { return a.illegal }
func (a *Automaton) InSink() bool      { return a.current != nil && a.current.Sink }
func (a *Automaton) InViolation() bool { return a.current != nil && a.current.Violation }

// ErrorCalled reports whether a consumed state followed a call of the
// error function.
func (a *Automaton) ErrorCalled() bool { return a.errorCalled }

// Validated reports whether the witness has been confirmed: the
// automaton is in a violation node and the program called the error
// function.
func (a *Automaton) Validated() bool {
	return a.InViolation() && a.errorCalled
}

// canMove reports whether the current node may still be left. A node
// without outgoing edges that is neither a sink nor a violation makes
// the automaton illegal.
func (a *Automaton) canMove() bool {
	if a.current == nil || a.illegal {
		a.illegal = true
		return false
	}
	if a.current.Violation || a.current.Sink {
		return false
	}
	if len(a.succ[a.current.ID]) == 0 {
		a.illegal = true
		return false
	}
	return true
}

// Consume feeds one program state to the automaton. errorCalled tells
// whether the error function has been called so far. The assumptions of
// candidate edges are checked through as; an assumption that cannot be
// evaluated counts as unmet, except for fatal conditions, which are
// returned.
func (a *Automaton) Consume(st evaluator.ProgramState, errorCalled bool, as Assumer) error {
	if errorCalled && !a.errorCalled {
		a.errorCalled = true
		a.tracef("error function has been called")
	}
	if !a.canMove() {
		return nil
	}

	var toSink *Node
	for _, e := range a.succ[a.current.ID] {
		ok, err := a.matches(e, st, as)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		target := a.nodes[e.Target]
		if target.Sink {
			// other edges win over the sink
			if toSink == nil {
				toSink = target
			}
			continue
		}
		a.tracef("taking edge %s", e)
		a.current = target
		return nil
	}
	if toSink != nil {
		a.tracef("taking edge %s -> %s", a.current.ID, toSink.ID)
		a.current = toSink
	}
	return nil
}

// matches checks the location, function and branch of e before its
// assumption, so only edges that fit the state pin variables.
func (a *Automaton) matches(e *Edge, st evaluator.ProgramState, as Assumer) (bool, error) {
	if e.OriginFile != "" && filepath.Base(e.OriginFile) != filepath.Base(st.File) {
		return false, nil
	}
	if !(e.StartLine == 0 && e.EndLine == 0) && (st.Line < e.StartLine || st.Line > e.EndLine) {
		return false, nil
	}
	if e.EnterFunction != "" && e.EnterFunction != "main" && st.EnterFunction != e.EnterFunction {
		return false, nil
	}
	if e.ReturnFrom != "" && e.ReturnFrom != "main" && st.ReturnFromFunction != e.ReturnFrom {
		return false, nil
	}
	if (e.Control != evaluator.BranchNone || st.Control != evaluator.BranchNone) && e.Control != st.Control {
		return false, nil
	}
	if e.Assumption != "" {
		holds, err := as.EvalAssumption(e.Assumption)
		if err != nil {
			var d *diagnostics.DiagnosticError
			if errors.As(err, &d) && d.Fatal() {
				return false, fmt.Errorf("assumption %q: %w", e.Assumption, err)
			}
			a.tracef("assumption %q not evaluated: %v", e.Assumption, err)
			return false, nil
		}
		if !holds {
			a.tracef("unmet assumption %q", e.Assumption)
			return false, nil
		}
		a.tracef("assumption %q satisfied", e.Assumption)
	}
	return true, nil
}

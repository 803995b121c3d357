package evaluator

import (
	"github.com/funvibe/ctaint/internal/ctype"
	"github.com/funvibe/ctaint/internal/diagnostics"
	"github.com/funvibe/ctaint/internal/token"
)

// propagate applies the taint rule of an infix operator and returns the
// taint of its result. For "=" the result follows the source alone; for
// every other operator either tainted operand taints it. Assignment
// operators also move the destination's binding to the result's taint.
func (in *Interpreter) propagate(tok token.Token, b, t *Value) bool {
	nd := b.NonDet || t.NonDet
	if tok.Type == token.ASSIGN {
		nd = t.NonDet
	}
	if classify(tok.Type) == classAssignment {
		in.setTaint(b, nd)
	}
	return nd
}

// setTaint marks the storage behind dst. Array elements update the
// array binding's bitmap; anything else updates the whole binding.
func (in *Interpreter) setTaint(dst *Value, nd bool) {
	var was bool
	dst.NonDet = nd
	if dst.ArrayRoot != nil && dst.ArrayIndex >= 0 {
		root := dst.ArrayRoot
		n := 1
		if unit := elemUnit(root.Typ); dst.Typ.Kind == ctype.Array && unit > 0 {
			n = max(dst.Typ.Size/unit, 1)
		}
		was = root.rangeTaint(dst.ArrayIndex, n)
		for i := dst.ArrayIndex; i < dst.ArrayIndex+n; i++ {
			root.setElemTaint(i, nd)
		}
	} else {
		b := dst.LValueFrom
		if b == nil {
			b = dst
		}
		was = b.NonDet
		b.NonDet = nd
		b.ElemNonDet = nil
	}
	if was != nd && in.cfg.Trace != nil {
		state := "det"
		if nd {
			state = "nondet"
		}
		in.tracef("nondet: %s becomes %s", dst.Ident, state)
	}
}

// resolveAssumption implements the assumption policy for one infix
// operator. When exactly one operand is tainted, "==" pins the tainted
// lvalue to the other operand's value and holds; any other operator is a
// misuse. It returns nil when the operator should evaluate normally.
func (in *Interpreter) resolveAssumption(tok token.Token, b, t *Value) *Value {
	if b.NonDet == t.NonDet {
		return nil
	}
	nd, det := b, t
	if t.NonDet {
		nd, det = t, b
	}
	if tok.Type != token.EQ || !nd.IsLValue {
		raise(diagnostics.ErrN001, tok, tok.Lexeme, nd.Ident)
	}
	in.assignValue(tok, nd, det, true, true)
	in.setTaint(nd, false)
	in.Resolved = append(in.Resolved, nd.Ident)
	in.tracef("nondet: resolved %s := %s", nd.Ident, in.format(det))
	return newScalar(in, ctype.Int, int32(1))
}

package evaluator

import "github.com/funvibe/ctaint/internal/token"

type opOrder int

const (
	orderNone opOrder = iota
	orderPrefix
	orderInfix
	orderPostfix
)

func (o opOrder) String() string {
	switch o {
	case orderPrefix:
		return "prefix"
	case orderInfix:
		return "infix"
	case orderPostfix:
		return "postfix"
	}
	return "value"
}

// stackNode is either a value (order == orderNone) or a pending operator.
type stackNode struct {
	val   *Value
	op    token.TokenType
	tok   token.Token
	prec  int
	order opOrder
}

// evalStack is the operand/operator stack of one expression. Storage for
// the values it holds is owned by the arena checkpoint of the enclosing
// expression, so popping never frees anything by hand.
type evalStack struct {
	nodes []stackNode
}

func (s *evalStack) pushValue(v *Value) {
	s.nodes = append(s.nodes, stackNode{val: v})
}

func (s *evalStack) pushOp(tok token.Token, order opOrder, prec int) {
	s.nodes = append(s.nodes, stackNode{op: tok.Type, tok: tok, prec: prec, order: order})
}

func (s *evalStack) len() int { return len(s.nodes) }

func (s *evalStack) top() *stackNode {
	if len(s.nodes) == 0 {
		return nil
	}
	return &s.nodes[len(s.nodes)-1]
}

// below returns the node n places under the top.
func (s *evalStack) below(n int) *stackNode {
	i := len(s.nodes) - 1 - n
	if i < 0 {
		return nil
	}
	return &s.nodes[i]
}

func (s *evalStack) pop() stackNode {
	n := s.nodes[len(s.nodes)-1]
	s.nodes = s.nodes[:len(s.nodes)-1]
	return n
}

// popValue pops a value node; ok is false when the top is an operator or
// the stack is empty.
func (s *evalStack) popValue() (*Value, bool) {
	if len(s.nodes) == 0 || s.top().order != orderNone {
		return nil, false
	}
	return s.pop().val, true
}

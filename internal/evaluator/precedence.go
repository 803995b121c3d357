package evaluator

import "github.com/funvibe/ctaint/internal/token"

const (
	// BracketPrecedence is added to every operator precedence for each
	// level of bracket nesting.
	BracketPrecedence = 20
	// DeepPrecedence disables the ignore watermark.
	DeepPrecedence = BracketPrecedence * 1000

	castPrecedence = 14
)

// opPrecedence holds the precedence of a token in each position; 0 means
// the token can't appear there.
type opPrecedence struct {
	prefix  int
	postfix int
	infix   int
}

var precedences = map[token.TokenType]opPrecedence{
	token.ASSIGN:      {infix: 2},
	token.ADD_ASSIGN:  {infix: 2},
	token.SUB_ASSIGN:  {infix: 2},
	token.MUL_ASSIGN:  {infix: 2},
	token.DIV_ASSIGN:  {infix: 2},
	token.MOD_ASSIGN:  {infix: 2},
	token.SHL_ASSIGN:  {infix: 2},
	token.SHR_ASSIGN:  {infix: 2},
	token.AND_ASSIGN:  {infix: 2},
	token.OR_ASSIGN:   {infix: 2},
	token.XOR_ASSIGN:  {infix: 2},
	token.QUESTION:    {postfix: 3},
	token.COLON:       {infix: 3},
	token.LOGICAL_OR:  {infix: 4},
	token.LOGICAL_AND: {infix: 5},
	token.BIT_OR:      {infix: 6},
	token.BIT_XOR:     {infix: 7},
	token.AMPERSAND:   {prefix: 14, infix: 8},
	token.EQ:          {infix: 9},
	token.NOT_EQ:      {infix: 9},
	token.LT:          {infix: 10},
	token.GT:          {infix: 10},
	token.LE:          {infix: 10},
	token.GE:          {infix: 10},
	token.SHL:         {infix: 11},
	token.SHR:         {infix: 11},
	token.PLUS:        {prefix: 14, infix: 12},
	token.MINUS:       {prefix: 14, infix: 12},
	token.ASTERISK:    {prefix: 14, infix: 13},
	token.SLASH:       {infix: 13},
	token.PERCENT:     {infix: 13},
	token.INCREMENT:   {prefix: 14, postfix: 15},
	token.DECREMENT:   {prefix: 14, postfix: 15},
	token.BANG:        {prefix: 14},
	token.TILDE:       {prefix: 14},
	token.SIZEOF:      {prefix: 14},
	token.CAST:        {infix: castPrecedence},
	token.LBRACKET:    {infix: 15},
	token.RBRACKET:    {postfix: 15},
	token.DOT:         {infix: 15},
	token.ARROW:       {infix: 15},
	token.LPAREN:      {prefix: 15, infix: 15},
	token.RPAREN:      {postfix: 15},
}

// isOperator reports whether the token has an entry in the table. The
// comma is not an operator here: it ends an expression, and the statement
// parser handles comma-separated expression lists.
func isOperator(t token.TokenType) bool {
	_, ok := precedences[t]
	return ok
}

// leftToRight is false for the right-associative bands: assignment (2)
// and unary operators (14).
func leftToRight(prec int) bool {
	return prec != 2 && prec != 14
}

package lexer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/funvibe/ctaint/internal/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int  // current line number
	column       int  // current column number
	lineStart    bool // only whitespace seen since the last newline
	inDefine     bool // inside a #define body
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0, lineStart: true}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) peekChar2() byte {
	if l.readPosition+1 >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition+1]
}

// NextToken returns the next token. Newlines are only significant at the
// end of a #define body, where they produce EOL.
func (l *Lexer) NextToken() token.Token {
	for {
		if l.skipWhitespace() {
			return token.Token{Type: token.EOL, Lexeme: "\n", Line: l.line - 1, Column: 0}
		}
		if l.ch == '#' && l.lineStart {
			if tok, ok := l.readDirective(); ok {
				return tok
			}
			continue
		}
		break
	}
	l.lineStart = false

	var tok token.Token
	line, col := l.line, l.column

	switch l.ch {
	case 0:
		if l.inDefine {
			l.inDefine = false
			return token.Token{Type: token.EOL, Lexeme: "", Line: line, Column: col}
		}
		return token.Token{Type: token.EOF, Lexeme: "", Line: line, Column: col}
	case '=':
		tok = l.either('=', token.EQ, token.ASSIGN)
	case '!':
		tok = l.either('=', token.NOT_EQ, token.BANG)
	case '*':
		tok = l.either('=', token.MUL_ASSIGN, token.ASTERISK)
	case '/':
		tok = l.either('=', token.DIV_ASSIGN, token.SLASH)
	case '%':
		tok = l.either('=', token.MOD_ASSIGN, token.PERCENT)
	case '^':
		tok = l.either('=', token.XOR_ASSIGN, token.BIT_XOR)
	case '~':
		tok = newToken(token.TILDE, "~", line, col)
	case '?':
		tok = newToken(token.QUESTION, "?", line, col)
	case ':':
		tok = newToken(token.COLON, ":", line, col)
	case ',':
		tok = newToken(token.COMMA, ",", line, col)
	case ';':
		tok = newToken(token.SEMICOLON, ";", line, col)
	case '(':
		tok = newToken(token.LPAREN, "(", line, col)
	case ')':
		tok = newToken(token.RPAREN, ")", line, col)
	case '[':
		tok = newToken(token.LBRACKET, "[", line, col)
	case ']':
		tok = newToken(token.RBRACKET, "]", line, col)
	case '{':
		tok = newToken(token.LBRACE, "{", line, col)
	case '}':
		tok = newToken(token.RBRACE, "}", line, col)
	case '+':
		switch l.peekChar() {
		case '+':
			l.readChar()
			tok = newToken(token.INCREMENT, "++", line, col)
		case '=':
			l.readChar()
			tok = newToken(token.ADD_ASSIGN, "+=", line, col)
		default:
			tok = newToken(token.PLUS, "+", line, col)
		}
	case '-':
		switch l.peekChar() {
		case '-':
			l.readChar()
			tok = newToken(token.DECREMENT, "--", line, col)
		case '=':
			l.readChar()
			tok = newToken(token.SUB_ASSIGN, "-=", line, col)
		case '>':
			l.readChar()
			tok = newToken(token.ARROW, "->", line, col)
		default:
			tok = newToken(token.MINUS, "-", line, col)
		}
	case '&':
		switch l.peekChar() {
		case '&':
			l.readChar()
			tok = newToken(token.LOGICAL_AND, "&&", line, col)
		case '=':
			l.readChar()
			tok = newToken(token.AND_ASSIGN, "&=", line, col)
		default:
			tok = newToken(token.AMPERSAND, "&", line, col)
		}
	case '|':
		switch l.peekChar() {
		case '|':
			l.readChar()
			tok = newToken(token.LOGICAL_OR, "||", line, col)
		case '=':
			l.readChar()
			tok = newToken(token.OR_ASSIGN, "|=", line, col)
		default:
			tok = newToken(token.BIT_OR, "|", line, col)
		}
	case '<':
		switch {
		case l.peekChar() == '<' && l.peekChar2() == '=':
			l.readChar()
			l.readChar()
			tok = newToken(token.SHL_ASSIGN, "<<=", line, col)
		case l.peekChar() == '<':
			l.readChar()
			tok = newToken(token.SHL, "<<", line, col)
		case l.peekChar() == '=':
			l.readChar()
			tok = newToken(token.LE, "<=", line, col)
		default:
			tok = newToken(token.LT, "<", line, col)
		}
	case '>':
		switch {
		case l.peekChar() == '>' && l.peekChar2() == '=':
			l.readChar()
			l.readChar()
			tok = newToken(token.SHR_ASSIGN, ">>=", line, col)
		case l.peekChar() == '>':
			l.readChar()
			tok = newToken(token.SHR, ">>", line, col)
		case l.peekChar() == '=':
			l.readChar()
			tok = newToken(token.GE, ">=", line, col)
		default:
			tok = newToken(token.GT, ">", line, col)
		}
	case '.':
		if l.peekChar() == '.' && l.peekChar2() == '.' {
			l.readChar()
			l.readChar()
			tok = newToken(token.ELLIPSIS, "...", line, col)
		} else if isDigit(l.peekChar()) {
			return l.readNumber()
		} else {
			tok = newToken(token.DOT, ".", line, col)
		}
	case '\'':
		start := l.position
		val, err := l.readCharLiteral()
		if err != nil {
			return token.Token{Type: token.ILLEGAL, Lexeme: "'", Literal: err.Error(), Line: line, Column: col}
		}
		tok = token.Token{Type: token.CHAR, Lexeme: l.input[start : l.position+1], Literal: val, Line: line, Column: col}
	case '"':
		s, err := l.readString()
		if err != nil {
			return token.Token{Type: token.ILLEGAL, Lexeme: "\"", Literal: err.Error(), Line: line, Column: col}
		}
		tok = token.Token{Type: token.STRING, Lexeme: strconv.Quote(s), Literal: s, Line: line, Column: col}
	default:
		if isLetter(l.ch) {
			ident := l.readIdentifier()
			return token.Token{Type: token.LookupIdent(ident), Lexeme: ident, Literal: ident, Line: line, Column: col}
		} else if isDigit(l.ch) {
			return l.readNumber()
		}
		tok = token.Token{Type: token.ILLEGAL, Lexeme: string(l.ch), Literal: fmt.Sprintf("unexpected character %q", l.ch), Line: line, Column: col}
	}

	l.readChar()
	return tok
}

func (l *Lexer) either(next byte, two, one token.TokenType) token.Token {
	line, col := l.line, l.column
	if l.peekChar() == next {
		first := l.ch
		l.readChar()
		return newToken(two, string([]byte{first, next}), line, col)
	}
	return newToken(one, string(l.ch), line, col)
}

// readDirective handles a preprocessor line. #define yields HASH_DEFINE and
// switches the lexer into define mode until the end of the line; every
// other directive is dropped.
func (l *Lexer) readDirective() (token.Token, bool) {
	line, col := l.line, l.column
	l.readChar() // consume '#'
	for l.ch == ' ' || l.ch == '\t' {
		l.readChar()
	}
	name := l.readIdentifier()
	if name == "define" {
		l.inDefine = true
		l.lineStart = false
		return newToken(token.HASH_DEFINE, "#define", line, col), true
	}
	for l.ch != 0 && l.ch != '\n' {
		if l.ch == '\\' && l.peekChar() == '\n' {
			l.readChar()
		}
		l.readChar()
	}
	return token.Token{}, false
}

// skipWhitespace skips blanks and comments. It reports true when a newline
// ends a #define body.
func (l *Lexer) skipWhitespace() bool {
	for {
		switch {
		case l.ch == '\n':
			if l.inDefine {
				l.inDefine = false
				l.readChar()
				l.lineStart = true
				return true
			}
			l.lineStart = true
			l.readChar()
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\f' || l.ch == '\v':
			l.readChar()
		case l.ch == '\\' && (l.peekChar() == '\n' || (l.peekChar() == '\r' && l.peekChar2() == '\n')):
			// line continuation
			l.readChar()
			if l.ch == '\r' {
				l.readChar()
			}
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			l.readChar() // consume /
			l.readChar() // consume *
			for l.ch != 0 {
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar() // consume *
					l.readChar() // consume /
					break
				}
				l.readChar()
			}
		default:
			return false
		}
	}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readNumber() token.Token {
	startLine, startCol := l.line, l.column
	position := l.position
	isFloat := false
	hex := false

	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		hex = true
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) {
			l.readChar()
		}
	} else {
		for isDigit(l.ch) {
			l.readChar()
		}
		if l.ch == '.' {
			isFloat = true
			l.readChar()
			for isDigit(l.ch) {
				l.readChar()
			}
		}
		if l.ch == 'e' || l.ch == 'E' {
			isFloat = true
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	digits := l.input[position:l.position]

	suffixStart := l.position
	for isLetter(l.ch) {
		l.readChar()
	}
	suffix := strings.ToLower(l.input[suffixStart:l.position])
	lexeme := l.input[position:l.position]

	illegal := func(msg string) token.Token {
		return token.Token{Type: token.ILLEGAL, Lexeme: lexeme, Literal: msg, Line: startLine, Column: startCol}
	}

	if isFloat {
		val, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			return illegal(err.Error())
		}
		switch suffix {
		case "":
			return token.Token{Type: token.DOUBLE, Lexeme: lexeme, Literal: val, Line: startLine, Column: startCol}
		case "f":
			return token.Token{Type: token.FLOAT, Lexeme: lexeme, Literal: val, Line: startLine, Column: startCol}
		case "l":
			return token.Token{Type: token.DOUBLE, Lexeme: lexeme, Literal: val, Line: startLine, Column: startCol}
		}
		return illegal("invalid suffix " + suffix)
	}

	var val uint64
	var err error
	switch {
	case hex:
		val, err = strconv.ParseUint(digits[2:], 16, 64)
	case len(digits) > 1 && digits[0] == '0':
		val, err = strconv.ParseUint(digits[1:], 8, 64)
	default:
		val, err = strconv.ParseUint(digits, 10, 64)
	}
	if err != nil {
		return illegal("integer constant out of range")
	}
	typ, ok := integerType(val, suffix, hex || digits[0] == '0')
	if !ok {
		return illegal("invalid suffix " + suffix)
	}
	return token.Token{Type: typ, Lexeme: lexeme, Literal: val, Line: startLine, Column: startCol}
}

// integerType picks the first type able to hold val, following C's table
// for decimal and for octal/hex constants.
func integerType(val uint64, suffix string, nonDecimal bool) (token.TokenType, bool) {
	fitsInt := val <= math.MaxInt32
	fitsUint := val <= math.MaxUint32
	fitsLong := val <= math.MaxInt64
	switch suffix {
	case "":
		switch {
		case fitsInt:
			return token.INT, true
		case nonDecimal && fitsUint:
			return token.UINT, true
		case fitsLong:
			return token.LONG, true
		}
		return token.ULONG, true
	case "u":
		if fitsUint {
			return token.UINT, true
		}
		return token.ULONG, true
	case "l":
		if fitsLong {
			return token.LONG, true
		}
		return token.ULONG, true
	case "ul", "lu":
		return token.ULONG, true
	case "ll":
		if fitsLong {
			return token.LONGLONG, true
		}
		return token.ULONGLONG, true
	case "ull", "llu":
		return token.ULONGLONG, true
	}
	return token.ILLEGAL, false
}

func (l *Lexer) readEscape() (byte, error) {
	l.readChar() // consume backslash
	switch l.ch {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case 'a':
		return '\a', nil
	case 'b':
		return '\b', nil
	case 'f':
		return '\f', nil
	case 'v':
		return '\v', nil
	case '\\', '\'', '"', '?':
		return l.ch, nil
	case 'x':
		var v int
		n := 0
		for isHexDigit(l.peekChar()) {
			l.readChar()
			d, _ := strconv.ParseUint(string(l.ch), 16, 8)
			v = v*16 + int(d)
			n++
		}
		if n == 0 {
			return 0, fmt.Errorf("\\x used with no following hex digits")
		}
		return byte(v), nil
	case 0:
		return 0, fmt.Errorf("unterminated escape sequence")
	}
	if l.ch >= '0' && l.ch <= '7' {
		v := int(l.ch - '0')
		for i := 0; i < 2 && l.peekChar() >= '0' && l.peekChar() <= '7'; i++ {
			l.readChar()
			v = v*8 + int(l.ch-'0')
		}
		return byte(v), nil
	}
	// Unknown escape, just use the char after backslash
	return l.ch, nil
}

func (l *Lexer) readCharLiteral() (int64, error) {
	l.readChar() // skip opening '
	if l.ch == '\'' {
		return 0, fmt.Errorf("empty character literal")
	}
	var char byte
	if l.ch == '\\' {
		c, err := l.readEscape()
		if err != nil {
			return 0, err
		}
		char = c
	} else {
		char = l.ch
	}
	l.readChar()
	if l.ch != '\'' {
		return 0, fmt.Errorf("unterminated character literal, expected '")
	}
	return int64(char), nil
}

func (l *Lexer) readString() (string, error) {
	var sb strings.Builder
	for {
		l.readChar()
		switch l.ch {
		case '"':
			return sb.String(), nil
		case 0, '\n':
			return "", fmt.Errorf("unterminated string literal")
		case '\\':
			if l.peekChar() == '\n' {
				l.readChar()
				continue
			}
			c, err := l.readEscape()
			if err != nil {
				return "", err
			}
			sb.WriteByte(c)
		default:
			sb.WriteByte(l.ch)
		}
	}
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || ch == '$'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func newToken(tokenType token.TokenType, lexeme string, line, col int) token.Token {
	return token.Token{Type: tokenType, Lexeme: lexeme, Literal: lexeme, Line: line, Column: col}
}

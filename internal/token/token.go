package token

import "fmt"

type TokenType string

type Token struct {
	Type    TokenType
	Lexeme  string
	Literal interface{}
	Line    int
	Column  int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q) at %d:%d", t.Type, t.Lexeme, t.Line, t.Column)
}

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"
	// EOL terminates the body of a #define line.
	EOL     = "EOL"

	IDENT = "IDENT"

	// Literals. Integer literals carry a uint64, floating literals a float64,
	// character literals an int64 and strings the decoded string.
	INT       = "INT"
	UINT      = "UINT"
	LONG      = "LONG"
	ULONG     = "ULONG"
	LONGLONG  = "LONGLONG"
	ULONGLONG = "ULONGLONG"
	FLOAT     = "FLOAT"
	DOUBLE    = "DOUBLE"
	CHAR      = "CHAR"
	STRING    = "STRING"

	// Assignment
	ASSIGN     = "="
	ADD_ASSIGN = "+="
	SUB_ASSIGN = "-="
	MUL_ASSIGN = "*="
	DIV_ASSIGN = "/="
	MOD_ASSIGN = "%="
	SHL_ASSIGN = "<<="
	SHR_ASSIGN = ">>="
	AND_ASSIGN = "&="
	OR_ASSIGN  = "|="
	XOR_ASSIGN = "^="

	QUESTION    = "?"
	COLON       = ":"
	LOGICAL_OR  = "||"
	LOGICAL_AND = "&&"
	BIT_OR      = "|"
	BIT_XOR     = "^"
	AMPERSAND   = "&"
	EQ          = "=="
	NOT_EQ      = "!="
	LT          = "<"
	GT          = ">"
	LE          = "<="
	GE          = ">="
	SHL         = "<<"
	SHR         = ">>"
	PLUS        = "+"
	MINUS       = "-"
	ASTERISK    = "*"
	SLASH       = "/"
	PERCENT     = "%"
	INCREMENT   = "++"
	DECREMENT   = "--"
	BANG        = "!"
	TILDE       = "~"
	DOT         = "."
	ARROW       = "->"
	ELLIPSIS    = "..."

	// CAST never comes out of the lexer; the expression parser pushes it
	// after recognising "(type)".
	CAST = "CAST"

	LPAREN    = "("
	RPAREN    = ")"
	LBRACKET  = "["
	RBRACKET  = "]"
	LBRACE    = "{"
	RBRACE    = "}"
	COMMA     = ","
	SEMICOLON = ";"

	HASH_DEFINE = "#define"

	// Keywords
	SIZEOF    = "sizeof"
	VOID      = "void"
	CHAR_KW   = "char"
	SHORT     = "short"
	INT_KW    = "int"
	LONG_KW   = "long"
	FLOAT_KW  = "float"
	DOUBLE_KW = "double"
	SIGNED    = "signed"
	UNSIGNED  = "unsigned"
	BOOL_KW   = "_Bool"
	STRUCT    = "struct"
	UNION     = "union"
	ENUM      = "enum"
	TYPEDEF   = "typedef"
	STATIC    = "static"
	EXTERN    = "extern"
	CONST     = "const"
	VOLATILE  = "volatile"
	REGISTER  = "register"
	AUTO      = "auto"
	INLINE    = "inline"
	RESTRICT  = "restrict"
	IF        = "if"
	ELSE      = "else"
	WHILE     = "while"
	DO        = "do"
	FOR       = "for"
	SWITCH    = "switch"
	CASE      = "case"
	DEFAULT   = "default"
	BREAK     = "break"
	CONTINUE  = "continue"
	RETURN    = "return"
	GOTO      = "goto"
)

var keywords = map[string]TokenType{
	"sizeof":     SIZEOF,
	"void":       VOID,
	"char":       CHAR_KW,
	"short":      SHORT,
	"int":        INT_KW,
	"long":       LONG_KW,
	"float":      FLOAT_KW,
	"double":     DOUBLE_KW,
	"signed":     SIGNED,
	"unsigned":   UNSIGNED,
	"_Bool":      BOOL_KW,
	"struct":     STRUCT,
	"union":      UNION,
	"enum":       ENUM,
	"typedef":    TYPEDEF,
	"static":     STATIC,
	"extern":     EXTERN,
	"const":      CONST,
	"volatile":   VOLATILE,
	"register":   REGISTER,
	"auto":       AUTO,
	"inline":     INLINE,
	"__inline":   INLINE,
	"restrict":   RESTRICT,
	"__restrict": RESTRICT,
	"if":         IF,
	"else":       ELSE,
	"while":      WHILE,
	"do":         DO,
	"for":        FOR,
	"switch":     SWITCH,
	"case":       CASE,
	"default":    DEFAULT,
	"break":      BREAK,
	"continue":   CONTINUE,
	"return":     RETURN,
	"goto":       GOTO,
}

// LookupIdent returns the keyword token type for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsLiteral reports whether t is a constant of any kind.
func IsLiteral(t TokenType) bool {
	switch t {
	case INT, UINT, LONG, ULONG, LONGLONG, ULONGLONG, FLOAT, DOUBLE, CHAR, STRING:
		return true
	}
	return false
}

// IsAssignment reports whether t is "=" or a compound assignment.
func IsAssignment(t TokenType) bool {
	switch t {
	case ASSIGN, ADD_ASSIGN, SUB_ASSIGN, MUL_ASSIGN, DIV_ASSIGN, MOD_ASSIGN,
		SHL_ASSIGN, SHR_ASSIGN, AND_ASSIGN, OR_ASSIGN, XOR_ASSIGN:
		return true
	}
	return false
}

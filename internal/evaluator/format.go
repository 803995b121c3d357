package evaluator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/funvibe/ctaint/internal/ctype"
	"github.com/funvibe/ctaint/internal/memory"
)

const formatFlags = "#+- 0"

func isAllowedFormatVerb(verb byte) bool {
	switch verb {
	case 'd', 'i', 'u', 'o', 'x', 'X', 'c', 's', 'p', 'f', 'F', 'e', 'E', 'g', 'G':
		return true
	default:
		return false
	}
}

// directive is one parsed printf conversion.
type directive struct {
	flags     string
	width     string // digits, "*" or empty
	precision string // digits after ".", "*", or empty; hasPrec tells "." apart
	hasPrec   bool
	length    string // hh, h, l, ll, z, j, t, L
	verb      byte
	end       int // index after the verb
}

// parseDirective reads the conversion starting after the '%' at i.
func parseDirective(s string, i int) (directive, error) {
	var d directive
	j := i
	for j < len(s) && strings.IndexByte(formatFlags, s[j]) >= 0 {
		j++
	}
	d.flags = s[i:j]
	k := j
	if k < len(s) && s[k] == '*' {
		k++
	} else {
		for k < len(s) && s[k] >= '0' && s[k] <= '9' {
			k++
		}
	}
	d.width = s[j:k]
	if k < len(s) && s[k] == '.' {
		d.hasPrec = true
		k++
		p := k
		if k < len(s) && s[k] == '*' {
			k++
		} else {
			for k < len(s) && s[k] >= '0' && s[k] <= '9' {
				k++
			}
		}
		d.precision = s[p:k]
	}
	l := k
	for k < len(s) && strings.IndexByte("hlLzjt", s[k]) >= 0 {
		k++
	}
	d.length = s[l:k]
	if k >= len(s) {
		return d, fmt.Errorf("unterminated format directive")
	}
	d.verb = s[k]
	if !isAllowedFormatVerb(d.verb) {
		return d, fmt.Errorf("invalid format directive %%%c", d.verb)
	}
	d.end = k + 1
	return d, nil
}

// CountFormatVerbs counts the arguments a printf format consumes,
// ignoring escaped "%%" and counting "*" widths and precisions.
// Returns an error for invalid or unterminated directives.
func CountFormatVerbs(fmtStr string) (int, error) {
	count := 0
	for i := 0; i < len(fmtStr); i++ {
		if fmtStr[i] != '%' {
			continue
		}
		if i+1 >= len(fmtStr) {
			return 0, fmt.Errorf("unterminated format directive")
		}
		if fmtStr[i+1] == '%' {
			i++
			continue
		}
		d, err := parseDirective(fmtStr, i+1)
		if err != nil {
			return 0, err
		}
		if d.width == "*" {
			count++
		}
		if d.precision == "*" {
			count++
		}
		count++
		i = d.end - 1
	}
	return count, nil
}

// formatC renders a printf format against call arguments.
func (in *Interpreter) formatC(fmtStr string, args []*Value) (string, error) {
	n, err := CountFormatVerbs(fmtStr)
	if err != nil {
		return "", err
	}
	if n > len(args) {
		return "", fmt.Errorf("format needs %d arguments, got %d", n, len(args))
	}
	var sb strings.Builder
	next := 0
	arg := func() *Value {
		v := args[next]
		next++
		return v
	}
	for i := 0; i < len(fmtStr); i++ {
		c := fmtStr[i]
		if c != '%' {
			sb.WriteByte(c)
			continue
		}
		if fmtStr[i+1] == '%' {
			sb.WriteByte('%')
			i++
			continue
		}
		d, _ := parseDirective(fmtStr, i+1)
		i = d.end - 1
		width, precision := d.width, d.precision
		if width == "*" {
			width = strconv.FormatInt(arg().Int64(), 10)
		}
		if precision == "*" {
			precision = strconv.FormatInt(arg().Int64(), 10)
		}
		spec := "%" + d.flags + width
		if d.hasPrec {
			spec += "." + precision
		}
		v := arg()
		switch d.verb {
		case 'd', 'i':
			sb.WriteString(fmt.Sprintf(spec+"d", signedArg(v, d.length)))
		case 'u':
			sb.WriteString(fmt.Sprintf(spec+"d", unsignedArg(v, d.length)))
		case 'o', 'x', 'X':
			sb.WriteString(fmt.Sprintf(spec+string(d.verb), unsignedArg(v, d.length)))
		case 'c':
			sb.WriteString(fmt.Sprintf(spec+"c", rune(byte(CoerceT[int32](v)))))
		case 's':
			s, err := in.Mem.CString(v.Pointer())
			if err != nil {
				return "", err
			}
			sb.WriteString(fmt.Sprintf(spec+"s", s))
		case 'p':
			sb.WriteString(fmt.Sprintf("%"+d.flags+width+"s", "0x"+strconv.FormatUint(uint64(v.Pointer()), 16)))
		case 'F':
			sb.WriteString(fmt.Sprintf(spec+"f", CoerceT[float64](v)))
		default:
			sb.WriteString(fmt.Sprintf(spec+string(d.verb), CoerceT[float64](v)))
		}
	}
	return sb.String(), nil
}

func signedArg(v *Value, length string) int64 {
	switch length {
	case "hh":
		return int64(CoerceT[int8](v))
	case "h":
		return int64(CoerceT[int16](v))
	case "l", "ll", "z", "j", "t":
		return CoerceT[int64](v)
	}
	return int64(CoerceT[int32](v))
}

func unsignedArg(v *Value, length string) uint64 {
	switch length {
	case "hh":
		return uint64(CoerceT[uint8](v))
	case "h":
		return uint64(CoerceT[uint16](v))
	case "l", "ll", "z", "j", "t":
		return CoerceT[uint64](v)
	}
	return uint64(CoerceT[uint32](v))
}

// Format renders v the way traces show it, marking non-deterministic
// values.
func (in *Interpreter) Format(v *Value) string {
	if v.NonDet {
		return in.format(v) + " (nondet)"
	}
	return in.format(v)
}

// format renders a value for traces.
func (in *Interpreter) format(v *Value) string {
	switch k := v.kind(); {
	case k == ctype.Void:
		return "void"
	case k.IsInteger():
		if k.IsUnsigned() {
			return strconv.FormatUint(CoerceT[uint64](v), 10)
		}
		return strconv.FormatInt(CoerceT[int64](v), 10)
	case k.IsFloat():
		return strconv.FormatFloat(CoerceT[float64](v), 'g', -1, 64)
	case k == ctype.Pointer:
		p := v.Pointer()
		if p == memory.Null {
			return "NULL"
		}
		if from := v.Typ.From; from != nil && from.Size == 1 && from.Kind != ctype.Void {
			if s, err := in.Mem.CString(p); err == nil {
				return strconv.Quote(s)
			}
		}
		return p.String()
	case k == ctype.FunctionPtr:
		id := v.load(8)
		if id == 0 || id >= uint64(len(in.funcs)) {
			return "NULL"
		}
		return "&" + in.funcs[id].Name
	case k == ctype.Function:
		return v.Func.Name + "()"
	case k == ctype.Array:
		n := v.Typ.ArraySize
		parts := make([]string, 0, n)
		for i := 0; i < n; i++ {
			el := in.lvalueAt(v.Addr.Add(int64(i*v.Typ.From.Size)), v.Typ.From, false)
			parts = append(parts, in.format(el))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case k == ctype.Struct || k == ctype.Union:
		parts := make([]string, 0, len(v.Typ.Members))
		for _, m := range v.Typ.Members {
			el := in.lvalueAt(v.Addr.Add(int64(m.Offset)), m.Type, false)
			el.BitField = m.BitField
			parts = append(parts, m.Name+"="+in.format(el))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case k == ctype.TypeOfType:
		return v.TypeVal.String()
	case k == ctype.Macro:
		return "#define " + v.Macro.Name
	}
	return v.Typ.String()
}

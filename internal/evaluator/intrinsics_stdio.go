package evaluator

import (
	"io"

	"github.com/funvibe/ctaint/internal/diagnostics"
)

var stdioFunctions = []libraryFunction{
	{"int printf(char *format, ...);", printfIntrinsic},
	{"int puts(char *s);", putsIntrinsic},
	{"int putchar(int c);", putcharIntrinsic},
}

func printfIntrinsic(c *CallContext, ret *Value, args []*Value) {
	format := c.cstring(args[0].Pointer())
	n, err := CountFormatVerbs(format)
	if err != nil {
		c.Fail(diagnostics.ErrP007, err.Error())
	}
	if n > len(args)-1 {
		c.Fail(diagnostics.ErrR008, c.Fn.Name)
	}
	s, err := c.In.formatC(format, args[1:])
	if err != nil {
		memFault(err)
	}
	c.write(s)
	setReturn(ret, int32(len(s)), false)
}

func putsIntrinsic(c *CallContext, ret *Value, args []*Value) {
	s := c.cstring(args[0].Pointer()) + "\n"
	c.write(s)
	setReturn(ret, int32(len(s)), false)
}

func putcharIntrinsic(c *CallContext, ret *Value, args []*Value) {
	ch := byte(CoerceT[int32](args[0]))
	c.write(string([]byte{ch}))
	setReturn(ret, int32(ch), args[0].NonDet)
}

func (c *CallContext) write(s string) {
	if _, err := io.WriteString(c.In.out, s); err != nil {
		c.Fail(diagnostics.ErrR009, err.Error())
	}
}

package evaluator

import (
	"testing"
)

func TestCountFormatVerbs(t *testing.T) {
	counts := map[string]int{
		"":                   0,
		"no directives":      0,
		"%d items":           1,
		"%s=%d\n":            2,
		"100%%":              0,
		"%d%% of %u":         2,
		"%-08.3lf":           1,
		"%#llx %hhu %zu %jd": 4,
		"%+i % i":            2,
		"%c%o%X%e%E%g%G%F%p": 9,
		"%*d":                2,
		"%.*s":               2,
		"%*.*f":              3,
	}
	for format, want := range counts {
		t.Run(format, func(t *testing.T) {
			got, err := CountFormatVerbs(format)
			if err != nil {
				t.Fatalf("CountFormatVerbs(%q): %v", format, err)
			}
			if got != want {
				t.Errorf("CountFormatVerbs(%q) = %d, want %d", format, got, want)
			}
		})
	}

	// unterminated directives, unknown verbs, and length modifiers
	// without a verb
	for _, format := range []string{"%", "x=%d %", "%.", "%12", "%ll", "%v", "%n", "%b"} {
		if _, err := CountFormatVerbs(format); err == nil {
			t.Errorf("CountFormatVerbs(%q): expected an error", format)
		}
	}
}

func TestPrintf(t *testing.T) {
	tests := []struct {
		call string
		want string
	}{
		{`printf("%d|%5d|%-3d|", 42, 7, 1)`, "42|    7|1  |"},
		{`printf("%u", -1)`, "4294967295"},
		{`printf("%lu", 18446744073709551615UL)`, "18446744073709551615"},
		{`printf("%hhd", 300)`, "44"},
		{`printf("%x %X %#o", 255, 255, 8)`, "ff FF 010"},
		{`printf("%c%c", 'o', 'k')`, "ok"},
		{`printf("%s=%.2f", "pi", 3.14159)`, "pi=3.14"},
		{`printf("%*d", 4, 9)`, "   9"},
		{`printf("100%%")`, "100%"},
		{`printf("%e", 1500.0)`, "1.500000e+03"},
	}
	for _, tt := range tests {
		t.Run(tt.call, func(t *testing.T) {
			out, _, err := runProgram("int main() { " + tt.call + "; return 0; }")
			if err != nil {
				t.Fatalf("%s: %v", tt.call, err)
			}
			if out != tt.want {
				t.Errorf("%s printed %q, want %q", tt.call, out, tt.want)
			}
		})
	}
}

package escape

import (
	"strings"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/require"
)

// evalLiteral builds a string literal from Escape(s) and evaluates it in a
// real JavaScript VM, returning the resulting string value.
func evalLiteral(t *testing.T, quote byte, s string) string {
	t.Helper()

	vm := goja.New()
	code := string(quote) + Escape(s) + string(quote)
	val, err := vm.RunString(code)
	require.NoError(t, err, "generated literal must parse: %q", code)
	return val.String()
}

func TestEscapeRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"plain", "hello world"},
		{"single quote", "it's a file"},
		{"double quote", `say "hi"`},
		{"backslash", `C:\temp\file.txt`},
		{"newline", "line1\nline2"},
		{"carriage return", "a\rb"},
		{"tab", "col1\tcol2"},
		{"null byte", "a\x00b"},
		{"line separator", "before\u2028after"},
		{"paragraph separator", "before\u2029after"},
		{"all reserved", "\\'\"\n\r\t\x00\u2028\u2029"},
		{"unicode", "héllo wörld 日本語 🎉"},
		{"json content", `{"key": "value\n", 'odd': true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.input, evalLiteral(t, '\'', tt.input))
			require.Equal(t, tt.input, evalLiteral(t, '"', tt.input))
		})
	}
}

func TestEscapeLargeInput(t *testing.T) {
	// Over 1 MB with reserved characters sprinkled throughout. Also a
	// smoke test that escaping is not quadratic: this finishes instantly.
	chunk := "some text with 'quotes' and \\slashes\\ and\nnewlines\u2028"
	input := strings.Repeat(chunk, 1<<15) // ~1.6 MB
	require.Equal(t, input, evalLiteral(t, '\'', input))
}

func TestEscapePassthrough(t *testing.T) {
	// Clean strings come back unchanged (and unallocated).
	s := "nothing to see here"
	require.Equal(t, s, Escape(s))
}

func TestQuote(t *testing.T) {
	require.Equal(t, "'abc'", Quote("abc"))
	require.Equal(t, `'a\'b'`, Quote("a'b"))

	vm := goja.New()
	val, err := vm.RunString(Quote("it's\n\u2028done"))
	require.NoError(t, err)
	require.Equal(t, "it's\n\u2028done", val.String())
}

func BenchmarkEscape(b *testing.B) {
	input := strings.Repeat("path/to/'file'\n", 1<<12)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Escape(input)
	}
}

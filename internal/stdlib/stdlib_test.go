package stdlib_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmolang/cosmo/internal/compiler"
	"github.com/cosmolang/cosmo/internal/stdlib"
	"github.com/cosmolang/cosmo/internal/value"
	"github.com/cosmolang/cosmo/internal/vm"
)

func newState(t *testing.T, stdout *bytes.Buffer, stdin *strings.Reader) *vm.State {
	t.Helper()

	s := vm.New()
	stdlib.Register(s, stdout, stdin)

	return s
}

func evalTop(t *testing.T, s *vm.State, source string) []value.Value {
	t.Helper()

	fn, err := compiler.Compile(s, source, "test")
	require.NoError(t, err)

	cl := s.NewClosure(fn)

	results, err := s.Call(value.FromRef(cl), nil)
	require.NoError(t, err)

	return results
}

func TestPrintWritesSpaceJoinedArgsToStdout(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	s := newState(t, &out, strings.NewReader(""))
	evalTop(t, s, `print("hello", 1, true)`)

	assert.Equal(t, "hello 1 true\n", out.String())
}

func TestTostring(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	s := newState(t, &out, strings.NewReader(""))

	results := evalTop(t, s, `return tostring(42)`)
	require.Len(t, results, 1)
	assert.Equal(t, "42", results[0].String())
}

func TestTypeNamesEachKind(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	s := newState(t, &out, strings.NewReader(""))

	testCases := []struct {
		name   string
		source string
		want   string
	}{
		{"number", `return type(42)`, "number"},
		{"string", `return type("x")`, "string"},
		{"nil", `return type(nil)`, "nil"},
		{"bool", `return type(true)`, "boolean"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			results := evalTop(t, s, tc.source)
			require.Len(t, results, 1)
			assert.Equal(t, tc.want, results[0].String())
		})
	}
}

func TestInputReadsOneLineFromStdin(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	s := newState(t, &out, strings.NewReader("first line\nsecond line\n"))

	results := evalTop(t, s, `return input()`)
	require.Len(t, results, 1)
	assert.Equal(t, "first line", results[0].String())
}

func TestSetprotoAndGetprotoRoundTrip(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	s := newState(t, &out, strings.NewReader(""))

	results := evalTop(t, s, `
		proto Base
			func greet(self)
				return "hi"
			end
		end

		var obj = {}
		return getproto(obj)
	`)

	require.Len(t, results, 1)
	assert.True(t, results[0].IsNil(), "a freshly created object has no prototype until setproto is called")

	results = evalTop(t, s, `
		var obj = {}
		setproto(obj, Base)
		return obj:greet()
	`)

	require.Len(t, results, 1)
	assert.Equal(t, "hi", results[0].String())
}

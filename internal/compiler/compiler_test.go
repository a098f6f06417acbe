package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmolang/cosmo/internal/compiler"
	"github.com/cosmolang/cosmo/internal/value"
	"github.com/cosmolang/cosmo/internal/vm"
)

func compileAndRun(t *testing.T, source string) value.Value {
	t.Helper()

	s := vm.New()

	fn, err := compiler.Compile(s, source, "test")
	require.NoError(t, err)

	cl := s.NewClosure(fn)

	results, err := s.Call(value.FromRef(cl), nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	return results[0]
}

func TestOperatorPrecedence(t *testing.T) {
	t.Parallel()

	got := compileAndRun(t, `return 2 + 3 * 4 - 1`)
	assert.Equal(t, 13.0, got.AsNumber())
}

func TestShortCircuitAndOr(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		source string
		want   value.Value
	}{
		{"and short-circuits on falsy left", "return false and (1/0)", value.Bool(false)},
		{"or short-circuits on truthy left", "return true or (1/0)", value.Bool(true)},
		{"and yields the right operand", "return true and 5", value.Number(5)},
		{"or yields the left operand when truthy", "return 7 or 9", value.Number(7)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := compileAndRun(t, tc.source)
			assert.True(t, value.Equal(tc.want, got), "got %s, want %s", got.String(), tc.want.String())
		})
	}
}

func TestIfElseBranching(t *testing.T) {
	t.Parallel()

	got := compileAndRun(t, `
		var x = 10
		if x > 5 then
			return "big"
		else
			return "small"
		end
	`)

	assert.Equal(t, "big", got.String())
}

func TestWhileLoopAccumulates(t *testing.T) {
	t.Parallel()

	got := compileAndRun(t, `
		var i = 0
		var sum = 0
		while i < 5 do
			sum = sum + i
			i = i + 1
		end
		return sum
	`)

	assert.Equal(t, 10.0, got.AsNumber())
}

func TestIncrementOperators(t *testing.T) {
	t.Parallel()

	got := compileAndRun(t, `
		var n = 1
		n++
		n++
		return n
	`)

	assert.Equal(t, 3.0, got.AsNumber())
}

func TestCompileErrorOnUnexpectedToken(t *testing.T) {
	t.Parallel()

	s := vm.New()

	_, err := compiler.Compile(s, `var = 1`, "test")
	require.Error(t, err)
}

func TestCompileErrorUnterminatedBlock(t *testing.T) {
	t.Parallel()

	s := vm.New()

	_, err := compiler.Compile(s, `if true then return 1`, "test")
	require.Error(t, err)
}

package cosmo_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmolang/cosmo/pkg/cosmo"
)

func run(t *testing.T, source string) []cosmo.Value {
	t.Helper()

	s := cosmo.New()

	fn, err := s.CompileString(source, "test")
	require.NoError(t, err)

	results, err := s.Call(fn, nil)
	require.NoError(t, err)

	return results
}

func TestClosuresShareUpvalues(t *testing.T) {
	t.Parallel()

	results := run(t, `
		func makeCounter()
			var n = 0
			func inc()
				n = n + 1
				return n
			end
			return inc
		end

		var counter = makeCounter()
		counter()
		counter()
		return counter()
	`)

	require.Len(t, results, 1)
	assert.Equal(t, 3.0, results[0].AsNumber())
}

func TestCountOperator(t *testing.T) {
	t.Parallel()

	results := run(t, `
		var xs = [10, 20, 30, 40]
		return #xs
	`)

	require.Len(t, results, 1)
	assert.Equal(t, 4.0, results[0].AsNumber())
}

func TestCountOperatorOnString(t *testing.T) {
	t.Parallel()

	results := run(t, `return #"hello"`)

	require.Len(t, results, 1)
	assert.Equal(t, 5.0, results[0].AsNumber())
}

func TestPrototypeChainMethodDispatch(t *testing.T) {
	t.Parallel()

	results := run(t, `
		proto Animal
			func speak(self)
				return "..."
			end
		end

		proto Dog
			func speak(self)
				return "woof"
			end
		end

		setproto(Dog, Animal)

		var rex = {}
		setproto(rex, Dog)

		return rex:speak()
	`)

	require.Len(t, results, 1)
	assert.Equal(t, "woof", results[0].String())
}

func TestPrototypeChainFallsThroughToParent(t *testing.T) {
	t.Parallel()

	results := run(t, `
		proto Animal
			func speak(self)
				return "..."
			end
		end

		var cat = {}
		setproto(cat, Animal)

		return cat:speak()
	`)

	require.Len(t, results, 1)
	assert.Equal(t, "...", results[0].String())
}

func TestForInIteratesDict(t *testing.T) {
	t.Parallel()

	results := run(t, `
		var total = 0
		var xs = [1, 2, 3, 4, 5]
		for v in xs do
			total = total + v
		end
		return total
	`)

	require.Len(t, results, 1)
	assert.Equal(t, 15.0, results[0].AsNumber())
}

func TestRegisterHostFunction(t *testing.T) {
	t.Parallel()

	s := cosmo.New()

	var seen []cosmo.Value

	s.Register("capture", func(args []cosmo.Value) ([]cosmo.Value, error) {
		seen = args

		return nil, nil
	})

	fn, err := s.CompileString(`capture(1, "two", true)`, "test")
	require.NoError(t, err)

	_, err = s.Call(fn, nil)
	require.NoError(t, err)

	require.Len(t, seen, 3)
	assert.Equal(t, 1.0, seen[0].AsNumber())
	assert.Equal(t, "two", seen[1].String())
	assert.True(t, seen[2].AsBool())
}

func TestPcallRecoversRuntimeError(t *testing.T) {
	t.Parallel()

	s := cosmo.New()

	fn, err := s.CompileString(`return nilCallee()`, "test")
	require.NoError(t, err)

	_, err = s.Pcall(fn, nil)
	assert.Error(t, err)
}

func TestDumpUndumpThroughPublicAPI(t *testing.T) {
	t.Parallel()

	s := cosmo.New()

	fn, err := s.CompileString(`
		func square(n)
			return n * n
		end
		return square(6)
	`, "test")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.Dump(&buf, fn))

	dst := cosmo.New()

	loaded, err := dst.Undump(&buf)
	require.NoError(t, err)

	results, err := dst.Call(loaded, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 36.0, results[0].AsNumber())
}

package dump_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/cosmolang/cosmo/internal/compiler"
	"github.com/cosmolang/cosmo/internal/dump"
	"github.com/cosmolang/cosmo/internal/object"
	"github.com/cosmolang/cosmo/internal/value"
	"github.com/cosmolang/cosmo/internal/vm"
)

// valueCompare lets go-cmp diff value.Value without reaching into its
// unexported fields: two values are equal for dump round-trip purposes if
// they have the same type and, for nil/booleans/numbers, the same value, or
// for strings the same bytes (string identity doesn't survive a round trip
// through a fresh interning pool). Any other reference compares unequal.
var valueCompare = cmp.Comparer(func(a, b value.Value) bool {
	if a.Type() != b.Type() {
		return false
	}

	switch {
	case a.IsNil():
		return true
	case a.IsBool():
		return a.AsBool() == b.AsBool()
	case a.IsNumber():
		return a.AsNumber() == b.AsNumber()
	default:
		as, aok := a.AsRef().(*object.String)
		bs, bok := b.AsRef().(*object.String)

		if aok && bok {
			return bytes.Equal(as.Bytes(), bs.Bytes())
		}

		return false
	}
})

var stringCompare = cmp.Comparer(func(a, b *object.String) bool {
	if a == nil || b == nil {
		return a == b
	}

	return bytes.Equal(a.Bytes(), b.Bytes())
})

func compileFunction(t *testing.T, source string) (*vm.State, *object.Function) {
	t.Helper()

	s := vm.New()

	fn, err := compiler.Compile(s, source, "test")
	require.NoError(t, err)

	return s, fn
}

func TestDumpUndumpRoundTrip(t *testing.T) {
	t.Parallel()

	_, fn := compileFunction(t, `
		var greeting = "hello, " .. "world"
		var n = 1 + 2 * 3
		var flag = n > 5 and true or false
	`)

	var buf bytes.Buffer
	require.NoError(t, dump.Dump(&buf, fn))

	dst := vm.New()

	got, err := dump.Undump(&buf, dst.NewString)
	require.NoError(t, err)

	opts := cmp.Options{
		valueCompare,
		stringCompare,
		cmpopts.IgnoreTypes(value.Header{}), // GC links and mark bits belong to each VM, not the prototype
		cmpopts.EquateEmpty(),
		cmpopts.IgnoreFields(object.Function{}, "Name", "Module"),
	}

	if diff := cmp.Diff(fn, got, opts...); diff != "" {
		t.Fatalf("round-tripped prototype differs (-want +got):\n%s", diff)
	}
}

func TestUndumpRejectsBadHeader(t *testing.T) {
	t.Parallel()

	s := vm.New()

	_, err := dump.Undump(bytes.NewReader([]byte("nope")), s.NewString)
	require.ErrorIs(t, err, dump.ErrBadHeader)
}

func TestDumpUndumpExecutable(t *testing.T) {
	t.Parallel()

	_, fn := compileFunction(t, `
		func double(n)
			return n * 2
		end
		return double(21)
	`)

	var buf bytes.Buffer
	require.NoError(t, dump.Dump(&buf, fn))

	dst := vm.New()

	loaded, err := dump.Undump(&buf, dst.NewString)
	require.NoError(t, err)

	cl := dst.NewClosure(loaded)

	results, err := dst.Call(value.FromRef(cl), nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, 42.0, results[0].AsNumber())
}

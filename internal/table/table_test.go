package table_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmolang/cosmo/internal/table"
	"github.com/cosmolang/cosmo/internal/value"
)

type noopHook struct{ needed int }

func (h *noopHook) CheckGarbage(needed int) { h.needed = needed }

func TestSetGetRemove(t *testing.T) {
	t.Parallel()

	tbl := table.New()
	tbl.SetGCHook(&noopHook{})

	key := value.Number(42)
	tbl.Set(key, value.Bool(true))

	got, ok := tbl.Get(key)
	require.True(t, ok)
	assert.True(t, got.AsBool())

	removed := tbl.Remove(key)
	assert.True(t, removed)

	_, ok = tbl.Get(key)
	assert.False(t, ok)
}

func TestCountExcludesTombstones(t *testing.T) {
	t.Parallel()

	tbl := table.New()
	tbl.SetGCHook(&noopHook{})

	for i := 0; i < 10; i++ {
		tbl.Set(value.Number(float64(i)), value.Number(float64(i)))
	}

	require.Equal(t, 10, tbl.Count())

	for i := 0; i < 5; i++ {
		tbl.Remove(value.Number(float64(i)))
	}

	assert.Equal(t, 5, tbl.Count())
}

func TestGrowsPastLoadFactor(t *testing.T) {
	t.Parallel()

	tbl := table.New()
	tbl.SetGCHook(&noopHook{})

	const n = 1000

	for i := 0; i < n; i++ {
		tbl.Set(value.Number(float64(i)), value.Number(float64(i)))
	}

	require.Equal(t, n, tbl.Count())
	assert.Greater(t, tbl.Capacity(), n)

	for i := 0; i < n; i++ {
		v, ok := tbl.Get(value.Number(float64(i)))
		require.True(t, ok, "missing key %d", i)
		assert.Equal(t, float64(i), v.AsNumber())
	}
}

func TestInsertReturnsWritableSlot(t *testing.T) {
	t.Parallel()

	tbl := table.New()
	tbl.SetGCHook(&noopHook{})

	slot := tbl.Insert(value.Number(1))
	*slot = value.Number(99)

	got, ok := tbl.Get(value.Number(1))
	require.True(t, ok)
	assert.Equal(t, 99.0, got.AsNumber())
}

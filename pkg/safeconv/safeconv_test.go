package safeconv_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/histotrend/pkg/safeconv"
)

func TestUint64ToInt64(t *testing.T) {
	t.Parallel()

	t.Run("zero", func(t *testing.T) {
		t.Parallel()

		got, err := safeconv.Uint64ToInt64(0)
		require.NoError(t, err)
		assert.Zero(t, got)
	})

	t.Run("max_int64", func(t *testing.T) {
		t.Parallel()

		got, err := safeconv.Uint64ToInt64(math.MaxInt64)
		require.NoError(t, err)
		assert.Equal(t, int64(math.MaxInt64), got)
	})

	t.Run("overflow", func(t *testing.T) {
		t.Parallel()

		_, err := safeconv.Uint64ToInt64(math.MaxInt64 + 1)
		require.ErrorIs(t, err, safeconv.ErrOverflow)
	})
}

func TestMustUint64ToInt64_Panics(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(2048), safeconv.MustUint64ToInt64(2048))
	assert.Panics(t, func() { safeconv.MustUint64ToInt64(math.MaxUint64) })
}

func TestInt64ToUint64(t *testing.T) {
	t.Parallel()

	got, err := safeconv.Int64ToUint64(math.MaxInt64)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxInt64), got)

	_, err = safeconv.Int64ToUint64(-1)
	require.ErrorIs(t, err, safeconv.ErrOverflow)
}

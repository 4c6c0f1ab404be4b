package hlo

import (
	"testing"

	"github.com/gomlx/go-xla/pkg/types/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestLiteralSplat(t *testing.T) {
	l := NewSplat(dtypes.Float32, 9, 3, 3)
	require.Equal(t, dtypes.Float32, l.DType())
	require.Equal(t, []int{3, 3}, l.Shape().Dimensions)
	require.Equal(t, 9, l.NumElements())
	require.True(t, l.IsSplat())
	v, ok := l.SplatFloat64()
	require.True(t, ok)
	assert.Equal(t, 9.0, v)
	assert.True(t, l.IsExactlyFloat(9))
	assert.False(t, l.IsExactlyFloat(9.5))

	// Scalars have no dimensions.
	scalar := NewSplat(dtypes.Float64, 0.5)
	require.True(t, scalar.Shape().IsScalar())
	require.Equal(t, 1, scalar.NumElements())
	assert.True(t, scalar.IsExactlyFloat(0.5))

	// Integer literals never match a float probe.
	i := NewSplat(dtypes.Int32, 3)
	assert.False(t, i.IsExactlyFloat(3))
}

func TestLiteralFromFlat(t *testing.T) {
	l := FromFlatAndDimensions([]float32{1, 2, 3, 4}, 2, 2)
	require.Equal(t, dtypes.Float32, l.DType())
	require.False(t, l.IsSplat())
	_, ok := l.SplatFloat64()
	require.False(t, ok)

	flat, err := Flat[float32](l)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4}, flat)

	// Reading with the wrong element type fails.
	_, err = Flat[float64](l)
	require.Error(t, err)

	// Dense data with all elements equal counts as a splat.
	ones := FromFlatAndDimensions([]float32{1, 1, 1}, 3)
	require.True(t, ones.IsSplat())
	assert.True(t, ones.IsExactlyFloat(1))

	// So do single-element literals.
	one := FromFlatAndDimensions([]float64{3.5}, 1, 1)
	require.True(t, one.IsSplat())
	v, ok := one.SplatFloat64()
	require.True(t, ok)
	assert.Equal(t, 3.5, v)

	// Size mismatch panics.
	require.Panics(t, func() { FromFlatAndDimensions([]float32{1, 2, 3}, 2, 2) })
}

func TestLiteralFlatOfSplat(t *testing.T) {
	l := NewSplat(dtypes.Float64, 2.5, 2, 2)
	flat, err := Flat[float64](l)
	require.NoError(t, err)
	assert.Equal(t, []float64{2.5, 2.5, 2.5, 2.5}, flat)
}

func TestLiteralFloat16(t *testing.T) {
	// 0.1 is not representable in float16. The probe is rounded through the
	// dtype like the stored value was, so the exact compare still matches.
	l := NewSplat(dtypes.Float16, 0.1, 2)
	assert.True(t, l.IsExactlyFloat(0.1))
	assert.False(t, l.IsExactlyFloat(0.2))

	h := float16.Fromfloat32(1)
	dense := FromFlatAndDimensions([]float16.Float16{h, h}, 2)
	require.True(t, dense.IsSplat())
	assert.True(t, dense.IsExactlyFloat(1))
}

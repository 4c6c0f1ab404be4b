package hlo

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/go-xla/pkg/types/dtypes"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/support/xslices"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Element are the Go types a Literal can hold.
type Element interface {
	float16.Float16 | float32 | float64 | int32 | int64
}

// Literal is the payload of an OpTypeConstant node: a shape plus either a
// splat value (every element identical) or dense flat data in row-major
// order.
//
// Values are immutable once built. The numeric splat is stored already
// rounded to the literal's dtype, so equality checks are exact in that dtype.
type Literal struct {
	shape shapes.Shape

	isSplat bool
	splat   float64

	// flat is one of []float16.Float16, []float32, []float64, []int32 or
	// []int64, with exactly shape.Size() elements. nil for splats.
	flat any
}

// NewSplat returns a literal of the given dtype and dimensions with every
// element set to value (rounded to dtype).
func NewSplat(dtype dtypes.DType, value float64, dims ...int) *Literal {
	shape := shapes.Make(dtype, dims...)
	return &Literal{shape: shape, isSplat: true, splat: roundToDType(dtype, value)}
}

// FromFlatAndDimensions builds a literal from a flat slice and its
// dimensions. The dtype is taken from the element type. It panics if the
// flat size doesn't match the dimensions.
func FromFlatAndDimensions[T Element](flat []T, dims ...int) *Literal {
	dtype := dtypes.FromGenericsType[T]()
	shape := shapes.Make(dtype, dims...)
	if len(flat) != shape.Size() {
		exceptions.Panicf("hlo.FromFlatAndDimensions: got %d elements for shape %s (want %d)",
			len(flat), shape, shape.Size())
	}
	return &Literal{shape: shape, flat: xslices.Copy(flat)}
}

// Shape of the literal.
func (l *Literal) Shape() shapes.Shape { return l.shape }

// DType of the literal's elements.
func (l *Literal) DType() dtypes.DType { return l.shape.DType }

// NumElements is the total element count.
func (l *Literal) NumElements() int { return l.shape.Size() }

// IsSplat reports whether every element holds the same value. Single-element
// literals and dense literals whose elements happen to be all equal count as
// splats.
func (l *Literal) IsSplat() bool {
	if l.isSplat || l.NumElements() == 1 {
		return true
	}
	first := l.elementAsFloat64(0)
	for i := 1; i < l.NumElements(); i++ {
		if l.elementAsFloat64(i) != first {
			return false
		}
	}
	return true
}

// SplatFloat64 returns the single value of a splat literal as float64, exact
// in the literal's dtype. ok is false if the literal is not a splat.
func (l *Literal) SplatFloat64() (value float64, ok bool) {
	if !l.IsSplat() {
		return 0, false
	}
	if l.isSplat {
		return l.splat, true
	}
	return l.elementAsFloat64(0), true
}

// IsExactlyFloat reports whether the literal is a float splat whose value is
// exactly v once v is rounded to the literal's dtype. Non-float and
// non-splat literals never match.
func (l *Literal) IsExactlyFloat(v float64) bool {
	if !l.DType().IsFloat() {
		return false
	}
	got, ok := l.SplatFloat64()
	if !ok {
		return false
	}
	return got == roundToDType(l.DType(), v)
}

// Flat returns the literal's elements as a flat []T in row-major order,
// materializing splats. T must match the literal's dtype.
func Flat[T Element](l *Literal) ([]T, error) {
	want := dtypes.FromGenericsType[T]()
	if l.DType() != want {
		return nil, errors.Errorf("literal holds %s, cannot read as %s", l.DType(), want)
	}
	if l.flat != nil {
		return xslices.Copy(l.flat.([]T)), nil
	}
	return xslices.SliceWithValue(l.NumElements(), fromFloat64[T](l.splat)), nil
}

func (l *Literal) elementAsFloat64(i int) float64 {
	if l.flat == nil {
		return l.splat
	}
	switch flat := l.flat.(type) {
	case []float16.Float16:
		return float64(flat[i].Float32())
	case []float32:
		return float64(flat[i])
	case []float64:
		return flat[i]
	case []int32:
		return float64(flat[i])
	case []int64:
		return float64(flat[i])
	}
	exceptions.Panicf("hlo.Literal holds unsupported flat data %T", l.flat)
	return 0
}

// roundToDType rounds v through dtype and returns it widened back to
// float64, so comparisons happen in the dtype's precision.
func roundToDType(dtype dtypes.DType, v float64) float64 {
	switch dtype {
	case dtypes.Float16:
		return float64(float16.Fromfloat32(float32(v)).Float32())
	case dtypes.Float32:
		return float64(float32(v))
	case dtypes.Float64:
		return v
	case dtypes.Int32:
		return float64(int32(v))
	case dtypes.Int64:
		return float64(int64(v))
	}
	exceptions.Panicf("hlo.Literal does not support dtype %s", dtype)
	return 0
}

func fromFloat64[T Element](v float64) T {
	var t T
	switch any(t).(type) {
	case float16.Float16:
		return any(float16.Fromfloat32(float32(v))).(T)
	case float32:
		return any(float32(v)).(T)
	case float64:
		return any(v).(T)
	case int32:
		return any(int32(v)).(T)
	case int64:
		return any(int64(v)).(T)
	}
	exceptions.Panicf("hlo: unsupported literal element type %T", t)
	return t
}

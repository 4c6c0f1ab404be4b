// Package togomlx converts hlo literals to their GoMLX equivalents, so
// tests can feed the same values to a GoMLX backend and cross-check results.
package togomlx

import (
	"github.com/gomlx/go-xla/pkg/types/dtypes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/gomlx/hlo-litert/hlo"
)

// Tensor converts a literal to a GoMLX tensor, materializing splats.
func Tensor(literal *hlo.Literal) (*tensors.Tensor, error) {
	if literal == nil {
		return nil, errors.New("literal is nil")
	}
	switch literal.DType() {
	case dtypes.Float16:
		return tensorOf[float16.Float16](literal)
	case dtypes.Float32:
		return tensorOf[float32](literal)
	case dtypes.Float64:
		return tensorOf[float64](literal)
	case dtypes.Int32:
		return tensorOf[int32](literal)
	case dtypes.Int64:
		return tensorOf[int64](literal)
	default:
		return nil, errors.Errorf("literal dtype %s not supported", literal.DType())
	}
}

func tensorOf[T hlo.Element](literal *hlo.Literal) (*tensors.Tensor, error) {
	flat, err := hlo.Flat[T](literal)
	if err != nil {
		return nil, err
	}
	return tensors.FromFlatDataAndDimensions(flat, literal.Shape().Dimensions...), nil
}

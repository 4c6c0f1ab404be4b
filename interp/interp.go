// Package interp evaluates hlo graphs on concrete inputs. It is the
// reference the rewrite tests compare against, written for clarity over
// speed: every op is computed element by element on the host.
package interp

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/gomlx/go-xla/pkg/types/dtypes"
	"github.com/gomlx/hlo-litert/hlo"
	"github.com/pkg/errors"
)

type floats interface {
	float32 | float64
}

// Run evaluates the graph outputs given a literal for every parameter,
// keyed by parameter name.
func Run(g *hlo.Graph, feeds map[string]*hlo.Literal) ([]*hlo.Literal, error) {
	outputs := g.Outputs()
	if len(outputs) == 0 {
		return nil, errors.Errorf("graph %q has no outputs to evaluate", g.Name())
	}
	values := make(map[*hlo.Node]*hlo.Literal, g.NumNodes())
	for _, n := range g.SortedNodes() {
		value, err := eval(n, values, feeds)
		if err != nil {
			return nil, errors.WithMessagef(err, "evaluating %s of graph %q", n, g.Name())
		}
		values[n] = value
	}
	results := make([]*hlo.Literal, len(outputs))
	for i, out := range outputs {
		results[i] = values[out]
	}
	return results, nil
}

func eval(n *hlo.Node, values map[*hlo.Node]*hlo.Literal, feeds map[string]*hlo.Literal) (*hlo.Literal, error) {
	switch n.DType() {
	case dtypes.Float32:
		return evalNode[float32](n, values, feeds)
	case dtypes.Float64:
		return evalNode[float64](n, values, feeds)
	}
	return nil, errors.Errorf("dtype %s is not supported by the interpreter", n.DType())
}

func evalNode[T floats](n *hlo.Node, values map[*hlo.Node]*hlo.Literal, feeds map[string]*hlo.Literal) (*hlo.Literal, error) {
	switch n.Type() {
	case hlo.OpTypeParameter:
		feed, found := feeds[n.Name()]
		if !found {
			return nil, errors.Errorf("no feed for parameter %q", n.Name())
		}
		if !feed.Shape().Equal(n.Shape()) {
			return nil, errors.Errorf("feed for parameter %q has shape %s, want %s",
				n.Name(), feed.Shape(), n.Shape())
		}
		return feed, nil
	case hlo.OpTypeConstant:
		return n.Literal(), nil
	}

	inputs := make([][]T, n.NumInputs())
	for i, in := range n.Inputs() {
		flat, err := hlo.Flat[T](values[in])
		if err != nil {
			return nil, err
		}
		inputs[i] = flat
	}

	var out []T
	switch n.Type() {
	case hlo.OpTypeTranspose:
		out = evalTranspose(inputs[0], n.Input(0).Shape().Dimensions, n.Shape().Dimensions, n.Permutation())
	case hlo.OpTypeReshape:
		out = inputs[0] // same elements in the same row-major order
	case hlo.OpTypeBroadcastInDim:
		out = evalBroadcastInDim(inputs[0], n.Input(0).Shape().Dimensions, n.Shape().Dimensions, n.BroadcastAxes())
	case hlo.OpTypeAdd, hlo.OpTypeMul, hlo.OpTypeMax, hlo.OpTypeDiv:
		out = evalBinary(n.Type(), inputs[0], inputs[1])
	case hlo.OpTypeReduceWindow:
		if len(inputs[1]) != 1 {
			return nil, errors.Errorf("reduce window initial value must hold one element, got %d", len(inputs[1]))
		}
		out = evalReduceWindow(inputs[0], inputs[1][0], n.Input(0).Shape().Dimensions, n.Shape().Dimensions, n.Window())
	case hlo.OpTypeAveragePool2D, hlo.OpTypeMaxPool2D:
		out = evalPool2D(n.Type(), inputs[0], n.Input(0).Shape().Dimensions, n.Shape().Dimensions, n.Pool())
	default:
		return nil, errors.Errorf("op %s is not supported by the interpreter", n.Type())
	}
	return hlo.FromFlatAndDimensions(out, n.Shape().Dimensions...), nil
}

func evalTranspose[T floats](in []T, inDims, outDims, perm []int) []T {
	inStrides := rowMajorStrides(inDims)
	out := make([]T, len(in))
	coord := make([]int, len(outDims))
	for idx := range out {
		delinearize(idx, outDims, coord)
		inIdx := 0
		for d, p := range perm {
			inIdx += coord[d] * inStrides[p]
		}
		out[idx] = in[inIdx]
	}
	return out
}

func evalBroadcastInDim[T floats](in []T, inDims, outDims, axes []int) []T {
	inStrides := rowMajorStrides(inDims)
	out := make([]T, sizeOf(outDims))
	coord := make([]int, len(outDims))
	for idx := range out {
		delinearize(idx, outDims, coord)
		inIdx := 0
		for d, axis := range axes {
			if inDims[d] == 1 {
				continue // broadcast along this axis
			}
			inIdx += coord[axis] * inStrides[d]
		}
		out[idx] = in[inIdx]
	}
	return out
}

func evalBinary[T floats](opType hlo.OpType, lhs, rhs []T) []T {
	out := make([]T, len(lhs))
	switch opType {
	case hlo.OpTypeAdd:
		for i := range out {
			out[i] = lhs[i] + rhs[i]
		}
	case hlo.OpTypeMul:
		for i := range out {
			out[i] = lhs[i] * rhs[i]
		}
	case hlo.OpTypeMax:
		for i := range out {
			out[i] = max(lhs[i], rhs[i])
		}
	case hlo.OpTypeDiv:
		for i := range out {
			out[i] = lhs[i] / rhs[i]
		}
	}
	return out
}

// evalReduceWindow computes the full sliding window semantics: strides,
// base and window dilation, and (low, high) padding. Window taps that fall
// on padding or dilation holes read the initial value.
func evalReduceWindow[T floats](in []T, initial T, inDims, outDims []int, w *hlo.WindowAttrs) []T {
	rank := len(outDims)
	inStrides := rowMajorStrides(inDims)
	out := make([]T, sizeOf(outDims))
	outCoord := make([]int, rank)
	winCoord := make([]int, rank)
	for idx := range out {
		delinearize(idx, outDims, outCoord)
		acc := initial
		clear(winCoord)
		for {
			value := initial
			inIdx := 0
			valid := true
			for d := 0; d < rank; d++ {
				// Position over the padded, base-dilated input.
				pos := outCoord[d]*w.WindowStrides[d] + winCoord[d]*w.WindowDilations[d] - w.Paddings[d][0]
				if pos < 0 || pos%w.BaseDilations[d] != 0 {
					valid = false
					break
				}
				pos /= w.BaseDilations[d]
				if pos >= inDims[d] {
					valid = false
					break
				}
				inIdx += pos * inStrides[d]
			}
			if valid {
				value = in[inIdx]
			}
			acc = combine(w.Reduction, acc, value)
			if !nextCoord(winCoord, w.WindowDimensions) {
				break
			}
		}
		out[idx] = acc
	}
	return out
}

// evalPool2D computes the fused pooling ops over batch-height-width-channel
// data. Average pooling divides by the number of in-bounds taps, so border
// windows under SAME padding average only what they cover.
func evalPool2D[T floats](opType hlo.OpType, in []T, inDims, outDims []int, p *hlo.PoolAttrs) []T {
	inH, inW := inDims[1], inDims[2]
	outH, outW := outDims[1], outDims[2]
	channels := inDims[3]
	var padH, padW int
	if p.Padding == hlo.PaddingSame {
		padH = samePadLow(inH, outH, p.StrideHeight, p.FilterHeight)
		padW = samePadLow(inW, outW, p.StrideWidth, p.FilterWidth)
	}
	inStrides := rowMajorStrides(inDims)
	outStrides := rowMajorStrides(outDims)
	out := make([]T, sizeOf(outDims))
	for b := 0; b < outDims[0]; b++ {
		for oh := 0; oh < outH; oh++ {
			for ow := 0; ow < outW; ow++ {
				for c := 0; c < channels; c++ {
					acc := negInf[T]()
					sum := T(0)
					count := 0
					for fh := 0; fh < p.FilterHeight; fh++ {
						h := oh*p.StrideHeight + fh - padH
						if h < 0 || h >= inH {
							continue
						}
						for fw := 0; fw < p.FilterWidth; fw++ {
							w := ow*p.StrideWidth + fw - padW
							if w < 0 || w >= inW {
								continue
							}
							v := in[b*inStrides[0]+h*inStrides[1]+w*inStrides[2]+c]
							sum += v
							acc = max(acc, v)
							count++
						}
					}
					outIdx := b*outStrides[0] + oh*outStrides[1] + ow*outStrides[2] + c
					if opType == hlo.OpTypeMaxPool2D {
						out[outIdx] = acc
					} else if count > 0 {
						out[outIdx] = sum / T(count)
					}
				}
			}
		}
	}
	return out
}

// samePadLow is the padding inserted before the axis under SAME padding;
// the remainder goes after.
func samePadLow(input, output, stride, filter int) int {
	total := (output-1)*stride + filter - input
	if total < 0 {
		total = 0
	}
	return total / 2
}

func combine[T floats](kind hlo.ReductionKind, acc, value T) T {
	switch kind {
	case hlo.ReduceSum:
		return acc + value
	case hlo.ReduceProduct:
		return acc * value
	case hlo.ReduceMax:
		return max(acc, value)
	}
	return acc // builders reject undefined reductions
}

func negInf[T floats]() T {
	var t T
	if _, ok := any(t).(float32); ok {
		return T(math32.Inf(-1))
	}
	return T(math.Inf(-1))
}

func rowMajorStrides(dims []int) []int {
	strides := make([]int, len(dims))
	stride := 1
	for i := len(dims) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= dims[i]
	}
	return strides
}

func sizeOf(dims []int) int {
	size := 1
	for _, d := range dims {
		size *= d
	}
	return size
}

func delinearize(idx int, dims, coord []int) {
	for d := len(dims) - 1; d >= 0; d-- {
		coord[d] = idx % dims[d]
		idx /= dims[d]
	}
}

// nextCoord advances coord inside dims in row-major order, returning false
// once it wraps around back to all zeros.
func nextCoord(coord, dims []int) bool {
	for d := len(coord) - 1; d >= 0; d-- {
		coord[d]++
		if coord[d] < dims[d] {
			return true
		}
		coord[d] = 0
	}
	return false
}

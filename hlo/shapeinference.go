package hlo

import (
	"slices"

	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Shape inference for each op kind. Builders call these and panic on error,
// so an invalid node can never enter a Graph.

func transposeShape(operand shapes.Shape, permutation []int) (shapes.Shape, error) {
	rank := operand.Rank()
	if len(permutation) != rank {
		return shapes.Invalid(), errors.Errorf(
			"Transpose requires one permutation entry per axis, operand has shape %s but %d entries were given",
			operand, len(permutation))
	}
	seen := make([]bool, rank)
	for _, axis := range permutation {
		if axis < 0 || axis >= rank {
			return shapes.Invalid(), errors.Errorf(
				"Transpose permutation axis %d out of range for shape %s", axis, operand)
		}
		if seen[axis] {
			return shapes.Invalid(), errors.Errorf(
				"Transpose permutation %v repeats axis %d", permutation, axis)
		}
		seen[axis] = true
	}
	output := operand.Clone()
	for axis := range output.Dimensions {
		output.Dimensions[axis] = operand.Dimensions[permutation[axis]]
	}
	return output, nil
}

func reshapeShape(operand shapes.Shape, dims []int) (shapes.Shape, error) {
	output := shapes.Make(operand.DType, dims...)
	if output.Size() != operand.Size() {
		return shapes.Invalid(), errors.Errorf(
			"Reshape from %s to dimensions %v changes the element count (%d -> %d)",
			operand, dims, operand.Size(), output.Size())
	}
	return output, nil
}

func broadcastInDimShape(operand, target shapes.Shape, broadcastAxes []int) (shapes.Shape, error) {
	if operand.DType != target.DType {
		return shapes.Invalid(), errors.Errorf(
			"BroadcastInDim target shape %s has a different dtype than the operand %s", target, operand)
	}
	if len(broadcastAxes) != operand.Rank() {
		return shapes.Invalid(), errors.Errorf(
			"BroadcastInDim requires one broadcast axis per operand axis, operand has shape %s but %d axes were given",
			operand, len(broadcastAxes))
	}
	for i, axis := range broadcastAxes {
		if axis < 0 || axis >= target.Rank() {
			return shapes.Invalid(), errors.Errorf(
				"BroadcastInDim axis %d out of range for target shape %s", axis, target)
		}
		if i > 0 && axis <= broadcastAxes[i-1] {
			return shapes.Invalid(), errors.Errorf(
				"BroadcastInDim axes %v must be strictly increasing", broadcastAxes)
		}
		operandDim := operand.Dimensions[i]
		if operandDim != 1 && operandDim != target.Dimensions[axis] {
			return shapes.Invalid(), errors.Errorf(
				"BroadcastInDim operand dimension %d (size %d) does not match target dimension %d (size %d)",
				i, operandDim, axis, target.Dimensions[axis])
		}
	}
	return target.Clone(), nil
}

func reduceWindowShape(operand, initial shapes.Shape, w *WindowAttrs) (shapes.Shape, error) {
	rank := operand.Rank()
	if initial.DType != operand.DType {
		return shapes.Invalid(), errors.Errorf(
			"ReduceWindow initial value dtype %s differs from the operand's %s", initial.DType, operand.DType)
	}
	if w.Reduction == ReduceUndefined {
		return shapes.Invalid(), errors.New("ReduceWindow requires a reduction kind")
	}
	if len(w.WindowDimensions) != rank {
		return shapes.Invalid(), errors.Errorf(
			"ReduceWindow window dimensions have %d entries, operand shape %s has rank %d",
			len(w.WindowDimensions), operand, rank)
	}
	if len(w.WindowStrides) != rank {
		return shapes.Invalid(), errors.Errorf(
			"ReduceWindow window strides have %d entries, operand shape %s has rank %d",
			len(w.WindowStrides), operand, rank)
	}
	if len(w.BaseDilations) != rank {
		return shapes.Invalid(), errors.Errorf(
			"ReduceWindow base dilations have %d entries, operand shape %s has rank %d",
			len(w.BaseDilations), operand, rank)
	}
	if len(w.WindowDilations) != rank {
		return shapes.Invalid(), errors.Errorf(
			"ReduceWindow window dilations have %d entries, operand shape %s has rank %d",
			len(w.WindowDilations), operand, rank)
	}
	if len(w.Paddings) != rank {
		return shapes.Invalid(), errors.Errorf(
			"ReduceWindow paddings have %d entries, operand shape %s has rank %d", len(w.Paddings), operand, rank)
	}

	// Each output dimension is computed independently of the others.
	outputDims := make([]int, rank)
	for i := range rank {
		inputDim := operand.Dimensions[i]
		windowDim := w.WindowDimensions[i]
		stride := w.WindowStrides[i]
		baseDilation := w.BaseDilations[i]
		windowDilation := w.WindowDilations[i]
		padLo, padHi := w.Paddings[i][0], w.Paddings[i][1]
		if windowDim < 1 || stride < 1 || baseDilation < 1 || windowDilation < 1 {
			return shapes.Invalid(), errors.Errorf(
				"ReduceWindow window/stride/dilation values must be >= 1 on axis %d (window=%d, stride=%d, baseDilation=%d, windowDilation=%d)",
				i, windowDim, stride, baseDilation, windowDilation)
		}
		if padLo < 0 || padHi < 0 {
			return shapes.Invalid(), errors.Errorf(
				"ReduceWindow paddings[%d]=(%d, %d) must be non-negative", i, padLo, padHi)
		}
		effectiveInput := (inputDim-1)*baseDilation + 1
		effectiveWindow := (windowDim-1)*windowDilation + 1
		numerator := effectiveInput + padLo + padHi - effectiveWindow
		if numerator < 0 {
			return shapes.Invalid(), errors.Errorf(
				"ReduceWindow window is larger than the padded input on axis %d (input=%d, window=%d, paddings=(%d, %d))",
				i, inputDim, windowDim, padLo, padHi)
		}
		outputDims[i] = numerator/stride + 1
	}
	return shapes.Make(operand.DType, outputDims...), nil
}

func binaryOpShape(opType OpType, lhs, rhs shapes.Shape) (shapes.Shape, error) {
	if lhs.DType != rhs.DType {
		return shapes.Invalid(), errors.Errorf("%s operands must share a dtype, got %s and %s", opType, lhs, rhs)
	}
	if !slices.Equal(lhs.Dimensions, rhs.Dimensions) {
		return shapes.Invalid(), errors.Errorf("%s operands must share a shape, got %s and %s", opType, lhs, rhs)
	}
	return lhs.Clone(), nil
}

func pool2DShape(operand shapes.Shape, p *PoolAttrs) (shapes.Shape, error) {
	if operand.Rank() != 4 {
		return shapes.Invalid(), errors.Errorf(
			"pooling requires a rank-4 (batch, height, width, channel) operand, got %s", operand)
	}
	if p.FilterHeight < 1 || p.FilterWidth < 1 || p.StrideHeight < 1 || p.StrideWidth < 1 {
		return shapes.Invalid(), errors.Errorf(
			"pooling filter and strides must be >= 1, got filter (%d, %d) strides (%d, %d)",
			p.FilterHeight, p.FilterWidth, p.StrideHeight, p.StrideWidth)
	}
	outH, err := pool1DSize(operand.Dimensions[1], p.FilterHeight, p.StrideHeight, p.Padding)
	if err != nil {
		return shapes.Invalid(), errors.WithMessagef(err, "on the height axis of %s", operand)
	}
	outW, err := pool1DSize(operand.Dimensions[2], p.FilterWidth, p.StrideWidth, p.Padding)
	if err != nil {
		return shapes.Invalid(), errors.WithMessagef(err, "on the width axis of %s", operand)
	}
	return shapes.Make(operand.DType, operand.Dimensions[0], outH, outW, operand.Dimensions[3]), nil
}

func pool1DSize(input, filter, stride int, padding PaddingKind) (int, error) {
	if padding == PaddingSame {
		return ceilDiv(input, stride), nil
	}
	if filter > input {
		return 0, errors.Errorf("filter size %d larger than the input size %d with VALID padding", filter, input)
	}
	return (input-filter)/stride + 1, nil
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

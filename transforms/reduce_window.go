package transforms

import (
	"slices"

	"github.com/gomlx/gomlx/pkg/support/sets"
	"github.com/gomlx/hlo-litert/hlo"
)

// Op kinds the matchers are allowed to walk through between the division
// and the reduce windows feeding it.
var (
	transposeOnly             = sets.MakeWith(hlo.OpTypeTranspose)
	broadcastTranspose        = sets.MakeWith(hlo.OpTypeBroadcastInDim, hlo.OpTypeTranspose)
	broadcastReshapeTranspose = sets.MakeWith(hlo.OpTypeBroadcastInDim, hlo.OpTypeReshape, hlo.OpTypeTranspose)
)

// PrepareReduceWindowPatterns returns the canonicalization patterns run
// before legalization proper.
func PrepareReduceWindowPatterns() []Pattern {
	return []Pattern{RelayoutReduceWindow()}
}

// LegalizeReduceWindowPatterns returns the fusion patterns of the pooling
// target.
func LegalizeReduceWindowPatterns() []Pattern {
	return []Pattern{LegalizeAvgPool()}
}

// viewIfAttrsSupported reports whether a reduce-window node looks like
// plain 2D pooling: rank 4, no dilation, a recognizable layout, and no
// padding on the batch and channel axes. Both patterns gate on it.
func viewIfAttrsSupported(rw *hlo.Node) (WindowDescriptor, Layout, bool) {
	view := ViewWindow(rw)
	if view.Rank() != 4 {
		return view, Layout{}, false
	}
	if !allOnes(view.BaseDilations()) || !allOnes(view.WindowDilations()) {
		return view, Layout{}, false
	}
	layout, ok := GuessLayout(view)
	if !ok {
		return view, Layout{}, false
	}
	if !view.TrivialPadding(layout.Batch) || !view.TrivialPadding(layout.Channel) {
		return view, Layout{}, false
	}
	return view, layout, true
}

// validPoolingIO reports whether rw reduces exactly one input with a
// single-element initial value.
func validPoolingIO(rw *hlo.Node) bool {
	return rw.NumInputs() == 2 && rw.Input(1).Shape().Size() == 1
}

func allOnes(values []int) bool {
	for _, v := range values {
		if v != 1 {
			return false
		}
	}
	return true
}

// RelayoutReduceWindow returns the pattern that transposes supported
// reduce windows into the canonical batch-spatial-channel layout, so the
// fusion patterns only need to recognize one axis order.
func RelayoutReduceWindow() Pattern {
	return &pattern{name: "RelayoutReduceWindow", anchor: hlo.OpTypeReduceWindow, fn: relayoutReduceWindow}
}

func relayoutReduceWindow(r *Rewriter, rw *hlo.Node) error {
	view, layout, ok := viewIfAttrsSupported(rw)
	if !ok {
		return r.matchFailuref(rw, "reduce window attributes not supported")
	}
	if !validPoolingIO(rw) {
		return r.matchFailuref(rw, "reduce window has wrong number of inputs or init values")
	}
	target := NativePoolingLayout(view.Rank())
	if layout.Equal(target) {
		return r.matchFailuref(rw, "reduce window does not need layout change")
	}

	permIn := layout.PermForRelayout(target)
	permOut := target.PermForRelayout(layout)

	attrs := rw.Window().Clone()
	attrs.WindowDimensions = Permute(attrs.WindowDimensions, permIn)
	attrs.WindowStrides = Permute(attrs.WindowStrides, permIn)
	attrs.Paddings = Permute(attrs.Paddings, permIn)
	// Dilations are all 1 past the support filter and pass through as-is.

	g := r.Graph()
	input := g.Transpose(rw.Input(0), permIn...)
	relaid := g.ReduceWindow(input, rw.Input(1), attrs)
	result := g.Transpose(relaid, permOut...)
	r.ReplaceOp(rw, result)
	return nil
}

// LegalizeAvgPool returns the pattern that fuses a sum reduce-window
// divided by its window size into one AveragePool2D node. The divisor may
// be a splat constant, or a second reduce window summing a tensor of ones
// with the same configuration (which computes exactly the per-position
// window population, so padded positions divide by the number of in-bounds
// taps).
func LegalizeAvgPool() Pattern {
	return &pattern{name: "LegalizeAvgPool", anchor: hlo.OpTypeDiv, fn: legalizeAvgPool}
}

func legalizeAvgPool(r *Rewriter, div *hlo.Node) error {
	// The relayout pattern leaves a transpose between the reduce window and
	// the division; the fused pool re-chains it on top afterwards.
	var finalTranspose *hlo.Node
	if div.Input(0).Type() == hlo.OpTypeTranspose {
		finalTranspose = div.Input(0)
	}

	rw := walkUp(div.Input(0), transposeOnly)
	if rw.Type() != hlo.OpTypeReduceWindow {
		return r.matchFailuref(div, "could not match lhs of div on reduce window")
	}
	if finalTranspose != nil && finalTranspose.Input(0) != rw {
		return r.matchFailuref(div, "more than one transpose between div lhs and reduce window")
	}
	view, layout, ok := viewIfAttrsSupported(rw)
	if !ok {
		return r.matchFailuref(div, "lhs rw is not valid")
	}
	if view.Rank() != 4 {
		return r.matchFailuref(div, "not a 2d pooling operator")
	}
	target := NativePoolingLayout(view.Rank())
	if !layout.Equal(target) {
		return r.matchFailuref(div, "lhs reduce window not tfl standard layout")
	}
	if !validPoolingIO(rw) {
		return r.matchFailuref(div, "lhs reduce window has wrong number of inputs or init values")
	}
	if rw.Window().Reduction != hlo.ReduceSum {
		return r.matchFailuref(div, "failed to match rw lhs binary func")
	}
	if !rw.DType().IsFloat() {
		return r.matchFailuref(div, "reduce window lhs must be float type")
	}
	if !isFloatConstantZero(rw.Input(1)) {
		return r.matchFailuref(div, "reduce window lhs init value is not zero")
	}

	// Every padded spatial axis must carry exactly the SAME-padding amounts,
	// the fused op has no explicit padding counts to carry anything else.
	padding := hlo.PaddingValid
	for axis := 1; axis < view.Rank()-1; axis++ {
		if view.TrivialPadding(axis) {
			continue
		}
		p := view.Paddings()[axis]
		if !isSamePaddingOnAxis(rw.Input(0).Shape().Dimensions[axis], rw.Shape().Dimensions[axis],
			view.WindowStrides()[axis], view.WindowDims()[axis], p[0], p[1]) {
			return r.matchFailuref(div, "padding is not same or valid")
		}
		padding = hlo.PaddingSame
	}

	// Divisor form 1: a splat constant holding the window size. Valid only
	// without padding, a constant cannot model the smaller border windows.
	cst := walkUp(div.Input(1), broadcastTranspose)
	if cst.Type() == hlo.OpTypeConstant && cst.DType().IsFloat() {
		lit := cst.Literal()
		if !lit.IsSplat() {
			return r.noMatch(div)
		}
		if !lit.IsExactlyFloat(float64(view.WindowSize())) {
			return r.matchFailuref(div, "rhs splat const is not equal to window size")
		}
		if padding != hlo.PaddingValid {
			return r.matchFailuref(div, "matching on rhs splat const where rw lhs has non-trivial padding")
		}
		replaceWithAvgPool(r, div, rw, view, padding, finalTranspose)
		return nil
	}

	// Divisor form 2: a second reduce window summing ones, mirroring the
	// numerator's configuration.
	rhs := walkUp(div.Input(1), broadcastReshapeTranspose)
	if rhs.Type() != hlo.OpTypeReduceWindow {
		return r.matchFailuref(div, "rhs of div op is not a reduce window")
	}
	rhsView, rhsLayout, ok := viewIfAttrsSupported(rhs)
	if !ok {
		return r.matchFailuref(div, "rhs rw is not valid")
	}
	if !rhsLayout.Equal(target) {
		return r.matchFailuref(div, "rhs reduce window not tfl standard layout")
	}
	if rhs.Window().Reduction != hlo.ReduceSum {
		return r.matchFailuref(div, "rhs rw body function is not an add op")
	}
	if !validPoolingIO(rhs) {
		return r.matchFailuref(div, "rhs reduce window has wrong number of inputs or init values")
	}
	if !isFloatConstantZero(rhs.Input(1)) {
		return r.matchFailuref(div, "rhs rw init vals is not zero")
	}
	ones := walkUp(rhs.Input(0), broadcastTranspose)
	if ones.Type() != hlo.OpTypeConstant || !ones.DType().IsFloat() ||
		!ones.Literal().IsSplat() || !ones.Literal().IsExactlyFloat(1) {
		return r.matchFailuref(div, "rw rhs input is not splat of 1.0")
	}
	if !slices.Equal(view.WindowDims(), rhsView.WindowDims()) ||
		!slices.Equal(view.WindowStrides(), rhsView.WindowStrides()) ||
		!slices.Equal(view.Paddings(), rhsView.Paddings()) {
		return r.matchFailuref(div, "lhs rw and rhs rw do not have the same config")
	}
	replaceWithAvgPool(r, div, rw, view, padding, finalTranspose)
	return nil
}

// isSamePaddingOnAxis reports whether (lo, hi) are exactly the SAME-padding
// amounts for one axis: the output covers ceil(input/stride) positions and
// the total padding splits low-first.
func isSamePaddingOnAxis(input, output, stride, window, lo, hi int) bool {
	if output != ceilDiv(input, stride) {
		return false
	}
	total := (output-1)*stride + window - input
	if total < 0 {
		total = 0
	}
	return lo == total/2 && hi == total-total/2
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

// replaceWithAvgPool swaps the matched division for the fused pool over the
// reduce window's input, re-chaining the final transpose if the numerator
// had one.
func replaceWithAvgPool(r *Rewriter, div, rw *hlo.Node, view WindowDescriptor, padding hlo.PaddingKind, finalTranspose *hlo.Node) {
	g := r.Graph()
	result := g.AveragePool2D(rw.Input(0), &hlo.PoolAttrs{
		FilterHeight: view.WindowDims()[1],
		FilterWidth:  view.WindowDims()[2],
		StrideHeight: view.WindowStrides()[1],
		StrideWidth:  view.WindowStrides()[2],
		Padding:      padding,
		Activation:   "NONE",
	})
	if finalTranspose != nil {
		result = g.Transpose(result, finalTranspose.Permutation()...)
	}
	r.ReplaceOp(div, result)
}

// LegalizeMaxPool would fuse max reduce windows into MaxPool2D nodes. It is
// declared for the pooling target but not implemented yet: it always
// reports a failure, and LegalizeReduceWindowPatterns does not include it.
func LegalizeMaxPool() Pattern {
	return &pattern{name: "LegalizeMaxPool", anchor: hlo.OpTypeReduceWindow, fn: legalizeMaxPool}
}

func legalizeMaxPool(r *Rewriter, rw *hlo.Node) error {
	return r.matchFailuref(rw, "max pool legalization not yet handled")
}

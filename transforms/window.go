package transforms

import (
	"github.com/gomlx/hlo-litert/hlo"
)

// WindowDescriptor is a read-only view over the window attributes of an
// OpTypeReduceWindow node. The returned slices alias the node's attributes
// and must not be mutated.
type WindowDescriptor struct {
	attrs      *hlo.WindowAttrs
	windowSize int
}

// ViewWindow builds the descriptor for a reduce-window node. It panics if n
// is any other kind of node.
func ViewWindow(n *hlo.Node) WindowDescriptor {
	attrs := n.Window()
	size := 1
	for _, d := range attrs.WindowDimensions {
		size *= d
	}
	return WindowDescriptor{attrs: attrs, windowSize: size}
}

// Rank is the number of window dimensions, one per operand axis.
func (v WindowDescriptor) Rank() int { return len(v.attrs.WindowDimensions) }

// WindowDims is the window extent per axis.
func (v WindowDescriptor) WindowDims() []int { return v.attrs.WindowDimensions }

// WindowStrides is the window step per axis.
func (v WindowDescriptor) WindowStrides() []int { return v.attrs.WindowStrides }

// BaseDilations is the input dilation per axis.
func (v WindowDescriptor) BaseDilations() []int { return v.attrs.BaseDilations }

// WindowDilations is the window dilation per axis.
func (v WindowDescriptor) WindowDilations() []int { return v.attrs.WindowDilations }

// Paddings is the (low, high) padding per axis.
func (v WindowDescriptor) Paddings() [][2]int { return v.attrs.Paddings }

// WindowSize is the number of taps in one window, the product of the window
// dimensions.
func (v WindowDescriptor) WindowSize() int { return v.windowSize }

// TrivialPadding reports whether the axis has no padding at all.
func (v WindowDescriptor) TrivialPadding(axis int) bool {
	p := v.attrs.Paddings[axis]
	return p[0] == 0 && p[1] == 0
}

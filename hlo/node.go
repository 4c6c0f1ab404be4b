package hlo

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/go-xla/pkg/types/dtypes"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/support/xslices"
)

// WindowAttrs configure an OpTypeReduceWindow node: one entry per physical
// dimension of the operand, paddings as (low, high) pairs.
type WindowAttrs struct {
	WindowDimensions []int
	WindowStrides    []int
	BaseDilations    []int
	WindowDilations  []int
	Paddings         [][2]int

	// Reduction is the binary function applied over each window.
	Reduction ReductionKind
}

// Clone deep-copies the attributes.
func (w *WindowAttrs) Clone() *WindowAttrs {
	return &WindowAttrs{
		WindowDimensions: xslices.Copy(w.WindowDimensions),
		WindowStrides:    xslices.Copy(w.WindowStrides),
		BaseDilations:    xslices.Copy(w.BaseDilations),
		WindowDilations:  xslices.Copy(w.WindowDilations),
		Paddings:         xslices.Copy(w.Paddings),
		Reduction:        w.Reduction,
	}
}

// PoolAttrs configure the fused pooling ops (OpTypeAveragePool2D,
// OpTypeMaxPool2D). Inputs are batch-height-width-channel; padding amounts
// are implied by the Padding mode.
type PoolAttrs struct {
	FilterHeight, FilterWidth int
	StrideHeight, StrideWidth int
	Padding                   PaddingKind

	// Activation is the fused activation function. Only "NONE" is emitted.
	Activation string
}

// Clone copies the attributes.
func (p *PoolAttrs) Clone() *PoolAttrs {
	c := *p
	return &c
}

// Node is one SSA value of a Graph: the result of an operation (or a
// parameter/constant). Nodes are created through the Graph builder methods
// and are immutable except for the rewiring done by Graph mutation.
type Node struct {
	graph  *Graph
	id     int
	opType OpType
	shape  shapes.Shape
	inputs []*Node

	// users lists the nodes consuming this one, one entry per use.
	users   []*Node
	removed bool

	name          string // parameters only
	literal       *Literal
	permutation   []int
	broadcastAxes []int
	window        *WindowAttrs
	pool          *PoolAttrs
}

// ID is unique within the graph and stable across rewrites.
func (n *Node) ID() int { return n.id }

// Type returns the node's operation kind.
func (n *Node) Type() OpType { return n.opType }

// Graph that owns the node.
func (n *Node) Graph() *Graph { return n.graph }

// Shape of the node's result.
func (n *Node) Shape() shapes.Shape { return n.shape }

// DType of the node's result elements.
func (n *Node) DType() dtypes.DType { return n.shape.DType }

// Rank of the node's result.
func (n *Node) Rank() int { return n.shape.Rank() }

// NumInputs returns the number of operands.
func (n *Node) NumInputs() int { return len(n.inputs) }

// Input returns the i-th operand.
func (n *Node) Input(i int) *Node { return n.inputs[i] }

// Inputs returns a copy of the operand list.
func (n *Node) Inputs() []*Node { return xslices.Copy(n.inputs) }

// Users returns a copy of the nodes consuming this one, in use order, one
// entry per use.
func (n *Node) Users() []*Node { return xslices.Copy(n.users) }

// NumUsers returns the number of uses of this node.
func (n *Node) NumUsers() int { return len(n.users) }

// Removed reports whether the node has been erased from its graph.
func (n *Node) Removed() bool { return n.removed }

// Name of an OpTypeParameter node. Empty for other kinds.
func (n *Node) Name() string { return n.name }

// Literal of an OpTypeConstant node. Panics on other kinds.
func (n *Node) Literal() *Literal {
	n.assertType(OpTypeConstant)
	return n.literal
}

// Permutation of an OpTypeTranspose node. Panics on other kinds.
func (n *Node) Permutation() []int {
	n.assertType(OpTypeTranspose)
	return n.permutation
}

// BroadcastAxes of an OpTypeBroadcastInDim node: the target axis each
// operand axis maps to. Panics on other kinds.
func (n *Node) BroadcastAxes() []int {
	n.assertType(OpTypeBroadcastInDim)
	return n.broadcastAxes
}

// Window attributes of an OpTypeReduceWindow node. The returned struct is
// owned by the node and must not be mutated. Panics on other kinds.
func (n *Node) Window() *WindowAttrs {
	n.assertType(OpTypeReduceWindow)
	return n.window
}

// Pool attributes of an OpTypeAveragePool2D or OpTypeMaxPool2D node. The
// returned struct is owned by the node and must not be mutated. Panics on
// other kinds.
func (n *Node) Pool() *PoolAttrs {
	if n.opType != OpTypeAveragePool2D && n.opType != OpTypeMaxPool2D {
		exceptions.Panicf("hlo: %s has no pooling attributes", n)
	}
	return n.pool
}

func (n *Node) assertType(want OpType) {
	if n.opType != want {
		exceptions.Panicf("hlo: %s is not a %s node", n, want)
	}
}

// String returns a short identifier like "%3:ReduceWindow", used in
// diagnostics.
func (n *Node) String() string {
	if n == nil {
		return "%?:nil"
	}
	return fmt.Sprintf("%%%d:%s", n.id, n.opType)
}

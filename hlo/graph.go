// Package hlo implements a small in-memory IR for HLO-style tensor programs:
// a Graph of SSA nodes with just enough operations to express sliding-window
// reductions and the fused pooling forms they lower to.
//
// Graphs are built through the Graph methods (Parameter, Constant,
// ReduceWindow, ...), each of which validates its operands with shape
// inference and panics on misuse. Rewrites mutate a graph through
// ReplaceAllUses, EraseNode and RemoveDeadNodes, which keep the use lists
// consistent.
package hlo

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/go-xla/pkg/types/dtypes"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/support/sets"
	"github.com/gomlx/gomlx/pkg/support/xslices"
	"github.com/pkg/errors"
)

// Graph is an arena of nodes plus the designated outputs. It is not safe for
// concurrent mutation.
type Graph struct {
	name    string
	nodes   []*Node
	params  []*Node
	outputs []*Node
	removed int
}

// New creates an empty graph.
func New(name string) *Graph {
	return &Graph{name: name}
}

// Name given at creation.
func (g *Graph) Name() string { return g.name }

// NumNodes returns the number of live (not erased) nodes.
func (g *Graph) NumNodes() int { return len(g.nodes) - g.removed }

// Nodes returns the live nodes in creation order. Creation order is not
// necessarily topological after rewrites, see SortedNodes.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, g.NumNodes())
	for _, n := range g.nodes {
		if !n.removed {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// Parameters returns the parameter nodes in creation order.
func (g *Graph) Parameters() []*Node { return xslices.Copy(g.params) }

// Outputs returns the nodes marked by Return. Empty before Return is called.
func (g *Graph) Outputs() []*Node { return xslices.Copy(g.outputs) }

// Return marks the graph outputs. It can only be called once.
func (g *Graph) Return(outputs ...*Node) {
	if len(g.outputs) > 0 {
		exceptions.Panicf("hlo: Return already called for graph %q", g.name)
	}
	if len(outputs) == 0 {
		exceptions.Panicf("hlo: Return requires at least one output")
	}
	for _, n := range outputs {
		g.checkNode("Return", n)
	}
	g.outputs = xslices.Copy(outputs)
}

func (g *Graph) newNode(opType OpType, shape shapes.Shape, inputs ...*Node) *Node {
	n := &Node{
		graph:  g,
		id:     len(g.nodes),
		opType: opType,
		shape:  shape,
		inputs: inputs,
	}
	for _, in := range inputs {
		in.users = append(in.users, n)
	}
	g.nodes = append(g.nodes, n)
	return n
}

// checkNode panics if n cannot be used as an operand in g.
func (g *Graph) checkNode(op string, n *Node) {
	if n == nil {
		exceptions.Panicf("hlo: %s given a nil node", op)
	}
	if n.graph != g {
		exceptions.Panicf("hlo: %s given node %s of graph %q, not of graph %q", op, n, n.graph.name, g.name)
	}
	if n.removed {
		exceptions.Panicf("hlo: %s given node %s that was erased from the graph", op, n)
	}
}

// Parameter creates a named graph input. Names must be unique within the
// graph, they key the feeds of an evaluation.
func (g *Graph) Parameter(name string, shape shapes.Shape) *Node {
	if name == "" {
		exceptions.Panicf("hlo: Parameter requires a non-empty name")
	}
	if !shape.Ok() {
		exceptions.Panicf("hlo: Parameter(%q) given an invalid shape", name)
	}
	for _, p := range g.params {
		if p.name == name {
			exceptions.Panicf("hlo: Parameter(%q) already exists in graph %q", name, g.name)
		}
	}
	n := g.newNode(OpTypeParameter, shape)
	n.name = name
	g.params = append(g.params, n)
	return n
}

// Constant creates a node holding the given literal.
func (g *Graph) Constant(literal *Literal) *Node {
	if literal == nil {
		exceptions.Panicf("hlo: Constant given a nil literal")
	}
	n := g.newNode(OpTypeConstant, literal.Shape())
	n.literal = literal
	return n
}

// ConstantSplat creates a constant node with every element set to value.
func (g *Graph) ConstantSplat(dtype dtypes.DType, value float64, dims ...int) *Node {
	return g.Constant(NewSplat(dtype, value, dims...))
}

// Transpose permutes the axes of x: output axis d takes input axis
// permutation[d].
func (g *Graph) Transpose(x *Node, permutation ...int) *Node {
	g.checkNode("Transpose", x)
	shape, err := transposeShape(x.shape, permutation)
	if err != nil {
		panic(errors.WithMessagef(err, "hlo: Transpose(%s)", x))
	}
	n := g.newNode(OpTypeTranspose, shape, x)
	n.permutation = xslices.Copy(permutation)
	return n
}

// Reshape reinterprets x with the given dimensions. The element count must
// not change.
func (g *Graph) Reshape(x *Node, dims ...int) *Node {
	g.checkNode("Reshape", x)
	shape, err := reshapeShape(x.shape, dims)
	if err != nil {
		panic(errors.WithMessagef(err, "hlo: Reshape(%s)", x))
	}
	return g.newNode(OpTypeReshape, shape, x)
}

// BroadcastInDim expands x to target: operand axis d becomes output axis
// broadcastAxes[d], size-1 axes are repeated, and the remaining output axes
// broadcast.
func (g *Graph) BroadcastInDim(x *Node, target shapes.Shape, broadcastAxes []int) *Node {
	g.checkNode("BroadcastInDim", x)
	shape, err := broadcastInDimShape(x.shape, target, broadcastAxes)
	if err != nil {
		panic(errors.WithMessagef(err, "hlo: BroadcastInDim(%s)", x))
	}
	n := g.newNode(OpTypeBroadcastInDim, shape, x)
	n.broadcastAxes = xslices.Copy(broadcastAxes)
	return n
}

// ReduceWindow applies attrs.Reduction over sliding windows of x, seeded
// with the initial value. The attributes are deep-copied.
func (g *Graph) ReduceWindow(x, initial *Node, attrs *WindowAttrs) *Node {
	g.checkNode("ReduceWindow", x)
	g.checkNode("ReduceWindow", initial)
	if attrs == nil {
		exceptions.Panicf("hlo: ReduceWindow(%s) given nil attributes", x)
	}
	shape, err := reduceWindowShape(x.shape, initial.shape, attrs)
	if err != nil {
		panic(errors.WithMessagef(err, "hlo: ReduceWindow(%s)", x))
	}
	n := g.newNode(OpTypeReduceWindow, shape, x, initial)
	n.window = attrs.Clone()
	return n
}

// Add creates an elementwise sum. Operands must have identical shapes.
func (g *Graph) Add(lhs, rhs *Node) *Node { return g.binaryOp(OpTypeAdd, lhs, rhs) }

// Mul creates an elementwise product. Operands must have identical shapes.
func (g *Graph) Mul(lhs, rhs *Node) *Node { return g.binaryOp(OpTypeMul, lhs, rhs) }

// Max creates an elementwise maximum. Operands must have identical shapes.
func (g *Graph) Max(lhs, rhs *Node) *Node { return g.binaryOp(OpTypeMax, lhs, rhs) }

// Div creates an elementwise division. Operands must have identical shapes.
func (g *Graph) Div(lhs, rhs *Node) *Node { return g.binaryOp(OpTypeDiv, lhs, rhs) }

func (g *Graph) binaryOp(opType OpType, lhs, rhs *Node) *Node {
	g.checkNode(opType.String(), lhs)
	g.checkNode(opType.String(), rhs)
	shape, err := binaryOpShape(opType, lhs.shape, rhs.shape)
	if err != nil {
		panic(errors.WithMessagef(err, "hlo: %s(%s, %s)", opType, lhs, rhs))
	}
	return g.newNode(opType, shape, lhs, rhs)
}

// AveragePool2D creates a fused average pooling over a batch-height-width-
// channel operand. The attributes are copied.
func (g *Graph) AveragePool2D(x *Node, attrs *PoolAttrs) *Node {
	return g.pool2D(OpTypeAveragePool2D, x, attrs)
}

// MaxPool2D creates a fused max pooling over a batch-height-width-channel
// operand. The attributes are copied.
func (g *Graph) MaxPool2D(x *Node, attrs *PoolAttrs) *Node {
	return g.pool2D(OpTypeMaxPool2D, x, attrs)
}

func (g *Graph) pool2D(opType OpType, x *Node, attrs *PoolAttrs) *Node {
	g.checkNode(opType.String(), x)
	if attrs == nil {
		exceptions.Panicf("hlo: %s(%s) given nil attributes", opType, x)
	}
	shape, err := pool2DShape(x.shape, attrs)
	if err != nil {
		panic(errors.WithMessagef(err, "hlo: %s(%s)", opType, x))
	}
	n := g.newNode(opType, shape, x)
	n.pool = attrs.Clone()
	return n
}

// ReplaceAllUses rewires every use of old to new, including the graph
// outputs. The two nodes must have the same shape, rewiring never changes
// the type of a downstream operand.
func (g *Graph) ReplaceAllUses(old, new *Node) {
	g.checkNode("ReplaceAllUses", old)
	g.checkNode("ReplaceAllUses", new)
	if old == new {
		return
	}
	if !old.shape.Equal(new.shape) {
		exceptions.Panicf("hlo: ReplaceAllUses(%s, %s) changes shape from %s to %s",
			old, new, old.shape, new.shape)
	}
	// One entry in the use list per occurrence: rewire one occurrence per
	// entry and the accounting stays exact.
	for _, user := range old.users {
		for i, in := range user.inputs {
			if in == old {
				user.inputs[i] = new
				break
			}
		}
		new.users = append(new.users, user)
	}
	old.users = old.users[:0]
	for i, out := range g.outputs {
		if out == old {
			g.outputs[i] = new
		}
	}
}

// EraseNode removes a node that has no remaining uses and is not an output.
// Its id stays allocated.
func (g *Graph) EraseNode(n *Node) {
	g.checkNode("EraseNode", n)
	if len(n.users) > 0 {
		exceptions.Panicf("hlo: EraseNode(%s) still has %d uses", n, len(n.users))
	}
	for _, out := range g.outputs {
		if out == n {
			exceptions.Panicf("hlo: EraseNode(%s) is a graph output", n)
		}
	}
	g.detach(n)
}

// detach unlinks n from its operands' use lists and marks it removed.
func (g *Graph) detach(n *Node) {
	for _, in := range n.inputs {
		in.dropUse(n)
	}
	n.inputs = nil
	n.users = n.users[:0]
	n.removed = true
	g.removed++
}

// dropUse removes one use-list entry for user.
func (n *Node) dropUse(user *Node) {
	for i, u := range n.users {
		if u == user {
			n.users = append(n.users[:i], n.users[i+1:]...)
			return
		}
	}
	exceptions.Panicf("hlo: use list of %s is missing user %s", n, user)
}

// RemoveDeadNodes erases every node unreachable from the graph outputs.
// Parameters are part of the graph signature and always kept. Returns the
// number of nodes erased.
func (g *Graph) RemoveDeadNodes() int {
	live := sets.Make[*Node]()
	stack := g.Outputs()
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if live.Has(n) {
			continue
		}
		live.Insert(n)
		stack = append(stack, n.inputs...)
	}
	count := 0
	for _, n := range g.nodes {
		if n.removed || n.opType == OpTypeParameter || live.Has(n) {
			continue
		}
		// Only edges into surviving nodes need their use entry dropped;
		// edges between dead nodes die with their endpoints.
		for _, in := range n.inputs {
			if in.opType == OpTypeParameter || live.Has(in) {
				in.dropUse(n)
			}
		}
		n.inputs = nil
		n.users = n.users[:0]
		n.removed = true
		g.removed++
		count++
	}
	return count
}

// SortedNodes returns the live nodes in topological order, operands before
// users. Nodes reachable from the outputs come first, in DFS post-order;
// any remaining live nodes follow in creation order, also topologically
// sorted.
func (g *Graph) SortedNodes() []*Node {
	visited := sets.Make[*Node]()
	sorted := make([]*Node, 0, g.NumNodes())
	var visit func(n *Node)
	visit = func(n *Node) {
		if visited.Has(n) {
			return
		}
		visited.Insert(n)
		for _, in := range n.inputs {
			visit(in)
		}
		sorted = append(sorted, n)
	}
	for _, out := range g.outputs {
		visit(out)
	}
	for _, n := range g.nodes {
		if !n.removed {
			visit(n)
		}
	}
	return sorted
}

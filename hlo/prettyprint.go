package hlo

import (
	"bytes"
	"fmt"
)

// String implements fmt.Stringer, and pretty prints the graph in SSA form,
// one statement per node in topological order.
func (g *Graph) String() string {
	var buf bytes.Buffer
	w := func(format string, args ...any) {
		if len(args) == 0 {
			buf.WriteString(format)
		} else {
			buf.WriteString(fmt.Sprintf(format, args...))
		}
	}
	w("Graph %q:\n", g.name)
	w("\t# nodes:\t%d\n", g.NumNodes())
	for _, n := range g.SortedNodes() {
		w("\t%s\n", n.statement())
	}
	if len(g.outputs) > 0 {
		w("\treturn ")
		for ii, out := range g.outputs {
			if ii > 0 {
				w(", ")
			}
			w("%%%d", out.id)
		}
		w("\n")
	}
	return buf.String()
}

// statement renders one node as an SSA assignment line, like
// "%3: Div(%1, %2) -> (Float32)[1 6 6 1]".
func (n *Node) statement() string {
	var buf bytes.Buffer
	w := func(format string, args ...any) {
		if len(args) == 0 {
			buf.WriteString(format)
		} else {
			buf.WriteString(fmt.Sprintf(format, args...))
		}
	}
	w("%%%d: %s", n.id, n.opType)
	if n.opType == OpTypeReduceWindow {
		w("[%s]", n.window.Reduction)
	}
	w("(")
	for ii, in := range n.inputs {
		if ii > 0 {
			w(", ")
		}
		w("%%%d", in.id)
	}
	switch n.opType {
	case OpTypeParameter:
		w("%q", n.name)
	case OpTypeConstant:
		if value, ok := n.literal.SplatFloat64(); ok {
			w("splat %g", value)
		} else {
			w("%d elements", n.literal.NumElements())
		}
	case OpTypeTranspose:
		w(", perm=%v", n.permutation)
	case OpTypeBroadcastInDim:
		w(", axes=%v", n.broadcastAxes)
	case OpTypeReduceWindow:
		w(", window=%v, strides=%v, padding=%v",
			n.window.WindowDimensions, n.window.WindowStrides, n.window.Paddings)
		if !allOnes(n.window.BaseDilations) || !allOnes(n.window.WindowDilations) {
			w(", baseDilations=%v, windowDilations=%v",
				n.window.BaseDilations, n.window.WindowDilations)
		}
	case OpTypeAveragePool2D, OpTypeMaxPool2D:
		p := n.pool
		w(", filter=%dx%d, strides=%dx%d, padding=%s, activation=%s",
			p.FilterHeight, p.FilterWidth, p.StrideHeight, p.StrideWidth,
			p.Padding, p.Activation)
	}
	w(") -> %s", n.shape)
	return buf.String()
}

func allOnes(values []int) bool {
	for _, v := range values {
		if v != 1 {
			return false
		}
	}
	return true
}

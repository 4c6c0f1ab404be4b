package transforms

import (
	"github.com/gomlx/gomlx/pkg/support/sets"
	"github.com/gomlx/hlo-litert/hlo"
)

// walkUp follows operand 0 upward while the node's kind is in allowed, and
// returns the first node of any other kind. Parameters and constants have
// no operands and always stop the walk. The graph is never mutated.
func walkUp(n *hlo.Node, allowed sets.Set[hlo.OpType]) *hlo.Node {
	for allowed.Has(n.Type()) && n.NumInputs() > 0 {
		n = n.Input(0)
	}
	return n
}

// isFloatConstantZero reports whether n is a single-element float constant
// holding exactly zero. The producer is inspected directly, without walking
// through reshaping ops.
func isFloatConstantZero(n *hlo.Node) bool {
	if n.Type() != hlo.OpTypeConstant {
		return false
	}
	lit := n.Literal()
	return lit.DType().IsFloat() && lit.NumElements() == 1 && lit.IsExactlyFloat(0)
}

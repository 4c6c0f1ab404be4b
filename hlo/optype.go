package hlo

// OpType is an enum of the operations a Node can perform.
//
// The set is closed on purpose: the rewrite patterns dispatch on it, and a
// kind outside this list cannot appear in a Graph.
type OpType int

//go:generate go tool enumer -type=OpType -trimprefix=OpType -output=gen_optype_enumer.go optype.go

const (
	OpTypeInvalid OpType = iota
	OpTypeParameter
	OpTypeConstant
	OpTypeTranspose
	OpTypeReshape
	OpTypeBroadcastInDim
	OpTypeReduceWindow

	OpTypeAdd
	OpTypeMul
	OpTypeMax
	OpTypeDiv

	// Fused pooling ops of the target instruction set.
	OpTypeAveragePool2D
	OpTypeMaxPool2D

	// OpTypeLast should always be kept the last, it is used as a counter/marker for OpType.
	OpTypeLast
)

// ReductionKind identifies the reduction function applied by a reduce-window
// over each window. The body is always a binary op over two scalar block
// arguments, so a closed enum is enough to describe it.
type ReductionKind int8

const (
	ReduceUndefined ReductionKind = iota
	ReduceSum
	ReduceProduct
	ReduceMax
)

// String implements fmt.Stringer.
func (r ReductionKind) String() string {
	switch r {
	case ReduceSum:
		return "Sum"
	case ReduceProduct:
		return "Product"
	case ReduceMax:
		return "Max"
	default:
		return "Undefined"
	}
}

// PaddingKind is the padding mode of a fused pooling op.
type PaddingKind int8

const (
	// PaddingValid takes no padding: every window tap falls inside the input.
	PaddingValid PaddingKind = iota

	// PaddingSame pads so that the output spatial size is ceil(input/stride),
	// with the padding split as evenly as possible (extra on the high side).
	PaddingSame
)

// String returns the target attribute spelling of the padding mode.
func (p PaddingKind) String() string {
	if p == PaddingSame {
		return "SAME"
	}
	return "VALID"
}

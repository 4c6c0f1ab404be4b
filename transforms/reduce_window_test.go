package transforms

import (
	"testing"

	"github.com/gomlx/go-xla/pkg/types/dtypes"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/hlo-litert/hlo"
	"github.com/gomlx/hlo-litert/interp"
)

// patternFailure runs p directly on n and returns the match failure reason,
// failing the test if the pattern applied or returned any other error.
func patternFailure(t *testing.T, p Pattern, n *hlo.Node) string {
	t.Helper()
	err := p.MatchAndRewrite(&Rewriter{graph: n.Graph(), pattern: p.Name()}, n)
	require.Error(t, err)
	var failure *MatchFailure
	require.ErrorAs(t, err, &failure)
	return failure.Reason
}

// runSingle evaluates a single-output graph with the interpreter and
// returns the flat float32 result.
func runSingle(t *testing.T, g *hlo.Graph, feeds map[string]*hlo.Literal) []float32 {
	t.Helper()
	results, err := interp.Run(g, feeds)
	require.NoError(t, err)
	require.Len(t, results, 1)
	flat, err := hlo.Flat[float32](results[0])
	require.NoError(t, err)
	return flat
}

// TestRelayoutReduceWindow rewrites a channel-first reduce window into a
// transpose / channel-last reduce window / transpose sandwich with the
// window attributes permuted alongside the data.
func TestRelayoutReduceWindow(t *testing.T) {
	g := hlo.New("relayout")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 1, 3, 8, 8))
	zero := g.ConstantSplat(dtypes.Float32, 0)
	rw := g.ReduceWindow(x, zero, sumWindow(
		[]int{1, 1, 3, 3},
		[]int{1, 1, 1, 1},
		[][2]int{{0, 0}, {0, 0}, {1, 1}, {1, 1}}))
	require.Equal(t, []int{1, 3, 8, 8}, rw.Shape().Dimensions)
	g.Return(rw)

	changed, err := ApplyPatternsGreedily(g, PrepareReduceWindowPatterns(), Options{Target: NewPoolingTarget()})
	require.NoError(t, err)
	require.True(t, changed)
	assert.True(t, rw.Removed())

	// The replacement restores the original axis order on the way out.
	out := g.Outputs()[0]
	require.Equal(t, hlo.OpTypeTranspose, out.Type())
	assert.Equal(t, []int{0, 3, 1, 2}, out.Permutation())
	assert.Equal(t, []int{1, 3, 8, 8}, out.Shape().Dimensions)

	relaid := out.Input(0)
	require.Equal(t, hlo.OpTypeReduceWindow, relaid.Type())
	assert.Equal(t, []int{1, 8, 8, 3}, relaid.Shape().Dimensions)
	w := relaid.Window()
	assert.Equal(t, []int{1, 3, 3, 1}, w.WindowDimensions)
	assert.Equal(t, []int{1, 1, 1, 1}, w.WindowStrides)
	assert.Equal(t, [][2]int{{0, 0}, {1, 1}, {1, 1}, {0, 0}}, w.Paddings)
	assert.Equal(t, hlo.ReduceSum, w.Reduction)
	assert.Same(t, zero, relaid.Input(1), "initial value is reused, not rebuilt")

	in := relaid.Input(0)
	require.Equal(t, hlo.OpTypeTranspose, in.Type())
	assert.Equal(t, []int{0, 2, 3, 1}, in.Permutation())
	assert.Same(t, x, in.Input(0))

	// The relaid reduce window is canonical, a second run changes nothing.
	changed, err = ApplyPatternsGreedily(g, PrepareReduceWindowPatterns(), Options{Target: NewPoolingTarget()})
	require.NoError(t, err)
	assert.False(t, changed)
}

// TestRelayoutRejections lists the reduce windows the relayout pattern
// leaves alone, with their failure reasons.
func TestRelayoutRejections(t *testing.T) {
	p := RelayoutReduceWindow()

	// Already channel-last.
	rw := reduceWindowNode([]int{1, 8, 8, 3}, sumWindow([]int{1, 3, 3, 1}, []int{1, 2, 2, 1}, nil))
	assert.Equal(t, "reduce window does not need layout change", patternFailure(t, p, rw))

	// Rank 3 is not a 2D pooling candidate.
	rw = reduceWindowNode([]int{8, 8, 3}, sumWindow([]int{3, 3, 1}, []int{2, 2, 1}, nil))
	assert.Equal(t, "reduce window attributes not supported", patternFailure(t, p, rw))

	// Dilations are outside the supported attribute envelope.
	attrs := sumWindow([]int{1, 1, 3, 3}, []int{1, 1, 1, 1}, nil)
	attrs.BaseDilations = []int{1, 1, 2, 2}
	rw = reduceWindowNode([]int{1, 3, 8, 8}, attrs)
	assert.Equal(t, "reduce window attributes not supported", patternFailure(t, p, rw))

	// Padding on the batch axis.
	rw = reduceWindowNode([]int{1, 3, 8, 8}, sumWindow([]int{1, 1, 3, 3}, []int{1, 1, 1, 1},
		[][2]int{{1, 0}, {0, 0}, {0, 0}, {0, 0}}))
	assert.Equal(t, "reduce window attributes not supported", patternFailure(t, p, rw))

	// Initial value with more than one element.
	g := hlo.New("bad_init")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 1, 3, 8, 8))
	inits := g.Constant(hlo.FromFlatAndDimensions([]float32{0, 0}, 2))
	rw = g.ReduceWindow(x, inits, sumWindow([]int{1, 1, 3, 3}, []int{1, 1, 1, 1}, nil))
	assert.Equal(t, "reduce window has wrong number of inputs or init values", patternFailure(t, p, rw))
}

// TestRelayoutPreservesValues runs the interpreter before and after the
// relayout: the transpose sandwich must not change the computed sums.
func TestRelayoutPreservesValues(t *testing.T) {
	g := hlo.New("relayout_values")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 1, 2, 4, 4))
	zero := g.ConstantSplat(dtypes.Float32, 0)
	rw := g.ReduceWindow(x, zero, sumWindow([]int{1, 1, 2, 2}, []int{1, 1, 2, 2}, nil))
	require.Equal(t, []int{1, 2, 2, 2}, rw.Shape().Dimensions)
	g.Return(rw)

	data := make([]float32, 32)
	for i := range data {
		data[i] = float32(i%7) * 0.25
	}
	feeds := map[string]*hlo.Literal{"x": hlo.FromFlatAndDimensions(data, 1, 2, 4, 4)}

	before := runSingle(t, g, feeds)
	changed, err := ApplyPatternsGreedily(g, PrepareReduceWindowPatterns(), Options{Target: NewPoolingTarget()})
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, []int{1, 2, 2, 2}, g.Outputs()[0].Shape().Dimensions)

	after := runSingle(t, g, feeds)
	require.Equal(t, len(before), len(after))
	for i := range before {
		assert.InDelta(t, before[i], after[i], 1e-4, "index %d", i)
	}
}

package benchmarks

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"runtime"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/go-xla/pkg/types/dtypes"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/support/xslices"
	"github.com/janpfeifer/go-benchmarks"
	"github.com/janpfeifer/must"

	"github.com/gomlx/hlo-litert/hlo"
	"github.com/gomlx/hlo-litert/interp"
	"github.com/gomlx/hlo-litert/transforms"
)

var flagBenchDuration = flag.Duration("bench_duration", 0,
	"Benchmark duration, typically use 10 seconds. If left as 0, benchmark tests are disabled")

// Number of pooling cells chained in the synthetic graphs.
var poolingChainCells = []int{1, 4, 16}

const (
	benchImageSize     = 64
	benchImageChannels = 8
)

func sumWindow(dims []int, paddings [][2]int) *hlo.WindowAttrs {
	rank := len(dims)
	if paddings == nil {
		paddings = make([][2]int, rank)
	}
	return &hlo.WindowAttrs{
		WindowDimensions: dims,
		WindowStrides:    xslices.SliceWithValue(rank, 1),
		BaseDilations:    xslices.SliceWithValue(rank, 1),
		WindowDilations:  xslices.SliceWithValue(rank, 1),
		Paddings:         paddings,
		Reduction:        hlo.ReduceSum,
	}
}

// splatDivisorPoolCell appends a 3x3 sum-reduce-window without padding,
// divided by a broadcast splat of the window size.
func splatDivisorPoolCell(g *hlo.Graph, x *hlo.Node) *hlo.Node {
	zero := g.ConstantSplat(dtypes.Float32, 0)
	num := g.ReduceWindow(x, zero, sumWindow([]int{1, 3, 3, 1}, nil))
	nine := g.BroadcastInDim(g.ConstantSplat(dtypes.Float32, 9), num.Shape(), nil)
	return g.Div(num, nine)
}

// onesDivisorPoolCell appends a padded 3x3 sum-reduce-window divided by the
// matching reduce-window over an all-ones tensor, the encoding producers use
// when the padding makes the per-position divisor non-uniform.
func onesDivisorPoolCell(g *hlo.Graph, x *hlo.Node) *hlo.Node {
	attrs := sumWindow([]int{1, 3, 3, 1}, [][2]int{{0, 0}, {1, 1}, {1, 1}, {0, 0}})
	zero := g.ConstantSplat(dtypes.Float32, 0)
	num := g.ReduceWindow(x, zero, attrs)
	ones := g.BroadcastInDim(g.ConstantSplat(dtypes.Float32, 1), x.Shape(), nil)
	den := g.ReduceWindow(ones, zero, attrs)
	return g.Div(num, den)
}

// channelFirstPoolCell is onesDivisorPoolCell expressed on channel-first
// operands, so legalizing it exercises the relayout patterns as well.
func channelFirstPoolCell(g *hlo.Graph, x *hlo.Node) *hlo.Node {
	nchw := g.Transpose(x, 0, 3, 1, 2)
	attrs := sumWindow([]int{1, 1, 3, 3}, [][2]int{{0, 0}, {0, 0}, {1, 1}, {1, 1}})
	zero := g.ConstantSplat(dtypes.Float32, 0)
	num := g.ReduceWindow(nchw, zero, attrs)
	ones := g.BroadcastInDim(g.ConstantSplat(dtypes.Float32, 1), nchw.Shape(), nil)
	den := g.ReduceWindow(ones, zero, attrs)
	return g.Transpose(g.Div(num, den), 0, 2, 3, 1)
}

// buildPoolingChain builds a graph of numCells chained average-pool cells,
// cycling through the divisor encodings and layouts above.
func buildPoolingChain(numCells int) *hlo.Graph {
	g := hlo.New(fmt.Sprintf("pooling-chain-%02d", numCells))
	x := g.Parameter("image", shapes.Make(dtypes.Float32, 1, benchImageSize, benchImageSize, benchImageChannels))
	for cell := range numCells {
		switch cell % 3 {
		case 0:
			x = splatDivisorPoolCell(g, x)
		case 1:
			x = onesDivisorPoolCell(g, x)
		case 2:
			x = channelFirstPoolCell(g, x)
		}
	}
	g.Return(x)
	return g
}

func TestBenchLegalizePooling(t *testing.T) {
	if testing.Short() || *flagBenchDuration == 0 {
		t.SkipNow()
	}
	withHeader := true
	for _, numCells := range poolingChainCells {
		for _, variant := range []struct {
			name     string
			legalize bool
		}{
			{"build", false},
			{"build+legalize", true},
		} {
			benchFn := benchmarks.NamedFunction{
				Name: fmt.Sprintf("%s/%s/cells=%02d", t.Name(), variant.name, numCells),
				Func: func() {
					g := buildPoolingChain(numCells)
					if !variant.legalize {
						return
					}
					if !must.M1(transforms.LegalizePooling(g)) {
						exceptions.Panicf("legalizing %q changed nothing", g.Name())
					}
				},
			}
			runtime.LockOSThread()
			benchmarks.New(benchFn).
				WithWarmUps(128).
				WithDuration(*flagBenchDuration).
				WithHeader(withHeader).
				Done()
			runtime.UnlockOSThread()
			withHeader = false
		}
	}
}

func TestBenchPoolingInterp(t *testing.T) {
	if testing.Short() || *flagBenchDuration == 0 {
		t.SkipNow()
	}
	const numCells = 2
	unfused := buildPoolingChain(numCells)
	fused := buildPoolingChain(numCells)
	if !must.M1(transforms.LegalizePooling(fused)) {
		exceptions.Panicf("legalizing %q changed nothing", fused.Name())
	}

	r := rand.New(rand.NewPCG(42, 0))
	flat := make([]float32, benchImageSize*benchImageSize*benchImageChannels)
	for i := range flat {
		flat[i] = r.Float32()
	}
	feeds := map[string]*hlo.Literal{
		"image": hlo.FromFlatAndDimensions(flat, 1, benchImageSize, benchImageSize, benchImageChannels),
	}

	for idx, bench := range []struct {
		name  string
		graph *hlo.Graph
	}{
		{"reduce-window", unfused},
		{"average-pool", fused},
	} {
		benchFn := benchmarks.NamedFunction{
			Name: fmt.Sprintf("%s/%s", t.Name(), bench.name),
			Func: func() {
				outputs := must.M1(interp.Run(bench.graph, feeds))
				_ = outputs[0]
			},
		}
		runtime.LockOSThread()
		benchmarks.New(benchFn).
			WithWarmUps(16).
			WithDuration(*flagBenchDuration).
			WithHeader(idx == 0).
			Done()
		runtime.UnlockOSThread()
	}
}

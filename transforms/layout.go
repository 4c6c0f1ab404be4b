package transforms

import (
	"github.com/gomlx/exceptions"
)

// Layout names the role of each axis of a rank-N pooling operand: which
// axis holds the batch, which holds the channels, and which hold the
// spatial extent (in order).
type Layout struct {
	Batch    int
	Channel  int
	Spatials []int
}

// NewLayout builds a layout and validates that the given axes are a
// permutation of 0..rank-1.
func NewLayout(batch, channel int, spatials []int) Layout {
	l := Layout{Batch: batch, Channel: channel, Spatials: spatials}
	rank := l.Rank()
	seen := make([]bool, rank)
	mark := func(axis int) {
		if axis < 0 || axis >= rank || seen[axis] {
			exceptions.Panicf("transforms: invalid layout (batch=%d, channel=%d, spatials=%v)",
				batch, channel, spatials)
		}
		seen[axis] = true
	}
	mark(batch)
	mark(channel)
	for _, s := range spatials {
		mark(s)
	}
	return l
}

// NativePoolingLayout is the layout the fused pooling ops consume: batch
// first, channels last, spatial axes in between in ascending order.
func NativePoolingLayout(rank int) Layout {
	spatials := make([]int, rank-2)
	for i := range spatials {
		spatials[i] = i + 1
	}
	return Layout{Batch: 0, Channel: rank - 1, Spatials: spatials}
}

// Rank is the number of axes the layout describes.
func (l Layout) Rank() int { return 2 + len(l.Spatials) }

// Equal reports whether both layouts assign every role to the same axis.
// Spatial order matters.
func (l Layout) Equal(other Layout) bool {
	if l.Batch != other.Batch || l.Channel != other.Channel || len(l.Spatials) != len(other.Spatials) {
		return false
	}
	for i, s := range l.Spatials {
		if s != other.Spatials[i] {
			return false
		}
	}
	return true
}

// PermForRelayout returns the transpose permutation that re-lays data from
// the receiver's layout into target's: the axis holding a role in target
// reads the axis holding that role in l. Applying l.PermForRelayout(target)
// and then target.PermForRelayout(l) restores the original order.
func (l Layout) PermForRelayout(target Layout) []int {
	if l.Rank() != target.Rank() {
		exceptions.Panicf("transforms: PermForRelayout between layouts of rank %d and %d",
			l.Rank(), target.Rank())
	}
	perm := make([]int, l.Rank())
	perm[target.Batch] = l.Batch
	perm[target.Channel] = l.Channel
	for i, s := range target.Spatials {
		perm[s] = l.Spatials[i]
	}
	return perm
}

// PermuteShape rearranges per-axis dims from the receiver's layout into
// target's.
func (l Layout) PermuteShape(target Layout, dims []int) []int {
	return Permute(dims, l.PermForRelayout(target))
}

// Permute gathers data by perm: res[i] = data[perm[i]].
func Permute[T any](data []T, perm []int) []T {
	if len(data) != len(perm) {
		exceptions.Panicf("transforms: Permute called with %d values and %d permutation entries",
			len(data), len(perm))
	}
	res := make([]T, len(data))
	for i, p := range perm {
		res[i] = data[p]
	}
	return res
}

// GuessLayout infers a layout from a window configuration: the two axes the
// window leaves untouched (extent, stride and dilations all 1) are taken as
// batch and channel, lower axis first, the rest as spatial axes in
// ascending order. Padding does not participate, the support filter rules
// on it separately. Returns false unless the rank is 4 and exactly two axes
// are untouched.
func GuessLayout(view WindowDescriptor) (Layout, bool) {
	if view.Rank() != 4 {
		return Layout{}, false
	}
	var inert []int
	for axis := range view.Rank() {
		if view.WindowDims()[axis] == 1 && view.WindowStrides()[axis] == 1 &&
			view.BaseDilations()[axis] == 1 && view.WindowDilations()[axis] == 1 {
			inert = append(inert, axis)
		}
	}
	if len(inert) != 2 {
		return Layout{}, false
	}
	batch, channel := inert[0], inert[1]
	spatials := make([]int, 0, view.Rank()-2)
	for axis := range view.Rank() {
		if axis != batch && axis != channel {
			spatials = append(spatials, axis)
		}
	}
	return Layout{Batch: batch, Channel: channel, Spatials: spatials}, true
}

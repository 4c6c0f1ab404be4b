// Package transforms rewrites hlo graphs toward a pooling-oriented target
// instruction set. It canonicalizes the layout of sliding-window reductions
// to batch-spatial-channel order and fuses reduce-window/divide pairs into
// single AveragePool2D nodes, recognizing both ways the division can encode
// the window size (a splat constant, or a second reduce-window over ones).
//
// LegalizePooling runs the whole pipeline. The individual patterns are also
// exported and can be driven separately with ApplyPatternsGreedily.
package transforms

import (
	"fmt"

	"github.com/gomlx/hlo-litert/hlo"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Pattern matches a single anchor node kind and rewrites the graph around
// it. MatchAndRewrite returns nil after rewriting, a *MatchFailure when the
// pattern does not apply at n, and any other error to abort the driver.
// Implementations must not mutate the graph before every check has passed.
type Pattern interface {
	Name() string
	OpType() hlo.OpType
	MatchAndRewrite(r *Rewriter, n *hlo.Node) error
}

// MatchFailure reports why a pattern did not apply at a node. It is the
// expected outcome of most attempts: the driver logs it at V(2) and tries
// the next candidate.
type MatchFailure struct {
	Pattern string
	Node    *hlo.Node
	Reason  string
}

// Error implements the error interface.
func (f *MatchFailure) Error() string {
	if f.Reason == "" {
		return fmt.Sprintf("%s did not match %s", f.Pattern, f.Node)
	}
	return fmt.Sprintf("%s did not match %s: %s", f.Pattern, f.Node, f.Reason)
}

// Rewriter is handed to a pattern to mutate the graph and to report
// failures under the pattern's name.
type Rewriter struct {
	graph   *hlo.Graph
	pattern string
}

// Graph being rewritten.
func (r *Rewriter) Graph() *hlo.Graph { return r.graph }

// matchFailuref builds the *MatchFailure for a non-applicable pattern.
func (r *Rewriter) matchFailuref(n *hlo.Node, format string, args ...any) error {
	return &MatchFailure{Pattern: r.pattern, Node: n, Reason: fmt.Sprintf(format, args...)}
}

// noMatch is a failure without a reason.
func (r *Rewriter) noMatch(n *hlo.Node) error {
	return &MatchFailure{Pattern: r.pattern, Node: n}
}

// ReplaceOp rewires every use of old to new and erases old from the graph.
// Operands that become unreachable are left for the driver's dead-node
// sweep.
func (r *Rewriter) ReplaceOp(old, new *hlo.Node) {
	if klog.V(1).Enabled() {
		klog.Infof("%s: replacing %s with %s", r.pattern, old, new)
	}
	r.graph.ReplaceAllUses(old, new)
	r.graph.EraseNode(old)
}

// pattern is the one Pattern implementation used by this package.
type pattern struct {
	name   string
	anchor hlo.OpType
	fn     func(r *Rewriter, n *hlo.Node) error
}

func (p *pattern) Name() string       { return p.name }
func (p *pattern) OpType() hlo.OpType { return p.anchor }

func (p *pattern) MatchAndRewrite(r *Rewriter, n *hlo.Node) error { return p.fn(r, n) }

// Legality classifies whether a node already belongs to the target
// instruction set.
type Legality int8

const (
	// LegalityUnknown leaves the node a rewrite candidate.
	LegalityUnknown Legality = iota
	// LegalityLegal nodes are skipped by the driver.
	LegalityLegal
	// LegalityIllegal nodes must be rewritten before the target accepts the
	// graph.
	LegalityIllegal
)

// String implements fmt.Stringer.
func (l Legality) String() string {
	switch l {
	case LegalityLegal:
		return "Legal"
	case LegalityIllegal:
		return "Illegal"
	default:
		return "Unknown"
	}
}

// IsReduceWindowLegal classifies reduce-window nodes for the pooling
// target. It answers LegalityUnknown for now: reduce windows stay rewrite
// candidates until a pattern claims them.
func IsReduceWindowLegal(n *hlo.Node) Legality { return LegalityUnknown }

// IsDivideLegal classifies divisions for the pooling target. Like
// IsReduceWindowLegal it answers LegalityUnknown for now.
func IsDivideLegal(n *hlo.Node) Legality { return LegalityUnknown }

// Target tells the driver which nodes are already legal and need no
// rewriting. Ops without a hook are attempted unconditionally.
type Target struct {
	hooks map[hlo.OpType]func(n *hlo.Node) Legality
}

// NewPoolingTarget describes the fused-pooling instruction set.
func NewPoolingTarget() *Target {
	return &Target{hooks: map[hlo.OpType]func(n *hlo.Node) Legality{
		hlo.OpTypeReduceWindow: IsReduceWindowLegal,
		hlo.OpTypeDiv:          IsDivideLegal,
	}}
}

// Legality of a single node. A nil target treats everything as unknown.
func (t *Target) Legality(n *hlo.Node) Legality {
	if t == nil {
		return LegalityUnknown
	}
	if hook, found := t.hooks[n.Type()]; found {
		return hook(n)
	}
	return LegalityUnknown
}

// Options tune ApplyPatternsGreedily.
type Options struct {
	// Target marks nodes that are already legal and skipped. May be nil.
	Target *Target

	// MaxSweeps bounds the number of passes over the graph. Values <= 0
	// mean DefaultMaxSweeps.
	MaxSweeps int
}

// DefaultMaxSweeps bounds the fixpoint iteration of ApplyPatternsGreedily.
// Each sweep must rewrite at least one node to earn the next one, so the
// bound is only reached by pathologically deep rewrite chains.
const DefaultMaxSweeps = 16

// ApplyPatternsGreedily drives patterns over g until none of them applies
// anymore (or MaxSweeps is reached). Each sweep visits a snapshot of the
// live nodes in topological order and tries every pattern anchored on the
// node's kind; dead nodes are collected after each sweep that changed the
// graph. Returns whether the graph changed. Rewriting is single-threaded,
// matching the cooperative mutation the rewriter assumes.
func ApplyPatternsGreedily(g *hlo.Graph, patterns []Pattern, opts Options) (bool, error) {
	maxSweeps := opts.MaxSweeps
	if maxSweeps <= 0 {
		maxSweeps = DefaultMaxSweeps
	}
	byAnchor := make(map[hlo.OpType][]Pattern, len(patterns))
	for _, p := range patterns {
		byAnchor[p.OpType()] = append(byAnchor[p.OpType()], p)
	}

	anyChange := false
	for sweep := 0; sweep < maxSweeps; sweep++ {
		changed := false
		for _, n := range g.SortedNodes() {
			if n.Removed() {
				// Erased by a rewrite earlier in this sweep.
				continue
			}
			candidates := byAnchor[n.Type()]
			if len(candidates) == 0 {
				continue
			}
			if opts.Target.Legality(n) == LegalityLegal {
				continue
			}
			for _, p := range candidates {
				err := p.MatchAndRewrite(&Rewriter{graph: g, pattern: p.Name()}, n)
				if err == nil {
					changed = true
					break
				}
				var failure *MatchFailure
				if errors.As(err, &failure) {
					if klog.V(2).Enabled() {
						klog.Infof("%v", failure)
					}
					continue
				}
				return anyChange, errors.WithMessagef(err, "pattern %s failed on %s", p.Name(), n)
			}
		}
		if !changed {
			return anyChange, nil
		}
		anyChange = true
		g.RemoveDeadNodes()
	}
	if klog.V(1).Enabled() {
		klog.Infof("ApplyPatternsGreedily stopped after %d sweeps on graph %q", maxSweeps, g.Name())
	}
	return anyChange, nil
}

// LegalizePooling runs the full pooling pipeline on g: layout
// canonicalization to a fixpoint, then reduce-window fusion to a fixpoint.
// Returns whether the graph changed.
func LegalizePooling(g *hlo.Graph) (bool, error) {
	target := NewPoolingTarget()
	prepared, err := ApplyPatternsGreedily(g, PrepareReduceWindowPatterns(), Options{Target: target})
	if err != nil {
		return prepared, err
	}
	legalized, err := ApplyPatternsGreedily(g, LegalizeReduceWindowPatterns(), Options{Target: target})
	return prepared || legalized, err
}

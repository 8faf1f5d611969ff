// Package compile runs the whole check of a flow graph and assembles the
// result a runner and a store need: the checked components, the payloads
// moved out of them, the anchor of the graph and its metadata.
package compile

import (
	"cmp"
	"maps"
	"slices"

	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/internal/core/graph"
	"github.com/easydapp/jelly-packages/internal/core/link"
	"github.com/easydapp/jelly-packages/internal/core/store"
	"github.com/easydapp/jelly-packages/pkg/sandbox"
	"github.com/easydapp/jelly-packages/pkg/serialization"
)

// CheckedCombined is a graph that passed every check.
type CheckedCombined struct {
	Codes          []*store.CodeData       `json:"codes"`
	APIs           []*store.ApiData        `json:"apis"`
	Components     graph.Components        `json:"components"`
	CombinedAnchor anchor.Combined         `json:"combined_anchor"`
	Chains         []link.CallChain        `json:"chains,omitempty"`
	Metadata       *graph.CombinedMetadata `json:"metadata,omitempty"`
}

// Option configures a check.
type Option func(*options)

type options struct {
	policy  graph.AffluxPolicy
	sandbox sandbox.Executor
}

// WithAffluxPolicy selects how joins of exclusive branches are treated. The
// default is graph.AffluxLenient.
func WithAffluxPolicy(policy graph.AffluxPolicy) Option {
	return func(o *options) { o.policy = policy }
}

// WithSandbox runs validation snippets of forms against their constant
// defaults.
func WithSandbox(executor sandbox.Executor) Option {
	return func(o *options) { o.sandbox = executor }
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Check validates components and compiles their snippets. The input is left
// untouched; the checked copy is returned. The first failure aborts the
// check.
func Check(components graph.Components, fetch graph.CheckFunction, opts ...Option) (*CheckedCombined, error) {
	o := newOptions(opts)
	prepared, err := prepare(components, o.policy)
	if err != nil {
		return nil, err
	}

	ctx := graph.NewContext(fetch, o.sandbox)
	checked, err := prepared.check(ctx)
	if err != nil {
		return nil, err
	}
	if err := graph.ResolveTriggers(ctx, prepared.index, prepared.colors); err != nil {
		return nil, err
	}

	tenant, err := ctx.Tenant()
	if err != nil {
		return nil, err
	}
	hash, err := serialization.CanonicalHash(checked)
	if err != nil {
		return nil, link.SystemError("serde components failed: %s", err)
	}

	return &CheckedCombined{
		Codes:          sortedValues(ctx.Codes),
		APIs:           sortedValues(ctx.APIs),
		Components:     checked,
		CombinedAnchor: anchor.NewCombined(tenant, hash),
		Chains:         graph.Chains(checked),
		Metadata:       graph.Metadata(checked, outputType(checked)),
	}, nil
}

// FindAllAnchors lists the stored payloads a graph refers to, so that they
// can be fetched before Check runs.
func FindAllAnchors(components graph.Components) (graph.Anchors, error) {
	if len(components) == 0 {
		return graph.Anchors{}, emptyComponents()
	}
	index, err := graph.NewIndex(components)
	if err != nil {
		return graph.Anchors{}, err
	}
	if err := index.CheckCircular(); err != nil {
		return graph.Anchors{}, err
	}
	return graph.CollectAnchors(components), nil
}

// FindOriginCodes lists every inline snippet of components with its argument
// and return types filled in, without compiling anything.
func FindOriginCodes(components graph.Components, fetch graph.CheckFunction, opts ...Option) ([]graph.OriginCode, error) {
	o := newOptions(opts)
	prepared, err := prepare(components, o.policy)
	if err != nil {
		return nil, err
	}
	ctx := graph.NewCollectContext(fetch)
	if _, err := prepared.check(ctx); err != nil {
		return nil, err
	}
	return ctx.OriginCodes(), nil
}

type prepared struct {
	components graph.Components
	index      *graph.Index
	colors     graph.Colors
}

// prepare runs the graph-wide passes in order: ids, cycles, names, the
// single output, inlets and branch colors.
func prepare(components graph.Components, policy graph.AffluxPolicy) (*prepared, error) {
	if len(components) == 0 {
		return nil, emptyComponents()
	}
	index, err := graph.NewIndex(components)
	if err != nil {
		return nil, err
	}
	passes := []func() error{
		index.CheckCircular,
		index.CheckNames,
		index.CheckSingleOutput,
		index.CheckInlets,
	}
	for _, pass := range passes {
		if err := pass(); err != nil {
			return nil, err
		}
	}
	colors, err := graph.Colorize(index, policy)
	if err != nil {
		return nil, err
	}
	return &prepared{components: components, index: index, colors: colors}, nil
}

// check runs every component check on a copy of the graph, in input order.
func (p *prepared) check(ctx *graph.Context) (graph.Components, error) {
	clones, err := p.components.Clone()
	if err != nil {
		return nil, link.SystemError("clone components failed: %s", err)
	}
	resolver := graph.NewResolver(p.index, p.colors)
	checked := make(graph.Components, 0, len(clones))
	for _, c := range clones {
		next, err := c.Check(ctx, resolver.Endpoints(graph.IDOf(c), true))
		if err != nil {
			return nil, err
		}
		checked = append(checked, next)
	}
	return checked, nil
}

func emptyComponents() error {
	return &link.Error{Kind: link.KindEmptyComponents, Message: "components can not be empty"}
}

// outputType is the declared type of the Output component, if any.
func outputType(cs graph.Components) *link.Type {
	for _, c := range cs {
		if o, ok := c.(*graph.Output); ok {
			ty := o.Output
			return &ty
		}
	}
	return nil
}

func sortedValues[K cmp.Ordered, V any](m map[K]*V) []*V {
	out := make([]*V, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		out = append(out, m[k])
	}
	return out
}

package graph

import (
	"fmt"
	"maps"
	"slices"

	"github.com/easydapp/jelly-packages/internal/core/link"
)

// AffluxPolicy decides what happens when a component that cannot tolerate
// missing data joins branches of the same upstream component.
type AffluxPolicy uint8

const (
	// AffluxLenient merges the branch sets silently.
	AffluxLenient AffluxPolicy = iota
	// AffluxStrict rejects the join with AffluxComponentId.
	AffluxStrict
)

func (p AffluxPolicy) String() string {
	if p == AffluxStrict {
		return "strict"
	}
	return "lenient"
}

// ParseAffluxPolicy reads "lenient" (or "") and "strict".
func ParseAffluxPolicy(s string) (AffluxPolicy, error) {
	switch s {
	case "", "lenient":
		return AffluxLenient, nil
	case "strict":
		return AffluxStrict, nil
	}
	return AffluxLenient, fmt.Errorf("unknown afflux policy: %q", s)
}

// Branches is a set of branch indexes of one component.
type Branches map[uint32]struct{}

// Color records, for one component, which branches of which upstream
// components its data flows through. Conflict lists the upstream components
// reached through more than one branch set; only tolerant components have
// one.
type Color struct {
	Branches map[link.ComponentID]Branches
	Conflict map[link.ComponentID]struct{}
}

// Colors maps every component to its color.
type Colors map[link.ComponentID]*Color

// conflicts returns the conflict set of id, nil when unknown.
func (cs Colors) conflicts(id link.ComponentID) map[link.ComponentID]struct{} {
	if c, ok := cs[id]; ok {
		return c.Conflict
	}
	return nil
}

// Colorize assigns colors until nothing changes, visiting components in
// input order. A component is colored once all its inlet sources are.
func Colorize(index *Index, policy AffluxPolicy) (Colors, error) {
	colors := make(Colors, index.Len())
	for changed := true; changed; {
		changed = false
		for _, c := range index.Components() {
			id := IDOf(c)
			if _, ok := colors[id]; ok {
				continue
			}
			color, ready, err := colorOf(c, colors, policy)
			if err != nil {
				return nil, err
			}
			if !ready {
				continue
			}
			colors[id] = color
			changed = true
		}
	}
	for _, c := range index.Components() {
		if _, ok := colors[IDOf(c)]; !ok {
			return nil, link.SystemError("every component should has info")
		}
	}
	return colors, nil
}

func colorOf(c Component, colors Colors, policy AffluxPolicy) (*Color, bool, error) {
	inlets := InletsOf(c)
	sources := make([]*Color, len(inlets))
	for i, inlet := range inlets {
		source, ok := colors[inlet.ID]
		if !ok {
			return nil, false, nil
		}
		sources[i] = source
	}

	tolerant := isTolerant(c)
	out := &Color{
		Branches: make(map[link.ComponentID]Branches),
		Conflict: make(map[link.ComponentID]struct{}),
	}
	merge := func(id link.ComponentID, set Branches) error {
		exists, ok := out.Branches[id]
		if !ok {
			out.Branches[id] = maps.Clone(set)
			return nil
		}
		if maps.Equal(exists, set) {
			return nil
		}
		maps.Copy(exists, set)
		switch {
		case tolerant:
			out.Conflict[id] = struct{}{}
		case policy == AffluxStrict:
			return &link.Error{Kind: link.KindAffluxComponentID, From: IDOf(c), Afflux: id}
		}
		return nil
	}

	for i, inlet := range inlets {
		for _, id := range slices.Sorted(maps.Keys(sources[i].Branches)) {
			if err := merge(id, sources[i].Branches[id]); err != nil {
				return nil, false, err
			}
		}
		if err := merge(inlet.ID, Branches{inlet.Index: {}}); err != nil {
			return nil, false, err
		}
	}
	return out, true, nil
}

// isTolerant reports components that test their inputs for presence and so
// may join exclusive branches.
func isTolerant(c Component) bool {
	cond, ok := c.(*Condition)
	return ok && len(cond.nullableEndpoints()) > 0
}

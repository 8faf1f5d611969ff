package graph

import (
	"cmp"
	"slices"

	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/internal/core/link"
)

// Anchors are the stored payloads a graph refers to.
type Anchors struct {
	Codes     []anchor.Code     `json:"code_anchors,omitempty"`
	APIs      []anchor.API      `json:"api_anchors,omitempty"`
	Combineds []anchor.Combined `json:"combined_anchors,omitempty"`
}

// IsEmpty reports a graph that refers to nothing stored.
func (a Anchors) IsEmpty() bool {
	return len(a.Codes) == 0 && len(a.APIs) == 0 && len(a.Combineds) == 0
}

// CollectAnchors returns the sorted, de-duplicated anchors of cs.
func CollectAnchors(cs Components) Anchors {
	var out Anchors
	for _, c := range cs {
		out.Codes = append(out.Codes, codeAnchorsOf(c)...)
		out.APIs = append(out.APIs, apiAnchorsOf(c)...)
		if combined, ok := c.(*Combined); ok {
			out.Combineds = append(out.Combineds, combined.Metadata.Anchor)
		}
	}
	out.Codes = sortedSet(out.Codes)
	out.APIs = sortedSet(out.APIs)
	out.Combineds = sortedSet(out.Combineds)
	return out
}

func sortedSet[T cmp.Ordered](items []T) []T {
	if len(items) == 0 {
		return nil
	}
	slices.Sort(items)
	return slices.Compact(items)
}

func codeAnchorsOf(c Component) []anchor.Code {
	switch c := c.(type) {
	case *Form:
		if c.Metadata != nil && c.Metadata.Validate != nil {
			return c.Metadata.Validate.Code.codeAnchors()
		}
	case *Code:
		return c.Metadata.Code.codeAnchors()
	case *Call:
		switch m := c.Metadata; {
		case m.HTTP != nil:
			return m.HTTP.codeAnchors()
		case m.IC != nil:
			return m.IC.codeAnchors()
		case m.Evm != nil:
			return m.Evm.codeAnchors()
		}
	case *Interaction:
		return c.codeAnchors()
	}
	return nil
}

func apiAnchorsOf(c Component) []anchor.API {
	call, ok := c.(*Call)
	if !ok {
		return nil
	}
	switch m := call.Metadata; {
	case m.IC != nil:
		return m.IC.apiAnchors()
	case m.Evm != nil:
		return m.Evm.apiAnchors()
	}
	return nil
}

// Chains returns the sorted networks the identities and calls of cs talk to.
func Chains(cs Components) []link.CallChain {
	var out []link.CallChain
	for _, c := range cs {
		switch c := c.(type) {
		case *Identity:
			out = append(out, c.Chain())
		case *Call:
			out = append(out, c.Chain())
		}
	}
	return sortedSet(out)
}

// Metadata assembles what a runner must know about checked components.
// Required inputs are listed in graph order. It returns nil when there is
// nothing to report.
func Metadata(cs Components, output *link.Type) *CombinedMetadata {
	m := &CombinedMetadata{Output: output}
	for _, c := range cs {
		switch c := c.(type) {
		case *Param:
			m.Params = append(m.Params, c.required())
		case *Form:
			m.Forms = append(m.Forms, c.required())
		case *Identity:
			if r := c.required(); r != nil {
				m.Identities = append(m.Identities, *r)
			}
		case *Interaction:
			m.Interactions = append(m.Interactions, c.required())
		}
	}
	anchors := CollectAnchors(cs)
	m.CodeAnchors, m.APIAnchors, m.CombinedAnchors = anchors.Codes, anchors.APIs, anchors.Combineds
	if m.IsEmpty() {
		return nil
	}
	return m
}

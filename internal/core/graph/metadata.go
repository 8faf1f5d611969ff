package graph

import (
	"bytes"

	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/internal/core/link"
	"github.com/easydapp/jelly-packages/pkg/serialization"
)

// CombinedMetadata is what a runner must know about a checked graph before
// running it: the inputs it asks for, the payloads it can preload and the
// type it produces.
type CombinedMetadata struct {
	Params          []ParamRequired       `json:"params,omitempty"`
	Identities      []IdentityRequired    `json:"identities,omitempty"`
	Forms           []FormRequired        `json:"forms,omitempty"`
	Interactions    []InteractionRequired `json:"interactions,omitempty"`
	CodeAnchors     []anchor.Code         `json:"code_anchors,omitempty"`
	APIAnchors      []anchor.API          `json:"apis_anchors,omitempty"`
	CombinedAnchors []anchor.Combined     `json:"combined_anchors,omitempty"`
	Output          *link.Type            `json:"output,omitempty"`
}

type ParamRequired struct {
	ID      link.ComponentID `json:"id"`
	Name    string           `json:"name"`
	Default *string          `json:"default,omitempty"`
}

type FormRequired struct {
	ID     link.ComponentID `json:"id"`
	Name   *string          `json:"name,omitempty"`
	Output link.Type        `json:"output"`
}

type IdentityRequired struct {
	ID       link.ComponentID `json:"id"`
	Name     *string          `json:"name,omitempty"`
	Metadata IdentityInner    `json:"metadata"`
}

type InteractionRequired struct {
	ID       link.ComponentID `json:"id"`
	Name     *string          `json:"name,omitempty"`
	Metadata InteractionInner `json:"metadata"`
}

// IsEmpty reports metadata with no lists and no output.
func (m *CombinedMetadata) IsEmpty() bool {
	return m == nil || (len(m.Params) == 0 &&
		len(m.Identities) == 0 &&
		len(m.Forms) == 0 &&
		len(m.Interactions) == 0 &&
		len(m.CodeAnchors) == 0 &&
		len(m.APIAnchors) == 0 &&
		len(m.CombinedAnchors) == 0 &&
		m.Output == nil)
}

// Equal compares canonical encodings. Nil and empty metadata are equal.
func (m *CombinedMetadata) Equal(o *CombinedMetadata) (bool, error) {
	if m.IsEmpty() || o.IsEmpty() {
		return m.IsEmpty() == o.IsEmpty(), nil
	}
	a, err := serialization.Canonical(m)
	if err != nil {
		return false, err
	}
	b, err := serialization.Canonical(o)
	if err != nil {
		return false, err
	}
	return bytes.Equal(a, b), nil
}

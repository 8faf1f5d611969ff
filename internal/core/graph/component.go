// Package graph models the components of a flow graph and the passes that
// check them: the id index and cycle check, branch colors, resolved inlet
// trees, per-kind validation and trigger safety.
package graph

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/easydapp/jelly-packages/internal/core/link"
)

// Kind is the JSON tag of a component variant.
type Kind string

const (
	KindParam       Kind = "param"
	KindConst       Kind = "const"
	KindForm        Kind = "form"
	KindCode        Kind = "code"
	KindIdentity    Kind = "identity"
	KindCall        Kind = "call"
	KindInteraction Kind = "interaction"
	KindView        Kind = "view"
	KindCondition   Kind = "condition"
	KindOutput      Kind = "output"
	KindCombined    Kind = "combined"
)

// Base holds the members every component carries.
type Base struct {
	ID     link.ComponentID `json:"id"`
	Inlets []link.Endpoint  `json:"inlets,omitempty"`
}

func (b *Base) base() *Base { return b }

// Component is one node of a flow graph. The set of implementations is
// closed: Param, Const, Form, Code, Identity, Call, Interaction, View,
// Condition, Output and Combined.
type Component interface {
	Kind() Kind
	// OutputCount is the number of branches other components may refer to.
	OutputCount() uint32
	// OutputType is the type carried by branch index, as seen by from.
	OutputType(index uint32, from link.ComponentID) (link.Type, error)
	// Check validates the component against its resolved inlets. endpoints
	// is nil exactly when the component has no inlets. Inline code may be
	// rewritten into anchors; the returned component carries the result.
	Check(ctx *Context, endpoints *AllEndpoints) (Component, error)

	base() *Base
}

// IDOf returns the id of c.
func IDOf(c Component) link.ComponentID {
	return c.base().ID
}

// InletsOf returns the inlets of c, nil when it has none.
func InletsOf(c Component) []link.Endpoint {
	return c.base().Inlets
}

// checkBranch rejects a reference to a branch c does not have.
func checkBranch(c Component, index uint32, from link.ComponentID) error {
	if c.OutputCount() <= index {
		return &link.Error{Kind: link.KindInvalidEndpoint, From: from, Inlet: &link.Endpoint{ID: IDOf(c), Index: index}}
	}
	return nil
}

func referNoOutput(c Component, from link.ComponentID) error {
	return &link.Error{Kind: link.KindReferNoOutputComponent, From: from, Refer: IDOf(c)}
}

var errComponentTag = errors.New("component must have exactly one kind tag")

// Components is a flow graph in input order. It encodes each component
// externally tagged: {"param": {...}}.
type Components []Component

func (cs Components) MarshalJSON() ([]byte, error) {
	tagged := make([]map[Kind]Component, len(cs))
	for i, c := range cs {
		tagged[i] = map[Kind]Component{c.Kind(): c}
	}
	return json.Marshal(tagged)
}

func (cs *Components) UnmarshalJSON(data []byte) error {
	var raw []map[Kind]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Components, 0, len(raw))
	for i, item := range raw {
		if len(item) != 1 {
			return fmt.Errorf("component %d: %w", i, errComponentTag)
		}
		for kind, body := range item {
			c, err := decodeComponent(kind, body)
			if err != nil {
				return fmt.Errorf("component %d: %w", i, err)
			}
			out = append(out, c)
		}
	}
	*cs = out
	return nil
}

func decodeComponent(kind Kind, body []byte) (Component, error) {
	var c Component
	switch kind {
	case KindParam:
		c = &Param{}
	case KindConst:
		c = &Const{}
	case KindForm:
		c = &Form{}
	case KindCode:
		c = &Code{}
	case KindIdentity:
		c = &Identity{}
	case KindCall:
		c = &Call{}
	case KindInteraction:
		c = &Interaction{}
	case KindView:
		c = &View{}
	case KindCondition:
		c = &Condition{}
	case KindOutput:
		c = &Output{}
	case KindCombined:
		c = &Combined{}
	default:
		return nil, fmt.Errorf("unknown component kind: %q", kind)
	}
	if err := json.Unmarshal(body, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Clone deep-copies the graph through its JSON form.
func (cs Components) Clone() (Components, error) {
	data, err := json.Marshal(cs)
	if err != nil {
		return nil, err
	}
	var out Components
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// exactlyOne reports an error unless exactly one flag is set. It backs the
// UnmarshalJSON methods of the externally tagged unions in this package.
func exactlyOne(name string, set ...bool) error {
	n := 0
	for _, s := range set {
		if s {
			n++
		}
	}
	if n != 1 {
		return fmt.Errorf("%s must have exactly one variant, got %d", name, n)
	}
	return nil
}

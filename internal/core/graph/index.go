package graph

import (
	"github.com/easydapp/jelly-packages/internal/core/link"
)

// Index looks components up by id and keeps their input order.
type Index struct {
	components Components
	byID       map[link.ComponentID]Component
}

// NewIndex rejects zero ids and repeated ids.
func NewIndex(components Components) (*Index, error) {
	byID := make(map[link.ComponentID]Component, len(components))
	for _, c := range components {
		id := IDOf(c)
		if id.IsZero() {
			return nil, &link.Error{Kind: link.KindInvalidComponentID, ID: id}
		}
		if _, ok := byID[id]; ok {
			return nil, &link.Error{Kind: link.KindDuplicateComponentID, ID: id}
		}
		byID[id] = c
	}
	return &Index{components: components, byID: byID}, nil
}

// Get returns the component with id.
func (x *Index) Get(id link.ComponentID) (Component, bool) {
	c, ok := x.byID[id]
	return c, ok
}

// Components returns the graph in input order.
func (x *Index) Components() Components {
	return x.components
}

func (x *Index) Len() int {
	return len(x.components)
}

type frame struct {
	component Component
	next      int
}

// CheckCircular walks the inlets of every component depth first. A component
// met again while it is still on the path closes a cycle. Missing targets and
// branch indexes beyond the target's outputs are reported on the way down.
func (x *Index) CheckCircular() error {
	verified := make(map[link.ComponentID]struct{}, len(x.components))
	onPath := make(map[link.ComponentID]struct{})

	for _, root := range x.components {
		if _, ok := verified[IDOf(root)]; ok {
			continue
		}
		onPath[IDOf(root)] = struct{}{}
		stack := []frame{{component: root}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			inlets := InletsOf(top.component)
			if top.next == len(inlets) {
				id := IDOf(top.component)
				delete(onPath, id)
				verified[id] = struct{}{}
				stack = stack[:len(stack)-1]
				continue
			}
			inlet := inlets[top.next]
			top.next++

			target, ok := x.byID[inlet.ID]
			if !ok {
				return &link.Error{Kind: link.KindUnknownComponentOrNotRefer, ID: inlet.ID}
			}
			if target.OutputCount() <= inlet.Index {
				return &link.Error{Kind: link.KindInvalidEndpoint, From: IDOf(top.component), Inlet: &inlet}
			}
			if _, ok := onPath[inlet.ID]; ok {
				return &link.Error{Kind: link.KindCircularReference, ID: inlet.ID}
			}
			if _, ok := verified[inlet.ID]; ok {
				continue
			}
			onPath[inlet.ID] = struct{}{}
			stack = append(stack, frame{component: target})
		}
	}
	return nil
}

// CheckInlets reports the first inlet whose target does not exist.
func (x *Index) CheckInlets() error {
	for _, c := range x.components {
		for _, inlet := range InletsOf(c) {
			if _, ok := x.byID[inlet.ID]; !ok {
				return &link.Error{Kind: link.KindUnknownComponentOrNotRefer, From: IDOf(c), ID: inlet.ID}
			}
		}
	}
	return nil
}

// CheckNames enforces the four name namespaces: params, forms, identities
// and interactions, in that order.
func (x *Index) CheckNames() error {
	namespaces := []struct {
		kind link.ErrorKind
		name func(Component) (string, bool)
	}{
		{link.KindDuplicateParamName, paramName},
		{link.KindDuplicateFormName, formName},
		{link.KindDuplicateIdentityName, identityName},
		{link.KindDuplicateInteractionName, interactionName},
	}
	for _, ns := range namespaces {
		seen := make(map[string]struct{})
		for _, c := range x.components {
			name, ok := ns.name(c)
			if !ok {
				continue
			}
			if _, dup := seen[name]; dup {
				return &link.Error{Kind: ns.kind, Name: name}
			}
			seen[name] = struct{}{}
		}
	}
	return nil
}

// CheckSingleOutput allows at most one Output component.
func (x *Index) CheckSingleOutput() error {
	found := false
	for _, c := range x.components {
		if _, ok := c.(*Output); !ok {
			continue
		}
		if found {
			return &link.Error{Kind: link.KindMultipleOutput}
		}
		found = true
	}
	return nil
}

func paramName(c Component) (string, bool) {
	if p, ok := c.(*Param); ok {
		return p.Metadata.Name, true
	}
	return "", false
}

func formName(c Component) (string, bool) {
	if f, ok := c.(*Form); ok && f.Metadata != nil && f.Metadata.Name != nil {
		return *f.Metadata.Name, true
	}
	return "", false
}

// identityName skips http identities, whose name is rejected by Check.
func identityName(c Component) (string, bool) {
	i, ok := c.(*Identity)
	if !ok || i.Metadata.Name == nil || i.Metadata.Metadata.HTTP != nil {
		return "", false
	}
	return *i.Metadata.Name, true
}

func interactionName(c Component) (string, bool) {
	if i, ok := c.(*Interaction); ok && i.Metadata.Name != nil {
		return *i.Metadata.Name, true
	}
	return "", false
}

package graph

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/easydapp/jelly-packages/internal/core/link"
)

// maxNameLength bounds display names of named values, in characters.
const maxNameLength = 64

type endpointNode struct {
	endpoint  link.Endpoint
	component Component
	children  []int
}

// Resolver builds inlet trees for the components of one index. Nodes live in
// a shared arena; the list of inlets below the root level depends only on
// the component, so it is built once per component.
type Resolver struct {
	index  *Index
	colors Colors
	nodes  []endpointNode
	memo   map[link.ComponentID][]int
}

// NewResolver returns a resolver that drops conflicting subtrees according
// to colors. A nil colors keeps every subtree.
func NewResolver(index *Index, colors Colors) *Resolver {
	return &Resolver{index: index, colors: colors, memo: make(map[link.ComponentID][]int)}
}

// Endpoints resolves the inlet tree of id. It returns nil when the component
// has no inlets. With direct set the first level is kept whole; below it,
// and at every level otherwise, inlets whose subtree reaches a component in
// the consumer's conflict set are dropped.
func (r *Resolver) Endpoints(id link.ComponentID, direct bool) *AllEndpoints {
	c, ok := r.index.Get(id)
	if !ok || len(InletsOf(c)) == 0 {
		return nil
	}
	return &AllEndpoints{r: r, roots: r.list(c, direct)}
}

// Endpoints is a one-off Resolver.Endpoints.
func (x *Index) Endpoints(id link.ComponentID, colors Colors, direct bool) *AllEndpoints {
	return NewResolver(x, colors).Endpoints(id, direct)
}

func (r *Resolver) list(c Component, direct bool) []int {
	id := IDOf(c)
	if !direct {
		if cached, ok := r.memo[id]; ok {
			return cached
		}
	}
	inlets := InletsOf(c)
	if len(inlets) == 0 {
		return nil
	}
	out := make([]int, 0, len(inlets))
	for _, inlet := range inlets {
		target, ok := r.index.Get(inlet.ID)
		if !ok {
			continue
		}
		children := r.list(target, false)
		r.nodes = append(r.nodes, endpointNode{endpoint: inlet, component: target, children: children})
		out = append(out, len(r.nodes)-1)
	}
	if direct {
		return out
	}
	if conflict := r.colors.conflicts(id); len(conflict) > 0 {
		kept := out[:0:0]
		for _, n := range out {
			if !r.reaches(n, conflict) {
				kept = append(kept, n)
			}
		}
		out = kept
	}
	r.memo[id] = out
	return out
}

// reaches reports whether the subtree at node n contains any id of set.
func (r *Resolver) reaches(n int, set map[link.ComponentID]struct{}) bool {
	seen := make(map[int]struct{})
	stack := []int{n}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[top]; ok {
			continue
		}
		seen[top] = struct{}{}
		node := &r.nodes[top]
		if _, ok := set[node.endpoint.ID]; ok {
			return true
		}
		stack = append(stack, node.children...)
	}
	return false
}

// AllEndpoints is the resolved inlet tree of one consuming component. All
// methods accept a nil receiver, which behaves as an empty tree.
type AllEndpoints struct {
	r     *Resolver
	roots []int
}

// walk visits nodes in pre-order until visit returns false. A component is
// expanded only the first time it is met; its children are the same every
// time. descend decides whether to go below a node.
func (e *AllEndpoints) walk(visit func(*endpointNode) (descend, more bool)) {
	if e == nil {
		return
	}
	expanded := make(map[link.ComponentID]struct{})
	var stack []int
	push := func(list []int) {
		for i := len(list) - 1; i >= 0; i-- {
			stack = append(stack, list[i])
		}
	}
	push(e.roots)
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &e.r.nodes[top]
		descend, more := visit(node)
		if !more {
			return
		}
		if !descend {
			continue
		}
		id := node.endpoint.ID
		if _, ok := expanded[id]; ok {
			continue
		}
		expanded[id] = struct{}{}
		push(node.children)
	}
}

// Len is the number of direct inlets kept.
func (e *AllEndpoints) Len() int {
	if e == nil {
		return 0
	}
	return len(e.roots)
}

// Find returns the first component with id anywhere in the tree.
func (e *AllEndpoints) Find(id link.ComponentID) (Component, bool) {
	var found Component
	e.walk(func(n *endpointNode) (bool, bool) {
		if n.endpoint.ID == id {
			found = n.component
			return false, false
		}
		return true, true
	})
	return found, found != nil
}

// FindEndpoint returns the component behind the first node, in pre-order,
// whose endpoint equals endpoint.
func (e *AllEndpoints) FindEndpoint(endpoint link.Endpoint) (Component, bool) {
	var found Component
	e.walk(func(n *endpointNode) (bool, bool) {
		if n.endpoint == endpoint {
			found = n.component
			return false, false
		}
		return true, true
	})
	return found, found != nil
}

// FindOutputType resolves the type of an upstream output, descending along
// refer when set.
func (e *AllEndpoints) FindOutputType(endpoint link.Endpoint, refer *link.KeyRefer, from link.ComponentID) (link.Type, error) {
	c, ok := e.FindEndpoint(endpoint)
	if !ok {
		return link.Type{}, &link.Error{Kind: link.KindUnknownComponentOrNotRefer, From: from, ID: endpoint.ID}
	}
	ty, err := c.OutputType(endpoint.Index, from)
	if err != nil {
		return link.Type{}, err
	}
	if refer == nil {
		return ty, nil
	}
	return refer.GetOutput(ty, from, endpoint)
}

func (e *AllEndpoints) CheckReferValue(value link.ReferValue, from link.ComponentID) (link.Type, error) {
	return e.FindOutputType(value.Endpoint, value.Refer, from)
}

// CheckInputValue validates a constant or resolves a reference, returning
// the type of the input.
func (e *AllEndpoints) CheckInputValue(value link.InputValue, from link.ComponentID) (link.Type, error) {
	switch {
	case value.Const != nil:
		if err := value.Const.Check(from); err != nil {
			return link.Type{}, err
		}
		return value.Const.Type(), nil
	case value.Refer != nil:
		return e.CheckReferValue(*value.Refer, from)
	}
	return link.Type{}, link.SystemError("input value of component %d is empty", from)
}

// CheckCodeValues types the arguments passed into a snippet as one object.
func (e *AllEndpoints) CheckCodeValues(values []link.CodeValue, from link.ComponentID) (link.Type, error) {
	seen := make(map[string]struct{}, len(values))
	fields := make([]link.Field, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v.Key]; ok {
			return link.Type{}, &link.Error{Kind: link.KindDuplicateVariantKey, From: from, Key: v.Key}
		}
		if !link.IsValidVariantName(v.Key) {
			return link.Type{}, &link.Error{Kind: link.KindInvalidVariantKey, From: from, Key: v.Key}
		}
		seen[v.Key] = struct{}{}
		ty, err := e.CheckInputValue(v.Value, from)
		if err != nil {
			return link.Type{}, err
		}
		fields = append(fields, link.F(v.Key, ty))
	}
	return link.ObjectOf(fields...), nil
}

// CheckNamedValues types display-named values as one object. Names that are
// not identifiers become quoted keys. When want is set every value must have
// that type.
func (e *AllEndpoints) CheckNamedValues(values []link.NamedValue, from link.ComponentID, want *link.Type) (link.Type, error) {
	seen := make(map[string]struct{}, len(values))
	fields := make([]link.Field, 0, len(values))
	for _, v := range values {
		if v.Name == "" || maxNameLength < utf8.RuneCountInString(v.Name) {
			return link.Type{}, &link.Error{Kind: link.KindInvalidName, From: from, Name: v.Name}
		}
		key := v.Name
		if !link.IsValidVariantName(key) {
			key = strconv.Quote(key)
		}
		if _, ok := seen[key]; ok {
			return link.Type{}, &link.Error{Kind: link.KindDuplicateName, From: from, Name: v.Name}
		}
		seen[key] = struct{}{}
		ty, err := e.CheckInputValue(v.Value, from)
		if err != nil {
			return link.Type{}, err
		}
		if want != nil && !ty.Equal(*want) {
			return link.Type{}, link.Common(link.KindInvalidNamedValueType, from, "wrong value type of %s, must be %s", v.Name, want)
		}
		fields = append(fields, link.F(key, ty))
	}
	return link.ObjectOf(fields...), nil
}

// InputRule names the error kind and messages of a scalar input check:
// Invalid for a constant failing the predicate, NotConst for a constant of
// the wrong kind and NotType for a reference of the wrong type.
type InputRule struct {
	Kind     link.ErrorKind
	Invalid  string
	NotConst string
	NotType  string
}

// CheckTextInput checks a text input. A constant must satisfy ok after
// trimming.
func (e *AllEndpoints) CheckTextInput(value link.InputValue, from link.ComponentID, ok func(string) bool, rule InputRule) error {
	switch {
	case value.Const != nil:
		if value.Const.Kind != link.TypeText {
			return link.Common(rule.Kind, from, "%s: %s", rule.NotConst, value.Const)
		}
		if !ok(strings.TrimSpace(value.Const.Text)) {
			return link.Common(rule.Kind, from, "%s: %s", rule.Invalid, value.Const.Text)
		}
		return nil
	case value.Refer != nil:
		ty, err := e.CheckReferValue(*value.Refer, from)
		if err != nil {
			return err
		}
		if !ty.IsText() {
			return link.Common(rule.Kind, from, "%s: %s", rule.NotType, ty)
		}
		return nil
	}
	return link.SystemError("input value of component %d is empty", from)
}

// CheckIntegerInput is CheckTextInput for integers.
func (e *AllEndpoints) CheckIntegerInput(value link.InputValue, from link.ComponentID, ok func(int64) bool, rule InputRule) error {
	switch {
	case value.Const != nil:
		if value.Const.Kind != link.TypeInteger {
			return link.Common(rule.Kind, from, "%s: %s", rule.NotConst, value.Const)
		}
		if !ok(value.Const.Integer) {
			return link.Common(rule.Kind, from, "%s: %d", rule.Invalid, value.Const.Integer)
		}
		return nil
	case value.Refer != nil:
		ty, err := e.CheckReferValue(*value.Refer, from)
		if err != nil {
			return err
		}
		if !ty.IsInteger() {
			return link.Common(rule.Kind, from, "%s: %s", rule.NotType, ty)
		}
		return nil
	}
	return link.SystemError("input value of component %d is empty", from)
}

// InletsInterruptedByForm lists the upstream components reachable without
// crossing a Form. Forms are excluded; interactions are included but not
// crossed.
func (e *AllEndpoints) InletsInterruptedByForm() []link.ComponentID {
	var out []link.ComponentID
	seen := make(map[link.ComponentID]struct{})
	e.walk(func(n *endpointNode) (bool, bool) {
		id := n.endpoint.ID
		switch n.component.(type) {
		case *Form:
			return false, true
		case *Interaction:
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				out = append(out, id)
			}
			return false, true
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
		return true, true
	})
	return out
}

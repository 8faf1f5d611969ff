// Package link holds the value algebra shared by every component of a flow
// graph: component ids and endpoints, link types and values, references into
// upstream outputs, code items, chains, and the structured check error.
package link

import "strconv"

// ComponentID identifies a component inside one graph. Zero is invalid.
type ComponentID uint32

func (id ComponentID) IsZero() bool {
	return id == 0
}

func (id ComponentID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Endpoint addresses one output of a component. An absent index means 0.
type Endpoint struct {
	ID    ComponentID `json:"id" msgpack:"id"`
	Index uint32      `json:"index,omitempty" msgpack:"index,omitempty"`
}

// EndpointOf returns the first output of id.
func EndpointOf(id ComponentID) Endpoint {
	return Endpoint{ID: id}
}

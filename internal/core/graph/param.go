package graph

import (
	"github.com/easydapp/jelly-packages/internal/core/link"
)

// Param is a text value supplied by whoever runs the graph, by name.
type Param struct {
	ID       link.ComponentID `json:"id"`
	Metadata ParamMetadata    `json:"metadata"`
}

type ParamMetadata struct {
	Name    string  `json:"name"`
	Default *string `json:"default,omitempty"`
}

func (p *Param) base() *Base         { return &Base{ID: p.ID} }
func (p *Param) Kind() Kind          { return KindParam }
func (p *Param) OutputCount() uint32 { return 1 }

func (p *Param) OutputType(index uint32, from link.ComponentID) (link.Type, error) {
	if err := checkBranch(p, index, from); err != nil {
		return link.Type{}, err
	}
	return link.Text(), nil
}

func (p *Param) Check(_ *Context, _ *AllEndpoints) (Component, error) {
	if !link.IsValidVariantName(p.Metadata.Name) {
		return nil, &link.Error{Kind: link.KindInvalidVariantKey, From: p.ID, Key: p.Metadata.Name}
	}
	return p, nil
}

func (p *Param) required() ParamRequired {
	return ParamRequired{ID: p.ID, Name: p.Metadata.Name, Default: p.Metadata.Default}
}

// Const is a fixed value of a declared type.
type Const struct {
	ID       link.ComponentID `json:"id"`
	Metadata ConstMetadata    `json:"metadata"`
	Output   link.Type        `json:"output"`
}

type ConstMetadata struct {
	Value link.Value `json:"value"`
}

func (c *Const) base() *Base         { return &Base{ID: c.ID} }
func (c *Const) Kind() Kind          { return KindConst }
func (c *Const) OutputCount() uint32 { return 1 }

func (c *Const) OutputType(index uint32, from link.ComponentID) (link.Type, error) {
	if err := checkBranch(c, index, from); err != nil {
		return link.Type{}, err
	}
	return c.Output, nil
}

func (c *Const) Check(_ *Context, _ *AllEndpoints) (Component, error) {
	if err := c.Output.Check(c.ID); err != nil {
		return nil, err
	}
	if !c.Output.IsMatch(c.Metadata.Value) {
		value := c.Metadata.Value
		output := c.Output
		return nil, &link.Error{Kind: link.KindMismatchedConstValue, From: c.ID, Output: &output, Value: &value}
	}
	return c, nil
}

package graph

import (
	"github.com/goccy/go-json"

	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/internal/core/link"
)

// Output is the result of the whole graph.
type Output struct {
	Base
	Metadata *OutputMetadata `json:"metadata,omitempty"`
	Output   link.Type       `json:"output"`
}

type OutputMetadata struct {
	Data []link.CodeValue `json:"data,omitempty"`
}

func (o *Output) Kind() Kind          { return KindOutput }
func (o *Output) OutputCount() uint32 { return 1 }

func (o *Output) OutputType(index uint32, from link.ComponentID) (link.Type, error) {
	if err := checkBranch(o, index, from); err != nil {
		return link.Type{}, err
	}
	return o.Output, nil
}

func (o *Output) Check(_ *Context, endpoints *AllEndpoints) (Component, error) {
	if err := o.Output.Check(o.ID); err != nil {
		return nil, err
	}
	var data []link.CodeValue
	if o.Metadata != nil {
		data = o.Metadata.Data
	}
	ty, err := endpoints.CheckCodeValues(data, o.ID)
	if err != nil {
		return nil, err
	}
	if !ty.Equal(o.Output) {
		return nil, &link.Error{Kind: link.KindMismatchedOutput, From: o.ID}
	}
	return o, nil
}

// Combined embeds a published graph by anchor.
type Combined struct {
	Base
	Metadata CombinedComponentMetadata `json:"metadata"`
}

type CombinedComponentMetadata struct {
	Anchor   anchor.Combined   `json:"anchor"`
	Metadata *CombinedMetadata `json:"metadata,omitempty"`
}

func (c *Combined) Kind() Kind          { return KindCombined }
func (c *Combined) OutputCount() uint32 { return 1 }

func (c *Combined) OutputType(index uint32, from link.ComponentID) (link.Type, error) {
	if err := checkBranch(c, index, from); err != nil {
		return link.Type{}, err
	}
	if m := c.Metadata.Metadata; m != nil && m.Output != nil {
		return *m.Output, nil
	}
	return link.Type{}, referNoOutput(c, from)
}

// Check compares the declared metadata with the metadata of the published
// graph.
func (c *Combined) Check(ctx *Context, _ *AllEndpoints) (Component, error) {
	if _, err := c.Metadata.Anchor.Parse(); err != nil {
		return nil, link.SystemError("%s", err)
	}
	if ctx.collect {
		return c, nil
	}
	published, err := ctx.Fetch.FetchCombined(c.Metadata.Anchor)
	if err != nil {
		return nil, link.SystemError("%s", err)
	}
	var fetched *CombinedMetadata
	if len(published.Metadata) > 0 && string(published.Metadata) != "null" {
		fetched = &CombinedMetadata{}
		if err := json.Unmarshal(published.Metadata, fetched); err != nil {
			return nil, link.SystemError("%s", err)
		}
	}
	equal, err := c.Metadata.Metadata.Equal(fetched)
	if err != nil {
		return nil, link.SystemError("%s", err)
	}
	if !equal {
		return nil, &link.Error{Kind: link.KindMismatchedCombinedMetadata, From: c.ID, Anchor: string(c.Metadata.Anchor)}
	}
	return c, nil
}

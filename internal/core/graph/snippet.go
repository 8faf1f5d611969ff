package graph

import (
	"github.com/easydapp/jelly-packages/internal/core/link"
	"github.com/easydapp/jelly-packages/pkg/typescript"
)

// Code transforms its inputs with a user snippet.
type Code struct {
	Base
	Metadata CodeMetadata `json:"metadata"`
	Output   link.Type    `json:"output"`
}

type CodeMetadata struct {
	Data []link.CodeValue `json:"data,omitempty"`
	Code CodeContent      `json:"code"`
}

func (c *Code) Kind() Kind          { return KindCode }
func (c *Code) OutputCount() uint32 { return 1 }

func (c *Code) OutputType(index uint32, from link.ComponentID) (link.Type, error) {
	if err := checkBranch(c, index, from); err != nil {
		return link.Type{}, err
	}
	return c.Output, nil
}

func (c *Code) Check(ctx *Context, endpoints *AllEndpoints) (Component, error) {
	if err := c.Output.Check(c.ID); err != nil {
		return nil, err
	}
	data, err := endpoints.CheckCodeValues(c.Metadata.Data, c.ID)
	if err != nil {
		return nil, err
	}
	ret := typescript.New(c.Output.TypeScript())
	args := []link.ArgCodeType{link.Arg("data", typescript.New(data.TypeScript()))}
	code, err := c.Metadata.Code.TryIntoAnchor(ctx, c.ID, 0, "Code", args, &ret)
	if err != nil {
		return nil, err
	}
	c.Metadata.Code = code
	return c, nil
}

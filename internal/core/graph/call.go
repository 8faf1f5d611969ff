package graph

import (
	"github.com/goccy/go-json"

	"github.com/easydapp/jelly-packages/internal/core/link"
)

// Call invokes an external endpoint: an https url, a canister method or an
// EVM contract.
type Call struct {
	Base
	Metadata CallMetadata `json:"metadata"`
	Output   link.Type    `json:"output"`
}

// CallMetadata holds exactly one of HTTP, IC or Evm.
type CallMetadata struct {
	HTTP *CallHTTP `json:"http,omitempty"`
	IC   *CallIC   `json:"ic,omitempty"`
	Evm  *CallEvm  `json:"evm,omitempty"`
}

func (m *CallMetadata) UnmarshalJSON(data []byte) error {
	type plain CallMetadata
	if err := json.Unmarshal(data, (*plain)(m)); err != nil {
		return err
	}
	return exactlyOne("call", m.HTTP != nil, m.IC != nil, m.Evm != nil)
}

func (c *Call) Kind() Kind          { return KindCall }
func (c *Call) OutputCount() uint32 { return 1 }

func (c *Call) OutputType(index uint32, from link.ComponentID) (link.Type, error) {
	if err := checkBranch(c, index, from); err != nil {
		return link.Type{}, err
	}
	return c.Output, nil
}

func (c *Call) Check(ctx *Context, endpoints *AllEndpoints) (Component, error) {
	if err := c.Output.Check(c.ID); err != nil {
		return nil, err
	}
	if err := checkInlets(&c.Base, endpoints); err != nil {
		return nil, err
	}
	var err error
	switch m := c.Metadata; {
	case m.HTTP != nil:
		err = m.HTTP.check(ctx, endpoints, c.Output, c.ID)
	case m.IC != nil:
		err = m.IC.check(ctx, endpoints, c.Output, c.ID)
	case m.Evm != nil:
		err = m.Evm.check(ctx, endpoints, c.Output, c.ID)
	default:
		err = link.SystemError("call %d has no metadata", c.ID)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Chain is the network the call talks to.
func (c *Call) Chain() link.CallChain {
	switch m := c.Metadata; {
	case m.IC != nil:
		return link.ChainInternetComputer
	case m.Evm != nil:
		return m.Evm.Chain.CallChain()
	}
	return link.ChainHTTP
}

// checkIdentity makes sure id is an upstream identity accepted by ok.
func checkIdentity(endpoints *AllEndpoints, id, from link.ComponentID, ok func(IdentityInner) bool, notMsg string) (*Identity, error) {
	c, found := endpoints.FindEndpoint(link.EndpointOf(id))
	if !found {
		return nil, &link.Error{Kind: link.KindUnknownComponentOrNotRefer, From: from, ID: id}
	}
	identity, isIdentity := c.(*Identity)
	if !isIdentity {
		return nil, link.Common(link.KindInvalidCallIdentity, from, "reference component is not identity")
	}
	if !ok(identity.Metadata.Metadata) {
		return nil, link.Common(link.KindInvalidCallIdentity, from, "%s", notMsg)
	}
	return identity, nil
}

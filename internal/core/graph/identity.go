package graph

import (
	"github.com/goccy/go-json"

	"github.com/easydapp/jelly-packages/internal/core/link"
)

// httpProxy is the only proxy an http identity may use.
const httpProxy = "https://p.easydapp.ai"

// Identity supplies the caller identity used by downstream calls.
type Identity struct {
	Base
	Metadata IdentityMetadata `json:"metadata"`
}

type IdentityMetadata struct {
	Name     *string       `json:"name,omitempty"`
	Metadata IdentityInner `json:"metadata"`
}

// IdentityInner selects the chain of the identity. Exactly one member is
// set.
type IdentityInner struct {
	HTTP *IdentityHTTP `json:"http,omitempty"`
	IC   *IdentityIC   `json:"ic,omitempty"`
	Evm  *IdentityEvm  `json:"evm,omitempty"`
}

func (m *IdentityInner) UnmarshalJSON(data []byte) error {
	type plain IdentityInner
	if err := json.Unmarshal(data, (*plain)(m)); err != nil {
		return err
	}
	return exactlyOne("identity", m.HTTP != nil, m.IC != nil, m.Evm != nil)
}

type IdentityHTTP struct {
	Proxy *string `json:"proxy,omitempty"`
}

type IdentityIC struct {
	Includes []IcWallet       `json:"includes,omitempty"`
	Excludes []IcWallet       `json:"excludes,omitempty"`
	Connect  *link.InputValue `json:"connect,omitempty"`
}

type IdentityEvm struct {
	Chain    link.EvmChain    `json:"chain"`
	Includes []EvmWallet      `json:"includes,omitempty"`
	Excludes []EvmWallet      `json:"excludes,omitempty"`
	Connect  *link.InputValue `json:"connect,omitempty"`
}

var (
	httpIdentityOutput = link.ObjectOf(link.F("proxy", link.Text()))
	icIdentityOutput   = link.ObjectOf(
		link.F("wallet", link.Text()),
		link.F("owner", link.Text()),
		link.F("account_id", link.Text()),
	)
	evmIdentityOutput = link.ObjectOf(
		link.F("chain", link.Text()),
		link.F("chain_id", link.Integer()),
		link.F("wallet", link.Text()),
		link.F("account", link.Text()),
	)
)

func (i *Identity) Kind() Kind          { return KindIdentity }
func (i *Identity) OutputCount() uint32 { return 1 }

func (i *Identity) OutputType(index uint32, from link.ComponentID) (link.Type, error) {
	if err := checkBranch(i, index, from); err != nil {
		return link.Type{}, err
	}
	switch m := i.Metadata.Metadata; {
	case m.IC != nil:
		return icIdentityOutput, nil
	case m.Evm != nil:
		return evmIdentityOutput, nil
	}
	return httpIdentityOutput, nil
}

// IsAnonymous reports identities that never ask the user to connect a
// wallet.
func (i *Identity) IsAnonymous() bool {
	return i.Metadata.Metadata.IsAnonymous()
}

func (m IdentityInner) IsAnonymous() bool {
	switch {
	case m.IC != nil:
		return len(m.IC.Includes) == 0
	case m.Evm != nil:
		return len(m.Evm.Includes) == 0
	}
	return true
}

// Chain is the call chain the identity belongs to.
func (i *Identity) Chain() link.CallChain {
	switch m := i.Metadata.Metadata; {
	case m.IC != nil:
		return link.ChainInternetComputer
	case m.Evm != nil:
		return m.Evm.Chain.CallChain()
	}
	return link.ChainHTTP
}

func (i *Identity) Check(ctx *Context, endpoints *AllEndpoints) (Component, error) {
	if err := checkInlets(&i.Base, endpoints); err != nil {
		return nil, err
	}
	m := i.Metadata.Metadata
	switch {
	case m.HTTP != nil:
		if i.Metadata.Name != nil {
			return nil, &link.Error{Kind: link.KindNeedlessCallHTTPName, From: i.ID}
		}
		if p := m.HTTP.Proxy; p != nil && *p != httpProxy {
			return nil, &link.Error{Kind: link.KindInvalidIdentityHTTPProxy, From: i.ID, Proxy: *p}
		}
		ctx.trigger(i.ID, identityTriggered(false))
		return i, nil
	case m.IC != nil:
		if err := checkWallets(i.ID, "ic", m.IC.Includes, m.IC.Excludes); err != nil {
			return nil, err
		}
		if err := checkConnect(endpoints, i.ID, m.IC.Connect, m.IsAnonymous()); err != nil {
			return nil, err
		}
		ctx.trigger(i.ID, identityTriggered(m.IC.Connect != nil))
		return i, nil
	case m.Evm != nil:
		if !m.Evm.Chain.IsValid() {
			return nil, link.Common(link.KindInvalidIdentity, i.ID, "unknown evm chain: %s", m.Evm.Chain)
		}
		for _, w := range m.Evm.Includes {
			if !w.Supports(m.Evm.Chain) {
				return nil, link.Common(link.KindInvalidIdentity, i.ID, "evm identity includes not support chain: %s", w)
			}
		}
		if err := checkWallets(i.ID, "evm", m.Evm.Includes, m.Evm.Excludes); err != nil {
			return nil, err
		}
		if err := checkConnect(endpoints, i.ID, m.Evm.Connect, m.IsAnonymous()); err != nil {
			return nil, err
		}
		ctx.trigger(i.ID, identityTriggered(m.Evm.Connect != nil))
		return i, nil
	}
	return nil, link.SystemError("identity %d has no metadata", i.ID)
}

// checkWallets rejects repeated wallets and wallets both included and
// excluded. An absent list decodes to nil, so only a non-nil empty list is
// reported as empty.
func checkWallets[W ~string](from link.ComponentID, chain string, includes, excludes []W) error {
	if includes != nil && len(includes) == 0 {
		return link.Common(link.KindInvalidIdentity, from, "%s identity includes can not be empty", chain)
	}
	if repeated(includes) {
		return link.Common(link.KindInvalidIdentity, from, "%s identity includes can not be repeated", chain)
	}
	if excludes != nil && len(excludes) == 0 {
		return link.Common(link.KindInvalidIdentity, from, "%s identity excludes can not be empty", chain)
	}
	if repeated(excludes) {
		return link.Common(link.KindInvalidIdentity, from, "%s identity excludes can not be repeated", chain)
	}
	for _, w := range excludes {
		for _, in := range includes {
			if w == in {
				return link.Common(link.KindInvalidIdentity, from, "%s identity includes and excludes can not be intersect", chain)
			}
		}
	}
	return nil
}

func repeated[W comparable](items []W) bool {
	seen := make(map[W]struct{}, len(items))
	for _, w := range items {
		if _, ok := seen[w]; ok {
			return true
		}
		seen[w] = struct{}{}
	}
	return false
}

func checkConnect(endpoints *AllEndpoints, from link.ComponentID, connect *link.InputValue, anonymous bool) error {
	if connect == nil {
		return nil
	}
	if err := endpoints.CheckTextInput(*connect, from, notBlank, InputRule{
		Kind:     link.KindInvalidIdentity,
		Invalid:  "connect identity button text can not be empty",
		NotConst: "connect identity button text can not be text",
		NotType:  "connect identity button text can not be text type",
	}); err != nil {
		return err
	}
	if anonymous {
		return link.Common(link.KindInvalidIdentity, from, "connect identity button can not be set when anonymous")
	}
	return nil
}

// required is nil for anonymous identities, which need nothing from the
// user.
func (i *Identity) required() *IdentityRequired {
	if i.IsAnonymous() {
		return nil
	}
	return &IdentityRequired{ID: i.ID, Name: i.Metadata.Name, Metadata: i.Metadata.Metadata}
}

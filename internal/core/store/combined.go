package store

import (
	"github.com/goccy/go-json"

	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/internal/core/link"
)

// Combined is a published graph. Components and Metadata are kept as their
// canonical JSON so that this package does not depend on the component model.
type Combined struct {
	Anchor     anchor.Combined  `json:"anchor" msgpack:"anchor"`
	Created    int64            `json:"created" msgpack:"created"`
	Called     uint64           `json:"called" msgpack:"called"`
	Version    string           `json:"version" msgpack:"version"`
	Components json.RawMessage  `json:"components" msgpack:"components"`
	Chains     []link.CallChain `json:"chains,omitempty" msgpack:"chains,omitempty"`
	Metadata   json.RawMessage  `json:"metadata,omitempty" msgpack:"metadata,omitempty"`
}

// Publisher is the public profile of a graph author.
type Publisher struct {
	Anchor anchor.Publisher `json:"anchor" msgpack:"anchor"`
	Avatar string           `json:"avatar" msgpack:"avatar"`
	Name   string           `json:"name" msgpack:"name"`
	Bio    string           `json:"bio" msgpack:"bio"`
	Social string           `json:"social" msgpack:"social"`
}

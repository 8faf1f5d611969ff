// Package store holds the payloads that live outside a graph and are
// referenced from it by anchor: code items, API definitions, published
// graphs and publisher profiles.
package store

import (
	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/internal/core/link"
)

// CodeData is a code item moved out of a graph together with its compiled
// output. Created is in milliseconds since the epoch; zero means unset.
type CodeData struct {
	Anchor  anchor.Code   `json:"anchor" msgpack:"anchor"`
	Created int64         `json:"created" msgpack:"created"`
	Code    link.CodeItem `json:"code" msgpack:"code"`
	JS      string        `json:"js" msgpack:"js"`
}

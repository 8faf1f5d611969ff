package store

import (
	"fmt"

	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/pkg/serialization"
	"github.com/easydapp/jelly-packages/pkg/typescript"
)

// OriginFetcher resolves the full text of an origin candid or ABI document
// from its key. Unknown non-key input is returned unchanged.
type OriginFetcher interface {
	FetchOriginAPI(key string) (string, error)
}

// ApiData is an API definition moved out of a graph.
type ApiData struct {
	Anchor  anchor.API `json:"anchor" msgpack:"anchor"`
	Created int64      `json:"created" msgpack:"created"`
	Content APIContent `json:"content" msgpack:"content"`
}

// APIContent holds exactly one of IC or Evm.
type APIContent struct {
	IC  *IcAPI  `json:"ic,omitempty" msgpack:"ic,omitempty"`
	Evm *EvmAPI `json:"evm,omitempty" msgpack:"evm,omitempty"`
}

// IcAPI is a single method signature or a method selected from a full
// candid document. Exactly one field is set.
type IcAPI struct {
	Single *SingleIcAPI `json:"single,omitempty" msgpack:"single,omitempty"`
	Origin *OriginIcAPI `json:"origin,omitempty" msgpack:"origin,omitempty"`
}

type SingleIcAPI struct {
	API string `json:"api" msgpack:"api"`
}

type OriginIcAPI struct {
	Candid string `json:"candid" msgpack:"candid"`
	Method string `json:"method" msgpack:"method"`
}

// Restore replaces an origin key with the document it names.
func (a IcAPI) Restore(fetch OriginFetcher) (IcAPI, error) {
	if a.Origin == nil {
		return a, nil
	}
	candid, err := fetch.FetchOriginAPI(a.Origin.Candid)
	if err != nil {
		return IcAPI{}, err
	}
	return IcAPI{Origin: &OriginIcAPI{Candid: candid, Method: a.Origin.Method}}, nil
}

// ShouldIntoAnchor reports whether the inline text is too large to keep.
func (a IcAPI) ShouldIntoAnchor() bool {
	switch {
	case a.Single != nil:
		return typescript.MaxInlineLength < len(a.Single.API)
	case a.Origin != nil:
		return typescript.MaxInlineLength < len(a.Origin.Candid)
	}
	return false
}

// Hash is the hex SHA-256 of the canonical API.
func (a IcAPI) Hash() (string, error) {
	h, err := serialization.CanonicalHash(a)
	if err != nil {
		return "", fmt.Errorf("serde ic api failed: %w", err)
	}
	return h, nil
}

// EvmAPI is a single ABI item or an item selected from a full ABI by name or
// index. Exactly one field is set.
type EvmAPI struct {
	Single *SingleEvmAPI `json:"single,omitempty" msgpack:"single,omitempty"`
	Origin *OriginEvmAPI `json:"origin,omitempty" msgpack:"origin,omitempty"`
}

type SingleEvmAPI struct {
	API string `json:"api" msgpack:"api"`
}

type OriginEvmAPI struct {
	Abi   string  `json:"abi" msgpack:"abi"`
	Name  string  `json:"name" msgpack:"name"`
	Index *uint32 `json:"index,omitempty" msgpack:"index,omitempty"`
}

func (a EvmAPI) Restore(fetch OriginFetcher) (EvmAPI, error) {
	if a.Origin == nil {
		return a, nil
	}
	abi, err := fetch.FetchOriginAPI(a.Origin.Abi)
	if err != nil {
		return EvmAPI{}, err
	}
	return EvmAPI{Origin: &OriginEvmAPI{Abi: abi, Name: a.Origin.Name, Index: a.Origin.Index}}, nil
}

func (a EvmAPI) ShouldIntoAnchor() bool {
	switch {
	case a.Single != nil:
		return typescript.MaxInlineLength < len(a.Single.API)
	case a.Origin != nil:
		return typescript.MaxInlineLength < len(a.Origin.Abi)
	}
	return false
}

func (a EvmAPI) Hash() (string, error) {
	h, err := serialization.CanonicalHash(a)
	if err != nil {
		return "", fmt.Errorf("serde evm api failed: %w", err)
	}
	return h, nil
}

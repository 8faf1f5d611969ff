package memory

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/internal/core/link"
	"github.com/easydapp/jelly-packages/internal/core/store"
	"github.com/easydapp/jelly-packages/pkg/serialization"
)

// OriginAPIs resolves the keys that stand in for full candid or ABI
// documents. A key is either the hex SHA-256 of the document or a location
// such as `api#ic#aaaaa-aa` or `api#ethereum#0xabcd` that points at a hash.
type OriginAPIs struct {
	HashOrigins map[string]string `json:"hash_origins,omitempty"`
	KeyHashes   map[string]string `json:"key_hashes,omitempty"`
}

// IsOriginKey reports whether key has the shape of an origin key.
func IsOriginKey(key string) bool {
	if strings.HasPrefix(key, "api#") {
		return true
	}
	b, err := hex.DecodeString(key)
	return err == nil && len(b) == 32
}

// Origin looks key up as a hash, then as a location.
func (o OriginAPIs) Origin(key string) (string, bool) {
	if origin, ok := o.HashOrigins[key]; ok {
		return origin, true
	}
	hash, ok := o.KeyHashes[key]
	if !ok {
		return "", false
	}
	origin, ok := o.HashOrigins[hash]
	return origin, ok
}

// Compiled is a snippet together with its compiled output.
type Compiled struct {
	Code link.CodeItem `json:"code"`
	JS   string        `json:"js"`
}

// CheckFunction serves a check from preloaded tables. Snippets are not
// compiled here: their output must be registered with AddCompiled first.
type CheckFunction struct {
	Tenant    string
	Codes     map[anchor.Code]*store.CodeData
	APIs      map[anchor.API]*store.ApiData
	Combineds map[anchor.Combined]*store.Combined
	Origins   OriginAPIs

	compiled map[[32]byte]string
}

func NewCheckFunction(tenant string) *CheckFunction {
	return &CheckFunction{
		Tenant:    tenant,
		Codes:     make(map[anchor.Code]*store.CodeData),
		APIs:      make(map[anchor.API]*store.ApiData),
		Combineds: make(map[anchor.Combined]*store.Combined),
		compiled:  make(map[[32]byte]string),
	}
}

// AddCompiled registers the compiled output of each snippet.
func (f *CheckFunction) AddCompiled(items ...Compiled) error {
	for _, c := range items {
		key, err := codeKey(c.Code)
		if err != nil {
			return err
		}
		f.compiled[key] = c.JS
	}
	return nil
}

func codeKey(item link.CodeItem) ([32]byte, error) {
	data, err := serialization.Canonical(item)
	if err != nil {
		return [32]byte{}, fmt.Errorf("encode code item: %w", err)
	}
	return serialization.Fingerprint(string(data)), nil
}

func (f *CheckFunction) CanisterID() (string, error) {
	if f.Tenant == "" {
		return "", fmt.Errorf("canister id is not set")
	}
	return f.Tenant, nil
}

func (f *CheckFunction) FetchCode(a anchor.Code) (*store.CodeData, error) {
	if d, ok := f.Codes[a]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("can not fetch code by %s", a)
}

func (f *CheckFunction) FetchAPI(a anchor.API) (*store.ApiData, error) {
	if d, ok := f.APIs[a]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("can not fetch api by %s", a)
}

func (f *CheckFunction) FetchCombined(a anchor.Combined) (*store.Combined, error) {
	if d, ok := f.Combineds[a]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("can not fetch combined by %s", a)
}

// FetchOriginAPI returns the document key names. Text that is not shaped
// like a key is the document itself.
func (f *CheckFunction) FetchOriginAPI(key string) (string, error) {
	if origin, ok := f.Origins.Origin(key); ok {
		return origin, nil
	}
	if !IsOriginKey(key) {
		return key, nil
	}
	return "", fmt.Errorf("can not find origin api: %q", key)
}

func (f *CheckFunction) CompileCode(item link.CodeItem) (string, error) {
	key, err := codeKey(item)
	if err != nil {
		return "", err
	}
	if js, ok := f.compiled[key]; ok {
		return js, nil
	}
	return "", fmt.Errorf("can not find parsed code: %s", item.Code)
}

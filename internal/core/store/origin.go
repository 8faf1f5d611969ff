package store

import (
	"encoding/hex"
	"strings"
)

// OriginAPIs maps content hashes to full candid or ABI documents, and
// caller-chosen keys to those hashes.
type OriginAPIs struct {
	HashOrigins map[string]string `json:"hash_origins" msgpack:"hash_origins"`
	KeyHashes   map[string]string `json:"key_hashes" msgpack:"key_hashes"`
}

// IsOriginKey reports text that names a document rather than being one: an
// api anchor or a 32 byte hex hash.
func IsOriginKey(key string) bool {
	if strings.HasPrefix(key, "api#") {
		return true
	}
	b, err := hex.DecodeString(key)
	return err == nil && len(b) == 32
}

// Origin looks key up as a hash first, then as a key.
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

// Add stores origin under its hash and, when key is set, maps key to it.
func (o *OriginAPIs) Add(key, hash, origin string) {
	if o.HashOrigins == nil {
		o.HashOrigins = make(map[string]string)
	}
	if o.KeyHashes == nil {
		o.KeyHashes = make(map[string]string)
	}
	o.HashOrigins[hash] = origin
	if key != "" {
		o.KeyHashes[key] = hash
	}
}

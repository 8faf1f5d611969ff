package serialization

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/goccy/go-json"
	"lukechampine.com/blake3"
)

// Canonical encodes v as compact JSON: struct fields in declaration order,
// map keys sorted and no HTML escaping. Anchor hashes are taken over this
// form, so it must stay stable across releases.
func Canonical(v any) ([]byte, error) {
	return json.MarshalNoEscape(v)
}

// SHA256Hex returns the lowercase hex SHA-256 of the concatenated parts.
func SHA256Hex(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CanonicalHash is SHA256Hex over Canonical(v).
func CanonicalHash(v any) (string, error) {
	data, err := Canonical(v)
	if err != nil {
		return "", err
	}
	return SHA256Hex(data), nil
}

// Fingerprint is a fast 32 byte content key used for caches and change
// detection. It is not part of any persisted identifier.
func Fingerprint(parts ...string) [32]byte {
	h := blake3.New(32, nil)
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Package principal wraps Internet Computer principal ids. The textual
// encoding (base32 over a CRC32 checksum followed by the raw bytes, in
// lowercase groups of five characters joined by dashes) comes from agent-go.
package principal

import (
	"errors"
	"strings"

	agent "github.com/aviate-labs/agent-go/principal"
)

const maxLength = 29

var (
	ErrInvalidText = errors.New("invalid principal text")
	ErrTooLong     = errors.New("principal is longer than 29 bytes")
)

// Principal is an immutable principal id. The zero value is the management
// canister "aaaaa-aa". Values are comparable.
type Principal struct {
	raw string
}

// FromBytes wraps raw principal bytes.
func FromBytes(b []byte) (Principal, error) {
	if len(b) > maxLength {
		return Principal{}, ErrTooLong
	}
	return Principal{raw: string(b)}, nil
}

// FromText parses and verifies the textual form. Only the canonical
// spelling is accepted.
func FromText(text string) (Principal, error) {
	if text == "" || strings.ToLower(text) != text {
		return Principal{}, ErrInvalidText
	}
	decoded, err := agent.Decode(strings.ToUpper(text))
	if err != nil {
		return Principal{}, errors.Join(ErrInvalidText, err)
	}
	if len(decoded.Raw) > maxLength {
		return Principal{}, ErrTooLong
	}
	p := Principal{raw: string(decoded.Raw)}
	if p.Text() != text {
		return Principal{}, ErrInvalidText
	}
	return p, nil
}

// Bytes returns a copy of the raw bytes.
func (p Principal) Bytes() []byte {
	return []byte(p.raw)
}

// Text returns the canonical textual form.
func (p Principal) Text() string {
	return strings.ToLower(agent.Principal{Raw: []byte(p.raw)}.Encode())
}

func (p Principal) String() string {
	return p.Text()
}

// IsValid reports whether text is a well-formed principal.
func IsValid(text string) bool {
	_, err := FromText(text)
	return err == nil
}

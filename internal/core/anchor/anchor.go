// Package anchor formats and parses the identifiers that stand in for
// externally stored payloads: `{kind}#{tenant}#{sha256 hex}` for code, api and
// combined data, and `publisher#{tenant}#{sequence}` for publishers.
package anchor

import (
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/easydapp/jelly-packages/pkg/principal"
)

// Kind is the prefix of an anchor.
type Kind string

const (
	KindCode      Kind = "code"
	KindAPI       Kind = "api"
	KindCombined  Kind = "combined"
	KindPublisher Kind = "publisher"
)

var (
	ErrInvalid            = errors.New("anchor is invalid")
	ErrCanisterMismatched = errors.New("canister id is mismatched")
)

var (
	hashBodyRe = regexp.MustCompile(`^([a-z0-9]{5}-){4}[a-z0-9]{3}#[a-f0-9]{64}$`)
	seqBodyRe  = regexp.MustCompile(`^([a-z0-9]{5}-){4}[a-z0-9]{3}#[1-9][0-9]*$`)
)

// Hashed is a parsed content-addressed anchor.
type Hashed struct {
	Kind   Kind
	Tenant principal.Principal
	Hash   [32]byte
}

func (h Hashed) String() string {
	return string(h.Kind) + "#" + h.Tenant.Text() + "#" + hex.EncodeToString(h.Hash[:])
}

// CheckCanisterID fails unless the anchor belongs to tenant.
func (h Hashed) CheckCanisterID(tenant principal.Principal) error {
	if h.Tenant != tenant {
		return ErrCanisterMismatched
	}
	return nil
}

// Sequenced is a parsed counter-addressed anchor.
type Sequenced struct {
	Kind   Kind
	Tenant principal.Principal
	ID     uint64
}

func (s Sequenced) String() string {
	return string(s.Kind) + "#" + s.Tenant.Text() + "#" + strconv.FormatUint(s.ID, 10)
}

func (s Sequenced) CheckCanisterID(tenant principal.Principal) error {
	if s.Tenant != tenant {
		return ErrCanisterMismatched
	}
	return nil
}

func stripPrefix(kind Kind, anchor string) (string, error) {
	prefix := string(kind) + "#"
	body, ok := strings.CutPrefix(anchor, prefix)
	if !ok {
		return "", fmt.Errorf("anchor must started with '%s': %s", prefix, anchor)
	}
	return body, nil
}

// ParseHashed parses a `{kind}#{tenant}#{hex}` anchor.
func ParseHashed(kind Kind, anchor string) (Hashed, error) {
	body, err := stripPrefix(kind, anchor)
	if err != nil {
		return Hashed{}, err
	}
	if !hashBodyRe.MatchString(body) {
		return Hashed{}, ErrInvalid
	}
	tenantText, hashText, _ := strings.Cut(body, "#")
	tenant, err := principal.FromText(tenantText)
	if err != nil {
		return Hashed{}, ErrInvalid
	}
	out := Hashed{Kind: kind, Tenant: tenant}
	if _, err := hex.Decode(out.Hash[:], []byte(hashText)); err != nil {
		return Hashed{}, ErrInvalid
	}
	return out, nil
}

// ParseSequenced parses a `{kind}#{tenant}#{n}` anchor with n > 0.
func ParseSequenced(kind Kind, anchor string) (Sequenced, error) {
	body, err := stripPrefix(kind, anchor)
	if err != nil {
		return Sequenced{}, err
	}
	if !seqBodyRe.MatchString(body) {
		return Sequenced{}, ErrInvalid
	}
	tenantText, idText, _ := strings.Cut(body, "#")
	tenant, err := principal.FromText(tenantText)
	if err != nil {
		return Sequenced{}, ErrInvalid
	}
	id, err := strconv.ParseUint(idText, 10, 64)
	if err != nil {
		return Sequenced{}, ErrInvalid
	}
	return Sequenced{Kind: kind, Tenant: tenant, ID: id}, nil
}

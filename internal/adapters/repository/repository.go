// Package repository defines the storage of checked graphs and of the
// payloads moved out of them. Implementations live in the memory, sqlite and
// postgres subpackages.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/internal/core/compile"
	"github.com/easydapp/jelly-packages/internal/core/store"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrNilCombined   = errors.New("checked combined is nil")
	ErrInvalidAnchor = errors.New("invalid anchor")
)

// Reader loads stored payloads by anchor. A miss returns ErrNotFound.
type Reader interface {
	LoadCode(ctx context.Context, a anchor.Code) (*store.CodeData, error)
	LoadAPI(ctx context.Context, a anchor.API) (*store.ApiData, error)
	LoadCombined(ctx context.Context, a anchor.Combined) (*store.Combined, error)
}

// Repository persists checked graphs. Saving is idempotent: anchors are
// content addresses, so an existing row is left as it is.
type Repository interface {
	Reader
	Save(ctx context.Context, checked *compile.CheckedCombined, version string) error
	SavePublisher(ctx context.Context, p *store.Publisher) error
	LoadPublisher(ctx context.Context, a anchor.Publisher) (*store.Publisher, error)
	Close() error
}

// Entries are the rows one checked graph is stored as.
type Entries struct {
	Combined *store.Combined
	Codes    []*store.CodeData
	APIs     []*store.ApiData
}

// NewEntries stamps the payloads of checked with now and encodes the graph
// in its canonical JSON.
func NewEntries(checked *compile.CheckedCombined, version string, now time.Time) (*Entries, error) {
	if checked == nil {
		return nil, ErrNilCombined
	}
	created := now.UnixMilli()

	components, err := json.MarshalNoEscape(checked.Components)
	if err != nil {
		return nil, fmt.Errorf("encode components: %w", err)
	}
	var metadata json.RawMessage
	if checked.Metadata != nil && !checked.Metadata.IsEmpty() {
		if metadata, err = json.MarshalNoEscape(checked.Metadata); err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
	}

	entries := &Entries{
		Combined: &store.Combined{
			Anchor:     checked.CombinedAnchor,
			Created:    created,
			Version:    version,
			Components: components,
			Chains:     checked.Chains,
			Metadata:   metadata,
		},
		Codes: make([]*store.CodeData, 0, len(checked.Codes)),
		APIs:  make([]*store.ApiData, 0, len(checked.APIs)),
	}
	for _, c := range checked.Codes {
		code := *c
		if code.Created == 0 {
			code.Created = created
		}
		entries.Codes = append(entries.Codes, &code)
	}
	for _, a := range checked.APIs {
		api := *a
		if api.Created == 0 {
			api.Created = created
		}
		entries.APIs = append(entries.APIs, &api)
	}
	return entries, nil
}

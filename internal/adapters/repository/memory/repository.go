// Package memory keeps stored payloads in process: a Repository for tests
// and single-process runs, and a CheckFunction served from preloaded tables.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/easydapp/jelly-packages/internal/adapters/repository"
	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/internal/core/compile"
	"github.com/easydapp/jelly-packages/internal/core/store"
	"github.com/easydapp/jelly-packages/pkg/serialization"
)

// Repository implements repository.Repository over maps of serialized
// entries, so callers never share memory with the store.
type Repository struct {
	mu         sync.RWMutex
	codes      map[anchor.Code][]byte
	apis       map[anchor.API][]byte
	combineds  map[anchor.Combined][]byte
	publishers map[anchor.Publisher][]byte
	serializer *serialization.Serializer
	now        func() time.Time
}

var _ repository.Repository = (*Repository)(nil)

// NewRepository returns an empty repository. A nil serializer selects
// serialization.DefaultSerializer.
func NewRepository(serializer *serialization.Serializer) *Repository {
	if serializer == nil {
		serializer = serialization.DefaultSerializer()
	}
	return &Repository{
		codes:      make(map[anchor.Code][]byte),
		apis:       make(map[anchor.API][]byte),
		combineds:  make(map[anchor.Combined][]byte),
		publishers: make(map[anchor.Publisher][]byte),
		serializer: serializer,
		now:        time.Now,
	}
}

func (r *Repository) Save(_ context.Context, checked *compile.CheckedCombined, version string) error {
	entries, err := repository.NewEntries(checked, version, r.now())
	if err != nil {
		return err
	}

	codes := make(map[anchor.Code][]byte, len(entries.Codes))
	for _, c := range entries.Codes {
		if codes[c.Anchor], err = r.serializer.Serialize(c); err != nil {
			return fmt.Errorf("serialize code %s: %w", c.Anchor, err)
		}
	}
	apis := make(map[anchor.API][]byte, len(entries.APIs))
	for _, a := range entries.APIs {
		if apis[a.Anchor], err = r.serializer.Serialize(a); err != nil {
			return fmt.Errorf("serialize api %s: %w", a.Anchor, err)
		}
	}
	combined, err := r.serializer.Serialize(entries.Combined)
	if err != nil {
		return fmt.Errorf("serialize combined %s: %w", entries.Combined.Anchor, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for a, data := range codes {
		if _, ok := r.codes[a]; !ok {
			r.codes[a] = data
		}
	}
	for a, data := range apis {
		if _, ok := r.apis[a]; !ok {
			r.apis[a] = data
		}
	}
	if _, ok := r.combineds[entries.Combined.Anchor]; !ok {
		r.combineds[entries.Combined.Anchor] = combined
	}
	return nil
}

func (r *Repository) LoadCode(_ context.Context, a anchor.Code) (*store.CodeData, error) {
	r.mu.RLock()
	data, ok := r.codes[a]
	r.mu.RUnlock()
	return load[store.CodeData](r.serializer, data, ok)
}

func (r *Repository) LoadAPI(_ context.Context, a anchor.API) (*store.ApiData, error) {
	r.mu.RLock()
	data, ok := r.apis[a]
	r.mu.RUnlock()
	return load[store.ApiData](r.serializer, data, ok)
}

func (r *Repository) LoadCombined(_ context.Context, a anchor.Combined) (*store.Combined, error) {
	r.mu.RLock()
	data, ok := r.combineds[a]
	r.mu.RUnlock()
	return load[store.Combined](r.serializer, data, ok)
}

// SavePublisher stores p, replacing an earlier profile under the same
// anchor.
func (r *Repository) SavePublisher(_ context.Context, p *store.Publisher) error {
	if _, err := p.Anchor.Parse(); err != nil {
		return fmt.Errorf("%w: %s", repository.ErrInvalidAnchor, err)
	}
	data, err := r.serializer.Serialize(p)
	if err != nil {
		return fmt.Errorf("serialize publisher: %w", err)
	}
	r.mu.Lock()
	r.publishers[p.Anchor] = data
	r.mu.Unlock()
	return nil
}

func (r *Repository) LoadPublisher(_ context.Context, a anchor.Publisher) (*store.Publisher, error) {
	r.mu.RLock()
	data, ok := r.publishers[a]
	r.mu.RUnlock()
	return load[store.Publisher](r.serializer, data, ok)
}

func (r *Repository) Close() error { return nil }

func load[T any](s *serialization.Serializer, data []byte, ok bool) (*T, error) {
	if !ok {
		return nil, repository.ErrNotFound
	}
	var v T
	if err := s.Deserialize(data, &v); err != nil {
		return nil, fmt.Errorf("deserialize: %w", err)
	}
	return &v, nil
}

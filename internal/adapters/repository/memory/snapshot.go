package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/easydapp/jelly-packages/internal/adapters/repository"
	"github.com/easydapp/jelly-packages/internal/core/graph"
)

// Snapshot loads every payload anchors names from r into a new
// CheckFunction. Missing payloads are skipped; the check reports them when
// it reaches the component that needs them.
func Snapshot(ctx context.Context, r repository.Reader, tenant string, anchors graph.Anchors) (*CheckFunction, error) {
	f := NewCheckFunction(tenant)
	for _, a := range anchors.Codes {
		data, err := r.LoadCode(ctx, a)
		if err := skipMissing(err); err != nil {
			return nil, fmt.Errorf("load %s: %w", a, err)
		}
		if data != nil {
			f.Codes[a] = data
		}
	}
	for _, a := range anchors.APIs {
		data, err := r.LoadAPI(ctx, a)
		if err := skipMissing(err); err != nil {
			return nil, fmt.Errorf("load %s: %w", a, err)
		}
		if data != nil {
			f.APIs[a] = data
		}
	}
	for _, a := range anchors.Combineds {
		data, err := r.LoadCombined(ctx, a)
		if err := skipMissing(err); err != nil {
			return nil, fmt.Errorf("load %s: %w", a, err)
		}
		if data != nil {
			f.Combineds[a] = data
		}
	}
	return f, nil
}

func skipMissing(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

package services

import (
	"context"
	"fmt"

	"github.com/easydapp/jelly-packages/internal/adapters/compiler"
	"github.com/easydapp/jelly-packages/internal/infrastructure/config"
	"github.com/easydapp/jelly-packages/pkg/sandbox"
)

// NewCheckServiceFromConfig opens the configured store and builds a service
// over it. opts are applied before the compile cache and the sandbox are
// created from cfg. Close releases the store.
func NewCheckServiceFromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*CheckService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	repo, err := OpenRepository(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	opts = append([]Option{
		WithAffluxPolicy(cfg.Policy()),
		WithVersion(cfg.Check.Version),
	}, opts...)
	s := NewCheckService(repo, cfg.Check.Tenant, opts...)

	if cfg.Check.CompileCacheSize > 0 {
		cache, err := compiler.NewCache(cfg.Check.CompileCacheSize, s.metrics)
		if err != nil {
			_ = repo.Close()
			return nil, err
		}
		s.cache = cache
	}
	if cfg.Check.SandboxEnabled {
		executor, err := sandbox.NewCommand(cfg.Check.SandboxCommand)
		if err != nil {
			_ = repo.Close()
			return nil, err
		}
		s.sandbox = executor
	}
	return s, nil
}

// Close releases the repository.
func (s *CheckService) Close() error {
	return s.repo.Close()
}

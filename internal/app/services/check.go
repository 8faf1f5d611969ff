package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/easydapp/jelly-packages/internal/adapters/compiler"
	"github.com/easydapp/jelly-packages/internal/adapters/repository"
	"github.com/easydapp/jelly-packages/internal/adapters/repository/memory"
	"github.com/easydapp/jelly-packages/internal/app/dto"
	"github.com/easydapp/jelly-packages/internal/app/usecases"
	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/internal/core/compile"
	"github.com/easydapp/jelly-packages/internal/core/graph"
	"github.com/easydapp/jelly-packages/internal/core/link"
	"github.com/easydapp/jelly-packages/internal/core/store"
	"github.com/easydapp/jelly-packages/internal/infrastructure/metrics"
	"github.com/easydapp/jelly-packages/pkg/principal"
	"github.com/easydapp/jelly-packages/pkg/sandbox"
)

const (
	opCheck       = "check"
	opAnchors     = "anchors"
	opOriginCodes = "origin_codes"
)

// CheckService implements usecases.Checker. It loads the payloads a graph
// refers to from the repository, runs the check and stores the result.
type CheckService struct {
	repo    repository.Repository
	tenant  string
	version string
	policy  graph.AffluxPolicy
	cache   *compiler.Cache
	sandbox sandbox.Executor
	metrics *metrics.Metrics
	logger  *zap.Logger
	newID   func() string
}

var _ usecases.Checker = (*CheckService)(nil)

// Option configures a CheckService.
type Option func(*CheckService)

func WithAffluxPolicy(policy graph.AffluxPolicy) Option {
	return func(s *CheckService) { s.policy = policy }
}

// WithCache serves compiles from c before the registered outputs.
func WithCache(c *compiler.Cache) Option {
	return func(s *CheckService) { s.cache = c }
}

func WithSandbox(executor sandbox.Executor) Option {
	return func(s *CheckService) { s.sandbox = executor }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *CheckService) { s.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *CheckService) { s.logger = l }
}

// WithVersion sets the version stamped on saved graphs.
func WithVersion(version string) Option {
	return func(s *CheckService) { s.version = version }
}

// WithRunID replaces the uuid generator of run ids.
func WithRunID(newID func() string) Option {
	return func(s *CheckService) { s.newID = newID }
}

// NewCheckService creates a service that anchors graphs under tenant.
func NewCheckService(repo repository.Repository, tenant string, opts ...Option) *CheckService {
	s := &CheckService{
		repo:    repo,
		tenant:  tenant,
		version: "1.0.0",
		policy:  graph.AffluxLenient,
		logger:  zap.NewNop(),
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check runs the full check of req. A graph that fails the check is not an
// error: the response is rejected and carries the structured link.Error.
// Errors are returned for bad requests and storage failures only.
func (s *CheckService) Check(ctx context.Context, req *dto.CheckRequest) (*dto.CheckResponse, error) {
	start := time.Now()
	resp := &dto.CheckResponse{RunID: s.newID()}
	logger := s.logger.With(zap.String("run", resp.RunID))

	components, err := s.decode(req)
	if err != nil {
		s.metrics.ObserveCheck(opCheck, "error", time.Since(start))
		return nil, err
	}

	fetch, err := s.snapshot(ctx, req, components)
	if err != nil {
		s.metrics.ObserveCheck(opCheck, "error", time.Since(start))
		return nil, err
	}

	checked, err := compile.Check(components, fetch, s.checkOptions()...)
	resp.Duration = time.Since(start)
	if err != nil {
		var linkErr *link.Error
		if !errors.As(err, &linkErr) {
			s.metrics.ObserveCheck(opCheck, "error", resp.Duration)
			return nil, fmt.Errorf("check components: %w", err)
		}
		s.metrics.ObserveCheck(opCheck, "rejected", resp.Duration)
		s.metrics.IncCheckError(string(linkErr.Kind))
		logger.Info("graph rejected",
			zap.String("kind", string(linkErr.Kind)),
			zap.Int("components", len(components)),
			zap.Duration("duration", resp.Duration))
		resp.Status = dto.CheckStatusRejected
		resp.Error = linkErr
		return resp, nil
	}

	s.metrics.ObserveCheck(opCheck, "ok", resp.Duration)
	s.metrics.AddAnchors(string(anchor.KindCode), len(checked.Codes))
	s.metrics.AddAnchors(string(anchor.KindAPI), len(checked.APIs))
	resp.Status = dto.CheckStatusPassed
	resp.Checked = checked

	if req.Save {
		if err := s.repo.Save(ctx, checked, s.version); err != nil {
			return nil, fmt.Errorf("save %s: %w", checked.CombinedAnchor, err)
		}
		resp.Saved = true
	}
	logger.Info("graph checked",
		zap.String("anchor", string(checked.CombinedAnchor)),
		zap.Int("codes", len(checked.Codes)),
		zap.Int("apis", len(checked.APIs)),
		zap.Bool("saved", resp.Saved),
		zap.Duration("duration", resp.Duration))
	return resp, nil
}

// Anchors lists the stored payloads the graph of req refers to.
func (s *CheckService) Anchors(_ context.Context, req *dto.CheckRequest) (*dto.AnchorsResponse, error) {
	start := time.Now()
	components, err := s.decode(req)
	if err != nil {
		return nil, err
	}
	anchors, err := compile.FindAllAnchors(components)
	if err != nil {
		var linkErr *link.Error
		if !errors.As(err, &linkErr) {
			return nil, fmt.Errorf("find anchors: %w", err)
		}
		s.metrics.ObserveCheck(opAnchors, "rejected", time.Since(start))
		return &dto.AnchorsResponse{Error: linkErr}, nil
	}
	s.metrics.ObserveCheck(opAnchors, "ok", time.Since(start))
	return &dto.AnchorsResponse{Anchors: anchors}, nil
}

// OriginCodes lists the snippets of the graph of req that have to be
// compiled before it can be checked.
func (s *CheckService) OriginCodes(ctx context.Context, req *dto.CheckRequest) (*dto.OriginCodesResponse, error) {
	start := time.Now()
	resp := &dto.OriginCodesResponse{RunID: s.newID()}
	components, err := s.decode(req)
	if err != nil {
		return nil, err
	}
	fetch, err := s.snapshot(ctx, req, components)
	if err != nil {
		return nil, err
	}
	codes, err := compile.FindOriginCodes(components, fetch, compile.WithAffluxPolicy(s.policy))
	if err != nil {
		var linkErr *link.Error
		if !errors.As(err, &linkErr) {
			return nil, fmt.Errorf("find origin codes: %w", err)
		}
		s.metrics.ObserveCheck(opOriginCodes, "rejected", time.Since(start))
		resp.Error = linkErr
		return resp, nil
	}
	s.metrics.ObserveCheck(opOriginCodes, "ok", time.Since(start))
	resp.Codes = codes
	if resp.Codes == nil {
		resp.Codes = []graph.OriginCode{}
	}
	return resp, nil
}

// Combined loads a stored graph. The anchor must belong to the tenant of
// the service.
func (s *CheckService) Combined(ctx context.Context, text string) (*store.Combined, error) {
	a := anchor.Combined(text)
	hashed, err := a.Parse()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", repository.ErrInvalidAnchor, err)
	}
	tenant, err := principal.FromText(s.tenant)
	if err != nil {
		return nil, fmt.Errorf("tenant %q: %w", s.tenant, err)
	}
	if err := hashed.CheckCanisterID(tenant); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", repository.ErrNotFound, a, err)
	}
	return s.repo.LoadCombined(ctx, a)
}

func (s *CheckService) decode(req *dto.CheckRequest) (graph.Components, error) {
	if req == nil {
		return nil, dto.ErrMissingComponents
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req.Decode()
}

// snapshot prepares the check capability of one run: the stored payloads
// the graph refers to, the compiled outputs and origin documents sent with
// the request, and the compile cache in front of them.
func (s *CheckService) snapshot(ctx context.Context, req *dto.CheckRequest, components graph.Components) (graph.CheckFunction, error) {
	anchors, err := compile.FindAllAnchors(components)
	if err != nil {
		// The check reports the same error with its context.
		anchors = graph.Anchors{}
	}
	fetch, err := memory.Snapshot(ctx, s.repo, s.tenant, anchors)
	if err != nil {
		return nil, fmt.Errorf("load anchors: %w", err)
	}
	if err := fetch.AddCompiled(req.Compiled...); err != nil {
		return nil, fmt.Errorf("%w: %s", dto.ErrInvalidCompiled, err)
	}
	if req.OriginAPIs != nil {
		fetch.Origins = *req.OriginAPIs
	}
	if s.cache == nil {
		return fetch, nil
	}
	return s.cache.Wrap(fetch), nil
}

func (s *CheckService) checkOptions() []compile.Option {
	opts := []compile.Option{compile.WithAffluxPolicy(s.policy)}
	if s.sandbox != nil {
		opts = append(opts, compile.WithSandbox(s.sandbox))
	}
	return opts
}

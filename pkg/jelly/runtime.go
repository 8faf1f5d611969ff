package jelly

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/easydapp/jelly-packages/internal/adapters/repository/memory"
	"github.com/easydapp/jelly-packages/internal/app/dto"
	"github.com/easydapp/jelly-packages/internal/app/services"
	"github.com/easydapp/jelly-packages/internal/core/compile"
	"github.com/easydapp/jelly-packages/internal/core/graph"
	"github.com/easydapp/jelly-packages/internal/core/link"
	"github.com/easydapp/jelly-packages/pkg/sandbox"
)

// Re-export the types callers handle.
type (
	Components      = graph.Components
	CheckFunction   = graph.CheckFunction
	OriginCode      = graph.OriginCode
	Anchors         = graph.Anchors
	AffluxPolicy    = graph.AffluxPolicy
	CheckedCombined = compile.CheckedCombined
	Error           = link.Error
	ErrorKind       = link.ErrorKind
	Compiled        = memory.Compiled
	OriginAPIs      = memory.OriginAPIs
	CheckRequest    = dto.CheckRequest
	CheckResponse   = dto.CheckResponse
)

const (
	AffluxLenient = graph.AffluxLenient
	AffluxStrict  = graph.AffluxStrict
)

// ParseComponents decodes the editor's JSON form of a graph.
func ParseComponents(data []byte) (Components, error) {
	var cs Components
	if err := json.Unmarshal(data, &cs); err != nil {
		return nil, err
	}
	return cs, nil
}

// Check runs the check of components against fetch. See compile.Check.
func Check(components Components, fetch CheckFunction, policy AffluxPolicy, executor sandbox.Executor) (*CheckedCombined, error) {
	opts := []compile.Option{compile.WithAffluxPolicy(policy)}
	if executor != nil {
		opts = append(opts, compile.WithSandbox(executor))
	}
	return compile.Check(components, fetch, opts...)
}

// FindAllAnchors lists the stored payloads components refer to.
func FindAllAnchors(components Components) (Anchors, error) {
	return compile.FindAllAnchors(components)
}

// Runtime checks graphs and keeps the ones that pass in memory, so that
// later graphs can refer to their anchors.
type Runtime struct {
	service *services.CheckService
}

// NewRuntime constructs a runtime that anchors graphs under tenant.
func NewRuntime(tenant string, policy AffluxPolicy) *Runtime {
	repo := memory.NewRepository(nil)
	return &Runtime{service: services.NewCheckService(repo, tenant, services.WithAffluxPolicy(policy))}
}

// OriginCodes lists the snippets of components the caller has to compile.
func (rt *Runtime) OriginCodes(ctx context.Context, components []byte) ([]OriginCode, error) {
	resp, err := rt.service.OriginCodes(ctx, &dto.CheckRequest{Components: components})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Codes, nil
}

// Check checks components with the compiled output of their snippets and
// keeps the result when it passes.
func (rt *Runtime) Check(ctx context.Context, components []byte, compiled ...Compiled) (*CheckResponse, error) {
	return rt.service.Check(ctx, &dto.CheckRequest{Components: components, Compiled: compiled, Save: true})
}

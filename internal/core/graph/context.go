package graph

import (
	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/internal/core/link"
	"github.com/easydapp/jelly-packages/internal/core/store"
	"github.com/easydapp/jelly-packages/pkg/principal"
	"github.com/easydapp/jelly-packages/pkg/sandbox"
)

// CheckFunction is everything a check needs from outside the graph: the
// tenant, the stored payloads that anchors point at and the snippet
// compiler. Calls are treated as blocking.
type CheckFunction interface {
	CanisterID() (string, error)
	FetchCode(anchor.Code) (*store.CodeData, error)
	FetchAPI(anchor.API) (*store.ApiData, error)
	FetchCombined(anchor.Combined) (*store.Combined, error)
	// FetchOriginAPI resolves an origin key to the candid or ABI text it
	// names. Text that is not a key is returned unchanged.
	FetchOriginAPI(key string) (string, error)
	// CompileCode compiles a snippet to runtime source.
	CompileCode(link.CodeItem) (string, error)
}

// OriginCode is an inline snippet with its argument and return types filled
// in, addressed by component, position and a human readable mark.
type OriginCode struct {
	From  link.ComponentID `json:"from"`
	Index uint32           `json:"index"`
	Mark  string           `json:"mark"`
	Code  link.CodeItem    `json:"code"`
}

// Context is the mutable state of one check. It is never shared between
// checks.
type Context struct {
	Fetch    CheckFunction
	Triggers map[link.ComponentID]*Triggered
	Codes    map[anchor.Code]*store.CodeData
	APIs     map[anchor.API]*store.ApiData
	// Sandbox runs validation snippets against constant values. Nil skips
	// those runs.
	Sandbox sandbox.Executor

	collect bool
	origins []OriginCode
	tenant  string
}

// NewContext returns an empty check context.
func NewContext(fetch CheckFunction, executor sandbox.Executor) *Context {
	return &Context{
		Fetch:    fetch,
		Triggers: make(map[link.ComponentID]*Triggered),
		Codes:    make(map[anchor.Code]*store.CodeData),
		APIs:     make(map[anchor.API]*store.ApiData),
		Sandbox:  executor,
	}
}

// NewCollectContext returns a context that records inline snippets instead
// of compiling them, and stores nothing.
func NewCollectContext(fetch CheckFunction) *Context {
	ctx := NewContext(fetch, nil)
	ctx.collect = true
	return ctx
}

// OriginCodes returns the snippets recorded by a collecting context.
func (ctx *Context) OriginCodes() []OriginCode {
	return ctx.origins
}

// Tenant returns the canister id anchors are written under. It is fetched
// and parsed as a principal once per check.
func (ctx *Context) Tenant() (string, error) {
	if ctx.tenant != "" {
		return ctx.tenant, nil
	}
	text, err := ctx.Fetch.CanisterID()
	if err != nil {
		return "", link.SystemError("%s", err)
	}
	if _, err := principal.FromText(text); err != nil {
		return "", link.SystemError("invalid canister id %q: %s", text, err)
	}
	ctx.tenant = text
	return text, nil
}

func (ctx *Context) trigger(id link.ComponentID, t *Triggered) {
	ctx.Triggers[id] = t
}

// storeAPI anchors an API that is too large to stay inline.
func (ctx *Context) storeAPI(content store.APIContent, large bool, hash func() (string, error)) (*anchor.API, error) {
	if !large || ctx.collect {
		return nil, nil
	}
	tenant, err := ctx.Tenant()
	if err != nil {
		return nil, err
	}
	h, err := hash()
	if err != nil {
		return nil, link.SystemError("%s", err)
	}
	a := anchor.NewAPI(tenant, h)
	ctx.APIs[a] = &store.ApiData{Anchor: a, Content: content}
	return &a, nil
}

package dto

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/easydapp/jelly-packages/internal/adapters/repository/memory"
	"github.com/easydapp/jelly-packages/internal/core/compile"
	"github.com/easydapp/jelly-packages/internal/core/graph"
	"github.com/easydapp/jelly-packages/internal/core/link"
)

// CheckRequest is a graph as the editor submits it, with the compiled
// output of its snippets and the origin documents its calls refer to.
type CheckRequest struct {
	Components json.RawMessage    `json:"components"`
	Compiled   []memory.Compiled  `json:"compiled,omitempty"`
	OriginAPIs *memory.OriginAPIs `json:"origin_apis,omitempty"`
	// Save persists a graph that passes.
	Save bool `json:"save,omitempty"`
}

// Validate checks the shape of the request, not the graph.
func (r *CheckRequest) Validate() error {
	trimmed := bytes.TrimSpace(r.Components)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ErrMissingComponents
	}
	for i, c := range r.Compiled {
		if c.Code.Code == "" || c.JS == "" {
			return fmt.Errorf("%w: entry %d has no source or output", ErrInvalidCompiled, i)
		}
	}
	return nil
}

// Decode parses the components.
func (r *CheckRequest) Decode() (graph.Components, error) {
	var cs graph.Components
	if err := json.Unmarshal(r.Components, &cs); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidComponents, err)
	}
	return cs, nil
}

// CheckStatus is the outcome of a check.
type CheckStatus string

const (
	CheckStatusPassed   CheckStatus = "passed"
	CheckStatusRejected CheckStatus = "rejected"
)

// CheckResponse carries either the checked graph or the reason it was
// rejected.
type CheckResponse struct {
	RunID    string                   `json:"run_id"`
	Status   CheckStatus              `json:"status"`
	Checked  *compile.CheckedCombined `json:"checked,omitempty"`
	Error    *link.Error              `json:"error,omitempty"`
	Saved    bool                     `json:"saved,omitempty"`
	Duration time.Duration            `json:"duration"`
}

// OriginCodesResponse lists the snippets a graph needs compiled.
type OriginCodesResponse struct {
	RunID string             `json:"run_id"`
	Codes []graph.OriginCode `json:"codes"`
	Error *link.Error        `json:"error,omitempty"`
}

// AnchorsResponse lists the stored payloads a graph refers to.
type AnchorsResponse struct {
	Anchors graph.Anchors `json:"anchors"`
	Error   *link.Error   `json:"error,omitempty"`
}

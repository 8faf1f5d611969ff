// Package repositorytest holds the behavior every repository.Repository
// implementation shares, run by each implementation's tests.
package repositorytest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easydapp/jelly-packages/internal/adapters/repository"
	"github.com/easydapp/jelly-packages/internal/adapters/repository/memory"
	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/internal/core/compile"
	"github.com/easydapp/jelly-packages/internal/core/graph"
	"github.com/easydapp/jelly-packages/internal/core/store"
)

// Tenant is the canister id of every fixture.
const Tenant = "rrkah-fqaaa-aaaaa-aaaaq-cai"

// Graph greets a param with a snippet long enough to be anchored.
var Graph = fmt.Sprintf(`[
	{"param":{"id":1,"metadata":{"name":"name"}}},
	{"code":{"id":2,"inlets":[{"id":1}],"metadata":{
		"data":[{"key":"name","value":{"refer":{"endpoint":{"id":1}}}}],
		"code":{"code":{"code":%q},"js":""}
	},"output":"text"}},
	{"output":{"id":3,"inlets":[{"id":2}],"metadata":{"data":[{"key":"greeting","value":{"refer":{"endpoint":{"id":2}}}}]},"output":{"object":[{"key":"greeting","ty":"text"}]}}}
]`, "return 'hello ' + data.name + '"+strings.Repeat(".", 300)+"';")

// Components decodes data.
func Components(t testing.TB, data string) graph.Components {
	t.Helper()
	var cs graph.Components
	require.NoError(t, json.Unmarshal([]byte(data), &cs))
	return cs
}

// CheckFunction compiles every snippet of cs as its own source and returns
// a check function that serves the results.
func CheckFunction(t testing.TB, cs graph.Components) *memory.CheckFunction {
	t.Helper()
	fetch := memory.NewCheckFunction(Tenant)
	origins, err := compile.FindOriginCodes(cs, fetch)
	require.NoError(t, err)
	for _, o := range origins {
		require.NoError(t, fetch.AddCompiled(memory.Compiled{Code: o.Code, JS: "compiled:" + o.Code.Code}))
	}
	return fetch
}

// Checked returns Graph after a successful check.
func Checked(t testing.TB) *compile.CheckedCombined {
	t.Helper()
	cs := Components(t, Graph)
	checked, err := compile.Check(cs, CheckFunction(t, cs))
	require.NoError(t, err)
	require.Len(t, checked.Codes, 1)
	return checked
}

// Run exercises r. r must be empty.
func Run(t *testing.T, r repository.Repository) {
	ctx := context.Background()
	checked := Checked(t)
	code := checked.Codes[0]

	t.Run("missing", func(t *testing.T) {
		_, err := r.LoadCode(ctx, code.Anchor)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		_, err = r.LoadAPI(ctx, anchor.NewAPI(Tenant, strings.Repeat("0", 64)))
		assert.ErrorIs(t, err, repository.ErrNotFound)
		_, err = r.LoadCombined(ctx, checked.CombinedAnchor)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		_, err = r.LoadPublisher(ctx, anchor.Publisher("publisher#"+Tenant+"#1"))
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("save", func(t *testing.T) {
		require.ErrorIs(t, r.Save(ctx, nil, "1.0.0"), repository.ErrNilCombined)
		require.NoError(t, r.Save(ctx, checked, "1.0.0"))
		require.NoError(t, r.Save(ctx, checked, "2.0.0"), "saving again is a no-op")

		loaded, err := r.LoadCode(ctx, code.Anchor)
		require.NoError(t, err)
		assert.Equal(t, code.Anchor, loaded.Anchor)
		assert.Equal(t, code.JS, loaded.JS)
		assert.Equal(t, code.Code.Code, loaded.Code.Code)
		assert.Positive(t, loaded.Created)

		combined, err := r.LoadCombined(ctx, checked.CombinedAnchor)
		require.NoError(t, err)
		assert.Equal(t, "1.0.0", combined.Version)
		assert.Positive(t, combined.Created)
		assert.Len(t, Components(t, string(combined.Components)), len(checked.Components))

		var metadata graph.CombinedMetadata
		require.NoError(t, json.Unmarshal(combined.Metadata, &metadata))
		equal, err := checked.Metadata.Equal(&metadata)
		require.NoError(t, err)
		assert.True(t, equal)
	})

	t.Run("snapshot", func(t *testing.T) {
		anchors, err := compile.FindAllAnchors(checked.Components)
		require.NoError(t, err)
		fetch, err := memory.Snapshot(ctx, r, Tenant, anchors)
		require.NoError(t, err)
		require.Contains(t, fetch.Codes, code.Anchor)

		again, err := compile.Check(checked.Components, fetch)
		require.NoError(t, err)
		assert.Equal(t, checked.CombinedAnchor, again.CombinedAnchor, "a checked graph checks to itself")
	})

	t.Run("publisher", func(t *testing.T) {
		p := &store.Publisher{Anchor: anchor.Publisher("publisher#" + Tenant + "#1"), Name: "jelly"}
		require.NoError(t, r.SavePublisher(ctx, p))
		p.Bio = "updated"
		require.NoError(t, r.SavePublisher(ctx, p))

		loaded, err := r.LoadPublisher(ctx, p.Anchor)
		require.NoError(t, err)
		assert.Equal(t, p, loaded)

		err = r.SavePublisher(ctx, &store.Publisher{Anchor: "publisher#" + Tenant + "#0"})
		assert.ErrorIs(t, err, repository.ErrInvalidAnchor)
	})
}

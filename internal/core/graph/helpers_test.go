package graph

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/internal/core/link"
	"github.com/easydapp/jelly-packages/internal/core/store"
)

const testTenant = "rrkah-fqaaa-aaaaa-aaaaq-cai"

var errNotStored = errors.New("not stored")

// stubFetch compiles every snippet to "js:<code>" and serves the payloads
// stored in its maps.
type stubFetch struct {
	codes     map[anchor.Code]*store.CodeData
	apis      map[anchor.API]*store.ApiData
	combineds map[anchor.Combined]*store.Combined
	origins   map[string]string
	compiled  int
}

func (f *stubFetch) CanisterID() (string, error) { return testTenant, nil }

func (f *stubFetch) FetchCode(a anchor.Code) (*store.CodeData, error) {
	if d, ok := f.codes[a]; ok {
		return d, nil
	}
	return nil, errNotStored
}

func (f *stubFetch) FetchAPI(a anchor.API) (*store.ApiData, error) {
	if d, ok := f.apis[a]; ok {
		return d, nil
	}
	return nil, errNotStored
}

func (f *stubFetch) FetchCombined(a anchor.Combined) (*store.Combined, error) {
	if d, ok := f.combineds[a]; ok {
		return d, nil
	}
	return nil, errNotStored
}

func (f *stubFetch) FetchOriginAPI(key string) (string, error) {
	if origin, ok := f.origins[key]; ok {
		return origin, nil
	}
	return key, nil
}

func (f *stubFetch) CompileCode(item link.CodeItem) (string, error) {
	f.compiled++
	if strings.Contains(item.Code, "syntax error") {
		return "", errors.New("unexpected token")
	}
	return "js:" + item.Code, nil
}

// decode reads a graph from its wire form.
func decode(t *testing.T, data string) Components {
	t.Helper()
	var cs Components
	require.NoError(t, json.Unmarshal([]byte(data), &cs))
	return cs
}

// inline is the wire form of an inline snippet.
func inline(source string) string {
	return fmt.Sprintf(`{"code":{"code":{"code":%q},"js":""}}`, source)
}

// runChecks runs the graph passes in pipeline order and returns the context
// of the per-component checks.
func runChecks(cs Components, fetch CheckFunction, policy AffluxPolicy) (*Context, error) {
	index, err := NewIndex(cs)
	if err != nil {
		return nil, err
	}
	if err := index.CheckCircular(); err != nil {
		return nil, err
	}
	if err := index.CheckNames(); err != nil {
		return nil, err
	}
	if err := index.CheckSingleOutput(); err != nil {
		return nil, err
	}
	if err := index.CheckInlets(); err != nil {
		return nil, err
	}
	colors, err := Colorize(index, policy)
	if err != nil {
		return nil, err
	}
	resolver := NewResolver(index, colors)
	ctx := NewContext(fetch, nil)
	for _, c := range cs {
		if _, err := c.Check(ctx, resolver.Endpoints(IDOf(c), true)); err != nil {
			return nil, err
		}
	}
	if err := ResolveTriggers(ctx, index, colors); err != nil {
		return nil, err
	}
	return ctx, nil
}

// checkOne checks the last component of cs after the graph passes.
func checkOne(t *testing.T, cs Components) error {
	t.Helper()
	index, err := NewIndex(cs)
	require.NoError(t, err)
	colors, err := Colorize(index, AffluxLenient)
	require.NoError(t, err)
	last := cs[len(cs)-1]
	_, err = last.Check(NewContext(&stubFetch{}, nil), index.Endpoints(IDOf(last), colors, true))
	return err
}

func linkError(t *testing.T, err error) *link.Error {
	t.Helper()
	var le *link.Error
	require.ErrorAs(t, err, &le)
	return le
}

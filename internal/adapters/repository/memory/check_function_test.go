package memory_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easydapp/jelly-packages/internal/adapters/repository/memory"
	"github.com/easydapp/jelly-packages/internal/adapters/repository/repositorytest"
	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/internal/core/compile"
	"github.com/easydapp/jelly-packages/internal/core/link"
)

func TestIsOriginKey(t *testing.T) {
	assert.True(t, memory.IsOriginKey("api#ic#aaaaa-aa"))
	assert.True(t, memory.IsOriginKey(strings.Repeat("ab", 32)))
	assert.False(t, memory.IsOriginKey(strings.Repeat("ab", 31)))
	assert.False(t, memory.IsOriginKey("service : { greet : (text) -> (text) }"))
}

func TestFetchOriginAPI(t *testing.T) {
	hash := strings.Repeat("cd", 32)
	f := memory.NewCheckFunction(repositorytest.Tenant)
	f.Origins = memory.OriginAPIs{
		HashOrigins: map[string]string{hash: "service : {}"},
		KeyHashes:   map[string]string{"api#ic#aaaaa-aa": hash},
	}

	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: hash, want: "service : {}"},
		{key: "api#ic#aaaaa-aa", want: "service : {}"},
		{key: "service : { a : () -> () }", want: "service : { a : () -> () }"},
		{key: "api#ic#bbbbb-bb", wantErr: true},
		{key: strings.Repeat("ef", 32), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := f.FetchOriginAPI(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckFunctionTables(t *testing.T) {
	f := memory.NewCheckFunction("")
	_, err := f.CanisterID()
	assert.Error(t, err)

	a := anchor.NewCode(repositorytest.Tenant, strings.Repeat("a", 64))
	_, err = f.FetchCode(a)
	assert.ErrorContains(t, err, "can not fetch code")
	_, err = f.FetchAPI(anchor.NewAPI(repositorytest.Tenant, strings.Repeat("a", 64)))
	assert.ErrorContains(t, err, "can not fetch api")
	_, err = f.FetchCombined(anchor.NewCombined(repositorytest.Tenant, strings.Repeat("a", 64)))
	assert.ErrorContains(t, err, "can not fetch combined")
}

func TestCompileCode(t *testing.T) {
	cs := repositorytest.Components(t, repositorytest.Graph)

	_, err := compile.Check(cs, memory.NewCheckFunction(repositorytest.Tenant))
	require.ErrorIs(t, err, link.ErrWrongCode, "snippets must be compiled first")

	fetch := repositorytest.CheckFunction(t, cs)
	checked, err := compile.Check(cs, fetch)
	require.NoError(t, err)
	require.Len(t, checked.Codes, 1)
	assert.True(t, strings.HasPrefix(checked.Codes[0].JS, "compiled:return 'hello '"))

	item := checked.Codes[0].Code
	js, err := fetch.CompileCode(item)
	require.NoError(t, err)
	assert.Equal(t, checked.Codes[0].JS, js)

	item.Ret = nil
	_, err = fetch.CompileCode(item)
	assert.Error(t, err, "the typed signature is part of the key")
}

package graph

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/internal/core/link"
)

var (
	codeA     = anchor.NewCode(testTenant, strings.Repeat("a", 64))
	codeB     = anchor.NewCode(testTenant, strings.Repeat("b", 64))
	combinedA = anchor.NewCombined(testTenant, strings.Repeat("c", 64))
)

func anchoredCode(id int, a anchor.Code) string {
	return `{"code":{"id":` + strconv.Itoa(id) + `,"metadata":{"code":{"anchor":"` + string(a) + `"}},"output":"text"}}`
}

func TestCollectAnchors(t *testing.T) {
	cs := decode(t, `[
		`+anchoredCode(1, codeB)+`,
		`+anchoredCode(2, codeA)+`,
		`+anchoredCode(3, codeB)+`,
		{"form":{"id":4,"metadata":{"validate":{"code":{"anchor":"`+string(codeA)+`"}}},"output":"text"}},
		{"combined":{"id":5,"metadata":{"anchor":"`+string(combinedA)+`"}}},
		{"code":{"id":6,"metadata":{"code":`+inline("return '';")+`},"output":"text"}}
	]`)
	anchors := CollectAnchors(cs)
	assert.Equal(t, []anchor.Code{codeA, codeB}, anchors.Codes)
	assert.Nil(t, anchors.APIs)
	assert.Equal(t, []anchor.Combined{combinedA}, anchors.Combineds)
	assert.False(t, anchors.IsEmpty())

	assert.True(t, CollectAnchors(cs[5:]).IsEmpty())
}

func TestChains(t *testing.T) {
	cs := decode(t, `[
		{"identity":{"id":1,"metadata":{"metadata":{"ic":{}}}}},
		{"identity":{"id":2,"metadata":{"metadata":{"evm":{"chain":"polygon"}}}}},
		{"call":{"id":3,"metadata":{"http":{"trigger":{"loading":{}},"url":{"const":{"text":"https://a.io"}},"method":"GET","parsed":"json"}},"output":"text"}},
		{"identity":{"id":4,"metadata":{"metadata":{"ic":{}}}}}
	]`)
	assert.Equal(t, []link.CallChain{link.ChainHTTP, link.ChainInternetComputer, link.ChainPolygon}, Chains(cs))
	assert.Nil(t, Chains(nil))
}

func TestMetadata(t *testing.T) {
	cs := decode(t, `[
		{"param":{"id":1,"metadata":{"name":"who","default":"me"}}},
		{"form":{"id":2,"metadata":{"name":"amount"},"output":"integer"}},
		{"identity":{"id":7,"metadata":{"metadata":{"ic":{}}}}},
		{"identity":{"id":8,"metadata":{"name":"wallet","metadata":{"ic":{"includes":[{"ii":{}}]}}}}},
		`+twoChoices+`,
		`+anchoredCode(6, codeA)+`
	]`)
	output := link.ObjectOf(link.F("a", link.Text()))
	m := Metadata(cs, &output)
	require.NotNil(t, m)

	require.Len(t, m.Params, 1)
	assert.Equal(t, "who", m.Params[0].Name)
	require.NotNil(t, m.Params[0].Default)
	assert.Equal(t, "me", *m.Params[0].Default)

	require.Len(t, m.Forms, 1)
	assert.Equal(t, link.ComponentID(2), m.Forms[0].ID)
	assert.Equal(t, link.Integer(), m.Forms[0].Output)

	require.Len(t, m.Identities, 1, "anonymous identities need nothing from the user")
	assert.Equal(t, link.ComponentID(8), m.Identities[0].ID)

	require.Len(t, m.Interactions, 1)
	assert.Equal(t, link.ComponentID(3), m.Interactions[0].ID)

	assert.Equal(t, []anchor.Code{codeA}, m.CodeAnchors)
	assert.Equal(t, &output, m.Output)

	assert.Nil(t, Metadata(decode(t, `[{"identity":{"id":1,"metadata":{"metadata":{"http":{}}}}}]`), nil))
}

func TestMetadataEqual(t *testing.T) {
	output := link.Text()
	a := &CombinedMetadata{Params: []ParamRequired{{ID: 1, Name: "a"}}, Output: &output}
	b := &CombinedMetadata{Params: []ParamRequired{{ID: 1, Name: "a"}}, Output: &output}

	equal, err := a.Equal(b)
	require.NoError(t, err)
	assert.True(t, equal)

	b.Params[0].Name = "b"
	equal, err = a.Equal(b)
	require.NoError(t, err)
	assert.False(t, equal)

	var none *CombinedMetadata
	equal, err = none.Equal(&CombinedMetadata{})
	require.NoError(t, err)
	assert.True(t, equal)

	equal, err = none.Equal(a)
	require.NoError(t, err)
	assert.False(t, equal)
}

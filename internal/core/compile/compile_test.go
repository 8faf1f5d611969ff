package compile

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/internal/core/graph"
	"github.com/easydapp/jelly-packages/internal/core/link"
	"github.com/easydapp/jelly-packages/internal/core/store"
	"github.com/easydapp/jelly-packages/pkg/sandbox"
)

const tenant = "rrkah-fqaaa-aaaaa-aaaaq-cai"

type fakeFetch struct {
	canister  string
	apis      map[anchor.API]*store.ApiData
	combineds map[anchor.Combined]*store.Combined
	compiled  int
}

func (f *fakeFetch) CanisterID() (string, error) {
	if f.canister != "" {
		return f.canister, nil
	}
	return tenant, nil
}

func (f *fakeFetch) FetchCode(a anchor.Code) (*store.CodeData, error) {
	return nil, fmt.Errorf("code %s not stored", a)
}

func (f *fakeFetch) FetchAPI(a anchor.API) (*store.ApiData, error) {
	if d, ok := f.apis[a]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("api %s not stored", a)
}

func (f *fakeFetch) FetchCombined(a anchor.Combined) (*store.Combined, error) {
	if d, ok := f.combineds[a]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("combined %s not stored", a)
}

func (f *fakeFetch) FetchOriginAPI(key string) (string, error) { return key, nil }

func (f *fakeFetch) CompileCode(item link.CodeItem) (string, error) {
	f.compiled++
	if strings.Contains(item.Code, "syntax error") {
		return "", errors.New("unexpected token")
	}
	return "js:" + item.Code, nil
}

func decode(t *testing.T, data string) graph.Components {
	t.Helper()
	var cs graph.Components
	require.NoError(t, json.Unmarshal([]byte(data), &cs))
	return cs
}

func inline(source string) string {
	return fmt.Sprintf(`{"code":{"code":{"code":%q},"js":""}}`, source)
}

func jsonText(t *testing.T, s string) string {
	t.Helper()
	data, err := json.Marshal(s)
	require.NoError(t, err)
	return string(data)
}

var greeting = `[
	{"param":{"id":1,"metadata":{"name":"name"}}},
	{"const":{"id":2,"metadata":{"value":{"text":"hello"}},"output":"text"}},
	{"code":{"id":3,"inlets":[{"id":1},{"id":2}],"metadata":{
		"data":[
			{"key":"name","value":{"refer":{"endpoint":{"id":1}}}},
			{"key":"greeting","value":{"refer":{"endpoint":{"id":2}}}}
		],
		"code":` + inline("return data.greeting + ', ' + data.name;") + `
	},"output":"text"}},
	{"output":{"id":4,"inlets":[{"id":3}],"metadata":{"data":[{"key":"message","value":{"refer":{"endpoint":{"id":3}}}}]},"output":{"object":[{"key":"message","ty":"text"}]}}}
]`

func TestCheck(t *testing.T) {
	cs := decode(t, greeting)
	result, err := Check(cs, &fakeFetch{})
	require.NoError(t, err)

	require.NotNil(t, result.Metadata)
	require.Len(t, result.Metadata.Params, 1)
	assert.Equal(t, "name", result.Metadata.Params[0].Name)
	require.NotNil(t, result.Metadata.Output)
	assert.True(t, result.Metadata.Output.Equal(link.ObjectOf(link.F("message", link.Text()))))
	assert.Empty(t, result.Codes)
	assert.Empty(t, result.APIs)
	assert.Nil(t, result.Chains)

	parsed, err := result.CombinedAnchor.Parse()
	require.NoError(t, err)
	assert.Equal(t, anchor.KindCombined, parsed.Kind)
	assert.Equal(t, tenant, parsed.Tenant.Text())

	code := result.Components[2].(*graph.Code)
	require.NotNil(t, code.Metadata.Code.Code)
	assert.Equal(t, "js:return data.greeting + ', ' + data.name;", code.Metadata.Code.Code.JS)
	assert.Empty(t, cs[2].(*graph.Code).Metadata.Code.Code.JS, "the input graph is not modified")

	again, err := Check(decode(t, greeting), &fakeFetch{})
	require.NoError(t, err)
	assert.Equal(t, result.CombinedAnchor, again.CombinedAnchor)

	out, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"combined_anchor":"combined#`+tenant+`#`)
	assert.Contains(t, string(out), `"codes":[]`)
}

func TestCheckErrors(t *testing.T) {
	tests := []struct {
		name  string
		graph string
		want  *link.Error
		check func(t *testing.T, err *link.Error)
	}{
		{
			name:  "empty",
			graph: `[]`,
			want:  link.ErrEmptyComponents,
		},
		{
			name: "call refers to itself",
			graph: `[{"call":{"id":1,"inlets":[{"id":1}],"metadata":{"http":{
				"trigger":{"loading":{}},"url":{"const":{"text":"https://a.io"}},"method":"GET","parsed":"json"
			}},"output":"text"}}]`,
			want:  link.ErrCircularReference,
			check: func(t *testing.T, err *link.Error) { assert.Equal(t, link.ComponentID(1), err.ID) },
		},
		{
			name:  "text const holding a bool",
			graph: `[{"const":{"id":1,"metadata":{"value":{"bool":true}},"output":"text"}}]`,
			want:  link.ErrMismatchedConstValue,
			check: func(t *testing.T, err *link.Error) {
				assert.Equal(t, link.ComponentID(1), err.From)
				assert.Equal(t, link.Text(), *err.Output)
				assert.Equal(t, link.BoolValue(true), *err.Value)
			},
		},
		{
			name:  "two outputs",
			graph: `[{"output":{"id":1,"output":{"object":[]}}},{"output":{"id":2,"output":{"object":[]}}}]`,
			want:  link.ErrMultipleOutput,
		},
		{
			name:  "duplicate param names",
			graph: `[{"param":{"id":1,"metadata":{"name":"a"}}},{"param":{"id":2,"metadata":{"name":"a"}}}]`,
			want:  link.ErrDuplicateParamName,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Check(decode(t, tt.graph), &fakeFetch{})
			require.ErrorIs(t, err, tt.want)
			if tt.check != nil {
				var le *link.Error
				require.ErrorAs(t, err, &le)
				tt.check(t, le)
			}
		})
	}
}

// exclusive joins the two branches of a condition with a presence test.
var exclusive = `[
	{"form":{"id":1,"output":"text"}},
	{"const":{"id":2,"metadata":{"value":{"bool":true}},"output":"bool"}},
	{"condition":{"id":3,"inlets":[{"id":2},{"id":1}],"metadata":{"conditions":[
		{"required":{"value":{"endpoint":{"id":2}},"matches":{"bool":"is_true"}}}
	]}}},
	{"code":{"id":10,"inlets":[{"id":3}],"metadata":{"code":` + inline("return 'a';") + `},"output":"text"}},
	{"code":{"id":20,"inlets":[{"id":3,"index":1}],"metadata":{"code":` + inline("return 'b';") + `},"output":"text"}},
	{"condition":{"id":100,"inlets":[{"id":10},{"id":20},{"id":1}],"metadata":{"conditions":[
		{"or":[
			{"required":{"value":{"endpoint":{"id":10}},"matches":{"text":"not_null"}}},
			{"required":{"value":{"endpoint":{"id":20}},"matches":{"text":"not_null"}}}
		]}
	]}}},
	{"view":{"id":200,"inlets":[{"id":100}],"metadata":{"text":{"value":{"refer":{"endpoint":{"id":1}}}}}}}
]`

func TestCheckExclusiveBranches(t *testing.T) {
	for _, policy := range []graph.AffluxPolicy{graph.AffluxLenient, graph.AffluxStrict} {
		t.Run(policy.String(), func(t *testing.T) {
			result, err := Check(decode(t, exclusive), &fakeFetch{}, WithAffluxPolicy(policy))
			require.NoError(t, err)
			require.NotNil(t, result.Metadata)
			assert.Len(t, result.Metadata.Forms, 1)
			assert.Nil(t, result.Metadata.Output)
		})
	}
}

const approveABI = `{"type":"function","name":"approve","inputs":[` +
	`{"name":"spender","type":"address","internalType":"address"},` +
	`{"name":"amount","type":"uint256","internalType":"uint256"}],` +
	`"outputs":[{"name":"","type":"bool","internalType":"bool"}],"stateMutability":"%s"}`

func approveGraph(t *testing.T, trigger, mutability string) string {
	api := jsonText(t, fmt.Sprintf(approveABI, mutability))
	return `[
		{"identity":{"id":1,"metadata":{"name":"wallet","metadata":{"evm":{"chain":"ethereum","includes":[{"metamask":{}}]}}}}},
		{"call":{"id":2,"inlets":[{"id":1}],"metadata":{"evm":{
			"trigger":` + trigger + `,"identity":1,"chain":"ethereum",
			"action":{"call":{
				"contract":{"const":{"text":"0x00000000000000000000000000000000000000aa"}},
				"api":{"api":{"single":{"api":` + api + `}}},
				"arg":{"code":{"code":` + inline("return ['0x00000000000000000000000000000000000000bb', 1n];") + `}}
			}}
		}},"output":"bool"}}
	]`
}

func TestCheckMutatingCall(t *testing.T) {
	_, err := Check(decode(t, approveGraph(t, `{"loading":{}}`, "nonpayable")), &fakeFetch{})
	require.ErrorIs(t, err, link.ErrInvalidCallTrigger)

	result, err := Check(decode(t, approveGraph(t, `{"loading":{}}`, "view")), &fakeFetch{})
	require.NoError(t, err)
	assert.Equal(t, []link.CallChain{link.ChainEthereum}, result.Chains)

	result, err = Check(decode(t, approveGraph(t, `{"click":{}}`, "nonpayable")), &fakeFetch{})
	require.NoError(t, err)

	require.Len(t, result.APIs, 1, "a long abi moves out of the graph")
	stored := result.APIs[0]
	require.NotNil(t, stored.Content.Evm)
	assert.Equal(t, []anchor.API{stored.Anchor}, result.Metadata.APIAnchors)
	call := result.Components[1].(*graph.Call)
	require.NotNil(t, call.Metadata.Evm.Action.Call.API.Anchor)
	assert.Equal(t, stored.Anchor, *call.Metadata.Evm.Action.Call.API.Anchor)

	require.Len(t, result.Metadata.Identities, 1)
	assert.Equal(t, link.ComponentID(1), result.Metadata.Identities[0].ID)
}

func TestCheckCodeAnchors(t *testing.T) {
	long := "return '" + strings.Repeat("x", 300) + "';"
	graphJSON := `[{"code":{"id":1,"metadata":{"code":` + inline(long) + `},"output":"text"}},
		{"code":{"id":2,"metadata":{"code":` + inline(long) + `},"output":"text"}}]`
	result, err := Check(decode(t, graphJSON), &fakeFetch{})
	require.NoError(t, err)

	require.Len(t, result.Codes, 1, "identical snippets share one anchor")
	assert.Equal(t, "js:"+long, result.Codes[0].JS)
	assert.Equal(t, []anchor.Code{result.Codes[0].Anchor}, result.Metadata.CodeAnchors)

	anchors, err := FindAllAnchors(result.Components)
	require.NoError(t, err)
	assert.Equal(t, []anchor.Code{result.Codes[0].Anchor}, anchors.Codes)
}

func TestCheckInvalidTenant(t *testing.T) {
	long := "return '" + strings.Repeat("x", 300) + "';"
	tests := []struct {
		name  string
		graph string
	}{
		{"inline code", `[{"code":{"id":1,"metadata":{"code":` + inline("return 'a';") + `},"output":"text"}}]`},
		{"anchored code", `[{"code":{"id":1,"metadata":{"code":` + inline(long) + `},"output":"text"}}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, canister := range []string{"not a principal", "RRKAH-FQAAA-AAAAA-AAAAQ-CAI", "rrkah-fqaaa-aaaaa-aaaaq-cab"} {
				result, err := Check(decode(t, tt.graph), &fakeFetch{canister: canister})
				require.ErrorIs(t, err, link.ErrSystem, canister)
				assert.Nil(t, result)
				assert.Contains(t, err.Error(), "invalid canister id")
			}

			result, err := Check(decode(t, tt.graph), &fakeFetch{})
			require.NoError(t, err)
			_, err = result.CombinedAnchor.Parse()
			assert.NoError(t, err)
			for _, code := range result.Codes {
				_, err = code.Anchor.Parse()
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckCombined(t *testing.T) {
	published := anchor.NewCombined(tenant, strings.Repeat("d", 64))
	fetch := &fakeFetch{combineds: map[anchor.Combined]*store.Combined{
		published: {Anchor: published, Metadata: json.RawMessage(`{"params":[{"id":1,"name":"a"}],"output":"text"}`)},
	}}
	embed := func(metadata string) string {
		return `[
			{"combined":{"id":1,"metadata":{"anchor":"` + string(published) + `","metadata":` + metadata + `}}},
			{"output":{"id":2,"inlets":[{"id":1}],"metadata":{"data":[{"key":"v","value":{"refer":{"endpoint":{"id":1}}}}]},"output":{"object":[{"key":"v","ty":"text"}]}}}
		]`
	}

	result, err := Check(decode(t, embed(`{"params":[{"id":1,"name":"a"}],"output":"text"}`)), fetch)
	require.NoError(t, err)
	assert.Equal(t, []anchor.Combined{published}, result.Metadata.CombinedAnchors)

	_, err = Check(decode(t, embed(`{"params":[{"id":1,"name":"b"}],"output":"text"}`)), fetch)
	require.ErrorIs(t, err, link.ErrMismatchedCombinedMetadata)

	missing := anchor.NewCombined(tenant, strings.Repeat("e", 64))
	_, err = Check(decode(t, strings.ReplaceAll(embed(`{"output":"text"}`), string(published), string(missing))), fetch)
	require.ErrorIs(t, err, link.ErrSystem)
}

func TestCheckWithSandbox(t *testing.T) {
	form := `[{"form":{"id":1,"metadata":{"default":{"text":"ab"},"validate":{"code":` + inline("return data.length > 2 ? '' : 'too short';") + `}},"output":"text"}}]`

	var seen []sandbox.Arg
	pass := sandbox.Func(func(source string, args []sandbox.Arg) (string, error) {
		seen = args
		return `""`, nil
	})
	_, err := Check(decode(t, form), &fakeFetch{}, WithSandbox(pass))
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, `{"text":"ab"}`, seen[0].Value)

	fail := sandbox.Func(func(string, []sandbox.Arg) (string, error) { return `"too short"`, nil })
	_, err = Check(decode(t, form), &fakeFetch{}, WithSandbox(fail))
	require.ErrorIs(t, err, link.ErrValidateCodeFailed)

	_, err = Check(decode(t, form), &fakeFetch{})
	assert.NoError(t, err, "validation snippets do not run without a sandbox")
}

func TestFindAllAnchors(t *testing.T) {
	_, err := FindAllAnchors(nil)
	assert.ErrorIs(t, err, link.ErrEmptyComponents)

	_, err = FindAllAnchors(decode(t, `[
		{"form":{"id":1,"inlets":[{"id":2}],"output":"text"}},
		{"form":{"id":2,"inlets":[{"id":1}],"output":"text"}}
	]`))
	assert.ErrorIs(t, err, link.ErrCircularReference)

	anchors, err := FindAllAnchors(decode(t, greeting))
	require.NoError(t, err)
	assert.True(t, anchors.IsEmpty())
}

func TestFindOriginCodes(t *testing.T) {
	fetch := &fakeFetch{}
	origins, err := FindOriginCodes(decode(t, greeting), fetch)
	require.NoError(t, err)
	assert.Zero(t, fetch.compiled)

	require.Len(t, origins, 1)
	assert.Equal(t, link.ComponentID(3), origins[0].From)
	assert.Equal(t, "Code", origins[0].Mark)
	require.Len(t, origins[0].Code.Args, 1)
	assert.Equal(t, "data", origins[0].Code.Args[0].Name)
	assert.Equal(t, "return data.greeting + ', ' + data.name;", origins[0].Code.Code)

	_, err = FindOriginCodes(decode(t, `[{"const":{"id":1,"metadata":{"value":{"bool":true}},"output":"text"}}]`), fetch)
	assert.ErrorIs(t, err, link.ErrMismatchedConstValue)
}

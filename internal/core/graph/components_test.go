package graph

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easydapp/jelly-packages/internal/core/link"
)

type checkCase struct {
	name    string
	graph   string
	want    *link.Error
	message string
}

func runCheckCases(t *testing.T, tests []checkCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runChecks(decode(t, tt.graph), &stubFetch{}, AffluxLenient)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
			if tt.message != "" {
				assert.Contains(t, linkError(t, err).Message, tt.message)
			}
		})
	}
}

func TestParamConstForm(t *testing.T) {
	runCheckCases(t, []checkCase{
		{
			name:  "param",
			graph: `[{"param":{"id":1,"metadata":{"name":"amount","default":"1"}}}]`,
		},
		{
			name:  "param name is not an identifier",
			graph: `[{"param":{"id":1,"metadata":{"name":"1st"}}}]`,
			want:  link.ErrInvalidVariantKey,
		},
		{
			name:  "param name is reserved",
			graph: `[{"param":{"id":1,"metadata":{"name":"return"}}}]`,
			want:  link.ErrInvalidVariantKey,
		},
		{
			name:  "const",
			graph: `[{"const":{"id":1,"metadata":{"value":{"integer":7}},"output":"integer"}}]`,
		},
		{
			name:  "const value of another type",
			graph: `[{"const":{"id":1,"metadata":{"value":{"text":"7"}},"output":"integer"}}]`,
			want:  link.ErrMismatchedConstValue,
		},
		{
			name:  "const object with a bad key",
			graph: `[{"const":{"id":1,"metadata":{"value":{"object":[]}},"output":{"object":[{"key":"a-b","ty":"text"}]}}}]`,
			want:  link.ErrInvalidObjectKey,
		},
		{
			name:  "form default",
			graph: `[{"form":{"id":1,"metadata":{"default":{"bool":false}},"output":"bool"}}]`,
		},
		{
			name:  "form default of another type",
			graph: `[{"form":{"id":1,"metadata":{"default":{"integer":1}},"output":"text"}}]`,
			want:  link.ErrMismatchedFormDefaultValue,
		},
		{
			name:  "form suffix must be text",
			graph: `[{"form":{"id":1,"metadata":{"suffix":{"const":{"integer":1}}},"output":"integer"}}]`,
			want:  link.ErrMismatchedFormSuffixValue,
		},
		{
			name: "form suffix from upstream",
			graph: `[
				{"param":{"id":1,"metadata":{"name":"unit"}}},
				{"form":{"id":2,"inlets":[{"id":1}],"metadata":{"suffix":{"refer":{"endpoint":{"id":1}}}},"output":"integer"}}
			]`,
		},
		{
			name:  "form validate that does not compile",
			graph: `[{"form":{"id":1,"metadata":{"validate":{"code":` + inline("syntax error") + `}},"output":"text"}}]`,
			want:  link.ErrWrongCode,
		},
	})
}

func TestCodeAndOutput(t *testing.T) {
	runCheckCases(t, []checkCase{
		{
			name: "code",
			graph: `[
				{"param":{"id":1,"metadata":{"name":"a"}}},
				{"code":{"id":2,"inlets":[{"id":1}],"metadata":{
					"data":[{"key":"a","value":{"refer":{"endpoint":{"id":1}}}}],
					"code":` + inline("return data.a.length;") + `
				},"output":"integer"}}
			]`,
		},
		{
			name:  "code does not compile",
			graph: `[{"code":{"id":1,"metadata":{"code":` + inline("syntax error") + `},"output":"text"}}]`,
			want:  link.ErrWrongCode,
		},
		{
			name: "duplicate code argument",
			graph: `[{"code":{"id":1,"metadata":{
				"data":[{"key":"a","value":{"const":{"text":"x"}}},{"key":"a","value":{"const":{"text":"y"}}}],
				"code":` + inline("return '';") + `
			},"output":"text"}}]`,
			want: link.ErrDuplicateVariantKey,
		},
		{
			name: "output",
			graph: `[
				{"param":{"id":1,"metadata":{"name":"a"}}},
				{"output":{"id":2,"inlets":[{"id":1}],"metadata":{"data":[{"key":"a","value":{"refer":{"endpoint":{"id":1}}}}]},"output":{"object":[{"key":"a","ty":"text"}]}}}
			]`,
		},
		{
			name:  "output type differs from its data",
			graph: `[{"output":{"id":1,"output":{"object":[{"key":"a","ty":"text"}]}}}]`,
			want:  link.ErrMismatchedOutput,
		},
		{
			name: "refer into a text",
			graph: `[
				{"param":{"id":1,"metadata":{"name":"a"}}},
				{"output":{"id":2,"inlets":[{"id":1}],"metadata":{"data":[{"key":"a","value":{"refer":{"endpoint":{"id":1},"refer":{"key":"b"}}}}]},"output":{"object":[{"key":"a","ty":"text"}]}}}
			]`,
			want: link.ErrWrongLinkTypeForRefer,
		},
		{
			name: "refer to a view",
			graph: `[
				{"param":{"id":1,"metadata":{"name":"a"}}},
				{"view":{"id":2,"inlets":[{"id":1}],"metadata":{"text":{"value":{"refer":{"endpoint":{"id":1}}}}}}},
				{"form":{"id":3,"inlets":[{"id":2}],"metadata":{"suffix":{"refer":{"endpoint":{"id":2}}}},"output":"text"}}
			]`,
			want: link.ErrReferNoOutputComponent,
		},
		{
			name: "refer to a component that is not upstream",
			graph: `[
				{"param":{"id":1,"metadata":{"name":"a"}}},
				{"form":{"id":2,"metadata":{"suffix":{"refer":{"endpoint":{"id":1}}}},"output":"text"}}
			]`,
			want: link.ErrUnknownComponentOrNotRefer,
		},
	})
}

func TestCodeIntoAnchor(t *testing.T) {
	long := "return '" + strings.Repeat("a", 300) + "';"
	cs := decode(t, `[{"code":{"id":1,"metadata":{"code":`+inline(long)+`},"output":"text"}}]`)
	ctx, err := runChecks(cs, &stubFetch{}, AffluxLenient)
	require.NoError(t, err)

	code := cs[0].(*Code)
	require.NotNil(t, code.Metadata.Code.Anchor)
	assert.Nil(t, code.Metadata.Code.Code)
	assert.True(t, strings.HasPrefix(string(*code.Metadata.Code.Anchor), "code#"+testTenant+"#"))

	stored, ok := ctx.Codes[*code.Metadata.Code.Anchor]
	require.True(t, ok)
	assert.Equal(t, long, stored.Code.Code)
	assert.Equal(t, "js:"+long, stored.JS)

	short := decode(t, `[{"code":{"id":1,"metadata":{"code":`+inline("return 'a';")+`},"output":"text"}}]`)
	ctx, err = runChecks(short, &stubFetch{}, AffluxLenient)
	require.NoError(t, err)
	assert.Empty(t, ctx.Codes)
	inlined := short[0].(*Code).Metadata.Code.Code
	require.NotNil(t, inlined)
	assert.Equal(t, "js:return 'a';", inlined.JS)
	require.NotNil(t, inlined.Code.Ret)
}

func TestCollectContext(t *testing.T) {
	cs := decode(t, `[
		{"form":{"id":1,"metadata":{"validate":{"code":`+inline("return '';")+`}},"output":"integer"}},
		{"code":{"id":2,"metadata":{"code":`+inline("return 1;")+`},"output":"integer"}}
	]`)
	fetch := &stubFetch{}
	ctx := NewCollectContext(fetch)
	for _, c := range cs {
		_, err := c.Check(ctx, nil)
		require.NoError(t, err)
	}
	assert.Zero(t, fetch.compiled)
	origins := ctx.OriginCodes()
	require.Len(t, origins, 2)
	assert.Equal(t, link.ComponentID(1), origins[0].From)
	assert.Equal(t, "Form -> validate", origins[0].Mark)
	assert.Equal(t, "Code", origins[1].Mark)
	assert.Equal(t, "return 1;", origins[1].Code.Code)
}

func TestIdentity(t *testing.T) {
	runCheckCases(t, []checkCase{
		{
			name:  "http",
			graph: `[{"identity":{"id":1,"metadata":{"metadata":{"http":{"proxy":"https://p.easydapp.ai"}}}}}]`,
		},
		{
			name:  "http proxy",
			graph: `[{"identity":{"id":1,"metadata":{"metadata":{"http":{"proxy":"https://proxy.example.com"}}}}}]`,
			want:  link.ErrInvalidIdentityHTTPProxy,
		},
		{
			name:  "http identity has no name",
			graph: `[{"identity":{"id":1,"metadata":{"name":"me","metadata":{"http":{}}}}}]`,
			want:  link.ErrNeedlessCallHTTPName,
		},
		{
			name:    "empty includes",
			graph:   `[{"identity":{"id":1,"metadata":{"metadata":{"ic":{"includes":[]}}}}}]`,
			want:    link.ErrInvalidIdentity,
			message: "ic identity includes can not be empty",
		},
		{
			name:    "repeated includes",
			graph:   `[{"identity":{"id":1,"metadata":{"metadata":{"evm":{"chain":"bsc","includes":[{"metamask":{}},{"metamask":{}}]}}}}}]`,
			want:    link.ErrInvalidIdentity,
			message: "evm identity includes can not be repeated",
		},
		{
			name:    "included and excluded",
			graph:   `[{"identity":{"id":1,"metadata":{"metadata":{"ic":{"includes":[{"plug":{}}],"excludes":[{"plug":{}}]}}}}}]`,
			want:    link.ErrInvalidIdentity,
			message: "can not be intersect",
		},
		{
			name:    "connect on an anonymous identity",
			graph:   `[{"identity":{"id":1,"metadata":{"metadata":{"ic":{"connect":{"const":{"text":"Connect"}}}}}}}]`,
			want:    link.ErrInvalidIdentity,
			message: "anonymous",
		},
		{
			name:  "blank connect",
			graph: `[{"identity":{"id":1,"metadata":{"metadata":{"ic":{"includes":[{"ii":{}}],"connect":{"const":{"text":"  "}}}}}}}]`,
			want:  link.ErrInvalidIdentity,
		},
	})
}

func TestHTTPCall(t *testing.T) {
	call := func(body string) string {
		return `[{"call":{"id":1,"metadata":{"http":` + body + `},"output":"text"}}]`
	}
	runCheckCases(t, []checkCase{
		{
			name:  "get",
			graph: call(`{"trigger":{"loading":{}},"url":{"const":{"text":"https://api.example.com"}},"method":"GET","parsed":"text"}`),
		},
		{
			name:    "plain http",
			graph:   call(`{"trigger":{"loading":{}},"url":{"const":{"text":"http://api.example.com"}},"method":"GET","parsed":"text"}`),
			want:    link.ErrInvalidCallHTTPURL,
			message: "wrong constant url",
		},
		{
			name:    "url of another type",
			graph:   call(`{"trigger":{"loading":{}},"url":{"const":{"integer":1}},"method":"GET","parsed":"text"}`),
			want:    link.ErrInvalidCallHTTPURL,
			message: "wrong constant url value",
		},
		{
			name:    "polling too often",
			graph:   call(`{"trigger":{"clock":{"sleep":500}},"url":{"const":{"text":"https://api.example.com"}},"method":"GET","parsed":"text"}`),
			want:    link.ErrInvalidCallTrigger,
			message: "sleep time must be greater than 10000ms",
		},
		{
			name:  "blob needs a byte array",
			graph: call(`{"trigger":{"loading":{}},"url":{"const":{"text":"https://api.example.com"}},"method":"GET","parsed":"blob"}`),
			want:  link.ErrInvalidCallOutputType,
		},
		{
			name: "headers must be text",
			graph: call(`{"trigger":{"loading":{}},"url":{"const":{"text":"https://api.example.com"}},"method":"GET","parsed":"text",
				"headers":[{"name":"X-Count","value":{"const":{"integer":1}}}]}`),
			want: link.ErrInvalidNamedValueType,
		},
		{
			name: "post processed",
			graph: call(`{"trigger":{"click":{"text":{"const":{"text":"Send"}}}},"url":{"const":{"text":"https://api.example.com"}},"method":"POST","parsed":"blob",
				"body":{"plain":{"data":[{"name":"content type","value":{"const":{"text":"json"}}}]}},
				"post":` + inline("return 'ok';") + `}`),
		},
		{
			name: "identity must be http",
			graph: `[
				{"identity":{"id":1,"metadata":{"metadata":{"ic":{}}}}},
				{"call":{"id":2,"inlets":[{"id":1}],"metadata":{"http":{"trigger":{"loading":{}},"identity":1,"url":{"const":{"text":"https://api.example.com"}},"method":"GET","parsed":"json"}},"output":"text"}}
			]`,
			want:    link.ErrInvalidCallIdentity,
			message: "identity component is not http",
		},
	})
}

func TestInteraction(t *testing.T) {
	runCheckCases(t, []checkCase{
		{
			name:  "choose",
			graph: `[` + twoChoices + `]`,
		},
		{
			name:  "choose one",
			graph: `[{"interaction":{"id":1,"metadata":{"metadata":{"choose":{"values":[{"name":"a","value":{"const":{"text":"x"}}}]}}}}}]`,
			want:  link.ErrInvalidInteractionComponent,
		},
		{
			name:  "choose integers",
			graph: `[{"interaction":{"id":1,"metadata":{"metadata":{"choose":{"values":[{"name":"a","value":{"const":{"integer":1}}},{"name":"b","value":{"const":{"integer":2}}}]}}}}}]`,
			want:  link.ErrInvalidNamedValueType,
		},
		{
			name:  "choose duplicate names",
			graph: `[{"interaction":{"id":1,"metadata":{"metadata":{"choose":{"values":[{"name":"a","value":{"const":{"text":"x"}}},{"name":"a","value":{"const":{"text":"y"}}}]}}}}}]`,
			want:  link.ErrDuplicateName,
		},
		{
			name:  "blank confirm",
			graph: `[{"interaction":{"id":1,"metadata":{"metadata":{"choose_form":{"values":[],"confirm":" "}}}}}]`,
			want:  link.ErrInvalidConfirmText,
		},
		{
			name:  "choose tip",
			graph: `[{"interaction":{"id":1,"metadata":{"metadata":{"choose_tip":{"values":{"const":{"array":{"ty":"text","values":[{"text":"a"}]}}}}}}}}]`,
		},
		{
			name:    "choose tip without values",
			graph:   `[{"interaction":{"id":1,"metadata":{"metadata":{"choose_tip":{"values":{"const":{"array":{"ty":"text","values":[]}}}}}}}}]`,
			want:    link.ErrInvalidInteractionComponent,
			message: "must has values",
		},
		{
			name:    "choose full of texts",
			graph:   `[{"interaction":{"id":1,"metadata":{"metadata":{"choose_full":{"values":{"const":{"array":{"ty":"text","values":[{"text":"a"}]}}}}}}}}]`,
			want:    link.ErrInvalidInteractionComponent,
			message: "unsupported type for choose full component",
		},
	})
}

func TestInteractionOutputType(t *testing.T) {
	cs := decode(t, `[
		{"interaction":{"id":1,"metadata":{"metadata":{"choose_tip":{"values":{"const":{"array":{"ty":"text","values":[{"text":"a"}]}}}}}}}},
		`+twoChoices+`
	]`)
	ty, err := cs[0].OutputType(0, 9)
	require.NoError(t, err)
	assert.Equal(t, link.Integer(), ty)
	ty, err = cs[1].OutputType(0, 9)
	require.NoError(t, err)
	assert.Equal(t, link.Text(), ty)

	_, err = cs[1].OutputType(1, 9)
	assert.ErrorIs(t, err, link.ErrInvalidEndpoint)
}

func TestComponentsJSON(t *testing.T) {
	var cs Components
	err := json.Unmarshal([]byte(`[{"param":{"id":1,"metadata":{"name":"a"}},"const":{"id":2}}]`), &cs)
	assert.ErrorContains(t, err, "exactly one kind tag")

	err = json.Unmarshal([]byte(`[{"widget":{"id":1}}]`), &cs)
	assert.ErrorContains(t, err, "unknown component kind")

	err = json.Unmarshal([]byte(`[{"identity":{"id":1,"metadata":{"metadata":{"ic":{},"http":{}}}}}]`), &cs)
	assert.ErrorContains(t, err, "identity must have exactly one variant")

	cs = decode(t, `[{"param":{"id":1,"metadata":{"name":"a"}}},`+twoChoices+`]`)
	clone, err := cs.Clone()
	require.NoError(t, err)
	assert.Equal(t, cs, clone)
	clone[0].(*Param).Metadata.Name = "b"
	assert.Equal(t, "a", cs[0].(*Param).Metadata.Name)
}

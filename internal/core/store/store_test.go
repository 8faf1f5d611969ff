package store

import (
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetcherFunc func(string) (string, error)

func (f fetcherFunc) FetchOriginAPI(key string) (string, error) { return f(key) }

func TestIcAPI(t *testing.T) {
	api := IcAPI{Single: &SingleIcAPI{API: "icrc1_name : () -> (text) query"}}
	h, err := api.Hash()
	require.NoError(t, err)
	assert.Equal(t, "b0d842d78ae4a6fe7aa0d82f99df8b99717d4733444317ed0824d28930c8832d", h)
	assert.False(t, api.ShouldIntoAnchor())

	data, err := json.Marshal(ApiData{Content: APIContent{IC: &api}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"anchor":"","created":0,"content":{"ic":{"single":{"api":"icrc1_name : () -> (text) query"}}}}`, string(data))

	big := IcAPI{Origin: &OriginIcAPI{Candid: strings.Repeat("a", 257), Method: "m"}}
	assert.True(t, big.ShouldIntoAnchor())
}

func TestRestore(t *testing.T) {
	full := "service : { greet : (text) -> (text) query }"
	fetch := fetcherFunc(func(key string) (string, error) {
		if key == "k1" {
			return full, nil
		}
		return "", errors.New("can not find origin api")
	})

	ic, err := IcAPI{Origin: &OriginIcAPI{Candid: "k1", Method: "greet"}}.Restore(fetch)
	require.NoError(t, err)
	assert.Equal(t, full, ic.Origin.Candid)
	assert.Equal(t, "greet", ic.Origin.Method)

	single := IcAPI{Single: &SingleIcAPI{API: "x"}}
	same, err := single.Restore(fetch)
	require.NoError(t, err)
	assert.Equal(t, single, same)

	index := uint32(2)
	_, err = EvmAPI{Origin: &OriginEvmAPI{Abi: "missing", Index: &index}}.Restore(fetch)
	assert.Error(t, err)
}

func TestOriginAPIs(t *testing.T) {
	hash := strings.Repeat("0f", 32)
	var o OriginAPIs
	o.Add("my-ledger", hash, "service : {}")

	got, ok := o.Origin(hash)
	assert.True(t, ok)
	assert.Equal(t, "service : {}", got)
	got, ok = o.Origin("my-ledger")
	assert.True(t, ok)
	assert.Equal(t, "service : {}", got)
	_, ok = o.Origin("other")
	assert.False(t, ok)

	assert.True(t, IsOriginKey(hash))
	assert.True(t, IsOriginKey("api#whatever"))
	assert.False(t, IsOriginKey("service : {}"))
	assert.False(t, IsOriginKey("0f0f"))
}

package anchor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easydapp/jelly-packages/pkg/principal"
)

const (
	tenant = "rrkah-fqaaa-aaaaa-aaaaq-cai"
	other  = "ryjl3-tyaaa-aaaaa-aaaba-cai"
)

var hash = strings.Repeat("ab", 32)

func TestParseHashed(t *testing.T) {
	code := NewCode(tenant, hash)
	assert.Equal(t, Code("code#"+tenant+"#"+hash), code)

	parsed, err := code.Parse()
	require.NoError(t, err)
	assert.Equal(t, KindCode, parsed.Kind)
	assert.Equal(t, tenant, parsed.Tenant.Text())
	assert.Equal(t, byte(0xab), parsed.Hash[31])
	assert.Equal(t, string(code), parsed.String())

	self, err := principal.FromText(tenant)
	require.NoError(t, err)
	assert.NoError(t, parsed.CheckCanisterID(self))
	foreign, err := principal.FromText(other)
	require.NoError(t, err)
	assert.ErrorIs(t, parsed.CheckCanisterID(foreign), ErrCanisterMismatched)
}

func TestParseHashedErrors(t *testing.T) {
	tests := []struct {
		name   string
		anchor string
		prefix bool
	}{
		{"wrong prefix", "api#" + tenant + "#" + hash, true},
		{"no prefix", tenant + "#" + hash, true},
		{"short hash", "code#" + tenant + "#abcd", false},
		{"upper hash", "code#" + tenant + "#" + strings.ToUpper(hash), false},
		{"short tenant", "code#aaaaa-aa#" + hash, false},
		{"bad checksum", "code#rrkah-fqaaa-aaaaa-aaaaq-caa#" + hash, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Code(tt.anchor).Parse()
			require.Error(t, err)
			if tt.prefix {
				assert.EqualError(t, err, "anchor must started with 'code#': "+tt.anchor)
			} else {
				assert.ErrorIs(t, err, ErrInvalid)
			}
		})
	}
}

func TestKinds(t *testing.T) {
	_, err := NewAPI(tenant, hash).Parse()
	assert.NoError(t, err)
	_, err = NewCombined(tenant, hash).Parse()
	assert.NoError(t, err)
	_, err = Combined(NewAPI(tenant, hash)).Parse()
	assert.Error(t, err)
}

func TestPublisher(t *testing.T) {
	p, err := Publisher("publisher#" + tenant + "#42").Parse()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), p.ID)
	assert.Equal(t, "publisher#"+tenant+"#42", p.String())

	for _, bad := range []string{"publisher#" + tenant + "#0", "publisher#" + tenant + "#01", "publisher#" + tenant + "#x"} {
		_, err := Publisher(bad).Parse()
		assert.ErrorIs(t, err, ErrInvalid, bad)
	}
	_, err = Publisher("publisher#" + tenant + "#99999999999999999999999").Parse()
	assert.ErrorIs(t, err, ErrInvalid)
}

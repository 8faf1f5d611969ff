package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenant = "rrkah-fqaaa-aaaaa-aaaaq-cai"

func TestValidationErrors(t *testing.T) {
	err := ValidationError{Field: "name", Value: "", Message: "field is required"}
	assert.Equal(t, "validation error on field 'name': field is required (got: )", err.Error())

	errs := ValidationErrors{
		{Field: "name", Value: "", Message: "field is required"},
		{Field: "size", Value: -1, Message: "must be positive"},
	}
	assert.Equal(t, "validation error on field 'name': field is required (got: ); validation error on field 'size': must be positive (got: -1)", errs.Error())
	assert.Equal(t, []string{"name", "size"}, errs.Fields())
	assert.Equal(t, "no validation errors", ValidationErrors{}.Error())
}

type inner struct {
	Tenant string `yaml:"tenant" validate:"required,principal"`
}

type sample struct {
	Name   string `json:"name" validate:"required,max=8"`
	Policy string `json:"policy" validate:"oneof=lenient strict"`
	Anchor string `json:"anchor,omitempty" validate:"omitempty,anchor=code api"`
	Inner  inner  `json:"inner"`
}

type custom struct {
	Size int `json:"size" validate:"min=0"`
}

func (c custom) Validate() error {
	if c.Size%2 == 1 {
		return errors.New("size must be even")
	}
	return nil
}

func TestStruct(t *testing.T) {
	valid := sample{Name: "a", Policy: "strict", Inner: inner{Tenant: tenant}}

	tests := []struct {
		name   string
		mutate func(*sample)
		fields []string
		msg    string
	}{
		{name: "valid", mutate: func(*sample) {}},
		{
			name:   "missing name",
			mutate: func(s *sample) { s.Name = "" },
			fields: []string{"name"},
			msg:    "field is required",
		},
		{
			name:   "long name",
			mutate: func(s *sample) { s.Name = strings.Repeat("x", 9) },
			fields: []string{"name"},
			msg:    "maximum value/length is 8",
		},
		{
			name:   "unknown policy",
			mutate: func(s *sample) { s.Policy = "loose" },
			fields: []string{"policy"},
			msg:    "must be one of: lenient strict",
		},
		{
			name:   "nested tenant uses the yaml name",
			mutate: func(s *sample) { s.Inner.Tenant = "not a principal" },
			fields: []string{"inner.tenant"},
			msg:    "must be a principal text",
		},
		{
			name:   "code anchor",
			mutate: func(s *sample) { s.Anchor = "code#" + tenant + "#" + strings.Repeat("a", 64) },
		},
		{
			name:   "combined anchor where code or api is expected",
			mutate: func(s *sample) { s.Anchor = "combined#" + tenant + "#" + strings.Repeat("a", 64) },
			fields: []string{"anchor"},
			msg:    "must be a code api anchor",
		},
		{
			name: "every failure is reported",
			mutate: func(s *sample) {
				s.Name = ""
				s.Policy = ""
			},
			fields: []string{"name", "policy"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			err := Struct(s)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			var errs ValidationErrors
			require.ErrorAs(t, err, &errs)
			assert.Equal(t, tt.fields, errs.Fields())
			if tt.msg != "" {
				assert.Equal(t, tt.msg, errs[0].Message)
			}
		})
	}
}

func TestStructRunsValidator(t *testing.T) {
	assert.NoError(t, Struct(custom{Size: 2}))
	assert.EqualError(t, Struct(custom{Size: 3}), "size must be even")

	var errs ValidationErrors
	require.ErrorAs(t, Struct(custom{Size: -1}), &errs, "tag rules run first")
	assert.Equal(t, []string{"size"}, errs.Fields())
}

func TestVar(t *testing.T) {
	assert.NoError(t, Var("tenant", tenant, "principal"))

	var errs ValidationErrors
	require.ErrorAs(t, Var("tenant", "aaaaa", "principal"), &errs)
	assert.Equal(t, "tenant", errs[0].Field)

	require.ErrorAs(t, Var("anchor", "code#x", "anchor"), &errs)
	assert.Equal(t, "must be an anchor", errs[0].Message)
}

func TestVarAESKey(t *testing.T) {
	tests := []struct {
		key   string
		valid bool
	}{
		{strings.Repeat("ab", 16), true},
		{strings.Repeat("0f", 24), true},
		{strings.Repeat("7e", 32), true},
		{strings.Repeat("ab", 20), false},
		{strings.Repeat("zz", 16), false},
		{"abc", false},
	}
	for _, tt := range tests {
		err := Var("key", tt.key, "aes_key")
		if tt.valid {
			assert.NoError(t, err, tt.key)
			continue
		}
		var errs ValidationErrors
		require.ErrorAs(t, err, &errs, tt.key)
		assert.Equal(t, "must be a hex AES-128, AES-192 or AES-256 key", errs[0].Message)
	}
}

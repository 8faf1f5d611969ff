package candid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ledger = `
// token ledger
type Account = record { owner : principal; subaccount : opt blob };
type TransferArg = record {
  to : Account;
  amount : nat;
  memo : opt vec nat8;
};
type TransferResult = variant { Ok : nat; Err : text };
type Tree = variant { leaf : nat8; node : vec Tree };
/* services */
service : (record { minting : Account }) -> {
  icrc1_balance_of : (Account) -> (nat) query;
  icrc1_transfer : (TransferArg) -> (TransferResult);
  icrc1_metadata : () -> (vec record { text; nat64 }) composite_query;
  tree : (Tree) -> () oneway;
  "quoted-name" : (arg : text, bool) -> (null);
}
`

func TestParseService(t *testing.T) {
	service, err := ParseService(ledger)
	require.NoError(t, err)
	require.Len(t, service.Methods, 5)

	balance, ok := service.Method("icrc1_balance_of")
	require.True(t, ok)
	assert.True(t, balance.IsQuery())
	require.Len(t, balance.Args, 1)
	assert.Equal(t, KindRecord, balance.Args[0].Kind)
	assert.Equal(t, "Account", balance.Args[0].Name)

	transfer, ok := service.Method("icrc1_transfer")
	require.True(t, ok)
	assert.False(t, transfer.HasAnnotation())

	metadata, ok := service.Method("icrc1_metadata")
	require.True(t, ok)
	assert.True(t, metadata.IsQuery())
	assert.Equal(t, KindTuple, metadata.Rets[0].Sub.Kind)

	quoted, ok := service.Method("quoted-name")
	require.True(t, ok)
	assert.Len(t, quoted.Args, 2)

	tree, ok := service.Method("tree")
	require.True(t, ok)
	assert.Equal(t, KindRec, tree.Args[0].Kind)
	assert.Equal(t, []string{"oneway"}, tree.Annotations)
}

func TestTypeScript(t *testing.T) {
	service, err := ParseService(ledger)
	require.NoError(t, err)

	balance, _ := service.Method("icrc1_balance_of")
	args, err := TypesToTypeScript(balance.Args)
	require.NoError(t, err)
	assert.Equal(t, "Account", args.Ty)
	require.Len(t, args.Types, 1)
	assert.Equal(t, "type Account = {\n  owner: Principal;\n  subaccount: ([] | [(Uint8Array | number[])]);\n};", args.Types[0])

	rets, err := TypesToTypeScript(balance.Rets)
	require.NoError(t, err)
	assert.Equal(t, "bigint", rets.Ty)

	tree, _ := service.Method("tree")
	ts, err := TypesToTypeScript(tree.Args)
	require.NoError(t, err)
	assert.Equal(t, "Tree", ts.Ty)
	assert.Equal(t, []string{"type Tree = ({ leaf: number } | { node: Tree[] });"}, ts.Types)

	empty, err := TypesToTypeScript(tree.Rets)
	require.NoError(t, err)
	assert.Equal(t, "[]", empty.Ty)

	quoted, _ := service.Method("quoted-name")
	pair, err := TypesToTypeScript(quoted.Args)
	require.NoError(t, err)
	assert.Equal(t, "[string, boolean]", pair.Ty)
}

func TestTypeScriptPrimitives(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"bool", "boolean"},
		{"nat", "bigint"},
		{"int64", "bigint"},
		{"nat32", "number"},
		{"float64", "number"},
		{"null", "null"},
		{"text", "string"},
		{"principal", "Principal"},
		{"blob", "(Uint8Array | number[])"},
		{"vec text", "string[]"},
		{"opt bool", "([] | [boolean])"},
		{"reserved", "any"},
		{"empty", "any"},
		{"func () -> ()", "any"},
		{"variant { a; b : text }", "({ a: null } | { b: string })"},
		{"record { nat; text }", "[bigint, string]"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			ty, err := ParseType("", tt.expr)
			require.NoError(t, err)
			ts, err := ty.TypeScript()
			require.NoError(t, err)
			assert.Equal(t, tt.want, ts.Ty)
		})
	}
}

func TestServiceTypeUnsupported(t *testing.T) {
	ty, err := ParseType("", "service { a : () -> () }")
	require.NoError(t, err)
	_, err = ty.TypeScript()
	assert.ErrorIs(t, err, ErrUnsupported)

	anonymous := &Type{Kind: KindRec, Sub: &Type{Kind: KindText}}
	_, err = anonymous.TypeScript()
	assert.ErrorIs(t, err, ErrAnonymousRecursion)
}

func TestSelectMethod(t *testing.T) {
	fn, err := SelectMethod(SingleAPI("greet : (text) -> (text) query"), "")
	require.NoError(t, err)
	assert.True(t, fn.IsQuery())

	_, err = SelectMethod(SingleAPI(""), "")
	assert.ErrorIs(t, err, ErrServiceEmpty)

	_, err = SelectMethod(SingleAPI("a : () -> (); b : () -> ()"), "")
	assert.ErrorIs(t, err, ErrMultipleMethods)

	_, err = SelectMethod(ledger, "missing")
	assert.EqualError(t, err, "can not find method: missing")

	_, err = SelectMethod("service : { a : (Unknown) -> () }", "a")
	assert.ErrorIs(t, err, ErrUnbound)

	_, err = SelectMethod("service : { a : (text -> () }", "a")
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestMethodByFuncAlias(t *testing.T) {
	fn, err := SelectMethod("type F = func (nat) -> (text) query; service : { f : F }", "f")
	require.NoError(t, err)
	assert.True(t, fn.IsQuery())
	assert.Equal(t, KindNat, fn.Args[0].Kind)
}

func TestShapeOf(t *testing.T) {
	text := &Type{Kind: KindText}
	opt := &Type{Kind: KindOpt, Sub: text}

	shape, _ := ShapeOf(nil)
	assert.Equal(t, ArgsNone, shape)

	shape, optional := ShapeOf([]*Type{opt})
	assert.Equal(t, ArgsSingle, shape)
	assert.True(t, optional)

	shape, optional = ShapeOf([]*Type{opt, text})
	assert.Equal(t, ArgsMulti, shape)
	assert.False(t, optional)

	_, optional = ShapeOf([]*Type{opt, opt})
	assert.True(t, optional)
}

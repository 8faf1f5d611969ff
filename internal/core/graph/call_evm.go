package graph

import (
	"math/big"
	"strings"

	"github.com/goccy/go-json"

	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/internal/core/link"
	"github.com/easydapp/jelly-packages/internal/core/store"
	"github.com/easydapp/jelly-packages/pkg/abi"
	"github.com/easydapp/jelly-packages/pkg/typescript"
)

type CallEvm struct {
	Trigger  CallTrigger       `json:"trigger"`
	Identity *link.ComponentID `json:"identity,omitempty"`
	Chain    link.EvmChain     `json:"chain"`
	Action   EvmAction         `json:"action"`
}

// EvmAction is what the call does on chain. Exactly one member is set.
type EvmAction struct {
	Call        *EvmActionCall        `json:"call,omitempty"`
	Sign        *link.InputValue      `json:"sign,omitempty"`
	Transaction *EvmActionTransaction `json:"transaction,omitempty"`
	Deploy      *EvmActionDeploy      `json:"deploy,omitempty"`
	Transfer    *EvmActionTransfer    `json:"transfer,omitempty"`
}

func (a *EvmAction) UnmarshalJSON(data []byte) error {
	type plain EvmAction
	if err := json.Unmarshal(data, (*plain)(a)); err != nil {
		return err
	}
	return exactlyOne("evm action", a.Call != nil, a.Sign != nil, a.Transaction != nil, a.Deploy != nil, a.Transfer != nil)
}

// IsMutating reports actions that need a signature from the wallet. A
// contract call is mutating when the called function is, which is known only
// once its ABI is resolved.
func (a EvmAction) IsMutating() bool {
	return a.Call == nil
}

type EvmActionCall struct {
	Contract link.InputValue `json:"contract"`
	API      EvmCallAPI      `json:"api"`
	Arg      *CallArg        `json:"arg,omitempty"`
	Ret      *CallRet        `json:"ret,omitempty"`
}

type EvmActionTransaction struct {
	Contract link.InputValue  `json:"contract"`
	PayValue *link.InputValue `json:"pay_value,omitempty"`
	GasLimit *link.InputValue `json:"gas_limit,omitempty"`
	GasPrice *link.InputValue `json:"gas_price,omitempty"`
	Nonce    *link.InputValue `json:"nonce,omitempty"`
	API      EvmCallAPI       `json:"api"`
	Arg      *CallArg         `json:"arg,omitempty"`
}

type EvmActionDeploy struct {
	GasLimit *link.InputValue `json:"gas_limit,omitempty"`
	GasPrice *link.InputValue `json:"gas_price,omitempty"`
	Nonce    *link.InputValue `json:"nonce,omitempty"`
	Abi      link.InputValue  `json:"abi"`
	Bytecode link.InputValue  `json:"bytecode"`
	Initial  *CallArg         `json:"initial,omitempty"`
}

type EvmActionTransfer struct {
	TransferTo link.InputValue  `json:"transfer_to"`
	PayValue   link.InputValue  `json:"pay_value"`
	GasPrice   *link.InputValue `json:"gas_price,omitempty"`
	Nonce      *link.InputValue `json:"nonce,omitempty"`
}

// EvmCallAPI is the called ABI entry, inline or behind an anchor.
type EvmCallAPI struct {
	API    *store.EvmAPI `json:"api,omitempty"`
	Anchor *anchor.API   `json:"anchor,omitempty"`
}

func (a *EvmCallAPI) UnmarshalJSON(data []byte) error {
	type plain EvmCallAPI
	if err := json.Unmarshal(data, (*plain)(a)); err != nil {
		return err
	}
	return exactlyOne("evm api", a.API != nil, a.Anchor != nil)
}

var deployOutput = link.ObjectOf(link.F("tx", link.Text()), link.F("address", link.Text()))

func (c *CallEvm) check(ctx *Context, endpoints *AllEndpoints, output link.Type, from link.ComponentID) error {
	if err := c.Trigger.check(endpoints, from); err != nil {
		return err
	}
	if c.Identity != nil {
		identity, err := checkIdentity(endpoints, *c.Identity, from, func(m IdentityInner) bool {
			return m.Evm != nil
		}, "identity component is not evm")
		if err != nil {
			return err
		}
		if identity.Metadata.Metadata.Evm.Chain != c.Chain {
			return link.Common(link.KindInvalidCallIdentity, from, "chain mismatch")
		}
	}
	ctx.trigger(from, callTriggered(c.Identity, c.Trigger.Click != nil, c.Action.IsMutating()))

	switch a := c.Action; {
	case a.Call != nil:
		return a.Call.check(ctx, endpoints, output, from)
	case a.Sign != nil:
		if err := endpoints.CheckTextInput(*a.Sign, from, notBlank, InputRule{
			Kind:     link.KindInvalidCallEvmActionSign,
			Invalid:  "wrong message",
			NotConst: "wrong message value",
			NotType:  "wrong message type",
		}); err != nil {
			return err
		}
		if !output.Equal(link.Text()) {
			return link.Common(link.KindInvalidCallEvmActionSign, from, "output must be text for sign action")
		}
		return nil
	case a.Transaction != nil:
		return a.Transaction.check(ctx, endpoints, output, from)
	case a.Deploy != nil:
		return a.Deploy.check(ctx, endpoints, output, from)
	case a.Transfer != nil:
		return a.Transfer.check(endpoints, output, from)
	}
	return link.SystemError("evm call %d has no action", from)
}

func (call *EvmActionCall) check(ctx *Context, endpoints *AllEndpoints, output link.Type, from link.ComponentID) error {
	if err := checkContract(endpoints, call.Contract, from); err != nil {
		return err
	}
	fn, err := call.API.function(ctx.Fetch, from)
	if err != nil {
		return err
	}
	if t, ok := ctx.Triggers[from]; ok && fn.StateMutability.IsMutating() {
		t.Mutating = true
	}
	apiData, err := abiTypeScript(fn.Inputs, from)
	if err != nil {
		return err
	}
	apiOutput, err := abiTypeScript(fn.Outputs, from)
	if err != nil {
		return err
	}
	if err := call.API.tryIntoAnchor(ctx); err != nil {
		return err
	}
	dataOfArgs, err := checkEvmArg(ctx, endpoints, call.Arg, len(fn.Inputs), apiData, from)
	if err != nil {
		return err
	}

	if call.Ret == nil {
		switch len(fn.Outputs) {
		case 0:
			if !output.IsArray() {
				return link.Common(link.KindInvalidCallEvmActionRet, from, "output must be array")
			}
		case 1:
			ts, err := fn.Outputs[0].TypeScript()
			if err != nil {
				return link.Common(link.KindInvalidCallEvmActionAPI, from, "%s", err)
			}
			if ts != output.TypeScript() {
				return link.Common(link.KindInvalidCallEvmActionRet, from, "output type mismatch")
			}
		default:
			return link.Common(link.KindInvalidCallEvmActionRet, from, "output type mismatch")
		}
		return nil
	}
	if call.Ret.Code != nil {
		args := []link.ArgCodeType{
			link.Arg("data", apiOutput),
			link.Arg("args", apiData),
			link.Arg("data_of_args", dataOfArgs),
		}
		ret := typescript.New(output.TypeScript())
		code, err := call.Ret.Code.TryIntoAnchor(ctx, from, 1, "Evm call action -> ret", args, &ret)
		if err != nil {
			return err
		}
		call.Ret.Code = &code
	}
	return nil
}

func (t *EvmActionTransaction) check(ctx *Context, endpoints *AllEndpoints, output link.Type, from link.ComponentID) error {
	if err := checkContract(endpoints, t.Contract, from); err != nil {
		return err
	}
	if err := checkOptional(endpoints, t.PayValue, from, checkPayValue); err != nil {
		return err
	}
	if err := checkOptional(endpoints, t.GasLimit, from, checkGasLimit); err != nil {
		return err
	}
	if err := checkOptional(endpoints, t.GasPrice, from, checkGasPrice); err != nil {
		return err
	}
	if err := checkOptional(endpoints, t.Nonce, from, checkNonce); err != nil {
		return err
	}
	fn, err := t.API.function(ctx.Fetch, from)
	if err != nil {
		return err
	}
	apiData, err := abiTypeScript(fn.Inputs, from)
	if err != nil {
		return err
	}
	if err := t.API.tryIntoAnchor(ctx); err != nil {
		return err
	}
	switch *fn.StateMutability {
	case abi.Pure, abi.View:
		return link.Common(link.KindInvalidCallEvmActionAPI, from, "api of transaction action can not be pure or view")
	case abi.Nonpayable:
		if t.PayValue != nil {
			return link.Common(link.KindInvalidCallEvmActionPayValue, from, "nonpayable function should not pay")
		}
	}
	if _, err := checkEvmArg(ctx, endpoints, t.Arg, len(fn.Inputs), apiData, from); err != nil {
		return err
	}
	if !output.Equal(link.Text()) {
		return link.Common(link.KindInvalidCallEvmActionOutput, from, "output must be text for transaction")
	}
	return nil
}

func (d *EvmActionDeploy) check(ctx *Context, endpoints *AllEndpoints, output link.Type, from link.ComponentID) error {
	if err := checkOptional(endpoints, d.GasLimit, from, checkGasLimit); err != nil {
		return err
	}
	if err := checkOptional(endpoints, d.GasPrice, from, checkGasPrice); err != nil {
		return err
	}
	if err := checkOptional(endpoints, d.Nonce, from, checkNonce); err != nil {
		return err
	}
	if err := endpoints.CheckTextInput(d.Abi, from, func(text string) bool {
		_, err := abi.ParseItems(text)
		return err == nil
	}, InputRule{
		Kind:     link.KindInvalidCallEvmActionAbi,
		Invalid:  "wrong abi",
		NotConst: "wrong abi value",
		NotType:  "wrong abi type",
	}); err != nil {
		return err
	}
	if err := endpoints.CheckTextInput(d.Bytecode, from, link.IsValidHexText, InputRule{
		Kind:     link.KindInvalidCallEvmActionBytecode,
		Invalid:  "wrong bytecode",
		NotConst: "wrong bytecode value",
		NotType:  "wrong bytecode type",
	}); err != nil {
		return err
	}
	if d.Initial != nil && d.Initial.Code != nil {
		data, err := endpoints.CheckCodeValues(d.Initial.Code.Data, from)
		if err != nil {
			return err
		}
		args := []link.ArgCodeType{link.Arg("data", typescript.New(data.TypeScript()))}
		ret := typescript.New("any[]")
		code, err := d.Initial.Code.Code.TryIntoAnchor(ctx, from, 0, "Evm deploy action -> initial", args, &ret)
		if err != nil {
			return err
		}
		d.Initial.Code.Code = code
	}
	if !output.Equal(deployOutput) {
		return link.Common(link.KindInvalidCallEvmActionOutput, from, "output must be { tx: string, address: string } for deploying")
	}
	return nil
}

func (t *EvmActionTransfer) check(endpoints *AllEndpoints, output link.Type, from link.ComponentID) error {
	if err := endpoints.CheckTextInput(t.TransferTo, from, link.IsValidEvmAddress, InputRule{
		Kind:     link.KindInvalidCallEvmActionTransferTo,
		Invalid:  "wrong transfer to address",
		NotConst: "wrong transfer to address value",
		NotType:  "wrong transfer to address type",
	}); err != nil {
		return err
	}
	if err := checkPayValue(endpoints, t.PayValue, from); err != nil {
		return err
	}
	if err := checkOptional(endpoints, t.GasPrice, from, checkGasPrice); err != nil {
		return err
	}
	if err := checkOptional(endpoints, t.Nonce, from, checkNonce); err != nil {
		return err
	}
	if !output.Equal(link.Text()) {
		return link.Common(link.KindInvalidCallEvmActionOutput, from, "output must be text for transaction")
	}
	return nil
}

// checkEvmArg checks the argument snippet against the function inputs and
// returns the type of the data it receives.
func checkEvmArg(ctx *Context, endpoints *AllEndpoints, arg *CallArg, inputs int, apiData typescript.Type, from link.ComponentID) (typescript.Type, error) {
	if inputs == 0 && arg != nil {
		return typescript.Type{}, link.Common(link.KindInvalidCallEvmActionArg, from, "arg must be none for empty args")
	}
	if inputs > 0 && arg == nil {
		return typescript.Type{}, link.Common(link.KindInvalidCallEvmActionArg, from, "arg is missing")
	}
	if arg == nil || arg.Code == nil {
		return typescript.Undefined, nil
	}
	data, err := endpoints.CheckCodeValues(arg.Code.Data, from)
	if err != nil {
		return typescript.Type{}, err
	}
	dataOfArgs := typescript.New(data.TypeScript())
	args := []link.ArgCodeType{link.Arg("data", dataOfArgs)}
	code, err := arg.Code.Code.TryIntoAnchor(ctx, from, 0, "Evm call action -> arg", args, &apiData)
	if err != nil {
		return typescript.Type{}, err
	}
	arg.Code.Code = code
	return dataOfArgs, nil
}

// function resolves and validates the called ABI entry.
func (a EvmCallAPI) function(fetch CheckFunction, from link.ComponentID) (*abi.Item, error) {
	api := a.API
	if a.Anchor != nil {
		data, err := fetch.FetchAPI(*a.Anchor)
		if err != nil {
			return nil, link.SystemError("fetch api failed: %s", err)
		}
		if data.Content.Evm == nil {
			return nil, link.SystemError("fetch evm api failed")
		}
		api = data.Content.Evm
	}
	var item *abi.Item
	switch {
	case api == nil:
		return nil, link.SystemError("evm api of component %d is empty", from)
	case api.Single != nil:
		parsed, err := abi.ParseItem(api.Single.API)
		if err != nil {
			return nil, link.Common(link.KindInvalidCallEvmActionAPI, from, "parse abi api failed")
		}
		item = parsed
	case api.Origin != nil:
		text, err := fetch.FetchOriginAPI(api.Origin.Abi)
		if err != nil {
			return nil, link.SystemError("fetch origin api failed: %s", err)
		}
		items, err := abi.ParseItems(text)
		if err != nil {
			return nil, link.Common(link.KindInvalidCallEvmActionAPI, from, "parse abi failed: %s", err)
		}
		selected, err := abi.Select(items, api.Origin.Name, api.Origin.Index)
		if err != nil {
			return nil, link.Common(link.KindInvalidCallEvmActionAPI, from, "%s", err)
		}
		item = selected
	default:
		return nil, link.SystemError("evm api of component %d is empty", from)
	}
	if _, err := item.Function(); err != nil {
		return nil, link.Common(link.KindInvalidCallEvmActionAPI, from, "%s", err)
	}
	return item, nil
}

func (a *EvmCallAPI) tryIntoAnchor(ctx *Context) error {
	if a.API == nil {
		return nil
	}
	restored, err := a.API.Restore(ctx.Fetch)
	if err != nil {
		return link.SystemError("fetch origin api failed: %s", err)
	}
	stored, err := ctx.storeAPI(store.APIContent{Evm: &restored}, restored.ShouldIntoAnchor(), restored.Hash)
	if err != nil {
		return err
	}
	if stored != nil {
		a.API, a.Anchor = nil, stored
	}
	return nil
}

func (a EvmCallAPI) apiAnchors() []anchor.API {
	if a.Anchor == nil {
		return nil
	}
	return []anchor.API{*a.Anchor}
}

func abiTypeScript(params []abi.Param, from link.ComponentID) (typescript.Type, error) {
	ts, err := abi.ParamsToTypeScript(params)
	if err != nil {
		return typescript.Type{}, link.Common(link.KindInvalidCallEvmActionAPI, from, "%s", err)
	}
	return ts, nil
}

func checkContract(endpoints *AllEndpoints, value link.InputValue, from link.ComponentID) error {
	return endpoints.CheckTextInput(value, from, link.IsValidEvmAddress, InputRule{
		Kind:     link.KindInvalidCallEvmActionContract,
		Invalid:  "wrong contract address",
		NotConst: "wrong contract address value",
		NotType:  "wrong contract address type",
	})
}

func checkOptional(endpoints *AllEndpoints, value *link.InputValue, from link.ComponentID, check func(*AllEndpoints, link.InputValue, link.ComponentID) error) error {
	if value == nil {
		return nil
	}
	return check(endpoints, *value, from)
}

func checkPayValue(endpoints *AllEndpoints, value link.InputValue, from link.ComponentID) error {
	return endpoints.CheckTextInput(value, from, func(text string) bool {
		_, ok := evmValueExp(text, 18)
		return ok
	}, InputRule{
		Kind:     link.KindInvalidCallEvmActionPayValue,
		Invalid:  "wrong pay value",
		NotConst: "wrong pay value value",
		NotType:  "wrong pay value type",
	})
}

func checkGasPrice(endpoints *AllEndpoints, value link.InputValue, from link.ComponentID) error {
	return endpoints.CheckTextInput(value, from, func(text string) bool {
		_, ok := evmValueExp(text, 9)
		return ok
	}, InputRule{
		Kind:     link.KindInvalidCallEvmActionGasPrice,
		Invalid:  "wrong gas price",
		NotConst: "wrong gas price value",
		NotType:  "wrong gas price type",
	})
}

func checkGasLimit(endpoints *AllEndpoints, value link.InputValue, from link.ComponentID) error {
	return endpoints.CheckIntegerInput(value, from, func(n int64) bool { return n > 0 }, InputRule{
		Kind:     link.KindInvalidCallEvmActionGasLimit,
		Invalid:  "wrong gas limit",
		NotConst: "wrong gas limit value",
		NotType:  "wrong gas limit type",
	})
}

func checkNonce(endpoints *AllEndpoints, value link.InputValue, from link.ComponentID) error {
	return endpoints.CheckIntegerInput(value, from, func(n int64) bool { return n >= 0 }, InputRule{
		Kind:     link.KindInvalidCallEvmActionNonce,
		Invalid:  "wrong nonce",
		NotConst: "wrong nonce value",
		NotType:  "wrong nonce type",
	})
}

// maxEvmValue is the largest amount accepted, 2^128-1 in base units.
var maxEvmValue = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// evmValueExp converts a decimal amount into base units with exp decimals,
// "1.5" with exp 18 being "1500000000000000000". Zero, negative and
// malformed amounts are rejected.
func evmValueExp(value string, exp int) (string, bool) {
	whole, frac, found := strings.Cut(value, ".")
	if strings.Contains(frac, ".") || len(frac) > exp {
		return "", false
	}
	if !found {
		frac = ""
	}
	digits := strings.TrimLeft(whole+frac+strings.Repeat("0", exp-len(frac)), "0")
	if digits == "" {
		return "", false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok || n.Cmp(maxEvmValue) > 0 {
		return "", false
	}
	return digits, true
}

func (c *CallEvm) codeAnchors() []anchor.Code {
	var out []anchor.Code
	add := func(arg *CallArg) {
		if arg != nil && arg.Code != nil {
			out = append(out, arg.Code.Code.codeAnchors()...)
		}
	}
	switch a := c.Action; {
	case a.Call != nil:
		add(a.Call.Arg)
		if a.Call.Ret != nil && a.Call.Ret.Code != nil {
			out = append(out, a.Call.Ret.Code.codeAnchors()...)
		}
	case a.Transaction != nil:
		add(a.Transaction.Arg)
	case a.Deploy != nil:
		add(a.Deploy.Initial)
	}
	return out
}

func (c *CallEvm) apiAnchors() []anchor.API {
	switch a := c.Action; {
	case a.Call != nil:
		return a.Call.API.apiAnchors()
	case a.Transaction != nil:
		return a.Transaction.API.apiAnchors()
	}
	return nil
}

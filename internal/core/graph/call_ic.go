package graph

import (
	"errors"

	"github.com/goccy/go-json"

	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/internal/core/link"
	"github.com/easydapp/jelly-packages/internal/core/store"
	"github.com/easydapp/jelly-packages/pkg/candid"
	"github.com/easydapp/jelly-packages/pkg/principal"
	"github.com/easydapp/jelly-packages/pkg/typescript"
)

type CallIC struct {
	Trigger  CallTrigger       `json:"trigger"`
	Identity *link.ComponentID `json:"identity,omitempty"`
	Action   IcAction          `json:"action"`
}

// IcAction has a single variant today.
type IcAction struct {
	Call *IcActionCall `json:"call,omitempty"`
}

func (a *IcAction) UnmarshalJSON(data []byte) error {
	type plain IcAction
	if err := json.Unmarshal(data, (*plain)(a)); err != nil {
		return err
	}
	return exactlyOne("ic action", a.Call != nil)
}

type IcActionCall struct {
	CanisterID link.InputValue `json:"canister_id"`
	Info       *CanisterInfo   `json:"info,omitempty"`
	API        IcCallAPI       `json:"api"`
	Arg        *CallArg        `json:"arg,omitempty"`
	Ret        *CallRet        `json:"ret,omitempty"`
}

// CanisterInfo is what the editor saw of the canister when the call was
// configured.
type CanisterInfo struct {
	ModuleHash string `json:"module_hash"`
	Updated    int64  `json:"updated"`
}

// IcCallAPI is the method signature, inline or behind an anchor.
type IcCallAPI struct {
	API    *store.IcAPI `json:"api,omitempty"`
	Anchor *anchor.API  `json:"anchor,omitempty"`
}

func (a *IcCallAPI) UnmarshalJSON(data []byte) error {
	type plain IcCallAPI
	if err := json.Unmarshal(data, (*plain)(a)); err != nil {
		return err
	}
	return exactlyOne("ic api", a.API != nil, a.Anchor != nil)
}

// CallArg builds the call arguments with a snippet.
type CallArg struct {
	Code *ArgCode `json:"code,omitempty"`
}

func (a *CallArg) UnmarshalJSON(data []byte) error {
	type plain CallArg
	if err := json.Unmarshal(data, (*plain)(a)); err != nil {
		return err
	}
	return exactlyOne("call arg", a.Code != nil)
}

type ArgCode struct {
	Data []link.CodeValue `json:"data,omitempty"`
	Code CodeContent      `json:"code"`
}

// CallRet maps the call result with a snippet.
type CallRet struct {
	Code *CodeContent `json:"code,omitempty"`
}

func (r *CallRet) UnmarshalJSON(data []byte) error {
	type plain CallRet
	if err := json.Unmarshal(data, (*plain)(r)); err != nil {
		return err
	}
	return exactlyOne("call ret", r.Code != nil)
}

func (c *CallIC) check(ctx *Context, endpoints *AllEndpoints, output link.Type, from link.ComponentID) error {
	if err := c.Trigger.check(endpoints, from); err != nil {
		return err
	}
	if c.Identity != nil {
		if _, err := checkIdentity(endpoints, *c.Identity, from, func(m IdentityInner) bool {
			return m.IC != nil
		}, "identity component is not ic"); err != nil {
			return err
		}
	}
	if c.Action.Call == nil {
		return link.SystemError("ic call %d has no action", from)
	}
	return c.Action.Call.check(ctx, endpoints, c, output, from)
}

func (call *IcActionCall) check(ctx *Context, endpoints *AllEndpoints, c *CallIC, output link.Type, from link.ComponentID) error {
	if err := endpoints.CheckTextInput(call.CanisterID, from, principal.IsValid, InputRule{
		Kind:     link.KindInvalidCallIcCanisterID,
		Invalid:  "wrong canister id",
		NotConst: "wrong canister id value",
		NotType:  "wrong canister id type",
	}); err != nil {
		return err
	}

	fn, err := call.API.function(ctx.Fetch, from)
	if err != nil {
		return err
	}
	apiData, err := candidTypeScript(fn.Args, from)
	if err != nil {
		return err
	}
	apiOutput, err := candidTypeScript(fn.Rets, from)
	if err != nil {
		return err
	}
	if err := call.API.tryIntoAnchor(ctx); err != nil {
		return err
	}
	ctx.trigger(from, callTriggered(c.Identity, c.Trigger.Click != nil, !fn.IsQuery()))

	shape, allOpt := candid.ShapeOf(fn.Args)
	switch {
	case shape == candid.ArgsNone && call.Arg != nil:
		return link.Common(link.KindInvalidCallIcAPIArg, from, "arg must be none for empty args")
	case shape != candid.ArgsNone && !allOpt && call.Arg == nil:
		return link.Common(link.KindInvalidCallIcAPIArg, from, "arg is missing")
	}
	dataOfArgs := typescript.Undefined
	if call.Arg != nil && call.Arg.Code != nil {
		data, err := endpoints.CheckCodeValues(call.Arg.Code.Data, from)
		if err != nil {
			return err
		}
		dataOfArgs = typescript.New(data.TypeScript())
		args := []link.ArgCodeType{link.Arg("data", dataOfArgs)}
		code, err := call.Arg.Code.Code.TryIntoAnchor(ctx, from, 0, "Ic call action -> arg", args, &apiData)
		if err != nil {
			return err
		}
		call.Arg.Code.Code = code
	}

	if call.Ret == nil {
		switch len(fn.Rets) {
		case 0:
			if !output.IsArray() {
				return link.Common(link.KindInvalidCallIcAPIRet, from, "output must be array")
			}
		case 1:
			ts, err := candidTypeScript(fn.Rets, from)
			if err != nil {
				return err
			}
			if !ts.IsSame(output.TypeScript()) {
				return link.Common(link.KindInvalidCallIcAPIRet, from, "output type mismatch")
			}
		default:
			return link.Common(link.KindInvalidCallIcAPIRet, from, "output type mismatch")
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
		code, err := call.Ret.Code.TryIntoAnchor(ctx, from, 1, "Ic call action -> ret", args, &ret)
		if err != nil {
			return err
		}
		call.Ret.Code = &code
	}
	return nil
}

// function resolves the called method signature.
func (a IcCallAPI) function(fetch CheckFunction, from link.ComponentID) (*candid.Func, error) {
	api := a.API
	if a.Anchor != nil {
		data, err := fetch.FetchAPI(*a.Anchor)
		if err != nil {
			return nil, link.SystemError("fetch api failed: %s", err)
		}
		if data.Content.IC == nil {
			return nil, link.SystemError("fetch ic api failed")
		}
		api = data.Content.IC
	}
	if api == nil {
		return nil, link.SystemError("ic api of component %d is empty", from)
	}
	var source, method string
	switch {
	case api.Single != nil:
		source = candid.SingleAPI(api.Single.API)
	case api.Origin != nil:
		text, err := fetch.FetchOriginAPI(api.Origin.Candid)
		if err != nil {
			return nil, link.SystemError("fetch origin api failed: %s", err)
		}
		source, method = text, api.Origin.Method
	default:
		return nil, link.SystemError("ic api of component %d is empty", from)
	}
	fn, err := candid.SelectMethod(source, method)
	if err != nil {
		return nil, &link.Error{Kind: link.KindCompileCallIcCandid, From: from, Candid: source, Message: err.Error()}
	}
	return fn, nil
}

// tryIntoAnchor moves a large inline API into ctx.APIs. The restored text
// is only kept when it is anchored.
func (a *IcCallAPI) tryIntoAnchor(ctx *Context) error {
	if a.API == nil {
		return nil
	}
	restored, err := a.API.Restore(ctx.Fetch)
	if err != nil {
		return link.SystemError("fetch origin api failed: %s", err)
	}
	stored, err := ctx.storeAPI(store.APIContent{IC: &restored}, restored.ShouldIntoAnchor(), restored.Hash)
	if err != nil {
		return err
	}
	if stored != nil {
		a.API, a.Anchor = nil, stored
	}
	return nil
}

func (a IcCallAPI) apiAnchors() []anchor.API {
	if a.Anchor == nil {
		return nil
	}
	return []anchor.API{*a.Anchor}
}

func candidTypeScript(items []*candid.Type, from link.ComponentID) (typescript.Type, error) {
	ts, err := candid.TypesToTypeScript(items)
	if err == nil {
		return ts, nil
	}
	var unsupported *candid.UnsupportedError
	if errors.As(err, &unsupported) {
		return typescript.Type{}, &link.Error{Kind: link.KindCompileCallIcCandidTypeUnsupported, From: from, Ty: unsupported.Type}
	}
	return typescript.Type{}, &link.Error{Kind: link.KindCompileCallIcCandid, From: from, Message: err.Error()}
}

func (c *CallIC) codeAnchors() []anchor.Code {
	call := c.Action.Call
	if call == nil {
		return nil
	}
	var out []anchor.Code
	if call.Arg != nil && call.Arg.Code != nil {
		out = append(out, call.Arg.Code.Code.codeAnchors()...)
	}
	if call.Ret != nil && call.Ret.Code != nil {
		out = append(out, call.Ret.Code.codeAnchors()...)
	}
	return out
}

func (c *CallIC) apiAnchors() []anchor.API {
	if c.Action.Call == nil {
		return nil
	}
	return c.Action.Call.API.apiAnchors()
}

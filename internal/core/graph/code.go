package graph

import (
	"github.com/goccy/go-json"

	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/internal/core/link"
	"github.com/easydapp/jelly-packages/internal/core/store"
	"github.com/easydapp/jelly-packages/pkg/sandbox"
	"github.com/easydapp/jelly-packages/pkg/typescript"
)

// InlineCode is a snippet kept in the graph together with its compiled
// output.
type InlineCode struct {
	Code link.CodeItem `json:"code"`
	JS   string        `json:"js"`
}

// CodeContent is a snippet either inline or moved out behind an anchor.
type CodeContent struct {
	Code   *InlineCode  `json:"code,omitempty"`
	Anchor *anchor.Code `json:"anchor,omitempty"`
}

func (c *CodeContent) UnmarshalJSON(data []byte) error {
	type plain CodeContent
	if err := json.Unmarshal(data, (*plain)(c)); err != nil {
		return err
	}
	return exactlyOne("code content", c.Code != nil, c.Anchor != nil)
}

// InlineSource returns the snippet source of inline content.
func (c CodeContent) InlineSource() (string, bool) {
	if c.Code == nil {
		return "", false
	}
	return c.Code.Code.Code, true
}

func (c CodeContent) codeAnchors() []anchor.Code {
	if c.Anchor == nil {
		return nil
	}
	return []anchor.Code{*c.Anchor}
}

// TryIntoAnchor types inline content with args and ret and compiles it.
// Items too large to stay inline move into ctx.Codes and are replaced by
// their anchor. Anchored content is returned unchanged. index and mark
// address the snippet within component from.
func (c CodeContent) TryIntoAnchor(ctx *Context, from link.ComponentID, index uint32, mark string, args []link.ArgCodeType, ret *typescript.Type) (CodeContent, error) {
	source, ok := c.InlineSource()
	if !ok {
		return c, nil
	}
	item := link.CodeItem{Code: source, Args: args, Ret: ret}
	if ctx.collect {
		ctx.origins = append(ctx.origins, OriginCode{From: from, Index: index, Mark: mark, Code: item})
		return c, nil
	}

	compiled, err := ctx.Fetch.CompileCode(item)
	if err != nil {
		return CodeContent{}, &link.Error{Kind: link.KindWrongCode, From: from, Code: &item, Message: err.Error()}
	}
	if !item.ShouldIntoAnchor() {
		return CodeContent{Code: &InlineCode{Code: item, JS: compiled}}, nil
	}

	tenant, err := ctx.Tenant()
	if err != nil {
		return CodeContent{}, err
	}
	hash, err := item.Hash(compiled)
	if err != nil {
		return CodeContent{}, link.SystemError("%s", err)
	}
	a := anchor.NewCode(tenant, hash)
	ctx.Codes[a] = &store.CodeData{Anchor: a, Code: item, JS: compiled}
	return CodeContent{Anchor: &a}, nil
}

// Validate runs a validation snippet against value. It is a no-op without a
// sandbox.
func (c CodeContent) Validate(ctx *Context, from link.ComponentID, value link.Value) error {
	if ctx.Sandbox == nil || ctx.collect {
		return nil
	}
	var item link.CodeItem
	var js string
	switch {
	case c.Code != nil:
		item, js = c.Code.Code, c.Code.JS
	case c.Anchor != nil:
		data, err := ctx.Fetch.FetchCode(*c.Anchor)
		if err != nil {
			return link.SystemError("%s", err)
		}
		item, js = data.Code, data.JS
	default:
		return nil
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return link.SystemError("%s", err)
	}
	failed := func(message string) error {
		return &link.Error{Kind: link.KindValidateCodeFailed, From: from, Code: &item, JS: js, Value: &value, Message: message}
	}
	result, err := ctx.Sandbox.ExecuteValidateCode(js, string(encoded))
	if err != nil {
		return failed(err.Error())
	}
	if _, passed := sandbox.ValidateResult(result); !passed {
		return failed("validate failed: " + result)
	}
	return nil
}

// errorMessageType is the return type of validation snippets: the empty
// string passes, anything else is shown to the user.
var errorMessageType = typescript.WithTypes("ErrorMessage", []string{"type ErrorMessage = string; // pass if return ''"})

// ValidateForm is a validation snippet attached to a form-like input.
type ValidateForm struct {
	Code CodeContent `json:"code"`
}

func (v ValidateForm) check(ctx *Context, from link.ComponentID, index uint32, mark string, output link.Type) (ValidateForm, error) {
	ret := errorMessageType
	args := []link.ArgCodeType{link.Arg("data", typescript.New(output.TypeScript()))}
	code, err := v.Code.TryIntoAnchor(ctx, from, index, mark, args, &ret)
	if err != nil {
		return ValidateForm{}, err
	}
	return ValidateForm{Code: code}, nil
}

// checkValidate checks an optional validation snippet in place.
func checkValidate(ctx *Context, v **ValidateForm, from link.ComponentID, index uint32, mark string, output link.Type) error {
	if *v == nil {
		return nil
	}
	checked, err := (*v).check(ctx, from, index, mark, output)
	if err != nil {
		return err
	}
	*v = &checked
	return nil
}

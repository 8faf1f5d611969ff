package graph

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/internal/core/link"
	"github.com/easydapp/jelly-packages/pkg/typescript"
)

type CallHTTP struct {
	Trigger  CallTrigger       `json:"trigger"`
	Identity *link.ComponentID `json:"identity,omitempty"`
	URL      link.InputValue   `json:"url"`
	Method   HTTPMethod        `json:"method"`
	Headers  []link.NamedValue `json:"headers,omitempty"`
	Body     *HTTPBody         `json:"body,omitempty"`
	Parsed   ParsedWay         `json:"parsed"`
	Post     *CodeContent      `json:"post,omitempty"`
}

type HTTPMethod string

const (
	MethodGet    HTTPMethod = "GET"
	MethodPost   HTTPMethod = "POST"
	MethodPut    HTTPMethod = "PUT"
	MethodDelete HTTPMethod = "DELETE"
)

func (m *HTTPMethod) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch HTTPMethod(s) {
	case MethodGet, MethodPost, MethodPut, MethodDelete:
		*m = HTTPMethod(s)
		return nil
	}
	return fmt.Errorf("invalid http method: %q", s)
}

// IsMutating reports methods that change remote state.
func (m HTTPMethod) IsMutating() bool {
	return m == MethodPost || m == MethodPut || m == MethodDelete
}

// ParsedWay is how the response body is decoded.
type ParsedWay string

const (
	ParsedBlob ParsedWay = "blob"
	ParsedJSON ParsedWay = "json"
	ParsedText ParsedWay = "text"
)

func (p *ParsedWay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch ParsedWay(s) {
	case ParsedBlob, ParsedJSON, ParsedText:
		*p = ParsedWay(s)
		return nil
	}
	return fmt.Errorf("invalid http parsed way: %q", s)
}

func (p ParsedWay) typeScript() typescript.Type {
	switch p {
	case ParsedBlob:
		return typescript.New("number[]")
	case ParsedText:
		return typescript.New("string")
	}
	return typescript.Any
}

// HTTPBody is the request body, plain named values or a snippet. Exactly one
// member is set.
type HTTPBody struct {
	Plain *HTTPBodyPlain `json:"plain,omitempty"`
	Code  *HTTPBodyCode  `json:"code,omitempty"`
}

func (b *HTTPBody) UnmarshalJSON(data []byte) error {
	type plain HTTPBody
	if err := json.Unmarshal(data, (*plain)(b)); err != nil {
		return err
	}
	return exactlyOne("http body", b.Plain != nil, b.Code != nil)
}

type HTTPBodyPlain struct {
	Data []link.NamedValue `json:"data,omitempty"`
}

type HTTPBodyCode struct {
	Data []link.CodeValue `json:"data,omitempty"`
	Code CodeContent      `json:"code"`
}

func (h *CallHTTP) check(ctx *Context, endpoints *AllEndpoints, output link.Type, from link.ComponentID) error {
	if err := h.Trigger.check(endpoints, from); err != nil {
		return err
	}
	if h.Identity != nil {
		if _, err := checkIdentity(endpoints, *h.Identity, from, func(m IdentityInner) bool {
			return m.HTTP != nil
		}, "identity component is not http"); err != nil {
			return err
		}
	}
	if err := endpoints.CheckTextInput(h.URL, from, func(url string) bool {
		return strings.HasPrefix(url, "https://")
	}, InputRule{
		Kind:     link.KindInvalidCallHTTPURL,
		Invalid:  "wrong constant url",
		NotConst: "wrong constant url value",
		NotType:  "wrong url type",
	}); err != nil {
		return err
	}
	ctx.trigger(from, callTriggered(h.Identity, h.Trigger.Click != nil, h.Method.IsMutating()))

	if len(h.Headers) > 0 {
		text := link.Text()
		if _, err := endpoints.CheckNamedValues(h.Headers, from, &text); err != nil {
			return err
		}
	}

	dataOfRequestBody := typescript.Undefined
	requestBody := typescript.Undefined
	if h.Body != nil {
		switch {
		case h.Body.Plain != nil:
			data, err := endpoints.CheckNamedValues(h.Body.Plain.Data, from, nil)
			if err != nil {
				return err
			}
			requestBody = typescript.New(data.TypeScript())
		case h.Body.Code != nil:
			data, err := endpoints.CheckCodeValues(h.Body.Code.Data, from)
			if err != nil {
				return err
			}
			dataOfRequestBody = typescript.New(data.TypeScript())
			requestBody = typescript.Any
			args := []link.ArgCodeType{link.Arg("data", dataOfRequestBody)}
			code, err := h.Body.Code.Code.TryIntoAnchor(ctx, from, 0, "Http -> body", args, nil)
			if err != nil {
				return err
			}
			h.Body.Code.Code = code
		}
	}

	if h.Post != nil {
		requestHeaders := typescript.Undefined
		if len(h.Headers) > 0 {
			requestHeaders = typescript.New("[string, string][]")
		}
		args := []link.ArgCodeType{
			link.Arg("data", h.Parsed.typeScript()),
			link.Arg("response_headers", typescript.New("[string, string][]")),
			link.Arg("request_url", typescript.New("string")),
			link.Arg("request_method", typescript.New("('GET' | 'POST' | 'PUT' | 'DELETE')")),
			link.Arg("request_headers", requestHeaders),
			link.Arg("request_body", requestBody),
			link.Arg("data_of_request_body", dataOfRequestBody),
		}
		ret := typescript.New(output.TypeScript())
		code, err := h.Post.TryIntoAnchor(ctx, from, 1, "Http -> post", args, &ret)
		if err != nil {
			return err
		}
		h.Post = &code
		return nil
	}

	switch h.Parsed {
	case ParsedBlob:
		if !output.IsBlob() {
			return link.Common(link.KindInvalidCallOutputType, from, "output type must be blob")
		}
	case ParsedText:
		if !output.IsText() {
			return link.Common(link.KindInvalidCallOutputType, from, "output type must be text")
		}
	}
	return nil
}

func (h *CallHTTP) codeAnchors() []anchor.Code {
	var out []anchor.Code
	if h.Body != nil && h.Body.Code != nil {
		out = append(out, h.Body.Code.Code.codeAnchors()...)
	}
	if h.Post != nil {
		out = append(out, h.Post.codeAnchors()...)
	}
	return out
}

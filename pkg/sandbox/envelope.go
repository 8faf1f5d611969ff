package sandbox

import (
	"bytes"
	"errors"
	"math/big"

	"github.com/goccy/go-json"

	"github.com/easydapp/jelly-packages/pkg/principal"
)

// OpenTypeKey marks an enveloped value.
const OpenTypeKey = "__open_type__"

const (
	openBigint    = "bigint"
	openBytes     = "Uint8Array"
	openPrincipal = "Principal"
)

var ErrInvalidEnvelope = errors.New("invalid open type envelope")

type envelope struct {
	Type  string `json:"__open_type__"`
	Value any    `json:"value"`
}

// Wrap replaces big integers, byte slices and principals inside v by their
// envelopes. Maps and slices are copied.
func Wrap(v any) any {
	switch x := v.(type) {
	case *big.Int:
		return envelope{Type: openBigint, Value: x.String()}
	case []byte:
		values := make([]int, len(x))
		for i, b := range x {
			values[i] = int(b)
		}
		return envelope{Type: openBytes, Value: values}
	case principal.Principal:
		return envelope{Type: openPrincipal, Value: x.Text()}
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = Wrap(item)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = Wrap(item)
		}
		return out
	}
	return v
}

// Marshal wraps v and encodes it as JSON.
func Marshal(v any) (string, error) {
	data, err := json.Marshal(Wrap(v))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Unmarshal decodes JSON and resolves envelopes. Plain numbers decode as
// json.Number.
func Unmarshal(text string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return Unwrap(raw)
}

// Unwrap resolves envelopes in a decoded JSON tree.
func Unwrap(v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		if kind, ok := x[OpenTypeKey].(string); ok && len(x) == 2 {
			return unwrapEnvelope(kind, x["value"])
		}
		out := make(map[string]any, len(x))
		for k, item := range x {
			u, err := Unwrap(item)
			if err != nil {
				return nil, err
			}
			out[k] = u
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			u, err := Unwrap(item)
			if err != nil {
				return nil, err
			}
			out[i] = u
		}
		return out, nil
	}
	return v, nil
}

func unwrapEnvelope(kind string, value any) (any, error) {
	switch kind {
	case openBigint:
		text, ok := value.(string)
		if !ok {
			return nil, ErrInvalidEnvelope
		}
		n, ok := new(big.Int).SetString(text, 10)
		if !ok {
			return nil, ErrInvalidEnvelope
		}
		return n, nil
	case openBytes:
		items, ok := value.([]any)
		if !ok {
			return nil, ErrInvalidEnvelope
		}
		out := make([]byte, len(items))
		for i, item := range items {
			n, err := byteValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case openPrincipal:
		text, ok := value.(string)
		if !ok {
			return nil, ErrInvalidEnvelope
		}
		p, err := principal.FromText(text)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, ErrInvalidEnvelope
}

func byteValue(v any) (byte, error) {
	var n int64
	switch x := v.(type) {
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 0, ErrInvalidEnvelope
		}
		n = i
	case float64:
		n = int64(x)
		if float64(n) != x {
			return 0, ErrInvalidEnvelope
		}
	default:
		return 0, ErrInvalidEnvelope
	}
	if n < 0 || n > 255 {
		return 0, ErrInvalidEnvelope
	}
	return byte(n), nil
}

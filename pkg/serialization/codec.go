// Package serialization encodes persisted artifacts (side-table entries and
// checked graphs) and provides the canonical JSON form that anchor hashes are
// computed over.
package serialization

import (
	"github.com/goccy/go-json"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec turns values into bytes and back.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	Name() string
}

// JSONCodec encodes with the same JSON shapes the editor exchanges.
type JSONCodec struct{}

func (JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (JSONCodec) Name() string {
	return "json"
}

// MsgPackCodec encodes with MessagePack using the msgpack struct tags.
type MsgPackCodec struct{}

func (MsgPackCodec) Encode(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (MsgPackCodec) Decode(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

func (MsgPackCodec) Name() string {
	return "msgpack"
}

// CodecByName resolves a configured codec name, defaulting to MessagePack.
func CodecByName(name string) Codec {
	if name == "json" {
		return JSONCodec{}
	}
	return MsgPackCodec{}
}

package serialization

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type artifact struct {
	Anchor  string            `json:"anchor" msgpack:"anchor"`
	Created uint64            `json:"created" msgpack:"created"`
	Labels  map[string]string `json:"labels,omitempty" msgpack:"labels,omitempty"`
	JS      *string           `json:"js,omitempty" msgpack:"js,omitempty"`
}

func sample() artifact {
	js := "result = data.trim();"
	return artifact{
		Anchor:  "code#aaaaa-aa#00",
		Created: 42,
		Labels:  map[string]string{"b": "2", "a": "1"},
		JS:      &js,
	}
}

func TestSerializerPipelines(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	tests := []struct {
		name   string
		config Config
		want   string
	}{
		{"json", Config{Codec: JSONCodec{}}, "json"},
		{"msgpack zstd", Config{Codec: MsgPackCodec{}, Compression: CompressionZstd}, "msgpack+zstd"},
		{"json gzip", Config{Codec: JSONCodec{}, Compression: CompressionGzip}, "json+gzip"},
		{"sealed", Config{Codec: MsgPackCodec{}, Compression: CompressionZstd, EncryptKey: key}, "msgpack+zstd+aesgcm"},
		{"default codec", Config{}, "msgpack"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSerializer(tt.config)
			assert.Equal(t, tt.want, s.Name())

			data, err := s.Serialize(sample())
			require.NoError(t, err)

			var got artifact
			require.NoError(t, s.Deserialize(data, &got))
			assert.Equal(t, sample(), got)
		})
	}
}

func TestDeserializeErrors(t *testing.T) {
	sealed := NewSerializer(Config{EncryptKey: make([]byte, 16)})
	var got artifact
	assert.ErrorIs(t, sealed.Deserialize([]byte{1, 2}, &got), ErrCiphertextTooShort)

	data, err := sealed.Serialize(sample())
	require.NoError(t, err)
	wrongKey := NewSerializer(Config{EncryptKey: make([]byte, 32)})
	assert.Error(t, wrongKey.Deserialize(data, &got))

	assert.Error(t, DefaultSerializer().Deserialize([]byte("not zstd"), &got))
}

func TestCanonical(t *testing.T) {
	data, err := Canonical(sample())
	require.NoError(t, err)
	assert.Equal(t, `{"anchor":"code#aaaaa-aa#00","created":42,"labels":{"a":"1","b":"2"},"js":"result = data.trim();"}`, string(data))

	html, err := Canonical(map[string]string{"k": "<a & b>"})
	require.NoError(t, err)
	assert.Equal(t, `{"k":"<a & b>"}`, string(html))

	h1, err := CanonicalHash(sample())
	require.NoError(t, err)
	assert.Len(t, h1, 64)
	assert.Equal(t, SHA256Hex(data), h1)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", SHA256Hex())
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, Fingerprint("a", "b"), Fingerprint("a", "b"))
	assert.NotEqual(t, Fingerprint("ab"), Fingerprint("a", "b"))
	assert.Equal(t, CodecByName("json").Name(), "json")
	assert.Equal(t, CodecByName("").Name(), "msgpack")
}

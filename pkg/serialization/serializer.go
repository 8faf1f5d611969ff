package serialization

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression selects the algorithm applied after encoding.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// Config holds serializer settings. EncryptKey, when set, must be an AES-128,
// AES-192 or AES-256 key and enables AES-GCM sealing of every blob.
type Config struct {
	Codec       Codec
	Compression Compression
	EncryptKey  []byte
}

// Serializer runs encode, compress, seal and its inverse.
type Serializer struct {
	config Config
}

func NewSerializer(config Config) *Serializer {
	if config.Codec == nil {
		config.Codec = MsgPackCodec{}
	}
	return &Serializer{config: config}
}

// DefaultSerializer is MessagePack with zstd and no encryption.
func DefaultSerializer() *Serializer {
	return NewSerializer(Config{Codec: MsgPackCodec{}, Compression: CompressionZstd})
}

// Name describes the pipeline, e.g. "msgpack+zstd".
func (s *Serializer) Name() string {
	name := s.config.Codec.Name()
	if s.config.Compression != "" && s.config.Compression != CompressionNone {
		name += "+" + string(s.config.Compression)
	}
	if len(s.config.EncryptKey) > 0 {
		name += "+aesgcm"
	}
	return name
}

func (s *Serializer) Serialize(v any) ([]byte, error) {
	data, err := s.config.Codec.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", s.config.Codec.Name(), err)
	}
	if data, err = s.compress(data); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if len(s.config.EncryptKey) > 0 {
		if data, err = s.seal(data); err != nil {
			return nil, fmt.Errorf("encrypt: %w", err)
		}
	}
	return data, nil
}

func (s *Serializer) Deserialize(data []byte, v any) error {
	var err error
	if len(s.config.EncryptKey) > 0 {
		if data, err = s.open(data); err != nil {
			return fmt.Errorf("decrypt: %w", err)
		}
	}
	if data, err = s.decompress(data); err != nil {
		return fmt.Errorf("decompress: %w", err)
	}
	if err = s.config.Codec.Decode(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", s.config.Codec.Name(), err)
	}
	return nil
}

func (s *Serializer) compress(data []byte) ([]byte, error) {
	switch s.config.Compression {
	case CompressionGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	}
	return data, nil
}

func (s *Serializer) decompress(data []byte) ([]byte, error) {
	switch s.config.Compression {
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	}
	return data, nil
}

func (s *Serializer) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.config.EncryptKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (s *Serializer) seal(data []byte) ([]byte, error) {
	gcm, err := s.aead()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, data, nil), nil
}

func (s *Serializer) open(data []byte) ([]byte, error) {
	gcm, err := s.aead()
	if err != nil {
		return nil, err
	}
	size := gcm.NonceSize()
	if len(data) < size {
		return nil, ErrCiphertextTooShort
	}
	return gcm.Open(nil, data[:size], data[size:], nil)
}

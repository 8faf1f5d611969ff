package services

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/easydapp/jelly-packages/internal/adapters/repository"
	"github.com/easydapp/jelly-packages/internal/adapters/repository/memory"
	"github.com/easydapp/jelly-packages/internal/adapters/repository/postgres"
	"github.com/easydapp/jelly-packages/internal/adapters/repository/sqlite"
	"github.com/easydapp/jelly-packages/internal/infrastructure/config"
	"github.com/easydapp/jelly-packages/pkg/serialization"
)

// OpenRepository opens the store cfg selects. Blobs are encoded with the
// configured codec, compressed (zstd unless set) and sealed when an encrypt
// key is given.
func OpenRepository(ctx context.Context, cfg config.StoreConfig) (repository.Repository, error) {
	serializer, err := newSerializer(cfg)
	if err != nil {
		return nil, err
	}
	switch cfg.Driver {
	case "", "memory":
		return memory.NewRepository(serializer), nil
	case "sqlite":
		r, err := sqlite.Open(ctx, cfg.DSN, serializer)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "postgres":
		r, err := postgres.Open(ctx, cfg.DSN, serializer)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func newSerializer(cfg config.StoreConfig) (*serialization.Serializer, error) {
	compression := serialization.Compression(cfg.Compression)
	if compression == "" {
		compression = serialization.CompressionZstd
	}
	var key []byte
	if cfg.EncryptKey != "" {
		decoded, err := hex.DecodeString(cfg.EncryptKey)
		if err != nil {
			return nil, fmt.Errorf("decode encrypt key: %w", err)
		}
		key = decoded
	}
	return serialization.NewSerializer(serialization.Config{
		Codec:       serialization.CodecByName(cfg.Codec),
		Compression: compression,
		EncryptKey:  key,
	}), nil
}

// Package postgres stores checked graphs in PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/easydapp/jelly-packages/internal/adapters/repository"
	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/internal/core/compile"
	"github.com/easydapp/jelly-packages/internal/core/link"
	"github.com/easydapp/jelly-packages/internal/core/store"
	"github.com/easydapp/jelly-packages/pkg/serialization"
)

// Repository implements repository.Repository. Payloads are serialized
// blobs; the chains and metadata of a combined graph are also kept as
// columns for querying.
type Repository struct {
	pool       *pgxpool.Pool
	serializer *serialization.Serializer
	now        func() time.Time
}

var _ repository.Repository = (*Repository)(nil)

// Open connects to dsn and creates the tables.
func Open(ctx context.Context, dsn string, serializer *serialization.Serializer) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	r := NewRepository(pool, serializer)
	if err := r.CreateTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

// NewRepository wraps pool. A nil serializer selects
// serialization.DefaultSerializer.
func NewRepository(pool *pgxpool.Pool, serializer *serialization.Serializer) *Repository {
	if serializer == nil {
		serializer = serialization.DefaultSerializer()
	}
	return &Repository{pool: pool, serializer: serializer, now: time.Now}
}

const schema = `
	CREATE TABLE IF NOT EXISTS jelly_codes (
		anchor TEXT PRIMARY KEY,
		created BIGINT NOT NULL,
		data BYTEA NOT NULL
	);
	CREATE TABLE IF NOT EXISTS jelly_apis (
		anchor TEXT PRIMARY KEY,
		created BIGINT NOT NULL,
		data BYTEA NOT NULL
	);
	CREATE TABLE IF NOT EXISTS jelly_combineds (
		anchor TEXT PRIMARY KEY,
		created BIGINT NOT NULL,
		version TEXT NOT NULL,
		chains TEXT[] NOT NULL DEFAULT '{}',
		metadata JSONB,
		data BYTEA NOT NULL
	);
	CREATE TABLE IF NOT EXISTS jelly_publishers (
		anchor TEXT PRIMARY KEY,
		data BYTEA NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_jelly_combineds_chains ON jelly_combineds USING GIN (chains);
`

// CreateTables creates the tables if they do not exist.
func (r *Repository) CreateTables(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Save stores checked and its payloads in one transaction.
func (r *Repository) Save(ctx context.Context, checked *compile.CheckedCombined, version string) error {
	entries, err := repository.NewEntries(checked, version, r.now())
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, c := range entries.Codes {
		data, err := r.serializer.Serialize(c)
		if err != nil {
			return fmt.Errorf("failed to serialize %s: %w", c.Anchor, err)
		}
		batch.Queue(`INSERT INTO jelly_codes (anchor, created, data) VALUES ($1, $2, $3) ON CONFLICT (anchor) DO NOTHING`,
			string(c.Anchor), c.Created, data)
	}
	for _, a := range entries.APIs {
		data, err := r.serializer.Serialize(a)
		if err != nil {
			return fmt.Errorf("failed to serialize %s: %w", a.Anchor, err)
		}
		batch.Queue(`INSERT INTO jelly_apis (anchor, created, data) VALUES ($1, $2, $3) ON CONFLICT (anchor) DO NOTHING`,
			string(a.Anchor), a.Created, data)
	}
	c := entries.Combined
	data, err := r.serializer.Serialize(c)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", c.Anchor, err)
	}
	var metadata []byte
	if len(c.Metadata) > 0 {
		metadata = c.Metadata
	}
	batch.Queue(`INSERT INTO jelly_combineds (anchor, created, version, chains, metadata, data)
		VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (anchor) DO NOTHING`,
		string(c.Anchor), c.Created, c.Version, chainNames(c.Chains), metadata, data)

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to save %s: %w", c.Anchor, err)
		}
		return nil
	})
}

func chainNames(chains []link.CallChain) []string {
	out := make([]string, 0, len(chains))
	for _, c := range chains {
		out = append(out, string(c))
	}
	return out
}

// FindByChain lists the anchors of stored graphs that call chain, newest
// first.
func (r *Repository) FindByChain(ctx context.Context, chain link.CallChain, limit int) ([]anchor.Combined, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT anchor FROM jelly_combineds WHERE $1 = ANY(chains) ORDER BY created DESC LIMIT $2`,
		string(chain), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query by chain: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan anchors: %w", err)
	}
	out := make([]anchor.Combined, 0, len(names))
	for _, n := range names {
		out = append(out, anchor.Combined(n))
	}
	return out, nil
}

func (r *Repository) LoadCode(ctx context.Context, a anchor.Code) (*store.CodeData, error) {
	return load[store.CodeData](ctx, r, `SELECT data FROM jelly_codes WHERE anchor = $1`, string(a))
}

func (r *Repository) LoadAPI(ctx context.Context, a anchor.API) (*store.ApiData, error) {
	return load[store.ApiData](ctx, r, `SELECT data FROM jelly_apis WHERE anchor = $1`, string(a))
}

func (r *Repository) LoadCombined(ctx context.Context, a anchor.Combined) (*store.Combined, error) {
	return load[store.Combined](ctx, r, `SELECT data FROM jelly_combineds WHERE anchor = $1`, string(a))
}

func (r *Repository) SavePublisher(ctx context.Context, p *store.Publisher) error {
	if _, err := p.Anchor.Parse(); err != nil {
		return fmt.Errorf("%w: %s", repository.ErrInvalidAnchor, err)
	}
	data, err := r.serializer.Serialize(p)
	if err != nil {
		return fmt.Errorf("failed to serialize publisher: %w", err)
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO jelly_publishers (anchor, data) VALUES ($1, $2)
		ON CONFLICT (anchor) DO UPDATE SET data = EXCLUDED.data`, string(p.Anchor), data)
	if err != nil {
		return fmt.Errorf("failed to save publisher: %w", err)
	}
	return nil
}

func (r *Repository) LoadPublisher(ctx context.Context, a anchor.Publisher) (*store.Publisher, error) {
	return load[store.Publisher](ctx, r, `SELECT data FROM jelly_publishers WHERE anchor = $1`, string(a))
}

func load[T any](ctx context.Context, r *Repository, query, a string) (*T, error) {
	var data []byte
	if err := r.pool.QueryRow(ctx, query, a).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load %s: %w", a, err)
	}
	var v T
	if err := r.serializer.Deserialize(data, &v); err != nil {
		return nil, fmt.Errorf("failed to deserialize %s: %w", a, err)
	}
	return &v, nil
}

// Close releases the pool.
func (r *Repository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

// Package sqlite stores checked graphs in SQLite through modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/easydapp/jelly-packages/internal/adapters/repository"
	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/internal/core/compile"
	"github.com/easydapp/jelly-packages/internal/core/store"
	"github.com/easydapp/jelly-packages/pkg/serialization"
)

// Repository implements repository.Repository. Every payload is stored as a
// serialized blob keyed by its anchor.
type Repository struct {
	db         *sql.DB
	serializer *serialization.Serializer
	prefix     string
	now        func() time.Time
}

var _ repository.Repository = (*Repository)(nil)

// Open opens the database at dsn and creates the tables.
func Open(ctx context.Context, dsn string, serializer *serialization.Serializer) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// An in-memory database lives as long as its single connection.
	db.SetMaxOpenConns(1)
	r := NewRepository(db, serializer)
	if err := r.CreateTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// NewRepository wraps db. A nil serializer selects
// serialization.DefaultSerializer.
func NewRepository(db *sql.DB, serializer *serialization.Serializer) *Repository {
	if serializer == nil {
		serializer = serialization.DefaultSerializer()
	}
	return &Repository{
		db:         db,
		serializer: serializer,
		prefix:     "jelly_",
		now:        time.Now,
	}
}

// WithTablePrefix overrides the table name prefix. Only letters, digits and
// underscores are accepted; anything else keeps the current prefix.
func (r *Repository) WithTablePrefix(prefix string) *Repository {
	if isSafeIdent(prefix) {
		r.prefix = prefix
	}
	return r
}

func isSafeIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			continue
		}
		return false
	}
	return true
}

func (r *Repository) table(name string) string { return r.prefix + name }

// CreateTables creates the tables if they do not exist.
func (r *Repository) CreateTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			anchor TEXT PRIMARY KEY,
			created INTEGER NOT NULL,
			data BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS %[2]s (
			anchor TEXT PRIMARY KEY,
			created INTEGER NOT NULL,
			data BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS %[3]s (
			anchor TEXT PRIMARY KEY,
			created INTEGER NOT NULL,
			version TEXT NOT NULL,
			data BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS %[4]s (
			anchor TEXT PRIMARY KEY,
			data BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%[3]s_created ON %[3]s (created);
	`, r.table("codes"), r.table("apis"), r.table("combineds"), r.table("publishers"))

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Save stores checked and its payloads in one transaction.
func (r *Repository) Save(ctx context.Context, checked *compile.CheckedCombined, version string) (err error) {
	entries, err := repository.NewEntries(checked, version, r.now())
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	insert := func(table string, a string, created int64, v any) error {
		data, err := r.serializer.Serialize(v)
		if err != nil {
			return fmt.Errorf("failed to serialize %s: %w", a, err)
		}
		query := fmt.Sprintf(`INSERT OR IGNORE INTO %s (anchor, created, data) VALUES (?, ?, ?)`, table)
		if _, err := tx.ExecContext(ctx, query, a, created, data); err != nil {
			return fmt.Errorf("failed to save %s: %w", a, err)
		}
		return nil
	}
	for _, c := range entries.Codes {
		if err = insert(r.table("codes"), string(c.Anchor), c.Created, c); err != nil {
			return err
		}
	}
	for _, a := range entries.APIs {
		if err = insert(r.table("apis"), string(a.Anchor), a.Created, a); err != nil {
			return err
		}
	}

	c := entries.Combined
	data, err := r.serializer.Serialize(c)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", c.Anchor, err)
	}
	query := fmt.Sprintf(`INSERT OR IGNORE INTO %s (anchor, created, version, data) VALUES (?, ?, ?, ?)`, r.table("combineds"))
	if _, err = tx.ExecContext(ctx, query, string(c.Anchor), c.Created, c.Version, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", c.Anchor, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (r *Repository) LoadCode(ctx context.Context, a anchor.Code) (*store.CodeData, error) {
	return load[store.CodeData](ctx, r, r.table("codes"), string(a))
}

func (r *Repository) LoadAPI(ctx context.Context, a anchor.API) (*store.ApiData, error) {
	return load[store.ApiData](ctx, r, r.table("apis"), string(a))
}

func (r *Repository) LoadCombined(ctx context.Context, a anchor.Combined) (*store.Combined, error) {
	return load[store.Combined](ctx, r, r.table("combineds"), string(a))
}

func (r *Repository) SavePublisher(ctx context.Context, p *store.Publisher) error {
	if _, err := p.Anchor.Parse(); err != nil {
		return fmt.Errorf("%w: %s", repository.ErrInvalidAnchor, err)
	}
	data, err := r.serializer.Serialize(p)
	if err != nil {
		return fmt.Errorf("failed to serialize publisher: %w", err)
	}
	query := fmt.Sprintf(`INSERT OR REPLACE INTO %s (anchor, data) VALUES (?, ?)`, r.table("publishers"))
	if _, err := r.db.ExecContext(ctx, query, string(p.Anchor), data); err != nil {
		return fmt.Errorf("failed to save publisher: %w", err)
	}
	return nil
}

func (r *Repository) LoadPublisher(ctx context.Context, a anchor.Publisher) (*store.Publisher, error) {
	return load[store.Publisher](ctx, r, r.table("publishers"), string(a))
}

func load[T any](ctx context.Context, r *Repository, table, a string) (*T, error) {
	var data []byte
	query := fmt.Sprintf(`SELECT data FROM %s WHERE anchor = ?`, table)
	if err := r.db.QueryRowContext(ctx, query, a).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

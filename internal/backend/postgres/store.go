// Package postgres implements store.Store on a PostgreSQL JSONB table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"taskapi/internal/config"
	"taskapi/internal/store"
)

// Schema creates the documents table if it does not exist.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT  NOT NULL,
	id         TEXT  NOT NULL,
	data       JSONB NOT NULL DEFAULT '{}'::jsonb,
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_data_gin ON documents USING GIN (data jsonb_path_ops);
`

const (
	getSQL    = `SELECT data FROM documents WHERE collection = $1 AND id = $2`
	upsertSQL = `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data`
	updateSQL = `UPDATE documents SET data = data || $3 WHERE collection = $1 AND id = $2`
	deleteSQL = `DELETE FROM documents WHERE collection = $1 AND id = $2`
	whereSQL  = `SELECT id, data FROM documents WHERE collection = $1 AND data @> $2 ORDER BY id`
)

// Store implements store.Store using a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New opens a connection pool, pings it and ensures the schema exists.
func New(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse db config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MaxConnIdleTime = time.Minute

	logger.Info("Initializing PostgreSQL connection pool",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.Uint16("port", poolCfg.ConnConfig.Port),
		zap.String("db", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns),
	)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	s := NewWithPool(pool)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("PostgreSQL connection established successfully")
	return s, nil
}

// NewWithPool wraps an existing pool. The schema is not checked.
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the documents table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	if err := store.CheckID(id); err != nil {
		return store.Document{}, err
	}

	var data map[string]any
	err := s.pool.QueryRow(ctx, getSQL, collection, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Document{}, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	if err != nil {
		return store.Document{}, err
	}
	return store.Document{ID: id, Data: orEmpty(data)}, nil
}

// Set implements store.Store.
func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if err := store.CheckID(id); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, upsertSQL, collection, id, orEmpty(data))
	return err
}

// Update implements store.Store. Top-level fields are merged with ||.
func (s *Store) Update(ctx context.Context, collection, id string, data map[string]any) error {
	if err := store.CheckUpdate(id, data); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, updateSQL, collection, id, orEmpty(data))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no document to update: %s/%s: %w", collection, id, store.ErrNotFound)
	}
	return nil
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := store.CheckID(id); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, deleteSQL, collection, id)
	return err
}

// Where implements store.Store using JSONB containment. For scalar values
// this is equality; an array value matches any superset array.
func (s *Store) Where(ctx context.Context, collection, field string, value any) ([]store.Document, error) {
	rows, err := s.pool.Query(ctx, whereSQL, collection, map[string]any{field: value})
	if err != nil {
		return nil, err
	}

	docs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Document, error) {
		var d store.Document
		err := row.Scan(&d.ID, &d.Data)
		d.Data = orEmpty(d.Data)
		return d, err
	})
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []store.Document{}
	}
	return docs, nil
}

// Commit implements store.Store. All writes are sent as one pgx.Batch inside
// a transaction.
func (s *Store) Commit(ctx context.Context, b *store.Batch) error {
	if err := b.Validate(); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, w := range b.Writes() {
		switch w.Kind {
		case store.WriteSet:
			batch.Queue(upsertSQL, w.Collection, w.ID, orEmpty(w.Data))
		case store.WriteDelete:
			batch.Queue(deleteSQL, w.Collection, w.ID)
		}
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func orEmpty(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	return data
}

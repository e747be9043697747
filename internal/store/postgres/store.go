// Package postgres implements the favorites store adapter on PostgreSQL so
// several server instances can share one database. Writes are announced with
// NOTIFY; Watch turns them back into key batches.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hermanshu/targ-site-sub000/internal/store"
)

const (
	notifyChannel = "favorites_kv"

	schemaSQL = `
CREATE TABLE IF NOT EXISTS favorites_kv (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
)

// Config holds connection settings.
type Config struct {
	DatabaseURL string
	MaxConns    int32
}

// Store is a store.Adapter backed by a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var (
	_ store.Adapter = (*Store)(nil)
	_ store.Watcher = (*Store)(nil)
	_ store.Scanner = (*Store)(nil)
)

// Open connects, pings and ensures the table exists.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("postgres database URL is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger.Info("postgres store connected", "host", poolConfig.ConnConfig.Host, "database", poolConfig.ConnConfig.Database)

	return &Store{pool: pool, logger: logger}, nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Get implements store.Adapter.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM favorites_kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Put implements store.Adapter.
func (s *Store) Put(ctx context.Context, key, value string) error {
	return s.Apply(ctx, []store.Mutation{store.Set(key, value)})
}

// Delete implements store.Adapter.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.Apply(ctx, []store.Mutation{store.Remove(key)})
}

// Apply writes all mutations in one transaction. Owner keys are announced on
// the notify channel, delivered by Postgres only if the transaction commits.
func (s *Store) Apply(ctx context.Context, mutations []store.Mutation) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	batch := &pgx.Batch{}
	var changed []string
	for _, m := range mutations {
		if m.Delete {
			batch.Queue(`DELETE FROM favorites_kv WHERE key = $1`, m.Key)
			continue
		}
		batch.Queue(`
			INSERT INTO favorites_kv (key, value, updated_at) VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
			m.Key, m.Value)
		if _, ok := store.OwnerOf(m.Key); ok {
			changed = append(changed, m.Key)
		}
	}
	if len(changed) > 0 {
		batch.Queue(`SELECT pg_notify($1, $2)`, notifyChannel, strings.Join(changed, "\n"))
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("apply %d mutations: %w", len(mutations), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Scan implements store.Scanner.
func (s *Store) Scan(ctx context.Context, prefix string, fn func(key, value string) error) error {
	rows, err := s.pool.Query(ctx,
		`SELECT key, value FROM favorites_kv WHERE starts_with(key, $1) ORDER BY key`, prefix)
	if err != nil {
		return fmt.Errorf("scan %s: %w", prefix, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Watch listens on the notify channel. The listening connection is taken
// out of the pool and closed on return, so no pooled connection keeps
// collecting notifications.
func (s *Store) Watch(ctx context.Context, fn func(keys []string)) error {
	pooled, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	conn := pooled.Hijack()
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		if n.Payload == "" {
			continue
		}
		fn(strings.Split(n.Payload, "\n"))
	}
}

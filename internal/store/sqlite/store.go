// Package sqlite implements the favorites store adapter on a single SQLite
// file. Other processes writing to the same file are picked up by Watch.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hermanshu/targ-site-sub000/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// watchSettle groups bursts of WAL writes into one poll.
const watchSettle = 50 * time.Millisecond

// Store is a store.Adapter backed by SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var (
	_ store.Adapter = (*Store)(nil)
	_ store.Watcher = (*Store)(nil)
	_ store.Scanner = (*Store)(nil)
)

// Open creates or opens the database at path, configures WAL mode and
// applies the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger.Info("sqlite database opened", "path", path)

	return &Store{db: db, path: path, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get implements store.Adapter.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
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

// Apply writes all mutations in one transaction and stamps them with a new
// commit sequence number.
func (s *Store) Apply(ctx context.Context, mutations []store.Mutation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`UPDATE kv_meta SET seq = seq + 1 WHERE id = 1 RETURNING seq`).Scan(&seq); err != nil {
		return fmt.Errorf("bump seq: %w", err)
	}

	now := formatTime(time.Now())
	for _, m := range mutations {
		if m.Delete {
			if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, m.Key); err != nil {
				return fmt.Errorf("delete %s: %w", m.Key, err)
			}
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO kv (key, value, seq, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				seq = excluded.seq,
				updated_at = excluded.updated_at`,
			m.Key, m.Value, seq, now)
		if err != nil {
			return fmt.Errorf("set %s: %w", m.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Scan implements store.Scanner.
func (s *Store) Scan(ctx context.Context, prefix string, fn func(key, value string) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key`,
		len(prefix), prefix)
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

// Watch reports owner keys written by any connection to this database file,
// including other processes. It watches the database directory with
// fsnotify and, after each burst of writes, reads the rows whose commit
// sequence is newer than the last one reported. Deletions are not reported.
func (s *Store) Watch(ctx context.Context, fn func(keys []string)) error {
	lastSeq, err := s.currentSeq(ctx)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	base := filepath.Base(s.path)
	timer := time.NewTimer(watchSettle)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			// The main file and its -wal/-shm siblings all signal a commit.
			if !strings.HasPrefix(filepath.Base(event.Name), base) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				timer.Reset(watchSettle)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("sqlite watch error", "error", err)
		case <-timer.C:
			keys, seq, err := s.changedSince(ctx, lastSeq)
			if err != nil {
				s.logger.Warn("sqlite watch poll failed", "error", err)
				continue
			}
			lastSeq = seq
			if len(keys) > 0 {
				fn(keys)
			}
		}
	}
}

func (s *Store) currentSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT seq FROM kv_meta WHERE id = 1`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("read seq: %w", err)
	}
	return seq, nil
}

// changedSince returns owner keys written after seq and the newest seq seen.
func (s *Store) changedSince(ctx context.Context, seq int64) ([]string, int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, seq FROM kv WHERE seq > ? AND key NOT LIKE 'share:%' ORDER BY seq`, seq)
	if err != nil {
		return nil, seq, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		var rowSeq int64
		if err := rows.Scan(&key, &rowSeq); err != nil {
			return nil, seq, fmt.Errorf("scan change: %w", err)
		}
		keys = append(keys, key)
		seq = max(seq, rowSeq)
	}
	return keys, seq, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/pb"
)

// Badger is an Adapter backed by an embedded Badger database.
type Badger struct {
	db     *badger.DB
	logger *slog.Logger
}

var (
	_ Adapter = (*Badger)(nil)
	_ Watcher = (*Badger)(nil)
	_ Scanner = (*Badger)(nil)
)

// OpenBadger opens (or creates) a Badger database at path. An empty path
// opens a purely in-memory database.
func OpenBadger(path string, logger *slog.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // badger's own logging is too chatty
	opts.SyncWrites = true       // favorites must survive a crash once acknowledged
	opts.CompactL0OnClose = true // faster startup
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger != nil {
		logger.Info("badger database opened", "path", path)
	}
	return &Badger{db: db, logger: logger}, nil
}

// Get implements Adapter.
func (b *Badger) Get(_ context.Context, key string) (string, bool, error) {
	var value string
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Put implements Adapter.
func (b *Badger) Put(ctx context.Context, key, value string) error {
	return b.Apply(ctx, []Mutation{Set(key, value)})
}

// Delete implements Adapter.
func (b *Badger) Delete(ctx context.Context, key string) error {
	return b.Apply(ctx, []Mutation{Remove(key)})
}

// Apply writes all mutations in a single Badger transaction.
func (b *Badger) Apply(ctx context.Context, mutations []Mutation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		for _, m := range mutations {
			if m.Delete {
				if err := txn.Delete([]byte(m.Key)); err != nil {
					return fmt.Errorf("delete %s: %w", m.Key, err)
				}
				continue
			}
			if err := txn.Set([]byte(m.Key), []byte(m.Value)); err != nil {
				return fmt.Errorf("set %s: %w", m.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply %d mutations: %w", len(mutations), err)
	}
	return nil
}

// Scan implements Scanner.
func (b *Badger) Scan(ctx context.Context, prefix string, fn func(key, value string) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read %s: %w", item.Key(), err)
			}
			if err := fn(string(item.KeyCopy(nil)), string(val)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Watch subscribes to committed writes on owner-scoped keys. Each Badger
// commit is delivered as one batch of keys.
func (b *Badger) Watch(ctx context.Context, fn func(keys []string)) error {
	matches := []pb.Match{
		{Prefix: []byte(favoritesPrefix)},
		{Prefix: []byte(foldersPrefix)},
		{Prefix: []byte(assignmentsPrefix)},
	}
	err := b.db.Subscribe(ctx, func(list *badger.KVList) error {
		keys := make([]string, 0, len(list.Kv))
		for _, kv := range list.Kv {
			keys = append(keys, string(kv.Key))
		}
		if len(keys) > 0 {
			fn(keys)
		}
		return nil
	}, matches)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("badger subscribe: %w", err)
	}
	return nil
}

// Close closes the database.
func (b *Badger) Close() error {
	if b.logger != nil {
		b.logger.Info("closing badger database")
	}
	return b.db.Close()
}

package sqlite

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermanshu/targ-site-sub000/internal/store"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "favorites.db")
	s, err := Open(dbPath, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, dbPath
}

func TestOpen_ConfiguresWAL(t *testing.T) {
	s, _ := newTestStore(t)

	var journalMode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	for _, table := range []string{"kv", "kv_meta"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, table)
	}
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "favorites.db")

	s, err := Open(dbPath, nil)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, store.FoldersKey("u1"), `[{"id":"fld-1"}]`))
	require.NoError(t, s.Close())

	s2, err := Open(dbPath, nil)
	require.NoError(t, err)
	defer s2.Close()

	v, ok, err := s2.Get(ctx, store.FoldersKey("u1"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"fld-1"}]`, v)
}

func TestApply_IsAtomic(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.Put(ctx, "favorites:u1", "before"))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err := s.Apply(cancelled, []store.Mutation{
		store.Set("favorites:u1", "after"),
		store.Set("folders:u1", "new"),
	})
	require.Error(t, err)

	v, _, err := s.Get(ctx, "favorites:u1")
	require.NoError(t, err)
	assert.Equal(t, "before", v)
	_, ok, err := s.Get(ctx, "folders:u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApply_BumpsSequence(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	before, err := s.currentSeq(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Apply(ctx, []store.Mutation{
		store.Set("favorites:u1", "[]"),
		store.Set("share:tok", "u1"),
	}))

	after, err := s.currentSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)

	keys, seq, err := s.changedSince(ctx, before)
	require.NoError(t, err)
	assert.Equal(t, after, seq)
	assert.Equal(t, []string{"favorites:u1"}, keys, "share keys are not reported")
}

func TestScan_Prefix(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.Apply(ctx, []store.Mutation{
		store.Set("share:b", "u2"),
		store.Set("share:a", "u1"),
		store.Set("folders:u1", "[]"),
	}))

	got := map[string]string{}
	err := s.Scan(ctx, "share:", func(k, v string) error {
		got[k] = v
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"share:a": "u1", "share:b": "u2"}, got)
}

func TestWatch_SeesWritesFromAnotherHandle(t *testing.T) {
	s, dbPath := newTestStore(t)

	other, err := Open(dbPath, nil)
	require.NoError(t, err)
	defer other.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan []string, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Watch(ctx, func(keys []string) { got <- keys })
	}()

	require.Eventually(t, func() bool {
		_ = other.Put(context.Background(), store.AssignmentsKey("u1"), "[]")
		select {
		case keys := <-got:
			return assert.Contains(t, keys, "assignments:u1")
		default:
			return false
		}
	}, 3*time.Second, 100*time.Millisecond)

	cancel()
	<-done
}

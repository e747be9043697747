package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// adapterCases runs the shared Adapter contract against each embedded
// implementation in this package.
func adapterCases(t *testing.T) map[string]func(t *testing.T) Adapter {
	t.Helper()
	return map[string]func(t *testing.T) Adapter{
		"memory": func(t *testing.T) Adapter {
			return NewMemory()
		},
		"badger": func(t *testing.T) Adapter {
			b, err := OpenBadger(t.TempDir(), nil)
			require.NoError(t, err)
			t.Cleanup(func() { _ = b.Close() })
			return b
		},
	}
}

func TestAdapter_GetPutDelete(t *testing.T) {
	for name, open := range adapterCases(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := open(t)

			_, ok, err := a.Get(ctx, "favorites:u1")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, a.Put(ctx, "favorites:u1", `[{"listing_id":"l1"}]`))
			v, ok, err := a.Get(ctx, "favorites:u1")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `[{"listing_id":"l1"}]`, v)

			require.NoError(t, a.Delete(ctx, "favorites:u1"))
			_, ok, err = a.Get(ctx, "favorites:u1")
			require.NoError(t, err)
			assert.False(t, ok)

			// Deleting again is not an error.
			require.NoError(t, a.Delete(ctx, "favorites:u1"))
		})
	}
}

func TestAdapter_ApplyWritesAllKeys(t *testing.T) {
	for name, open := range adapterCases(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := open(t)
			require.NoError(t, a.Put(ctx, ShareKey("old"), "u1"))

			err := a.Apply(ctx, []Mutation{
				Set(FavoritesKey("u1"), "[]"),
				Set(FoldersKey("u1"), "[]"),
				Set(AssignmentsKey("u1"), "[]"),
				Remove(ShareKey("old")),
			})
			require.NoError(t, err)

			for _, k := range OwnerKeys("u1") {
				v, ok, err := a.Get(ctx, k)
				require.NoError(t, err)
				assert.True(t, ok, k)
				assert.Equal(t, "[]", v)
			}
			_, ok, err := a.Get(ctx, ShareKey("old"))
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestAdapter_ScanByPrefix(t *testing.T) {
	for name, open := range adapterCases(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := open(t)
			require.NoError(t, a.Apply(ctx, []Mutation{
				Set(FoldersKey("b"), "2"),
				Set(FoldersKey("a"), "1"),
				Set(FavoritesKey("a"), "x"),
			}))

			scanner, ok := a.(Scanner)
			require.True(t, ok)

			var keys []string
			err := scanner.Scan(ctx, "folders:", func(key, _ string) error {
				keys = append(keys, key)
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"folders:a", "folders:b"}, keys)
		})
	}
}

func TestOwnersAndShareIndex(t *testing.T) {
	for name, open := range adapterCases(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := open(t)
			require.NoError(t, a.Apply(ctx, []Mutation{
				Set(FoldersKey("carol"), "[]"),
				Set(FavoritesKey("alice"), "[]"),
				Set(AssignmentsKey("alice"), "[]"),
				Set(AssignmentsKey("bob"), "[]"),
				Set(ShareKey("tok1"), "alice"),
				Set(ShareKey("tok2"), "carol"),
			}))

			scanner, ok := a.(Scanner)
			require.True(t, ok)

			owners, err := Owners(ctx, scanner)
			require.NoError(t, err)
			assert.Equal(t, []string{"alice", "bob", "carol"}, owners)

			index, err := ShareIndex(ctx, scanner)
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"tok1": "alice", "tok2": "carol"}, index)
		})
	}
}

func TestMemory_FailWritesLeavesDataUntouched(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Put(ctx, "k", "before"))

	boom := errors.New("disk full")
	m.FailWrites(1, boom)

	err := m.Apply(ctx, []Mutation{Set("k", "after"), Set("k2", "new")})
	assert.ErrorIs(t, err, boom)

	v, _, _ := m.Get(ctx, "k")
	assert.Equal(t, "before", v)
	_, ok, _ := m.Get(ctx, "k2")
	assert.False(t, ok)

	// Only one write was armed.
	require.NoError(t, m.Put(ctx, "k", "after"))
}

func TestMemory_FailWritesUntilCleared(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.FailWrites(-1, nil)

	assert.ErrorIs(t, m.Put(ctx, "a", "1"), ErrInjected)
	assert.ErrorIs(t, m.Put(ctx, "a", "1"), ErrInjected)

	m.FailWrites(0, nil)
	assert.NoError(t, m.Put(ctx, "a", "1"))
}

func TestMemory_ClosedRejectsCalls(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Close())

	_, _, err := m.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.Put(context.Background(), "k", "v"), ErrClosed)
}

func TestMemory_WatchReceivesAppliedKeys(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan []string, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = m.Watch(ctx, func(keys []string) { got <- keys })
	}()

	// Wait for the watcher to register.
	require.Eventually(t, func() bool {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return len(m.watchers) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Put(context.Background(), FoldersKey("u1"), "[]"))

	select {
	case keys := <-got:
		assert.Equal(t, []string{"folders:u1"}, keys)
	case <-time.After(time.Second):
		t.Fatal("watcher not notified")
	}

	cancel()
	wg.Wait()
}

func TestBadger_WatchReportsOwnerKeys(t *testing.T) {
	b, err := OpenBadger(t.TempDir(), nil)
	require.NoError(t, err)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan []string, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Watch(ctx, func(keys []string) { got <- keys })
	}()

	// Subscribe registers asynchronously; keep writing until one is seen.
	require.Eventually(t, func() bool {
		_ = b.Put(context.Background(), FavoritesKey("u1"), "[]")
		select {
		case keys := <-got:
			return assert.Contains(t, keys, "favorites:u1")
		default:
			return false
		}
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	<-done
}

func TestKeys_OwnerOf(t *testing.T) {
	tests := []struct {
		key   string
		owner string
		ok    bool
	}{
		{"favorites:u1", "u1", true},
		{"folders:user:with:colons", "user:with:colons", true},
		{"assignments:u2", "u2", true},
		{"share:abc", "", false},
		{"folders:", "", false},
		{"other", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			owner, ok := OwnerOf(tt.key)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.owner, owner)
		})
	}

	assert.True(t, IsShareKey("share:abc"))
	assert.False(t, IsShareKey("folders:u1"))

	token, ok := TokenOf("share:abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", token)
	_, ok = TokenOf("share:")
	assert.False(t, ok)
}

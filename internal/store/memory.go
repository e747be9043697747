package store

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Memory is an in-process Adapter. Writes can be made to fail on demand,
// which tests use to exercise rollback.
type Memory struct {
	mu       sync.RWMutex
	data     map[string]string
	closed   bool
	failErr  error
	failLeft int // remaining failing writes; -1 fails until cleared
	watchers map[int]func([]string)
	nextID   int
}

var (
	_ Adapter = (*Memory)(nil)
	_ Watcher = (*Memory)(nil)
	_ Scanner = (*Memory)(nil)
)

// NewMemory creates an empty in-memory adapter.
func NewMemory() *Memory {
	return &Memory{
		data:     make(map[string]string),
		watchers: make(map[int]func([]string)),
	}
}

// FailWrites makes the next n writes (Put, Delete, Apply) return err without
// changing anything. n < 0 fails every write until FailWrites(0, nil).
// A nil err uses ErrInjected.
func (m *Memory) FailWrites(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	m.failLeft = n
	m.failErr = err
}

// Get implements Adapter.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", false, ErrClosed
	}
	v, ok := m.data[key]
	return v, ok, nil
}

// Put implements Adapter.
func (m *Memory) Put(ctx context.Context, key, value string) error {
	return m.Apply(ctx, []Mutation{Set(key, value)})
}

// Delete implements Adapter.
func (m *Memory) Delete(ctx context.Context, key string) error {
	return m.Apply(ctx, []Mutation{Remove(key)})
}

// Apply implements Adapter.
func (m *Memory) Apply(ctx context.Context, mutations []Mutation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.failLeft != 0 {
		if m.failLeft > 0 {
			m.failLeft--
		}
		err := m.failErr
		m.mu.Unlock()
		return err
	}
	for _, mut := range mutations {
		if mut.Delete {
			delete(m.data, mut.Key)
		} else {
			m.data[mut.Key] = mut.Value
		}
	}
	watchers := slices.Collect(maps.Values(m.watchers))
	m.mu.Unlock()

	keys := Keys(mutations)
	for _, fn := range watchers {
		fn(keys)
	}
	return nil
}

// Scan implements Scanner.
func (m *Memory) Scan(ctx context.Context, prefix string, fn func(key, value string) error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	snapshot := make(map[string]string)
	for k, v := range m.data {
		if strings.HasPrefix(k, prefix) {
			snapshot[k] = v
		}
	}
	m.mu.RUnlock()

	for _, k := range slices.Sorted(maps.Keys(snapshot)) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(k, snapshot[k]); err != nil {
			return err
		}
	}
	return nil
}

// Watch implements Watcher. fn runs synchronously after each Apply.
func (m *Memory) Watch(ctx context.Context, fn func(keys []string)) error {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = fn
	m.mu.Unlock()

	<-ctx.Done()

	m.mu.Lock()
	delete(m.watchers, id)
	m.mu.Unlock()
	return nil
}

// Close implements Adapter.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

package favorites

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hermanshu/targ-site-sub000/internal/sse"
	"github.com/hermanshu/targ-site-sub000/internal/store"
)

const testOwner = "user-1"

var testNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

// recorder collects emitted events.
type recorder struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recorder) Emit(event any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := event.(sse.Event); ok {
		r.events = append(r.events, e)
	}
}

func (r *recorder) all() []sse.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sse.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) types() []sse.EventType {
	var out []sse.EventType
	for _, e := range r.all() {
		out = append(out, e.Type)
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// sequence returns a generator of predictable values.
func sequence(format string) func() (string, error) {
	var mu sync.Mutex
	n := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf(format, n), nil
	}
}

func testToken(n int) string { return fmt.Sprintf("%032x", n) }

type fixture struct {
	facade *Facade
	mem    *store.Memory
	events *recorder
}

func testOptions(events *recorder) []Option {
	return []Option{
		WithEmitter(events),
		WithClock(func() time.Time { return testNow }),
		WithTokenGenerator(sequence("%032x")),
		WithIDGenerator(sequence("fld-%d")),
		WithBaseURL("https://market.example/"),
	}
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	mem := store.NewMemory()
	events := &recorder{}
	f, err := Open(context.Background(), testOwner, mem, append(testOptions(events), opts...)...)
	require.NoError(t, err)
	return &fixture{facade: f, mem: mem, events: events}
}

func ptr[T any](v T) *T { return &v }

func listingIDs(f *Facade) []string {
	out := []string{}
	for _, s := range f.Repository().List() {
		out = append(out, s.ListingID)
	}
	return out
}

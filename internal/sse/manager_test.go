package sse

import (
	"bufio"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermanshu/targ-site-sub000/internal/domain"
)

func newTestManager(t *testing.T) (*Manager, context.CancelFunc) {
	t.Helper()
	m := NewManager(slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	go m.Start(ctx)
	return m, cancel
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case e := <-c.EventChan:
		return e
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestManager_DeliversOnlyToOwner(t *testing.T) {
	m, cancel := newTestManager(t)
	defer cancel()

	alice, err := m.Connect("alice")
	require.NoError(t, err)
	bob, err := m.Connect("bob")
	require.NoError(t, err)

	m.Emit(NewFavoriteChangedEvent("alice", "l1", true))

	e := receive(t, alice)
	assert.Equal(t, EventFavoriteChanged, e.Type)
	assert.Equal(t, FavoriteChangedData{ListingID: "l1", IsFavorite: true}, e.Data)

	select {
	case e := <-bob.EventChan:
		t.Fatalf("bob received %s", e.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManager_IgnoresNonEvents(t *testing.T) {
	m, cancel := newTestManager(t)
	defer cancel()

	c, err := m.Connect("alice")
	require.NoError(t, err)

	m.Emit("not an event")
	m.Emit(NewFolderChangedEvent(domain.Folder{ID: "fld-1", OwnerID: "alice"}, domain.ChangeCreated))

	e := receive(t, c)
	assert.Equal(t, EventFolderChanged, e.Type)
}

func TestManager_DisconnectClosesChannels(t *testing.T) {
	m, cancel := newTestManager(t)
	defer cancel()

	c, err := m.Connect("alice")
	require.NoError(t, err)
	assert.Equal(t, 1, m.ClientCount())

	m.Disconnect(c.ID)
	m.Disconnect(c.ID) // second call is a no-op

	assert.Equal(t, 0, m.ClientCount())
	_, ok := <-c.EventChan
	assert.False(t, ok)
}

func TestManager_ShutdownDropsLaterEvents(t *testing.T) {
	m, cancel := newTestManager(t)
	defer cancel()

	c, err := m.Connect("alice")
	require.NoError(t, err)

	ctx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()
	require.NoError(t, m.Shutdown(ctx))
	require.NoError(t, m.Shutdown(ctx))

	assert.NotPanics(t, func() {
		m.Emit(NewFavoriteChangedEvent("alice", "l1", true))
	})

	select {
	case <-c.Done:
	case <-time.After(time.Second):
		t.Fatal("client not closed on shutdown")
	}
}

func TestNewAssignmentChangedEvent_CopiesFolderID(t *testing.T) {
	folder := "fld-1"
	e := NewAssignmentChangedEvent("alice", "l1", &folder)
	folder = "changed"

	data, ok := e.Data.(AssignmentChangedData)
	require.True(t, ok)
	require.NotNil(t, data.FolderID)
	assert.Equal(t, "fld-1", *data.FolderID)
	assert.Equal(t, "alice", e.OwnerID)
}

func TestHandler_RejectsAnonymous(t *testing.T) {
	m, cancel := newTestManager(t)
	defer cancel()

	h := NewHandler(m, slog.New(slog.DiscardHandler), func(*http.Request) string { return "" })
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_RejectsNonGet(t *testing.T) {
	m, cancel := newTestManager(t)
	defer cancel()

	h := NewHandler(m, slog.New(slog.DiscardHandler), func(*http.Request) string { return "alice" })
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/events", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_StreamsOwnerEvents(t *testing.T) {
	m, cancel := newTestManager(t)
	defer cancel()

	h := NewHandler(m, slog.New(slog.DiscardHandler), func(*http.Request) string { return "alice" })
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readFrame := func() string {
		var b strings.Builder
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if line == "\n" {
				return b.String()
			}
			b.WriteString(line)
		}
	}

	assert.Contains(t, readFrame(), "event: connected")

	m.Emit(NewFavoriteChangedEvent("alice", "l42", true))
	frame := readFrame()
	assert.Contains(t, frame, "event: favorite.changed")
	assert.Contains(t, frame, `"listing_id":"l42"`)
}

func TestManager_CountsStreamsPerOwner(t *testing.T) {
	m, cancel := newTestManager(t)
	defer cancel()

	a1, err := m.Connect("alice")
	require.NoError(t, err)
	_, err = m.Connect("alice")
	require.NoError(t, err)
	_, err = m.Connect("bob")
	require.NoError(t, err)

	assert.Equal(t, 3, m.ClientCount())
	assert.Equal(t, 2, m.OwnerClientCount("alice"))
	assert.Equal(t, 1, m.OwnerClientCount("bob"))

	m.Disconnect(a1.ID)
	assert.Equal(t, 1, m.OwnerClientCount("alice"))
	assert.Equal(t, 0, m.OwnerClientCount("carol"))
}

func TestManager_HeartbeatReachesEveryone(t *testing.T) {
	m := NewManager(slog.New(slog.DiscardHandler))
	m.beat = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	alice, err := m.Connect("alice")
	require.NoError(t, err)
	bob, err := m.Connect("bob")
	require.NoError(t, err)

	assert.Equal(t, EventHeartbeat, receive(t, alice).Type)
	assert.Equal(t, EventHeartbeat, receive(t, bob).Type)
}

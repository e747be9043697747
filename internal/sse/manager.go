package sse

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hermanshu/targ-site-sub000/internal/id"
)

const (
	queueSize         = 1000
	clientBufferSize  = 100
	heartbeatInterval = 30 * time.Second
)

// Client is one open event stream of an owner.
type Client struct {
	ConnectedAt time.Time
	EventChan   chan Event
	Done        chan struct{}
	ID          string
	OwnerID     string
}

// Manager fans events out to connected clients. Clients are indexed by
// owner: an owner-scoped event reaches only that owner's streams, a
// heartbeat reaches every stream.
type Manager struct {
	mu      sync.RWMutex
	owners  map[string]map[string]*Client // owner ID -> client ID -> client
	ownerOf map[string]string             // client ID -> owner ID

	queue  chan Event
	logger *slog.Logger
	wg     sync.WaitGroup
	beat   time.Duration

	closeMu sync.RWMutex
	closed  bool
}

// NewManager creates a Manager. Call Start to begin delivery.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		owners:  make(map[string]map[string]*Client),
		ownerOf: make(map[string]string),
		queue:   make(chan Event, queueSize),
		logger:  logger,
		beat:    heartbeatInterval,
	}
}

// Start delivers queued events until ctx is cancelled or Shutdown is called.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	defer m.wg.Done()

	m.logger.Info("event stream manager starting")

	ticker := time.NewTicker(m.beat)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-m.queue:
			if !ok {
				m.dropAll()
				return
			}
			m.deliver(event)

		case <-ticker.C:
			m.deliver(NewHeartbeatEvent())

		case <-ctx.Done():
			m.logger.Info("event stream manager stopping")
			m.dropAll()
			return
		}
	}
}

// Shutdown stops accepting events, waits for the queue to drain (bounded
// by ctx) and closes every client.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.closeMu.Lock()
	if m.closed {
		m.closeMu.Unlock()
		return nil
	}
	m.closed = true
	close(m.queue)
	m.closeMu.Unlock()

	drained := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		m.logger.Warn("event queue not drained before shutdown deadline")
	}

	// Start may never have run.
	m.dropAll()

	m.logger.Info("event stream manager stopped")
	return nil
}

// Emit queues event for delivery. It never blocks: values that are not an
// Event, events emitted after Shutdown and events arriving while the queue
// is full are dropped.
func (m *Manager) Emit(event any) {
	evt, ok := event.(Event)
	if !ok {
		m.logger.Error("ignoring value that is not an event")
		return
	}

	m.closeMu.RLock()
	defer m.closeMu.RUnlock()
	if m.closed {
		return
	}

	select {
	case m.queue <- evt:
	default:
		m.logger.Error("event queue full, dropping event",
			slog.String("event_type", string(evt.Type)),
			slog.String("owner_id", evt.OwnerID))
	}
}

func (m *Manager) deliver(event Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if event.OwnerID == "" {
		for _, clients := range m.owners {
			m.send(clients, event)
		}
		return
	}

	sent, dropped := m.send(m.owners[event.OwnerID], event)
	m.logger.Debug("event delivered",
		slog.String("event_type", string(event.Type)),
		slog.String("owner_id", event.OwnerID),
		slog.Int("sent", sent),
		slog.Int("dropped", dropped))
}

// send offers event to each client without blocking; a client whose buffer
// is full misses the event.
func (m *Manager) send(clients map[string]*Client, event Event) (sent, dropped int) {
	for _, c := range clients {
		select {
		case c.EventChan <- event:
			sent++
		default:
			dropped++
			m.logger.Warn("client buffer full, event dropped",
				slog.String("client_id", c.ID),
				slog.String("event_type", string(event.Type)))
		}
	}
	return sent, dropped
}

// Connect registers a stream for ownerID.
func (m *Manager) Connect(ownerID string) (*Client, error) {
	clientID, err := id.Generate("sse")
	if err != nil {
		return nil, err
	}

	c := &Client{
		ID:          clientID,
		OwnerID:     ownerID,
		EventChan:   make(chan Event, clientBufferSize),
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}

	m.mu.Lock()
	clients := m.owners[ownerID]
	if clients == nil {
		clients = make(map[string]*Client)
		m.owners[ownerID] = clients
	}
	clients[clientID] = c
	m.ownerOf[clientID] = ownerID
	streams := len(clients)
	m.mu.Unlock()

	m.logger.Info("event stream opened",
		slog.String("client_id", clientID),
		slog.String("owner_id", ownerID),
		slog.Int("owner_streams", streams))
	return c, nil
}

// Disconnect removes a client and closes its channels. Unknown IDs are
// ignored.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	ownerID, ok := m.ownerOf[clientID]
	if !ok {
		m.mu.Unlock()
		return
	}
	c := m.owners[ownerID][clientID]
	delete(m.ownerOf, clientID)
	delete(m.owners[ownerID], clientID)
	if len(m.owners[ownerID]) == 0 {
		delete(m.owners, ownerID)
	}
	m.mu.Unlock()

	close(c.Done)
	close(c.EventChan)

	m.logger.Info("event stream closed",
		slog.String("client_id", clientID),
		slog.String("owner_id", ownerID),
		slog.Duration("duration", time.Since(c.ConnectedAt)))
}

// ClientCount returns the number of open streams.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ownerOf)
}

// OwnerClientCount returns the number of open streams of ownerID.
func (m *Manager) OwnerClientCount(ownerID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.owners[ownerID])
}

func (m *Manager) dropAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, clients := range m.owners {
		for _, c := range clients {
			close(c.Done)
			close(c.EventChan)
		}
	}
	m.owners = make(map[string]map[string]*Client)
	m.ownerOf = make(map[string]string)
}

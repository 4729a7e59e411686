package connection

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client represents a connected websocket peer
type Client struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	GameIDs []string // Games the client is watching
}

type request struct {
	client *Client
	ack    chan struct{}
}

// Manager handles all client connections. Registration happens on the
// goroutine running Start.
type Manager struct {
	clients    map[string]*Client
	register   chan request
	unregister chan request
	done       chan struct{}
	stopOnce   sync.Once
	mutex      sync.RWMutex
	log        *zap.SugaredLogger
}

// NewManager creates a new connection manager
func NewManager(log *zap.SugaredLogger) *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		register:   make(chan request),
		unregister: make(chan request),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Start processes registrations until Stop is called
func (m *Manager) Start() {
	for {
		select {
		case req := <-m.register:
			m.mutex.Lock()
			m.clients[req.client.ID] = req.client
			m.mutex.Unlock()
			close(req.ack)
			m.log.Debugw("client registered", "clientID", req.client.ID)
		case req := <-m.unregister:
			m.mutex.Lock()
			if _, ok := m.clients[req.client.ID]; ok {
				delete(m.clients, req.client.ID)
				close(req.client.Send)
			}
			m.mutex.Unlock()
			close(req.ack)
			m.log.Debugw("client unregistered", "clientID", req.client.ID)
		case <-m.done:
			m.mutex.Lock()
			for id, client := range m.clients {
				delete(m.clients, id)
				close(client.Send)
			}
			m.mutex.Unlock()
			return
		}
	}
}

// Stop ends Start and closes every client's send channel
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}

// Join registers a client and waits until it can receive messages. It
// returns false once the manager has stopped.
func (m *Manager) Join(client *Client) bool {
	return m.send(m.register, client)
}

// Leave unregisters a client and closes its send channel
func (m *Manager) Leave(client *Client) {
	m.send(m.unregister, client)
}

func (m *Manager) send(ch chan request, client *Client) bool {
	req := request{client: client, ack: make(chan struct{})}
	select {
	case ch <- req:
	case <-m.done:
		return false
	}
	select {
	case <-req.ack:
		return true
	case <-m.done:
		return false
	}
}

// Count returns the number of connected clients
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients)
}

// SendToClient sends a message to one client
func (m *Manager) SendToClient(clientID string, message []byte) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if client, ok := m.clients[clientID]; ok {
		return m.enqueue(client, message)
	}
	return false
}

// SendToGame sends a message to all clients watching a game
func (m *Manager) SendToGame(gameID string, message []byte) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	sent := 0
	for _, client := range m.clients {
		for _, id := range client.GameIDs {
			if id == gameID {
				if m.enqueue(client, message) {
					sent++
				}
				break
			}
		}
	}
	return sent
}

// enqueue drops the message rather than block on a client that stopped reading.
func (m *Manager) enqueue(client *Client, message []byte) bool {
	select {
	case client.Send <- message:
		return true
	default:
		m.log.Warnw("client send buffer full, dropping message", "clientID", client.ID)
		return false
	}
}

// WatchGame adds a game ID to a client's games
func (m *Manager) WatchGame(clientID string, gameID string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if client, ok := m.clients[clientID]; ok {
		for _, id := range client.GameIDs {
			if id == gameID {
				return true
			}
		}
		client.GameIDs = append(client.GameIDs, gameID)
		return true
	}
	return false
}

// UnwatchGame removes a game ID from a client's games
func (m *Manager) UnwatchGame(clientID string, gameID string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if client, ok := m.clients[clientID]; ok {
		for i, id := range client.GameIDs {
			if id == gameID {
				client.GameIDs = append(client.GameIDs[:i], client.GameIDs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// IsWatching checks if a client is watching a specific game
func (m *Manager) IsWatching(clientID string, gameID string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if client, ok := m.clients[clientID]; ok {
		for _, id := range client.GameIDs {
			if id == gameID {
				return true
			}
		}
	}
	return false
}

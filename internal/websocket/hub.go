package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"qgo-dispatch/internal/mirror"
	"qgo-dispatch/internal/models"
	"qgo-dispatch/internal/session"
	"qgo-dispatch/internal/views"

	log "github.com/sirupsen/logrus"
)

// StateSource is the mirror the hub renders views from
type StateSource interface {
	State() *mirror.State
}

// LocationUpdater records driver location pings
type LocationUpdater interface {
	UpdateDriverLocation(ctx context.Context, driverID string, loc models.Location) error
}

// Envelope is every server to client message
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Hub maintains active WebSocket connections and pushes each one the view
// of its session whenever the mirrored state changes
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client

	// Latest unsent state; older ones are dropped
	states chan *mirror.State
	done   chan struct{}

	source    StateSource
	locations LocationUpdater

	mu sync.RWMutex
}

func NewHub(source StateSource, locations LocationUpdater) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		states:     make(chan *mirror.State, 1),
		done:       make(chan struct{}),
		source:     source,
		locations:  locations,
	}
}

// Run starts the hub's main loop; it returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.close()
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.WithFields(log.Fields{
				"device_id": client.DeviceID,
				"role":      client.Session.Role(),
			}).Printf("✅ [WEBSOCKET] Client CONNECTED (total: %d)", total)
			h.push(client, h.source.State())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
				log.WithField("device_id", client.DeviceID).
					Printf("🔴 [WEBSOCKET] Client DISCONNECTED (remaining: %d)", len(h.clients))
			}
			h.mu.Unlock()

		case state := <-h.states:
			h.mu.RLock()
			for client := range h.clients {
				h.push(client, state)
			}
			h.mu.RUnlock()
		}
	}
}

// Publish queues state for every client. It never blocks, so it is safe to
// call from a mirror listener.
func (h *Hub) Publish(state *mirror.State) {
	for {
		select {
		case h.states <- state:
			return
		default:
		}
		select {
		case <-h.states:
		default:
		}
	}
}

func (h *Hub) push(client *Client, state *mirror.State) {
	data, err := json.Marshal(Envelope{Type: "snapshot", Data: views.Build(client.Session, state)})
	if err != nil {
		log.Printf("❌ Failed to marshal snapshot: %v", err)
		return
	}
	client.trySend(data)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CountByRole returns the number of connected clients with role
func (h *Hub) CountByRole(role session.Role) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for client := range h.clients {
		if client.Session.Role() == role {
			n++
		}
	}
	return n
}

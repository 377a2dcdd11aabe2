package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"qgo-dispatch/internal/models"
	"qgo-dispatch/internal/session"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 2048

	sendBuffer = 16

	// pong and error replies; they never displace snapshots
	controlBuffer = 8
)

// Client is one browser connection
type Client struct {
	ID       string
	DeviceID string
	Session  session.Session
	conn     *websocket.Conn
	hub      *Hub
	send     chan []byte
	control  chan []byte

	mu     sync.Mutex
	closed bool
}

// IncomingMessage represents a message from the client
type IncomingMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func NewClient(sess session.Session, deviceID string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		ID:       uuid.NewString(),
		DeviceID: deviceID,
		Session:  sess,
		conn:     conn,
		hub:      hub,
		send:     make(chan []byte, sendBuffer),
		control:  make(chan []byte, controlBuffer),
	}
}

// trySend queues a snapshot. A client that cannot keep up loses its oldest
// queued snapshot; every snapshot is complete so nothing is lost for good.
func (c *Client) trySend(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for i := 0; i < 2; i++ {
		select {
		case c.send <- data:
			return
		default:
		}
		select {
		case <-c.send:
		default:
		}
	}
	log.WithField("client_id", c.ID).Println("⚠️ Client buffer full, dropping message")
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg IncomingMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Invalid message format: %v", err)
			continue
		}

		switch msg.Type {
		case "ping":
			c.reply(Envelope{Type: "pong", Data: map[string]string{"timestamp": time.Now().Format(time.RFC3339)}})

		case "location_update":
			c.handleLocationUpdate(msg.Data)

		default:
			c.reply(Envelope{Type: "error", Data: "unknown message type " + msg.Type})
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case message := <-c.control:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) reply(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.control <- data:
	default:
		log.WithField("client_id", c.ID).Debugf("Control queue full, dropping %s", env.Type)
	}
}

// handleLocationUpdate forwards a driver's GPS fix to the store
func (c *Client) handleLocationUpdate(raw json.RawMessage) {
	driver, ok := c.Session.(session.Driver)
	if !ok {
		c.reply(Envelope{Type: "error", Data: "only drivers report locations"})
		return
	}

	var loc models.Location
	if err := json.Unmarshal(raw, &loc); err != nil {
		log.WithField("driver_id", driver.ID).Printf("❌ Invalid location update: %v", err)
		c.reply(Envelope{Type: "error", Data: "invalid location"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := c.hub.locations.UpdateDriverLocation(ctx, driver.ID, loc); err != nil {
		log.WithField("driver_id", driver.ID).Printf("❌ Error saving location: %v", err)
		c.reply(Envelope{Type: "error", Data: err.Error()})
		return
	}
	log.WithField("driver_id", driver.ID).Debugf("📍 Location updated %.5f,%.5f", loc.Lat, loc.Lng)
}

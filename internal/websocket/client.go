package websocket

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeWait is the time allowed for a single write to the peer.
	writeWait = 10 * time.Second

	// pongWait is how long the connection survives without a pong or
	// heartbeat from the peer.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait so pings go out before
	// the read deadline expires.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds inbound frames. Dashboards only ever send
	// small heartbeat payloads.
	maxMessageSize = 512
)

// Client is a single dashboard connection managed by the hub.
type Client struct {
	hub  *Hub
	conn Connection
	send chan []byte

	id          string
	remoteAddr  string
	connectedAt time.Time
	logger      *slog.Logger
}

// NewClient wraps a live gorilla connection.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return NewClientWithConnection(hub, newGorillaConn(conn))
}

// NewClientWithConnection builds a client over any Connection
// implementation. Tests use this with a mock connection.
func NewClientWithConnection(hub *Hub, conn Connection) *Client {
	id := uuid.New().String()
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, 256),
		id:          id,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		logger:      hub.logger.With(slog.String("client_id", id)),
	}
}

// ReadPump drains inbound frames until the peer goes away. Dashboards
// only ever send heartbeats; anything else is ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.logger.Warn("unexpected close", slog.String("error", err.Error()))
			}
			return
		}
		c.hub.counters.RecordMessageReceived(len(message))

		var inbound struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(bytes.TrimSpace(message), &inbound); err != nil {
			continue
		}
		if inbound.Type == "heartbeat" {
			c.conn.SetReadDeadline(time.Now().Add(pongWait))
		}
	}
}

// WritePump forwards hub messages to the peer and keeps the connection
// alive with pings. Gorilla allows at most one concurrent writer, so all
// writes funnel through this goroutine.
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
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("write failed", slog.String("error", err.Error()))
				return
			}
			c.hub.counters.RecordMessageSent(len(message))

			// Flush anything queued behind the first frame.
			for i := len(c.send); i > 0; i-- {
				queued := <-c.send
				if err := c.conn.WriteMessage(websocket.TextMessage, queued); err != nil {
					return
				}
				c.hub.counters.RecordMessageSent(len(queued))
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS registers an upgraded connection with the hub and starts its
// pumps.
func ServeWS(hub *Hub, conn *websocket.Conn) {
	client := NewClient(hub, conn)
	hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

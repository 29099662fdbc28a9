package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"pollpulse/internal/infrastructure"
)

// Message type, subtype, and action values understood by the dashboard.
const (
	TypeConnection = "connection"
	TypeDataUpdate = "data_update"

	SubtypeDataset = "dataset"
	SubtypeAll     = "all"

	ActionRefresh = "refresh"
)

// metricsInterval is how often the hub logs its activity counters.
const metricsInterval = 30 * time.Second

// Message is the JSON envelope pushed to connected dashboards.
type Message struct {
	Type      string      `json:"type"`
	Subtype   string      `json:"subtype,omitempty"`
	Action    string      `json:"action,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// Hub owns the set of connected dashboard clients and fans broadcast
// messages out to them. All channel traffic is serviced by a single Run
// goroutine; the clients map is additionally guarded by mu so that
// ClientCount can be read from any goroutine.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu       sync.RWMutex
	logger   *slog.Logger
	counters *Metrics

	quit    chan struct{}
	running bool
}

// NewHub creates a hub. The hub does nothing until Start is called.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		counters:   NewMetrics(),
		quit:       make(chan struct{}),
	}
}

// Start launches the hub loop and the periodic metrics reporter. Starting
// an already-running hub is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
	go h.reportMetrics()
	h.logger.Info("hub started")
}

// Stop shuts the hub down and closes every client send channel.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()
	close(h.quit)
}

// Run services the hub channels until Stop is called. Start runs this on
// its own goroutine; it is exported so callers that want to own the
// goroutine themselves can.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.fanOut(message)
		case <-h.quit:
			h.closeAll()
			return
		}
	}
}

// Register queues a client for registration with the hub loop.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastUpdate pushes a typed event to every connected dashboard.
func (h *Hub) BroadcastUpdate(updateType, subtype, action string, data interface{}) {
	h.broadcastMessage(Message{
		Type:      updateType,
		Subtype:   subtype,
		Action:    action,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

// BroadcastRefresh tells every dashboard to re-query the data endpoints.
func (h *Hub) BroadcastRefresh() {
	h.BroadcastUpdate(TypeDataUpdate, SubtypeAll, ActionRefresh, nil)
}

func (h *Hub) broadcastMessage(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("broadcast marshal failed",
			slog.String("type", msg.Type),
			slog.String("error", err.Error()))
		return
	}

	h.counters.RecordQueueDepth(len(h.broadcast))
	if m := GetOTelMetrics(); m != nil {
		m.RecordBroadcast(context.Background(), msg.Type, h.ClientCount())
	}

	select {
	case h.broadcast <- payload:
	default:
		h.counters.RecordDroppedMessage()
		if m := GetOTelMetrics(); m != nil {
			m.RecordDroppedMessage(context.Background())
		}
		h.logger.Warn("broadcast queue full, message dropped",
			slog.String("type", msg.Type))
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.counters.RecordConnection()
	if m := GetOTelMetrics(); m != nil {
		m.RecordConnection(context.Background())
	}

	h.logger.Info("client connected",
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr),
		slog.Int("clients", count))

	welcome, err := json.Marshal(Message{
		Type: TypeConnection,
		Data: map[string]string{
			"message":   "Connected to Poll Pulse",
			"client_id": client.id,
		},
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}
	select {
	case client.send <- welcome:
	default:
		h.logger.Warn("welcome message dropped", slog.String("client_id", client.id))
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	_, known := h.clients[client]
	if known {
		delete(h.clients, client)
	}
	count := len(h.clients)
	h.mu.Unlock()

	// Unregister fires from both pumps; only the first one wins.
	if !known {
		return
	}

	close(client.send)
	h.counters.RecordDisconnection()
	if m := GetOTelMetrics(); m != nil {
		m.RecordDisconnection(context.Background(), time.Since(client.connectedAt))
	}

	h.logger.Info("client disconnected",
		slog.String("client_id", client.id),
		slog.Duration("connected_for", time.Since(client.connectedAt)),
		slog.Int("clients", count))
}

func (h *Hub) fanOut(message []byte) {
	h.mu.Lock()
	var stalled []*Client
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			// A full send buffer means the client stopped draining; cut
			// it loose rather than stall every other dashboard.
			stalled = append(stalled, client)
		}
	}
	for _, client := range stalled {
		delete(h.clients, client)
	}
	h.mu.Unlock()

	for _, client := range stalled {
		close(client.send)
		h.counters.RecordDroppedMessage()
		h.counters.RecordDisconnection()
		if m := GetOTelMetrics(); m != nil {
			m.RecordDroppedMessage(context.Background())
			m.RecordDisconnection(context.Background(), time.Since(client.connectedAt))
		}
		h.logger.Warn("dropped stalled client",
			slog.String("client_id", client.id),
			slog.String("remote_addr", client.remoteAddr))
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
	h.logger.Info("hub stopped")
}

// reportMetrics logs activity counters periodically so hub health shows
// up in the operational log stream without a scrape.
func (h *Hub) reportMetrics() {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			snap := h.counters.Snapshot()
			if snap.ConnectionsTotal == 0 && snap.MessagesSent == 0 {
				continue
			}
			h.logger.Info("hub metrics",
				slog.Int("clients", h.ClientCount()),
				slog.Int64("connections_total", snap.ConnectionsTotal),
				slog.Int64("messages_sent", snap.MessagesSent),
				slog.Int64("messages_received", snap.MessagesReceived),
				slog.Int64("messages_dropped", snap.DroppedMessages))
		case <-h.quit:
			return
		}
	}
}

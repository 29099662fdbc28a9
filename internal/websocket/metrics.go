package websocket

import (
	"sync"
	"time"
)

// Metrics tracks hub activity counters. One instance is shared by a hub
// and its clients; all methods are safe for concurrent use.
type Metrics struct {
	mu sync.RWMutex

	connectionsTotal  int64
	connectionsActive int64
	connectionsPeak   int64

	messagesSent     int64
	messagesReceived int64
	bytesSent        int64
	bytesReceived    int64

	droppedMessages int64
	queueDepthMax   int

	since time.Time
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	ConnectionsTotal  int64 `json:"connections_total"`
	ConnectionsActive int64 `json:"connections_active"`
	ConnectionsPeak   int64 `json:"connections_peak"`

	MessagesSent     int64 `json:"messages_sent"`
	MessagesReceived int64 `json:"messages_received"`
	BytesSent        int64 `json:"bytes_sent"`
	BytesReceived    int64 `json:"bytes_received"`

	DroppedMessages int64 `json:"dropped_messages"`
	QueueDepthMax   int   `json:"queue_depth_max"`

	Since time.Time `json:"since"`
}

// NewMetrics creates a zeroed counter set.
func NewMetrics() *Metrics {
	return &Metrics{since: time.Now()}
}

// RecordConnection counts a client joining the hub.
func (m *Metrics) RecordConnection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectionsTotal++
	m.connectionsActive++
	if m.connectionsActive > m.connectionsPeak {
		m.connectionsPeak = m.connectionsActive
	}
}

// RecordDisconnection counts a client leaving the hub.
func (m *Metrics) RecordDisconnection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connectionsActive > 0 {
		m.connectionsActive--
	}
}

// RecordMessageSent counts one outbound frame of the given size.
func (m *Metrics) RecordMessageSent(bytes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesSent++
	m.bytesSent += int64(bytes)
}

// RecordMessageReceived counts one inbound frame of the given size.
func (m *Metrics) RecordMessageReceived(bytes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesReceived++
	m.bytesReceived += int64(bytes)
}

// RecordDroppedMessage counts a frame discarded because a queue was full.
func (m *Metrics) RecordDroppedMessage() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.droppedMessages++
}

// RecordQueueDepth tracks the high-water mark of the broadcast queue.
func (m *Metrics) RecordQueueDepth(depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if depth > m.queueDepthMax {
		m.queueDepthMax = depth
	}
}

// Snapshot returns a consistent copy of the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MetricsSnapshot{
		ConnectionsTotal:  m.connectionsTotal,
		ConnectionsActive: m.connectionsActive,
		ConnectionsPeak:   m.connectionsPeak,
		MessagesSent:      m.messagesSent,
		MessagesReceived:  m.messagesReceived,
		BytesSent:         m.bytesSent,
		BytesReceived:     m.bytesReceived,
		DroppedMessages:   m.droppedMessages,
		QueueDepthMax:     m.queueDepthMax,
		Since:             m.since,
	}
}

// Reset zeroes every counter and restarts the measurement window.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectionsTotal = 0
	m.connectionsActive = 0
	m.connectionsPeak = 0
	m.messagesSent = 0
	m.messagesReceived = 0
	m.bytesSent = 0
	m.bytesReceived = 0
	m.droppedMessages = 0
	m.queueDepthMax = 0
	m.since = time.Now()
}

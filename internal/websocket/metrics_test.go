package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_ConnectionLifecycle(t *testing.T) {
	m := NewMetrics()
	m.RecordConnection()
	m.RecordConnection()
	m.RecordDisconnection()

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.ConnectionsTotal)
	assert.Equal(t, int64(1), snap.ConnectionsActive)
	assert.Equal(t, int64(2), snap.ConnectionsPeak)

	// Active never goes negative even when disconnects outnumber
	// connects, which happens when a stalled client is dropped and its
	// read pump unregisters again.
	m.RecordDisconnection()
	m.RecordDisconnection()
	assert.Equal(t, int64(0), m.Snapshot().ConnectionsActive)
}

func TestMetrics_MessageCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordMessageSent(100)
	m.RecordMessageSent(50)
	m.RecordMessageReceived(20)
	m.RecordDroppedMessage()
	m.RecordQueueDepth(3)
	m.RecordQueueDepth(1)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.MessagesSent)
	assert.Equal(t, int64(150), snap.BytesSent)
	assert.Equal(t, int64(1), snap.MessagesReceived)
	assert.Equal(t, int64(20), snap.BytesReceived)
	assert.Equal(t, int64(1), snap.DroppedMessages)
	assert.Equal(t, 3, snap.QueueDepthMax)
}

func TestMetrics_Reset(t *testing.T) {
	m := NewMetrics()
	m.RecordConnection()
	m.RecordMessageSent(10)
	before := m.Snapshot().Since

	time.Sleep(time.Millisecond)
	m.Reset()

	snap := m.Snapshot()
	assert.Zero(t, snap.ConnectionsTotal)
	assert.Zero(t, snap.MessagesSent)
	assert.Zero(t, snap.BytesSent)
	assert.True(t, snap.Since.After(before))
}

package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pollpulse/internal/shared/testutil"
)

func newRunningHub(t *testing.T) *Hub {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub
}

func registerClient(t *testing.T, hub *Hub) *Client {
	t.Helper()
	client := NewClientWithConnection(hub, NewMockConnection())
	hub.Register(client)
	welcome := nextMessage(t, client)
	require.Equal(t, TypeConnection, welcome.Type)
	return client
}

func nextMessage(t *testing.T, client *Client) Message {
	t.Helper()
	select {
	case raw, ok := <-client.send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for hub message")
	}
	return Message{}
}

func TestHub_WelcomesNewClient(t *testing.T) {
	hub := newRunningHub(t)

	client := NewClientWithConnection(hub, NewMockConnection())
	hub.Register(client)

	welcome := nextMessage(t, client)
	assert.Equal(t, TypeConnection, welcome.Type)
	assert.NotZero(t, welcome.Timestamp)

	data, ok := welcome.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Connected to Poll Pulse", data["message"])
	assert.NotEmpty(t, data["client_id"])
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_BroadcastUpdateReachesEveryClient(t *testing.T) {
	hub := newRunningHub(t)
	first := registerClient(t, hub)
	second := registerClient(t, hub)

	hub.BroadcastUpdate(TypeDataUpdate, SubtypeDataset, ActionRefresh, map[string]int{"rows": 6})

	for _, client := range []*Client{first, second} {
		msg := nextMessage(t, client)
		assert.Equal(t, TypeDataUpdate, msg.Type)
		assert.Equal(t, SubtypeDataset, msg.Subtype)
		assert.Equal(t, ActionRefresh, msg.Action)
		assert.NotZero(t, msg.Timestamp)

		data, ok := msg.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(6), data["rows"])
	}
}

func TestHub_BroadcastRefresh(t *testing.T) {
	hub := newRunningHub(t)
	client := registerClient(t, hub)

	hub.BroadcastRefresh()

	msg := nextMessage(t, client)
	assert.Equal(t, TypeDataUpdate, msg.Type)
	assert.Equal(t, SubtypeAll, msg.Subtype)
	assert.Equal(t, ActionRefresh, msg.Action)
	assert.Nil(t, msg.Data)
}

func TestHub_UnregisterClosesSendChannel(t *testing.T) {
	hub := newRunningHub(t)
	client := registerClient(t, hub)

	hub.unregister <- client

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 },
		2*time.Second, 10*time.Millisecond)
	_, open := <-client.send
	assert.False(t, open)

	// Both pumps unregister on exit; the second must be a no-op.
	hub.unregister <- client
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_DropsStalledClient(t *testing.T) {
	hub := newRunningHub(t)

	// A client that never drains its queue.
	stalled := &Client{
		hub:  hub,
		conn: NewMockConnection(),
		send: make(chan []byte),
		id:   "stalled",
	}
	hub.Register(stalled)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	healthy := registerClient(t, hub)
	hub.BroadcastRefresh()

	msg := nextMessage(t, healthy)
	assert.Equal(t, TypeDataUpdate, msg.Type)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	snap := hub.counters.Snapshot()
	assert.GreaterOrEqual(t, snap.DroppedMessages, int64(1))
}

func TestHub_StopClosesClients(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)
	hub.Start()

	client := NewClientWithConnection(hub, NewMockConnection())
	hub.Register(client)
	nextMessage(t, client)

	hub.Stop()

	require.Eventually(t, func() bool {
		select {
		case _, open := <-client.send:
			return !open
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.ClientCount())

	// Stopping twice must not panic.
	hub.Stop()
}

func TestHub_StartIsIdempotent(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)
	hub.Start()
	hub.Start()
	t.Cleanup(hub.Stop)

	client := registerClient(t, hub)
	require.NotNil(t, client)
	assert.Equal(t, 1, hub.ClientCount())
}

package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConn(h *Hub, room, participantID string) *Connection {
	return &Connection{RoomCode: room, ParticipantID: participantID, Send: make(chan []byte, 8), Hub: h}
}

func receive(t *testing.T, c *Connection) Message {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		require.True(t, ok, "connection was closed")
		var m Message
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	case <-time.After(time.Second):
		t.Fatal("no message")
		return Message{}
	}
}

func assertSilent(t *testing.T, c *Connection) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected message %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func assertClosed(t *testing.T, c *Connection) {
	t.Helper()
	for {
		select {
		case _, ok := <-c.Send:
			if !ok {
				return
			}
		case <-time.After(time.Second):
			t.Fatal("connection still open")
		}
	}
}

func TestHubRouting(t *testing.T) {
	h := NewHub()
	defer h.Close()

	ana := newConn(h, "ABCDEF", "p1")
	bia := newConn(h, "ABCDEF", "p2")
	watcher := newConn(h, "ABCDEF", "")
	other := newConn(h, "GHJKLM", "p9")
	for _, c := range []*Connection{ana, bia, watcher, other} {
		h.Register(c)
	}

	h.BroadcastToPlayer("ABCDEF", "p1", "state", map[string]string{"for": "ana"})
	m := receive(t, ana)
	assert.Equal(t, "state", m.Type)
	assert.JSONEq(t, `{"for":"ana"}`, string(m.Payload))
	assertSilent(t, bia)

	h.BroadcastToSpectators("ABCDEF", "state", "public")
	assert.Equal(t, "state", receive(t, watcher).Type)
	assertSilent(t, ana)

	h.BroadcastToAll("ABCDEF", "vote_result", 1)
	for _, c := range []*Connection{ana, bia, watcher} {
		assert.Equal(t, "vote_result", receive(t, c).Type)
	}
	assertSilent(t, other)
	assert.Equal(t, 3, h.Count("ABCDEF"))
}

func TestHubDisconnectFollowsMessage(t *testing.T) {
	h := NewHub()
	defer h.Close()

	ana := newConn(h, "ABCDEF", "p1")
	bia := newConn(h, "ABCDEF", "p2")
	h.Register(ana)
	h.Register(bia)

	h.BroadcastToPlayer("ABCDEF", "p2", "kicked", nil)
	h.DisconnectPlayer("ABCDEF", "p2")

	assert.Equal(t, "kicked", receive(t, bia).Type)
	assertClosed(t, bia)
	assert.Eventually(t, func() bool { return h.Count("ABCDEF") == 1 }, time.Second, 10*time.Millisecond)

	h.BroadcastToAll("ABCDEF", "room_closed", nil)
	h.DisconnectRoom("ABCDEF")
	assert.Equal(t, "room_closed", receive(t, ana).Type)
	assertClosed(t, ana)
	assert.Eventually(t, func() bool { return h.Count("ABCDEF") == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubNewerConnectionReplacesOlder(t *testing.T) {
	h := NewHub()
	defer h.Close()

	first := newConn(h, "ABCDEF", "p1")
	second := newConn(h, "ABCDEF", "p1")
	h.Register(first)
	h.Register(second)
	assertClosed(t, first)

	// the old connection's unregister must not drop the new one
	h.Unregister(first)
	h.BroadcastToPlayer("ABCDEF", "p1", "state", nil)
	assert.Equal(t, "state", receive(t, second).Type)
	assert.Equal(t, 1, h.Count("ABCDEF"))
}

func TestHubSendToSingleConnection(t *testing.T) {
	h := NewHub()
	defer h.Close()

	a := newConn(h, "ABCDEF", "")
	b := newConn(h, "ABCDEF", "")
	h.Register(a)
	h.Register(b)

	h.SendTo(a, "ack", "ok")
	assert.Equal(t, "ack", receive(t, a).Type)
	assertSilent(t, b)

	h.Unregister(a)
	assertClosed(t, a)
	h.SendTo(a, "ack", "late")
	h.BroadcastToSpectators("ABCDEF", "state", nil)
	assert.Equal(t, "state", receive(t, b).Type)
}

func TestHubCloseClosesEveryone(t *testing.T) {
	h := NewHub()
	a := newConn(h, "ABCDEF", "p1")
	b := newConn(h, "GHJKLM", "")
	h.Register(a)
	h.Register(b)

	h.Close()
	assertClosed(t, a)
	assertClosed(t, b)

	// registering after close just closes the connection
	late := newConn(h, "ABCDEF", "p2")
	h.Register(late)
	assertClosed(t, late)
}

package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages WebSocket connections for rooms. Participants have at most one
// live connection each; spectators are anonymous.
type Hub struct {
	// roomCode -> participantID -> conn
	playerConns map[string]map[string]*Connection
	// roomCode -> set of spectator conns
	spectatorConns map[string]map[*Connection]struct{}

	mu sync.RWMutex

	// Channels for coordination
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
	done       chan struct{}
	closeOnce  sync.Once
}

// Connection represents a WebSocket connection
type Connection struct {
	RoomCode      string
	ParticipantID string // Empty for spectators
	Send          chan []byte
	Hub           *Hub
}

func (c *Connection) Spectator() bool {
	return c.ParticipantID == ""
}

type target int

const (
	toAll target = iota
	toPlayer
	toSpectators
	toConn
)

// BroadcastMessage is a queued delivery or disconnect. Both travel through
// one channel so a disconnect never overtakes the message announcing it.
type BroadcastMessage struct {
	RoomCode      string
	Target        target
	ParticipantID string
	Conn          *Connection
	Data          []byte
	Disconnect    bool
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		playerConns:    make(map[string]map[string]*Connection),
		spectatorConns: make(map[string]map[*Connection]struct{}),
		register:       make(chan *Connection),
		unregister:     make(chan *Connection),
		broadcast:      make(chan *BroadcastMessage, 256),
		done:           make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.add(conn)
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if h.remove(conn) {
				log.Debug().Str("room", conn.RoomCode).Str("participant", conn.ParticipantID).Msg("websocket disconnected")
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			h.deliver(msg)
			h.mu.Unlock()

		case <-h.done:
			h.mu.Lock()
			for _, players := range h.playerConns {
				for _, conn := range players {
					close(conn.Send)
				}
			}
			for _, specs := range h.spectatorConns {
				for conn := range specs {
					close(conn.Send)
				}
			}
			h.playerConns = map[string]map[string]*Connection{}
			h.spectatorConns = map[string]map[*Connection]struct{}{}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) add(conn *Connection) {
	if conn.Spectator() {
		if h.spectatorConns[conn.RoomCode] == nil {
			h.spectatorConns[conn.RoomCode] = make(map[*Connection]struct{})
		}
		h.spectatorConns[conn.RoomCode][conn] = struct{}{}
		log.Debug().Str("room", conn.RoomCode).Msg("spectator connected")
		return
	}
	if h.playerConns[conn.RoomCode] == nil {
		h.playerConns[conn.RoomCode] = make(map[string]*Connection)
	}
	// A newer tab replaces the older one.
	if old, ok := h.playerConns[conn.RoomCode][conn.ParticipantID]; ok {
		close(old.Send)
	}
	h.playerConns[conn.RoomCode][conn.ParticipantID] = conn
	log.Debug().Str("room", conn.RoomCode).Str("participant", conn.ParticipantID).Msg("participant connected")
}

// remove drops conn if it is still registered and closes its send channel.
func (h *Hub) remove(conn *Connection) bool {
	if conn.Spectator() {
		specs := h.spectatorConns[conn.RoomCode]
		if _, ok := specs[conn]; !ok {
			return false
		}
		delete(specs, conn)
		if len(specs) == 0 {
			delete(h.spectatorConns, conn.RoomCode)
		}
		close(conn.Send)
		return true
	}
	players := h.playerConns[conn.RoomCode]
	if existing, ok := players[conn.ParticipantID]; !ok || existing != conn {
		return false
	}
	delete(players, conn.ParticipantID)
	if len(players) == 0 {
		delete(h.playerConns, conn.RoomCode)
	}
	close(conn.Send)
	return true
}

func (h *Hub) targets(msg *BroadcastMessage) []*Connection {
	var conns []*Connection
	switch msg.Target {
	case toPlayer:
		if conn, ok := h.playerConns[msg.RoomCode][msg.ParticipantID]; ok {
			conns = append(conns, conn)
		}
	case toSpectators:
		for conn := range h.spectatorConns[msg.RoomCode] {
			conns = append(conns, conn)
		}
	case toConn:
		if h.registered(msg.Conn) {
			conns = append(conns, msg.Conn)
		}
	default:
		for _, conn := range h.playerConns[msg.RoomCode] {
			conns = append(conns, conn)
		}
		for conn := range h.spectatorConns[msg.RoomCode] {
			conns = append(conns, conn)
		}
	}
	return conns
}

func (h *Hub) registered(conn *Connection) bool {
	if conn.Spectator() {
		_, ok := h.spectatorConns[conn.RoomCode][conn]
		return ok
	}
	return h.playerConns[conn.RoomCode][conn.ParticipantID] == conn
}

func (h *Hub) deliver(msg *BroadcastMessage) {
	if msg.Data == nil && !msg.Disconnect {
		return
	}
	for _, conn := range h.targets(msg) {
		if msg.Disconnect {
			h.remove(conn)
			continue
		}
		select {
		case conn.Send <- msg.Data:
		default:
			// Drop message if buffer full
		}
	}
}

func (h *Hub) enqueue(msg *BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

func encode(msgType string, payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("type", msgType).Msg("failed to encode websocket payload")
		return nil
	}
	out, _ := json.Marshal(&Message{Type: msgType, Payload: data})
	return out
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		close(conn.Send)
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Close disconnects everyone and stops the hub.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// BroadcastToPlayer sends a message to one participant (implements service.Broadcaster)
func (h *Hub) BroadcastToPlayer(roomCode, participantID string, msgType string, payload interface{}) {
	h.enqueue(&BroadcastMessage{RoomCode: roomCode, Target: toPlayer, ParticipantID: participantID, Data: encode(msgType, payload)})
}

// BroadcastToSpectators sends a message to every spectator of a room (implements service.Broadcaster)
func (h *Hub) BroadcastToSpectators(roomCode string, msgType string, payload interface{}) {
	h.enqueue(&BroadcastMessage{RoomCode: roomCode, Target: toSpectators, Data: encode(msgType, payload)})
}

// BroadcastToAll sends a message to everyone watching a room (implements service.Broadcaster)
func (h *Hub) BroadcastToAll(roomCode string, msgType string, payload interface{}) {
	h.enqueue(&BroadcastMessage{RoomCode: roomCode, Target: toAll, Data: encode(msgType, payload)})
}

// SendTo replies on a single connection if it is still registered.
func (h *Hub) SendTo(conn *Connection, msgType string, payload interface{}) {
	h.enqueue(&BroadcastMessage{RoomCode: conn.RoomCode, Target: toConn, Conn: conn, Data: encode(msgType, payload)})
}

// DisconnectPlayer closes a participant's connection (implements service.Broadcaster)
func (h *Hub) DisconnectPlayer(roomCode, participantID string) {
	h.enqueue(&BroadcastMessage{RoomCode: roomCode, Target: toPlayer, ParticipantID: participantID, Disconnect: true})
}

// DisconnectRoom closes every connection of a room (implements service.Broadcaster)
func (h *Hub) DisconnectRoom(roomCode string) {
	h.enqueue(&BroadcastMessage{RoomCode: roomCode, Target: toAll, Disconnect: true})
}

// Count returns the number of live connections in a room.
func (h *Hub) Count(roomCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.playerConns[roomCode]) + len(h.spectatorConns[roomCode])
}

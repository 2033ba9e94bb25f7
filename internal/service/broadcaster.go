package service

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToPlayer(roomCode, participantID string, msgType string, payload interface{})
	BroadcastToSpectators(roomCode string, msgType string, payload interface{})
	BroadcastToAll(roomCode string, msgType string, payload interface{})
	DisconnectPlayer(roomCode, participantID string)
	DisconnectRoom(roomCode string)
}

// Server-to-client message types.
const (
	MsgState               = "state"
	MsgAutoDeleteCountdown = "auto_delete_countdown"
	MsgRoomClosed          = "room_closed"
	MsgNudge               = "nudge"
	MsgVoteResult          = "vote_result"
	MsgKicked              = "kicked"
	MsgError               = "error"
)

type CountdownPayload struct {
	SecondsRemaining int `json:"seconds_remaining"`
}

type RoomClosedPayload struct {
	Reason   string `json:"reason"`
	Redirect string `json:"redirect"`
}

type NudgePayload struct {
	From       string `json:"from"`
	Meter      int    `json:"meter"`
	ForcedSkip bool   `json:"forced_skip"`
}

type KickedPayload struct {
	Redirect string `json:"redirect"`
}

const (
	closeReasonClosed  = "closed"
	closeReasonExpired = "expired"
)

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastToPlayer(string, string, string, interface{}) {}
func (noopBroadcaster) BroadcastToSpectators(string, string, interface{}) {}
func (noopBroadcaster) BroadcastToAll(string, string, interface{}) {}
func (noopBroadcaster) DisconnectPlayer(string, string) {}
func (noopBroadcaster) DisconnectRoom(string) {}

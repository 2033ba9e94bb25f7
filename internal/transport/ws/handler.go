package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/kstielfps/VATImposter/internal/game"
	"github.com/kstielfps/VATImposter/internal/model"
	"github.com/kstielfps/VATImposter/internal/service"
	"github.com/kstielfps/VATImposter/internal/transport/apierr"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 2048
	actionTimeout  = 10 * time.Second
)

// Client-to-server message types.
const (
	ActStart       = "start"
	ActSubmitHint  = "submit_hint"
	ActSubmitVote  = "submit_vote"
	ActClownGuess  = "clown_guess"
	ActChaosPower  = "chaos_power"
	ActNudge       = "nudge"
	ActAckNudges   = "ack_nudges"
	ActRestart     = "restart"
	ActClose       = "close"
	ActKick        = "kick"
	ActConfigure   = "configure"
	ActGetState    = "get_state"
	msgActionReply = "ack"
)

// ClientMessage is what clients send. Payload depends on Type.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type targetPayload struct {
	TargetID string `json:"target_id"`
}

type hintPayload struct {
	Content string `json:"content"`
}

type errorPayload struct {
	apierr.Body
	Action string `json:"action,omitempty"`
}

type ackPayload struct {
	Action string      `json:"action"`
	Result interface{} `json:"result,omitempty"`
}

// Handler handles WebSocket connections
type Handler struct {
	hub            *Hub
	roomSvc        *service.RoomService
	gameSvc        *service.GameService
	allowedOrigins []string
	debug          bool
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, roomSvc *service.RoomService, gameSvc *service.GameService, allowedOrigins []string, debug bool) *Handler {
	return &Handler{
		hub:            hub,
		roomSvc:        roomSvc,
		gameSvc:        gameSvc,
		allowedOrigins: allowedOrigins,
		debug:          debug,
	}
}

func (h *Handler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(h.allowedOrigins) == 0 || slices.Contains(h.allowedOrigins, "*") {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(h.allowedOrigins, origin)
		},
	}
}

// Room handles GET /ws/{code}. With ?token= the caller joins as that
// participant, without it as a spectator.
func (h *Handler) Room(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	token := r.URL.Query().Get("token")

	var participantID string
	if token != "" {
		claims, err := h.roomSvc.Authenticate(code, token)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		participantID = claims.ParticipantID
	}

	snap, err := h.gameSvc.GetState(r.Context(), code, participantID, participantID == "")
	if err != nil {
		http.Error(w, err.Error(), apierr.Status(err))
		return
	}
	if participantID != "" && snap.Spectator {
		// Token outlived the participant (kicked, or room restarted elsewhere).
		http.Error(w, "not a participant of this room", http.StatusForbidden)
		return
	}

	wsConn, err := h.upgrader().Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("room", code).Msg("websocket upgrade failed")
		return
	}

	conn := &Connection{
		RoomCode:      code,
		ParticipantID: participantID,
		Send:          make(chan []byte, 256),
		Hub:           h.hub,
	}
	// Nobody else holds conn yet, so the first snapshot can go straight in.
	if data := encode(service.MsgState, snap); data != nil {
		conn.Send <- data
	}
	h.hub.Register(conn)

	log.Info().Str("room", code).Str("participant", participantID).Bool("spectator", conn.Spectator()).Msg("websocket connected")

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("room", conn.RoomCode).Msg("websocket read error")
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.replyError(conn, "", game.Validation("malformed message"))
			continue
		}
		h.dispatch(conn, msg)
	}
}

// dispatch runs one client action. State changes reach every viewer through
// the broadcaster; the sender also gets an ack or an error.
func (h *Handler) dispatch(conn *Connection, msg ClientMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	code, actor := conn.RoomCode, conn.ParticipantID
	if conn.Spectator() && msg.Type != ActGetState {
		h.replyError(conn, msg.Type, game.Unauthorized("spectators cannot act"))
		return
	}

	var (
		result interface{}
		err    error
	)
	switch msg.Type {
	case ActGetState:
		var snap *game.Snapshot
		snap, err = h.gameSvc.GetState(ctx, code, actor, conn.Spectator())
		if err == nil {
			h.hub.SendTo(conn, service.MsgState, snap)
			return
		}
	case ActStart:
		_, err = h.gameSvc.Start(ctx, code, actor)
	case ActSubmitHint:
		var p hintPayload
		if err = decode(msg.Payload, &p); err == nil {
			_, err = h.gameSvc.SubmitHint(ctx, code, actor, p.Content)
		}
	case ActSubmitVote:
		var p targetPayload
		if err = decode(msg.Payload, &p); err == nil {
			var res *service.VoteResult
			if res, err = h.gameSvc.SubmitVote(ctx, code, actor, p.TargetID); err == nil {
				result = res.Resolution
			}
		}
	case ActClownGuess:
		var p targetPayload
		if err = decode(msg.Payload, &p); err == nil {
			var res *service.GuessResult
			if res, err = h.gameSvc.SubmitClownGuess(ctx, code, actor, p.TargetID); err == nil {
				result = res.Outcome
			}
		}
	case ActChaosPower:
		_, err = h.gameSvc.UseChaosPower(ctx, code, actor)
	case ActNudge:
		var p targetPayload
		if err = decode(msg.Payload, &p); err == nil {
			var res *service.NudgeResult
			if res, err = h.gameSvc.Nudge(ctx, code, actor, p.TargetID); err == nil {
				result = res.Outcome
			}
		}
	case ActAckNudges:
		var snap *game.Snapshot
		if snap, err = h.gameSvc.AcknowledgeNudges(ctx, code, actor); err == nil {
			h.hub.SendTo(conn, service.MsgState, snap)
		}
	case ActRestart:
		_, err = h.gameSvc.Restart(ctx, code, actor)
	case ActClose:
		err = h.roomSvc.Close(ctx, code, actor)
	case ActKick:
		var p targetPayload
		if err = decode(msg.Payload, &p); err == nil {
			_, err = h.roomSvc.Kick(ctx, code, actor, p.TargetID)
		}
	case ActConfigure:
		cfg := model.DefaultRoomConfig()
		if err = decode(msg.Payload, &cfg); err == nil {
			_, err = h.roomSvc.Configure(ctx, code, actor, cfg)
		}
	default:
		err = game.Validation("unknown message type %q", msg.Type)
	}

	if err != nil {
		h.replyError(conn, msg.Type, err)
		return
	}
	if msg.Type != ActClose {
		h.hub.SendTo(conn, msgActionReply, ackPayload{Action: msg.Type, Result: result})
	}
}

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return game.Validation("payload is required")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return game.Validation("invalid payload")
	}
	return nil
}

func (h *Handler) replyError(conn *Connection, action string, err error) {
	h.hub.SendTo(conn, service.MsgError, errorPayload{Body: apierr.From(err, h.debug), Action: action})
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

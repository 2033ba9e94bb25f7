package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/kstielfps/VATImposter/internal/game"
	"github.com/kstielfps/VATImposter/internal/model"
	"github.com/kstielfps/VATImposter/internal/service"
	"github.com/kstielfps/VATImposter/internal/transport/rest/middleware"
)

// RoomHandler handles room and in-game endpoints
type RoomHandler struct {
	roomSvc  *service.RoomService
	gameSvc  *service.GameService
	defaults model.RoomConfig
	debug    bool
}

// NewRoomHandler creates a new room handler. defaults fills whatever a
// create request leaves out.
func NewRoomHandler(roomSvc *service.RoomService, gameSvc *service.GameService, defaults model.RoomConfig, debug bool) *RoomHandler {
	return &RoomHandler{
		roomSvc:  roomSvc,
		gameSvc:  gameSvc,
		defaults: defaults,
		debug:    debug,
	}
}

// CreateRoomRequest is the request body for creating a room. Omitted
// config fields take their defaults.
type CreateRoomRequest struct {
	CreatorName string `json:"creator_name"`
	model.RoomConfig
}

// JoinRequest is the request body for joining a room
type JoinRequest struct {
	Name string `json:"name"`
}

type HintRequest struct {
	Content string `json:"content"`
}

// TargetRequest names another participant (vote, guess, kick, nudge).
type TargetRequest struct {
	TargetID string `json:"target_id"`
}

// Create handles POST /v1/rooms
//
//	@Summary	Create a room
//	@Tags		rooms
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CreateRoomRequest	true	"creator and role counts"
//	@Success	201		{object}	model.SessionResponse
//	@Failure	400		{object}	apierr.Envelope
//	@Router		/rooms [post]
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	req := CreateRoomRequest{RoomConfig: h.defaults}
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	sess, err := h.roomSvc.CreateRoom(r.Context(), req.CreatorName, req.RoomConfig)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// Join handles POST /v1/rooms/{code}/join
//
//	@Summary	Join a room by code
//	@Tags		rooms
//	@Param		code	path		string		true	"room code"
//	@Param		body	body		JoinRequest	true	"display name"
//	@Success	200		{object}	model.SessionResponse
//	@Failure	409		{object}	apierr.Envelope
//	@Router		/rooms/{code}/join [post]
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	sess, err := h.roomSvc.Join(r.Context(), mux.Vars(r)["code"], req.Name)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// State handles GET /v1/rooms/{code}/state. Anonymous callers, and callers
// passing ?spectator=true, get the public view.
//
//	@Summary	Room snapshot for the caller
//	@Tags		rooms
//	@Param		code		path		string	true	"room code"
//	@Param		spectator	query		bool	false	"force the public view"
//	@Success	200			{object}	game.Snapshot
//	@Failure	410			{object}	apierr.Envelope
//	@Router		/rooms/{code}/state [get]
func (h *RoomHandler) State(w http.ResponseWriter, r *http.Request) {
	spectator, _ := strconv.ParseBool(r.URL.Query().Get("spectator"))
	snap, err := h.gameSvc.GetState(r.Context(), mux.Vars(r)["code"], middleware.GetParticipantID(r.Context()), spectator)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Configure handles POST /v1/rooms/{code}/configure
func (h *RoomHandler) Configure(w http.ResponseWriter, r *http.Request) {
	cfg := h.defaults
	if err := decodeBody(r, &cfg); err != nil {
		h.fail(w, err)
		return
	}
	code, actor := h.caller(r)
	h.respond(w)(h.roomSvc.Configure(r.Context(), code, actor, cfg))
}

// Start handles POST /v1/rooms/{code}/start
//
//	@Summary	Start the game (creator only)
//	@Tags		game
//	@Security	BearerAuth
//	@Param		code	path		string	true	"room code"
//	@Success	200		{object}	game.Snapshot
//	@Failure	412		{object}	apierr.Envelope
//	@Router		/rooms/{code}/start [post]
func (h *RoomHandler) Start(w http.ResponseWriter, r *http.Request) {
	code, actor := h.caller(r)
	h.respond(w)(h.gameSvc.Start(r.Context(), code, actor))
}

// Hint handles POST /v1/rooms/{code}/hint
func (h *RoomHandler) Hint(w http.ResponseWriter, r *http.Request) {
	var req HintRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	code, actor := h.caller(r)
	h.respond(w)(h.gameSvc.SubmitHint(r.Context(), code, actor, req.Content))
}

// Vote handles POST /v1/rooms/{code}/vote
//
//	@Summary	Vote for a participant
//	@Tags		game
//	@Security	BearerAuth
//	@Param		code	path		string			true	"room code"
//	@Param		body	body		TargetRequest	true	"vote target"
//	@Success	200		{object}	service.VoteResult
//	@Failure	409		{object}	apierr.Envelope
//	@Router		/rooms/{code}/vote [post]
func (h *RoomHandler) Vote(w http.ResponseWriter, r *http.Request) {
	target, ok := h.target(w, r)
	if !ok {
		return
	}
	code, actor := h.caller(r)
	res, err := h.gameSvc.SubmitVote(r.Context(), code, actor, target)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ClownGuess handles POST /v1/rooms/{code}/clown-guess
func (h *RoomHandler) ClownGuess(w http.ResponseWriter, r *http.Request) {
	target, ok := h.target(w, r)
	if !ok {
		return
	}
	code, actor := h.caller(r)
	res, err := h.gameSvc.SubmitClownGuess(r.Context(), code, actor, target)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ChaosPower handles POST /v1/rooms/{code}/chaos-power
func (h *RoomHandler) ChaosPower(w http.ResponseWriter, r *http.Request) {
	code, actor := h.caller(r)
	h.respond(w)(h.gameSvc.UseChaosPower(r.Context(), code, actor))
}

// Nudge handles POST /v1/rooms/{code}/nudge
func (h *RoomHandler) Nudge(w http.ResponseWriter, r *http.Request) {
	target, ok := h.target(w, r)
	if !ok {
		return
	}
	code, actor := h.caller(r)
	res, err := h.gameSvc.Nudge(r.Context(), code, actor, target)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// AckNudges handles POST /v1/rooms/{code}/nudges/ack
func (h *RoomHandler) AckNudges(w http.ResponseWriter, r *http.Request) {
	code, actor := h.caller(r)
	h.respond(w)(h.gameSvc.AcknowledgeNudges(r.Context(), code, actor))
}

// Restart handles POST /v1/rooms/{code}/restart
func (h *RoomHandler) Restart(w http.ResponseWriter, r *http.Request) {
	code, actor := h.caller(r)
	h.respond(w)(h.gameSvc.Restart(r.Context(), code, actor))
}

// Kick handles POST /v1/rooms/{code}/kick
func (h *RoomHandler) Kick(w http.ResponseWriter, r *http.Request) {
	target, ok := h.target(w, r)
	if !ok {
		return
	}
	code, actor := h.caller(r)
	h.respond(w)(h.roomSvc.Kick(r.Context(), code, actor, target))
}

// Close handles POST /v1/rooms/{code}/close
//
//	@Summary	Close the room (creator only)
//	@Tags		rooms
//	@Security	BearerAuth
//	@Param		code	path	string	true	"room code"
//	@Success	204
//	@Failure	403	{object}	apierr.Envelope
//	@Router		/rooms/{code}/close [post]
func (h *RoomHandler) Close(w http.ResponseWriter, r *http.Request) {
	code, actor := h.caller(r)
	if err := h.roomSvc.Close(r.Context(), code, actor); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// caller returns the room code from the path and the authenticated actor.
func (h *RoomHandler) caller(r *http.Request) (string, string) {
	return mux.Vars(r)["code"], middleware.GetParticipantID(r.Context())
}

func (h *RoomHandler) target(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req TargetRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, err)
		return "", false
	}
	if req.TargetID == "" {
		h.fail(w, game.Validation("target_id is required"))
		return "", false
	}
	return req.TargetID, true
}

func (h *RoomHandler) respond(w http.ResponseWriter) func(*game.Snapshot, error) {
	return func(snap *game.Snapshot, err error) {
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func (h *RoomHandler) fail(w http.ResponseWriter, err error) {
	writeError(w, err, h.debug)
}

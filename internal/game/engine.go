package game

import (
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kstielfps/VATImposter/internal/model"
)

// FillerHint is recorded for a participant whose turn is force-skipped.
const FillerHint = "..."

// Engine applies game rules to a RoomState. It never locks or persists:
// callers hand it a state loaded under the room lock and commit the result.
type Engine struct {
	Rand  Rand
	Now   func() time.Time
	NewID func() string
}

func NewEngine() *Engine {
	return &Engine{
		Rand:  DefaultRand,
		Now:   func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		NewID: func() string { return "p_" + uuid.NewString()[:8] },
	}
}

// ValidateName checks a display name and returns it trimmed.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", Validation("name is required")
	}
	if utf8.RuneCountInString(name) > model.MaxNameLength {
		return "", Validation("name must be at most %d characters", model.MaxNameLength)
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return "", Validation("name must not contain spaces")
	}
	return name, nil
}

// NormalizeConfig fills zero limits with defaults and range-checks the rest.
func NormalizeConfig(cfg model.RoomConfig) (model.RoomConfig, error) {
	if cfg.MinPlayers == 0 {
		cfg.MinPlayers = model.DefaultMinPlayers
	}
	if cfg.MaxPlayers == 0 {
		cfg.MaxPlayers = model.DefaultMaxPlayers
	}
	if cfg.HintTimeoutSeconds == 0 {
		cfg.HintTimeoutSeconds = model.DefaultHintTimeoutSeconds
	}
	switch {
	case cfg.RequestedImpostors < 1 || cfg.RequestedImpostors > model.MaxImpostors:
		return cfg, Validation("impostors must be between 1 and %d", model.MaxImpostors)
	case cfg.RequestedWhitemen < 0 || cfg.RequestedWhitemen > model.MaxWhitemen:
		return cfg, Validation("whitemen must be between 0 and %d", model.MaxWhitemen)
	case cfg.RequestedClowns < 0 || cfg.RequestedClowns > model.MaxClowns:
		return cfg, Validation("clowns must be between 0 and %d", model.MaxClowns)
	case cfg.MinPlayers < model.DefaultMinPlayers || cfg.MinPlayers > cfg.MaxPlayers:
		return cfg, Validation("min players must be between %d and max players", model.DefaultMinPlayers)
	case cfg.MaxPlayers > model.DefaultMaxPlayers:
		return cfg, Validation("max players must be at most %d", model.DefaultMaxPlayers)
	case cfg.HintTimeoutSeconds < 0:
		return cfg, Validation("hint timeout must not be negative")
	}
	return cfg, nil
}

// NewRoom builds a waiting room with its creator as the first participant.
func (e *Engine) NewRoom(code, creatorName string, cfg model.RoomConfig) (*model.RoomState, *model.Participant, error) {
	name, err := ValidateName(creatorName)
	if err != nil {
		return nil, nil, err
	}
	cfg, err = NormalizeConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	now := e.Now()
	st := model.NewRoomState(model.Room{
		Code:        code,
		Phase:       model.PhaseWaiting,
		CreatorName: name,
		Config:      cfg,
		CreatedAt:   now,
	})
	creator := model.NewParticipant(e.NewID(), name, true, now)
	if err := st.AddParticipant(creator); err != nil {
		return nil, nil, err
	}
	return st, creator, nil
}

// Join adds a participant while the room is still open.
func (e *Engine) Join(st *model.RoomState, name string) (*model.Participant, error) {
	name, err := ValidateName(name)
	if err != nil {
		return nil, err
	}
	if !st.Room.Phase.Open() {
		return nil, InvalidPhase("the game has already started")
	}
	if len(st.Participants) >= st.Room.Config.MaxPlayers {
		return nil, PreconditionFailed("room is full")
	}
	p := model.NewParticipant(e.NewID(), name, false, e.Now())
	if err := st.AddParticipant(p); err != nil {
		if errors.Is(err, model.ErrDuplicateName) {
			return nil, Conflict("name %q is already taken in this room", name)
		}
		return nil, err
	}
	return p, nil
}

// RequireCreator returns the actor if they created the room.
func RequireCreator(st *model.RoomState, actorID string) (*model.Participant, error) {
	p, err := RequireParticipant(st, actorID)
	if err != nil {
		return nil, err
	}
	if !p.IsCreator {
		return nil, Unauthorized("only the room creator can do this")
	}
	return p, nil
}

// RequireParticipant returns the actor if they belong to the room.
func RequireParticipant(st *model.RoomState, actorID string) (*model.Participant, error) {
	if actorID == "" {
		return nil, Unauthorized("missing participant identity")
	}
	p := st.Participant(actorID)
	if p == nil {
		return nil, Unauthorized("not a participant of room %s", st.Room.Code)
	}
	return p, nil
}

// Configure replaces the requested configuration before the game starts.
func (e *Engine) Configure(st *model.RoomState, actorID string, cfg model.RoomConfig) error {
	if _, err := RequireCreator(st, actorID); err != nil {
		return err
	}
	if !st.Room.Phase.Open() {
		return InvalidPhase("configuration is only possible before the game starts")
	}
	cfg, err := NormalizeConfig(cfg)
	if err != nil {
		return err
	}
	if len(st.Participants) > cfg.MaxPlayers {
		return PreconditionFailed("room already has %d participants", len(st.Participants))
	}
	st.Room.Config = cfg
	st.Room.Phase = model.PhaseConfiguring
	return nil
}

// Start moves an open room into the first hint round.
func (e *Engine) Start(st *model.RoomState, actorID string, groups []*model.WordGroup) error {
	if _, err := RequireCreator(st, actorID); err != nil {
		return err
	}
	room := &st.Room
	if !room.Phase.Open() {
		return InvalidPhase("the game can only start from the lobby")
	}

	n := len(st.Participants)
	switch {
	case n < room.Config.MinPlayers:
		return PreconditionFailed("at least %d players are needed to start", room.Config.MinPlayers)
	case n > room.Config.MaxPlayers:
		return PreconditionFailed("at most %d players can play", room.Config.MaxPlayers)
	case room.Config.RequestedClowns > 0 && n < model.ClownMinPlayers:
		return PreconditionFailed("the clown needs at least %d players", model.ClownMinPlayers)
	}

	if err := AssignWords(room, groups, e.Rand); err != nil {
		return err
	}
	AssignRoles(st, groups, e.Rand)

	now := e.Now()
	room.Phase = model.PhaseHints
	room.CurrentRound = 1
	room.CurrentTurnIndex = e.Rand.IntN(len(st.Active()))
	room.StartedAt = &now
	room.FinishedAt = nil
	e.refillNudgeMeters(st)
	return nil
}

// SubmitHint records the turn holder's hint and advances the turn.
func (e *Engine) SubmitHint(st *model.RoomState, actorID, content string) error {
	p, err := RequireParticipant(st, actorID)
	if err != nil {
		return err
	}
	if st.Room.Phase != model.PhaseHints {
		return InvalidPhase("hints are only accepted during hint rounds")
	}
	if p.Eliminated {
		return NotYourTurn("eliminated participants cannot give hints")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return Validation("hint is required")
	}
	if utf8.RuneCountInString(content) > model.MaxHintLength {
		return Validation("hint must be at most %d characters", model.MaxHintLength)
	}
	if turn := st.CurrentTurn(); turn == nil || turn.ID != p.ID {
		return NotYourTurn("it is not your turn")
	}
	e.recordHint(st, p, content, false)
	return nil
}

// recordHint upserts the hint, moves the turn on and completes the round
// once every active participant has a hint in it.
func (e *Engine) recordHint(st *model.RoomState, p *model.Participant, content string, filler bool) {
	room := &st.Room
	st.UpsertHint(p.ID, room.CurrentRound, content, filler, e.Now())

	active := st.Active()
	room.CurrentTurnIndex = (room.CurrentTurnIndex + 1) % len(active)

	if len(st.HintsInRound(room.CurrentRound)) < len(active) {
		return
	}
	if room.CurrentRound < model.HintRounds {
		room.CurrentRound++
		room.CurrentTurnIndex = e.Rand.IntN(len(active))
	} else {
		room.Phase = model.PhaseVoting
		room.CurrentRound++
		room.CurrentTurnIndex = 0
	}
	e.refillNudgeMeters(st)
}

// SubmitVote records an elimination vote and resolves the round once every
// active participant has voted. The returned resolution is nil until then.
//
// Eliminated whitemen keep voting. Their ballots count towards the total.
func (e *Engine) SubmitVote(st *model.RoomState, actorID, targetID string) (*Resolution, error) {
	voter, err := RequireParticipant(st, actorID)
	if err != nil {
		return nil, err
	}
	room := &st.Room
	if room.Phase != model.PhaseVoting {
		return nil, InvalidPhase("votes are only accepted during voting")
	}
	if voter.Eliminated && voter.Role != model.RoleWhiteman {
		return nil, Unauthorized("eliminated participants cannot vote")
	}
	if st.Participant(targetID) == nil {
		return nil, NotFound("participant %s not found", targetID)
	}
	err = st.CreateVote(&model.Vote{
		VoterID:   voter.ID,
		TargetID:  targetID,
		Round:     room.CurrentRound,
		Kind:      model.VoteElimination,
		CreatedAt: e.Now(),
	})
	if errors.Is(err, model.ErrDuplicateVote) {
		return nil, Conflict("you already voted this round")
	}
	if err != nil {
		return nil, err
	}

	if len(st.VotesInRound(room.CurrentRound, model.VoteElimination)) < len(st.Active()) {
		return nil, nil
	}
	return e.resolveVotes(st), nil
}

// Restart brings a finished room back to the lobby with the same people.
func (e *Engine) Restart(st *model.RoomState, actorID string) error {
	if _, err := RequireCreator(st, actorID); err != nil {
		return err
	}
	if st.Room.Phase != model.PhaseFinished {
		return InvalidPhase("only finished games can be restarted")
	}
	st.ClearRoundData()
	for _, p := range st.Participants {
		p.ResetForNewGame()
	}
	st.Room.ClearGame()
	return nil
}

// Kick removes a participant before the game starts.
func (e *Engine) Kick(st *model.RoomState, actorID, targetID string) (*model.Participant, error) {
	creator, err := RequireCreator(st, actorID)
	if err != nil {
		return nil, err
	}
	if !st.Room.Phase.Open() {
		return nil, InvalidPhase("participants can only be kicked before the game starts")
	}
	if targetID == creator.ID {
		return nil, Validation("you cannot kick yourself")
	}
	target := st.Participant(targetID)
	if target == nil {
		return nil, NotFound("participant %s not found", targetID)
	}
	st.RemoveParticipant(targetID)
	return target, nil
}

func (e *Engine) refillNudgeMeters(st *model.RoomState) {
	for _, p := range st.Participants {
		p.RefillNudgeMeter(st.Room.CurrentRound)
	}
}

// finish ends the game. A clown left half way through a guess set goes back
// to finding.
func (e *Engine) finish(st *model.RoomState, winner model.Team) {
	now := e.Now()
	st.Room.Phase = model.PhaseFinished
	st.Room.WinningTeam = winner
	st.Room.FinishedAt = &now
	resetPendingClowns(st)
}

func resetPendingClowns(st *model.RoomState) {
	for _, p := range st.Participants {
		if p.Role == model.RoleClown && p.Clown.Goal == model.ClownGoalPending {
			p.Clown.Goal = model.ClownGoalFinding
		}
	}
}

package model

import "time"

// Phase is the room's state-machine state.
type Phase string

const (
	PhaseWaiting     Phase = "waiting"
	PhaseConfiguring Phase = "configuring"
	PhaseHints       Phase = "hints"
	PhaseVoting      Phase = "voting"
	PhaseFinished    Phase = "finished"
)

// Open reports whether the room still accepts joins, kicks and configuration.
func (p Phase) Open() bool {
	return p == PhaseWaiting || p == PhaseConfiguring
}

// InGame reports whether a game is being played.
func (p Phase) InGame() bool {
	return p == PhaseHints || p == PhaseVoting
}

type Team string

const (
	TeamNone      Team = ""
	TeamCitizens  Team = "citizens"
	TeamImpostors Team = "impostors"
	TeamClown     Team = "clown"
)

const (
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength   = 6

	DefaultMinPlayers         = 4
	DefaultMaxPlayers         = 12
	DefaultHintTimeoutSeconds = 30

	MaxImpostors    = 2
	MaxWhitemen     = 3
	MaxClowns       = 1
	ClownMinPlayers = 6

	// HintRounds is the number of hint rounds played before the first vote.
	HintRounds = 3

	NudgeMeterFull = 100
	MaxNameLength  = 10
	MaxHintLength  = 100
)

// RoomConfig holds what the creator asked for. Requested counts are ceilings.
type RoomConfig struct {
	RequestedImpostors int `json:"requested_impostors" bson:"requestedImpostors"`
	RequestedWhitemen  int `json:"requested_whitemen" bson:"requestedWhitemen"`
	RequestedClowns    int `json:"requested_clowns" bson:"requestedClowns"`
	MinPlayers         int `json:"min_players" bson:"minPlayers"`
	MaxPlayers         int `json:"max_players" bson:"maxPlayers"`
	HintTimeoutSeconds int `json:"hint_timeout_seconds" bson:"hintTimeoutSeconds"`
}

func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		RequestedImpostors: 1,
		MinPlayers:         DefaultMinPlayers,
		MaxPlayers:         DefaultMaxPlayers,
		HintTimeoutSeconds: DefaultHintTimeoutSeconds,
	}
}

// WordRef points at a Word of a shared WordGroup. Text is carried along so
// snapshots can be built without a reference-data lookup.
type WordRef struct {
	ID   string `json:"id" bson:"id"`
	Text string `json:"text" bson:"text"`
}

// Clone copies the reference; nil stays nil.
func (w *WordRef) Clone() *WordRef {
	if w == nil {
		return nil
	}
	c := *w
	return &c
}

// Room is the aggregate root of one play session.
type Room struct {
	Code        string     `json:"code" bson:"code"`
	Phase       Phase      `json:"phase" bson:"phase"`
	CreatorName string     `json:"creator_name" bson:"creatorName"`
	Config      RoomConfig `json:"config" bson:"config"`

	ActualImpostors int `json:"actual_impostors" bson:"actualImpostors"`
	ActualWhitemen  int `json:"actual_whitemen" bson:"actualWhitemen"`
	ActualClowns    int `json:"actual_clowns" bson:"actualClowns"`

	MajorityGroupID string   `json:"majority_group_id,omitempty" bson:"majorityGroupId,omitempty"`
	WhitemanGroupID string   `json:"whiteman_group_id,omitempty" bson:"whitemanGroupId,omitempty"`
	MajorityWord    *WordRef `json:"majority_word,omitempty" bson:"majorityWord,omitempty"`
	MinorityWord    *WordRef `json:"minority_word,omitempty" bson:"minorityWord,omitempty"`

	CurrentRound     int  `json:"current_round" bson:"currentRound"`
	CurrentTurnIndex int  `json:"current_turn_index" bson:"currentTurnIndex"`
	WinningTeam      Team `json:"winning_team,omitempty" bson:"winningTeam,omitempty"`

	CreatedAt  time.Time  `json:"created_at" bson:"createdAt"`
	StartedAt  *time.Time `json:"started_at,omitempty" bson:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty" bson:"finishedAt,omitempty"`

	// NextSeq numbers joins so turn order follows join order.
	NextSeq int `json:"-" bson:"nextSeq"`
	// Version is bumped on every committed mutation.
	Version int64 `json:"-" bson:"version"`
}

// ClearGame resets everything a finished game left behind on the room.
func (r *Room) ClearGame() {
	r.Phase = PhaseWaiting
	r.ActualImpostors = 0
	r.ActualWhitemen = 0
	r.ActualClowns = 0
	r.MajorityGroupID = ""
	r.WhitemanGroupID = ""
	r.MajorityWord = nil
	r.MinorityWord = nil
	r.CurrentRound = 0
	r.CurrentTurnIndex = 0
	r.WinningTeam = TeamNone
	r.StartedAt = nil
	r.FinishedAt = nil
}

func (r Room) clone() Room {
	c := r
	c.MajorityWord = r.MajorityWord.Clone()
	c.MinorityWord = r.MinorityWord.Clone()
	if r.StartedAt != nil {
		t := *r.StartedAt
		c.StartedAt = &t
	}
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		c.FinishedAt = &t
	}
	return c
}

package model

import (
	"slices"
	"time"
)

// Role is the stored, true role. Disguised views are computed at projection
// time and never written back.
type Role string

const (
	RoleNone     Role = ""
	RoleCitizen  Role = "citizen"
	RoleImpostor Role = "impostor"
	RoleWhiteman Role = "whiteman"
	RoleClown    Role = "clown"
)

type ClownGoal string

const (
	ClownGoalNone      ClownGoal = ""
	ClownGoalFinding   ClownGoal = "finding"
	ClownGoalPending   ClownGoal = "pending"
	ClownGoalEliminate ClownGoal = "eliminate"
)

// CanGuess reports whether the goal still allows impostor guesses.
func (g ClownGoal) CanGuess() bool {
	return g == ClownGoalNone || g == ClownGoalFinding || g == ClownGoalPending
}

// ClownProgress is only meaningful for the clown.
type ClownProgress struct {
	KnownImpostors []string  `json:"known_impostors,omitempty" bson:"knownImpostors,omitempty"`
	Goal           ClownGoal `json:"goal" bson:"goal"`
	GoalReadyRound int       `json:"goal_ready_round" bson:"goalReadyRound"`
	ChaosUsed      bool      `json:"chaos_used" bson:"chaosUsed"`
	// FailedRound is the voting round of the last wrong guess set.
	FailedRound int `json:"failed_round" bson:"failedRound"`
}

type Participant struct {
	ID         string   `json:"id" bson:"id"`
	Name       string   `json:"name" bson:"name"`
	Seq        int      `json:"seq" bson:"seq"`
	Role       Role     `json:"role,omitempty" bson:"role,omitempty"`
	SecretWord *WordRef `json:"secret_word,omitempty" bson:"secretWord,omitempty"`
	Eliminated bool     `json:"eliminated" bson:"eliminated"`
	IsCreator  bool     `json:"is_creator" bson:"isCreator"`

	NudgeMeter      int `json:"nudge_meter" bson:"nudgeMeter"`
	NudgeMeterRound int `json:"nudge_meter_round" bson:"nudgeMeterRound"`

	Clown ClownProgress `json:"clown" bson:"clown"`
	// ImpostorKnowsClown is set on impostors once the clown used the chaos power.
	ImpostorKnowsClown bool `json:"impostor_knows_clown" bson:"impostorKnowsClown"`

	JoinedAt time.Time `json:"joined_at" bson:"joinedAt"`
}

func NewParticipant(id, name string, creator bool, now time.Time) *Participant {
	return &Participant{
		ID:         id,
		Name:       name,
		IsCreator:  creator,
		NudgeMeter: NudgeMeterFull,
		JoinedAt:   now,
	}
}

// ResetForNewGame wipes every per-game field. Identity, join order and
// creator flag survive.
func (p *Participant) ResetForNewGame() {
	p.Role = RoleNone
	p.SecretWord = nil
	p.Eliminated = false
	p.NudgeMeter = NudgeMeterFull
	p.NudgeMeterRound = 0
	p.Clown = ClownProgress{}
	p.ImpostorKnowsClown = false
}

// RefillNudgeMeter fills the gauge for the given round.
func (p *Participant) RefillNudgeMeter(round int) {
	p.NudgeMeter = NudgeMeterFull
	p.NudgeMeterRound = round
}

func (p *Participant) clone() *Participant {
	c := *p
	c.SecretWord = p.SecretWord.Clone()
	c.Clown.KnownImpostors = slices.Clone(p.Clown.KnownImpostors)
	return &c
}

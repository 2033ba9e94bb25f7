package model

import "time"

// Hint is one clue per (room, participant, round). Resubmission overwrites.
type Hint struct {
	ID            string    `json:"id" bson:"id"`
	ParticipantID string    `json:"participant_id" bson:"participantId"`
	Round         int       `json:"round" bson:"round"`
	Content       string    `json:"content" bson:"content"`
	CreatedAt     time.Time `json:"created_at" bson:"createdAt"`

	// Filler marks a hint recorded by a forced skip.
	Filler bool `json:"filler" bson:"filler"`
}

type VoteKind string

const (
	VoteElimination VoteKind = "elimination"
	VoteClownGuess  VoteKind = "clown_guess"
)

// Vote is either an elimination vote, unique per (voter, round), or a clown
// guess, unique per (voter, round, target).
type Vote struct {
	ID        string    `json:"id" bson:"id"`
	VoterID   string    `json:"voter_id" bson:"voterId"`
	TargetID  string    `json:"target_id" bson:"targetId"`
	Round     int       `json:"round" bson:"round"`
	Kind      VoteKind  `json:"kind" bson:"kind"`
	CreatedAt time.Time `json:"created_at" bson:"createdAt"`
}

// Slot is the uniqueness discriminator inside (voter, round, kind).
func (v *Vote) Slot() string {
	if v.Kind == VoteClownGuess {
		return v.TargetID
	}
	return ""
}

type Nudge struct {
	ID           string    `json:"id" bson:"id"`
	FromID       string    `json:"from_id" bson:"fromId"`
	ToID         string    `json:"to_id" bson:"toId"`
	Round        int       `json:"round" bson:"round"`
	Acknowledged bool      `json:"acknowledged" bson:"acknowledged"`
	CreatedAt    time.Time `json:"created_at" bson:"createdAt"`
}

package model

import (
	"cmp"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDuplicateName = errors.New("name already taken in this room")
	ErrDuplicateVote = errors.New("vote already recorded")
)

// RoomState is the Room aggregate with everything it owns. Stores hand it out
// under the room lock and persist it back when the mutation succeeds.
type RoomState struct {
	Room         Room           `json:"room" bson:"room"`
	Participants []*Participant `json:"participants" bson:"participants"`
	Hints        []*Hint        `json:"hints" bson:"hints"`
	Votes        []*Vote        `json:"votes" bson:"votes"`
	Nudges       []*Nudge       `json:"nudges" bson:"nudges"`
}

func NewRoomState(room Room) *RoomState {
	return &RoomState{Room: room}
}

func (s *RoomState) Participant(id string) *Participant {
	for _, p := range s.Participants {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *RoomState) ParticipantByName(name string) *Participant {
	for _, p := range s.Participants {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (s *RoomState) Creator() *Participant {
	for _, p := range s.Participants {
		if p.IsCreator {
			return p
		}
	}
	return nil
}

// Ordered returns all participants in join order.
func (s *RoomState) Ordered() []*Participant {
	out := slices.Clone(s.Participants)
	slices.SortStableFunc(out, func(a, b *Participant) int {
		return cmp.Compare(a.Seq, b.Seq)
	})
	return out
}

// Active returns the non-eliminated participants in join order. The turn
// index points into this list.
func (s *RoomState) Active() []*Participant {
	out := s.Ordered()
	return slices.DeleteFunc(out, func(p *Participant) bool { return p.Eliminated })
}

// CurrentTurn returns the turn holder, or nil when the index is out of range.
func (s *RoomState) CurrentTurn() *Participant {
	active := s.Active()
	i := s.Room.CurrentTurnIndex
	if i < 0 || i >= len(active) {
		return nil
	}
	return active[i]
}

func (s *RoomState) CountRole(role Role, activeOnly bool) int {
	n := 0
	for _, p := range s.Participants {
		if p.Role == role && (!activeOnly || !p.Eliminated) {
			n++
		}
	}
	return n
}

// AddParticipant appends p with the next join sequence number.
func (s *RoomState) AddParticipant(p *Participant) error {
	if s.ParticipantByName(p.Name) != nil {
		return ErrDuplicateName
	}
	s.Room.NextSeq++
	p.Seq = s.Room.NextSeq
	s.Participants = append(s.Participants, p)
	return nil
}

// RemoveParticipant deletes the participant and everything they own or are
// targeted by.
func (s *RoomState) RemoveParticipant(id string) bool {
	before := len(s.Participants)
	s.Participants = slices.DeleteFunc(s.Participants, func(p *Participant) bool { return p.ID == id })
	if len(s.Participants) == before {
		return false
	}
	s.Hints = slices.DeleteFunc(s.Hints, func(h *Hint) bool { return h.ParticipantID == id })
	s.Votes = slices.DeleteFunc(s.Votes, func(v *Vote) bool { return v.VoterID == id || v.TargetID == id })
	s.Nudges = slices.DeleteFunc(s.Nudges, func(n *Nudge) bool { return n.FromID == id || n.ToID == id })
	return true
}

// UpsertHint records content for (participant, round), overwriting an
// existing row and keeping its creation time.
func (s *RoomState) UpsertHint(participantID string, round int, content string, filler bool, now time.Time) *Hint {
	for _, h := range s.Hints {
		if h.ParticipantID == participantID && h.Round == round {
			h.Content = content
			h.Filler = filler
			return h
		}
	}
	h := &Hint{
		ID:            uuid.NewString(),
		ParticipantID: participantID,
		Round:         round,
		Content:       content,
		Filler:        filler,
		CreatedAt:     now,
	}
	s.Hints = append(s.Hints, h)
	return h
}

func (s *RoomState) HintsInRound(round int) []*Hint {
	var out []*Hint
	for _, h := range s.Hints {
		if h.Round == round {
			out = append(out, h)
		}
	}
	return out
}

// OrderedHints returns hints by (round, created_at).
func (s *RoomState) OrderedHints() []*Hint {
	out := slices.Clone(s.Hints)
	slices.SortStableFunc(out, func(a, b *Hint) int {
		if c := cmp.Compare(a.Round, b.Round); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

// CreateVote stores v, enforcing the per-kind uniqueness rule.
func (s *RoomState) CreateVote(v *Vote) error {
	for _, existing := range s.Votes {
		if existing.VoterID == v.VoterID && existing.Round == v.Round &&
			existing.Kind == v.Kind && existing.Slot() == v.Slot() {
			return ErrDuplicateVote
		}
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	s.Votes = append(s.Votes, v)
	return nil
}

func (s *RoomState) VotesInRound(round int, kind VoteKind) []*Vote {
	var out []*Vote
	for _, v := range s.Votes {
		if v.Round == round && v.Kind == kind {
			out = append(out, v)
		}
	}
	return out
}

func (s *RoomState) GuessesBy(voterID string, round int) []*Vote {
	var out []*Vote
	for _, v := range s.Votes {
		if v.VoterID == voterID && v.Round == round && v.Kind == VoteClownGuess {
			out = append(out, v)
		}
	}
	return out
}

// DiscardGuesses drops the voter's clown guesses for the round.
func (s *RoomState) DiscardGuesses(voterID string, round int) int {
	before := len(s.Votes)
	s.Votes = slices.DeleteFunc(s.Votes, func(v *Vote) bool {
		return v.VoterID == voterID && v.Round == round && v.Kind == VoteClownGuess
	})
	return before - len(s.Votes)
}

func (s *RoomState) AddNudge(fromID, toID string, round int, now time.Time) *Nudge {
	n := &Nudge{
		ID:        uuid.NewString(),
		FromID:    fromID,
		ToID:      toID,
		Round:     round,
		CreatedAt: now,
	}
	s.Nudges = append(s.Nudges, n)
	return n
}

// PendingNudges returns unacknowledged nudges addressed to the participant.
func (s *RoomState) PendingNudges(toID string) []*Nudge {
	var out []*Nudge
	for _, n := range s.Nudges {
		if n.ToID == toID && !n.Acknowledged {
			out = append(out, n)
		}
	}
	return out
}

func (s *RoomState) AcknowledgeNudges(toID string) int {
	n := 0
	for _, nd := range s.Nudges {
		if nd.ToID == toID && !nd.Acknowledged {
			nd.Acknowledged = true
			n++
		}
	}
	return n
}

// ClearRoundData drops every hint, vote and nudge.
func (s *RoomState) ClearRoundData() {
	s.Hints = nil
	s.Votes = nil
	s.Nudges = nil
}

// Clone returns a deep copy.
func (s *RoomState) Clone() *RoomState {
	c := &RoomState{
		Room:         s.Room.clone(),
		Participants: make([]*Participant, 0, len(s.Participants)),
		Hints:        make([]*Hint, 0, len(s.Hints)),
		Votes:        make([]*Vote, 0, len(s.Votes)),
		Nudges:       make([]*Nudge, 0, len(s.Nudges)),
	}
	for _, p := range s.Participants {
		c.Participants = append(c.Participants, p.clone())
	}
	for _, h := range s.Hints {
		hc := *h
		c.Hints = append(c.Hints, &hc)
	}
	for _, v := range s.Votes {
		vc := *v
		c.Votes = append(c.Votes, &vc)
	}
	for _, n := range s.Nudges {
		nc := *n
		c.Nudges = append(c.Nudges, &nc)
	}
	return c
}

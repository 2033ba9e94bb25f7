package game

import (
	"cmp"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"slices"
	"time"

	"github.com/kstielfps/VATImposter/internal/model"
)

// Viewer identifies who a snapshot is built for. A spectator, or an identity
// that is not in the room, gets the public view.
type Viewer struct {
	ParticipantID string
	Spectator     bool
}

// ProjectOptions carries the clock-dependent bits of a snapshot.
type ProjectOptions struct {
	Now             time.Time
	AutoDeleteAfter time.Duration
}

type PlayerView struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Eliminated    bool       `json:"eliminated"`
	IsCreator     bool       `json:"is_creator"`
	IsCurrentTurn bool       `json:"is_current_turn"`
	Role          model.Role `json:"role,omitempty"`
	Word          string     `json:"word,omitempty"`
}

type HintView struct {
	ParticipantID string    `json:"participant_id"`
	Name          string    `json:"name"`
	Round         int       `json:"round"`
	Content       string    `json:"content"`
	Filler        bool      `json:"filler,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type VoteView struct {
	Voter  string `json:"voter"`
	Target string `json:"target"`
}

type NudgeView struct {
	From      string    `json:"from"`
	Round     int       `json:"round"`
	CreatedAt time.Time `json:"created_at"`
}

// SelfView is what the viewer knows about themselves.
type SelfView struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	IsCreator     bool        `json:"is_creator"`
	Role          model.Role  `json:"role,omitempty"`
	Word          string      `json:"word,omitempty"`
	Eliminated    bool        `json:"eliminated"`
	NudgeMeter    int         `json:"nudge_meter"`
	HasVoted      bool        `json:"has_voted"`
	PendingNudges []NudgeView `json:"pending_nudges"`
	// KnownClown is set for impostors once the clown used the chaos power.
	KnownClown string `json:"known_clown,omitempty"`
}

// ClownView is only sent to the clown.
type ClownView struct {
	Goal             model.ClownGoal `json:"goal"`
	KnownImpostors   []string        `json:"known_impostors"`
	ImpostorCount    int             `json:"impostor_count"`
	GuessesThisRound []string        `json:"guesses_this_round"`
	GuessesRemaining int             `json:"guesses_remaining"`
	CanGuess         bool            `json:"can_guess"`
	CanUseChaos      bool            `json:"can_use_chaos"`
	ChaosUsed        bool            `json:"chaos_used"`
}

// Snapshot is the per-viewer filtered room state.
type Snapshot struct {
	Code             string       `json:"code"`
	Phase            model.Phase  `json:"phase"`
	Spectator        bool         `json:"spectator"`
	CurrentRound     int          `json:"current_round"`
	CurrentTurnIndex int          `json:"current_turn_index"`
	CurrentTurn      string       `json:"current_turn,omitempty"`
	WinningTeam      model.Team   `json:"winning_team,omitempty"`
	Players          []PlayerView `json:"players"`
	Hints            []HintView   `json:"hints"`
	VotesCast        int          `json:"votes_cast"`

	Config          *model.RoomConfig `json:"config,omitempty"`
	ActualImpostors int               `json:"actual_impostors,omitempty"`
	ActualWhitemen  int               `json:"actual_whitemen,omitempty"`
	ActualClowns    int               `json:"actual_clowns,omitempty"`
	Votes           []VoteView        `json:"votes,omitempty"`
	MajorityWord    string            `json:"majority_word,omitempty"`
	MinorityWord    string            `json:"minority_word,omitempty"`
	You             *SelfView         `json:"you,omitempty"`
	Clown           *ClownView        `json:"clown,omitempty"`

	SecondsUntilAutoDelete *int `json:"seconds_until_auto_delete"`
}

// Project builds the snapshot the viewer is allowed to see. Stored roles are
// never touched; disguises are computed here.
func Project(st *model.RoomState, v Viewer, opts ProjectOptions) *Snapshot {
	room := &st.Room
	var viewer *model.Participant
	if !v.Spectator {
		viewer = st.Participant(v.ParticipantID)
	}
	finished := room.Phase == model.PhaseFinished

	snap := &Snapshot{
		Code:             room.Code,
		Phase:            room.Phase,
		Spectator:        viewer == nil,
		CurrentRound:     room.CurrentRound,
		CurrentTurnIndex: room.CurrentTurnIndex,
		WinningTeam:      room.WinningTeam,
		Players:          []PlayerView{},
		Hints:            []HintView{},
		VotesCast:        len(st.VotesInRound(room.CurrentRound, model.VoteElimination)),
	}

	var turn *model.Participant
	if room.Phase == model.PhaseHints {
		turn = st.CurrentTurn()
	}
	if turn != nil {
		snap.CurrentTurn = turn.Name
	}

	for _, p := range DisplayOrder(room.Code, st.Participants) {
		pv := PlayerView{
			ID:            p.ID,
			Name:          p.Name,
			Eliminated:    p.Eliminated,
			IsCreator:     p.IsCreator,
			IsCurrentTurn: turn != nil && turn.ID == p.ID,
		}
		if viewer != nil {
			pv.Role = visibleRole(viewer, p, finished)
			pv.Word = visibleWord(viewer, p, finished)
		}
		snap.Players = append(snap.Players, pv)
	}

	for _, h := range st.OrderedHints() {
		hv := HintView{
			ParticipantID: h.ParticipantID,
			Round:         h.Round,
			Content:       h.Content,
			Filler:        h.Filler,
			CreatedAt:     h.CreatedAt,
		}
		if p := st.Participant(h.ParticipantID); p != nil {
			hv.Name = p.Name
		}
		snap.Hints = append(snap.Hints, hv)
	}

	if finished && room.FinishedAt != nil {
		left := room.FinishedAt.Add(opts.AutoDeleteAfter).Sub(opts.Now)
		secs := max(0, int(math.Ceil(left.Seconds())))
		snap.SecondsUntilAutoDelete = &secs
	}

	if viewer == nil {
		return snap
	}

	cfg := room.Config
	snap.Config = &cfg
	snap.ActualImpostors = room.ActualImpostors
	snap.ActualWhitemen = room.ActualWhitemen
	snap.ActualClowns = room.ActualClowns
	snap.Votes = []VoteView{}
	for _, vote := range st.VotesInRound(room.CurrentRound, model.VoteElimination) {
		snap.Votes = append(snap.Votes, VoteView{Voter: nameOf(st, vote.VoterID), Target: nameOf(st, vote.TargetID)})
	}
	if finished {
		if room.MajorityWord != nil {
			snap.MajorityWord = room.MajorityWord.Text
		}
		if room.MinorityWord != nil {
			snap.MinorityWord = room.MinorityWord.Text
		}
	}

	snap.You = selfView(st, viewer, finished)
	if viewer.Role == model.RoleClown {
		snap.Clown = clownView(st, viewer)
	}
	return snap
}

// visibleRole disguises everyone as a citizen until they are the viewer,
// eliminated, or the game is over.
func visibleRole(viewer, p *model.Participant, finished bool) model.Role {
	if p.Role == model.RoleNone {
		return model.RoleNone
	}
	if finished || p.Eliminated || viewer.ID == p.ID {
		return p.Role
	}
	return model.RoleCitizen
}

// visibleWord follows the role reveal, except that impostors never read the
// words of eliminated players mid-game. After the chaos power they may read
// the clown's word, which is their own.
func visibleWord(viewer, p *model.Participant, finished bool) string {
	if p.SecretWord == nil {
		return ""
	}
	if finished || viewer.ID == p.ID {
		return p.SecretWord.Text
	}
	if !p.Eliminated {
		return ""
	}
	if viewer.Role == model.RoleImpostor && !(viewer.ImpostorKnowsClown && p.Role == model.RoleClown) {
		return ""
	}
	return p.SecretWord.Text
}

func selfView(st *model.RoomState, viewer *model.Participant, finished bool) *SelfView {
	self := &SelfView{
		ID:            viewer.ID,
		Name:          viewer.Name,
		IsCreator:     viewer.IsCreator,
		Role:          viewer.Role,
		Eliminated:    viewer.Eliminated,
		NudgeMeter:    viewer.NudgeMeter,
		PendingNudges: []NudgeView{},
	}
	if viewer.SecretWord != nil {
		self.Word = viewer.SecretWord.Text
	}
	for _, v := range st.VotesInRound(st.Room.CurrentRound, model.VoteElimination) {
		if v.VoterID == viewer.ID {
			self.HasVoted = true
			break
		}
	}
	for _, n := range st.PendingNudges(viewer.ID) {
		self.PendingNudges = append(self.PendingNudges, NudgeView{From: nameOf(st, n.FromID), Round: n.Round, CreatedAt: n.CreatedAt})
	}
	if viewer.Role == model.RoleImpostor && viewer.ImpostorKnowsClown && !finished {
		for _, p := range st.Participants {
			if p.Role == model.RoleClown {
				self.KnownClown = p.Name
			}
		}
	}
	return self
}

func clownView(st *model.RoomState, clown *model.Participant) *ClownView {
	room := &st.Room
	cv := &ClownView{
		Goal:             clown.Clown.Goal,
		KnownImpostors:   []string{},
		ImpostorCount:    room.ActualImpostors,
		GuessesThisRound: []string{},
		ChaosUsed:        clown.Clown.ChaosUsed,
	}
	for _, id := range clown.Clown.KnownImpostors {
		cv.KnownImpostors = append(cv.KnownImpostors, nameOf(st, id))
	}
	guesses := st.GuessesBy(clown.ID, room.CurrentRound)
	for _, g := range guesses {
		cv.GuessesThisRound = append(cv.GuessesThisRound, nameOf(st, g.TargetID))
	}
	cv.GuessesRemaining = max(0, room.ActualImpostors-len(guesses))

	goal := clown.Clown.Goal
	cv.CanGuess = (goal == model.ClownGoalFinding || goal == model.ClownGoalPending) &&
		room.Phase == model.PhaseVoting &&
		!clown.Eliminated &&
		cv.GuessesRemaining > 0 &&
		clown.Clown.FailedRound != room.CurrentRound
	cv.CanUseChaos = goal == model.ClownGoalEliminate &&
		!clown.Clown.ChaosUsed &&
		!clown.Eliminated &&
		room.Phase.InGame()
	return cv
}

// DisplayOrder sorts participants by an HMAC of their id keyed with the room
// code: stable for the room, unrelated to join order or role.
func DisplayOrder(code string, participants []*model.Participant) []*model.Participant {
	keys := make(map[string]uint64, len(participants))
	for _, p := range participants {
		mac := hmac.New(sha256.New, []byte(code))
		mac.Write([]byte(p.ID))
		keys[p.ID] = binary.BigEndian.Uint64(mac.Sum(nil)[:8])
	}
	out := slices.Clone(participants)
	slices.SortFunc(out, func(a, b *model.Participant) int {
		if c := cmp.Compare(keys[a.ID], keys[b.ID]); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func nameOf(st *model.RoomState, id string) string {
	if p := st.Participant(id); p != nil {
		return p.Name
	}
	return ""
}

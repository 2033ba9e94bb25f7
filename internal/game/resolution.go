package game

import (
	"cmp"
	"slices"

	"github.com/kstielfps/VATImposter/internal/model"
)

type Tally struct {
	TargetID string `json:"target_id"`
	Name     string `json:"name"`
	Votes    int    `json:"votes"`
}

// Resolution summarizes a resolved voting round.
type Resolution struct {
	Round          int         `json:"round"`
	Tallies        []Tally     `json:"tallies"`
	Tie            bool        `json:"tie"`
	EliminatedID   string      `json:"eliminated_id,omitempty"`
	EliminatedName string      `json:"eliminated_name,omitempty"`
	EliminatedRole model.Role  `json:"eliminated_role,omitempty"`
	Winner         model.Team  `json:"winner,omitempty"`
	Phase          model.Phase `json:"phase"`
}

// TallyVotes counts elimination votes per target. Order of votes is
// irrelevant; the result is sorted by votes then name.
func TallyVotes(st *model.RoomState, round int) []Tally {
	counts := map[string]int{}
	for _, v := range st.VotesInRound(round, model.VoteElimination) {
		counts[v.TargetID]++
	}
	tallies := make([]Tally, 0, len(counts))
	for id, n := range counts {
		t := Tally{TargetID: id, Votes: n}
		if p := st.Participant(id); p != nil {
			t.Name = p.Name
		}
		tallies = append(tallies, t)
	}
	slices.SortFunc(tallies, func(a, b Tally) int {
		if c := cmp.Compare(b.Votes, a.Votes); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.TargetID, b.TargetID)
	})
	return tallies
}

// resolveVotes eliminates the single most voted target, checks the clown and
// the game-level win conditions, then either finishes the game or opens the
// next hint round.
func (e *Engine) resolveVotes(st *model.RoomState) *Resolution {
	room := &st.Room
	res := &Resolution{Round: room.CurrentRound, Tallies: TallyVotes(st, room.CurrentRound)}

	var eliminated *model.Participant
	switch {
	case len(res.Tallies) == 0:
		res.Tie = true
	case len(res.Tallies) > 1 && res.Tallies[0].Votes == res.Tallies[1].Votes:
		res.Tie = true
	default:
		target := st.Participant(res.Tallies[0].TargetID)
		if target != nil && !target.Eliminated {
			target.Eliminated = true
			eliminated = target
			res.EliminatedID = target.ID
			res.EliminatedName = target.Name
			res.EliminatedRole = target.Role
		}
	}

	var winner model.Team
	if eliminated != nil && eliminated.Role == model.RoleClown && eliminated.Clown.Goal == model.ClownGoalEliminate {
		winner = model.TeamClown
	} else {
		winner = CheckWinner(st)
	}

	active := st.Active()
	switch {
	case winner != model.TeamNone:
		e.finish(st, winner)
	case len(active) == 0:
		e.finish(st, model.TeamNone)
	default:
		room.Phase = model.PhaseHints
		room.CurrentRound++
		room.CurrentTurnIndex = e.Rand.IntN(len(active))
		e.refillNudgeMeters(st)
		resetPendingClowns(st)
	}
	res.Winner = room.WinningTeam
	res.Phase = room.Phase
	return res
}

// CheckWinner evaluates the game-level win condition on the active players.
func CheckWinner(st *model.RoomState) model.Team {
	active := st.Active()
	impostors := 0
	for _, p := range active {
		if p.Role == model.RoleImpostor {
			impostors++
		}
	}
	switch {
	case impostors == 0:
		return model.TeamCitizens
	case len(active) == 2:
		return model.TeamImpostors
	}
	return model.TeamNone
}

package game

import (
	"errors"

	"github.com/kstielfps/VATImposter/internal/model"
)

// GuessOutcome reports where the clown stands after a guess.
type GuessOutcome struct {
	Submitted int  `json:"submitted"`
	Remaining int  `json:"remaining"`
	Complete  bool `json:"complete"`
	Matched   bool `json:"matched"`
}

// SubmitClownGuess records one impostor guess. When the clown has named as
// many targets as there are impostors the set is checked: an exact match arms
// the clown's win condition, anything else is thrown away.
func (e *Engine) SubmitClownGuess(st *model.RoomState, actorID, targetID string) (*GuessOutcome, error) {
	clown, err := RequireParticipant(st, actorID)
	if err != nil {
		return nil, err
	}
	room := &st.Room
	if room.Phase != model.PhaseVoting {
		return nil, InvalidPhase("guesses are only accepted during voting")
	}
	if clown.Role != model.RoleClown {
		return nil, Unauthorized("only the clown can guess impostors")
	}
	switch {
	case clown.Eliminated:
		return nil, PreconditionFailed("eliminated clowns cannot guess")
	case !clown.Clown.Goal.CanGuess():
		return nil, PreconditionFailed("every impostor has already been found")
	case clown.Clown.FailedRound == room.CurrentRound:
		return nil, PreconditionFailed("wait for the next voting phase to guess again")
	}
	if targetID == clown.ID {
		return nil, Validation("you cannot guess yourself")
	}
	if st.Participant(targetID) == nil {
		return nil, NotFound("participant %s not found", targetID)
	}
	if len(st.GuessesBy(clown.ID, room.CurrentRound)) >= room.ActualImpostors {
		return nil, Conflict("no guesses left this round")
	}

	err = st.CreateVote(&model.Vote{
		VoterID:   clown.ID,
		TargetID:  targetID,
		Round:     room.CurrentRound,
		Kind:      model.VoteClownGuess,
		CreatedAt: e.Now(),
	})
	if errors.Is(err, model.ErrDuplicateVote) {
		return nil, Conflict("you already guessed that participant this round")
	}
	if err != nil {
		return nil, err
	}

	guesses := st.GuessesBy(clown.ID, room.CurrentRound)
	out := &GuessOutcome{Submitted: len(guesses), Remaining: room.ActualImpostors - len(guesses)}
	if out.Remaining > 0 {
		clown.Clown.Goal = model.ClownGoalPending
		return out, nil
	}

	out.Complete = true
	if sameTargets(guesses, impostorIDs(st)) {
		out.Matched = true
		known := make([]string, 0, len(guesses))
		for _, p := range st.Ordered() {
			if p.Role == model.RoleImpostor {
				known = append(known, p.ID)
			}
		}
		clown.Clown.Goal = model.ClownGoalEliminate
		clown.Clown.KnownImpostors = known
		clown.Clown.GoalReadyRound = room.CurrentRound
		return out, nil
	}

	st.DiscardGuesses(clown.ID, room.CurrentRound)
	clown.Clown.Goal = model.ClownGoalFinding
	clown.Clown.FailedRound = room.CurrentRound
	return out, nil
}

// UseChaosPower re-rolls every word in play. Impostors learn who the clown is.
func (e *Engine) UseChaosPower(st *model.RoomState, actorID string, groups []*model.WordGroup) error {
	clown, err := RequireParticipant(st, actorID)
	if err != nil {
		return err
	}
	if clown.Role != model.RoleClown {
		return Unauthorized("only the clown has the chaos power")
	}
	room := &st.Room
	if !room.Phase.InGame() {
		return InvalidPhase("chaos power can only be used during a game")
	}
	switch {
	case clown.Eliminated:
		return PreconditionFailed("eliminated clowns cannot use the chaos power")
	case clown.Clown.Goal != model.ClownGoalEliminate:
		return PreconditionFailed("find every impostor before using the chaos power")
	case clown.Clown.ChaosUsed:
		return PreconditionFailed("chaos power already used")
	}

	if err := drawWords(room, groups, e.Rand, room.MajorityGroupID, room.WhitemanGroupID); err != nil {
		return err
	}
	applyWords(st, groups, e.Rand)

	clown.Clown.ChaosUsed = true
	for _, p := range st.Participants {
		if p.Role == model.RoleImpostor {
			p.ImpostorKnowsClown = true
		}
	}
	return nil
}

func impostorIDs(st *model.RoomState) map[string]bool {
	ids := map[string]bool{}
	for _, p := range st.Participants {
		if p.Role == model.RoleImpostor {
			ids[p.ID] = true
		}
	}
	return ids
}

func sameTargets(guesses []*model.Vote, want map[string]bool) bool {
	if len(guesses) != len(want) {
		return false
	}
	for _, g := range guesses {
		if !want[g.TargetID] {
			return false
		}
	}
	return true
}

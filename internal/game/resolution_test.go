package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kstielfps/VATImposter/internal/model"
)

func TestVoteEliminatesImpostorCitizensWin(t *testing.T) {
	e := newTestEngine(1)
	st := playing(model.PhaseVoting, 4, model.RoleCitizen, model.RoleCitizen, model.RoleCitizen, model.RoleImpostor, model.RoleCitizen)

	res := voteAll(t, e, st, map[string]string{
		"p1": "p4", "p2": "p4", "p3": "p4", "p4": "p1", "p5": "p4",
	})
	require.NotNil(t, res)

	assert.False(t, res.Tie)
	assert.Equal(t, "p4", res.EliminatedID)
	assert.Equal(t, "P4", res.EliminatedName)
	assert.Equal(t, model.RoleImpostor, res.EliminatedRole)
	assert.Equal(t, model.TeamCitizens, res.Winner)
	assert.Equal(t, model.PhaseFinished, res.Phase)
	assert.Equal(t, []Tally{{TargetID: "p4", Name: "P4", Votes: 4}, {TargetID: "p1", Name: "P1", Votes: 1}}, res.Tallies)

	assert.True(t, st.Participant("p4").Eliminated)
	require.NotNil(t, st.Room.FinishedAt)
	assert.True(t, st.Room.FinishedAt.Equal(testNow))
}

func TestVoteBeforeEveryoneVotedDoesNotResolve(t *testing.T) {
	e := newTestEngine(1)
	st := playing(model.PhaseVoting, 4, model.RoleCitizen, model.RoleImpostor, model.RoleCitizen, model.RoleCitizen)

	res, err := e.SubmitVote(st, "p1", "p2")
	require.NoError(t, err)
	assert.Nil(t, res)

	_, err = e.SubmitVote(st, "p1", "p3")
	assert.Equal(t, KindConflict, KindOf(err))

	_, err = e.SubmitVote(st, "p2", "ghost")
	assert.Equal(t, KindNotFound, KindOf(err))

	assert.Equal(t, model.PhaseVoting, st.Room.Phase)
	assert.Len(t, st.Votes, 1)
}

func TestTieEliminatesNobody(t *testing.T) {
	e := newTestEngine(1)
	st := playing(model.PhaseVoting, 4, model.RoleImpostor, model.RoleCitizen, model.RoleCitizen, model.RoleCitizen)

	res := voteAll(t, e, st, map[string]string{"p1": "p2", "p2": "p1", "p3": "p1", "p4": "p2"})
	require.NotNil(t, res)

	assert.True(t, res.Tie)
	assert.Empty(t, res.EliminatedID)
	assert.Equal(t, model.TeamNone, res.Winner)
	assert.Equal(t, model.PhaseHints, st.Room.Phase)
	assert.Equal(t, 5, st.Room.CurrentRound)
	for _, p := range st.Participants {
		assert.False(t, p.Eliminated)
		assert.Equal(t, 5, p.NudgeMeterRound)
	}
	// the old round's votes don't count in the new one
	assert.Zero(t, len(st.VotesInRound(5, model.VoteElimination)))
}

func TestImpostorsWinAtTwoPlayers(t *testing.T) {
	e := newTestEngine(1)
	st := playing(model.PhaseVoting, 4, model.RoleImpostor, model.RoleCitizen, model.RoleCitizen)

	res := voteAll(t, e, st, map[string]string{"p1": "p2", "p2": "p3", "p3": "p2"})
	require.NotNil(t, res)

	assert.Equal(t, "p2", res.EliminatedID)
	assert.Equal(t, model.TeamImpostors, res.Winner)
	assert.Equal(t, model.PhaseFinished, st.Room.Phase)
}

func TestEliminatedVoters(t *testing.T) {
	e := newTestEngine(1)
	st := playing(model.PhaseVoting, 4, model.RoleCitizen, model.RoleImpostor, model.RoleCitizen, model.RoleWhiteman, model.RoleCitizen)
	st.Participant("p3").Eliminated = true
	st.Participant("p4").Eliminated = true

	_, err := e.SubmitVote(st, "p3", "p2")
	assert.Equal(t, KindUnauthorized, KindOf(err))

	// an eliminated whiteman still votes
	res, err := e.SubmitVote(st, "p4", "p2")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestVoteOutsideVoting(t *testing.T) {
	e := newTestEngine(1)
	st := playing(model.PhaseHints, 1, model.RoleCitizen, model.RoleImpostor, model.RoleCitizen, model.RoleCitizen)

	_, err := e.SubmitVote(st, "p1", "p2")
	assert.Equal(t, KindInvalidPhase, KindOf(err))
}

func TestTallyVotesIgnoresOrder(t *testing.T) {
	st := playing(model.PhaseVoting, 4, model.RoleCitizen, model.RoleImpostor, model.RoleCitizen, model.RoleCitizen)
	for _, v := range [][2]string{{"p4", "p2"}, {"p1", "p3"}, {"p3", "p2"}, {"p2", "p3"}} {
		require.NoError(t, st.CreateVote(&model.Vote{VoterID: v[0], TargetID: v[1], Round: 4, Kind: model.VoteElimination}))
	}
	forward := TallyVotes(st, 4)

	st.Votes[0], st.Votes[3] = st.Votes[3], st.Votes[0]
	st.Votes[1], st.Votes[2] = st.Votes[2], st.Votes[1]
	assert.Equal(t, forward, TallyVotes(st, 4))
	assert.Equal(t, []Tally{{TargetID: "p2", Name: "P2", Votes: 2}, {TargetID: "p3", Name: "P3", Votes: 2}}, forward)
}

func TestCheckWinner(t *testing.T) {
	tests := []struct {
		name       string
		roles      []model.Role
		eliminated []string
		want       model.Team
	}{
		{"game goes on", []model.Role{model.RoleImpostor, model.RoleCitizen, model.RoleCitizen}, nil, model.TeamNone},
		{"no impostors left", []model.Role{model.RoleImpostor, model.RoleCitizen, model.RoleCitizen}, []string{"p1"}, model.TeamCitizens},
		{"two left with an impostor", []model.Role{model.RoleImpostor, model.RoleCitizen, model.RoleCitizen}, []string{"p2"}, model.TeamImpostors},
		{"one of two impostors left", []model.Role{model.RoleImpostor, model.RoleImpostor, model.RoleCitizen, model.RoleCitizen, model.RoleWhiteman}, []string{"p1"}, model.TeamNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := playing(model.PhaseVoting, 4, tt.roles...)
			for _, id := range tt.eliminated {
				st.Participant(id).Eliminated = true
			}
			assert.Equal(t, tt.want, CheckWinner(st))
		})
	}
}

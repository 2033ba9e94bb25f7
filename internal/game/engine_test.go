package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kstielfps/VATImposter/internal/model"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"trimmed", "  Ana ", "Ana", false},
		{"empty", "   ", "", true},
		{"inner space", "Ana Maria", "", true},
		{"ten runes", "Joãozinhoo", "Joãozinhoo", false},
		{"too long", "Maximiliano", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateName(tt.input)
			if tt.wantErr {
				assert.Equal(t, KindValidation, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeConfig(t *testing.T) {
	cfg, err := NormalizeConfig(model.RoomConfig{RequestedImpostors: 2})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultMinPlayers, cfg.MinPlayers)
	assert.Equal(t, model.DefaultMaxPlayers, cfg.MaxPlayers)
	assert.Equal(t, model.DefaultHintTimeoutSeconds, cfg.HintTimeoutSeconds)

	bad := []model.RoomConfig{
		{RequestedImpostors: 0},
		{RequestedImpostors: 3},
		{RequestedImpostors: 1, RequestedWhitemen: 4},
		{RequestedImpostors: 1, RequestedClowns: 2},
		{RequestedImpostors: 1, MinPlayers: 3},
		{RequestedImpostors: 1, MaxPlayers: 13},
		{RequestedImpostors: 1, MinPlayers: 8, MaxPlayers: 6},
	}
	for _, c := range bad {
		_, err := NormalizeConfig(c)
		assert.Equal(t, KindValidation, KindOf(err), "%+v", c)
	}
}

func TestNewRoom(t *testing.T) {
	e := newTestEngine(1)
	st, creator, err := e.NewRoom("ABCDEF", " Ana ", model.DefaultRoomConfig())
	require.NoError(t, err)

	assert.Equal(t, model.PhaseWaiting, st.Room.Phase)
	assert.Equal(t, "Ana", st.Room.CreatorName)
	assert.True(t, creator.IsCreator)
	assert.Equal(t, model.NudgeMeterFull, creator.NudgeMeter)
	assert.Same(t, creator, st.Creator())
}

func TestJoin(t *testing.T) {
	e := newTestEngine(1)
	cfg := model.DefaultRoomConfig()
	cfg.MaxPlayers = 4
	st, _ := lobby(t, e, 3, cfg)

	_, err := e.Join(st, "P2")
	assert.Equal(t, KindConflict, KindOf(err))

	p, err := e.Join(st, "P4")
	require.NoError(t, err)
	assert.Equal(t, 4, p.Seq)

	_, err = e.Join(st, "P5")
	assert.Equal(t, KindPreconditionFailed, KindOf(err))

	st.Room.Phase = model.PhaseHints
	_, err = e.Join(st, "Late")
	assert.Equal(t, KindInvalidPhase, KindOf(err))
}

func TestConfigure(t *testing.T) {
	e := newTestEngine(1)
	st, creator := lobby(t, e, 5, model.DefaultRoomConfig())
	other := st.ParticipantByName("P2")

	err := e.Configure(st, other.ID, model.RoomConfig{RequestedImpostors: 2})
	assert.Equal(t, KindUnauthorized, KindOf(err))

	err = e.Configure(st, creator.ID, model.RoomConfig{RequestedImpostors: 2, MaxPlayers: 4})
	assert.Equal(t, KindPreconditionFailed, KindOf(err))

	require.NoError(t, e.Configure(st, creator.ID, model.RoomConfig{RequestedImpostors: 2, RequestedWhitemen: 1}))
	assert.Equal(t, model.PhaseConfiguring, st.Room.Phase)
	assert.Equal(t, 2, st.Room.Config.RequestedImpostors)
	assert.Equal(t, model.DefaultMaxPlayers, st.Room.Config.MaxPlayers)

	// still open, so people can keep joining
	_, err = e.Join(st, "P6")
	require.NoError(t, err)
}

func TestStartPreconditions(t *testing.T) {
	e := newTestEngine(1)

	st, creator := lobby(t, e, 3, model.DefaultRoomConfig())
	err := e.Start(st, creator.ID, testGroups())
	assert.Equal(t, KindPreconditionFailed, KindOf(err))

	cfg := model.DefaultRoomConfig()
	cfg.RequestedClowns = 1
	st, creator = lobby(t, e, 5, cfg)
	err = e.Start(st, creator.ID, testGroups())
	assert.Equal(t, KindPreconditionFailed, KindOf(err))

	st, creator = lobby(t, e, 4, model.DefaultRoomConfig())
	err = e.Start(st, st.ParticipantByName("P2").ID, testGroups())
	assert.Equal(t, KindUnauthorized, KindOf(err))

	err = e.Start(st, creator.ID, []*model.WordGroup{{ID: "g", Name: "one", Words: []model.Word{{ID: "w", Text: "x"}}}})
	assert.Equal(t, KindPreconditionFailed, KindOf(err))
	assert.Equal(t, model.PhaseWaiting, st.Room.Phase)
}

func TestStartAssignsRolesAndWords(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		e := newTestEngine(seed)
		cfg := model.RoomConfig{RequestedImpostors: 2, RequestedWhitemen: 1, RequestedClowns: 1}
		st, creator := lobby(t, e, 7, cfg)
		groups := testGroups()

		require.NoError(t, e.Start(st, creator.ID, groups))

		room := st.Room
		assert.Equal(t, model.PhaseHints, room.Phase)
		assert.Equal(t, 1, room.CurrentRound)
		assert.GreaterOrEqual(t, room.CurrentTurnIndex, 0)
		assert.Less(t, room.CurrentTurnIndex, 7)
		require.NotNil(t, room.StartedAt)
		require.NotNil(t, room.MajorityWord)
		require.NotNil(t, room.MinorityWord)
		assert.NotEqual(t, room.MajorityWord.ID, room.MinorityWord.ID)
		assert.NotEqual(t, room.MajorityGroupID, room.WhitemanGroupID)

		assert.Equal(t, room.ActualImpostors, st.CountRole(model.RoleImpostor, false))
		assert.Equal(t, room.ActualWhitemen, st.CountRole(model.RoleWhiteman, false))
		assert.Equal(t, room.ActualClowns, st.CountRole(model.RoleClown, false))
		assert.Equal(t, 1, room.ActualClowns)
		assert.GreaterOrEqual(t, room.ActualImpostors, 1)
		assert.LessOrEqual(t, room.ActualImpostors, 2)
		assert.LessOrEqual(t, room.ActualWhitemen, 1)

		whitemanPool := findGroup(groups, room.WhitemanGroupID)
		for _, p := range st.Participants {
			require.NotNil(t, p.SecretWord, p.Name)
			assert.Equal(t, room.CurrentRound, p.NudgeMeterRound)
			switch p.Role {
			case model.RoleImpostor, model.RoleClown:
				assert.Equal(t, room.MinorityWord.ID, p.SecretWord.ID)
			case model.RoleCitizen:
				assert.Equal(t, room.MajorityWord.ID, p.SecretWord.ID)
			case model.RoleWhiteman:
				require.NotNil(t, whitemanPool)
				assert.Contains(t, wordIDs(whitemanPool), p.SecretWord.ID)
			default:
				t.Fatalf("unexpected role %q", p.Role)
			}
		}
	}
}

func wordIDs(g *model.WordGroup) []string {
	var ids []string
	for _, w := range g.Words {
		ids = append(ids, w.ID)
	}
	return ids
}

func TestDrawCounts(t *testing.T) {
	e := newTestEngine(7)
	cfg := model.RoomConfig{RequestedImpostors: 2, RequestedWhitemen: 3, RequestedClowns: 1}
	for n := 4; n <= 12; n++ {
		for i := 0; i < 50; i++ {
			c := DrawCounts(cfg, n, e.Rand)
			assert.Equal(t, n, c.Impostors+c.Whitemen+c.Clowns+c.Citizens)
			assert.GreaterOrEqual(t, c.Impostors, 1)
			assert.LessOrEqual(t, c.Impostors, 2)
			assert.LessOrEqual(t, c.Whitemen, 3)
			assert.GreaterOrEqual(t, c.Citizens, 0)
			if n >= model.ClownMinPlayers {
				assert.Equal(t, 1, c.Clowns)
			} else {
				assert.Zero(t, c.Clowns)
			}
		}
	}

	assert.Equal(t, Counts{}, DrawCounts(cfg, 0, e.Rand))
}

func TestAssignWordsKeepsExistingWords(t *testing.T) {
	e := newTestEngine(3)
	room := &model.Room{
		MajorityGroupID: "g2",
		MajorityWord:    &model.WordRef{ID: "w4", Text: "Gato"},
		MinorityWord:    &model.WordRef{ID: "w5", Text: "Cachorro"},
	}
	require.NoError(t, AssignWords(room, testGroups(), e.Rand))
	assert.Equal(t, "w4", room.MajorityWord.ID)
	assert.Equal(t, "w5", room.MinorityWord.ID)
}

func TestSubmitHint(t *testing.T) {
	e := newTestEngine(1)
	st := playing(model.PhaseHints, 1, model.RoleCitizen, model.RoleImpostor, model.RoleCitizen, model.RoleCitizen)
	st.Room.CurrentTurnIndex = 1

	err := e.SubmitHint(st, "p1", "água")
	assert.Equal(t, KindNotYourTurn, KindOf(err))

	err = e.SubmitHint(st, "p2", "   ")
	assert.Equal(t, KindValidation, KindOf(err))

	err = e.SubmitHint(st, "p2", strings.Repeat("a", model.MaxHintLength+1))
	assert.Equal(t, KindValidation, KindOf(err))

	err = e.SubmitHint(st, "stranger", "oi")
	assert.Equal(t, KindUnauthorized, KindOf(err))

	require.NoError(t, e.SubmitHint(st, "p2", " molhado "))
	assert.Equal(t, 2, st.Room.CurrentTurnIndex)
	require.Len(t, st.Hints, 1)
	assert.Equal(t, "molhado", st.Hints[0].Content)
	assert.Equal(t, 1, st.Hints[0].Round)

	st.Room.Phase = model.PhaseVoting
	err = e.SubmitHint(st, "p3", "rio")
	assert.Equal(t, KindInvalidPhase, KindOf(err))
}

func TestHintRoundsLeadToVoting(t *testing.T) {
	e := newTestEngine(2)
	st, creator := lobby(t, e, 4, model.DefaultRoomConfig())
	require.NoError(t, e.Start(st, creator.ID, testGroups()))

	for round := 1; round <= model.HintRounds; round++ {
		require.Equal(t, round, st.Room.CurrentRound)
		for i := 0; i < 4; i++ {
			turn := st.CurrentTurn()
			require.NotNil(t, turn)
			require.NoError(t, e.SubmitHint(st, turn.ID, "dica"))
		}
		assert.Len(t, st.HintsInRound(round), 4)
	}

	assert.Equal(t, model.PhaseVoting, st.Room.Phase)
	assert.Equal(t, model.HintRounds+1, st.Room.CurrentRound)
	assert.Equal(t, 0, st.Room.CurrentTurnIndex)
}

func TestEliminatedCannotHint(t *testing.T) {
	e := newTestEngine(1)
	st := playing(model.PhaseHints, 5, model.RoleCitizen, model.RoleImpostor, model.RoleCitizen, model.RoleCitizen)
	st.Participant("p3").Eliminated = true

	err := e.SubmitHint(st, "p3", "oi")
	assert.Equal(t, KindNotYourTurn, KindOf(err))
}

func TestRestart(t *testing.T) {
	e := newTestEngine(1)
	st := playing(model.PhaseVoting, 4, model.RoleCitizen, model.RoleImpostor, model.RoleCitizen, model.RoleCitizen)

	err := e.Restart(st, "p1")
	assert.Equal(t, KindInvalidPhase, KindOf(err))

	res := voteAll(t, e, st, map[string]string{"p1": "p2", "p2": "p1", "p3": "p2", "p4": "p2"})
	require.NotNil(t, res)
	require.Equal(t, model.PhaseFinished, st.Room.Phase)

	err = e.Restart(st, "p2")
	assert.Equal(t, KindUnauthorized, KindOf(err))

	require.NoError(t, e.Restart(st, "p1"))
	assert.Equal(t, model.PhaseWaiting, st.Room.Phase)
	assert.Equal(t, model.TeamNone, st.Room.WinningTeam)
	assert.Nil(t, st.Room.FinishedAt)
	assert.Nil(t, st.Room.MajorityWord)
	assert.Zero(t, st.Room.CurrentRound)
	assert.Empty(t, st.Votes)
	assert.Empty(t, st.Hints)
	assert.Len(t, st.Participants, 4)
	for _, p := range st.Participants {
		assert.Equal(t, model.RoleNone, p.Role)
		assert.Nil(t, p.SecretWord)
		assert.False(t, p.Eliminated)
		assert.Equal(t, model.NudgeMeterFull, p.NudgeMeter)
	}

	// same people can play again
	require.NoError(t, e.Start(st, "p1", testGroups()))
	assert.Equal(t, model.PhaseHints, st.Room.Phase)
}

func TestKick(t *testing.T) {
	e := newTestEngine(1)
	st, creator := lobby(t, e, 4, model.DefaultRoomConfig())
	target := st.ParticipantByName("P3")

	_, err := e.Kick(st, target.ID, creator.ID)
	assert.Equal(t, KindUnauthorized, KindOf(err))

	_, err = e.Kick(st, creator.ID, creator.ID)
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = e.Kick(st, creator.ID, "nobody")
	assert.Equal(t, KindNotFound, KindOf(err))

	kicked, err := e.Kick(st, creator.ID, target.ID)
	require.NoError(t, err)
	assert.Equal(t, "P3", kicked.Name)
	assert.Nil(t, st.Participant(target.ID))
	assert.Len(t, st.Participants, 3)

	// the name is free again
	_, err = e.Join(st, "P3")
	require.NoError(t, err)

	st.Room.Phase = model.PhaseHints
	_, err = e.Kick(st, creator.ID, st.ParticipantByName("P2").ID)
	assert.Equal(t, KindInvalidPhase, KindOf(err))
}

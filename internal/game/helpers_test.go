package game

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kstielfps/VATImposter/internal/model"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// newTestEngine is seeded and clocked so runs are repeatable.
func newTestEngine(seed uint64) *Engine {
	n := 0
	return &Engine{
		Rand: rand.New(rand.NewPCG(seed, seed+1)),
		Now:  func() time.Time { return testNow },
		NewID: func() string {
			n++
			return fmt.Sprintf("p%d", n)
		},
	}
}

func testGroups() []*model.WordGroup {
	return []*model.WordGroup{
		{ID: "g1", Name: "Água", Words: []model.Word{
			{ID: "w1", GroupID: "g1", Text: "Água"},
			{ID: "w2", GroupID: "g1", Text: "Chuva"},
			{ID: "w3", GroupID: "g1", Text: "Rio"},
		}},
		{ID: "g2", Name: "Animais", Words: []model.Word{
			{ID: "w4", GroupID: "g2", Text: "Gato"},
			{ID: "w5", GroupID: "g2", Text: "Cachorro"},
		}},
	}
}

// lobby creates a room with a creator and n-1 joined players.
func lobby(t *testing.T, e *Engine, n int, cfg model.RoomConfig) (*model.RoomState, *model.Participant) {
	t.Helper()
	st, creator, err := e.NewRoom("ABCDEF", "Ana", cfg)
	require.NoError(t, err)
	for i := 1; i < n; i++ {
		_, err := e.Join(st, fmt.Sprintf("P%d", i+1))
		require.NoError(t, err)
	}
	return st, creator
}

// playing builds an in-game room with fixed roles. Participant i gets id
// "p<i+1>" and the first one is the creator.
func playing(phase model.Phase, round int, roles ...model.Role) *model.RoomState {
	st := model.NewRoomState(model.Room{
		Code:            "ABCDEF",
		Phase:           phase,
		CreatorName:     "P1",
		Config:          model.DefaultRoomConfig(),
		MajorityGroupID: "g1",
		MajorityWord:    &model.WordRef{ID: "w1", Text: "Água"},
		MinorityWord:    &model.WordRef{ID: "w2", Text: "Chuva"},
		CurrentRound:    round,
		CreatedAt:       testNow,
	})
	for i, role := range roles {
		p := model.NewParticipant(fmt.Sprintf("p%d", i+1), fmt.Sprintf("P%d", i+1), i == 0, testNow)
		p.Role = role
		switch role {
		case model.RoleImpostor, model.RoleClown:
			p.SecretWord = st.Room.MinorityWord.Clone()
		case model.RoleWhiteman:
			p.SecretWord = &model.WordRef{ID: "w4", Text: "Gato"}
		default:
			p.SecretWord = st.Room.MajorityWord.Clone()
		}
		if role == model.RoleClown {
			p.Clown.Goal = model.ClownGoalFinding
			st.Room.ActualClowns++
		}
		if role == model.RoleImpostor {
			st.Room.ActualImpostors++
		}
		p.RefillNudgeMeter(round)
		if err := st.AddParticipant(p); err != nil {
			panic(err)
		}
	}
	return st
}

func voteAll(t *testing.T, e *Engine, st *model.RoomState, ballots map[string]string) *Resolution {
	t.Helper()
	var res *Resolution
	for _, p := range st.Ordered() {
		target, ok := ballots[p.ID]
		if !ok {
			continue
		}
		var err error
		res, err = e.SubmitVote(st, p.ID, target)
		require.NoError(t, err)
	}
	return res
}

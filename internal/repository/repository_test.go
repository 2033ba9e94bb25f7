package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/kstielfps/VATImposter/internal/model"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleRoom(code string, names ...string) *model.RoomState {
	st := model.NewRoomState(model.Room{
		Code:        code,
		Phase:       model.PhaseWaiting,
		CreatorName: names[0],
		Config:      model.DefaultRoomConfig(),
		CreatedAt:   testNow,
	})
	for i, name := range names {
		st.AddParticipant(model.NewParticipant("id-"+name, name, i == 0, testNow))
	}
	return st
}

func newSQLiteRepo(t *testing.T) (RoomRepo, WordGroupRepo) {
	t.Helper()
	db, err := OpenSQL(sqlite.Open(filepath.Join(t.TempDir(), "rooms.db")))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewSQLRoomRepo(db, nil), NewSQLWordGroupRepo(db)
}

type repoFactory func(t *testing.T) (RoomRepo, WordGroupRepo)

func factories() map[string]repoFactory {
	return map[string]repoFactory{
		"memory": func(*testing.T) (RoomRepo, WordGroupRepo) {
			return NewMemoryRoomRepo(nil), NewMemoryWordGroupRepo()
		},
		"sqlite": newSQLiteRepo,
	}
}

func TestRoomRepo(t *testing.T) {
	for name, newRepo := range factories() {
		t.Run(name, func(t *testing.T) {
			runRoomRepoSuite(t, newRepo)
		})
	}
}

func runRoomRepoSuite(t *testing.T, newRepo repoFactory) {
	t.Run("create and get", func(t *testing.T) {
		rooms, _ := newRepo(t)
		ctx := context.Background()
		require.NoError(t, rooms.Create(ctx, sampleRoom("ABCDEF", "Ana", "Bia")))

		err := rooms.Create(ctx, sampleRoom("ABCDEF", "Caio"))
		assert.ErrorIs(t, err, ErrCodeTaken)

		st, err := rooms.Get(ctx, "ABCDEF")
		require.NoError(t, err)
		assert.Equal(t, "Ana", st.Room.CreatorName)
		assert.Equal(t, model.DefaultRoomConfig(), st.Room.Config)
		require.Len(t, st.Participants, 2)
		assert.Equal(t, "Ana", st.Creator().Name)
		assert.Equal(t, 2, st.Participant("id-Bia").Seq)

		_, err = rooms.Get(ctx, "ZZZZZZ")
		assert.ErrorIs(t, err, ErrRoomNotFound)

		ok, err := rooms.Exists(ctx, "ABCDEF")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("with room lock persists the whole aggregate", func(t *testing.T) {
		rooms, _ := newRepo(t)
		ctx := context.Background()
		require.NoError(t, rooms.Create(ctx, sampleRoom("ABCDEF", "Ana", "Bia", "Caio")))

		committed, err := rooms.WithRoomLock(ctx, "ABCDEF", func(st *model.RoomState) error {
			st.Room.Phase = model.PhaseVoting
			st.Room.CurrentRound = 4
			st.Room.MajorityWord = &model.WordRef{ID: "w1", Text: "Água"}
			bia := st.Participant("id-Bia")
			bia.Role = model.RoleClown
			bia.Clown.Goal = model.ClownGoalEliminate
			bia.Clown.KnownImpostors = []string{"id-Caio"}
			st.UpsertHint("id-Ana", 1, "mar", false, testNow)
			st.AddNudge("id-Ana", "id-Bia", 1, testNow)
			return st.CreateVote(&model.Vote{VoterID: "id-Ana", TargetID: "id-Caio", Round: 4, Kind: model.VoteElimination, CreatedAt: testNow})
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), committed.Room.Version)

		st, err := rooms.Get(ctx, "ABCDEF")
		require.NoError(t, err)
		assert.Equal(t, model.PhaseVoting, st.Room.Phase)
		assert.Equal(t, "Água", st.Room.MajorityWord.Text)
		bia := st.Participant("id-Bia")
		assert.Equal(t, model.RoleClown, bia.Role)
		assert.Equal(t, []string{"id-Caio"}, bia.Clown.KnownImpostors)
		require.Len(t, st.Hints, 1)
		assert.Equal(t, "mar", st.Hints[0].Content)
		assert.Len(t, st.Votes, 1)
		assert.Len(t, st.PendingNudges("id-Bia"), 1)
	})

	t.Run("failed mutation is not persisted", func(t *testing.T) {
		rooms, _ := newRepo(t)
		ctx := context.Background()
		require.NoError(t, rooms.Create(ctx, sampleRoom("ABCDEF", "Ana", "Bia")))

		boom := errors.New("boom")
		_, err := rooms.WithRoomLock(ctx, "ABCDEF", func(st *model.RoomState) error {
			st.Room.Phase = model.PhaseHints
			st.RemoveParticipant("id-Bia")
			return boom
		})
		assert.ErrorIs(t, err, boom)

		st, err := rooms.Get(ctx, "ABCDEF")
		require.NoError(t, err)
		assert.Equal(t, model.PhaseWaiting, st.Room.Phase)
		assert.Len(t, st.Participants, 2)
		assert.Zero(t, st.Room.Version)
	})

	t.Run("removed children are deleted", func(t *testing.T) {
		rooms, _ := newRepo(t)
		ctx := context.Background()
		require.NoError(t, rooms.Create(ctx, sampleRoom("ABCDEF", "Ana", "Bia", "Caio")))

		_, err := rooms.WithRoomLock(ctx, "ABCDEF", func(st *model.RoomState) error {
			st.UpsertHint("id-Bia", 1, "nuvem", false, testNow)
			st.UpsertHint("id-Caio", 1, "sol", false, testNow)
			return nil
		})
		require.NoError(t, err)

		_, err = rooms.WithRoomLock(ctx, "ABCDEF", func(st *model.RoomState) error {
			st.RemoveParticipant("id-Bia")
			// the freed name can be reused straight away
			return st.AddParticipant(model.NewParticipant("id-Bia2", "Bia", false, testNow))
		})
		require.NoError(t, err)

		st, err := rooms.Get(ctx, "ABCDEF")
		require.NoError(t, err)
		assert.Nil(t, st.Participant("id-Bia"))
		assert.NotNil(t, st.Participant("id-Bia2"))
		require.Len(t, st.Hints, 1)
		assert.Equal(t, "id-Caio", st.Hints[0].ParticipantID)
	})

	t.Run("mutations are serialized", func(t *testing.T) {
		rooms, _ := newRepo(t)
		ctx := context.Background()
		require.NoError(t, rooms.Create(ctx, sampleRoom("ABCDEF", "Ana")))

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := rooms.WithRoomLock(ctx, "ABCDEF", func(st *model.RoomState) error {
					st.Room.CurrentRound++
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		st, err := rooms.Get(ctx, "ABCDEF")
		require.NoError(t, err)
		assert.Equal(t, 10, st.Room.CurrentRound)
		assert.Equal(t, int64(10), st.Room.Version)
	})

	t.Run("delete where", func(t *testing.T) {
		rooms, _ := newRepo(t)
		ctx := context.Background()
		require.NoError(t, rooms.Create(ctx, sampleRoom("ABCDEF", "Ana", "Bia")))

		deleted, err := rooms.DeleteWhere(ctx, "ABCDEF", func(st *model.RoomState) bool {
			return st.Room.Phase == model.PhaseFinished
		})
		require.NoError(t, err)
		assert.False(t, deleted)

		deleted, err = rooms.DeleteWhere(ctx, "ABCDEF", func(st *model.RoomState) bool {
			return st.Creator().Name == "Ana"
		})
		require.NoError(t, err)
		assert.True(t, deleted)

		_, err = rooms.Get(ctx, "ABCDEF")
		assert.ErrorIs(t, err, ErrRoomNotFound)

		deleted, err = rooms.DeleteWhere(ctx, "ABCDEF", func(*model.RoomState) bool { return true })
		require.NoError(t, err)
		assert.False(t, deleted)

		_, err = rooms.WithRoomLock(ctx, "ABCDEF", func(*model.RoomState) error { return nil })
		assert.ErrorIs(t, err, ErrRoomNotFound)
	})

	t.Run("list finished", func(t *testing.T) {
		rooms, _ := newRepo(t)
		ctx := context.Background()
		require.NoError(t, rooms.Create(ctx, sampleRoom("ABCDEF", "Ana")))
		require.NoError(t, rooms.Create(ctx, sampleRoom("GHJKLM", "Bia")))

		_, err := rooms.WithRoomLock(ctx, "GHJKLM", func(st *model.RoomState) error {
			st.Room.Phase = model.PhaseFinished
			at := testNow.Add(time.Minute)
			st.Room.FinishedAt = &at
			return nil
		})
		require.NoError(t, err)

		finished, err := rooms.ListFinished(ctx)
		require.NoError(t, err)
		require.Len(t, finished, 1)
		assert.True(t, finished["GHJKLM"].Equal(testNow.Add(time.Minute)))

		require.NoError(t, rooms.Delete(ctx, "GHJKLM"))
		finished, err = rooms.ListFinished(ctx)
		require.NoError(t, err)
		assert.Empty(t, finished)
	})
}

func TestSeedWordGroupsIsIdempotent(t *testing.T) {
	for name, newRepo := range factories() {
		t.Run(name, func(t *testing.T) {
			_, words := newRepo(t)
			ctx := context.Background()

			created, err := SeedWordGroups(ctx, words)
			require.NoError(t, err)
			assert.Positive(t, created)

			again, err := SeedWordGroups(ctx, words)
			require.NoError(t, err)
			assert.Zero(t, again)

			groups, err := words.ListWithWords(ctx)
			require.NoError(t, err)
			assert.Len(t, groups, created)
			for _, g := range groups {
				assert.True(t, g.Playable(), g.Name)
				for _, w := range g.Words {
					assert.Equal(t, g.ID, w.GroupID)
				}
			}
		})
	}
}

func TestDefaultWordGroupsHaveStableIDs(t *testing.T) {
	first, err := DefaultWordGroups()
	require.NoError(t, err)
	second, err := DefaultWordGroups()
	require.NoError(t, err)

	require.NotEmpty(t, first)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[0].Words[0].ID, second[0].Words[0].ID)

	ids := make(map[string]bool)
	for _, g := range first {
		for _, w := range g.Words {
			assert.False(t, ids[w.ID], "duplicate word id %s", w.ID)
			ids[w.ID] = true
		}
	}
}

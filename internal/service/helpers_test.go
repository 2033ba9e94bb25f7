package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kstielfps/VATImposter/internal/cache"
	"github.com/kstielfps/VATImposter/internal/model"
	"github.com/kstielfps/VATImposter/internal/repository"
)

type sent struct {
	Room          string
	ParticipantID string
	Type          string
	Payload       any
}

// recorder is a Broadcaster that keeps everything it was asked to send.
type recorder struct {
	mu           sync.Mutex
	messages     []sent
	disconnected []string
	closedRooms  []string
}

func (r *recorder) BroadcastToPlayer(room, participantID, msgType string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, sent{room, participantID, msgType, payload})
}

func (r *recorder) BroadcastToSpectators(room, msgType string, payload interface{}) {
	r.BroadcastToPlayer(room, "spectators", msgType, payload)
}

func (r *recorder) BroadcastToAll(room, msgType string, payload interface{}) {
	r.BroadcastToPlayer(room, "*", msgType, payload)
}

func (r *recorder) DisconnectPlayer(room, participantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnected = append(r.disconnected, room+"/"+participantID)
}

func (r *recorder) DisconnectRoom(room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closedRooms = append(r.closedRooms, room)
}

func (r *recorder) ofType(msgType string) []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sent
	for _, m := range r.messages {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

func (r *recorder) roomClosed(room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.closedRooms {
		if c == room {
			return true
		}
	}
	return false
}

type harness struct {
	rooms     repository.RoomRepo
	roomCache cache.RoomCache
	lifecycle *Lifecycle
	auth      *AuthService
	roomSvc   *RoomService
	gameSvc   *GameService
	rec       *recorder
}

func newHarness(t *testing.T, autoDelete time.Duration) *harness {
	t.Helper()
	groups, err := repository.DefaultWordGroups()
	require.NoError(t, err)

	h := &harness{
		rooms:     repository.NewMemoryRoomRepo(nil),
		roomCache: cache.NewMemoryRoomCache(),
		auth:      NewAuthService("test-secret", time.Hour),
		rec:       &recorder{},
	}
	limiter := cache.NewLocalNudgeLimiter(time.Hour)
	h.lifecycle = NewLifecycle(h.rooms, h.roomCache, limiter, autoDelete)
	h.lifecycle.tick = 10 * time.Millisecond
	h.lifecycle.SetBroadcaster(h.rec)
	t.Cleanup(h.lifecycle.Stop)

	gw := NewGateway(Deps{
		Rooms:     h.rooms,
		Words:     repository.NewMemoryWordGroupRepo(groups...),
		RoomCache: h.roomCache,
		Limiter:   limiter,
		Lifecycle: h.lifecycle,
	})
	gw.SetBroadcaster(h.rec)
	h.roomSvc = NewRoomService(gw, h.auth)
	h.gameSvc = NewGameService(gw)
	return h
}

// lobby creates a room and joins n-1 more players. The creator comes first.
func (h *harness) lobby(t *testing.T, n int) (string, []*model.SessionResponse) {
	t.Helper()
	ctx := context.Background()
	creator, err := h.roomSvc.CreateRoom(ctx, "Ana", model.DefaultRoomConfig())
	require.NoError(t, err)
	sessions := []*model.SessionResponse{creator}
	for i := 2; i <= n; i++ {
		s, err := h.roomSvc.Join(ctx, creator.Code, fmt.Sprintf("P%d", i))
		require.NoError(t, err)
		sessions = append(sessions, s)
	}
	return creator.Code, sessions
}

func (h *harness) state(t *testing.T, code string) *model.RoomState {
	t.Helper()
	st, err := h.rooms.Get(context.Background(), code)
	require.NoError(t, err)
	return st
}

// playHints gives hints in turn order until voting opens.
func (h *harness) playHints(t *testing.T, code string) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		st := h.state(t, code)
		if st.Room.Phase != model.PhaseHints {
			return
		}
		turn := st.CurrentTurn()
		require.NotNil(t, turn)
		_, err := h.gameSvc.SubmitHint(ctx, code, turn.ID, "dica")
		require.NoError(t, err)
	}
	t.Fatal("hint rounds never ended")
}

// eliminate makes every active player vote for target.
func (h *harness) eliminate(t *testing.T, code, target string) *VoteResult {
	t.Helper()
	ctx := context.Background()
	var last *VoteResult
	for _, p := range h.state(t, code).Active() {
		res, err := h.gameSvc.SubmitVote(ctx, code, p.ID, target)
		require.NoError(t, err)
		last = res
	}
	return last
}

func impostorOf(t *testing.T, st *model.RoomState) *model.Participant {
	t.Helper()
	for _, p := range st.Participants {
		if p.Role == model.RoleImpostor {
			return p
		}
	}
	t.Fatal("no impostor")
	return nil
}

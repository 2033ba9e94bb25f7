package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kstielfps/VATImposter/internal/cache"
	"github.com/kstielfps/VATImposter/internal/game"
	"github.com/kstielfps/VATImposter/internal/model"
	"github.com/kstielfps/VATImposter/internal/repository"
)

// Deps groups what the room and game services share.
type Deps struct {
	Rooms     repository.RoomRepo
	Words     repository.WordGroupRepo
	RoomCache cache.RoomCache
	Limiter   cache.NudgeLimiter
	Lifecycle *Lifecycle
	Engine    *game.Engine
}

// Gateway is the single path every action takes: lock the room, apply the
// engine, commit, then notify timers, cache and viewers.
type Gateway struct {
	rooms       repository.RoomRepo
	words       repository.WordGroupRepo
	roomCache   cache.RoomCache
	limiter     cache.NudgeLimiter
	lifecycle   *Lifecycle
	engine      *game.Engine
	broadcaster Broadcaster
}

func NewGateway(d Deps) *Gateway {
	engine := d.Engine
	if engine == nil {
		engine = game.NewEngine()
	}
	return &Gateway{
		rooms:       d.Rooms,
		words:       d.Words,
		roomCache:   d.RoomCache,
		limiter:     d.Limiter,
		lifecycle:   d.Lifecycle,
		engine:      engine,
		broadcaster: noopBroadcaster{},
	}
}

// SetBroadcaster sets the broadcaster (called after hub is created)
func (g *Gateway) SetBroadcaster(b Broadcaster) {
	g.broadcaster = b
}

// mutate runs fn on the room under its lock and handles everything that
// follows a commit. Errors come back as *game.Error.
func (g *Gateway) mutate(ctx context.Context, code string, fn func(st *model.RoomState) error) (*model.RoomState, error) {
	var before model.Phase
	st, err := g.rooms.WithRoomLock(ctx, code, func(st *model.RoomState) error {
		before = st.Room.Phase
		return fn(st)
	})
	if err != nil {
		return nil, g.mapError(ctx, code, err)
	}
	g.afterCommit(ctx, st, before)
	return st, nil
}

func (g *Gateway) afterCommit(ctx context.Context, st *model.RoomState, before model.Phase) {
	code := st.Room.Code
	now := st.Room.Phase
	switch {
	case now == model.PhaseFinished && before != model.PhaseFinished && st.Room.FinishedAt != nil:
		g.lifecycle.Schedule(code, *st.Room.FinishedAt)
		log.Info().Str("room", code).Str("winner", string(st.Room.WinningTeam)).Msg("game finished")
	case before == model.PhaseFinished && now != model.PhaseFinished:
		g.lifecycle.Cancel(code)
	}
	if before != now {
		log.Debug().Str("room", code).Str("from", string(before)).Str("to", string(now)).Int("round", st.Room.CurrentRound).Msg("phase changed")
	}
	if err := g.roomCache.SetMeta(ctx, code, model.MetaOf(st, time.Now())); err != nil {
		log.Warn().Err(err).Str("room", code).Msg("failed to cache room meta")
	}
}

// load reads the committed room, expiring it first if it outlived its
// finished grace period.
func (g *Gateway) load(ctx context.Context, code string) (*model.RoomState, error) {
	st, err := g.rooms.Get(ctx, code)
	if err != nil {
		return nil, g.mapError(ctx, code, err)
	}
	if g.lifecycle.Overdue(st) {
		deleted, err := g.lifecycle.Expire(ctx, code, *st.Room.FinishedAt)
		if err != nil {
			return nil, g.mapError(ctx, code, err)
		}
		if deleted {
			return nil, game.RoomGone("room %s has expired", code)
		}
		// Restarted or closed in the meantime.
		if st, err = g.rooms.Get(ctx, code); err != nil {
			return nil, g.mapError(ctx, code, err)
		}
	}
	return st, nil
}

func (g *Gateway) mapError(ctx context.Context, code string, err error) error {
	var gerr *game.Error
	switch {
	case errors.As(err, &gerr):
		log.Debug().Str("room", code).Str("kind", string(gerr.Kind)).Msg(gerr.Msg)
		return gerr
	case errors.Is(err, repository.ErrRoomNotFound):
		gone, cerr := g.roomCache.IsGone(ctx, code)
		if cerr != nil {
			log.Warn().Err(cerr).Str("room", code).Msg("failed to check room tombstone")
		}
		if gone {
			return game.RoomGone("room %s no longer exists", code)
		}
		return game.NotFound("room %s not found", code)
	case errors.Is(err, model.ErrDuplicateVote):
		return game.Conflict("vote already recorded")
	case errors.Is(err, model.ErrDuplicateName):
		return game.Conflict("name already taken in this room")
	case errors.Is(err, repository.ErrStaleRoom):
		return game.Conflict("room changed concurrently, retry")
	default:
		log.Error().Err(err).Str("room", code).Msg("room action failed")
		return game.Internal(err)
	}
}

func (g *Gateway) projectOptions() game.ProjectOptions {
	return game.ProjectOptions{Now: time.Now(), AutoDeleteAfter: g.lifecycle.After()}
}

// view projects st for one viewer.
func (g *Gateway) view(st *model.RoomState, v game.Viewer) *game.Snapshot {
	return game.Project(st, v, g.projectOptions())
}

// broadcastState pushes a personal snapshot to every participant and the
// public one to spectators. Delivery is best effort.
func (g *Gateway) broadcastState(st *model.RoomState) {
	opts := g.projectOptions()
	code := st.Room.Code
	for _, p := range st.Participants {
		g.broadcaster.BroadcastToPlayer(code, p.ID, MsgState, game.Project(st, game.Viewer{ParticipantID: p.ID}, opts))
	}
	g.broadcaster.BroadcastToSpectators(code, MsgState, game.Project(st, game.Viewer{Spectator: true}, opts))
}

func (g *Gateway) wordGroups(ctx context.Context, code string) ([]*model.WordGroup, error) {
	groups, err := g.words.ListWithWords(ctx)
	if err != nil {
		return nil, g.mapError(ctx, code, err)
	}
	return groups, nil
}

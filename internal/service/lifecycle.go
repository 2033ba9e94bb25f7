package service

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kstielfps/VATImposter/internal/cache"
	"github.com/kstielfps/VATImposter/internal/model"
	"github.com/kstielfps/VATImposter/internal/repository"
)

// DefaultAutoDeleteAfter is how long a finished room survives.
const DefaultAutoDeleteAfter = 60 * time.Second

type cleanupTask struct {
	finishedAt time.Time
	cancel     context.CancelFunc
}

// Lifecycle runs one cancelable auto-delete task per finished room. Each
// task ticks a countdown to the room's viewers and deletes the room at
// expiry, re-checked under the room lock.
type Lifecycle struct {
	rooms       repository.RoomRepo
	roomCache   cache.RoomCache
	limiter     cache.NudgeLimiter
	broadcaster Broadcaster

	after time.Duration
	tick  time.Duration
	now   func() time.Time

	mu    sync.Mutex
	tasks map[string]*cleanupTask
	wg    sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

func NewLifecycle(rooms repository.RoomRepo, roomCache cache.RoomCache, limiter cache.NudgeLimiter, after time.Duration) *Lifecycle {
	if after <= 0 {
		after = DefaultAutoDeleteAfter
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Lifecycle{
		rooms:       rooms,
		roomCache:   roomCache,
		limiter:     limiter,
		broadcaster: noopBroadcaster{},
		after:       after,
		tick:        time.Second,
		now:         time.Now,
		tasks:       make(map[string]*cleanupTask),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetBroadcaster sets the broadcaster (called after hub is created)
func (l *Lifecycle) SetBroadcaster(b Broadcaster) {
	l.broadcaster = b
}

func (l *Lifecycle) After() time.Duration {
	return l.after
}

// Schedule starts the countdown for a room that finished at finishedAt. A
// task already running for the same finish is kept.
func (l *Lifecycle) Schedule(code string, finishedAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ctx.Err() != nil {
		return
	}
	if t, ok := l.tasks[code]; ok {
		if t.finishedAt.Equal(finishedAt) {
			return
		}
		t.cancel()
	}
	ctx, cancel := context.WithCancel(l.ctx)
	task := &cleanupTask{finishedAt: finishedAt, cancel: cancel}
	l.tasks[code] = task

	l.wg.Add(1)
	go l.run(ctx, code, task)
	log.Debug().Str("room", code).Time("finished_at", finishedAt).Msg("auto-delete scheduled")
}

// Cancel stops the room's countdown, if any.
func (l *Lifecycle) Cancel(code string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.tasks[code]; ok {
		t.cancel()
		delete(l.tasks, code)
		log.Debug().Str("room", code).Msg("auto-delete cancelled")
	}
}

// Pending reports whether a countdown is running for the room.
func (l *Lifecycle) Pending(code string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.tasks[code]
	return ok
}

// Overdue reports whether a finished room has outlived its grace period.
func (l *Lifecycle) Overdue(st *model.RoomState) bool {
	r := &st.Room
	return r.Phase == model.PhaseFinished && r.FinishedAt != nil &&
		!l.now().Before(r.FinishedAt.Add(l.after))
}

// Expire deletes a finished room right away if it is still the same
// finished game. It reports whether the room was deleted.
func (l *Lifecycle) Expire(ctx context.Context, code string, finishedAt time.Time) (bool, error) {
	deleted, err := l.rooms.DeleteWhere(ctx, code, func(st *model.RoomState) bool {
		return st.Room.Phase == model.PhaseFinished &&
			st.Room.FinishedAt != nil &&
			st.Room.FinishedAt.Equal(finishedAt)
	})
	if err != nil || !deleted {
		return deleted, err
	}

	if err := l.roomCache.MarkGone(ctx, code); err != nil {
		log.Warn().Err(err).Str("room", code).Msg("failed to record deleted room")
	}
	if err := l.limiter.Forget(ctx, code); err != nil {
		log.Warn().Err(err).Str("room", code).Msg("failed to clear nudge limits")
	}
	l.broadcaster.BroadcastToAll(code, MsgRoomClosed, RoomClosedPayload{Reason: closeReasonExpired, Redirect: "/"})
	l.broadcaster.DisconnectRoom(code)
	log.Info().Str("room", code).Msg("finished room auto-deleted")
	return true, nil
}

// Resume schedules every finished room found in the store, so a restarted
// server still cleans them up.
func (l *Lifecycle) Resume(ctx context.Context) error {
	finished, err := l.rooms.ListFinished(ctx)
	if err != nil {
		return err
	}
	for code, at := range finished {
		l.Schedule(code, at)
	}
	if len(finished) > 0 {
		log.Info().Int("rooms", len(finished)).Msg("resumed auto-delete countdowns")
	}
	return nil
}

// Stop cancels every countdown and waits for the tasks to exit.
func (l *Lifecycle) Stop() {
	l.mu.Lock()
	l.cancel()
	l.tasks = make(map[string]*cleanupTask)
	l.mu.Unlock()
	l.wg.Wait()
}

func (l *Lifecycle) run(ctx context.Context, code string, task *cleanupTask) {
	defer l.wg.Done()
	defer l.forget(code, task)

	deadline := task.finishedAt.Add(l.after)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		remaining := deadline.Sub(l.now())
		if remaining <= 0 {
			if _, err := l.Expire(ctx, code, task.finishedAt); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Str("room", code).Msg("auto-delete failed")
			}
			return
		}
		secs := int(math.Ceil(remaining.Seconds()))
		l.broadcaster.BroadcastToAll(code, MsgAutoDeleteCountdown, CountdownPayload{SecondsRemaining: secs})
		timer.Reset(min(l.tick, remaining))
	}
}

func (l *Lifecycle) forget(code string, task *cleanupTask) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tasks[code] == task {
		delete(l.tasks, code)
	}
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RoomLocker hands out the exclusive per-room lock. Rooms never contend with
// each other.
type RoomLocker interface {
	Lock(ctx context.Context, code string) (unlock func(), err error)
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

type localLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

// NewLocalRoomLocker serializes room mutations inside this process.
func NewLocalRoomLocker() RoomLocker {
	return &localLocker{locks: make(map[string]*lockEntry)}
}

func (l *localLocker) Lock(ctx context.Context, code string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[code]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		l.locks[code] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.ch
				l.release(code, e)
			})
		}, nil
	case <-ctx.Done():
		l.release(code, e)
		return nil, ctx.Err()
	}
}

func (l *localLocker) release(code string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, code)
	}
}

var ErrLockTimeout = errors.New("timed out waiting for room lock")

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	client *redis.Client
	local  RoomLocker
	ttl    time.Duration
	retry  time.Duration
	wait   time.Duration
}

// NewRoomLocker layers a Redis lease (SET NX PX) over the in-process lock so
// that several server processes sharing a store also serialize per room.
func NewRoomLocker(client *redis.Client) RoomLocker {
	return &redisLocker{
		client: client,
		local:  NewLocalRoomLocker(),
		ttl:    10 * time.Second,
		retry:  25 * time.Millisecond,
		wait:   5 * time.Second,
	}
}

func (l *redisLocker) key(code string) string {
	return fmt.Sprintf("room:%s:lock", code)
}

func (l *redisLocker) Lock(ctx context.Context, code string) (func(), error) {
	unlockLocal, err := l.local.Lock(ctx, code)
	if err != nil {
		return nil, err
	}

	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.client.SetNX(ctx, l.key(code), token, l.ttl).Result()
		if err != nil {
			unlockLocal()
			return nil, err
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			unlockLocal()
			return nil, ErrLockTimeout
		}
		select {
		case <-time.After(l.retry):
		case <-ctx.Done():
			unlockLocal()
			return nil, ctx.Err()
		}
	}

	return func() {
		// The lease must be released even if the caller's context is done.
		unlockScript.Run(context.Background(), l.client, []string{l.key(code)}, token)
		unlockLocal()
	}, nil
}

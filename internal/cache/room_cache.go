package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kstielfps/VATImposter/internal/model"
)

// RoomCache keeps a summary of live rooms and remembers rooms that are gone,
// so late requests can tell "never existed" from "expired or closed".
type RoomCache interface {
	SetMeta(ctx context.Context, code string, meta *model.RoomMeta) error
	GetMeta(ctx context.Context, code string) (*model.RoomMeta, error)
	Delete(ctx context.Context, code string) error
	Exists(ctx context.Context, code string) (bool, error)
	MarkGone(ctx context.Context, code string) error
	IsGone(ctx context.Context, code string) (bool, error)
}

const (
	metaTTL = 24 * time.Hour
	goneTTL = 30 * time.Minute
)

type roomCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRoomCache creates a Redis-backed room cache
func NewRoomCache(client *redis.Client) RoomCache {
	return &roomCache{
		client: client,
		ttl:    metaTTL,
	}
}

func (c *roomCache) key(code string) string {
	return fmt.Sprintf("room:%s", code)
}

func (c *roomCache) goneKey(code string) string {
	return fmt.Sprintf("room:%s:gone", code)
}

func (c *roomCache) SetMeta(ctx context.Context, code string, meta *model.RoomMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.key(code), data, c.ttl)
	pipe.Del(ctx, c.goneKey(code))
	_, err = pipe.Exec(ctx)
	return err
}

func (c *roomCache) GetMeta(ctx context.Context, code string) (*model.RoomMeta, error) {
	data, err := c.client.Get(ctx, c.key(code)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var meta model.RoomMeta
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (c *roomCache) Delete(ctx context.Context, code string) error {
	return c.client.Del(ctx, c.key(code)).Err()
}

func (c *roomCache) Exists(ctx context.Context, code string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(code)).Result()
	return n > 0, err
}

func (c *roomCache) MarkGone(ctx context.Context, code string) error {
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, c.key(code))
	pipe.Set(ctx, c.goneKey(code), time.Now().Unix(), goneTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *roomCache) IsGone(ctx context.Context, code string) (bool, error) {
	n, err := c.client.Exists(ctx, c.goneKey(code)).Result()
	return n > 0, err
}

type memoryRoomCache struct {
	mu   sync.RWMutex
	meta map[string]*model.RoomMeta
	gone map[string]time.Time
	now  func() time.Time
}

// NewMemoryRoomCache is the in-process RoomCache used without Redis.
func NewMemoryRoomCache() RoomCache {
	return &memoryRoomCache{
		meta: make(map[string]*model.RoomMeta),
		gone: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (c *memoryRoomCache) SetMeta(_ context.Context, code string, meta *model.RoomMeta) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := *meta
	c.meta[code] = &m
	delete(c.gone, code)
	return nil
}

func (c *memoryRoomCache) GetMeta(_ context.Context, code string) (*model.RoomMeta, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.meta[code]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (c *memoryRoomCache) Delete(_ context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.meta, code)
	return nil
}

func (c *memoryRoomCache) Exists(_ context.Context, code string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.meta[code]
	return ok, nil
}

func (c *memoryRoomCache) MarkGone(_ context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	delete(c.meta, code)
	c.gone[code] = now
	for k, at := range c.gone {
		if now.Sub(at) > goneTTL {
			delete(c.gone, k)
		}
	}
	return nil
}

func (c *memoryRoomCache) IsGone(_ context.Context, code string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	at, ok := c.gone[code]
	return ok && c.now().Sub(at) <= goneTTL, nil
}

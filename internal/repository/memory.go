package repository

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/kstielfps/VATImposter/internal/cache"
	"github.com/kstielfps/VATImposter/internal/model"
)

type memoryRoomRepo struct {
	mu     sync.RWMutex
	rooms  map[string]*model.RoomState
	locker cache.RoomLocker
}

// NewMemoryRoomRepo keeps rooms in process memory. Suitable for a single
// server and for tests.
func NewMemoryRoomRepo(locker cache.RoomLocker) RoomRepo {
	if locker == nil {
		locker = cache.NewLocalRoomLocker()
	}
	return &memoryRoomRepo{
		rooms:  make(map[string]*model.RoomState),
		locker: locker,
	}
}

func (r *memoryRoomRepo) Create(_ context.Context, st *model.RoomState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[st.Room.Code]; ok {
		return ErrCodeTaken
	}
	r.rooms[st.Room.Code] = st.Clone()
	return nil
}

func (r *memoryRoomRepo) Get(_ context.Context, code string) (*model.RoomState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return st.Clone(), nil
}

func (r *memoryRoomRepo) WithRoomLock(ctx context.Context, code string, fn func(st *model.RoomState) error) (*model.RoomState, error) {
	unlock, err := r.locker.Lock(ctx, code)
	if err != nil {
		return nil, err
	}
	defer unlock()

	st, err := r.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := fn(st); err != nil {
		return nil, err
	}
	st.Room.Version++

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[code]; !ok {
		return nil, ErrRoomNotFound
	}
	r.rooms[code] = st.Clone()
	return st, nil
}

func (r *memoryRoomRepo) DeleteWhere(ctx context.Context, code string, pred func(st *model.RoomState) bool) (bool, error) {
	unlock, err := r.locker.Lock(ctx, code)
	if err != nil {
		return false, err
	}
	defer unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.rooms[code]
	if !ok || !pred(st.Clone()) {
		return false, nil
	}
	delete(r.rooms, code)
	return true, nil
}

func (r *memoryRoomRepo) Delete(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, code)
	return nil
}

func (r *memoryRoomRepo) Exists(_ context.Context, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[code]
	return ok, nil
}

func (r *memoryRoomRepo) ListFinished(_ context.Context) (map[string]time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]time.Time)
	for code, st := range r.rooms {
		if st.Room.Phase == model.PhaseFinished && st.Room.FinishedAt != nil {
			out[code] = *st.Room.FinishedAt
		}
	}
	return out, nil
}

type memoryWordGroupRepo struct {
	mu     sync.RWMutex
	groups []*model.WordGroup
}

// NewMemoryWordGroupRepo returns a word repo preloaded with groups.
func NewMemoryWordGroupRepo(groups ...*model.WordGroup) WordGroupRepo {
	r := &memoryWordGroupRepo{}
	for _, g := range groups {
		r.Save(context.Background(), g)
	}
	return r
}

func (r *memoryWordGroupRepo) ListWithWords(_ context.Context) ([]*model.WordGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.WordGroup, 0, len(r.groups))
	for _, g := range r.groups {
		c := *g
		c.Words = slices.Clone(g.Words)
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *model.WordGroup) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *memoryWordGroupRepo) Save(_ context.Context, g *model.WordGroup) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.groups {
		if existing.Name == g.Name {
			return false, nil
		}
	}
	c := *g
	c.Words = slices.Clone(g.Words)
	r.groups = append(r.groups, &c)
	return true, nil
}

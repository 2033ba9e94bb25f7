package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kstielfps/VATImposter/internal/model"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrCodeTaken    = errors.New("room code already in use")
	ErrStaleRoom    = errors.New("room changed while it was locked")
)

// RoomRepo stores whole room aggregates. Every mutation goes through
// WithRoomLock, which holds the room's exclusive lock for the whole
// read-modify-write.
type RoomRepo interface {
	Create(ctx context.Context, st *model.RoomState) error
	Get(ctx context.Context, code string) (*model.RoomState, error)

	// WithRoomLock loads the room, runs fn on a private copy and persists the
	// copy only if fn returns nil. The committed state is returned.
	WithRoomLock(ctx context.Context, code string, fn func(st *model.RoomState) error) (*model.RoomState, error)

	// DeleteWhere removes the room with everything it owns if pred holds for
	// the current state, checked under the room lock.
	DeleteWhere(ctx context.Context, code string, pred func(st *model.RoomState) bool) (bool, error)

	Delete(ctx context.Context, code string) error
	Exists(ctx context.Context, code string) (bool, error)

	// ListFinished returns finished rooms with their finish time.
	ListFinished(ctx context.Context) (map[string]time.Time, error)
}

// WordGroupRepo serves the read-only word reference data.
type WordGroupRepo interface {
	ListWithWords(ctx context.Context) ([]*model.WordGroup, error)
	// Save inserts the group unless one with the same name exists.
	Save(ctx context.Context, g *model.WordGroup) (created bool, err error)
}

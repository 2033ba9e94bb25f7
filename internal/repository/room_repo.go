package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kstielfps/VATImposter/internal/cache"
	"github.com/kstielfps/VATImposter/internal/model"
)

// roomDocument stores one aggregate per document, keyed by room code. Phase
// and finishedAt are lifted out for the cleanup query.
type roomDocument struct {
	Code       string          `bson:"_id"`
	Version    int64           `bson:"version"`
	Phase      model.Phase     `bson:"phase"`
	FinishedAt *time.Time      `bson:"finishedAt,omitempty"`
	State      model.RoomState `bson:"state"`
	UpdatedAt  time.Time       `bson:"updatedAt"`
}

func newRoomDocument(st *model.RoomState) *roomDocument {
	return &roomDocument{
		Code:       st.Room.Code,
		Version:    st.Room.Version,
		Phase:      st.Room.Phase,
		FinishedAt: st.Room.FinishedAt,
		State:      *st,
		UpdatedAt:  time.Now().UTC(),
	}
}

type roomRepo struct {
	collection *mongo.Collection
	locker     cache.RoomLocker
}

func NewRoomRepo(db *mongo.Database, locker cache.RoomLocker) RoomRepo {
	if locker == nil {
		locker = cache.NewLocalRoomLocker()
	}
	repo := &roomRepo{
		collection: db.Collection("rooms"),
		locker:     locker,
	}
	createIndex(context.Background(), repo.collection, bson.D{{Key: "phase", Value: 1}}, false)
	return repo
}

func (r *roomRepo) Create(ctx context.Context, st *model.RoomState) error {
	_, err := r.collection.InsertOne(ctx, newRoomDocument(st))
	if mongo.IsDuplicateKeyError(err) {
		return ErrCodeTaken
	}
	return err
}

func (r *roomRepo) Get(ctx context.Context, code string) (*model.RoomState, error) {
	var doc roomDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": code}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	st := doc.State
	st.Room.Version = doc.Version
	return &st, nil
}

func (r *roomRepo) WithRoomLock(ctx context.Context, code string, fn func(st *model.RoomState) error) (*model.RoomState, error) {
	unlock, err := r.locker.Lock(ctx, code)
	if err != nil {
		return nil, err
	}
	defer unlock()

	st, err := r.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	prev := st.Room.Version
	if err := fn(st); err != nil {
		return nil, err
	}
	st.Room.Version = prev + 1

	// The version guard catches writers that bypassed the lock.
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": code, "version": prev}, newRoomDocument(st))
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, ErrStaleRoom
	}
	return st, nil
}

func (r *roomRepo) DeleteWhere(ctx context.Context, code string, pred func(st *model.RoomState) bool) (bool, error) {
	unlock, err := r.locker.Lock(ctx, code)
	if err != nil {
		return false, err
	}
	defer unlock()

	st, err := r.Get(ctx, code)
	if errors.Is(err, ErrRoomNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !pred(st) {
		return false, nil
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": code, "version": st.Room.Version})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *roomRepo) Delete(ctx context.Context, code string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": code})
	return err
}

func (r *roomRepo) Exists(ctx context.Context, code string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": code}, options.Count().SetLimit(1))
	return n > 0, err
}

func (r *roomRepo) ListFinished(ctx context.Context) (map[string]time.Time, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1, "finishedAt": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"phase": model.PhaseFinished}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make(map[string]time.Time)
	for cursor.Next(ctx) {
		var doc struct {
			Code       string     `bson:"_id"`
			FinishedAt *time.Time `bson:"finishedAt"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		if doc.FinishedAt != nil {
			out[doc.Code] = *doc.FinishedAt
		}
	}
	return out, cursor.Err()
}

package repository

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kstielfps/VATImposter/internal/model"
)

type wordGroupRepo struct {
	collection *mongo.Collection
}

// NewWordGroupRepo stores each group with its words embedded.
func NewWordGroupRepo(db *mongo.Database) WordGroupRepo {
	repo := &wordGroupRepo{collection: db.Collection("word_groups")}
	createIndex(context.Background(), repo.collection, bson.D{{Key: "name", Value: 1}}, true)
	return repo
}

func (r *wordGroupRepo) ListWithWords(ctx context.Context) ([]*model.WordGroup, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var groups []*model.WordGroup
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *wordGroupRepo) Save(ctx context.Context, g *model.WordGroup) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"name": g.Name},
		bson.M{"$setOnInsert": g},
		options.Update().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return res.UpsertedCount > 0, nil
}

func createIndex(ctx context.Context, coll *mongo.Collection, keys bson.D, unique bool) {
	opts := options.Index()
	if unique {
		opts.SetUnique(true)
	}
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts})
	if err != nil {
		log.Warn().Err(err).Str("collection", coll.Name()).Msg("failed to create index")
	}
}

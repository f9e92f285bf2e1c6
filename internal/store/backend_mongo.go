package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoUpdateRetries = 10

// MongoBackend stores one document per collection key.
type MongoBackend struct {
	coll *mongo.Collection
}

type collectionDoc struct {
	Key       string    `bson:"_id"`
	Body      string    `bson:"body"`
	Version   int64     `bson:"version"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// NewMongoBackend uses the record_collections collection of db.
func NewMongoBackend(db *mongo.Database) *MongoBackend {
	return &MongoBackend{coll: db.Collection("record_collections")}
}

func (b *MongoBackend) Get(ctx context.Context, key string) (string, bool, error) {
	doc, err := b.find(ctx, key)
	if err != nil || doc == nil {
		return "", false, err
	}
	return doc.Body, true, nil
}

func (b *MongoBackend) Put(ctx context.Context, key, text string) error {
	opts := options.Update().SetUpsert(true)
	_, err := b.coll.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{
			"$set": bson.M{"body": text, "updatedAt": time.Now()},
			"$inc": bson.M{"version": 1},
		},
		opts,
	)
	return err
}

// Update is an optimistic compare-and-swap on the document version.
func (b *MongoBackend) Update(ctx context.Context, key string, fn func(text string, ok bool) (string, error)) error {
	for i := 0; i < mongoUpdateRetries; i++ {
		doc, err := b.find(ctx, key)
		if err != nil {
			return err
		}

		if doc == nil {
			next, err := fn("", false)
			if err != nil {
				return err
			}
			_, err = b.coll.InsertOne(ctx, collectionDoc{Key: key, Body: next, Version: 1, UpdatedAt: time.Now()})
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return err
		}

		next, err := fn(doc.Body, true)
		if err != nil {
			return err
		}
		res, err := b.coll.UpdateOne(ctx,
			bson.M{"_id": key, "version": doc.Version},
			bson.M{"$set": bson.M{"body": next, "version": doc.Version + 1, "updatedAt": time.Now()}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 1 {
			return nil
		}
	}
	return fmt.Errorf("update %s: too much contention", key)
}

func (b *MongoBackend) find(ctx context.Context, key string) (*collectionDoc, error) {
	var doc collectionDoc
	err := b.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

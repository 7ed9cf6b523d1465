// Package driver provides the MongoDB store backend for the beanie
// ODM core. It adapts one mongo.Collection to the core.Store contract
// and maps session tokens onto the driver's session contexts.
package driver

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mopt "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/paul-nameless/beanie/core"
)

// Store adapts a MongoDB collection to core.Store.
type Store struct {
	coll *mongo.Collection
}

var _ core.Store = (*Store)(nil)

// NewStore wraps a collection handle.
func NewStore(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

// Connect establishes a client with sane default timeouts and verifies
// connectivity.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	opts := mopt.Client().ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}

// Name returns the collection name.
func (s *Store) Name() string { return s.coll.Name() }

// withSession moves a session token onto the call context, the form
// the driver expects. Non-mongo tokens and nil pass through.
func (s *Store) withSession(ctx context.Context, sess core.Session) context.Context {
	if ms, ok := sess.(mongo.Session); ok {
		return mongo.NewSessionContext(ctx, ms)
	}
	return ctx
}

func (s *Store) InsertOne(ctx context.Context, doc any, sess core.Session) (any, error) {
	res, err := s.coll.InsertOne(s.withSession(ctx, sess), doc)
	if err != nil {
		return nil, err
	}
	return res.InsertedID, nil
}

func (s *Store) InsertMany(ctx context.Context, docs []any, sess core.Session) error {
	if len(docs) == 0 {
		return nil
	}
	_, err := s.coll.InsertMany(s.withSession(ctx, sess), docs)
	return err
}

func (s *Store) Find(ctx context.Context, req core.FindRequest, sess core.Session) (core.RawCursor, error) {
	opts := mopt.Find()
	if len(req.Sort) > 0 {
		opts.SetSort(req.Sort)
	}
	if len(req.Projection) > 0 {
		opts.SetProjection(req.Projection)
	}
	if req.Skip > 0 {
		opts.SetSkip(req.Skip)
	}
	if req.Limit > 0 {
		opts.SetLimit(req.Limit)
	}
	return s.coll.Find(s.withSession(ctx, sess), req.Filter, opts)
}

func (s *Store) Count(ctx context.Context, req core.CountRequest, sess core.Session) (int64, error) {
	opts := mopt.Count()
	if req.Skip > 0 {
		opts.SetSkip(req.Skip)
	}
	if req.Limit > 0 {
		opts.SetLimit(req.Limit)
	}
	return s.coll.CountDocuments(s.withSession(ctx, sess), req.Filter, opts)
}

func (s *Store) UpdateOne(ctx context.Context, filter, update bson.M, sess core.Session) (int64, error) {
	res, err := s.coll.UpdateOne(s.withSession(ctx, sess), filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *Store) UpdateMany(ctx context.Context, filter, update bson.M, sess core.Session) (int64, error) {
	res, err := s.coll.UpdateMany(s.withSession(ctx, sess), filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *Store) DeleteOne(ctx context.Context, filter bson.M, sess core.Session) (int64, error) {
	res, err := s.coll.DeleteOne(s.withSession(ctx, sess), filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) DeleteMany(ctx context.Context, filter bson.M, sess core.Session) (int64, error) {
	res, err := s.coll.DeleteMany(s.withSession(ctx, sess), filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) ReplaceOne(ctx context.Context, filter bson.M, doc any, sess core.Session) (int64, error) {
	res, err := s.coll.ReplaceOne(s.withSession(ctx, sess), filter, doc)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *Store) Aggregate(ctx context.Context, pipeline []bson.M, sess core.Session) (core.RawCursor, error) {
	stages := make(bson.A, 0, len(pipeline))
	for _, stage := range pipeline {
		stages = append(stages, stage)
	}
	return s.coll.Aggregate(s.withSession(ctx, sess), stages)
}

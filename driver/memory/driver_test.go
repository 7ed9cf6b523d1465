package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/paul-nameless/beanie/core"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	s := NewStore("people")
	ctx := context.Background()
	for _, doc := range []bson.M{
		{"name": "a", "age": 30},
		{"name": "b", "age": 20},
		{"name": "c", "age": 40},
	} {
		_, err := s.InsertOne(ctx, doc, nil)
		require.NoError(t, err)
	}
	return s
}

func drain(t *testing.T, rc core.RawCursor) []bson.M {
	t.Helper()
	ctx := context.Background()
	defer rc.Close(ctx)
	var out []bson.M
	for rc.Next(ctx) {
		var doc bson.M
		require.NoError(t, rc.Decode(&doc))
		out = append(out, doc)
	}
	require.NoError(t, rc.Err())
	return out
}

func TestInsertOneGeneratesIdentity(t *testing.T) {
	s := NewStore("things")
	ctx := context.Background()

	id, err := s.InsertOne(ctx, bson.M{"name": "x"}, nil)
	require.NoError(t, err)
	oid, ok := id.(primitive.ObjectID)
	require.True(t, ok)
	assert.False(t, oid.IsZero())
	assert.Equal(t, 1, s.Len())

	// a supplied identity is kept as-is
	want := primitive.NewObjectID()
	id, err = s.InsertOne(ctx, bson.M{"_id": want}, nil)
	require.NoError(t, err)
	assert.Equal(t, want, id)
}

func TestInsertNormalizesValueTypes(t *testing.T) {
	s := NewStore("things")
	ctx := context.Background()

	type thing struct {
		Name   string `bson:"name"`
		Count  int    `bson:"count"`
		Scores []int  `bson:"scores"`
	}
	_, err := s.InsertOne(ctx, &thing{Name: "x", Count: 3, Scores: []int{1, 2}}, nil)
	require.NoError(t, err)

	rc, err := s.Find(ctx, core.FindRequest{Filter: bson.M{}}, nil)
	require.NoError(t, err)
	docs := drain(t, rc)
	require.Len(t, docs, 1)
	assert.IsType(t, int32(0), docs[0]["count"])
	assert.IsType(t, primitive.A{}, docs[0]["scores"])
}

func TestFindSortSkipLimit(t *testing.T) {
	s := seeded(t)
	rc, err := s.Find(context.Background(), core.FindRequest{
		Filter: bson.M{},
		Sort:   bson.D{{Key: "age", Value: 1}},
		Skip:   1,
		Limit:  1,
	}, nil)
	require.NoError(t, err)
	docs := drain(t, rc)
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0]["name"])
}

func TestFindProjection(t *testing.T) {
	s := seeded(t)
	rc, err := s.Find(context.Background(), core.FindRequest{
		Filter:     bson.M{"name": "a"},
		Projection: bson.D{{Key: "name", Value: 1}},
	}, nil)
	require.NoError(t, err)
	docs := drain(t, rc)
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0]["name"])
	assert.NotContains(t, docs[0], "age")
	assert.Contains(t, docs[0], "_id")

	rc, err = s.Find(context.Background(), core.FindRequest{
		Filter:     bson.M{"name": "a"},
		Projection: bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 0}},
	}, nil)
	require.NoError(t, err)
	docs = drain(t, rc)
	require.Len(t, docs, 1)
	assert.NotContains(t, docs[0], "_id")
}

func TestCountHonorsWindow(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	n, err := s.Count(ctx, core.CountRequest{Filter: bson.M{}}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = s.Count(ctx, core.CountRequest{Filter: bson.M{}, Skip: 2, Limit: 5}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUpdateCounts(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	n, err := s.UpdateOne(ctx, bson.M{"age": bson.M{"$gte": 30}}, bson.M{"$set": bson.M{"flag": true}}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.UpdateMany(ctx, bson.M{}, bson.M{"$set": bson.M{"flag": true}}, nil)
	require.NoError(t, err)
	// one document already carries the value and counts as unmodified
	assert.Equal(t, int64(2), n)

	n, err = s.UpdateMany(ctx, bson.M{"name": "ghost"}, bson.M{"$set": bson.M{"flag": true}}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteCounts(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	n, err := s.DeleteOne(ctx, bson.M{"age": bson.M{"$gte": 30}}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 2, s.Len())

	n, err = s.DeleteMany(ctx, bson.M{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Zero(t, s.Len())
}

func TestReplaceOneKeepsStoredIdentity(t *testing.T) {
	s := NewStore("things")
	ctx := context.Background()

	id, err := s.InsertOne(ctx, bson.M{"name": "before"}, nil)
	require.NoError(t, err)

	n, err := s.ReplaceOne(ctx, bson.M{"name": "before"}, bson.M{"name": "after"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rc, err := s.Find(ctx, core.FindRequest{Filter: bson.M{"_id": id}}, nil)
	require.NoError(t, err)
	docs := drain(t, rc)
	require.Len(t, docs, 1)
	assert.Equal(t, "after", docs[0]["name"])

	n, err = s.ReplaceOne(ctx, bson.M{"name": "ghost"}, bson.M{"name": "x"}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAggregateOverStore(t *testing.T) {
	s := seeded(t)
	rc, err := s.Aggregate(context.Background(), []bson.M{
		{"$match": bson.M{"age": bson.M{"$gte": 30}}},
		{"$count": "n"},
	}, nil)
	require.NoError(t, err)
	docs := drain(t, rc)
	require.Len(t, docs, 1)
	assert.Equal(t, int64(2), docs[0]["n"])
}

func TestCursorStopsOnCanceledContext(t *testing.T) {
	s := seeded(t)
	rc, err := s.Find(context.Background(), core.FindRequest{Filter: bson.M{}}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, rc.Next(ctx))
	assert.ErrorIs(t, rc.Err(), context.Canceled)
}

package driver

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/paul-nameless/beanie/core"
)

// testStore connects to the server named by MONGODB_URI and hands back
// a store over a collection unique to this test run. Tests are skipped
// when no server is configured.
func testStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := Connect(ctx, uri)
	require.NoError(t, err)

	coll := client.Database("beanie_test").
		Collection(fmt.Sprintf("it_%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = coll.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return NewStore(coll)
}

func TestStoreRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.InsertOne(ctx, bson.M{"name": "ada", "age": 36}, nil)
	require.NoError(t, err)
	oid, ok := id.(primitive.ObjectID)
	require.True(t, ok)
	assert.False(t, oid.IsZero())

	require.NoError(t, s.InsertMany(ctx, []any{
		bson.M{"name": "bob", "age": 20},
		bson.M{"name": "eve", "age": 40},
	}, nil))

	n, err := s.Count(ctx, core.CountRequest{Filter: bson.M{}}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	rc, err := s.Find(ctx, core.FindRequest{
		Filter: bson.M{"age": bson.M{"$gte": 30}},
		Sort:   bson.D{{Key: "age", Value: -1}},
		Limit:  1,
	}, nil)
	require.NoError(t, err)
	defer rc.Close(ctx)
	require.True(t, rc.Next(ctx))
	var doc bson.M
	require.NoError(t, rc.Decode(&doc))
	assert.Equal(t, "eve", doc["name"])
	assert.False(t, rc.Next(ctx))
	require.NoError(t, rc.Err())

	modified, err := s.UpdateMany(ctx, bson.M{"age": bson.M{"$lt": 30}},
		bson.M{"$set": bson.M{"young": true}}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), modified)

	replaced, err := s.ReplaceOne(ctx, bson.M{"name": "ada"},
		bson.M{"name": "ada", "age": 37}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), replaced)

	deleted, err := s.DeleteMany(ctx, bson.M{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
}

func TestStoreAggregate(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertMany(ctx, []any{
		bson.M{"color": "red"},
		bson.M{"color": "red"},
		bson.M{"color": "blue"},
	}, nil))

	rc, err := s.Aggregate(ctx, []bson.M{
		{"$group": bson.M{"_id": "$color", "n": bson.M{"$sum": 1}}},
		{"$sort": bson.M{"_id": 1}},
	}, nil)
	require.NoError(t, err)
	defer rc.Close(ctx)

	var rows []bson.M
	for rc.Next(ctx) {
		var row bson.M
		require.NoError(t, rc.Decode(&row))
		rows = append(rows, row)
	}
	require.NoError(t, rc.Err())
	require.Len(t, rows, 2)
	assert.Equal(t, "blue", rows[0]["_id"])
	assert.Equal(t, "red", rows[1]["_id"])
}

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestUpdateOperatorShapes(t *testing.T) {
	assert.Equal(t, bson.M{"$set": bson.M{"name": "x"}}, mergeUpdates([]*UpdateOperator{Set("name", "x")}))
	assert.Equal(t, bson.M{"$unset": bson.M{"name": ""}}, mergeUpdates([]*UpdateOperator{Unset("name")}))
	assert.Equal(t, bson.M{"$inc": bson.M{"age": 1}}, mergeUpdates([]*UpdateOperator{Inc("age", 1)}))
	assert.Equal(t, bson.M{"$mul": bson.M{"age": 2}}, mergeUpdates([]*UpdateOperator{Mul("age", 2)}))
	assert.Equal(t, bson.M{"$min": bson.M{"age": 1}}, mergeUpdates([]*UpdateOperator{MinOf("age", 1)}))
	assert.Equal(t, bson.M{"$max": bson.M{"age": 9}}, mergeUpdates([]*UpdateOperator{MaxOf("age", 9)}))
	assert.Equal(t, bson.M{"$currentDate": bson.M{"seen": true}}, mergeUpdates([]*UpdateOperator{CurrentDate("seen")}))
	assert.Equal(t, bson.M{"$rename": bson.M{"old": "new"}}, mergeUpdates([]*UpdateOperator{Rename("old", "new")}))
	assert.Equal(t, bson.M{"$setOnInsert": bson.M{"n": 0}}, mergeUpdates([]*UpdateOperator{SetOnInsert("n", 0)}))
}

func TestMergeUpdatesGroupsByKeyword(t *testing.T) {
	update := mergeUpdates([]*UpdateOperator{
		Set("a", 1),
		Set("b", 2),
		Inc("c", 3),
	})
	assert.Equal(t, bson.M{
		"$set": bson.M{"a": 1, "b": 2},
		"$inc": bson.M{"c": 3},
	}, update)
}

func TestMergeUpdatesLastWriteWins(t *testing.T) {
	update := mergeUpdates([]*UpdateOperator{
		Set("a", 1),
		Set("a", 2),
	})
	assert.Equal(t, bson.M{"$set": bson.M{"a": 2}}, update)
}

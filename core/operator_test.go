package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func mustRender(t *testing.T, c Criterion) bson.M {
	t.Helper()
	doc, err := c.Render()
	require.NoError(t, err)
	return doc
}

func TestComparisonOperators(t *testing.T) {
	f := Field("age")

	assert.Equal(t, bson.M{"age": bson.M{"$eq": 21}}, mustRender(t, f.Eq(21)))
	assert.Equal(t, bson.M{"age": bson.M{"$ne": 21}}, mustRender(t, f.Ne(21)))
	assert.Equal(t, bson.M{"age": bson.M{"$gt": 21}}, mustRender(t, f.Gt(21)))
	assert.Equal(t, bson.M{"age": bson.M{"$gte": 21}}, mustRender(t, f.Gte(21)))
	assert.Equal(t, bson.M{"age": bson.M{"$lt": 21}}, mustRender(t, f.Lt(21)))
	assert.Equal(t, bson.M{"age": bson.M{"$lte": 21}}, mustRender(t, f.Lte(21)))
	assert.Equal(t, bson.M{"age": bson.M{"$in": []int{1, 2}}}, mustRender(t, f.In([]int{1, 2})))
	assert.Equal(t, bson.M{"age": bson.M{"$nin": []int{1, 2}}}, mustRender(t, f.NotIn([]int{1, 2})))
}

func TestInRequiresSlice(t *testing.T) {
	_, err := In("age", 42).Render()
	assert.ErrorIs(t, err, ErrInNeedsSlice)

	_, err = NotIn("age", "not-a-slice").Render()
	assert.ErrorIs(t, err, ErrInNeedsSlice)
}

func TestArrayOperators(t *testing.T) {
	results := Field("results")

	assert.Equal(t,
		bson.M{"results": bson.M{"$all": []int{80, 85}}},
		mustRender(t, All(results, []int{80, 85})))
	assert.Equal(t,
		bson.M{"results": bson.M{"$size": 2}},
		mustRender(t, Size(results, 2)))
	assert.Equal(t,
		bson.M{"results": bson.M{"$elemMatch": bson.M{"score": bson.M{"$gt": 80}}}},
		mustRender(t, ElemMatch(results, Field("score").Gt(80))))
}

func TestEvaluationOperators(t *testing.T) {
	assert.Equal(t,
		bson.M{"name": bson.M{"$exists": true}},
		mustRender(t, Exists("name", true)))
	assert.Equal(t,
		bson.M{"name": primitive.Regex{Pattern: "^a", Options: "i"}},
		mustRender(t, Regex("name", "^a", "i")))
	assert.Equal(t,
		bson.M{"age": bson.M{"$mod": bson.A{int64(4), int64(0)}}},
		mustRender(t, Mod("age", 4, 0)))
	assert.Equal(t,
		bson.M{"age": bson.M{"$type": "int"}},
		mustRender(t, Type("age", "int")))
	assert.Equal(t,
		bson.M{"$text": bson.M{"$search": "coffee"}},
		mustRender(t, Text("coffee")))
	assert.Equal(t,
		bson.M{"$where": "this.a > this.b"},
		mustRender(t, Where("this.a > this.b")))
}

func TestLogicalOperators(t *testing.T) {
	a := Field("a").Eq(1)
	b := Field("b").Eq(2)

	assert.Equal(t,
		bson.M{"$and": bson.A{
			bson.M{"a": bson.M{"$eq": 1}},
			bson.M{"b": bson.M{"$eq": 2}},
		}},
		mustRender(t, And(a, b)))
	assert.Equal(t,
		bson.M{"$or": bson.A{
			bson.M{"a": bson.M{"$eq": 1}},
			bson.M{"b": bson.M{"$eq": 2}},
		}},
		mustRender(t, Or(a, b)))
	assert.Equal(t,
		bson.M{"$nor": bson.A{
			bson.M{"a": bson.M{"$eq": 1}},
		}},
		mustRender(t, Nor(a)))
}

func TestAndIsAssociative(t *testing.T) {
	a := Field("a").Eq(1)
	b := Field("b").Eq(2)
	c := Field("c").Eq(3)

	nested := mustRender(t, And(And(a, b), c))
	flat := mustRender(t, And(a, b, c))
	assert.Equal(t, flat, nested)

	nestedOr := mustRender(t, Or(Or(a, b), c))
	flatOr := mustRender(t, Or(a, b, c))
	assert.Equal(t, flatOr, nestedOr)
}

func TestNotNestsUnderFieldKey(t *testing.T) {
	doc := mustRender(t, Not(Field("age").Gt(18)))
	assert.Equal(t, bson.M{"age": bson.M{"$not": bson.M{"$gt": 18}}}, doc)

	doc = mustRender(t, Not(Regex("name", "^a", "")))
	assert.Equal(t, bson.M{"name": bson.M{"$not": primitive.Regex{Pattern: "^a"}}}, doc)
}

func TestNotRejectsLogicalChild(t *testing.T) {
	_, err := Not(And(Field("a").Eq(1))).Render()
	assert.ErrorIs(t, err, ErrNotNeedsFieldOperator)

	_, err = Not(RawCriterion{"a": 1}).Render()
	assert.ErrorIs(t, err, ErrNotNeedsFieldOperator)
}

func TestRawCriterionRendersAsIs(t *testing.T) {
	raw := RawCriterion{"a": bson.M{"$gt": 1}}
	assert.Equal(t, bson.M{"a": bson.M{"$gt": 1}}, mustRender(t, raw))
}

func TestLogicalChildRenderErrorPropagates(t *testing.T) {
	_, err := And(Field("a").Eq(1), In("b", 3)).Render()
	assert.ErrorIs(t, err, ErrInNeedsSlice)
}

func TestChildFieldAccess(t *testing.T) {
	assert.Equal(t, Field("tag.color"), Field("tag").Child("color"))
	assert.Equal(t,
		bson.M{"tag.color": bson.M{"$eq": "red"}},
		mustRender(t, Field("tag").Child("color").Eq("red")))
}

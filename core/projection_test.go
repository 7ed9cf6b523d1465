package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

type projTag struct {
	Color string `bson:"color"`
	Label string `bson:"label,omitempty"`
}

type projSample struct {
	Base    `bson:",inline"`
	Name    string   `bson:"full_name"`
	Tag     projTag  `bson:"tag"`
	Scores  []int    `bson:"scores,omitempty"`
	Note    *string  `bson:"note"`
	Ignored string   `bson:"-"`
	Untag   string
}

func TestFieldTableAliases(t *testing.T) {
	ft, err := buildFieldTable(typeOf[projSample]())
	require.NoError(t, err)

	assert.Equal(t, Field("_id"), ft.resolve("ID"))
	assert.Equal(t, Field("full_name"), ft.resolve("Name"))
	assert.Equal(t, Field("tag"), ft.resolve("Tag"))
	assert.Equal(t, Field("tag.color"), ft.resolve("Tag.Color"))
	assert.Equal(t, Field("tag.label"), ft.resolve("Tag.Label"))
	assert.Equal(t, Field("untag"), ft.resolve("Untag"))

	assert.Panics(t, func() { ft.resolve("Nope") })
	assert.Panics(t, func() { ft.resolve("Ignored") })
}

func TestFieldTableRequired(t *testing.T) {
	ft, err := buildFieldTable(typeOf[projSample]())
	require.NoError(t, err)

	// omitempty, pointer and slice fields have a natural absent state
	assert.Contains(t, ft.required, Field("full_name"))
	assert.Contains(t, ft.required, Field("tag"))
	assert.Contains(t, ft.required, Field("tag.color"))
	assert.NotContains(t, ft.required, Field("_id"))
	assert.NotContains(t, ft.required, Field("scores"))
	assert.NotContains(t, ft.required, Field("note"))
	assert.NotContains(t, ft.required, Field("tag.label"))
}

func TestFieldPathsOfKeepsDeclarationOrder(t *testing.T) {
	paths, err := FieldPathsOf[projSample]()
	require.NoError(t, err)

	assert.Equal(t, []FieldPath{
		{Name: "ID", Alias: "_id"},
		{Name: "Name", Alias: "full_name"},
		{Name: "Tag", Alias: "tag"},
		{Name: "Scores", Alias: "scores"},
		{Name: "Note", Alias: "note"},
		{Name: "Untag", Alias: "untag"},
	}, paths)
}

func TestProjectionOf(t *testing.T) {
	doc, err := projectionOf(typeOf[projTag]())
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "color", Value: 1}, {Key: "label", Value: 1}}, doc)

	// second derivation is served from the cache and stays equal
	again, err := projectionOf(typeOf[projTag]())
	require.NoError(t, err)
	assert.Equal(t, doc, again)
}

package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/paul-nameless/beanie/core"
)

const personSchema = `{
	"type": "object",
	"required": ["name", "age"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"age":  {"type": "integer", "minimum": 0}
	}
}`

func TestJSONSchemaAcceptsValidDocument(t *testing.T) {
	v, err := NewJSONSchema(personSchema)
	require.NoError(t, err)

	assert.NoError(t, v.Validate(bson.M{"name": "ada", "age": int32(36)}))
}

func TestJSONSchemaCollectsAllViolations(t *testing.T) {
	v, err := NewJSONSchema(personSchema)
	require.NoError(t, err)

	err = v.Validate(bson.M{"name": "", "age": int64(-1)})
	require.Error(t, err)

	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Causes, 2)

	paths := []string{verr.Causes[0].Path, verr.Causes[1].Path}
	assert.Contains(t, paths, "name")
	assert.Contains(t, paths, "age")
}

func TestJSONSchemaReportsMissingRequired(t *testing.T) {
	v, err := NewJSONSchema(personSchema)
	require.NoError(t, err)

	err = v.Validate(bson.M{"name": "ada"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "age")
}

func TestJSONSchemaRejectsBadSchema(t *testing.T) {
	_, err := NewJSONSchema(`{"type": 12}`)
	assert.Error(t, err)
}

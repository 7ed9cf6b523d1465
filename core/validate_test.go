package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

type validatedDoc struct {
	Base   `bson:",inline"`
	Name   string `bson:"name"`
	Age    int    `bson:"age"`
	Note   string `bson:"note,omitempty"`
	Extra  *int   `bson:"extra"`
	Nested struct {
		City string `bson:"city"`
	} `bson:"nested"`
}

func validatedValidator(t *testing.T) Validator {
	t.Helper()
	fields, err := buildFieldTable(typeOf[validatedDoc]())
	require.NoError(t, err)
	return defaultValidator[validatedDoc]{fields: fields}
}

func TestDefaultValidatorAccepts(t *testing.T) {
	v := validatedValidator(t)

	err := v.Validate(bson.M{
		"name":   "ada",
		"age":    int32(36),
		"nested": bson.M{"city": "london"},
	})
	assert.NoError(t, err)
}

func TestDefaultValidatorRequiredFields(t *testing.T) {
	v := validatedValidator(t)

	err := v.Validate(bson.M{"name": "ada", "nested": bson.M{"city": "london"}})
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Causes, 1)
	assert.Equal(t, "age", verr.Causes[0].Path)

	// omitempty and nullable fields are never required
	err = v.Validate(bson.M{
		"name":   "ada",
		"age":    int32(1),
		"nested": bson.M{"city": "x"},
	})
	assert.NoError(t, err)

	// nested required paths are checked through the dotted path
	err = v.Validate(bson.M{"name": "ada", "age": int32(1), "nested": bson.M{}})
	require.Error(t, err)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "nested.city", verr.Causes[0].Path)
}

func TestDefaultValidatorTypeMismatch(t *testing.T) {
	v := validatedValidator(t)

	err := v.Validate(bson.M{
		"name":   "ada",
		"age":    "not a number",
		"nested": bson.M{"city": "x"},
	})
	require.Error(t, err)

	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

type decodedDoc struct {
	Base `bson:",inline"`
	Name string `bson:"name"`
}

func TestDecode(t *testing.T) {
	MustRegister[decodedDoc](&fakeStore{name: "decoded"})

	doc, err := Decode[decodedDoc](bson.M{"name": "ada"})
	require.NoError(t, err)
	assert.Equal(t, "ada", doc.Name)

	_, err = Decode[decodedDoc](bson.M{})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = Decode[unregisteredDoc](bson.M{})
	assert.ErrorIs(t, err, ErrNotInitialized)
}

// Package validate provides a JSON Schema backed core.Validator, for
// collections whose schema is maintained as a JSON Schema document
// rather than derived from the Go struct.
package validate

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/paul-nameless/beanie/core"
)

// JSONSchema validates raw documents against a compiled JSON Schema.
type JSONSchema struct {
	schema *gojsonschema.Schema
}

var _ core.Validator = (*JSONSchema)(nil)

// NewJSONSchema compiles a JSON Schema document.
//
// Example:
//
//	v, err := validate.NewJSONSchema(`{
//		"type": "object",
//		"required": ["name"],
//		"properties": {"name": {"type": "string"}}
//	}`)
//	core.Register[User](store, core.WithValidator[User](v))
func NewJSONSchema(schemaJSON string) (*JSONSchema, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile json schema: %w", err)
	}
	return &JSONSchema{schema: schema}, nil
}

// Validate checks the raw document. Violations are reported as a
// *core.ValidationError with one cause per failing field.
func (v *JSONSchema) Validate(raw bson.M) error {
	// relaxed extended JSON keeps plain types plain while making
	// identities and dates representable
	data, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return err
	}
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}
	causes := make([]core.FieldError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		causes = append(causes, core.FieldError{
			Path:    re.Field(),
			Message: re.Description(),
		})
	}
	return &core.ValidationError{Causes: causes}
}

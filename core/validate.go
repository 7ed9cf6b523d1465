// Package core provides the building blocks of the beanie ODM.
// This file defines the schema validation contract and the default
// decode-based validator derived from the document struct.
package core

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// Validator checks a raw stored document against a schema. It is an
// opaque capability from the core's point of view: implementations may
// be struct-derived (the default), JSON Schema based, or anything
// else.
type Validator interface {
	// Validate returns nil when the raw document conforms to the
	// schema, a *ValidationError describing every violation otherwise.
	Validate(raw bson.M) error
}

// defaultValidator validates a raw document against the Go struct
// schema of T: every required field must be present, and the document
// must decode into T without type mismatches. A field is required when
// its bson tag carries no omitempty and its type has no natural absent
// state (pointer, interface, map, slice).
type defaultValidator[T any] struct {
	fields *fieldTable
}

func (v defaultValidator[T]) Validate(raw bson.M) error {
	var causes []FieldError
	for _, path := range v.fields.required {
		if _, ok := lookupPath(raw, path.Path()); !ok {
			causes = append(causes, FieldError{Path: path.Path(), Message: "required field is missing"})
		}
	}

	data, err := bson.Marshal(raw)
	if err != nil {
		causes = append(causes, FieldError{Message: err.Error()})
	} else {
		var out T
		if err := bson.Unmarshal(data, &out); err != nil {
			causes = append(causes, FieldError{Message: err.Error()})
		}
	}

	if len(causes) > 0 {
		return &ValidationError{Causes: causes}
	}
	return nil
}

// Decode constructs a document of a registered type from an untrusted
// raw mapping. Unlike InspectCollection, which collects violations,
// Decode fails immediately on the first invalid document.
func Decode[T any](raw bson.M) (*T, error) {
	b := bindingOf(typeOf[T]())
	if b == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, typeOf[T]())
	}
	if err := b.validator.Validate(raw); err != nil {
		return nil, err
	}
	data, err := bson.Marshal(raw)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := bson.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

// lookupPath resolves a dotted storage path inside a raw document.
func lookupPath(raw bson.M, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = raw
	for _, part := range parts {
		doc, ok := asDocument(current)
		if !ok {
			return nil, false
		}
		current, ok = doc[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func asDocument(v any) (bson.M, bool) {
	switch d := v.(type) {
	case bson.M:
		return d, true
	case map[string]any:
		return bson.M(d), true
	case bson.D:
		m := make(bson.M, len(d))
		for _, e := range d {
			m[e.Key] = e.Value
		}
		return m, true
	}
	return nil, false
}

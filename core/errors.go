// Package core provides the building blocks of the beanie ODM.
// This file defines the sentinel errors of the document lifecycle and
// the structured validation error types.
package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAlreadyCreated rejects inserting a document that already
	// carries an identity.
	ErrAlreadyCreated = errors.New("document was already inserted")

	// ErrNotSaved rejects replace, update and delete on a document that
	// was never persisted (zero identity).
	ErrNotSaved = errors.New("document was never saved")

	// ErrNotInitialized signals an operation on a document type that was
	// never registered, or on a zero-value query object.
	ErrNotInitialized = errors.New("document type is not registered")

	// ErrAlreadyInitialized signals a second Register call for a type.
	ErrAlreadyInitialized = errors.New("document type is already registered")

	// ErrReplaceConflict rejects a batch replace when some of the
	// supplied documents are not present in the store.
	ErrReplaceConflict = errors.New("batch replace matched fewer documents than supplied")

	// ErrUnsupportedCriterion signals a filter argument of a type the
	// query builder cannot turn into a criterion.
	ErrUnsupportedCriterion = errors.New("unsupported criterion")

	// ErrBadSortExpression signals a sort argument that is neither a
	// field path nor a SortField.
	ErrBadSortExpression = errors.New("bad sort expression")

	// ErrNotNeedsFieldOperator rejects wrapping a logical or raw
	// criterion in Not: negation applies to a field-bound condition.
	ErrNotNeedsFieldOperator = errors.New("not requires a field-bound operator")

	// ErrInNeedsSlice rejects In and NotIn values that are not slices.
	ErrInNeedsSlice = errors.New("in requires a slice value")
)

// FieldError describes one schema violation in a stored document.
type FieldError struct {
	Path    string
	Message string
}

func (e FieldError) String() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// ValidationError aggregates every schema violation found in a single
// document. Validators report all causes at once rather than stopping
// at the first.
type ValidationError struct {
	Causes []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Causes))
	for _, c := range e.Causes {
		msgs = append(msgs, c.String())
	}
	return fmt.Sprintf("document is invalid: %s", strings.Join(msgs, "; "))
}

// Package core provides the building blocks of the beanie ODM.
// This file defines the contracts the core consumes: the Store (the
// opaque async document store a collection is bound to), the raw
// result stream it returns, and the opaque Session token.
package core

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// Session is an opaque unit-of-work token passed through unchanged to
// every store call. The core never creates, commits, or aborts one;
// lifecycle is entirely the caller's responsibility.
type Session any

// RawCursor is the driver-level result stream a Store returns for
// find and aggregate requests. It is single-pass and must be closed.
type RawCursor interface {
	// Next advances the stream. It returns false when exhausted or on
	// error; Err distinguishes the two.
	Next(ctx context.Context) bool
	// Decode unmarshals the current document into out.
	Decode(out any) error
	// Err reports the error that terminated iteration, if any.
	Err() error
	// Close releases the stream.
	Close(ctx context.Context) error
}

// FindRequest is the rendered form of a find query: the filter plus
// the result-shaping options that accompany it.
type FindRequest struct {
	Filter     bson.M
	Projection bson.D // nil means full documents
	Sort       bson.D // ordered (path, direction) pairs
	Skip       int64
	Limit      int64 // 0 means no limit
}

// CountRequest carries the filter, skip and limit a count applies,
// the same ones the corresponding find would use.
type CountRequest struct {
	Filter bson.M
	Skip   int64
	Limit  int64
}

// Store is the contract a storage backend implements for one
// collection. All operations are non-blocking with respect to the
// core: the store may suspend on I/O, the core holds no locks across
// calls. Every operation receives the resolved Session unchanged;
// store-reported failures are propagated to the caller as-is, without
// retry or wrapping.
type Store interface {
	// Name returns the collection name, used for operation metadata.
	Name() string

	// InsertOne stores a single document and returns the generated
	// identity.
	InsertOne(ctx context.Context, doc any, sess Session) (any, error)
	// InsertMany stores the documents in order.
	InsertMany(ctx context.Context, docs []any, sess Session) error

	// Find opens a result stream for the request.
	Find(ctx context.Context, req FindRequest, sess Session) (RawCursor, error)
	// Count returns the number of matching documents without
	// materializing them.
	Count(ctx context.Context, req CountRequest, sess Session) (int64, error)

	// UpdateOne applies the update payload to the first matching
	// document and returns the number of documents modified.
	UpdateOne(ctx context.Context, filter, update bson.M, sess Session) (int64, error)
	// UpdateMany applies the update payload to every matching document.
	UpdateMany(ctx context.Context, filter, update bson.M, sess Session) (int64, error)

	// DeleteOne removes the first matching document.
	DeleteOne(ctx context.Context, filter bson.M, sess Session) (int64, error)
	// DeleteMany removes every matching document.
	DeleteMany(ctx context.Context, filter bson.M, sess Session) (int64, error)

	// ReplaceOne swaps the first matching document for doc in full.
	ReplaceOne(ctx context.Context, filter bson.M, doc any, sess Session) (int64, error)

	// Aggregate runs the pipeline and opens a stream over its output.
	Aggregate(ctx context.Context, pipeline []bson.M, sess Session) (RawCursor, error)
}

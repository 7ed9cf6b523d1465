// Package core provides the building blocks of the beanie ODM.
// This file defines the document contract and the Model, the typed
// entry point for CRUD on a registered collection. Model methods are
// thin façades: they construct the corresponding query objects and
// immediately drive them.
package core

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document is the contract every mapped type satisfies through an
// embedded Base: access to the identity correlating the entity with at
// most one stored record.
type Document interface {
	GetID() primitive.ObjectID
	SetID(primitive.ObjectID)
}

// Doc constrains a pointer-to-struct document type. It exists so that
// Register can enforce, at compile time, that *T carries the identity
// accessors.
type Doc[T any] interface {
	*T
	Document
}

// Base carries the document identity. Embed it in every mapped struct:
//
//	type User struct {
//		core.Base `bson:",inline"`
//		Name      string `bson:"name"`
//	}
//
// The identity is absent (zero) until the document is first persisted;
// omitempty keeps it out of insert payloads so the store generates it.
type Base struct {
	ID primitive.ObjectID `bson:"_id,omitempty"`
}

// GetID returns the document identity; zero means not yet persisted.
func (b *Base) GetID() primitive.ObjectID { return b.ID }

// SetID assigns the document identity.
func (b *Base) SetID(id primitive.ObjectID) { b.ID = id }

// asDoc exposes the identity accessors of a document pointer. Register
// guarantees *T implements Document, so the assertion cannot fail for
// registered types.
func asDoc[T any](doc *T) Document {
	return any(doc).(Document)
}

// Model is the typed entry point for a registered document type.
// Obtain one with ModelOf after Register; the zero Model rejects every
// operation with ErrNotInitialized.
type Model[T any] struct {
	binding *binding
}

// F resolves a Go field path (dotted for nesting, e.g. "Tag.Color") to
// its storage Field, honoring bson aliases. Unknown names panic: a
// mistyped field path is a programming error.
func (m *Model[T]) F(goPath string) Field {
	if m.binding == nil {
		panic(ErrNotInitialized)
	}
	return m.binding.fields.resolve(goPath)
}

// Collection returns the bound collection name.
func (m *Model[T]) Collection() string {
	if m.binding == nil {
		return ""
	}
	return m.binding.store.Name()
}

func (m *Model[T]) initialized() error {
	if m == nil || m.binding == nil {
		return ErrNotInitialized
	}
	return nil
}

// Insert persists a new document and assigns the store-generated
// identity back onto it. A document that already carries an identity
// is rejected with ErrAlreadyCreated before any store call.
func (m *Model[T]) Insert(ctx context.Context, doc *T) error {
	if err := m.initialized(); err != nil {
		return err
	}
	d := asDoc(doc)
	if !d.GetID().IsZero() {
		return ErrAlreadyCreated
	}
	if err := m.binding.hooks.run(BeforeInsert, doc); err != nil {
		return err
	}
	err := dispatch(ctx, OpInfo{Op: OpInsert, Collection: m.Collection()}, func() error {
		id, err := m.binding.store.InsertOne(ctx, doc, SessionFrom(ctx))
		if err != nil {
			return err
		}
		oid, ok := id.(primitive.ObjectID)
		if !ok {
			return fmt.Errorf("store returned identity of type %T, want ObjectID", id)
		}
		d.SetID(oid)
		return nil
	})
	if err != nil {
		return err
	}
	return m.binding.hooks.run(AfterInsert, doc)
}

// Create is an alias for Insert.
func (m *Model[T]) Create(ctx context.Context, doc *T) error {
	return m.Insert(ctx, doc)
}

type insertConfig struct {
	keepIDs bool
}

// InsertOption configures InsertMany.
type InsertOption func(*insertConfig)

// KeepIDs makes InsertMany store the documents with their current
// identities instead of stripping them for store-side generation.
func KeepIDs() InsertOption {
	return func(c *insertConfig) { c.keepIDs = true }
}

// InsertMany persists the documents in order. Identities are stripped
// from the payloads unless KeepIDs is given; either way the in-memory
// documents are not mutated.
func (m *Model[T]) InsertMany(ctx context.Context, docs []*T, opts ...InsertOption) error {
	if err := m.initialized(); err != nil {
		return err
	}
	var cfg insertConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	payloads := make([]any, 0, len(docs))
	for _, doc := range docs {
		raw, err := toRaw(doc)
		if err != nil {
			return err
		}
		if !cfg.keepIDs {
			delete(raw, "_id")
		}
		payloads = append(payloads, raw)
	}
	return dispatch(ctx, OpInfo{Op: OpInsert, Collection: m.Collection()}, func() error {
		return m.binding.store.InsertMany(ctx, payloads, SessionFrom(ctx))
	})
}

// Get fetches a document by identity, or nil, nil when absent.
// Equivalent to FindOne({_id: id}).One(ctx).
func (m *Model[T]) Get(ctx context.Context, id primitive.ObjectID) (*T, error) {
	return m.FindOne(ID.Eq(id)).One(ctx)
}

// FindOne constructs a single-document query object pre-seeded with
// the given criteria. It does not execute.
func (m *Model[T]) FindOne(criteria ...any) *FindOne[T] {
	q := &FindOne[T]{binding: m.binding}
	if m.binding == nil {
		q.err = ErrNotInitialized
	}
	return q.Find(criteria...)
}

// Find constructs a multi-document query object pre-seeded with the
// given criteria. It does not execute.
func (m *Model[T]) Find(criteria ...any) *FindMany[T] {
	q := &FindMany[T]{binding: m.binding}
	if m.binding == nil {
		q.err = ErrNotInitialized
	}
	return q.Find(criteria...)
}

// FindAll constructs a query object matching every document.
func (m *Model[T]) FindAll() *FindMany[T] {
	return m.Find()
}

// Replace performs a full-document replacement keyed by the current
// identity. A document that was never saved is rejected with
// ErrNotSaved before any store call.
func (m *Model[T]) Replace(ctx context.Context, doc *T) error {
	if err := m.initialized(); err != nil {
		return err
	}
	id := asDoc(doc).GetID()
	if id.IsZero() {
		return ErrNotSaved
	}
	if err := m.binding.hooks.run(BeforeReplace, doc); err != nil {
		return err
	}
	if err := m.FindOne(ID.Eq(id)).Replace(ctx, doc); err != nil {
		return err
	}
	return m.binding.hooks.run(AfterReplace, doc)
}

// ReplaceMany replaces a batch of stored documents. Every supplied
// document must already exist in the store, verified with a single
// count; on any miss the whole batch is rejected with
// ErrReplaceConflict and the store is untouched. Otherwise the matched
// set is deleted and the documents re-inserted with their identities
// preserved.
//
// The delete and re-insert are two store calls, NOT one atomic
// operation: a failure between them can lose documents. Callers
// needing atomicity must pass a session bound to a store-level
// transaction (ContextWithSession).
func (m *Model[T]) ReplaceMany(ctx context.Context, docs []*T) error {
	if err := m.initialized(); err != nil {
		return err
	}
	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, doc := range docs {
		id := asDoc(doc).GetID()
		if id.IsZero() {
			return ErrNotSaved
		}
		ids = append(ids, id)
	}
	matched, err := m.Find(ID.In(ids)).Count(ctx)
	if err != nil {
		return err
	}
	if matched != int64(len(ids)) {
		return ErrReplaceConflict
	}
	if _, err := m.Find(ID.In(ids)).Delete(ctx); err != nil {
		return err
	}
	return m.InsertMany(ctx, docs, KeepIDs())
}

// Update applies a partial update to the stored document keyed by the
// current identity, then resyncs the in-memory document from the
// store: an update payload is not assumed to mutate the in-process
// object, so an explicit re-fetch follows and the document reflects
// stored state when Update returns.
func (m *Model[T]) Update(ctx context.Context, doc *T, mods ...*UpdateOperator) error {
	if err := m.initialized(); err != nil {
		return err
	}
	id := asDoc(doc).GetID()
	if id.IsZero() {
		return ErrNotSaved
	}
	if err := m.binding.hooks.run(BeforeUpdate, doc); err != nil {
		return err
	}
	if _, err := m.FindOne(ID.Eq(id)).Update(ctx, mods...); err != nil {
		return err
	}
	fresh, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if fresh != nil {
		*doc = *fresh
	}
	return m.binding.hooks.run(AfterUpdate, doc)
}

// UpdateAll applies a partial update to every document of the
// collection and returns the number modified.
func (m *Model[T]) UpdateAll(ctx context.Context, mods ...*UpdateOperator) (int64, error) {
	return m.FindAll().Update(ctx, mods...)
}

// Delete removes the stored document keyed by the current identity and
// returns the store's delete count.
func (m *Model[T]) Delete(ctx context.Context, doc *T) (int64, error) {
	if err := m.initialized(); err != nil {
		return 0, err
	}
	id := asDoc(doc).GetID()
	if id.IsZero() {
		return 0, ErrNotSaved
	}
	if err := m.binding.hooks.run(BeforeDelete, doc); err != nil {
		return 0, err
	}
	deleted, err := m.FindOne(ID.Eq(id)).Delete(ctx)
	if err != nil {
		return deleted, err
	}
	return deleted, m.binding.hooks.run(AfterDelete, doc)
}

// DeleteAll removes every document of the collection.
func (m *Model[T]) DeleteAll(ctx context.Context) (int64, error) {
	return m.FindAll().Delete(ctx)
}

// Count returns the number of documents in the collection.
func (m *Model[T]) Count(ctx context.Context) (int64, error) {
	return m.FindAll().Count(ctx)
}

// Aggregate builds an aggregation over the whole collection. Use
// AggregateTo for typed result rows.
func (m *Model[T]) Aggregate(stages ...bson.M) *Aggregation[bson.M] {
	return m.FindAll().Aggregate(stages...)
}

// InspectCollection validates every stored document against the
// schema, without mutating the store and without stopping at the first
// failure. Validation failures are collected into the result instead
// of being raised; every other error aborts the scan.
func (m *Model[T]) InspectCollection(ctx context.Context) (*InspectionResult, error) {
	if err := m.initialized(); err != nil {
		return nil, err
	}
	result := &InspectionResult{Status: InspectionOK}
	err := dispatch(ctx, OpInfo{Op: OpInspect, Collection: m.Collection()}, func() error {
		rc, err := m.binding.store.Find(ctx, FindRequest{Filter: bson.M{}}, SessionFrom(ctx))
		if err != nil {
			return err
		}
		defer rc.Close(ctx)
		for rc.Next(ctx) {
			var raw bson.M
			if err := rc.Decode(&raw); err != nil {
				return err
			}
			if err := m.binding.validator.Validate(raw); err != nil {
				result.addError(raw["_id"], err.Error())
			}
		}
		return rc.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// toRaw marshals a document into its raw mapping form.
func toRaw(doc any) (bson.M, error) {
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var raw bson.M
	if err := bson.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

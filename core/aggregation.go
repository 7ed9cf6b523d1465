// Package core provides the building blocks of the beanie ODM.
// This file defines the aggregation query object.
package core

import (
	"context"
	"iter"
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
)

// Aggregation executes a pipeline over a collection and materializes
// its output rows as R. The assembled pipeline prepends a match stage
// when the source query carried a filter, and appends a project stage
// when R is a struct schema (see AggregateTo).
type Aggregation[R any] struct {
	binding  *binding
	filter   bson.M
	pipeline []bson.M
	project  bson.D
	session  Session
	err      error
}

// WithSession attaches a session token, propagated to the store call.
func (a *Aggregation[R]) WithSession(sess Session) *Aggregation[R] {
	a.session = sess
	return a
}

// stages assembles the full pipeline: match + caller stages + project.
func (a *Aggregation[R]) stages() []bson.M {
	pipeline := make([]bson.M, 0, len(a.pipeline)+2)
	if len(a.filter) > 0 {
		pipeline = append(pipeline, bson.M{"$match": a.filter})
	}
	pipeline = append(pipeline, a.pipeline...)
	if len(a.project) > 0 {
		pipeline = append(pipeline, bson.M{"$project": a.project})
	}
	return pipeline
}

// Cursor returns the lazy sequence over the pipeline output. The store
// is not contacted until the cursor is iterated; each iteration re-runs
// the pipeline.
func (a *Aggregation[R]) Cursor() *Cursor[R] {
	if a.err != nil {
		err := a.err
		return &Cursor[R]{open: func(context.Context, bool) (RawCursor, error) { return nil, err }}
	}
	if a.binding == nil {
		return &Cursor[R]{open: func(context.Context, bool) (RawCursor, error) { return nil, ErrNotInitialized }}
	}
	b, pipeline, sess := a.binding, a.stages(), a.session
	return &Cursor[R]{
		open: func(ctx context.Context, limitOne bool) (RawCursor, error) {
			p := pipeline
			if limitOne {
				p = append(append([]bson.M(nil), p...), bson.M{"$limit": 1})
			}
			var rc RawCursor
			err := dispatch(ctx, OpInfo{Op: OpAggregate, Collection: b.store.Name()}, func() error {
				var err error
				rc, err = b.store.Aggregate(ctx, p, resolveSession(ctx, sess))
				return err
			})
			return rc, err
		},
	}
}

// All returns the lazy sequence of result rows.
func (a *Aggregation[R]) All(ctx context.Context) iter.Seq2[*R, error] {
	return a.Cursor().All(ctx)
}

// ToList materializes all result rows in order.
func (a *Aggregation[R]) ToList(ctx context.Context) ([]*R, error) {
	return a.Cursor().ToList(ctx)
}

// First returns the first result row, or nil, nil when the pipeline
// produces nothing.
func (a *Aggregation[R]) First(ctx context.Context) (*R, error) {
	return a.Cursor().First(ctx)
}

// AggregateTo builds an aggregation whose rows decode into the result
// schema R. A project stage derived from R's field set is appended to
// the pipeline, narrowing the output to R's fields.
//
// Example:
//
//	type TotalByTag struct {
//		Tag   string `bson:"_id"`
//		Total int    `bson:"total"`
//	}
//	rows, err := core.AggregateTo[TotalByTag](model.FindAll(),
//		bson.M{"$group": bson.M{"_id": "$tag", "total": bson.M{"$sum": 1}}},
//	).ToList(ctx)
func AggregateTo[R any, T any](q *FindMany[T], stages ...bson.M) *Aggregation[R] {
	filter, err := q.precheck()
	if err != nil {
		return &Aggregation[R]{err: err}
	}
	agg := &Aggregation[R]{
		binding:  q.binding,
		filter:   filter,
		pipeline: stages,
		session:  q.session,
	}
	if typeOf[R]().Kind() == reflect.Struct {
		proj, err := projectionOf(typeOf[R]())
		if err != nil {
			agg.err = err
			return agg
		}
		agg.project = proj
	}
	return agg
}

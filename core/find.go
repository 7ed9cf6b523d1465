// Package core provides the building blocks of the beanie ODM.
// This file defines the find query objects: mutable, single-owner
// builders that accumulate criteria and options, then render a request
// and execute it against the store.
package core

import (
	"context"
	"fmt"
	"iter"

	"go.mongodb.org/mongo-driver/bson"
)

// Sort directions.
const (
	Asc  = 1
	Desc = -1
)

// SortField is an explicit (path, direction) ordering pair.
type SortField struct {
	Path      Field
	Direction int
}

// toCriterion renders one filter argument. Accepted shapes: Criterion
// (operators), bson.M, bson.D, map[string]any.
func toCriterion(arg any) (bson.M, error) {
	switch c := arg.(type) {
	case Criterion:
		return c.Render()
	case bson.M:
		return c, nil
	case map[string]any:
		return bson.M(c), nil
	case bson.D:
		m := make(bson.M, len(c))
		for _, e := range c {
			m[e.Key] = e.Value
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedCriterion, arg)
	}
}

// renderFilter folds accumulated criteria into one filter document via
// logical conjunction: zero criteria render to the match-all filter,
// a single criterion stays as-is, several nest under $and. This makes
// Find(f1, f2) literally equivalent to Find(And(f1, f2)).
func renderFilter(criteria []bson.M) bson.M {
	switch len(criteria) {
	case 0:
		return bson.M{}
	case 1:
		return criteria[0]
	default:
		children := make(bson.A, 0, len(criteria))
		for _, c := range criteria {
			children = append(children, c)
		}
		return bson.M{"$and": children}
	}
}

// FindOne is the query object for single-document operations. It is
// born accumulating; invoking a verb renders the request and executes
// it. Builder calls after a verb do not affect results the verb
// already returned.
type FindOne[T any] struct {
	binding  *binding
	criteria []bson.M
	session  Session
	err      error
}

// Find merges additional filter criteria into the accumulated filter
// via logical conjunction and returns the builder for chaining. A bad
// criterion latches a typed error that the next verb returns; accepted
// criteria are never silently dropped.
func (q *FindOne[T]) Find(criteria ...any) *FindOne[T] {
	for _, arg := range criteria {
		c, err := toCriterion(arg)
		if err != nil {
			if q.err == nil {
				q.err = err
			}
			return q
		}
		q.criteria = append(q.criteria, c)
	}
	return q
}

// WithSession attaches a session token. Execution propagates it to the
// store call; it takes precedence over a session carried in the
// context. Repeated calls overwrite.
func (q *FindOne[T]) WithSession(sess Session) *FindOne[T] {
	q.session = sess
	return q
}

func (q *FindOne[T]) precheck() (bson.M, error) {
	if q.binding == nil {
		return nil, ErrNotInitialized
	}
	if q.err != nil {
		return nil, q.err
	}
	return renderFilter(q.criteria), nil
}

// One executes the query and returns the mapped document, or nil, nil
// when nothing matches.
func (q *FindOne[T]) One(ctx context.Context) (*T, error) {
	filter, err := q.precheck()
	if err != nil {
		return nil, err
	}
	b, sess := q.binding, resolveSession(ctx, q.session)
	cur := &Cursor[T]{
		open: func(ctx context.Context, _ bool) (RawCursor, error) {
			return b.store.Find(ctx, FindRequest{Filter: filter, Limit: 1}, sess)
		},
		post: func(d *T) error { return b.hooks.run(AfterFind, d) },
	}
	var result *T
	err = dispatch(ctx, OpInfo{Op: OpFind, Collection: b.store.Name()}, func() error {
		var err error
		result, err = cur.First(ctx)
		return err
	})
	return result, err
}

// Update applies a partial update to the first matching document and
// returns the number of documents modified.
func (q *FindOne[T]) Update(ctx context.Context, mods ...*UpdateOperator) (int64, error) {
	filter, err := q.precheck()
	if err != nil {
		return 0, err
	}
	sess := resolveSession(ctx, q.session)
	var modified int64
	err = dispatch(ctx, OpInfo{Op: OpUpdate, Collection: q.binding.store.Name()}, func() error {
		var err error
		modified, err = q.binding.store.UpdateOne(ctx, filter, mergeUpdates(mods), sess)
		return err
	})
	return modified, err
}

// Replace swaps the matching document for doc in full. The document
// must already carry its identity; ErrNotSaved otherwise.
func (q *FindOne[T]) Replace(ctx context.Context, doc *T) error {
	filter, err := q.precheck()
	if err != nil {
		return err
	}
	if asDoc(doc).GetID().IsZero() {
		return ErrNotSaved
	}
	sess := resolveSession(ctx, q.session)
	return dispatch(ctx, OpInfo{Op: OpReplace, Collection: q.binding.store.Name()}, func() error {
		_, err := q.binding.store.ReplaceOne(ctx, filter, doc, sess)
		return err
	})
}

// Delete removes the first matching document and returns the number
// deleted.
func (q *FindOne[T]) Delete(ctx context.Context) (int64, error) {
	filter, err := q.precheck()
	if err != nil {
		return 0, err
	}
	sess := resolveSession(ctx, q.session)
	var deleted int64
	err = dispatch(ctx, OpInfo{Op: OpDelete, Collection: q.binding.store.Name()}, func() error {
		var err error
		deleted, err = q.binding.store.DeleteOne(ctx, filter, sess)
		return err
	})
	return deleted, err
}

// FindMany is the query object for multi-document operations. Beyond
// criteria and session it accumulates sort, skip and limit. Repeated
// Sort, Skip, Limit or WithSession calls overwrite the previous value;
// criteria merge.
type FindMany[T any] struct {
	binding  *binding
	criteria []bson.M
	sort     bson.D
	skip     int64
	limit    int64
	session  Session
	err      error
}

// Find merges additional filter criteria via logical conjunction; see
// FindOne.Find.
func (q *FindMany[T]) Find(criteria ...any) *FindMany[T] {
	for _, arg := range criteria {
		c, err := toCriterion(arg)
		if err != nil {
			if q.err == nil {
				q.err = err
			}
			return q
		}
		q.criteria = append(q.criteria, c)
	}
	return q
}

// Sort sets the result order. Each argument is either a string or
// Field (ascending on that path) or an explicit SortField pair.
// Repeated calls overwrite.
func (q *FindMany[T]) Sort(by ...any) *FindMany[T] {
	sort := make(bson.D, 0, len(by))
	for _, arg := range by {
		switch s := arg.(type) {
		case string:
			sort = append(sort, bson.E{Key: s, Value: Asc})
		case Field:
			sort = append(sort, bson.E{Key: s.Path(), Value: Asc})
		case SortField:
			sort = append(sort, bson.E{Key: s.Path.Path(), Value: s.Direction})
		default:
			if q.err == nil {
				q.err = fmt.Errorf("%w: %T", ErrBadSortExpression, arg)
			}
			return q
		}
	}
	q.sort = sort
	return q
}

// Skip sets the number of documents to omit. Repeated calls overwrite.
func (q *FindMany[T]) Skip(n int64) *FindMany[T] {
	q.skip = n
	return q
}

// Limit sets the maximum number of results. Repeated calls overwrite.
func (q *FindMany[T]) Limit(n int64) *FindMany[T] {
	q.limit = n
	return q
}

// WithSession attaches a session token; see FindOne.WithSession.
func (q *FindMany[T]) WithSession(sess Session) *FindMany[T] {
	q.session = sess
	return q
}

func (q *FindMany[T]) precheck() (bson.M, error) {
	if q.binding == nil {
		return nil, ErrNotInitialized
	}
	if q.err != nil {
		return nil, q.err
	}
	return renderFilter(q.criteria), nil
}

// request snapshots the accumulated state into a FindRequest. Builder
// calls made after a verb ran cannot affect the snapshot the verb
// took.
func (q *FindMany[T]) request(filter bson.M) FindRequest {
	return FindRequest{
		Filter: filter,
		Sort:   append(bson.D(nil), q.sort...),
		Skip:   q.skip,
		Limit:  q.limit,
	}
}

// Cursor renders the request and returns the lazy typed sequence over
// it. The store is not contacted until the cursor is iterated.
func (q *FindMany[T]) Cursor() *Cursor[T] {
	filter, err := q.precheck()
	if err != nil {
		return &Cursor[T]{open: func(context.Context, bool) (RawCursor, error) { return nil, err }}
	}
	b, req, sess := q.binding, q.request(filter), q.session
	return &Cursor[T]{
		open: func(ctx context.Context, limitOne bool) (RawCursor, error) {
			r := req
			if limitOne {
				r.Limit = 1
			}
			var rc RawCursor
			err := dispatch(ctx, OpInfo{Op: OpFind, Collection: b.store.Name()}, func() error {
				var err error
				rc, err = b.store.Find(ctx, r, resolveSession(ctx, sess))
				return err
			})
			return rc, err
		},
		post: func(d *T) error { return b.hooks.run(AfterFind, d) },
	}
}

// All returns the lazy sequence of matching documents. Equivalent to
// Cursor().All(ctx).
func (q *FindMany[T]) All(ctx context.Context) iter.Seq2[*T, error] {
	return q.Cursor().All(ctx)
}

// ToList materializes all matching documents in order.
func (q *FindMany[T]) ToList(ctx context.Context) ([]*T, error) {
	return q.Cursor().ToList(ctx)
}

// First returns the first matching document under the accumulated
// sort, or nil, nil when nothing matches.
func (q *FindMany[T]) First(ctx context.Context) (*T, error) {
	return q.Cursor().First(ctx)
}

// Count returns the number of matching documents, applying the same
// filter, skip and limit the find would. It bypasses materialization.
func (q *FindMany[T]) Count(ctx context.Context) (int64, error) {
	filter, err := q.precheck()
	if err != nil {
		return 0, err
	}
	sess := resolveSession(ctx, q.session)
	var count int64
	err = dispatch(ctx, OpInfo{Op: OpCount, Collection: q.binding.store.Name()}, func() error {
		var err error
		count, err = q.binding.store.Count(ctx, CountRequest{Filter: filter, Skip: q.skip, Limit: q.limit}, sess)
		return err
	})
	return count, err
}

// Update applies a partial update to every matching document and
// returns the number modified.
func (q *FindMany[T]) Update(ctx context.Context, mods ...*UpdateOperator) (int64, error) {
	filter, err := q.precheck()
	if err != nil {
		return 0, err
	}
	sess := resolveSession(ctx, q.session)
	var modified int64
	err = dispatch(ctx, OpInfo{Op: OpUpdate, Collection: q.binding.store.Name()}, func() error {
		var err error
		modified, err = q.binding.store.UpdateMany(ctx, filter, mergeUpdates(mods), sess)
		return err
	})
	return modified, err
}

// Delete removes every matching document and returns the number
// deleted.
func (q *FindMany[T]) Delete(ctx context.Context) (int64, error) {
	filter, err := q.precheck()
	if err != nil {
		return 0, err
	}
	sess := resolveSession(ctx, q.session)
	var deleted int64
	err = dispatch(ctx, OpInfo{Op: OpDelete, Collection: q.binding.store.Name()}, func() error {
		var err error
		deleted, err = q.binding.store.DeleteMany(ctx, filter, sess)
		return err
	})
	return deleted, err
}

// Aggregate builds an aggregation over the accumulated filter: when
// the filter is non-empty it becomes a prepended match stage. Rows are
// produced as raw documents; use AggregateTo for typed rows.
func (q *FindMany[T]) Aggregate(stages ...bson.M) *Aggregation[bson.M] {
	filter, err := q.precheck()
	if err != nil {
		return &Aggregation[bson.M]{err: err}
	}
	return &Aggregation[bson.M]{
		binding:  q.binding,
		filter:   filter,
		pipeline: stages,
		session:  q.session,
	}
}

// Project narrows the query's result mapping to the view type P: the
// request carries an inclusion projection derived from P's fields and
// results decode into P. The filter is not altered.
//
// Example:
//
//	type NameOnly struct {
//		Name string `bson:"name"`
//	}
//	names, err := core.Project[NameOnly](model.FindAll()).ToList(ctx)
func Project[P any, T any](q *FindMany[T]) *Cursor[P] {
	filter, err := q.precheck()
	if err == nil {
		var projErr error
		if _, projErr = projectionOf(typeOf[P]()); projErr != nil {
			err = projErr
		}
	}
	if err != nil {
		return &Cursor[P]{open: func(context.Context, bool) (RawCursor, error) { return nil, err }}
	}
	proj, _ := projectionOf(typeOf[P]())
	b, req, sess := q.binding, q.request(filter), q.session
	req.Projection = proj
	return &Cursor[P]{
		open: func(ctx context.Context, limitOne bool) (RawCursor, error) {
			r := req
			if limitOne {
				r.Limit = 1
			}
			var rc RawCursor
			err := dispatch(ctx, OpInfo{Op: OpFind, Collection: b.store.Name()}, func() error {
				var err error
				rc, err = b.store.Find(ctx, r, resolveSession(ctx, sess))
				return err
			})
			return rc, err
		},
	}
}

// ProjectOne executes a single-document find mapped into the view type
// P. It returns nil, nil when nothing matches.
func ProjectOne[P any, T any](ctx context.Context, q *FindOne[T]) (*P, error) {
	filter, err := q.precheck()
	if err != nil {
		return nil, err
	}
	proj, err := projectionOf(typeOf[P]())
	if err != nil {
		return nil, err
	}
	b, sess := q.binding, resolveSession(ctx, q.session)
	cur := &Cursor[P]{
		open: func(ctx context.Context, _ bool) (RawCursor, error) {
			return b.store.Find(ctx, FindRequest{Filter: filter, Projection: proj, Limit: 1}, sess)
		},
	}
	var result *P
	err = dispatch(ctx, OpInfo{Op: OpFind, Collection: b.store.Name()}, func() error {
		var err error
		result, err = cur.First(ctx)
		return err
	})
	return result, err
}

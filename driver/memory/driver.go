// Package driver provides an in-process store backend for the beanie
// ODM core. It keeps documents in memory and evaluates the core's
// query, update, and pipeline grammar itself, which makes it the
// backend of choice for unit tests and examples.
//
// Session tokens are accepted and ignored: the store applies every
// write immediately and offers no transaction isolation.
package driver

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/paul-nameless/beanie/core"
)

// Store is an in-memory core.Store for a single collection. It is
// safe for concurrent use.
type Store struct {
	name string

	mu   sync.RWMutex
	docs []bson.M
}

var _ core.Store = (*Store)(nil)

// NewStore creates an empty in-memory collection.
func NewStore(name string) *Store {
	return &Store{name: name}
}

// Name returns the collection name.
func (s *Store) Name() string { return s.name }

// Len returns the number of stored documents. Test helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// normalize round-trips a document through BSON so stored values carry
// the same types a real store would return (int32/int64, bson.M,
// bson.A, primitive.DateTime).
func normalize(doc any) (bson.M, error) {
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

func (s *Store) InsertOne(ctx context.Context, doc any, _ core.Session) (any, error) {
	raw, err := normalize(doc)
	if err != nil {
		return nil, err
	}
	id, ok := raw["_id"]
	if !ok {
		id = primitive.NewObjectID()
		raw["_id"] = id
	}
	s.mu.Lock()
	s.docs = append(s.docs, raw)
	s.mu.Unlock()
	return id, nil
}

func (s *Store) InsertMany(ctx context.Context, docs []any, _ core.Session) error {
	normalized := make([]bson.M, 0, len(docs))
	for _, doc := range docs {
		raw, err := normalize(doc)
		if err != nil {
			return err
		}
		if _, ok := raw["_id"]; !ok {
			raw["_id"] = primitive.NewObjectID()
		}
		normalized = append(normalized, raw)
	}
	s.mu.Lock()
	s.docs = append(s.docs, normalized...)
	s.mu.Unlock()
	return nil
}

// matched snapshots the documents matching the filter, in store order.
func (s *Store) matched(filter bson.M) ([]bson.M, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []bson.M
	for _, doc := range s.docs {
		ok, err := matchDoc(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *Store) Find(ctx context.Context, req core.FindRequest, _ core.Session) (core.RawCursor, error) {
	docs, err := s.matched(req.Filter)
	if err != nil {
		return nil, err
	}
	if len(req.Sort) > 0 {
		sortDocs(docs, req.Sort)
	}
	docs = window(docs, req.Skip, req.Limit)
	if len(req.Projection) > 0 {
		projected := make([]bson.M, 0, len(docs))
		for _, doc := range docs {
			projected = append(projected, applyProjection(doc, req.Projection))
		}
		docs = projected
	}
	return &sliceCursor{docs: docs}, nil
}

func (s *Store) Count(ctx context.Context, req core.CountRequest, _ core.Session) (int64, error) {
	docs, err := s.matched(req.Filter)
	if err != nil {
		return 0, err
	}
	return int64(len(window(docs, req.Skip, req.Limit))), nil
}

func (s *Store) UpdateOne(ctx context.Context, filter, update bson.M, _ core.Session) (int64, error) {
	return s.update(filter, update, true)
}

func (s *Store) UpdateMany(ctx context.Context, filter, update bson.M, _ core.Session) (int64, error) {
	return s.update(filter, update, false)
}

func (s *Store) update(filter, update bson.M, single bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var modified int64
	for _, doc := range s.docs {
		ok, err := matchDoc(doc, filter)
		if err != nil {
			return modified, err
		}
		if !ok {
			continue
		}
		changed, err := applyUpdate(doc, update)
		if err != nil {
			return modified, err
		}
		if changed {
			modified++
		}
		if single {
			break
		}
	}
	return modified, nil
}

func (s *Store) DeleteOne(ctx context.Context, filter bson.M, _ core.Session) (int64, error) {
	return s.delete(filter, true)
}

func (s *Store) DeleteMany(ctx context.Context, filter bson.M, _ core.Session) (int64, error) {
	return s.delete(filter, false)
}

func (s *Store) delete(filter bson.M, single bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	kept := s.docs[:0]
	for i, doc := range s.docs {
		ok, err := matchDoc(doc, filter)
		if err != nil {
			return 0, err
		}
		if ok && (!single || deleted == 0) {
			deleted++
			continue
		}
		kept = append(kept, s.docs[i])
	}
	s.docs = kept
	return deleted, nil
}

func (s *Store) ReplaceOne(ctx context.Context, filter bson.M, doc any, _ core.Session) (int64, error) {
	raw, err := normalize(doc)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.docs {
		ok, err := matchDoc(existing, filter)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		// a replacement without an identity keeps the stored one
		if _, has := raw["_id"]; !has {
			raw["_id"] = existing["_id"]
		}
		s.docs[i] = raw
		return 1, nil
	}
	return 0, nil
}

func (s *Store) Aggregate(ctx context.Context, pipeline []bson.M, _ core.Session) (core.RawCursor, error) {
	s.mu.RLock()
	docs := append([]bson.M(nil), s.docs...)
	s.mu.RUnlock()

	docs, err := applyPipeline(docs, pipeline)
	if err != nil {
		return nil, err
	}
	return &sliceCursor{docs: docs}, nil
}

// window applies skip and limit to a result set.
func window(docs []bson.M, skip, limit int64) []bson.M {
	if skip > 0 {
		if skip >= int64(len(docs)) {
			return nil
		}
		docs = docs[skip:]
	}
	if limit > 0 && limit < int64(len(docs)) {
		docs = docs[:limit]
	}
	return docs
}

// sortDocs orders documents by the given (path, direction) pairs.
func sortDocs(docs []bson.M, by bson.D) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, e := range by {
			a, _ := lookupPath(docs[i], e.Key)
			b, _ := lookupPath(docs[j], e.Key)
			cmp, ok := compareValues(a, b)
			if !ok || cmp == 0 {
				continue
			}
			if dir, _ := toInt64(e.Value); dir < 0 {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// applyProjection keeps only the included paths. The identity is kept
// unless explicitly excluded.
func applyProjection(doc bson.M, proj bson.D) bson.M {
	out := bson.M{}
	includeID := true
	for _, e := range proj {
		n, _ := toInt64(e.Value)
		if e.Key == "_id" && n == 0 {
			includeID = false
			continue
		}
		if n == 0 {
			continue
		}
		if v, ok := lookupPath(doc, e.Key); ok {
			setPath(out, e.Key, v)
		}
	}
	if includeID {
		if id, ok := doc["_id"]; ok {
			out["_id"] = id
		}
	}
	return out
}

// sliceCursor is a core.RawCursor over a materialized result set.
type sliceCursor struct {
	docs []bson.M
	idx  int
	err  error
}

func (c *sliceCursor) Next(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	if c.idx >= len(c.docs) {
		return false
	}
	c.idx++
	return true
}

func (c *sliceCursor) Decode(out any) error {
	data, err := bson.Marshal(c.docs[c.idx-1])
	if err != nil {
		return err
	}
	return bson.Unmarshal(data, out)
}

func (c *sliceCursor) Err() error { return c.err }

func (c *sliceCursor) Close(ctx context.Context) error { return nil }

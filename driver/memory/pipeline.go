// Package driver provides an in-process store backend for the beanie
// ODM core. This file evaluates aggregation pipelines over the stored
// documents.
package driver

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// applyPipeline runs the stages over the documents in order.
func applyPipeline(docs []bson.M, stages []bson.M) ([]bson.M, error) {
	for _, stage := range stages {
		if len(stage) != 1 {
			return nil, fmt.Errorf("pipeline stage must hold exactly one operator, got %d", len(stage))
		}
		for kw, spec := range stage {
			var err error
			docs, err = applyStage(docs, kw, spec)
			if err != nil {
				return nil, err
			}
		}
	}
	return docs, nil
}

func applyStage(docs []bson.M, kw string, spec any) ([]bson.M, error) {
	switch kw {
	case "$match":
		filter, ok := asDoc(spec)
		if !ok {
			return nil, fmt.Errorf("$match expects a filter document")
		}
		var out []bson.M
		for _, doc := range docs {
			matched, err := matchDoc(doc, filter)
			if err != nil {
				return nil, err
			}
			if matched {
				out = append(out, doc)
			}
		}
		return out, nil

	case "$project":
		proj, err := toOrdered(spec)
		if err != nil {
			return nil, err
		}
		out := make([]bson.M, 0, len(docs))
		for _, doc := range docs {
			out = append(out, applyProjection(doc, proj))
		}
		return out, nil

	case "$sort":
		by, err := toOrdered(spec)
		if err != nil {
			return nil, err
		}
		sorted := append([]bson.M(nil), docs...)
		sortDocs(sorted, by)
		return sorted, nil

	case "$skip":
		n, ok := toInt64(spec)
		if !ok {
			return nil, fmt.Errorf("$skip expects a number")
		}
		return window(docs, n, 0), nil

	case "$limit":
		n, ok := toInt64(spec)
		if !ok {
			return nil, fmt.Errorf("$limit expects a number")
		}
		return window(docs, 0, n), nil

	case "$count":
		name, ok := spec.(string)
		if !ok || name == "" {
			return nil, fmt.Errorf("$count expects a field name")
		}
		return []bson.M{{name: int64(len(docs))}}, nil

	case "$group":
		groupSpec, ok := asDoc(spec)
		if !ok {
			return nil, fmt.Errorf("$group expects a document")
		}
		return applyGroup(docs, groupSpec)

	default:
		return nil, fmt.Errorf("unsupported pipeline stage %q", kw)
	}
}

// toOrdered accepts either an ordered (bson.D) or unordered (bson.M)
// stage spec.
func toOrdered(spec any) (bson.D, error) {
	switch s := spec.(type) {
	case bson.D:
		return s, nil
	case bson.M:
		out := make(bson.D, 0, len(s))
		for k, v := range s {
			out = append(out, bson.E{Key: k, Value: v})
		}
		return out, nil
	case map[string]any:
		return toOrdered(bson.M(s))
	}
	return nil, fmt.Errorf("expected a document spec, got %T", spec)
}

// evalExpr evaluates a stage expression: "$path" references, or a
// literal.
func evalExpr(doc bson.M, expr any) any {
	if ref, ok := expr.(string); ok && len(ref) > 1 && ref[0] == '$' {
		v, _ := lookupPath(doc, ref[1:])
		return v
	}
	return expr
}

// group accumulators: one bucket per distinct key.
type bucket struct {
	key  any
	docs []bson.M
}

func applyGroup(docs []bson.M, spec bson.M) ([]bson.M, error) {
	keyExpr, ok := spec["_id"]
	if !ok {
		return nil, fmt.Errorf("$group requires an _id expression")
	}

	var order []string
	buckets := map[string]*bucket{}
	for _, doc := range docs {
		key := evalExpr(doc, keyExpr)
		mapKey := fmt.Sprintf("%v", key)
		b, ok := buckets[mapKey]
		if !ok {
			b = &bucket{key: key}
			buckets[mapKey] = b
			order = append(order, mapKey)
		}
		b.docs = append(b.docs, doc)
	}

	out := make([]bson.M, 0, len(order))
	for _, mapKey := range order {
		b := buckets[mapKey]
		row := bson.M{"_id": b.key}
		for field, accSpec := range spec {
			if field == "_id" {
				continue
			}
			acc, ok := asDoc(accSpec)
			if !ok || len(acc) != 1 {
				return nil, fmt.Errorf("$group field %q must hold one accumulator", field)
			}
			for kw, expr := range acc {
				v, err := accumulate(b.docs, kw, expr)
				if err != nil {
					return nil, err
				}
				row[field] = v
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func accumulate(docs []bson.M, kw string, expr any) (any, error) {
	switch kw {
	case "$sum", "$avg":
		total := 0.0
		count := 0
		integral := true
		for _, doc := range docs {
			v := evalExpr(doc, expr)
			f, ok := toFloat(v)
			if !ok {
				continue
			}
			if !isIntegral(v) {
				integral = false
			}
			total += f
			count++
		}
		if kw == "$avg" {
			if count == 0 {
				return nil, nil
			}
			return total / float64(count), nil
		}
		if integral {
			return int64(total), nil
		}
		return total, nil

	case "$min", "$max":
		var best any
		for _, doc := range docs {
			v := evalExpr(doc, expr)
			if v == nil {
				continue
			}
			if best == nil {
				best = v
				continue
			}
			cmp, ok := compareValues(v, best)
			if !ok {
				continue
			}
			if (kw == "$min" && cmp < 0) || (kw == "$max" && cmp > 0) {
				best = v
			}
		}
		return best, nil

	case "$first":
		if len(docs) == 0 {
			return nil, nil
		}
		return evalExpr(docs[0], expr), nil

	default:
		return nil, fmt.Errorf("unsupported accumulator %q", kw)
	}
}

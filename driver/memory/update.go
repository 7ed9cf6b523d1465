// Package driver provides an in-process store backend for the beanie
// ODM core. This file applies update payloads to stored documents.
package driver

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// applyUpdate mutates doc according to the update payload and reports
// whether anything changed.
func applyUpdate(doc bson.M, update bson.M) (bool, error) {
	changed := false
	for kw, operand := range update {
		spec, ok := asDoc(operand)
		if !ok {
			return changed, fmt.Errorf("%s operand must be a document", kw)
		}
		for path, v := range spec {
			c, err := applyMod(doc, kw, path, v)
			if err != nil {
				return changed, err
			}
			changed = changed || c
		}
	}
	return changed, nil
}

func applyMod(doc bson.M, kw, path string, v any) (bool, error) {
	switch kw {
	case "$set":
		current, exists := lookupPath(doc, path)
		if exists && equalValues(current, v) {
			return false, nil
		}
		setPath(doc, path, v)
		return true, nil
	case "$unset":
		return deletePath(doc, path), nil
	case "$inc", "$mul":
		delta, ok := toFloat(v)
		if !ok {
			return false, fmt.Errorf("%s operand for %q must be numeric", kw, path)
		}
		current, exists := lookupPath(doc, path)
		base := 0.0
		if exists {
			b, ok := toFloat(current)
			if !ok {
				return false, fmt.Errorf("%s target %q is not numeric", kw, path)
			}
			base = b
		}
		result := base + delta
		if kw == "$mul" {
			result = base * delta
		}
		setPath(doc, path, numericLike(current, v, result))
		return true, nil
	case "$min", "$max":
		current, exists := lookupPath(doc, path)
		if exists {
			cmp, ok := compareValues(v, current)
			if !ok {
				return false, nil
			}
			if (kw == "$min" && cmp >= 0) || (kw == "$max" && cmp <= 0) {
				return false, nil
			}
		}
		setPath(doc, path, v)
		return true, nil
	case "$currentDate":
		setPath(doc, path, primitive.NewDateTimeFromTime(time.Now()))
		return true, nil
	case "$rename":
		to, ok := v.(string)
		if !ok {
			return false, fmt.Errorf("$rename operand for %q must be a string path", path)
		}
		value, exists := lookupPath(doc, path)
		if !exists {
			return false, nil
		}
		deletePath(doc, path)
		setPath(doc, to, value)
		return true, nil
	case "$setOnInsert":
		// no upsert support: only applies on insert, which never
		// happens through an update here
		return false, nil
	default:
		return false, fmt.Errorf("unsupported update operator %q", kw)
	}
}

// numericLike picks an integer representation when both the current
// value and the operand were integers, floating otherwise.
func numericLike(current, operand any, result float64) any {
	if isIntegral(operand) && (current == nil || isIntegral(current)) {
		return int64(result)
	}
	return result
}

func isIntegral(v any) bool {
	switch v.(type) {
	case int, int32, int64, nil:
		return true
	}
	return false
}

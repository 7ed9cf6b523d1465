// Package driver provides an in-process store backend for the beanie
// ODM core. This file implements value comparison over the BSON type
// families the store holds after normalization.
package driver

import (
	"bytes"
	"reflect"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// toFloat widens any numeric BSON value to float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case primitive.DateTime:
		return float64(n), true
	}
	return 0, false
}

func toInt64(v any) (int64, bool) {
	f, ok := toFloat(v)
	return int64(f), ok
}

// compareValues orders two BSON values of the same family. The second
// return is false when the values are not comparable (different
// families, or a family with no order).
func compareValues(a, b any) (int, bool) {
	if af, ok := toFloat(a); ok {
		bf, bok := toFloat(b)
		if !bok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		}
		return 1, true
	case primitive.ObjectID:
		bv, ok := b.(primitive.ObjectID)
		if !ok {
			return 0, false
		}
		return bytes.Compare(av[:], bv[:]), true
	case nil:
		if b == nil {
			return 0, true
		}
		return 0, false
	}
	return 0, false
}

// equalValues reports value equality: ordered equality for the
// comparable families, deep equality for documents and arrays.
func equalValues(a, b any) bool {
	if cmp, ok := compareValues(a, b); ok {
		return cmp == 0
	}
	return reflect.DeepEqual(a, b)
}

// asArray returns the elements of a BSON array value. Typed slices
// (filter operands arrive unnormalized) are widened element by element.
func asArray(v any) ([]any, bool) {
	switch arr := v.(type) {
	case primitive.A:
		return arr, true
	case []any:
		return arr, true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

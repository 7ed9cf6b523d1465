// Package driver provides an in-process store backend for the beanie
// ODM core. This file evaluates filter documents against stored
// documents, covering the operator grammar the core renders.
package driver

import (
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// lookupPath resolves a dotted path inside a document.
func lookupPath(doc bson.M, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = doc
	for _, part := range parts {
		m, ok := asDoc(current)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// setPath assigns a value at a dotted path, creating intermediate
// documents.
func setPath(doc bson.M, path string, v any) {
	parts := strings.Split(path, ".")
	for _, part := range parts[:len(parts)-1] {
		next, ok := asDoc(doc[part])
		if !ok {
			next = bson.M{}
			doc[part] = next
		}
		doc[part] = next
		doc = next
	}
	doc[parts[len(parts)-1]] = v
}

// deletePath removes the value at a dotted path.
func deletePath(doc bson.M, path string) bool {
	parts := strings.Split(path, ".")
	for _, part := range parts[:len(parts)-1] {
		next, ok := asDoc(doc[part])
		if !ok {
			return false
		}
		doc = next
	}
	leaf := parts[len(parts)-1]
	if _, ok := doc[leaf]; !ok {
		return false
	}
	delete(doc, leaf)
	return true
}

func asDoc(v any) (bson.M, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]any:
		return m, true
	case bson.D:
		out := make(bson.M, len(m))
		for _, e := range m {
			out[e.Key] = e.Value
		}
		return out, true
	}
	return nil, false
}

// matchDoc evaluates a filter document against a stored document.
func matchDoc(doc bson.M, filter bson.M) (bool, error) {
	for key, cond := range filter {
		switch key {
		case "$and", "$or", "$nor":
			children, ok := asArray(cond)
			if !ok {
				return false, fmt.Errorf("%s expects an array of filters", key)
			}
			matched, err := matchLogical(doc, key, children)
			if err != nil || !matched {
				return false, err
			}
		case "$text", "$where":
			return false, fmt.Errorf("%s is not supported by the memory store", key)
		default:
			ok, err := fieldMatches(doc, key, cond)
			if err != nil || !ok {
				return false, err
			}
		}
	}
	return true, nil
}

func matchLogical(doc bson.M, kw string, children []any) (bool, error) {
	anyMatched := false
	for _, child := range children {
		sub, ok := asDoc(child)
		if !ok {
			return false, fmt.Errorf("%s child must be a filter document", kw)
		}
		matched, err := matchDoc(doc, sub)
		if err != nil {
			return false, err
		}
		if matched {
			anyMatched = true
		}
		switch {
		case kw == "$and" && !matched:
			return false, nil
		case kw == "$nor" && matched:
			return false, nil
		}
	}
	if kw == "$or" {
		return anyMatched, nil
	}
	return true, nil
}

// fieldMatches evaluates a per-field condition: either a literal
// (equality), a regex, or a sub-document of operators.
func fieldMatches(doc bson.M, path string, cond any) (bool, error) {
	value, exists := lookupPath(doc, path)

	if rx, ok := cond.(primitive.Regex); ok {
		return regexMatches(value, rx)
	}
	if ops, ok := operatorDoc(cond); ok {
		return opsMatch(value, exists, ops)
	}
	return valueEq(value, cond), nil
}

// operatorDoc reports whether a condition is an operator sub-document
// ({"$gt": v, ...}) rather than a literal document value.
func operatorDoc(cond any) (bson.M, bool) {
	m, ok := asDoc(cond)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return m, true
}

// valueEq applies equality with array-containment semantics: an array
// field equals v when the array itself equals v or any element does.
func valueEq(value, v any) bool {
	if equalValues(value, v) {
		return true
	}
	if arr, ok := asArray(value); ok {
		for _, elem := range arr {
			if equalValues(elem, v) {
				return true
			}
		}
	}
	return false
}

func opsMatch(value any, exists bool, ops bson.M) (bool, error) {
	for kw, operand := range ops {
		ok, err := opMatch(value, exists, kw, operand)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func opMatch(value any, exists bool, kw string, operand any) (bool, error) {
	switch kw {
	case "$eq":
		return valueEq(value, operand), nil
	case "$ne":
		return !valueEq(value, operand), nil
	case "$gt", "$gte", "$lt", "$lte":
		cmp, ok := compareValues(value, operand)
		if !ok {
			return false, nil
		}
		switch kw {
		case "$gt":
			return cmp > 0, nil
		case "$gte":
			return cmp >= 0, nil
		case "$lt":
			return cmp < 0, nil
		default:
			return cmp <= 0, nil
		}
	case "$in", "$nin":
		list, ok := asArray(operand)
		if !ok {
			return false, fmt.Errorf("%s operand must be an array", kw)
		}
		found := false
		for _, candidate := range list {
			if valueEq(value, candidate) {
				found = true
				break
			}
		}
		if kw == "$in" {
			return found, nil
		}
		return !found, nil
	case "$exists":
		want, _ := operand.(bool)
		return exists == want, nil
	case "$all":
		required, ok := asArray(operand)
		if !ok {
			return false, fmt.Errorf("$all operand must be an array")
		}
		arr, ok := asArray(value)
		if !ok {
			return false, nil
		}
		for _, want := range required {
			found := false
			for _, elem := range arr {
				if equalValues(elem, want) {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		}
		return true, nil
	case "$elemMatch":
		expr, ok := asDoc(operand)
		if !ok {
			return false, fmt.Errorf("$elemMatch operand must be a document")
		}
		arr, ok := asArray(value)
		if !ok {
			return false, nil
		}
		for _, elem := range arr {
			if elemDoc, ok := asDoc(elem); ok {
				matched, err := matchDoc(elemDoc, expr)
				if err != nil {
					return false, err
				}
				if matched {
					return true, nil
				}
				continue
			}
			if ops, ok := operatorDoc(expr); ok {
				matched, err := opsMatch(elem, true, ops)
				if err != nil {
					return false, err
				}
				if matched {
					return true, nil
				}
			}
		}
		return false, nil
	case "$size":
		arr, ok := asArray(value)
		if !ok {
			return false, nil
		}
		n, _ := toInt64(operand)
		return int64(len(arr)) == n, nil
	case "$regex":
		rx, ok := operand.(primitive.Regex)
		if !ok {
			pattern, sok := operand.(string)
			if !sok {
				return false, fmt.Errorf("$regex operand must be a regex or string")
			}
			rx = primitive.Regex{Pattern: pattern}
		}
		return regexMatches(value, rx)
	case "$mod":
		args, ok := asArray(operand)
		if !ok || len(args) != 2 {
			return false, fmt.Errorf("$mod operand must be [divisor, remainder]")
		}
		n, nok := toInt64(value)
		divisor, dok := toInt64(args[0])
		remainder, rok := toInt64(args[1])
		if !nok || !dok || !rok || divisor == 0 {
			return false, nil
		}
		return n%divisor == remainder, nil
	case "$type":
		alias, _ := operand.(string)
		return typeAlias(value) == alias, nil
	case "$not":
		if rx, ok := operand.(primitive.Regex); ok {
			matched, err := regexMatches(value, rx)
			return !matched, err
		}
		inner, ok := asDoc(operand)
		if !ok {
			return false, fmt.Errorf("$not operand must be an operator document")
		}
		matched, err := opsMatch(value, exists, inner)
		if err != nil {
			return false, err
		}
		return !matched, nil
	default:
		return false, fmt.Errorf("unsupported operator %q", kw)
	}
}

func regexMatches(value any, rx primitive.Regex) (bool, error) {
	s, ok := value.(string)
	if !ok {
		return false, nil
	}
	pattern := rx.Pattern
	if strings.Contains(rx.Options, "i") {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(s), nil
}

func typeAlias(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case int32:
		return "int"
	case int64:
		return "long"
	case float64:
		return "double"
	case bool:
		return "bool"
	case primitive.ObjectID:
		return "objectId"
	case primitive.DateTime:
		return "date"
	case bson.M, map[string]any, bson.D:
		return "object"
	case primitive.A, []any:
		return "array"
	case nil:
		return "null"
	}
	return ""
}

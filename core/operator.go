// Package core provides the building blocks of the beanie ODM.
// This file defines the closed set of query operators and the single
// exhaustive renderer that turns them into store query fragments.
package core

import (
	"fmt"
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// keyword is the store query-language keyword an Operator renders to.
// The set is closed: adding an operator means adding a constant here
// and a case to Operator.Render.
type keyword string

const (
	// comparison
	kwEq  keyword = "$eq"
	kwNe  keyword = "$ne"
	kwGt  keyword = "$gt"
	kwGte keyword = "$gte"
	kwLt  keyword = "$lt"
	kwLte keyword = "$lte"
	kwIn  keyword = "$in"
	kwNin keyword = "$nin"

	// logical
	kwAnd keyword = "$and"
	kwOr  keyword = "$or"
	kwNor keyword = "$nor"
	kwNot keyword = "$not"

	// array
	kwAll       keyword = "$all"
	kwElemMatch keyword = "$elemMatch"
	kwSize      keyword = "$size"

	// evaluation / element
	kwExists keyword = "$exists"
	kwRegex  keyword = "$regex"
	kwMod    keyword = "$mod"
	kwText   keyword = "$text"
	kwWhere  keyword = "$where"
	kwType   keyword = "$type"
)

// Criterion is anything that renders to a filter fragment of the store
// query language. Operators implement it; RawCriterion adapts plain
// documents.
type Criterion interface {
	Render() (bson.M, error)
}

// RawCriterion adapts an already-shaped filter document to the
// Criterion interface. It renders as-is, without inspection.
type RawCriterion bson.M

// Render returns the document unchanged.
func (r RawCriterion) Render() (bson.M, error) { return bson.M(r), nil }

// Operator is a composable query expression. Each Operator holds a
// field reference (or child criteria, for the logical combinators) and
// its operand; its rendered fragment is a pure function of that state.
//
// Operators are constructed inline in a query expression, rendered on
// execution, and discarded. They are never mutated after construction.
type Operator struct {
	kw       keyword
	field    Field
	value    any
	children []Criterion
}

// comparison constructors

// Eq matches documents where the field equals v.
func Eq(f Field, v any) *Operator { return &Operator{kw: kwEq, field: f, value: v} }

// Ne matches documents where the field does not equal v.
func Ne(f Field, v any) *Operator { return &Operator{kw: kwNe, field: f, value: v} }

// Gt matches documents where the field is greater than v.
func Gt(f Field, v any) *Operator { return &Operator{kw: kwGt, field: f, value: v} }

// Gte matches documents where the field is greater than or equal to v.
func Gte(f Field, v any) *Operator { return &Operator{kw: kwGte, field: f, value: v} }

// Lt matches documents where the field is less than v.
func Lt(f Field, v any) *Operator { return &Operator{kw: kwLt, field: f, value: v} }

// Lte matches documents where the field is less than or equal to v.
func Lte(f Field, v any) *Operator { return &Operator{kw: kwLte, field: f, value: v} }

// In matches documents where the field value is contained in values.
// values must be a slice or array; rendering fails otherwise.
func In(f Field, values any) *Operator { return &Operator{kw: kwIn, field: f, value: values} }

// NotIn matches documents where the field value is not contained in
// values. values must be a slice or array; rendering fails otherwise.
func NotIn(f Field, values any) *Operator { return &Operator{kw: kwNin, field: f, value: values} }

// logical constructors

// And matches documents satisfying every child criterion.
//
// And is associative: And(And(a, b), c) renders the same filter as
// And(a, b, c) because nested same-keyword operators are flattened.
func And(children ...Criterion) *Operator { return &Operator{kw: kwAnd, children: children} }

// Or matches documents satisfying at least one child criterion.
// Like And, nested Or children are flattened.
func Or(children ...Criterion) *Operator { return &Operator{kw: kwOr, children: children} }

// Nor matches documents satisfying none of the child criteria.
func Nor(children ...Criterion) *Operator { return &Operator{kw: kwNor, children: children} }

// Not negates a single field operator. The rendered fragment nests the
// negation back under the child's own path key, per the store grammar:
//
//	Not(Eq(f, v)) // {f: {"$not": {"$eq": v}}}
//
// The child must be a comparison, array, or evaluation operator bound
// to a field; logical and raw criteria are rejected at render.
func Not(child Criterion) *Operator {
	return &Operator{kw: kwNot, children: []Criterion{child}}
}

// array constructors

// All matches array fields containing every element of values.
func All(f Field, values any) *Operator { return &Operator{kw: kwAll, field: f, value: values} }

// ElemMatch matches array fields where at least one element satisfies
// expr.
func ElemMatch(f Field, expr Criterion) *Operator {
	return &Operator{kw: kwElemMatch, field: f, children: []Criterion{expr}}
}

// Size matches array fields of exactly n elements.
func Size(f Field, n int) *Operator { return &Operator{kw: kwSize, field: f, value: n} }

// evaluation / element constructors

// Exists matches documents where the field is present (b true) or
// absent (b false).
func Exists(f Field, b bool) *Operator { return &Operator{kw: kwExists, field: f, value: b} }

// Regex matches string fields against a regular expression.
func Regex(f Field, pattern, options string) *Operator {
	return &Operator{kw: kwRegex, field: f, value: primitive.Regex{Pattern: pattern, Options: options}}
}

// Mod matches numeric fields where field % divisor == remainder.
func Mod(f Field, divisor, remainder int64) *Operator {
	return &Operator{kw: kwMod, field: f, value: bson.A{divisor, remainder}}
}

// Text matches documents against the collection text index.
func Text(search string) *Operator { return &Operator{kw: kwText, value: search} }

// Where matches documents for which the given JavaScript expression
// evaluates to true. Evaluated by the store, not by this core.
func Where(expression string) *Operator { return &Operator{kw: kwWhere, value: expression} }

// Type matches documents where the field has the given BSON type alias
// (e.g. "string", "int", "objectId").
func Type(f Field, t string) *Operator { return &Operator{kw: kwType, field: f, value: t} }

// Render produces the canonical query fragment for the operator. It is
// the single exhaustive switch over the closed keyword set; the result
// depends only on the operator's held state.
func (o *Operator) Render() (bson.M, error) {
	switch o.kw {
	case kwEq, kwNe, kwGt, kwGte, kwLt, kwLte:
		return bson.M{o.field.Path(): bson.M{string(o.kw): o.value}}, nil

	case kwIn, kwNin:
		if !isSliceOrArray(o.value) {
			return nil, fmt.Errorf("%w: got %T", ErrInNeedsSlice, o.value)
		}
		return bson.M{o.field.Path(): bson.M{string(o.kw): o.value}}, nil

	case kwAnd, kwOr, kwNor:
		rendered, err := o.renderChildren()
		if err != nil {
			return nil, err
		}
		return bson.M{string(o.kw): rendered}, nil

	case kwNot:
		return o.renderNot()

	case kwAll:
		return bson.M{o.field.Path(): bson.M{"$all": o.value}}, nil

	case kwElemMatch:
		expr, err := o.children[0].Render()
		if err != nil {
			return nil, err
		}
		return bson.M{o.field.Path(): bson.M{"$elemMatch": expr}}, nil

	case kwSize:
		return bson.M{o.field.Path(): bson.M{"$size": o.value}}, nil

	case kwExists:
		return bson.M{o.field.Path(): bson.M{"$exists": o.value}}, nil

	case kwRegex:
		return bson.M{o.field.Path(): o.value}, nil

	case kwMod:
		return bson.M{o.field.Path(): bson.M{"$mod": o.value}}, nil

	case kwType:
		return bson.M{o.field.Path(): bson.M{"$type": o.value}}, nil

	case kwText:
		return bson.M{"$text": bson.M{"$search": o.value}}, nil

	case kwWhere:
		return bson.M{"$where": o.value}, nil

	default:
		return nil, fmt.Errorf("%w: unknown operator %q", ErrUnsupportedCriterion, o.kw)
	}
}

// renderChildren renders the children of a logical combinator,
// flattening nested children with the same keyword so that
// and(and(a, b), c) and and(a, b, c) produce the same filter.
func (o *Operator) renderChildren() (bson.A, error) {
	rendered := make(bson.A, 0, len(o.children))
	for _, child := range o.children {
		if op, ok := child.(*Operator); ok && op.kw == o.kw {
			nested, err := op.renderChildren()
			if err != nil {
				return nil, err
			}
			rendered = append(rendered, nested...)
			continue
		}
		fragment, err := child.Render()
		if err != nil {
			return nil, err
		}
		rendered = append(rendered, fragment)
	}
	return rendered, nil
}

// renderNot re-nests the negated child under its own path key. Only a
// field-bound operator can be negated; the grammar has no document-level
// $not.
func (o *Operator) renderNot() (bson.M, error) {
	child, ok := o.children[0].(*Operator)
	if !ok || child.field == "" {
		return nil, ErrNotNeedsFieldOperator
	}
	fragment, err := child.Render()
	if err != nil {
		return nil, err
	}
	inner, ok := fragment[child.field.Path()]
	if !ok {
		return nil, ErrNotNeedsFieldOperator
	}
	return bson.M{child.field.Path(): bson.M{"$not": inner}}, nil
}

func isSliceOrArray(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	}
	return false
}

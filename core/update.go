// Package core provides the building blocks of the beanie ODM.
// This file defines the update-operator family used by partial updates.
package core

import "go.mongodb.org/mongo-driver/bson"

// UpdateOperator is a single modification fragment of an update
// payload, e.g. {"$set": {path: value}}. Fragments with the same
// keyword are merged when an update verb assembles the final payload.
type UpdateOperator struct {
	kw   string
	spec bson.M
}

// Set assigns a value to the field.
func Set(f Field, v any) *UpdateOperator {
	return &UpdateOperator{kw: "$set", spec: bson.M{f.Path(): v}}
}

// Unset removes the field from the document.
func Unset(f Field) *UpdateOperator {
	return &UpdateOperator{kw: "$unset", spec: bson.M{f.Path(): ""}}
}

// Inc increments a numeric field by delta.
func Inc(f Field, delta any) *UpdateOperator {
	return &UpdateOperator{kw: "$inc", spec: bson.M{f.Path(): delta}}
}

// Mul multiplies a numeric field by factor.
func Mul(f Field, factor any) *UpdateOperator {
	return &UpdateOperator{kw: "$mul", spec: bson.M{f.Path(): factor}}
}

// MinOf stores v if it is less than the current field value.
func MinOf(f Field, v any) *UpdateOperator {
	return &UpdateOperator{kw: "$min", spec: bson.M{f.Path(): v}}
}

// MaxOf stores v if it is greater than the current field value.
func MaxOf(f Field, v any) *UpdateOperator {
	return &UpdateOperator{kw: "$max", spec: bson.M{f.Path(): v}}
}

// CurrentDate sets the field to the store's current date.
func CurrentDate(f Field) *UpdateOperator {
	return &UpdateOperator{kw: "$currentDate", spec: bson.M{f.Path(): true}}
}

// Rename changes the field's storage path.
func Rename(f Field, to Field) *UpdateOperator {
	return &UpdateOperator{kw: "$rename", spec: bson.M{f.Path(): to.Path()}}
}

// SetOnInsert assigns a value only when the update results in an
// insert (upsert).
func SetOnInsert(f Field, v any) *UpdateOperator {
	return &UpdateOperator{kw: "$setOnInsert", spec: bson.M{f.Path(): v}}
}

// mergeUpdates assembles the final update payload, merging fragments
// that share a keyword. Later fragments overwrite earlier ones on path
// collision, matching the overwrite policy of repeated builder calls.
func mergeUpdates(mods []*UpdateOperator) bson.M {
	update := bson.M{}
	for _, mod := range mods {
		section, ok := update[mod.kw].(bson.M)
		if !ok {
			section = bson.M{}
			update[mod.kw] = section
		}
		for path, v := range mod.spec {
			section[path] = v
		}
	}
	return update
}

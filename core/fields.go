// Package core provides the building blocks of the beanie ODM.
// This file defines the typed Field reference: a storage path that
// carries condition-building methods, so filters read close to the
// query language.
package core

// Field is a reference to a document field by its storage path, dotted
// for nesting ("tag.color"). Obtain fields from Model.F to resolve Go
// names through bson aliases, or construct them literally.
type Field string

// ID is the identity field of every document.
const ID Field = "_id"

// Path returns the storage path of the field.
func (f Field) Path() string { return string(f) }

// Child derives the field of a nested document:
//
//	Field("tag").Child("color") == Field("tag.color")
func (f Field) Child(name string) Field {
	if f == "" {
		return Field(name)
	}
	return Field(string(f) + "." + name)
}

// The expression methods below mirror the package-level operator
// constructors, so conditions can hang off the field itself:
//
//	m.F("Tag.Color").Eq("red")

func (f Field) Eq(v any) *Operator { return Eq(f, v) }
func (f Field) Ne(v any) *Operator { return Ne(f, v) }
func (f Field) Gt(v any) *Operator { return Gt(f, v) }
func (f Field) Gte(v any) *Operator { return Gte(f, v) }
func (f Field) Lt(v any) *Operator { return Lt(f, v) }
func (f Field) Lte(v any) *Operator { return Lte(f, v) }

func (f Field) In(values any) *Operator { return In(f, values) }
func (f Field) NotIn(values any) *Operator { return NotIn(f, values) }

func (f Field) All(values any) *Operator { return All(f, values) }
func (f Field) ElemMatch(expr Criterion) *Operator { return ElemMatch(f, expr) }
func (f Field) Size(n int) *Operator { return Size(f, n) }

func (f Field) Exists(b bool) *Operator { return Exists(f, b) }
func (f Field) Regex(pattern, options string) *Operator {
	return Regex(f, pattern, options)
}
func (f Field) Mod(divisor, remainder int64) *Operator {
	return Mod(f, divisor, remainder)
}
func (f Field) Type(t string) *Operator { return Type(f, t) }

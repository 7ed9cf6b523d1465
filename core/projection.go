// Package core provides the building blocks of the beanie ODM.
// This file derives per-type field tables and projection documents
// from struct tags. Derivations are pure functions of the type, so
// they are cached.
package core

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/maypok86/otter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldPath pairs a field's declared name with its storage alias, in
// declaration order.
type FieldPath struct {
	Name  string
	Alias string
}

// fieldTable is the derived schema of a document type: the mapping
// from Go field paths to storage paths, the ordered top-level field
// list, and which storage paths are required for validation.
type fieldTable struct {
	byName   map[string]Field // "Tag.Color" -> "tag.color"
	paths    []FieldPath      // top-level fields, declaration order
	required []Field          // storage paths that must be present
	types    map[Field]reflect.Type
}

// projectionCache holds derived projection documents keyed by type.
// Derivation is reflection-heavy and types are few, so a small
// capacity-bounded cache covers every registered schema.
var projectionCache = func() otter.Cache[string, bson.D] {
	c, err := otter.MustBuilder[string, bson.D](512).Build()
	if err != nil {
		panic(err)
	}
	return c
}()

// scalarLeaf reports whether a struct type is mapped as a single BSON
// value rather than a sub-document.
func scalarLeaf(t reflect.Type) bool {
	switch t {
	case reflect.TypeOf(primitive.ObjectID{}),
		reflect.TypeOf(primitive.Decimal128{}),
		reflect.TypeOf(primitive.Regex{}):
		return true
	}
	return t.PkgPath() == "time" && t.Name() == "Time"
}

// bsonName resolves the storage name of a struct field from its bson
// tag, following the driver's defaulting rule (lowercased field name
// when untagged).
func bsonName(sf reflect.StructField) (name string, omitempty, skip bool) {
	tag, ok := sf.Tag.Lookup("bson")
	if !ok {
		return strings.ToLower(sf.Name), false, false
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	if name == "-" {
		return "", false, true
	}
	if name == "" {
		name = strings.ToLower(sf.Name)
	}
	for _, p := range parts[1:] {
		if p == "omitempty" {
			omitempty = true
		}
	}
	return name, omitempty, false
}

// buildFieldTable derives the field table for a document struct type.
func buildFieldTable(t reflect.Type) (*fieldTable, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("document type must be a struct, got %s", t)
	}
	ft := &fieldTable{
		byName: make(map[string]Field),
		types:  make(map[Field]reflect.Type),
	}
	ft.walk(t, "", "", true)
	return ft, nil
}

func (ft *fieldTable) walk(t reflect.Type, goPrefix, dbPrefix string, top bool) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			tag := sf.Tag.Get("bson")
			if tag == "" || strings.HasPrefix(tag, ",") {
				// untagged or ",inline" embedded fields flatten into
				// the parent document
				ft.walk(sf.Type, goPrefix, dbPrefix, top)
				continue
			}
		}
		name, omitempty, skip := bsonName(sf)
		if skip {
			continue
		}
		goPath := goPrefix + sf.Name
		dbPath := dbPrefix + name
		ft.byName[goPath] = Field(dbPath)
		ft.types[Field(dbPath)] = sf.Type
		if top {
			ft.paths = append(ft.paths, FieldPath{Name: sf.Name, Alias: name})
		}
		if !omitempty && !nullable(sf.Type) {
			ft.required = append(ft.required, Field(dbPath))
		}
		if sf.Type.Kind() == reflect.Struct && !scalarLeaf(sf.Type) {
			ft.walk(sf.Type, goPath+".", dbPath+".", false)
		}
	}
}

// nullable reports whether the zero value of a type is indistinct from
// an absent field, making presence optional.
func nullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return true
	}
	return false
}

// resolve maps a Go field path to its storage Field. Unknown names are
// a programming error and panic, matching the contract of typed field
// access.
func (ft *fieldTable) resolve(goPath string) Field {
	f, ok := ft.byName[goPath]
	if !ok {
		panic(fmt.Sprintf("unknown schema field %q", goPath))
	}
	return f
}

// FieldPathsOf returns the ordered (name, storage alias) pairs of a
// schema type's top-level fields.
func FieldPathsOf[T any]() ([]FieldPath, error) {
	ft, err := buildFieldTable(typeOf[T]())
	if err != nil {
		return nil, err
	}
	return ft.paths, nil
}

// projectionOf derives the inclusion projection for a schema type:
// one {alias: 1} entry per top-level field, in declaration order.
func projectionOf(t reflect.Type) (bson.D, error) {
	key := t.PkgPath() + "." + t.String()
	if doc, ok := projectionCache.Get(key); ok {
		return doc, nil
	}
	ft, err := buildFieldTable(t)
	if err != nil {
		return nil, err
	}
	doc := make(bson.D, 0, len(ft.paths))
	for _, p := range ft.paths {
		doc = append(doc, bson.E{Key: p.Alias, Value: 1})
	}
	projectionCache.Set(key, doc)
	return doc, nil
}

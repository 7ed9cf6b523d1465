// Package core provides the building blocks of the beanie ODM.
// This file defines the storage-binding registry: the explicit,
// populate-once map from document type to its store handle, field
// table, validator and hooks.
package core

import (
	"fmt"
	"reflect"
	"sync"
)

// binding holds everything the core needs to operate on one document
// type. Bindings are created by Register and read-only afterwards.
type binding struct {
	store     Store
	fields    *fieldTable
	validator Validator
	hooks     hookSet
}

var registry = struct {
	mu       sync.RWMutex
	bindings map[reflect.Type]*binding
}{bindings: make(map[reflect.Type]*binding)}

// Option configures the binding of a document type at registration.
type Option[T any] func(*binding)

// WithValidator replaces the default decode-based validator for the
// type. The validator is consulted by InspectCollection and Decode.
func WithValidator[T any](v Validator) Option[T] {
	return func(b *binding) { b.validator = v }
}

// Register binds the document type T to its store handle. It must be
// called exactly once per type, at startup, before any operation on T;
// a second call returns ErrAlreadyInitialized.
//
// Example:
//
//	err := core.Register[User](mongo.NewStore(coll))
func Register[T any, PT Doc[T]](store Store, opts ...Option[T]) error {
	t := typeOf[T]()

	fields, err := buildFieldTable(t)
	if err != nil {
		return err
	}
	b := &binding{
		store:     store,
		fields:    fields,
		validator: defaultValidator[T]{fields: fields},
		hooks:     hookSet{},
	}
	for _, opt := range opts {
		opt(b)
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, exists := registry.bindings[t]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyInitialized, t)
	}
	registry.bindings[t] = b
	return nil
}

// MustRegister is Register, panicking on error. Intended for startup
// wiring where a bad binding is unrecoverable.
func MustRegister[T any, PT Doc[T]](store Store, opts ...Option[T]) {
	if err := Register[T, PT](store, opts...); err != nil {
		panic(err)
	}
}

// ModelOf resolves the Model for a registered document type. It
// returns ErrNotInitialized when Register was never called for T.
func ModelOf[T any]() (*Model[T], error) {
	b := bindingOf(typeOf[T]())
	if b == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, typeOf[T]())
	}
	return &Model[T]{binding: b}, nil
}

// MustModelOf is ModelOf, panicking when the type is not registered.
func MustModelOf[T any]() *Model[T] {
	m, err := ModelOf[T]()
	if err != nil {
		panic(err)
	}
	return m
}

func bindingOf(t reflect.Type) *binding {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return registry.bindings[t]
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

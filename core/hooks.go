// Package core provides the building blocks of the beanie ODM.
// This file defines lifecycle hooks that run custom logic around
// persistence operations. Hooks are registered per document type at
// registration time and run synchronously, in registration order.
package core

// Hook identifies a lifecycle point around a persistence operation.
type Hook string

const (
	// BeforeInsert runs before a document is inserted.
	BeforeInsert Hook = "before:insert"
	// AfterInsert runs after a document was inserted and its identity
	// assigned.
	AfterInsert Hook = "after:insert"
	// BeforeReplace runs before a full-document replace.
	BeforeReplace Hook = "before:replace"
	// AfterReplace runs after a full-document replace.
	AfterReplace Hook = "after:replace"
	// BeforeUpdate runs before a partial update of a document.
	BeforeUpdate Hook = "before:update"
	// AfterUpdate runs after a partial update, once local state was
	// resynced from the store.
	AfterUpdate Hook = "after:update"
	// BeforeDelete runs before a document is deleted.
	BeforeDelete Hook = "before:delete"
	// AfterDelete runs after a document was deleted.
	AfterDelete Hook = "after:delete"
	// AfterFind runs for every document materialized by a find.
	AfterFind Hook = "after:find"
)

// hookSet stores the registered hook functions, type-erased. The typed
// On option is the only writer.
type hookSet map[Hook][]func(any) error

// On registers a lifecycle hook for the document type being bound.
//
// Example:
//
//	core.Register[User](store, core.On(core.BeforeInsert, func(u *User) error {
//		u.CreatedAt = time.Now()
//		return nil
//	}))
func On[T any](hook Hook, fn func(*T) error) Option[T] {
	return func(b *binding) {
		b.hooks[hook] = append(b.hooks[hook], func(doc any) error {
			return fn(doc.(*T))
		})
	}
}

// run executes all hooks registered for the given lifecycle point,
// stopping at the first error.
func (h hookSet) run(hook Hook, doc any) error {
	for _, fn := range h[hook] {
		if err := fn(doc); err != nil {
			return err
		}
	}
	return nil
}

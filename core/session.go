// Package core provides the building blocks of the beanie ODM.
// This file defines the context helpers that carry a Session across a
// logical unit of work.
package core

import "context"

// sessionKey is an unexported context key type, preventing collisions
// with other context values.
type sessionKey struct{}

// ContextWithSession returns a context carrying the session. Every
// core operation executed with that context propagates the session to
// its store calls, unless the query object was given an explicit
// session via WithSession, which takes precedence.
//
// Example:
//
//	sctx := core.ContextWithSession(ctx, sess)
//	_ = model.Insert(sctx, &user)
func ContextWithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFrom extracts the session carried by the context, or nil.
func SessionFrom(ctx context.Context) Session {
	return ctx.Value(sessionKey{})
}

// resolveSession picks the session a store call receives: an explicit
// one if set, else whatever the context carries.
func resolveSession(ctx context.Context, explicit Session) Session {
	if explicit != nil {
		return explicit
	}
	return SessionFrom(ctx)
}

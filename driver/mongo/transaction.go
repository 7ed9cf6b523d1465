// Package driver provides the MongoDB store backend for the beanie
// ODM core. This file offers an ergonomic transaction wrapper; the
// core itself never creates, commits, or aborts sessions.
package driver

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/paul-nameless/beanie/core"
)

// WithTransaction runs fn inside a store-level transaction. The
// session is carried on the context fn receives, so every core
// operation inside fn participates automatically. fn returning an
// error aborts the transaction; otherwise it is committed.
//
// Example:
//
//	err := driver.WithTransaction(ctx, client, func(ctx context.Context) error {
//		if err := users.Insert(ctx, &u); err != nil {
//			return err
//		}
//		return users.ReplaceMany(ctx, batch)
//	})
func WithTransaction(ctx context.Context, client *mongo.Client, fn func(ctx context.Context) error) error {
	sess, err := client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	if err := sess.StartTransaction(); err != nil {
		return err
	}
	sctx := core.ContextWithSession(ctx, sess)
	if err := fn(sctx); err != nil {
		_ = sess.AbortTransaction(ctx)
		return err
	}
	return sess.CommitTransaction(ctx)
}

// Package core provides the building blocks of the beanie ODM.
// This file defines the operation middleware chain, which lets
// cross-cutting concerns (logging, auditing, tracing) wrap every
// store-facing execution.
package core

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Op names the kind of operation flowing through the middleware chain.
type Op string

const (
	OpInsert    Op = "insert"
	OpFind      Op = "find"
	OpCount     Op = "count"
	OpUpdate    Op = "update"
	OpReplace   Op = "replace"
	OpDelete    Op = "delete"
	OpAggregate Op = "aggregate"
	OpInspect   Op = "inspect"
)

// OpInfo describes the operation a middleware is wrapping.
type OpInfo struct {
	Op         Op
	Collection string
}

// Handler is the function a middleware wraps: the execution of one
// store-facing operation.
type Handler func(ctx context.Context, info OpInfo) error

// Middleware decorates a Handler with additional logic. Middlewares
// registered with Use apply to every operation of every model.
type Middleware func(next Handler) Handler

var middlewareChain []Middleware

// Use registers a global middleware. Registration happens at startup;
// middlewares run in registration order, outermost first.
func Use(mw Middleware) {
	middlewareChain = append(middlewareChain, mw)
}

// dispatch runs exec through the registered middleware chain.
func dispatch(ctx context.Context, info OpInfo, exec func() error) error {
	h := func(ctx context.Context, info OpInfo) error { return exec() }
	for i := len(middlewareChain) - 1; i >= 0; i-- {
		h = middlewareChain[i](h)
	}
	return h(ctx, info)
}

// LogMiddleware logs every operation with its collection, duration and
// outcome. A nil logger falls back to a tint handler on stderr.
//
// Example:
//
//	core.Use(core.LogMiddleware(nil))
func LogMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.New(tint.NewHandler(os.Stderr, nil))
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, info OpInfo) error {
			start := time.Now()
			err := next(ctx, info)
			attrs := []any{
				"op", string(info.Op),
				"collection", info.Collection,
				"duration", time.Since(start),
			}
			if err != nil {
				attrs = append(attrs, "err", err)
				logger.ErrorContext(ctx, "operation failed", attrs...)
				return err
			}
			logger.DebugContext(ctx, "operation completed", attrs...)
			return nil
		}
	}
}

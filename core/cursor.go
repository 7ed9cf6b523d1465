// Package core provides the building blocks of the beanie ODM.
// This file defines Cursor, the lazy typed sequence wrapping a store
// result stream.
package core

import (
	"context"
	"iter"
)

// Cursor is a lazy, finite sequence of typed results over a fixed
// request snapshot. Nothing is sent to the store until a terminal
// method runs.
//
// Restartability: every call to All, ToList or First opens a fresh
// store stream over the same snapshot, so the Cursor itself can be
// reused; each sequence returned by All is single-pass.
type Cursor[R any] struct {
	// open starts a store stream for the snapshot. limitOne narrows
	// the request to a single document for First.
	open func(ctx context.Context, limitOne bool) (RawCursor, error)
	// post runs for every decoded element (after-find hooks); may be
	// nil.
	post func(*R) error
}

// All returns the sequence of results. Iteration stops early when the
// yield func returns false; the underlying stream is closed either
// way. Errors surface through the second element of the pair; a
// sequence ends after its first error.
func (c *Cursor[R]) All(ctx context.Context) iter.Seq2[*R, error] {
	return c.stream(ctx, false)
}

// ToList drains the sequence into an ordered slice.
func (c *Cursor[R]) ToList(ctx context.Context) ([]*R, error) {
	var list []*R
	for r, err := range c.stream(ctx, false) {
		if err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	return list, nil
}

// First fetches a single element, limiting the request to one
// document. It returns nil, nil when the stream yields nothing.
func (c *Cursor[R]) First(ctx context.Context) (*R, error) {
	for r, err := range c.stream(ctx, true) {
		return r, err
	}
	return nil, nil
}

func (c *Cursor[R]) stream(ctx context.Context, limitOne bool) iter.Seq2[*R, error] {
	return func(yield func(*R, error) bool) {
		rc, err := c.open(ctx, limitOne)
		if err != nil {
			yield(nil, err)
			return
		}
		defer rc.Close(ctx)

		for rc.Next(ctx) {
			out := new(R)
			if err := rc.Decode(out); err != nil {
				yield(nil, err)
				return
			}
			if c.post != nil {
				if err := c.post(out); err != nil {
					yield(nil, err)
					return
				}
			}
			if !yield(out, nil) {
				return
			}
		}
		if err := rc.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Package dbqueue serializes every storage operation in the process through a
// single drain goroutine, so the one SQLite handle is never used by two
// callers at once. The queue is the sole owner of the *sql.DB; no other
// component holds a reference to the raw handle.
package dbqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/lastword/internal/logging"
)

// ErrClosed is returned for operations submitted after Close.
var ErrClosed = errors.New("dbqueue: closed")

// Op is a storage operation. It receives exclusive access to the database
// handle for the duration of the call and may open transactions on it.
type Op func(ctx context.Context, db *sql.DB) error

type submission struct {
	ctx context.Context
	op  Op
	res chan error
}

// Queue funnels storage operations through one worker goroutine.
//
// Ordering is FIFO: operations run in submission order. Strict one-at-a-time
// execution is the invariant callers rely on; an error (or panic) in one
// operation is delivered only to the caller that submitted it and never stops
// the drain loop.
type Queue struct {
	db     *sql.DB
	logger logging.Logger

	ops  chan submission
	quit chan struct{}
	done chan struct{}

	closeOnce sync.Once
}

// New constructs a Queue owning db and starts its drain goroutine.
func New(db *sql.DB, logger logging.Logger) *Queue {
	q := &Queue{
		db:     db,
		logger: logger,
		ops:    make(chan submission),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go q.drain()
	return q
}

func (q *Queue) drain() {
	defer close(q.done)
	for {
		select {
		case sub := <-q.ops:
			sub.res <- q.runOne(sub.ctx, sub.op)
		case <-q.quit:
			return
		}
	}
}

func (q *Queue) runOne(ctx context.Context, op Op) (err error) {
	defer func() {
		if p := recover(); p != nil {
			q.logger.Error(ctx, "panic in storage operation", "panic", p)
			err = fmt.Errorf("storage operation panicked: %v", p)
		}
	}()
	return op(ctx, q.db)
}

// Do submits op and blocks until the drain goroutine has executed it,
// returning that operation's error. If ctx is cancelled before the operation
// is picked up, Do returns ctx.Err() and the operation never runs. Once an
// operation has started, Do waits for it to finish.
func (q *Queue) Do(ctx context.Context, op Op) error {
	sub := submission{ctx: ctx, op: op, res: make(chan error, 1)}

	select {
	case q.ops <- sub:
		return <-sub.res
	case <-ctx.Done():
		return ctx.Err()
	case <-q.quit:
		return ErrClosed
	}
}

// Close stops the queue. Operations already started run to completion;
// subsequent Do calls return ErrClosed. Close does not close the database
// handle; that stays with the caller that opened it.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.quit) })
	<-q.done
}

// Package ctxsync contains context-aware synchronization primitives.
package ctxsync

import (
	"context"
	"slices"
	"sync"
)

// Executor runs tasks one at a time in submission order.
//
// While buffering, queued tasks are held until [Executor.ProcessBuffer] is
// called; only tasks pushed with [Executor.PushUnbuffered] run meanwhile.
type Executor struct {
	mu        sync.Mutex
	running   bool
	buffering bool
	queue     []*ticket
}

type ticket struct {
	unbuffered bool
	granted    chan struct{}
}

// NewExecutor returns an Executor. If buffering is true, tasks wait for
// [Executor.ProcessBuffer].
func NewExecutor(buffering bool) *Executor {
	return &Executor{buffering: buffering}
}

// Push waits for its turn and runs task. If ctx is done before the task
// starts, the task is dropped and the context error is returned.
func (e *Executor) Push(ctx context.Context, task func(context.Context) error) error {
	return e.run(ctx, false, task)
}

// PushUnbuffered is like Push, but the task skips the buffer and only
// waits for the task currently running and other unbuffered tasks.
func (e *Executor) PushUnbuffered(ctx context.Context, task func(context.Context) error) error {
	return e.run(ctx, true, task)
}

// ProcessBuffer releases the buffered tasks, which run in submission order.
func (e *Executor) ProcessBuffer() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffering = false
	if !e.running {
		e.dispatch()
	}
}

func (e *Executor) run(ctx context.Context, unbuffered bool, task func(context.Context) error) error {
	if err := e.acquire(ctx, unbuffered); err != nil {
		return err
	}
	defer e.release()
	return task(ctx)
}

func (e *Executor) acquire(ctx context.Context, unbuffered bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	if !e.running && e.next(unbuffered) {
		e.running = true
		e.mu.Unlock()
		return nil
	}
	t := &ticket{unbuffered: unbuffered, granted: make(chan struct{})}
	e.queue = append(e.queue, t)
	e.mu.Unlock()

	select {
	case <-t.granted:
		return nil
	case <-ctx.Done():
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if i := slices.Index(e.queue, t); i >= 0 {
		e.queue = slices.Delete(e.queue, i, i+1)
		return ctx.Err()
	}
	// granted concurrently with the cancellation
	e.dispatch()
	return ctx.Err()
}

// next reports whether a new ticket of the given kind may run right away.
func (e *Executor) next(unbuffered bool) bool {
	if unbuffered {
		return !slices.ContainsFunc(e.queue, func(t *ticket) bool { return t.unbuffered })
	}
	return !e.buffering && len(e.queue) == 0
}

func (e *Executor) release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dispatch()
}

// dispatch hands the turn to the next eligible ticket. e.mu must be held.
func (e *Executor) dispatch() {
	i := slices.IndexFunc(e.queue, func(t *ticket) bool {
		return t.unbuffered || !e.buffering
	})
	if i < 0 {
		e.running = false
		return
	}
	t := e.queue[i]
	e.queue = slices.Delete(e.queue, i, i+1)
	e.running = true
	close(t.granted)
}

package ctxsync

import (
	"context"
	"sync"
)

// Signal is a broadcast-only rendezvous: every goroutine blocked in
// [Signal.Wait] is released by the next [Signal.Broadcast]. A Broadcast with
// no waiters is lost.
//
// The zero value is not usable, create instances with [NewSignal].
type Signal struct {
	mu     sync.Mutex
	notify chan struct{}
}

// NewSignal returns a ready to use Signal.
func NewSignal() *Signal {
	return &Signal{notify: make(chan struct{})}
}

// Wait blocks until the next Broadcast or until ctx is done.
func (s *Signal) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	ch := s.notify
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}

// Broadcast wakes every waiting goroutine.
func (s *Signal) Broadcast() {
	s.mu.Lock()
	close(s.notify)
	s.notify = make(chan struct{})
	s.mu.Unlock()
}

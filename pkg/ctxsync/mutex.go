package ctxsync

import (
	"context"
)

// NewMutex creates a new instance of Mutex.
func NewMutex() *Mutex {
	return &Mutex{
		held: make(chan struct{}, 1),
	}
}

// A Mutex is a mutual exclusion lock whose acquisition can be abandoned when
// a context is done.
type Mutex struct {
	held chan struct{}
}

// Lock locks m, waiting as long as needed.
func (m *Mutex) Lock() {
	_ = m.LockWithContext(context.Background())
}

// LockWithContext locks m unless ctx is done first.
func (m *Mutex) LockWithContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case m.held <- struct{}{}:
		return nil
	}
}

// Unlock unlocks m. Unlocking an unlocked Mutex panics.
func (m *Mutex) Unlock() {
	select {
	case <-m.held:
	default:
		panic("ctxsync: unlock of unlocked mutex")
	}
}

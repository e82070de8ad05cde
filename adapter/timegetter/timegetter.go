// Package timegetter contains [domain.TimeGetter] implementations.
package timegetter

import (
	"sync"
	"time"

	"github.com/ramiroaisen/nedb-types/domain"
)

// TimeGetter implements [domain.TimeGetter] with the system clock.
type TimeGetter struct{}

// NewTimeGetter returns a new implementation of domain.TimeGetter.
func NewTimeGetter() domain.TimeGetter {
	return &TimeGetter{}
}

// GetTime implements [domain.TimeGetter].
func (t *TimeGetter) GetTime() time.Time {
	return time.Now()
}

// Fixed is a [domain.TimeGetter] that only moves when told to.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed returns a clock stopped at t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t}
}

// GetTime implements [domain.TimeGetter].
func (f *Fixed) GetTime() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set moves the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

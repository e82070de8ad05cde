package ctxsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ExecutorTestSuite struct {
	suite.Suite
}

// waitQueued blocks until n tickets are queued.
func (s *ExecutorTestSuite) waitQueued(e *Executor, n int) {
	s.Eventually(func() bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return len(e.queue) == n
	}, time.Second, time.Millisecond)
}

func (s *ExecutorTestSuite) TestRunsInOrder() {
	e := NewExecutor(false)
	ctx := context.Background()

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	block := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = e.Push(ctx, func(context.Context) error { <-block; return nil })
	}()
	s.Eventually(func() bool { e.mu.Lock(); defer e.mu.Unlock(); return e.running }, time.Second, time.Millisecond)

	for n := range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.Push(ctx, func(context.Context) error {
				mu.Lock()
				order = append(order, n)
				mu.Unlock()
				return nil
			})
		}()
		s.waitQueued(e, n+1)
	}
	close(block)
	wg.Wait()
	s.Equal([]int{0, 1, 2, 3, 4}, order)
}

func (s *ExecutorTestSuite) TestReturnsTaskError() {
	e := NewExecutor(false)
	expected := errors.New("task failed")
	err := e.Push(context.Background(), func(context.Context) error { return expected })
	s.ErrorIs(err, expected)
	s.NoError(e.Push(context.Background(), func(context.Context) error { return nil }))
}

func (s *ExecutorTestSuite) TestBuffering() {
	e := NewExecutor(true)
	ctx := context.Background()

	done := make(chan string, 3)
	go func() {
		_ = e.Push(ctx, func(context.Context) error { done <- "buffered"; return nil })
	}()
	s.waitQueued(e, 1)

	// unbuffered tasks run while the buffer is held
	s.NoError(e.PushUnbuffered(ctx, func(context.Context) error { done <- "load"; return nil }))
	s.Equal("load", <-done)
	select {
	case <-done:
		s.Fail("buffered task ran before ProcessBuffer")
	case <-time.After(10 * time.Millisecond):
	}

	e.ProcessBuffer()
	s.Equal("buffered", <-done)

	// once released, tasks run right away
	s.NoError(e.Push(ctx, func(context.Context) error { done <- "direct"; return nil }))
	s.Equal("direct", <-done)
}

func (s *ExecutorTestSuite) TestCancelWhileQueued() {
	e := NewExecutor(true)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error)
	go func() {
		errCh <- e.Push(ctx, func(context.Context) error {
			s.Fail("cancelled task ran")
			return nil
		})
	}()
	s.waitQueued(e, 1)
	cancel()
	s.ErrorIs(<-errCh, context.Canceled)
	s.waitQueued(e, 0)

	e.ProcessBuffer()
	s.NoError(e.Push(context.Background(), func(context.Context) error { return nil }))
}

func (s *ExecutorTestSuite) TestCancelledBeforePush() {
	e := NewExecutor(false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.ErrorIs(e.Push(ctx, func(context.Context) error { return nil }), context.Canceled)
}

func TestExecutorTestSuite(t *testing.T) {
	suite.Run(t, new(ExecutorTestSuite))
}

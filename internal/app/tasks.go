package app

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/moodlog/internal/logger"
)

// Tasks runs process-wide background work. Jobs get a context that is only
// cancelled when Shutdown gives up waiting, never by the screen that started
// them.
type Tasks struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *log.Logger

	mu     sync.Mutex
	closed bool
}

func NewTasks() *Tasks {
	ctx, cancel := context.WithCancel(context.Background())
	return &Tasks{ctx: ctx, cancel: cancel, log: logger.Component("tasks")}
}

// Go starts fn in its own goroutine. After Shutdown it runs nothing and
// returns false.
func (t *Tasks) Go(fn func(ctx context.Context)) bool {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		t.log.Warn("Task dropped after shutdown")
		return false
	}
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				t.log.Error("Background task panicked", "panic", r)
			}
		}()
		fn(t.ctx)
	}()
	return true
}

// Shutdown stops accepting work and waits for running tasks. If ctx ends
// first the tasks are cancelled and ctx's error is returned.
func (t *Tasks) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.cancel()
		return nil
	case <-ctx.Done():
		t.cancel()
		<-done
		return ctx.Err()
	}
}

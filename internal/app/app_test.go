package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestLifecycleNotifiesOnChange(t *testing.T) {
	l := NewLifecycle(true)
	var calls []bool
	cancel := l.OnChange(func(fg bool) { calls = append(calls, fg) })

	l.SetForeground(true)
	l.SetForeground(false)
	l.SetForeground(false)
	l.SetForeground(true)

	if len(calls) != 2 || calls[0] != false || calls[1] != true {
		t.Errorf("calls = %v, want [false true]", calls)
	}

	cancel()
	l.SetForeground(false)
	if len(calls) != 2 {
		t.Error("cancelled subscriber still notified")
	}
	if l.Foreground() {
		t.Error("Foreground() = true after SetForeground(false)")
	}
}

func TestLifecycleCallbackMayResubscribe(t *testing.T) {
	l := NewLifecycle(false)
	var inner int32
	l.OnChange(func(bool) {
		l.OnChange(func(bool) { atomic.AddInt32(&inner, 1) })
	})
	l.SetForeground(true)
	l.SetForeground(false)
	if atomic.LoadInt32(&inner) != 1 {
		t.Errorf("inner subscriber calls = %d, want 1", inner)
	}
}

func TestTasksOutliveCaller(t *testing.T) {
	tasks := NewTasks()
	var ran int32

	tasks.Go(func(ctx context.Context) {
		time.Sleep(20 * time.Millisecond)
		if ctx.Err() == nil {
			atomic.StoreInt32(&ran, 1)
		}
	})

	if err := tasks.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if atomic.LoadInt32(&ran) != 1 {
		t.Error("task did not complete with a live context")
	}

	if tasks.Go(func(context.Context) { atomic.StoreInt32(&ran, 2) }) {
		t.Error("Go() after shutdown = true, want false")
	}
	time.Sleep(10 * time.Millisecond)
	if atomic.LoadInt32(&ran) == 2 {
		t.Error("task ran after shutdown")
	}
}

func TestTasksShutdownTimeoutCancels(t *testing.T) {
	tasks := NewTasks()
	cancelled := make(chan struct{})
	tasks.Go(func(ctx context.Context) {
		<-ctx.Done()
		close(cancelled)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := tasks.Shutdown(ctx); err != context.DeadlineExceeded {
		t.Errorf("Shutdown() error = %v, want DeadlineExceeded", err)
	}
	select {
	case <-cancelled:
	default:
		t.Error("task context was not cancelled")
	}
}

func TestTasksRecoverPanics(t *testing.T) {
	tasks := NewTasks()
	tasks.Go(func(context.Context) { panic("boom") })
	if err := tasks.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

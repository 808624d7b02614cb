package app

import "sync"

// Lifecycle tracks whether the user is looking at the app. The TUI drives it
// from terminal focus events; headless commands stay in the foreground.
type Lifecycle struct {
	mu   sync.Mutex
	fg   bool
	subs map[int]func(bool)
	next int
}

func NewLifecycle(foreground bool) *Lifecycle {
	return &Lifecycle{fg: foreground, subs: make(map[int]func(bool))}
}

func (l *Lifecycle) Foreground() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fg
}

// SetForeground records a transition and notifies subscribers. Repeating the
// current state is a no-op.
func (l *Lifecycle) SetForeground(fg bool) {
	l.mu.Lock()
	if l.fg == fg {
		l.mu.Unlock()
		return
	}
	l.fg = fg
	fns := make([]func(bool), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(fg)
	}
}

// OnChange registers fn for future transitions and returns its cancel func.
func (l *Lifecycle) OnChange(fn func(foreground bool)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.next
	l.next++
	l.subs[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subs, id)
	}
}

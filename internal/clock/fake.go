package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced Clock. Timers fire only when Advance moves
// the current time to or past their deadline.
type Fake struct {
	mu      sync.Mutex
	cond    *sync.Cond
	now     time.Time
	waiters []*fakeTimer
}

type fakeTimer struct {
	deadline time.Time
	ch       chan time.Time
	armed    bool
}

// NewFake returns a Fake clock set to start.
func NewFake(start time.Time) *Fake {
	f := &Fake{now: start}
	f.cond = sync.NewCond(&f.mu)
	return f
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) NewTimer(d time.Duration) *Timer {
	f.mu.Lock()
	defer f.mu.Unlock()

	ft := &fakeTimer{ch: make(chan time.Time, 1)}
	f.arm(ft, d)
	return &Timer{
		C: ft.ch,
		stopFunc: func() bool {
			f.mu.Lock()
			defer f.mu.Unlock()
			was := ft.armed
			f.disarm(ft)
			return was
		},
		resetFunc: func(d time.Duration) bool {
			f.mu.Lock()
			defer f.mu.Unlock()
			was := ft.armed
			f.disarm(ft)
			f.arm(ft, d)
			return was
		},
	}
}

// Advance moves the clock forward by d, firing every timer whose deadline
// falls within the window in deadline order.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.now = f.now.Add(d)
	sort.SliceStable(f.waiters, func(i, j int) bool {
		return f.waiters[i].deadline.Before(f.waiters[j].deadline)
	})
	remaining := f.waiters[:0]
	for _, w := range f.waiters {
		if w.deadline.After(f.now) {
			remaining = append(remaining, w)
			continue
		}
		w.armed = false
		select {
		case w.ch <- w.deadline:
		default:
		}
	}
	f.waiters = remaining
	f.cond.Broadcast()
}

// PendingTimers reports the number of armed timers.
func (f *Fake) PendingTimers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.waiters)
}

// WaitForTimers blocks until at least n timers are armed.
func (f *Fake) WaitForTimers(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.waiters) < n {
		f.cond.Wait()
	}
}

func (f *Fake) arm(ft *fakeTimer, d time.Duration) {
	ft.deadline = f.now.Add(d)
	ft.armed = true
	f.waiters = append(f.waiters, ft)
	f.cond.Broadcast()
}

func (f *Fake) disarm(ft *fakeTimer) {
	ft.armed = false
	for i, w := range f.waiters {
		if w == ft {
			f.waiters = append(f.waiters[:i], f.waiters[i+1:]...)
			break
		}
	}
	select {
	case <-ft.ch:
	default:
	}
	f.cond.Broadcast()
}

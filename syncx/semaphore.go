package syncx

import (
	"sync"
	"time"
)

// Semaphore is a counting semaphore supporting a deadline on Acquire
// and a Close that wakes every blocked waiter as interrupted, grounded
// directly on the original kernel's Semaphore_Deinit, which wakes any
// non-empty wait queue with WAKEUP_REASON_INTERRUPTED.
type Semaphore struct {
	mu      sync.Mutex
	value   int
	closed  bool
	waiters []*semWaiter
}

type semWaiter struct {
	permits int
	woken   chan struct{}
	ok      bool // true if granted, false if interrupted
}

// NewSemaphore returns a Semaphore initialized with value permits
// available.
func NewSemaphore(value int) *Semaphore {
	return &Semaphore{value: value}
}

// TryAcquire attempts to take permits without blocking. Reports whether
// it succeeded.
func (s *Semaphore) TryAcquire(permits int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if s.value >= permits {
		s.value -= permits
		return true
	}
	return false
}

// Acquire blocks until permits are available, the deadline passes, or
// the semaphore is closed. ok is false if the wait was interrupted by
// Close or by the deadline passing; true if permits were granted.
//
// A zero deadline waits forever.
func (s *Semaphore) Acquire(permits int, deadline time.Time) (ok bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if s.value >= permits {
		s.value -= permits
		s.mu.Unlock()
		return true
	}
	if !deadline.IsZero() && !deadline.After(time.Now()) {
		s.mu.Unlock()
		return false
	}

	w := &semWaiter{permits: permits, woken: make(chan struct{}, 1)}
	s.waiters = append(s.waiters, w)
	s.mu.Unlock()

	if deadline.IsZero() {
		<-w.woken
		return w.ok
	}

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case <-w.woken:
		return w.ok
	case <-timer.C:
		s.mu.Lock()
		for i, o := range s.waiters {
			if o == w {
				s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
				s.mu.Unlock()
				return false
			}
		}
		// already being woken concurrently with the timer firing.
		s.mu.Unlock()
		<-w.woken
		return w.ok
	}
}

// Release returns permits to the semaphore, waking any waiters whose
// requested permit count can now be satisfied, in FIFO order.
func (s *Semaphore) Release(permits int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value += permits
	for len(s.waiters) > 0 {
		w := s.waiters[0]
		if s.value < w.permits {
			break
		}
		s.value -= w.permits
		s.waiters = s.waiters[1:]
		w.ok = true
		w.woken <- struct{}{}
	}
}

// Close wakes every currently blocked waiter with ok=false (interrupted)
// and marks the semaphore closed: all subsequent Acquire/TryAcquire
// calls fail immediately. Idempotent.
func (s *Semaphore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, w := range s.waiters {
		w.ok = false
		w.woken <- struct{}{}
	}
	s.waiters = nil
}

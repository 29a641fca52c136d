// Copyright 2026 The go-dispatchqueue Authors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package syncx provides the synchronization primitives the dispatch
// queue is built from: an owner-tracking lock, a deadline-aware
// condition variable, and a counting semaphore with wake-all-on-close
// semantics. None of these are exact matches for anything in the
// standard library — sync.Mutex has no owner introspection, sync.Cond
// has no deadline parameter, and there is no stdlib counting semaphore —
// so each wraps stdlib primitives rather than replacing them outright.
package syncx

import (
	"sync"
	"sync/atomic"
)

// Lock is a non-recursive mutual-exclusion lock that additionally
// tracks its current owner, for use in assertions (e.g. "this code runs
// with the queue lock held"). Grounded on the original kernel's ULock,
// whose owner_vpid field serves exactly this purpose.
type Lock struct {
	mu    sync.Mutex
	owner atomic.Int64 // goroutine id of the current holder, 0 if unlocked
}

// Lock acquires the lock and records the calling goroutine as its owner.
func (l *Lock) Lock(goroutineID uint64) {
	l.mu.Lock()
	l.owner.Store(int64(goroutineID))
}

// Unlock clears ownership and releases the lock.
func (l *Lock) Unlock() {
	l.owner.Store(0)
	l.mu.Unlock()
}

// Owner returns the goroutine id of the current holder, or 0 if the
// lock is not held. Intended for assertions only; the result is stale
// the instant it is read unless the caller already holds the lock.
func (l *Lock) Owner() uint64 {
	return uint64(l.owner.Load())
}

// HeldBy reports whether the calling goroutine (identified by
// goroutineID) currently holds the lock. Intended for assertions.
func (l *Lock) HeldBy(goroutineID uint64) bool {
	return l.owner.Load() == int64(goroutineID)
}

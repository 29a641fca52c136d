// Copyright 2026 The go-dispatchqueue Authors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package vproc

import "sync"

// AbortSignal reports whether, and why, an associated user-mode call has
// been asked to abort. It follows the W3C AbortController/AbortSignal
// shape the teacher's event loop uses for its own cancellation story,
// adapted here to back Worker.AbortUserCall: queue termination aborts
// the currently-running user closure on every occupied lane by calling
// Abort on each lane's controller (spec.md §5, "Cancellation").
type AbortSignal struct {
	mu       sync.RWMutex
	aborted  bool
	reason   any
	handlers []func(reason any)
}

func newAbortSignal() *AbortSignal {
	return &AbortSignal{}
}

// Aborted reports whether Abort has been called.
func (s *AbortSignal) Aborted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aborted
}

// Reason returns the value passed to Abort, or nil if not yet aborted.
func (s *AbortSignal) Reason() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reason
}

// OnAbort registers fn to run when Abort is called. If the signal is
// already aborted, fn runs immediately (synchronously, before OnAbort
// returns).
func (s *AbortSignal) OnAbort(fn func(reason any)) {
	s.mu.Lock()
	if s.aborted {
		reason := s.reason
		s.mu.Unlock()
		fn(reason)
		return
	}
	s.handlers = append(s.handlers, fn)
	s.mu.Unlock()
}

func (s *AbortSignal) abort(reason any) {
	s.mu.Lock()
	if s.aborted {
		s.mu.Unlock()
		return
	}
	s.aborted = true
	s.reason = reason
	handlers := s.handlers
	s.handlers = nil
	s.mu.Unlock()
	for _, h := range handlers {
		h(reason)
	}
}

// AbortController owns an AbortSignal and lets its holder trigger it.
// Each worker lane gets its own controller, created fresh whenever a
// user-mode call begins, so a stale abort from a previous closure can
// never leak into the next one.
type AbortController struct {
	signal *AbortSignal
}

// NewAbortController returns a fresh, un-aborted controller.
func NewAbortController() *AbortController {
	return &AbortController{signal: newAbortSignal()}
}

// Signal returns the controller's AbortSignal.
func (c *AbortController) Signal() *AbortSignal {
	return c.signal
}

// Abort marks the signal aborted with the given reason and runs every
// registered handler. Idempotent: only the first call has any effect.
func (c *AbortController) Abort(reason any) {
	c.signal.abort(reason)
}

// ErrAborted is a sentinel reason value used when no more specific
// reason is available.
var ErrAborted any = "aborted"

// Copyright 2026 The go-dispatchqueue Authors
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package dispatchqueue

import (
	"time"

	"github.com/joeycumines/go-dispatchqueue/clock"
)

// config holds the resolved, internal configuration for a Queue,
// assembled by applying every supplied Option over a set of defaults.
type config struct {
	logger *Logger
	clock  *clock.Source
	// ownsClock is true when this config created its own clock.Source
	// (as opposed to one supplied via WithClock), so Queue knows whether
	// it is responsible for Stop()ing it on termination.
	ownsClock bool
	// idleProbeInterval is how long an over-minimum worker waits for new
	// work before becoming eligible to relinquish its lane. Defaults to
	// IdleProbeInterval; overridable so tests can exercise the
	// concurrency-shrink path without a real ~2s sleep, the same way the
	// teacher's catrate swaps timeNow/timeNewTicker package vars for
	// deterministic tests.
	idleProbeInterval time.Duration
}

// Option configures a Queue at construction time. The functional-options
// shape mirrors the teacher's own eventloop.LoopOption: an interface
// wrapping an apply function, so options remain easy to compose and to
// add without breaking Create's signature.
type Option interface {
	apply(*config) error
}

type optionFunc struct {
	fn func(*config) error
}

func (o *optionFunc) apply(c *config) error { return o.fn(c) }

// WithLogger overrides the Queue's structured logger. The default is a
// logger that discards all output.
func WithLogger(l *Logger) Option {
	return &optionFunc{func(c *config) error {
		if l != nil {
			c.logger = l
		}
		return nil
	}}
}

// WithClock supplies a pre-built clock.Source (e.g. one returned by
// clock.NewManual, for deterministic tests) instead of the default
// ticker-driven one Create would otherwise start and own.
func WithClock(s *clock.Source) Option {
	return &optionFunc{func(c *config) error {
		if s != nil {
			c.clock = s
			c.ownsClock = false
		}
		return nil
	}}
}

// WithIdleProbeInterval overrides how long an over-minimum worker waits
// idle before becoming eligible to relinquish its lane.
func WithIdleProbeInterval(d time.Duration) Option {
	return &optionFunc{func(c *config) error {
		if d > 0 {
			c.idleProbeInterval = d
		}
		return nil
	}}
}

// resolveConfig applies opts over a set of defaults. The default
// clock.Source, which owns a background ticker goroutine (clock/source.go),
// is constructed only if no option supplied one: building it eagerly and
// letting WithClock overwrite c.clock would leak that goroutine, since
// nothing would ever Stop() a clock nobody kept a reference to.
func resolveConfig(opts []Option) (*config, error) {
	c := &config{
		logger:            defaultLogger(),
		idleProbeInterval: time.Duration(IdleProbeInterval),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(c); err != nil {
			return nil, err
		}
	}
	if c.clock == nil {
		c.clock = clock.NewSource(clock.DefaultNanosPerQuantum)
		c.ownsClock = true
	}
	return c, nil
}

package clock

import (
	"sync/atomic"
	"time"
)

// DefaultNanosPerQuantum is the simulated quantum-timer interrupt period.
// It is small enough that idle-probe and rearm tests complete quickly,
// while remaining large enough that the background ticker goroutine does
// not dominate a CPU core.
const DefaultNanosPerQuantum = int64(1_000_000) // 1ms

// Source is a readable, advanceable monotonic clock. Reads are
// lock-free: a seqlock-style odd/even sequence counter lets Now retry
// if it observes a quantum transition mid-read, mirroring the original
// chipset-elapsed-time read loop, without ever blocking a reader behind
// a writer.
//
// The zero value is not usable; construct with NewSource or NewManual.
type Source struct {
	nanosPerQuantum int64

	seq     atomic.Uint64 // odd while a writer is mid-update
	seconds atomic.Int64
	nanos   atomic.Int64
	quantum atomic.Uint64

	hostNow  func() time.Time
	anchor   time.Time
	stopCh   chan struct{}
	stopOnce func()
}

// NewSource starts a quantum-driven clock whose interrupt period is
// nanosPerQuantum nanoseconds, using the host's wall clock to drive the
// simulated interrupt. Callers must call Stop when done with it.
func NewSource(nanosPerQuantum int64) *Source {
	if nanosPerQuantum <= 0 {
		nanosPerQuantum = DefaultNanosPerQuantum
	}
	s := &Source{
		nanosPerQuantum: nanosPerQuantum,
		hostNow:         time.Now,
		anchor:          time.Now(),
		stopCh:          make(chan struct{}),
	}
	var stopped atomic.Bool
	s.stopOnce = func() {
		if stopped.CompareAndSwap(false, true) {
			close(s.stopCh)
		}
	}
	go s.tick()
	return s
}

// tick simulates the quantum-timer interrupt: once per quantum period,
// it calls OnInterrupt. This stands in for the real hardware interrupt
// handler, which is explicitly out of scope for this subsystem.
func (s *Source) tick() {
	period := time.Duration(s.nanosPerQuantum)
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.OnInterrupt()
		}
	}
}

// Stop halts the background quantum-tick goroutine. Safe to call more
// than once.
func (s *Source) Stop() {
	if s.stopOnce != nil {
		s.stopOnce()
	}
}

// OnInterrupt advances current_time by one quantum and increments the
// quantum counter, as the original clock interrupt handler does.
// Exported so a caller with its own interrupt source (e.g. a manual test
// clock, see NewManual) can drive the clock explicitly instead of
// relying on the background goroutine.
func (s *Source) OnInterrupt() {
	s.seq.Add(1) // now odd: readers must retry
	sec := s.seconds.Load()
	ns := s.nanos.Load() + s.nanosPerQuantum
	for ns >= NanosPerSecond {
		ns -= NanosPerSecond
		sec++
	}
	s.seconds.Store(sec)
	s.nanos.Store(ns)
	s.quantum.Add(1)
	s.seq.Add(1) // now even: read is consistent again
}

// Now returns the current monotonic time. It is lock-free: it retries
// the read if a concurrent OnInterrupt is observed mid-flight, exactly
// as the original's seqlock-style retry loop does.
func (s *Source) Now() Time {
	for {
		seq1 := s.seq.Load()
		if seq1&1 != 0 {
			continue // writer in progress
		}
		sec := s.seconds.Load()
		ns := s.nanos.Load()
		seq2 := s.seq.Load()
		if seq1 == seq2 {
			return canonicalize(sec, ns)
		}
		// quantum transitioned mid-read; retry.
	}
}

// QuantumCount returns the number of quantum interrupts observed so far.
func (s *Source) QuantumCount() uint64 { return s.quantum.Load() }

// ToQuantums converts interval to a quantum count using this source's
// quantum period.
func (s *Source) ToQuantums(interval Time, rounding Rounding) Quantums {
	return ToQuantums(interval, s.nanosPerQuantum, rounding)
}

// FromQuantums converts a quantum count back into a time interval using
// this source's quantum period.
func (s *Source) FromQuantums(q Quantums) Time {
	return FromQuantums(q, s.nanosPerQuantum)
}

// NewManual returns a Source with no background ticker: time advances
// only when the test calls OnInterrupt (or Advance) explicitly. This is
// the swappable deterministic clock for tests (supplied to a Queue via
// WithClock). It does not shorten a Queue's idle probe, which waits on
// the host wall clock; WithIdleProbeInterval does that. It mirrors the teacher's own
// package-level timeNow/timeNewTicker override idiom in
// catrate/limiter.go, adapted here as an explicit constructor rather
// than a package var so independent tests never interfere with one
// another.
func NewManual(nanosPerQuantum int64) *Source {
	if nanosPerQuantum <= 0 {
		nanosPerQuantum = DefaultNanosPerQuantum
	}
	return &Source{
		nanosPerQuantum: nanosPerQuantum,
		stopCh:          make(chan struct{}),
		stopOnce:        func() {},
	}
}

// Advance fires n quantum interrupts in sequence. Only meaningful on a
// manual Source (one returned by NewManual); calling it on a
// ticker-driven Source simply races the background goroutine.
func (s *Source) Advance(n uint64) {
	for i := uint64(0); i < n; i++ {
		s.OnInterrupt()
	}
}

// AdvanceDuration advances the manual clock by approximately d, rounding
// up to a whole number of quanta so the clock never under-advances.
func (s *Source) AdvanceDuration(d time.Duration) {
	q := ToQuantums(Make(0, int64(d)), s.nanosPerQuantum, AwayFromZero)
	if q > 0 {
		s.Advance(uint64(q))
	}
}

// Package clock provides the monotonic time base used throughout
// dispatchqueue: a saturating (seconds, nanoseconds) pair, conversions
// to and from scheduler quanta, and a seqlock-style readable clock
// driven by a simulated quantum-timer interrupt.
package clock

import (
	"fmt"
	"math"
)

// NanosPerSecond is the number of nanoseconds in one second, used to
// keep Time in canonical form.
const NanosPerSecond = 1_000_000_000

// Time is a monotonic timestamp: a (seconds, nanoseconds) pair in
// canonical form (0 <= Nanoseconds < NanosPerSecond). Overflow on Add
// saturates to PositiveInfinity; underflow on Sub saturates to
// NegativeInfinity.
type Time struct {
	Seconds     int64
	Nanoseconds int32
}

// Zero is the zero point of the monotonic clock.
var Zero = Time{}

// PositiveInfinity is a sentinel later than any representable finite Time.
var PositiveInfinity = Time{Seconds: math.MaxInt64}

// NegativeInfinity is a sentinel earlier than any representable finite Time.
var NegativeInfinity = Time{Seconds: math.MinInt64}

// IsPositiveInfinity reports whether t is the positive-infinity sentinel.
func (t Time) IsPositiveInfinity() bool { return t == PositiveInfinity }

// IsNegativeInfinity reports whether t is the negative-infinity sentinel.
func (t Time) IsNegativeInfinity() bool { return t == NegativeInfinity }

// IsZero reports whether t is the zero point.
func (t Time) IsZero() bool { return t == Zero }

// canonicalize normalizes nanoseconds into [0, NanosPerSecond), carrying
// whole seconds, and saturates to the infinity sentinels on overflow.
func canonicalize(seconds int64, nanos int64) Time {
	if seconds >= math.MaxInt64 {
		return PositiveInfinity
	}
	if seconds <= math.MinInt64 {
		return NegativeInfinity
	}
	for nanos >= NanosPerSecond {
		nanos -= NanosPerSecond
		if seconds == math.MaxInt64 {
			return PositiveInfinity
		}
		seconds++
	}
	for nanos < 0 {
		nanos += NanosPerSecond
		if seconds == math.MinInt64 {
			return NegativeInfinity
		}
		seconds--
	}
	return Time{Seconds: seconds, Nanoseconds: int32(nanos)}
}

// Make builds a canonical Time from a possibly-denormalized
// (seconds, nanoseconds) pair.
func Make(seconds int64, nanoseconds int64) Time {
	return canonicalize(seconds, nanoseconds)
}

// FromSeconds builds a Time representing a whole number of seconds.
func FromSeconds(seconds int64) Time { return Time{Seconds: seconds} }

// FromMillis builds a Time representing a duration in milliseconds.
func FromMillis(millis int64) Time {
	return canonicalize(0, millis*1_000_000)
}

// FromMicros builds a Time representing a duration in microseconds.
func FromMicros(micros int64) Time {
	return canonicalize(0, micros*1_000)
}

// Add returns t + d, saturating on overflow.
func (t Time) Add(d Time) Time {
	if t.IsPositiveInfinity() || d.IsPositiveInfinity() {
		if t.IsNegativeInfinity() || d.IsNegativeInfinity() {
			return Zero // infinities of opposing sign cancel to zero, as in the original.
		}
		return PositiveInfinity
	}
	if t.IsNegativeInfinity() || d.IsNegativeInfinity() {
		return NegativeInfinity
	}
	if d.Seconds > 0 && t.Seconds > math.MaxInt64-d.Seconds {
		return PositiveInfinity
	}
	if d.Seconds < 0 && t.Seconds < math.MinInt64-d.Seconds {
		return NegativeInfinity
	}
	return canonicalize(t.Seconds+d.Seconds, int64(t.Nanoseconds)+int64(d.Nanoseconds))
}

// Sub returns t - d, saturating on overflow.
func (t Time) Sub(d Time) Time {
	switch {
	case d.IsPositiveInfinity():
		return t.Add(NegativeInfinity)
	case d.IsNegativeInfinity():
		return t.Add(PositiveInfinity)
	}
	return t.Add(Time{Seconds: -d.Seconds, Nanoseconds: -d.Nanoseconds})
}

// Compare returns -1, 0 or 1 as t is less than, equal to, or greater
// than other.
func (t Time) Compare(other Time) int {
	switch {
	case t.Seconds < other.Seconds:
		return -1
	case t.Seconds > other.Seconds:
		return 1
	case t.Nanoseconds < other.Nanoseconds:
		return -1
	case t.Nanoseconds > other.Nanoseconds:
		return 1
	default:
		return 0
	}
}

// Less reports whether t is strictly before other.
func (t Time) Less(other Time) bool { return t.Compare(other) < 0 }

// LessEqual reports whether t is before or equal to other.
func (t Time) LessEqual(other Time) bool { return t.Compare(other) <= 0 }

// Greater reports whether t is strictly after other.
func (t Time) Greater(other Time) bool { return t.Compare(other) > 0 }

// GreaterEqual reports whether t is after or equal to other.
func (t Time) GreaterEqual(other Time) bool { return t.Compare(other) >= 0 }

func (t Time) String() string {
	switch {
	case t.IsPositiveInfinity():
		return "+Inf"
	case t.IsNegativeInfinity():
		return "-Inf"
	default:
		return fmt.Sprintf("%d.%09ds", t.Seconds, t.Nanoseconds)
	}
}

// Rounding selects how ToQuantums rounds a TimeInterval that does not
// land exactly on a quantum boundary.
type Rounding int

const (
	// TowardsZero truncates: the result is the number of whole quanta
	// that fit inside the interval.
	TowardsZero Rounding = iota
	// AwayFromZero rounds up when any remainder is lost, so a caller
	// requesting "at least this long" never gets fewer quanta than asked.
	AwayFromZero
)

// Quantums is a count of scheduler quantum ticks.
type Quantums int64

// ToQuantums converts a time interval (as a duration expressed as a
// Time relative to zero) into a quantum count, given the duration of a
// single quantum in nanoseconds.
func ToQuantums(interval Time, nanosPerQuantum int64, rounding Rounding) Quantums {
	totalNanos := interval.Seconds*NanosPerSecond + int64(interval.Nanoseconds)
	q := totalNanos / nanosPerQuantum
	r := totalNanos % nanosPerQuantum
	if rounding == AwayFromZero && r != 0 {
		q++
	}
	return Quantums(q)
}

// FromQuantums converts a quantum count back into a time interval,
// given the duration of a single quantum in nanoseconds.
func FromQuantums(q Quantums, nanosPerQuantum int64) Time {
	totalNanos := int64(q) * nanosPerQuantum
	return canonicalize(totalNanos/NanosPerSecond, totalNanos%NanosPerSecond)
}

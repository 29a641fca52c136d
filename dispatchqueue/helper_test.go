package dispatchqueue

import (
	"runtime"
	"testing"
	"time"
)

// checkNumGoroutines returns a func to be called after a test body (via
// defer) that polls runtime.NumGoroutine until it returns to (at most)
// its pre-test baseline, or fails the test if it never does within
// timeout. Mirrors the same-named helper referenced by the teacher's
// own microbatch_test.go, reconstructed here since every test in this
// package spins up pool workers that must clean up completely.
func checkNumGoroutines(timeout time.Duration) func(t *testing.T) {
	before := runtime.NumGoroutine()
	deadline := time.Now().Add(timeout)
	return func(t *testing.T) {
		t.Helper()
		for {
			after := runtime.NumGoroutine()
			if after <= before {
				return
			}
			if time.Now().After(deadline) {
				t.Errorf(`leaked goroutines: before=%d after=%d`, before, after)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}
}

package vproc

import (
	"runtime"
	"sync"
)

// GoroutineID exposes getGoroutineID for packages layered on top of
// vproc (e.g. dispatchqueue's own CurrentQueue() registry) that need
// the same goroutine-identity trick for their own per-goroutine lookup
// tables, without duplicating the runtime.Stack parsing.
func GoroutineID() uint64 { return getGoroutineID() }

// getGoroutineID parses the numeric goroutine id out of a runtime.Stack
// dump. This is the same trick the teacher's event loop uses
// (loop.go's getGoroutineID) to answer "is the caller running on my
// goroutine?" without a dedicated goroutine-local-storage facility,
// which Go does not provide. It is used here to back a registry keyed
// by goroutine id rather than a single comparison, since a pool may
// have many concurrently-running worker goroutines instead of one loop
// goroutine.
// GoroutineID exposes getGoroutineID for packages layered on top of
// vproc (e.g. dispatchqueue's own currentQueue() registry) that need
// the same goroutine-identity trick for their own per-goroutine lookup
// tables, without duplicating the runtime.Stack parsing.
func GoroutineID() uint64 { return getGoroutineID() }

func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}

// registry maps goroutine ids to the Worker currently executing on
// them. Entries are added when a worker's entry function starts running
// and removed when it returns, so Current() only ever answers for a
// goroutine actually inside EntryFunc.
var registry sync.Map // map[uint64]Worker

func registerCurrent(w Worker) {
	registry.Store(getGoroutineID(), w)
}

func unregisterCurrent() {
	registry.Delete(getGoroutineID())
}

func currentWorker() Worker {
	v, ok := registry.Load(getGoroutineID())
	if !ok {
		return nil
	}
	return v.(Worker)
}

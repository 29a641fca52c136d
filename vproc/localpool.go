package vproc

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/slices"
)

// LocalPool is an in-process, goroutine-backed implementation of Pool.
// It stands in for the kernel's real virtual-processor scheduler: each
// Worker is a long-lived goroutine parked on a trigger channel between
// assignments, reused across Acquire calls instead of being spawned
// fresh every time. Idle workers beyond maxWorkers are evicted, oldest
// first, the same "sort a small slice with a documented invariant"
// idiom the teacher's catrate.parseRates uses for its retention-window
// computation.
type LocalPool struct {
	maxWorkers int

	mu   sync.Mutex
	idle []*localWorker
	total int
}

// NewLocalPool returns a Pool that retains at most maxWorkers idle
// goroutines for reuse. maxWorkers <= 0 is treated as 1.
func NewLocalPool(maxWorkers int) *LocalPool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &LocalPool{maxWorkers: maxWorkers}
}

type pendingWork struct {
	entry   EntryFunc
	context any
}

type localWorker struct {
	pool    *LocalPool
	trigger chan struct{}

	mu      sync.Mutex
	pending pendingWork
	queue   any
	lane    int

	ctrlMu sync.Mutex
	ctrl   *AbortController

	idleAt time.Time
}

// Acquire returns a worker (reused from the idle freelist when
// possible) configured to run entry with context once Resume is called.
// kernelStackSize, userStackSize and priority are accepted for interface
// compatibility with spec.md §6's pool contract; a goroutine has no
// fixed stack size to configure, and priority is ignored, since the Go
// runtime scheduler does not expose goroutine priorities.
func (p *LocalPool) Acquire(entry EntryFunc, context any, kernelStackSize, userStackSize int, priority int) (Worker, error) {
	if entry == nil {
		return nil, fmt.Errorf("vproc: entry must not be nil")
	}

	p.mu.Lock()
	var w *localWorker
	if n := len(p.idle); n > 0 {
		w = p.idle[n-1]
		p.idle = p.idle[:n-1]
	} else {
		w = &localWorker{pool: p, trigger: make(chan struct{}, 1)}
		p.total++
		go w.run()
	}
	p.mu.Unlock()

	w.mu.Lock()
	w.pending = pendingWork{entry: entry, context: context}
	w.mu.Unlock()

	return w, nil
}

// Relinquish returns w to the pool's idle freelist, or discards it if
// the pool already holds maxWorkers idle workers. Per spec.md §4.3 this
// is called only by the worker's own exit path, i.e. synchronously from
// within the goroutine that is about to return from its EntryFunc.
func (p *LocalPool) Relinquish(worker Worker) {
	w, ok := worker.(*localWorker)
	if !ok {
		return
	}
	w.mu.Lock()
	w.queue = nil
	w.lane = -1
	w.mu.Unlock()
	w.idleAt = time.Now()

	p.mu.Lock()
	p.idle = append(p.idle, w)
	slices.SortFunc(p.idle, func(a, b *localWorker) int {
		switch {
		case a.idleAt.Before(b.idleAt):
			return -1
		case a.idleAt.After(b.idleAt):
			return 1
		default:
			return 0
		}
	})
	for len(p.idle) > p.maxWorkers {
		evict := p.idle[0]
		p.idle = p.idle[1:]
		p.total--
		close(evict.trigger)
	}
	p.mu.Unlock()
}

func (w *localWorker) run() {
	for range w.trigger {
		w.mu.Lock()
		work := w.pending
		w.mu.Unlock()
		registerCurrent(w)
		work.entry(w, work.context)
		unregisterCurrent()
	}
}

func (w *localWorker) SetDispatchQueueBinding(queue any, laneIndex int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queue = queue
	w.lane = laneIndex
}

func (w *localWorker) DispatchQueueBinding() (queue any, laneIndex int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.queue == nil {
		return nil, -1
	}
	return w.queue, w.lane
}

func (w *localWorker) Resume(nowait bool) error {
	if nowait {
		select {
		case w.trigger <- struct{}{}:
		default:
		}
		return nil
	}
	w.trigger <- struct{}{}
	return nil
}

// CurrentAbortSignal implements Worker.CurrentAbortSignal.
func (w *localWorker) CurrentAbortSignal() *AbortSignal {
	w.ctrlMu.Lock()
	defer w.ctrlMu.Unlock()
	if w.ctrl == nil {
		return nil
	}
	return w.ctrl.Signal()
}

func (w *localWorker) AbortUserCall() {
	w.ctrlMu.Lock()
	ctrl := w.ctrl
	w.ctrlMu.Unlock()
	if ctrl != nil {
		ctrl.Abort(ErrAborted)
	}
}

func (w *localWorker) CallAsUser(fn func(context any), context any) {
	ctrl := NewAbortController()
	w.ctrlMu.Lock()
	w.ctrl = ctrl
	w.ctrlMu.Unlock()

	defer func() {
		w.ctrlMu.Lock()
		if w.ctrl == ctrl {
			w.ctrl = nil
		}
		w.ctrlMu.Unlock()
	}()

	fn(context)
}

// Package vproc models the virtual-processor pool the dispatch queue
// draws worker contexts from. The dispatch queue package depends only
// on the Pool/Worker interfaces in this file; NewLocalPool supplies an
// in-process, goroutine-backed implementation, standing in for the
// kernel's real virtual-processor scheduler (which spec.md places out
// of scope: real preemptive multitasking below this package).
package vproc

// EntryFunc is the function a worker runs for the lifetime of its
// attachment to a queue. It receives the context value the caller
// passed to Acquire and the Worker itself, so it can call CallAsUser,
// CurrentAbortSignal, etc. on its own behalf.
type EntryFunc func(w Worker, context any)

// Pool hands out and reclaims Worker contexts. Acquire/Relinquish may be
// called concurrently from many queues; a Pool implementation is
// responsible for its own internal synchronization.
type Pool interface {
	// Acquire asks the pool for a worker configured to run entry with
	// the given context, stack sizes (hints; a goroutine-backed pool
	// may ignore them), and scheduling priority. The worker is created
	// suspended; call Resume to start it running entry.
	Acquire(entry EntryFunc, context any, kernelStackSize, userStackSize int, priority int) (Worker, error)
	// Relinquish returns a worker to the pool. Called only from the
	// worker's own exit path, per spec.md §4.3.
	Relinquish(w Worker)
}

// Worker is a single virtual-processor execution context, bound to at
// most one queue lane at a time.
type Worker interface {
	// SetDispatchQueueBinding records which queue and lane this worker
	// is currently servicing, so DispatchQueueBinding can report them
	// later.
	SetDispatchQueueBinding(queue any, laneIndex int)
	// DispatchQueueBinding returns the most recently bound queue and
	// lane index, or (nil, -1) if unbound.
	DispatchQueueBinding() (queue any, laneIndex int)
	// Resume starts (or resumes) the worker's entry function running.
	// If nowait is true, Resume does not block waiting for the worker
	// to reach a scheduling point.
	Resume(nowait bool) error
	// AbortUserCall requests that any in-progress CallAsUser on this
	// worker unwind at its next kernel re-entry point. It is
	// asynchronous: it does not stop user code synchronously at an
	// arbitrary instruction, matching spec.md's Design Notes on the
	// abort mechanism's observable effect.
	AbortUserCall()
	// CallAsUser transitions into the user execution domain to run fn
	// with the given context, returning once fn returns. An abort
	// requested via AbortUserCall does not make it return early; fn
	// observes the abort through CurrentAbortSignal.
	CallAsUser(fn func(context any), context any)
	// CurrentAbortSignal returns the AbortSignal for whatever CallAsUser
	// invocation is currently in flight on this worker, or nil if none.
	// A user-mode closure calls Current() to get its own Worker, then
	// this, to observe cancellation cooperatively instead of relying
	// solely on unwinding at the next kernel re-entry point.
	CurrentAbortSignal() *AbortSignal
}

// Current returns the Worker bound to the calling goroutine, or nil if
// the calling goroutine is not a pool worker. It is implemented by a
// process-wide goroutine-id-keyed registry (see current.go), the same
// technique the teacher's event loop uses to answer "is this goroutine
// the loop goroutine?" generalized from one loop to many concurrency
// lanes.
func Current() Worker {
	return currentWorker()
}

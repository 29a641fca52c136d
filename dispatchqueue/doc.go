// Package dispatchqueue implements a cooperative, virtual-processor-backed
// work scheduler: application closures run asynchronously, synchronously,
// or at a future monotonic deadline, with support for periodic timers,
// bounded per-queue object reuse, and coordinated multi-phase termination.
//
// # Architecture
//
// A Queue owns an immediate-work FIFO and a deadline-ordered timer list,
// both guarded by a single coarse lock. Workers are borrowed from a
// [github.com/joeycumines/go-dispatchqueue/vproc.Pool] on demand, bounded
// between the queue's minConcurrency and maxConcurrency, and each runs
// [Queue]'s main loop until the queue terminates or the worker decides it
// is no longer needed (see the concurrency-growth hysteresis in
// [Queue.DispatchAsync] and friends).
//
// # Thread Safety
//
// Every exported Queue method is safe for concurrent use. Work items,
// timers, and completion signalers are not safe for concurrent use from
// outside the queue that owns them once enqueued.
//
// # Execution Model
//
// Closures run with the queue lock released, so a closure may itself
// call back into the same queue (recursive dispatch) without deadlocking.
// Closures may additionally run in the user execution domain, via the
// DispatchUserAsync/DispatchUserSync/DispatchUserAsyncAfter family (or a
// WorkItem/Timer created with DomainUser), entered through the pool
// worker's CallAsUser bridge, which can be aborted (unwound at its next
// kernel re-entry point) by queue termination.
//
// # Usage
//
//	pool := vproc.NewLocalPool(8)
//	q, err := dispatchqueue.Create(pool, dispatchqueue.Params{
//		MinConcurrency: 0,
//		MaxConcurrency: 1,
//		QoS:            dispatchqueue.Utility,
//	})
//	if err != nil {
//		// handle err
//	}
//	defer q.Destroy(context.Background())
//
//	q.DispatchAsync(func(context any) {
//		// runs on a queue worker
//	}, nil)
//
// # Error Types
//
// Errors returned by this package carry a [Kind] ([OutOfMemory],
// [InvalidArgument], [Busy], [Interrupted]) and support [errors.Is]
// against the package-level sentinel values of the same names.
package dispatchqueue

// Tuning constants. These are fixed defaults, not configuration — see
// spec.md §6 (preserved verbatim in SPEC_FULL.md §8): changing any of
// these is a behavioral redesign, not a parameter a caller can set.
const (
	// CacheCapacity bounds each of the three per-queue reuse caches
	// (work items, timers, completion signalers).
	CacheCapacity = 8

	// ConcurrencyGrowThreshold is the items-queued-count above which
	// (condition (c) of §4.3) a queue will acquire another worker even
	// though one is already available, to absorb sustained load.
	ConcurrencyGrowThreshold = 4

	// IdleProbeInterval is how long an idle worker above minConcurrency
	// waits before deciding it may relinquish its lane.
	IdleProbeInterval = 2_000_000_000 // 2s, in nanoseconds

	// PrioritiesPerClass is the number of distinct intra-class
	// priorities (the range −6…+5).
	PrioritiesPerClass = 12

	// MinIntraClassPriority and MaxIntraClassPriority bound the
	// intra-class priority range accepted by Create.
	MinIntraClassPriority = -6
	MaxIntraClassPriority = 5

	// MaxConcurrencyLimit is the largest maxConcurrency Create accepts.
	MaxConcurrencyLimit = 127
)

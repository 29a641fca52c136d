package dispatchqueue

import (
	"container/list"
	"sync/atomic"

	"github.com/joeycumines/go-dispatchqueue/clock"
	"github.com/joeycumines/go-dispatchqueue/syncx"
)

// ExecutionDomain selects whether a closure runs directly (kernel) or
// through the pool worker's call-as-user bridge (user), per spec.md's
// Work Item attributes.
type ExecutionDomain int

const (
	// DomainKernel runs the closure by direct invocation.
	DomainKernel ExecutionDomain = iota
	// DomainUser runs the closure through vproc.Worker.CallAsUser, so
	// queue termination can abort it.
	DomainUser
)

// itemKind discriminates the tagged-variant payload a workItem carries.
// Per spec.md's Design Notes, this replaces the original's
// single-inheritance "Timer is-a WorkItem" scheme: deadline/interval are
// simply unused (zero) for kindImmediate.
type itemKind int

const (
	kindImmediate itemKind = iota
	kindOneShotTimer
	kindRepeatingTimer
)

// Closure is the function signature dispatched by this package. context
// is the opaque value supplied at enqueue time.
type Closure func(context any)

// workItem is the single underlying representation for both immediate
// work and timers (kindImmediate vs kind{OneShot,Repeating}Timer). The
// public WorkItem and Timer types are thin wrappers over a *workItem,
// so the worker loop's recycle step (spec.md §4.4 step 5) is a total
// switch over itemKind rather than a type switch over unrelated types.
type workItem struct {
	fn      Closure
	context any
	domain  ExecutionDomain
	kind    itemKind

	cancelled       atomic.Bool
	beingDispatched atomic.Bool
	ownedByQueue    bool // true: returns to a queue cache on recycle; false: caller-owned

	// signaler is a weak back-pointer used exactly once, between enqueue
	// and the post-execution signal point of a synchronous dispatch. It
	// is never dereferenced after signaling (spec.md §9).
	signaler *CompletionSignaler

	deadline clock.Time // kindOneShotTimer / kindRepeatingTimer only
	interval clock.Time // kindRepeatingTimer only

	elem *list.Element // set while linked into a queue's list, else nil
}

// WorkItem is a caller- or queue-owned unit of work. The zero value is
// not usable; obtain one from WorkItemCreate or implicitly via
// DispatchAsync/DispatchSync.
type WorkItem struct {
	item *workItem
}

// Cancel sets the item's cancelled flag. The flag is monotonic
// (set-only) and is only consulted by the scheduler when rearming a
// repeating timer; closures are expected to observe it themselves.
func (w *WorkItem) Cancel() {
	w.item.cancelled.Store(true)
}

// IsCancelled reports whether Cancel has been called.
func (w *WorkItem) IsCancelled() bool {
	return w.item.cancelled.Load()
}

// Timer is an extended WorkItem carrying a deadline and, for repeating
// timers, a positive interval.
type Timer struct {
	WorkItem
}

// Deadline returns the timer's next (or, once fired, most recent)
// scheduled firing time.
func (t *Timer) Deadline() clock.Time { return t.item.deadline }

// Interval returns the timer's repeat interval, or the zero Time for a
// one-shot timer.
func (t *Timer) Interval() clock.Time { return t.item.interval }

// IsRepeating reports whether the timer rearms itself after firing.
func (t *Timer) IsRepeating() bool { return t.item.kind == kindRepeatingTimer }

// WorkItemCreate allocates a new caller-owned WorkItem running fn with
// context in the given execution domain. Caller-owned items bypass the
// queue's reuse cache entirely (spec.md §4.2, Dispatch Work-Item
// Sync/Async) and must eventually be released with WorkItemDestroy.
// domain selects whether fn runs directly (DomainKernel) or through the
// pool worker's call-as-user bridge (DomainUser), where queue
// termination can abort it (spec.md §5).
func WorkItemCreate(fn Closure, context any, domain ExecutionDomain) *WorkItem {
	return &WorkItem{item: &workItem{fn: fn, context: context, domain: domain, kind: kindImmediate, ownedByQueue: false}}
}

// WorkItemDestroy releases a caller-owned WorkItem. It is an error to
// destroy an item that is currently attached to a queue (is-being-
// dispatched); remove it first.
func WorkItemDestroy(w *WorkItem) error {
	if w == nil || w.item == nil {
		return newError(InvalidArgument, "WorkItemDestroy", nil)
	}
	if w.item.beingDispatched.Load() {
		return newError(Busy, "WorkItemDestroy", nil)
	}
	w.item.fn = nil
	w.item.context = nil
	return nil
}

// WorkItemCancel sets w's cancelled flag.
func WorkItemCancel(w *WorkItem) { w.Cancel() }

// WorkItemIsCancelled reports whether w has been cancelled.
func WorkItemIsCancelled(w *WorkItem) bool { return w.IsCancelled() }

// TimerCreate allocates a new caller-owned Timer. interval of
// clock.Zero marks a one-shot timer; any positive interval marks a
// repeating timer that rearms itself after each firing. domain selects
// fn's execution domain, exactly as WorkItemCreate's.
func TimerCreate(deadline, interval clock.Time, fn Closure, context any, domain ExecutionDomain) *Timer {
	kind := kindOneShotTimer
	if interval.Greater(clock.Zero) {
		kind = kindRepeatingTimer
	}
	return &Timer{WorkItem{item: &workItem{
		fn: fn, context: context, domain: domain, kind: kind, ownedByQueue: false,
		deadline: deadline, interval: interval,
	}}}
}

// TimerDestroy releases a caller-owned Timer.
func TimerDestroy(t *Timer) error { return WorkItemDestroy(&t.WorkItem) }

// TimerCancel sets t's cancelled flag. The scheduler only consults it
// when deciding whether to rearm a repeating timer after it fires.
func TimerCancel(t *Timer) { t.Cancel() }

// TimerIsCancelled reports whether t has been cancelled.
func TimerIsCancelled(t *Timer) bool { return t.IsCancelled() }

// CompletionSignaler is a single-use synchronization object that blocks
// a synchronous-dispatch caller until its closure returns or is
// interrupted. Drawn from a per-queue cache (bounded at CacheCapacity)
// and returned after exactly one use.
type CompletionSignaler struct {
	sem         *syncx.Semaphore
	interrupted bool
}

func newCompletionSignaler() *CompletionSignaler {
	return &CompletionSignaler{sem: syncx.NewSemaphore(0)}
}

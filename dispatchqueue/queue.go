package dispatchqueue

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-dispatchqueue/clock"
	"github.com/joeycumines/go-dispatchqueue/syncx"
	"github.com/joeycumines/go-dispatchqueue/vproc"
)

// QoS is a quality-of-service class, coarser than the intra-class
// Priority, used together to compute a single worker-priority integer
// when acquiring workers from the pool (spec.md §4.3).
type QoS int

const (
	Idle QoS = iota
	Background
	Utility
	Interactive
	Realtime
)

func (q QoS) String() string {
	switch q {
	case Idle:
		return "Idle"
	case Background:
		return "Background"
	case Utility:
		return "Utility"
	case Interactive:
		return "Interactive"
	case Realtime:
		return "Realtime"
	default:
		return "Unknown"
	}
}

// reservedLow is the additive term spec.md §4.3's priority formula
// names but does not assign a concrete value to in this distillation.
// Kept at 0: nothing in this module reserves a sub-Idle priority band.
const reservedLow = 0

// State is the Queue's position in its three-phase termination state
// machine: Running -> Terminating -> Terminated, monotonic.
type State uint32

const (
	StateRunning State = iota
	StateTerminating
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "Running"
	case StateTerminating:
		return "Terminating"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// Params configures a new Queue. See Create.
type Params struct {
	MinConcurrency int
	MaxConcurrency int
	QoS            QoS
	Priority       int // intra-class priority, MinIntraClassPriority..MaxIntraClassPriority
	OwningProcess  any // optional weak reference to an owning process; nil for system queues
}

// Queue is the central dispatch-queue aggregate: an immediate-work FIFO
// fused with a deadline-ordered timer list, bounded object reuse caches,
// a pool-backed set of concurrency lanes, and a three-phase termination
// state machine. The zero value is not usable; construct with Create
// (or the Main/NewRealtime/NewUtility/NewBackground/NewIdle convenience
// constructors).
type Queue struct {
	pool vproc.Pool
	cfg  *config

	lock       syncx.Lock
	workAvail  *syncx.Cond
	workerExit *syncx.Cond

	immediate *list.List // of *workItem, kindImmediate
	timers    *list.List // of *workItem, kind{OneShot,Repeating}Timer, non-decreasing deadline

	itemCache     []*workItem
	timerCache    []*workItem
	signalerCache []*CompletionSignaler

	itemsQueuedCount int

	lanes                []vproc.Worker
	minConcurrency       int
	maxConcurrency       int
	availableConcurrency int

	qos            QoS
	priority       int
	workerPriority int

	state               atomic.Uint32
	drainInsteadOfFlush bool

	owningProcess any
}

// queueRegistry maps goroutine ids to the Queue currently being serviced
// by that goroutine, so CurrentQueue can answer from inside a worker's
// closure. Generalizes the teacher's single-loop
// loopGoroutineID/isLoopThread trick (eventloop/loop.go) to many
// concurrency lanes across many queues.
var queueRegistry sync.Map // map[uint64]*Queue

// CurrentQueue returns the Queue the calling goroutine is a worker for,
// or nil if the calling goroutine is not currently running a queue's
// worker loop.
func CurrentQueue() *Queue {
	v, ok := queueRegistry.Load(vproc.GoroutineID())
	if !ok {
		return nil
	}
	return v.(*Queue)
}

// Create allocates a new Queue, eagerly acquiring params.MinConcurrency
// workers from pool so minimum-concurrency queues begin executing
// before any work arrives (spec.md §4.1). On any validation or
// allocation failure the queue is torn down and the error returned.
func Create(pool vproc.Pool, params Params, opts ...Option) (*Queue, error) {
	switch {
	case params.MaxConcurrency < 1 || params.MaxConcurrency > MaxConcurrencyLimit:
		return nil, newError(InvalidArgument, "Create", nil)
	case params.MinConcurrency < 0 || params.MinConcurrency > params.MaxConcurrency:
		return nil, newError(InvalidArgument, "Create", nil)
	case params.Priority < MinIntraClassPriority || params.Priority > MaxIntraClassPriority:
		return nil, newError(InvalidArgument, "Create", nil)
	case params.QoS < Idle || params.QoS > Realtime:
		return nil, newError(InvalidArgument, "Create", nil)
	case pool == nil:
		return nil, newError(InvalidArgument, "Create", nil)
	}

	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}

	q := &Queue{
		pool:           pool,
		cfg:            cfg,
		immediate:      list.New(),
		timers:         list.New(),
		lanes:          make([]vproc.Worker, params.MaxConcurrency),
		minConcurrency: params.MinConcurrency,
		maxConcurrency: params.MaxConcurrency,
		qos:            params.QoS,
		priority:       params.Priority,
		owningProcess:  params.OwningProcess,
	}
	q.workerPriority = int(params.QoS)*PrioritiesPerClass + (params.Priority + PrioritiesPerClass/2) + reservedLow
	q.workAvail = syncx.NewCond(&q.lock)
	q.workerExit = syncx.NewCond(&q.lock)
	q.state.Store(uint32(StateRunning))

	gid := vproc.GoroutineID()
	q.lock.Lock(gid)
	for i := 0; i < params.MinConcurrency; i++ {
		if aerr := q.acquireWorkerLocked(); aerr != nil {
			q.lock.Unlock()
			_ = q.Destroy(context.Background())
			return nil, aerr
		}
	}
	q.lock.Unlock()

	return q, nil
}

// Main returns a serial (maxConcurrency=1) queue with no owning
// process, mirroring the original DispatchQueue_GetMain convenience
// accessor (SPEC_FULL.md §7/§11).
func Main(pool vproc.Pool, opts ...Option) (*Queue, error) {
	return Create(pool, Params{MaxConcurrency: 1, QoS: Utility}, opts...)
}

// NewRealtime returns a concurrent queue at the Realtime QoS class.
func NewRealtime(pool vproc.Pool, max int, opts ...Option) (*Queue, error) {
	return Create(pool, Params{MaxConcurrency: max, QoS: Realtime}, opts...)
}

// NewUtility returns a concurrent queue at the Utility QoS class.
func NewUtility(pool vproc.Pool, max int, opts ...Option) (*Queue, error) {
	return Create(pool, Params{MaxConcurrency: max, QoS: Utility}, opts...)
}

// NewBackground returns a concurrent queue at the Background QoS class.
func NewBackground(pool vproc.Pool, max int, opts ...Option) (*Queue, error) {
	return Create(pool, Params{MaxConcurrency: max, QoS: Background}, opts...)
}

// NewIdle returns a concurrent queue at the Idle QoS class. Unlike the
// original source's DispatchQueue_GetIdle (which the original's own
// comments mark as apparently aliasing the main queue by mistake), this
// is a genuinely distinct Idle-class queue.
func NewIdle(pool vproc.Pool, max int, opts ...Option) (*Queue, error) {
	return Create(pool, Params{MaxConcurrency: max, QoS: Idle}, opts...)
}

// State returns the queue's current position in its termination state
// machine.
func (q *Queue) State() State { return State(q.state.Load()) }

// AvailableConcurrency returns the number of workers currently bound to
// a lane. Intended for tests and observability.
func (q *Queue) AvailableConcurrency() int {
	gid := vproc.GoroutineID()
	q.lock.Lock(gid)
	defer q.lock.Unlock()
	return q.availableConcurrency
}

// Now returns the queue's current monotonic time, as read from its
// configured clock.Source. Used to compute deadlines for
// DispatchAsyncAfter/TimerCreate relative to the queue's own notion of
// time rather than the host wall clock.
func (q *Queue) Now() clock.Time { return q.cfg.clock.Now() }

// --- concurrency growth (spec.md §4.3) ---

func (q *Queue) acquireWorkerLocked() error {
	lane := -1
	for i, w := range q.lanes {
		if w == nil {
			lane = i
			break
		}
	}
	if lane == -1 {
		return newError(OutOfMemory, "acquireWorker", nil)
	}
	w, err := q.pool.Acquire(q.workerEntry, q, 0, 0, q.workerPriority)
	if err != nil {
		return newError(OutOfMemory, "acquireWorker", err)
	}
	w.SetDispatchQueueBinding(q, lane)
	q.lanes[lane] = w
	q.availableConcurrency++
	if err := w.Resume(true); err != nil {
		q.lanes[lane] = nil
		q.availableConcurrency--
		q.pool.Relinquish(w)
		return newError(OutOfMemory, "acquireWorker", err)
	}
	q.logLaneAcquired(lane, q.workerPriority)
	return nil
}

// growConcurrencyLocked implements spec.md §4.3's three growth
// conditions. A pool-acquire failure here is a soft error (spec.md §7):
// it is logged and otherwise ignored, rather than propagated to the
// enqueue caller.
func (q *Queue) growConcurrencyLocked() {
	if State(q.state.Load()) != StateRunning {
		return
	}
	a := q.availableConcurrency == 0
	b := q.availableConcurrency < q.minConcurrency
	c := q.itemsQueuedCount > ConcurrencyGrowThreshold && q.availableConcurrency < q.maxConcurrency
	if !(a || b || c) {
		return
	}
	if err := q.acquireWorkerLocked(); err != nil {
		q.logSoftError("growConcurrency", err)
	}
}

func (q *Queue) relinquishWorkerLocked(lane int, w vproc.Worker) (last bool) {
	q.lanes[lane] = nil
	q.availableConcurrency--
	q.pool.Relinquish(w)
	return q.availableConcurrency == 0
}

func laneOf(w vproc.Worker) int {
	_, lane := w.DispatchQueueBinding()
	return lane
}

// --- caches (spec.md §3, §4.2 epilogue) ---

func resetWorkItem(wi *workItem) {
	wi.fn = nil
	wi.context = nil
	wi.domain = DomainKernel
	wi.kind = kindImmediate
	wi.cancelled.Store(false)
	wi.beingDispatched.Store(false)
	wi.signaler = nil
	wi.deadline = clock.Zero
	wi.interval = clock.Zero
	wi.elem = nil
}

func (q *Queue) acquireItemLocked() *workItem {
	if n := len(q.itemCache); n > 0 {
		wi := q.itemCache[n-1]
		q.itemCache = q.itemCache[:n-1]
		resetWorkItem(wi)
		return wi
	}
	return &workItem{ownedByQueue: true}
}

func (q *Queue) releaseItemLocked(wi *workItem) {
	if len(q.itemCache) < CacheCapacity {
		q.itemCache = append(q.itemCache, wi)
	}
}

func (q *Queue) acquireTimerLocked() *workItem {
	if n := len(q.timerCache); n > 0 {
		wi := q.timerCache[n-1]
		q.timerCache = q.timerCache[:n-1]
		resetWorkItem(wi)
		return wi
	}
	return &workItem{ownedByQueue: true}
}

func (q *Queue) releaseTimerLocked(wi *workItem) {
	if len(q.timerCache) < CacheCapacity {
		q.timerCache = append(q.timerCache, wi)
	}
}

func (q *Queue) acquireSignalerLocked() *CompletionSignaler {
	if n := len(q.signalerCache); n > 0 {
		s := q.signalerCache[n-1]
		q.signalerCache = q.signalerCache[:n-1]
		s.interrupted = false
		return s
	}
	return newCompletionSignaler()
}

func (q *Queue) releaseSignalerLocked(s *CompletionSignaler) {
	if len(q.signalerCache) < CacheCapacity {
		q.signalerCache = append(q.signalerCache, s)
	}
}

// signalInterruptedLocked marks wi's attached signaler (if any) as
// interrupted and releases its waiter, then clears the weak
// back-pointer — the item must never dereference the signaler again
// after this point (spec.md §9).
func (q *Queue) signalInterruptedLocked(wi *workItem) {
	if wi.signaler != nil {
		wi.signaler.interrupted = true
		wi.signaler.sem.Release(1)
		wi.signaler = nil
	}
}

func (q *Queue) recycleRemovedItemLocked(wi *workItem) {
	wi.beingDispatched.Store(false)
	if wi.ownedByQueue {
		q.releaseItemLocked(wi)
	}
}

func (q *Queue) recycleRemovedTimerLocked(wi *workItem) {
	wi.beingDispatched.Store(false)
	if wi.ownedByQueue {
		q.releaseTimerLocked(wi)
	}
}

// --- ordered timer insertion (spec.md §3, §5) ---

// insertTimerOrderedLocked inserts wi into the timer list, walking from
// the head and placing it after the last element whose deadline is <=
// wi's deadline, so equal-deadline timers preserve insertion order.
func (q *Queue) insertTimerOrderedLocked(wi *workItem) *list.Element {
	var after *list.Element
	for e := q.timers.Front(); e != nil; e = e.Next() {
		if e.Value.(*workItem).deadline.LessEqual(wi.deadline) {
			after = e
		} else {
			break
		}
	}
	if after == nil {
		return q.timers.PushFront(wi)
	}
	return q.timers.InsertAfter(wi, after)
}

// --- enqueue operations (spec.md §4.2) ---

// DispatchAsync enqueues fn to run asynchronously, in the kernel
// execution domain, with context as its argument.
func (q *Queue) DispatchAsync(fn Closure, context any) error {
	return q.dispatchAsync(fn, context, DomainKernel)
}

// DispatchUserAsync is DispatchAsync's user-execution-domain
// counterpart: fn runs through the pool worker's call-as-user bridge,
// so queue termination can abort it (spec.md §5).
func (q *Queue) DispatchUserAsync(fn Closure, context any) error {
	return q.dispatchAsync(fn, context, DomainUser)
}

func (q *Queue) dispatchAsync(fn Closure, context any, domain ExecutionDomain) error {
	gid := vproc.GoroutineID()
	q.lock.Lock(gid)
	if State(q.state.Load()) != StateRunning {
		q.lock.Unlock()
		return nil
	}
	wi := q.acquireItemLocked()
	wi.fn = fn
	wi.context = context
	wi.domain = domain
	wi.beingDispatched.Store(true)
	wi.elem = q.immediate.PushBack(wi)
	q.itemsQueuedCount++
	q.growConcurrencyLocked()
	q.workAvail.Signal()
	q.lock.Unlock()
	return nil
}

// DispatchAsyncAfter enqueues fn, in the kernel execution domain, to run
// once deadline is reached, returning the Timer so the caller may
// RemoveTimer or Cancel it.
func (q *Queue) DispatchAsyncAfter(deadline clock.Time, fn Closure, context any) (*Timer, error) {
	return q.dispatchAsyncAfter(deadline, fn, context, DomainKernel)
}

// DispatchUserAsyncAfter is DispatchAsyncAfter's user-execution-domain
// counterpart.
func (q *Queue) DispatchUserAsyncAfter(deadline clock.Time, fn Closure, context any) (*Timer, error) {
	return q.dispatchAsyncAfter(deadline, fn, context, DomainUser)
}

func (q *Queue) dispatchAsyncAfter(deadline clock.Time, fn Closure, context any, domain ExecutionDomain) (*Timer, error) {
	gid := vproc.GoroutineID()
	q.lock.Lock(gid)
	if State(q.state.Load()) != StateRunning {
		q.lock.Unlock()
		return nil, nil
	}
	wi := q.acquireTimerLocked()
	wi.fn = fn
	wi.context = context
	wi.domain = domain
	wi.kind = kindOneShotTimer
	wi.deadline = deadline
	wi.beingDispatched.Store(true)
	wi.elem = q.insertTimerOrderedLocked(wi)
	q.growConcurrencyLocked()
	q.workAvail.Signal()
	q.lock.Unlock()
	return &Timer{WorkItem{item: wi}}, nil
}

// DispatchTimer enqueues an externally-owned, caller-created Timer
// (from TimerCreate). Returns Busy if t is already attached to some
// queue.
func (q *Queue) DispatchTimer(t *Timer) error {
	if !t.item.beingDispatched.CompareAndSwap(false, true) {
		return newError(Busy, "DispatchTimer", nil)
	}
	gid := vproc.GoroutineID()
	q.lock.Lock(gid)
	if State(q.state.Load()) != StateRunning {
		q.lock.Unlock()
		t.item.beingDispatched.Store(false)
		return nil
	}
	t.item.elem = q.insertTimerOrderedLocked(t.item)
	q.growConcurrencyLocked()
	q.workAvail.Signal()
	q.lock.Unlock()
	return nil
}

// DispatchSync enqueues fn, in the kernel execution domain, and blocks
// until it returns, is removed, or the queue terminates, whichever comes
// first. Returns an Interrupted error in the latter two cases.
func (q *Queue) DispatchSync(fn Closure, context any) error {
	return q.dispatchSync(fn, context, DomainKernel)
}

// DispatchUserSync is DispatchSync's user-execution-domain counterpart:
// fn runs through the pool worker's call-as-user bridge, so queue
// termination can abort it (spec.md §5) in addition to interrupting the
// wait via the usual Interrupted paths.
func (q *Queue) DispatchUserSync(fn Closure, context any) error {
	return q.dispatchSync(fn, context, DomainUser)
}

func (q *Queue) dispatchSync(fn Closure, context any, domain ExecutionDomain) error {
	gid := vproc.GoroutineID()
	q.lock.Lock(gid)
	if State(q.state.Load()) != StateRunning {
		q.lock.Unlock()
		return nil
	}
	wi := q.acquireItemLocked()
	signaler := q.acquireSignalerLocked()
	wi.fn = fn
	wi.context = context
	wi.domain = domain
	wi.beingDispatched.Store(true)
	wi.signaler = signaler
	wi.elem = q.immediate.PushBack(wi)
	q.itemsQueuedCount++
	q.growConcurrencyLocked()
	q.workAvail.Signal()
	q.lock.Unlock()

	signaler.sem.Acquire(1, time.Time{})

	gid = vproc.GoroutineID()
	q.lock.Lock(gid)
	interrupted := signaler.interrupted || State(q.state.Load()) != StateRunning
	q.releaseSignalerLocked(signaler)
	q.lock.Unlock()

	if interrupted {
		return newError(Interrupted, "DispatchSync", nil)
	}
	return nil
}

// DispatchWorkItemAsync enqueues an externally-owned WorkItem (from
// WorkItemCreate) asynchronously. Returns Busy if w is already attached
// to some queue.
func (q *Queue) DispatchWorkItemAsync(w *WorkItem) error {
	if !w.item.beingDispatched.CompareAndSwap(false, true) {
		return newError(Busy, "DispatchWorkItemAsync", nil)
	}
	gid := vproc.GoroutineID()
	q.lock.Lock(gid)
	if State(q.state.Load()) != StateRunning {
		q.lock.Unlock()
		w.item.beingDispatched.Store(false)
		return nil
	}
	w.item.kind = kindImmediate
	w.item.elem = q.immediate.PushBack(w.item)
	q.itemsQueuedCount++
	q.growConcurrencyLocked()
	q.workAvail.Signal()
	q.lock.Unlock()
	return nil
}

// DispatchWorkItemSync enqueues an externally-owned WorkItem
// synchronously. Returns Busy if w is already attached to some queue.
func (q *Queue) DispatchWorkItemSync(w *WorkItem) error {
	if !w.item.beingDispatched.CompareAndSwap(false, true) {
		return newError(Busy, "DispatchWorkItemSync", nil)
	}
	gid := vproc.GoroutineID()
	q.lock.Lock(gid)
	if State(q.state.Load()) != StateRunning {
		q.lock.Unlock()
		w.item.beingDispatched.Store(false)
		return nil
	}
	signaler := q.acquireSignalerLocked()
	w.item.kind = kindImmediate
	w.item.signaler = signaler
	w.item.elem = q.immediate.PushBack(w.item)
	q.itemsQueuedCount++
	q.growConcurrencyLocked()
	q.workAvail.Signal()
	q.lock.Unlock()

	signaler.sem.Acquire(1, time.Time{})

	gid = vproc.GoroutineID()
	q.lock.Lock(gid)
	interrupted := signaler.interrupted || State(q.state.Load()) != StateRunning
	q.releaseSignalerLocked(signaler)
	q.lock.Unlock()

	if interrupted {
		return newError(Interrupted, "DispatchWorkItemSync", nil)
	}
	return nil
}

// RemoveWorkItem removes w from the immediate FIFO if it is currently
// queued there, interrupting any synchronous waiter. A no-op if w is
// not queued (e.g. already running or already removed). This does not
// set w's cancelled flag.
func (q *Queue) RemoveWorkItem(w *WorkItem) error {
	gid := vproc.GoroutineID()
	q.lock.Lock(gid)
	defer q.lock.Unlock()
	for e := q.immediate.Front(); e != nil; e = e.Next() {
		if e.Value.(*workItem) == w.item {
			q.immediate.Remove(e)
			q.itemsQueuedCount--
			q.signalInterruptedLocked(w.item)
			q.recycleRemovedItemLocked(w.item)
			return nil
		}
	}
	return nil
}

// RemoveTimer removes t from the timer list if it is currently queued
// there, interrupting any synchronous waiter. A no-op if t is not
// queued. This does not set t's cancelled flag.
func (q *Queue) RemoveTimer(t *Timer) error {
	gid := vproc.GoroutineID()
	q.lock.Lock(gid)
	defer q.lock.Unlock()
	for e := q.timers.Front(); e != nil; e = e.Next() {
		if e.Value.(*workItem) == t.item {
			q.timers.Remove(e)
			q.signalInterruptedLocked(t.item)
			q.recycleRemovedTimerLocked(t.item)
			return nil
		}
	}
	return nil
}

// Flush removes every queued immediate item and timer, interrupting any
// synchronous waiters attached to them.
func (q *Queue) Flush() error {
	gid := vproc.GoroutineID()
	q.lock.Lock(gid)
	defer q.lock.Unlock()
	q.flushLocked()
	return nil
}

func (q *Queue) flushLocked() {
	for e := q.immediate.Front(); e != nil; {
		next := e.Next()
		wi := e.Value.(*workItem)
		q.immediate.Remove(e)
		q.itemsQueuedCount--
		q.signalInterruptedLocked(wi)
		q.recycleRemovedItemLocked(wi)
		e = next
	}
	for e := q.timers.Front(); e != nil; {
		next := e.Next()
		wi := e.Value.(*workItem)
		q.timers.Remove(e)
		q.signalInterruptedLocked(wi)
		q.recycleRemovedTimerLocked(wi)
		e = next
	}
}

// --- termination (spec.md §4.1) ---

// Terminate transitions the queue from Running to Terminating:
// it flushes queued work (unless DestroyWithoutFlush requested a drain
// instead), aborts user-mode execution on every occupied lane, and
// wakes every worker. Idempotent: calling it again once Terminating or
// Terminated is a no-op.
func (q *Queue) Terminate() error {
	gid := vproc.GoroutineID()
	q.lock.Lock(gid)
	if !q.state.CompareAndSwap(uint32(StateRunning), uint32(StateTerminating)) {
		q.lock.Unlock()
		return nil
	}
	if !q.drainInsteadOfFlush {
		q.flushLocked()
	}
	for _, w := range q.lanes {
		if w != nil {
			w.AbortUserCall()
		}
	}
	q.workAvail.Broadcast()
	q.lock.Unlock()
	q.logTerminationPhase("terminating")
	return nil
}

// WaitForTerminationCompleted blocks until every worker has exited
// (availableConcurrency reaches 0) and then deinitializes the queue's
// caches, or until ctx is done, whichever comes first. Terminate should
// be called first; called before Terminate, it waits only while workers
// are bound and then returns without moving the queue to Terminated or
// deinitializing it.
func (q *Queue) WaitForTerminationCompleted(ctx context.Context) error {
	gid := vproc.GoroutineID()
	q.lock.Lock(gid)
	for q.availableConcurrency > 0 {
		if ctx != nil {
			select {
			case <-ctx.Done():
				q.lock.Unlock()
				return ctx.Err()
			default:
			}
		}
		q.workerExit.Wait(gid, time.Now().Add(50*time.Millisecond))
	}
	if q.state.CompareAndSwap(uint32(StateTerminating), uint32(StateTerminated)) {
		q.deinitLocked()
	}
	q.lock.Unlock()
	q.logTerminationPhase("terminated")
	return nil
}

// deinitLocked destroys cached objects and releases any clock this
// queue owns. Called exactly once, by WaitForTerminationCompleted, once
// it has seen the last worker depart and moved the queue to Terminated.
func (q *Queue) deinitLocked() {
	q.itemCache = nil
	q.timerCache = nil
	q.signalerCache = nil
	if q.cfg.ownsClock {
		q.cfg.clock.Stop()
	}
}

// Destroy is the combined terminate-then-wait convenience wrapper: per
// spec.md's Design Notes, the split Terminate/WaitForTerminationCompleted
// pair is canonical and Destroy is a thin wrapper over both, always
// flushing queued work first.
func (q *Queue) Destroy(ctx context.Context) error {
	if err := q.Terminate(); err != nil {
		return err
	}
	return q.WaitForTerminationCompleted(ctx)
}

// DestroyWithoutFlush terminates the queue without flushing
// already-queued, not-yet-started work: that work is allowed to drain
// naturally (workers keep picking it up) instead of being interrupted.
// Recovered from the original source's DispatchQueue_DestroyAndFlush,
// which the canonical split implementation dropped in favor of always
// flushing (SPEC_FULL.md §11).
func (q *Queue) DestroyWithoutFlush(ctx context.Context) error {
	gid := vproc.GoroutineID()
	q.lock.Lock(gid)
	q.drainInsteadOfFlush = true
	q.lock.Unlock()
	return q.Destroy(ctx)
}

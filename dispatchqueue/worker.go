package dispatchqueue

import (
	"fmt"
	"time"

	"github.com/joeycumines/go-dispatchqueue/clock"
	"github.com/joeycumines/go-dispatchqueue/vproc"
)

// workerEntry is the vproc.EntryFunc bound to every worker this queue
// acquires from its pool. It registers the calling goroutine in the
// CurrentQueue registry for the worker's whole lifetime, then runs the
// six-step main loop.
func (q *Queue) workerEntry(w vproc.Worker, _ any) {
	gid := vproc.GoroutineID()
	queueRegistry.Store(gid, q)
	defer queueRegistry.Delete(gid)
	q.runWorkerLoop(w, gid)
}

// runWorkerLoop implements spec.md §4.4's six-step worker main loop:
//  1. pick next item (a due timer is preferred over an immediate item)
//  2. decide whether to keep waiting or give up
//  3. wait on the work-available condition, with an idle-probe deadline
//  4. execute the item, or exit if none was found
//  5. recycle the item (or rearm a repeating timer)
//  6. loop
func (q *Queue) runWorkerLoop(w vproc.Worker, gid uint64) {
	q.lock.Lock(gid)
	for {
		item := q.selectItemLocked(gid)

		if item == nil {
			lane := laneOf(w)
			last := q.relinquishWorkerLocked(lane, w)
			q.logLaneRelinquished(lane)
			if State(q.state.Load()) != StateRunning {
				if last {
					q.workerExit.Broadcast()
				} else {
					q.workerExit.Signal()
				}
			}
			q.lock.Unlock()
			return
		}

		q.lock.Unlock()
		q.executeItem(w, item)
		q.lock.Lock(gid)

		q.recycleAfterExecutionLocked(item)
	}
}

// selectItemLocked implements steps 1-3: it repeats pick-then-wait until
// an item is obtained, the queue stops Running, or the worker becomes
// eligible (and elects) to relinquish its lane after an idle-probe
// timeout. Must be called with the lock held; returns with the lock
// held.
func (q *Queue) selectItemLocked(gid uint64) (item *workItem) {
	var relinquishEligible bool
	for {
		if item = q.pickNextItemLocked(); item != nil {
			return item
		}
		if State(q.state.Load()) != StateRunning {
			return nil
		}
		if relinquishEligible {
			return nil
		}

		deadline := q.nextWaitDeadlineLocked()
		timedOut := q.workAvail.Wait(gid, deadline)
		if timedOut && q.availableConcurrency > q.minConcurrency {
			relinquishEligible = true
		}
	}
}

// pickNextItemLocked removes and returns the next runnable item: a due
// timer (deadline <= now) takes precedence over the oldest immediate
// item, matching spec.md §4.4 step 1.
func (q *Queue) pickNextItemLocked() *workItem {
	now := q.cfg.clock.Now()
	if e := q.timers.Front(); e != nil {
		wi := e.Value.(*workItem)
		if !wi.deadline.Greater(now) {
			q.timers.Remove(e)
			wi.elem = nil
			return wi
		}
	}
	if e := q.immediate.Front(); e != nil {
		wi := e.Value.(*workItem)
		q.immediate.Remove(e)
		wi.elem = nil
		q.itemsQueuedCount--
		return wi
	}
	return nil
}

// nextWaitDeadlineLocked returns the wall-clock instant the worker
// should wake by: the next timer's deadline translated to wall time, or
// one configured idle-probe interval (IdleProbeInterval unless
// WithIdleProbeInterval overrides it) away if there is no pending timer.
func (q *Queue) nextWaitDeadlineLocked() time.Time {
	if e := q.timers.Front(); e != nil {
		return q.clockTimeToWallClock(e.Value.(*workItem).deadline)
	}
	return time.Now().Add(q.cfg.idleProbeInterval)
}

func (q *Queue) clockTimeToWallClock(t clock.Time) time.Time {
	now := q.cfg.clock.Now()
	delta := t.Sub(now)
	nanos := delta.Seconds*clock.NanosPerSecond + int64(delta.Nanoseconds)
	if nanos < 0 {
		nanos = 0
	}
	return time.Now().Add(time.Duration(nanos))
}

// executeItem runs wi's closure outside the queue lock: DomainUser
// closures run through the pool worker's call-as-user bridge so
// Terminate's AbortUserCall can interrupt them; DomainKernel closures
// run directly, with a recover guard so a panicking closure cannot take
// the worker down with it. Either way, any attached completion signaler
// is released afterward.
func (q *Queue) executeItem(w vproc.Worker, wi *workItem) {
	if wi.fn != nil {
		switch wi.domain {
		case DomainUser:
			w.CallAsUser(func(userCtx any) {
				defer func() {
					if r := recover(); r != nil {
						q.logSoftError("closure panic", fmt.Errorf("%v", r))
					}
				}()
				wi.fn(userCtx)
			}, wi.context)
		default:
			func() {
				defer func() {
					if r := recover(); r != nil {
						q.logSoftError("closure panic", fmt.Errorf("%v", r))
					}
				}()
				wi.fn(wi.context)
			}()
		}
	}
	if wi.signaler != nil {
		wi.signaler.interrupted = false
		wi.signaler.sem.Release(1)
		wi.signaler = nil
	}
}

// recycleAfterExecutionLocked implements step 5: a one-shot item
// (Immediate or OneShotTimer) is returned to its queue-owned cache (or
// left to the caller, if externally owned); a repeating timer rearms
// itself to the next deadline strictly after now unless it has been
// cancelled or the queue has stopped Running, in which case it is
// retired like a one-shot.
func (q *Queue) recycleAfterExecutionLocked(wi *workItem) {
	if wi.kind == kindRepeatingTimer && !wi.cancelled.Load() && State(q.state.Load()) == StateRunning {
		now := q.cfg.clock.Now()
		next := wi.deadline
		for !next.Greater(now) {
			next = next.Add(wi.interval)
		}
		wi.deadline = next
		wi.elem = q.insertTimerOrderedLocked(wi)
		return
	}

	wi.beingDispatched.Store(false)
	if !wi.ownedByQueue {
		return
	}
	if wi.kind == kindImmediate {
		q.releaseItemLocked(wi)
	} else {
		q.releaseTimerLocked(wi)
	}
}

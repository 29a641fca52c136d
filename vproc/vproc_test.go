package vproc

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalPool_AcquireResumeRuns(t *testing.T) {
	pool := NewLocalPool(2)
	done := make(chan struct{})

	w, err := pool.Acquire(func(w Worker, context any) {
		require.Equal(t, "ctx", context)
		close(done)
	}, "ctx", 0, 0, 0)
	require.NoError(t, err)
	require.NoError(t, w.Resume(false))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("entry never ran")
	}
}

func TestLocalPool_WorkerReuse(t *testing.T) {
	pool := NewLocalPool(1)

	var seen sync.Map
	run := func(id int) {
		done := make(chan struct{})
		w, err := pool.Acquire(func(w Worker, context any) {
			seen.Store(w, true)
			close(done)
		}, nil, 0, 0, 0)
		require.NoError(t, err)
		require.NoError(t, w.Resume(false))
		<-done
		pool.Relinquish(w)
	}

	run(1)
	run(2)

	count := 0
	seen.Range(func(_, _ any) bool { count++; return true })
	require.Equal(t, 1, count, "expected the single idle worker to be reused")
}

func TestLocalPool_EvictsBeyondCap(t *testing.T) {
	pool := NewLocalPool(1)

	var workers []Worker
	for i := 0; i < 3; i++ {
		done := make(chan struct{})
		w, err := pool.Acquire(func(w Worker, context any) { close(done) }, nil, 0, 0, 0)
		require.NoError(t, err)
		require.NoError(t, w.Resume(false))
		<-done
		workers = append(workers, w)
	}
	for _, w := range workers {
		pool.Relinquish(w)
	}

	require.LessOrEqual(t, len(pool.idle), 1)
}

func TestCurrent_ReturnsBoundWorker(t *testing.T) {
	pool := NewLocalPool(1)
	done := make(chan struct{})

	w, err := pool.Acquire(func(w Worker, context any) {
		require.Same(t, w, Current())
		close(done)
	}, nil, 0, 0, 0)
	require.NoError(t, err)
	require.NoError(t, w.Resume(false))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("entry never ran")
	}
}

func TestCurrent_NilOutsideWorker(t *testing.T) {
	require.Nil(t, Current())
}

func TestDispatchQueueBinding(t *testing.T) {
	pool := NewLocalPool(1)
	done := make(chan struct{})
	w, err := pool.Acquire(func(w Worker, context any) { close(done) }, nil, 0, 0, 0)
	require.NoError(t, err)

	w.SetDispatchQueueBinding("queue-a", 3)
	q, lane := w.DispatchQueueBinding()
	require.Equal(t, "queue-a", q)
	require.Equal(t, 3, lane)

	require.NoError(t, w.Resume(false))
	<-done
}

func TestAbortController_OnAbortAfterAbort(t *testing.T) {
	c := NewAbortController()
	c.Abort("reason-1")
	require.True(t, c.Signal().Aborted())
	require.Equal(t, "reason-1", c.Signal().Reason())

	var got any
	c.Signal().OnAbort(func(reason any) { got = reason })
	require.Equal(t, "reason-1", got)
}

func TestAbortController_IdempotentAbort(t *testing.T) {
	c := NewAbortController()
	var calls int
	c.Signal().OnAbort(func(reason any) { calls++ })
	c.Abort("a")
	c.Abort("b")
	require.Equal(t, 1, calls)
	require.Equal(t, "a", c.Signal().Reason())
}

func TestLocalWorker_AbortUserCall(t *testing.T) {
	pool := NewLocalPool(1)
	done := make(chan struct{})
	installed := make(chan struct{})

	w, err := pool.Acquire(func(w Worker, context any) {
		lw := w.(*localWorker)
		w.CallAsUser(func(context any) {
			sig := lw.CurrentAbortSignal()
			close(installed)
			for !sig.Aborted() {
				time.Sleep(time.Millisecond)
			}
		}, nil)
		close(done)
	}, nil, 0, 0, 0)
	require.NoError(t, err)
	require.NoError(t, w.Resume(false))

	<-installed
	w.AbortUserCall()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("user closure never observed the abort signal")
	}
}

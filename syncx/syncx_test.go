package syncx

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLock_OwnerTracking(t *testing.T) {
	l := &Lock{}
	require.Equal(t, uint64(0), l.Owner())
	l.Lock(42)
	require.True(t, l.HeldBy(42))
	require.False(t, l.HeldBy(7))
	l.Unlock()
	require.Equal(t, uint64(0), l.Owner())
}

func TestCond_SignalWakesOneWaiter(t *testing.T) {
	l := &Lock{}
	c := NewCond(l)

	woken := make(chan struct{})
	go func() {
		l.Lock(2)
		timedOut := c.Wait(2, time.Time{})
		require.False(t, timedOut)
		l.Unlock()
		close(woken)
	}()

	time.Sleep(20 * time.Millisecond)
	l.Lock(1)
	c.Signal()
	l.Unlock()

	select {
	case <-woken:
	case <-time.After(time.Second):
		t.Fatal("waiter never woke")
	}
}

func TestCond_DeadlineTimesOut(t *testing.T) {
	l := &Lock{}
	c := NewCond(l)

	l.Lock(1)
	timedOut := c.Wait(1, time.Now().Add(20*time.Millisecond))
	require.True(t, timedOut)
	l.Unlock()
}

func TestCond_PastDeadlineReturnsImmediately(t *testing.T) {
	l := &Lock{}
	c := NewCond(l)
	l.Lock(1)
	start := time.Now()
	timedOut := c.Wait(1, time.Now().Add(-time.Second))
	require.True(t, timedOut)
	require.Less(t, time.Since(start), 50*time.Millisecond)
	l.Unlock()
}

func TestCond_Broadcast(t *testing.T) {
	l := &Lock{}
	c := NewCond(l)

	var wg sync.WaitGroup
	const n = 5
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(id uint64) {
			defer wg.Done()
			l.Lock(id)
			c.Wait(id, time.Time{})
			l.Unlock()
		}(uint64(i + 10))
	}

	time.Sleep(30 * time.Millisecond)
	c.Broadcast()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast did not wake all waiters")
	}
}

func TestSemaphore_AcquireRelease(t *testing.T) {
	s := NewSemaphore(1)
	require.True(t, s.TryAcquire(1))
	require.False(t, s.TryAcquire(1))
	s.Release(1)
	require.True(t, s.Acquire(1, time.Time{}))
}

func TestSemaphore_AcquireTimesOut(t *testing.T) {
	s := NewSemaphore(0)
	ok := s.Acquire(1, time.Now().Add(20*time.Millisecond))
	require.False(t, ok)
}

func TestSemaphore_CloseWakesAllInterrupted(t *testing.T) {
	s := NewSemaphore(0)

	results := make(chan bool, 3)
	for i := 0; i < 3; i++ {
		go func() { results <- s.Acquire(1, time.Time{}) }()
	}

	time.Sleep(30 * time.Millisecond)
	s.Close()

	for i := 0; i < 3; i++ {
		select {
		case ok := <-results:
			require.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("close did not wake a waiter")
		}
	}

	require.False(t, s.TryAcquire(1))
	require.False(t, s.Acquire(1, time.Time{}))
}

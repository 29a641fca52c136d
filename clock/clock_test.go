package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTime_CanonicalForm(t *testing.T) {
	for _, tc := range []struct {
		name         string
		seconds      int64
		nanos        int64
		wantSeconds  int64
		wantNanos    int32
	}{
		{name: "already canonical", seconds: 5, nanos: 500, wantSeconds: 5, wantNanos: 500},
		{name: "overflowing nanos carry", seconds: 5, nanos: NanosPerSecond + 1, wantSeconds: 6, wantNanos: 1},
		{name: "negative nanos borrow", seconds: 5, nanos: -1, wantSeconds: 4, wantNanos: NanosPerSecond - 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := Make(tc.seconds, tc.nanos)
			require.Equal(t, tc.wantSeconds, got.Seconds)
			require.Equal(t, tc.wantNanos, got.Nanoseconds)
		})
	}
}

func TestTime_Compare(t *testing.T) {
	a := Make(1, 0)
	b := Make(1, 1)
	require.True(t, a.Less(b))
	require.True(t, b.Greater(a))
	require.True(t, a.LessEqual(a))
	require.True(t, a.GreaterEqual(a))
	require.Equal(t, 0, a.Compare(a))
}

func TestTime_Saturation(t *testing.T) {
	require.Equal(t, PositiveInfinity, PositiveInfinity.Add(Make(1, 0)))
	require.Equal(t, NegativeInfinity, NegativeInfinity.Sub(Make(1, 0)))
	require.True(t, PositiveInfinity.Greater(Make(1<<62, 0)))
}

func TestQuantumConversion_Rounding(t *testing.T) {
	const nanosPerQuantum = 1000

	interval := Make(0, 2500)
	require.Equal(t, Quantums(2), ToQuantums(interval, nanosPerQuantum, TowardsZero))
	require.Equal(t, Quantums(3), ToQuantums(interval, nanosPerQuantum, AwayFromZero))

	exact := Make(0, 3000)
	require.Equal(t, Quantums(3), ToQuantums(exact, nanosPerQuantum, TowardsZero))
	require.Equal(t, Quantums(3), ToQuantums(exact, nanosPerQuantum, AwayFromZero))
}

func TestQuantumConversion_RoundTrip(t *testing.T) {
	const nanosPerQuantum = 1000
	back := FromQuantums(Quantums(7), nanosPerQuantum)
	require.Equal(t, Make(0, 7000), back)
}

func TestSource_ManualAdvance(t *testing.T) {
	s := NewManual(1000)
	defer s.Stop()

	start := s.Now()
	s.Advance(5)
	after := s.Now()

	require.True(t, after.Greater(start))
	require.Equal(t, Make(0, 5000), after.Sub(start))
	require.Equal(t, uint64(5), s.QuantumCount())
}

func TestSource_SeqlockConcurrentReadDoesNotRace(t *testing.T) {
	s := NewManual(1000)
	defer s.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			s.OnInterrupt()
		}
	}()

	for i := 0; i < 1000; i++ {
		_ = s.Now()
	}
	<-done
}

func TestSource_TickerDriven(t *testing.T) {
	s := NewSource(int64(time.Millisecond))
	defer s.Stop()

	start := s.Now()
	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		if s.Now().Greater(start) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("clock source never advanced")
}

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtualNowReflectsOnlyAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v := NewVirtual(start)
	assert.Equal(t, start, v.Now())

	v.Advance(5 * time.Minute)
	assert.Equal(t, start.Add(5*time.Minute), v.Now())
}

func TestVirtualAfterFiresOnlyOnceDeadlineReached(t *testing.T) {
	v := NewVirtual(time.Unix(0, 0))
	ch := v.After(10 * time.Second)

	select {
	case <-ch:
		t.Fatal("After fired before the deadline was reached")
	default:
	}

	v.Advance(5 * time.Second)
	select {
	case <-ch:
		t.Fatal("After fired before the full duration elapsed")
	default:
	}

	v.Advance(5 * time.Second)
	select {
	case got := <-ch:
		assert.Equal(t, v.Now(), got)
	default:
		t.Fatal("After did not fire once the deadline was reached")
	}
}

func TestVirtualAfterZeroOrNegativeFiresImmediately(t *testing.T) {
	v := NewVirtual(time.Unix(0, 0))
	ch := v.After(0)
	select {
	case <-ch:
	default:
		t.Fatal("After(0) should fire immediately")
	}
}

func TestVirtualAdvanceFiresMultipleWaitersInDeadlineOrder(t *testing.T) {
	v := NewVirtual(time.Unix(0, 0))
	var fired []int

	chA := v.After(1 * time.Second)
	chB := v.After(3 * time.Second)
	chC := v.After(2 * time.Second)

	v.Advance(3 * time.Second)

	for i, ch := range []<-chan time.Time{chA, chC, chB} {
		select {
		case <-ch:
			fired = append(fired, i)
		default:
			t.Fatalf("waiter %d did not fire after Advance past its deadline", i)
		}
	}
	assert.Len(t, fired, 3)
}

func TestVirtualTimerResetRearmsAgainstCurrentClock(t *testing.T) {
	v := NewVirtual(time.Unix(0, 0))
	timer := v.NewTimer(1 * time.Second)
	require.True(t, timer.Stop())

	ok := timer.Reset(2 * time.Second)
	require.True(t, ok)

	v.Advance(1 * time.Second)
	select {
	case <-timer.C():
		t.Fatal("reset timer fired before its new deadline")
	default:
	}

	v.Advance(1 * time.Second)
	select {
	case <-timer.C():
	default:
		t.Fatal("reset timer did not fire at its new deadline")
	}
}

func TestRealClockProducesMonotonicNow(t *testing.T) {
	r := Real{}
	a := r.Now()
	r.Sleep(time.Millisecond)
	b := r.Now()
	assert.True(t, b.After(a) || b.Equal(a))
}

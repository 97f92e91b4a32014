package clock

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := &RealClock{}

	before := time.Now()
	actual := clock.Now()
	after := time.Now()

	if actual.Before(before) || actual.After(after) {
		t.Errorf("RealClock.Now() returned time outside expected range: got %v, expected between %v and %v", actual, before, after)
	}
}

func TestFakeClock(t *testing.T) {
	fixedTime := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	t.Run("returns fixed time without step", func(t *testing.T) {
		clock := NewFakeClock(fixedTime)
		if got := clock.Now(); !got.Equal(fixedTime) {
			t.Errorf("Now() = %v, want %v", got, fixedTime)
		}
		if got := clock.Now(); !got.Equal(fixedTime) {
			t.Errorf("second Now() = %v, want %v", got, fixedTime)
		}
	})

	t.Run("advance and set", func(t *testing.T) {
		clock := NewFakeClock(fixedTime)
		clock.Advance(time.Hour)
		if got := clock.Now(); !got.Equal(fixedTime.Add(time.Hour)) {
			t.Errorf("Now() after Advance = %v", got)
		}
		clock.Set(fixedTime)
		if got := clock.Now(); !got.Equal(fixedTime) {
			t.Errorf("Now() after Set = %v", got)
		}
	})

	t.Run("step advances after each read", func(t *testing.T) {
		clock := NewFakeClock(fixedTime)
		clock.SetStep(10 * time.Second)

		first := clock.Now()
		second := clock.Now()
		if !first.Equal(fixedTime) {
			t.Errorf("first Now() = %v, want %v", first, fixedTime)
		}
		if got := second.Sub(first); got != 10*time.Second {
			t.Errorf("step = %v, want 10s", got)
		}
	})
}

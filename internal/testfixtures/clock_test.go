package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})

	if got := clock.Now(); !got.Equal(ReferenceTime()) {
		t.Fatalf("expected reference time %v, got %v", ReferenceTime(), got)
	}
}

func TestClockSetAndAdvance(t *testing.T) {
	start := time.Date(2024, time.March, 11, 8, 0, 0, 0, time.UTC)
	clock := NewClock(start)

	clock.Advance(time.Hour)
	if got := clock.Advance(time.Hour); !got.Equal(start.Add(2 * time.Hour)) {
		t.Fatalf("expected %v after two advances, got %v", start.Add(2*time.Hour), got)
	}
	if got := clock.Current(); !got.Equal(start.Add(2 * time.Hour)) {
		t.Fatalf("expected Current to match Advance result, got %v", got)
	}

	clock.Set(start)
	if got := clock.Now(); !got.Equal(start) {
		t.Fatalf("expected Set to rewind the clock, got %v", got)
	}
}

func TestClockNowFuncTracksUpdates(t *testing.T) {
	clock := NewClock(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	nowFn := clock.NowFunc()

	if got := nowFn(); !got.Equal(clock.Current()) {
		t.Fatalf("expected %v from NowFunc, got %v", clock.Current(), got)
	}

	clock.Advance(30 * time.Minute)
	if got := nowFn(); !got.Equal(clock.Current()) {
		t.Fatalf("expected updated time %v, got %v", clock.Current(), got)
	}
}

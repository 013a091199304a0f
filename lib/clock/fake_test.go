// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockNow(t *testing.T) {
	clock := Fake(epoch)
	if got := clock.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	clock.Advance(5 * time.Second)
	if got, want := clock.Now(), epoch.Add(5*time.Second); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeClockSleepAdvancesAndRecords(t *testing.T) {
	clock := Fake(epoch)
	var hooked []time.Duration
	clock.OnSleep(func(d time.Duration) { hooked = append(hooked, d) })

	clock.Sleep(4 * time.Millisecond)
	clock.Sleep(0)
	clock.Sleep(12 * time.Millisecond)

	if got, want := clock.Now(), epoch.Add(16*time.Millisecond); !got.Equal(want) {
		t.Errorf("Now() = %v, want %v", got, want)
	}
	sleeps := clock.Sleeps()
	if len(sleeps) != 3 || sleeps[0] != 4*time.Millisecond || sleeps[1] != 0 || sleeps[2] != 12*time.Millisecond {
		t.Errorf("Sleeps() = %v, want [4ms 0s 12ms]", sleeps)
	}
	if len(hooked) != 3 {
		t.Errorf("hook called %d times, want 3", len(hooked))
	}
}

func TestFakeTickerFiresPerInterval(t *testing.T) {
	clock := Fake(epoch)
	ticker := clock.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	clock.Advance(9 * time.Millisecond)
	select {
	case <-ticker.C:
		t.Fatal("ticker fired before its interval")
	default:
	}

	clock.Advance(1 * time.Millisecond)
	select {
	case fired := <-ticker.C:
		if want := epoch.Add(10 * time.Millisecond); !fired.Equal(want) {
			t.Errorf("tick time = %v, want %v", fired, want)
		}
	default:
		t.Fatal("ticker did not fire at its interval")
	}

	// Three intervals at once: the channel holds one tick, the rest
	// are dropped.
	clock.Advance(30 * time.Millisecond)
	<-ticker.C
	select {
	case <-ticker.C:
		t.Fatal("ticker queued more than one tick")
	default:
	}
}

func TestFakeTickerStop(t *testing.T) {
	clock := Fake(epoch)
	ticker := clock.NewTicker(time.Millisecond)
	ticker.Stop()
	clock.Advance(10 * time.Millisecond)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestWaitForTickers(t *testing.T) {
	clock := Fake(epoch)
	registered := make(chan struct{})
	go func() {
		clock.NewTicker(time.Second)
		close(registered)
	}()
	clock.WaitForTickers(1)
	<-registered
}

func TestNewTickerPanicsOnNonPositive(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewTicker(0) did not panic")
		}
	}()
	Fake(epoch).NewTicker(0)
}

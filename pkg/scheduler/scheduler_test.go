package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"tomorecon/pkg/logsink"
)

func testSink(t *testing.T) *logsink.Sink {
	t.Helper()
	s, err := logsink.Open("", 0)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestFabricRunsEveryUnitExactlyOnce(t *testing.T) {
	units := make([]int, 20)
	for i := range units {
		units[i] = i
	}
	var seen atomic.Int64
	exec := func(i int) int {
		seen.Add(1)
		return 1
	}
	unitCount := func(d int) int { return d }

	f := New(units, 4, len(units), exec, unitCount, testSink(t))
	waitComplete(t, f)

	if got := seen.Load(); got != int64(len(units)) {
		t.Fatalf("executed %d units, want %d", got, len(units))
	}
	if complete, remaining := f.Poll(); !complete || remaining != 0 {
		t.Fatalf("Poll() = (%v, %d), want (true, 0)", complete, remaining)
	}
}

func TestFabricMultiUnitResults(t *testing.T) {
	// Mirrors reconstruction pair-dispatch: a unit may contribute more
	// than one to the total count.
	units := []int{2, 2, 1}
	exec := func(i int) int { return i }
	unitCount := func(d int) int { return d }

	f := New(units, 2, 5, exec, unitCount, testSink(t))
	waitComplete(t, f)
	if complete, remaining := f.Poll(); !complete || remaining != 0 {
		t.Fatalf("Poll() = (%v, %d), want (true, 0)", complete, remaining)
	}
}

func TestFabricAbortStopsNewWork(t *testing.T) {
	units := make([]int, 100)
	var seen atomic.Int64
	started := make(chan struct{}, 1)
	exec := func(i int) int {
		seen.Add(1)
		select {
		case started <- struct{}{}:
		default:
		}
		time.Sleep(5 * time.Millisecond)
		return 1
	}
	unitCount := func(d int) int { return d }

	f := New(units, 2, len(units), exec, unitCount, testSink(t))
	<-started
	f.Abort()
	f.Close()

	if got := seen.Load(); got >= int64(len(units)) {
		t.Fatalf("executed %d of %d units after an immediate abort, want fewer", got, len(units))
	}
}

func TestFabricCloseIsIdempotentWithAbort(t *testing.T) {
	f := New([]int{1, 2, 3}, 2, 3, func(i int) int { return i }, func(d int) int { return d }, testSink(t))
	f.Abort()
	f.Abort()
	f.Close()
	f.Close()
}

func waitComplete(t *testing.T, f *Fabric[int, int]) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if complete, _ := f.Poll(); complete {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("fabric did not complete within the deadline")
}

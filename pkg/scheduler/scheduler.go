// Package scheduler is the two-queue supervisor/worker dispatch
// fabric shared by the reconstruction and preprocess job facades: a
// bounded to-do queue the constructor seeds and workers drain with a
// non-blocking receive, a bounded done queue workers post to with a
// non-blocking send, one done signal per worker, and a supervisor that
// tallies completions until the unit count reaches zero or the job is
// aborted.
//
// It generalizes the ad hoc channel/WaitGroup fan-out the teacher uses
// in pkg/reconstruction's processSubVolumesInParallel into a named,
// reusable type, in the shape of tomoSupervisor/tomoWorker in
// original_source/tomoReconApp/src/tomoRecon.cpp and
// tomoPreprocess.cpp — and of the try-send/try-receive scheduler loops
// in sandeepkv93-concurrency-in-golang/concurrentjobscheduler and
// workstealingscheduler.
package scheduler

import (
	"sync/atomic"
	"time"

	"tomorecon/pkg/logsink"
)

// workerTimeout is the supervisor's per-worker join timeout, and also
// the interval at which it re-checks the shutdown flag while waiting
// for done messages. Matches the 1 s timeout in tomoSupervisor.
const workerTimeout = time.Second

// Fabric runs numWorkers workers over a pre-seeded to-do queue of U
// values, each executed by exec into a D result whose unitCount(result)
// contributes toward the total unit count passed to New.
type Fabric[U, D any] struct {
	todo chan U
	done chan D

	exec      func(U) D
	unitCount func(D) int

	remaining      atomic.Int64
	complete       atomic.Bool
	shutdown       atomic.Bool
	workerDone     []chan struct{}
	supervisorDone chan struct{}

	log *logsink.Sink
}

// New seeds the to-do queue with units, spawns the supervisor and
// numWorkers workers, and returns immediately; the fabric runs in the
// background. totalUnits is the sum of unitCount(result) the caller expects
// across all units (for reconstruction, up to 2 per pair; for
// preprocess, always 1 per unit).
func New[U, D any](units []U, numWorkers, totalUnits int, exec func(U) D, unitCount func(D) int, log *logsink.Sink) *Fabric[U, D] {
	f := &Fabric[U, D]{
		todo:           make(chan U, len(units)),
		done:           make(chan D, len(units)),
		exec:           exec,
		unitCount:      unitCount,
		workerDone:     make([]chan struct{}, numWorkers),
		supervisorDone: make(chan struct{}),
		log:            log,
	}
	f.remaining.Store(int64(totalUnits))
	for _, u := range units {
		select {
		case f.todo <- u:
		default:
			log.Logf("scheduler: to-do queue full, dropping a unit")
		}
	}
	for i := range f.workerDone {
		f.workerDone[i] = make(chan struct{})
	}
	go f.supervisorLoop()
	for i := 0; i < numWorkers; i++ {
		go f.workerLoop(i)
	}
	return f
}

func (f *Fabric[U, D]) workerLoop(idx int) {
	defer close(f.workerDone[idx])
	for {
		var unit U
		select {
		case v, ok := <-f.todo:
			if !ok {
				return
			}
			unit = v
		default:
			return
		}
		result := f.exec(unit)
		select {
		case f.done <- result:
		default:
			f.log.Logf("scheduler: done queue full, dropping a result")
		}
		if f.shutdown.Load() {
			return
		}
	}
}

func (f *Fabric[U, D]) supervisorLoop() {
	for f.remaining.Load() > 0 {
		if f.shutdown.Load() {
			break
		}
		select {
		case d := <-f.done:
			f.remaining.Add(-int64(f.unitCount(d)))
		case <-time.After(workerTimeout):
			f.log.Debugf(1, "scheduler: timeout waiting for a worker result")
		}
	}
	f.complete.Store(true)
	for i, ch := range f.workerDone {
		select {
		case <-ch:
		case <-time.After(workerTimeout):
			f.log.Logf("scheduler: worker %d did not exit within %s", i, workerTimeout)
		}
	}
	close(f.supervisorDone)
}

// Poll is a non-blocking snapshot of job status.
func (f *Fabric[U, D]) Poll() (complete bool, remaining int) {
	return f.complete.Load(), int(f.remaining.Load())
}

// Abort requests cancellation. Safe to call any number of times; units
// already in flight complete but no new ones start.
func (f *Fabric[U, D]) Abort() {
	f.shutdown.Store(true)
}

// Close aborts the fabric if it has not already finished and blocks
// until the supervisor has joined every worker.
func (f *Fabric[U, D]) Close() {
	f.Abort()
	<-f.supervisorDone
}

package preprocess

import (
	"testing"
	"time"

	"tomorecon/internal/models"
	"tomorecon/pkg/logsink"
)

func TestJobProcessesEveryProjection(t *testing.T) {
	log, err := logsink.Open("", 0)
	if err != nil {
		t.Fatal(err)
	}
	params := models.PreprocessParams{
		NumPixels:       2,
		NumSlices:       2,
		NumProjections:  3,
		NumThreads:      2,
		ScaleFactor:     1,
		ZingerWidth:     0,
		ZingerThreshold: 1,
		OutputUint16:    true,
	}
	raw := make([][]uint16, params.NumProjections)
	out := make([][]byte, params.NumProjections)
	for i := range raw {
		raw[i] = []uint16{1, 2, 3, 4}
		out[i] = make([]byte, 4*2)
	}

	job, err := NewJob(params, raw, nil, nil, out, log)
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if complete, _ := job.Poll(); complete {
			break
		}
		time.Sleep(time.Millisecond)
	}
	complete, remaining := job.Poll()
	if !complete || remaining != 0 {
		t.Fatalf("Poll() = (%v, %d), want (true, 0)", complete, remaining)
	}
	job.Close()

	for i, buf := range out {
		allZero := true
		for _, b := range buf {
			if b != 0 {
				allZero = false
			}
		}
		if allZero {
			t.Errorf("projection %d: output never written", i)
		}
	}
}

func TestNewJobRejectsMismatchedLengths(t *testing.T) {
	log, _ := logsink.Open("", 0)
	params := models.PreprocessParams{NumPixels: 2, NumSlices: 1, NumProjections: 2, NumThreads: 1, ScaleFactor: 1}
	raw := [][]uint16{{1, 2}} // only one projection, want two
	out := [][]byte{{0, 0}, {0, 0}}
	if _, err := NewJob(params, raw, nil, nil, out, log); err == nil {
		t.Fatal("expected an error for a raw/NumProjections mismatch")
	}
}

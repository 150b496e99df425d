package preprocess

import (
	"fmt"

	"tomorecon/internal/models"
	"tomorecon/pkg/logsink"
	"tomorecon/pkg/scheduler"
)

// Job drives one preprocess run: one to-do unit per projection,
// dispatched across Params.NumThreads workers by a scheduler.Fabric.
type Job struct {
	fabric *scheduler.Fabric[models.PreprocessToDo, models.PreprocessDone]
	log    *logsink.Sink
	params models.PreprocessParams
}

// NewJob builds and seeds a preprocess job. raw holds one
// NumPixels*NumSlices frame per projection (len(raw) ==
// params.NumProjections); dark and flat are single NumPixels*NumSlices
// frames shared across every projection, or nil. out holds one buffer
// per projection (len(out) == params.NumProjections), each already
// sized to hold that projection's encoded output (2 bytes/pixel for
// uint16, 4 for float32); workers write directly into those buffers.
func NewJob(params models.PreprocessParams, raw [][]uint16, dark, flat []float32, out [][]byte, log *logsink.Sink) (*Job, error) {
	if len(raw) != params.NumProjections {
		return nil, fmt.Errorf("preprocess: raw has %d projections, want %d", len(raw), params.NumProjections)
	}
	if len(out) != params.NumProjections {
		return nil, fmt.Errorf("preprocess: out has %d projections, want %d", len(out), params.NumProjections)
	}
	frameLen := params.NumPixels * params.NumSlices
	if params.ScaleFactor == 1 {
		log.Logf("preprocess: scaleFactor=1.0, output is dark/flat-corrected but not rescaled")
	}

	units := make([]models.PreprocessToDo, params.NumProjections)
	for i := range units {
		if len(raw[i]) != frameLen {
			return nil, fmt.Errorf("preprocess: projection %d has %d pixels, want %d", i, len(raw[i]), frameLen)
		}
		units[i] = models.PreprocessToDo{
			ProjectionNumber: i,
			In:               raw[i],
			Out:              out[i],
		}
	}

	numWorkers := params.NumThreads
	if numWorkers < 1 {
		numWorkers = 1
	}

	exec := func(u models.PreprocessToDo) models.PreprocessDone {
		return runUnit(params, u, dark, flat, log)
	}
	unitCount := func(models.PreprocessDone) int { return 1 }

	j := &Job{
		log:    log,
		params: params,
	}
	j.fabric = scheduler.New(units, numWorkers, params.NumProjections, exec, unitCount, log)
	return j, nil
}

func runUnit(p models.PreprocessParams, u models.PreprocessToDo, dark, flat []float32, log *logsink.Sink) models.PreprocessDone {
	frame := make([]float32, p.NumPixels*p.NumSlices)
	Normalize(p, u.In, dark, flat, frame)
	replaced := RemoveZingers(p, frame, p.NumPixels, p.NumSlices)
	encodeFrame(p, frame, u.Out)
	log.Debugf(2, "preprocess: projection %d done, %d zingers replaced", u.ProjectionNumber, replaced)
	return models.PreprocessDone{
		ProjectionNumber: u.ProjectionNumber,
		ZingersReplaced:  replaced,
	}
}

// Poll is a non-blocking snapshot of job status: complete reports
// whether every projection has finished, remaining is the number of
// projections still outstanding.
func (j *Job) Poll() (complete bool, remaining int) {
	return j.fabric.Poll()
}

// Abort requests cancellation; projections already in flight finish
// but no new ones start.
func (j *Job) Abort() {
	j.fabric.Abort()
}

// Close blocks until the job's workers and supervisor have exited.
func (j *Job) Close() {
	j.fabric.Close()
}

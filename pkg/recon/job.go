// Package recon is the C7 reconstruction job facade: it pairs
// consecutive slices sharing a rotation center, builds one
// gridrec.Engine per worker thread, and drives them with a
// scheduler.Fabric — the Go-native equivalent of tomoRecon's
// constructor/supervisorTask/workerTask split in
// original_source/tomoReconApp/src/tomoRecon.cpp.
package recon

import (
	"fmt"
	"time"

	"tomorecon/internal/models"
	"tomorecon/pkg/fft"
	"tomorecon/pkg/filter"
	"tomorecon/pkg/gridrec"
	"tomorecon/pkg/logsink"
	"tomorecon/pkg/pswf"
	"tomorecon/pkg/scheduler"
	"tomorecon/pkg/sinogram"
)

// Job drives one reconstruction run to completion.
type Job struct {
	fabric    *scheduler.Fabric[models.ReconToDo, models.ReconDone]
	log       *logsink.Sink
	params    models.ReconParams
	ImageSize int
}

// NewJob builds and seeds a reconstruction job. rawSlices holds one
// NumProjections*NumPixels raw pixel buffer per slice (len(rawSlices)
// == params.NumSlices); images receives one ImageSize*ImageSize
// float32 buffer per slice, sized by the caller beforehand using the
// ImageSize function (the Job's ImageSize field holds the same value).
// angles is used only when params.Geom is
// GeomAngleArray.
func NewJob(params models.ReconParams, angles []float64, rawSlices [][]float32, images [][]float32, log *logsink.Sink) (*Job, error) {
	if len(rawSlices) != params.NumSlices {
		return nil, fmt.Errorf("recon: rawSlices has %d slices, want %d", len(rawSlices), params.NumSlices)
	}
	if len(images) != params.NumSlices {
		return nil, fmt.Errorf("recon: images has %d slices, want %d", len(images), params.NumSlices)
	}

	sinoParams, geom, gridParams, resolvedFilter, fallback, err := buildGridConfig(params, angles)
	if err != nil {
		return nil, err
	}
	if fallback {
		log.Logf("recon: unknown filter %q, falling back to %q", params.FilterName, resolvedFilter)
	}

	numWorkers := params.NumThreads
	if numWorkers < 1 {
		numWorkers = 1
	}

	fftFacade := fft.New()
	fftFacade.Warm(params.PaddedSinogramWidth)

	// One Engine per worker, checked out of a pool by channel rather
	// than shared: gridrec.Engine is reused across Recon calls but not
	// safe for concurrent use, the same one-grid-object-per-thread
	// discipline tomoWorker::workerTask applies when it builds its grid
	// under the plan mutex.
	enginePool := make(chan *gridrec.Engine, numWorkers)
	var imageSize int
	for i := 0; i < numWorkers; i++ {
		e, size, err := gridrec.New(fftFacade, gridParams, geom)
		if err != nil {
			return nil, err
		}
		imageSize = size
		enginePool <- e
	}
	fftFacade.Warm(imageSize)

	sinOffset := float64(sinoParams.SinOffset())
	units := make([]models.ReconToDo, 0, (params.NumSlices+1)/2)
	for i := 0; i < params.NumSlices; i += 2 {
		pairIdx := i / 2
		center := params.CenterOffset + float64(pairIdx)*params.CenterSlope*2 + sinOffset
		u := models.ReconToDo{
			SliceNumber: i,
			Center:      center,
			In1:         rawSlices[i],
			Out1:        images[i],
		}
		if i+1 < params.NumSlices {
			u.In2 = rawSlices[i+1]
			u.Out2 = images[i+1]
		}
		units = append(units, u)
	}

	exec := func(u models.ReconToDo) models.ReconDone {
		e := <-enginePool
		defer func() { enginePool <- e }()
		return runUnit(sinoParams, e, u, log)
	}
	unitCount := func(d models.ReconDone) int { return d.NumSlices }

	j := &Job{log: log, params: params, ImageSize: imageSize}
	j.fabric = scheduler.New(units, numWorkers, params.NumSlices, exec, unitCount, log)
	return j, nil
}

// ImageSize computes the reconstructed image's side length for params
// without constructing a full job. Callers use this to size their
// output buffers before calling NewJob.
func ImageSize(params models.ReconParams, angles []float64) (int, error) {
	_, geom, gridParams, _, _, err := buildGridConfig(params, angles)
	if err != nil {
		return 0, err
	}
	_, size, err := gridrec.New(fft.New(), gridParams, geom)
	return size, err
}

func buildGridConfig(params models.ReconParams, angles []float64) (sinogram.Params, gridrec.SinogramGeometry, gridrec.Params, string, bool, error) {
	pswfParams, err := pswf.Get(params.PswfParam)
	if err != nil {
		return sinogram.Params{}, gridrec.SinogramGeometry{}, gridrec.Params{}, "", false, err
	}
	filterFn, resolvedFilter, fallback := filter.Get(params.FilterName)

	sinoParams := sinogram.Params{
		NumPixels:      params.NumPixels,
		NumProjections: params.NumProjections,
		PaddedWidth:    params.PaddedSinogramWidth,
		AirPixels:      params.AirPixels,
		RingWidth:      params.RingWidth,
		Fluorescence:   params.Fluorescence,
	}
	geom := gridrec.SinogramGeometry{
		NumAngles: params.NumProjections,
		NumDet:    params.PaddedSinogramWidth,
		Geom:      params.Geom,
		Angles:    angles,
	}
	gridParams := gridrec.Params{
		Pswf:       pswfParams,
		Filter:     filterFn,
		FilterName: resolvedFilter,
		Sampl:      params.Sampl,
		MaxPixSize: params.MaxPixSize,
		ROIRelSize: params.ROIRelSize,
		X0:         params.X0,
		Y0:         params.Y0,
		Ltbl:       params.Ltbl,
	}
	return sinoParams, geom, gridParams, resolvedFilter, fallback, nil
}

func runUnit(sp sinogram.Params, e *gridrec.Engine, u models.ReconToDo, log *logsink.Sink) models.ReconDone {
	start := time.Now()
	rows1 := splitRows(u.In1, sp.NumProjections, sp.NumPixels)
	sino1 := sinogram.Build(sp, rows1)

	var sino2 []float32
	numSlices := 1
	if u.In2 != nil {
		rows2 := splitRows(u.In2, sp.NumProjections, sp.NumPixels)
		sino2 = sinogram.Build(sp, rows2)
		numSlices = 2
	}
	sinoTime := time.Since(start).Seconds()

	rstart := time.Now()
	if err := e.Recon(u.Center, sino1, sino2, u.Out1, u.Out2); err != nil {
		log.Logf("recon: slice %d: %v", u.SliceNumber, err)
	}
	reconTime := time.Since(rstart).Seconds()

	return models.ReconDone{
		SliceNumber:  u.SliceNumber,
		NumSlices:    numSlices,
		SinogramTime: sinoTime,
		ReconTime:    reconTime,
	}
}

func splitRows(flat []float32, numProj, numPixels int) [][]float32 {
	rows := make([][]float32, numProj)
	for i := range rows {
		rows[i] = flat[i*numPixels : (i+1)*numPixels]
	}
	return rows
}

// Poll is a non-blocking snapshot of job status: complete reports
// whether every slice has finished, remaining is the number of slices
// still outstanding.
func (j *Job) Poll() (complete bool, remaining int) {
	return j.fabric.Poll()
}

// Abort requests cancellation; slice pairs already in flight finish
// but no new ones start.
func (j *Job) Abort() {
	j.fabric.Abort()
}

// Close blocks until the job's workers and supervisor have exited.
func (j *Job) Close() {
	j.fabric.Close()
}

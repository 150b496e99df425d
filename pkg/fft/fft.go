// Package fft is the FFT facade used by the Gridrec engine: 1-D and
// 2-D complex FFT in place, with plans cached by transform size and
// plan *creation* serialized behind a mutex. Execution is safe for
// concurrent callers once a plan exists, provided each call operates
// on its own data buffer.
//
// It is built on gonum.org/v1/gonum/dsp/fourier, the same FFT
// dependency the teacher's shearlet package uses for its row/column
// transform.
package fft

import (
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Direction selects the transform direction.
type Direction int

const (
	Forward Direction = iota
	Inverse
)

// Facade caches gonum complex-FFT plans by length and serializes plan
// creation. Each Facade's mutex acts as the plan mutex for the callers
// that share that Facade: gonum's FFT construction touches no global
// state, but the contract callers depend on (new sizes plan once, under
// lock) is preserved regardless of the underlying library.
type Facade struct {
	mu    sync.Mutex
	plans map[int]*fourier.CmplxFFT
}

// New returns an empty plan cache.
func New() *Facade {
	return &Facade{plans: make(map[int]*fourier.CmplxFFT)}
}

// planFor returns the cached plan for n, creating and caching it under
// the facade's mutex if this is the first request for that size.
func (f *Facade) planFor(n int) *fourier.CmplxFFT {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plans[n]
	if !ok {
		p = fourier.NewCmplxFFT(n)
		f.plans[n] = p
	}
	return p
}

// Warm forces plan creation for n without performing a transform, so a
// worker can pre-create every plan size it will need before entering
// its hot loop.
func (f *Facade) Warm(n int) {
	f.planFor(n)
}

// FFT1D transforms data in place. len(data) selects the plan.
func (f *Facade) FFT1D(data []complex128, dir Direction) {
	p := f.planFor(len(data))
	switch dir {
	case Forward:
		p.Coefficients(data, data)
	case Inverse:
		// gonum's Sequence is unnormalized, which is the facade
		// contract: the caller folds scaling into its own
		// phase/correction tables.
		p.Sequence(data, data)
	}
}

// FFT2D transforms an nx*ny row-major complex buffer in place, applying
// the 1-D transform to every row and then to every column (the
// standard separable implementation of a 2-D DFT).
func (f *Facade) FFT2D(data []complex128, nx, ny int, dir Direction) {
	row := make([]complex128, nx)
	for y := 0; y < ny; y++ {
		base := y * nx
		copy(row, data[base:base+nx])
		f.FFT1D(row, dir)
		copy(data[base:base+nx], row)
	}
	col := make([]complex128, ny)
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			col[y] = data[y*nx+x]
		}
		f.FFT1D(col, dir)
		for y := 0; y < ny; y++ {
			data[y*nx+x] = col[y]
		}
	}
}

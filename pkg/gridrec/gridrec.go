// Package gridrec implements the direct-Fourier (Gridrec) CT
// reconstruction kernel: two sinograms in, two images out, by
// 1-D FFT of every projection row, polar-to-Cartesian gridding with a
// PSWF convolvent, a 2-D inverse FFT, and post-FFT inverse-correction.
//
// One Engine is constructed per worker and reused across many Recon
// calls (its scratch buffers are the "per-worker scratch"; FFT plans
// come from the fft.Facade passed to New, which callers may share
// between engines); Recon is not safe to call concurrently on the same
// Engine.
package gridrec

import (
	"fmt"
	"math"

	"tomorecon/internal/models"
	"tomorecon/pkg/filter"
	"tomorecon/pkg/fft"
	"tomorecon/pkg/pswf"
)

// tolerance is the maximum center shift, in pixels, that reuses the
// cached filter-phase table instead of rebuilding it.
const tolerance = 0.1

// convolSupport is the convolvent's half-width, in oversampled grid
// units.
const convolSupport = 3.0

// Params configures one Engine.
type Params struct {
	Pswf       pswf.Params
	Filter     filter.Func
	FilterName string // resolved name, for diagnostics only
	Sampl      float64
	MaxPixSize float64
	ROIRelSize float64
	X0, Y0     float64
	Ltbl       int
}

// SinogramGeometry describes the angular sampling of the sinograms an
// Engine will reconstruct.
type SinogramGeometry struct {
	NumAngles int
	NumDet    int // padded sinogram width
	Geom      models.Geometry
	Angles    []float64 // degrees; used when Geom == GeomAngleArray
	Center    float64
}

// Engine reconstructs sinogram pairs into image pairs.
type Engine struct {
	fft    *fft.Facade
	params Params
	geom   SinogramGeometry

	numAng, numDet int
	m              int // FFT plane size (M in the specification)
	imageSize      int
	ltbl, linv     int

	sine, cose        []float64
	wtbl, dwtbl, winv []float64

	// cproj is reused across angles within one Recon call.
	cproj []complex128
	// filphase[i*halfLen+k] is the filter*phase coefficient for angle i,
	// frequency bin k.
	filphase       []complex128
	halfLen        int
	havePhase      bool
	previousCenter float64

	h1, h2 []complex128 // M*M scratch planes, reused across Recon calls
}

// New constructs an Engine. Returns imageSize, the side length of the
// square images Recon will produce.
func New(fftFacade *fft.Facade, p Params, geom SinogramGeometry) (*Engine, int, error) {
	if geom.Geom == models.GeomAngleArray && len(geom.Angles) != geom.NumAngles {
		return nil, 0, fmt.Errorf("gridrec: angles length %d != NumAngles %d", len(geom.Angles), geom.NumAngles)
	}
	if p.Sampl <= 0 {
		return nil, 0, fmt.Errorf("gridrec: Sampl must be > 0")
	}
	roi := p.ROIRelSize
	if roi <= 0 {
		roi = 1
	}
	base := geom.NumDet
	if alt := int(math.Ceil(2 * roi * float64(geom.NumDet))); alt > base {
		base = alt
	}
	m := nextPow2(int(math.Ceil(p.Sampl * float64(base))))
	imageSize := int(math.Round(float64(m) / p.Sampl))
	if imageSize < 1 {
		imageSize = 1
	}

	ltbl := p.Ltbl
	if ltbl <= 0 {
		ltbl = 512
	}
	linv := imageSize / 2
	if linv < 1 {
		linv = 1
	}

	e := &Engine{
		fft:       fftFacade,
		params:    p,
		geom:      geom,
		numAng:    geom.NumAngles,
		numDet:    geom.NumDet,
		m:         m,
		imageSize: imageSize,
		ltbl:      ltbl,
		linv:      linv,
		wtbl:      make([]float64, ltbl+1),
		dwtbl:     make([]float64, ltbl+1),
		winv:      make([]float64, linv+1),
		cproj:     make([]complex128, geom.NumDet),
		h1:        make([]complex128, m*m),
		h2:        make([]complex128, m*m),
	}
	pswf.Setup(p.Pswf, ltbl, linv, e.wtbl, e.dwtbl, e.winv)
	e.buildTrigTables()
	e.halfLen = geom.NumDet/2 + 1
	e.filphase = make([]complex128, e.numAng*e.halfLen)
	return e, imageSize, nil
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (e *Engine) buildTrigTables() {
	e.sine = make([]float64, e.numAng)
	e.cose = make([]float64, e.numAng)
	angles := e.angleRadians()
	for i, a := range angles {
		e.sine[i] = math.Sin(a)
		e.cose[i] = math.Cos(a)
	}
}

func (e *Engine) angleRadians() []float64 {
	switch e.geom.Geom {
	case models.GeomHalfCircle:
		out := make([]float64, e.numAng)
		for i := range out {
			out[i] = math.Pi * float64(i) / float64(e.numAng)
		}
		return out
	case models.GeomFullCircle:
		out := make([]float64, e.numAng)
		for i := range out {
			out[i] = 2 * math.Pi * float64(i) / float64(e.numAng)
		}
		return out
	default:
		out := make([]float64, len(e.geom.Angles))
		for i, a := range e.geom.Angles {
			out[i] = a * math.Pi / 180
		}
		return out
	}
}

// rebuildPhase recomputes the filter*phase coefficient table for a new
// rotation center: |omega| ramp weighting, the configured apodization,
// the rotation-center phase ramp, and the oversampling scale.
func (e *Engine) rebuildPhase(center float64) {
	scale := e.params.Sampl / float64(e.numDet)
	shift := center - float64(e.numDet)/2
	for k := 0; k < e.halfLen; k++ {
		norm := float64(k) / float64(e.numDet/2)
		ramp := float64(k) * scale
		ap := e.params.Filter(norm)
		mag := ramp * ap
		theta := -2 * math.Pi * float64(k) * shift / float64(e.numDet)
		ph := complex(math.Cos(theta)*mag, math.Sin(theta)*mag)
		for i := 0; i < e.numAng; i++ {
			e.filphase[i*e.halfLen+k] = ph
		}
	}
}

// Recon reconstructs the image pair for sinograms s1/s2 (each
// numAngles*numDet, row-major) at rotation center. s2/r2 may be nil to
// disable the second channel: with s2 nil the second channel is not
// gridded, and with r2 nil its inverse FFT and extraction are skipped.
func (e *Engine) Recon(center float64, s1, s2 []float32, r1, r2 []float32) error {
	if len(s1) != e.numAng*e.numDet {
		return fmt.Errorf("gridrec: s1 length %d != %d", len(s1), e.numAng*e.numDet)
	}
	if s2 != nil && len(s2) != e.numAng*e.numDet {
		return fmt.Errorf("gridrec: s2 length %d != %d", len(s2), e.numAng*e.numDet)
	}
	if !e.havePhase || math.Abs(center-e.previousCenter) > tolerance {
		e.rebuildPhase(center)
		e.previousCenter = center
		e.havePhase = true
	}
	clear(e.h1)
	clear(e.h2)

	half := e.m / 2
	for i := 0; i < e.numAng; i++ {
		row1 := s1[i*e.numDet : (i+1)*e.numDet]
		var row2 []float32
		if s2 != nil {
			row2 = s2[i*e.numDet : (i+1)*e.numDet]
		}
		for j := 0; j < e.numDet; j++ {
			im := float32(0)
			if row2 != nil {
				im = row2[j]
			}
			e.cproj[j] = complex(float64(row1[j]), float64(im))
		}
		e.fft.FFT1D(e.cproj, fft.Forward)

		cosT, sinT := e.cose[i], e.sine[i]
		for k := 0; k < e.halfLen; k++ {
			kc := (e.numDet - k) % e.numDet
			x := (e.cproj[k] + cmplxConj(e.cproj[kc])) / 2
			y := (e.cproj[k] - cmplxConj(e.cproj[kc])) / complex(0, 2)
			ph := e.filphase[i*e.halfLen+k]
			x *= ph
			y *= ph

			// At k==0, and at the Nyquist bin when numDet is even,
			// kc==k: the bin is its own conjugate partner. At k==0 the
			// mirror accumulate below lands on the same grid cell as
			// the primary one (u,v both equal half), which would
			// double-count that angle's contribution; halving here
			// keeps the sum at that cell correct, and does the same
			// for the Nyquist bin's pair of cells.
			if k == 0 || (e.numDet%2 == 0 && k == e.numDet/2) {
				x /= 2
				y /= 2
			}

			u := float64(half) + float64(k)*cosT
			v := float64(half) + float64(k)*sinT
			e.accumulate(e.h1, u, v, x)
			e.accumulate(e.h1, 2*float64(half)-u, 2*float64(half)-v, cmplxConj(x))
			if row2 != nil {
				e.accumulate(e.h2, u, v, y)
				e.accumulate(e.h2, 2*float64(half)-u, 2*float64(half)-v, cmplxConj(y))
			}
		}
	}

	e.fft.FFT2D(e.h1, e.m, e.m, fft.Inverse)
	if r2 != nil {
		e.fft.FFT2D(e.h2, e.m, e.m, fft.Inverse)
	}

	scale := e.params.Sampl * e.params.Sampl / float64(e.m*e.m)
	sinOff := (e.imageSize) / 2
	e.extract(e.h1, r1, scale, sinOff)
	if r2 != nil {
		e.extract(e.h2, r2, scale, sinOff)
	}
	return nil
}

func (e *Engine) extract(h []complex128, dst []float32, scale float64, half int) {
	origin := e.m/2 - half
	for y := 0; y < e.imageSize; y++ {
		wy := e.winvAt(y - half)
		srcY := wrapIdx(origin+y, e.m)
		for x := 0; x < e.imageSize; x++ {
			wx := e.winvAt(x - half)
			srcX := wrapIdx(origin+x, e.m)
			v := real(h[srcY*e.m+srcX])
			dst[y*e.imageSize+x] = float32(v * scale * wx * wy)
		}
	}
}

func (e *Engine) winvAt(offset int) float64 {
	a := offset
	if a < 0 {
		a = -a
	}
	if a > e.linv {
		a = e.linv
	}
	return e.winv[a]
}

func (e *Engine) accumulate(h []complex128, u, v float64, val complex128) {
	iu0 := int(math.Ceil(u - convolSupport))
	iu1 := int(math.Floor(u + convolSupport))
	iv0 := int(math.Ceil(v - convolSupport))
	iv1 := int(math.Floor(v + convolSupport))
	for iv := iv0; iv <= iv1; iv++ {
		gv := e.convolvent(v - float64(iv))
		if gv == 0 {
			continue
		}
		row := wrapIdx(iv, e.m) * e.m
		for iu := iu0; iu <= iu1; iu++ {
			gu := e.convolvent(u - float64(iu))
			if gu == 0 {
				continue
			}
			h[row+wrapIdx(iu, e.m)] += val * complex(gu*gv, 0)
		}
	}
}

func (e *Engine) convolvent(d float64) float64 {
	ad := math.Abs(d)
	if ad > convolSupport {
		return 0
	}
	frac := ad / convolSupport * float64(e.ltbl)
	idx := int(frac)
	if idx > e.ltbl {
		idx = e.ltbl
	}
	return e.wtbl[idx]
}

func wrapIdx(i, m int) int {
	i %= m
	if i < 0 {
		i += m
	}
	return i
}

func cmplxConj(c complex128) complex128 {
	return complex(real(c), -imag(c))
}

func clear(s []complex128) {
	for i := range s {
		s[i] = 0
	}
}

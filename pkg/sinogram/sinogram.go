// Package sinogram builds a padded, normalized sinogram for one
// detector row from a strided view of raw projection data: air-pixel
// normalization, the -log transform (or a direct copy for
// fluorescence data), and ring-artifact suppression.
//
// Grounded on tomoWorker::sinogram in
// original_source/tomoReconApp/src/tomoRecon.cpp for the per-column
// normalize/log step, generalized to the column-wise (not
// projection-index) air interpolation the specification calls for.
package sinogram

import "math"

// Params configures one Build call. It mirrors the sinogram-relevant
// subset of a reconstruction job's parameters.
type Params struct {
	NumPixels      int
	NumProjections int
	PaddedWidth    int
	AirPixels      int
	RingWidth      int
	Fluorescence   bool
}

// ImplicitAir is the documented constant air value used when
// AirPixels is 0.
const ImplicitAir = 1e4

// SinOffset returns the left zero-padding width: (PaddedWidth -
// NumPixels) / 2. Always derived from PaddedWidth, never from a
// post-construction imageSize (the resolved Open Question in the
// specification).
func (p Params) SinOffset() int {
	off := (p.PaddedWidth - p.NumPixels) / 2
	if off < 0 {
		return 0
	}
	return off
}

// Build constructs one padded NumProjections x PaddedWidth sinogram.
// rows[i] must have length NumPixels and holds the i-th projection's
// pixel row for this detector row.
func Build(p Params, rows [][]float32) []float32 {
	out := make([]float32, p.NumProjections*p.PaddedWidth)
	BuildInto(p, rows, out)
	return out
}

// BuildInto is Build without the allocation, for workers that reuse a
// scratch buffer across to-do units. out must have length
// NumProjections*PaddedWidth and is zeroed outside the padded window
// on return.
func BuildInto(p Params, rows [][]float32, out []float32) {
	for i := range out {
		out[i] = 0
	}
	sinOffset := p.SinOffset()
	air := make([]float32, p.NumPixels)
	for i := 0; i < p.NumProjections && i < len(rows); i++ {
		row := rows[i]
		fillAir(p, row, air)
		dst := out[i*p.PaddedWidth:]
		if p.Fluorescence {
			for j := 0; j < p.NumPixels; j++ {
				dst[sinOffset+j] = row[j]
			}
			continue
		}
		for j := 0; j < p.NumPixels; j++ {
			ratio := float64(row[j]) / float64(air[j])
			if ratio <= 0 {
				ratio = 1
			}
			dst[sinOffset+j] = float32(-math.Log(ratio))
		}
	}
	if p.RingWidth > 0 {
		suppressRings(p, out)
		for i := 0; i < p.NumProjections; i++ {
			row := out[i*p.PaddedWidth : (i+1)*p.PaddedWidth]
			for j := range row {
				if j < sinOffset || j >= sinOffset+p.NumPixels {
					row[j] = 0
				}
			}
		}
	}
}

func fillAir(p Params, row, air []float32) {
	if p.AirPixels <= 0 {
		for j := range air {
			air[j] = ImplicitAir
		}
		return
	}
	n := p.AirPixels
	if n > p.NumPixels {
		n = p.NumPixels
	}
	var airLeft, airRight float64
	for j := 0; j < n; j++ {
		airLeft += float64(row[j])
		airRight += float64(row[p.NumPixels-1-j])
	}
	airLeft /= float64(n)
	airRight /= float64(n)
	if airLeft <= 0 {
		airLeft = 1
	}
	if airRight <= 0 {
		airRight = 1
	}
	slope := (airRight - airLeft) / float64(p.NumPixels-1)
	for j := 0; j < p.NumPixels; j++ {
		air[j] = float32(airLeft + slope*float64(j))
	}
}

// suppressRings cancels stationary per-column detector bias: it
// computes the average row over all projections, smooths that average
// with a centered box filter of width RingWidth, and subtracts the
// (average - smoothed) residual from every row in place.
func suppressRings(p Params, sino []float32) {
	avg := make([]float64, p.PaddedWidth)
	for i := 0; i < p.NumProjections; i++ {
		row := sino[i*p.PaddedWidth : (i+1)*p.PaddedWidth]
		for j, v := range row {
			avg[j] += float64(v)
		}
	}
	n := float64(p.NumProjections)
	for j := range avg {
		avg[j] /= n
	}
	smoothed := boxFilter(avg, p.RingWidth)
	diff := make([]float64, p.PaddedWidth)
	for j := range diff {
		diff[j] = avg[j] - smoothed[j]
	}
	for i := 0; i < p.NumProjections; i++ {
		row := sino[i*p.PaddedWidth : (i+1)*p.PaddedWidth]
		for j := range row {
			row[j] -= float32(diff[j])
		}
	}
}

func boxFilter(in []float64, width int) []float64 {
	out := make([]float64, len(in))
	half := width / 2
	for i := range in {
		var sum float64
		var count int
		for k := -half; k <= half; k++ {
			idx := i + k
			if idx < 0 || idx >= len(in) {
				continue
			}
			sum += in[idx]
			count++
		}
		if count > 0 {
			out[i] = sum / float64(count)
		}
	}
	return out
}

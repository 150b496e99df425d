// Package preprocess implements per-projection dark/flat normalization
// and zinger (impulsive-pixel) removal.
//
// Normalize is grounded on tomoWorker::workerTask's normalize loop in
// original_source/tomoReconApp/src/tomoPreprocess.cpp
// (pOut[i] = scaleFactor_ * (pIn[i] - pDark_[i]) / pFlat_[i]); that
// revision's zinger pass is a stub, so RemoveZingers is built from the
// specification's tiled-median description rather than copied source.
package preprocess

import (
	"encoding/binary"
	"math"
	"sort"

	"tomorecon/internal/models"
)

// Normalize applies scaleFactor*(raw-dark)/flat element-wise into out.
// dark and flat may be nil, standing in for an all-zero dark frame and
// an all-one flat frame respectively. A flat value of zero is treated
// as one to avoid dividing by zero, matching the original's tolerance
// for dead detector pixels.
func Normalize(p models.PreprocessParams, raw []uint16, dark, flat []float32, out []float32) {
	for i, v := range raw {
		d := float32(0)
		if dark != nil {
			d = dark[i]
		}
		f := float32(1)
		if flat != nil && flat[i] != 0 {
			f = flat[i]
		}
		out[i] = float32(p.ScaleFactor) * (float32(v) - d) / f
	}
}

// RemoveZingers scans a height x width frame in ZingerWidth x
// ZingerWidth tiles (the last tile in each direction may be smaller,
// clamped to the frame edge), and replaces any pixel that deviates
// from its tile's median by more than ZingerThreshold with that
// median. Returns the number of pixels replaced. A ZingerWidth <= 0
// disables the pass.
func RemoveZingers(p models.PreprocessParams, frame []float32, width, height int) int {
	if p.ZingerWidth <= 0 {
		return 0
	}
	// RemoveZingers runs on the post-Normalize frame, already scaled by
	// ScaleFactor, so the threshold has to track that scale too — except
	// for the literal ScaleFactor==1 quirk, where there's nothing to
	// scale by anyway.
	threshold := p.ZingerThreshold
	if p.ScaleFactor != 1 {
		threshold *= p.ScaleFactor
	}

	tile := p.ZingerWidth
	replaced := 0
	var buf []float32
	for ty := 0; ty < height; ty += tile {
		y1 := min(ty+tile, height)
		for tx := 0; tx < width; tx += tile {
			x1 := min(tx+tile, width)
			buf = buf[:0]
			for y := ty; y < y1; y++ {
				row := frame[y*width : (y+1)*width]
				buf = append(buf, row[tx:x1]...)
			}
			med := median(buf)
			for y := ty; y < y1; y++ {
				row := frame[y*width : (y+1)*width]
				for x := tx; x < x1; x++ {
					if math.Abs(float64(row[x])-float64(med)) > threshold {
						row[x] = med
						replaced++
					}
				}
			}
		}
	}
	return replaced
}

func median(s []float32) float32 {
	if len(s) == 0 {
		return 0
	}
	tmp := append([]float32(nil), s...)
	sort.Slice(tmp, func(i, j int) bool { return tmp[i] < tmp[j] })
	n := len(tmp)
	if n%2 == 1 {
		return tmp[n/2]
	}
	return (tmp[n/2-1] + tmp[n/2]) / 2
}

// encodeFrame writes frame into out as little-endian uint16 (clamped,
// not narrowed — out-of-range values saturate rather than wrapping) or
// float32, per p.OutputUint16.
func encodeFrame(p models.PreprocessParams, frame []float32, out []byte) {
	if p.OutputUint16 {
		for i, v := range frame {
			binary.LittleEndian.PutUint16(out[i*2:], clampUint16(v))
		}
		return
	}
	for i, v := range frame {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
}

func clampUint16(v float32) uint16 {
	switch {
	case v <= 0:
		return 0
	case v >= 65535:
		return 65535
	default:
		return uint16(v)
	}
}

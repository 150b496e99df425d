package sinogram

import (
	"math"
	"testing"
)

func TestSinOffsetDerivesFromPaddedWidth(t *testing.T) {
	p := Params{NumPixels: 100, PaddedWidth: 128}
	if got, want := p.SinOffset(), 14; got != want {
		t.Errorf("SinOffset() = %d, want %d", got, want)
	}
	// Never negative, even when padding is narrower than the detector.
	p2 := Params{NumPixels: 200, PaddedWidth: 128}
	if got := p2.SinOffset(); got != 0 {
		t.Errorf("SinOffset() = %d, want 0", got)
	}
}

func TestBuildWithImplicitAirMatchesKnownLog(t *testing.T) {
	p := Params{NumPixels: 2, NumProjections: 1, PaddedWidth: 4, AirPixels: 0}
	rows := [][]float32{{ImplicitAir / 2, ImplicitAir}}
	out := Build(p, rows)

	off := p.SinOffset()
	want0 := float32(-math.Log(0.5))
	want1 := float32(-math.Log(1.0))
	if math.Abs(float64(out[off]-want0)) > 1e-5 {
		t.Errorf("out[%d] = %v, want %v", off, out[off], want0)
	}
	if math.Abs(float64(out[off+1]-want1)) > 1e-5 {
		t.Errorf("out[%d] = %v, want %v", off+1, out[off+1], want1)
	}
	// Padding outside [off, off+NumPixels) stays zero.
	for j := 0; j < off; j++ {
		if out[j] != 0 {
			t.Errorf("out[%d] = %v, want 0 (padding)", j, out[j])
		}
	}
}

func TestBuildFluorescenceBypassesLog(t *testing.T) {
	p := Params{NumPixels: 2, NumProjections: 1, PaddedWidth: 2, Fluorescence: true}
	rows := [][]float32{{3, 7}}
	out := Build(p, rows)
	if out[0] != 3 || out[1] != 7 {
		t.Errorf("fluorescence row = %v, want [3 7] copied verbatim", out)
	}
}

func TestFillAirInterpolatesByColumnNotProjection(t *testing.T) {
	// A deliberate departure from the apparent tomoRecon.cpp source bug
	// (which indexes the interpolation by projection index): two
	// different rows with the same pixel values must produce the same
	// air profile.
	p := Params{NumPixels: 4, AirPixels: 1}
	row := []float32{10, 0, 0, 20}
	air1 := make([]float32, 4)
	air2 := make([]float32, 4)
	fillAir(p, row, air1)
	fillAir(p, row, air2) // simulate a different "projection index" context
	for j := range air1 {
		if air1[j] != air2[j] {
			t.Fatalf("air[%d] differs across calls with identical rows: %v vs %v", j, air1[j], air2[j])
		}
	}
	if air1[0] != 10 || air1[3] != 20 {
		t.Errorf("air ends = [%v, %v], want [10, 20]", air1[0], air1[3])
	}
}

func TestSuppressRingsIsNoOpOnUniformSinogram(t *testing.T) {
	p := Params{NumPixels: 4, NumProjections: 3, PaddedWidth: 4, RingWidth: 3, Fluorescence: true}
	rows := make([][]float32, 3)
	for i := range rows {
		rows[i] = []float32{5, 5, 5, 5}
	}
	out := Build(p, rows)
	for i, v := range out {
		if math.Abs(float64(v)-5) > 1e-5 {
			t.Errorf("out[%d] = %v, want 5 (ring suppression of a flat field is a no-op)", i, v)
		}
	}
}

package metrics

import (
	"math"
	"testing"
)

func TestCompareIdenticalSlicesIsPerfect(t *testing.T) {
	ref := []float32{0.1, 0.5, 0.9, 0.3, 0.7}
	m, err := Compare(ref, ref)
	if err != nil {
		t.Fatal(err)
	}
	if m.RMSE != 0 {
		t.Errorf("RMSE = %v, want 0", m.RMSE)
	}
	if m.EntropyDiff != 0 {
		t.Errorf("EntropyDiff = %v, want 0", m.EntropyDiff)
	}
	if math.Abs(m.SSIM-1) > 1e-6 {
		t.Errorf("SSIM = %v, want ~1", m.SSIM)
	}
}

func TestCompareRejectsLengthMismatch(t *testing.T) {
	if _, err := Compare([]float32{1, 2}, []float32{1}); err == nil {
		t.Fatal("expected an error for mismatched lengths")
	}
}

func TestCompareRejectsEmpty(t *testing.T) {
	if _, err := Compare(nil, nil); err == nil {
		t.Fatal("expected an error for empty slices")
	}
}

func TestCompareRMSEKnownValue(t *testing.T) {
	ref := []float32{0, 0, 0, 0}
	rec := []float32{1, 1, 1, 1}
	m, err := Compare(ref, rec)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(m.RMSE-1) > 1e-6 {
		t.Errorf("RMSE = %v, want 1", m.RMSE)
	}
}

func TestEntropyOfConstantSliceIsZero(t *testing.T) {
	data := []float64{5, 5, 5, 5, 5}
	if got := entropy(data); got != 0 {
		t.Errorf("entropy(constant) = %v, want 0", got)
	}
}

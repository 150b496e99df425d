package recon

import (
	"testing"
	"time"

	"tomorecon/internal/models"
	"tomorecon/pkg/logsink"
)

func testParams() models.ReconParams {
	return models.ReconParams{
		NumPixels:           8,
		NumProjections:      8,
		NumSlices:           3,
		PaddedSinogramWidth: 8,
		NumThreads:          2,
		Geom:                models.GeomAngleArray,
		PswfParam:           4.0,
		Sampl:               1.4,
		ROIRelSize:          1,
		Ltbl:                64,
		FilterName:          "shepp",
	}
}

func testAngles(n int) []float64 {
	angles := make([]float64, n)
	for i := range angles {
		angles[i] = float64(i) * 180 / float64(n)
	}
	return angles
}

func TestImageSizeIsDeterministic(t *testing.T) {
	params := testParams()
	angles := testAngles(params.NumProjections)
	size1, err := ImageSize(params, angles)
	if err != nil {
		t.Fatal(err)
	}
	size2, err := ImageSize(params, angles)
	if err != nil {
		t.Fatal(err)
	}
	if size1 != size2 || size1 <= 0 {
		t.Fatalf("ImageSize = %d, %d, want equal positive values", size1, size2)
	}
}

func TestJobReconstructsZeroInputToZeroOutput(t *testing.T) {
	log, err := logsink.Open("", 0)
	if err != nil {
		t.Fatal(err)
	}
	params := testParams()
	angles := testAngles(params.NumProjections)

	size, err := ImageSize(params, angles)
	if err != nil {
		t.Fatal(err)
	}

	rawSlices := make([][]float32, params.NumSlices)
	images := make([][]float32, params.NumSlices)
	for i := range rawSlices {
		rawSlices[i] = make([]float32, params.NumProjections*params.NumPixels)
		images[i] = make([]float32, size*size)
	}

	job, err := NewJob(params, angles, rawSlices, images, log)
	if err != nil {
		t.Fatal(err)
	}
	if job.ImageSize != size {
		t.Fatalf("job.ImageSize = %d, want %d", job.ImageSize, size)
	}

	deadline := time.Now().Add(10 * time.Second)
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

	for s, img := range images {
		for i, v := range img {
			if v != 0 {
				t.Fatalf("slice %d pixel %d = %v, want 0 for all-air input", s, i, v)
			}
		}
	}
}

func TestNewJobRejectsSliceCountMismatch(t *testing.T) {
	log, _ := logsink.Open("", 0)
	params := testParams()
	angles := testAngles(params.NumProjections)
	rawSlices := make([][]float32, 1) // want 3
	rawSlices[0] = make([]float32, params.NumProjections*params.NumPixels)
	images := make([][]float32, 1)
	images[0] = make([]float32, 4)
	if _, err := NewJob(params, angles, rawSlices, images, log); err == nil {
		t.Fatal("expected an error for a rawSlices/NumSlices mismatch")
	}
}

// Package metrics computes quality metrics comparing a reconstructed
// slice against a reference slice: RMSE, SSIM, an approximate mutual
// information, and an entropy difference.
//
// Adapted from calculateRMSE/calculateSSIM/calculateMutualInformation/
// calculateEntropyDifference in the teacher's
// pkg/reconstruction/reconstructor.go, generalized from whole-volume
// []float64 buffers to per-slice []float32 images and kept on gonum's
// stat package for the moment-based statistics SSIM needs.
package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"tomorecon/internal/models"
)

// Compare computes every metric for one reconstructed slice against a
// reference slice of the same length.
func Compare(reference, reconstructed []float32) (models.Metrics, error) {
	if len(reference) != len(reconstructed) {
		return models.Metrics{}, fmt.Errorf("metrics: reference has %d pixels, reconstructed has %d", len(reference), len(reconstructed))
	}
	if len(reference) == 0 {
		return models.Metrics{}, fmt.Errorf("metrics: empty slices")
	}
	ref := toFloat64(reference)
	rec := toFloat64(reconstructed)
	return models.Metrics{
		RMSE:        rmse(ref, rec),
		SSIM:        ssim(ref, rec),
		MI:          mutualInformation(ref, rec),
		EntropyDiff: math.Abs(entropy(ref) - entropy(rec)),
	}, nil
}

func toFloat64(s []float32) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = float64(v)
	}
	return out
}

func rmse(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(a)))
}

// ssim is the global (whole-slice, single-window) structural
// similarity index, not a windowed/local variant: one mean, variance
// and covariance pair per slice.
func ssim(a, b []float64) float64 {
	const l = 1.0
	const k1, k2 = 0.01, 0.03
	c1 := (k1 * l) * (k1 * l)
	c2 := (k2 * l) * (k2 * l)

	muX := stat.Mean(a, nil)
	muY := stat.Mean(b, nil)
	sigmaX := stat.Variance(a, nil)
	sigmaY := stat.Variance(b, nil)
	sigmaXY := stat.Covariance(a, b, nil)

	num := (2*muX*muY + c1) * (2*sigmaXY + c2)
	den := (muX*muX + muY*muY + c1) * (sigmaX + sigmaY + c2)
	if den <= 0 {
		return 0
	}
	return num / den
}

// mutualInformation is a Gaussian approximation from the joint
// covariance of a and b, not a histogram-based estimate:
// 0.5*log(var(a)*var(b) / (var(a)*var(b) - cov(a,b)^2)).
func mutualInformation(a, b []float64) float64 {
	varA := stat.Variance(a, nil)
	varB := stat.Variance(b, nil)
	cov := stat.Covariance(a, b, nil)
	if varA <= 0 || varB <= 0 {
		return 0
	}
	det := varA*varB - cov*cov
	if det <= 0 {
		return 0
	}
	return 0.5 * math.Log(varA*varB/det)
}

const entropyBins = 256

// entropy is the Shannon entropy, in bits, of data's 256-bin
// histogram.
func entropy(data []float64) float64 {
	lo, hi := data[0], data[0]
	for _, v := range data {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi <= lo {
		return 0
	}
	hist := make([]float64, entropyBins)
	width := (hi - lo) / float64(entropyBins)
	for _, v := range data {
		idx := int((v - lo) / width)
		if idx >= entropyBins {
			idx = entropyBins - 1
		} else if idx < 0 {
			idx = 0
		}
		hist[idx]++
	}
	n := float64(len(data))
	var h float64
	for _, count := range hist {
		if count > 0 {
			p := count / n
			h -= p * math.Log2(p)
		}
	}
	return h
}

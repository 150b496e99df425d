// Package filter supplies the named apodization windows Gridrec
// multiplies onto the ramp-weighted projection spectrum. Pure
// functions of normalized spatial frequency in [0, 1].
package filter

import "math"

// Func is an apodization window evaluated at a normalized spatial
// frequency in [0, 1].
type Func func(x float64) float64

// Get resolves name to a filter function. Unknown names fall back to
// "shepp"; resolvedName and fallback report what happened so the
// caller can log a warning without Get itself failing.
func Get(name string) (fn Func, resolvedName string, fallback bool) {
	switch name {
	case "shepp":
		return sheppLogan, name, false
	case "hann":
		return hann, name, false
	case "hamming":
		return hamming, name, false
	case "ramp", "none":
		return unity, name, false
	default:
		return sheppLogan, "shepp", true
	}
}

func unity(float64) float64 { return 1 }

func sheppLogan(x float64) float64 {
	if x == 0 {
		return 1
	}
	arg := math.Pi * x / 2
	return math.Sin(arg) / arg
}

func hann(x float64) float64 {
	return 0.5 * (1 + math.Cos(math.Pi*x))
}

func hamming(x float64) float64 {
	return 0.54 + 0.46*math.Cos(math.Pi*x)
}

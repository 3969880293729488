package basis

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// profile is one angular harmonic, cos(freq*theta) or sin(freq*theta).
type profile struct {
	freq int
	sin  bool
}

func (p profile) eval(theta float64) float64 {
	if p.sin {
		return math.Sin(float64(p.freq) * theta)
	}
	return math.Cos(float64(p.freq) * theta)
}

// selectProfiles picks the angular harmonics for one ring. Candidates are
// walked in canonical order (frequency ascending, cosine before sine) over
// the admissible frequencies, which are multiples of freqStep. A candidate
// is kept only if its values at the ring's sample angles are linearly
// independent of the ones already kept; frequencies are capped at half the
// sample count so the ring never carries harmonics it cannot resolve.
//
// On equispaced angles this reduces to the familiar truncated Fourier basis.
// On irregular rings (e.g. squared radius 5) individual harmonics can alias
// into lower ones, which is exactly what the independence check filters out.
func selectProfiles(nodes []float64, freqStep int) []profile {
	res := len(nodes)
	freqMax := res / 2

	var kept []profile
	var ortho [][]float64
	for k := 0; k <= freqMax && len(kept) < res; k += freqStep {
		cands := []profile{{freq: k}}
		if k > 0 {
			cands = append(cands, profile{freq: k, sin: true})
		}
		for _, p := range cands {
			if len(kept) >= res {
				break
			}
			v := make([]float64, res)
			for i, th := range nodes {
				v[i] = p.eval(th)
			}
			if extendOrtho(&ortho, v) {
				kept = append(kept, p)
			}
		}
	}
	return kept
}

// extendOrtho Gram-Schmidts v against the accumulated orthonormal vectors
// and reports whether a meaningful residual survived.
func extendOrtho(ortho *[][]float64, v []float64) bool {
	n0 := floats.Norm(v, 2)
	if n0 < 1e-12 {
		return false
	}
	floats.Scale(1/n0, v)
	// Two passes keep the residual orthogonal even for near-aliased
	// candidates.
	for pass := 0; pass < 2; pass++ {
		for _, b := range *ortho {
			floats.AddScaled(v, -floats.Dot(b, v), b)
		}
	}
	n := floats.Norm(v, 2)
	if n < 1e-8 {
		return false
	}
	floats.Scale(1/n, v)
	*ortho = append(*ortho, v)
	return true
}

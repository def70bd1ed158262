package tensor

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Dropout zeroes elements with probability P and rescales the survivors by
// 1/(1-P) (inverted dropout). It is the identity when training is off or
// P == 0, so evaluation passes draw no random numbers.
type Dropout struct {
	P   float64
	rng *rand.Rand
}

// NewDropout returns a dropout layer drawing from rng. rng may be shared by
// several layers but must not be used concurrently.
func NewDropout(p float64, rng *rand.Rand) *Dropout {
	if p < 0 || p >= 1 {
		panic("dropout probability must be in [0, 1)")
	}
	return &Dropout{P: p, rng: rng}
}

// Active reports whether Apply would modify its input.
func (d *Dropout) Active(training bool) bool {
	return d != nil && training && d.P > 0
}

// ApplyInPlace drops elements of m directly.
func (d *Dropout) ApplyInPlace(m *mat.Dense, training bool) {
	if !d.Active(training) {
		return
	}
	scale := 1 / (1 - d.P)
	raw := m.RawMatrix()
	for i := 0; i < raw.Rows; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
		for j := range row {
			if d.rng.Float64() < d.P {
				row[j] = 0
			} else {
				row[j] *= scale
			}
		}
	}
}

// Apply returns a dropped-out copy of t, or t itself when inactive.
func (d *Dropout) Apply(t *Tensor, training bool) *Tensor {
	if !d.Active(training) {
		return t
	}
	out := t.Clone()
	for _, m := range out.Batch {
		d.ApplyInPlace(m, true)
	}
	return out
}

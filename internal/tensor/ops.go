package tensor

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Softmax applies the softmax function to x in place.
func Softmax(x []float64) {
	if len(x) == 0 {
		return
	}
	maxv := floats.Max(x)
	var sum float64
	for i := range x {
		v := math.Exp(x[i] - maxv)
		x[i] = v
		sum += v
	}
	if sum == 0 {
		return
	}
	floats.Scale(1/sum, x)
}

// SoftmaxRows applies Softmax to every row of m in place.
func SoftmaxRows(m *mat.Dense) {
	raw := m.RawMatrix()
	for i := 0; i < raw.Rows; i++ {
		Softmax(raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols])
	}
}

// ReLU returns max(0, x) element-wise as a new matrix.
func ReLU(m mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		if v < 0 {
			return 0
		}
		return v
	}, m)
	return &out
}

// Argmax returns the index of the largest element of x, or -1 when x is
// empty. Ties resolve to the lowest index.
func Argmax(x []float64) int {
	if len(x) == 0 {
		return -1
	}
	return floats.MaxIdx(x)
}

package model

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/samcharles93/seq2seq/internal/tensor"
)

// Linear is an affine map y = xW + b applied to every row.
type Linear struct {
	In, Out int
	Weight  *mat.Dense // [In x Out]
	Bias    []float64  // [Out]
}

// NewLinear returns a zeroed in -> out layer; the model initialises its parameters.
func NewLinear(in, out int) *Linear {
	return &Linear{
		In:     in,
		Out:    out,
		Weight: mat.NewDense(in, out, nil),
		Bias:   make([]float64, out),
	}
}

// Forward maps a (B, L, In) tensor to (B, L, Out).
func (l *Linear) Forward(x *tensor.Tensor) *tensor.Tensor {
	return x.Map(l.apply)
}

func (l *Linear) apply(x *mat.Dense) *mat.Dense {
	var y mat.Dense
	y.Mul(x, l.Weight)
	r, _ := y.Dims()
	for i := range r {
		floats.Add(y.RawRowView(i), l.Bias)
	}
	return &y
}

func (l *Linear) params(prefix string) []*Param {
	return []*Param{
		{Name: prefixed(prefix, "weight"), Shape: []int{l.In, l.Out}, Data: l.Weight.RawMatrix().Data},
		{Name: prefixed(prefix, "bias"), Shape: []int{l.Out}, Data: l.Bias, fanIn: l.In},
	}
}

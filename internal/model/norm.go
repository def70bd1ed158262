package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/samcharles93/seq2seq/internal/tensor"
)

// LayerNorm normalises each position over its features:
//
//	y = alpha * (x - mean) / (std + eps) + bias
//
// std is the unbiased sample standard deviation and eps is added to it, not to
// the variance under the square root. Changing that placement changes the
// outputs of trained weights.
type LayerNorm struct {
	Dim   int
	Eps   float64
	Alpha []float64
	Bias  []float64
}

// NewLayerNorm returns a LayerNorm with gain 1 and bias 0.
func NewLayerNorm(dim int, eps float64) *LayerNorm {
	alpha := make([]float64, dim)
	for i := range alpha {
		alpha[i] = 1
	}
	return &LayerNorm{
		Dim:   dim,
		Eps:   eps,
		Alpha: alpha,
		Bias:  make([]float64, dim),
	}
}

func (n *LayerNorm) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if _, _, d := x.Shape(); d != n.Dim {
		return nil, fmt.Errorf("layer norm: width %d, want %d: %w", d, n.Dim, tensor.ErrShapeMismatch)
	}
	return x.Map(n.apply), nil
}

func (n *LayerNorm) apply(x *mat.Dense) *mat.Dense {
	r, c := x.Dims()
	out := mat.NewDense(r, c, nil)
	for i := range r {
		src := x.RawRowView(i)
		dst := out.RawRowView(i)
		mean, std := stat.MeanStdDev(src, nil)
		denom := std + n.Eps
		for j, v := range src {
			dst[j] = n.Alpha[j]*(v-mean)/denom + n.Bias[j]
		}
	}
	return out
}

func (n *LayerNorm) params(prefix string) []*Param {
	return []*Param{
		{Name: prefixed(prefix, "alpha"), Shape: []int{n.Dim}, Data: n.Alpha},
		{Name: prefixed(prefix, "bias"), Shape: []int{n.Dim}, Data: n.Bias},
	}
}

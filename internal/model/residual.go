package model

import (
	"fmt"

	"github.com/samcharles93/seq2seq/internal/tensor"
)

// Sublayer is a shape-preserving transformation wrapped by Residual.
type Sublayer func(x *tensor.Tensor) (*tensor.Tensor, error)

// Residual is the pre-norm residual connection x + dropout(sub(norm(x))).
type Residual struct {
	Norm *LayerNorm

	dropout *tensor.Dropout
	env     *Env
}

// NewResidual returns a pre-norm residual wrapper over vectors of width dim.
func NewResidual(dim int, eps, dropout float64, env *Env) *Residual {
	return &Residual{
		Norm:    NewLayerNorm(dim, eps),
		dropout: env.dropout(dropout),
		env:     env,
	}
}

// Forward returns a tensor with x's shape, or an error if sub does not
// preserve it.
func (r *Residual) Forward(x *tensor.Tensor, sub Sublayer) (*tensor.Tensor, error) {
	normed, err := r.Norm.Forward(x)
	if err != nil {
		return nil, err
	}
	y, err := sub(normed)
	if err != nil {
		return nil, err
	}
	if !tensor.SameShape(x, y) {
		xb, xl, xd := x.Shape()
		yb, yl, yd := y.Shape()
		return nil, fmt.Errorf("residual: sublayer returned (%d, %d, %d) for (%d, %d, %d): %w",
			yb, yl, yd, xb, xl, xd, tensor.ErrShapeMismatch)
	}
	return x.Add(r.dropout.Apply(y, r.env.Training))
}

func (r *Residual) params(prefix string) []*Param {
	return r.Norm.params(prefixed(prefix, "norm"))
}

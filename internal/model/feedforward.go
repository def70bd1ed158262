package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samcharles93/seq2seq/internal/tensor"
)

// FeedForward is the position-wise Linear(D→Dff) → ReLU → dropout →
// Linear(Dff→D) sublayer. Positions never mix.
type FeedForward struct {
	Up, Down *Linear

	dropout *tensor.Dropout
	env     *Env
}

// NewFeedForward returns a dModel -> dFF -> dModel block with ReLU and dropout.
func NewFeedForward(dModel, dFF int, dropout float64, env *Env) *FeedForward {
	return &FeedForward{
		Up:      NewLinear(dModel, dFF),
		Down:    NewLinear(dFF, dModel),
		dropout: env.dropout(dropout),
		env:     env,
	}
}

func (f *FeedForward) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if _, _, d := x.Shape(); d != f.Up.In {
		return nil, fmt.Errorf("feed-forward: width %d, want %d: %w", d, f.Up.In, tensor.ErrShapeMismatch)
	}
	h := f.Up.Forward(x).Map(func(m *mat.Dense) *mat.Dense {
		return tensor.ReLU(m)
	})
	h = f.dropout.Apply(h, f.env.Training)
	return f.Down.Forward(h), nil
}

func (f *FeedForward) params(prefix string) []*Param {
	return append(f.Up.params(prefixed(prefix, "linear_1")), f.Down.params(prefixed(prefix, "linear_2"))...)
}

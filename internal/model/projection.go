package model

import (
	"fmt"

	"github.com/samcharles93/seq2seq/internal/tensor"
)

// Projection maps decoder states to unnormalised vocabulary logits.
type Projection struct {
	Linear *Linear
}

func NewProjection(dModel, vocab int) *Projection {
	return &Projection{Linear: NewLinear(dModel, vocab)}
}

func (p *Projection) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if _, _, d := x.Shape(); d != p.Linear.In {
		return nil, fmt.Errorf("projection: width %d, want %d: %w", d, p.Linear.In, tensor.ErrShapeMismatch)
	}
	return p.Linear.Forward(x), nil
}

func (p *Projection) params(prefix string) []*Param {
	return p.Linear.params(prefix)
}

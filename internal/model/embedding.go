package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/samcharles93/seq2seq/internal/tensor"
)

// Embedding maps token ids to rows of a learned [Vocab x Dim] table scaled by
// sqrt(Dim), which keeps embeddings large relative to the positional signal.
type Embedding struct {
	Vocab, Dim int
	Table      *mat.Dense
	scale      float64
}

// NewEmbedding returns a vocab x dim lookup table scaled by sqrt(dim).
func NewEmbedding(vocab, dim int) *Embedding {
	return &Embedding{
		Vocab: vocab,
		Dim:   dim,
		Table: mat.NewDense(vocab, dim, nil),
		scale: math.Sqrt(float64(dim)),
	}
}

// Forward returns the (B, L, Dim) embeddings of ids.
func (e *Embedding) Forward(ids tensor.IDs) (*tensor.Tensor, error) {
	if err := ids.Validate(e.Vocab); err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	b, l := ids.Shape()
	out := tensor.New(b, l, e.Dim)
	for bi, row := range ids {
		for i, id := range row {
			floats.ScaleTo(out.Batch[bi].RawRowView(i), e.scale, e.Table.RawRowView(id))
		}
	}
	return out, nil
}

func (e *Embedding) params(prefix string) []*Param {
	return []*Param{
		{Name: prefixed(prefix, "weight"), Shape: []int{e.Vocab, e.Dim}, Data: e.Table.RawMatrix().Data},
	}
}

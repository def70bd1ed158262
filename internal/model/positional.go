package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/samcharles93/seq2seq/internal/tensor"
)

// PositionalEncoding adds a fixed sinusoidal table to its input:
//
//	PE(p, 2i)   = sin(p / 10000^(2i/D))
//	PE(p, 2i+1) = cos(p / 10000^(2i/D))
//
// The table is built once and is not a parameter.
type PositionalEncoding struct {
	MaxLen, Dim int

	table   *mat.Dense // [MaxLen x Dim]
	dropout *tensor.Dropout
	env     *Env
}

// NewPositionalEncoding builds the table for maxLen positions. dim must be
// even.
func NewPositionalEncoding(dim, maxLen int, dropout float64, env *Env) *PositionalEncoding {
	if dim%2 != 0 {
		panic("positional encoding width must be even")
	}
	table := mat.NewDense(maxLen, dim, nil)
	logBase := -math.Log(10000.0) / float64(dim)
	for p := range maxLen {
		row := table.RawRowView(p)
		for i := 0; i < dim; i += 2 {
			angle := float64(p) * math.Exp(float64(i)*logBase)
			row[i] = math.Sin(angle)
			row[i+1] = math.Cos(angle)
		}
	}
	return &PositionalEncoding{
		MaxLen:  maxLen,
		Dim:     dim,
		table:   table,
		dropout: env.dropout(dropout),
		env:     env,
	}
}

// Table returns a read-only view of the [MaxLen x Dim] table.
func (pe *PositionalEncoding) Table() mat.Matrix {
	return pe.table
}

// Forward adds the first L table rows to every batch element and applies
// dropout.
func (pe *PositionalEncoding) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	_, l, d := x.Shape()
	if d != pe.Dim {
		return nil, fmt.Errorf("positional encoding: width %d, want %d: %w", d, pe.Dim, tensor.ErrShapeMismatch)
	}
	if l > pe.MaxLen {
		return nil, fmt.Errorf("positional encoding: length %d > %d: %w", l, pe.MaxLen, ErrSequenceTooLong)
	}
	out := x.Clone()
	for _, m := range out.Batch {
		for i := range l {
			floats.Add(m.RawRowView(i), pe.table.RawRowView(i))
		}
	}
	return pe.dropout.Apply(out, pe.env.Training), nil
}

package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/samcharles93/seq2seq/internal/mask"
	"github.com/samcharles93/seq2seq/internal/tensor"
)

// MaskFill is written into blocked score positions before the softmax. It is
// finite so a fully blocked row softmaxes to a uniform distribution instead of
// NaN.
const MaskFill = -1e9

// MultiHeadAttention is scaled dot-product attention over Heads independent
// subspaces of width HeadDim.
type MultiHeadAttention struct {
	DModel, Heads, HeadDim int

	WQ, WK, WV, WO *Linear

	dropout *tensor.Dropout
	env     *Env

	// weights holds the [B][H] (Lq x Lk) probabilities of the last call.
	weights [][]*mat.Dense
}

// NewMultiHeadAttention returns attention over dModel split into heads; dModel must divide evenly.
func NewMultiHeadAttention(dModel, heads int, dropout float64, env *Env) (*MultiHeadAttention, error) {
	if heads <= 0 || dModel <= 0 {
		return nil, fmt.Errorf("attention: d_model %d, heads %d: %w", dModel, heads, ErrInvalidConfig)
	}
	if dModel%heads != 0 {
		return nil, fmt.Errorf("attention: d_model %d, heads %d: %w", dModel, heads, ErrHeadsNotDivisible)
	}
	return &MultiHeadAttention{
		DModel:  dModel,
		Heads:   heads,
		HeadDim: dModel / heads,
		WQ:      NewLinear(dModel, dModel),
		WK:      NewLinear(dModel, dModel),
		WV:      NewLinear(dModel, dModel),
		WO:      NewLinear(dModel, dModel),
		dropout: env.dropout(dropout),
		env:     env,
	}, nil
}

// Forward attends query positions of q over the key/value positions of k and
// v. m may be nil; blocked pairs receive ~0 weight. The result has q's shape.
func (a *MultiHeadAttention) Forward(q, k, v *tensor.Tensor, m *mask.Mask) (*tensor.Tensor, error) {
	qb, lq, qd := q.Shape()
	kb, lk, kd := k.Shape()
	vb, lv, vd := v.Shape()
	switch {
	case qd != a.DModel || kd != a.DModel || vd != a.DModel:
		return nil, fmt.Errorf("attention: widths q=%d k=%d v=%d, want %d: %w", qd, kd, vd, a.DModel, tensor.ErrShapeMismatch)
	case qb != kb || kb != vb:
		return nil, fmt.Errorf("attention: batches q=%d k=%d v=%d: %w", qb, kb, vb, tensor.ErrShapeMismatch)
	case lk != lv:
		return nil, fmt.Errorf("attention: key length %d, value length %d: %w", lk, lv, tensor.ErrShapeMismatch)
	}
	if m != nil {
		if err := m.Check(qb, lq, lk); err != nil {
			return nil, fmt.Errorf("attention: %w", err)
		}
	}

	query := a.WQ.Forward(q)
	key := a.WK.Forward(k)
	value := a.WV.Forward(v)

	concat := tensor.New(qb, lq, a.DModel)
	weights := make([][]*mat.Dense, qb)
	for b := range weights {
		weights[b] = make([]*mat.Dense, a.Heads)
	}

	// Dropout draws must happen in a fixed order to stay reproducible, so
	// heads only fan out when dropout is a no-op.
	workers := 1
	if !a.dropout.Active(a.env.Training) {
		workers = a.env.Workers
	}
	scale := 1 / math.Sqrt(float64(a.HeadDim))

	tensor.ParallelFor(qb*a.Heads, workers, func(i int) {
		b, h := i/a.Heads, i%a.Heads
		lo, hi := h*a.HeadDim, (h+1)*a.HeadDim

		qh := query.Batch[b].Slice(0, lq, lo, hi)
		kh := key.Batch[b].Slice(0, lk, lo, hi)
		vh := value.Batch[b].Slice(0, lk, lo, hi)

		scores := mat.NewDense(lq, lk, nil)
		scores.Mul(qh, kh.T())
		scores.Scale(scale, scores)
		if m != nil {
			for qi := range lq {
				row := scores.RawRowView(qi)
				for ki := range row {
					if !m.Allowed(b, qi, ki) {
						row[ki] = MaskFill
					}
				}
			}
		}
		tensor.SoftmaxRows(scores)
		a.dropout.ApplyInPlace(scores, a.env.Training)

		dst := concat.Batch[b].Slice(0, lq, lo, hi).(*mat.Dense)
		dst.Mul(scores, vh)
		weights[b][h] = scores
	})

	a.weights = weights
	return a.WO.Forward(concat), nil
}

// Weights returns the [batch][head] attention probabilities (Lq x Lk) from the
// most recent Forward call, or nil before the first call.
func (a *MultiHeadAttention) Weights() [][]*mat.Dense {
	return a.weights
}

func (a *MultiHeadAttention) params(prefix string) []*Param {
	var ps []*Param
	ps = append(ps, a.WQ.params(prefixed(prefix, "w_q"))...)
	ps = append(ps, a.WK.params(prefixed(prefix, "w_k"))...)
	ps = append(ps, a.WV.params(prefixed(prefix, "w_v"))...)
	ps = append(ps, a.WO.params(prefixed(prefix, "w_o"))...)
	return ps
}

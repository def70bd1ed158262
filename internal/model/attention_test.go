package model

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/samcharles93/seq2seq/internal/mask"
	"github.com/samcharles93/seq2seq/internal/tensor"
)

func newTestAttention(t *testing.T, dModel, heads int, dropout float64, env *Env, seed uint64) *MultiHeadAttention {
	t.Helper()
	a, err := NewMultiHeadAttention(dModel, heads, dropout, env)
	if err != nil {
		t.Fatalf("NewMultiHeadAttention: %v", err)
	}
	initParams(a.params("attn"), initRand(seed))
	return a
}

func fillTestTensor(b, l, d int, scale float64) *tensor.Tensor {
	x := tensor.New(b, l, d)
	for bi := range b {
		for i := range l {
			for j := range d {
				x.Batch[bi].Set(i, j, scale*math.Sin(float64(1+bi*l*d+i*d+j)))
			}
		}
	}
	return x
}

// referenceAttention recomputes attention for one batch element with plain
// loops, mirroring the textbook definition.
func referenceAttention(a *MultiHeadAttention, q, kv *mat.Dense, allowed func(qi, ki int) bool) *mat.Dense {
	lq, _ := q.Dims()
	lk, _ := kv.Dims()
	proj := func(x *mat.Dense, l *Linear) [][]float64 {
		r, _ := x.Dims()
		out := make([][]float64, r)
		for i := range r {
			out[i] = make([]float64, l.Out)
			for o := range l.Out {
				s := l.Bias[o]
				for in := range l.In {
					s += x.At(i, in) * l.Weight.At(in, o)
				}
				out[i][o] = s
			}
		}
		return out
	}
	Q, K, V := proj(q, a.WQ), proj(kv, a.WK), proj(kv, a.WV)

	concat := mat.NewDense(lq, a.DModel, nil)
	for h := range a.Heads {
		off := h * a.HeadDim
		for i := range lq {
			scores := make([]float64, lk)
			for j := range lk {
				var s float64
				for c := range a.HeadDim {
					s += Q[i][off+c] * K[j][off+c]
				}
				scores[j] = s / math.Sqrt(float64(a.HeadDim))
				if allowed != nil && !allowed(i, j) {
					scores[j] = MaskFill
				}
			}
			tensor.Softmax(scores)
			for c := range a.HeadDim {
				var s float64
				for j := range lk {
					s += scores[j] * V[j][off+c]
				}
				concat.Set(i, off+c, s)
			}
		}
	}
	return a.WO.apply(concat)
}

func TestAttentionMatchesReference(t *testing.T) {
	t.Parallel()
	a := newTestAttention(t, 8, 2, 0, NewEnv(0, 1), 3)
	q := fillTestTensor(2, 3, 8, 0.7)
	kv := fillTestTensor(2, 5, 8, 1.3)
	m := mask.Padding(tensor.IDs{{1, 2, 3, 0, 0}, {1, 2, 3, 4, 5}}, 0)

	out, err := a.Forward(q, kv, kv, m)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	for b := range 2 {
		want := referenceAttention(a, q.Batch[b], kv.Batch[b], func(qi, ki int) bool { return m.Allowed(b, qi, ki) })
		for i := range 3 {
			for j := range 8 {
				if d := math.Abs(out.At(b, i, j) - want.At(i, j)); d > 1e-9 {
					t.Fatalf("out[%d,%d,%d] differs from reference by %g", b, i, j, d)
				}
			}
		}
	}
}

func TestAttentionBlockedKeyGetsNoWeight(t *testing.T) {
	t.Parallel()
	a := newTestAttention(t, 8, 4, 0, NewEnv(0, 1), 5)
	x := fillTestTensor(1, 4, 8, 2)
	m, err := mask.FromRows([][]int{{1, 1, 0, 1}})
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	if _, err := a.Forward(x, x, x, m); err != nil {
		t.Fatalf("Forward: %v", err)
	}
	weights := a.Weights()
	if len(weights) != 1 || len(weights[0]) != 4 {
		t.Fatalf("weights shape [%d][%d], want [1][4]", len(weights), len(weights[0]))
	}
	for h, w := range weights[0] {
		for qi := range 4 {
			if got := w.At(qi, 2); got > 1e-12 {
				t.Fatalf("head %d query %d attends to blocked key with weight %g", h, qi, got)
			}
			if sum := mat.Sum(w.RowView(qi)); math.Abs(sum-1) > 1e-12 {
				t.Fatalf("head %d query %d weights sum to %v", h, qi, sum)
			}
		}
	}
}

func TestAttentionFullyMaskedRowIsFinite(t *testing.T) {
	t.Parallel()
	a := newTestAttention(t, 4, 2, 0, NewEnv(0, 1), 8)
	x := fillTestTensor(1, 3, 4, 1)
	m, _ := mask.FromRows([][]int{{0, 0, 0}})
	out, err := a.Forward(x, x, x, m)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if !out.IsFinite() {
		t.Fatal("fully masked attention produced NaN/Inf")
	}
	if got := a.Weights()[0][0].At(0, 1); math.Abs(got-1.0/3) > 1e-12 {
		t.Fatalf("fully masked row weight = %v, want 1/3", got)
	}
}

func TestAttentionParallelMatchesSerial(t *testing.T) {
	t.Parallel()
	serial := newTestAttention(t, 12, 3, 0.1, NewEnv(0, 1), 11)
	parallel := newTestAttention(t, 12, 3, 0.1, NewEnv(0, 8), 11)
	q := fillTestTensor(3, 4, 12, 1)
	kv := fillTestTensor(3, 6, 12, 0.5)

	a, err := serial.Forward(q, kv, kv, nil)
	if err != nil {
		t.Fatalf("serial: %v", err)
	}
	b, err := parallel.Forward(q, kv, kv, nil)
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}
	if d := tensor.MaxAbsDiff(a, b); d != 0 {
		t.Fatalf("parallel heads differ from serial by %g", d)
	}
}

func TestAttentionShapeErrors(t *testing.T) {
	t.Parallel()
	a := newTestAttention(t, 8, 2, 0, NewEnv(0, 1), 1)
	x := fillTestTensor(2, 3, 8, 1)
	tests := []struct {
		name    string
		q, k, v *tensor.Tensor
		m       *mask.Mask
		want    error
	}{
		{name: "width", q: fillTestTensor(2, 3, 6, 1), k: x, v: x, want: tensor.ErrShapeMismatch},
		{name: "batch", q: fillTestTensor(1, 3, 8, 1), k: x, v: x, want: tensor.ErrShapeMismatch},
		{name: "kv length", q: x, k: x, v: fillTestTensor(2, 4, 8, 1), want: tensor.ErrShapeMismatch},
		{name: "mask keys", q: x, k: x, v: x, m: mask.Causal(4), want: mask.ErrShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.Forward(tt.q, tt.k, tt.v, tt.m); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

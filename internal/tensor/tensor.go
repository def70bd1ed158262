package tensor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Tensor represents a dense (B, L, D) batch of activations.
//
// Each batch element is an L×D gonum matrix whose rows are sequence positions
// and whose columns are features. Layers never mutate their inputs; every
// forward step returns a fresh Tensor.
type Tensor struct {
	Batch []*mat.Dense
}

// New allocates a zero‑initialised tensor of shape (b, l, d).
// All dimensions must be positive.
func New(b, l, d int) *Tensor {
	if b <= 0 || l <= 0 || d <= 0 {
		panic(fmt.Sprintf("tensor: non-positive shape (%d, %d, %d)", b, l, d))
	}
	t := &Tensor{Batch: make([]*mat.Dense, b)}
	for i := range t.Batch {
		t.Batch[i] = mat.NewDense(l, d, nil)
	}
	return t
}

// FromSlices builds a tensor from nested [b][l][d] values. The input must be
// non-empty and rectangular.
func FromSlices(data [][][]float64) (*Tensor, error) {
	if len(data) == 0 || len(data[0]) == 0 || len(data[0][0]) == 0 {
		return nil, ErrEmpty
	}
	l, d := len(data[0]), len(data[0][0])
	t := New(len(data), l, d)
	for b, rows := range data {
		if len(rows) != l {
			return nil, fmt.Errorf("batch %d has %d rows, want %d: %w", b, len(rows), l, ErrRagged)
		}
		for i, row := range rows {
			if len(row) != d {
				return nil, fmt.Errorf("batch %d row %d has %d features, want %d: %w", b, i, len(row), d, ErrRagged)
			}
			t.Batch[b].SetRow(i, row)
		}
	}
	return t, nil
}

// Shape returns the (batch, length, width) dimensions.
func (t *Tensor) Shape() (b, l, d int) {
	if t == nil || len(t.Batch) == 0 {
		return 0, 0, 0
	}
	l, d = t.Batch[0].Dims()
	return len(t.Batch), l, d
}

// At returns the element at batch b, position i, feature j.
func (t *Tensor) At(b, i, j int) float64 {
	return t.Batch[b].At(i, j)
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	out := &Tensor{Batch: make([]*mat.Dense, len(t.Batch))}
	for i, m := range t.Batch {
		out.Batch[i] = mat.DenseCopyOf(m)
	}
	return out
}

// Add returns t + other element-wise.
func (t *Tensor) Add(other *Tensor) (*Tensor, error) {
	if !SameShape(t, other) {
		return nil, shapeError("add", t, other)
	}
	out := &Tensor{Batch: make([]*mat.Dense, len(t.Batch))}
	for i := range t.Batch {
		var sum mat.Dense
		sum.Add(t.Batch[i], other.Batch[i])
		out.Batch[i] = &sum
	}
	return out, nil
}

// Map applies fn to every batch element and collects the results. fn must
// not retain or mutate its argument.
func (t *Tensor) Map(fn func(m *mat.Dense) *mat.Dense) *Tensor {
	out := &Tensor{Batch: make([]*mat.Dense, len(t.Batch))}
	for i, m := range t.Batch {
		out.Batch[i] = fn(m)
	}
	return out
}

// IsFinite reports whether no element is NaN or ±Inf.
func (t *Tensor) IsFinite() bool {
	for _, m := range t.Batch {
		raw := m.RawMatrix()
		for i := 0; i < raw.Rows; i++ {
			row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
			if floats.HasNaN(row) {
				return false
			}
			for _, v := range row {
				if math.IsInf(v, 0) {
					return false
				}
			}
		}
	}
	return true
}

// Slices copies the tensor out as nested [b][l][d] slices.
func (t *Tensor) Slices() [][][]float64 {
	out := make([][][]float64, len(t.Batch))
	for b, m := range t.Batch {
		r, _ := m.Dims()
		out[b] = make([][]float64, r)
		for i := range r {
			out[b][i] = mat.Row(nil, i, m)
		}
	}
	return out
}

// ArgmaxRows returns, for every (b, i), the index of the largest element of
// row i in batch element b.
func (t *Tensor) ArgmaxRows() [][]int {
	out := make([][]int, len(t.Batch))
	for b, m := range t.Batch {
		r, _ := m.Dims()
		out[b] = make([]int, r)
		for i := range r {
			out[b][i] = Argmax(m.RawRowView(i))
		}
	}
	return out
}

// SameShape reports whether a and b have identical (B, L, D) dimensions.
func SameShape(a, b *Tensor) bool {
	ab, al, ad := a.Shape()
	bb, bl, bd := b.Shape()
	return ab == bb && al == bl && ad == bd
}

// MaxAbsDiff returns the largest absolute element difference between two
// tensors of the same shape, or +Inf if the shapes differ.
func MaxAbsDiff(a, b *Tensor) float64 {
	if !SameShape(a, b) {
		return math.Inf(1)
	}
	var maxAbs float64
	for i := range a.Batch {
		var diff mat.Dense
		diff.Sub(a.Batch[i], b.Batch[i])
		if v := maxAbsElem(&diff); v > maxAbs {
			maxAbs = v
		}
	}
	return maxAbs
}

func maxAbsElem(m *mat.Dense) float64 {
	raw := m.RawMatrix()
	var maxAbs float64
	for i := 0; i < raw.Rows; i++ {
		for _, v := range raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols] {
			if a := math.Abs(v); a > maxAbs {
				maxAbs = a
			}
		}
	}
	return maxAbs
}

func shapeError(op string, a, b *Tensor) error {
	ab, al, ad := a.Shape()
	bb, bl, bd := b.Shape()
	return fmt.Errorf("%s: (%d, %d, %d) vs (%d, %d, %d): %w", op, ab, al, ad, bb, bl, bd, ErrShapeMismatch)
}

// Package mask builds boolean attention masks.
//
// A Mask has logical shape (B, Q, K) and is broadcast over attention heads.
// A dimension of size 1 in B or Q broadcasts across the batch or across query
// positions, so a padding mask is (B, 1, K) and a causal mask is (1, L, L).
// true marks an allowed (query, key) pair; false blocks it.
package mask

import (
	"errors"
	"fmt"

	"github.com/samcharles93/seq2seq/internal/tensor"
)

var ErrShape = errors.New("mask shape mismatch")

type Mask struct {
	B, Q, K int
	keep    []bool
}

// New wraps keep, laid out row-major as [b][q][k]. len(keep) must equal b*q*k.
func New(b, q, k int, keep []bool) (*Mask, error) {
	if b <= 0 || q <= 0 || k <= 0 {
		return nil, fmt.Errorf("non-positive mask shape (%d, %d, %d): %w", b, q, k, ErrShape)
	}
	if len(keep) != b*q*k {
		return nil, fmt.Errorf("mask data length %d, want %d: %w", len(keep), b*q*k, ErrShape)
	}
	return &Mask{B: b, Q: q, K: k, keep: keep}, nil
}

// Allowed reports whether query q of batch element b may attend to key k.
func (m *Mask) Allowed(b, q, k int) bool {
	if m.B == 1 {
		b = 0
	}
	if m.Q == 1 {
		q = 0
	}
	return m.keep[(b*m.Q+q)*m.K+k]
}

// Check verifies that m broadcasts to (b, lq, lk).
func (m *Mask) Check(b, lq, lk int) error {
	if (m.B != 1 && m.B != b) || (m.Q != 1 && m.Q != lq) || m.K != lk {
		return fmt.Errorf("mask (%d, %d, %d) does not broadcast to (%d, %d, %d): %w",
			m.B, m.Q, m.K, b, lq, lk, ErrShape)
	}
	return nil
}

// Padding blocks every key position whose id equals padID. Shape (B, 1, L)
// with L taken from the first row; ragged rows are left for ids.Validate to
// reject.
func Padding(ids tensor.IDs, padID int) *Mask {
	b, l := ids.Shape()
	keep := make([]bool, b*l)
	for i, row := range ids {
		for j, id := range row[:min(len(row), l)] {
			keep[i*l+j] = id != padID
		}
	}
	return &Mask{B: b, Q: 1, K: l, keep: keep}
}

// Causal lets position i attend only to positions j <= i. Shape (1, L, L).
func Causal(l int) *Mask {
	keep := make([]bool, l*l)
	for i := range l {
		for j := 0; j <= i; j++ {
			keep[i*l+j] = true
		}
	}
	return &Mask{B: 1, Q: l, K: l, keep: keep}
}

// Target is the decoder self-attention mask: padding AND causal, (B, L, L).
func Target(ids tensor.IDs, padID int) *Mask {
	_, l := ids.Shape()
	m, err := And(Padding(ids, padID), Causal(l))
	if err != nil {
		// Both operands are derived from the same length.
		panic(err)
	}
	return m
}

// FromRows builds a (B, 1, K) key mask from 0/1 rows; 0 blocks a position.
func FromRows(rows [][]int) (*Mask, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("empty mask rows: %w", ErrShape)
	}
	k := len(rows[0])
	keep := make([]bool, len(rows)*k)
	for i, row := range rows {
		if len(row) != k {
			return nil, fmt.Errorf("mask row %d has %d entries, want %d: %w", i, len(row), k, ErrShape)
		}
		for j, v := range row {
			keep[i*k+j] = v != 0
		}
	}
	return &Mask{B: len(rows), Q: 1, K: k, keep: keep}, nil
}

// And combines two masks with broadcasting. Either argument may be nil, in
// which case the other is returned.
func And(a, b *Mask) (*Mask, error) {
	if a == nil {
		return b, nil
	}
	if b == nil {
		return a, nil
	}
	if a.K != b.K {
		return nil, fmt.Errorf("key length %d vs %d: %w", a.K, b.K, ErrShape)
	}
	nb, err := broadcastDim(a.B, b.B)
	if err != nil {
		return nil, err
	}
	nq, err := broadcastDim(a.Q, b.Q)
	if err != nil {
		return nil, err
	}
	keep := make([]bool, nb*nq*a.K)
	for bi := range nb {
		for qi := range nq {
			for ki := range a.K {
				keep[(bi*nq+qi)*a.K+ki] = a.Allowed(bi, qi, ki) && b.Allowed(bi, qi, ki)
			}
		}
	}
	return &Mask{B: nb, Q: nq, K: a.K, keep: keep}, nil
}

func broadcastDim(x, y int) (int, error) {
	switch {
	case x == y:
		return x, nil
	case x == 1:
		return y, nil
	case y == 1:
		return x, nil
	}
	return 0, fmt.Errorf("cannot broadcast %d with %d: %w", x, y, ErrShape)
}

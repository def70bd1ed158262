package mask

import (
	"errors"
	"testing"

	"github.com/samcharles93/seq2seq/internal/tensor"
)

func TestPaddingBlocksPadKeys(t *testing.T) {
	t.Parallel()
	m := Padding(tensor.IDs{{5, 6, 0}, {7, 0, 0}}, 0)
	if m.B != 2 || m.Q != 1 || m.K != 3 {
		t.Fatalf("shape = (%d, %d, %d), want (2, 1, 3)", m.B, m.Q, m.K)
	}
	tests := []struct {
		b, q, k int
		want    bool
	}{
		{0, 0, 0, true},
		{0, 2, 1, true},
		{0, 1, 2, false},
		{1, 0, 0, true},
		{1, 2, 1, false},
	}
	for _, tt := range tests {
		if got := m.Allowed(tt.b, tt.q, tt.k); got != tt.want {
			t.Errorf("Allowed(%d,%d,%d) = %v, want %v", tt.b, tt.q, tt.k, got, tt.want)
		}
	}
}

func TestCausalIsLowerTriangular(t *testing.T) {
	t.Parallel()
	const l = 5
	m := Causal(l)
	for b := range 3 {
		for i := range l {
			for j := range l {
				if got, want := m.Allowed(b, i, j), j <= i; got != want {
					t.Fatalf("Allowed(%d,%d,%d) = %v, want %v", b, i, j, got, want)
				}
			}
		}
	}
}

func TestTargetCombinesPaddingAndCausal(t *testing.T) {
	t.Parallel()
	ids := tensor.IDs{{1, 2, 3, 0}}
	m := Target(ids, 0)
	if m.B != 1 || m.Q != 4 || m.K != 4 {
		t.Fatalf("shape = (%d, %d, %d), want (1, 4, 4)", m.B, m.Q, m.K)
	}
	if m.Allowed(0, 1, 2) {
		t.Error("future position allowed")
	}
	if m.Allowed(0, 3, 3) {
		t.Error("pad key allowed")
	}
	if !m.Allowed(0, 3, 2) {
		t.Error("past non-pad key blocked")
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()
	pad := Padding(tensor.IDs{{1, 2, 3}, {1, 2, 3}}, 0)
	if err := pad.Check(2, 7, 3); err != nil {
		t.Fatalf("padding mask should broadcast over queries: %v", err)
	}
	if err := pad.Check(3, 7, 3); !errors.Is(err, ErrShape) {
		t.Fatalf("batch mismatch err = %v", err)
	}
	if err := Causal(3).Check(4, 3, 3); err != nil {
		t.Fatalf("causal mask should broadcast over batch: %v", err)
	}
	if err := Causal(3).Check(1, 3, 4); !errors.Is(err, ErrShape) {
		t.Fatalf("key mismatch err = %v", err)
	}
}

func TestFromRows(t *testing.T) {
	t.Parallel()
	m, err := FromRows([][]int{{1, 0, 1}})
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	if m.Allowed(0, 5, 1) || !m.Allowed(0, 5, 2) {
		t.Fatal("FromRows did not honour 0/1 entries")
	}
	if _, err := FromRows([][]int{{1, 1}, {1}}); !errors.Is(err, ErrShape) {
		t.Fatalf("ragged err = %v", err)
	}
}

func TestAnd(t *testing.T) {
	t.Parallel()
	if got, _ := And(nil, Causal(2)); got == nil || got.Q != 2 {
		t.Fatal("And(nil, m) should return m")
	}
	if _, err := And(Causal(2), Causal(3)); !errors.Is(err, ErrShape) {
		t.Fatalf("key mismatch err = %v", err)
	}
	if _, err := New(2, 1, 2, []bool{true}); !errors.Is(err, ErrShape) {
		t.Fatalf("New with short data err = %v", err)
	}
}

package tensor

import "fmt"

// IDs is a (B, L) matrix of token ids.
type IDs [][]int

// Shape returns (batch, length). It does not check that rows are equal length;
// use Validate for that.
func (ids IDs) Shape() (b, l int) {
	if len(ids) == 0 {
		return 0, 0
	}
	return len(ids), len(ids[0])
}

// Validate checks that ids is non-empty, rectangular and that every id lies
// in [0, vocab).
func (ids IDs) Validate(vocab int) error {
	b, l := ids.Shape()
	if b == 0 || l == 0 {
		return ErrEmpty
	}
	for i, row := range ids {
		if len(row) != l {
			return fmt.Errorf("row %d has %d ids, want %d: %w", i, len(row), l, ErrRagged)
		}
		for j, id := range row {
			if id < 0 || id >= vocab {
				return fmt.Errorf("ids[%d][%d] = %d not in [0, %d): %w", i, j, id, vocab, ErrIDOutOfRange)
			}
		}
	}
	return nil
}

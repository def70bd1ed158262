package model

import (
	"errors"

	"github.com/samcharles93/seq2seq/internal/mask"
	"github.com/samcharles93/seq2seq/internal/tensor"
)

var (
	ErrInvalidConfig     = errors.New("invalid model config")
	ErrHeadsNotDivisible = errors.New("d_model is not divisible by heads")
	ErrOddModelWidth     = errors.New("d_model must be even for sinusoidal positions")
	ErrSequenceTooLong   = errors.New("sequence longer than positional table")
)

// IsInputError reports whether err was caused by the caller's ids, masks or
// tensor shapes rather than by the model itself.
func IsInputError(err error) bool {
	return errors.Is(err, ErrSequenceTooLong) ||
		errors.Is(err, tensor.ErrIDOutOfRange) ||
		errors.Is(err, tensor.ErrEmpty) ||
		errors.Is(err, tensor.ErrRagged) ||
		errors.Is(err, tensor.ErrShapeMismatch) ||
		errors.Is(err, mask.ErrShape)
}

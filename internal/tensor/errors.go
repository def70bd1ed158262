package tensor

import "errors"

var (
	ErrShapeMismatch = errors.New("tensor shape mismatch")
	ErrEmpty         = errors.New("empty tensor")
	ErrRagged        = errors.New("ragged tensor input")
	ErrIDOutOfRange  = errors.New("token id out of range")
)

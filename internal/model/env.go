package model

import (
	"math/rand/v2"

	"github.com/samcharles93/seq2seq/internal/tensor"
)

// PCG stream selectors; init and dropout draw from independent streams of the
// same seed so toggling training never perturbs initial weights.
const (
	initStream    = 0x5eed_1a17
	dropoutStream = 0xd0_0d_0a75
)

// Env is the execution state shared by every layer of one model.
type Env struct {
	// Training enables dropout.
	Training bool
	// Workers bounds attention head parallelism when dropout is inactive.
	Workers int

	rng *rand.Rand
}

// NewEnv returns an evaluation-mode Env whose dropout draws come from seed.
func NewEnv(seed uint64, workers int) *Env {
	return &Env{
		Workers: workers,
		rng:     rand.New(rand.NewPCG(seed, dropoutStream)),
	}
}

func (e *Env) dropout(p float64) *tensor.Dropout {
	return tensor.NewDropout(p, e.rng)
}

func initRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, initStream))
}

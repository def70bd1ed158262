// Package model defines the encoder/decoder Transformer: token embeddings,
// sinusoidal positional encoding, pre-norm residual attention and
// feed-forward sublayers, stacked encoder and decoder blocks, and the
// projection to vocabulary logits.
//
// All numeric work is delegated to gonum. Only the forward pass is
// implemented; dropout honours a training flag so an external trainer can use
// the same graph.
package model

import (
	"fmt"
)

// Config holds the model hyperparameters. The zero value is not usable; start
// from DefaultConfig.
type Config struct {
	SrcVocabSize int `yaml:"src_vocab_size" json:"src_vocab_size"`
	TgtVocabSize int `yaml:"tgt_vocab_size" json:"tgt_vocab_size"`
	// SrcSeqLen and TgtSeqLen size the positional tables and bound the
	// sequence lengths accepted at forward time.
	SrcSeqLen int `yaml:"src_seq_len" json:"src_seq_len"`
	TgtSeqLen int `yaml:"tgt_seq_len" json:"tgt_seq_len"`

	DModel  int     `yaml:"d_model" json:"d_model"`
	Layers  int     `yaml:"layers" json:"layers"`
	Heads   int     `yaml:"heads" json:"heads"`
	Dropout float64 `yaml:"dropout" json:"dropout"`
	DFF     int     `yaml:"d_ff" json:"d_ff"`
	Eps     float64 `yaml:"eps" json:"eps"`

	// Seed drives parameter initialisation and dropout masks.
	Seed uint64 `yaml:"seed" json:"seed"`
	// Workers bounds the goroutines used for attention heads in eval mode.
	Workers int `yaml:"workers" json:"workers"`
}

const (
	DefaultDModel  = 512
	DefaultLayers  = 6
	DefaultHeads   = 8
	DefaultDropout = 0.1
	DefaultDFF     = 2048
	DefaultEps     = 1e-6
)

// DefaultConfig returns the base Transformer hyperparameters for the given
// vocabularies and maximum sequence lengths.
func DefaultConfig(srcVocab, tgtVocab, srcSeqLen, tgtSeqLen int) Config {
	return Config{
		SrcVocabSize: srcVocab,
		TgtVocabSize: tgtVocab,
		SrcSeqLen:    srcSeqLen,
		TgtSeqLen:    tgtSeqLen,
		DModel:       DefaultDModel,
		Layers:       DefaultLayers,
		Heads:        DefaultHeads,
		Dropout:      DefaultDropout,
		DFF:          DefaultDFF,
		Eps:          DefaultEps,
		Workers:      1,
	}
}

// HeadDim is the per-head width DModel/Heads.
func (c Config) HeadDim() int {
	if c.Heads == 0 {
		return 0
	}
	return c.DModel / c.Heads
}

// Validate reports the first configuration error found.
func (c Config) Validate() error {
	positive := []struct {
		name string
		v    int
	}{
		{"src_vocab_size", c.SrcVocabSize},
		{"tgt_vocab_size", c.TgtVocabSize},
		{"src_seq_len", c.SrcSeqLen},
		{"tgt_seq_len", c.TgtSeqLen},
		{"d_model", c.DModel},
		{"layers", c.Layers},
		{"heads", c.Heads},
		{"d_ff", c.DFF},
	}
	for _, p := range positive {
		if p.v <= 0 {
			return fmt.Errorf("%s must be positive, got %d: %w", p.name, p.v, ErrInvalidConfig)
		}
	}
	if c.DModel%c.Heads != 0 {
		return fmt.Errorf("d_model %d, heads %d: %w", c.DModel, c.Heads, ErrHeadsNotDivisible)
	}
	if c.DModel%2 != 0 {
		return fmt.Errorf("d_model %d: %w", c.DModel, ErrOddModelWidth)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("dropout must be in [0, 1), got %g: %w", c.Dropout, ErrInvalidConfig)
	}
	if c.Eps <= 0 {
		return fmt.Errorf("eps must be positive, got %g: %w", c.Eps, ErrInvalidConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d: %w", c.Workers, ErrInvalidConfig)
	}
	return nil
}

package model

import (
	"fmt"

	"github.com/samcharles93/seq2seq/internal/mask"
	"github.com/samcharles93/seq2seq/internal/tensor"
)

// EncoderBlock is residual self-attention followed by residual feed-forward.
type EncoderBlock struct {
	SelfAttention *MultiHeadAttention
	FeedForward   *FeedForward
	Residuals     [2]*Residual
}

// NewEncoderBlock returns one self-attention plus feed-forward block.
func NewEncoderBlock(cfg Config, env *Env) (*EncoderBlock, error) {
	attn, err := NewMultiHeadAttention(cfg.DModel, cfg.Heads, cfg.Dropout, env)
	if err != nil {
		return nil, err
	}
	blk := &EncoderBlock{
		SelfAttention: attn,
		FeedForward:   NewFeedForward(cfg.DModel, cfg.DFF, cfg.Dropout, env),
	}
	for i := range blk.Residuals {
		blk.Residuals[i] = NewResidual(cfg.DModel, cfg.Eps, cfg.Dropout, env)
	}
	return blk, nil
}

// Forward applies the block; srcMask suppresses attention to padding keys.
func (blk *EncoderBlock) Forward(x *tensor.Tensor, srcMask *mask.Mask) (*tensor.Tensor, error) {
	x, err := blk.Residuals[0].Forward(x, func(h *tensor.Tensor) (*tensor.Tensor, error) {
		return blk.SelfAttention.Forward(h, h, h, srcMask)
	})
	if err != nil {
		return nil, fmt.Errorf("self-attention: %w", err)
	}
	x, err = blk.Residuals[1].Forward(x, blk.FeedForward.Forward)
	if err != nil {
		return nil, fmt.Errorf("feed-forward: %w", err)
	}
	return x, nil
}

func (blk *EncoderBlock) params(prefix string) []*Param {
	var ps []*Param
	ps = append(ps, blk.SelfAttention.params(prefixed(prefix, "self_attention"))...)
	ps = append(ps, blk.FeedForward.params(prefixed(prefix, "feed_forward"))...)
	for i, r := range blk.Residuals {
		ps = append(ps, r.params(prefixed(prefix, "residual", itoa(i)))...)
	}
	return ps
}

// Encoder runs its blocks in order and normalises the result.
type Encoder struct {
	Layers []*EncoderBlock
	Norm   *LayerNorm
}

// NewEncoder returns cfg.Layers encoder blocks followed by a final LayerNorm.
func NewEncoder(cfg Config, env *Env) (*Encoder, error) {
	enc := &Encoder{
		Layers: make([]*EncoderBlock, cfg.Layers),
		Norm:   NewLayerNorm(cfg.DModel, cfg.Eps),
	}
	for i := range enc.Layers {
		blk, err := NewEncoderBlock(cfg, env)
		if err != nil {
			return nil, err
		}
		enc.Layers[i] = blk
	}
	return enc, nil
}

func (e *Encoder) Forward(x *tensor.Tensor, srcMask *mask.Mask) (*tensor.Tensor, error) {
	for i, blk := range e.Layers {
		var err error
		if x, err = blk.Forward(x, srcMask); err != nil {
			return nil, fmt.Errorf("encoder layer %d: %w", i, err)
		}
	}
	return e.Norm.Forward(x)
}

func (e *Encoder) params(prefix string) []*Param {
	var ps []*Param
	for i, blk := range e.Layers {
		ps = append(ps, blk.params(prefixed(prefix, "layers", itoa(i)))...)
	}
	return append(ps, e.Norm.params(prefixed(prefix, "norm"))...)
}

package model

import (
	"fmt"

	"github.com/samcharles93/seq2seq/internal/mask"
	"github.com/samcharles93/seq2seq/internal/tensor"
)

// DecoderBlock is masked self-attention, cross-attention over the encoder
// output, then feed-forward, each in its own residual.
type DecoderBlock struct {
	SelfAttention  *MultiHeadAttention
	CrossAttention *MultiHeadAttention
	FeedForward    *FeedForward
	Residuals      [3]*Residual
}

// NewDecoderBlock returns one masked self-attention, cross-attention and feed-forward block.
func NewDecoderBlock(cfg Config, env *Env) (*DecoderBlock, error) {
	self, err := NewMultiHeadAttention(cfg.DModel, cfg.Heads, cfg.Dropout, env)
	if err != nil {
		return nil, err
	}
	cross, err := NewMultiHeadAttention(cfg.DModel, cfg.Heads, cfg.Dropout, env)
	if err != nil {
		return nil, err
	}
	blk := &DecoderBlock{
		SelfAttention:  self,
		CrossAttention: cross,
		FeedForward:    NewFeedForward(cfg.DModel, cfg.DFF, cfg.Dropout, env),
	}
	for i := range blk.Residuals {
		blk.Residuals[i] = NewResidual(cfg.DModel, cfg.Eps, cfg.Dropout, env)
	}
	return blk, nil
}

// Forward applies the block. tgtMask must be causal (see mask.Target);
// srcMask masks encoder padding for cross-attention.
func (blk *DecoderBlock) Forward(x, encOut *tensor.Tensor, srcMask, tgtMask *mask.Mask) (*tensor.Tensor, error) {
	x, err := blk.Residuals[0].Forward(x, func(h *tensor.Tensor) (*tensor.Tensor, error) {
		return blk.SelfAttention.Forward(h, h, h, tgtMask)
	})
	if err != nil {
		return nil, fmt.Errorf("self-attention: %w", err)
	}
	x, err = blk.Residuals[1].Forward(x, func(h *tensor.Tensor) (*tensor.Tensor, error) {
		return blk.CrossAttention.Forward(h, encOut, encOut, srcMask)
	})
	if err != nil {
		return nil, fmt.Errorf("cross-attention: %w", err)
	}
	x, err = blk.Residuals[2].Forward(x, blk.FeedForward.Forward)
	if err != nil {
		return nil, fmt.Errorf("feed-forward: %w", err)
	}
	return x, nil
}

func (blk *DecoderBlock) params(prefix string) []*Param {
	var ps []*Param
	ps = append(ps, blk.SelfAttention.params(prefixed(prefix, "self_attention"))...)
	ps = append(ps, blk.CrossAttention.params(prefixed(prefix, "cross_attention"))...)
	ps = append(ps, blk.FeedForward.params(prefixed(prefix, "feed_forward"))...)
	for i, r := range blk.Residuals {
		ps = append(ps, r.params(prefixed(prefix, "residual", itoa(i)))...)
	}
	return ps
}

type Decoder struct {
	Layers []*DecoderBlock
	Norm   *LayerNorm
}

// NewDecoder returns cfg.Layers decoder blocks followed by a final LayerNorm.
func NewDecoder(cfg Config, env *Env) (*Decoder, error) {
	dec := &Decoder{
		Layers: make([]*DecoderBlock, cfg.Layers),
		Norm:   NewLayerNorm(cfg.DModel, cfg.Eps),
	}
	for i := range dec.Layers {
		blk, err := NewDecoderBlock(cfg, env)
		if err != nil {
			return nil, err
		}
		dec.Layers[i] = blk
	}
	return dec, nil
}

func (d *Decoder) Forward(x, encOut *tensor.Tensor, srcMask, tgtMask *mask.Mask) (*tensor.Tensor, error) {
	for i, blk := range d.Layers {
		var err error
		if x, err = blk.Forward(x, encOut, srcMask, tgtMask); err != nil {
			return nil, fmt.Errorf("decoder layer %d: %w", i, err)
		}
	}
	return d.Norm.Forward(x)
}

func (d *Decoder) params(prefix string) []*Param {
	var ps []*Param
	for i, blk := range d.Layers {
		ps = append(ps, blk.params(prefixed(prefix, "layers", itoa(i)))...)
	}
	return append(ps, d.Norm.params(prefixed(prefix, "norm"))...)
}

package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samcharles93/seq2seq/internal/logger"
	"github.com/samcharles93/seq2seq/internal/mask"
	"github.com/samcharles93/seq2seq/internal/tensor"
)

// Transformer is the assembled encoder/decoder model. It is not safe for
// concurrent use: attention layers keep their last weights and every dropout
// layer shares one generator.
type Transformer struct {
	SrcEmbed, TgtEmbed *Embedding
	SrcPos, TgtPos     *PositionalEncoding
	Encoder            *Encoder
	Decoder            *Decoder
	Projection         *Projection

	cfg    Config
	env    *Env
	log    logger.Logger
	params []*Param
}

type Option func(*Transformer)

// WithLogger routes construction and forward-pass logs to l.
func WithLogger(l logger.Logger) Option {
	return func(t *Transformer) { t.log = l }
}

// New validates cfg, builds every component with its own parameters and
// initialises them from cfg.Seed. The model starts in evaluation mode.
func New(cfg Config, opts ...Option) (*Transformer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	env := NewEnv(cfg.Seed, cfg.Workers)

	t := &Transformer{
		SrcEmbed:   NewEmbedding(cfg.SrcVocabSize, cfg.DModel),
		TgtEmbed:   NewEmbedding(cfg.TgtVocabSize, cfg.DModel),
		SrcPos:     NewPositionalEncoding(cfg.DModel, cfg.SrcSeqLen, cfg.Dropout, env),
		TgtPos:     NewPositionalEncoding(cfg.DModel, cfg.TgtSeqLen, cfg.Dropout, env),
		Projection: NewProjection(cfg.DModel, cfg.TgtVocabSize),
		cfg:        cfg,
		env:        env,
		log:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}

	var err error
	if t.Encoder, err = NewEncoder(cfg, env); err != nil {
		return nil, fmt.Errorf("build encoder: %w", err)
	}
	if t.Decoder, err = NewDecoder(cfg, env); err != nil {
		return nil, fmt.Errorf("build decoder: %w", err)
	}

	t.params = t.collectParams()
	initParams(t.params, initRand(cfg.Seed))

	t.log.Info("model constructed",
		"d_model", cfg.DModel,
		"layers", cfg.Layers,
		"heads", cfg.Heads,
		"d_ff", cfg.DFF,
		"parameters", t.NumParameters(),
		"seed", cfg.Seed,
	)
	return t, nil
}

func (t *Transformer) collectParams() []*Param {
	var ps []*Param
	ps = append(ps, t.SrcEmbed.params("src_embed")...)
	ps = append(ps, t.TgtEmbed.params("tgt_embed")...)
	ps = append(ps, t.Encoder.params("encoder")...)
	ps = append(ps, t.Decoder.params("decoder")...)
	ps = append(ps, t.Projection.params("projection")...)
	return ps
}

// Encode embeds src, adds positions and runs the encoder stack. The result
// has shape (B, Ls, DModel).
func (t *Transformer) Encode(src tensor.IDs, srcMask *mask.Mask) (*tensor.Tensor, error) {
	x, err := t.SrcEmbed.Forward(src)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	if x, err = t.SrcPos.Forward(x); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	out, err := t.Encoder.Forward(x, srcMask)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	b, l, d := out.Shape()
	t.log.Debug("encoded", "batch", b, "length", l, "width", d)
	return out, nil
}

// Decode embeds tgt, adds positions and runs the decoder stack against
// encOut. tgtMask must enforce causality. The result has shape
// (B, Lt, DModel).
func (t *Transformer) Decode(encOut *tensor.Tensor, srcMask *mask.Mask, tgt tensor.IDs, tgtMask *mask.Mask) (*tensor.Tensor, error) {
	if tb, _ := tgt.Shape(); encOut != nil && len(encOut.Batch) != tb {
		return nil, fmt.Errorf("decode: encoder batch %d, target batch %d: %w", len(encOut.Batch), tb, tensor.ErrShapeMismatch)
	}
	x, err := t.TgtEmbed.Forward(tgt)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if x, err = t.TgtPos.Forward(x); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	out, err := t.Decoder.Forward(x, encOut, srcMask, tgtMask)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	b, l, d := out.Shape()
	t.log.Debug("decoded", "batch", b, "length", l, "width", d)
	return out, nil
}

// Project maps decoder output to (B, Lt, TgtVocabSize) logits.
func (t *Transformer) Project(x *tensor.Tensor) (*tensor.Tensor, error) {
	logits, err := t.Projection.Forward(x)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	return logits, nil
}

// Forward runs Encode, Decode and Project in sequence.
func (t *Transformer) Forward(src, tgt tensor.IDs, srcMask, tgtMask *mask.Mask) (*tensor.Tensor, error) {
	enc, err := t.Encode(src, srcMask)
	if err != nil {
		return nil, err
	}
	dec, err := t.Decode(enc, srcMask, tgt, tgtMask)
	if err != nil {
		return nil, err
	}
	return t.Project(dec)
}

// CrossAttention returns the [batch][head] cross-attention weights recorded by
// the last decoder layer during the most recent forward pass.
func (t *Transformer) CrossAttention() [][]*mat.Dense {
	layers := t.Decoder.Layers
	return layers[len(layers)-1].CrossAttention.Weights()
}

// SetTraining switches dropout on or off for every layer.
func (t *Transformer) SetTraining(on bool) { t.env.Training = on }

func (t *Transformer) Training() bool { return t.env.Training }

func (t *Transformer) Config() Config { return t.cfg }

// Parameters returns every learned tensor in registration order.
func (t *Transformer) Parameters() []*Param { return t.params }

// NumParameters is the total number of learned scalars.
func (t *Transformer) NumParameters() int {
	n := 0
	for _, p := range t.params {
		n += p.Size()
	}
	return n
}

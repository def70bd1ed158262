package api

import "github.com/samcharles93/seq2seq/internal/model"

// ForwardRequest is the body of POST /v1/forward.
type ForwardRequest struct {
	Src [][]int `json:"src"`
	Tgt [][]int `json:"tgt"`
	// PadID marks padding in both src and tgt. When absent no padding mask is
	// built and the target mask is purely causal.
	PadID            *int `json:"pad_id,omitempty"`
	IncludeLogits    bool `json:"include_logits,omitempty"`
	IncludeAttention bool `json:"include_attention,omitempty"`
}

type ForwardResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	// Shape is (batch, target length, target vocabulary).
	Shape  [3]int        `json:"shape"`
	Argmax [][]int       `json:"argmax"`
	Logits [][][]float64 `json:"logits,omitempty"`
	// CrossAttention holds the last decoder layer's weights as
	// [batch][head][target][source].
	CrossAttention [][][][]float64 `json:"cross_attention,omitempty"`
}

type ModelResponse struct {
	ID     string `json:"id"`
	Object string `json:"object"`
	model.Summary
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ResponseError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

type errorEnvelope struct {
	Error ResponseError `json:"error"`
}

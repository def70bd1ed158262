package api

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/seq2seq/internal/logger"
	"github.com/samcharles93/seq2seq/internal/mask"
	"github.com/samcharles93/seq2seq/internal/model"
	"github.com/samcharles93/seq2seq/internal/tensor"
)

// Server exposes one Transformer over HTTP. Forward passes are serialised
// because the model records attention weights and shares its dropout stream.
type Server struct {
	mu    sync.Mutex
	model *model.Transformer
	name  string
	log   logger.Logger
	clock func() time.Time
}

type ServerOption func(*Server)

func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) { s.log = l }
}

// WithModelName sets the id reported by GET /v1/model.
func WithModelName(name string) ServerOption {
	return func(s *Server) { s.name = name }
}

func NewServer(m *model.Transformer, opts ...ServerOption) *Server {
	s := &Server{
		model: m,
		name:  "seq2seq",
		log:   logger.Discard(),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/model", s.handleModel)
	e.POST("/v1/forward", s.handleForward)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return writeJSON(c, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleModel(c *echo.Context) error {
	if s.model == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "model not configured", "", "")
	}
	return writeJSON(c, http.StatusOK, ModelResponse{
		ID:      s.name,
		Object:  "model",
		Summary: s.model.Summary(),
	})
}

func (s *Server) handleForward(c *echo.Context) error {
	if s.model == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "model not configured", "", "")
	}
	req, err := decodeJSON[ForwardRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if err := validateForward(req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid_request_error", err.Error(), paramOf(err), "")
	}

	resp, err := s.forward(req)
	switch {
	case err == nil:
		return writeJSON(c, http.StatusOK, resp)
	case model.IsInputError(err), errors.Is(err, ErrInvalidRequest):
		return writeBadRequest(c, err.Error())
	default:
		s.log.Error("forward failed", "error", err)
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}
}

func validateForward(req ForwardRequest) error {
	if len(req.Src) == 0 {
		return newInvalidParam("src", "src must contain at least one sequence")
	}
	if len(req.Tgt) == 0 {
		return newInvalidParam("tgt", "tgt must contain at least one sequence")
	}
	if len(req.Src) != len(req.Tgt) {
		return newInvalidParam("tgt", fmt.Sprintf("src has %d sequences but tgt has %d", len(req.Src), len(req.Tgt)))
	}
	return nil
}

func (s *Server) forward(req ForwardRequest) (ForwardResponse, error) {
	src, tgt := tensor.IDs(req.Src), tensor.IDs(req.Tgt)
	var srcMask, tgtMask *mask.Mask
	if req.PadID != nil {
		srcMask = mask.Padding(src, *req.PadID)
		tgtMask = mask.Target(tgt, *req.PadID)
	} else {
		_, lt := tgt.Shape()
		tgtMask = mask.Causal(lt)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.clock()
	logits, err := s.model.Forward(src, tgt, srcMask, tgtMask)
	if err != nil {
		return ForwardResponse{}, err
	}
	b, l, v := logits.Shape()
	resp := ForwardResponse{
		ID:      newForwardID(),
		Object:  "forward",
		Created: start.Unix(),
		Shape:   [3]int{b, l, v},
		Argmax:  logits.ArgmaxRows(),
	}
	if req.IncludeLogits {
		resp.Logits = logits.Slices()
	}
	if req.IncludeAttention {
		resp.CrossAttention = weightsToSlices(s.model.CrossAttention())
	}
	s.log.Debug("forward", "id", resp.ID, "batch", b, "tgt_len", l, "elapsed", s.clock().Sub(start))
	return resp, nil
}

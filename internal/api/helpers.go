package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"gonum.org/v1/gonum/mat"
)

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, "", "")
}

func writeError(c *echo.Context, status int, errType, msg, param, code string) error {
	return writeJSON(c, status, errorEnvelope{Error: ResponseError{
		Message: msg,
		Type:    errType,
		Code:    code,
		Param:   param,
	}})
}

func writeJSON(c *echo.Context, status int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return c.Blob(status, echo.MIMEApplicationJSON, b)
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, newInvalidRequest("invalid JSON body: " + err.Error())
	}
	return out, nil
}

// weightsToSlices copies [batch][head] attention matrices into plain slices so
// they survive the next forward pass.
func weightsToSlices(weights [][]*mat.Dense) [][][][]float64 {
	out := make([][][][]float64, len(weights))
	for b, heads := range weights {
		out[b] = make([][][]float64, len(heads))
		for h, w := range heads {
			r, _ := w.Dims()
			rows := make([][]float64, r)
			for i := range r {
				rows[i] = mat.Row(nil, i, w)
			}
			out[b][h] = rows
		}
	}
	return out
}

func newForwardID() string {
	return "fwd-" + uuid.NewString()
}

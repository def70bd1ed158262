package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seq2seq/internal/logger"
	"github.com/samcharles93/seq2seq/internal/mask"
	"github.com/samcharles93/seq2seq/internal/tensor"
)

type forwardReport struct {
	Shape      [3]int  `json:"shape"`
	Finite     bool    `json:"finite"`
	Argmax     [][]int `json:"argmax"`
	Parameters int     `json:"parameters"`
	Training   bool    `json:"training"`
	ElapsedMS  float64 `json:"elapsed_ms"`
	// CrossAttention is head 0 of the last decoder layer for batch element 0.
	CrossAttention [][]float64 `json:"cross_attention,omitempty"`
}

func forwardCmd() *cli.Command {
	var (
		srcIDs    string
		tgtIDs    string
		batch     int
		srcTokens int
		tgtTokens int
		padID     int
		attention bool
		asJSON    bool
	)

	return &cli.Command{
		Name:  "forward",
		Usage: "Build a model and run encode, decode and project on token ids",
		Flags: append(modelFlags(),
			&cli.StringFlag{
				Name:        "src",
				Usage:       `source ids, rows separated by ';' (e.g. "1,2,3;4,5,6")`,
				Destination: &srcIDs,
			},
			&cli.StringFlag{
				Name:        "tgt",
				Usage:       "target ids in the same format as --src",
				Destination: &tgtIDs,
			},
			&cli.IntFlag{Name: "batch", Usage: "random batch size when --src/--tgt are omitted", Value: 2, Destination: &batch},
			&cli.IntFlag{Name: "src-tokens", Usage: "random source length", Value: 10, Destination: &srcTokens},
			&cli.IntFlag{Name: "tgt-tokens", Usage: "random target length", Value: 8, Destination: &tgtTokens},
			&cli.IntFlag{Name: "pad-id", Usage: "padding id to mask (-1 disables padding masks)", Value: -1, Destination: &padID},
			&cli.BoolFlag{Name: "attention", Usage: "print cross-attention weights of the last decoder layer", Destination: &attention},
			&cli.BoolFlag{Name: "json", Usage: "print the report as JSON", Destination: &asJSON},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			log := logger.FromContext(ctx)

			m, err := buildModel(ctx, c)
			if err != nil {
				return err
			}
			cfg := m.Config()

			var src, tgt tensor.IDs
			if srcIDs != "" || tgtIDs != "" {
				if src, err = parseIDs(srcIDs); err != nil {
					return fmt.Errorf("--src: %w", err)
				}
				if tgt, err = parseIDs(tgtIDs); err != nil {
					return fmt.Errorf("--tgt: %w", err)
				}
			} else {
				if err := checkRandomShape(batch, srcTokens, tgtTokens); err != nil {
					return err
				}
				rng := rand.New(rand.NewPCG(cfg.Seed, 1))
				src = randomIDs(rng, batch, srcTokens, cfg.SrcVocabSize, padID)
				tgt = randomIDs(rng, batch, tgtTokens, cfg.TgtVocabSize, padID)
			}

			var srcMask, tgtMask *mask.Mask
			if padID >= 0 {
				srcMask = mask.Padding(src, padID)
				tgtMask = mask.Target(tgt, padID)
			} else {
				_, lt := tgt.Shape()
				tgtMask = mask.Causal(lt)
			}

			start := time.Now()
			logits, err := m.Forward(src, tgt, srcMask, tgtMask)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)
			log.Debug("forward complete", "elapsed", elapsed)

			b, l, v := logits.Shape()
			report := forwardReport{
				Shape:      [3]int{b, l, v},
				Finite:     logits.IsFinite(),
				Argmax:     logits.ArgmaxRows(),
				Parameters: m.NumParameters(),
				Training:   m.Training(),
				ElapsedMS:  float64(elapsed.Microseconds()) / 1000,
			}
			if attention {
				w := m.CrossAttention()[0][0]
				r, _ := w.Dims()
				report.CrossAttention = make([][]float64, r)
				for i := range r {
					report.CrossAttention[i] = append([]float64(nil), w.RawRowView(i)...)
				}
			}
			if asJSON {
				return writeJSON(stdout(c), report)
			}
			printForwardReport(stdout(c), report)
			return nil
		},
	}
}

// parseIDs parses "1,2,3;4,5,6" into rows of ids. Rows may differ in length;
// the model rejects ragged input.
func parseIDs(s string) (tensor.IDs, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("no ids given")
	}
	var ids tensor.IDs
	for r, rowText := range strings.Split(s, ";") {
		rowText = strings.TrimSpace(rowText)
		if rowText == "" {
			return nil, fmt.Errorf("row %d is empty", r)
		}
		var row []int
		for _, field := range strings.Split(rowText, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(field))
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid id %q", r, field)
			}
			row = append(row, id)
		}
		ids = append(ids, row)
	}
	return ids, nil
}

func checkRandomShape(batch, srcTokens, tgtTokens int) error {
	for _, f := range []struct {
		name string
		v    int
	}{{"--batch", batch}, {"--src-tokens", srcTokens}, {"--tgt-tokens", tgtTokens}} {
		if f.v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", f.name, f.v)
		}
	}
	return nil
}

// randomIDs draws a (b, l) batch uniformly from [0, vocab), skipping padID
// when the vocabulary allows it.
func randomIDs(rng *rand.Rand, b, l, vocab, padID int) tensor.IDs {
	ids := make(tensor.IDs, b)
	for i := range ids {
		ids[i] = make([]int, l)
		for j := range ids[i] {
			id := rng.IntN(vocab)
			for id == padID && vocab > 1 {
				id = rng.IntN(vocab)
			}
			ids[i][j] = id
		}
	}
	return ids
}

func printForwardReport(w io.Writer, r forwardReport) {
	fmt.Fprintf(w, "logits:     (%d, %d, %d)\n", r.Shape[0], r.Shape[1], r.Shape[2])
	fmt.Fprintf(w, "finite:     %t\n", r.Finite)
	fmt.Fprintf(w, "parameters: %d\n", r.Parameters)
	fmt.Fprintf(w, "training:   %t\n", r.Training)
	fmt.Fprintf(w, "elapsed:    %.3fms\n", r.ElapsedMS)
	for b, row := range r.Argmax {
		fmt.Fprintf(w, "argmax[%d]:  %s\n", b, joinInts(row))
	}
	if len(r.CrossAttention) > 0 {
		fmt.Fprintln(w, "cross-attention (batch 0, head 0):")
		for i, row := range r.CrossAttention {
			parts := make([]string, len(row))
			for j, v := range row {
				parts[j] = strconv.FormatFloat(v, 'f', 3, 64)
			}
			fmt.Fprintf(w, "  %2d: %s\n", i, strings.Join(parts, " "))
		}
	}
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, " ")
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

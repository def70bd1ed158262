package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seq2seq/internal/model"
)

type paramRow struct {
	Name  string `json:"name"`
	Shape []int  `json:"shape"`
	Count int    `json:"count"`
	Init  string `json:"init"`
}

type inspectReport struct {
	model.Summary
	TensorList []paramRow `json:"tensor_list,omitempty"`
}

func inspectCmd() *cli.Command {
	var (
		showTensors  bool
		tensorFilter string
		tensorLimit  int
		asJSON       bool
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Print the configuration and parameter inventory of a model",
		Flags: append(modelFlags(),
			&cli.BoolFlag{Name: "tensors", Usage: "list every parameter tensor", Destination: &showTensors},
			&cli.StringFlag{Name: "tensor-filter", Usage: "substring filter for tensor listing", Destination: &tensorFilter},
			&cli.IntFlag{Name: "tensors-limit", Usage: "limit tensor listing (0 = no limit)", Value: 50, Destination: &tensorLimit},
			&cli.BoolFlag{Name: "json", Usage: "print the report as JSON", Destination: &asJSON},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			m, err := buildModel(ctx, c)
			if err != nil {
				return err
			}
			report := inspectReport{Summary: m.Summary()}
			if showTensors {
				report.TensorList = paramRows(m.Parameters(), tensorFilter, tensorLimit)
			}
			if asJSON {
				return writeJSON(stdout(c), report)
			}
			printInspectReport(stdout(c), report)
			return nil
		},
	}
}

func paramRows(params []*model.Param, filter string, limit int) []paramRow {
	var rows []paramRow
	for _, p := range params {
		if filter != "" && !strings.Contains(p.Name, filter) {
			continue
		}
		if limit > 0 && len(rows) >= limit {
			break
		}
		rows = append(rows, paramRow{Name: p.Name, Shape: p.Shape, Count: p.Size(), Init: p.Init()})
	}
	return rows
}

func printInspectReport(w io.Writer, r inspectReport) {
	cfg := r.Config
	fmt.Fprintln(w, "Model")
	fmt.Fprintf(w, "  vocab:      src=%d tgt=%d\n", cfg.SrcVocabSize, cfg.TgtVocabSize)
	fmt.Fprintf(w, "  seq len:    src=%d tgt=%d\n", cfg.SrcSeqLen, cfg.TgtSeqLen)
	fmt.Fprintf(w, "  d_model:    %d (heads=%d, head_dim=%d)\n", cfg.DModel, cfg.Heads, cfg.HeadDim())
	fmt.Fprintf(w, "  layers:     %d\n", cfg.Layers)
	fmt.Fprintf(w, "  d_ff:       %d\n", cfg.DFF)
	fmt.Fprintf(w, "  dropout:    %g\n", cfg.Dropout)
	fmt.Fprintf(w, "  eps:        %g\n", cfg.Eps)
	fmt.Fprintf(w, "  seed:       %d\n", cfg.Seed)

	fmt.Fprintln(w, "Parameters")
	for _, g := range r.Groups {
		fmt.Fprintf(w, "  %-12s %4d tensors %12s\n", g.Name, g.Tensors, formatCount(g.Parameters))
	}
	fmt.Fprintf(w, "  %-12s %4d tensors %12s\n", "total", r.Tensors, formatCount(r.Parameters))

	if len(r.TensorList) == 0 {
		return
	}
	width := 0
	for _, row := range r.TensorList {
		width = max(width, len(row.Name))
	}
	fmt.Fprintln(w, "Tensors")
	for _, row := range r.TensorList {
		fmt.Fprintf(w, "  %-*s  %-12s %10d  %s\n", width, row.Name, formatShape(row.Shape), row.Count, row.Init)
	}
}

func formatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	return "[" + strings.Join(parts, "x") + "]"
}

// formatCount renders n with thousands separators.
func formatCount(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

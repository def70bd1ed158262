package main

import (
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seq2seq/internal/model"
)

var (
	configFile string
	logLevel   string
	logFormat  string
	debug      bool

	srcVocab int
	tgtVocab int
	srcLen   int
	tgtLen   int
	dModel   int
	layers   int
	heads    int
	dFF      int
	dropout  float64
	eps      float64
	seed     uint64
	workers  int
	training bool
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Usage:       "path to config.yaml (default: user config dir/seq2seq/config.yaml)",
		Destination: &configFile,
	}
}

func modelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "src-vocab", Usage: "source vocabulary size", Value: 1000, Destination: &srcVocab},
		&cli.IntFlag{Name: "tgt-vocab", Usage: "target vocabulary size", Value: 1000, Destination: &tgtVocab},
		&cli.IntFlag{Name: "src-len", Usage: "maximum source length", Value: 128, Destination: &srcLen},
		&cli.IntFlag{Name: "tgt-len", Usage: "maximum target length", Value: 128, Destination: &tgtLen},
		&cli.IntFlag{Name: "d-model", Usage: "model width", Value: model.DefaultDModel, Destination: &dModel},
		&cli.IntFlag{Name: "layers", Aliases: []string{"n"}, Usage: "encoder and decoder blocks", Value: model.DefaultLayers, Destination: &layers},
		&cli.IntFlag{Name: "heads", Usage: "attention heads", Value: model.DefaultHeads, Destination: &heads},
		&cli.IntFlag{Name: "d-ff", Usage: "feed-forward hidden width", Value: model.DefaultDFF, Destination: &dFF},
		&cli.Float64Flag{Name: "dropout", Usage: "dropout probability", Value: model.DefaultDropout, Destination: &dropout},
		&cli.Float64Flag{Name: "eps", Usage: "layer norm epsilon", Value: model.DefaultEps, Destination: &eps},
		&cli.Uint64Flag{Name: "seed", Usage: "initialisation and dropout seed", Destination: &seed},
		&cli.IntFlag{Name: "workers", Usage: "attention head workers (evaluation mode only)", Value: 1, Destination: &workers},
		&cli.BoolFlag{Name: "training", Usage: "enable dropout", Destination: &training},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (auto, pretty, json, text)",
			Value:       "auto",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}
